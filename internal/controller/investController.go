package controller

import (
	"fmt"
	"math"
	"net/http"
	"time"

	"investsim-backend/internal/models"
	"investsim-backend/internal/service"

	"github.com/gin-gonic/gin"
)

// InvestController 投资接口
type InvestController struct {
	service *service.InvestmentService
	now     func() time.Time
}

// NewInvestController 创建投资控制器
func NewInvestController(svc *service.InvestmentService, now func() time.Time) *InvestController {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &InvestController{service: svc, now: now}
}

type investRequest struct {
	OptionID string `json:"optionId"`
}

// Invest 处理开始投资请求
func (ic *InvestController) Invest(c *gin.Context) {
	var req investRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, models.ErrCodeInvalidOption, "Invalid request body")
		return
	}

	investment, investErr := ic.service.TryInvest(c.Request.Context(), req.OptionID)
	if investErr != nil {
		Fail(c, http.StatusBadRequest, investErr.Code, investErr.Message)
		return
	}

	seconds := math.Round(investment.EndTimeUtc.Sub(ic.now()).Seconds())
	Success(c, gin.H{
		"message": fmt.Sprintf(
			"Investment started successfully. Your investment will be completed in %.0f seconds.", seconds),
		"investment": investment,
	})
}
