package controller

import (
	"errors"
	"net/http"
	"regexp"
	"time"

	"investsim-backend/internal/middleware"
	"investsim-backend/internal/models"
	"investsim-backend/internal/pkg/logger"
	"investsim-backend/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 用户名限制为 3-20 个英文字母
var userNameRegex = regexp.MustCompile("^[A-Za-z]{3,20}$")

// AccountController 账户相关接口
type AccountController struct {
	store     storage.AccountStore
	jwtSecret string
	tokenTTL  time.Duration
	logger    *logger.Logger
}

// NewAccountController 创建账户控制器
func NewAccountController(store storage.AccountStore, jwtSecret string, tokenTTL time.Duration, log *logger.Logger) *AccountController {
	return &AccountController{
		store:     store,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		logger:    log,
	}
}

type loginRequest struct {
	UserName string `json:"userName"`
}

// Login 处理用户登录请求
func (a *AccountController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, models.ErrCodeInvalidUserName, "Invalid request body")
		return
	}

	if !userNameRegex.MatchString(req.UserName) {
		Fail(c, http.StatusBadRequest, models.ErrCodeInvalidUserName,
			"User name must be 3-20 characters long and contain only English letters")
		return
	}

	a.store.Login(req.UserName)

	token, err := middleware.IssueToken(a.jwtSecret, req.UserName, a.tokenTTL)
	if err != nil {
		a.logger.Error("签发会话Token失败", zap.Error(err))
		Fail(c, http.StatusInternalServerError, models.ErrCodeInvestFailed, "Failed to issue session token")
		return
	}

	Success(c, gin.H{
		"message": "Logged in successfully. Hello, " + req.UserName + "!",
		"token":   token,
	})
}

// Logout 处理用户登出请求
func (a *AccountController) Logout(c *gin.Context) {
	a.store.Logout()
	Success(c, gin.H{"message": "Logged out successfully"})
}

// State 返回当前用户的账户状态快照
func (a *AccountController) State(c *gin.Context) {
	state, err := a.store.GetAccountState(c.Request.Context())
	if err != nil {
		var investErr *models.InvestError
		if errors.As(err, &investErr) {
			Fail(c, http.StatusBadRequest, investErr.Code, investErr.Message)
			return
		}
		a.logger.Error("读取账户状态失败", zap.Error(err))
		Fail(c, http.StatusInternalServerError, models.ErrCodeInvestFailed, "Failed to load account state")
		return
	}

	Success(c, state)
}

// Options 返回投资选项目录
func (a *AccountController) Options(c *gin.Context) {
	Success(c, a.store.GetOptions())
}

// History 返回当前用户的投资历史（按完成时间倒序）
func (a *AccountController) History(c *gin.Context) {
	history, err := a.store.GetHistory(c.Request.Context())
	if err != nil {
		a.logger.Error("读取投资历史失败", zap.Error(err))
		Fail(c, http.StatusInternalServerError, models.ErrCodeInvestFailed, "Failed to load investment history")
		return
	}

	Success(c, history)
}
