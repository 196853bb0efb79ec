package api

import (
	"net/http"

	"investsim-backend/internal/controller"
	"investsim-backend/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SetupRouter 初始化全局路由配置
func SetupRouter(
	logger *zap.Logger,
	jwtSecret string,
	accountCtrl *controller.AccountController,
	investCtrl *controller.InvestController,
	streamCtrl *controller.StreamController,
) *gin.Engine {
	r := gin.New()

	// 1. 注册全局中间件
	r.Use(middleware.LoggerMiddleware(logger))

	r.Use(middleware.SessionMiddleware(jwtSecret))

	r.Use(gin.Recovery()) // 异常捕获

	// 2. API 路由
	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		apiGroup.POST("/login", accountCtrl.Login)
		apiGroup.POST("/logout", accountCtrl.Logout)

		apiGroup.GET("/state", accountCtrl.State)
		apiGroup.GET("/investment-options", accountCtrl.Options)
		apiGroup.GET("/investment-history", accountCtrl.History)

		apiGroup.POST("/invest", investCtrl.Invest)
	}

	// 3. 实时事件推送
	eventsGroup := r.Group("/events")
	{
		eventsGroup.GET("/completions/stream", streamCtrl.Stream)
	}

	return r
}
