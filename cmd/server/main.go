package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"investsim-backend/configs"
	"investsim-backend/internal/api"
	"investsim-backend/internal/controller"
	"investsim-backend/internal/events"
	"investsim-backend/internal/pkg/logger"
	"investsim-backend/internal/scheduler"
	"investsim-backend/internal/service"
	"investsim-backend/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const configPath = "configs/config.yaml"

func main() {
	// 初始化日志
	log := logger.NewLogger()
	defer log.Sync()

	// 加载配置
	cfg, err := configs.LoadConfig(configPath)
	if err != nil {
		log.Fatal("加载配置失败", zap.Error(err))
	}

	gin.SetMode(cfg.Server.Mode)

	// 初始化核心组件：事件中心 → 账户存储 → 结算调度器 → 重调度器 → 投资服务
	hub := events.NewHub(log.Named("events"))
	store := storage.NewJSONFileStore(cfg.Storage.AccountsFile, hub, log.Named("storage"), nil)

	sched, err := scheduler.NewCompletionScheduler(store, log.Named("scheduler"), nil)
	if err != nil {
		log.Fatal("初始化结算调度器失败", zap.Error(err))
	}

	rescheduler := scheduler.NewRescheduler(store, sched, log.Named("rescheduler"))
	investSvc := service.NewInvestmentService(store, sched, log.Named("service"))

	// 初始化控制器与路由
	tokenTTL := time.Duration(cfg.Auth.TokenTTLMinutes) * time.Minute
	heartbeat := time.Duration(cfg.Stream.HeartbeatSeconds) * time.Second

	accountCtrl := controller.NewAccountController(store, cfg.Auth.JWTSecret, tokenTTL, log.Named("controller"))
	investCtrl := controller.NewInvestController(investSvc, nil)
	streamCtrl := controller.NewStreamController(hub, heartbeat, log.Named("controller"))

	router := api.SetupRouter(log.Logger, cfg.Auth.JWTSecret, accountCtrl, investCtrl, streamCtrl)

	// 启动调度器，并在对外服务之前恢复遗留投资
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched.Start(ctx)
	if err := rescheduler.Run(ctx); err != nil {
		log.Fatal("恢复遗留投资失败", zap.Error(err))
	}

	// 启动 HTTP 服务器
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP服务器异常退出", zap.Error(err))
		}
	}()

	log.Info("投资模拟服务已启动",
		zap.Int("port", cfg.Server.Port),
		zap.String("accounts_file", cfg.Storage.AccountsFile),
		zap.Duration("sse_heartbeat", heartbeat))

	// 等待退出信号
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("正在关闭系统...")

	// 先取消上下文放弃未触发的结算任务，再停调度器、排空 HTTP 连接
	cancel()
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("关闭HTTP服务器失败", zap.Error(err))
	}

	log.Info("系统已安全关闭")
}
