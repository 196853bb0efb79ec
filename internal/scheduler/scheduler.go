// Package scheduler 负责投资到期结算的定时调度
package scheduler

import (
	"context"
	"errors"
	"time"

	"investsim-backend/internal/models"
	"investsim-backend/internal/pkg/logger"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CompletionStore 调度器对账户存储的最小依赖
type CompletionStore interface {
	CompleteInvestment(ctx context.Context, investmentID string) (token int64, completed bool, err error)
}

// CompletionScheduler 投资结算调度器
// 每笔进行中的投资对应一个以其 ID 为标识的一次性定时任务；
// 进程关闭时未触发的任务直接放弃，由下次启动的重调度器补上
type CompletionScheduler struct {
	scheduler gocron.Scheduler
	store     CompletionStore
	logger    *logger.Logger
	now       func() time.Time

	ctx context.Context
}

// NewCompletionScheduler 创建结算调度器
// now 为可注入的时钟（测试用），传 nil 则使用系统 UTC 时间
func NewCompletionScheduler(store CompletionStore, log *logger.Logger, now func() time.Time) (*CompletionScheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	return &CompletionScheduler{
		scheduler: s,
		store:     store,
		logger:    log,
		now:       now,
		ctx:       context.Background(),
	}, nil
}

// Start 启动调度器
// ctx 作为进程关闭信号传递给所有结算任务
func (s *CompletionScheduler) Start(ctx context.Context) {
	s.ctx = ctx
	s.scheduler.Start()
	s.logger.Info("结算调度器已启动")
}

// Stop 停止调度器，放弃所有未触发的任务
func (s *CompletionScheduler) Stop() {
	if err := s.scheduler.Shutdown(); err != nil {
		s.logger.Error("关闭调度器失败", zap.Error(err))
	}
	s.logger.Info("结算调度器已停止")
}

// Schedule 为一笔投资安排到期结算
// 已到期的投资立即结算；结算本身以到期时间为准，提前触发只是无操作
func (s *CompletionScheduler) Schedule(investment models.ActiveInvestment) {
	delay := investment.EndTimeUtc.Sub(s.now())
	if delay <= 0 {
		go s.complete(investment.ID)
		return
	}

	jobID, err := uuid.Parse(investment.ID)
	if err != nil {
		jobID = uuid.New()
	}

	if _, err := s.scheduler.NewJob(
		gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(investment.EndTimeUtc)),
		gocron.NewTask(s.complete, investment.ID),
		gocron.WithIdentifier(jobID),
		gocron.WithName("investment_completion"),
	); err != nil {
		if errors.Is(err, gocron.ErrOneTimeJobStartDateTimePast) {
			// 注册与到期之间的竞争窗口，直接结算
			go s.complete(investment.ID)
			return
		}
		s.logger.Error("注册结算任务失败",
			zap.String("investment_id", investment.ID),
			zap.Error(err))
		return
	}

	s.logger.Debug("结算任务已注册",
		zap.String("investment_id", investment.ID),
		zap.Duration("delay", delay))
}

// complete 执行结算；关闭导致的取消静默退出，其余错误记录后放弃（不重试）
func (s *CompletionScheduler) complete(investmentID string) {
	select {
	case <-s.ctx.Done():
		return
	default:
	}

	token, completed, err := s.store.CompleteInvestment(s.ctx, investmentID)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		s.logger.Error("结算投资失败",
			zap.String("investment_id", investmentID),
			zap.Error(err))
		return
	}

	if completed {
		s.logger.Info("投资到期结算完成",
			zap.String("investment_id", investmentID),
			zap.Int64("token", token))
	}
}
