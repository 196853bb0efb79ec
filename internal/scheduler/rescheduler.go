package scheduler

import (
	"context"
	"fmt"

	"investsim-backend/internal/models"
	"investsim-backend/internal/pkg/logger"

	"go.uber.org/zap"
)

// ActiveLister 重调度器对账户存储的最小依赖
type ActiveLister interface {
	GetAllActiveInvestments(ctx context.Context) ([]models.ActiveInvestment, error)
}

// Rescheduler 启动恢复：重启后为上次进程遗留的进行中投资重新安排结算
// 只在启动时运行一次，之后没有周期性工作
type Rescheduler struct {
	store     ActiveLister
	scheduler *CompletionScheduler
	logger    *logger.Logger
}

// NewRescheduler 创建重调度器
func NewRescheduler(store ActiveLister, sched *CompletionScheduler, log *logger.Logger) *Rescheduler {
	return &Rescheduler{
		store:     store,
		scheduler: sched,
		logger:    log,
	}
}

// Run 在开始对外服务之前调用，为所有遗留投资重新武装定时器
// 已经过期的投资会被立即结算（结算本身幂等，重复安排是安全的）
func (r *Rescheduler) Run(ctx context.Context) error {
	active, err := r.store.GetAllActiveInvestments(ctx)
	if err != nil {
		return fmt.Errorf("获取遗留投资失败: %w", err)
	}

	for _, investment := range active {
		r.scheduler.Schedule(investment)
	}

	r.logger.Info("遗留投资已重新调度", zap.Int("count", len(active)))
	return nil
}
