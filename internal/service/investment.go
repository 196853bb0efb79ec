// Package service 提供投资用例的编排
package service

import (
	"context"
	"errors"

	"investsim-backend/internal/models"
	"investsim-backend/internal/pkg/logger"

	"go.uber.org/zap"
)

// InvestStore 服务对账户存储的最小依赖
type InvestStore interface {
	TryStartInvestment(ctx context.Context, optionID string) (*models.ActiveInvestment, error)
}

// Scheduler 服务对结算调度器的最小依赖
type Scheduler interface {
	Schedule(investment models.ActiveInvestment)
}

// InvestmentService 投资服务：开始投资并武装结算定时器
type InvestmentService struct {
	store     InvestStore
	scheduler Scheduler
	logger    *logger.Logger
}

// NewInvestmentService 创建投资服务
func NewInvestmentService(store InvestStore, sched Scheduler, log *logger.Logger) *InvestmentService {
	return &InvestmentService{
		store:     store,
		scheduler: sched,
		logger:    log,
	}
}

// TryInvest 尝试开始一笔投资
// 成功时先安排结算再返回，保证调用方看到的“已开始”投资一定会到期结算；
// 业务规则失败返回 *models.InvestError，其余错误统一映射为 INVEST_FAILED
func (s *InvestmentService) TryInvest(ctx context.Context, optionID string) (*models.ActiveInvestment, *models.InvestError) {
	investment, err := s.store.TryStartInvestment(ctx, optionID)
	if err != nil {
		var investErr *models.InvestError
		if errors.As(err, &investErr) {
			return nil, investErr
		}

		s.logger.Error("开始投资失败",
			zap.String("option_id", optionID),
			zap.Error(err))
		return nil, models.NewInvestError(models.ErrCodeInvestFailed, "Failed to start investment.")
	}

	s.scheduler.Schedule(*investment)

	return investment, nil
}
