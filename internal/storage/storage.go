// Package storage 封装账户数据的持久化与并发访问
package storage

import (
	"context"

	"investsim-backend/internal/models"
)

// AccountStore 账户存储接口
// 所有变更操作对持久化聚合体而言都是事务性的：
// 同一把闸锁串行化“读文件 → 内存变更 → 写文件”的完整序列
type AccountStore interface {
	// GetAccountState 返回当前用户的账户快照；首次访问时创建默认账户并持久化
	GetAccountState(ctx context.Context) (*models.AccountState, error)

	// GetHistory 返回当前用户的投资历史，按完成时间倒序
	GetHistory(ctx context.Context) ([]models.InvestmentHistoryItem, error)

	// GetOptions 返回投资选项目录（纯内存，无 I/O）
	GetOptions() []models.InvestmentOption

	// Login 设置当前用户标识；不触碰持久化聚合体
	Login(userName string)

	// Logout 清除当前用户标识
	Logout()

	// TryStartInvestment 校验并开始一笔投资
	// 业务规则失败返回 *models.InvestError，且不产生任何部分变更
	TryStartInvestment(ctx context.Context, optionID string) (*models.ActiveInvestment, error)

	// CompleteInvestment 按 ID 结算一笔投资（跨所有用户查找）
	// 未到期或找不到时为无操作（completed=false）；结算成功返回事件 Token
	// 对同一 ID 重复调用是安全的：第二次找不到进行中的投资，直接无操作
	CompleteInvestment(ctx context.Context, investmentID string) (token int64, completed bool, err error)

	// GetAllActiveInvestments 返回所有用户的进行中投资（仅供重调度器使用）
	GetAllActiveInvestments(ctx context.Context) ([]models.ActiveInvestment, error)
}
