package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvestmentOption 投资选项（静态目录条目，加载后不可变）
type InvestmentOption struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	RequiredAmount  decimal.Decimal `json:"requiredAmount"`  // 投入金额
	ExpectedReturn  decimal.Decimal `json:"expectedReturn"`  // 到期返还金额
	DurationSeconds int             `json:"durationSeconds"` // 锁定时长（秒）
}

// ActiveInvestment 进行中的投资
// 创建于投资成功时，到期结算后移入历史记录，二者互斥
type ActiveInvestment struct {
	ID             string          `json:"id"` // 全局唯一（UUID）
	OptionID       string          `json:"optionId"`
	Name           string          `json:"name"`
	InvestedAmount decimal.Decimal `json:"investedAmount"`
	ExpectedReturn decimal.Decimal `json:"expectedReturn"`
	StartTimeUtc   time.Time       `json:"startTimeUtc"`
	EndTimeUtc     time.Time       `json:"endTimeUtc"`
}

// InvestmentHistoryItem 已完成投资的历史记录（只追加，不修改）
type InvestmentHistoryItem struct {
	ID             string          `json:"id"`
	OptionID       string          `json:"optionId"`
	Name           string          `json:"name"`
	InvestedAmount decimal.Decimal `json:"investedAmount"`
	ReturnedAmount decimal.Decimal `json:"returnedAmount"`
	StartTimeUtc   time.Time       `json:"startTimeUtc"`
	EndTimeUtc     time.Time       `json:"endTimeUtc"`
	CompletedAtUtc time.Time       `json:"completedAtUtc"`
}

// UserAccount 用户账户（AccountsDB 中的持久化单元）
type UserAccount struct {
	UserName          string                  `json:"userName"`
	Balance           decimal.Decimal         `json:"balance"`
	ActiveInvestments []ActiveInvestment      `json:"activeInvestments"`
	InvestmentHistory []InvestmentHistoryItem `json:"investmentHistory"`
}

// AccountsDB 账户数据库：用户名（不区分大小写）到账户的映射
// 作为一个整体序列化到磁盘，是唯一的事实来源
type AccountsDB struct {
	Users map[string]*UserAccount `json:"users"`
}

// NewAccountsDB 创建空数据库
func NewAccountsDB() *AccountsDB {
	return &AccountsDB{Users: make(map[string]*UserAccount)}
}

// AccountState 账户状态快照（只读，供 API 返回）
type AccountState struct {
	UserName          string                  `json:"userName"`
	Balance           decimal.Decimal         `json:"balance"`
	ActiveInvestments []ActiveInvestment      `json:"activeInvestments"`
	InvestmentHistory []InvestmentHistoryItem `json:"investmentHistory"`
}

// InvestmentCompletedEvent 投资完成事件
// 不持久化；Token 由事件中心在发布时分配，进程生命周期内严格递增
type InvestmentCompletedEvent struct {
	Token          int64           `json:"token"`
	UserName       string          `json:"userName"`
	InvestmentID   string          `json:"investmentId"`
	OptionID       string          `json:"optionId"`
	Name           string          `json:"name"`
	InvestedAmount decimal.Decimal `json:"investedAmount"`
	ReturnedAmount decimal.Decimal `json:"returnedAmount"`
	BalanceAfter   decimal.Decimal `json:"balanceAfter"`
	StartTimeUtc   time.Time       `json:"startTimeUtc"`
	EndTimeUtc     time.Time       `json:"endTimeUtc"`
	CompletedAtUtc time.Time       `json:"completedAtUtc"`
}
