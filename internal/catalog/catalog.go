// Package catalog 提供静态的投资选项目录
package catalog

import (
	"investsim-backend/internal/models"

	"github.com/shopspring/decimal"
)

// 目录在进程启动时构建一次，之后只读，无需加锁
var options = []models.InvestmentOption{
	{
		ID:              "short",
		Name:            "Short-term Investment",
		RequiredAmount:  decimal.NewFromInt(10),
		ExpectedReturn:  decimal.NewFromInt(20),
		DurationSeconds: 10,
	},
	{
		ID:              "medium",
		Name:            "Medium-term Investment",
		RequiredAmount:  decimal.NewFromInt(100),
		ExpectedReturn:  decimal.NewFromInt(250),
		DurationSeconds: 30,
	},
	{
		ID:              "long",
		Name:            "Long-term Investment",
		RequiredAmount:  decimal.NewFromInt(1000),
		ExpectedReturn:  decimal.NewFromInt(3000),
		DurationSeconds: 60,
	},
}

// Options 返回全部投资选项（副本，调用方可自由持有）
func Options() []models.InvestmentOption {
	out := make([]models.InvestmentOption, len(options))
	copy(out, options)
	return out
}

// Find 按 ID 查找投资选项
func Find(id string) (models.InvestmentOption, bool) {
	for _, o := range options {
		if o.ID == id {
			return o, true
		}
	}
	return models.InvestmentOption{}, false
}
