package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"investsim-backend/internal/catalog"
	"investsim-backend/internal/events"
	"investsim-backend/internal/models"
	"investsim-backend/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// 新用户的初始余额
var defaultBalance = decimal.NewFromInt(1000)

// JSONFileStore 基于单个 JSON 文件的账户存储
// 每次变更都完整读入、变更、再通过临时文件原子替换写回，
// 闸锁保证序列对其他调用者可见为原子；绕过闸锁的外部读者（如备份）
// 也永远看不到写了一半的文件
type JSONFileStore struct {
	logger *logger.Logger
	hub    *events.Hub
	path   string
	now    func() time.Time

	// 闸锁：串行化所有对持久化聚合体的读写
	gate sync.Mutex

	userMu      sync.RWMutex
	currentUser string
}

// NewJSONFileStore 创建 JSON 文件存储
// now 为可注入的时钟（测试用），传 nil 则使用系统 UTC 时间
func NewJSONFileStore(path string, hub *events.Hub, log *logger.Logger, now func() time.Time) *JSONFileStore {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &JSONFileStore{
		logger: log,
		hub:    hub,
		path:   path,
		now:    now,
	}
}

// --------- AccountStore ---------

// Login 设置当前用户
func (s *JSONFileStore) Login(userName string) {
	s.userMu.Lock()
	s.currentUser = userName
	s.userMu.Unlock()

	s.logger.Info("用户已登录", zap.String("user", userName))
}

// Logout 清除当前用户
func (s *JSONFileStore) Logout() {
	s.userMu.Lock()
	user := s.currentUser
	s.currentUser = ""
	s.userMu.Unlock()

	s.logger.Info("用户已登出", zap.String("user", user))
}

// GetOptions 返回投资选项目录
func (s *JSONFileStore) GetOptions() []models.InvestmentOption {
	return catalog.Options()
}

// GetAccountState 返回当前用户的账户快照
func (s *JSONFileStore) GetAccountState(ctx context.Context) (*models.AccountState, error) {
	user, ok := s.loggedInUser()
	if !ok {
		return nil, models.ErrNotLoggedIn
	}

	s.gate.Lock()
	defer s.gate.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	db, err := s.readDBLocked()
	if err != nil {
		return nil, err
	}

	account, created := getOrCreateUserLocked(db, user)
	if created {
		// 首次访问即建档，立刻落盘
		if err := s.writeDBLocked(db); err != nil {
			return nil, err
		}
	}

	s.logger.Debug("读取账户状态", zap.String("user", user))

	return &models.AccountState{
		UserName:          account.UserName,
		Balance:           account.Balance,
		ActiveInvestments: append([]models.ActiveInvestment(nil), account.ActiveInvestments...),
		InvestmentHistory: append([]models.InvestmentHistoryItem(nil), account.InvestmentHistory...),
	}, nil
}

// GetHistory 返回当前用户的投资历史，按完成时间倒序
func (s *JSONFileStore) GetHistory(ctx context.Context) ([]models.InvestmentHistoryItem, error) {
	user, ok := s.loggedInUser()
	if !ok {
		return []models.InvestmentHistoryItem{}, nil
	}

	s.gate.Lock()
	defer s.gate.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	db, err := s.readDBLocked()
	if err != nil {
		return nil, err
	}

	account, created := getOrCreateUserLocked(db, user)
	if created {
		if err := s.writeDBLocked(db); err != nil {
			return nil, err
		}
	}

	history := append([]models.InvestmentHistoryItem(nil), account.InvestmentHistory...)
	sort.Slice(history, func(i, j int) bool {
		return history[i].CompletedAtUtc.After(history[j].CompletedAtUtc)
	})

	return history, nil
}

// TryStartInvestment 校验并开始一笔投资
func (s *JSONFileStore) TryStartInvestment(ctx context.Context, optionID string) (*models.ActiveInvestment, error) {
	user, ok := s.loggedInUser()
	if !ok {
		return nil, models.ErrNotLoggedIn
	}

	option, ok := catalog.Find(optionID)
	if !ok {
		return nil, models.ErrInvalidOption
	}

	s.gate.Lock()
	defer s.gate.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	db, err := s.readDBLocked()
	if err != nil {
		return nil, err
	}

	account, _ := getOrCreateUserLocked(db, user)

	if account.Balance.LessThan(option.RequiredAmount) {
		return nil, models.ErrInsufficient
	}

	for _, inv := range account.ActiveInvestments {
		if inv.OptionID == optionID {
			return nil, models.ErrAlreadyActive
		}
	}

	now := s.now().UTC()

	investment := models.ActiveInvestment{
		ID:             uuid.NewString(),
		OptionID:       option.ID,
		Name:           option.Name,
		InvestedAmount: option.RequiredAmount,
		ExpectedReturn: option.ExpectedReturn,
		StartTimeUtc:   now,
		EndTimeUtc:     now.Add(time.Duration(option.DurationSeconds) * time.Second),
	}

	account.Balance = account.Balance.Sub(option.RequiredAmount)
	account.ActiveInvestments = append(account.ActiveInvestments, investment)

	if err := s.writeDBLocked(db); err != nil {
		return nil, err
	}

	s.logger.Info("投资已开始",
		zap.String("user", user),
		zap.String("option_id", optionID),
		zap.String("investment_id", investment.ID),
		zap.String("amount", option.RequiredAmount.String()),
		zap.String("balance_after", account.Balance.String()))

	return &investment, nil
}

// CompleteInvestment 按 ID 结算一笔投资
func (s *JSONFileStore) CompleteInvestment(ctx context.Context, investmentID string) (int64, bool, error) {
	ev, err := s.completeLocked(ctx, investmentID)
	if err != nil {
		return 0, false, err
	}
	if ev == nil {
		return 0, false, nil
	}

	// 闸锁已释放后再发布，避免存储与事件中心互相牵制
	published := s.hub.Publish(*ev)

	s.logger.Debug("完成事件已发布",
		zap.Int64("token", published.Token),
		zap.String("user", published.UserName),
		zap.String("investment_id", published.InvestmentID))

	return published.Token, true, nil
}

// completeLocked 在闸锁内执行结算；未到期或找不到时返回 (nil, nil)
func (s *JSONFileStore) completeLocked(ctx context.Context, investmentID string) (*models.InvestmentCompletedEvent, error) {
	s.gate.Lock()
	defer s.gate.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	db, err := s.readDBLocked()
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()

	for _, account := range db.Users {
		index := -1
		for i, inv := range account.ActiveInvestments {
			if inv.ID == investmentID {
				index = i
				break
			}
		}
		if index < 0 {
			continue
		}

		investment := account.ActiveInvestments[index]

		// 到期时间才是权威，调用方的时钟不算数
		if investment.EndTimeUtc.After(now) {
			return nil, nil
		}

		account.Balance = account.Balance.Add(investment.ExpectedReturn)
		account.InvestmentHistory = append(account.InvestmentHistory, models.InvestmentHistoryItem{
			ID:             investment.ID,
			OptionID:       investment.OptionID,
			Name:           investment.Name,
			InvestedAmount: investment.InvestedAmount,
			ReturnedAmount: investment.ExpectedReturn,
			StartTimeUtc:   investment.StartTimeUtc,
			EndTimeUtc:     investment.EndTimeUtc,
			CompletedAtUtc: now,
		})
		account.ActiveInvestments = append(
			account.ActiveInvestments[:index],
			account.ActiveInvestments[index+1:]...)

		if err := s.writeDBLocked(db); err != nil {
			return nil, err
		}

		s.logger.Info("投资已结算",
			zap.String("user", account.UserName),
			zap.String("investment_id", investment.ID),
			zap.String("returned", investment.ExpectedReturn.String()),
			zap.String("balance_after", account.Balance.String()))

		return &models.InvestmentCompletedEvent{
			UserName:       account.UserName,
			InvestmentID:   investment.ID,
			OptionID:       investment.OptionID,
			Name:           investment.Name,
			InvestedAmount: investment.InvestedAmount,
			ReturnedAmount: investment.ExpectedReturn,
			BalanceAfter:   account.Balance,
			StartTimeUtc:   investment.StartTimeUtc,
			EndTimeUtc:     investment.EndTimeUtc,
			CompletedAtUtc: now,
		}, nil
	}

	return nil, nil
}

// GetAllActiveInvestments 返回所有用户的进行中投资
func (s *JSONFileStore) GetAllActiveInvestments(ctx context.Context) ([]models.ActiveInvestment, error) {
	s.gate.Lock()
	defer s.gate.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	db, err := s.readDBLocked()
	if err != nil {
		return nil, err
	}

	var out []models.ActiveInvestment
	for _, account := range db.Users {
		out = append(out, account.ActiveInvestments...)
	}
	return out, nil
}

// --------- 文件 I/O 与辅助（调用方必须持有闸锁） ---------

func (s *JSONFileStore) loggedInUser() (string, bool) {
	s.userMu.RLock()
	defer s.userMu.RUnlock()
	return s.currentUser, s.currentUser != ""
}

// getOrCreateUserLocked 查找用户，不存在则以默认余额建档
// 用户名按小写归一作键，不区分大小写
func getOrCreateUserLocked(db *models.AccountsDB, userName string) (*models.UserAccount, bool) {
	key := strings.ToLower(userName)
	if account, ok := db.Users[key]; ok {
		return account, false
	}

	account := &models.UserAccount{
		UserName:          userName,
		Balance:           defaultBalance,
		ActiveInvestments: []models.ActiveInvestment{},
		InvestmentHistory: []models.InvestmentHistoryItem{},
	}
	db.Users[key] = account
	return account, true
}

// readDBLocked 从文件读取数据库；文件不存在视为空库
func (s *JSONFileStore) readDBLocked() (*models.AccountsDB, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return models.NewAccountsDB(), nil
		}
		return nil, fmt.Errorf("读取账户文件失败: %w", err)
	}

	db := models.NewAccountsDB()
	if err := json.Unmarshal(data, db); err != nil {
		return nil, fmt.Errorf("解析账户文件失败: %w", err)
	}
	if db.Users == nil {
		db.Users = make(map[string]*models.UserAccount)
	}
	return db, nil
}

// writeDBLocked 先写临时文件并刷盘，再原子替换正式文件
func (s *JSONFileStore) writeDBLocked(db *models.AccountsDB) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("创建数据目录失败: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("创建临时文件失败: %w", err)
	}

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(db); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("序列化账户数据失败: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("刷盘失败: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("关闭临时文件失败: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("替换账户文件失败: %w", err)
	}
	return nil
}
