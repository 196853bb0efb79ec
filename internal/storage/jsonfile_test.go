package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"investsim-backend/internal/events"
	"investsim-backend/internal/models"
	"investsim-backend/internal/pkg/logger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock 可手动推进的测试时钟
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(t *testing.T) (*JSONFileStore, *events.Hub, *fakeClock, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "accounts.json")
	hub := events.NewHub(logger.NewNop())
	clock := newFakeClock()
	store := NewJSONFileStore(path, hub, logger.NewNop(), clock.Now)
	return store, hub, clock, path
}

func TestGetAccountStateRequiresLogin(t *testing.T) {
	store, _, _, _ := newTestStore(t)

	_, err := store.GetAccountState(context.Background())
	var investErr *models.InvestError
	require.ErrorAs(t, err, &investErr)
	assert.Equal(t, models.ErrCodeNotLoggedIn, investErr.Code)
}

func TestFirstTouchProvisioning(t *testing.T) {
	store, _, _, path := newTestStore(t)

	store.Login("Alice")

	state, err := store.GetAccountState(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Alice", state.UserName)
	assert.True(t, state.Balance.Equal(decimal.NewFromInt(1000)), "初始余额应为 1000")
	assert.Empty(t, state.ActiveInvestments)
	assert.Empty(t, state.InvestmentHistory)

	// 建档必须落盘
	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestTryStartInvestment(t *testing.T) {
	store, _, clock, _ := newTestStore(t)
	store.Login("Alice")

	inv, err := store.TryStartInvestment(context.Background(), "short")
	require.NoError(t, err)

	assert.Equal(t, "short", inv.OptionID)
	assert.Equal(t, "Short-term Investment", inv.Name)
	assert.True(t, inv.InvestedAmount.Equal(decimal.NewFromInt(10)))
	assert.True(t, inv.ExpectedReturn.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, clock.Now(), inv.StartTimeUtc)
	assert.Equal(t, clock.Now().Add(10*time.Second), inv.EndTimeUtc)

	state, err := store.GetAccountState(context.Background())
	require.NoError(t, err)
	assert.True(t, state.Balance.Equal(decimal.NewFromInt(990)), "余额应扣减投入金额")
	require.Len(t, state.ActiveInvestments, 1)
	assert.Equal(t, inv.ID, state.ActiveInvestments[0].ID)
}

func TestTryStartInvestmentValidation(t *testing.T) {
	t.Run("not logged in", func(t *testing.T) {
		store, _, _, _ := newTestStore(t)

		_, err := store.TryStartInvestment(context.Background(), "short")
		var investErr *models.InvestError
		require.ErrorAs(t, err, &investErr)
		assert.Equal(t, models.ErrCodeNotLoggedIn, investErr.Code)
	})

	t.Run("invalid option", func(t *testing.T) {
		store, _, _, _ := newTestStore(t)
		store.Login("Alice")

		_, err := store.TryStartInvestment(context.Background(), "instant")
		var investErr *models.InvestError
		require.ErrorAs(t, err, &investErr)
		assert.Equal(t, models.ErrCodeInvalidOption, investErr.Code)
	})

	t.Run("insufficient balance", func(t *testing.T) {
		store, _, _, _ := newTestStore(t)
		store.Login("Alice")

		// long 耗尽全部初始余额
		_, err := store.TryStartInvestment(context.Background(), "long")
		require.NoError(t, err)

		_, err = store.TryStartInvestment(context.Background(), "short")
		var investErr *models.InvestError
		require.ErrorAs(t, err, &investErr)
		assert.Equal(t, models.ErrCodeInsufficient, investErr.Code)

		// 失败不产生任何变更
		state, err := store.GetAccountState(context.Background())
		require.NoError(t, err)
		assert.True(t, state.Balance.Equal(decimal.Zero))
		assert.Len(t, state.ActiveInvestments, 1)
	})

	t.Run("already active", func(t *testing.T) {
		store, _, _, _ := newTestStore(t)
		store.Login("Alice")

		_, err := store.TryStartInvestment(context.Background(), "short")
		require.NoError(t, err)

		_, err = store.TryStartInvestment(context.Background(), "short")
		var investErr *models.InvestError
		require.ErrorAs(t, err, &investErr)
		assert.Equal(t, models.ErrCodeAlreadyActive, investErr.Code)

		state, err := store.GetAccountState(context.Background())
		require.NoError(t, err)
		assert.True(t, state.Balance.Equal(decimal.NewFromInt(990)), "失败不得再次扣款")
		assert.Len(t, state.ActiveInvestments, 1)
	})
}

func TestCompleteInvestment(t *testing.T) {
	store, hub, clock, _ := newTestStore(t)
	store.Login("Alice")

	ch, unsubscribe := hub.Subscribe()
	defer unsubscribe()

	inv, err := store.TryStartInvestment(context.Background(), "short")
	require.NoError(t, err)

	clock.Advance(11 * time.Second)

	token, completed, err := store.CompleteInvestment(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.True(t, completed)
	assert.Equal(t, int64(1), token)

	state, err := store.GetAccountState(context.Background())
	require.NoError(t, err)
	assert.True(t, state.Balance.Equal(decimal.NewFromInt(1010)), "余额应加上返还金额")
	assert.Empty(t, state.ActiveInvestments)
	require.Len(t, state.InvestmentHistory, 1)

	item := state.InvestmentHistory[0]
	assert.Equal(t, inv.ID, item.ID)
	assert.True(t, item.ReturnedAmount.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, inv.StartTimeUtc, item.StartTimeUtc)
	assert.Equal(t, inv.EndTimeUtc, item.EndTimeUtc)
	assert.Equal(t, clock.Now(), item.CompletedAtUtc)

	select {
	case ev := <-ch:
		assert.Equal(t, int64(1), ev.Token)
		assert.Equal(t, "Alice", ev.UserName)
		assert.Equal(t, inv.ID, ev.InvestmentID)
		assert.True(t, ev.BalanceAfter.Equal(decimal.NewFromInt(1010)))
	case <-time.After(2 * time.Second):
		t.Fatal("未收到完成事件")
	}

	select {
	case ev := <-ch:
		t.Fatalf("收到多余事件: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCompleteInvestmentBeforeMaturity(t *testing.T) {
	store, _, clock, _ := newTestStore(t)
	store.Login("Alice")

	inv, err := store.TryStartInvestment(context.Background(), "short")
	require.NoError(t, err)

	// 提前触发：到期时间才是权威
	clock.Advance(5 * time.Second)

	_, completed, err := store.CompleteInvestment(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.False(t, completed)

	state, err := store.GetAccountState(context.Background())
	require.NoError(t, err)
	assert.Len(t, state.ActiveInvestments, 1)
	assert.Empty(t, state.InvestmentHistory)
}

func TestCompleteInvestmentIdempotent(t *testing.T) {
	store, _, clock, _ := newTestStore(t)
	store.Login("Alice")

	inv, err := store.TryStartInvestment(context.Background(), "short")
	require.NoError(t, err)

	clock.Advance(11 * time.Second)

	_, completed, err := store.CompleteInvestment(context.Background(), inv.ID)
	require.NoError(t, err)
	require.True(t, completed)

	// 重复结算是无操作
	_, completed, err = store.CompleteInvestment(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.False(t, completed)

	state, err := store.GetAccountState(context.Background())
	require.NoError(t, err)
	assert.True(t, state.Balance.Equal(decimal.NewFromInt(1010)), "余额只能入账一次")
	assert.Len(t, state.InvestmentHistory, 1)
}

func TestCompleteUnknownInvestment(t *testing.T) {
	store, _, _, _ := newTestStore(t)

	_, completed, err := store.CompleteInvestment(context.Background(), "no-such-id")
	require.NoError(t, err)
	assert.False(t, completed)
}

func TestCaseInsensitiveUserNames(t *testing.T) {
	store, _, _, _ := newTestStore(t)

	store.Login("Alice")
	_, err := store.TryStartInvestment(context.Background(), "short")
	require.NoError(t, err)

	store.Login("ALICE")
	state, err := store.GetAccountState(context.Background())
	require.NoError(t, err)

	assert.True(t, state.Balance.Equal(decimal.NewFromInt(990)), "大小写不同应命中同一账户")
	assert.Len(t, state.ActiveInvestments, 1)
}

func TestHistoryOrder(t *testing.T) {
	store, _, clock, _ := newTestStore(t)
	store.Login("Alice")

	first, err := store.TryStartInvestment(context.Background(), "short")
	require.NoError(t, err)
	clock.Advance(11 * time.Second)
	_, completed, err := store.CompleteInvestment(context.Background(), first.ID)
	require.NoError(t, err)
	require.True(t, completed)

	second, err := store.TryStartInvestment(context.Background(), "short")
	require.NoError(t, err)
	clock.Advance(11 * time.Second)
	_, completed, err = store.CompleteInvestment(context.Background(), second.ID)
	require.NoError(t, err)
	require.True(t, completed)

	history, err := store.GetHistory(context.Background())
	require.NoError(t, err)
	require.Len(t, history, 2)

	// 最近完成的排在最前
	assert.Equal(t, second.ID, history[0].ID)
	assert.Equal(t, first.ID, history[1].ID)
}

func TestRoundTrip(t *testing.T) {
	store, hub, clock, path := newTestStore(t)
	store.Login("Alice")

	inv, err := store.TryStartInvestment(context.Background(), "medium")
	require.NoError(t, err)

	// 用同一文件重建存储，相当于进程重启
	reopened := NewJSONFileStore(path, hub, logger.NewNop(), clock.Now)
	reopened.Login("alice")

	state, err := reopened.GetAccountState(context.Background())
	require.NoError(t, err)
	assert.True(t, state.Balance.Equal(decimal.NewFromInt(900)))
	require.Len(t, state.ActiveInvestments, 1)

	got := state.ActiveInvestments[0]
	assert.Equal(t, inv.ID, got.ID)
	assert.True(t, got.InvestedAmount.Equal(inv.InvestedAmount))
	assert.True(t, got.ExpectedReturn.Equal(inv.ExpectedReturn))
	assert.True(t, got.StartTimeUtc.Equal(inv.StartTimeUtc))
	assert.True(t, got.EndTimeUtc.Equal(inv.EndTimeUtc))

	active, err := reopened.GetAllActiveInvestments(context.Background())
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestGetAllActiveInvestmentsAcrossUsers(t *testing.T) {
	store, _, _, _ := newTestStore(t)

	store.Login("Alice")
	_, err := store.TryStartInvestment(context.Background(), "short")
	require.NoError(t, err)

	store.Login("Bob")
	_, err = store.TryStartInvestment(context.Background(), "medium")
	require.NoError(t, err)

	active, err := store.GetAllActiveInvestments(context.Background())
	require.NoError(t, err)
	assert.Len(t, active, 2)
}
