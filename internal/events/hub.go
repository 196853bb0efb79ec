// Package events 提供投资完成事件的发布/订阅中心
package events

import (
	"sync"
	"sync/atomic"

	"investsim-backend/internal/models"
	"investsim-backend/internal/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Hub 投资完成事件中心
// 纯内存广播，不持久化；Token 在进程生命周期内严格递增且不复用
type Hub struct {
	logger *logger.Logger

	token atomic.Int64

	mu   sync.RWMutex
	subs map[uuid.UUID]*subscriber
}

// NewHub 创建事件中心
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		logger: log,
		subs:   make(map[uuid.UUID]*subscriber),
	}
}

// Subscribe 注册一个独立的订阅者
// 返回事件接收通道和取消订阅函数；订阅者只会收到订阅之后发布的事件
func (h *Hub) Subscribe() (<-chan models.InvestmentCompletedEvent, func()) {
	id := uuid.New()
	sub := newSubscriber()

	h.mu.Lock()
	h.subs[id] = sub
	h.mu.Unlock()

	h.logger.Debug("订阅者已注册", zap.String("subscriber_id", id.String()))

	unsubscribe := func() {
		h.mu.Lock()
		s, ok := h.subs[id]
		if ok {
			delete(h.subs, id)
		}
		h.mu.Unlock()

		if ok {
			s.close()
			h.logger.Debug("订阅者已注销", zap.String("subscriber_id", id.String()))
		}
	}

	return sub.out, unsubscribe
}

// Publish 分配下一个 Token 并把事件广播给当前所有订阅者
// 对发布方永不阻塞：慢订阅者只影响自身队列，不影响发布
func (h *Hub) Publish(ev models.InvestmentCompletedEvent) models.InvestmentCompletedEvent {
	ev.Token = h.token.Add(1)

	h.mu.RLock()
	for _, sub := range h.subs {
		sub.enqueue(ev)
	}
	h.mu.RUnlock()

	return ev
}

// subscriber 单个订阅者的无界投递队列
// 写端只追加切片缓冲，由独立的 pump 协程向 out 通道搬运
type subscriber struct {
	mu     sync.Mutex
	buf    []models.InvestmentCompletedEvent
	closed bool

	wake chan struct{}
	done chan struct{}
	out  chan models.InvestmentCompletedEvent
}

func newSubscriber() *subscriber {
	s := &subscriber{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
		out:  make(chan models.InvestmentCompletedEvent),
	}
	go s.pump()
	return s
}

func (s *subscriber) enqueue(ev models.InvestmentCompletedEvent) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.buf = append(s.buf, ev)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) pump() {
	defer close(s.out)

	for {
		s.mu.Lock()
		if len(s.buf) == 0 {
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return
			}
			select {
			case <-s.wake:
			case <-s.done:
				return
			}
			continue
		}
		ev := s.buf[0]
		s.buf = s.buf[1:]
		s.mu.Unlock()

		select {
		case s.out <- ev:
		case <-s.done:
			return
		}
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	close(s.done)
}
