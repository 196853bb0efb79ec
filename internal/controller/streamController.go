package controller

import (
	"fmt"
	"strconv"
	"time"

	"investsim-backend/internal/events"
	"investsim-backend/internal/pkg/logger"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
)

// SSE 事件名，与客户端 EventSource 监听的名称一致
const completedEventName = "investmentCompleted"

// StreamController 投资完成事件的 SSE 推送
type StreamController struct {
	hub       *events.Hub
	heartbeat time.Duration
	logger    *logger.Logger
}

// NewStreamController 创建事件流控制器
func NewStreamController(hub *events.Hub, heartbeat time.Duration, log *logger.Logger) *StreamController {
	return &StreamController{
		hub:       hub,
		heartbeat: heartbeat,
		logger:    log,
	}
}

// Stream 处理 SSE 长连接
// 每个连接一个独立订阅；心跳为注释行，不消耗事件 Token
func (sc *StreamController) Stream(c *gin.Context) {
	ch, unsubscribe := sc.hub.Subscribe()
	defer unsubscribe()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Writer.Flush()

	ticker := time.NewTicker(sc.heartbeat)
	defer ticker.Stop()

	clientGone := c.Request.Context().Done()

	for {
		select {
		case <-clientGone:
			return

		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := sse.Encode(c.Writer, sse.Event{
				Id:    strconv.FormatInt(ev.Token, 10),
				Event: completedEventName,
				Data:  ev,
			}); err != nil {
				return
			}
			c.Writer.Flush()

		case <-ticker.C:
			if _, err := fmt.Fprint(c.Writer, ": heartbeat\n\n"); err != nil {
				return
			}
			c.Writer.Flush()
		}
	}
}
