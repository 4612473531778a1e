package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// WebSocketStreamer 把一条总线的事件帧推送到 WebSocket 连接。
// 写操作通过 mutex 保护，因为 WebSocket 不支持并发写。
type WebSocketStreamer struct {
	conn   *websocket.Conn
	logger *zap.Logger
	mu     sync.Mutex // 保护写操作
	closed bool
}

// NewWebSocketStreamer 从已建立的 WebSocket 连接创建推送器。
func NewWebSocketStreamer(conn *websocket.Conn, logger *zap.Logger) *WebSocketStreamer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSocketStreamer{
		conn:   conn,
		logger: logger.With(zap.String("component", "ws_streamer")),
	}
}

// WriteFrame 将帧序列化为 JSON 并通过 WebSocket 发送。
func (w *WebSocketStreamer) WriteFrame(ctx context.Context, frame Frame) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("connection closed")
	}

	data, err := frame.EncodeJSON()
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}

	if err := w.conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("websocket write: %w", err)
	}

	return nil
}

// Stream 消费总线并把每一帧写入连接，直到关闭帧送达、
// 上下文取消或写入失败。关闭帧写出后正常关闭连接。
func (w *WebSocketStreamer) Stream(ctx context.Context, bus *Bus, heartbeatInterval time.Duration) error {
	for frame := range bus.Consume(ctx, heartbeatInterval) {
		if err := w.WriteFrame(ctx, frame); err != nil {
			w.logger.Warn("frame write failed, dropping connection", zap.Error(err))
			return err
		}
		if frame.Kind == FrameClose {
			break
		}
	}
	return w.Close()
}

// Close 关闭 WebSocket 连接。幂等。
func (w *WebSocketStreamer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	return w.conn.Close(websocket.StatusNormalClosure, "stream complete")
}
