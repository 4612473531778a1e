package events

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BaSui01/teamflow/types"
	"go.uber.org/zap"
)

const (
	// DefaultBufferSize 事件队列默认容量
	DefaultBufferSize = 256
	// DefaultHeartbeatInterval 空闲心跳默认间隔
	DefaultHeartbeatInterval = 15 * time.Second

	// 消费循环的轮询节拍：队列空时每个节拍检查一次心跳是否到期
	pollTick = 1 * time.Second
)

// Bus 一次运行的进度事件总线。
// 生产者（驱动运行的 goroutine）Emit，消费者（SSE/WebSocket 端点）
// Consume，两者并发安全。队列有界：满时丢弃事件并计数，close 事件
// 除外（终止信号通过 done 通道兜底，消费者不会因此挂死）。
type Bus struct {
	runID string

	mu     sync.Mutex
	active bool

	queue     chan types.Event
	done      chan struct{}
	closeOnce sync.Once
	dropped   atomic.Uint64

	logger *zap.Logger
}

// NewBus 创建指定运行的事件总线。bufferSize<=0 时使用默认容量。
func NewBus(runID string, bufferSize int, logger *zap.Logger) *Bus {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		runID:  runID,
		active: true,
		queue:  make(chan types.Event, bufferSize),
		done:   make(chan struct{}),
		logger: logger.With(zap.String("component", "event_bus"), zap.String("run_id", runID)),
	}
}

// RunID 返回总线绑定的运行 ID。
func (b *Bus) RunID() string { return b.runID }

// IsActive 返回总线是否仍接受事件。
func (b *Bus) IsActive() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

// Dropped 返回因队列满而丢弃的事件数。
func (b *Bus) Dropped() uint64 { return b.dropped.Load() }

// Emit 发布一个打好时间戳、带运行 ID 的事件。
// 总线关闭后为无操作；队列满时丢弃并计数。
func (b *Bus) Emit(eventType types.EventType, payload map[string]any) {
	b.mu.Lock()
	if !b.active {
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()

	event := types.NewEvent(eventType, b.runID, payload)
	select {
	case b.queue <- event:
	default:
		count := b.dropped.Add(1)
		if count%10 == 1 { // 限制丢弃日志频率
			b.logger.Warn("event queue full, dropping event",
				zap.String("event", string(eventType)),
				zap.Uint64("total_dropped", count))
		}
	}
}

// Close 关闭总线：入队终止事件并翻转为不活跃，之后的 Emit 都是无操作。
// 幂等；即使队列已满，done 通道也会让等待中的消费者立刻收到关闭帧。
func (b *Bus) Close() {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.active = false
		b.mu.Unlock()

		select {
		case b.queue <- types.NewEvent(types.EventClose, b.runID, nil):
		default:
		}
		close(b.done)
	})
}

// Consume 返回线缆就绪的事件帧序列：按发射顺序翻译队列中的事件；
// 一个轮询节拍内没有事件且心跳间隔已过时产出仅注释的保活帧。
// 关闭帧送达后（或总线不活跃且队列已空时）序列终止并关闭返回的通道。
func (b *Bus) Consume(ctx context.Context, heartbeatInterval time.Duration) <-chan Frame {
	if heartbeatInterval <= 0 {
		heartbeatInterval = DefaultHeartbeatInterval
	}

	frames := make(chan Frame)
	go func() {
		defer close(frames)

		lastHeartbeat := time.Now()
		ticker := time.NewTicker(pollTick)
		defer ticker.Stop()

		deliver := func(f Frame) bool {
			select {
			case frames <- f:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for {
			select {
			case event := <-b.queue:
				if event.Type == types.EventClose {
					deliver(CloseFrame())
					return
				}
				if !deliver(EventFrame(event)) {
					return
				}

			case <-b.done:
				// 总线已关闭：先清空残余事件，再补上关闭帧
				for {
					select {
					case event := <-b.queue:
						if event.Type == types.EventClose {
							deliver(CloseFrame())
							return
						}
						if !deliver(EventFrame(event)) {
							return
						}
					default:
						deliver(CloseFrame())
						return
					}
				}

			case <-ticker.C:
				if time.Since(lastHeartbeat) >= heartbeatInterval {
					if !deliver(HeartbeatFrame(time.Now())) {
						return
					}
					lastHeartbeat = time.Now()
				}

			case <-ctx.Done():
				return
			}
		}
	}()
	return frames
}
