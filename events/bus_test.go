package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/teamflow/types"
)

func collectFrames(t *testing.T, frames <-chan Frame, timeout time.Duration) []Frame {
	t.Helper()
	var out []Frame
	deadline := time.After(timeout)
	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				return out
			}
			out = append(out, frame)
		case <-deadline:
			t.Fatalf("timed out waiting for frames, got %d so far", len(out))
		}
	}
}

func TestBus_EmitConsumeOrder(t *testing.T) {
	bus := NewBus("run-1", 16, zap.NewNop())

	bus.Emit(types.EventStart, map[string]any{"task": "t"})
	bus.Emit(types.EventThinking, nil)
	bus.Emit(types.EventComplete, nil)
	bus.Close()

	frames := collectFrames(t, bus.Consume(context.Background(), time.Minute), 5*time.Second)

	require.Len(t, frames, 4)
	assert.Equal(t, FrameEvent, frames[0].Kind)
	assert.Equal(t, types.EventStart, frames[0].Event.Type)
	assert.Equal(t, "run-1", frames[0].Event.RunID)
	assert.Equal(t, types.EventThinking, frames[1].Event.Type)
	assert.Equal(t, types.EventComplete, frames[2].Event.Type)
	assert.Equal(t, FrameClose, frames[3].Kind)
}

func TestBus_EmitAfterCloseIsNoop(t *testing.T) {
	bus := NewBus("run-1", 16, zap.NewNop())
	bus.Close()
	assert.False(t, bus.IsActive())

	bus.Emit(types.EventStart, nil)

	frames := collectFrames(t, bus.Consume(context.Background(), time.Minute), 5*time.Second)
	require.Len(t, frames, 1)
	assert.Equal(t, FrameClose, frames[0].Kind)
}

func TestBus_CloseIsIdempotent(t *testing.T) {
	bus := NewBus("run-1", 16, zap.NewNop())
	bus.Close()
	bus.Close()

	frames := collectFrames(t, bus.Consume(context.Background(), time.Minute), 5*time.Second)
	require.Len(t, frames, 1)
	assert.Equal(t, FrameClose, frames[0].Kind)
}

func TestBus_DropsWhenQueueFull(t *testing.T) {
	bus := NewBus("run-1", 2, zap.NewNop())

	bus.Emit(types.EventStart, nil)
	bus.Emit(types.EventThinking, nil)
	bus.Emit(types.EventComplete, nil) // 队列容量 2，这条被丢弃
	bus.Emit(types.EventWarning, nil)

	assert.Equal(t, uint64(2), bus.Dropped())
	bus.Close()

	frames := collectFrames(t, bus.Consume(context.Background(), time.Minute), 5*time.Second)
	// 队列满时 close 事件也进不去，由 done 通道兜底补关闭帧
	require.Len(t, frames, 3)
	assert.Equal(t, types.EventStart, frames[0].Event.Type)
	assert.Equal(t, types.EventThinking, frames[1].Event.Type)
	assert.Equal(t, FrameClose, frames[2].Kind)
}

func TestBus_ConsumerCancellation(t *testing.T) {
	bus := NewBus("run-1", 16, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	frames := bus.Consume(ctx, time.Minute)
	cancel()

	select {
	case _, ok := <-frames:
		assert.False(t, ok, "channel should be closed after context cancellation")
	case <-time.After(5 * time.Second):
		t.Fatal("frame channel not closed after cancellation")
	}
}

func TestBus_HeartbeatWhenIdle(t *testing.T) {
	bus := NewBus("run-1", 16, zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 心跳间隔小于轮询节拍：第一个节拍就应产出保活帧
	frames := bus.Consume(ctx, time.Millisecond)

	select {
	case frame := <-frames:
		assert.Equal(t, FrameHeartbeat, frame.Kind)
		assert.False(t, frame.At.IsZero())
	case <-time.After(5 * time.Second):
		t.Fatal("no heartbeat frame while idle")
	}
	bus.Close()
}

func TestBus_DefaultBufferSize(t *testing.T) {
	bus := NewBus("run-1", 0, nil)
	assert.True(t, bus.IsActive())
	assert.Equal(t, "run-1", bus.RunID())

	for i := 0; i < DefaultBufferSize; i++ {
		bus.Emit(types.EventThinking, nil)
	}
	assert.Equal(t, uint64(0), bus.Dropped())
}
