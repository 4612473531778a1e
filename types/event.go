package types

import "time"

// EventType 事件类型
type EventType string

const (
	EventStart     EventType = "start"
	EventThinking  EventType = "thinking"
	EventComplete  EventType = "complete"
	EventWarning   EventType = "warning"
	EventError     EventType = "error"
	EventDuplicate EventType = "duplicate"
	EventClose     EventType = "close"
	EventHeartbeat EventType = "heartbeat"
)

// Event 是一次运行过程中发布的进度事件。
// Payload 为自由结构数据；Timestamp 与 RunID 由事件总线统一打戳。
type Event struct {
	Type      EventType      `json:"event"`
	RunID     string         `json:"run_id"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"data,omitempty"`
}

// NewEvent 创建一个打好时间戳的事件。
func NewEvent(eventType EventType, runID string, payload map[string]any) Event {
	return Event{
		Type:      eventType,
		RunID:     runID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}
