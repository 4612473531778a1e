package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/BaSui01/teamflow/types"
)

// FrameKind 帧类型
type FrameKind string

const (
	FrameEvent     FrameKind = "event"
	FrameHeartbeat FrameKind = "heartbeat"
	FrameClose     FrameKind = "close"
)

// Frame 一条线缆就绪的事件帧。Event 仅在 Kind==FrameEvent 时有值；
// 心跳帧在 SSE 编码下是仅注释行，WebSocket 编码下是独立消息。
type Frame struct {
	Kind  FrameKind    `json:"kind"`
	Event *types.Event `json:"event,omitempty"`
	At    time.Time    `json:"at"`
}

// EventFrame 将事件包装为帧。
func EventFrame(event types.Event) Frame {
	return Frame{Kind: FrameEvent, Event: &event, At: event.Timestamp}
}

// HeartbeatFrame 创建保活帧。
func HeartbeatFrame(at time.Time) Frame {
	return Frame{Kind: FrameHeartbeat, At: at.UTC()}
}

// CloseFrame 创建终止帧。
func CloseFrame() Frame {
	return Frame{Kind: FrameClose, At: time.Now().UTC()}
}

// ssePayload 是事件帧 data 字段的结构：载荷字段平铺，外加时间戳和运行 ID。
func ssePayload(event *types.Event) map[string]any {
	data := make(map[string]any, len(event.Payload)+2)
	for k, v := range event.Payload {
		data[k] = v
	}
	data["timestamp"] = event.Timestamp.UTC().Format(time.RFC3339Nano)
	data["run_id"] = event.RunID
	return data
}

// EncodeSSE 将帧编码为 Server-Sent Events 线缆格式。
//   - 事件帧: "event: <type>\ndata: <json>\n\n"
//   - 心跳帧: ": heartbeat <rfc3339>\n\n"（仅注释，不携带事件类型）
//   - 关闭帧: "event: close\ndata: {...}\n\n"
func (f Frame) EncodeSSE() []byte {
	switch f.Kind {
	case FrameHeartbeat:
		return []byte(fmt.Sprintf(": heartbeat %s\n\n", f.At.Format(time.RFC3339)))
	case FrameClose:
		return []byte("event: close\ndata: {\"message\":\"stream closed\"}\n\n")
	default:
		data, err := json.Marshal(ssePayload(f.Event))
		if err != nil {
			// 载荷里有不可序列化的值；降级为只含元数据的事件
			data = []byte(fmt.Sprintf(`{"run_id":%q,"encode_error":%q}`, f.Event.RunID, err.Error()))
		}
		return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", f.Event.Type, data))
	}
}

// EncodeJSON 将帧编码为 WebSocket 传输用的 JSON 消息。
func (f Frame) EncodeJSON() ([]byte, error) {
	switch f.Kind {
	case FrameHeartbeat:
		return json.Marshal(map[string]any{
			"kind": FrameHeartbeat,
			"at":   f.At.Format(time.RFC3339),
		})
	case FrameClose:
		return json.Marshal(map[string]any{
			"kind":    FrameClose,
			"message": "stream closed",
		})
	default:
		return json.Marshal(map[string]any{
			"kind":  FrameEvent,
			"event": f.Event.Type,
			"data":  ssePayload(f.Event),
		})
	}
}
