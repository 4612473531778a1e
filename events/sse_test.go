package events

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/teamflow/types"
)

func TestEncodeSSE_EventFrame(t *testing.T) {
	event := types.NewEvent(types.EventStart, "run-1", map[string]any{"task": "analyze"})
	wire := string(EventFrame(event).EncodeSSE())

	require.True(t, strings.HasPrefix(wire, "event: start\ndata: "))
	require.True(t, strings.HasSuffix(wire, "\n\n"))

	dataLine := strings.TrimSuffix(strings.TrimPrefix(wire, "event: start\ndata: "), "\n\n")
	var data map[string]any
	require.NoError(t, json.Unmarshal([]byte(dataLine), &data))
	assert.Equal(t, "analyze", data["task"])
	assert.Equal(t, "run-1", data["run_id"])
	assert.NotEmpty(t, data["timestamp"])
}

func TestEncodeSSE_HeartbeatIsCommentOnly(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	wire := string(HeartbeatFrame(at).EncodeSSE())

	assert.Equal(t, ": heartbeat 2026-03-14T09:30:00Z\n\n", wire)
	assert.NotContains(t, wire, "event:")
}

func TestEncodeSSE_CloseFrame(t *testing.T) {
	wire := string(CloseFrame().EncodeSSE())
	assert.Equal(t, "event: close\ndata: {\"message\":\"stream closed\"}\n\n", wire)
}

func TestEncodeSSE_UnserializablePayloadDegrades(t *testing.T) {
	event := types.NewEvent(types.EventStart, "run-1", map[string]any{"bad": make(chan int)})
	wire := string(EventFrame(event).EncodeSSE())

	assert.Contains(t, wire, "event: start\n")
	assert.Contains(t, wire, "encode_error")
	assert.Contains(t, wire, `"run_id":"run-1"`)
}

func TestEncodeJSON_EventFrame(t *testing.T) {
	event := types.NewEvent(types.EventComplete, "run-1", map[string]any{"team": "Research"})
	raw, err := EventFrame(event).EncodeJSON()
	require.NoError(t, err)

	var msg map[string]any
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, "event", msg["kind"])
	assert.Equal(t, "complete", msg["event"])

	data, ok := msg["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Research", data["team"])
	assert.Equal(t, "run-1", data["run_id"])
}

func TestEncodeJSON_HeartbeatAndClose(t *testing.T) {
	raw, err := HeartbeatFrame(time.Now()).EncodeJSON()
	require.NoError(t, err)
	var heartbeat map[string]any
	require.NoError(t, json.Unmarshal(raw, &heartbeat))
	assert.Equal(t, "heartbeat", heartbeat["kind"])
	assert.NotEmpty(t, heartbeat["at"])

	raw, err = CloseFrame().EncodeJSON()
	require.NoError(t, err)
	var closeMsg map[string]any
	require.NoError(t, json.Unmarshal(raw, &closeMsg))
	assert.Equal(t, "close", closeMsg["kind"])
	assert.Equal(t, "stream closed", closeMsg["message"])
}
