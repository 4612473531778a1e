package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validHierarchy() HierarchySpec {
	return HierarchySpec{
		ID:         "h1",
		Name:       "Pipeline",
		RootPrompt: "coordinate",
		Teams: []TeamSpec{{
			ID:               "t1",
			Name:             "Research",
			SupervisorPrompt: "supervise",
			Workers: []WorkerSpec{
				{ID: "w1", Name: "Scholar", Role: "researcher", SystemPrompt: "p"},
			},
		}},
	}
}

func TestHierarchySpec_Validate(t *testing.T) {
	spec := validHierarchy()
	require.NoError(t, spec.Validate())
}

func TestHierarchySpec_ValidateFailures(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*HierarchySpec)
		message string
	}{
		{"missing root prompt", func(s *HierarchySpec) { s.RootPrompt = "" }, "root prompt"},
		{"no teams", func(s *HierarchySpec) { s.Teams = nil }, "at least one team"},
		{"team without name", func(s *HierarchySpec) { s.Teams[0].Name = "" }, "team name"},
		{"team without supervisor prompt", func(s *HierarchySpec) { s.Teams[0].SupervisorPrompt = "" }, "supervisor prompt"},
		{"team without workers", func(s *HierarchySpec) { s.Teams[0].Workers = nil }, "at least one worker"},
		{"worker without name", func(s *HierarchySpec) { s.Teams[0].Workers[0].Name = "" }, "worker name"},
		{"worker without system prompt", func(s *HierarchySpec) { s.Teams[0].Workers[0].SystemPrompt = "" }, "system prompt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validHierarchy()
			tt.mutate(&spec)

			err := spec.Validate()
			require.Error(t, err)
			assert.Equal(t, ErrAssembly, GetErrorCode(err))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestNewEvent(t *testing.T) {
	event := NewEvent(EventStart, "run-1", map[string]any{"task": "t"})

	assert.Equal(t, EventStart, event.Type)
	assert.Equal(t, "run-1", event.RunID)
	assert.False(t, event.Timestamp.IsZero())
	assert.Equal(t, "t", event.Payload["task"])
}
