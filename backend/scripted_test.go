package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/teamflow/hierarchy"
)

func TestScripted_WorkerResponse(t *testing.T) {
	s := NewScripted(zap.NewNop())

	result, err := s.Invoke(context.Background(), hierarchy.InvokeRequest{
		Task: "analyze the dataset",
	})
	require.NoError(t, err)
	assert.Equal(t, `completed "analyze the dataset"`, result)
}

func TestScripted_WorkerUsesFirstLineOnly(t *testing.T) {
	s := NewScripted(nil)

	result, err := s.Invoke(context.Background(), hierarchy.InvokeRequest{
		Task: "analyze the dataset\n\n[Team execution status]\n...",
	})
	require.NoError(t, err)
	assert.Equal(t, `completed "analyze the dataset"`, result)
}

func TestScripted_WorkerMentionsToolRefs(t *testing.T) {
	s := NewScripted(zap.NewNop())

	result, err := s.Invoke(context.Background(), hierarchy.InvokeRequest{
		Task:     "fetch papers",
		ToolRefs: []string{"search", "download"},
	})
	require.NoError(t, err)
	assert.Equal(t, `completed "fetch papers" using tools: search, download`, result)
}

func TestScripted_SupervisorDelegatesInOrder(t *testing.T) {
	s := NewScripted(zap.NewNop())

	var order []string
	tool := func(name string) hierarchy.Tool {
		return hierarchy.Tool{
			Name: name,
			Call: func(ctx context.Context, task string) (string, error) {
				order = append(order, name)
				return name + " done", nil
			},
		}
	}

	result, err := s.Invoke(context.Background(), hierarchy.InvokeRequest{
		Task:  "coordinate\nextra context",
		Tools: []hierarchy.Tool{tool("alpha"), tool("beta")},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, order)
	assert.Contains(t, result, "alpha done")
	assert.Contains(t, result, "beta done")
	assert.Contains(t, result, `summary: 2 delegations for "coordinate"`)
}

func TestScripted_SupervisorPropagatesToolError(t *testing.T) {
	s := NewScripted(zap.NewNop())

	boom := hierarchy.Tool{
		Name: "broken",
		Call: func(ctx context.Context, task string) (string, error) {
			return "", assert.AnError
		},
	}

	_, err := s.Invoke(context.Background(), hierarchy.InvokeRequest{
		Task:  "coordinate",
		Tools: []hierarchy.Tool{boom},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delegate to broken")
	assert.ErrorIs(t, err, assert.AnError)
}

func TestScripted_HonorsContextCancellation(t *testing.T) {
	s := NewScripted(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Invoke(ctx, hierarchy.InvokeRequest{Task: "task"})
	assert.ErrorIs(t, err, context.Canceled)
}
