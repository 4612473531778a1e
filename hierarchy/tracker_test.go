package hierarchy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExecutionTracker_Teams(t *testing.T) {
	tracker := NewExecutionTracker()

	assert.False(t, tracker.IsTeamExecuted("alpha"))
	_, ok := tracker.TeamResult("alpha")
	assert.False(t, ok)

	tracker.MarkTeamExecuted("alpha", "alpha result")
	assert.True(t, tracker.IsTeamExecuted("alpha"))
	result, ok := tracker.TeamResult("alpha")
	assert.True(t, ok)
	assert.Equal(t, "alpha result", result)
}

func TestExecutionTracker_Workers(t *testing.T) {
	tracker := NewExecutionTracker()

	tracker.MarkWorkerExecuted("w1", "done")
	assert.True(t, tracker.IsWorkerExecuted("w1"))
	assert.False(t, tracker.IsWorkerExecuted("w2"))

	result, ok := tracker.WorkerResult("w1")
	assert.True(t, ok)
	assert.Equal(t, "done", result)
}

func TestExecutionTracker_CompletionOrder(t *testing.T) {
	tracker := NewExecutionTracker()

	tracker.MarkTeamExecuted("gamma", "third team first")
	tracker.MarkTeamExecuted("alpha", "second")
	tracker.MarkTeamExecuted("beta", "last")
	assert.Equal(t, []string{"gamma", "alpha", "beta"}, tracker.ExecutedTeams())

	// 重复标记不改变顺序
	tracker.MarkTeamExecuted("gamma", "updated")
	assert.Equal(t, []string{"gamma", "alpha", "beta"}, tracker.ExecutedTeams())
	result, _ := tracker.TeamResult("gamma")
	assert.Equal(t, "updated", result)
}

func TestExecutionTracker_StatusDigest(t *testing.T) {
	tracker := NewExecutionTracker()
	tracker.MarkTeamExecuted("alpha", "r1")
	tracker.MarkWorkerExecuted("w1", "r2")

	digest := tracker.StatusDigest([]string{"alpha", "beta"}, []string{"w1", "w2"})

	assert.Contains(t, digest, "[Team execution status]")
	assert.Contains(t, digest, "✅ alpha - executed")
	assert.Contains(t, digest, "⭕ beta - not executed")
	assert.Contains(t, digest, "[Member execution status]")
	assert.Contains(t, digest, "✅ w1 - executed")
	assert.Contains(t, digest, "⭕ w2 - not executed")

	// 小节顺序：团队在前
	assert.Less(t,
		strings.Index(digest, "[Team execution status]"),
		strings.Index(digest, "[Member execution status]"))
}

func TestExecutionTracker_StatusDigestOmitsEmptySections(t *testing.T) {
	tracker := NewExecutionTracker()

	teamsOnly := tracker.StatusDigest([]string{"alpha"}, nil)
	assert.Contains(t, teamsOnly, "[Team execution status]")
	assert.NotContains(t, teamsOnly, "[Member execution status]")

	workersOnly := tracker.StatusDigest(nil, []string{"w1"})
	assert.NotContains(t, workersOnly, "[Team execution status]")
	assert.Contains(t, workersOnly, "[Member execution status]")

	assert.Empty(t, tracker.StatusDigest(nil, nil))
}

func TestExecutionTracker_Reset(t *testing.T) {
	tracker := NewExecutionTracker()
	tracker.MarkTeamExecuted("alpha", "r")
	tracker.MarkWorkerExecuted("w1", "r")

	tracker.Reset()

	assert.False(t, tracker.IsTeamExecuted("alpha"))
	assert.False(t, tracker.IsWorkerExecuted("w1"))
	assert.Empty(t, tracker.ExecutedTeams())
}
