package runs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/teamflow/events"
	"github.com/BaSui01/teamflow/hierarchy"
	"github.com/BaSui01/teamflow/store"
	"github.com/BaSui01/teamflow/types"
)

func newTestManager(t *testing.T, cfg Config, backend hierarchy.Invoker) (*Manager, *events.Registry) {
	t.Helper()
	st, err := store.Open(":memory:", zap.NewNop())
	require.NoError(t, err)
	registry := events.NewRegistry(zap.NewNop())
	return NewManager(cfg, st, registry, backend, nil, zap.NewNop()), registry
}

func validSpec() types.HierarchySpec {
	return types.HierarchySpec{
		ID:         "h1",
		Name:       "Pipeline",
		RootPrompt: "coordinate",
		Teams: []types.TeamSpec{{
			ID:               "t1",
			Name:             "Research",
			SupervisorPrompt: "supervise",
			PreventDuplicate: true,
			Workers: []types.WorkerSpec{
				{ID: "w1", Name: "Scholar", Role: "researcher", SystemPrompt: "p"},
			},
		}},
	}
}

func waitForStatus(t *testing.T, m *Manager, runID string, want Status) *Run {
	t.Helper()
	var got *Run
	require.Eventually(t, func() bool {
		run, err := m.Get(context.Background(), runID)
		if err != nil {
			return false
		}
		got = run
		return run.Status == want
	}, 10*time.Second, 20*time.Millisecond, "run never reached status %s", want)
	return got
}

func TestManager_RunCompletes(t *testing.T) {
	backend := hierarchy.InvokerFunc(func(ctx context.Context, req hierarchy.InvokeRequest) (string, error) {
		return "answer", nil
	})
	m, _ := newTestManager(t, DefaultConfig(), backend)

	run, err := m.Start(context.Background(), validSpec(), "solve")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, run.Status)
	assert.Equal(t, "h1", run.HierarchyID)

	final := waitForStatus(t, m, run.ID, StatusCompleted)
	assert.Equal(t, "answer", final.Result)
	assert.Empty(t, final.Error)
	require.NotNil(t, final.StartedAt)
	require.NotNil(t, final.FinishedAt)

	require.NoError(t, m.Shutdown(context.Background()))
}

func TestManager_EmptyTaskRejected(t *testing.T) {
	backend := hierarchy.InvokerFunc(func(ctx context.Context, req hierarchy.InvokeRequest) (string, error) {
		return "", nil
	})
	m, _ := newTestManager(t, DefaultConfig(), backend)

	_, err := m.Start(context.Background(), validSpec(), "")
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidRequest, types.GetErrorCode(err))
}

func TestManager_ConcurrencyLimit(t *testing.T) {
	release := make(chan struct{})
	backend := hierarchy.InvokerFunc(func(ctx context.Context, req hierarchy.InvokeRequest) (string, error) {
		select {
		case <-release:
			return "done", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})
	m, _ := newTestManager(t, Config{MaxConcurrent: 1}, backend)

	first, err := m.Start(context.Background(), validSpec(), "task one")
	require.NoError(t, err)

	_, err = m.Start(context.Background(), validSpec(), "task two")
	require.Error(t, err)
	assert.Equal(t, types.ErrRunLimitExceeded, types.GetErrorCode(err))
	assert.True(t, types.IsRetryable(err))

	close(release)
	waitForStatus(t, m, first.ID, StatusCompleted)

	// 名额释放后可以再次接纳
	second, err := m.Start(context.Background(), validSpec(), "task three")
	require.NoError(t, err)
	waitForStatus(t, m, second.ID, StatusCompleted)
}

func TestManager_Cancel(t *testing.T) {
	backend := hierarchy.InvokerFunc(func(ctx context.Context, req hierarchy.InvokeRequest) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	m, _ := newTestManager(t, DefaultConfig(), backend)

	run, err := m.Start(context.Background(), validSpec(), "task")
	require.NoError(t, err)
	waitForStatus(t, m, run.ID, StatusRunning)

	require.NoError(t, m.Cancel(context.Background(), run.ID))
	waitForStatus(t, m, run.ID, StatusCancelled)
	require.NoError(t, m.Shutdown(context.Background()))

	// 已终结的运行再取消报冲突
	err = m.Cancel(context.Background(), run.ID)
	require.Error(t, err)
	assert.Equal(t, types.ErrConflict, types.GetErrorCode(err))
}

func TestManager_CancelUnknownRun(t *testing.T) {
	backend := hierarchy.InvokerFunc(func(ctx context.Context, req hierarchy.InvokeRequest) (string, error) {
		return "", nil
	})
	m, _ := newTestManager(t, DefaultConfig(), backend)

	err := m.Cancel(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, types.ErrRunNotFound, types.GetErrorCode(err))
}

func TestManager_AssemblyFailureFailsRun(t *testing.T) {
	backend := hierarchy.InvokerFunc(func(ctx context.Context, req hierarchy.InvokeRequest) (string, error) {
		return "", nil
	})
	m, _ := newTestManager(t, DefaultConfig(), backend)

	broken := validSpec()
	broken.RootPrompt = ""

	run, err := m.Start(context.Background(), broken, "task")
	require.NoError(t, err)

	final := waitForStatus(t, m, run.ID, StatusFailed)
	assert.Contains(t, final.Error, "root prompt")
}

func TestManager_StatisticsAndCallLog(t *testing.T) {
	backend := hierarchy.InvokerFunc(func(ctx context.Context, req hierarchy.InvokeRequest) (string, error) {
		for _, tool := range req.Tools {
			if _, err := tool.Call(ctx, req.Task); err != nil {
				return "", err
			}
		}
		return "done", nil
	})
	m, _ := newTestManager(t, DefaultConfig(), backend)

	run, err := m.Start(context.Background(), validSpec(), "task")
	require.NoError(t, err)
	waitForStatus(t, m, run.ID, StatusCompleted)

	// 终结后调用统计仍可查询
	stats, err := m.Statistics(run.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalCalls)
	assert.Equal(t, 1, stats.CompletedCalls)

	log, err := m.CallLog(run.ID)
	require.NoError(t, err)
	assert.Contains(t, log, "Call log:")
	assert.Contains(t, log, "Research")

	_, err = m.Statistics("missing")
	assert.Equal(t, types.ErrRunNotFound, types.GetErrorCode(err))
	_, err = m.CallLog("missing")
	assert.Equal(t, types.ErrRunNotFound, types.GetErrorCode(err))
}

func TestManager_Release(t *testing.T) {
	release := make(chan struct{})
	backend := hierarchy.InvokerFunc(func(ctx context.Context, req hierarchy.InvokeRequest) (string, error) {
		select {
		case <-release:
			return "done", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})
	m, registry := newTestManager(t, DefaultConfig(), backend)

	run, err := m.Start(context.Background(), validSpec(), "task")
	require.NoError(t, err)
	waitForStatus(t, m, run.ID, StatusRunning)

	// 进行中不可释放
	err = m.Release(run.ID)
	require.Error(t, err)
	assert.Equal(t, types.ErrConflict, types.GetErrorCode(err))

	close(release)
	waitForStatus(t, m, run.ID, StatusCompleted)
	require.NoError(t, m.Shutdown(context.Background()))

	require.NoError(t, m.Release(run.ID))
	_, ok := registry.Get(run.ID)
	assert.False(t, ok)
	_, err = m.Statistics(run.ID)
	assert.Equal(t, types.ErrRunNotFound, types.GetErrorCode(err))

	// 持久化记录不受影响
	got, err := m.Get(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
}

func TestManager_EventsReachBus(t *testing.T) {
	backend := hierarchy.InvokerFunc(func(ctx context.Context, req hierarchy.InvokeRequest) (string, error) {
		return "done", nil
	})
	m, registry := newTestManager(t, DefaultConfig(), backend)

	run, err := m.Start(context.Background(), validSpec(), "task")
	require.NoError(t, err)

	bus, ok := registry.Get(run.ID)
	require.True(t, ok)

	frames := bus.Consume(context.Background(), time.Minute)
	var sawStart, sawClose bool
	deadline := time.After(10 * time.Second)
	for !sawClose {
		select {
		case frame, chOpen := <-frames:
			if !chOpen {
				t.Fatal("frame channel closed before close frame")
			}
			if frame.Kind == events.FrameEvent && frame.Event.Type == types.EventStart {
				sawStart = true
			}
			if frame.Kind == events.FrameClose {
				sawClose = true
			}
		case <-deadline:
			t.Fatal("timed out waiting for close frame")
		}
	}
	assert.True(t, sawStart)
}

func TestStatus_Terminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusRunning.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.True(t, StatusCancelled.Terminal())
}
