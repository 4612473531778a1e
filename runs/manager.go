package runs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/BaSui01/teamflow/events"
	"github.com/BaSui01/teamflow/hierarchy"
	"github.com/BaSui01/teamflow/internal/metrics"
	"github.com/BaSui01/teamflow/store"
	"github.com/BaSui01/teamflow/types"
)

// Config 运行管理器配置
type Config struct {
	// MaxConcurrent 并发运行上限，超出的启动请求被拒绝
	MaxConcurrent int64
	// RunTimeout 单次运行的硬超时，0 表示不限
	RunTimeout time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		MaxConcurrent: 8,
		RunTimeout:    10 * time.Minute,
	}
}

// activeRun 进程内保留的每次运行状态。运行结束后 cancel 置空，
// tracker 保留以便查询调用日志与统计。
type activeRun struct {
	cancel  context.CancelFunc
	tracker *hierarchy.CallTracker
}

// Manager 运行管理器：装配层级、驱动执行、落库并广播进度事件。
type Manager struct {
	cfg       Config
	store     *store.Store
	registry  *events.Registry
	backend   hierarchy.Invoker
	collector *metrics.Collector
	logger    *zap.Logger

	sem *semaphore.Weighted

	mu     sync.RWMutex
	active map[string]*activeRun

	wg sync.WaitGroup
}

// NewManager 创建运行管理器。collector 可为 nil（不记指标）。
func NewManager(cfg Config, st *store.Store, registry *events.Registry, backend hierarchy.Invoker, collector *metrics.Collector, logger *zap.Logger) *Manager {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultConfig().MaxConcurrent
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		cfg:       cfg,
		store:     st,
		registry:  registry,
		backend:   backend,
		collector: collector,
		logger:    logger.With(zap.String("component", "run_manager")),
		sem:       semaphore.NewWeighted(cfg.MaxConcurrent),
		active:    make(map[string]*activeRun),
	}
}

// Start 启动一次层级运行。同步完成准入检查、落库与事件总线注册，
// 实际执行在后台 goroutine 中进行。超出并发上限立即拒绝。
func (m *Manager) Start(ctx context.Context, spec types.HierarchySpec, task string) (*Run, error) {
	if task == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "task must not be empty")
	}

	if !m.sem.TryAcquire(1) {
		if m.collector != nil {
			m.collector.RunRejected()
		}
		return nil, types.NewError(types.ErrRunLimitExceeded,
			fmt.Sprintf("concurrent run limit reached (%d)", m.cfg.MaxConcurrent)).
			WithHTTPStatus(429).
			WithRetryable(true)
	}

	runID := uuid.NewString()
	record := &store.RunRecord{
		ID:          runID,
		HierarchyID: spec.ID,
		Task:        task,
		Status:      string(StatusPending),
	}
	if err := m.store.CreateRun(ctx, record); err != nil {
		m.sem.Release(1)
		return nil, fmt.Errorf("persist run: %w", err)
	}

	bus := m.registry.Register(runID)

	var runCtx context.Context
	var cancel context.CancelFunc
	if m.cfg.RunTimeout > 0 {
		runCtx, cancel = context.WithTimeout(context.Background(), m.cfg.RunTimeout)
	} else {
		runCtx, cancel = context.WithCancel(context.Background())
	}

	m.mu.Lock()
	m.active[runID] = &activeRun{cancel: cancel}
	m.mu.Unlock()

	m.logger.Info("run accepted",
		zap.String("run_id", runID),
		zap.String("hierarchy_id", spec.ID),
		zap.Int("teams", len(spec.Teams)))

	m.wg.Add(1)
	go m.execute(runCtx, cancel, runID, spec, task, bus)

	return runToView(record), nil
}

func (m *Manager) execute(ctx context.Context, cancel context.CancelFunc, runID string, spec types.HierarchySpec, task string, bus *events.Bus) {
	defer m.wg.Done()
	defer m.sem.Release(1)
	defer cancel()
	defer func() {
		if m.collector != nil {
			m.collector.AddEventsDropped(bus.Dropped())
		}
	}()
	defer bus.Close()

	if m.collector != nil {
		m.collector.RunStarted()
		defer m.collector.RunFinished()
	}

	startedAt := time.Now().UTC()
	m.transition(runID, func(r *store.RunRecord) {
		r.Status = string(StatusRunning)
		r.StartedAt = &startedAt
	})

	backend := m.backend
	var sink hierarchy.EventSink = bus
	if m.collector != nil {
		backend = instrumentedInvoker{next: m.backend, collector: m.collector}
		sink = metricsSink{bus: bus, collector: m.collector}
	}

	root, tracker, err := hierarchy.FromSpec(spec, backend).
		WithEvents(sink).
		WithLogger(m.logger).
		Build()
	if err != nil {
		bus.Emit(types.EventError, map[string]any{"message": err.Error()})
		m.finish(runID, StatusFailed, "", err, startedAt)
		return
	}

	m.mu.Lock()
	if state := m.active[runID]; state != nil {
		state.tracker = tracker
	}
	m.mu.Unlock()

	result, err := root.Invoke(ctx, task)
	switch {
	case err != nil && errors.Is(ctx.Err(), context.Canceled):
		m.finish(runID, StatusCancelled, "", err, startedAt)
	case err != nil:
		m.finish(runID, StatusFailed, "", err, startedAt)
	default:
		m.finish(runID, StatusCompleted, result, nil, startedAt)
	}
}

// finish 将运行转入终态，落库、记指标并清掉取消句柄。
func (m *Manager) finish(runID string, status Status, result string, runErr error, startedAt time.Time) {
	finishedAt := time.Now().UTC()
	m.transition(runID, func(r *store.RunRecord) {
		r.Status = string(status)
		r.Result = result
		if runErr != nil {
			r.Error = runErr.Error()
		}
		r.FinishedAt = &finishedAt
	})

	if m.collector != nil {
		m.collector.RecordRun(string(status), finishedAt.Sub(startedAt))
	}

	m.mu.Lock()
	if state := m.active[runID]; state != nil {
		state.cancel = nil
	}
	m.mu.Unlock()

	if runErr != nil {
		m.logger.Warn("run finished",
			zap.String("run_id", runID),
			zap.String("status", string(status)),
			zap.Error(runErr))
		return
	}
	m.logger.Info("run finished",
		zap.String("run_id", runID),
		zap.String("status", string(status)),
		zap.Duration("duration", finishedAt.Sub(startedAt)))
}

// transition 读-改-写运行记录。失败只记日志：运行本身照常推进。
func (m *Manager) transition(runID string, mutate func(*store.RunRecord)) {
	ctx, cancelFn := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelFn()

	record, err := m.store.GetRun(ctx, runID)
	if err != nil {
		m.logger.Error("load run for update failed", zap.String("run_id", runID), zap.Error(err))
		return
	}
	mutate(record)
	if err := m.store.UpdateRun(ctx, record); err != nil {
		m.logger.Error("persist run update failed", zap.String("run_id", runID), zap.Error(err))
	}
}

// Get 返回运行快照。
func (m *Manager) Get(ctx context.Context, runID string) (*Run, error) {
	record, err := m.store.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	return runToView(record), nil
}

// List 分页列出运行，可按层级 ID 过滤。
func (m *Manager) List(ctx context.Context, hierarchyID string, offset, limit int) ([]*Run, int64, error) {
	records, total, err := m.store.ListRuns(ctx, hierarchyID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	views := make([]*Run, 0, len(records))
	for i := range records {
		views = append(views, runToView(&records[i]))
	}
	return views, total, nil
}

// Cancel 取消进行中的运行。已终结的运行返回 conflict 错误。
func (m *Manager) Cancel(ctx context.Context, runID string) error {
	m.mu.RLock()
	state := m.active[runID]
	m.mu.RUnlock()

	if state != nil && state.cancel != nil {
		state.cancel()
		m.logger.Info("run cancel requested", zap.String("run_id", runID))
		return nil
	}

	record, err := m.store.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	return types.NewError(types.ErrConflict,
		fmt.Sprintf("run already %s: %s", record.Status, runID)).
		WithHTTPStatus(409)
}

// Statistics 返回运行的调用统计。装配尚未完成或运行未知时报 not found。
func (m *Manager) Statistics(runID string) (hierarchy.Statistics, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state := m.active[runID]
	if state == nil || state.tracker == nil {
		return hierarchy.Statistics{}, types.NewError(types.ErrRunNotFound,
			fmt.Sprintf("no call statistics for run: %s", runID))
	}
	return state.tracker.Statistics(), nil
}

// CallLog 返回运行的格式化调用日志。
func (m *Manager) CallLog(runID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state := m.active[runID]
	if state == nil || state.tracker == nil {
		return "", types.NewError(types.ErrRunNotFound,
			fmt.Sprintf("no call log for run: %s", runID))
	}
	return state.tracker.CallLog(), nil
}

// Release 丢弃已终结运行的进程内状态（调用统计与事件总线）。
// 持久化记录不受影响。进行中的运行返回 conflict 错误。
func (m *Manager) Release(runID string) error {
	m.mu.Lock()
	state := m.active[runID]
	if state != nil && state.cancel != nil {
		m.mu.Unlock()
		return types.NewError(types.ErrConflict,
			fmt.Sprintf("run still in progress: %s", runID)).
			WithHTTPStatus(409)
	}
	delete(m.active, runID)
	m.mu.Unlock()

	m.registry.Remove(runID)
	return nil
}

// Shutdown 等待所有进行中的运行结束或上下文到期。
func (m *Manager) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func runToView(record *store.RunRecord) *Run {
	return &Run{
		ID:          record.ID,
		HierarchyID: record.HierarchyID,
		Task:        record.Task,
		Status:      Status(record.Status),
		Result:      record.Result,
		Error:       record.Error,
		StartedAt:   record.StartedAt,
		FinishedAt:  record.FinishedAt,
		CreatedAt:   record.CreatedAt,
	}
}

// metricsSink 事件在进入总线的同时计入事件与去重指标。
// 去重类事件的 reason 字段作为 kind 标签。
type metricsSink struct {
	bus       *events.Bus
	collector *metrics.Collector
}

func (s metricsSink) Emit(eventType types.EventType, payload map[string]any) {
	s.collector.RecordEventEmitted()
	if eventType == types.EventDuplicate || eventType == types.EventWarning {
		if reason, ok := payload["reason"].(string); ok {
			s.collector.RecordDuplicate(reason)
		}
	}
	s.bus.Emit(eventType, payload)
}

// instrumentedInvoker 在后端调用外记录耗时与结果指标。
type instrumentedInvoker struct {
	next      hierarchy.Invoker
	collector *metrics.Collector
}

func (i instrumentedInvoker) Invoke(ctx context.Context, req hierarchy.InvokeRequest) (string, error) {
	nodeType := "worker"
	if len(req.Tools) > 0 {
		nodeType = "supervisor"
	}

	start := time.Now()
	response, err := i.next.Invoke(ctx, req)
	status := "ok"
	if err != nil {
		status = "error"
	}
	i.collector.RecordBackendCall(nodeType, status, time.Since(start))
	return response, err
}
