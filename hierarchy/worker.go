package hierarchy

import (
	"context"
	"fmt"

	"github.com/BaSui01/teamflow/types"
	"go.uber.org/zap"
)

// WorkerNode 包装一个 WorkerSpec 的可调用单元。
// 调用后端之前先查询 ExecutionTracker 与 ResultCache：
// 同一运行内底层后端调用至多执行一次。
type WorkerNode struct {
	spec    types.WorkerSpec
	name    string // 组装期清洗后的稳定工具标识
	backend Invoker
	exec    *ExecutionTracker
	cache   *ResultCache
	events  EventSink
	logger  *zap.Logger
}

// newWorkerNode 由组装器调用，tracker/cache 来自本次 build 的 CallTracker。
func newWorkerNode(spec types.WorkerSpec, backend Invoker, tracker *CallTracker, events EventSink, logger *zap.Logger) *WorkerNode {
	return &WorkerNode{
		spec:    spec,
		name:    SanitizeToolName(spec.Name, "worker"),
		backend: backend,
		exec:    tracker.Execution(),
		cache:   tracker.Cache(),
		events:  events,
		logger:  logger.With(zap.String("component", "worker_node"), zap.String("worker", spec.Name)),
	}
}

// Name implements Node.
func (w *WorkerNode) Name() string { return w.name }

// DisplayName implements Node.
func (w *WorkerNode) DisplayName() string { return w.spec.Name }

// Description implements Node.
func (w *WorkerNode) Description() string {
	return fmt.Sprintf("%s - %s", w.spec.Name, w.spec.Role)
}

// Invoke 执行 Worker：
//  1. 已执行过 → 固定短路消息，不调用后端，不写缓存
//  2. 相同指纹的任务已缓存 → 固定重复任务消息，不调用后端
//  3. 否则调用后端；成功时格式化结果、写缓存、登记执行记录
//  4. 后端失败时返回带 Worker 标识的错误文本作为结果，不向上抛异常
func (w *WorkerNode) Invoke(ctx context.Context, task string) (string, error) {
	if w.exec.IsWorkerExecuted(w.spec.Name) {
		w.logger.Warn("worker already executed, short-circuiting")
		w.events.Emit(types.EventDuplicate, map[string]any{
			"worker": w.spec.Name,
			"reason": "already_executed",
		})
		return ExecutedMessage(w.spec.Name), nil
	}

	fingerprint := Fingerprint(task)
	if _, ok := w.cache.Get(w.spec.Name, fingerprint); ok {
		w.logger.Warn("duplicate task for worker, short-circuiting",
			zap.String("fingerprint", fingerprint))
		w.events.Emit(types.EventDuplicate, map[string]any{
			"worker": w.spec.Name,
			"reason": "duplicate_task",
		})
		return DuplicateTaskMessage(w.spec.Name), nil
	}

	w.events.Emit(types.EventStart, map[string]any{
		"worker": w.spec.Name,
		"task":   truncate(task, truncateTaskLen),
	})
	w.events.Emit(types.EventThinking, map[string]any{"worker": w.spec.Name})
	w.logger.Info("worker started", zap.String("task", truncate(task, truncateTaskLen)))

	response, err := w.backend.Invoke(ctx, InvokeRequest{
		SystemPrompt: w.spec.SystemPrompt,
		Task:         task,
		ToolRefs:     w.spec.Tools,
		Model:        w.spec.Model,
		Temperature:  w.spec.Temperature,
		MaxTokens:    w.spec.MaxTokens,
	})
	if err != nil {
		msg := ErrorMessage(w.spec.Name, err)
		w.logger.Error("worker backend call failed", zap.Error(err))
		w.events.Emit(types.EventError, map[string]any{
			"worker": w.spec.Name,
			"error":  err.Error(),
		})
		return msg, nil
	}

	result := ResultMessage(w.spec.Name, response)
	w.cache.Put(w.spec.Name, fingerprint, result)
	w.exec.MarkWorkerExecuted(w.spec.Name, result)

	w.logger.Info("worker completed")
	w.events.Emit(types.EventComplete, map[string]any{"worker": w.spec.Name})
	return result, nil
}
