package hierarchy

import (
	"context"
	"fmt"
	"strings"

	"github.com/BaSui01/teamflow/types"
	"go.uber.org/zap"
)

// TeamNode 包装一个 TeamSpec 与其 WorkerNode 的可调用单元。
// 调用后端时把 Worker 节点作为子工具暴露，任务文本带上
// 成员执行状态摘要、可选的跨团队上下文和防重复规则。
type TeamNode struct {
	spec         types.TeamSpec
	name         string // 由配置 id 派生的稳定工具标识（显示名可能非 ASCII）
	workers      []*WorkerNode
	calls        *CallTracker
	backend      Invoker
	shareEnabled bool // 全局上下文共享开关
	events       EventSink
	logger       *zap.Logger
}

func newTeamNode(spec types.TeamSpec, workers []*WorkerNode, backend Invoker, calls *CallTracker, shareEnabled bool, events EventSink, logger *zap.Logger) *TeamNode {
	return &TeamNode{
		spec:         spec,
		name:         SanitizeToolName(spec.ID, "team"),
		workers:      workers,
		calls:        calls,
		backend:      backend,
		shareEnabled: shareEnabled,
		events:       events,
		logger:       logger.With(zap.String("component", "team_node"), zap.String("team", spec.Name)),
	}
}

// Name implements Node.
func (t *TeamNode) Name() string { return t.name }

// DisplayName implements Node.
func (t *TeamNode) DisplayName() string { return t.spec.Name }

// Description implements Node.
func (t *TeamNode) Description() string {
	return fmt.Sprintf("Call %s - coordinates %d team members", t.spec.Name, len(t.workers))
}

// Workers 返回团队的 Worker 节点（组装后只读）。
func (t *TeamNode) Workers() []*WorkerNode { return t.workers }

// Invoke 执行团队：
//  1. 已执行过 → 固定短路消息
//  2. PreventDuplicate 且团队仍在活跃集合 → 并发重入警告，不开新调用
//  3. StartCall 取得调用 ID，发 start 事件
//  4. 构建增强任务并以 Worker 节点为子工具调用后端
//  5. 成功/失败都会 EndCall 收尾，失败以错误文本作为结果返回
func (t *TeamNode) Invoke(ctx context.Context, task string) (string, error) {
	exec := t.calls.Execution()

	if exec.IsTeamExecuted(t.spec.Name) {
		t.logger.Warn("team already executed, short-circuiting")
		t.events.Emit(types.EventDuplicate, map[string]any{
			"team":   t.spec.Name,
			"reason": "already_executed",
		})
		return ExecutedMessage(t.spec.Name), nil
	}

	if t.spec.PreventDuplicate && t.calls.IsTeamActive(t.spec.Name) {
		msg := ActiveConflictMessage(t.spec.Name)
		t.logger.Warn("team is active, rejecting concurrent duplicate call")
		t.events.Emit(types.EventWarning, map[string]any{
			"team":   t.spec.Name,
			"reason": "active_conflict",
		})
		return msg, nil
	}

	callID := t.calls.StartCall(t.spec.Name, task)

	workerNames := make([]string, len(t.workers))
	for i, w := range t.workers {
		workerNames[i] = w.DisplayName()
	}
	t.events.Emit(types.EventStart, map[string]any{
		"team":    t.spec.Name,
		"call_id": callID,
		"task":    truncate(task, truncateTaskLen),
		"workers": workerNames,
	})
	t.events.Emit(types.EventThinking, map[string]any{"team": t.spec.Name})
	t.logger.Info("team coordination started",
		zap.String("call_id", callID),
		zap.Strings("workers", workerNames))

	tools := make([]Tool, len(t.workers))
	for i, w := range t.workers {
		tools[i] = AsTool(w)
	}

	response, err := t.backend.Invoke(ctx, InvokeRequest{
		SystemPrompt: t.spec.SupervisorPrompt,
		Task:         t.buildAugmentedTask(task, workerNames),
		Tools:        tools,
		Model:        t.spec.Model,
	})
	if err != nil {
		msg := ErrorMessage(t.spec.Name, err)
		t.calls.EndCall(callID, msg)
		t.logger.Error("team backend call failed", zap.Error(err))
		t.events.Emit(types.EventError, map[string]any{
			"team":  t.spec.Name,
			"error": err.Error(),
		})
		return msg, nil
	}

	result := ResultMessage(t.spec.Name, response)
	t.calls.EndCall(callID, result)
	exec.MarkTeamExecuted(t.spec.Name, result)

	t.logger.Info("team coordination completed", zap.String("call_id", callID))
	t.events.Emit(types.EventComplete, map[string]any{
		"team":    t.spec.Name,
		"call_id": callID,
	})
	return result, nil
}

// buildAugmentedTask 组合增强任务：原始任务、空行、本团队成员的状态摘要、
// 可选的其他团队成果块，最后是固定的防重复规则。
func (t *TeamNode) buildAugmentedTask(task string, workerNames []string) string {
	digest := t.calls.Execution().StatusDigest(nil, workerNames)
	parts := []string{task, "", digest}

	if shared := t.buildSharedContext(); shared != "" {
		// 共享上下文插在原始任务之后、状态摘要之前
		parts = []string{task, shared, "", digest, contextSharingTip}
	}

	parts = append(parts, memberRuleBlock)
	return strings.Join(parts, "\n")
}

// buildSharedContext 枚举其他已执行团队的缓存结果。
// 仅当全局开关和团队自身的 ShareContext 都开启时生效。
func (t *TeamNode) buildSharedContext() string {
	if !t.shareEnabled || !t.spec.ShareContext {
		return ""
	}

	exec := t.calls.Execution()
	var blocks []string
	for _, teamName := range exec.ExecutedTeams() {
		if teamName == t.spec.Name {
			continue
		}
		if result, ok := exec.TeamResult(teamName); ok && result != "" {
			blocks = append(blocks, sharedResultBlock(teamName, result))
		}
	}
	return strings.Join(blocks, "\n")
}
