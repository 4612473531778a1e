package hierarchy

import (
	"context"
	"strings"

	"github.com/BaSui01/teamflow/types"
	"go.uber.org/zap"
)

// RootCoordinator 顶层协调者：以团队节点为子工具调用后端。
// 有效提示词在构建时组合完成：根提示词 + 执行模式提示 + 固定规则块。
// 与 Worker/团队节点不同，根层的后端失败会向调用方传播（没有上层节点兜底）。
type RootCoordinator struct {
	prompt    string // 组合后的有效系统提示词
	model     string
	teams     []*TeamNode
	teamNames []string
	calls     *CallTracker
	backend   Invoker
	events    EventSink
	logger    *zap.Logger
}

func newRootCoordinator(spec types.HierarchySpec, teams []*TeamNode, backend Invoker, calls *CallTracker, events EventSink, logger *zap.Logger) *RootCoordinator {
	teamNames := make([]string, len(teams))
	for i, team := range teams {
		teamNames[i] = team.DisplayName()
	}
	return &RootCoordinator{
		prompt:    spec.RootPrompt + executionModeHint(spec.ParallelExecution) + rootPromptRules,
		model:     spec.Model,
		teams:     teams,
		teamNames: teamNames,
		calls:     calls,
		backend:   backend,
		events:    events,
		logger:    logger.With(zap.String("component", "root_coordinator")),
	}
}

// Teams 返回团队节点（组装后只读）。
func (r *RootCoordinator) Teams() []*TeamNode { return r.teams }

// TeamNames 返回团队显示名列表。
func (r *RootCoordinator) TeamNames() []string {
	out := make([]string, len(r.teamNames))
	copy(out, r.teamNames)
	return out
}

// Tracker 返回共享的调用追踪器。
func (r *RootCoordinator) Tracker() *CallTracker { return r.calls }

// Invoke 执行整个层级：任务文本带上团队状态摘要与防重复规则后
// 交给后端，后端决定调用哪些团队以及调用顺序。
func (r *RootCoordinator) Invoke(ctx context.Context, task string) (string, error) {
	r.events.Emit(types.EventStart, map[string]any{
		"task":  truncate(task, truncateTaskLen),
		"teams": r.TeamNames(),
	})
	r.events.Emit(types.EventThinking, nil)
	r.logger.Info("root coordination started",
		zap.String("task", truncate(task, truncateTaskLen)),
		zap.Int("teams", len(r.teams)))

	tools := make([]Tool, len(r.teams))
	for i, team := range r.teams {
		tools[i] = AsTool(team)
	}

	digest := r.calls.Execution().StatusDigest(r.teamNames, nil)
	augmented := strings.Join([]string{task, "", digest, teamRuleBlock}, "\n")

	response, err := r.backend.Invoke(ctx, InvokeRequest{
		SystemPrompt: r.prompt,
		Task:         augmented,
		Tools:        tools,
		Model:        r.model,
	})
	if err != nil {
		r.logger.Error("root backend call failed", zap.Error(err))
		r.events.Emit(types.EventError, map[string]any{"error": err.Error()})
		return "", types.NewError(types.ErrBackendFailure, "root coordinator backend call failed").WithCause(err)
	}

	r.logger.Info("root coordination completed")
	r.events.Emit(types.EventComplete, nil)
	return response, nil
}
