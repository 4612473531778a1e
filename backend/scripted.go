// Package backend 提供可直接运行的模型后端实现。
//
// Scripted 后端不依赖外部模型服务：监督者按声明顺序调用每个下属
// 工具一次，工作者返回由任务派生的确定性文本。用于开发环境和
// 端到端测试。
package backend

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/teamflow/hierarchy"
)

// Scripted 确定性后端。
type Scripted struct {
	logger *zap.Logger
}

// NewScripted 创建确定性后端。
func NewScripted(logger *zap.Logger) *Scripted {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scripted{logger: logger.With(zap.String("component", "scripted_backend"))}
}

// Invoke 执行一次模拟调用。
// 有下属工具时扮演监督者：依次调用每个工具并汇总结果；
// 无工具时扮演工作者：返回任务回显。
func (s *Scripted) Invoke(ctx context.Context, req hierarchy.InvokeRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if len(req.Tools) == 0 {
		return s.workerResponse(req), nil
	}
	return s.superviseTools(ctx, req)
}

func (s *Scripted) workerResponse(req hierarchy.InvokeRequest) string {
	task := firstLine(req.Task)
	if len(req.ToolRefs) > 0 {
		return fmt.Sprintf("completed %q using tools: %s", task, strings.Join(req.ToolRefs, ", "))
	}
	return fmt.Sprintf("completed %q", task)
}

func (s *Scripted) superviseTools(ctx context.Context, req hierarchy.InvokeRequest) (string, error) {
	task := firstLine(req.Task)
	sections := make([]string, 0, len(req.Tools)+1)

	for _, tool := range req.Tools {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		result, err := tool.Call(ctx, task)
		if err != nil {
			return "", fmt.Errorf("delegate to %s: %w", tool.Name, err)
		}
		s.logger.Debug("delegated task",
			zap.String("tool", tool.Name),
			zap.String("task", task))
		sections = append(sections, result)
	}

	sections = append(sections, fmt.Sprintf("summary: %d delegations for %q", len(req.Tools), task))
	return strings.Join(sections, "\n"), nil
}

func firstLine(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		return text[:idx]
	}
	return text
}
