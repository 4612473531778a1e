package hierarchy

import (
	"context"

	"github.com/BaSui01/teamflow/types"
)

// Node 是层级中任意可调用单元（Worker、团队或根协调者）的统一形状：
// 构建增强任务 → 调用后端 → 处理成功/失败 → 发事件。
// Worker 与团队节点的失败以错误文本形式返回（error 恒为 nil）；
// 只有根节点会向调用方传播真实错误。
type Node interface {
	// Name 返回后端安全的稳定工具标识
	Name() string
	// DisplayName 返回人类可读的显示名
	DisplayName() string
	// Description 返回工具描述
	Description() string
	// Invoke 执行节点
	Invoke(ctx context.Context, task string) (string, error)
}

// AsTool 将节点适配为后端可调用的子工具。
func AsTool(n Node) Tool {
	return Tool{
		Name:        n.Name(),
		Description: n.Description(),
		Call:        n.Invoke,
	}
}

// EventSink 接收节点执行过程中的进度事件。
// events.Bus 实现此接口；nopSink 用于不需要事件的场景（如单测）。
type EventSink interface {
	Emit(eventType types.EventType, payload map[string]any)
}

type nopSink struct{}

func (nopSink) Emit(types.EventType, map[string]any) {}

// NopSink 返回丢弃所有事件的 EventSink。
func NopSink() EventSink { return nopSink{} }
