package hierarchy

import "context"

// Tool 是暴露给后端规划模型的可调用子工具。
// Name 必须满足后端的工具命名规则（见 SanitizeToolName）。
type Tool struct {
	Name        string
	Description string
	Call        func(ctx context.Context, task string) (string, error)
}

// InvokeRequest 是一次后端模型调用的完整输入。
type InvokeRequest struct {
	// SystemPrompt 本次调用的系统提示词
	SystemPrompt string
	// Task 任务文本（可能已经过状态摘要/规则增强）
	Task string
	// Tools 可调用的子工具（团队或 Worker 节点）
	Tools []Tool
	// ToolRefs 外部工具名称，由后端自行解析（Worker 配置里的 tools）
	ToolRefs []string
	// Model 模型覆盖，空值表示后端默认
	Model string
	// Temperature 采样温度，0 表示后端默认
	Temperature float32
	// MaxTokens 最大生成 Token 数，0 表示后端默认
	MaxTokens int
}

// Invoker 是被消费的模型调用后端。
// 运行时对它的唯一要求：给定提示词、子工具与任务，返回文本结果或错误。
// 调用内部产生的任何并发对本层不可见。
type Invoker interface {
	Invoke(ctx context.Context, req InvokeRequest) (string, error)
}

// InvokerFunc 将函数适配为 Invoker。
type InvokerFunc func(ctx context.Context, req InvokeRequest) (string, error)

// Invoke implements Invoker.
func (f InvokerFunc) Invoke(ctx context.Context, req InvokeRequest) (string, error) {
	return f(ctx, req)
}
