package types

// WorkerSpec 描述一个 Worker Agent 的静态配置。
// 组装完成后不可变。
type WorkerSpec struct {
	// ID 唯一标识（缺省时由组装器生成）
	ID string `json:"id" yaml:"id"`
	// Name 显示名称（可以包含非 ASCII 字符）
	Name string `json:"name" yaml:"name"`
	// Role 角色描述，用于工具描述信息
	Role string `json:"role" yaml:"role"`
	// SystemPrompt 系统提示词
	SystemPrompt string `json:"system_prompt" yaml:"system_prompt"`
	// Tools 外部工具名称列表，由后端自行解析
	Tools []string `json:"tools,omitempty" yaml:"tools,omitempty"`
	// Temperature 采样温度
	Temperature float32 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	// MaxTokens 最大生成 Token 数
	MaxTokens int `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	// Model 模型覆盖（可选）
	Model string `json:"model,omitempty" yaml:"model,omitempty"`
}

// Validate 校验 Worker 配置的必填字段。
func (w *WorkerSpec) Validate() error {
	if w.Name == "" {
		return NewError(ErrAssembly, "worker name is required")
	}
	if w.SystemPrompt == "" {
		return NewError(ErrAssembly, "worker system prompt is required").
			WithDetail("worker", w.Name)
	}
	return nil
}

// TeamSpec 描述一个团队及其成员的静态配置。
// 组装完成后不可变。
type TeamSpec struct {
	ID               string       `json:"id" yaml:"id"`
	Name             string       `json:"name" yaml:"name"`
	SupervisorPrompt string       `json:"supervisor_prompt" yaml:"supervisor_prompt"`
	Workers          []WorkerSpec `json:"workers" yaml:"workers"`
	Model            string       `json:"model,omitempty" yaml:"model,omitempty"`
	// PreventDuplicate 为 true 时拒绝并发的重复团队调用
	PreventDuplicate bool `json:"prevent_duplicate" yaml:"prevent_duplicate"`
	// ShareContext 为 true 时接收其他团队的已完成结果
	ShareContext bool `json:"share_context" yaml:"share_context"`
}

// Validate 校验团队配置。
func (t *TeamSpec) Validate() error {
	if t.Name == "" {
		return NewError(ErrAssembly, "team name is required")
	}
	if t.SupervisorPrompt == "" {
		return NewError(ErrAssembly, "team supervisor prompt is required").
			WithDetail("team", t.Name)
	}
	if len(t.Workers) == 0 {
		return NewError(ErrAssembly, "team requires at least one worker").
			WithDetail("team", t.Name)
	}
	for i := range t.Workers {
		if err := t.Workers[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// HierarchySpec 描述整个层级团队的静态配置。
// 组装完成后不可变。
type HierarchySpec struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// RootPrompt 顶层协调者的系统提示词
	RootPrompt string     `json:"root_prompt" yaml:"root_prompt"`
	Teams      []TeamSpec `json:"teams" yaml:"teams"`
	Model      string     `json:"model,omitempty" yaml:"model,omitempty"`
	// EnableContextSharing 全局开关：是否允许跨团队上下文共享
	EnableContextSharing bool `json:"enable_context_sharing" yaml:"enable_context_sharing"`
	// ParallelExecution 执行模式提示（仅通过提示词传达，运行时不做并行调度）
	ParallelExecution bool `json:"parallel_execution" yaml:"parallel_execution"`
}

// Validate 校验层级配置。
func (h *HierarchySpec) Validate() error {
	if h.RootPrompt == "" {
		return NewError(ErrAssembly, "hierarchy root prompt is required")
	}
	if len(h.Teams) == 0 {
		return NewError(ErrAssembly, "hierarchy requires at least one team")
	}
	for i := range h.Teams {
		if err := h.Teams[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}
