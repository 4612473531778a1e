package hierarchy

import (
	"github.com/BaSui01/teamflow/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Assembler 层级团队组装器 - 流式 API 构建配置并实例化对象图。
//
// 示例:
//
//	root, tracker, err := hierarchy.NewAssembler(backend).
//	    SetRootPrompt("You are the chief coordinator ...").
//	    AddTeam("Research", researchPrompt, workers).
//	    Build()
//
// 每次 Build 都会创建全新的 CallTracker（连同 ExecutionTracker 与
// ResultCache）并把所有节点接到这一套追踪状态上：并发运行之间
// 因此完全隔离。
type Assembler struct {
	spec    types.HierarchySpec
	backend Invoker
	events  EventSink
	logger  *zap.Logger
}

// TeamOption 配置 AddTeam 添加的团队。
type TeamOption func(*types.TeamSpec)

// WithTeamModel 设置团队的模型覆盖。
func WithTeamModel(model string) TeamOption {
	return func(t *types.TeamSpec) { t.Model = model }
}

// WithPreventDuplicate 控制是否拒绝并发的重复团队调用（默认开启）。
func WithPreventDuplicate(prevent bool) TeamOption {
	return func(t *types.TeamSpec) { t.PreventDuplicate = prevent }
}

// WithShareContext 控制团队是否接收其他团队的已完成结果。
func WithShareContext(share bool) TeamOption {
	return func(t *types.TeamSpec) { t.ShareContext = share }
}

// NewAssembler 创建组装器。
func NewAssembler(backend Invoker) *Assembler {
	return &Assembler{
		spec:    types.HierarchySpec{ID: uuid.NewString()},
		backend: backend,
		events:  NopSink(),
		logger:  zap.NewNop(),
	}
}

// FromSpec 从已反序列化的层级配置创建组装器。
func FromSpec(spec types.HierarchySpec, backend Invoker) *Assembler {
	if spec.ID == "" {
		spec.ID = uuid.NewString()
	}
	return &Assembler{
		spec:    spec,
		backend: backend,
		events:  NopSink(),
		logger:  zap.NewNop(),
	}
}

// WithEvents 设置进度事件接收器。
func (a *Assembler) WithEvents(events EventSink) *Assembler {
	if events != nil {
		a.events = events
	}
	return a
}

// WithLogger 设置日志器。
func (a *Assembler) WithLogger(logger *zap.Logger) *Assembler {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// SetRootPrompt 设置顶层协调者的系统提示词。
func (a *Assembler) SetRootPrompt(prompt string) *Assembler {
	a.spec.RootPrompt = prompt
	return a
}

// SetRootModel 设置顶层协调者的模型。
func (a *Assembler) SetRootModel(model string) *Assembler {
	a.spec.Model = model
	return a
}

// SetExecutionMode 设置执行模式提示。parallel 仅影响提示词，
// 运行时不会真正并行调度团队。
func (a *Assembler) SetExecutionMode(parallel bool) *Assembler {
	a.spec.ParallelExecution = parallel
	return a
}

// SetContextSharing 设置全局跨团队上下文共享开关。
func (a *Assembler) SetContextSharing(enabled bool) *Assembler {
	a.spec.EnableContextSharing = enabled
	return a
}

// AddTeam 追加一个团队。Worker 可自带 id，缺省时生成。
// preventDuplicate 默认开启，可用 TeamOption 调整。
func (a *Assembler) AddTeam(name, supervisorPrompt string, workers []types.WorkerSpec, opts ...TeamOption) *Assembler {
	team := types.TeamSpec{
		ID:               uuid.NewString(),
		Name:             name,
		SupervisorPrompt: supervisorPrompt,
		Workers:          workers,
		PreventDuplicate: true,
	}
	for _, opt := range opts {
		opt(&team)
	}
	a.spec.Teams = append(a.spec.Teams, team)
	return a
}

// Spec 返回当前累积的配置快照。
func (a *Assembler) Spec() types.HierarchySpec { return a.spec }

// Build 校验配置并实例化对象图，返回根协调者与本次构建独有的
// 调用追踪器。配置错误（缺字段、标识冲突）在这里快速失败，
// 不会留到运行期。
func (a *Assembler) Build() (*RootCoordinator, *CallTracker, error) {
	spec := a.spec
	a.fillIDs(&spec)

	if err := spec.Validate(); err != nil {
		return nil, nil, err
	}
	if err := checkIdentifiers(spec); err != nil {
		return nil, nil, err
	}

	tracker := NewCallTracker()

	teams := make([]*TeamNode, 0, len(spec.Teams))
	for _, teamSpec := range spec.Teams {
		workers := make([]*WorkerNode, 0, len(teamSpec.Workers))
		for _, workerSpec := range teamSpec.Workers {
			workers = append(workers, newWorkerNode(workerSpec, a.backend, tracker, a.events, a.logger))
		}
		teams = append(teams, newTeamNode(teamSpec, workers, a.backend, tracker, spec.EnableContextSharing, a.events, a.logger))
	}

	root := newRootCoordinator(spec, teams, a.backend, tracker, a.events, a.logger)

	a.logger.Info("hierarchy assembled",
		zap.String("hierarchy_id", spec.ID),
		zap.Int("teams", len(teams)))

	return root, tracker, nil
}

// ValidateSpec 执行与 Build 相同的配置校验，但不实例化对象图。
// 供 API 层在持久化层级定义前拒绝非法配置。
func ValidateSpec(spec types.HierarchySpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	return checkIdentifiers(spec)
}

// fillIDs 为缺省的团队/Worker id 生成 UUID。
func (a *Assembler) fillIDs(spec *types.HierarchySpec) {
	for i := range spec.Teams {
		if spec.Teams[i].ID == "" {
			spec.Teams[i].ID = uuid.NewString()
		}
		for j := range spec.Teams[i].Workers {
			if spec.Teams[i].Workers[j].ID == "" {
				spec.Teams[i].Workers[j].ID = uuid.NewString()
			}
		}
	}
}

// checkIdentifiers 确认派生的工具标识合法且在各自父节点的工具集内唯一。
func checkIdentifiers(spec types.HierarchySpec) error {
	teamNames := make(map[string]string, len(spec.Teams))
	for _, team := range spec.Teams {
		toolName := SanitizeToolName(team.ID, "team")
		if !IsValidToolName(toolName) {
			return types.NewError(types.ErrAssembly, "derived team tool identifier is invalid").
				WithDetail("team", team.Name).WithDetail("identifier", toolName)
		}
		if other, ok := teamNames[toolName]; ok {
			return types.NewError(types.ErrAssembly, "team tool identifiers collide").
				WithDetail("teams", other+"/"+team.Name).WithDetail("identifier", toolName)
		}
		teamNames[toolName] = team.Name

		workerNames := make(map[string]string, len(team.Workers))
		for _, worker := range team.Workers {
			workerTool := SanitizeToolName(worker.Name, "worker")
			if !IsValidToolName(workerTool) {
				return types.NewError(types.ErrAssembly, "derived worker tool identifier is invalid").
					WithDetail("worker", worker.Name).WithDetail("identifier", workerTool)
			}
			if other, ok := workerNames[workerTool]; ok {
				return types.NewError(types.ErrAssembly, "worker tool identifiers collide within team").
					WithDetail("team", team.Name).
					WithDetail("workers", other+"/"+worker.Name).
					WithDetail("identifier", workerTool)
			}
			workerNames[workerTool] = worker.Name
		}
	}
	return nil
}
