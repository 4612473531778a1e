package hierarchy

import (
	"strings"
	"sync"
)

// ExecutionTracker 执行追踪器 - 跟踪一次运行内已执行的团队和 Worker。
// 用于防止重复执行以及生成注入到增强任务里的状态摘要。
// 每次运行持有独立实例，运行结束后丢弃。
type ExecutionTracker struct {
	mu sync.RWMutex

	executedTeams   map[string]struct{}
	executedWorkers map[string]struct{}
	teamResults     map[string]string
	workerResults   map[string]string

	// 按完成顺序记录团队名，上下文共享块按此顺序渲染
	teamOrder []string
}

// NewExecutionTracker 创建执行追踪器。
func NewExecutionTracker() *ExecutionTracker {
	return &ExecutionTracker{
		executedTeams:   make(map[string]struct{}),
		executedWorkers: make(map[string]struct{}),
		teamResults:     make(map[string]string),
		workerResults:   make(map[string]string),
	}
}

// MarkTeamExecuted 标记团队已执行并记录结果。
func (t *ExecutionTracker) MarkTeamExecuted(name, result string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.executedTeams[name]; !ok {
		t.teamOrder = append(t.teamOrder, name)
	}
	t.executedTeams[name] = struct{}{}
	t.teamResults[name] = result
}

// MarkWorkerExecuted 标记 Worker 已执行并记录结果。
func (t *ExecutionTracker) MarkWorkerExecuted(name, result string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.executedWorkers[name] = struct{}{}
	t.workerResults[name] = result
}

// IsTeamExecuted 检查团队是否已执行。
func (t *ExecutionTracker) IsTeamExecuted(name string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.executedTeams[name]
	return ok
}

// IsWorkerExecuted 检查 Worker 是否已执行。
func (t *ExecutionTracker) IsWorkerExecuted(name string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.executedWorkers[name]
	return ok
}

// TeamResult 返回团队的执行结果。
func (t *ExecutionTracker) TeamResult(name string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	result, ok := t.teamResults[name]
	return result, ok
}

// WorkerResult 返回 Worker 的执行结果。
func (t *ExecutionTracker) WorkerResult(name string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	result, ok := t.workerResults[name]
	return result, ok
}

// ExecutedTeams 按完成顺序返回已执行团队名的副本。
func (t *ExecutionTracker) ExecutedTeams() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, len(t.teamOrder))
	copy(out, t.teamOrder)
	return out
}

// StatusDigest 生成执行状态摘要：对每个给定名称渲染一行
// 已执行（✅）或未执行（⭕）标记。下游提示词靠它得知哪些工作已完成。
// 任一名称列表为空时对应小节省略。
func (t *ExecutionTracker) StatusDigest(teamNames, workerNames []string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var lines []string
	if len(teamNames) > 0 {
		lines = append(lines, "[Team execution status]")
		for _, name := range teamNames {
			lines = append(lines, t.statusLine(name, t.executedTeams))
		}
	}
	if len(workerNames) > 0 {
		if len(lines) > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, "[Member execution status]")
		for _, name := range workerNames {
			lines = append(lines, t.statusLine(name, t.executedWorkers))
		}
	}
	return strings.Join(lines, "\n")
}

func (t *ExecutionTracker) statusLine(name string, executed map[string]struct{}) string {
	if _, ok := executed[name]; ok {
		return "  " + markerExecuted + " " + name + " - executed"
	}
	return "  " + markerPending + " " + name + " - not executed"
}

// Reset 清空所有执行记录。
func (t *ExecutionTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.executedTeams = make(map[string]struct{})
	t.executedWorkers = make(map[string]struct{})
	t.teamResults = make(map[string]string)
	t.workerResults = make(map[string]string)
	t.teamOrder = nil
}
