package hierarchy

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// CallStatus 调用状态
type CallStatus string

const (
	CallStatusInProgress CallStatus = "in_progress"
	CallStatusCompleted  CallStatus = "completed"
)

// CallRecord 记录一次团队调用。ID 在一次运行内唯一且分配后不变。
type CallRecord struct {
	ID        string     `json:"call_id"`
	Team      string     `json:"team_name"`
	Task      string     `json:"task"`
	StartedAt time.Time  `json:"start_time"`
	EndedAt   time.Time  `json:"end_time,omitempty"`
	Status    CallStatus `json:"status"`
	Result    string     `json:"result,omitempty"`
}

// Statistics 调用统计信息快照。
type Statistics struct {
	TotalCalls     int            `json:"total_calls"`
	TeamCalls      map[string]int `json:"team_calls"`
	ActiveTeams    []string       `json:"active_teams"`
	CompletedCalls int            `json:"completed_calls"`
}

// CallTracker 调用追踪器 - 记录一次运行内进行中与已完成的团队调用。
// 持有本次运行的 ExecutionTracker 与 ResultCache；三者生命周期与运行一致。
type CallTracker struct {
	mu sync.Mutex

	records   []*CallRecord
	byID      map[string]*CallRecord
	teamCalls map[string]int
	active    map[string]struct{}

	exec  *ExecutionTracker
	cache *ResultCache
}

// NewCallTracker 创建调用追踪器及其隶属的执行追踪器和结果缓存。
func NewCallTracker() *CallTracker {
	return &CallTracker{
		byID:      make(map[string]*CallRecord),
		teamCalls: make(map[string]int),
		active:    make(map[string]struct{}),
		exec:      NewExecutionTracker(),
		cache:     NewResultCache(),
	}
}

// Execution 返回本次运行的执行追踪器。
func (t *CallTracker) Execution() *ExecutionTracker { return t.exec }

// Cache 返回本次运行的结果缓存。
func (t *CallTracker) Cache() *ResultCache { return t.cache }

// StartCall 登记一次进行中的调用并返回调用 ID（格式：团队名_序号）。
// 同时递增团队调用计数并将团队加入活跃集合。
func (t *CallTracker) StartCall(teamName, task string) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	callID := fmt.Sprintf("%s_%d", teamName, len(t.records))
	record := &CallRecord{
		ID:        callID,
		Team:      teamName,
		Task:      task,
		StartedAt: time.Now(),
		Status:    CallStatusInProgress,
	}
	t.records = append(t.records, record)
	t.byID[callID] = record
	t.teamCalls[teamName]++
	t.active[teamName] = struct{}{}

	return callID
}

// EndCall 结束一次调用：打结束时间戳、记录结果、标记完成，
// 并将团队从活跃集合移除。未知 callID 为无操作。
func (t *CallTracker) EndCall(callID, result string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	record, ok := t.byID[callID]
	if !ok {
		return
	}
	record.EndedAt = time.Now()
	record.Result = result
	record.Status = CallStatusCompleted
	delete(t.active, record.Team)
}

// IsTeamActive 检查团队是否有进行中的调用。
func (t *CallTracker) IsTeamActive(teamName string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.active[teamName]
	return ok
}

// CallCount 返回团队的调用次数。
func (t *CallTracker) CallCount(teamName string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.teamCalls[teamName]
}

// Statistics 返回调用统计快照。
func (t *CallTracker) Statistics() Statistics {
	t.mu.Lock()
	defer t.mu.Unlock()

	stats := Statistics{
		TotalCalls: len(t.records),
		TeamCalls:  make(map[string]int, len(t.teamCalls)),
	}
	for team, count := range t.teamCalls {
		stats.TeamCalls[team] = count
	}
	for team := range t.active {
		stats.ActiveTeams = append(stats.ActiveTeams, team)
	}
	for _, record := range t.records {
		if record.Status == CallStatusCompleted {
			stats.CompletedCalls++
		}
	}
	return stats
}

// CallLog 生成诊断用的调用日志转储，长字段会被截断。
func (t *CallTracker) CallLog() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	lines := []string{"Call log:", strings.Repeat("=", 60)}
	for _, record := range t.records {
		lines = append(lines,
			"",
			fmt.Sprintf("[%s]", record.ID),
			fmt.Sprintf("  team: %s", record.Team),
			fmt.Sprintf("  task: %s", truncate(record.Task, truncateTaskLen)),
			fmt.Sprintf("  status: %s", record.Status),
		)
		if record.Result != "" {
			lines = append(lines, fmt.Sprintf("  result: %s", truncate(record.Result, truncateShortLen)))
		}
	}
	return strings.Join(lines, "\n")
}
