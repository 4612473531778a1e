package hierarchy

import "fmt"

// 统一的消息格式，所有节点的短路响应与结果都经过这里，
// 上游提示词依赖这些固定形状来识别"已执行/重复"。

const (
	markerExecuted   = "✅"
	markerPending    = "⭕"
	truncateTaskLen  = 50
	truncateShortLen = 100
)

// ExecutedMessage 生成"已执行过"的短路返回消息。
func ExecutedMessage(name string) string {
	return fmt.Sprintf("[%s] already executed earlier in this run; the result is available above, reference it directly", name)
}

// DuplicateTaskMessage 生成"重复任务"的短路返回消息。
func DuplicateTaskMessage(name string) string {
	return fmt.Sprintf("[%s] already handled an identical task; the result is available above, reference it directly", name)
}

// ActiveConflictMessage 生成团队并发重入的警告消息。
func ActiveConflictMessage(name string) string {
	return fmt.Sprintf("[%s] warning: this team is currently processing a task, skipping duplicate call", name)
}

// ResultMessage 生成带节点标识的结果消息。
func ResultMessage(name, response string) string {
	return fmt.Sprintf("[%s] %s", name, response)
}

// ErrorMessage 生成带节点标识的错误消息，作为节点结果返回而非异常。
func ErrorMessage(name string, err error) string {
	return fmt.Sprintf("[%s] error: %v", name, err)
}

// truncate 截断长文本，用于日志与调用记录转储。
func truncate(text string, max int) string {
	if len(text) > max {
		return text[:max] + "..."
	}
	return text
}

// memberRuleBlock 是注入给团队主管的防重复规则说明。
const memberRuleBlock = `
[Important rules]:
- Only call members marked "not executed" (` + markerPending + `)
- Members marked executed (` + markerExecuted + `) must not be called again; their results are already available
- If you need an executed member's result, reference it directly instead of re-invoking
- Each member may be called at most once
`

// teamRuleBlock 是注入给顶层协调者的防重复规则说明。
const teamRuleBlock = `
[Important rules]:
- Only call teams marked "not executed" (` + markerPending + `)
- Teams marked executed (` + markerExecuted + `) must not be called again; their results are already available
- If you need an executed team's result, reference it directly instead of re-invoking
- Each team may be called at most once
`

// rootPromptRules 附加在顶层协调者系统提示词之后的固定规则。
const rootPromptRules = `

Important rules:
1. Each team should be called exactly once for the work within its scope
2. If a team has already returned a result, do not call that team again
3. A "team is currently processing" warning means the team is already working
4. When integrating team outputs, use results that are already available instead of requesting them again
5. If the task needs multiple teams, call different teams rather than repeating one
6. Check the team execution status and only call teams marked "not executed" (` + markerPending + `)
`

// sequentialModeHint / parallelModeHint 执行模式提示。
// 仅通过提示词引导规划模型，运行时不做实际并行调度。
const sequentialModeHint = `
[Team execution mode]: sequential
- A team must finish before the next team is called
- Never call multiple teams at the same time
- Call teams one by one in logical order
`

const parallelModeHint = `
[Team execution mode]: parallel
- Multiple teams may be called at the same time
- Teams work independently and do not interfere with each other
- Suitable when tasks have no dependencies between them
`

// executionModeHint 返回执行模式对应的提示块。
func executionModeHint(parallel bool) string {
	if parallel {
		return parallelModeHint
	}
	return sequentialModeHint
}

// contextSharingTip 附在共享上下文块之后的提示。
const contextSharingTip = "\n[Note]: the blocks above are work other teams have already completed; you may build on these results to finish your task."

// sharedResultBlock 渲染单个其他团队的已完成结果。
func sharedResultBlock(teamName, result string) string {
	return fmt.Sprintf("\n[Findings from %s]:\n%s", teamName, result)
}
