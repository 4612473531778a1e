// Package hierarchy implements the execution-coordination core of teamflow:
// a two-level tree of LLM-backed callable nodes (root coordinator → team
// supervisors → workers) with per-run call tracking, duplicate prevention,
// result caching, and progress event emission.
//
// 核心特性:
//   - 通用的 Root Coordinator、Team Supervisor 和 Worker Agent
//   - 配置驱动的拓扑结构（types.HierarchySpec）
//   - 调用追踪：记录每个团队的调用历史与统计
//   - 防重复调用：同一运行内 Worker 后端调用至多一次
//   - 跨团队上下文共享（可按团队选择加入）
//
// The backend that actually executes a node's reasoning step is opaque: it
// receives a system prompt, a set of callable sub-tools, and a task string,
// and returns text or fails (see Invoker). The runtime never parallelizes
// sibling nodes itself; the "parallel" execution mode only changes the hint
// text handed to the planning model.
//
// All mutable state (CallTracker, ExecutionTracker, ResultCache) is scoped
// to one run and created fresh by every Assembler.Build call. Sharing these
// across concurrent runs breaks the at-most-once invariant.
package hierarchy
