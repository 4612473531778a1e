// Package runs 管理层级执行的完整生命周期：准入（并发上限）、装配、
// 后台执行、状态落库、进度事件广播与取消。
//
// Manager 是唯一入口。每次运行拥有独立的事件总线和调用跟踪器，
// 运行之间互不可见。
package runs
