/*
Package handlers 提供 TeamFlow HTTP API 的请求处理器实现。

# 概述

handlers 包实现了 TeamFlow 所有 HTTP 端点的请求处理逻辑，
包括层级定义的 CRUD、运行的启动/查询/取消、SSE 与 WebSocket
进度流，以及统一的响应/错误处理。所有 Handler 均遵循标准
net/http 接口。

# 核心类型

  - HierarchyHandler — 层级定义 CRUD
  - RunHandler       — 运行生命周期与进度流（SSE / WebSocket）
  - HealthHandler    — 服务健康检查（/health, /healthz, /ready）
  - Response         — 统一 JSON 响应结构（success + data + error + timestamp）
  - ErrorInfo        — 结构化错误信息，含 code、message、retryable 标记

# 主要能力

  - 统一响应格式：WriteSuccess / WriteError / WriteJSON 辅助函数
  - 请求验证：DecodeJSONBody（1 MB 限制 + 严格模式）
  - ErrorCode → HTTP 状态码自动映射（4xx/5xx）
  - SSE 流式输出：RunHandler.HandleStream 支持 text/event-stream
  - 可扩展健康检查：RegisterCheck 注册自定义 HealthCheck 实现
*/
package handlers
