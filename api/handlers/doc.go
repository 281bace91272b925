// Copyright (c) VoiceLoop Authors.
// Licensed under the MIT License.

/*
Package handlers 提供 VoiceLoop 管理面 HTTP API 的请求处理器实现。

# 概述

handlers 包实现管理面所有 HTTP 端点的请求处理逻辑，包括共享上下文注入、
健康检查、用量汇总以及统一的响应/错误处理。管理面与语音会话的数据面
完全分离：注入的上下文只影响下一个启动的会话，从不触碰进行中的会话。
所有 Handler 均遵循标准 net/http 接口，通过 Swagger 注解生成 API 文档。

# 核心类型

  - InjectHandler    — 上下文注入处理器（/inject-context），响应体兼容旧版脚本
  - HealthHandler    — 服务健康检查（/health, /ready, /version）
  - UsageHandler     — token 与轮次用量汇总（/usage）
  - Response         — 统一 JSON 响应结构（success + data + error + timestamp）
  - ErrorInfo        — 结构化错误信息，含 code、message、retryable 标记
  - ResponseWriter   — 包装 http.ResponseWriter 以捕获状态码
  - HealthCheck      — 可插拔健康检查接口（Redis 种子存储等）

# 主要能力

  - 统一响应格式：WriteSuccess / WriteError / WriteJSON 辅助函数
  - 注入端点双字段名兼容：payload（主）与 output（旧别名）等价
  - ErrorCode → HTTP 状态码自动映射（4xx/5xx）
  - 注入端点令牌桶限流（golang.org/x/time/rate）
  - 可扩展健康检查：RegisterCheck 注册自定义 HealthCheck 实现
*/
package handlers
