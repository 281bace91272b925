// Copyright (c) VoiceLoop Authors.
// Licensed under the MIT License.

/*
Package main 提供 VoiceLoop 语音代理程序入口。

# 概述

cmd/voiceloop 是语音会话编排器的可执行入口。serve 子命令同时启动
两条路径：数据面 worker 循环（连接房间、接待参与者、运行回合循环）
和管理面 HTTP 服务（上下文注入、健康检查、用量查询、Prometheus
指标）。程序支持 YAML 配置文件加载、环境变量覆盖和结构化日志（zap）。

# 核心类型

  - Server         — 主服务器，管理 worker 循环与管理面端口的生命周期
  - Middleware     — HTTP 中间件函数签名 func(http.Handler) http.Handler
  - responseWriter — 包装 http.ResponseWriter 以捕获状态码

# 主要能力

  - 子命令：serve（启动服务）、version、health
  - 中间件链：Recovery、RequestID、SecurityHeaders、RequestLogger、
    MetricsMiddleware
  - 管理面路由：/inject-context、/health、/ready、/version、/usage、/metrics
  - worker 循环：会话结束后按 reconnect_delay 重连，直到收到关闭信号
  - 优雅关闭：信号监听 → 关闭管理面 → 取消会话 → Wait
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
