// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"sync"
	"time"

	"github.com/pkoukk/tiktoken-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/BaSui01/voiceloop/types"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 订阅会话指标事件，导出 Prometheus 指标并维护用量汇总。
// OnEvent 永不失败、永不阻塞调用方。
type Collector struct {
	// 会话指标
	turnsTotal         *prometheus.CounterVec
	interruptionsTotal prometheus.Counter
	stateTransitions   *prometheus.CounterVec
	sessionsActive     prometheus.Gauge

	// Provider 指标
	providerLatency *prometheus.HistogramVec
	tokensUsed      *prometheus.CounterVec

	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// 用量汇总
	mu         sync.Mutex
	summary    UsageSummary
	perSession map[string]*UsageSummary

	encoder     *tiktoken.Tiktoken
	encoderOnce sync.Once

	logger *zap.Logger
}

// UsageSummary 聚合一段时间内的用量
type UsageSummary struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
	Turns            int `json:"turns"`
	Interruptions    int `json:"interruptions"`
	TurnFailures     int `json:"turn_failures"`
}

// NewCollector 创建指标收集器
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger:     logger.With(zap.String("component", "metrics")),
		perSession: make(map[string]*UsageSummary),
	}

	// 会话指标
	c.turnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Total number of conversation turns",
		},
		[]string{"status"}, // status: success, failure
	)

	c.interruptionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interruptions_total",
			Help:      "Total number of participant interruptions",
		},
	)

	c.stateTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_state_transitions_total",
			Help:      "Total number of session state transitions",
		},
		[]string{"from_state", "to_state"},
	)

	c.sessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of sessions currently active",
		},
	)

	// Provider 指标
	c.providerLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Provider request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"provider", "operation", "status"},
	)

	c.tokensUsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_used_total",
			Help:      "Total number of tokens used",
		},
		[]string{"provider", "type"}, // type: prompt, completion
	)

	// HTTP 指标
	c.httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🎯 会话事件消费
// =============================================================================

// OnEvent 实现 types.MetricsObserver。事件按类型分发，未知类型忽略。
func (c *Collector) OnEvent(ev types.MetricsEvent) {
	switch ev.Kind {
	case types.MetricsUsage:
		c.recordUsage(ev)
	case types.MetricsLatency:
		c.recordLatency(ev)
	case types.MetricsStateChange:
		c.recordStateChange(ev)
	case types.MetricsInterruption:
		c.recordInterruption(ev)
	case types.MetricsTurnFailure:
		c.recordTurnFailure(ev)
	default:
		c.logger.Debug("ignoring unknown metrics event", zap.String("kind", string(ev.Kind)))
	}
}

func (c *Collector) recordUsage(ev types.MetricsEvent) {
	prompt := ev.PromptTokens
	completion := ev.CompletionTokens

	// Provider 未报告用量时基于文本估算
	if prompt == 0 && ev.PromptText != "" {
		prompt = c.estimateTokens(ev.PromptText)
	}
	if completion == 0 && ev.CompletionText != "" {
		completion = c.estimateTokens(ev.CompletionText)
	}

	c.tokensUsed.WithLabelValues(ev.Provider, "prompt").Add(float64(prompt))
	c.tokensUsed.WithLabelValues(ev.Provider, "completion").Add(float64(completion))

	c.mu.Lock()
	defer c.mu.Unlock()
	c.summary.PromptTokens += prompt
	c.summary.CompletionTokens += completion
	c.summary.TotalTokens += prompt + completion
	s := c.sessionSummaryLocked(ev.SessionID)
	s.PromptTokens += prompt
	s.CompletionTokens += completion
	s.TotalTokens += prompt + completion
}

func (c *Collector) recordLatency(ev types.MetricsEvent) {
	status := "success"
	if ev.Err != "" {
		status = "failure"
	}
	c.providerLatency.WithLabelValues(ev.Provider, ev.Operation, status).
		Observe(ev.Duration.Seconds())

	// 一次成功的 llm generate 即一轮成功对话
	if ev.Provider == "llm" && ev.Operation == "generate" && ev.Err == "" {
		c.turnsTotal.WithLabelValues("success").Inc()
		c.mu.Lock()
		c.summary.Turns++
		c.sessionSummaryLocked(ev.SessionID).Turns++
		c.mu.Unlock()
	}
}

func (c *Collector) recordStateChange(ev types.MetricsEvent) {
	c.stateTransitions.WithLabelValues(ev.FromState, ev.ToState).Inc()
	switch ev.ToState {
	case "active":
		c.sessionsActive.Inc()
	case "closed":
		c.sessionsActive.Dec()
	}
}

func (c *Collector) recordInterruption(ev types.MetricsEvent) {
	c.interruptionsTotal.Inc()
	c.mu.Lock()
	c.summary.Interruptions++
	c.sessionSummaryLocked(ev.SessionID).Interruptions++
	c.mu.Unlock()
}

func (c *Collector) recordTurnFailure(ev types.MetricsEvent) {
	c.turnsTotal.WithLabelValues("failure").Inc()
	c.mu.Lock()
	c.summary.TurnFailures++
	c.sessionSummaryLocked(ev.SessionID).TurnFailures++
	c.mu.Unlock()
}

func (c *Collector) sessionSummaryLocked(sessionID string) *UsageSummary {
	if sessionID == "" {
		sessionID = "unknown"
	}
	s, ok := c.perSession[sessionID]
	if !ok {
		s = &UsageSummary{}
		c.perSession[sessionID] = s
	}
	return s
}

// =============================================================================
// 🌐 HTTP 指标记录
// =============================================================================

// RecordHTTPRequest 记录 HTTP 请求
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusCode(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// =============================================================================
// 📋 用量汇总查询
// =============================================================================

// Summary 返回进程级用量汇总快照
func (c *Collector) Summary() UsageSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.summary
}

// SessionSummary 返回单个会话的用量汇总快照
func (c *Collector) SessionSummary(sessionID string) (UsageSummary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.perSession[sessionID]
	if !ok {
		return UsageSummary{}, false
	}
	return *s, true
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// estimateTokens 估算文本 token 数。编码器不可用时退化为字节数/4。
func (c *Collector) estimateTokens(text string) int {
	c.encoderOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			c.logger.Warn("token encoder unavailable, falling back to heuristic", zap.Error(err))
			return
		}
		c.encoder = enc
	})
	if c.encoder != nil {
		return len(c.encoder.Encode(text, nil, nil))
	}
	n := len(text) / 4
	if n == 0 {
		n = 1
	}
	return n
}

// statusCode 将 HTTP 状态码转换为字符串
func statusCode(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}

var _ types.MetricsObserver = (*Collector)(nil)
