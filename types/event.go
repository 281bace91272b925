package types

import "time"

// MetricsKind classifies a metrics event.
type MetricsKind string

const (
	MetricsUsage        MetricsKind = "usage"
	MetricsLatency      MetricsKind = "latency"
	MetricsStateChange  MetricsKind = "state_change"
	MetricsInterruption MetricsKind = "interruption"
	MetricsTurnFailure  MetricsKind = "turn_failure"
)

// MetricsEvent is an ephemeral per-turn event produced by provider calls and
// the session state machine. It is consumed immediately by the metrics
// collector and never persisted by the core.
type MetricsEvent struct {
	Kind      MetricsKind `json:"kind"`
	SessionID string      `json:"session_id"`
	Turn      int         `json:"turn"`

	// Provider call dimensions (usage / latency events).
	Provider  string        `json:"provider,omitempty"` // llm, stt, tts
	Operation string        `json:"operation,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
	Err       string        `json:"error,omitempty"`

	// Token usage (usage events). Zero when the provider reports none;
	// the collector may estimate in that case.
	PromptTokens     int    `json:"prompt_tokens,omitempty"`
	CompletionTokens int    `json:"completion_tokens,omitempty"`
	PromptText       string `json:"-"`
	CompletionText   string `json:"-"`

	// State transition dimensions (state_change events).
	FromState string `json:"from_state,omitempty"`
	ToState   string `json:"to_state,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// MetricsObserver receives metrics events. Implementations must never block
// the caller and must swallow internal failures.
type MetricsObserver interface {
	OnEvent(ev MetricsEvent)
}
