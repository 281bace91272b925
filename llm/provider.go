// Package llm defines the language-model provider contract used by the
// session turn loop, plus a resilience wrapper that retries transient
// failures with exponential backoff.
package llm

import (
	"context"
	"time"

	"github.com/BaSui01/voiceloop/types"
)

// GenerateRequest carries the full dialogue history and an optional per-call
// instruction (used for the proactive opening reply).
type GenerateRequest struct {
	Messages    []types.Message `json:"messages"`
	Instruction string          `json:"instruction,omitempty"`
	Model       string          `json:"model,omitempty"`
	Timeout     time.Duration   `json:"timeout,omitempty"`
}

// Usage reports token consumption for one generation. Providers that do not
// report usage leave it zero; the metrics collector estimates in that case.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

// GenerateResponse is the reply produced for one turn.
type GenerateResponse struct {
	Text      string    `json:"text"`
	Model     string    `json:"model,omitempty"`
	Usage     Usage     `json:"usage,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Provider is the language-model capability contract. Generate is a blocking,
// cancellable call; its latency and output are non-deterministic. Failures
// are classified through types.Error codes: PROVIDER_TRANSIENT errors may be
// retried, PROVIDER_FATAL errors end the turn immediately.
type Provider interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
	Name() string
}
