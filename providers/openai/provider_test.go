package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/voiceloop/llm"
	"github.com/BaSui01/voiceloop/types"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{APIKey: "test-key", BaseURL: srv.URL, Model: "test-model"}, zap.NewNop())
}

func TestGenerate_Success(t *testing.T) {
	var gotBody chatRequest
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		json.NewEncoder(w).Encode(map[string]any{
			"id":    "resp-1",
			"model": "test-model",
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "Hello!"}, "finish_reason": "stop"},
			},
			"usage": map[string]int{"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15},
		})
	})

	resp, err := p.Generate(context.Background(), llm.GenerateRequest{
		Messages: []types.Message{types.NewUserMessage("hi")},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello!", resp.Text)
	assert.Equal(t, 12, resp.Usage.PromptTokens)
	assert.Equal(t, 15, resp.Usage.TotalTokens)

	require.Len(t, gotBody.Messages, 1)
	assert.Equal(t, "user", gotBody.Messages[0].Role)
}

func TestGenerate_InstructionBecomesSystemMessage(t *testing.T) {
	var gotBody chatRequest
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "ok"}},
			},
		})
	})

	_, err := p.Generate(context.Background(), llm.GenerateRequest{
		Instruction: "Greet the user warmly.",
		Messages:    []types.Message{types.NewUserMessage("hi")},
	})
	require.NoError(t, err)

	require.Len(t, gotBody.Messages, 2)
	assert.Equal(t, "system", gotBody.Messages[0].Role)
	assert.Equal(t, "Greet the user warmly.", gotBody.Messages[0].Content)
	assert.Equal(t, "user", gotBody.Messages[1].Role)
}

func TestGenerate_RateLimitIsRetryable(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"message": "rate limit exceeded", "type": "rate_limit_error"},
		})
	})

	_, err := p.Generate(context.Background(), llm.GenerateRequest{})
	require.Error(t, err)
	assert.Equal(t, types.ErrProviderTransient, types.GetErrorCode(err))
	assert.True(t, types.IsRetryable(err))
	assert.Contains(t, err.Error(), "rate limit exceeded")
}

func TestGenerate_AuthFailureIsFatal(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"message": "invalid api key"},
		})
	})

	_, err := p.Generate(context.Background(), llm.GenerateRequest{})
	require.Error(t, err)
	assert.Equal(t, types.ErrProviderFatal, types.GetErrorCode(err))
	assert.False(t, types.IsRetryable(err))
}

func TestGenerate_ServerErrorIsRetryable(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := p.Generate(context.Background(), llm.GenerateRequest{})
	require.Error(t, err)
	assert.True(t, types.IsRetryable(err))
}

func TestGenerate_EmptyChoicesIsFatal(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	})

	_, err := p.Generate(context.Background(), llm.GenerateRequest{})
	require.Error(t, err)
	assert.Equal(t, types.ErrProviderFatal, types.GetErrorCode(err))
}

func TestGenerate_ContextCancelled(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Generate(ctx, llm.GenerateRequest{})
	require.Error(t, err)
}

func TestNew_Defaults(t *testing.T) {
	p := New(Config{}, nil)
	assert.Equal(t, "https://api.openai.com", p.cfg.BaseURL)
	assert.Equal(t, "gpt-4o-mini", p.cfg.Model)
	assert.NotZero(t, p.cfg.Timeout)
}
