package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/voiceloop/seedstore"
)

// =============================================================================
// 🧪 InjectHandler 测试
// =============================================================================

func newInjectFixture(t *testing.T, limiter *rate.Limiter) (*InjectHandler, *seedstore.MemoryStore) {
	t.Helper()
	store := seedstore.NewMemoryStore(zap.NewNop())
	return NewInjectHandler(store, limiter, zap.NewNop()), store
}

func postInject(t *testing.T, h *InjectHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/inject-context", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.HandleInject(w, req)
	return w
}

func TestHandleInject_PayloadField(t *testing.T) {
	h, store := newInjectFixture(t, nil)

	w := postInject(t, h, `{"payload": "Ask about React experience"}`)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Output injected successfully!", resp["message"])

	payload, present := store.Peek()
	require.True(t, present)
	assert.Equal(t, "Ask about React experience", payload)
}

func TestHandleInject_OutputAlias(t *testing.T) {
	h, store := newInjectFixture(t, nil)

	w := postInject(t, h, `{"output": "legacy client payload"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	payload, present := store.Peek()
	require.True(t, present)
	assert.Equal(t, "legacy client payload", payload)
}

func TestHandleInject_PayloadWinsOverOutput(t *testing.T) {
	h, store := newInjectFixture(t, nil)

	w := postInject(t, h, `{"payload": "primary", "output": "alias"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	payload, _ := store.Peek()
	assert.Equal(t, "primary", payload)
}

func TestHandleInject_MissingPayload(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty object", `{}`},
		{"empty strings", `{"payload": "", "output": ""}`},
		{"unrelated fields", `{"text": "hello"}`},
		{"malformed json", `{not json`},
		{"empty body", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, store := newInjectFixture(t, nil)

			w := postInject(t, h, tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			// 旧版客户端依赖这个响应体，逐字节匹配
			assert.JSONEq(t, `{"error": "Missing 'output' in request"}`, w.Body.String())

			_, present := store.Peek()
			assert.False(t, present, "store must stay unchanged on a rejected request")
		})
	}
}

func TestHandleInject_LastWriteWins(t *testing.T) {
	h, store := newInjectFixture(t, nil)

	postInject(t, h, `{"payload": "first"}`)
	postInject(t, h, `{"payload": "second"}`)
	postInject(t, h, `{"payload": "third"}`)

	payload, present := store.Peek()
	require.True(t, present)
	assert.Equal(t, "third", payload)
}

func TestHandleInject_RejectedWriteLeavesStore(t *testing.T) {
	h, store := newInjectFixture(t, nil)

	postInject(t, h, `{"payload": "keep me"}`)
	w := postInject(t, h, `{}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	payload, present := store.Peek()
	require.True(t, present)
	assert.Equal(t, "keep me", payload)
}

func TestHandleInject_MethodNotAllowed(t *testing.T) {
	h, _ := newInjectFixture(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/inject-context", nil)
	w := httptest.NewRecorder()
	h.HandleInject(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestHandleInject_RateLimited(t *testing.T) {
	h, _ := newInjectFixture(t, rate.NewLimiter(rate.Limit(0), 1))

	// 桶里只有一个令牌
	w := postInject(t, h, `{"payload": "one"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = postInject(t, h, `{"payload": "two"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "RATE_LIMITED", resp.Error.Code)
}

func TestHandleInject_LargePayload(t *testing.T) {
	h, store := newInjectFixture(t, nil)

	large := strings.Repeat("x", 64*1024)
	body, err := json.Marshal(map[string]string{"payload": large})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/inject-context", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.HandleInject(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	payload, _ := store.Peek()
	assert.Len(t, payload, 64*1024)
}
