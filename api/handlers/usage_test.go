package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/voiceloop/internal/metrics"
	"github.com/BaSui01/voiceloop/types"
)

var usageNamespaceSeq uint64

func newUsageCollector() *metrics.Collector {
	seq := atomic.AddUint64(&usageNamespaceSeq, 1)
	return metrics.NewCollector(fmt.Sprintf("usage_test_%d", seq), zap.NewNop())
}

// =============================================================================
// 🧪 UsageHandler 测试
// =============================================================================

func TestHandleUsage_Overall(t *testing.T) {
	collector := newUsageCollector()
	collector.OnEvent(types.MetricsEvent{
		Kind: types.MetricsUsage, SessionID: "s1",
		Provider: "llm", PromptTokens: 120, CompletionTokens: 40,
	})

	h := NewUsageHandler(collector, zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/usage", nil)
	w := httptest.NewRecorder()
	h.HandleUsage(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool                 `json:"success"`
		Data    metrics.UsageSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 120, resp.Data.PromptTokens)
	assert.Equal(t, 160, resp.Data.TotalTokens)
}

func TestHandleUsage_PerSession(t *testing.T) {
	collector := newUsageCollector()
	collector.OnEvent(types.MetricsEvent{
		Kind: types.MetricsUsage, SessionID: "s1",
		Provider: "llm", PromptTokens: 10, CompletionTokens: 5,
	})
	collector.OnEvent(types.MetricsEvent{
		Kind: types.MetricsUsage, SessionID: "s2",
		Provider: "llm", PromptTokens: 100, CompletionTokens: 50,
	})

	h := NewUsageHandler(collector, zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/usage?session_id=s1", nil)
	w := httptest.NewRecorder()
	h.HandleUsage(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data metrics.UsageSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 15, resp.Data.TotalTokens)
}

func TestHandleUsage_UnknownSession(t *testing.T) {
	h := NewUsageHandler(newUsageCollector(), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/usage?session_id=nope", nil)
	w := httptest.NewRecorder()
	h.HandleUsage(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleUsage_MethodNotAllowed(t *testing.T) {
	h := NewUsageHandler(newUsageCollector(), zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/usage", nil)
	w := httptest.NewRecorder()
	h.HandleUsage(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
