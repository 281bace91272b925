package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 HealthHandler 测试
// =============================================================================

func TestHandleHealth(t *testing.T) {
	h := NewHealthHandler(zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	h.HandleHealth(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var status HealthStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "healthy", status.Status)
}

func TestHandleReady_AllChecksPass(t *testing.T) {
	h := NewHealthHandler(zap.NewNop())
	h.RegisterCheck(NewPingHealthCheck("seedstore", func(ctx context.Context) error {
		return nil
	}))

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()
	h.HandleReady(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var status HealthStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "pass", status.Checks["seedstore"].Status)
}

func TestHandleReady_FailingCheck(t *testing.T) {
	h := NewHealthHandler(zap.NewNop())
	h.RegisterCheck(NewPingHealthCheck("seedstore", func(ctx context.Context) error {
		return errors.New("connection refused")
	}))

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()
	h.HandleReady(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var status HealthStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "unhealthy", status.Status)
	assert.Equal(t, "fail", status.Checks["seedstore"].Status)
	assert.Equal(t, "connection refused", status.Checks["seedstore"].Message)
}

func TestHandleVersion(t *testing.T) {
	h := NewHealthHandler(zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	w := httptest.NewRecorder()
	h.HandleVersion("1.2.3", "2026-08-29", "abc123")(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "1.2.3", data["version"])
	assert.Equal(t, "abc123", data["git_commit"])
}
