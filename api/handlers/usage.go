package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/BaSui01/voiceloop/internal/metrics"
	"github.com/BaSui01/voiceloop/types"
)

// =============================================================================
// 📋 用量汇总 Handler
// =============================================================================

// UsageHandler 暴露指标收集器维护的用量汇总
type UsageHandler struct {
	collector *metrics.Collector
	logger    *zap.Logger
}

// NewUsageHandler 创建用量汇总处理器
func NewUsageHandler(collector *metrics.Collector, logger *zap.Logger) *UsageHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UsageHandler{
		collector: collector,
		logger:    logger.With(zap.String("component", "usage_handler")),
	}
}

// HandleUsage 处理 GET /usage
// @Summary 用量汇总
// @Description 返回进程级或单会话的 token 与轮次用量
// @Tags 用量
// @Produce json
// @Param session_id query string false "会话 ID"
// @Success 200 {object} Response "用量汇总"
// @Failure 404 {object} Response "会话不存在"
// @Router /usage [get]
func (h *UsageHandler) HandleUsage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest,
			"method not allowed", h.logger)
		return
	}

	if sessionID := r.URL.Query().Get("session_id"); sessionID != "" {
		summary, ok := h.collector.SessionSummary(sessionID)
		if !ok {
			WriteErrorMessage(w, http.StatusNotFound, types.ErrInvalidRequest,
				"unknown session", h.logger)
			return
		}
		WriteSuccess(w, summary)
		return
	}

	WriteSuccess(w, h.collector.Summary())
}
