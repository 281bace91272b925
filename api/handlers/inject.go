package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/voiceloop/seedstore"
	"github.com/BaSui01/voiceloop/types"
)

// =============================================================================
// 💉 上下文注入 Handler
// =============================================================================

// InjectHandler 处理 /inject-context 请求：把下一个会话的对话种子写入
// 共享上下文存储。响应体保持与旧版管理脚本兼容的固定格式。
type InjectHandler struct {
	store   seedstore.Store
	limiter *rate.Limiter
	logger  *zap.Logger
}

// injectRequest 注入请求体。payload 为主字段名，output 为兼容旧客户端
// 的别名，二者等价，payload 优先。
type injectRequest struct {
	Payload string `json:"payload"`
	Output  string `json:"output"`
}

// NewInjectHandler 创建上下文注入处理器。limiter 可为 nil 表示不限流。
func NewInjectHandler(store seedstore.Store, limiter *rate.Limiter, logger *zap.Logger) *InjectHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InjectHandler{
		store:   store,
		limiter: limiter,
		logger:  logger.With(zap.String("component", "inject_handler")),
	}
}

// HandleInject 处理 POST /inject-context
// @Summary 注入共享上下文
// @Description 写入下一个会话启动时消费的对话种子
// @Tags 上下文
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string "注入成功"
// @Failure 400 {object} map[string]string "缺少 payload"
// @Failure 429 {object} Response "限流"
// @Router /inject-context [post]
func (h *InjectHandler) HandleInject(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest,
			"method not allowed", h.logger)
		return
	}

	if h.limiter != nil && !h.limiter.Allow() {
		WriteErrorMessage(w, http.StatusTooManyRequests, types.ErrRateLimited,
			"too many injection requests", h.logger)
		return
	}

	var req injectRequest
	if r.Body != nil {
		// 畸形 JSON 与缺少字段等价处理，响应体保持旧版格式
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	payload := req.Payload
	if payload == "" {
		payload = req.Output
	}
	if payload == "" {
		h.logger.Warn("injection request without payload")
		h.writeLegacyError(w)
		return
	}

	if err := h.store.Write(r.Context(), payload); err != nil {
		if types.GetErrorCode(err) == types.ErrMissingPayload {
			h.writeLegacyError(w)
			return
		}
		h.logger.Error("seed store write failed", zap.Error(err))
		WriteErrorMessage(w, http.StatusInternalServerError, types.ErrInternalError,
			"failed to store context", h.logger)
		return
	}

	h.logger.Info("context injected", zap.Int("payload_len", len(payload)))
	WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Output injected successfully!",
	})
}

// writeLegacyError 写入旧版客户端依赖的固定 400 响应体
func (h *InjectHandler) writeLegacyError(w http.ResponseWriter) {
	WriteJSON(w, http.StatusBadRequest, map[string]string{
		"error": "Missing 'output' in request",
	})
}
