// Package openai 实现 OpenAI 及兼容后端的语言模型提供者。
// 任何暴露 /v1/chat/completions 的服务都可以通过 BaseURL 接入。
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/voiceloop/llm"
	"github.com/BaSui01/voiceloop/types"
)

// Config OpenAI 提供者配置
type Config struct {
	// API 密钥
	APIKey string `yaml:"api_key" json:"api_key"`
	// 接口基础地址
	BaseURL string `yaml:"base_url" json:"base_url"`
	// 默认模型
	Model string `yaml:"model" json:"model"`
	// 单次调用超时
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// Provider 实现 llm.Provider
type Provider struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New 创建 OpenAI 提供者实例
func New(cfg Config, logger *zap.Logger) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With(zap.String("component", "openai_provider")),
	}
}

// Name 返回提供者名称
func (p *Provider) Name() string { return "openai" }

// --- Chat Completions 协议类型 ---

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Created int64  `json:"created"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Generate 实现 llm.Provider。对话历史整体回放，可选的 per-call
// instruction 作为 system 消息插在最前。
func (p *Provider) Generate(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}

	messages := make([]chatMessage, 0, len(req.Messages)+1)
	if req.Instruction != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.Instruction})
	}
	for _, m := range req.Messages {
		messages = append(messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}

	payload, err := json.Marshal(chatRequest{Model: model, Messages: messages})
	if err != nil {
		return nil, types.NewError(types.ErrProviderFatal, "failed to encode request").
			WithProvider(p.Name()).WithCause(err)
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	endpoint := strings.TrimRight(p.cfg.BaseURL, "/") + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, types.NewError(types.ErrProviderFatal, "failed to build request").
			WithProvider(p.Name()).WithCause(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, types.NewError(types.ErrProviderTransient, "request failed").
			WithProvider(p.Name()).WithRetryable(true).WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, p.mapHTTPError(resp)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, types.NewError(types.ErrProviderTransient, "failed to decode response").
			WithProvider(p.Name()).WithRetryable(true).WithCause(err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, types.NewError(types.ErrProviderFatal, "response carries no choices").
			WithProvider(p.Name())
	}

	out := &llm.GenerateResponse{
		Text:  chatResp.Choices[0].Message.Content,
		Model: chatResp.Model,
		Usage: llm.Usage{
			PromptTokens:     chatResp.Usage.PromptTokens,
			CompletionTokens: chatResp.Usage.CompletionTokens,
			TotalTokens:      chatResp.Usage.TotalTokens,
		},
	}
	if chatResp.Created != 0 {
		out.CreatedAt = time.Unix(chatResp.Created, 0)
	}
	return out, nil
}

// mapHTTPError 把上游状态码映射为统一错误。429 与 5xx 可重试，
// 其余 4xx 视为致命。
func (p *Provider) mapHTTPError(resp *http.Response) *types.Error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := fmt.Sprintf("upstream status %d", resp.StatusCode)
	var parsed chatErrorResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		msg = parsed.Error.Message
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return types.NewError(types.ErrProviderTransient, msg).
			WithProvider(p.Name()).WithRetryable(true).WithHTTPStatus(resp.StatusCode)
	default:
		return types.NewError(types.ErrProviderFatal, msg).
			WithProvider(p.Name()).WithHTTPStatus(resp.StatusCode)
	}
}

var _ llm.Provider = (*Provider)(nil)
