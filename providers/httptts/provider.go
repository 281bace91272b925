// Package httptts 实现基于 HTTP 的语音合成提供者。POST JSON 请求，
// 响应体为原始 PCM 字节流，按固定大小切块投递，便于下游边到边播放。
package httptts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/voiceloop/speech"
	"github.com/BaSui01/voiceloop/types"
)

// Config 合成提供者配置
type Config struct {
	// 合成服务地址
	URL string `yaml:"url" json:"url"`
	// 发音人
	Voice string `yaml:"voice" json:"voice"`
	// 输出采样率
	SampleRate int `yaml:"sample_rate" json:"sample_rate"`
	// 单块 PCM 字节数
	ChunkSize int `yaml:"chunk_size" json:"chunk_size"`
	// 请求超时
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// DefaultConfig 返回默认配置。3200 字节对应 16kHz 单声道 100ms 音频。
func DefaultConfig() Config {
	return Config{
		Voice:      "default",
		SampleRate: 16000,
		ChunkSize:  3200,
		Timeout:    30 * time.Second,
	}
}

// Provider 实现 speech.TTSProvider
type Provider struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New 创建合成提供者
func New(cfg Config, logger *zap.Logger) *Provider {
	def := DefaultConfig()
	if cfg.Voice == "" {
		cfg.Voice = def.Voice
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = def.SampleRate
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = def.ChunkSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With(zap.String("component", "http_tts")),
	}
}

// Name 返回提供者名称
func (p *Provider) Name() string { return "http-tts" }

type synthesizeRequest struct {
	Text       string `json:"text"`
	Voice      string `json:"voice"`
	SampleRate int    `json:"sample_rate"`
}

// Synthesize 实现 speech.TTSProvider。建立响应流后立即返回，音频块
// 在后台读取并写入通道；取消 ctx 中止合成并关闭通道。
func (p *Provider) Synthesize(ctx context.Context, text string) (<-chan speech.AudioChunk, error) {
	payload, err := json.Marshal(synthesizeRequest{
		Text:       text,
		Voice:      p.cfg.Voice,
		SampleRate: p.cfg.SampleRate,
	})
	if err != nil {
		return nil, types.NewError(types.ErrProviderFatal, "failed to encode request").
			WithProvider(p.Name()).WithCause(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, types.NewError(types.ErrProviderFatal, "failed to build request").
			WithProvider(p.Name()).WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, types.NewError(types.ErrProviderTransient, "synthesis request failed").
			WithProvider(p.Name()).WithRetryable(true).WithCause(err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		resp.Body.Close()
		return nil, p.mapHTTPError(resp.StatusCode, body)
	}

	out := make(chan speech.AudioChunk, 8)
	go p.streamBody(ctx, resp.Body, out)
	return out, nil
}

// streamBody 把响应体切块写入通道，结束后关闭
func (p *Provider) streamBody(ctx context.Context, body io.ReadCloser, out chan<- speech.AudioChunk) {
	defer close(out)
	defer body.Close()

	buf := make([]byte, p.cfg.ChunkSize)
	for {
		n, err := io.ReadFull(body, buf)
		if n > 0 {
			pcm := make([]byte, n)
			copy(pcm, buf[:n])
			chunk := speech.AudioChunk{
				PCM:        pcm,
				SampleRate: p.cfg.SampleRate,
				Final:      err != nil,
				Timestamp:  time.Now(),
			}
			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			if err != io.EOF && err != io.ErrUnexpectedEOF && ctx.Err() == nil {
				p.logger.Warn("synthesis stream ended abnormally", zap.Error(err))
			}
			return
		}
	}
}

// mapHTTPError 把上游状态码映射为统一错误。429 与 5xx 可重试。
func (p *Provider) mapHTTPError(status int, body []byte) *types.Error {
	msg := fmt.Sprintf("upstream status %d", status)
	if len(body) > 0 {
		msg = fmt.Sprintf("%s: %s", msg, bytes.TrimSpace(body))
	}
	if status == http.StatusTooManyRequests || status >= 500 {
		return types.NewError(types.ErrProviderTransient, msg).
			WithProvider(p.Name()).WithRetryable(true).WithHTTPStatus(status)
	}
	return types.NewError(types.ErrProviderFatal, msg).
		WithProvider(p.Name()).WithHTTPStatus(status)
}

var _ speech.TTSProvider = (*Provider)(nil)
