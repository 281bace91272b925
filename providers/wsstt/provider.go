// Package wsstt 实现基于 websocket 的流式语音转写客户端。二进制消息
// 承载上行 PCM，文本消息承载下行 JSON 转写结果，兼容 deepgram 风格的
// 流式接口形态。
package wsstt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/BaSui01/voiceloop/speech"
	"github.com/BaSui01/voiceloop/types"
)

// Config 流式转写配置
type Config struct {
	// 转写服务地址 (ws:// 或 wss://)
	URL string `yaml:"url" json:"url"`
	// API 密钥，置于 Authorization 头
	APIKey string `yaml:"api_key" json:"api_key"`
	// 结果通道缓冲大小
	ResultBuffer int `yaml:"result_buffer" json:"result_buffer"`
}

// Provider 实现 speech.STTProvider
type Provider struct {
	cfg    Config
	logger *zap.Logger
}

// New 创建流式转写提供者
func New(cfg Config, logger *zap.Logger) *Provider {
	if cfg.ResultBuffer == 0 {
		cfg.ResultBuffer = 16
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		cfg:    cfg,
		logger: logger.With(zap.String("component", "ws_stt")),
	}
}

// Name 返回提供者名称
func (p *Provider) Name() string { return "ws-stt" }

// StartStream 实现 speech.STTProvider。每个会话一条独立连接。
func (p *Provider) StartStream(ctx context.Context, sampleRate int) (speech.STTStream, error) {
	url := fmt.Sprintf("%s?sample_rate=%d", p.cfg.URL, sampleRate)

	var opts *websocket.DialOptions
	if p.cfg.APIKey != "" {
		opts = &websocket.DialOptions{
			HTTPHeader: map[string][]string{
				"Authorization": {"Token " + p.cfg.APIKey},
			},
		}
	}

	conn, _, err := websocket.Dial(ctx, url, opts)
	if err != nil {
		return nil, types.NewError(types.ErrProviderTransient, "transcription dial failed").
			WithProvider(p.Name()).WithRetryable(true).WithCause(err)
	}

	s := &stream{
		conn:    conn,
		results: make(chan speech.Transcript, p.cfg.ResultBuffer),
		logger:  p.logger,
	}
	readCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.readLoop(readCtx)

	p.logger.Info("transcription stream opened",
		zap.String("url", p.cfg.URL),
		zap.Int("sample_rate", sampleRate),
	)
	return s, nil
}

// transcriptMessage 下行 JSON 结果
type transcriptMessage struct {
	Text       string  `json:"text"`
	Final      bool    `json:"final"`
	Confidence float64 `json:"confidence"`
}

type stream struct {
	conn    *websocket.Conn
	results chan speech.Transcript
	cancel  context.CancelFunc
	logger  *zap.Logger

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// Push 上行一帧 PCM
func (s *stream) Push(frame speech.Frame) error {
	if len(frame.PCM) == 0 {
		return nil
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.Write(context.Background(), websocket.MessageBinary, frame.PCM); err != nil {
		return types.NewError(types.ErrProviderTransient, "transcription push failed").
			WithProvider("ws-stt").WithRetryable(true).WithCause(err)
	}
	return nil
}

// Results 返回转写结果通道，连接断开或 Close 后关闭
func (s *stream) Results() <-chan speech.Transcript {
	return s.results
}

// Close 关闭连接与结果通道。幂等。
func (s *stream) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		_ = s.conn.Close(websocket.StatusNormalClosure, "stream closed")
	})
	return nil
}

// readLoop 消费下行结果直到连接关闭
func (s *stream) readLoop(ctx context.Context) {
	defer close(s.results)

	for {
		typ, data, err := s.conn.Read(ctx)
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Warn("transcription read failed", zap.Error(err))
			}
			return
		}
		if typ != websocket.MessageText {
			continue
		}

		var msg transcriptMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Warn("malformed transcript message", zap.Error(err))
			continue
		}

		select {
		case s.results <- speech.Transcript{
			Text:       msg.Text,
			Final:      msg.Final,
			Confidence: msg.Confidence,
			Timestamp:  time.Now(),
		}:
		case <-ctx.Done():
			return
		}
	}
}

var (
	_ speech.STTProvider = (*Provider)(nil)
	_ speech.STTStream   = (*stream)(nil)
)
