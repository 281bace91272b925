package transport

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

// WSConfig 配置 websocket 音频通道
type WSConfig struct {
	// 房间 URL (ws:// 或 wss://)
	URL string `yaml:"url" json:"url"`
	// PCM 采样率
	SampleRate int `yaml:"sample_rate" json:"sample_rate"`
	// 声道数
	Channels int `yaml:"channels" json:"channels"`
	// 入站帧缓冲大小
	FrameBuffer int `yaml:"frame_buffer" json:"frame_buffer"`
}

// DefaultWSConfig 返回默认通道配置
func DefaultWSConfig() WSConfig {
	return WSConfig{
		SampleRate:  16000,
		Channels:    1,
		FrameBuffer: 256,
	}
}

// envelope is the JSON control message exchanged on the text channel.
// Binary messages carry raw PCM in both directions.
type envelope struct {
	Type     string `json:"type"` // subscribe, join, leave
	Mode     string `json:"mode,omitempty"`
	Identity string `json:"identity,omitempty"`
	Name     string `json:"name,omitempty"`
}

// WSTransport is the websocket Transport implementation.
type WSTransport struct {
	cfg    WSConfig
	logger *zap.Logger

	conn    *websocket.Conn
	audioIn chan speech.Frame
	joined  chan Participant
	left    chan struct{}

	readCancel context.CancelFunc
	closeOnce  sync.Once
	writeMu    sync.Mutex
}

// NewWSTransport creates an unconnected websocket transport.
func NewWSTransport(cfg WSConfig, logger *zap.Logger) *WSTransport {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels == 0 {
		cfg.Channels = 1
	}
	if cfg.FrameBuffer == 0 {
		cfg.FrameBuffer = 256
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSTransport{
		cfg:     cfg,
		logger:  logger.With(zap.String("component", "ws_transport")),
		audioIn: make(chan speech.Frame, cfg.FrameBuffer),
		joined:  make(chan Participant, 1),
		left:    make(chan struct{}),
	}
}

// Connect implements Transport.
func (t *WSTransport) Connect(ctx context.Context, mode SubscribeMode) error {
	conn, _, err := websocket.Dial(ctx, t.cfg.URL, nil)
	if err != nil {
		return types.NewError(types.ErrTransportConnection, "websocket dial failed").WithCause(err)
	}
	t.conn = conn

	sub, _ := json.Marshal(envelope{Type: "subscribe", Mode: string(mode)})
	if err := conn.Write(ctx, websocket.MessageText, sub); err != nil {
		_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
		return types.NewError(types.ErrTransportConnection, "subscribe failed").WithCause(err)
	}

	readCtx, cancel := context.WithCancel(context.Background())
	t.readCancel = cancel
	go t.readLoop(readCtx)

	t.logger.Info("transport connected",
		zap.String("url", t.cfg.URL),
		zap.String("mode", string(mode)),
	)
	return nil
}

// AwaitParticipant implements Transport.
func (t *WSTransport) AwaitParticipant(ctx context.Context) (Participant, error) {
	select {
	case p := <-t.joined:
		return p, nil
	case <-t.left:
		return Participant{}, types.NewError(types.ErrTransportConnection, "connection lost before participant joined")
	case <-ctx.Done():
		return Participant{}, ctx.Err()
	}
}

// AudioIn implements Transport.
func (t *WSTransport) AudioIn() <-chan speech.Frame {
	return t.audioIn
}

// PlayAudio implements Transport. Cancelling ctx stops playback mid-stream,
// which is how interruptions reach the wire.
func (t *WSTransport) PlayAudio(ctx context.Context, chunks <-chan speech.AudioChunk) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case chunk, ok := <-chunks:
			if !ok {
				return nil
			}
			if len(chunk.PCM) == 0 {
				continue
			}
			t.writeMu.Lock()
			err := t.conn.Write(ctx, websocket.MessageBinary, chunk.PCM)
			t.writeMu.Unlock()
			if err != nil {
				return types.NewError(types.ErrTransportConnection, "audio write failed").WithCause(err)
			}
		}
	}
}

// Close implements Transport. Safe to call multiple times.
func (t *WSTransport) Close() error {
	t.closeOnce.Do(func() {
		if t.readCancel != nil {
			t.readCancel()
		}
		if t.conn != nil {
			_ = t.conn.Close(websocket.StatusNormalClosure, "session closed")
		}
	})
	return nil
}

// readLoop pumps inbound messages: text envelopes carry participant events,
// binary messages carry PCM frames. The audio channel closes when the
// connection drops, which the session treats as participant disconnect.
func (t *WSTransport) readLoop(ctx context.Context) {
	defer close(t.audioIn)
	defer func() {
		select {
		case <-t.left:
		default:
			close(t.left)
		}
	}()

	for {
		typ, data, err := t.conn.Read(ctx)
		if err != nil {
			if ctx.Err() == nil {
				t.logger.Warn("transport read failed", zap.Error(err))
			}
			return
		}

		switch typ {
		case websocket.MessageText:
			var env envelope
			if err := json.Unmarshal(data, &env); err != nil {
				t.logger.Warn("malformed control message", zap.Error(err))
				continue
			}
			t.handleEnvelope(env)
		case websocket.MessageBinary:
			frame := speech.Frame{
				PCM:        data,
				SampleRate: t.cfg.SampleRate,
				Channels:   t.cfg.Channels,
				Timestamp:  time.Now(),
			}
			select {
			case t.audioIn <- frame:
			default:
				// Frame buffer full: drop oldest-first behavior is not
				// worth a ring buffer here; dropping the newest frame
				// keeps the pipeline live under backpressure.
				t.logger.Debug("inbound frame dropped, buffer full")
			}
		}
	}
}

func (t *WSTransport) handleEnvelope(env envelope) {
	switch env.Type {
	case "join":
		p := Participant{Identity: env.Identity, Name: env.Name}
		select {
		case t.joined <- p:
			t.logger.Info("participant joined", zap.String("identity", p.Identity))
		default:
		}
	case "leave":
		t.logger.Info("participant left", zap.String("identity", env.Identity))
	default:
		t.logger.Debug("ignoring control message", zap.String("type", env.Type))
	}
}

var _ Transport = (*WSTransport)(nil)

// String implements fmt.Stringer for log friendliness.
func (t *WSTransport) String() string {
	return fmt.Sprintf("ws(%s)", t.cfg.URL)
}
