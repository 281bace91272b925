// MockTransport 的音频通道测试模拟实现。
package mocks

import (
	"context"
	"sync"

	"github.com/BaSui01/voiceloop/speech"
	"github.com/BaSui01/voiceloop/transport"
)

// MockTransport 是 transport.Transport 的模拟实现。测试用 SendFrame 注入
// 入站音频，用 Played 检查播放过的合成音频。
type MockTransport struct {
	mu          sync.Mutex
	mode        transport.SubscribeMode
	connected   bool
	participant transport.Participant
	connectErr  error

	audioIn   chan speech.Frame
	played    [][]byte
	playCount int
	closeOnce sync.Once
}

// NewMockTransport 创建新的 MockTransport，参与者默认立即加入
func NewMockTransport() *MockTransport {
	return &MockTransport{
		participant: transport.Participant{Identity: "test-user", Name: "Test User"},
		audioIn:     make(chan speech.Frame, 256),
	}
}

// WithConnectError 设置 Connect 返回错误
func (m *MockTransport) WithConnectError(err error) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectErr = err
	return m
}

// WithParticipant 设置加入的参与者
func (m *MockTransport) WithParticipant(p transport.Participant) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.participant = p
	return m
}

// Connect 记录订阅模式
func (m *MockTransport) Connect(ctx context.Context, mode transport.SubscribeMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connectErr != nil {
		return m.connectErr
	}
	m.mode = mode
	m.connected = true
	return nil
}

// AwaitParticipant 立即返回预设参与者
func (m *MockTransport) AwaitParticipant(ctx context.Context) (transport.Participant, error) {
	select {
	case <-ctx.Done():
		return transport.Participant{}, ctx.Err()
	default:
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.participant, nil
}

// AudioIn 返回入站帧通道
func (m *MockTransport) AudioIn() <-chan speech.Frame {
	return m.audioIn
}

// PlayAudio 收集播放的音频块，ctx 取消时中止
func (m *MockTransport) PlayAudio(ctx context.Context, chunks <-chan speech.AudioChunk) error {
	m.mu.Lock()
	m.playCount++
	m.mu.Unlock()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case chunk, ok := <-chunks:
			if !ok {
				return nil
			}
			m.mu.Lock()
			m.played = append(m.played, chunk.PCM)
			m.mu.Unlock()
		}
	}
}

// Close 关闭入站通道
func (m *MockTransport) Close() error {
	m.closeOnce.Do(func() { close(m.audioIn) })
	return nil
}

// SendFrame 注入一帧入站音频
func (m *MockTransport) SendFrame(frame speech.Frame) {
	m.audioIn <- frame
}

// Mode 返回 Connect 收到的订阅模式
func (m *MockTransport) Mode() transport.SubscribeMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// Connected 返回是否已连接
func (m *MockTransport) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Played 返回已播放的音频块内容
func (m *MockTransport) Played() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.played))
	copy(out, m.played)
	return out
}

// PlayCount 返回 PlayAudio 被调用的次数
func (m *MockTransport) PlayCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playCount
}

var _ transport.Transport = (*MockTransport)(nil)
