// 语音能力提供商的测试模拟实现：STT、TTS、VAD 与降噪。
package mocks

import (
	"context"
	"sync"

	"github.com/BaSui01/voiceloop/speech"
)

// =============================================================================
// 🎤 MockSTT
// =============================================================================

// MockSTT 是 speech.STTProvider 的模拟实现。测试通过 Stream() 取到活动流后
// 用 EmitFinal 注入转写结果。
type MockSTT struct {
	mu      sync.Mutex
	streams []*MockSTTStream
	err     error
}

// NewMockSTT 创建新的 MockSTT
func NewMockSTT() *MockSTT { return &MockSTT{} }

// WithError 设置 StartStream 返回错误
func (m *MockSTT) WithError(err error) *MockSTT {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// Name 返回 Provider 名称
func (m *MockSTT) Name() string { return "mock-stt" }

// StartStream 打开新的转写流
func (m *MockSTT) StartStream(ctx context.Context, sampleRate int) (speech.STTStream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	s := &MockSTTStream{results: make(chan speech.Transcript, 16)}
	m.streams = append(m.streams, s)
	return s, nil
}

// Stream 返回第 i 个已打开的流，尚未打开时返回 nil
func (m *MockSTT) Stream(i int) *MockSTTStream {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i >= len(m.streams) {
		return nil
	}
	return m.streams[i]
}

// MockSTTStream 是单个转写会话的模拟流
type MockSTTStream struct {
	mu      sync.Mutex
	frames  []speech.Frame
	results chan speech.Transcript
	closed  bool
}

// Push 记录推入的音频帧
func (s *MockSTTStream) Push(frame speech.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, frame)
	return nil
}

// Results 返回转写结果通道
func (s *MockSTTStream) Results() <-chan speech.Transcript {
	return s.results
}

// Close 关闭流并关闭结果通道
func (s *MockSTTStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.results)
	}
	return nil
}

// EmitFinal 注入一条最终转写结果
func (s *MockSTTStream) EmitFinal(text string) {
	s.results <- speech.Transcript{Text: text, Final: true, Confidence: 0.95}
}

// EmitPartial 注入一条中间转写结果
func (s *MockSTTStream) EmitPartial(text string) {
	s.results <- speech.Transcript{Text: text, Final: false, Confidence: 0.5}
}

// FrameCount 返回已推入的帧数
func (s *MockSTTStream) FrameCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

// =============================================================================
// 🔊 MockTTS
// =============================================================================

// MockTTS 是 speech.TTSProvider 的模拟实现。合成结果是文本字节本身，
// hold 模式下通道保持打开直到 ctx 取消，用于打断测试。
type MockTTS struct {
	mu        sync.Mutex
	hold      bool
	err       error
	requests  []string
	cancelled int
}

// NewMockTTS 创建新的 MockTTS
func NewMockTTS() *MockTTS { return &MockTTS{} }

// WithHold 设置合成流保持打开直到取消
func (m *MockTTS) WithHold() *MockTTS {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hold = true
	return m
}

// WithError 设置 Synthesize 返回错误
func (m *MockTTS) WithError(err error) *MockTTS {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// Name 返回 Provider 名称
func (m *MockTTS) Name() string { return "mock-tts" }

// Synthesize 生成音频流
func (m *MockTTS) Synthesize(ctx context.Context, text string) (<-chan speech.AudioChunk, error) {
	m.mu.Lock()
	m.requests = append(m.requests, text)
	hold, err := m.hold, m.err
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	ch := make(chan speech.AudioChunk, 1)
	go func() {
		defer close(ch)
		select {
		case ch <- speech.AudioChunk{PCM: []byte(text), SampleRate: 16000, Final: !hold}:
		case <-ctx.Done():
			m.recordCancel()
			return
		}
		if hold {
			<-ctx.Done()
			m.recordCancel()
		}
	}()
	return ch, nil
}

func (m *MockTTS) recordCancel() {
	m.mu.Lock()
	m.cancelled++
	m.mu.Unlock()
}

// Requests 返回所有合成请求文本
func (m *MockTTS) Requests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.requests...)
}

// CancelCount 返回被取消的合成次数
func (m *MockTTS) CancelCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancelled
}

// =============================================================================
// 📈 MockVAD
// =============================================================================

// MockVAD 是 speech.VADProvider 的模拟实现。帧 PCM 非空视为语音
// (概率 0.9)，空帧视为静音 (概率 0.1)，观测时间取帧时间戳。
type MockVAD struct {
	mu     sync.Mutex
	loaded bool
}

// NewMockVAD 创建新的 MockVAD
func NewMockVAD() *MockVAD { return &MockVAD{} }

// Name 返回 Provider 名称
func (m *MockVAD) Name() string { return "mock-vad" }

// Load 标记模型已预热
func (m *MockVAD) Load(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaded = true
	return nil
}

// Loaded 返回是否已预热
func (m *MockVAD) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded
}

// NewStream 创建新的检测流
func (m *MockVAD) NewStream(sampleRate int) speech.VADStream {
	return &mockVADStream{}
}

type mockVADStream struct{}

func (s *mockVADStream) Process(frame speech.Frame) speech.Activity {
	if len(frame.PCM) > 0 {
		return speech.Activity{Speech: true, Probability: 0.9, At: frame.Timestamp}
	}
	return speech.Activity{Speech: false, Probability: 0.1, At: frame.Timestamp}
}

func (s *mockVADStream) Reset() {}

// =============================================================================
// 🔇 MockNC
// =============================================================================

// MockNC 记录经过降噪的帧数，音频原样透传
type MockNC struct {
	mu     sync.Mutex
	frames int
}

// NewMockNC 创建新的 MockNC
func NewMockNC() *MockNC { return &MockNC{} }

// Name 返回名称
func (m *MockNC) Name() string { return "mock-nc" }

// Process 透传音频帧
func (m *MockNC) Process(frame speech.Frame) speech.Frame {
	m.mu.Lock()
	m.frames++
	m.mu.Unlock()
	return frame
}

// FrameCount 返回处理过的帧数
func (m *MockNC) FrameCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frames
}

var (
	_ speech.STTProvider    = (*MockSTT)(nil)
	_ speech.STTStream      = (*MockSTTStream)(nil)
	_ speech.TTSProvider    = (*MockTTS)(nil)
	_ speech.VADProvider    = (*MockVAD)(nil)
	_ speech.NoiseCanceller = (*MockNC)(nil)
)
