// MockLLM 的语言模型提供商测试模拟实现。
//
// 支持固定响应、错误注入与自定义生成函数场景。
package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/BaSui01/voiceloop/llm"
)

// MockLLM 是 llm.Provider 的模拟实现
type MockLLM struct {
	mu sync.RWMutex

	// 响应配置
	response string
	usage    llm.Usage
	err      error

	// 调用记录
	calls        []MockLLMCall
	generateFunc func(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error)

	// 行为控制
	failFirst int // 前 N 次调用失败
	callCount int
}

// MockLLMCall 记录单次调用
type MockLLMCall struct {
	Request  llm.GenerateRequest
	Response *llm.GenerateResponse
	Error    error
}

// NewMockLLM 创建新的 MockLLM
func NewMockLLM() *MockLLM {
	return &MockLLM{
		response: "Mock reply",
		usage:    llm.Usage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30},
	}
}

// WithResponse 设置固定响应内容
func (m *MockLLM) WithResponse(response string) *MockLLM {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response = response
	return m
}

// WithError 设置返回错误
func (m *MockLLM) WithError(err error) *MockLLM {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithUsage 设置 Token 使用量
func (m *MockLLM) WithUsage(prompt, completion int) *MockLLM {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usage = llm.Usage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      prompt + completion,
	}
	return m
}

// WithFailFirst 设置前 N 次调用失败（配合 err 使用）
func (m *MockLLM) WithFailFirst(n int, err error) *MockLLM {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failFirst = n
	m.err = err
	return m
}

// WithGenerateFunc 设置自定义生成函数
func (m *MockLLM) WithGenerateFunc(fn func(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error)) *MockLLM {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generateFunc = fn
	return m
}

// Name 返回 Provider 名称
func (m *MockLLM) Name() string { return "mock" }

// Generate 生成响应
func (m *MockLLM) Generate(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	m.mu.Lock()
	m.callCount++
	count := m.callCount

	if m.generateFunc != nil {
		fn := m.generateFunc
		m.mu.Unlock()
		resp, err := fn(ctx, req)
		m.mu.Lock()
		m.calls = append(m.calls, MockLLMCall{Request: req, Response: resp, Error: err})
		m.mu.Unlock()
		return resp, err
	}

	if m.err != nil && (m.failFirst == 0 || count <= m.failFirst) {
		err := m.err
		m.calls = append(m.calls, MockLLMCall{Request: req, Error: err})
		m.mu.Unlock()
		return nil, err
	}

	resp := &llm.GenerateResponse{
		Text:      m.response,
		Model:     "mock-model",
		Usage:     m.usage,
		CreatedAt: time.Now(),
	}
	m.calls = append(m.calls, MockLLMCall{Request: req, Response: resp})
	m.mu.Unlock()
	return resp, nil
}

// GetCalls 获取所有调用记录
func (m *MockLLM) GetCalls() []MockLLMCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]MockLLMCall{}, m.calls...)
}

// GetCallCount 获取调用次数
func (m *MockLLM) GetCallCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.callCount
}

// GetLastCall 获取最后一次调用
func (m *MockLLM) GetLastCall() *MockLLMCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.calls) == 0 {
		return nil
	}
	call := m.calls[len(m.calls)-1]
	return &call
}

var _ llm.Provider = (*MockLLM)(nil)
