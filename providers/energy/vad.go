// Package energy 实现基于短时能量的语音活动检测。不依赖外部模型，
// 对 16-bit 小端 PCM 计算归一化 RMS 并与阈值比较，带 hangover 平滑
// 避免音节间隙被误判为静音。
package energy

import (
	"context"
	"encoding/binary"
	"math"

	"go.uber.org/zap"

	"github.com/BaSui01/voiceloop/speech"
)

// probabilityGain 把典型语音 RMS (约 0.05..0.3) 拉伸到 0..1 区间
const probabilityGain = 4.0

// Config 能量 VAD 配置
type Config struct {
	// 语音判定阈值 (0..1)
	Threshold float64 `yaml:"threshold" json:"threshold"`
	// 语音结束后维持语音判定的帧数
	HangoverFrames int `yaml:"hangover_frames" json:"hangover_frames"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Threshold:      0.6,
		HangoverFrames: 4,
	}
}

// Provider 实现 speech.VADProvider
type Provider struct {
	cfg    Config
	logger *zap.Logger
}

// New 创建能量 VAD 提供者
func New(cfg Config, logger *zap.Logger) *Provider {
	if cfg.Threshold <= 0 || cfg.Threshold >= 1 {
		cfg.Threshold = 0.6
	}
	if cfg.HangoverFrames < 0 {
		cfg.HangoverFrames = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		cfg:    cfg,
		logger: logger.With(zap.String("component", "energy_vad")),
	}
}

// Name 返回提供者名称
func (p *Provider) Name() string { return "energy" }

// Load 实现预热钩子。能量检测无模型可加载。
func (p *Provider) Load(ctx context.Context) error {
	p.logger.Debug("energy vad ready, nothing to load")
	return nil
}

// NewStream 创建会话级检测流
func (p *Provider) NewStream(sampleRate int) speech.VADStream {
	return &stream{cfg: p.cfg}
}

type stream struct {
	cfg      Config
	hangover int
}

// Process 对单帧计算活动观测。空帧视为静音。
func (s *stream) Process(frame speech.Frame) speech.Activity {
	prob := probability(frame.PCM)
	voiced := prob >= s.cfg.Threshold

	if voiced {
		s.hangover = s.cfg.HangoverFrames
	} else if s.hangover > 0 {
		// 音节间短暂低能量仍算语音
		s.hangover--
		voiced = true
	}

	return speech.Activity{
		Speech:      voiced,
		Probability: prob,
		At:          frame.Timestamp,
	}
}

// Reset 清空平滑状态
func (s *stream) Reset() {
	s.hangover = 0
}

// probability 计算归一化短时能量
func probability(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		sample := int16(binary.LittleEndian.Uint16(pcm[2*i:]))
		v := float64(sample) / 32768.0
		sum += v * v
	}
	rms := math.Sqrt(sum / float64(n))
	p := rms * probabilityGain
	if p > 1 {
		p = 1
	}
	return p
}

var _ speech.VADProvider = (*Provider)(nil)
