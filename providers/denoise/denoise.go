// Package denoise 实现轻量级噪声抑制。通过滑动均值去除 16-bit PCM 的
// 直流偏置，这类偏置常见于廉价麦克风，会抬高能量 VAD 的底噪。
package denoise

import (
	"encoding/binary"

	"github.com/BaSui01/voiceloop/speech"
)

// biasSmoothing 滑动均值的平滑系数，越接近 1 偏置估计越稳定
const biasSmoothing = 0.995

// Canceller 实现 speech.NoiseCanceller。有状态，按会话独立持有。
type Canceller struct {
	bias   float64
	primed bool
}

// New 创建直流去偏置降噪器
func New() *Canceller {
	return &Canceller{}
}

// Name 返回降噪器名称
func (c *Canceller) Name() string { return "dc-removal" }

// Process 去除帧内直流分量。无法解析的帧原样返回。
func (c *Canceller) Process(frame speech.Frame) speech.Frame {
	n := len(frame.PCM) / 2
	if n == 0 {
		return frame
	}

	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(int16(binary.LittleEndian.Uint16(frame.PCM[2*i:])))
	}
	mean := sum / float64(n)

	if !c.primed {
		c.bias = mean
		c.primed = true
	} else {
		c.bias = biasSmoothing*c.bias + (1-biasSmoothing)*mean
	}

	out := make([]byte, len(frame.PCM))
	for i := 0; i < n; i++ {
		sample := float64(int16(binary.LittleEndian.Uint16(frame.PCM[2*i:]))) - c.bias
		binary.LittleEndian.PutUint16(out[2*i:], uint16(clampInt16(sample)))
	}

	cleaned := frame
	cleaned.PCM = out
	return cleaned
}

func clampInt16(v float64) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

var _ speech.NoiseCanceller = (*Canceller)(nil)
