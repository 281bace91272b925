package denoise

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/voiceloop/speech"
)

func pcmOf(samples ...int16) []byte {
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[2*i:], uint16(s))
	}
	return pcm
}

func samplesOf(pcm []byte) []int16 {
	out := make([]int16, len(pcm)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(pcm[2*i:]))
	}
	return out
}

func TestProcess_RemovesConstantOffset(t *testing.T) {
	c := New()

	// 恒定 +1000 偏置，首帧用帧均值直接归零
	frame := speech.Frame{PCM: pcmOf(1000, 1000, 1000, 1000), SampleRate: 16000}
	got := samplesOf(c.Process(frame).PCM)

	for _, s := range got {
		assert.InDelta(t, 0, float64(s), 1)
	}
}

func TestProcess_PreservesSignalShape(t *testing.T) {
	c := New()

	// 偏置 500 上叠加 ±200 方波
	frame := speech.Frame{PCM: pcmOf(700, 300, 700, 300), SampleRate: 16000}
	got := samplesOf(c.Process(frame).PCM)

	require.Len(t, got, 4)
	assert.InDelta(t, 200, float64(got[0]), 1)
	assert.InDelta(t, -200, float64(got[1]), 1)
}

func TestProcess_EmptyFrameUnchanged(t *testing.T) {
	c := New()

	frame := speech.Frame{SampleRate: 16000}
	assert.Equal(t, frame, c.Process(frame))
}

func TestProcess_DoesNotMutateInput(t *testing.T) {
	c := New()

	pcm := pcmOf(1000, 1000)
	orig := append([]byte(nil), pcm...)
	c.Process(speech.Frame{PCM: pcm})

	assert.Equal(t, orig, pcm)
}

func TestProcess_BiasTracksSlowly(t *testing.T) {
	c := New()
	c.Process(speech.Frame{PCM: pcmOf(1000, 1000)})
	first := c.bias

	// 后续帧均值变化只缓慢影响估计
	c.Process(speech.Frame{PCM: pcmOf(2000, 2000)})
	assert.Greater(t, c.bias, first)
	assert.Less(t, c.bias, 1100.0)
}

func TestProcess_ClampsExtremes(t *testing.T) {
	c := New()
	c.Process(speech.Frame{PCM: pcmOf(-10000, -10000)})

	// 负偏置下满幅样本会越界，必须钳制在 int16 范围
	got := samplesOf(c.Process(speech.Frame{PCM: pcmOf(32767, 32767)}).PCM)
	for _, s := range got {
		assert.Equal(t, int16(32767), s)
	}
}
