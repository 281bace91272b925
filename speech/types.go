// Package speech defines the capability provider contracts for the audio
// path: speech-to-text, text-to-speech, voice activity detection, and noise
// cancellation. The session state machine depends only on these interfaces;
// concrete providers are selected at session construction time.
package speech

import (
	"context"
	"time"
)

// Frame is a chunk of raw PCM audio flowing through the pipeline.
type Frame struct {
	PCM        []byte    `json:"-"`
	SampleRate int       `json:"sample_rate"`
	Channels   int       `json:"channels"`
	Timestamp  time.Time `json:"timestamp"`
}

// Transcript is an incremental or final speech-to-text result.
type Transcript struct {
	Text       string    `json:"text"`
	Final      bool      `json:"final"`
	Confidence float64   `json:"confidence,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// AudioChunk is a chunk of synthesized speech audio.
type AudioChunk struct {
	PCM        []byte    `json:"-"`
	SampleRate int       `json:"sample_rate"`
	Final      bool      `json:"final"`
	Timestamp  time.Time `json:"timestamp"`
}

// Activity is a frame-level voice activity observation.
type Activity struct {
	Speech      bool      `json:"speech"`
	Probability float64   `json:"probability"`
	At          time.Time `json:"at"`
}

// =============================================================================
// Provider contracts
// =============================================================================

// STTProvider opens streaming transcription sessions.
type STTProvider interface {
	// StartStream opens a transcription stream for one audio source.
	StartStream(ctx context.Context, sampleRate int) (STTStream, error)
	Name() string
}

// STTStream is one streaming transcription session. Push and Results may be
// used from different goroutines; Close releases the stream and closes the
// results channel.
type STTStream interface {
	Push(frame Frame) error
	Results() <-chan Transcript
	Close() error
}

// TTSProvider converts text to streaming audio. Synthesize returns as soon as
// the stream is set up; audio arrives on the returned channel and the channel
// is closed when synthesis finishes or ctx is cancelled. Cancelling ctx stops
// an in-flight synthesis, which is how interruptions are implemented.
type TTSProvider interface {
	Synthesize(ctx context.Context, text string) (<-chan AudioChunk, error)
	Name() string
}

// VADProvider creates per-stream voice activity detectors. Load gives the
// provider a chance to fetch its model ahead of the first session (prewarm);
// implementations for which loading is a no-op may return nil immediately.
type VADProvider interface {
	Load(ctx context.Context) error
	NewStream(sampleRate int) VADStream
	Name() string
}

// VADStream is a stateful per-session detector. Process is called
// synchronously in the audio loop and must not block.
type VADStream interface {
	Process(frame Frame) Activity
	Reset()
}

// NoiseCanceller cleans inbound audio frames before they reach VAD and STT.
// No failure mode is modeled: implementations return the input unchanged
// when they cannot improve it.
type NoiseCanceller interface {
	Process(frame Frame) Frame
	Name() string
}

// PassthroughNC is the no-op noise canceller used when cancellation is
// disabled.
type PassthroughNC struct{}

func (PassthroughNC) Process(frame Frame) Frame { return frame }
func (PassthroughNC) Name() string              { return "passthrough" }
