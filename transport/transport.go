// Package transport defines the boundary to whatever carries audio between
// the participant and the agent, plus a websocket implementation. The
// orchestrator never sees the wire format: it consumes inbound PCM frames
// and hands back synthesized audio.
package transport

import (
	"context"

	"github.com/BaSui01/voiceloop/speech"
)

// SubscribeMode selects which media the transport subscribes to on connect.
type SubscribeMode string

const (
	// SubscribeAudioOnly subscribes to the participant's audio track only.
	SubscribeAudioOnly SubscribeMode = "audio_only"
	// SubscribeAll subscribes to every published track.
	SubscribeAll SubscribeMode = "all"
)

// Participant identifies the connected human.
type Participant struct {
	Identity string `json:"identity"`
	Name     string `json:"name,omitempty"`
}

// Transport carries audio for one session. Implementations own the
// connection lifecycle; Close is idempotent and unblocks AudioIn.
type Transport interface {
	// Connect establishes the connection. Failure is fatal to the session.
	Connect(ctx context.Context, mode SubscribeMode) error

	// AwaitParticipant blocks until a participant joins or ctx ends.
	AwaitParticipant(ctx context.Context) (Participant, error)

	// AudioIn returns the inbound frame stream. The channel closes when
	// the connection is lost or the transport is closed.
	AudioIn() <-chan speech.Frame

	// PlayAudio streams synthesized audio to the participant, returning
	// when the chunk channel closes or ctx is cancelled.
	PlayAudio(ctx context.Context, chunks <-chan speech.AudioChunk) error

	Close() error
}
