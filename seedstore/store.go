// Package seedstore holds the process-wide shared context slot: the most
// recently injected conversation seed. An administrative request writes it;
// the next session to start consumes it exactly once. Later writes only ever
// affect future sessions, never an in-flight one.
package seedstore

import (
	"context"

	"github.com/BaSui01/voiceloop/types"
)

// Store is the shared context store contract. Implementations must support
// concurrent writers and readers: a write replaces the payload atomically and
// a reader never observes a partially written value. Last write wins; there
// is no queue and no history.
type Store interface {
	// Write replaces the stored payload. An empty payload fails with a
	// MISSING_PAYLOAD error and leaves the store unchanged.
	Write(ctx context.Context, payload string) error

	// ReadAndConsume returns the current payload and clears the slot.
	// The second return is false when no payload is present.
	ReadAndConsume(ctx context.Context) (string, bool, error)
}

// errMissingPayload builds the canonical empty-payload error.
func errMissingPayload() *types.Error {
	return types.NewError(types.ErrMissingPayload, "payload is empty")
}
