package seedstore

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
)

// MemoryStore is the in-process Store implementation. The payload lives in a
// single atomically replaced slot, so a concurrent reader sees either the old
// or the new value, never a torn one. No lock is held across any I/O.
type MemoryStore struct {
	slot   atomic.Pointer[string]
	logger *zap.Logger
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryStore{
		logger: logger.With(zap.String("component", "seedstore")),
	}
}

// Write implements Store. The latest write always wins.
func (s *MemoryStore) Write(_ context.Context, payload string) error {
	if payload == "" {
		return errMissingPayload()
	}
	s.slot.Store(&payload)
	s.logger.Info("context injected", zap.Int("payload_len", len(payload)))
	return nil
}

// ReadAndConsume implements Store. The slot is swapped out atomically so
// two concurrent sessions cannot both consume the same payload.
func (s *MemoryStore) ReadAndConsume(_ context.Context) (string, bool, error) {
	p := s.slot.Swap(nil)
	if p == nil {
		return "", false, nil
	}
	return *p, true, nil
}

// Peek returns the current payload without consuming it. Test helper.
func (s *MemoryStore) Peek() (string, bool) {
	p := s.slot.Load()
	if p == nil {
		return "", false
	}
	return *p, true
}
