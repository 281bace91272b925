package seedstore

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"pgregory.net/rapid"
)

// Property: for any sequence of non-empty writes W1..Wn followed by a read,
// the read returns exactly Wn, and a subsequent read finds the slot empty.
func TestMemoryStore_LastWriteWinsProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		store := NewMemoryStore(zap.NewNop())
		ctx := context.Background()

		writes := rapid.SliceOfN(
			rapid.StringMatching(`[a-zA-Z0-9 .,!?]{1,64}`), 1, 32,
		).Draw(rt, "writes")

		for _, w := range writes {
			if err := store.Write(ctx, w); err != nil {
				rt.Fatalf("write %q failed: %v", w, err)
			}
		}

		got, ok, err := store.ReadAndConsume(ctx)
		if err != nil {
			rt.Fatalf("read failed: %v", err)
		}
		if !ok {
			rt.Fatalf("expected payload after %d writes", len(writes))
		}
		if want := writes[len(writes)-1]; got != want {
			rt.Fatalf("got %q, want last write %q", got, want)
		}

		if _, ok, _ := store.ReadAndConsume(ctx); ok {
			rt.Fatalf("slot should be empty after consume")
		}
	})
}
