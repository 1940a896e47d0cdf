package kv

import (
	"context"
	"errors"
	"testing"

	"github.com/lorekeep/lorekeep/internal/metrics"
)

func TestInstrumentedRecordsTimings(t *testing.T) {
	ctx := context.Background()
	mc := metrics.NewCollector()
	store := NewInstrumented(NewMemory(), mc)

	if err := store.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got, err := store.Get(ctx, "k"); err != nil || got != "v" {
		t.Fatalf("Get = %q, %v", got, err)
	}
	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(missing) error = %v, want ErrNotFound", err)
	}
	if err := store.Remove(ctx, "k"); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	snap := mc.Snapshot()
	if snap.KVRead == nil || snap.KVRead.Count != 2 {
		t.Errorf("kv read snapshot = %+v, want count 2 (misses count too)", snap.KVRead)
	}
	if snap.KVWrite == nil || snap.KVWrite.Count != 2 {
		t.Errorf("kv write snapshot = %+v, want count 2 (set and remove)", snap.KVWrite)
	}
}

func TestInstrumentedPassesErrorsThrough(t *testing.T) {
	ctx := context.Background()
	mc := metrics.NewCollector()
	store := NewInstrumented(NewMemory(), mc)

	if _, err := store.Get(ctx, "absent"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(absent) error = %v, want ErrNotFound", err)
	}
}
