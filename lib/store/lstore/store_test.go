package lstore

import (
	"context"
	"errors"
	"testing"

	"github.com/ValentinKolb/kvRelay/lib/store"
	storetesting "github.com/ValentinKolb/kvRelay/lib/store/testing"
)

func Test(t *testing.T) {
	storetesting.RunStoreTests(t, "LocalStore", func() store.IStore {
		return NewLocalStore()
	})
}

func TestClose(t *testing.T) {
	ctx := context.Background()
	s := NewLocalStore()
	if err := s.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if got := s.State(); got != store.StateConnected {
		t.Fatalf("expected state %s, got %s", store.StateConnected, got)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	// closing twice is fine
	if err := s.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}

	if got := s.State(); got != store.StateFailed {
		t.Errorf("expected state %s after close, got %s", store.StateFailed, got)
	}
	if _, _, err := s.Get(ctx, "k"); !errors.Is(err, store.ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}
	if _, err := s.Increment(ctx, "k", 1); !errors.Is(err, store.ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}
}
