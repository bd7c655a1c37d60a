package testing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/ValentinKolb/kvRelay/lib/store"
	"github.com/google/go-cmp/cmp"
)

// RunStoreTests runs a comprehensive test suite for an IStore implementation.
// The factory must return an empty store that is reachable; Connect is called by the suite.
func RunStoreTests(t *testing.T, name string, factory store.Factory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, connect(t, factory))
		})

		t.Run("GetMissing", func(t *testing.T) {
			testGetMissing(t, connect(t, factory))
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, connect(t, factory))
		})

		t.Run("Increment", func(t *testing.T) {
			testIncrement(t, connect(t, factory))
		})

		t.Run("IncrementNonInteger", func(t *testing.T) {
			testIncrementNonInteger(t, connect(t, factory))
		})

		t.Run("IncrementOverflow", func(t *testing.T) {
			testIncrementOverflow(t, connect(t, factory))
		})

		t.Run("ConcurrentIncrement", func(t *testing.T) {
			testConcurrentIncrement(t, connect(t, factory))
		})

		t.Run("ListKeys", func(t *testing.T) {
			testListKeys(t, connect(t, factory))
		})

		t.Run("ListKeysEmpty", func(t *testing.T) {
			testListKeysEmpty(t, connect(t, factory))
		})

		t.Run("ListKeysPattern", func(t *testing.T) {
			testListKeysPattern(t, connect(t, factory))
		})

		t.Run("Close", func(t *testing.T) {
			testClose(t, connect(t, factory))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// connect creates a store with the factory, connects it and registers its cleanup
func connect(t testing.TB, factory store.Factory) store.IStore {
	s := factory()
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if s.State() != store.StateConnected {
		t.Fatalf("Expected state %s after Connect, got %s", store.StateConnected, s.State())
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, s store.IStore) {
	ctx := context.Background()

	stored, err := s.Set(ctx, "test-key", "test-value1")
	if err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if stored != "test-value1" {
		t.Errorf("Expected Set to return %q, got %q", "test-value1", stored)
	}

	value, found, err := s.Get(ctx, "test-key")
	if err != nil || !found {
		t.Fatalf("Expected key to exist after Set (found=%v, err=%v)", found, err)
	}
	if value != "test-value1" {
		t.Errorf("Expected value %q, got %q", "test-value1", value)
	}

	// overwrite
	if _, err := s.Set(ctx, "test-key", "test-value2"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	value, _, _ = s.Get(ctx, "test-key")
	if value != "test-value2" {
		t.Errorf("Expected overwritten value %q, got %q", "test-value2", value)
	}

	// empty values are values too
	if _, err := s.Set(ctx, "empty", ""); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	value, found, _ = s.Get(ctx, "empty")
	if !found || value != "" {
		t.Errorf("Expected empty value to be found, got %q (found=%v)", value, found)
	}
}

func testGetMissing(t *testing.T, s store.IStore) {
	_, found, err := s.Get(context.Background(), "nonexistent-key")
	if err != nil {
		t.Fatalf("Get of a missing key should not fail: %v", err)
	}
	if found {
		t.Errorf("Expected nonexistent key to return found=false")
	}
}

func testDelete(t *testing.T, s store.IStore) {
	ctx := context.Background()

	if _, err := s.Set(ctx, "delete-key", "v"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// deleting twice must succeed both times
	for i := 0; i < 2; i++ {
		if err := s.Delete(ctx, "delete-key"); err != nil {
			t.Fatalf("Delete #%d failed: %v", i+1, err)
		}
	}

	if _, found, _ := s.Get(ctx, "delete-key"); found {
		t.Errorf("Expected key to be gone after Delete")
	}

	if err := s.Delete(ctx, "never-existed"); err != nil {
		t.Errorf("Delete of a missing key should not fail: %v", err)
	}
}

func testIncrement(t *testing.T, s store.IStore) {
	ctx := context.Background()

	n, err := s.Increment(ctx, "counter", 3)
	if err != nil {
		t.Fatalf("Increment failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Expected 3 after first increment of an absent key, got %d", n)
	}

	n, _ = s.Increment(ctx, "counter", -5)
	if n != -2 {
		t.Errorf("Expected -2, got %d", n)
	}

	value, _, _ := s.Get(ctx, "counter")
	if value != "-2" {
		t.Errorf("Expected stored value %q, got %q", "-2", value)
	}

	if _, err := s.Set(ctx, "score", "10"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	n, _ = s.Increment(ctx, "score", 5)
	if n != 15 {
		t.Errorf("Expected 15, got %d", n)
	}
}

func testIncrementNonInteger(t *testing.T, s store.IStore) {
	ctx := context.Background()

	for _, value := range []string{"abc", "1.5", ""} {
		if _, err := s.Set(ctx, "not-a-number", value); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		n, err := s.Increment(ctx, "not-a-number", 7)
		if err != nil {
			t.Fatalf("Increment of %q failed: %v", value, err)
		}
		if n != 7 {
			t.Errorf("Expected %q to count as zero (result 7), got %d", value, n)
		}
	}
}

func testIncrementOverflow(t *testing.T, s store.IStore) {
	ctx := context.Background()

	tests := []struct {
		value string
		delta int64
	}{
		{"9223372036854775807", 1},
		{"-9223372036854775808", -1},
		{"9223372036854775000", 1000},
	}

	for _, tt := range tests {
		if _, err := s.Set(ctx, "overflow", tt.value); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		_, err := s.Increment(ctx, "overflow", tt.delta)
		var storeErr *store.Error
		if !errors.As(err, &storeErr) || storeErr.Code != store.RetCInvalidOperation {
			t.Errorf("Increment of %s by %d: expected an invalid operation error, got %v", tt.value, tt.delta, err)
		}

		// the stored value is left untouched
		value, _, err := s.Get(ctx, "overflow")
		if err != nil || value != tt.value {
			t.Errorf("Expected %s to stay unchanged, got %q (%v)", tt.value, value, err)
		}
	}
}

func testConcurrentIncrement(t *testing.T, s store.IStore) {
	ctx := context.Background()
	workers, perWorker := 8, 50

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				if _, err := s.Increment(ctx, "concurrent", 1); err != nil {
					t.Errorf("Increment failed: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	value, _, _ := s.Get(ctx, "concurrent")
	if want := fmt.Sprint(workers * perWorker); value != want {
		t.Errorf("Expected %s after concurrent increments, got %s", want, value)
	}
}

func testListKeys(t *testing.T, s store.IStore) {
	ctx := context.Background()

	want := []store.KeyValue{
		{Key: "a", Value: "1"},
		{Key: "b", Value: "2"},
		{Key: "c/d", Value: "3"},
	}
	for _, kv := range want {
		if _, err := s.Set(ctx, kv.Key, kv.Value); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	got, err := s.ListKeys(ctx, "")
	if err != nil {
		t.Fatalf("ListKeys failed: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ListKeys mismatch (-want +got):\n%s", diff)
	}
}

func testListKeysEmpty(t *testing.T, s store.IStore) {
	got, err := s.ListKeys(context.Background(), "*")
	if err != nil {
		t.Fatalf("ListKeys failed: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Expected an empty, non-nil list, got %#v", got)
	}
}

func testListKeysPattern(t *testing.T, s store.IStore) {
	ctx := context.Background()

	for i := 0; i < 250; i++ {
		if _, err := s.Set(ctx, fmt.Sprintf("user:%03d", i), fmt.Sprint(i)); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}
	if _, err := s.Set(ctx, "session:1", "x"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := s.ListKeys(ctx, "user:*")
	if err != nil {
		t.Fatalf("ListKeys failed: %v", err)
	}
	if len(got) != 250 {
		t.Fatalf("Expected 250 user keys, got %d", len(got))
	}
	for i, kv := range got {
		if want := fmt.Sprintf("user:%03d", i); kv.Key != want {
			t.Fatalf("Expected sorted key %s at %d, got %s", want, i, kv.Key)
		}
	}

	got, _ = s.ListKeys(ctx, "user:00?")
	if len(got) != 10 {
		t.Errorf("Expected 10 keys for user:00?, got %d", len(got))
	}

	got, _ = s.ListKeys(ctx, "session:[0-9]")
	if diff := cmp.Diff([]store.KeyValue{{Key: "session:1", Value: "x"}}, got); diff != "" {
		t.Errorf("ListKeys mismatch (-want +got):\n%s", diff)
	}
}

func testClose(t *testing.T, s store.IStore) {
	ctx := context.Background()

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, _, err := s.Get(ctx, "k"); !errors.Is(err, store.ErrStoreUnavailable) {
		t.Errorf("Expected ErrStoreUnavailable after Close, got %v", err)
	}
	if _, err := s.Set(ctx, "k", "v"); !errors.Is(err, store.ErrStoreUnavailable) {
		t.Errorf("Expected ErrStoreUnavailable after Close, got %v", err)
	}
}
