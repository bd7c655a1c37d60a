package lstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"sync/atomic"

	"github.com/ValentinKolb/kvRelay/lib/store"
	"github.com/puzpuzpuz/xsync/v3"
)

type storeImpl struct {
	data   *xsync.MapOf[string, string]
	closed atomic.Bool
}

// NewLocalStore creates a new local store instance.
// This store implementation keeps all data in process memory and is always
// connected until Close is called. It is meant for development and tests.
func NewLocalStore() store.IStore {
	return &storeImpl{
		data: xsync.NewMapOf[string, string](),
	}
}

// available returns ErrStoreUnavailable once the store is closed.
func (s *storeImpl) available() error {
	if s.closed.Load() {
		return store.ErrStoreUnavailable
	}
	return nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Connect(_ context.Context) error {
	return s.available()
}

func (s *storeImpl) Get(_ context.Context, key string) (string, bool, error) {
	if err := s.available(); err != nil {
		return "", false, err
	}
	val, ok := s.data.Load(key)
	return val, ok, nil
}

func (s *storeImpl) Set(_ context.Context, key, value string) (string, error) {
	if err := s.available(); err != nil {
		return "", err
	}
	s.data.Store(key, value)
	return value, nil
}

func (s *storeImpl) Delete(_ context.Context, key string) error {
	if err := s.available(); err != nil {
		return err
	}
	s.data.Delete(key)
	return nil
}

func (s *storeImpl) Increment(_ context.Context, key string, delta int64) (int64, error) {
	if err := s.available(); err != nil {
		return 0, err
	}

	// Compute holds the bucket lock for key, which makes the read-modify-write atomic
	var result int64
	var overflow bool
	s.data.Compute(key, func(old string, loaded bool) (string, bool) {
		current, err := strconv.ParseInt(old, 10, 64)
		if !loaded || err != nil {
			current = 0
		}
		if (delta > 0 && current > math.MaxInt64-delta) || (delta < 0 && current < math.MinInt64-delta) {
			// keep the old value, an absent key can not overflow
			overflow = true
			return old, !loaded
		}
		result = current + delta
		return strconv.FormatInt(result, 10), false
	})
	if overflow {
		return 0, store.NewError(store.RetCInvalidOperation, fmt.Sprintf("increment of %q by %d would overflow", key, delta))
	}
	return result, nil
}

func (s *storeImpl) ListKeys(_ context.Context, pattern string) ([]store.KeyValue, error) {
	if err := s.available(); err != nil {
		return nil, err
	}
	if pattern == "" {
		pattern = "*"
	}

	pairs := make([]store.KeyValue, 0)
	s.data.Range(func(key string, value string) bool {
		if matchPattern(key, pattern) {
			pairs = append(pairs, store.KeyValue{Key: key, Value: value})
		}
		return true
	})
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Key < pairs[j].Key })
	return pairs, nil
}

func (s *storeImpl) State() store.ConnState {
	if s.closed.Load() {
		return store.StateFailed
	}
	return store.StateConnected
}

func (s *storeImpl) Close() error {
	s.closed.Store(true)
	return nil
}
