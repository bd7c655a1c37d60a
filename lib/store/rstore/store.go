package rstore

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/kvRelay/lib/store"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/redis/go-redis/v9"
)

var (
	log = logger.GetLogger("store")
)

// incrementScript adds ARGV[1] to KEYS[1] atomically. INCRBY rejects values
// that are not integers, in that case the value counts as zero and the key is
// reset to the delta. Other errors (e.g. WRONGTYPE, overflow) are returned as is.
var incrementScript = redis.NewScript(`
local res = redis.pcall('INCRBY', KEYS[1], ARGV[1])
if type(res) == 'table' and res.err then
	if string.find(res.err, 'not an integer', 1, true) then
		redis.call('SET', KEYS[1], ARGV[1])
		return redis.call('INCRBY', KEYS[1], 0)
	end
	return res
end
return res
`)

// Options configures the redis store.
type Options struct {
	// Addr is the host:port of the redis server (required)
	Addr     string
	Username string
	Password string
	DB       int

	// ConnectTimeout bounds dialing and every health check ping
	ConnectTimeout time.Duration
	// MaxRetries is passed to go-redis (-1 disables its internal retries)
	MaxRetries int

	// BackoffBase and BackoffCeiling define the reconnect delay min(attempt × base, ceiling)
	BackoffBase    time.Duration
	BackoffCeiling time.Duration
	// HealthInterval is the time between two health checks while connected
	HealthInterval time.Duration
	// FailAfter is the number of consecutive failed attempts after which the state
	// reads failed instead of reconnecting (0 = never). Retries continue either way.
	FailAfter int

	// ScanCount is the COUNT hint passed to every SCAN call
	ScanCount int64
	// MaxScanKeys truncates ListKeys after that many keys (0 = unbounded)
	MaxScanKeys int

	// OnStateChange is called by the supervisor on every state transition
	OnStateChange func(from, to store.ConnState)
}

// withDefaults returns a copy of the options with all unset fields filled in.
func (o Options) withDefaults() Options {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 10 * time.Second
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = 50 * time.Millisecond
	}
	if o.BackoffCeiling <= 0 {
		o.BackoffCeiling = 2 * time.Second
	}
	if o.HealthInterval <= 0 {
		o.HealthInterval = 5 * time.Second
	}
	if o.ScanCount <= 0 {
		o.ScanCount = 100
	}
	return o
}

// storeImpl is the concrete implementation of the redis store.
// It encapsulates a go-redis client (which pools connections internally)
// and the supervisor that owns the connection state.
type storeImpl struct {
	client *redis.Client
	opts   Options

	state  atomic.Int32
	closed atomic.Bool
	kick   chan struct{}

	startOnce sync.Once
	closeOnce sync.Once
	// mu guards cancel and orders it with closed
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRedisStore creates a new store backed by the redis server at opts.Addr.
// No connection is made before Connect is called.
func NewRedisStore(opts Options) store.IStore {
	opts = opts.withDefaults()
	s := &storeImpl{
		client: redis.NewClient(&redis.Options{
			Addr:        opts.Addr,
			Username:    opts.Username,
			Password:    opts.Password,
			DB:          opts.DB,
			DialTimeout: opts.ConnectTimeout,
			MaxRetries:  opts.MaxRetries,
		}),
		opts: opts,
		kick: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	s.state.Store(int32(store.StateReconnecting))
	return s
}

// --------------------------------------------------------------------------
// Internal helpers (used by interface methods)
// --------------------------------------------------------------------------

// available fails fast with ErrStoreUnavailable if the store is not connected.
func (s *storeImpl) available() error {
	if s.closed.Load() || s.State() != store.StateConnected {
		return store.ErrStoreUnavailable
	}
	return nil
}

// wrap converts a go-redis error into a *store.Error.
// Network level errors nudge the supervisor and are reported as unavailable,
// replies of the server (e.g. WRONGTYPE) are internal errors.
func (s *storeImpl) wrap(err error) error {
	if isConnectionError(err) {
		s.nudge()
		return store.NewError(store.RetCStoreUnavailable, err.Error())
	}
	return store.NewError(store.RetCInternalError, err.Error())
}

// isConnectionError reports whether err was caused by the connection rather than by the server's reply.
func isConnectionError(err error) bool {
	if err == nil || errors.Is(err, redis.Nil) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var redisErr redis.Error
	return !errors.As(err, &redisErr)
}

// isWrongType reports whether err is the server's WRONGTYPE reply
func isWrongType(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "WRONGTYPE")
}

// isOverflow reports whether err is the server's reply to an increment past the int64 range
func isOverflow(err error) bool {
	return err != nil && strings.Contains(err.Error(), "would overflow")
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Connect(ctx context.Context) error {
	s.startOnce.Do(func() {
		s.mu.Lock()
		if s.closed.Load() {
			s.mu.Unlock()
			return
		}
		runCtx, cancel := context.WithCancel(ctx)
		s.cancel = cancel
		s.mu.Unlock()

		// the first attempt is synchronous so the state is known before the relay starts listening.
		// Once cancel is set the supervisor is always started, Close waits for it to finish.
		attempt := s.attempt(runCtx, 0)
		if attempt > 0 && runCtx.Err() == nil {
			log.Warningf("initial connection to redis at %s failed, retrying in the background", s.opts.Addr)
		}
		go s.supervise(runCtx, attempt)
	})
	if s.closed.Load() {
		return store.ErrStoreUnavailable
	}
	return nil
}

func (s *storeImpl) Get(ctx context.Context, key string) (string, bool, error) {
	if err := s.available(); err != nil {
		return "", false, err
	}
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, s.wrap(err)
	}
	return val, true, nil
}

func (s *storeImpl) Set(ctx context.Context, key, value string) (string, error) {
	if err := s.available(); err != nil {
		return "", err
	}

	// write and re-read in one MULTI/EXEC so the reply shows what is stored
	var get *redis.StringCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, value, 0)
		get = pipe.Get(ctx, key)
		return nil
	})
	if err != nil {
		return "", s.wrap(err)
	}
	return get.Val(), nil
}

func (s *storeImpl) Delete(ctx context.Context, key string) error {
	if err := s.available(); err != nil {
		return err
	}
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return s.wrap(err)
	}
	return nil
}

func (s *storeImpl) Increment(ctx context.Context, key string, delta int64) (int64, error) {
	if err := s.available(); err != nil {
		return 0, err
	}
	val, err := incrementScript.Run(ctx, s.client, []string{key}, delta).Int64()
	if isOverflow(err) {
		return 0, store.NewError(store.RetCInvalidOperation, err.Error())
	}
	if err != nil {
		return 0, s.wrap(err)
	}
	return val, nil
}

func (s *storeImpl) ListKeys(ctx context.Context, pattern string) ([]store.KeyValue, error) {
	if err := s.available(); err != nil {
		return nil, err
	}
	if pattern == "" {
		pattern = "*"
	}

	// SCAN may return a key more than once, seen de-duplicates
	seen := make(map[string]struct{})
	pairs := make([]store.KeyValue, 0)

	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, s.opts.ScanCount).Result()
		if err != nil {
			return nil, s.wrap(err)
		}

		fresh := make([]string, 0, len(keys))
		for _, key := range keys {
			if _, ok := seen[key]; ok {
				continue
			}
			if s.opts.MaxScanKeys > 0 && len(seen) >= s.opts.MaxScanKeys {
				break
			}
			seen[key] = struct{}{}
			fresh = append(fresh, key)
		}

		page, err := s.fetchValues(ctx, fresh)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, page...)

		if s.opts.MaxScanKeys > 0 && len(seen) >= s.opts.MaxScanKeys {
			log.Warningf("ListKeys(%q) truncated after %d keys", pattern, s.opts.MaxScanKeys)
			break
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Key < pairs[j].Key })
	return pairs, nil
}

// fetchValues reads the values of one scan page with a single pipelined round trip.
// Keys deleted since the scan and keys that do not hold a string are skipped.
func (s *storeImpl) fetchValues(ctx context.Context, keys []string) ([]store.KeyValue, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.StringCmd, len(keys))
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, key := range keys {
			cmds[i] = pipe.Get(ctx, key)
		}
		return nil
	})
	// Pipelined reports the first failed command, per-key errors are handled below
	if err != nil && isConnectionError(err) {
		return nil, s.wrap(err)
	}

	pairs := make([]store.KeyValue, 0, len(keys))
	for i, cmd := range cmds {
		val, err := cmd.Result()
		switch {
		case errors.Is(err, redis.Nil):
			continue
		case isWrongType(err):
			log.Debugf("ListKeys: skipping non-string key %q", keys[i])
			continue
		case err != nil:
			return nil, s.wrap(err)
		}
		pairs = append(pairs, store.KeyValue{Key: keys[i], Value: val})
	}
	return pairs, nil
}

func (s *storeImpl) State() store.ConnState {
	return store.ConnState(s.state.Load())
}

func (s *storeImpl) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed.Store(true)
		cancel := s.cancel
		s.mu.Unlock()

		if cancel != nil {
			cancel()
			<-s.done
		}
		err = s.client.Close()
	})
	return err
}
