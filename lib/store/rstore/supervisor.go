package rstore

import (
	"context"
	"time"

	"github.com/ValentinKolb/kvRelay/lib/store"
)

// Backoff returns the delay before retry number attempt (starting at 1):
// attempt × base, capped at ceiling. Non-positive attempts yield zero.
func Backoff(attempt int, base, ceiling time.Duration) time.Duration {
	if attempt <= 0 || base <= 0 {
		return 0
	}
	// compare before multiplying, attempt × base may overflow
	if int64(attempt) > int64(ceiling/base) {
		return ceiling
	}
	return time.Duration(attempt) * base
}

// --------------------------------------------------------------------------
// Connection supervisor
// --------------------------------------------------------------------------

/*
	Note: The supervisor goroutine is the only code that writes the connection state.
	Operations only read the state (fail fast when not connected) and nudge the
	supervisor via the kick channel when they observe a network error, so a dead
	connection is detected without waiting for the next health check.

	   reconnecting --ping ok--> connected --ping failed--> reconnecting
	   reconnecting --fail-after attempts--> failed --ping ok--> connected
*/

// supervise runs until ctx is done. attempt is the number of consecutive
// failed attempts made so far (0 means the store is connected).
func (s *storeImpl) supervise(ctx context.Context, attempt int) {
	defer close(s.done)

	for {
		// While connected wait for the next health check or a kick,
		// otherwise wait for the backoff delay. A nil channel never fires.
		var kick <-chan struct{}
		wait := Backoff(attempt, s.opts.BackoffBase, s.opts.BackoffCeiling)
		if attempt == 0 {
			kick = s.kick
			wait = s.opts.HealthInterval
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-kick:
			timer.Stop()
		case <-timer.C:
		}

		attempt = s.attempt(ctx, attempt)
	}
}

// attempt pings the backend once, transitions the state accordingly and
// returns the new number of consecutive failures.
func (s *storeImpl) attempt(ctx context.Context, attempt int) int {
	pingCtx, cancel := context.WithTimeout(ctx, s.opts.ConnectTimeout)
	err := s.client.Ping(pingCtx).Err()
	cancel()

	if err == nil {
		if attempt > 0 || s.State() != store.StateConnected {
			log.Infof("connected to redis at %s", s.opts.Addr)
		}
		s.setState(store.StateConnected)
		return 0
	}

	// shutting down, keep the state as is
	if ctx.Err() != nil {
		return attempt
	}

	attempt++
	next := store.StateReconnecting
	if s.opts.FailAfter > 0 && attempt >= s.opts.FailAfter {
		next = store.StateFailed
	}
	s.setState(next)
	log.Warningf("redis at %s unreachable (attempt %d, state %s, next retry in %s): %v",
		s.opts.Addr, attempt, next, Backoff(attempt, s.opts.BackoffBase, s.opts.BackoffCeiling), err)
	return attempt
}

// setState stores the new state and reports transitions to the OnStateChange hook.
func (s *storeImpl) setState(next store.ConnState) {
	prev := store.ConnState(s.state.Swap(int32(next)))
	if prev != next && s.opts.OnStateChange != nil {
		s.opts.OnStateChange(prev, next)
	}
}

// nudge asks the supervisor for an immediate health check without blocking.
func (s *storeImpl) nudge() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}
