// Package rstore implements the IStore interface on top of a Redis server
// using the go-redis client. It is the store adapter used by the relay in
// production.
//
// Connection management:
//
//	go-redis pools connections and dials lazily, so on its own it never tells
//	the relay whether the backend is reachable. rstore therefore runs one
//	supervisor goroutine per store that owns an explicit state machine:
//
//	- Connect performs the first PING synchronously and then starts the
//	  supervisor. It never fails because the backend is down, the retry is
//	  scheduled instead.
//	- While reconnecting the supervisor waits min(attempt × base, ceiling)
//	  between two PINGs (50ms steps capped at 2s by default). The attempt
//	  counter resets on the first successful PING.
//	- After FailAfter consecutive failures the state reads failed. Retries
//	  continue at the ceiling delay until the context passed to Connect is done
//	  or Close is called.
//	- While connected the supervisor PINGs every HealthInterval. Operations
//	  that observe a network error nudge it for an immediate check.
//
//	Operations never wait for a reconnect: while the state is not connected
//	they fail fast with store.ErrStoreUnavailable.
//
// Operations:
//
//	- Get: GET, redis.Nil maps to found=false.
//	- Set: SET followed by GET inside one MULTI/EXEC, the stored value is returned.
//	- Delete: DEL, idempotent.
//	- Increment: a Lua script around INCRBY. It is atomic on the server, and a
//	  value that is not an integer is treated as zero (the key is reset to the
//	  delta). This avoids the lost updates of a client side read-modify-write.
//	- ListKeys: SCAN MATCH pattern COUNT ScanCount until the cursor returns to
//	  zero, de-duplicating keys, followed by one pipelined GET round trip per
//	  scan page. Keys deleted in between and non-string keys are skipped.
//
// Scalability:
//
//	ListKeys is O(N) in the size of the whole keyspace (SCAN visits every key,
//	MATCH only filters). It is a diagnostic and search primitive, not an index.
//	MaxScanKeys can be used to cap its cost on large databases.
//
// Usage Example:
//
//	s := rstore.NewRedisStore(rstore.Options{Addr: "localhost:6379"})
//	defer s.Close()
//	_ = s.Connect(ctx)
//	if _, err := s.Set(ctx, "score", "10"); errors.Is(err, store.ErrStoreUnavailable) {
//	    // backend down, retry later
//	}
package rstore
