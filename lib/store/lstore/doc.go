// Package lstore implements a local, non-networked version of the IStore
// interface defined in the store package. It is selected with
// `kvrelay serve --store memory` and backs the relay's own test-suite.
//
// Storage:
//
//	All pairs live in an xsync.MapOf, a concurrent hash map that shards its
//	keys internally, so reads never block and writes only contend per bucket.
//
// Increment:
//
//	Increment uses MapOf.Compute, which runs the read-parse-add-write sequence
//	while holding the lock of the key's bucket. Concurrent increments of the
//	same key therefore never lose updates, mirroring the atomic server side
//	script used by the Redis store.
//
// ListKeys:
//
//	ListKeys ranges over the map and matches keys with the same glob syntax as
//	Redis' SCAN MATCH (*, ?, [...], escaping with \). Unlike path.Match a '*'
//	also spans '/'. Range gives no snapshot guarantee, which is the same
//	best-effort contract the Redis SCAN based implementation provides.
//
// Connection State:
//
//	The store is always StateConnected until Close is called. After Close every
//	operation fails with store.ErrStoreUnavailable, which makes it useful to
//	exercise the relay's unavailable path without a real backend.
//
// Usage Example:
//
//	s := lstore.NewLocalStore()
//	_ = s.Connect(ctx)
//	stored, err := s.Set(ctx, "score", "10")
//	n, err := s.Increment(ctx, "score", 5) // n == 15
package lstore
