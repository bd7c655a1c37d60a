// Package store provides the interface between the relay and its backing
// key-value store, together with the unified error handling and connection
// state shared by all implementations.
//
// The package focuses on:
//   - A unified interface (IStore) for the five operations the relay needs:
//     Get, Set, Delete, Increment and ListKeys
//   - An explicit connection state (connected, reconnecting, failed) that
//     callers can observe but never mutate
//
// Key Components:
//
//   - IStore Interface: The core abstraction defining operations for interacting
//     with the backing store. A single instance is created at startup and shared
//     by every client connection; there are no per-connection store sessions and
//     no caching in front of the store, the backend is the single source of truth.
//
//   - Error System: A structured error reporting mechanism using typed error codes
//     and descriptive messages. ErrStoreUnavailable is returned (fail fast) by every
//     operation while the store is not connected. errors.Is compares codes, so
//     wrapped and freshly created errors with the same code match.
//
//   - ConnState: The health of the connection, owned by the implementation's
//     own connection management.
//
// Implementations:
//
//	The package includes two implementations of the IStore interface:
//
//	- Redis Store (rstore): The production adapter. It wraps a go-redis client,
//	  drives reconnection with a capped linear backoff from a single supervisor
//	  goroutine, increments atomically with a server side script and enumerates
//	  the keyspace with SCAN.
//	  Available in the "github.com/ValentinKolb/kvRelay/lib/store/rstore" package.
//
//	- Local Store (lstore): An in-process implementation on a concurrent map. It is
//	  always connected until closed and is used for development and tests.
//	  Available in the "github.com/ValentinKolb/kvRelay/lib/store/lstore" package.
//
// ListKeys is a last-resort diagnostic and search primitive: it enumerates the
// whole keyspace and fetches every value individually. It is not an index and is
// unsuitable for large keyspaces.
package store
