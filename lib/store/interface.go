package store

import (
	"context"
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// KeyValue is a single key–value pair as returned by ListKeys.
type KeyValue struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// IStore is the generic interface for interacting with the backing key–value store.
// One instance is shared by every connection of the relay. All methods are safe
// for concurrent use and every blocking method takes a context.
type IStore interface {
	// Connect starts the connection management of the store and returns immediately.
	// Implementations keep (re)connecting in the background until ctx is done or Close is called.
	Connect(ctx context.Context) (err error)
	// Get returns the value for a key. The boolean return value indicates whether a value for the key was found.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// Set unconditionally overwrites the value of a key and returns the value as it is stored afterward.
	Set(ctx context.Context, key, value string) (stored string, err error)
	// Delete removes a key. Deleting a key that does not exist is not an error.
	Delete(ctx context.Context, key string) (err error)
	// Increment adds delta to the integer stored at key and returns the new value.
	// Absent or non-integer values count as zero. The operation is atomic per key.
	Increment(ctx context.Context, key string, delta int64) (value int64, err error)
	// ListKeys enumerates every key matching the glob pattern ("" means every key) together with its value.
	// The enumeration is O(N) in the size of the keyspace and gives no snapshot guarantee:
	// keys written or deleted during the scan may or may not be part of the result.
	// The result is sorted by key.
	ListKeys(ctx context.Context, pattern string) (pairs []KeyValue, err error)
	// State returns the current health of the connection to the backing store.
	State() ConnState
	// Close stops the connection management and releases the underlying client.
	Close() (err error)
}

// Factory is a function type that creates a new store.
// It is used by the conformance tests to get a fresh store per test case.
type Factory func() IStore

// --------------------------------------------------------------------------
// Connection State
// --------------------------------------------------------------------------

// ConnState is the health of the connection between a store and its backend.
type ConnState int32

const (
	StateReconnecting ConnState = iota // no connection, the next attempt is pending
	StateConnected                     // the backend answered the last health check
	StateFailed                        // several consecutive attempts failed, retries continue
)

func (s ConnState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("KVStoreError (code %s): %s", e.Code, e.Msg)
}

// Is reports whether target is a *Error with the same code,
// so errors.Is(err, ErrStoreUnavailable) matches every unavailable error.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewError creates a new KVStoreError with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// ErrStoreUnavailable is returned by every operation while the store is not connected.
var ErrStoreUnavailable = NewError(RetCStoreUnavailable, "store unavailable")

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess              RetCode = iota // 0: Command executed successfully.
	RetCInternalError                       // 1: Command failed due to an internal error.
	RetCUnsupportedOperation                // 2: Operation is not supported by underlying store.
	RetCInvalidOperation                    // 3: Invalid operation.
	RetCStoreUnavailable                    // 4: No connection to the backing store.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCUnsupportedOperation:
		return "UnsupportedOperation"
	case RetCInvalidOperation:
		return "InvalidOperation"
	case RetCStoreUnavailable:
		return "StoreUnavailable"
	default:
		return "Unknown"
	}
}
