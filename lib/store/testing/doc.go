// Package testing provides a standardised test suite for store
// implementations that satisfy the store.IStore interface.
//
// The suite checks the contract the relay relies on: set/get round trips,
// "not found" for missing keys, idempotent deletes, increments that treat
// absent or non-integer values as zero and do not lose concurrent updates,
// and ListKeys returning sorted, pattern-filtered and never-nil results.
//
// Example usage:
//
//	// Creating a factory function for your implementation
//	factory := func() store.IStore {
//		return NewMyStore()
//	}
//
//	// Running the standard test suite
//	storetesting.RunStoreTests(t, "MyStore", factory)
package testing
