// Package testing provides standardised tests and benchmarks for
// store implementations that satisfy the store.IStore interface.
//
// Example usage:
//
//	factory := func() store.IStore {
//		return lstore.NewLocalStore()
//	}
//
//	// Running the standard test suite
//	storetesting.RunIStoreTests(t, "LocalStore", factory)
//
//	// Running performance benchmarks
//	storetesting.RunIStoreBenchmarks(b, "LocalStore", factory)
package testing
