package store

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// Factory is a function type that creates a new store.
// This is used to abstract the creation of the store from the code that runs the conformance tests.
type Factory func() IStore

// IStore is the generic interface for interacting with the key–value store behind the server.
// Keys and values are opaque byte sequences. All operations are total, there is no error return.
//
// Implementations must be safe for concurrent use and must copy values on the way in and out,
// so callers never alias the memory of the store.
type IStore interface {
	// Get returns the value for a key. The boolean return value indicates whether a value for the key was found.
	Get(key []byte) (value []byte, found bool)
	// Set inserts or overwrites a key–value pair.
	Set(key, value []byte)
	// Unset removes a key–value pair. Removing an absent key is a no-op.
	Unset(key []byte)
	// Snapshot returns a consistent point-in-time deep copy of all entries.
	// No mutation is observed half-applied in the returned map.
	Snapshot() map[string][]byte
	// Len returns the number of entries.
	Len() int
}
