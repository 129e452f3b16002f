// Package store defines the interface of the key-value map the server reads and mutates.
//
// The package focuses on:
//   - A unified interface (IStore) for the four operations the wire protocol needs
//     plus a consistent snapshot for persistence
//   - A Factory type so conformance tests can run against any implementation
//
// Implementations:
//
//	- Local Store (lstore): an in-memory map behind a sync.RWMutex. Mutations take the
//	  exclusive lock, reads and snapshots take the shared lock.
//	  Available in the "github.com/ValentinKolb/twinkle/lib/store/lstore" package.
//
// The conformance suite for implementations lives in
// "github.com/ValentinKolb/twinkle/lib/store/testing".
package store
