// Package lstore implements a local, in-memory key-value store based on the
// store.IStore interface.
//
// Implementation Details:
//
//   - Locking: every operation holds a sync.RWMutex for its whole duration. Set and Unset
//     take the write lock, Get, Len and Snapshot the read lock. Nothing calls out of the
//     package while a lock is held.
//
//   - Copy Semantics: values are copied when stored and when returned. A snapshot is a deep
//     copy, the snapshot task can serialize it without holding the lock.
//
// Usage Example:
//
//	s := lstore.NewLocalStore()
//	s.Set([]byte("foo"), []byte("bar"))
//	value, found := s.Get([]byte("foo"))
//
// Persistence is not handled here. The server restores a store with NewLocalStoreFromMap
// from a decoded snapshot and writes snapshots through the snapshot package.
package lstore
