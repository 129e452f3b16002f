package lstore

import (
	"github.com/ValentinKolb/twinkle/lib/store"
	"sync"
)

type storeImpl struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewLocalStore creates a new, empty local store instance.
func NewLocalStore() store.IStore {
	return &storeImpl{
		data: make(map[string][]byte),
	}
}

// NewLocalStoreFromMap creates a local store that takes ownership of m.
// The caller must not use m afterwards. This is used to restore a decoded snapshot without copying it again.
func NewLocalStoreFromMap(m map[string][]byte) store.IStore {
	if m == nil {
		m = make(map[string][]byte)
	}
	return &storeImpl{
		data: m,
	}
}

// clone returns a private copy of b, never nil
func clone(b []byte) []byte {
	c := make([]byte, len(b))
	copy(c, b)
	return c
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Get(key []byte) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	val, ok := s.data[string(key)]
	if !ok {
		return nil, false
	}
	return clone(val), true
}

func (s *storeImpl) Set(key, value []byte) {
	val := clone(value)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[string(key)] = val
}

func (s *storeImpl) Unset(key []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, string(key))
}

func (s *storeImpl) Snapshot() map[string][]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := make(map[string][]byte, len(s.data))
	for k, v := range s.data {
		snap[k] = clone(v)
	}
	return snap
}

func (s *storeImpl) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
