package testing

import (
	"bytes"
	"fmt"
	"github.com/ValentinKolb/twinkle/lib/store"
	"sync"
	"testing"
)

// RunIStoreTests runs a comprehensive test suite for an IStore implementation.
func RunIStoreTests(t *testing.T, name string, factory store.Factory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, factory())
		})

		t.Run("Unset", func(t *testing.T) {
			testUnset(t, factory())
		})

		t.Run("CopySemantics", func(t *testing.T) {
			testCopySemantics(t, factory())
		})

		t.Run("EdgeCases", func(t *testing.T) {
			testEdgeCases(t, factory())
		})

		t.Run("Snapshot", func(t *testing.T) {
			testSnapshot(t, factory())
		})

		t.Run("Concurrent", func(t *testing.T) {
			testConcurrent(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, s store.IStore) {
	testKey := []byte("test-key")
	testValue1 := []byte("test-value1")
	testValue2 := []byte("test-value2")

	s.Set(testKey, testValue1)

	result, found := s.Get(testKey)
	if !found {
		t.Errorf("Expected key %s to exist after Set", testKey)
	}
	if !bytes.Equal(result, testValue1) {
		t.Errorf("Expected value %s, got %s", testValue1, result)
	}

	// overwrite
	s.Set(testKey, testValue2)

	result, found = s.Get(testKey)
	if !found {
		t.Errorf("Expected key %s to exist after Set", testKey)
	}
	if !bytes.Equal(result, testValue2) {
		t.Errorf("Expected value %s, got %s", testValue2, result)
	}

	if _, found = s.Get([]byte("nonexistent-key")); found {
		t.Errorf("Expected nonexistent key to return found=false")
	}

	if s.Len() != 1 {
		t.Errorf("Expected Len 1, got %d", s.Len())
	}
}

func testUnset(t *testing.T, s store.IStore) {
	testKey := []byte("unset-key")

	s.Set(testKey, []byte("value"))
	s.Unset(testKey)

	if _, found := s.Get(testKey); found {
		t.Errorf("Expected key %s to be gone after Unset", testKey)
	}

	// idempotent
	s.Unset(testKey)
	s.Unset([]byte("never-set"))

	if s.Len() != 0 {
		t.Errorf("Expected empty store, got Len %d", s.Len())
	}
}

func testCopySemantics(t *testing.T, s store.IStore) {
	key := []byte("copy-key")
	value := []byte("original")

	s.Set(key, value)

	// mutating the caller's slices must not leak into the store
	value[0] = 'X'
	key[0] = 'X'

	result, found := s.Get([]byte("copy-key"))
	if !found {
		t.Fatalf("Expected key copy-key to exist")
	}
	if !bytes.Equal(result, []byte("original")) {
		t.Errorf("Store aliases the set value, got %s", result)
	}

	// mutating the returned value must not leak into the store either
	result[0] = 'Y'
	again, _ := s.Get([]byte("copy-key"))
	if !bytes.Equal(again, []byte("original")) {
		t.Errorf("Store aliases the returned value, got %s", again)
	}
}

func testEdgeCases(t *testing.T, s store.IStore) {
	// empty key and empty value are valid entries
	s.Set([]byte{}, []byte("empty-key"))
	s.Set([]byte("empty-value"), []byte{})

	result, found := s.Get([]byte{})
	if !found || !bytes.Equal(result, []byte("empty-key")) {
		t.Errorf("Expected empty key to map to empty-key, got %s (found=%v)", result, found)
	}

	result, found = s.Get([]byte("empty-value"))
	if !found {
		t.Errorf("Expected key with empty value to be found")
	}
	if len(result) != 0 {
		t.Errorf("Expected empty value, got %s", result)
	}

	// binary keys with zero bytes
	binKey := []byte{0x00, 0xff, 0x00}
	s.Set(binKey, []byte{0x01})
	if result, found = s.Get([]byte{0x00, 0xff, 0x00}); !found || !bytes.Equal(result, []byte{0x01}) {
		t.Errorf("Expected binary key to be found")
	}

	// large value
	large := bytes.Repeat([]byte("v"), 64*1024)
	s.Set([]byte("large"), large)
	if result, _ = s.Get([]byte("large")); !bytes.Equal(result, large) {
		t.Errorf("Large value mismatch, got %d bytes", len(result))
	}
}

func testSnapshot(t *testing.T, s store.IStore) {
	for i := 0; i < 100; i++ {
		s.Set([]byte(fmt.Sprintf("key-%d", i)), []byte(fmt.Sprintf("value-%d", i)))
	}

	snap := s.Snapshot()
	if len(snap) != 100 {
		t.Fatalf("Expected snapshot with 100 entries, got %d", len(snap))
	}

	// later mutations are not visible in the snapshot
	s.Set([]byte("key-0"), []byte("changed"))
	s.Unset([]byte("key-1"))
	s.Set([]byte("key-new"), []byte("new"))

	if !bytes.Equal(snap["key-0"], []byte("value-0")) {
		t.Errorf("Snapshot observed later Set, got %s", snap["key-0"])
	}
	if _, ok := snap["key-1"]; !ok {
		t.Errorf("Snapshot observed later Unset")
	}
	if _, ok := snap["key-new"]; ok {
		t.Errorf("Snapshot observed later insert")
	}

	// mutating the snapshot does not touch the store
	snap["key-2"][0] = 'X'
	if result, _ := s.Get([]byte("key-2")); !bytes.Equal(result, []byte("value-2")) {
		t.Errorf("Snapshot aliases the store, got %s", result)
	}
}

func testConcurrent(t *testing.T, s store.IStore) {
	const (
		writers = 8
		perG    = 500
	)

	var wg sync.WaitGroup
	for g := 0; g < writers; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < perG; i++ {
				key := []byte(fmt.Sprintf("g%d-k%d", g, i))
				s.Set(key, key)
				if v, found := s.Get(key); !found || !bytes.Equal(v, key) {
					t.Errorf("Read own write failed for %s", key)
					return
				}
				if i%2 == 0 {
					s.Unset(key)
				}
			}
		}(g)
	}

	// concurrent snapshots must not race with writers
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			_ = s.Snapshot()
		}
	}()

	wg.Wait()

	if want := writers * perG / 2; s.Len() != want {
		t.Errorf("Expected %d entries after concurrent writes, got %d", want, s.Len())
	}
}
