package testing

import (
	"fmt"
	"github.com/ValentinKolb/twinkle/lib/store"
	"sync/atomic"
	"testing"
)

// RunIStoreBenchmarks runs all benchmarks for a store implementation
func RunIStoreBenchmarks(b *testing.B, name string, factory store.Factory) {
	b.Run(name, func(b *testing.B) {
		b.Run("Set", func(b *testing.B) {
			benchmarkSet(b, factory())
		})

		b.Run("Get", func(b *testing.B) {
			benchmarkGet(b, factory())
		})

		b.Run("MixedUsage", func(b *testing.B) {
			benchmarkMixedUsage(b, factory())
		})

		b.Run("Snapshot", func(b *testing.B) {
			benchmarkSnapshot(b, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

func benchmarkSet(b *testing.B, s store.IStore) {
	var counter atomic.Uint64
	value := []byte("benchmark-value")

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			s.Set([]byte(fmt.Sprintf("key-%d", counter.Add(1))), value)
		}
	})
}

func benchmarkGet(b *testing.B, s store.IStore) {
	const keys = 10_000
	for i := 0; i < keys; i++ {
		s.Set([]byte(fmt.Sprintf("key-%d", i)), []byte("benchmark-value"))
	}

	var counter atomic.Uint64

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			s.Get([]byte(fmt.Sprintf("key-%d", counter.Add(1)%keys)))
		}
	})
}

// 80% reads, 15% writes, 5% unsets
func benchmarkMixedUsage(b *testing.B, s store.IStore) {
	const keys = 10_000
	for i := 0; i < keys; i++ {
		s.Set([]byte(fmt.Sprintf("key-%d", i)), []byte("benchmark-value"))
	}

	var counter atomic.Uint64

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			n := counter.Add(1)
			key := []byte(fmt.Sprintf("key-%d", n%keys))
			switch op := n % 100; {
			case op < 80:
				s.Get(key)
			case op < 95:
				s.Set(key, []byte("updated-value"))
			default:
				s.Unset(key)
			}
		}
	})
}

func benchmarkSnapshot(b *testing.B, s store.IStore) {
	for i := 0; i < 10_000; i++ {
		s.Set([]byte(fmt.Sprintf("key-%d", i)), []byte("benchmark-value"))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.Snapshot()
	}
}
