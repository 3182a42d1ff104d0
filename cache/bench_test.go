package cache

import (
	"math/rand"
	"strconv"
	"sync/atomic"
	"testing"
	"time"
)

// benchmarkMix exercises a read/write mix against a warm LRU cache.
// It uses parallel workers (RunParallel spawns GOMAXPROCS goroutines).
// String keys include strconv/concat costs and often allocate, which is
// fine for an end-to-end benchmark.
func benchmarkMix(b *testing.B, readsPct int) {
	c := NewLRU[string, string](100_000, Options[string, string]{Capacity: 100_000})

	// Preload half the bound to get a realistic hit-rate.
	for i := 0; i < 50_000; i++ {
		c.Insert("k:"+strconv.Itoa(i), "v")
	}

	b.ReportAllocs()
	b.ResetTimer()

	var seed int64 = 1
	keyMask := (1 << 16) - 1 // hot keyspace (power of two for fast &-mask)

	b.RunParallel(func(pb *testing.PB) {
		// Independent RNG stream for each worker.
		r := rand.New(rand.NewSource(atomic.AddInt64(&seed, 1)))
		i := 0
		for pb.Next() {
			k := "k:" + strconv.Itoa(i&keyMask)
			if r.Intn(100) < readsPct {
				c.Get(k)
			} else {
				c.Insert(k, "v")
			}
			i++
		}
	})
}

func BenchmarkLRU_90r10w(b *testing.B) { benchmarkMix(b, 90) }
func BenchmarkLRU_50r50w(b *testing.B) { benchmarkMix(b, 50) }

// benchmarkMixInt is the same workload but with int keys on the
// no-policy cache. This removes strconv/alloc noise and better exposes
// the table hot path (shared-lock reads, no policy touch).
func benchmarkMixInt(b *testing.B, readsPct int) {
	c := New[int, int](0, Options[int, int]{Capacity: 100_000})

	for i := 0; i < 50_000; i++ {
		c.Insert(i, 1)
	}

	b.ReportAllocs()
	b.ResetTimer()

	var seed int64 = 1
	keyMask := (1 << 16) - 1

	b.RunParallel(func(pb *testing.PB) {
		r := rand.New(rand.NewSource(atomic.AddInt64(&seed, 1)))
		i := 0
		for pb.Next() {
			k := i & keyMask
			if r.Intn(100) < readsPct {
				c.Get(k)
			} else {
				c.Insert(k, 1)
			}
			i++
		}
	})
}

func BenchmarkCache_IntKeys_90r10w(b *testing.B) { benchmarkMixInt(b, 90) }
func BenchmarkCache_IntKeys_50r50w(b *testing.B) { benchmarkMixInt(b, 50) }

func BenchmarkTTL_Insert(b *testing.B) {
	c := NewTTL[int, int](100_000, time.Minute, Options[int, int]{Capacity: 100_000})
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Insert(i&((1<<16)-1), i)
	}
}

func BenchmarkLFU_EvictScan(b *testing.B) {
	// Every insert past the bound pays a victim scan; this measures it.
	c := NewLFU[int, int](10_000, Options[int, int]{Capacity: 10_000})
	for i := 0; i < 10_000; i++ {
		c.Insert(i, i)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Insert(10_000+i, i)
	}
}
