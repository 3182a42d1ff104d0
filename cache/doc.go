// Package cache provides fast, generic, bounded in-memory caches with a
// map-like surface and a choice of eviction policies. Seven cache types
// share one open-addressed hash-table substrate and differ only in the
// auxiliary structure their policy maintains:
//
//   - Cache      — no eviction; inserting past maxsize fails with ErrOverflow
//   - FIFOCache  — evicts in insertion order
//   - LRUCache   — evicts the least recently used entry
//   - LFUCache   — evicts the least frequently used entry
//   - RRCache    — evicts a uniformly random entry
//   - TTLCache   — uniform time-to-live, oldest entries expire first
//   - VTTLCache  — per-entry time-to-live chosen at insert
//
// # Design
//
//   - Storage: every cache owns one open-addressed table with cached
//     64-bit hashes, linear probing and backward-shift deletion. Entries
//     live in a stable arena, so the policy rings and deadline sequences
//     reference them by slot index and survive rehashing.
//
//   - Concurrency: a single RWMutex per cache. Plain reads share the
//     lock; mutations hold it exclusively. Reads that touch policy state
//     (LRU/LFU promotion, lazy expiry) are mutations and lock exclusively
//     too. Peek on LRU/LFU reads without touching.
//
//   - Iteration: Keys/Values return snapshots; Items returns an
//     iterator pinned to the cache generation that fails with
//     ErrConcurrentModification if the cache is mutated mid-walk.
//
//   - Expiry: TTL/VTTL remove expired entries lazily — on the mutating
//     operation that observes them due, or on an explicit Expire call.
//     Expired entries are never returned, counted or iterated.
//
//   - Metrics: Options.Metrics receives Hit/Miss/Evict/Size signals;
//     NoopMetrics is the default and a Prometheus adapter lives in
//     metrics/prom.
//
//   - Serialization: Save/Load stream a cache, policy state included,
//     in a versioned msgpack-based format.
//
// # Basic usage
//
//	c := cache.NewLRU[string, int](10_000, cache.Options[string, int]{})
//	c.Insert("a", 1)
//	if v, ok := c.Get("a"); ok {
//	    _ = v
//	}
//
// # With a uniform TTL
//
//	c := cache.NewTTL[string, string](1024, 200*time.Millisecond, cache.Options[string, string]{})
//	c.Insert("tmp", "v")
//	time.Sleep(300 * time.Millisecond)
//	_, ok := c.Get("tmp") // ok == false (expired)
//
// Function results can be cached with the memoize package, which layers
// key derivation, single-flight and hit/miss accounting on any of these
// cache types.
package cache
