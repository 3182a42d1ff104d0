package cache

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/IvanBrykalov/cachekit/internal/table"
	"github.com/IvanBrykalov/cachekit/internal/util"
)

// Pair is one key/value item, used for bulk updates and snapshots.
type Pair[K comparable, V any] struct {
	Key   K
	Value V
}

const noSlot = int32(-1)

// core holds the state shared by every cache type: the table, the lock,
// the generation counter and the ambient plumbing (clock, metrics,
// eviction callback, hit/miss counters).
//
// Locking: read accessors take mu.RLock; every structural change takes
// mu.Lock and bumps gen. Policies whose reads mutate ordering state
// (LRU/LFU touch, TTL/VTTL lazy expiry) take the write lock on reads too.
type core[K comparable, V any] struct {
	mu      sync.RWMutex
	t       *table.Table[K, V]
	maxsize int    // effective bound; math.MaxInt means unbounded
	gen     uint64 // guarded by mu (write side)

	clock   Clock
	metrics Metrics
	onEvict func(K, V, EvictReason)

	// hot counters on their own cache lines
	_      util.CacheLinePad
	hits   util.PaddedAtomicInt64
	misses util.PaddedAtomicInt64
}

// init validates maxsize, applies Option defaults, and builds the table.
// It initializes the core in place (it owns a lock, so it must not be
// copied). maxsize == 0 requests an unbounded cache.
func (c *core[K, V]) init(maxsize int, opt Options[K, V]) {
	if maxsize < 0 {
		panic(fmt.Sprintf("cache: maxsize must be >= 0, got %d", maxsize))
	}
	eff := maxsize
	if eff == 0 {
		eff = math.MaxInt
	}
	capacity := opt.Capacity
	if capacity < 0 {
		capacity = 0
	}
	if capacity > eff {
		capacity = eff
	}
	hash := opt.Hash
	if hash == nil {
		hash = util.Hash64[K]
	}
	metrics := opt.Metrics
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	c.t = table.New[K, V](capacity, hash)
	c.maxsize = eff
	c.clock = opt.Clock
	c.metrics = metrics
	c.onEvict = opt.OnEvict
}

func (c *core[K, V]) now() int64 {
	if c.clock != nil {
		return c.clock.NowUnixNano()
	}
	return time.Now().UnixNano()
}

// bump marks a mutation. Callers hold the write lock.
func (c *core[K, V]) bump() {
	c.gen++
	c.metrics.Size(c.t.Len())
}

// notifyEvict runs the eviction callback and metrics for a removed pair.
// Called under the write lock.
func (c *core[K, V]) notifyEvict(k K, v V, reason EvictReason) {
	c.metrics.Evict(reason)
	if c.onEvict != nil {
		c.onEvict(k, v, reason)
	}
}

// ---- shared read surface ----

// Maxsize returns the effective entry bound. Unbounded caches report the
// platform's maximum int.
func (c *core[K, V]) Maxsize() int { return c.maxsize }

// Capacity returns how many entries fit before the table grows again.
func (c *core[K, V]) Capacity() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.t.Cap()
}

// Generation returns the mutation counter. Two equal reads with no
// mutation in between observe the same value.
func (c *core[K, V]) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// MemoryBytes estimates resident memory of the table and its entries.
// Entry counts only; values are accounted by their header size.
func (c *core[K, V]) MemoryBytes() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.t.MemoryBytes()
}

// Hits returns the number of read hits since construction.
func (c *core[K, V]) Hits() int64 { return c.hits.Load() }

// Misses returns the number of read misses since construction.
func (c *core[K, V]) Misses() int64 { return c.misses.Load() }

func (c *core[K, V]) hit()  { c.hits.Add(1); c.metrics.Hit() }
func (c *core[K, V]) miss() { c.misses.Add(1); c.metrics.Miss() }

// ---- intrusive list helpers ----
//
// FIFO, LRU and TTL keep their order in the Prev/Next fields of the table
// entries. Head is the eviction end (oldest / least recent); tail is where
// inserts and touches go.

type slotList struct {
	head, tail int32
}

func newSlotList() slotList { return slotList{head: noSlot, tail: noSlot} }

func (c *core[K, V]) listPushBack(l *slotList, s int32) {
	e := c.t.At(s)
	e.Prev, e.Next = l.tail, noSlot
	if l.tail != noSlot {
		c.t.At(l.tail).Next = s
	}
	l.tail = s
	if l.head == noSlot {
		l.head = s
	}
}

func (c *core[K, V]) listRemove(l *slotList, s int32) {
	e := c.t.At(s)
	if e.Prev != noSlot {
		c.t.At(e.Prev).Next = e.Next
	} else if l.head == s {
		l.head = e.Next
	}
	if e.Next != noSlot {
		c.t.At(e.Next).Prev = e.Prev
	} else if l.tail == s {
		l.tail = e.Prev
	}
	e.Prev, e.Next = noSlot, noSlot
}

func (c *core[K, V]) listMoveToBack(l *slotList, s int32) {
	if l.tail == s {
		return
	}
	c.listRemove(l, s)
	c.listPushBack(l, s)
}

// listAt walks n links from the head and returns the slot, or -1 when n
// is negative or the list is shorter than that.
func (c *core[K, V]) listAt(l *slotList, n int) int32 {
	if n < 0 {
		return noSlot
	}
	s := l.head
	for ; n > 0 && s != noSlot; n-- {
		s = c.t.At(s).Next
	}
	return s
}

// listReindex rewrites list endpoints after an arena compaction.
// Entry-internal links were already remapped by the table.
func listReindex(l *slotList, remap []int32) {
	if l.head != noSlot {
		l.head = remap[l.head]
	}
	if l.tail != noSlot {
		l.tail = remap[l.tail]
	}
}

// ---- snapshots ----

// snapshot copies live pairs under the read lock. Entries for which skip
// returns true (e.g. already expired) are left out.
func (c *core[K, V]) snapshot(skip func(*table.Entry[K, V]) bool) []Pair[K, V] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Pair[K, V], 0, c.t.Len())
	c.t.Range(func(s int32) bool {
		e := c.t.At(s)
		if skip == nil || !skip(e) {
			out = append(out, Pair[K, V]{Key: e.Key, Value: e.Value})
		}
		return true
	})
	return out
}

// keysFiltered and valuesFiltered project a snapshot; they back the
// public Keys/Values methods of the cache types.
func (c *core[K, V]) keysFiltered(skip func(*table.Entry[K, V]) bool) []K {
	ps := c.snapshot(skip)
	out := make([]K, len(ps))
	for i, p := range ps {
		out[i] = p.Key
	}
	return out
}

func (c *core[K, V]) valuesFiltered(skip func(*table.Entry[K, V]) bool) []V {
	ps := c.snapshot(skip)
	out := make([]V, len(ps))
	for i, p := range ps {
		out[i] = p.Value
	}
	return out
}

// equalPairs compares two snapshots as key/value sets. Keys are unique per
// cache, so multiset equality reduces to a map comparison.
func equalPairs[K comparable, V any](a, b []Pair[K, V], eq func(x, y V) bool) bool {
	if len(a) != len(b) {
		return false
	}
	m := make(map[K]V, len(a))
	for _, p := range a {
		m[p.Key] = p.Value
	}
	for _, p := range b {
		v, ok := m[p.Key]
		if !ok || !eq(v, p.Value) {
			return false
		}
	}
	return true
}
