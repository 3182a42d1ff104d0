package cache

import (
	"math/rand"
	"time"
)

// RRCache evicts a uniformly random resident entry when a new key
// arrives at capacity. No auxiliary ordering structure is kept; the
// table itself is the sample space.
//
// The RNG is owned by the cache and guarded by its lock, so RandomKey
// takes the write lock even though it does not change the table. All
// methods are safe for concurrent use.
type RRCache[K comparable, V any] struct {
	core[K, V]
	rnd *rand.Rand
}

// NewRR constructs a random-replacement cache. maxsize == 0 means
// unbounded; maxsize < 0 panics. The seed is time-based; use NewRRSeeded
// for deterministic behavior.
func NewRR[K comparable, V any](maxsize int, opt Options[K, V]) *RRCache[K, V] {
	return NewRRSeeded(maxsize, time.Now().UnixNano(), opt)
}

// NewRRSeeded is NewRR with a caller-chosen RNG seed.
func NewRRSeeded[K comparable, V any](maxsize int, seed int64, opt Options[K, V]) *RRCache[K, V] {
	c := &RRCache[K, V]{rnd: rand.New(rand.NewSource(seed))}
	c.init(maxsize, opt)
	return c
}

// Len returns the number of resident entries.
func (c *RRCache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.t.Len()
}

// IsEmpty reports whether the cache holds no entries.
func (c *RRCache[K, V]) IsEmpty() bool { return c.Len() == 0 }

// IsFull reports whether the cache reached maxsize.
func (c *RRCache[K, V]) IsFull() bool { return c.Len() >= c.maxsize }

// Contains reports whether k is present.
func (c *RRCache[K, V]) Contains(k K) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.t.Find(k) != noSlot
}

// Get returns the value for k and a presence flag.
func (c *RRCache[K, V]) Get(k K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.t.Find(k)
	if s == noSlot {
		c.miss()
		var zero V
		return zero, false
	}
	c.hit()
	return c.t.At(s).Value, true
}

// Insert upserts k→v and returns the previous value, if any. A new key
// at capacity evicts a random entry first.
func (c *RRCache[K, V]) Insert(k K, v V) (prev V, replaced bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s := c.t.Find(k); s != noSlot {
		e := c.t.At(s)
		prev, e.Value = e.Value, v
		c.bump()
		return prev, true
	}
	c.evictIfFullLocked()
	s, _ := c.t.Insert(k)
	c.t.At(s).Value = v
	c.bump()
	return prev, false
}

// SetDefault inserts k→d if k is absent and returns the resident value.
// The error is always nil; RR evicts instead of overflowing.
func (c *RRCache[K, V]) SetDefault(k K, d V) (V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s := c.t.Find(k); s != noSlot {
		return c.t.At(s).Value, nil
	}
	c.evictIfFullLocked()
	s, _ := c.t.Insert(k)
	c.t.At(s).Value = d
	c.bump()
	return d, nil
}

func (c *RRCache[K, V]) evictIfFullLocked() {
	for c.t.Len() >= c.maxsize {
		s := c.t.RandomLive(c.rnd)
		if s == noSlot {
			return
		}
		k, v := c.t.Erase(s)
		c.notifyEvict(k, v, EvictPolicy)
	}
}

// Delete removes k. It returns ErrKeyNotFound if k is absent.
func (c *RRCache[K, V]) Delete(k K) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.t.Find(k)
	if s == noSlot {
		return ErrKeyNotFound
	}
	c.t.Erase(s)
	c.bump()
	return nil
}

// Pop removes k and returns its value, or reports absence.
func (c *RRCache[K, V]) Pop(k K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.t.Find(k)
	if s == noSlot {
		var zero V
		return zero, false
	}
	_, v := c.t.Erase(s)
	c.bump()
	return v, true
}

// PopItem removes and returns a uniformly random entry.
func (c *RRCache[K, V]) PopItem() (K, V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.popRandomLocked()
}

func (c *RRCache[K, V]) popRandomLocked() (K, V, error) {
	s := c.t.RandomLive(c.rnd)
	if s == noSlot {
		var zk K
		var zv V
		return zk, zv, ErrKeyNotFound
	}
	k, v := c.t.Erase(s)
	c.bump()
	return k, v, nil
}

// Drain removes up to n random entries and returns the count actually
// removed.
func (c *RRCache[K, V]) Drain(n int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for ; removed < n; removed++ {
		if _, _, err := c.popRandomLocked(); err != nil {
			break
		}
	}
	return removed
}

// RandomKey returns a uniformly random resident key without removing it.
func (c *RRCache[K, V]) RandomKey() (K, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.t.RandomLive(c.rnd)
	if s == noSlot {
		var zk K
		return zk, false
	}
	return c.t.At(s).Key, true
}

// Update upserts every pair of m.
func (c *RRCache[K, V]) Update(m map[K]V) {
	for k, v := range m {
		c.Insert(k, v)
	}
}

// UpdatePairs is Update for an ordered pair slice.
func (c *RRCache[K, V]) UpdatePairs(pairs []Pair[K, V]) {
	for _, p := range pairs {
		c.Insert(p.Key, p.Value)
	}
}

// Clear removes all entries. With reuse the table keeps its capacity.
func (c *RRCache[K, V]) Clear(reuse bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t.Clear(reuse)
	c.bump()
}

// ShrinkToFit reallocates to the smallest capacity holding the entries.
func (c *RRCache[K, V]) ShrinkToFit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t.ShrinkToFit()
	c.bump()
}

// Items iterates over the entries in unspecified order.
func (c *RRCache[K, V]) Items() *Iter[K, V] { return c.items(nil) }

// Keys returns a snapshot of the resident keys, in unspecified order.
func (c *RRCache[K, V]) Keys() []K { return c.keysFiltered(nil) }

// Values returns a snapshot of the resident values, in unspecified order.
func (c *RRCache[K, V]) Values() []V { return c.valuesFiltered(nil) }

// EqualFunc reports whether both caches hold the same key/value set,
// comparing values with eq.
func (c *RRCache[K, V]) EqualFunc(o *RRCache[K, V], eq func(a, b V) bool) bool {
	return equalPairs(c.snapshot(nil), o.snapshot(nil), eq)
}
