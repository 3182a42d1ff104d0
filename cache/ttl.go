package cache

import (
	"fmt"
	"time"

	"github.com/IvanBrykalov/cachekit/internal/table"
)

// TTLCache bounds entries by count and by a single uniform time-to-live.
// Because the ttl is shared, the insertion ring is also the expiration
// ring: expired entries are always a prefix of it, so expiry sweeps stop
// at the first live head and cost only the removals actually due.
//
// Expiration is lazy. Mutating operations sweep the ring head first;
// reads that would observe an expired entry remove it and report a miss.
// Operations that may remove expired entries take the write lock, so an
// expiry sweep invalidates open iterators like any other mutation.
//
// All methods are safe for concurrent use.
type TTLCache[K comparable, V any] struct {
	core[K, V]
	ttl   int64    // nanoseconds, > 0
	order slotList // insertion ring; head is oldest
}

// NewTTL constructs a TTL cache whose entries live for ttl after insert.
// maxsize == 0 means unbounded. It panics if maxsize < 0 or ttl <= 0.
func NewTTL[K comparable, V any](maxsize int, ttl time.Duration, opt Options[K, V]) *TTLCache[K, V] {
	if ttl <= 0 {
		panic(fmt.Sprintf("cache: ttl must be > 0, got %v", ttl))
	}
	c := &TTLCache[K, V]{ttl: int64(ttl), order: newSlotList()}
	c.init(maxsize, opt)
	return c
}

// TTL returns the uniform time-to-live.
func (c *TTLCache[K, V]) TTL() time.Duration { return time.Duration(c.ttl) }

// sweepLocked removes every expired entry from the ring head and reports
// how many were removed. Uniform ttl keeps expired entries contiguous at
// the head, so the scan stops at the first live one.
func (c *TTLCache[K, V]) sweepLocked() int {
	now := c.now()
	removed := 0
	for c.order.head != noSlot && c.t.At(c.order.head).Stamp <= now {
		s := c.order.head
		c.listRemove(&c.order, s)
		k, v := c.t.Erase(s)
		c.notifyEvict(k, v, EvictExpired)
		removed++
	}
	return removed
}

// expired reports whether e's deadline has passed; used by read paths
// that hold only the shared lock.
func (c *TTLCache[K, V]) expired(e *table.Entry[K, V]) bool {
	return e.Stamp <= c.now()
}

// Len returns the number of live entries, removing any that expired.
func (c *TTLCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sweepLocked() > 0 {
		c.bump()
	}
	return c.t.Len()
}

// IsEmpty reports whether the cache holds no live entries.
func (c *TTLCache[K, V]) IsEmpty() bool { return c.Len() == 0 }

// IsFull reports whether the cache reached maxsize.
func (c *TTLCache[K, V]) IsFull() bool { return c.Len() >= c.maxsize }

// Contains reports whether k is present and not expired. The entry is
// left in place; removal happens on the next sweeping operation.
func (c *TTLCache[K, V]) Contains(k K) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.t.Find(k)
	return s != noSlot && !c.expired(c.t.At(s))
}

// Get returns the value for k, or a miss if k is absent or expired.
func (c *TTLCache[K, V]) Get(k K) (V, bool) {
	v, _, ok := c.GetWithExpire(k)
	return v, ok
}

// GetWithExpire returns the value for k and the remaining time before it
// expires. Absent or expired keys report a zero duration and false.
func (c *TTLCache[K, V]) GetWithExpire(k K) (V, time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sweepLocked() > 0 {
		c.bump()
	}
	s := c.t.Find(k)
	if s == noSlot {
		c.miss()
		var zero V
		return zero, 0, false
	}
	e := c.t.At(s)
	c.hit()
	return e.Value, time.Duration(e.Stamp - c.now()), true
}

// Insert upserts k→v and returns the previous live value, if any.
// Updating an existing key refreshes its deadline and moves it to the
// young end of the ring; a new key at capacity evicts the oldest entry.
func (c *TTLCache[K, V]) Insert(k K, v V) (prev V, replaced bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweepLocked()
	if s := c.t.Find(k); s != noSlot {
		e := c.t.At(s)
		prev, e.Value = e.Value, v
		e.Stamp = c.now() + c.ttl
		c.listMoveToBack(&c.order, s)
		c.bump()
		return prev, true
	}
	c.evictIfFullLocked()
	c.insertNewLocked(k, v)
	c.bump()
	return prev, false
}

// SetDefault inserts k→d if k is absent (or expired) and returns the
// resident value. The error is always nil; TTL evicts instead of
// overflowing.
func (c *TTLCache[K, V]) SetDefault(k K, d V) (V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := c.sweepLocked()
	if s := c.t.Find(k); s != noSlot {
		if removed > 0 {
			c.bump()
		}
		return c.t.At(s).Value, nil
	}
	c.evictIfFullLocked()
	c.insertNewLocked(k, d)
	c.bump()
	return d, nil
}

func (c *TTLCache[K, V]) insertNewLocked(k K, v V) {
	s, _ := c.t.Insert(k)
	e := c.t.At(s)
	e.Value = v
	e.Stamp = c.now() + c.ttl
	c.listPushBack(&c.order, s)
}

func (c *TTLCache[K, V]) evictIfFullLocked() {
	for c.t.Len() >= c.maxsize {
		s := c.order.head
		if s == noSlot {
			return
		}
		c.listRemove(&c.order, s)
		k, v := c.t.Erase(s)
		c.notifyEvict(k, v, EvictPolicy)
	}
}

// Delete removes k. It returns ErrKeyNotFound if k is absent or expired.
func (c *TTLCache[K, V]) Delete(k K) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.bump()
	c.sweepLocked()
	s := c.t.Find(k)
	if s == noSlot {
		return ErrKeyNotFound
	}
	c.listRemove(&c.order, s)
	c.t.Erase(s)
	return nil
}

// Pop removes k and returns its value, or reports absence.
func (c *TTLCache[K, V]) Pop(k K) (V, bool) {
	v, _, ok := c.PopWithExpire(k)
	return v, ok
}

// PopWithExpire removes k and returns its value with the time it had
// left. Absent or expired keys report a zero duration and false.
func (c *TTLCache[K, V]) PopWithExpire(k K) (V, time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.bump()
	c.sweepLocked()
	s := c.t.Find(k)
	if s == noSlot {
		var zero V
		return zero, 0, false
	}
	remaining := time.Duration(c.t.At(s).Stamp - c.now())
	c.listRemove(&c.order, s)
	_, v := c.t.Erase(s)
	return v, remaining, true
}

// PopItem removes and returns the oldest live entry.
func (c *TTLCache[K, V]) PopItem() (K, V, error) {
	k, v, _, err := c.PopItemWithExpire()
	return k, v, err
}

// PopItemWithExpire removes the oldest live entry and also returns the
// time it had left.
func (c *TTLCache[K, V]) PopItemWithExpire() (K, V, time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.bump()
	c.sweepLocked()
	s := c.order.head
	if s == noSlot {
		var zk K
		var zv V
		return zk, zv, 0, ErrKeyNotFound
	}
	remaining := time.Duration(c.t.At(s).Stamp - c.now())
	c.listRemove(&c.order, s)
	k, v := c.t.Erase(s)
	return k, v, remaining, nil
}

// Drain removes up to n of the oldest live entries and returns the count
// actually removed.
func (c *TTLCache[K, V]) Drain(n int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.bump()
	c.sweepLocked()
	removed := 0
	for ; removed < n && c.order.head != noSlot; removed++ {
		s := c.order.head
		c.listRemove(&c.order, s)
		c.t.Erase(s)
	}
	return removed
}

// Expire removes every expired entry now instead of lazily. Without
// reuse the table is also shrunk to fit the survivors.
func (c *TTLCache[K, V]) Expire(reuse bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweepLocked()
	if !reuse {
		remap := c.t.ShrinkToFit()
		listReindex(&c.order, remap)
	}
	c.bump()
}

// First returns the key at position n from the oldest end among live
// entries (n == 0 expires first). Out of range reports false.
func (c *TTLCache[K, V]) First(n int) (K, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sweepLocked() > 0 {
		c.bump()
	}
	s := c.listAt(&c.order, n)
	if s == noSlot {
		var zk K
		return zk, false
	}
	return c.t.At(s).Key, true
}

// Last returns the most recently inserted live key.
func (c *TTLCache[K, V]) Last() (K, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sweepLocked() > 0 {
		c.bump()
	}
	if c.order.tail == noSlot {
		var zk K
		return zk, false
	}
	return c.t.At(c.order.tail).Key, true
}

// Update upserts every pair of m.
func (c *TTLCache[K, V]) Update(m map[K]V) {
	for k, v := range m {
		c.Insert(k, v)
	}
}

// UpdatePairs is Update for an ordered pair slice.
func (c *TTLCache[K, V]) UpdatePairs(pairs []Pair[K, V]) {
	for _, p := range pairs {
		c.Insert(p.Key, p.Value)
	}
}

// Clear removes all entries. With reuse the table keeps its capacity.
func (c *TTLCache[K, V]) Clear(reuse bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t.Clear(reuse)
	c.order = newSlotList()
	c.bump()
}

// ShrinkToFit reallocates to the smallest capacity holding the entries.
func (c *TTLCache[K, V]) ShrinkToFit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweepLocked()
	remap := c.t.ShrinkToFit()
	listReindex(&c.order, remap)
	c.bump()
}

// Items iterates over the live entries in unspecified order; entries
// expiring mid-walk are skipped.
func (c *TTLCache[K, V]) Items() *Iter[K, V] { return c.items(c.expired) }

// Keys returns a snapshot of the live keys, in unspecified order.
func (c *TTLCache[K, V]) Keys() []K { return c.keysFiltered(c.expired) }

// Values returns a snapshot of the live values, in unspecified order.
func (c *TTLCache[K, V]) Values() []V { return c.valuesFiltered(c.expired) }

// EqualFunc reports whether both caches hold the same live key/value
// set, comparing values with eq. Deadlines are ignored.
func (c *TTLCache[K, V]) EqualFunc(o *TTLCache[K, V], eq func(a, b V) bool) bool {
	return equalPairs(c.snapshot(c.expired), o.snapshot(o.expired), eq)
}
