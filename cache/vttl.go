package cache

import (
	"time"

	"github.com/IvanBrykalov/cachekit/internal/lazyheap"
	"github.com/IvanBrykalov/cachekit/internal/table"
)

// VTTLCache bounds entries by count with a per-entry time-to-live chosen
// at insert. Entries inserted without a ttl never expire.
//
// Deadlines are kept in a lazily sorted sequence: inserts append in O(1)
// and the next ordered access (expiry sweep, PopItem, First) sorts once.
// The sort is stable with never-expiring entries after all finite
// deadlines, so PopItem prefers the earliest deadline and falls back to
// insertion order among never-expiring entries.
//
// Expiration is lazy. Mutating operations pop every due entry first;
// reads that would observe an expired entry remove it and report a miss.
//
// All methods are safe for concurrent use.
type VTTLCache[K comparable, V any] struct {
	core[K, V]
	heap lazyheap.Heap
}

// NewVTTL constructs a per-key-TTL cache. maxsize == 0 means unbounded;
// maxsize < 0 panics.
func NewVTTL[K comparable, V any](maxsize int, opt Options[K, V]) *VTTLCache[K, V] {
	c := &VTTLCache[K, V]{}
	c.init(maxsize, opt)
	return c
}

// less orders slots by deadline: finite deadlines ascending, then
// never-expiring (Stamp == 0) in insertion order via sort stability.
func (c *VTTLCache[K, V]) less(a, b int32) bool {
	da, db := c.t.At(a).Stamp, c.t.At(b).Stamp
	switch {
	case da == 0:
		return false
	case db == 0:
		return true
	default:
		return da < db
	}
}

func (c *VTTLCache[K, V]) expired(e *table.Entry[K, V]) bool {
	return e.Stamp != 0 && e.Stamp <= c.now()
}

// sweepLocked pops every due entry from the deadline sequence and
// reports how many were removed.
func (c *VTTLCache[K, V]) sweepLocked() int {
	now := c.now()
	removed := 0
	for {
		s := c.heap.Front(c.less)
		if s == noSlot {
			break
		}
		d := c.t.At(s).Stamp
		if d == 0 || d > now {
			break
		}
		c.heap.PopFront(c.less)
		k, v := c.t.Erase(s)
		c.notifyEvict(k, v, EvictExpired)
		removed++
	}
	return removed
}

// Len returns the number of live entries, removing any that expired.
func (c *VTTLCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sweepLocked() > 0 {
		c.bump()
	}
	return c.t.Len()
}

// IsEmpty reports whether the cache holds no live entries.
func (c *VTTLCache[K, V]) IsEmpty() bool { return c.Len() == 0 }

// IsFull reports whether the cache reached maxsize.
func (c *VTTLCache[K, V]) IsFull() bool { return c.Len() >= c.maxsize }

// Contains reports whether k is present and not expired. The entry is
// left in place; removal happens on the next sweeping operation.
func (c *VTTLCache[K, V]) Contains(k K) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.t.Find(k)
	return s != noSlot && !c.expired(c.t.At(s))
}

// Get returns the value for k, or a miss if k is absent or expired.
func (c *VTTLCache[K, V]) Get(k K) (V, bool) {
	v, _, ok := c.GetWithExpire(k)
	return v, ok
}

// GetWithExpire returns the value for k and the remaining time before it
// expires; never-expiring entries report a zero duration. Absent or
// expired keys report zero and false.
func (c *VTTLCache[K, V]) GetWithExpire(k K) (V, time.Duration, bool) {
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
	return e.Value, c.remaining(e), true
}

func (c *VTTLCache[K, V]) remaining(e *table.Entry[K, V]) time.Duration {
	if e.Stamp == 0 {
		return 0
	}
	if d := e.Stamp - c.now(); d > 0 {
		return time.Duration(d)
	}
	return 0
}

// Insert upserts k→v with no expiry and returns the previous live value,
// if any. On an existing key the previous deadline is cleared: assigning
// without a ttl means no expiry was requested. Use InsertTTL to set a
// deadline.
func (c *VTTLCache[K, V]) Insert(k K, v V) (V, bool) {
	return c.InsertTTL(k, v, 0)
}

// InsertTTL upserts k→v expiring after ttl; ttl <= 0 means never. A new
// key at capacity first evicts the entry closest to its deadline (or the
// oldest never-expiring one).
func (c *VTTLCache[K, V]) InsertTTL(k K, v V, ttl time.Duration) (prev V, replaced bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweepLocked()
	var deadline int64
	if ttl > 0 {
		deadline = c.now() + int64(ttl)
	}
	if s := c.t.Find(k); s != noSlot {
		e := c.t.At(s)
		prev, e.Value = e.Value, v
		if e.Stamp != deadline {
			e.Stamp = deadline
			c.heap.MarkDirty()
		}
		c.bump()
		return prev, true
	}
	c.evictIfFullLocked()
	s, _ := c.t.Insert(k)
	e := c.t.At(s)
	e.Value = v
	e.Stamp = deadline
	c.heap.Push(s)
	c.bump()
	return prev, false
}

// SetDefault inserts k→d with no expiry if k is absent and returns the
// resident value. The error is always nil; VTTL evicts instead of
// overflowing.
func (c *VTTLCache[K, V]) SetDefault(k K, d V) (V, error) {
	return c.SetDefaultTTL(k, d, 0)
}

// SetDefaultTTL is SetDefault with a ttl for the inserted entry;
// ttl <= 0 means never.
func (c *VTTLCache[K, V]) SetDefaultTTL(k K, d V, ttl time.Duration) (V, error) {
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
	s, _ := c.t.Insert(k)
	e := c.t.At(s)
	e.Value = d
	if ttl > 0 {
		e.Stamp = c.now() + int64(ttl)
	}
	c.heap.Push(s)
	c.bump()
	return d, nil
}

// evictIfFullLocked removes entries in deadline order until one admission
// fits: earliest finite deadline first, oldest never-expiring last.
func (c *VTTLCache[K, V]) evictIfFullLocked() {
	for c.t.Len() >= c.maxsize {
		s := c.heap.PopFront(c.less)
		if s == noSlot {
			return
		}
		k, v := c.t.Erase(s)
		c.notifyEvict(k, v, EvictPolicy)
	}
}

// Delete removes k. It returns ErrKeyNotFound if k is absent or expired.
func (c *VTTLCache[K, V]) Delete(k K) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.bump()
	c.sweepLocked()
	s := c.t.Find(k)
	if s == noSlot {
		return ErrKeyNotFound
	}
	c.heap.Remove(s)
	c.t.Erase(s)
	return nil
}

// Pop removes k and returns its value, or reports absence.
func (c *VTTLCache[K, V]) Pop(k K) (V, bool) {
	v, _, ok := c.PopWithExpire(k)
	return v, ok
}

// PopWithExpire removes k and returns its value with the time it had
// left (zero for never-expiring). Absent or expired keys report zero
// and false.
func (c *VTTLCache[K, V]) PopWithExpire(k K) (V, time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.bump()
	c.sweepLocked()
	s := c.t.Find(k)
	if s == noSlot {
		var zero V
		return zero, 0, false
	}
	remaining := c.remaining(c.t.At(s))
	c.heap.Remove(s)
	_, v := c.t.Erase(s)
	return v, remaining, true
}

// PopItem removes and returns the live entry with the earliest deadline;
// if only never-expiring entries remain, the oldest of them.
func (c *VTTLCache[K, V]) PopItem() (K, V, error) {
	k, v, _, err := c.PopItemWithExpire()
	return k, v, err
}

// PopItemWithExpire is PopItem returning also the time the entry had
// left (zero for never-expiring).
func (c *VTTLCache[K, V]) PopItemWithExpire() (K, V, time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.bump()
	c.sweepLocked()
	s := c.heap.PopFront(c.less)
	if s == noSlot {
		var zk K
		var zv V
		return zk, zv, 0, ErrKeyNotFound
	}
	remaining := c.remaining(c.t.At(s))
	k, v := c.t.Erase(s)
	return k, v, remaining, nil
}

// Drain removes up to n entries in deadline order and returns the count
// actually removed.
func (c *VTTLCache[K, V]) Drain(n int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.bump()
	c.sweepLocked()
	removed := 0
	for ; removed < n; removed++ {
		s := c.heap.PopFront(c.less)
		if s == noSlot {
			break
		}
		c.t.Erase(s)
	}
	return removed
}

// Expire removes every expired entry now instead of lazily. Without
// reuse the table is also shrunk to fit the survivors.
func (c *VTTLCache[K, V]) Expire(reuse bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweepLocked()
	if !reuse {
		remap := c.t.ShrinkToFit()
		c.heap.Reindex(remap)
	}
	c.bump()
}

// First returns the live key at rank n in deadline order (n == 0 expires
// first; never-expiring keys come last in insertion order). Out of range
// reports false.
func (c *VTTLCache[K, V]) First(n int) (K, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sweepLocked() > 0 {
		c.bump()
	}
	if n < 0 || n >= c.heap.Len() {
		var zk K
		return zk, false
	}
	c.heap.Sort(c.less)
	return c.t.At(c.heap.At(n)).Key, true
}

// Last returns the live key furthest from expiry: the newest
// never-expiring one, or the greatest finite deadline.
func (c *VTTLCache[K, V]) Last() (K, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sweepLocked() > 0 {
		c.bump()
	}
	n := c.heap.Len()
	if n == 0 {
		var zk K
		return zk, false
	}
	c.heap.Sort(c.less)
	return c.t.At(c.heap.At(n - 1)).Key, true
}

// Update upserts every pair of m with no expiry.
func (c *VTTLCache[K, V]) Update(m map[K]V) {
	for k, v := range m {
		c.Insert(k, v)
	}
}

// UpdatePairs is Update for an ordered pair slice.
func (c *VTTLCache[K, V]) UpdatePairs(pairs []Pair[K, V]) {
	for _, p := range pairs {
		c.Insert(p.Key, p.Value)
	}
}

// UpdateTTL upserts every pair of m expiring after ttl; ttl <= 0 means
// never.
func (c *VTTLCache[K, V]) UpdateTTL(m map[K]V, ttl time.Duration) {
	for k, v := range m {
		c.InsertTTL(k, v, ttl)
	}
}

// Clear removes all entries. With reuse the table and the deadline
// sequence keep their capacity.
func (c *VTTLCache[K, V]) Clear(reuse bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t.Clear(reuse)
	c.heap.Clear(reuse)
	c.bump()
}

// ShrinkToFit reallocates to the smallest capacity holding the entries.
func (c *VTTLCache[K, V]) ShrinkToFit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweepLocked()
	remap := c.t.ShrinkToFit()
	c.heap.Reindex(remap)
	c.bump()
}

// ItemWithExpire is one snapshot entry of ItemsWithExpire.
type ItemWithExpire[K comparable, V any] struct {
	Key       K
	Value     V
	Remaining time.Duration // zero for never-expiring entries
}

// ItemsWithExpire returns a snapshot of the live entries with their
// remaining time, in deadline order.
func (c *VTTLCache[K, V]) ItemsWithExpire() []ItemWithExpire[K, V] {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sweepLocked() > 0 {
		c.bump()
	}
	c.heap.Sort(c.less)
	out := make([]ItemWithExpire[K, V], 0, c.heap.Len())
	for i := 0; i < c.heap.Len(); i++ {
		e := c.t.At(c.heap.At(i))
		out = append(out, ItemWithExpire[K, V]{Key: e.Key, Value: e.Value, Remaining: c.remaining(e)})
	}
	return out
}

// Items iterates over the live entries in unspecified order; entries
// expiring mid-walk are skipped.
func (c *VTTLCache[K, V]) Items() *Iter[K, V] { return c.items(c.expired) }

// Keys returns a snapshot of the live keys, in unspecified order.
func (c *VTTLCache[K, V]) Keys() []K { return c.keysFiltered(c.expired) }

// Values returns a snapshot of the live values, in unspecified order.
func (c *VTTLCache[K, V]) Values() []V { return c.valuesFiltered(c.expired) }

// EqualFunc reports whether both caches hold the same live key/value
// set, comparing values with eq. Deadlines are ignored.
func (c *VTTLCache[K, V]) EqualFunc(o *VTTLCache[K, V], eq func(a, b V) bool) bool {
	return equalPairs(c.snapshot(c.expired), o.snapshot(o.expired), eq)
}
