package cache

// Cache is a bounded map without an eviction policy: once maxsize entries
// are resident, inserting a new key fails with ErrOverflow instead of
// evicting. It is the cheapest cache type — no ordering structure is
// maintained and plain reads take only the shared lock.
//
// All methods are safe for concurrent use.
type Cache[K comparable, V any] struct {
	core[K, V]
}

// New constructs a no-policy cache. maxsize == 0 means unbounded;
// maxsize < 0 panics.
func New[K comparable, V any](maxsize int, opt Options[K, V]) *Cache[K, V] {
	c := &Cache[K, V]{}
	c.init(maxsize, opt)
	return c
}

// Len returns the number of resident entries.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.t.Len()
}

// IsEmpty reports whether the cache holds no entries.
func (c *Cache[K, V]) IsEmpty() bool { return c.Len() == 0 }

// IsFull reports whether the cache reached maxsize.
func (c *Cache[K, V]) IsFull() bool { return c.Len() >= c.maxsize }

// Contains reports whether k is present.
func (c *Cache[K, V]) Contains(k K) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.t.Find(k) != noSlot
}

// Get returns the value for k and a presence flag.
func (c *Cache[K, V]) Get(k K) (V, bool) {
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

// Insert upserts k→v and returns the previous value, if any.
// Inserting a new key into a full cache fails with ErrOverflow.
func (c *Cache[K, V]) Insert(k K, v V) (prev V, replaced bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s := c.t.Find(k); s != noSlot {
		e := c.t.At(s)
		prev, e.Value = e.Value, v
		c.bump()
		return prev, true, nil
	}
	if c.t.Len() >= c.maxsize {
		return prev, false, ErrOverflow
	}
	s, _ := c.t.Insert(k)
	c.t.At(s).Value = v
	c.bump()
	return prev, false, nil
}

// SetDefault inserts k→d if k is absent and returns the resident value.
func (c *Cache[K, V]) SetDefault(k K, d V) (V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s := c.t.Find(k); s != noSlot {
		return c.t.At(s).Value, nil
	}
	if c.t.Len() >= c.maxsize {
		var zero V
		return zero, ErrOverflow
	}
	s, _ := c.t.Insert(k)
	c.t.At(s).Value = d
	c.bump()
	return d, nil
}

// Delete removes k. It returns ErrKeyNotFound if k is absent.
func (c *Cache[K, V]) Delete(k K) error {
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
func (c *Cache[K, V]) Pop(k K) (V, bool) {
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

// Update upserts every pair of m. On a full cache the first new key
// fails with ErrOverflow; pairs applied before that remain.
func (c *Cache[K, V]) Update(m map[K]V) error {
	for k, v := range m {
		if _, _, err := c.Insert(k, v); err != nil {
			return err
		}
	}
	return nil
}

// UpdatePairs is Update for an ordered pair slice.
func (c *Cache[K, V]) UpdatePairs(pairs []Pair[K, V]) error {
	for _, p := range pairs {
		if _, _, err := c.Insert(p.Key, p.Value); err != nil {
			return err
		}
	}
	return nil
}

// Clear removes all entries. With reuse the table keeps its capacity.
func (c *Cache[K, V]) Clear(reuse bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t.Clear(reuse)
	c.bump()
}

// ShrinkToFit reallocates to the smallest capacity holding the entries.
func (c *Cache[K, V]) ShrinkToFit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t.ShrinkToFit()
	c.bump()
}

// Items iterates over the entries in unspecified order.
func (c *Cache[K, V]) Items() *Iter[K, V] { return c.items(nil) }

// Keys returns a snapshot of the resident keys, in unspecified order.
func (c *Cache[K, V]) Keys() []K { return c.keysFiltered(nil) }

// Values returns a snapshot of the resident values, in unspecified order.
func (c *Cache[K, V]) Values() []V { return c.valuesFiltered(nil) }

// EqualFunc reports whether both caches hold the same key/value set,
// comparing values with eq. Order and capacity are ignored.
func (c *Cache[K, V]) EqualFunc(o *Cache[K, V], eq func(a, b V) bool) bool {
	return equalPairs(c.snapshot(nil), o.snapshot(nil), eq)
}
