package cache

import "github.com/IvanBrykalov/cachekit/internal/table"

// Iter walks the live entries of a cache in unspecified order.
//
// The iterator records the cache generation at creation; if the cache is
// mutated before the walk finishes, Next returns false and Err reports
// ErrConcurrentModification. Each Next acquires the cache's read lock
// briefly, so other readers proceed concurrently with iteration.
//
//	it := c.Items()
//	for it.Next() {
//	    k, v := it.Key(), it.Value()
//	    ...
//	}
//	if err := it.Err(); err != nil { ... }
type Iter[K comparable, V any] struct {
	c    *core[K, V]
	gen  uint64
	next int32
	skip func(*table.Entry[K, V]) bool

	key  K
	val  V
	err  error
	done bool
}

func (c *core[K, V]) items(skip func(*table.Entry[K, V]) bool) *Iter[K, V] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return &Iter[K, V]{c: c, gen: c.gen, skip: skip}
}

// Next advances to the next entry. It returns false at the end of the
// walk or when the cache has been mutated; check Err to tell them apart.
func (it *Iter[K, V]) Next() bool {
	if it.done || it.err != nil {
		return false
	}
	it.c.mu.RLock()
	defer it.c.mu.RUnlock()
	if it.c.gen != it.gen {
		it.err = ErrConcurrentModification
		return false
	}
	for {
		s := it.c.t.NextLive(it.next)
		if s == noSlot {
			it.done = true
			return false
		}
		it.next = s + 1
		e := it.c.t.At(s)
		if it.skip != nil && it.skip(e) {
			continue
		}
		it.key, it.val = e.Key, e.Value
		return true
	}
}

// Key returns the key of the current entry.
func (it *Iter[K, V]) Key() K { return it.key }

// Value returns the value of the current entry.
func (it *Iter[K, V]) Value() V { return it.val }

// Item returns the current entry as a pair.
func (it *Iter[K, V]) Item() Pair[K, V] { return Pair[K, V]{Key: it.key, Value: it.val} }

// Err returns ErrConcurrentModification if the cache changed during
// iteration, nil otherwise.
func (it *Iter[K, V]) Err() error { return it.err }
