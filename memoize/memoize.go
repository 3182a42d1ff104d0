// Package memoize caches function results in a cachekit cache.
//
// A wrapped function derives a cache key from its argument, consults the
// backing cache, and on a miss computes the value at most once per key
// at a time: concurrent callers for the same key wait for the single
// in-flight computation (single-flight). Errors are delivered to every
// waiter of that flight and are never cached — a later call retries.
//
// The computation runs outside any cache lock, so the wrapped function
// may itself use caches freely.
package memoize

import (
	"context"
	"sync/atomic"

	"github.com/IvanBrykalov/cachekit/internal/singleflight"
	"github.com/IvanBrykalov/cachekit/internal/util"
)

// Backend is the cache surface the wrapper needs. Every cachekit cache
// type satisfies it; pick the eviction policy by picking the cache.
type Backend[K comparable, V any] interface {
	Get(k K) (V, bool)
	SetDefault(k K, d V) (V, error)
	Len() int
	Maxsize() int
	MemoryBytes() uint64
	Clear(reuse bool)
}

// Event tells a Callback whether the call was served from the cache.
type Event int

const (
	// EventMiss — the value was computed and stored.
	EventMiss Event = 1
	// EventHit — the value came from the cache (or from a flight another
	// caller computed).
	EventHit Event = 2
)

// Config carries the optional knobs of a wrapper.
type Config[K comparable, V any] struct {
	// Callback, if set, runs after every non-bypassed call with the event,
	// the derived key and the (uncopied) value. Not called on error.
	Callback func(Event, K, V)

	// Copy controls copying of returned values; see CopyLevel. The value
	// handed to Callback and stored in the cache is never copied.
	Copy CopyLevel

	// ClearReuse is forwarded to Backend.Clear by ClearCache.
	ClearReuse bool

	// Hash overrides the key hasher used to shard the in-flight map.
	// The default handles the same key types as the caches do.
	Hash func(K) uint64
}

// Info is a point-in-time snapshot of a wrapper's counters and cache.
type Info struct {
	Hits        uint64
	Misses      uint64
	Maxsize     int
	Length      int
	MemoryBytes uint64
}

// engine holds the machinery shared by Func and Method.
type engine[K comparable, V any] struct {
	cache   Backend[K, V]
	cfg     Config[K, V]
	flights []singleflight.Group[K, V]
	hash    func(K) uint64

	hits   atomic.Uint64
	misses atomic.Uint64
}

// init fills the engine in place (it owns atomics and the flight map,
// so it must not be copied after first use).
func (e *engine[K, V]) init(c Backend[K, V], cfg Config[K, V]) {
	if c == nil {
		panic("memoize: nil cache backend")
	}
	hash := cfg.Hash
	if hash == nil {
		hash = util.Hash64[K]
	}
	e.cache = c
	e.cfg = cfg
	e.flights = make([]singleflight.Group[K, V], util.ReasonableShardCount())
	e.hash = hash
}

// do is the common hit/flight/store path. compute runs at most once per
// key at a time, outside all cache locks.
func (e *engine[K, V]) do(ctx context.Context, key K, compute func() (V, error)) (V, error) {
	if v, ok := e.cache.Get(key); ok {
		e.hits.Add(1)
		e.callback(EventHit, key, v)
		return copyValue(v, e.cfg.Copy), nil
	}

	g := &e.flights[util.ShardIndex(e.hash(key), len(e.flights))]
	computed := false
	v, err, shared := g.Do(ctx, key, func() (V, error) {
		// Another flight may have stored the value between our miss and
		// becoming leader.
		if v, ok := e.cache.Get(key); ok {
			return v, nil
		}
		computed = true
		v, err := compute()
		if err != nil {
			var zero V
			return zero, err
		}
		// A full non-evicting backend just means this result is not
		// retained; the call itself still succeeds.
		_, _ = e.cache.SetDefault(key, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	if shared || !computed {
		e.hits.Add(1)
		e.callback(EventHit, key, v)
	} else {
		e.misses.Add(1)
		e.callback(EventMiss, key, v)
	}
	return copyValue(v, e.cfg.Copy), nil
}

func (e *engine[K, V]) callback(ev Event, k K, v V) {
	if e.cfg.Callback != nil {
		e.cfg.Callback(ev, k, v)
	}
}

func (e *engine[K, V]) info() Info {
	return Info{
		Hits:        e.hits.Load(),
		Misses:      e.misses.Load(),
		Maxsize:     e.cache.Maxsize(),
		Length:      e.cache.Len(),
		MemoryBytes: e.cache.MemoryBytes(),
	}
}

func (e *engine[K, V]) clear() {
	e.cache.Clear(e.cfg.ClearReuse)
	e.hits.Store(0)
	e.misses.Store(0)
}

// Func memoizes a one-argument function.
type Func[A any, K comparable, V any] struct {
	engine[K, V]
	key func(A) (K, error)
	fn  func(context.Context, A) (V, error)
}

// New wraps fn, using the argument itself as the cache key.
func New[K comparable, V any](c Backend[K, V], fn func(ctx context.Context, k K) (V, error), cfg Config[K, V]) *Func[K, K, V] {
	return NewKeyed(c, func(k K) (K, error) { return k, nil }, fn, cfg)
}

// NewKeyed wraps fn with an explicit key maker. An error from the key
// maker fails the call before the cache is consulted.
func NewKeyed[A any, K comparable, V any](c Backend[K, V], key func(A) (K, error), fn func(context.Context, A) (V, error), cfg Config[K, V]) *Func[A, K, V] {
	if key == nil || fn == nil {
		panic("memoize: nil function")
	}
	f := &Func[A, K, V]{key: key, fn: fn}
	f.init(c, cfg)
	return f
}

// Call invokes the wrapped function through the cache.
func (f *Func[A, K, V]) Call(ctx context.Context, a A) (V, error) {
	if bypassed(ctx) {
		return f.fn(ctx, a)
	}
	key, err := f.key(a)
	if err != nil {
		var zero V
		return zero, err
	}
	return f.do(ctx, key, func() (V, error) { return f.fn(ctx, a) })
}

// Cache returns the backing cache.
func (f *Func[A, K, V]) Cache() Backend[K, V] { return f.cache }

// Info returns hit/miss counters and cache stats.
func (f *Func[A, K, V]) Info() Info { return f.info() }

// ClearCache empties the backing cache (honoring Config.ClearReuse) and
// resets the hit/miss counters.
func (f *Func[A, K, V]) ClearCache() { f.clear() }

// Method memoizes a method-shaped function: the receiver is passed
// through to the computation but takes no part in the cache key.
type Method[R any, A any, K comparable, V any] struct {
	engine[K, V]
	key func(A) (K, error)
	fn  func(context.Context, R, A) (V, error)
}

// NewMethod wraps fn; the key is derived from the argument only, so all
// receivers share one cache.
func NewMethod[R any, A any, K comparable, V any](c Backend[K, V], key func(A) (K, error), fn func(context.Context, R, A) (V, error), cfg Config[K, V]) *Method[R, A, K, V] {
	if key == nil || fn == nil {
		panic("memoize: nil function")
	}
	m := &Method[R, A, K, V]{key: key, fn: fn}
	m.init(c, cfg)
	return m
}

// Call invokes the wrapped method through the cache.
func (m *Method[R, A, K, V]) Call(ctx context.Context, recv R, a A) (V, error) {
	if bypassed(ctx) {
		return m.fn(ctx, recv, a)
	}
	key, err := m.key(a)
	if err != nil {
		var zero V
		return zero, err
	}
	return m.do(ctx, key, func() (V, error) { return m.fn(ctx, recv, a) })
}

// Cache returns the backing cache.
func (m *Method[R, A, K, V]) Cache() Backend[K, V] { return m.cache }

// Info returns hit/miss counters and cache stats.
func (m *Method[R, A, K, V]) Info() Info { return m.info() }

// ClearCache empties the backing cache (honoring Config.ClearReuse) and
// resets the hit/miss counters.
func (m *Method[R, A, K, V]) ClearCache() { m.clear() }

// bypassKey marks a context as cache-bypassing.
type bypassKey struct{}

// Bypass returns a context that makes wrapped calls skip the cache
// entirely: no lookup, no store, no counters, no callback.
func Bypass(ctx context.Context) context.Context {
	return context.WithValue(ctx, bypassKey{}, true)
}

func bypassed(ctx context.Context) bool {
	b, _ := ctx.Value(bypassKey{}).(bool)
	return b
}
