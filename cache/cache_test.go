package cache

import (
	"errors"
	"testing"
	"time"
)

// fakeClock drives TTL tests deterministically.
type fakeClock struct{ t int64 }

func (f *fakeClock) NowUnixNano() int64  { return f.t }
func (f *fakeClock) add(d time.Duration) { f.t += int64(d) }

// countingMetrics records Metrics signals for assertions.
type countingMetrics struct {
	hits, misses int
	evicts       map[EvictReason]int
	size         int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{evicts: map[EvictReason]int{}}
}

func (m *countingMetrics) Hit()                { m.hits++ }
func (m *countingMetrics) Miss()               { m.misses++ }
func (m *countingMetrics) Evict(r EvictReason) { m.evicts[r]++ }
func (m *countingMetrics) Size(entries int)    { m.size = entries }

func TestCache_BasicInsertGetDelete(t *testing.T) {
	t.Parallel()

	c := New[string, int](8, Options[string, int]{})

	if _, replaced, err := c.Insert("a", 1); err != nil || replaced {
		t.Fatalf("fresh insert: replaced=%v err=%v", replaced, err)
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("Get a = (%d, %v)", v, ok)
	}
	if prev, replaced, _ := c.Insert("a", 2); !replaced || prev != 1 {
		t.Fatalf("update: prev=%d replaced=%v", prev, replaced)
	}
	if !c.Contains("a") {
		t.Fatal("Contains a")
	}
	if err := c.Delete("a"); err != nil {
		t.Fatal(err)
	}
	if err := c.Delete("a"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("double delete: %v", err)
	}
	if _, ok := c.Get("a"); ok {
		t.Fatal("a must be absent after Delete")
	}
}

// A no-policy cache rejects new keys at capacity instead of evicting.
func TestCache_Overflow(t *testing.T) {
	t.Parallel()

	c := New[string, int](2, Options[string, int]{})
	c.Insert("a", 1)
	c.Insert("b", 2)

	if !c.IsFull() {
		t.Fatal("cache must be full")
	}
	if _, _, err := c.Insert("c", 3); !errors.Is(err, ErrOverflow) {
		t.Fatalf("insert at capacity: %v", err)
	}
	// Updating a resident key is still allowed.
	if _, replaced, err := c.Insert("a", 10); err != nil || !replaced {
		t.Fatalf("update at capacity: replaced=%v err=%v", replaced, err)
	}
	if _, err := c.SetDefault("d", 4); !errors.Is(err, ErrOverflow) {
		t.Fatalf("SetDefault at capacity: %v", err)
	}

	c.Pop("a")
	if _, _, err := c.Insert("c", 3); err != nil {
		t.Fatalf("insert after Pop: %v", err)
	}
}

func TestCache_SetDefault(t *testing.T) {
	t.Parallel()

	c := New[string, int](4, Options[string, int]{})
	if v, err := c.SetDefault("a", 1); err != nil || v != 1 {
		t.Fatalf("SetDefault absent: (%d, %v)", v, err)
	}
	if v, err := c.SetDefault("a", 99); err != nil || v != 1 {
		t.Fatalf("SetDefault present: (%d, %v)", v, err)
	}
}

// maxsize 0 means unbounded; the effective bound is the max int.
func TestCache_UnboundedSentinel(t *testing.T) {
	t.Parallel()

	c := New[int, int](0, Options[int, int]{})
	if c.Maxsize() <= 1<<40 {
		t.Fatalf("unbounded Maxsize = %d", c.Maxsize())
	}
	for i := 0; i < 10_000; i++ {
		if _, _, err := c.Insert(i, i); err != nil {
			t.Fatal(err)
		}
	}
	if c.Len() != 10_000 || c.IsFull() {
		t.Fatalf("len=%d full=%v", c.Len(), c.IsFull())
	}
}

func TestCache_NegativeMaxsizePanics(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Fatal("New(-1) must panic")
		}
	}()
	New[int, int](-1, Options[int, int]{})
}

func TestCache_UpdateAndClear(t *testing.T) {
	t.Parallel()

	c := New[string, int](8, Options[string, int]{})
	if err := c.Update(map[string]int{"a": 1, "b": 2, "c": 3}); err != nil {
		t.Fatal(err)
	}
	if c.Len() != 3 {
		t.Fatalf("len=%d", c.Len())
	}

	capBefore := c.Capacity()
	c.Clear(true)
	if c.Len() != 0 || c.Capacity() != capBefore {
		t.Fatalf("Clear(reuse): len=%d cap=%d", c.Len(), c.Capacity())
	}
	if c.IsEmpty() != true {
		t.Fatal("IsEmpty after Clear")
	}
}

func TestCache_Generation(t *testing.T) {
	t.Parallel()

	c := New[string, int](8, Options[string, int]{})
	g0 := c.Generation()
	if c.Generation() != g0 {
		t.Fatal("generation changed without mutation")
	}
	c.Insert("a", 1)
	g1 := c.Generation()
	if g1 <= g0 {
		t.Fatalf("generation not increased: %d -> %d", g0, g1)
	}
	c.Get("a") // plain read, no touch
	if c.Generation() != g1 {
		t.Fatal("read bumped generation")
	}
	c.Delete("a")
	if c.Generation() <= g1 {
		t.Fatal("delete did not bump generation")
	}
}

func TestCache_EqualFunc(t *testing.T) {
	t.Parallel()

	a := New[string, int](8, Options[string, int]{})
	b := New[string, int](16, Options[string, int]{}) // different bound, same content
	for _, c := range []*Cache[string, int]{a, b} {
		c.Insert("x", 1)
		c.Insert("y", 2)
	}
	eq := func(p, q int) bool { return p == q }
	if !a.EqualFunc(b, eq) {
		t.Fatal("equal caches reported unequal")
	}
	b.Insert("y", 3)
	if a.EqualFunc(b, eq) {
		t.Fatal("different values reported equal")
	}
	b.Insert("y", 2)
	b.Insert("z", 9)
	if a.EqualFunc(b, eq) {
		t.Fatal("different key sets reported equal")
	}
}

func TestCache_MetricsSignals(t *testing.T) {
	t.Parallel()

	m := newCountingMetrics()
	c := New[string, int](8, Options[string, int]{Metrics: m})
	c.Insert("a", 1)
	c.Get("a")
	c.Get("nope")

	if m.hits != 1 || m.misses != 1 {
		t.Fatalf("hits=%d misses=%d", m.hits, m.misses)
	}
	if m.size != 1 {
		t.Fatalf("size gauge = %d", m.size)
	}
	if c.Hits() != 1 || c.Misses() != 1 {
		t.Fatalf("counter mismatch: %d/%d", c.Hits(), c.Misses())
	}
}

func TestCache_ShrinkToFit(t *testing.T) {
	t.Parallel()

	c := New[int, int](0, Options[int, int]{Capacity: 4096})
	for i := 0; i < 10; i++ {
		c.Insert(i, i)
	}
	before := c.MemoryBytes()
	c.ShrinkToFit()
	if after := c.MemoryBytes(); after >= before {
		t.Fatalf("shrink did not reduce memory: %d -> %d", before, after)
	}
	for i := 0; i < 10; i++ {
		if v, ok := c.Get(i); !ok || v != i {
			t.Fatalf("entry %d lost after shrink", i)
		}
	}
}
