package cache

import "testing"

// A touched key survives eviction; the cold one goes.
func TestLRU_TouchThenEvict(t *testing.T) {
	t.Parallel()

	c := NewLRU[string, int](2, Options[string, int]{})
	c.Insert("a", 1)
	c.Insert("b", 2)

	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("Get a = (%d, %v)", v, ok)
	}
	c.Insert("c", 3) // evicts "b", the least recently used

	if c.Contains("b") {
		t.Fatal("b must be evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("a must survive: (%d, %v)", v, ok)
	}
	k, v, err := c.PopItem()
	if err != nil || k != "c" || v != 3 {
		t.Fatalf("PopItem = (%q, %d, %v), want (c, 3, nil)", k, v, err)
	}
}

// Peek must not promote; the peeked key is still the eviction candidate.
func TestLRU_PeekDoesNotTouch(t *testing.T) {
	t.Parallel()

	c := NewLRU[string, int](2, Options[string, int]{})
	c.Insert("a", 1)
	c.Insert("b", 2)

	if v, ok := c.Peek("a"); !ok || v != 1 {
		t.Fatalf("Peek a = (%d, %v)", v, ok)
	}
	c.Insert("c", 3)

	if c.Contains("a") {
		t.Fatal("a must be evicted: Peek is not a touch")
	}
}

func TestLRU_RecencyHelpers(t *testing.T) {
	t.Parallel()

	c := NewLRU[string, int](4, Options[string, int]{})
	for _, k := range []string{"a", "b", "c"} {
		c.Insert(k, 0)
	}
	c.Get("a") // order now: b, c, a

	if k, ok := c.LeastRecentlyUsed(0); !ok || k != "b" {
		t.Fatalf("LRU(0) = (%q, %v)", k, ok)
	}
	if k, ok := c.LeastRecentlyUsed(1); !ok || k != "c" {
		t.Fatalf("LRU(1) = (%q, %v)", k, ok)
	}
	if _, ok := c.LeastRecentlyUsed(3); ok {
		t.Fatal("LRU out of range must report false")
	}
	if k, ok := c.MostRecentlyUsed(); !ok || k != "a" {
		t.Fatalf("MRU = (%q, %v)", k, ok)
	}
}

// Contains must not promote either.
func TestLRU_ContainsDoesNotTouch(t *testing.T) {
	t.Parallel()

	c := NewLRU[string, int](2, Options[string, int]{})
	c.Insert("a", 1)
	c.Insert("b", 2)
	c.Contains("a")
	c.Insert("c", 3)

	if c.Contains("a") {
		t.Fatal("a must be evicted: Contains is not a touch")
	}
}

// Updates count as use: the updated key moves to most-recent.
func TestLRU_UpdatePromotes(t *testing.T) {
	t.Parallel()

	c := NewLRU[string, int](2, Options[string, int]{})
	c.Insert("a", 1)
	c.Insert("b", 2)
	c.Insert("a", 10) // promote "a"
	c.Insert("c", 3)  // evicts "b"

	if c.Contains("b") {
		t.Fatal("b must be evicted after a's update")
	}
	if v, _ := c.Get("a"); v != 10 {
		t.Fatalf("a = %d", v)
	}
}

func TestLRU_DrainOrder(t *testing.T) {
	t.Parallel()

	c := NewLRU[int, int](8, Options[int, int]{})
	for i := 0; i < 4; i++ {
		c.Insert(i, i)
	}
	c.Get(0) // order: 1, 2, 3, 0

	if n := c.Drain(2); n != 2 {
		t.Fatalf("Drain = %d", n)
	}
	if c.Contains(1) || c.Contains(2) {
		t.Fatal("1 and 2 must be drained first")
	}
	if !c.Contains(0) || !c.Contains(3) {
		t.Fatal("0 and 3 must remain")
	}
}
