package cache

import "testing"

// The colder key goes; ties break by age.
func TestLFU_EvictsLeastFrequent(t *testing.T) {
	t.Parallel()

	c := NewLFU[string, int](2, Options[string, int]{})
	c.Insert("a", 1)
	c.Insert("b", 2)
	c.Get("a")
	c.Get("a")
	c.Get("b")
	c.Insert("c", 3) // a has 2 reads, b has 1 -> evict b

	if c.Contains("b") {
		t.Fatal("b must be evicted")
	}
	if !c.Contains("a") || !c.Contains("c") {
		t.Fatal("a and c must survive")
	}
	// c was never read: it is now the least frequent.
	k, v, err := c.PopItem()
	if err != nil || k != "c" || v != 3 {
		t.Fatalf("PopItem = (%q, %d, %v), want (c, 3, nil)", k, v, err)
	}
}

// Two unread keys: the older one is evicted first.
func TestLFU_TieBreakByAge(t *testing.T) {
	t.Parallel()

	c := NewLFU[string, int](2, Options[string, int]{})
	c.Insert("old", 1)
	c.Insert("young", 2)
	c.Insert("new", 3)

	if c.Contains("old") {
		t.Fatal("older of the tied keys must go first")
	}
	if !c.Contains("young") || !c.Contains("new") {
		t.Fatal("young and new must survive")
	}
}

// A frequent key can never be chosen while a rarer one is present.
func TestLFU_FrequentKeyProtected(t *testing.T) {
	t.Parallel()

	c := NewLFU[int, int](3, Options[int, int]{})
	c.Insert(1, 1)
	for i := 0; i < 10; i++ {
		c.Get(1)
	}
	c.Insert(2, 2)
	c.Insert(3, 3)

	for i := 10; i < 20; i++ {
		c.Insert(i, i) // each evicts some least-frequent entry
		if !c.Contains(1) {
			t.Fatalf("hot key evicted while colder keys were present (round %d)", i)
		}
	}
}

func TestLFU_PeekDoesNotCount(t *testing.T) {
	t.Parallel()

	c := NewLFU[string, int](2, Options[string, int]{})
	c.Insert("a", 1)
	c.Insert("b", 2)
	c.Peek("a")
	c.Peek("a")
	c.Get("b")
	c.Insert("c", 3) // a: 0 reads (peeks don't count), b: 1 -> evict a

	if c.Contains("a") {
		t.Fatal("a must be evicted: Peek does not count")
	}
	if !c.Contains("b") {
		t.Fatal("b must survive")
	}
}

func TestLFU_RankHelpers(t *testing.T) {
	t.Parallel()

	c := NewLFU[string, int](4, Options[string, int]{})
	c.Insert("a", 1)
	c.Insert("b", 2)
	c.Insert("c", 3)
	c.Get("c")
	c.Get("c")
	c.Get("b")

	// Stable min-order: a (0 reads), b (1), c (2).
	for i, want := range []string{"a", "b", "c"} {
		if k, ok := c.LeastFrequentlyUsed(i); !ok || k != want {
			t.Fatalf("LeastFrequentlyUsed(%d) = (%q, %v), want %q", i, k, ok, want)
		}
	}
	if _, ok := c.LeastFrequentlyUsed(3); ok {
		t.Fatal("rank out of range must report false")
	}

	items := c.ItemsWithFrequency()
	if len(items) != 3 {
		t.Fatalf("items = %d", len(items))
	}
	if items[0].Key != "a" || items[0].Frequency != 0 {
		t.Fatalf("rank 0 = %+v", items[0])
	}
	if items[2].Key != "c" || items[2].Frequency != 2 {
		t.Fatalf("rank 2 = %+v", items[2])
	}
}

// Updating a value keeps the access counter.
func TestLFU_UpdateKeepsCounter(t *testing.T) {
	t.Parallel()

	c := NewLFU[string, int](2, Options[string, int]{})
	c.Insert("a", 1)
	c.Get("a")
	c.Get("a")
	c.Insert("a", 10)
	c.Insert("b", 2)
	c.Insert("c", 3) // evicts b (0 reads); a keeps its counter of 2

	if c.Contains("b") || !c.Contains("a") {
		t.Fatal("update must not reset a's counter")
	}
	if v, _ := c.Peek("a"); v != 10 {
		t.Fatalf("a = %d", v)
	}
}
