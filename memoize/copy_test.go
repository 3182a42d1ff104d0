package memoize

import (
	"context"
	"testing"

	"github.com/IvanBrykalov/cachekit/cache"
)

func sliceFunc(level CopyLevel) *Func[int, int, []int] {
	return New(cache.NewLRU[int, []int](8, cache.Options[int, []int]{}),
		func(_ context.Context, n int) ([]int, error) {
			return []int{n, n + 1}, nil
		}, Config[int, []int]{Copy: level})
}

// Without copying, mutating a returned slice leaks into the cache.
func TestCopyNone_SharesStorage(t *testing.T) {
	t.Parallel()

	f := sliceFunc(CopyNone)
	ctx := context.Background()
	v, _ := f.Call(ctx, 1)
	v[0] = 999

	again, _ := f.Call(ctx, 1)
	if again[0] != 999 {
		t.Fatal("CopyNone must share storage with the cache")
	}
}

func TestCopyShallow_ProtectsTopLevel(t *testing.T) {
	t.Parallel()

	f := sliceFunc(CopyShallow)
	ctx := context.Background()
	v, _ := f.Call(ctx, 1)
	v[0] = 999

	again, _ := f.Call(ctx, 1)
	if again[0] != 1 {
		t.Fatalf("cached slice mutated through a shallow copy: %v", again)
	}
}

// Shallow copies clone only the top level: nested aggregates stay shared.
func TestCopyShallow_NestedShared(t *testing.T) {
	t.Parallel()

	f := New(cache.NewLRU[int, map[string][]int](8, cache.Options[int, map[string][]int]{}),
		func(_ context.Context, n int) (map[string][]int, error) {
			return map[string][]int{"xs": {n}}, nil
		}, Config[int, map[string][]int]{Copy: CopyShallow})

	ctx := context.Background()
	v, _ := f.Call(ctx, 1)
	v["extra"] = []int{2} // top level: private to this caller
	v["xs"][0] = 999      // nested: shared with the cache

	again, _ := f.Call(ctx, 1)
	if _, ok := again["extra"]; ok {
		t.Fatal("top-level map must be copied")
	}
	if again["xs"][0] != 999 {
		t.Fatal("nested slice is shared at CopyShallow")
	}
}

func TestCopyDeep_ProtectsNested(t *testing.T) {
	t.Parallel()

	type result struct {
		Name string
		Tags map[string][]int
	}
	f := New(cache.NewLRU[int, *result](8, cache.Options[int, *result]{}),
		func(_ context.Context, n int) (*result, error) {
			return &result{Name: "r", Tags: map[string][]int{"xs": {n}}}, nil
		}, Config[int, *result]{Copy: CopyDeep})

	ctx := context.Background()
	v, _ := f.Call(ctx, 1)
	v.Name = "mutated"
	v.Tags["xs"][0] = 999

	again, _ := f.Call(ctx, 1)
	if again.Name != "r" || again.Tags["xs"][0] != 1 {
		t.Fatalf("deep copy leaked mutations: %+v", again)
	}
}

func TestCopy_ScalarsUntouched(t *testing.T) {
	t.Parallel()

	for _, level := range []CopyLevel{CopyNone, CopyShallow, CopyDeep} {
		if got := copyValue(42, level); got != 42 {
			t.Fatalf("level %d: %d", level, got)
		}
		if got := copyValue("s", level); got != "s" {
			t.Fatalf("level %d: %q", level, got)
		}
	}
	// Nil aggregates survive all levels.
	var nilMap map[string]int
	if got := copyValue(nilMap, CopyDeep); got != nil {
		t.Fatalf("nil map: %v", got)
	}
	var nilSlice []int
	if got := copyValue(nilSlice, CopyShallow); got != nil {
		t.Fatalf("nil slice: %v", got)
	}
}

func TestHashArgs(t *testing.T) {
	t.Parallel()

	if HashArgs("a", "b") == HashArgs("ab") {
		t.Fatal("argument boundaries must affect the hash")
	}
	if HashArgs(1) == HashArgs("1") {
		t.Fatal("argument types must affect the hash")
	}
	if HashArgs("x", 2) != HashArgs("x", 2) {
		t.Fatal("hash must be stable")
	}
	if HashArgs() == HashArgs(0) {
		t.Fatal("empty and zero args must differ")
	}
}
