// Package lazyheap provides a deadline sequence that defers sorting.
//
// Pushes append in O(1) and mark the sequence dirty; the first access
// that needs order (front peek, pop, ordered iteration) sorts once.
// The sort is stable, so elements that compare equal keep their push
// order — the tie-break per-key TTL relies on for never-expiring entries.
//
// The heap stores arena slot indices; the comparator is supplied by the
// owning cache, which reads deadlines through the slots.
package lazyheap

import "sort"

// Less orders two slots. It must be consistent between calls while the
// heap is dirty (the owning cache holds its lock across the whole pass).
type Less func(a, b int32) bool

// Heap is a lazily sorted sequence of slot indices.
// Not safe for concurrent use.
type Heap struct {
	slots  []int32
	sorted bool
}

// Len returns the number of tracked slots.
func (h *Heap) Len() int { return len(h.slots) }

// Push appends a slot and defers sorting.
func (h *Heap) Push(slot int32) {
	h.slots = append(h.slots, slot)
	if len(h.slots) > 1 {
		h.sorted = false
	}
}

// MarkDirty forces a re-sort on the next ordered access. Call it after
// changing the sort key of a tracked slot in place.
func (h *Heap) MarkDirty() {
	if len(h.slots) > 1 {
		h.sorted = false
	}
}

// Sort establishes order if the sequence is dirty.
func (h *Heap) Sort(less Less) {
	if h.sorted {
		return
	}
	sort.SliceStable(h.slots, func(i, j int) bool { return less(h.slots[i], h.slots[j]) })
	h.sorted = true
}

// Front returns the least slot after sorting, or -1 if empty.
func (h *Heap) Front(less Less) int32 {
	h.Sort(less)
	if len(h.slots) == 0 {
		return -1
	}
	return h.slots[0]
}

// PopFront removes and returns the least slot, or -1 if empty.
func (h *Heap) PopFront(less Less) int32 {
	h.Sort(less)
	if len(h.slots) == 0 {
		return -1
	}
	s := h.slots[0]
	h.slots = h.slots[1:]
	return s
}

// Remove drops one occurrence of slot. O(n); used by explicit deletes.
// Relative order of the remaining slots is preserved.
func (h *Heap) Remove(slot int32) {
	for i, s := range h.slots {
		if s == slot {
			h.slots = append(h.slots[:i], h.slots[i+1:]...)
			return
		}
	}
}

// At returns the slot at rank i. The caller must Sort first when rank
// order matters.
func (h *Heap) At(i int) int32 { return h.slots[i] }

// Reindex rewrites slots after an arena compaction: remap[old] = new,
// -1 entries are dropped.
func (h *Heap) Reindex(remap []int32) {
	out := h.slots[:0]
	for _, s := range h.slots {
		if n := remap[s]; n >= 0 {
			out = append(out, n)
		}
	}
	h.slots = out
}

// Clear empties the heap. With reuse the backing array is kept.
func (h *Heap) Clear(reuse bool) {
	if reuse {
		h.slots = h.slots[:0]
	} else {
		h.slots = nil
	}
	h.sorted = true
}

