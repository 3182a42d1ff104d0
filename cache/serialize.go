package cache

import (
	"fmt"
	"io"
	"sort"

	"github.com/vmihailenco/msgpack/v5"
)

// Stream format: a fixed 6-byte envelope — 4-byte magic, one major
// version byte, one policy kind byte — followed by a msgpack payload:
// maxsize, policy parameters, entry count, then the entries in the
// policy's canonical order with whatever metadata the policy needs to
// rebuild its auxiliary structure (ring position, frequency, deadline).
//
// The payload is a flat positional sequence, so saving the same cache
// twice yields identical bytes. Keys and values go through msgpack
// reflection; types that round-trip through msgpack round-trip here.

var streamMagic = [4]byte{'c', 'k', 'i', 't'}

// formatVersion is the major format version. Load rejects any other.
const formatVersion = 1

type policyKind uint8

const (
	kindNone policyKind = iota + 1
	kindFIFO
	kindLRU
	kindLFU
	kindRR
	kindTTL
	kindVTTL
)

func writeHeader(w io.Writer, kind policyKind) error {
	h := [6]byte{streamMagic[0], streamMagic[1], streamMagic[2], streamMagic[3], formatVersion, byte(kind)}
	if _, err := w.Write(h[:]); err != nil {
		return fmt.Errorf("cache: write header: %w", err)
	}
	return nil
}

func readHeader(r io.Reader, want policyKind) error {
	var h [6]byte
	if _, err := io.ReadFull(r, h[:]); err != nil {
		return fmt.Errorf("cache: read header: %w", err)
	}
	if [4]byte(h[:4]) != streamMagic {
		return ErrBadStream
	}
	if h[4] != formatVersion {
		return fmt.Errorf("%w: stream has version %d, this build reads %d",
			ErrVersionMismatch, h[4], formatVersion)
	}
	if policyKind(h[5]) != want {
		return fmt.Errorf("%w: stream kind %d, cache kind %d", ErrBadPolicyKind, h[5], want)
	}
	return nil
}

func encodeAll(enc *msgpack.Encoder, vs ...any) error {
	for _, v := range vs {
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("cache: encode: %w", err)
		}
	}
	return nil
}

func decodeAll(dec *msgpack.Decoder, vs ...any) error {
	for _, v := range vs {
		if err := dec.Decode(v); err != nil {
			return fmt.Errorf("cache: decode: %w", err)
		}
	}
	return nil
}

// ---- Cache (no policy) ----

// Save writes the cache to w in the versioned stream format.
func (c *Cache[K, V]) Save(w io.Writer) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := writeHeader(w, kindNone); err != nil {
		return err
	}
	enc := msgpack.NewEncoder(w)
	if err := encodeAll(enc, c.maxsize, c.t.Len()); err != nil {
		return err
	}
	var err error
	c.t.Range(func(s int32) bool {
		e := c.t.At(s)
		err = encodeAll(enc, e.Key, e.Value)
		return err == nil
	})
	return err
}

// Load replaces the cache contents (and maxsize) with a stream written
// by Save. It fails for foreign, corrupt or version-incompatible streams.
func (c *Cache[K, V]) Load(r io.Reader) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := readHeader(r, kindNone); err != nil {
		return err
	}
	dec := msgpack.NewDecoder(r)
	var maxsize, n int
	if err := decodeAll(dec, &maxsize, &n); err != nil {
		return err
	}
	if maxsize <= 0 || n < 0 || n > maxsize {
		return ErrBadStream
	}
	c.t.Clear(true)
	c.maxsize = maxsize
	for i := 0; i < n; i++ {
		var k K
		var v V
		if err := decodeAll(dec, &k, &v); err != nil {
			return err
		}
		s, _ := c.t.Insert(k)
		c.t.At(s).Value = v
	}
	c.bump()
	return nil
}

// ---- ring caches (FIFO, LRU) ----

func saveRing[K comparable, V any](c *core[K, V], l *slotList, kind policyKind, w io.Writer) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := writeHeader(w, kind); err != nil {
		return err
	}
	enc := msgpack.NewEncoder(w)
	if err := encodeAll(enc, c.maxsize, c.t.Len()); err != nil {
		return err
	}
	for s := l.head; s != noSlot; s = c.t.At(s).Next {
		e := c.t.At(s)
		if err := encodeAll(enc, e.Key, e.Value); err != nil {
			return err
		}
	}
	return nil
}

func loadRing[K comparable, V any](c *core[K, V], l *slotList, kind policyKind, r io.Reader) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := readHeader(r, kind); err != nil {
		return err
	}
	dec := msgpack.NewDecoder(r)
	var maxsize, n int
	if err := decodeAll(dec, &maxsize, &n); err != nil {
		return err
	}
	if maxsize <= 0 || n < 0 || n > maxsize {
		return ErrBadStream
	}
	c.t.Clear(true)
	c.maxsize = maxsize
	*l = newSlotList()
	for i := 0; i < n; i++ {
		var k K
		var v V
		if err := decodeAll(dec, &k, &v); err != nil {
			return err
		}
		s, existed := c.t.Insert(k)
		if existed {
			return ErrBadStream // duplicate key would corrupt the ring
		}
		c.t.At(s).Value = v
		c.listPushBack(l, s)
	}
	c.bump()
	return nil
}

// Save writes the cache, oldest entry first.
func (c *FIFOCache[K, V]) Save(w io.Writer) error { return saveRing(&c.core, &c.order, kindFIFO, w) }

// Load replaces the cache contents with a stream written by Save; ring
// order is restored.
func (c *FIFOCache[K, V]) Load(r io.Reader) error { return loadRing(&c.core, &c.order, kindFIFO, r) }

// Save writes the cache, least recently used entry first.
func (c *LRUCache[K, V]) Save(w io.Writer) error { return saveRing(&c.core, &c.order, kindLRU, w) }

// Load replaces the cache contents with a stream written by Save;
// recency order is restored.
func (c *LRUCache[K, V]) Load(r io.Reader) error { return loadRing(&c.core, &c.order, kindLRU, r) }

// ---- LFU ----

// Save writes the cache in insertion order with per-entry counters.
func (c *LFUCache[K, V]) Save(w io.Writer) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := writeHeader(w, kindLFU); err != nil {
		return err
	}
	enc := msgpack.NewEncoder(w)
	if err := encodeAll(enc, c.maxsize, c.t.Len()); err != nil {
		return err
	}
	// Insertion order (by sequence stamp) keeps the age tie-break across
	// a round-trip; sequences are renumbered on load.
	slots := make([]int32, 0, c.t.Len())
	c.t.Range(func(s int32) bool {
		slots = append(slots, s)
		return true
	})
	sortSlotsByStamp(&c.core, slots)
	for _, s := range slots {
		e := c.t.At(s)
		if err := encodeAll(enc, e.Key, e.Value, e.Count); err != nil {
			return err
		}
	}
	return nil
}

// Load replaces the cache contents with a stream written by Save;
// counters and age order are restored.
func (c *LFUCache[K, V]) Load(r io.Reader) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := readHeader(r, kindLFU); err != nil {
		return err
	}
	dec := msgpack.NewDecoder(r)
	var maxsize, n int
	if err := decodeAll(dec, &maxsize, &n); err != nil {
		return err
	}
	if maxsize <= 0 || n < 0 || n > maxsize {
		return ErrBadStream
	}
	c.t.Clear(true)
	c.maxsize = maxsize
	c.seq = 0
	for i := 0; i < n; i++ {
		var k K
		var v V
		var count uint64
		if err := decodeAll(dec, &k, &v, &count); err != nil {
			return err
		}
		s, existed := c.t.Insert(k)
		if existed {
			return ErrBadStream
		}
		e := c.t.At(s)
		e.Value = v
		e.Count = count
		e.Stamp = int64(c.seq)
		c.seq++
	}
	c.bump()
	return nil
}

// ---- RR ----

// Save writes the cache in table order.
func (c *RRCache[K, V]) Save(w io.Writer) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := writeHeader(w, kindRR); err != nil {
		return err
	}
	enc := msgpack.NewEncoder(w)
	if err := encodeAll(enc, c.maxsize, c.t.Len()); err != nil {
		return err
	}
	var err error
	c.t.Range(func(s int32) bool {
		e := c.t.At(s)
		err = encodeAll(enc, e.Key, e.Value)
		return err == nil
	})
	return err
}

// Load replaces the cache contents with a stream written by Save.
func (c *RRCache[K, V]) Load(r io.Reader) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := readHeader(r, kindRR); err != nil {
		return err
	}
	dec := msgpack.NewDecoder(r)
	var maxsize, n int
	if err := decodeAll(dec, &maxsize, &n); err != nil {
		return err
	}
	if maxsize <= 0 || n < 0 || n > maxsize {
		return ErrBadStream
	}
	c.t.Clear(true)
	c.maxsize = maxsize
	for i := 0; i < n; i++ {
		var k K
		var v V
		if err := decodeAll(dec, &k, &v); err != nil {
			return err
		}
		s, _ := c.t.Insert(k)
		c.t.At(s).Value = v
	}
	c.bump()
	return nil
}

// ---- TTL ----

// Save writes the live entries oldest first, with absolute deadlines.
// Deadlines are UnixNano stamps, so a stream loaded later keeps expiring
// on the original schedule.
func (c *TTLCache[K, V]) Save(w io.Writer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sweepLocked() > 0 {
		c.bump()
	}
	if err := writeHeader(w, kindTTL); err != nil {
		return err
	}
	enc := msgpack.NewEncoder(w)
	if err := encodeAll(enc, c.maxsize, c.ttl, c.t.Len()); err != nil {
		return err
	}
	for s := c.order.head; s != noSlot; s = c.t.At(s).Next {
		e := c.t.At(s)
		if err := encodeAll(enc, e.Key, e.Value, e.Stamp); err != nil {
			return err
		}
	}
	return nil
}

// Load replaces the cache contents (and ttl) with a stream written by
// Save. Entries whose deadline already passed expire on the next sweep.
func (c *TTLCache[K, V]) Load(r io.Reader) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := readHeader(r, kindTTL); err != nil {
		return err
	}
	dec := msgpack.NewDecoder(r)
	var maxsize, n int
	var ttl int64
	if err := decodeAll(dec, &maxsize, &ttl, &n); err != nil {
		return err
	}
	if maxsize <= 0 || ttl <= 0 || n < 0 || n > maxsize {
		return ErrBadStream
	}
	c.t.Clear(true)
	c.maxsize = maxsize
	c.ttl = ttl
	c.order = newSlotList()
	prev := int64(0)
	for i := 0; i < n; i++ {
		var k K
		var v V
		var deadline int64
		if err := decodeAll(dec, &k, &v, &deadline); err != nil {
			return err
		}
		if deadline < prev {
			return ErrBadStream // ring must be deadline-monotonic
		}
		prev = deadline
		s, existed := c.t.Insert(k)
		if existed {
			return ErrBadStream
		}
		e := c.t.At(s)
		e.Value = v
		e.Stamp = deadline
		c.listPushBack(&c.order, s)
	}
	c.bump()
	return nil
}

// ---- VTTL ----

// Save writes the live entries in deadline order, never-expiring last,
// with absolute deadlines (0 = never).
func (c *VTTLCache[K, V]) Save(w io.Writer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sweepLocked() > 0 {
		c.bump()
	}
	if err := writeHeader(w, kindVTTL); err != nil {
		return err
	}
	enc := msgpack.NewEncoder(w)
	if err := encodeAll(enc, c.maxsize, c.t.Len()); err != nil {
		return err
	}
	c.heap.Sort(c.less)
	for i := 0; i < c.heap.Len(); i++ {
		e := c.t.At(c.heap.At(i))
		if err := encodeAll(enc, e.Key, e.Value, e.Stamp); err != nil {
			return err
		}
	}
	return nil
}

// Load replaces the cache contents with a stream written by Save;
// deadlines and their order are restored.
func (c *VTTLCache[K, V]) Load(r io.Reader) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := readHeader(r, kindVTTL); err != nil {
		return err
	}
	dec := msgpack.NewDecoder(r)
	var maxsize, n int
	if err := decodeAll(dec, &maxsize, &n); err != nil {
		return err
	}
	if maxsize <= 0 || n < 0 || n > maxsize {
		return ErrBadStream
	}
	c.t.Clear(true)
	c.maxsize = maxsize
	c.heap.Clear(true)
	for i := 0; i < n; i++ {
		var k K
		var v V
		var deadline int64
		if err := decodeAll(dec, &k, &v, &deadline); err != nil {
			return err
		}
		s, existed := c.t.Insert(k)
		if existed {
			return ErrBadStream
		}
		e := c.t.At(s)
		e.Value = v
		e.Stamp = deadline
		c.heap.Push(s)
	}
	c.bump()
	return nil
}

// sortSlotsByStamp orders slots by their sequence stamp (insertion age).
func sortSlotsByStamp[K comparable, V any](c *core[K, V], slots []int32) {
	sort.Slice(slots, func(i, j int) bool {
		return c.t.At(slots[i]).Stamp < c.t.At(slots[j]).Stamp
	})
}
