package cache

import "errors"

var (
	// ErrKeyNotFound is returned when a required key is absent
	// (Delete, PopItem on an empty cache).
	ErrKeyNotFound = errors.New("cache: key not found")

	// ErrOverflow is returned by non-evicting caches when an insert would
	// exceed maxsize.
	ErrOverflow = errors.New("cache: maxsize reached")

	// ErrConcurrentModification is reported by an iterator whose cache was
	// mutated after the iterator was created.
	ErrConcurrentModification = errors.New("cache: cache changed during iteration")

	// ErrVersionMismatch is returned by Load for a stream written by a
	// different major format version.
	ErrVersionMismatch = errors.New("cache: incompatible serialization version")

	// ErrBadPolicyKind is returned by Load when the stream was saved from a
	// cache with a different eviction policy.
	ErrBadPolicyKind = errors.New("cache: serialized policy kind mismatch")

	// ErrBadStream is returned by Load for a stream that is not a cache dump.
	ErrBadStream = errors.New("cache: malformed stream")
)
