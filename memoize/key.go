package memoize

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// HashArgs derives a stable 64-bit key from positional arguments, for
// wrapping functions whose argument list is not itself a comparable key:
//
//	f := memoize.NewKeyed(c,
//	    func(a query) (uint64, error) { return memoize.HashArgs(a.Table, a.ID), nil },
//	    run, memoize.Config[uint64, Row]{})
//
// Arguments are folded into one xxhash digest, tagged with their dynamic
// type and separated so that ("ab") and ("a","b") hash differently. The
// textual fmt representation is used, so arguments must format
// deterministically (avoid maps).
func HashArgs(args ...any) uint64 {
	d := xxhash.New()
	for _, a := range args {
		fmt.Fprintf(d, "%T\x1f%v\x1e", a, a)
	}
	return d.Sum64()
}
