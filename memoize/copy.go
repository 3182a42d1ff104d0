package memoize

import "reflect"

// CopyLevel controls what a wrapped call returns when the cached value
// is a mutable aggregate. Without copying, a caller mutating the result
// mutates the cached entry too.
type CopyLevel int

const (
	// CopyNone returns cached values as stored.
	CopyNone CopyLevel = 0

	// CopyShallow clones the top level of map, slice and array results;
	// the elements themselves are shared with the cache. Other kinds are
	// returned as stored.
	CopyShallow CopyLevel = 1

	// CopyDeep recursively clones maps, slices, arrays, pointers and the
	// exported fields of structs. Unexported struct fields are carried
	// over by the enclosing struct assignment and stay shared, as do
	// channels and functions.
	CopyDeep CopyLevel = 2
)

func copyValue[V any](v V, level CopyLevel) V {
	switch level {
	case CopyShallow:
		return shallowCopy(v)
	case CopyDeep:
		return deepCopy(v)
	default:
		return v
	}
}

func shallowCopy[V any](v V) V {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return v
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		it := rv.MapRange()
		for it.Next() {
			out.SetMapIndex(it.Key(), it.Value())
		}
		return out.Interface().(V)
	case reflect.Slice:
		if rv.IsNil() {
			return v
		}
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		reflect.Copy(out, rv)
		return out.Interface().(V)
	case reflect.Array:
		// Arrays are values; the assignment already copied.
		return v
	default:
		return v
	}
}

func deepCopy[V any](v V) V {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return v
	}
	return deepCopyValue(rv).Interface().(V)
}

func deepCopyValue(rv reflect.Value) reflect.Value {
	switch rv.Kind() {
	case reflect.Map:
		if rv.IsNil() {
			return rv
		}
		out := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		it := rv.MapRange()
		for it.Next() {
			out.SetMapIndex(deepCopyValue(it.Key()), deepCopyValue(it.Value()))
		}
		return out

	case reflect.Slice:
		if rv.IsNil() {
			return rv
		}
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out.Index(i).Set(deepCopyValue(rv.Index(i)))
		}
		return out

	case reflect.Array:
		out := reflect.New(rv.Type()).Elem()
		for i := 0; i < rv.Len(); i++ {
			out.Index(i).Set(deepCopyValue(rv.Index(i)))
		}
		return out

	case reflect.Ptr:
		if rv.IsNil() {
			return rv
		}
		out := reflect.New(rv.Type().Elem())
		out.Elem().Set(deepCopyValue(rv.Elem()))
		return out

	case reflect.Struct:
		// Copy the whole value first (covers unexported fields), then
		// deep-copy the fields reflection may set.
		out := reflect.New(rv.Type()).Elem()
		out.Set(rv)
		for i := 0; i < rv.NumField(); i++ {
			if out.Field(i).CanSet() {
				out.Field(i).Set(deepCopyValue(rv.Field(i)))
			}
		}
		return out

	case reflect.Interface:
		if rv.IsNil() {
			return rv
		}
		out := reflect.New(rv.Type()).Elem()
		out.Set(deepCopyValue(rv.Elem()))
		return out

	default:
		return rv
	}
}
