package evm

import (
	"math/big"
	"reflect"
)

// go-ethereum unpacks ABI tuples into anonymous structs. The components
// downstream work with ordered field slices instead, so they never depend
// on go-ethereum's generated field names.

// FlattenTuple converts one unpacked tuple value (an anonymous struct) to
// its field values in declaration order. Non-struct values come back as a
// single-element slice.
func FlattenTuple(v any) []any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return []any{v}
	}

	fields := make([]any, rv.NumField())
	for i := 0; i < rv.NumField(); i++ {
		fields[i] = normalize(rv.Field(i).Interface())
	}
	return fields
}

// FlattenTupleSlice converts an unpacked tuple[] value to a slice of
// ordered field slices.
func FlattenTupleSlice(v any) [][]any {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil
	}

	out := make([][]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = FlattenTuple(rv.Index(i).Interface())
	}
	return out
}

// normalize maps go-ethereum value types onto the small set the components
// consume: addresses and hashes become hex strings, tuple structs become
// ordered field slices.
func normalize(v any) any {
	type hexer interface{ Hex() string }
	if h, ok := v.(hexer); ok {
		return h.Hex()
	}
	switch v.(type) {
	case *big.Int, []byte, string, bool:
		return v
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Struct:
		return FlattenTuple(v)
	case reflect.Ptr:
		if rv.Elem().Kind() == reflect.Struct {
			return FlattenTuple(v)
		}
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Struct {
			return FlattenTupleSlice(v)
		}
	}
	return v
}
