package tree

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
)

// valueMatcher classifies Go values. The order of the rules matters: several
// kinds overlap (Object is a slice, Undefined is a struct, nodes are pointers to structs)
var valueMatcher *Matcher[any, Node]

var objectType = reflect.TypeOf(Object{})

func init() {
	valueMatcher = NewMatcher[any, Node]().
		Pattern(isInteger, marshalInteger).
		Pattern(isSequence, marshalSequence).
		Pattern(isKind(reflect.String), func(v any) (Node, error) {
			return NewString(reflect.ValueOf(v).String()), nil
		}).
		Pattern(isKind(reflect.Bool), func(v any) (Node, error) {
			return NewBoolean(reflect.ValueOf(v).Bool()), nil
		}).
		Pattern(isNull, func(_ any) (Node, error) {
			return NewNull(), nil
		}).
		Pattern(isUndefined, func(_ any) (Node, error) {
			return NewUndefined(), nil
		}).
		Pattern(isNode, func(v any) (Node, error) {
			return v.(Node), nil
		}).
		Pattern(isAggregate, marshalAggregate).
		Pattern(isKind(reflect.Func), func(v any) (Node, error) {
			return NewNativeFunction(v), nil
		})
}

// Marshal converts a Go value into a node:
//   - integers and whole floats -> NumberNode
//   - slices and arrays -> ArrayNode
//   - strings -> StringNode, bools -> BooleanNode
//   - nil, nil pointers, nil funcs -> NullNode; Undefined -> UndefinedNode
//   - nodes are returned unchanged
//   - Object, maps and structs -> ObjectNode
//   - funcs -> NativeFunctionNode
//
// Everything else, including non-whole floats, is a MarshalError.
// Non-nil pointers are dereferenced
func Marshal(v any) (Node, error) {
	v = deref(v)
	ret, err := valueMatcher.Match(v)
	if _, noMatch := err.(*NoMatchError); noMatch {
		return nil, newMarshalError(v, "unsupported kind of value")
	}
	return ret, err
}

func MustMarshal(v any) Node {
	ret, err := Marshal(v)
	if err != nil {
		panic(err)
	}
	return ret
}

func deref(v any) any {
	if v == nil {
		return nil
	}
	if _, ok := v.(Node); ok {
		return v
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		if n, ok := rv.Interface().(Node); ok {
			return n
		}
		rv = rv.Elem()
	}
	return rv.Interface()
}

func kindOf(v any) reflect.Kind {
	if v == nil {
		return reflect.Invalid
	}
	return reflect.TypeOf(v).Kind()
}

func isKind(k reflect.Kind) func(any) bool {
	return func(v any) bool {
		return kindOf(v) == k
	}
}

func isInteger(v any) bool {
	switch kindOf(v) {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func marshalInteger(v any) (Node, error) {
	rv := reflect.ValueOf(v)
	switch {
	case rv.CanInt():
		return NewNumber(rv.Int()), nil
	case rv.CanUint():
		u := rv.Uint()
		if u > math.MaxInt64 {
			return nil, newMarshalError(v, "integer %d overflows int64", u)
		}
		return NewNumber(int64(u)), nil
	}
	f := rv.Float()
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil, newMarshalError(v, "non-integer number %v", f)
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return nil, newMarshalError(v, "number %v out of int64 range", f)
	}
	return NewNumber(int64(f)), nil
}

func isSequence(v any) bool {
	k := kindOf(v)
	return (k == reflect.Slice || k == reflect.Array) && reflect.TypeOf(v) != objectType
}

func marshalSequence(v any) (Node, error) {
	rv := reflect.ValueOf(v)
	items := make([]Node, rv.Len())
	var err error
	for i := range items {
		if items[i], err = Marshal(rv.Index(i).Interface()); err != nil {
			return nil, err
		}
	}
	return NewArray(items...), nil
}

func isNull(v any) bool {
	if v == nil {
		return true
	}
	switch kindOf(v) {
	case reflect.Pointer, reflect.Func, reflect.Interface:
		return reflect.ValueOf(v).IsNil()
	}
	return false
}

func isUndefined(v any) bool {
	_, ok := v.(undefinedValue)
	return ok
}

func isNode(v any) bool {
	_, ok := v.(Node)
	return ok
}

func isAggregate(v any) bool {
	switch kindOf(v) {
	case reflect.Map, reflect.Struct:
		return true
	}
	_, ok := v.(Object)
	return ok
}

func marshalAggregate(v any) (Node, error) {
	if obj, ok := v.(Object); ok {
		pairs := make([]Pair, 0, len(obj))
		for _, f := range obj {
			p, err := marshalPair(f.Key, f.Value)
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, p)
		}
		return NewObject(pairs...), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Map {
		pairs := make([]Pair, 0, rv.Len())
		for _, k := range sortedMapKeys(rv) {
			p, err := marshalPair(k.Interface(), rv.MapIndex(k).Interface())
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, p)
		}
		return NewObject(pairs...), nil
	}
	// struct: exported fields in declaration order
	t := rv.Type()
	pairs := make([]Pair, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, skip := fieldName(f)
		if skip {
			continue
		}
		p, err := marshalPair(name, rv.Field(i).Interface())
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, p)
	}
	return NewObject(pairs...), nil
}

func marshalPair(k, v any) (Pair, error) {
	kn, err := Marshal(k)
	if err != nil {
		return Pair{}, err
	}
	vn, err := Marshal(v)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Key: kn, Value: vn}, nil
}

func fieldName(f reflect.StructField) (string, bool) {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", true
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		name = f.Name
	}
	return name, false
}

// sortedMapKeys makes enumeration of a map deterministic
func sortedMapKeys(rv reflect.Value) []reflect.Value {
	keys := rv.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return lessKey(keys[i], keys[j])
	})
	return keys
}

func lessKey(a, b reflect.Value) bool {
	if a.Kind() == reflect.Interface {
		a = a.Elem()
	}
	if b.Kind() == reflect.Interface {
		b = b.Elem()
	}
	if a.IsValid() && b.IsValid() && a.Kind() == b.Kind() {
		switch {
		case a.Kind() == reflect.String:
			return a.String() < b.String()
		case a.CanInt():
			return a.Int() < b.Int()
		case a.CanUint():
			return a.Uint() < b.Uint()
		case a.CanFloat():
			return a.Float() < b.Float()
		}
	}
	ta, tb := typeName(a), typeName(b)
	if ta != tb {
		return ta < tb
	}
	return valueString(a) < valueString(b)
}

func valueString(v reflect.Value) string {
	if !v.IsValid() {
		return ""
	}
	return fmt.Sprint(v.Interface())
}

func typeName(v reflect.Value) string {
	if !v.IsValid() {
		return ""
	}
	return v.Type().String()
}
