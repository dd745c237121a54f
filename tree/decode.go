package tree

import (
	"encoding/json"
	"math"
	"reflect"
	"strings"
)

// FromList restores the tree from its list form. Numbers may come as any Go integer,
// whole float64 or json.Number, as produced by JSON decoders.
// The list form of a native function can't be restored: ErrNativeFunction
func FromList(list []any) (Node, error) {
	if len(list) == 0 {
		return nil, newDecodeError("empty list")
	}
	head, ok := list[0].(string)
	if !ok {
		return nil, newDecodeError("head must be string, got %s", typeString(list[0]))
	}
	args := list[1:]
	switch head {
	case TagNumber:
		if len(args) != 1 {
			return nil, newDecodeError("'%s' expects 1 value, got %d", head, len(args))
		}
		v, err := decodeNumber(args[0])
		if err != nil {
			return nil, err
		}
		return NewNumber(v), nil

	case TagString:
		if len(args) != 1 {
			return nil, newDecodeError("'%s' expects 1 value, got %d", head, len(args))
		}
		s, ok := args[0].(string)
		if !ok {
			return nil, newDecodeError("string value expected, got %s", typeString(args[0]))
		}
		return NewString(s), nil

	case TagBoolean:
		if len(args) != 1 {
			return nil, newDecodeError("'%s' expects 1 value, got %d", head, len(args))
		}
		b, ok := args[0].(bool)
		if !ok {
			return nil, newDecodeError("bool value expected, got %s", typeString(args[0]))
		}
		return NewBoolean(b), nil

	case TagNull, TagUndefined, TagNativeFunction:
		if len(args) != 0 {
			return nil, newDecodeError("'%s' expects no values, got %d", head, len(args))
		}
		switch head {
		case TagNull:
			return NewNull(), nil
		case TagUndefined:
			return NewUndefined(), nil
		}
		return nil, ErrNativeFunction

	case TagArray:
		items, err := decodeItems(args)
		if err != nil {
			return nil, err
		}
		return NewArray(items...), nil

	case TagObject:
		pairs := make([]Pair, len(args))
		for i, a := range args {
			pl, ok := asList(a)
			if !ok || len(pl) != 2 {
				return nil, newDecodeError("object pair #%d must be a list of 2 elements", i)
			}
			kl, okk := asList(pl[0])
			vl, okv := asList(pl[1])
			if !okk || !okv {
				return nil, newDecodeError("object pair #%d: key and value must be lists", i)
			}
			var err error
			if pairs[i].Key, err = FromList(kl); err != nil {
				return nil, err
			}
			if pairs[i].Value, err = FromList(vl); err != nil {
				return nil, err
			}
		}
		return NewObject(pairs...), nil
	}
	namespaceName, op, found := strings.Cut(head, "/")
	if !found || namespaceName == "" || op == "" {
		return nil, newDecodeError("unknown head '%s'", head)
	}
	items, err := decodeItems(args)
	if err != nil {
		return nil, err
	}
	return NewCall(namespaceName, op, items...), nil
}

func MustFromList(list []any) Node {
	ret, err := FromList(list)
	if err != nil {
		panic(err)
	}
	return ret
}

func decodeItems(args []any) ([]Node, error) {
	ret := make([]Node, len(args))
	for i, a := range args {
		l, ok := asList(a)
		if !ok {
			return nil, newDecodeError("element #%d must be a list, got %s", i, typeString(a))
		}
		var err error
		if ret[i], err = FromList(l); err != nil {
			return nil, err
		}
	}
	return ret, nil
}

// asList accepts []any and slices of other element types
func asList(v any) ([]any, bool) {
	if l, ok := v.([]any); ok {
		return l, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, false
	}
	ret := make([]any, rv.Len())
	for i := range ret {
		ret[i] = rv.Index(i).Interface()
	}
	return ret, true
}

func decodeNumber(v any) (int64, error) {
	switch n := v.(type) {
	case json.Number:
		ret, err := n.Int64()
		if err != nil {
			return 0, newDecodeError("integer expected, got '%s'", n.String())
		}
		return ret, nil
	case float64:
		if n != math.Trunc(n) || n < math.MinInt64 || n >= math.MaxInt64 {
			return 0, newDecodeError("integer expected, got %v", n)
		}
		return int64(n), nil
	}
	rv := reflect.ValueOf(v)
	switch {
	case v == nil:
	case rv.CanInt():
		return rv.Int(), nil
	case rv.CanUint() && rv.Uint() <= math.MaxInt64:
		return int64(rv.Uint()), nil
	}
	return 0, newDecodeError("integer expected, got %s", typeString(v))
}
