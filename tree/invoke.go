package tree

import (
	"fmt"
	"reflect"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// operation is a registered implementation prepared for calls with evaluated arguments
type operation struct {
	namespace string
	name      string
	fn        reflect.Value
	typ       reflect.Type
	hasValue  bool
	hasError  bool
	// direct is set for implementations which take evaluated arguments as they are
	direct func(args ...any) (any, error)
}

func newOperation(namespace, name string, impl any) (*operation, error) {
	ret := &operation{
		namespace: namespace,
		name:      name,
	}
	switch f := impl.(type) {
	case func(...any) (any, error):
		ret.direct = f
		return ret, nil
	case func(...any) any:
		ret.direct = func(args ...any) (any, error) {
			return f(args...), nil
		}
		return ret, nil
	}
	if impl == nil {
		return nil, ret.implementationError("nil implementation")
	}
	ret.fn = reflect.ValueOf(impl)
	if ret.fn.Kind() != reflect.Func {
		return nil, ret.implementationError("expected function, got %T", impl)
	}
	if ret.fn.IsNil() {
		return nil, ret.implementationError("nil function")
	}
	ret.typ = ret.fn.Type()
	switch ret.typ.NumOut() {
	case 0:
	case 1:
		if ret.typ.Out(0) == errorType {
			ret.hasError = true
		} else {
			ret.hasValue = true
		}
	case 2:
		if ret.typ.Out(1) != errorType {
			return nil, ret.implementationError("second result must be error, got %s", ret.typ.Out(1))
		}
		ret.hasValue = true
		ret.hasError = true
	default:
		return nil, ret.implementationError("too many results: %d", ret.typ.NumOut())
	}
	return ret, nil
}

func (op *operation) implementationError(format string, args ...any) *ImplementationError {
	return &ImplementationError{
		Namespace: op.namespace,
		Op:        op.name,
		Reason:    fmt.Sprintf(format, args...),
	}
}

func (op *operation) checkArity(n int) error {
	if op.direct != nil {
		return nil
	}
	numIn := op.typ.NumIn()
	if op.typ.IsVariadic() {
		if n < numIn-1 {
			return &ArityError{Namespace: op.namespace, Op: op.name, Want: numIn - 1, Variadic: true, Got: n}
		}
		return nil
	}
	if n != numIn {
		return &ArityError{Namespace: op.namespace, Op: op.name, Want: numIn, Got: n}
	}
	return nil
}

func (op *operation) paramType(i int) reflect.Type {
	numIn := op.typ.NumIn()
	if op.typ.IsVariadic() && i >= numIn-1 {
		return op.typ.In(numIn - 1).Elem()
	}
	return op.typ.In(i)
}

// call invokes the implementation positionally. Functions without a value result return Undefined
func (op *operation) call(args []any) (any, error) {
	if op.direct != nil {
		return op.direct(args...)
	}
	if err := op.checkArity(len(args)); err != nil {
		return nil, err
	}
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		pt := op.paramType(i)
		v, ok := coerce(arg, pt)
		if !ok {
			return nil, &ArgumentError{
				Namespace: op.namespace,
				Op:        op.name,
				Index:     i,
				Want:      pt.String(),
				Got:       typeString(arg),
			}
		}
		in[i] = v
	}
	out := op.fn.Call(in)

	var ret any = Undefined
	var err error
	switch {
	case op.hasValue && op.hasError:
		ret, err = out[0].Interface(), asError(out[1])
	case op.hasValue:
		ret = out[0].Interface()
	case op.hasError:
		err = asError(out[0])
	}
	return ret, err
}

func asError(v reflect.Value) error {
	if v.IsNil() {
		return nil
	}
	return v.Interface().(error)
}

func typeString(v any) string {
	if v == nil {
		return "nil"
	}
	return reflect.TypeOf(v).String()
}

// coerce converts an evaluated value to the parameter type t. Evaluated numbers are int64,
// arrays are []any and objects are map[string]any, so narrowing and element-wise
// conversions are needed to call typed Go functions
func coerce(v any, t reflect.Type) (reflect.Value, bool) {
	if v == nil {
		switch t.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(t), true
		}
		return reflect.Value{}, false
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		return rv, true
	}
	ret := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if !rv.CanInt() || ret.OverflowInt(rv.Int()) {
			return reflect.Value{}, false
		}
		ret.SetInt(rv.Int())
		return ret, true

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if !rv.CanInt() || rv.Int() < 0 || ret.OverflowUint(uint64(rv.Int())) {
			return reflect.Value{}, false
		}
		ret.SetUint(uint64(rv.Int()))
		return ret, true

	case reflect.Float32, reflect.Float64:
		if !rv.CanInt() {
			return reflect.Value{}, false
		}
		ret.SetFloat(float64(rv.Int()))
		return ret, true

	case reflect.String, reflect.Bool:
		if rv.Kind() != t.Kind() {
			return reflect.Value{}, false
		}
		return rv.Convert(t), true

	case reflect.Slice:
		if rv.Kind() != reflect.Slice {
			return reflect.Value{}, false
		}
		ret = reflect.MakeSlice(t, rv.Len(), rv.Len())
		return ret, coerceElements(rv, ret, t.Elem())

	case reflect.Array:
		if rv.Kind() != reflect.Slice || rv.Len() != t.Len() {
			return reflect.Value{}, false
		}
		return ret, coerceElements(rv, ret, t.Elem())

	case reflect.Map:
		if rv.Kind() != reflect.Map {
			return reflect.Value{}, false
		}
		ret = reflect.MakeMapWithSize(t, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k, ok := coerce(iter.Key().Interface(), t.Key())
			if !ok {
				return reflect.Value{}, false
			}
			e, ok := coerce(iter.Value().Interface(), t.Elem())
			if !ok {
				return reflect.Value{}, false
			}
			ret.SetMapIndex(k, e)
		}
		return ret, true

	case reflect.Func:
		if rv.Kind() != reflect.Func || !rv.Type().ConvertibleTo(t) {
			return reflect.Value{}, false
		}
		return rv.Convert(t), true
	}
	return reflect.Value{}, false
}

func coerceElements(src, dst reflect.Value, elemType reflect.Type) bool {
	for i := 0; i < src.Len(); i++ {
		e, ok := coerce(src.Index(i).Interface(), elemType)
		if !ok {
			return false
		}
		dst.Index(i).Set(e)
	}
	return true
}
