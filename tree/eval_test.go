package tree

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/lunfardo314/treebranch/util/testutil"
	"github.com/stretchr/testify/require"
)

var mathTable = Table{
	"add":      func(a, b int) int { return a + b },
	"subtract": func(a, b int) int { return a - b },
	"multiply": func(a, b int) int { return a * b },
}

var errDivisionByZero = errors.New("division by zero")

func newMathEvaluator(t *testing.T, opts ...Option) (*Evaluator, *Language) {
	e := NewEvaluator(opts...)
	m, err := e.Register("math", mathTable)
	require.NoError(t, err)
	return e, m
}

func TestEvalRunningCode(t *testing.T) {
	e, m := newMathEvaluator(t)
	add, sub, mul := m.Op("add"), m.Op("subtract"), m.Op("multiply")

	code := mul(add(6, 2), sub(6, 4))
	ret, err := e.Evaluate(code)
	require.NoError(t, err)
	require.EqualValues(t, 16, ret)
}

func TestEvalNodes(t *testing.T) {
	e := NewEvaluator()
	t.Run("string", func(t *testing.T) {
		require.EqualValues(t, "foo", e.MustEvaluate(NewString("foo")))
	})
	t.Run("number", func(t *testing.T) {
		require.Equal(t, int64(4), e.MustEvaluate(NewNumber(4)))
	})
	t.Run("boolean", func(t *testing.T) {
		require.Equal(t, true, e.MustEvaluate(NewBoolean(true)))
	})
	t.Run("null", func(t *testing.T) {
		require.Nil(t, e.MustEvaluate(NewNull()))
	})
	t.Run("undefined", func(t *testing.T) {
		require.Equal(t, Undefined, e.MustEvaluate(NewUndefined()))
	})
	t.Run("array", func(t *testing.T) {
		ret := e.MustEvaluate(NewArray(NewNumber(1), NewString("foo")))
		require.Equal(t, []any{int64(1), "foo"}, ret)
	})
	t.Run("object", func(t *testing.T) {
		ret := e.MustEvaluate(NewObject(Pair{NewString("foo"), NewString("bar")}))
		require.Equal(t, map[string]any{"foo": "bar"}, ret)
	})
	t.Run("object last wins", func(t *testing.T) {
		ret := e.MustEvaluate(NewObject(
			Pair{NewString("foo"), NewString("bar")},
			Pair{NewString("foo"), NewString("baz")},
		))
		require.Equal(t, map[string]any{"foo": "baz"}, ret)
	})
	t.Run("object keys", func(t *testing.T) {
		ret := e.MustEvaluate(NewObject(
			Pair{NewNumber(1), NewBoolean(true)},
			Pair{NewNull(), NewNumber(2)},
			Pair{NewUndefined(), NewNumber(3)},
			Pair{NewBoolean(false), NewNumber(4)},
		))
		require.Equal(t, map[string]any{"1": true, "null": int64(2), "undefined": int64(3), "false": int64(4)}, ret)
	})
	t.Run("function", func(t *testing.T) {
		f := func(x int) int { return x + 1 }
		ret := e.MustEvaluate(NewNativeFunction(f))
		fn, ok := ret.(func(int) int)
		require.True(t, ok)
		require.EqualValues(t, 3, fn(2))
	})
	t.Run("nil node", func(t *testing.T) {
		_, err := e.Evaluate(nil)
		var nm *NoMatchError
		require.True(t, errors.As(err, &nm))
		require.Panics(t, func() {
			e.MustEvaluate(nil)
		})
	})
	t.Run("typed nil node", func(t *testing.T) {
		for _, n := range []Node{(*NumberNode)(nil), (*CallNode)(nil), (*ObjectNode)(nil)} {
			_, err := e.Evaluate(NewArray(n))
			var nm *NoMatchError
			require.True(t, errors.As(err, &nm))
		}
	})
}

func TestEvalRoundTrip(t *testing.T) {
	e := NewEvaluator()
	for i, v := range []any{int64(0), int64(-42), int64(1) << 60, "", "foo", true, false, nil, Undefined} {
		t.Run(fmt.Sprintf("%d", i), func(t *testing.T) {
			require.Equal(t, v, e.MustEvaluate(MustMarshal(v)))
		})
	}
	t.Run("nested", func(t *testing.T) {
		v := []any{int64(1), "foo", []any{true, nil}, map[string]any{"a": int64(2)}}
		require.Equal(t, v, e.MustEvaluate(MustMarshal(v)))
	})
}

func TestEvalErrors(t *testing.T) {
	e, m := newMathEvaluator(t)
	t.Run("unknown operation", func(t *testing.T) {
		_, err := e.Evaluate(NewCall("math", "divide", NewNumber(6), NewNumber(2)))
		var uerr *UnknownOperationError
		require.True(t, errors.As(err, &uerr))
		require.EqualValues(t, "math", uerr.Namespace)
		require.EqualValues(t, "divide", uerr.Op)
	})
	t.Run("unknown namespace", func(t *testing.T) {
		_, err := e.Evaluate(NewCall("logic", "and"))
		var uerr *UnknownNamespaceError
		require.True(t, errors.As(err, &uerr))
		require.EqualValues(t, "logic", uerr.Namespace)
	})
	t.Run("unknown deep inside", func(t *testing.T) {
		code := m.Op("add")(1, []any{NewCall("math", "divide")})
		_, err := e.Evaluate(code)
		var uerr *UnknownOperationError
		require.True(t, errors.As(err, &uerr))
	})
	t.Run("arity", func(t *testing.T) {
		_, err := e.Evaluate(m.Op("add")(1))
		var aerr *ArityError
		require.True(t, errors.As(err, &aerr))
		require.EqualValues(t, 2, aerr.Want)
		require.EqualValues(t, 1, aerr.Got)
		require.False(t, aerr.Variadic)
	})
	t.Run("argument type", func(t *testing.T) {
		_, err := e.Evaluate(m.Op("add")("x", 1))
		var aerr *ArgumentError
		require.True(t, errors.As(err, &aerr))
		require.EqualValues(t, 0, aerr.Index)
		require.EqualValues(t, "int", aerr.Want)
		require.EqualValues(t, "string", aerr.Got)
	})
}

func TestEvalOrder(t *testing.T) {
	e := NewEvaluator()
	order := make([]string, 0)
	s := e.MustRegister("seq", Table{
		"rec": func(s string) string {
			order = append(order, s)
			return s
		},
		"list": func(args ...any) any {
			order = append(order, "list")
			return args
		},
	})
	rec, list := s.Op("rec"), s.Op("list")

	ret, err := e.Evaluate(list(rec("a"), list(rec("b"), rec("c")), rec("d")))
	require.NoError(t, err)
	require.EqualValues(t, []string{"a", "b", "c", "list", "d", "list"}, order)
	require.Equal(t, []any{"a", []any{"b", "c"}, "d"}, ret)
}

func TestEvalImplementations(t *testing.T) {
	e := NewEvaluator()
	calls := 0
	l := e.MustRegister("impl", Table{
		"div": func(a, b int) (int, error) {
			calls++
			if b == 0 {
				return 0, errDivisionByZero
			}
			return a / b, nil
		},
		"small":  func(b int8) int8 { return b },
		"unsign": func(b uint) uint { return b },
		"half":   func(f float64) float64 { return f / 2 },
		"sum": func(xs []int) int {
			ret := 0
			for _, x := range xs {
				ret += x
			}
			return ret
		},
		"get":    func(m map[string]string, k string) string { return m[k] },
		"join":   func(sep string, parts ...string) string { return strings.Join(parts, sep) },
		"noop":   func() {},
		"fail":   func() error { return errDivisionByZero },
		"isNil":  func(v any) bool { return v == nil },
		"apply":  func(f func(int) int, v int) int { return f(v) },
		"pair":   func(p [2]string) string { return p[0] + p[1] },
		"direct": func(args ...any) (any, error) { return len(args), nil },
	})
	t.Run("value and error", func(t *testing.T) {
		require.EqualValues(t, 3, e.MustEvaluate(l.Op("div")(7, 2)))
	})
	t.Run("error abandons evaluation", func(t *testing.T) {
		calls = 0
		div := l.Op("div")
		_, err := e.Evaluate(div(div(1, 0), 1))
		require.True(t, errors.Is(err, errDivisionByZero))
		require.EqualValues(t, 1, calls)
	})
	t.Run("narrowing", func(t *testing.T) {
		require.EqualValues(t, 100, e.MustEvaluate(l.Op("small")(100)))
		_, err := e.Evaluate(l.Op("small")(300))
		var aerr *ArgumentError
		require.True(t, errors.As(err, &aerr))

		require.EqualValues(t, 5, e.MustEvaluate(l.Op("unsign")(5)))
		_, err = e.Evaluate(l.Op("unsign")(-5))
		require.True(t, errors.As(err, &aerr))
	})
	t.Run("float parameter", func(t *testing.T) {
		require.EqualValues(t, 2.5, e.MustEvaluate(l.Op("half")(5)))
	})
	t.Run("slice", func(t *testing.T) {
		require.EqualValues(t, 6, e.MustEvaluate(l.Op("sum")([]int{1, 2, 3})))
		_, err := e.Evaluate(l.Op("sum")([]any{1, "x"}))
		var aerr *ArgumentError
		require.True(t, errors.As(err, &aerr))
	})
	t.Run("array", func(t *testing.T) {
		require.EqualValues(t, "ab", e.MustEvaluate(l.Op("pair")([]string{"a", "b"})))
		_, err := e.Evaluate(l.Op("pair")([]string{"a"}))
		require.Error(t, err)
	})
	t.Run("map", func(t *testing.T) {
		require.EqualValues(t, "b", e.MustEvaluate(l.Op("get")(map[string]string{"a": "b"}, "a")))
	})
	t.Run("variadic", func(t *testing.T) {
		join := l.Op("join")
		require.EqualValues(t, "a-b-c", e.MustEvaluate(join("-", "a", "b", "c")))
		require.EqualValues(t, "", e.MustEvaluate(join("-")))
		_, err := e.Evaluate(join())
		var aerr *ArityError
		require.True(t, errors.As(err, &aerr))
		require.True(t, aerr.Variadic)
		require.EqualValues(t, 1, aerr.Want)
	})
	t.Run("no result", func(t *testing.T) {
		require.Equal(t, Undefined, e.MustEvaluate(l.Op("noop")()))
		_, err := e.Evaluate(l.Op("fail")())
		require.True(t, errors.Is(err, errDivisionByZero))
	})
	t.Run("nil argument", func(t *testing.T) {
		require.Equal(t, true, e.MustEvaluate(l.Op("isNil")(nil)))
		require.Equal(t, false, e.MustEvaluate(l.Op("isNil")(Undefined)))
	})
	t.Run("native function argument", func(t *testing.T) {
		inc := func(x int) int { return x + 1 }
		require.EqualValues(t, 11, e.MustEvaluate(l.Op("apply")(inc, 10)))
	})
	t.Run("direct", func(t *testing.T) {
		require.EqualValues(t, 3, e.MustEvaluate(l.Op("direct")(1, "a", nil)))
	})
}

func TestRegister(t *testing.T) {
	t.Run("language", func(t *testing.T) {
		e, m := newMathEvaluator(t)
		require.EqualValues(t, "math", m.Meta.Name)
		require.EqualValues(t, []string{"add", "multiply", "subtract"}, m.Operations())
		l, ok := e.Language("math")
		require.True(t, ok)
		require.Same(t, m, l)
		_, ok = e.Language("logic")
		require.False(t, ok)
		require.EqualValues(t, []string{"math"}, e.Namespaces())
	})
	t.Run("wrong implementations", func(t *testing.T) {
		e := NewEvaluator()
		for i, impl := range []any{5, nil, (func())(nil), func() (int, int) { return 0, 0 }, func() (int, error, int) { return 0, nil, 0 }} {
			_, err := e.Register("bad", Table{"op": impl})
			var ierr *ImplementationError
			require.True(t, errors.As(err, &ierr), "case %d", i)
			require.EqualValues(t, "op", ierr.Op)
		}
		require.EqualValues(t, 0, len(e.Namespaces()))
	})
	t.Run("wrong names", func(t *testing.T) {
		e := NewEvaluator()
		_, err := e.Register("", Table{})
		require.True(t, errors.Is(err, ErrInvalidLanguage))
		_, err = e.Register("a/b", Table{})
		require.True(t, errors.Is(err, ErrInvalidLanguage))
		_, err = e.Register("a", Table{"_meta": func() {}})
		require.True(t, errors.Is(err, ErrInvalidLanguage))
	})
	t.Run("overwrite", func(t *testing.T) {
		e := NewEvaluator()
		m := e.MustRegister("math", Table{"add": func(a, b int) int { return a + b }})
		code := m.Op("add")(2, 3)
		require.EqualValues(t, 5, e.MustEvaluate(code))

		e.MustRegister("math", Table{"add": func(a, b int) int { return a * b }})
		require.EqualValues(t, 6, e.MustEvaluate(code))
	})
	t.Run("evaluators are independent", func(t *testing.T) {
		e1, m := newMathEvaluator(t)
		e2 := NewEvaluator()
		code := m.Op("add")(1, 1)
		require.EqualValues(t, 2, e1.MustEvaluate(code))
		_, err := e2.Evaluate(code)
		var uerr *UnknownNamespaceError
		require.True(t, errors.As(err, &uerr))
	})
	t.Run("builder only language", func(t *testing.T) {
		e, _ := newMathEvaluator(t)
		l := MustCreateLanguage("math", []string{"add"})
		require.EqualValues(t, 7, e.MustEvaluate(l.Op("add")(3, 4)))
	})
	t.Run("must", func(t *testing.T) {
		require.Panics(t, func() {
			NewEvaluator().MustRegister("x", Table{"y": 1})
		})
	})
}

func TestSeal(t *testing.T) {
	e, m := newMathEvaluator(t)
	require.False(t, e.Sealed())
	e.Seal()
	require.True(t, e.Sealed())

	_, err := e.Register("logic", Table{"not": func(b bool) bool { return !b }})
	require.True(t, errors.Is(err, ErrSealed))
	require.EqualValues(t, []string{"math"}, e.Namespaces())
	require.EqualValues(t, 4, e.MustEvaluate(m.Op("add")(2, 2)))
}

func TestSealConcurrentRegister(t *testing.T) {
	e := NewEvaluator()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; ; j++ {
				_, err := e.Register(fmt.Sprintf("ns%d_%d", i, j), Table{"id": func(v any) any { return v }})
				if err != nil {
					if !errors.Is(err, ErrSealed) {
						t.Error(err)
					}
					return
				}
				if j == 100 {
					e.Seal()
				}
			}
		}(i)
	}
	for !e.Sealed() {
		runtime.Gosched()
	}
	numSealed := len(e.Namespaces())
	wg.Wait()
	require.EqualValues(t, numSealed, len(e.Namespaces()))
}

func TestConcurrentEvaluation(t *testing.T) {
	e, m := newMathEvaluator(t)
	add, mul := m.Op("add"), m.Op("multiply")

	var wg sync.WaitGroup
	results := make([]any, 100)
	errs := make([]error, 100)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = e.Evaluate(mul(add(i, 1), 2))
		}(i)
	}
	// registration of other namespaces doesn't disturb running evaluations
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 10; i++ {
			e.MustRegister(fmt.Sprintf("ns%d", i), Table{"id": func(v any) any { return v }})
		}
	}()
	wg.Wait()
	for i := range results {
		require.NoError(t, errs[i])
		require.EqualValues(t, (i+1)*2, results[i])
	}
	require.EqualValues(t, 11, len(e.Namespaces()))
}

func TestSharedSubtree(t *testing.T) {
	e := NewEvaluator()
	calls := 0
	m := e.MustRegister("math", Table{
		"add": func(a, b int) int {
			calls++
			return a + b
		},
		"multiply": func(a, b int) int { return a * b },
	})
	shared := m.Op("add")(1, 2)
	require.EqualValues(t, 9, e.MustEvaluate(m.Op("multiply")(shared, shared)))
	require.EqualValues(t, 2, calls)
}

func TestMaxDepth(t *testing.T) {
	t.Run("within", func(t *testing.T) {
		e := NewEvaluator(WithMaxDepth(3))
		ret, err := e.Evaluate(MustMarshal([]any{[]any{1}}))
		require.NoError(t, err)
		require.Equal(t, []any{[]any{int64(1)}}, ret)
	})
	t.Run("exceeded", func(t *testing.T) {
		e := NewEvaluator(WithMaxDepth(3))
		_, err := e.Evaluate(MustMarshal([]any{[]any{[]any{1}}}))
		var derr *DepthError
		require.True(t, errors.As(err, &derr))
		require.EqualValues(t, 3, derr.MaxDepth)
	})
	t.Run("cycle", func(t *testing.T) {
		e := NewEvaluator(WithMaxDepth(1000))
		arr := NewArray()
		arr.Items = []Node{arr}
		_, err := e.Evaluate(arr)
		var derr *DepthError
		require.True(t, errors.As(err, &derr))
	})
}

func TestTrace(t *testing.T) {
	log, logs := testutil.NewObservedLogger()
	e, m := newMathEvaluator(t, WithLogger(log), WithTrace(true))
	require.EqualValues(t, 3, e.MustEvaluate(m.Op("add")(1, 2)))

	entries := logs.All()
	require.EqualValues(t, 2, len(entries))
	require.Contains(t, entries[0].Message, "'math/add' - IN")
	require.Contains(t, entries[1].Message, "'math/add' - OUT: 3")

	t.Run("no trace", func(t *testing.T) {
		log, logs := testutil.NewObservedLogger()
		e, m := newMathEvaluator(t, WithLogger(log))
		require.EqualValues(t, 3, e.MustEvaluate(m.Op("add")(1, 2)))
		require.EqualValues(t, 0, logs.Len())
	})
	t.Run("simple logger", func(t *testing.T) {
		e, m := newMathEvaluator(t, WithLogger(testutil.NewSimpleLogger(true)), WithTrace(true))
		require.EqualValues(t, 3, e.MustEvaluate(m.Op("add")(1, 2)))
	})
}
