package tree

type rule[T, R any] struct {
	check  func(T) bool
	handle func(T) (R, error)
}

// Matcher is an ordered list of (predicate, handler) rules.
// Match runs the handler of the first rule whose predicate accepts the value.
// The same variant tests drive evaluation and serialization with different handlers,
// node types themselves carry no behavior
type Matcher[T, R any] struct {
	rules []rule[T, R]
}

func NewMatcher[T, R any]() *Matcher[T, R] {
	return &Matcher[T, R]{
		rules: make([]rule[T, R], 0),
	}
}

// Pattern appends a rule
func (m *Matcher[T, R]) Pattern(check func(T) bool, handle func(T) (R, error)) *Matcher[T, R] {
	m.rules = append(m.rules, rule[T, R]{check: check, handle: handle})
	return m
}

// Match returns NoMatchError if no rule accepts v
func (m *Matcher[T, R]) Match(v T) (R, error) {
	for _, r := range m.rules {
		if r.check(v) {
			return r.handle(v)
		}
	}
	var zero R
	return zero, &NoMatchError{Value: v}
}

func (m *Matcher[T, R]) Len() int {
	return len(m.rules)
}

// OnNode appends a rule which accepts nodes of variant V. A nil pointer of the
// variant is not accepted
func OnNode[V Node, R any](m *Matcher[Node, R], handle func(V) (R, error)) *Matcher[Node, R] {
	check := func(n Node) bool {
		return Is[V](n) && !isNilNode(n)
	}
	return m.Pattern(check, func(n Node) (R, error) {
		return handle(n.(V))
	})
}
