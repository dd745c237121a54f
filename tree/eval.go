package tree

import (
	"fmt"
	"sort"
	"strconv"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Table maps operation names to Go functions implementing them
type Table map[string]any

type namespace struct {
	ops  map[string]*operation
	lang *Language
}

// Evaluator owns a registry of namespaces and evaluates trees against it.
// Registration and evaluation may be called from many goroutines; after Seal
// the registry is read-only
type Evaluator struct {
	mutex      sync.RWMutex
	namespaces map[string]*namespace
	sealed     atomic.Bool
	log        *zap.SugaredLogger
	trace      bool
	maxDepth   int
}

type Option func(*Evaluator)

func WithLogger(log *zap.SugaredLogger) Option {
	return func(e *Evaluator) {
		e.log = log
	}
}

// WithTrace enables debug logging of every operation call
func WithTrace(trace bool) Option {
	return func(e *Evaluator) {
		e.trace = trace
	}
}

// WithMaxDepth limits structural depth of evaluated trees. 0 means no limit
func WithMaxDepth(maxDepth int) Option {
	return func(e *Evaluator) {
		e.maxDepth = maxDepth
	}
}

func NewEvaluator(opts ...Option) *Evaluator {
	ret := &Evaluator{
		namespaces: make(map[string]*namespace),
		log:        zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Register installs the implementation table under the namespace name and returns
// the language of builders for it. Operations of the language are the keys of
// the table in sorted order. Registering the same name again replaces the previous table
func (e *Evaluator) Register(name string, table Table) (*Language, error) {
	if err := validateNamespaceName(name); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(table))
	for opName := range table {
		names = append(names, opName)
	}
	sort.Strings(names)

	ns := &namespace{
		ops: make(map[string]*operation),
	}
	for _, opName := range names {
		op, err := newOperation(name, opName, table[opName])
		if err != nil {
			return nil, err
		}
		ns.ops[opName] = op
	}
	var err error
	if ns.lang, err = CreateLanguage(name, names); err != nil {
		return nil, err
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.sealed.Load() {
		return nil, ErrSealed
	}
	e.namespaces[name] = ns
	return ns.lang, nil
}

func (e *Evaluator) MustRegister(name string, table Table) *Language {
	ret, err := e.Register(name, table)
	if err != nil {
		panic(err)
	}
	return ret
}

// Seal makes the registry read-only. Registrations in progress complete before Seal returns
func (e *Evaluator) Seal() {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.sealed.Store(true)
}

func (e *Evaluator) Sealed() bool {
	return e.sealed.Load()
}

// Language returns builders of the registered namespace
func (e *Evaluator) Language(name string) (*Language, bool) {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	ns, ok := e.namespaces[name]
	if !ok {
		return nil, false
	}
	return ns.lang, true
}

// Namespaces returns names of registered namespaces, sorted
func (e *Evaluator) Namespaces() []string {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	ret := make([]string, 0, len(e.namespaces))
	for name := range e.namespaces {
		ret = append(ret, name)
	}
	sort.Strings(ret)
	return ret
}

func (e *Evaluator) lookup(namespaceName, opName string) (*operation, error) {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	ns, ok := e.namespaces[namespaceName]
	if !ok {
		return nil, &UnknownNamespaceError{Namespace: namespaceName}
	}
	op, ok := ns.ops[opName]
	if !ok {
		return nil, &UnknownOperationError{Namespace: namespaceName, Op: opName}
	}
	return op, nil
}

// Evaluate reduces the tree to a Go value:
//   - calls are invoked with arguments evaluated left to right
//   - NumberNode -> int64, StringNode -> string, BooleanNode -> bool
//   - NullNode -> nil, UndefinedNode -> Undefined
//   - ArrayNode -> []any, ObjectNode -> map[string]any (last pair wins)
//   - NativeFunctionNode -> the wrapped function, not invoked
//
// Any error abandons evaluation of the whole tree
func (e *Evaluator) Evaluate(n Node) (any, error) {
	return newEvalRun(e).eval(n)
}

func (e *Evaluator) MustEvaluate(n Node) any {
	ret, err := e.Evaluate(n)
	if err != nil {
		panic(err)
	}
	return ret
}

// evalRun is the state of one Evaluate call
type evalRun struct {
	e       *Evaluator
	depth   int
	matcher *Matcher[Node, any]
}

func newEvalRun(e *Evaluator) *evalRun {
	ret := &evalRun{e: e}
	m := NewMatcher[Node, any]()
	OnNode(m, ret.evalCall)
	OnNode(m, func(n *NumberNode) (any, error) { return n.Value, nil })
	OnNode(m, func(n *StringNode) (any, error) { return n.Value, nil })
	OnNode(m, func(n *BooleanNode) (any, error) { return n.Value, nil })
	OnNode(m, func(_ *NullNode) (any, error) { return nil, nil })
	OnNode(m, func(_ *UndefinedNode) (any, error) { return Undefined, nil })
	OnNode(m, ret.evalArray)
	OnNode(m, ret.evalObject)
	OnNode(m, func(n *NativeFunctionNode) (any, error) { return n.Fn, nil })
	ret.matcher = m
	return ret
}

func (r *evalRun) eval(n Node) (any, error) {
	r.depth++
	defer func() { r.depth-- }()

	if r.e.maxDepth > 0 && r.depth > r.e.maxDepth {
		return nil, &DepthError{MaxDepth: r.e.maxDepth}
	}
	return r.matcher.Match(n)
}

func (r *evalRun) evalCall(n *CallNode) (any, error) {
	args := make([]any, len(n.Args))
	var err error
	for i, arg := range n.Args {
		if args[i], err = r.eval(arg); err != nil {
			return nil, err
		}
	}
	op, err := r.e.lookup(n.Namespace, n.Op)
	if err != nil {
		return nil, err
	}
	if !r.e.trace {
		return op.call(args)
	}
	r.e.log.Debugf("call '%s' - IN: %v", n.Head(), args)
	ret, err := op.call(args)
	if err != nil {
		r.e.log.Debugf("call '%s' - ERR: %v", n.Head(), err)
	} else {
		r.e.log.Debugf("call '%s' - OUT: %v", n.Head(), ret)
	}
	return ret, err
}

func (r *evalRun) evalArray(n *ArrayNode) (any, error) {
	ret := make([]any, len(n.Items))
	var err error
	for i, item := range n.Items {
		if ret[i], err = r.eval(item); err != nil {
			return nil, err
		}
	}
	return ret, nil
}

func (r *evalRun) evalObject(n *ObjectNode) (any, error) {
	ret := make(map[string]any, len(n.Pairs))
	for _, p := range n.Pairs {
		k, err := r.eval(p.Key)
		if err != nil {
			return nil, err
		}
		v, err := r.eval(p.Value)
		if err != nil {
			return nil, err
		}
		ret[keyString(k)] = v
	}
	return ret, nil
}

// keyString turns an evaluated key into a map key
func keyString(k any) string {
	switch k := k.(type) {
	case string:
		return k
	case nil:
		return "null"
	case int64:
		return strconv.FormatInt(k, 10)
	case bool:
		return strconv.FormatBool(k)
	case fmt.Stringer:
		return k.String()
	}
	return fmt.Sprint(k)
}
