package tree

import (
	"fmt"
	"strings"

	"github.com/lunfardo314/unitrie/common"
)

// metaField is the reserved name of the language descriptor, never an operation
const metaField = "_meta"

type Meta struct {
	Name string
}

// Descriptor names a language and its operations
type Descriptor struct {
	Name       string   `yaml:"name"`
	Operations []string `yaml:"operations"`
}

// Builder marshals its arguments and returns a deferred call. Nothing is executed.
// It panics with *MarshalError if an argument can't be marshalled
type Builder func(args ...any) *CallNode

// Language is a namespace object: one builder per operation plus Meta
type Language struct {
	Meta     Meta
	ops      []string
	builders map[string]Builder
}

// CreateLanguage creates builders for the operations without any implementation behind them.
// Trees built this way can be serialized, or evaluated by an evaluator which has
// a namespace of the same name registered
func CreateLanguage(name string, ops []string) (*Language, error) {
	if err := validateNamespaceName(name); err != nil {
		return nil, err
	}
	ret := &Language{
		Meta:     Meta{Name: name},
		ops:      make([]string, 0, len(ops)),
		builders: make(map[string]Builder),
	}
	for _, op := range ops {
		if op == "" {
			return nil, fmt.Errorf("%w: empty operation name in '%s'", ErrInvalidLanguage, name)
		}
		if op == metaField {
			return nil, fmt.Errorf("%w: '%s' is reserved and can't be an operation of '%s'", ErrInvalidLanguage, metaField, name)
		}
		if _, already := ret.builders[op]; already {
			continue
		}
		ret.ops = append(ret.ops, op)
		ret.builders[op] = buildExpression(op, name)
	}
	common.Assert(len(ret.ops) == len(ret.builders), "inconsistent language '%s'", name)
	return ret, nil
}

func MustCreateLanguage(name string, ops []string) *Language {
	ret, err := CreateLanguage(name, ops)
	if err != nil {
		panic(err)
	}
	return ret
}

func validateNamespaceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty namespace name", ErrInvalidLanguage)
	}
	if strings.Contains(name, "/") {
		return fmt.Errorf("%w: namespace name '%s' contains '/'", ErrInvalidLanguage, name)
	}
	return nil
}

func buildExpression(op, namespace string) Builder {
	return func(args ...any) *CallNode {
		ret, err := newCallNode(namespace, op, args)
		if err != nil {
			panic(err)
		}
		return ret
	}
}

func newCallNode(namespace, op string, args []any) (*CallNode, error) {
	nodes := make([]Node, len(args))
	var err error
	for i, arg := range args {
		if nodes[i], err = Marshal(arg); err != nil {
			return nil, err
		}
	}
	return NewCall(namespace, op, nodes...), nil
}

func (l *Language) Name() string {
	return l.Meta.Name
}

// Operations returns operation names in definition order
func (l *Language) Operations() []string {
	ret := make([]string, len(l.ops))
	copy(ret, l.ops)
	return ret
}

func (l *Language) Has(op string) bool {
	_, ok := l.builders[op]
	return ok
}

// Op returns the builder of the operation. Panics with *UnknownOperationError if
// the language has no such operation
func (l *Language) Op(op string) Builder {
	ret, ok := l.builders[op]
	if !ok {
		panic(&UnknownOperationError{Namespace: l.Meta.Name, Op: op})
	}
	return ret
}

// Call is the non-panicking form of Op(op)(args...)
func (l *Language) Call(op string, args ...any) (*CallNode, error) {
	if !l.Has(op) {
		return nil, &UnknownOperationError{Namespace: l.Meta.Name, Op: op}
	}
	return newCallNode(l.Meta.Name, op, args)
}

func (l *Language) Descriptor() Descriptor {
	return Descriptor{
		Name:       l.Meta.Name,
		Operations: l.Operations(),
	}
}

func (l *Language) String() string {
	return fmt.Sprintf("%s(%s)", l.Meta.Name, strings.Join(l.ops, ","))
}
