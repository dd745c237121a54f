package tree

// Node is one element of an expression tree. The set of variants is closed:
// only the node types of this package implement it
type Node interface {
	node()
}

// CallNode is a deferred invocation of operation Op of the language Namespace
type CallNode struct {
	Op        string
	Args      []Node
	Namespace string
}

type NumberNode struct {
	Value int64
}

type StringNode struct {
	Value string
}

type BooleanNode struct {
	Value bool
}

// NullNode evaluates to nil
type NullNode struct{}

// UndefinedNode evaluates to Undefined
type UndefinedNode struct{}

type ArrayNode struct {
	Items []Node
}

type Pair struct {
	Key   Node
	Value Node
}

// ObjectNode keeps key/value pairs in insertion order. Keys are nodes too,
// duplicates are resolved (last wins) only when evaluated
type ObjectNode struct {
	Pairs []Pair
}

// NativeFunctionNode wraps a Go func value. It is returned by evaluation as is
// and serialized as an opaque marker
type NativeFunctionNode struct {
	Fn any
}

func (*CallNode) node()           {}
func (*NumberNode) node()         {}
func (*StringNode) node()         {}
func (*BooleanNode) node()        {}
func (*NullNode) node()           {}
func (*UndefinedNode) node()      {}
func (*ArrayNode) node()          {}
func (*ObjectNode) node()         {}
func (*NativeFunctionNode) node() {}

func NewCall(namespace, op string, args ...Node) *CallNode {
	return &CallNode{
		Op:        op,
		Args:      args,
		Namespace: namespace,
	}
}

func NewNumber(v int64) *NumberNode {
	return &NumberNode{Value: v}
}

func NewString(v string) *StringNode {
	return &StringNode{Value: v}
}

func NewBoolean(v bool) *BooleanNode {
	return &BooleanNode{Value: v}
}

func NewNull() *NullNode {
	return &NullNode{}
}

func NewUndefined() *UndefinedNode {
	return &UndefinedNode{}
}

func NewArray(items ...Node) *ArrayNode {
	return &ArrayNode{Items: items}
}

func NewObject(pairs ...Pair) *ObjectNode {
	return &ObjectNode{Pairs: pairs}
}

func NewNativeFunction(fn any) *NativeFunctionNode {
	return &NativeFunctionNode{Fn: fn}
}

// Head returns "<namespace>/<op>", the name of the call in the list form
func (c *CallNode) Head() string {
	return c.Namespace + "/" + c.Op
}

// Is reports whether n is of the node variant V
func Is[V Node](n Node) bool {
	_, ok := n.(V)
	return ok
}

// undefinedValue is the type of the absent-without-identity host value
type undefinedValue struct{}

func (undefinedValue) String() string {
	return "undefined"
}

// Undefined is the host value of UndefinedNode. nil plays the role of null
var Undefined = undefinedValue{}

// Field is one key/value entry of an Object
type Field struct {
	Key   any
	Value any
}

// Object is a key/value aggregate with explicit enumeration order.
// Go maps are marshalled with sorted keys, Object keeps the order given
type Object []Field
