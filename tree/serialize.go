package tree

import (
	"fmt"
)

// tags of the list form
const (
	TagNumber         = "number"
	TagString         = "string"
	TagBoolean        = "boolean"
	TagNull           = "null"
	TagUndefined      = "undefined"
	TagArray          = "array"
	TagObject         = "object"
	TagNativeFunction = "native-function"
)

var listMatcher *Matcher[Node, []any]

func init() {
	m := NewMatcher[Node, []any]()
	OnNode(m, func(n *CallNode) ([]any, error) {
		if err := validateNamespaceName(n.Namespace); err != nil {
			return nil, err
		}
		if n.Op == "" {
			return nil, fmt.Errorf("%w: empty operation name in '%s'", ErrInvalidLanguage, n.Namespace)
		}
		return listWithItems(n.Head(), n.Args)
	})
	OnNode(m, func(n *NumberNode) ([]any, error) { return []any{TagNumber, n.Value}, nil })
	OnNode(m, func(n *StringNode) ([]any, error) { return []any{TagString, n.Value}, nil })
	OnNode(m, func(n *BooleanNode) ([]any, error) { return []any{TagBoolean, n.Value}, nil })
	OnNode(m, func(_ *NullNode) ([]any, error) { return []any{TagNull}, nil })
	OnNode(m, func(_ *UndefinedNode) ([]any, error) { return []any{TagUndefined}, nil })
	OnNode(m, func(n *ArrayNode) ([]any, error) {
		return listWithItems(TagArray, n.Items)
	})
	OnNode(m, func(n *ObjectNode) ([]any, error) {
		ret := make([]any, 1, len(n.Pairs)+1)
		ret[0] = TagObject
		for _, p := range n.Pairs {
			k, err := ToList(p.Key)
			if err != nil {
				return nil, err
			}
			v, err := ToList(p.Value)
			if err != nil {
				return nil, err
			}
			ret = append(ret, []any{k, v})
		}
		return ret, nil
	})
	OnNode(m, func(_ *NativeFunctionNode) ([]any, error) { return []any{TagNativeFunction}, nil })
	listMatcher = m
}

func listWithItems(head string, items []Node) ([]any, error) {
	ret := make([]any, 1, len(items)+1)
	ret[0] = head
	for _, item := range items {
		l, err := ToList(item)
		if err != nil {
			return nil, err
		}
		ret = append(ret, l)
	}
	return ret, nil
}

// ToList returns the canonical list form of the tree:
//
//	call        ["<namespace>/<op>", args...]
//	number      ["number", int64]
//	string      ["string", string]
//	boolean     ["boolean", bool]
//	null        ["null"]
//	undefined   ["undefined"]
//	array       ["array", items...]
//	object      ["object", [key, value], ...]
//	native      ["native-function"]
//
// No registry is needed. Native functions are not encoded, only marked.
// A call with an empty operation, or a namespace which is empty or contains '/',
// can't be restored from its head and fails with ErrInvalidLanguage
func ToList(n Node) ([]any, error) {
	return listMatcher.Match(n)
}

func MustToList(n Node) []any {
	ret, err := ToList(n)
	if err != nil {
		panic(err)
	}
	return ret
}
