package tree

import (
	"reflect"

	"github.com/gammazero/deque"
)

type walkItem struct {
	n     Node
	level int
}

// Walk visits the tree breadth-first. Children of a node are visited in
// argument/item/pair order. Walk stops when fn returns false. nil children are
// passed to fn but not descended into. Walk does not terminate on a cyclic graph
// unless fn stops it
func Walk(n Node, fn func(n Node) bool) {
	walkLevels(n, 0, func(n Node, _ int) bool {
		return fn(n)
	})
}

// walkLevels is Walk with the level of each node, the root having level 1.
// Nodes deeper than maxLevel are neither visited nor descended into. 0 means no limit.
// Returns true if some node was cut off by maxLevel
func walkLevels(n Node, maxLevel int, fn func(n Node, level int) bool) bool {
	cut := false
	q := new(deque.Deque[walkItem])
	q.PushBack(walkItem{n: n, level: 1})
	for q.Len() > 0 {
		cur := q.PopFront()
		if maxLevel > 0 && cur.level > maxLevel {
			cut = true
			continue
		}
		if !fn(cur.n, cur.level) {
			return cut
		}
		if isNilNode(cur.n) {
			continue
		}
		for _, child := range children(cur.n) {
			q.PushBack(walkItem{n: child, level: cur.level + 1})
		}
	}
	return cut
}

// isNilNode is true for nil and for typed nil pointers of node variants
func isNilNode(n Node) bool {
	return n == nil || reflect.ValueOf(n).IsNil()
}

func children(n Node) []Node {
	switch n := n.(type) {
	case *CallNode:
		return n.Args
	case *ArrayNode:
		return n.Items
	case *ObjectNode:
		ret := make([]Node, 0, 2*len(n.Pairs))
		for _, p := range n.Pairs {
			ret = append(ret, p.Key, p.Value)
		}
		return ret
	}
	return nil
}

// CallSites returns distinct "<namespace>/<op>" heads of calls in the tree, in breadth-first order
func CallSites(n Node) []string {
	ret := make([]string, 0)
	seen := make(map[string]struct{})
	Walk(n, func(n Node) bool {
		if c, ok := n.(*CallNode); ok && c != nil {
			head := c.Head()
			if _, already := seen[head]; !already {
				seen[head] = struct{}{}
				ret = append(ret, head)
			}
		}
		return true
	})
	return ret
}

// Depth returns structural depth of the tree. A leaf has depth 1, nil has depth 0.
// Depth of a cyclic graph is unbounded, Depth does not return
func Depth(n Node) int {
	if isNilNode(n) {
		return 0
	}
	ret := 0
	for _, child := range children(n) {
		if d := Depth(child); d > ret {
			ret = d
		}
	}
	return ret + 1
}
