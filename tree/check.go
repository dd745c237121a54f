package tree

import (
	"go.uber.org/multierr"
)

// Check validates the tree against the registry without invoking anything:
// every call must resolve to a registered operation which accepts the number of
// arguments given. All problems are reported, combined with multierr.
// With WithMaxDepth set, nodes below the limit are not checked and DepthError is
// reported instead, so Check terminates on cyclic graphs like Evaluate does
func (e *Evaluator) Check(n Node) error {
	var err error
	cut := walkLevels(n, e.maxDepth, func(n Node, _ int) bool {
		if isNilNode(n) {
			err = multierr.Append(err, &NoMatchError{Value: n})
			return true
		}
		c, ok := n.(*CallNode)
		if !ok {
			return true
		}
		op, lookupErr := e.lookup(c.Namespace, c.Op)
		if lookupErr != nil {
			err = multierr.Append(err, lookupErr)
			return true
		}
		err = multierr.Append(err, op.checkArity(len(c.Args)))
		return true
	})
	if cut {
		err = multierr.Append(err, &DepthError{MaxDepth: e.maxDepth})
	}
	return err
}
