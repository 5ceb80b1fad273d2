package spatial

import "maps"

// TraversalControl is returned by visitors to tell whether a traversal goes
// on or stops.
type TraversalControl int

const (
	// TraversalContinue resumes the traversal with the next node.
	TraversalContinue TraversalControl = iota

	// TraversalTerminate stops the traversal. No other node is visited.
	TraversalTerminate
)

func (c TraversalControl) String() string {
	switch c {
	case TraversalContinue:
		return "continue"
	case TraversalTerminate:
		return "terminate"
	default:
		return "unknown"
	}
}

// Node is a quadrant or an octant of a tree. A leaf has no children; an
// internal node has one child per quadrant or octant of its region.
//
// Items are stored at the deepest node whose region contains them. Items
// straddling several children therefore stay on the internal node.
type Node[K comparable, R any] struct {
	region   R
	items    map[K]R
	children []*Node[K, R]
}

func newNode[K comparable, R any](region R) *Node[K, R] {
	return &Node[K, R]{region: region}
}

// Region returns the region covered by the node.
func (n *Node[K, R]) Region() R {
	return n.region
}

// IsLeaf reports whether the node has no children.
func (n *Node[K, R]) IsLeaf() bool {
	return len(n.children) == 0
}

// Children returns the node children in subdivision order. The returned slice
// must not be modified.
func (n *Node[K, R]) Children() []*Node[K, R] {
	return n.children
}

// ItemCount returns the number of items stored directly on the node.
func (n *Node[K, R]) ItemCount() int {
	return len(n.items)
}

// Items returns a copy of the items stored directly on the node, with their
// regions.
func (n *Node[K, R]) Items() map[K]R {
	if len(n.items) == 0 {
		return map[K]R{}
	}
	return maps.Clone(n.items)
}

func (n *Node[K, R]) put(item K, region R) {
	if n.items == nil {
		n.items = make(map[K]R)
	}
	n.items[item] = region
}

// isEmptyLeaf reports whether the node is a leaf holding no item.
func (n *Node[K, R]) isEmptyLeaf() bool {
	return n.IsLeaf() && len(n.items) == 0
}

// collapse turns the node back into a leaf when all its children are empty
// leaves.
func (n *Node[K, R]) collapse() bool {
	if n.IsLeaf() {
		return false
	}

	for _, c := range n.children {
		if !c.isEmptyLeaf() {
			return false
		}
	}

	n.children = nil
	return true
}

// iterate visits the node then its children in pre-order. It returns false
// when the visitor terminated the traversal.
func (n *Node[K, R]) iterate(depth int, visit func(*Node[K, R], int) TraversalControl) bool {
	if visit(n, depth) == TraversalTerminate {
		return false
	}

	for _, c := range n.children {
		if !c.iterate(depth+1, visit) {
			return false
		}
	}
	return true
}
