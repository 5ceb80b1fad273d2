package spatial

// ContainedBy adds to items every item whose region lies within query.
func (t *Tree[K, R, Y]) ContainedBy(query R, items map[K]struct{}) {
	t.collect(t.root, query, items, func(q, r R) bool {
		return q.Contains(r)
	})
}

// OverlappedBy adds to items every item whose region overlaps query.
func (t *Tree[K, R, Y]) OverlappedBy(query R, items map[K]struct{}) {
	t.collect(t.root, query, items, func(q, r R) bool {
		return q.Overlaps(r)
	})
}

// collect walks the subtrees touching query and adds the items for which
// match(query, itemRegion) holds. Pruning is boundary inclusive so that
// degenerate items lying on a node boundary are still reached.
func (t *Tree[K, R, Y]) collect(n *Node[K, R], query R, items map[K]struct{}, match func(R, R) bool) {
	if !n.region.Touches(query) {
		return
	}

	for item, region := range n.items {
		if match(query, region) {
			items[item] = struct{}{}
		}
	}

	for _, c := range n.children {
		t.collect(c, query, items, match)
	}
}

// Iterate visits every node in pre-order, children in subdivision order,
// until the visitor returns TraversalTerminate. The visitor receives the node
// depth, the root being at depth 0.
func (t *Tree[K, R, Y]) Iterate(visit func(n *Node[K, R], depth int) TraversalControl) {
	t.root.iterate(0, visit)
}

// IterateWithContext is like Iterate but threads ctx through every visitor
// call.
func IterateWithContext[C any, K comparable, R Region[R, Y], Y any](t *Tree[K, R, Y], ctx C, visit func(ctx C, n *Node[K, R], depth int) TraversalControl) {
	t.Iterate(func(n *Node[K, R], depth int) TraversalControl {
		return visit(ctx, n, depth)
	})
}

// Map returns a tree with the same nodes as t where every item is replaced by
// f(item, region). f is expected to map distinct items to distinct values.
func Map[K comparable, K2 comparable, R Region[R, Y], Y any](t *Tree[K, R, Y], f func(item K, region R) K2) *Tree[K2, R, Y] {
	mapped := &Tree[K2, R, Y]{
		bounds:       t.bounds,
		trimOnRemove: t.trimOnRemove,
		subdivide:    t.subdivide,
		index:        make(map[K2]entry[R], len(t.index)),
		sequence:     t.sequence,
	}

	var mapNode func(n *Node[K, R]) *Node[K2, R]
	mapNode = func(n *Node[K, R]) *Node[K2, R] {
		m := newNode[K2](n.region)

		for item, region := range n.items {
			k := f(item, region)
			m.put(k, region)
			mapped.index[k] = entry[R]{
				region:   region,
				sequence: t.index[item].sequence,
			}
		}

		if !n.IsLeaf() {
			m.children = make([]*Node[K2, R], len(n.children))
			for i, c := range n.children {
				m.children[i] = mapNode(c)
			}
		}
		return m
	}

	mapped.root = mapNode(t.root)
	return mapped
}

// Stats describes the shape of a tree.
type Stats struct {
	Nodes         int `json:"nodes"`
	Leaves        int `json:"leaves"`
	InternalNodes int `json:"internal_nodes"`
	MaxDepth      int `json:"max_depth"`
	Items         int `json:"items"`
}

// Stats walks the tree and returns its node counts.
func (t *Tree[K, R, Y]) Stats() Stats {
	var s Stats

	t.Iterate(func(n *Node[K, R], depth int) TraversalControl {
		s.Nodes++
		if n.IsLeaf() {
			s.Leaves++
		} else {
			s.InternalNodes++
		}
		s.MaxDepth = max(s.MaxDepth, depth)
		s.Items += n.ItemCount()
		return TraversalContinue
	})

	return s
}

// NodeCount returns the number of nodes in the tree, the root included.
func (t *Tree[K, R, Y]) NodeCount() int {
	count := 0
	t.Iterate(func(*Node[K, R], int) TraversalControl {
		count++
		return TraversalContinue
	})
	return count
}
