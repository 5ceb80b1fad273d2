package spatial

import (
	"fmt"

	"github.com/aukilabs/go-tooling/pkg/errors"
)

// SubdivideFunc splits a region into its children. It reports false when the
// region cannot be split any further.
type SubdivideFunc[R any] func(R) ([]R, bool)

// Tree is a region tree mapping items of type K to regions of type R, and
// answering containment, overlap and ray queries of type Y.
//
// A tree starts as a single empty leaf covering its bounds. Leaves are split
// eagerly when an item is inserted into them, as long as the subdivide
// function allows it.
type Tree[K comparable, R Region[R, Y], Y any] struct {
	bounds       R
	trimOnRemove bool
	subdivide    SubdivideFunc[R]

	root     *Node[K, R]
	index    map[K]entry[R]
	sequence uint64
}

// entry is the index record of an item. The sequence number orders items
// found at the same distance by a raycast.
type entry[R any] struct {
	region   R
	sequence uint64
}

// NewTree creates an empty tree covering bounds. Children of a leaf are
// produced by subdivide.
func NewTree[K comparable, R Region[R, Y], Y any](bounds R, subdivide SubdivideFunc[R], trimOnRemove bool) *Tree[K, R, Y] {
	return &Tree[K, R, Y]{
		bounds:       bounds,
		trimOnRemove: trimOnRemove,
		subdivide:    subdivide,
		root:         newNode[K](bounds),
		index:        make(map[K]entry[R]),
	}
}

// Bounds returns the region covered by the tree.
func (t *Tree[K, R, Y]) Bounds() R {
	return t.bounds
}

// Root returns the root node.
func (t *Tree[K, R, Y]) Root() *Node[K, R] {
	return t.root
}

// Insert associates item with region. It returns false, leaving the tree
// untouched, when region is not within the tree bounds.
//
// Inserting an item that is already present moves it to the new region. When
// the tree trims on remove, the subtrees emptied by the move are collapsed.
func (t *Tree[K, R, Y]) Insert(item K, region R) bool {
	if !t.root.region.Contains(region) {
		return false
	}

	e, ok := t.index[item]
	switch {
	case ok && e.region == region:
		return true

	case ok:
		t.remove(t.root, item, e.region, t.trimOnRemove)

	default:
		t.sequence++
		e.sequence = t.sequence
	}

	t.insert(t.root, item, region)
	e.region = region
	t.index[item] = e
	return true
}

func (t *Tree[K, R, Y]) insert(n *Node[K, R], item K, region R) {
	if n.IsLeaf() {
		t.split(n)
	}

	if c := t.childContaining(n, region); c != nil {
		t.insert(c, item, region)
		return
	}
	n.put(item, region)
}

// split subdivides a leaf and pushes down the items that fit in a single
// child.
func (t *Tree[K, R, Y]) split(n *Node[K, R]) {
	regions, ok := t.subdivide(n.region)
	if !ok {
		return
	}

	n.children = make([]*Node[K, R], len(regions))
	for i, r := range regions {
		n.children[i] = newNode[K](r)
	}

	for item, region := range n.items {
		if c := t.childContaining(n, region); c != nil {
			delete(n.items, item)
			t.insert(c, item, region)
		}
	}
}

// childContaining returns the only child of n containing region, or nil when
// none or several do.
func (t *Tree[K, R, Y]) childContaining(n *Node[K, R], region R) *Node[K, R] {
	var found *Node[K, R]
	for _, c := range n.children {
		if !c.region.Contains(region) {
			continue
		}
		if found != nil {
			return nil
		}
		found = c
	}
	return found
}

// Remove removes item from the tree. It returns false when the item is not
// present.
func (t *Tree[K, R, Y]) Remove(item K) bool {
	e, ok := t.index[item]
	if !ok {
		return false
	}

	if !t.remove(t.root, item, e.region, t.trimOnRemove) {
		panic(fmt.Sprintf("spatial: indexed item %v not found in region %v", item, e.region))
	}
	delete(t.index, item)
	return true
}

// remove follows the placement path of region down from n and deletes item
// from the node holding it. When trim is set, the nodes along the path that
// are left with empty children are collapsed on the way back up.
func (t *Tree[K, R, Y]) remove(n *Node[K, R], item K, region R, trim bool) bool {
	if _, ok := n.items[item]; ok {
		delete(n.items, item)
		if trim {
			t.trim(n)
		}
		return true
	}

	c := t.childContaining(n, region)
	if c == nil || !t.remove(c, item, region, trim) {
		return false
	}

	if trim {
		n.collapse()
	}
	return true
}

// Contains reports whether item is in the tree.
func (t *Tree[K, R, Y]) Contains(item K) bool {
	_, ok := t.index[item]
	return ok
}

// RegionFor returns the region associated with item. It returns an error of
// type ErrTypeItemNotFound when the item is not in the tree.
func (t *Tree[K, R, Y]) RegionFor(item K) (R, error) {
	e, ok := t.index[item]
	if !ok {
		var zero R
		return zero, errors.New("item not found").
			WithType(ErrTypeItemNotFound).
			WithTag("item", fmt.Sprint(item))
	}
	return e.region, nil
}

// Size returns the number of items in the tree.
func (t *Tree[K, R, Y]) Size() int {
	return len(t.index)
}

// IsEmpty reports whether the tree holds no item.
func (t *Tree[K, R, Y]) IsEmpty() bool {
	return len(t.index) == 0
}

// Clear removes every item and node, leaving a single empty leaf.
func (t *Tree[K, R, Y]) Clear() {
	t.root = newNode[K](t.bounds)
	t.index = make(map[K]entry[R])
}

// Trim collapses every subtree that holds no item into a single empty leaf.
// Calling Trim on an empty tree leaves only the root.
func (t *Tree[K, R, Y]) Trim() {
	t.trim(t.root)
}

func (t *Tree[K, R, Y]) trim(n *Node[K, R]) {
	for _, c := range n.children {
		t.trim(c)
	}
	n.collapse()
}

func (t *Tree[K, R, Y]) String() string {
	return fmt.Sprintf("Tree{bounds=%v, size=%d, trimOnRemove=%t}", t.bounds, len(t.index), t.trimOnRemove)
}
