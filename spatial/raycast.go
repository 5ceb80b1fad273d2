package spatial

import (
	"fmt"

	"github.com/google/btree"
)

const raycastResultsDegree = 8

// RaycastResult is an item hit by a ray, with the distance from the ray
// origin to the nearest point of the item region.
type RaycastResult[K comparable, R any] struct {
	Distance float64
	Region   R
	Item     K

	sequence uint64
}

func (r RaycastResult[K, R]) String() string {
	return fmt.Sprintf("RaycastResult{distance=%g, region=%v, item=%v}", r.Distance, r.Region, r.Item)
}

// lessRaycastResult orders results by distance, then by the order in which
// their items entered the tree. Two distinct items are never equal.
func lessRaycastResult[K comparable, R any](a, b RaycastResult[K, R]) bool {
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	return a.sequence < b.sequence
}

// RaycastResults is a set of raycast results sorted by ascending distance.
// The zero value is not usable; create one with NewRaycastResults.
type RaycastResults[K comparable, R any] struct {
	results *btree.BTreeG[RaycastResult[K, R]]
}

// NewRaycastResults returns an empty result set.
func NewRaycastResults[K comparable, R any]() *RaycastResults[K, R] {
	return &RaycastResults[K, R]{
		results: btree.NewG[RaycastResult[K, R]](raycastResultsDegree, lessRaycastResult[K, R]),
	}
}

// Len returns the number of results.
func (r *RaycastResults[K, R]) Len() int {
	return r.results.Len()
}

// Nearest returns the result closest to the ray origin.
func (r *RaycastResults[K, R]) Nearest() (RaycastResult[K, R], bool) {
	return r.results.Min()
}

// Ascend calls f for each result by ascending distance, until f returns
// false.
func (r *RaycastResults[K, R]) Ascend(f func(RaycastResult[K, R]) bool) {
	r.results.Ascend(btree.ItemIteratorG[RaycastResult[K, R]](f))
}

// Slice returns the results by ascending distance.
func (r *RaycastResults[K, R]) Slice() []RaycastResult[K, R] {
	s := make([]RaycastResult[K, R], 0, r.results.Len())
	r.results.Ascend(func(res RaycastResult[K, R]) bool {
		s = append(s, res)
		return true
	})
	return s
}

// Clear removes all the results.
func (r *RaycastResults[K, R]) Clear() {
	r.results.Clear(false)
}

func (r *RaycastResults[K, R]) add(res RaycastResult[K, R]) {
	r.results.ReplaceOrInsert(res)
}

// Raycast adds to results every item whose region is hit by ray.
func (t *Tree[K, R, Y]) Raycast(ray Y, results *RaycastResults[K, R]) {
	t.raycast(t.root, ray, results)
}

// raycast skips the subtrees whose region the ray misses.
func (t *Tree[K, R, Y]) raycast(n *Node[K, R], ray Y, results *RaycastResults[K, R]) {
	if _, ok := n.region.Intersect(ray); !ok {
		return
	}

	for item, region := range n.items {
		distance, ok := region.Intersect(ray)
		if !ok {
			continue
		}

		results.add(RaycastResult[K, R]{
			Distance: distance,
			Region:   region,
			Item:     item,
			sequence: t.index[item].sequence,
		})
	}

	for _, c := range n.children {
		t.raycast(c, ray, results)
	}
}
