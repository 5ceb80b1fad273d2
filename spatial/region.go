// Package spatial implements quadtrees and octrees: trees that partition a
// bounded area or volume into nested quadrants or octants and map caller
// items to the regions they occupy.
//
// A single engine, Tree, serves every combination of dimension and scalar
// type. QuadTree and OctTree bind it to geometry.Area and geometry.Volume.
//
// Trees are not safe for concurrent use. Queries do not mutate a tree and may
// run concurrently with each other when callers provide a reader-writer lock.
package spatial

// Region is the constraint satisfied by the bounding shapes a tree indexes.
// R is the shape itself and Y the ray type it can be intersected with.
type Region[R any, Y any] interface {
	comparable

	// Reports whether the given region lies entirely within the receiver.
	Contains(R) bool

	// Reports whether the interiors of the given region and the receiver
	// intersect.
	Overlaps(R) bool

	// Reports whether the given region and the receiver share a point,
	// boundaries included.
	Touches(R) bool

	// Returns the distance from the ray origin to the nearest point of the
	// receiver, and whether the ray hits it at all.
	Intersect(Y) (float64, bool)
}
