package spatial

import "github.com/aukilabs/spatial/geometry"

// QuadTree is a tree over areas: every internal node has 4 children.
type QuadTree[K comparable, S geometry.Scalar] struct {
	*Tree[K, geometry.Area[S], geometry.Ray2]

	config QuadTreeConfig[S]
}

// NewQuadTree creates an empty quadtree. Unset minimum sizes in config are
// replaced by MinimumChildSize.
func NewQuadTree[K comparable, S geometry.Scalar](config QuadTreeConfig[S]) (*QuadTree[K, S], error) {
	config = config.WithDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	subdivide := func(a geometry.Area[S]) ([]geometry.Area[S], bool) {
		return SubdivideArea(a, config.MinimumChildWidth, config.MinimumChildHeight)
	}

	return &QuadTree[K, S]{
		Tree:   NewTree[K, geometry.Area[S], geometry.Ray2](config.Bounds, subdivide, config.TrimOnRemove),
		config: config,
	}, nil
}

// Config returns the configuration the quadtree was created with, defaults
// applied.
func (q *QuadTree[K, S]) Config() QuadTreeConfig[S] {
	return q.config
}

// AreaFor returns the area associated with item. It returns an error of type
// ErrTypeItemNotFound when the item is not in the quadtree.
func (q *QuadTree[K, S]) AreaFor(item K) (geometry.Area[S], error) {
	return q.RegionFor(item)
}

// MapQuadTree returns a quadtree with the same quadrants as q where every item
// is replaced by f(item, area).
func MapQuadTree[K comparable, K2 comparable, S geometry.Scalar](q *QuadTree[K, S], f func(item K, area geometry.Area[S]) K2) *QuadTree[K2, S] {
	return &QuadTree[K2, S]{
		Tree:   Map(q.Tree, f),
		config: q.config,
	}
}
