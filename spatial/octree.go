package spatial

import "github.com/aukilabs/spatial/geometry"

// OctTree is a tree over volumes: every internal node has 8 children.
type OctTree[K comparable, S geometry.Scalar] struct {
	*Tree[K, geometry.Volume[S], geometry.Ray3]

	config OctTreeConfig[S]
}

// NewOctTree creates an empty octree. Unset minimum sizes in config are
// replaced by MinimumChildSize.
func NewOctTree[K comparable, S geometry.Scalar](config OctTreeConfig[S]) (*OctTree[K, S], error) {
	config = config.WithDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	subdivide := func(v geometry.Volume[S]) ([]geometry.Volume[S], bool) {
		return SubdivideVolume(v, config.MinimumChildWidth, config.MinimumChildHeight, config.MinimumChildDepth)
	}

	return &OctTree[K, S]{
		Tree:   NewTree[K, geometry.Volume[S], geometry.Ray3](config.Bounds, subdivide, config.TrimOnRemove),
		config: config,
	}, nil
}

// Config returns the configuration the octree was created with, defaults
// applied.
func (q *OctTree[K, S]) Config() OctTreeConfig[S] {
	return q.config
}

// VolumeFor returns the volume associated with item. It returns an error of type
// ErrTypeItemNotFound when the item is not in the octree.
func (q *OctTree[K, S]) VolumeFor(item K) (geometry.Volume[S], error) {
	return q.RegionFor(item)
}

// MapOctTree returns a octree with the same octants as q where every item
// is replaced by f(item, volume).
func MapOctTree[K comparable, K2 comparable, S geometry.Scalar](q *OctTree[K, S], f func(item K, volume geometry.Volume[S]) K2) *OctTree[K2, S] {
	return &OctTree[K2, S]{
		Tree:   Map(q.Tree, f),
		config: q.config,
	}
}
