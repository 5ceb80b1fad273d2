package spatial

import (
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/spatial/geometry"
	"github.com/stretchr/testify/require"
)

func newTestQuadTree(t *testing.T, trimOnRemove bool) *QuadTree[string, int] {
	tree, err := NewQuadTree[string](QuadTreeConfig[int]{
		Bounds:       geometry.AreaOf(0, 100, 0, 100),
		TrimOnRemove: trimOnRemove,
	})
	require.NoError(t, err)
	return tree
}

func TestNewQuadTree(t *testing.T) {
	tree := newTestQuadTree(t, false)
	require.Equal(t, 2, tree.Config().MinimumChildWidth)
	require.Equal(t, 2, tree.Config().MinimumChildHeight)
	require.Equal(t, geometry.AreaOf(0, 100, 0, 100), tree.Bounds())

	_, err := NewQuadTree[string](QuadTreeConfig[int]{
		Bounds: geometry.AreaOf(10, 10, 0, 100),
	})
	require.Error(t, err)
	require.Equal(t, ErrTypeInvalidConfiguration, errors.Type(err))

	_, err = NewQuadTree[string](QuadTreeConfig[float32]{
		Bounds:             geometry.AreaOf[float32](0, 1, 0, 1),
		MinimumChildHeight: -1,
	})
	require.Error(t, err)
}

func TestQuadTreeInsertRemove(t *testing.T) {
	tree := newTestQuadTree(t, true)

	require.True(t, tree.Insert("a", geometry.AreaOf(0, 1, 0, 1)))
	require.True(t, tree.Insert("b", geometry.AreaOf(40, 60, 40, 60)))
	require.False(t, tree.Insert("c", geometry.AreaOf(50, 150, 0, 1)))
	require.Equal(t, 2, tree.Size())
	checkInvariants(t, tree.Tree)

	area, err := tree.AreaFor("b")
	require.NoError(t, err)
	require.Equal(t, geometry.AreaOf(40, 60, 40, 60), area)

	// Five splits from the root down to the [0,3]x[0,3] leaf.
	require.Equal(t, 1+5*4, tree.NodeCount())

	require.True(t, tree.Remove("a"))
	require.False(t, tree.Remove("a"))
	require.Equal(t, 1, tree.NodeCount())
	require.True(t, tree.Contains("b"))
	checkInvariants(t, tree.Tree)
}

func TestQuadTreeQueries(t *testing.T) {
	tree := newTestQuadTree(t, false)
	require.True(t, tree.Insert("a", geometry.AreaOf(10, 20, 10, 20)))
	require.True(t, tree.Insert("b", geometry.AreaOf(15, 30, 15, 30)))
	require.True(t, tree.Insert("c", geometry.AreaOf(70, 90, 10, 20)))

	contained := make(map[string]struct{})
	tree.ContainedBy(geometry.AreaOf(0, 50, 0, 50), contained)
	require.Equal(t, map[string]struct{}{"a": {}, "b": {}}, contained)

	overlapped := make(map[string]struct{})
	tree.OverlappedBy(geometry.AreaOf(25, 75, 0, 100), overlapped)
	require.Equal(t, map[string]struct{}{"b": {}, "c": {}}, overlapped)

	ray, err := geometry.NewRay2(geometry.Vector2{X: 0, Y: 15}, geometry.Vector2{X: 1})
	require.NoError(t, err)

	results := NewRaycastResults[string, geometry.Area[int]]()
	tree.Raycast(ray, results)

	var items []string
	var distances []float64
	for _, res := range results.Slice() {
		items = append(items, res.Item)
		distances = append(distances, res.Distance)
	}
	require.Equal(t, []string{"a", "b", "c"}, items)
	require.Equal(t, []float64{10, 15, 70}, distances)
}

func TestMapQuadTree(t *testing.T) {
	tree := newTestQuadTree(t, false)
	require.True(t, tree.Insert("a", geometry.AreaOf(10, 20, 10, 20)))
	require.True(t, tree.Insert("bb", geometry.AreaOf(60, 70, 60, 70)))

	mapped := MapQuadTree(tree, func(item string, area geometry.Area[int]) int {
		return len(item)
	})
	require.Equal(t, shape(tree.Tree), shape(mapped.Tree))
	require.True(t, mapped.Contains(1))
	require.True(t, mapped.Contains(2))

	area, err := mapped.AreaFor(2)
	require.NoError(t, err)
	require.Equal(t, geometry.AreaOf(60, 70, 60, 70), area)
}
