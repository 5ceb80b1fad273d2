package geometry

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func randomArea(r *rand.Rand) Area[int64] {
	x0, x1 := r.Int63n(200)-100, r.Int63n(200)-100
	y0, y1 := r.Int63n(200)-100, r.Int63n(200)-100
	return AreaOf(min(x0, x1), max(x0, x1), min(y0, y1), max(y0, y1))
}

func TestAreaAccessors(t *testing.T) {
	a := AreaOf(10, 30, 5, 45)
	require.Equal(t, 20, a.Width())
	require.Equal(t, 40, a.Height())
	require.False(t, a.IsDegenerate())
	require.True(t, AreaOf(0, 0, 0, 10).IsDegenerate())
	require.Equal(t, "Area{x=[10, 30], y=[5, 45]}", a.String())
}

func TestAreaContains(t *testing.T) {
	outer := AreaOf(0.0, 100.0, 0.0, 100.0)

	require.True(t, outer.Contains(outer))
	require.True(t, outer.Contains(AreaOf(0.0, 1.0, 99.0, 100.0)))
	require.False(t, outer.Contains(AreaOf(-1.0, 1.0, 0.0, 1.0)))
	require.False(t, AreaOf(0.0, 1.0, 0.0, 1.0).Contains(outer))
}

func TestAreaOverlaps(t *testing.T) {
	a := AreaOf(0, 10, 0, 10)

	require.True(t, a.Overlaps(AreaOf(5, 15, 5, 15)))
	require.True(t, a.Overlaps(AreaOf(2, 3, 2, 3)))
	require.False(t, a.Overlaps(AreaOf(10, 20, 0, 10)))
	require.False(t, a.Overlaps(AreaOf(10, 20, 10, 20)))
	require.False(t, a.Overlaps(AreaOf(11, 20, 0, 10)))
	require.False(t, a.Overlaps(AreaOf(0, 10, -10, -1)))
	require.False(t, a.Overlaps(AreaOf(0, 10, 5, 5)))
}

func TestAreaTouches(t *testing.T) {
	a := AreaOf(0, 10, 0, 10)

	require.True(t, a.Touches(AreaOf(5, 15, 5, 15)))
	require.True(t, a.Touches(AreaOf(10, 20, 0, 10)))
	require.True(t, a.Touches(AreaOf(10, 20, 10, 20)))
	require.True(t, a.Touches(AreaOf(0, 10, 5, 5)))
	require.False(t, a.Touches(AreaOf(11, 20, 0, 10)))
}

func TestAreaContainmentProperties(t *testing.T) {
	r := rand.New(rand.NewSource(42))

	for i := 0; i < 2000; i++ {
		a, b, c := randomArea(r), randomArea(r), randomArea(r)

		require.True(t, a.Contains(a))
		require.Equal(t, !a.IsDegenerate(), a.Overlaps(a))
		require.Equal(t, a.Overlaps(b), b.Overlaps(a))
		require.Equal(t, a.Touches(b), b.Touches(a))

		if a.Overlaps(b) {
			require.True(t, a.Touches(b))
		}
		if a.Contains(b) {
			require.True(t, a.Touches(b))
		}
		if a.Contains(b) && !b.IsDegenerate() {
			require.True(t, a.Overlaps(b))
			require.True(t, b.Overlaps(a))
		}
		if a.Contains(b) && b.Contains(c) {
			require.True(t, a.Contains(c))
		}
	}
}

func TestAreaIntersect(t *testing.T) {
	a := AreaOf(10.0, 20.0, 10.0, 20.0)

	t.Run("hit from outside", func(t *testing.T) {
		ray, err := NewRay2(Vector2{0, 15}, Vector2{1, 0})
		require.NoError(t, err)

		d, ok := a.Intersect(ray)
		require.True(t, ok)
		require.Equal(t, 10.0, d)
	})

	t.Run("origin inside", func(t *testing.T) {
		ray, err := NewRay2(Vector2{15, 15}, Vector2{0, -1})
		require.NoError(t, err)

		d, ok := a.Intersect(ray)
		require.True(t, ok)
		require.Zero(t, d)
	})

	t.Run("diagonal hit", func(t *testing.T) {
		ray, err := NewRay2(Vector2{0, 0}, Vector2{1, 1})
		require.NoError(t, err)

		d, ok := a.Intersect(ray)
		require.True(t, ok)
		require.InDelta(t, 10*math.Sqrt2, d, 1e-9)
	})

	t.Run("pointing away", func(t *testing.T) {
		ray, err := NewRay2(Vector2{0, 15}, Vector2{-1, 0})
		require.NoError(t, err)

		_, ok := a.Intersect(ray)
		require.False(t, ok)
	})

	t.Run("parallel miss", func(t *testing.T) {
		ray, err := NewRay2(Vector2{0, 25}, Vector2{1, 0})
		require.NoError(t, err)

		_, ok := a.Intersect(ray)
		require.False(t, ok)
	})

	t.Run("integer area", func(t *testing.T) {
		ray, err := NewRay2(Vector2{0, 5}, Vector2{1, 0})
		require.NoError(t, err)

		d, ok := AreaOf(3, 8, 0, 10).Intersect(ray)
		require.True(t, ok)
		require.Equal(t, 3.0, d)
	})
}
