package geometry

import "fmt"

// Area is an axis-aligned rectangle. Its bounds are inclusive: a point lying
// on an edge belongs to the area.
type Area[S Scalar] struct {
	MinX S `json:"min_x"`
	MaxX S `json:"max_x"`
	MinY S `json:"min_y"`
	MaxY S `json:"max_y"`
}

// AreaOf returns the area spanning [minX, maxX] x [minY, maxY].
func AreaOf[S Scalar](minX, maxX, minY, maxY S) Area[S] {
	return Area[S]{
		MinX: minX,
		MaxX: maxX,
		MinY: minY,
		MaxY: maxY,
	}
}

func (a Area[S]) Width() S {
	return a.MaxX - a.MinX
}

func (a Area[S]) Height() S {
	return a.MaxY - a.MinY
}

// IsDegenerate reports whether the area has a non-positive extent on an axis.
func (a Area[S]) IsDegenerate() bool {
	return a.Width() <= 0 || a.Height() <= 0
}

// Contains reports whether b lies entirely within a, boundaries included.
func (a Area[S]) Contains(b Area[S]) bool {
	return a.MinX <= b.MinX && b.MaxX <= a.MaxX &&
		a.MinY <= b.MinY && b.MaxY <= a.MaxY
}

// Overlaps reports whether the interiors of a and b intersect. Areas that
// only share an edge or a corner do not overlap, and a degenerate area
// overlaps nothing.
func (a Area[S]) Overlaps(b Area[S]) bool {
	return a.MinX < b.MaxX && b.MinX < a.MaxX &&
		a.MinY < b.MaxY && b.MinY < a.MaxY
}

// Touches reports whether a and b share at least one point, boundaries
// included.
func (a Area[S]) Touches(b Area[S]) bool {
	return a.MinX <= b.MaxX && b.MinX <= a.MaxX &&
		a.MinY <= b.MaxY && b.MinY <= a.MaxY
}

// Intersect returns the distance from the ray origin to the nearest point of
// the area hit by the ray. An origin inside the area is at distance 0.
func (a Area[S]) Intersect(r Ray2) (float64, bool) {
	tmin, tmax := 0.0, inf

	var ok bool
	if tmin, tmax, ok = slab(r.Origin.X, r.Direction.X, float64(a.MinX), float64(a.MaxX), tmin, tmax); !ok {
		return 0, false
	}
	if tmin, _, ok = slab(r.Origin.Y, r.Direction.Y, float64(a.MinY), float64(a.MaxY), tmin, tmax); !ok {
		return 0, false
	}
	return tmin * r.Direction.Length(), true
}

func (a Area[S]) String() string {
	return fmt.Sprintf("Area{x=[%v, %v], y=[%v, %v]}", a.MinX, a.MaxX, a.MinY, a.MaxY)
}
