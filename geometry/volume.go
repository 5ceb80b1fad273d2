package geometry

import (
	"fmt"
	"math"
)

var inf = math.Inf(1)

// Volume is an axis-aligned box. Its bounds are inclusive: a point lying on a
// face belongs to the volume.
type Volume[S Scalar] struct {
	MinX S `json:"min_x"`
	MaxX S `json:"max_x"`
	MinY S `json:"min_y"`
	MaxY S `json:"max_y"`
	MinZ S `json:"min_z"`
	MaxZ S `json:"max_z"`
}

// VolumeOf returns the volume spanning [minX, maxX] x [minY, maxY] x
// [minZ, maxZ].
func VolumeOf[S Scalar](minX, maxX, minY, maxY, minZ, maxZ S) Volume[S] {
	return Volume[S]{
		MinX: minX,
		MaxX: maxX,
		MinY: minY,
		MaxY: maxY,
		MinZ: minZ,
		MaxZ: maxZ,
	}
}

func (v Volume[S]) Width() S {
	return v.MaxX - v.MinX
}

func (v Volume[S]) Height() S {
	return v.MaxY - v.MinY
}

func (v Volume[S]) Depth() S {
	return v.MaxZ - v.MinZ
}

// IsDegenerate reports whether the volume has a non-positive extent on an
// axis.
func (v Volume[S]) IsDegenerate() bool {
	return v.Width() <= 0 || v.Height() <= 0 || v.Depth() <= 0
}

// Contains reports whether b lies entirely within v, boundaries included.
func (v Volume[S]) Contains(b Volume[S]) bool {
	return v.MinX <= b.MinX && b.MaxX <= v.MaxX &&
		v.MinY <= b.MinY && b.MaxY <= v.MaxY &&
		v.MinZ <= b.MinZ && b.MaxZ <= v.MaxZ
}

// Overlaps reports whether the interiors of v and b intersect. Volumes that
// only share a face, an edge or a corner do not overlap.
func (v Volume[S]) Overlaps(b Volume[S]) bool {
	return v.MinX < b.MaxX && b.MinX < v.MaxX &&
		v.MinY < b.MaxY && b.MinY < v.MaxY &&
		v.MinZ < b.MaxZ && b.MinZ < v.MaxZ
}

// Touches reports whether v and b share at least one point, boundaries
// included.
func (v Volume[S]) Touches(b Volume[S]) bool {
	return v.MinX <= b.MaxX && b.MinX <= v.MaxX &&
		v.MinY <= b.MaxY && b.MinY <= v.MaxY &&
		v.MinZ <= b.MaxZ && b.MinZ <= v.MaxZ
}

// Intersect returns the distance from the ray origin to the nearest point of
// the volume hit by the ray. An origin inside the volume is at distance 0.
func (v Volume[S]) Intersect(r Ray3) (float64, bool) {
	tmin, tmax := 0.0, inf

	var ok bool
	if tmin, tmax, ok = slab(r.Origin.X, r.Direction.X, float64(v.MinX), float64(v.MaxX), tmin, tmax); !ok {
		return 0, false
	}
	if tmin, tmax, ok = slab(r.Origin.Y, r.Direction.Y, float64(v.MinY), float64(v.MaxY), tmin, tmax); !ok {
		return 0, false
	}
	if tmin, _, ok = slab(r.Origin.Z, r.Direction.Z, float64(v.MinZ), float64(v.MaxZ), tmin, tmax); !ok {
		return 0, false
	}
	return tmin * r.Direction.Length(), true
}

func (v Volume[S]) String() string {
	return fmt.Sprintf("Volume{x=[%v, %v], y=[%v, %v], z=[%v, %v]}",
		v.MinX, v.MaxX,
		v.MinY, v.MaxY,
		v.MinZ, v.MaxZ,
	)
}
