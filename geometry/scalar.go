// Package geometry provides the axis-aligned shapes and rays indexed by the
// spatial trees: areas in two dimensions, volumes in three, over integer or
// floating point coordinates.
package geometry

import "golang.org/x/exp/constraints"

// Scalar is a constraint for the coordinate types areas and volumes can hold.
type Scalar interface {
	constraints.Integer | constraints.Float
}

// IsIntegral reports whether S is an integer type.
func IsIntegral[S Scalar]() bool {
	var one S = 1
	return one/2 == 0
}

// Midpoint returns (min + max) / 2. The result is truncated for integer types.
func Midpoint[S Scalar](min, max S) S {
	return (min + max) / 2
}

// slab clips the [tmin, tmax] parameter range of a ray against the slab
// [lo, hi] along one axis. It reports false when the range becomes empty.
func slab(origin, direction, lo, hi, tmin, tmax float64) (float64, float64, bool) {
	if direction == 0 {
		// Parallel to the slab: the ray either always or never lies within it.
		return tmin, tmax, origin >= lo && origin <= hi
	}

	inv := 1 / direction
	t0 := (lo - origin) * inv
	t1 := (hi - origin) * inv
	if t0 > t1 {
		t0, t1 = t1, t0
	}

	if t0 > tmin {
		tmin = t0
	}
	if t1 < tmax {
		tmax = t1
	}
	return tmin, tmax, tmin <= tmax
}
