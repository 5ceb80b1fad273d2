package spatial

import "github.com/aukilabs/spatial/geometry"

// SubdivideArea splits a at the midpoint of each axis into 4 quadrants,
// ordered x0y0, x1y0, x0y1, x1y1. Adjacent quadrants share their boundary.
//
// It reports false when a cannot be split: an axis is too short to be halved,
// or a quadrant would be narrower than the given minimums.
func SubdivideArea[S geometry.Scalar](a geometry.Area[S], minWidth, minHeight S) ([]geometry.Area[S], bool) {
	xs, ok := halve(a.MinX, a.MaxX, minWidth)
	if !ok {
		return nil, false
	}
	ys, ok := halve(a.MinY, a.MaxY, minHeight)
	if !ok {
		return nil, false
	}

	quadrants := make([]geometry.Area[S], 0, 4)
	for _, y := range ys {
		for _, x := range xs {
			quadrants = append(quadrants, geometry.AreaOf(x[0], x[1], y[0], y[1]))
		}
	}
	return quadrants, true
}

// SubdivideVolume splits v at the midpoint of each axis into 8 octants,
// ordered x0y0z0, x1y0z0, x0y1z0, x1y1z0, x0y0z1, x1y0z1, x0y1z1, x1y1z1.
// Adjacent octants share their boundary.
//
// It reports false when v cannot be split: an axis is too short to be halved,
// or an octant would be smaller than the given minimums.
func SubdivideVolume[S geometry.Scalar](v geometry.Volume[S], minWidth, minHeight, minDepth S) ([]geometry.Volume[S], bool) {
	xs, ok := halve(v.MinX, v.MaxX, minWidth)
	if !ok {
		return nil, false
	}
	ys, ok := halve(v.MinY, v.MaxY, minHeight)
	if !ok {
		return nil, false
	}
	zs, ok := halve(v.MinZ, v.MaxZ, minDepth)
	if !ok {
		return nil, false
	}

	octants := make([]geometry.Volume[S], 0, 8)
	for _, z := range zs {
		for _, y := range ys {
			for _, x := range xs {
				octants = append(octants, geometry.VolumeOf(x[0], x[1], y[0], y[1], z[0], z[1]))
			}
		}
	}
	return octants, true
}

// halve splits [lo, hi] into [lo, mid] and [mid, hi].
func halve[S geometry.Scalar](lo, hi, minimum S) ([2][2]S, bool) {
	span := hi - lo
	if span <= 0 || (geometry.IsIntegral[S]() && span < 2) {
		return [2][2]S{}, false
	}

	mid := geometry.Midpoint(lo, hi)
	if mid-lo < minimum || hi-mid < minimum || mid-lo <= 0 || hi-mid <= 0 {
		return [2][2]S{}, false
	}

	return [2][2]S{
		{lo, mid},
		{mid, hi},
	}, true
}
