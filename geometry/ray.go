package geometry

import (
	"fmt"

	"github.com/aukilabs/go-tooling/pkg/errors"
)

// ErrTypeZeroDirection is the error type returned when a ray is built with a
// direction of zero length.
const ErrTypeZeroDirection = "ray_zero_direction"

// Ray2 is a half-line in two dimensions. Rays built with NewRay2 have a unit
// direction, which makes intersection parameters equal to distances.
type Ray2 struct {
	Origin    Vector2 `json:"origin"`
	Direction Vector2 `json:"direction"`
}

// NewRay2 returns a ray starting at origin and heading along the normalized
// direction.
func NewRay2(origin, direction Vector2) (Ray2, error) {
	if direction.Length() == 0 {
		return Ray2{}, errors.New("ray direction has a zero length").
			WithType(ErrTypeZeroDirection).
			WithTag("origin", origin)
	}

	return Ray2{
		Origin:    origin,
		Direction: direction.Normalized(),
	}, nil
}

// At returns the point located at the distance d from the ray origin.
func (r Ray2) At(d float64) Vector2 {
	return r.Origin.Add(r.Direction.Normalized().Mul(d))
}

func (r Ray2) String() string {
	return fmt.Sprintf("Ray2{origin=(%g, %g), direction=(%g, %g)}",
		r.Origin.X, r.Origin.Y,
		r.Direction.X, r.Direction.Y,
	)
}

// Ray3 is a half-line in three dimensions. Rays built with NewRay3 have a
// unit direction, which makes intersection parameters equal to distances.
type Ray3 struct {
	Origin    Vector3 `json:"origin"`
	Direction Vector3 `json:"direction"`
}

// NewRay3 returns a ray starting at origin and heading along the normalized
// direction.
func NewRay3(origin, direction Vector3) (Ray3, error) {
	if direction.Length() == 0 {
		return Ray3{}, errors.New("ray direction has a zero length").
			WithType(ErrTypeZeroDirection).
			WithTag("origin", origin)
	}

	return Ray3{
		Origin:    origin,
		Direction: direction.Normalized(),
	}, nil
}

// At returns the point located at the distance d from the ray origin.
func (r Ray3) At(d float64) Vector3 {
	return r.Origin.Add(r.Direction.Normalized().Mul(d))
}

func (r Ray3) String() string {
	return fmt.Sprintf("Ray3{origin=(%g, %g, %g), direction=(%g, %g, %g)}",
		r.Origin.X, r.Origin.Y, r.Origin.Z,
		r.Direction.X, r.Direction.Y, r.Direction.Z,
	)
}
