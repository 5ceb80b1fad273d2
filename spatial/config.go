package spatial

import (
	"fmt"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/spatial/geometry"
)

const (
	// ErrTypeInvalidConfiguration is the error type returned when a tree
	// configuration has degenerate bounds or a minimum child size below the
	// domain floor.
	ErrTypeInvalidConfiguration = "invalid_configuration"

	// ErrTypeItemNotFound is the error type returned when looking up the
	// region of an item that is not in a tree.
	ErrTypeItemNotFound = "item_not_found"

	minimumIntegerChildSize = 2
	minimumFloatChildSize   = 0.0001
)

// MinimumChildSize returns the smallest child extent allowed on an axis for
// the scalar type S: 2 for integers and 0.0001 for floating point numbers.
func MinimumChildSize[S geometry.Scalar]() S {
	if geometry.IsIntegral[S]() {
		return minimumIntegerChildSize
	}

	var size float64 = minimumFloatChildSize
	return S(size)
}

// QuadTreeConfig holds the immutable parameters of a quadtree.
//
// Zero minimum sizes are replaced by MinimumChildSize when the tree is
// created.
type QuadTreeConfig[S geometry.Scalar] struct {
	// The area covered by the tree. Items outside of it are rejected.
	Bounds geometry.Area[S]

	// The smallest width a quadrant can have.
	MinimumChildWidth S

	// The smallest height a quadrant can have.
	MinimumChildHeight S

	// Whether removing an item collapses the subtrees left empty.
	TrimOnRemove bool
}

// WithDefaults returns a copy of c where unset minimum sizes are replaced by
// the domain floor.
func (c QuadTreeConfig[S]) WithDefaults() QuadTreeConfig[S] {
	if c.MinimumChildWidth == 0 {
		c.MinimumChildWidth = MinimumChildSize[S]()
	}
	if c.MinimumChildHeight == 0 {
		c.MinimumChildHeight = MinimumChildSize[S]()
	}
	return c
}

// Validate returns an error when the bounds are degenerate or a minimum size
// is below the domain floor.
func (c QuadTreeConfig[S]) Validate() error {
	if c.Bounds.IsDegenerate() {
		return errors.New("quadtree bounds are degenerate").
			WithType(ErrTypeInvalidConfiguration).
			WithTag("bounds", c.Bounds.String())
	}
	if err := validateMinimum("width", c.MinimumChildWidth); err != nil {
		return err
	}
	return validateMinimum("height", c.MinimumChildHeight)
}

func (c QuadTreeConfig[S]) String() string {
	return fmt.Sprintf("QuadTreeConfig{bounds=%s, minimumChildWidth=%v, minimumChildHeight=%v, trimOnRemove=%t}",
		c.Bounds,
		c.MinimumChildWidth,
		c.MinimumChildHeight,
		c.TrimOnRemove,
	)
}

// OctTreeConfig holds the immutable parameters of an octree.
//
// Zero minimum sizes are replaced by MinimumChildSize when the tree is
// created.
type OctTreeConfig[S geometry.Scalar] struct {
	// The volume covered by the tree. Items outside of it are rejected.
	Bounds geometry.Volume[S]

	// The smallest width an octant can have.
	MinimumChildWidth S

	// The smallest height an octant can have.
	MinimumChildHeight S

	// The smallest depth an octant can have.
	MinimumChildDepth S

	// Whether removing an item collapses the subtrees left empty.
	TrimOnRemove bool
}

// WithDefaults returns a copy of c where unset minimum sizes are replaced by
// the domain floor.
func (c OctTreeConfig[S]) WithDefaults() OctTreeConfig[S] {
	if c.MinimumChildWidth == 0 {
		c.MinimumChildWidth = MinimumChildSize[S]()
	}
	if c.MinimumChildHeight == 0 {
		c.MinimumChildHeight = MinimumChildSize[S]()
	}
	if c.MinimumChildDepth == 0 {
		c.MinimumChildDepth = MinimumChildSize[S]()
	}
	return c
}

// Validate returns an error when the bounds are degenerate or a minimum size
// is below the domain floor.
func (c OctTreeConfig[S]) Validate() error {
	if c.Bounds.IsDegenerate() {
		return errors.New("octree bounds are degenerate").
			WithType(ErrTypeInvalidConfiguration).
			WithTag("bounds", c.Bounds.String())
	}
	if err := validateMinimum("width", c.MinimumChildWidth); err != nil {
		return err
	}
	if err := validateMinimum("height", c.MinimumChildHeight); err != nil {
		return err
	}
	return validateMinimum("depth", c.MinimumChildDepth)
}

func (c OctTreeConfig[S]) String() string {
	return fmt.Sprintf("OctTreeConfig{bounds=%s, minimumChildWidth=%v, minimumChildHeight=%v, minimumChildDepth=%v, trimOnRemove=%t}",
		c.Bounds,
		c.MinimumChildWidth,
		c.MinimumChildHeight,
		c.MinimumChildDepth,
		c.TrimOnRemove,
	)
}

func validateMinimum[S geometry.Scalar](axis string, v S) error {
	if floor := MinimumChildSize[S](); v < floor {
		return errors.New("minimum child size is too small").
			WithType(ErrTypeInvalidConfiguration).
			WithTag("axis", axis).
			WithTag("value", v).
			WithTag("floor", floor)
	}
	return nil
}
