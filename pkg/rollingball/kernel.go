// Package rollingball estimates slowly-varying background illumination in
// microscopy images by simulating a ball of fixed radius rolling beneath the
// intensity surface. The height reached by the ball at each pixel is the
// local background estimate, which can then be subtracted from the image.
//
// The implementation follows the classic rolling ball algorithm: the image
// is lightly smoothed so the ball does not catch on pixel-level noise, the
// background envelope is computed as a minimum reduction over a
// hemispherical structuring element, and the ball radius is added back to
// convert ball-center heights to surface heights.
package rollingball

import (
	"fmt"
	"math"
)

// BallKernel is the discretized hemispherical structuring element used by
// the background engine. It is an odd-sided square grid of heights built
// once from the ball radius and immutable afterwards.
type BallKernel struct {
	// Radius is the ball radius in pixels
	Radius float64

	// HalfWidth is the kernel half-width, Radius * 0.5 rounded to the
	// nearest integer with ties going to the even neighbor
	HalfWidth int

	// Side is the kernel side length, 2*HalfWidth+1
	Side int

	// Heights holds the hemisphere heights in row-major order. Cells
	// outside the hemisphere's base circle are NaN and place no
	// constraint on the rolled ball.
	Heights []float64
}

// NewBallKernel builds the structuring element for a ball of the given
// radius. The kernel height at offset (dx, dy) from the center is
// sqrt(radius^2 - dx^2 - dy^2), the height of the hemisphere surface above
// its base. Offsets outside the base circle are marked NaN rather than
// zero: a zero would wrongly cap the rolled height at those offsets.
//
// The radius must be positive; radii below 1 pixel produce a degenerate
// 1x1 kernel and are rarely useful.
func NewBallKernel(radius float64) (*BallKernel, error) {
	if radius <= 0 {
		return nil, fmt.Errorf("ball radius must be positive, got %g: %w", radius, ErrInvalidParameter)
	}

	// Ties round to even: a radius 5 ball gets half-width 2, not 3.
	halfWidth := int(math.RoundToEven(radius * 0.5))
	side := 2*halfWidth + 1

	k := &BallKernel{
		Radius:    radius,
		HalfWidth: halfWidth,
		Side:      side,
		Heights:   make([]float64, side*side),
	}

	r2 := radius * radius
	for x := 0; x < side; x++ {
		dx := float64(x - halfWidth)
		for y := 0; y < side; y++ {
			dy := float64(y - halfWidth)
			// Negative operands yield NaN, which marks the cell
			// as outside the ball's footprint.
			k.Heights[x*side+y] = math.Sqrt(r2 - dx*dx - dy*dy)
		}
	}

	return k, nil
}
