package rollingball

import (
	"fmt"
	"math"
)

// Smoother applies an isotropic Gaussian blur to an image before envelope
// estimation. Without smoothing the ball catches on pixel-level shot noise
// and locally underestimates the background.
type Smoother struct {
	// Sigma is the Gaussian standard deviation in pixels
	Sigma float64

	// weights is the separable 1D Gaussian kernel, normalized to sum 1
	weights []float64

	// halfWidth is the kernel truncation half-width, 4 standard
	// deviations rounded to the nearest pixel
	halfWidth int
}

// NewSmoother creates a Gaussian smoother with the given standard
// deviation. A sigma of zero disables smoothing entirely; a negative sigma
// is invalid.
func NewSmoother(sigma float64) (*Smoother, error) {
	if sigma < 0 {
		return nil, fmt.Errorf("smoothing sigma must be non-negative, got %g: %w", sigma, ErrInvalidParameter)
	}

	s := &Smoother{Sigma: sigma}
	if sigma == 0 {
		return s, nil
	}

	// Truncate the kernel at 4 standard deviations. Sigmas below an
	// eighth of a pixel truncate to a single tap, an exact identity.
	s.halfWidth = int(4.0*sigma + 0.5)

	s.weights = make([]float64, 2*s.halfWidth+1)
	sum := 0.0
	for i := range s.weights {
		d := float64(i - s.halfWidth)
		s.weights[i] = math.Exp(-d * d / (2 * sigma * sigma))
		sum += s.weights[i]
	}
	for i := range s.weights {
		s.weights[i] /= sum
	}

	return s, nil
}

// Smooth returns a blurred copy of the image. The input is never modified.
// The blur is applied separably, first along rows and then along columns.
// At the image border the kernel is renormalized over the in-bounds taps,
// which keeps a constant image constant up to rounding.
func (s *Smoother) Smooth(img []float64, rows, cols int) ([]float64, error) {
	if len(img) != rows*cols {
		return nil, fmt.Errorf("image has %d values, expected %dx%d=%d: %w",
			len(img), rows, cols, rows*cols, ErrDimensionMismatch)
	}

	out := make([]float64, len(img))
	if s.Sigma == 0 {
		copy(out, img)
		return out, nil
	}

	tmp := make([]float64, len(img))

	// Horizontal pass: img -> tmp
	for i := 0; i < rows; i++ {
		row := img[i*cols : (i+1)*cols]
		for j := 0; j < cols; j++ {
			acc := 0.0
			wsum := 0.0
			for t := -s.halfWidth; t <= s.halfWidth; t++ {
				jj := j + t
				if jj < 0 || jj >= cols {
					continue
				}
				w := s.weights[t+s.halfWidth]
				acc += w * row[jj]
				wsum += w
			}
			tmp[i*cols+j] = acc / wsum
		}
	}

	// Vertical pass: tmp -> out
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			acc := 0.0
			wsum := 0.0
			for t := -s.halfWidth; t <= s.halfWidth; t++ {
				ii := i + t
				if ii < 0 || ii >= rows {
					continue
				}
				w := s.weights[t+s.halfWidth]
				acc += w * tmp[ii*cols+j]
				wsum += w
			}
			out[i*cols+j] = acc / wsum
		}
	}

	return out, nil
}
