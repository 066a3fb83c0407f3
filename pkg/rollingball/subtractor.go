package rollingball

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Params holds the background subtraction parameters. They are supplied
// once when a subtractor is constructed and are immutable for its
// lifetime.
type Params struct {
	// BallRadius is the radius in pixels of the ball rolled under the
	// intensity surface. Larger radii produce smoother, more
	// conservative background estimates. Must be positive; values below
	// 1 pixel degenerate the kernel.
	BallRadius float64

	// SmoothingSigma is the standard deviation in pixels of the Gaussian
	// blur applied before envelope estimation. Zero disables smoothing.
	SmoothingSigma float64

	// NumCores specifies how many CPU cores to use for the envelope
	// computation. Zero or negative values select all available cores.
	NumCores int
}

// BackgroundSubtractor is the public entry point of the algorithm. It
// orchestrates smoothing, envelope estimation and the final arithmetic,
// and owns the lifecycle of its background engine.
type BackgroundSubtractor struct {
	params   Params
	kernel   *BallKernel
	engine   *BackgroundEngine
	smoother *Smoother
}

// NewBackgroundSubtractor builds the ball kernel and background engine for
// the given parameters. The returned subtractor must be released with
// Close once it is no longer needed.
func NewBackgroundSubtractor(params Params) (*BackgroundSubtractor, error) {
	kernel, err := NewBallKernel(params.BallRadius)
	if err != nil {
		return nil, fmt.Errorf("failed to build ball kernel: %w", err)
	}

	smoother, err := NewSmoother(params.SmoothingSigma)
	if err != nil {
		return nil, fmt.Errorf("failed to build smoother: %w", err)
	}

	engine, err := NewBackgroundEngine(kernel.Heights, kernel.Side, params.NumCores)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize background engine: %w", err)
	}

	return &BackgroundSubtractor{
		params:   params,
		kernel:   kernel,
		engine:   engine,
		smoother: smoother,
	}, nil
}

// Kernel returns the subtractor's ball kernel.
func (s *BackgroundSubtractor) Kernel() *BallKernel {
	return s.kernel
}

// EstimateBG estimates the background of the image. The image is smoothed,
// the ball-center envelope is computed, and the ball radius is added back
// to every pixel: the engine reports the height of the ball's center,
// which sits one radius below the apex that actually touches the surface,
// so the offset converts center heights back to surface heights on the
// image's intensity scale.
func (s *BackgroundSubtractor) EstimateBG(img []float64, rows, cols int) ([]float64, error) {
	if s.engine == nil {
		return nil, fmt.Errorf("background subtractor is closed: %w", ErrInvalidHandle)
	}

	smoothed, err := s.smoother.Smooth(img, rows, cols)
	if err != nil {
		return nil, fmt.Errorf("failed to smooth image: %w", err)
	}

	background, err := s.engine.EstimateBackground(smoothed, rows, cols)
	if err != nil {
		return nil, fmt.Errorf("failed to estimate background: %w", err)
	}

	floats.AddConst(s.params.BallRadius, background)
	return background, nil
}

// RemoveBG returns the background-subtracted image, img - EstimateBG(img)
// elementwise. Values may go negative where the intensity falls below the
// estimated background.
func (s *BackgroundSubtractor) RemoveBG(img []float64, rows, cols int) ([]float64, error) {
	background, err := s.EstimateBG(img, rows, cols)
	if err != nil {
		return nil, err
	}

	result := make([]float64, len(img))
	copy(result, img)
	floats.Sub(result, background)
	return result, nil
}

// Close releases the subtractor's background engine. EstimateBG and
// RemoveBG fail with ErrInvalidHandle afterwards. Closing an already
// closed subtractor is a no-op.
func (s *BackgroundSubtractor) Close() {
	if s.engine != nil {
		s.engine.Close()
		s.engine = nil
	}
}
