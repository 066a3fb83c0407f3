package rollingball

import (
	"fmt"
	"math"
	"runtime"
	"sync"
)

// kernelOffset is one defined cell of the ball kernel, expressed as a row
// and column offset from the ball's apex and the hemisphere height at that
// offset. Cells outside the hemisphere's base circle are dropped when the
// offsets are precomputed, so the inner loop never sees them.
type kernelOffset struct {
	dx, dy int
	height float64
}

// BackgroundEngine computes the background envelope of a smoothed image by
// rolling a ball along the underside of the intensity surface. Each engine
// owns an immutable copy of its kernel, so independent engines can run
// concurrently with no coordination.
//
// The engine must be released with Close once it is no longer needed;
// using it afterwards fails with ErrInvalidHandle.
type BackgroundEngine struct {
	// offsets is the precomputed list of defined kernel cells
	offsets []kernelOffset

	// halfWidth is the kernel half-width in pixels
	halfWidth int

	// numCores is the number of goroutines used per estimate call
	numCores int

	// closed marks a released engine
	closed bool
}

// NewBackgroundEngine creates an engine from a kernel height grid of the
// given side length, as produced by NewBallKernel. The heights are copied,
// so the caller's slice is not retained. numCores controls how many
// goroutines each EstimateBackground call uses; zero or negative values
// select all available CPU cores.
//
// Engines created from different kernels are fully independent: no state
// is shared between handles.
func NewBackgroundEngine(heights []float64, side int, numCores int) (*BackgroundEngine, error) {
	if side < 1 || side%2 == 0 {
		return nil, fmt.Errorf("kernel side must be a positive odd number, got %d: %w", side, ErrInvalidParameter)
	}
	if len(heights) != side*side {
		return nil, fmt.Errorf("kernel has %d heights, expected %dx%d=%d: %w",
			len(heights), side, side, side*side, ErrDimensionMismatch)
	}
	if numCores <= 0 {
		numCores = runtime.NumCPU()
	}

	halfWidth := side / 2
	e := &BackgroundEngine{
		halfWidth: halfWidth,
		numCores:  numCores,
		offsets:   make([]kernelOffset, 0, side*side),
	}

	// Keep only the cells inside the hemisphere's base circle. NaN cells
	// place no constraint on the rolled ball and must not contribute to
	// the minimum below.
	for x := 0; x < side; x++ {
		for y := 0; y < side; y++ {
			h := heights[x*side+y]
			if math.IsNaN(h) {
				continue
			}
			e.offsets = append(e.offsets, kernelOffset{
				dx:     x - halfWidth,
				dy:     y - halfWidth,
				height: h,
			})
		}
	}

	return e, nil
}

// EstimateBackground computes, for every pixel, the maximum height the
// ball's center can reach with its apex directly under that pixel while
// the whole ball stays on or below the image surface. That height is the
// minimum over all defined kernel offsets of
//
//	img[i+dx][j+dy] - kernel[dx][dy]
//
// the tightest of the constraints imposed by the surface points the ball
// touches. Offsets that fall outside the image are dropped from the
// minimum, so border pixels are constrained by fewer surface points; no
// padding value is ever substituted.
//
// The input is read-only and the returned image is freshly allocated.
// Rows are processed in parallel across the engine's configured cores.
func (e *BackgroundEngine) EstimateBackground(img []float64, rows, cols int) ([]float64, error) {
	if e == nil || e.closed {
		return nil, fmt.Errorf("background engine is closed: %w", ErrInvalidHandle)
	}
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("image dimensions %dx%d must be positive: %w", rows, cols, ErrInvalidParameter)
	}
	if len(img) != rows*cols {
		return nil, fmt.Errorf("image has %d values, expected %dx%d=%d: %w",
			len(img), rows, cols, rows*cols, ErrDimensionMismatch)
	}

	background := make([]float64, len(img))

	// Divide the rows among the available cores. Each output pixel
	// depends only on the read-only input and kernel, so rows can be
	// processed with no synchronization.
	var wg sync.WaitGroup
	rowsPerCore := (rows + e.numCores - 1) / e.numCores

	for c := 0; c < e.numCores; c++ {
		wg.Add(1)

		go func(coreID int) {
			defer wg.Done()

			startRow := coreID * rowsPerCore
			endRow := startRow + rowsPerCore
			if endRow > rows {
				endRow = rows
			}

			for i := startRow; i < endRow; i++ {
				e.estimateRow(img, background, i, rows, cols)
			}
		}(c)
	}

	wg.Wait()
	return background, nil
}

// estimateRow fills one output row of the background envelope.
func (e *BackgroundEngine) estimateRow(img, background []float64, i, rows, cols int) {
	// Rows within halfWidth of the border need per-offset bounds checks;
	// for interior rows only the column bound can be violated.
	rowInterior := i >= e.halfWidth && i < rows-e.halfWidth

	for j := 0; j < cols; j++ {
		minHeight := math.Inf(1)

		if rowInterior && j >= e.halfWidth && j < cols-e.halfWidth {
			for _, off := range e.offsets {
				candidate := img[(i+off.dx)*cols+j+off.dy] - off.height
				if candidate < minHeight {
					minHeight = candidate
				}
			}
		} else {
			for _, off := range e.offsets {
				ii := i + off.dx
				jj := j + off.dy
				if ii < 0 || ii >= rows || jj < 0 || jj >= cols {
					continue
				}
				candidate := img[ii*cols+jj] - off.height
				if candidate < minHeight {
					minHeight = candidate
				}
			}
		}

		background[i*cols+j] = minHeight
	}
}

// Close releases the engine. Estimating with a closed engine fails with
// ErrInvalidHandle. Close must not be called while an EstimateBackground
// call is in flight on the same engine; serializing lifecycle operations
// against computation is the caller's responsibility. Closing an already
// closed engine is a no-op.
func (e *BackgroundEngine) Close() {
	if e == nil {
		return
	}
	e.offsets = nil
	e.closed = true
}
