// Package calibration fits per-pixel calibration maps for sCMOS cameras
// from per-pixel intensity statistics. Given the mean and variance of a
// dark exposure series and of several illuminated exposure series, it
// produces the per-pixel offset, variance, gain and relative quantum
// efficiency maps used to correct raw camera frames.
//
// The units of the results are offset in ADU, gain in ADU per electron,
// variance in ADU squared and relative QE in arbitrary units close to one.
//
// This component is independent of the rolling ball background engine: it
// consumes raw pixel statistics arrays and produces per-pixel scalar maps
// with ordinary least squares fits.
package calibration

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// ExposureStats holds the per-pixel mean and variance of one exposure
// series, in row-major order.
type ExposureStats struct {
	// Mean is the per-pixel mean intensity in ADU
	Mean []float64

	// Variance is the per-pixel intensity variance in ADU^2
	Variance []float64
}

// Maps holds the fitted per-pixel calibration maps, all in row-major order
// with the same shape as the input statistics.
type Maps struct {
	// Offset is the per-pixel dark offset in ADU
	Offset []float64

	// Variance is the per-pixel dark (read) variance in ADU^2
	Variance []float64

	// Gain is the per-pixel gain in ADU per electron
	Gain []float64

	// RelativeQE is the per-pixel relative quantum efficiency: the
	// gain-corrected signal divided by its local mean, so values
	// hover around one
	RelativeQE []float64

	// Rows and Cols are the map dimensions in pixels
	Rows int
	Cols int
}

// Calibrate fits the calibration maps from a dark exposure series and at
// least two illuminated exposure series of increasing brightness. The
// illuminated statistics should be raw: the dark offset and variance are
// subtracted internally before fitting.
//
// The gain at each pixel is the slope of an ordinary least squares fit of
// the offset-subtracted variances against the offset-subtracted means
// across the illuminated series, following the photon transfer method: for
// a shot-noise limited pixel, variance grows linearly with mean intensity
// and the slope is the gain. Pixels whose offset-subtracted means are all
// zero cannot be fit and fall back to a gain of 1.0.
//
// The relative QE is taken from the brightest (last) series: each pixel's
// offset-subtracted mean is converted to electrons with the fitted gain
// and divided by a 10x10 local uniform-filter mean of the converted
// signal, so the map captures pixel-to-pixel sensitivity variation while
// large-scale illumination gradients cancel out.
func Calibrate(dark ExposureStats, illuminated []ExposureStats, rows, cols int) (*Maps, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("map dimensions %dx%d must be positive", rows, cols)
	}
	if len(illuminated) < 2 {
		return nil, fmt.Errorf("need at least two illuminated exposure series, got %d", len(illuminated))
	}

	n := rows * cols
	if err := checkStats("dark", dark, n); err != nil {
		return nil, err
	}
	for i, exp := range illuminated {
		if err := checkStats(fmt.Sprintf("illuminated series %d", i), exp, n); err != nil {
			return nil, err
		}
	}

	maps := &Maps{
		Offset:     make([]float64, n),
		Variance:   make([]float64, n),
		Gain:       make([]float64, n),
		RelativeQE: make([]float64, n),
		Rows:       rows,
		Cols:       cols,
	}
	copy(maps.Offset, dark.Mean)
	copy(maps.Variance, dark.Variance)

	// Fit the gain pixel by pixel.
	means := make([]float64, len(illuminated))
	vars := make([]float64, len(illuminated))

	for p := 0; p < n; p++ {
		nonzero := 0
		for i, exp := range illuminated {
			means[i] = exp.Mean[p] - dark.Mean[p]
			vars[i] = exp.Variance[p] - dark.Variance[p]
			if means[i] != 0 {
				nonzero++
			}
		}

		if nonzero == 0 {
			// Bad pixel: no signal in any illuminated series.
			maps.Gain[p] = 1.0
			continue
		}

		_, slope := stat.LinearRegression(means, vars, nil, false)
		maps.Gain[p] = slope
	}

	// Relative QE from the brightest series: convert the signal to
	// electrons with the fitted gain, then divide by its local mean.
	brightest := illuminated[len(illuminated)-1]
	corrected := make([]float64, n)
	for p := 0; p < n; p++ {
		corrected[p] = (brightest.Mean[p] - dark.Mean[p]) / maps.Gain[p]
	}

	smoothed := uniformFilter(corrected, rows, cols, qeFilterSize)
	for p := 0; p < n; p++ {
		maps.RelativeQE[p] = corrected[p] / smoothed[p]
	}

	return maps, nil
}

// qeFilterSize is the side of the uniform filter window used to estimate
// the local illumination when fitting the relative QE.
const qeFilterSize = 10

// uniformFilter computes the local mean of every pixel over a size x size
// window, applied separably along rows and then columns. For an even size
// the window spans offsets [-size/2, size/2-1]. Out-of-bounds taps are
// clamped to the nearest edge pixel.
func uniformFilter(data []float64, rows, cols, size int) []float64 {
	lo := -(size / 2)
	hi := size - size/2 - 1
	norm := 1.0 / float64(size)

	tmp := make([]float64, len(data))
	for i := 0; i < rows; i++ {
		row := data[i*cols : (i+1)*cols]
		for j := 0; j < cols; j++ {
			sum := 0.0
			for t := lo; t <= hi; t++ {
				jj := j + t
				if jj < 0 {
					jj = 0
				} else if jj >= cols {
					jj = cols - 1
				}
				sum += row[jj]
			}
			tmp[i*cols+j] = sum * norm
		}
	}

	out := make([]float64, len(data))
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			sum := 0.0
			for t := lo; t <= hi; t++ {
				ii := i + t
				if ii < 0 {
					ii = 0
				} else if ii >= rows {
					ii = rows - 1
				}
				sum += tmp[ii*cols+j]
			}
			out[i*cols+j] = sum * norm
		}
	}

	return out
}

// checkStats verifies that one exposure series has the expected number of
// per-pixel values.
func checkStats(name string, stats ExposureStats, n int) error {
	if len(stats.Mean) != n {
		return fmt.Errorf("%s has %d mean values, expected %d", name, len(stats.Mean), n)
	}
	if len(stats.Variance) != n {
		return fmt.Errorf("%s has %d variance values, expected %d", name, len(stats.Variance), n)
	}
	return nil
}
