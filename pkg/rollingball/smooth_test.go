package rollingball

import (
	"errors"
	"math"
	"testing"
)

// TestSmootherIdentity verifies that a sigma of zero leaves the image
// untouched and still returns a fresh copy
func TestSmootherIdentity(t *testing.T) {
	smoother, err := NewSmoother(0)
	if err != nil {
		t.Fatalf("NewSmoother(0) failed: %v", err)
	}

	img := []float64{1, 2, 3, 4, 5, 6}
	out, err := smoother.Smooth(img, 2, 3)
	if err != nil {
		t.Fatalf("Smooth failed: %v", err)
	}

	for i := range img {
		if out[i] != img[i] {
			t.Errorf("Pixel %d changed: expected %v, got %v", i, img[i], out[i])
		}
	}

	out[0] = 99
	if img[0] == 99 {
		t.Errorf("Smooth with sigma 0 must not alias the input")
	}
}

// TestSmootherTinySigmaIdentity verifies that sigmas below an eighth of a
// pixel truncate to a single-tap kernel and leave the image exactly
// unchanged
func TestSmootherTinySigmaIdentity(t *testing.T) {
	smoother, err := NewSmoother(0.1)
	if err != nil {
		t.Fatalf("NewSmoother(0.1) failed: %v", err)
	}

	img := []float64{3.25, -1.5, 0.75, 100.125, 7, 2}
	out, err := smoother.Smooth(img, 2, 3)
	if err != nil {
		t.Fatalf("Smooth failed: %v", err)
	}

	for i := range img {
		if out[i] != img[i] {
			t.Errorf("Pixel %d changed: expected %v, got %v", i, img[i], out[i])
		}
	}
}

// TestSmootherNegativeSigma verifies that a negative sigma is rejected
func TestSmootherNegativeSigma(t *testing.T) {
	_, err := NewSmoother(-0.5)
	if err == nil {
		t.Fatalf("NewSmoother(-0.5) should have failed")
	}
	if !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("Expected ErrInvalidParameter, got %v", err)
	}
}

// TestSmootherConstantImage verifies that smoothing preserves a constant
// image everywhere, including at the borders
func TestSmootherConstantImage(t *testing.T) {
	smoother, err := NewSmoother(2.0)
	if err != nil {
		t.Fatalf("NewSmoother(2.0) failed: %v", err)
	}

	rows, cols := 20, 30
	img := make([]float64, rows*cols)
	for i := range img {
		img[i] = 42.5
	}

	out, err := smoother.Smooth(img, rows, cols)
	if err != nil {
		t.Fatalf("Smooth failed: %v", err)
	}

	for i, v := range out {
		if math.Abs(v-42.5) > 1e-9 {
			t.Errorf("Pixel %d: expected 42.5, got %v", i, v)
		}
	}
}

// TestSmootherReducesSpike verifies that smoothing spreads out an isolated
// spike while preserving the total intensity away from borders
func TestSmootherReducesSpike(t *testing.T) {
	smoother, err := NewSmoother(1.0)
	if err != nil {
		t.Fatalf("NewSmoother(1.0) failed: %v", err)
	}

	rows, cols := 21, 21
	img := make([]float64, rows*cols)
	center := (rows/2)*cols + cols/2
	img[center] = 100.0

	out, err := smoother.Smooth(img, rows, cols)
	if err != nil {
		t.Fatalf("Smooth failed: %v", err)
	}

	if out[center] >= 100.0 {
		t.Errorf("Spike not reduced: got %v", out[center])
	}
	if out[center] <= 0 {
		t.Errorf("Spike center should stay positive, got %v", out[center])
	}

	// The spike is far from the border, so the blur conserves the sum.
	sum := 0.0
	for _, v := range out {
		sum += v
	}
	if math.Abs(sum-100.0) > 1e-9 {
		t.Errorf("Total intensity not conserved: expected 100, got %v", sum)
	}

	// Symmetry around the spike.
	mid := rows / 2
	left := out[mid*cols+cols/2-1]
	right := out[mid*cols+cols/2+1]
	up := out[(mid-1)*cols+cols/2]
	down := out[(mid+1)*cols+cols/2]
	if math.Abs(left-right) > 1e-12 || math.Abs(up-down) > 1e-12 || math.Abs(left-up) > 1e-12 {
		t.Errorf("Blur of centered spike not symmetric: %v %v %v %v", left, right, up, down)
	}
}

// TestSmootherDimensionMismatch verifies the shape check on the input
func TestSmootherDimensionMismatch(t *testing.T) {
	smoother, err := NewSmoother(1.0)
	if err != nil {
		t.Fatalf("NewSmoother(1.0) failed: %v", err)
	}

	_, err = smoother.Smooth(make([]float64, 10), 3, 4)
	if err == nil {
		t.Fatalf("Smooth with mismatched dimensions should have failed")
	}
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Expected ErrDimensionMismatch, got %v", err)
	}
}
