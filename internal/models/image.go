package models

import (
	"image"
	"image/color"
	"math"
)

// Image represents a single-channel microscopy frame as float64 intensities.
// Data is stored in row-major order, so the pixel at row i and column j is
// Data[i*Cols+j].
type Image struct {
	// Data is the pixel intensity data as a 1D array in row-major order
	Data []float64

	// Rows is the number of image rows (height in pixels)
	Rows int

	// Cols is the number of image columns (width in pixels)
	Cols int
}

// NewImage creates a zero-filled image with the given dimensions
func NewImage(rows, cols int) *Image {
	return &Image{
		Data: make([]float64, rows*cols),
		Rows: rows,
		Cols: cols,
	}
}

// At returns the intensity at row i, column j
func (im *Image) At(i, j int) float64 {
	return im.Data[i*im.Cols+j]
}

// Set assigns the intensity at row i, column j
func (im *Image) Set(i, j int, v float64) {
	im.Data[i*im.Cols+j] = v
}

// FromImage converts a standard library image to a float64 intensity image.
// Color images are converted to grayscale using the Gray16 color model, so
// intensities fall in the range [0, 65535].
func FromImage(img image.Image) *Image {
	bounds := img.Bounds()
	out := NewImage(bounds.Dy(), bounds.Dx())

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray := color.Gray16Model.Convert(img.At(x, y)).(color.Gray16)
			out.Set(y-bounds.Min.Y, x-bounds.Min.X, float64(gray.Y))
		}
	}

	return out
}

// ToGray16 converts the image to a 16-bit grayscale image, clamping
// intensities to the [0, 65535] range
func (im *Image) ToGray16() *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, im.Cols, im.Rows))

	for i := 0; i < im.Rows; i++ {
		for j := 0; j < im.Cols; j++ {
			value := uint16(math.Max(0, math.Min(65535, im.At(i, j))))
			img.SetGray16(j, i, color.Gray16{Y: value})
		}
	}

	return img
}

// ToGray16Normalized converts the image to a 16-bit grayscale image after
// rescaling intensities to span the full [0, 65535] range. This is useful
// for visualizing background-subtracted images, whose values may be negative.
func (im *Image) ToGray16Normalized() *image.Gray16 {
	minVal := math.Inf(1)
	maxVal := math.Inf(-1)
	for _, v := range im.Data {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}

	img := image.NewGray16(image.Rect(0, 0, im.Cols, im.Rows))
	scale := 0.0
	if maxVal > minVal {
		scale = 65535.0 / (maxVal - minVal)
	}

	for i := 0; i < im.Rows; i++ {
		for j := 0; j < im.Cols; j++ {
			value := uint16((im.At(i, j) - minVal) * scale)
			img.SetGray16(j, i, color.Gray16{Y: value})
		}
	}

	return img
}
