package rollingball

import "errors"

// Error kinds reported by the rolling ball algorithm. All errors returned
// by this package wrap one of these sentinels, so callers can classify
// failures with errors.Is.
var (
	// ErrInvalidParameter indicates a construction parameter outside its
	// valid domain, such as a non-positive ball radius or a negative
	// smoothing sigma.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrDimensionMismatch indicates that an image's declared dimensions
	// are inconsistent with its actual data length.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrInvalidHandle indicates use of an engine or subtractor after it
	// has been closed.
	ErrInvalidHandle = errors.New("invalid handle")
)
