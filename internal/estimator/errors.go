package estimator

import "errors"

// Domain errors for filter operations.
var (
	// ErrInvalidInput indicates a non-positive dt or a non-finite value.
	ErrInvalidInput = errors.New("estimator: invalid input")

	// ErrNumerical indicates the innovation covariance could not be
	// inverted (singular or condition number above the configured limit).
	ErrNumerical = errors.New("estimator: innovation covariance not invertible")
)
