package health

import "errors"

var (
	// ErrCheckFailed indicates a health check failed.
	ErrCheckFailed = errors.New("health: check failed")

	// ErrCheckTimeout indicates a health check timed out.
	ErrCheckTimeout = errors.New("health: check timeout")

	// ErrInvalidConfig indicates a SupervisorConfig field was negative.
	ErrInvalidConfig = errors.New("health: invalid supervisor config")
)
