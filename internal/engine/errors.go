package engine

import (
	"errors"
	"fmt"
)

// Domain errors for engine operations.
var (
	// ErrKernelUnavailable indicates a force does not declare a kernel for the active platform.
	ErrKernelUnavailable = errors.New("engine: force has no kernel for platform")

	// ErrBackendLayout indicates platform buffers cannot be viewed in the requested layout.
	ErrBackendLayout = errors.New("engine: platform buffers do not have the requested layout")

	// ErrBuffersUnavailable indicates buffer access outside of a force evaluation.
	ErrBuffersUnavailable = errors.New("engine: buffers are only accessible during force evaluation")

	// ErrDimensionMismatch indicates a vector count that differs from the particle count.
	ErrDimensionMismatch = errors.New("engine: dimension mismatch with particle count")

	// ErrInvariant indicates an internal consistency check failed.
	ErrInvariant = errors.New("engine: invariant violated")

	// ErrNonFinite indicates a NaN or Inf energy, force or position.
	ErrNonFinite = errors.New("engine: non-finite value detected")

	// ErrNotRequested indicates a State field that was not part of the request.
	ErrNotRequested = errors.New("engine: data not requested in state")

	// ErrUnknownParameter indicates a context parameter that no force declared.
	ErrUnknownParameter = errors.New("engine: unknown context parameter")

	// ErrAlreadyBound indicates an integrator reused across contexts.
	ErrAlreadyBound = errors.New("engine: integrator already bound to a context")
)

// SimulationError wraps an error with integration context.
type SimulationError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
