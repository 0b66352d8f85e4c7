package engine

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Integrator advances a bound context by fixed-size steps.
type Integrator interface {
	StepSize() float64
	// Bind attaches the integrator to a context. Called by NewContext.
	Bind(c *Context) error
	// Step runs n steps to completion or returns the first failure.
	Step(n int) error
}

type binding struct {
	ctx *Context
}

func (b *binding) Bind(c *Context) error {
	if b.ctx != nil && b.ctx != c {
		return ErrAlreadyBound
	}
	b.ctx = c
	return nil
}

func (b *binding) context() (*Context, error) {
	if b.ctx == nil {
		return nil, fmt.Errorf("%w: integrator is not bound to a context", ErrInvariant)
	}
	return b.ctx, nil
}

func (c *Context) stepError(err error) error {
	return &SimulationError{Step: c.steps, Time: c.time, Wrapped: err}
}

// advance moves the clock after positions were updated and rejects
// non-finite coordinates.
func (c *Context) advance(dt float64) error {
	for i := 0; i < c.data.Len(); i++ {
		if !finite(c.data.Position(i)) {
			return c.stepError(fmt.Errorf("%w: position of particle %d", ErrNonFinite, i))
		}
	}
	c.time += dt
	c.steps++
	return nil
}

func (c *Context) drift(i int, dt float64) {
	c.data.SetPosition(i, r3.Add(c.data.Position(i), r3.Scale(dt, c.velocities[i])))
}
