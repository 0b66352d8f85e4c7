// Package forces holds force extensions that plug into the engine through
// the engine.Force / engine.ForceImpl contract.
package forces

import (
	"github.com/san-kum/mdsim/internal/compute"
	"github.com/san-kum/mdsim/internal/engine"
	"gonum.org/v1/gonum/spatial/r3"
)

// SpringConstantParameter is the context parameter read by Harmonic.
const SpringConstantParameter = "harmonic_k"

// Harmonic pulls every particle toward the origin with a spring of
// constant k:
//
//	E = k/2 * sum_i |x_i|^2
//	F_i = -k * x_i
//
// The force is the negative gradient of the reported energy. The spring
// constant is exposed as a context parameter so it can be annealed between
// steps.
type Harmonic struct {
	engine.ForceBase
	k float64
}

// NewHarmonic creates a harmonic well descriptor.
func NewHarmonic(k float64) *Harmonic {
	return &Harmonic{k: k}
}

func (h *Harmonic) Name() string            { return "harmonic" }
func (h *Harmonic) SpringConstant() float64 { return h.k }

// CreateImpl binds a harmonic implementation to this descriptor.
func (h *Harmonic) CreateImpl() engine.ForceImpl {
	return &harmonicImpl{owner: h}
}

type harmonicImpl struct {
	owner *Harmonic
	k     float64
}

func (impl *harmonicImpl) Owner() engine.Force { return impl.owner }

func (impl *harmonicImpl) Initialize(c *engine.Context) error {
	return impl.UpdateContextState(c)
}

func (impl *harmonicImpl) UpdateContextState(c *engine.Context) error {
	k, err := c.Parameter(SpringConstantParameter)
	if err != nil {
		return err
	}
	impl.k = k
	return nil
}

func (impl *harmonicImpl) DefaultParameters() map[string]float64 {
	return map[string]float64{SpringConstantParameter: impl.owner.k}
}

func (impl *harmonicImpl) KernelNames() []string {
	return []string{compute.ReferenceName}
}

func (impl *harmonicImpl) CalcForcesAndEnergy(c *engine.Context, includeForces, includeEnergy bool, groups int) (float64, error) {
	positions, forces, err := c.Vec3Buffers()
	if err != nil {
		return 0, err
	}

	energy := 0.0
	for i, x := range positions {
		if includeForces {
			forces[i] = r3.Add(forces[i], r3.Scale(-impl.k, x))
		}
		energy += r3.Dot(x, x)
	}
	energy *= impl.k / 2

	return energy, nil
}
