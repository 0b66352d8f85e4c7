package engine

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
)

// Context binds a System to an Integrator and a Platform. It owns the live
// buffers for the lifetime of the run.
type Context struct {
	masses     []float64
	forces     []Force
	impls      []ForceImpl
	integrator Integrator
	platform   Platform
	data       PlatformData
	velocities []r3.Vec
	params     map[string]float64
	time       float64
	steps      int
	evaluating bool
}

// NewContext creates force implementations for every registered force,
// checks that each declares a kernel for the platform, initializes them and
// binds the integrator. Masses are copied, so later changes to the system do
// not reach the context.
func NewContext(system *System, integrator Integrator, platform Platform) (*Context, error) {
	n := system.NumParticles()
	c := &Context{
		masses:     make([]float64, n),
		forces:     make([]Force, system.NumForces()),
		impls:      make([]ForceImpl, 0, system.NumForces()),
		integrator: integrator,
		platform:   platform,
		data:       platform.NewData(n),
		velocities: make([]r3.Vec, n),
		params:     make(map[string]float64),
	}
	copy(c.masses, system.masses)
	copy(c.forces, system.forces)

	if c.data.Len() != n {
		return nil, fmt.Errorf("%w: platform %q allocated %d particles, system has %d",
			ErrInvariant, platform.Name(), c.data.Len(), n)
	}

	for _, f := range c.forces {
		impl := f.CreateImpl()
		if !declaresKernel(impl, platform.Name()) {
			return nil, fmt.Errorf("%w: force %q declares %v, platform is %q",
				ErrKernelUnavailable, f.Name(), impl.KernelNames(), platform.Name())
		}
		for name, value := range impl.DefaultParameters() {
			c.params[name] = value
		}
		c.impls = append(c.impls, impl)
	}

	for _, impl := range c.impls {
		if err := impl.Initialize(c); err != nil {
			return nil, fmt.Errorf("initialize %s: %w", impl.Owner().Name(), err)
		}
	}

	if err := integrator.Bind(c); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Context) NumParticles() int      { return len(c.masses) }
func (c *Context) Platform() Platform     { return c.platform }
func (c *Context) Integrator() Integrator { return c.integrator }
func (c *Context) Time() float64          { return c.time }
func (c *Context) StepCount() int         { return c.steps }

// SetPositions installs one position per particle, in installation order.
func (c *Context) SetPositions(positions []r3.Vec) error {
	if len(positions) != c.NumParticles() {
		return fmt.Errorf("%w: got %d positions for %d particles",
			ErrDimensionMismatch, len(positions), c.NumParticles())
	}
	for i, p := range positions {
		if !finite(p) {
			return fmt.Errorf("%w: position %d", ErrNonFinite, i)
		}
		c.data.SetPosition(i, p)
	}
	return nil
}

// SetVelocities installs one velocity per particle.
func (c *Context) SetVelocities(velocities []r3.Vec) error {
	if len(velocities) != c.NumParticles() {
		return fmt.Errorf("%w: got %d velocities for %d particles",
			ErrDimensionMismatch, len(velocities), c.NumParticles())
	}
	copy(c.velocities, velocities)
	return nil
}

// Parameter returns the current value of a global context parameter.
func (c *Context) Parameter(name string) (float64, error) {
	v, ok := c.params[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownParameter, name)
	}
	return v, nil
}

// ParameterNames lists the declared context parameters in sorted order.
func (c *Context) ParameterNames() []string {
	names := make([]string, 0, len(c.params))
	for name := range c.params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetParameter changes a global parameter between steps and lets every force
// refresh its cached state.
func (c *Context) SetParameter(name string, value float64) error {
	if _, ok := c.params[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownParameter, name)
	}
	c.params[name] = value
	for _, impl := range c.impls {
		if err := impl.UpdateContextState(c); err != nil {
			return fmt.Errorf("update %s: %w", impl.Owner().Name(), err)
		}
	}
	return nil
}

// Vec3Buffers exposes the live position and force buffers to a force
// implementation. It is only valid while CalcForcesAndEnergy runs. Positions
// are read-only by contract; forces are accumulated into.
func (c *Context) Vec3Buffers() (positions, forces []r3.Vec, err error) {
	if !c.evaluating {
		return nil, nil, ErrBuffersUnavailable
	}
	layout, ok := c.data.(Vec3Layout)
	if !ok {
		return nil, nil, fmt.Errorf("%w: platform %q has no r3.Vec buffers", ErrBackendLayout, c.platform.Name())
	}
	positions, forces = layout.Vec3Buffers()
	if len(positions) != c.NumParticles() || len(forces) != c.NumParticles() {
		return nil, nil, fmt.Errorf("%w: buffers %d/%d for %d particles",
			ErrInvariant, len(positions), len(forces), c.NumParticles())
	}
	return positions, forces, nil
}

// FlatBuffers is the packed-triple counterpart of Vec3Buffers.
func (c *Context) FlatBuffers() (positions, forces []float64, err error) {
	if !c.evaluating {
		return nil, nil, ErrBuffersUnavailable
	}
	layout, ok := c.data.(FlatLayout)
	if !ok {
		return nil, nil, fmt.Errorf("%w: platform %q has no flat buffers", ErrBackendLayout, c.platform.Name())
	}
	positions, forces = layout.FlatBuffers()
	if len(positions) != 3*c.NumParticles() || len(forces) != 3*c.NumParticles() {
		return nil, nil, fmt.Errorf("%w: buffers %d/%d for %d particles",
			ErrInvariant, len(positions), len(forces), c.NumParticles())
	}
	return positions, forces, nil
}

// calcForcesAndEnergy clears the force buffer and lets every force in groups
// accumulate into it. Energies and forces are checked for NaN/Inf.
func (c *Context) calcForcesAndEnergy(includeForces, includeEnergy bool, groups int) (float64, error) {
	c.data.ZeroForces()

	c.evaluating = true
	defer func() { c.evaluating = false }()

	total := 0.0
	for _, impl := range c.impls {
		if !inGroups(impl.Owner(), groups) {
			continue
		}
		energy, err := impl.CalcForcesAndEnergy(c, includeForces, includeEnergy, groups)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", impl.Owner().Name(), err)
		}
		if includeEnergy && (math.IsNaN(energy) || math.IsInf(energy, 0)) {
			return 0, fmt.Errorf("%w: energy of %s", ErrNonFinite, impl.Owner().Name())
		}
		total += energy
	}

	if includeForces {
		for i := 0; i < c.data.Len(); i++ {
			if !finite(c.data.Force(i)) {
				return 0, fmt.Errorf("%w: force on particle %d", ErrNonFinite, i)
			}
		}
	}

	return total, nil
}

func (c *Context) kineticEnergy() float64 {
	ke := 0.0
	for i, v := range c.velocities {
		ke += 0.5 * c.masses[i] * r3.Norm2(v)
	}
	return ke
}

func finite(v r3.Vec) bool {
	return !(math.IsNaN(v.X) || math.IsInf(v.X, 0) ||
		math.IsNaN(v.Y) || math.IsInf(v.Y, 0) ||
		math.IsNaN(v.Z) || math.IsInf(v.Z, 0))
}
