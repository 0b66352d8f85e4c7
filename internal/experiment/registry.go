package experiment

import (
	"fmt"
	"slices"
	"sort"

	"github.com/san-kum/mdsim/internal/compute"
	"github.com/san-kum/mdsim/internal/engine"
	"github.com/san-kum/mdsim/internal/forces"
	"github.com/san-kum/mdsim/internal/sim"
)

type Registry struct {
	forces      map[string]sim.ForceFactory
	integrators map[string]sim.IntegratorFactory
}

func NewRegistry() *Registry {
	r := &Registry{
		forces:      make(map[string]sim.ForceFactory),
		integrators: make(map[string]sim.IntegratorFactory),
	}

	r.forces["harmonic"] = HarmonicWell
	r.forces["nonbonded"] = LennardJones

	r.integrators["langevin"] = sim.Langevin
	r.integrators["verlet"] = sim.Verlet

	return r
}

// HarmonicWell confines the system with the derived spring constant.
func HarmonicWell(_ sim.Config, d sim.Derived) (engine.Force, error) {
	return forces.NewHarmonic(d.SpringConstant), nil
}

// LennardJones gives every particle the configured charge and the derived
// sigma and epsilon.
func LennardJones(cfg sim.Config, d sim.Derived) (engine.Force, error) {
	nb := forces.NewNonbonded()
	for i := 0; i < cfg.ParticleCount; i++ {
		nb.AddParticle(cfg.ParticleCharge, d.LJSigma, d.LJEpsilon)
	}
	return nb, nil
}

func (r *Registry) GetForce(name string) (sim.ForceFactory, error) {
	fn, ok := r.forces[name]
	if !ok {
		return nil, fmt.Errorf("unknown force: %s", name)
	}
	return fn, nil
}

func (r *Registry) GetIntegrator(name string) (sim.IntegratorFactory, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn, nil
}

func (r *Registry) GetPlatform(name string) (engine.Platform, error) {
	return compute.Lookup(name)
}

// Platforms lists the platforms on which every force of s declares a
// kernel. A scenario without forces runs anywhere.
func (r *Registry) Platforms(s Scenario) ([]string, error) {
	d := sim.Derive(s.Config)
	kernels := make([][]string, 0, len(s.Forces))
	for _, name := range s.Forces {
		fn, err := r.GetForce(name)
		if err != nil {
			return nil, err
		}
		f, err := fn(s.Config, d)
		if err != nil {
			return nil, fmt.Errorf("force %s: %w", name, err)
		}
		kernels = append(kernels, f.CreateImpl().KernelNames())
	}

	supported := make([]string, 0)
	for _, platform := range compute.Names() {
		ok := true
		for _, names := range kernels {
			if !slices.Contains(names, platform) {
				ok = false
				break
			}
		}
		if ok {
			supported = append(supported, platform)
		}
	}
	return supported, nil
}

func (r *Registry) ListForces() []string {
	return sortedKeys(r.forces)
}

func (r *Registry) ListIntegrators() []string {
	return sortedKeys(r.integrators)
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
