package forces

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/mdsim/internal/compute"
	"github.com/san-kum/mdsim/internal/engine"
	"gonum.org/v1/gonum/spatial/r3"
)

// CoulombConstant is 1/(4 pi eps0) in kJ*nm/(mol*e^2).
const CoulombConstant = 138.935456

// minParallelPairs is the particle count below which the flat kernel runs
// on a single goroutine.
const minParallelPairs = 64

// NonbondedParticle holds per-particle parameters of the pair potential.
type NonbondedParticle struct {
	Charge  float64
	Sigma   float64
	Epsilon float64
}

// Nonbonded is the all-pairs Lennard-Jones plus Coulomb interaction without
// cutoff. Pair parameters use Lorentz-Berthelot mixing:
//
//	sigma_ij = (sigma_i + sigma_j) / 2
//	eps_ij   = sqrt(eps_i * eps_j)
//	E_ij     = 4 eps_ij ((sigma_ij/r)^12 - (sigma_ij/r)^6) + k_e q_i q_j / r
type Nonbonded struct {
	engine.ForceBase
	particles []NonbondedParticle
}

func NewNonbonded() *Nonbonded {
	return &Nonbonded{particles: make([]NonbondedParticle, 0)}
}

func (n *Nonbonded) Name() string                     { return "nonbonded" }
func (n *Nonbonded) NumParticles() int                { return len(n.particles) }
func (n *Nonbonded) Particle(i int) NonbondedParticle { return n.particles[i] }

// AddParticle appends parameters for the next system particle. Entries must
// be added in the same order as System.AddParticle.
func (n *Nonbonded) AddParticle(charge, sigma, epsilon float64) int {
	n.particles = append(n.particles, NonbondedParticle{Charge: charge, Sigma: sigma, Epsilon: epsilon})
	return len(n.particles) - 1
}

func (n *Nonbonded) CreateImpl() engine.ForceImpl {
	return &nonbondedImpl{owner: n}
}

type nonbondedImpl struct {
	owner     *Nonbonded
	particles []NonbondedParticle
}

func (impl *nonbondedImpl) Owner() engine.Force                      { return impl.owner }
func (impl *nonbondedImpl) UpdateContextState(*engine.Context) error { return nil }
func (impl *nonbondedImpl) DefaultParameters() map[string]float64    { return map[string]float64{} }

func (impl *nonbondedImpl) KernelNames() []string {
	return []string{compute.ReferenceName, compute.CPUName}
}

// Initialize snapshots the descriptor's parameters; later AddParticle calls
// do not reach a running context.
func (impl *nonbondedImpl) Initialize(c *engine.Context) error {
	if len(impl.owner.particles) != c.NumParticles() {
		return fmt.Errorf("%w: nonbonded has %d particles, system has %d",
			engine.ErrDimensionMismatch, len(impl.owner.particles), c.NumParticles())
	}
	impl.particles = make([]NonbondedParticle, len(impl.owner.particles))
	copy(impl.particles, impl.owner.particles)
	return nil
}

func (impl *nonbondedImpl) CalcForcesAndEnergy(c *engine.Context, includeForces, includeEnergy bool, groups int) (float64, error) {
	positions, forces, err := c.Vec3Buffers()
	if err == nil {
		return impl.calcVec(positions, forces, includeForces), nil
	}
	if !errors.Is(err, engine.ErrBackendLayout) {
		return 0, err
	}

	flatPos, flatForces, flatErr := c.FlatBuffers()
	if flatErr != nil {
		return 0, fmt.Errorf("%w (%v)", err, flatErr)
	}

	workers := 1
	if w, ok := c.Platform().(interface{ Workers() int }); ok {
		workers = w.Workers()
	}
	return impl.calcFlat(flatPos, flatForces, includeForces, workers), nil
}

// pair returns the energy of one pair and the scalar f such that the force
// on i is f * (x_i - x_j).
func (impl *nonbondedImpl) pair(i, j int, r2 float64) (energy, f float64) {
	pi, pj := impl.particles[i], impl.particles[j]

	eps := math.Sqrt(pi.Epsilon * pj.Epsilon)
	qq := CoulombConstant * pi.Charge * pj.Charge
	if eps == 0 && qq == 0 {
		return 0, 0
	}

	sig := 0.5 * (pi.Sigma + pj.Sigma)
	inv2 := 1 / r2
	sr2 := sig * sig * inv2
	sr6 := sr2 * sr2 * sr2
	sr12 := sr6 * sr6
	invR := math.Sqrt(inv2)

	energy = 4*eps*(sr12-sr6) + qq*invR
	f = 24*eps*(2*sr12-sr6)*inv2 + qq*invR*inv2
	return energy, f
}

func (impl *nonbondedImpl) calcVec(positions, forces []r3.Vec, includeForces bool) float64 {
	energy := 0.0
	for i := 0; i < len(positions); i++ {
		for j := i + 1; j < len(positions); j++ {
			d := r3.Sub(positions[i], positions[j])
			e, f := impl.pair(i, j, r3.Norm2(d))
			energy += e
			if includeForces && f != 0 {
				fij := r3.Scale(f, d)
				forces[i] = r3.Add(forces[i], fij)
				forces[j] = r3.Sub(forces[j], fij)
			}
		}
	}
	return energy
}

// calcFlat gives each chunk exclusive ownership of its particles' force
// entries, so every pair is visited twice and energies are halved.
func (impl *nonbondedImpl) calcFlat(positions, forces []float64, includeForces bool, workers int) float64 {
	n := len(positions) / 3
	partial := make([]float64, compute.Chunks(n, workers, minParallelPairs))

	compute.ParallelFor(n, workers, minParallelPairs, func(chunk, start, end int) {
		local := 0.0
		for i := start; i < end; i++ {
			xi, yi, zi := positions[3*i], positions[3*i+1], positions[3*i+2]
			var fx, fy, fz float64
			for j := 0; j < n; j++ {
				if i == j {
					continue
				}
				dx := xi - positions[3*j]
				dy := yi - positions[3*j+1]
				dz := zi - positions[3*j+2]
				e, f := impl.pair(i, j, dx*dx+dy*dy+dz*dz)
				local += e
				fx += f * dx
				fy += f * dy
				fz += f * dz
			}
			if includeForces {
				forces[3*i] += fx
				forces[3*i+1] += fy
				forces[3*i+2] += fz
			}
		}
		partial[chunk] = local
	})

	energy := 0.0
	for _, e := range partial {
		energy += e
	}
	return 0.5 * energy
}
