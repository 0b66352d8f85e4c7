package engine

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat/distuv"
)

// Boltzmann is the molar Boltzmann constant in kJ/(mol*K).
const Boltzmann = 0.00831445986

// Langevin is a leapfrog stochastic dynamics integrator coupling every
// particle to a heat bath at the given temperature.
//
//	v' = e^(-gamma*dt) v + (1 - e^(-gamma*dt))/gamma * F/m + sqrt(kT (1 - e^(-2 gamma dt)) / m) R
//	x' = x + v' dt
//
// With zero friction the update reduces to plain leapfrog Verlet.
type Langevin struct {
	binding
	temperature float64
	friction    float64
	dt          float64
	seed        uint64
	noise       distuv.Normal
}

// NewLangevin creates an integrator with temperature in kelvin, friction in
// 1/ps and step size in ps. The seed fixes the noise sequence.
func NewLangevin(temperature, friction, stepSize float64, seed uint64) *Langevin {
	return &Langevin{
		temperature: temperature,
		friction:    friction,
		dt:          stepSize,
		seed:        seed,
		noise: distuv.Normal{
			Mu:    0,
			Sigma: 1,
			Src:   rand.NewPCG(seed, seed^0x9e3779b97f4a7c15),
		},
	}
}

func (l *Langevin) StepSize() float64    { return l.dt }
func (l *Langevin) Temperature() float64 { return l.temperature }
func (l *Langevin) Friction() float64    { return l.friction }
func (l *Langevin) Seed() uint64         { return l.seed }

func (l *Langevin) Step(n int) error {
	c, err := l.context()
	if err != nil {
		return err
	}

	vscale := math.Exp(-l.dt * l.friction)
	fscale := l.dt
	if l.friction != 0 {
		fscale = (1 - vscale) / l.friction
	}
	kT := Boltzmann * l.temperature
	noisescale := math.Sqrt(kT * (1 - vscale*vscale))

	for s := 0; s < n; s++ {
		if _, err := c.calcForcesAndEnergy(true, false, AllGroups); err != nil {
			return c.stepError(err)
		}

		for i, m := range c.masses {
			if m == 0 {
				continue
			}
			r := r3.Vec{X: l.noise.Rand(), Y: l.noise.Rand(), Z: l.noise.Rand()}
			v := r3.Scale(vscale, c.velocities[i])
			v = r3.Add(v, r3.Scale(fscale/m, c.data.Force(i)))
			v = r3.Add(v, r3.Scale(noisescale/math.Sqrt(m), r))
			c.velocities[i] = v
			c.drift(i, l.dt)
		}

		if err := c.advance(l.dt); err != nil {
			return err
		}
	}

	return nil
}
