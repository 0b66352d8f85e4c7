package engine

import "gonum.org/v1/gonum/spatial/r3"

// Verlet is a leapfrog Verlet integrator. Velocities are kept at half steps.
type Verlet struct {
	binding
	dt float64
}

func NewVerlet(stepSize float64) *Verlet {
	return &Verlet{dt: stepSize}
}

func (v *Verlet) StepSize() float64 { return v.dt }

func (v *Verlet) Step(n int) error {
	c, err := v.context()
	if err != nil {
		return err
	}

	for s := 0; s < n; s++ {
		if _, err := c.calcForcesAndEnergy(true, false, AllGroups); err != nil {
			return c.stepError(err)
		}

		for i, m := range c.masses {
			if m == 0 {
				continue
			}
			c.velocities[i] = r3.Add(c.velocities[i], r3.Scale(v.dt/m, c.data.Force(i)))
			c.drift(i, v.dt)
		}

		if err := c.advance(v.dt); err != nil {
			return err
		}
	}

	return nil
}
