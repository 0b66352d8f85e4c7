package engine

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// DataType selects what a State snapshot carries.
type DataType int

const (
	Positions DataType = 1 << iota
	Velocities
	Forces
	Energy
	Parameters
)

// StateReader is the read side of a Context.
type StateReader interface {
	GetState(types DataType) (State, error)
}

// State is an immutable snapshot taken at the instant it was requested.
type State struct {
	types      DataType
	time       float64
	steps      int
	positions  []r3.Vec
	velocities []r3.Vec
	forces     []r3.Vec
	kinetic    float64
	potential  float64
	params     map[string]float64
}

// GetState snapshots the requested data using every force group.
func (c *Context) GetState(types DataType) (State, error) {
	return c.GetGroupState(types, AllGroups)
}

// GetGroupState snapshots the requested data. Forces and potential energy
// only include forces whose group bit is set in groups.
func (c *Context) GetGroupState(types DataType, groups int) (State, error) {
	n := c.NumParticles()
	s := State{types: types, time: c.time, steps: c.steps}

	if types&Positions != 0 {
		s.positions = make([]r3.Vec, n)
		for i := range s.positions {
			s.positions[i] = c.data.Position(i)
		}
	}
	if types&Velocities != 0 {
		s.velocities = make([]r3.Vec, n)
		copy(s.velocities, c.velocities)
	}
	if types&(Forces|Energy) != 0 {
		pe, err := c.calcForcesAndEnergy(types&Forces != 0, types&Energy != 0, groups)
		if err != nil {
			return State{}, err
		}
		if types&Forces != 0 {
			s.forces = make([]r3.Vec, n)
			for i := range s.forces {
				s.forces[i] = c.data.Force(i)
			}
		}
		if types&Energy != 0 {
			s.potential = pe
			s.kinetic = c.kineticEnergy()
		}
	}
	if types&Parameters != 0 {
		s.params = make(map[string]float64, len(c.params))
		for k, v := range c.params {
			s.params[k] = v
		}
	}

	return s, nil
}

func (s State) Time() float64       { return s.time }
func (s State) StepCount() int      { return s.steps }
func (s State) DataTypes() DataType { return s.types }

func (s State) Positions() ([]r3.Vec, error) {
	if s.types&Positions == 0 {
		return nil, fmt.Errorf("%w: positions", ErrNotRequested)
	}
	return s.positions, nil
}

func (s State) Velocities() ([]r3.Vec, error) {
	if s.types&Velocities == 0 {
		return nil, fmt.Errorf("%w: velocities", ErrNotRequested)
	}
	return s.velocities, nil
}

func (s State) Forces() ([]r3.Vec, error) {
	if s.types&Forces == 0 {
		return nil, fmt.Errorf("%w: forces", ErrNotRequested)
	}
	return s.forces, nil
}

// KineticEnergy is computed from the stored leapfrog velocities, which lag
// positions by half a step. It is not time-centred, so with little friction
// it can differ slightly from an on-step estimate.
func (s State) KineticEnergy() (float64, error) {
	if s.types&Energy == 0 {
		return 0, fmt.Errorf("%w: energy", ErrNotRequested)
	}
	return s.kinetic, nil
}

func (s State) PotentialEnergy() (float64, error) {
	if s.types&Energy == 0 {
		return 0, fmt.Errorf("%w: energy", ErrNotRequested)
	}
	return s.potential, nil
}

func (s State) Parameters() (map[string]float64, error) {
	if s.types&Parameters == 0 {
		return nil, fmt.Errorf("%w: parameters", ErrNotRequested)
	}
	return s.params, nil
}
