package sim

import (
	"errors"
	"fmt"

	"github.com/san-kum/mdsim/internal/engine"
)

// ErrInvalidConfig indicates a configuration that cannot produce a run.
var ErrInvalidConfig = errors.New("sim: invalid configuration")

// Config is the immutable description of a run. Units: kelvin, 1/ps, ps,
// nm, dalton, elementary charge.
type Config struct {
	Temperature    float64
	Friction       float64
	StepSize       float64
	ParticleCount  int
	InitialSpread  float64
	FrameSteps     int
	FrameCount     int
	Seed           uint64
	ParticleMass   float64
	ParticleCharge float64
}

// Derived holds quantities computed once from a Config.
type Derived struct {
	// ThermalEnergy is k_B*T in kJ/mol.
	ThermalEnergy  float64
	LJSigma        float64
	LJEpsilon      float64
	SpringConstant float64
}

func DefaultConfig() Config {
	return Config{
		Temperature:    300.0,
		Friction:       50.0,
		StepSize:       0.1,
		ParticleCount:  100,
		InitialSpread:  10.0,
		FrameSteps:     10000,
		FrameCount:     100,
		ParticleMass:   1000,
		ParticleCharge: 0,
	}
}

func (c Config) Validate() error {
	switch {
	case c.ParticleCount < 1:
		return fmt.Errorf("%w: particle count must be at least 1, got %d", ErrInvalidConfig, c.ParticleCount)
	case c.Temperature <= 0:
		return fmt.Errorf("%w: temperature must be positive, got %f", ErrInvalidConfig, c.Temperature)
	case c.Friction < 0:
		return fmt.Errorf("%w: friction must be non-negative, got %f", ErrInvalidConfig, c.Friction)
	case c.StepSize <= 0:
		return fmt.Errorf("%w: step size must be positive, got %f", ErrInvalidConfig, c.StepSize)
	case c.InitialSpread < 0:
		return fmt.Errorf("%w: initial spread must be non-negative, got %f", ErrInvalidConfig, c.InitialSpread)
	case c.FrameSteps < 1:
		return fmt.Errorf("%w: steps per frame must be at least 1, got %d", ErrInvalidConfig, c.FrameSteps)
	case c.FrameCount < 1:
		return fmt.Errorf("%w: frame count must be at least 1, got %d", ErrInvalidConfig, c.FrameCount)
	case c.ParticleMass < 0:
		return fmt.Errorf("%w: particle mass must be non-negative, got %f", ErrInvalidConfig, c.ParticleMass)
	}
	return nil
}

// Derive computes the thermal energy and default force constants. The
// spring constant places the thermal RMS displacement per axis of a
// harmonic well at InitialSpread.
func Derive(c Config) Derived {
	kT := engine.Boltzmann * c.Temperature
	d := Derived{
		ThermalEnergy: kT,
		LJSigma:       1.0,
		LJEpsilon:     2 * kT,
	}
	if c.InitialSpread > 0 {
		d.SpringConstant = kT / (c.InitialSpread * c.InitialSpread)
	}
	return d
}
