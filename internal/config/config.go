package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/mdsim/internal/experiment"
	"github.com/san-kum/mdsim/internal/sim"
)

const (
	DefaultScenario    = "droplet"
	DefaultIntegrator  = "langevin"
	DefaultPlatform    = "reference"
	DefaultTemperature = 300.0
	DefaultFriction    = 50.0
	DefaultDt          = 0.1
	DefaultParticles   = 100
	DefaultSpread      = 10.0
	DefaultMass        = 1000.0
	DefaultFrameSteps  = 10000
	DefaultFrames      = 100
)

// Config is the file and environment form of a run. Zero-valued names fall
// back to the scenario's own choice.
type Config struct {
	Scenario    string   `yaml:"scenario"              env:"MDSIM_SCENARIO"`
	Forces      []string `yaml:"forces,omitempty"      env:"MDSIM_FORCES"      envSeparator:","`
	Integrator  string   `yaml:"integrator"            env:"MDSIM_INTEGRATOR"`
	Platform    string   `yaml:"platform"              env:"MDSIM_PLATFORM"`
	Seed        uint64   `yaml:"seed"                  env:"MDSIM_SEED"`
	Temperature float64  `yaml:"temperature"           env:"MDSIM_TEMPERATURE"`
	Friction    float64  `yaml:"friction"              env:"MDSIM_FRICTION"`
	Dt          float64  `yaml:"dt"                    env:"MDSIM_DT"`
	Particles   int      `yaml:"particles"             env:"MDSIM_PARTICLES"`
	Spread      float64  `yaml:"spread"                env:"MDSIM_SPREAD"`
	Mass        float64  `yaml:"mass"                  env:"MDSIM_MASS"`
	Charge      float64  `yaml:"charge"                env:"MDSIM_CHARGE"`
	FrameSteps  int      `yaml:"frame_steps"           env:"MDSIM_FRAME_STEPS"`
	Frames      int      `yaml:"frames"                env:"MDSIM_FRAMES"`
}

func DefaultConfig() *Config {
	return &Config{
		Scenario:    DefaultScenario,
		Integrator:  DefaultIntegrator,
		Platform:    DefaultPlatform,
		Temperature: DefaultTemperature,
		Friction:    DefaultFriction,
		Dt:          DefaultDt,
		Particles:   DefaultParticles,
		Spread:      DefaultSpread,
		Mass:        DefaultMass,
		FrameSteps:  DefaultFrameSteps,
		Frames:      DefaultFrames,
	}
}

func Load(path string) (*Config, error) {
	return LoadOver(path, DefaultConfig())
}

// LoadOver reads path on top of a copy of base. Fields missing from the
// file keep the base value; base itself is not modified.
func LoadOver(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := base.clone()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ApplyEnv overrides fields from MDSIM_* environment variables. Unset
// variables leave the current value in place.
func ApplyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// SimConfig converts to the driver's immutable configuration.
func (c *Config) SimConfig() sim.Config {
	return sim.Config{
		Temperature:    c.Temperature,
		Friction:       c.Friction,
		StepSize:       c.Dt,
		ParticleCount:  c.Particles,
		InitialSpread:  c.Spread,
		FrameSteps:     c.FrameSteps,
		FrameCount:     c.Frames,
		Seed:           c.Seed,
		ParticleMass:   c.Mass,
		ParticleCharge: c.Charge,
	}
}

// ToScenario resolves the named scenario and applies the overrides.
func (c *Config) ToScenario() (experiment.Scenario, error) {
	name := c.Scenario
	if name == "" {
		name = DefaultScenario
	}
	s, err := experiment.Lookup(name)
	if err != nil {
		return experiment.Scenario{}, err
	}

	if len(c.Forces) > 0 {
		s.Forces = append([]string(nil), c.Forces...)
	}
	if c.Integrator != "" {
		s.Integrator = c.Integrator
	}
	if c.Platform != "" {
		s.Platform = c.Platform
	}
	s.Config = c.SimConfig()

	if err := s.Config.Validate(); err != nil {
		return experiment.Scenario{}, err
	}
	return s, nil
}

func (c *Config) clone() *Config {
	out := *c
	out.Forces = append([]string(nil), c.Forces...)
	return &out
}
