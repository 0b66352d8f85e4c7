package experiment

import (
	"fmt"
	"io"
	"slices"
	"sort"

	"github.com/san-kum/mdsim/internal/compute"
	"github.com/san-kum/mdsim/internal/engine"
	"github.com/san-kum/mdsim/internal/forces"
	"github.com/san-kum/mdsim/internal/metrics"
	"github.com/san-kum/mdsim/internal/sim"
	"github.com/san-kum/mdsim/internal/storage"
)

// Scenario names the pieces of a run. The registry resolves the names when
// the driver is created.
type Scenario struct {
	Name       string
	Forces     []string
	Integrator string
	Platform   string
	Config     sim.Config
}

// Droplet is a Lennard-Jones cluster held together by the harmonic well,
// thermostatted by Langevin dynamics.
func Droplet() Scenario {
	return Scenario{
		Name:       "droplet",
		Forces:     []string{"nonbonded", "harmonic"},
		Integrator: "langevin",
		Platform:   compute.ReferenceName,
		Config:     sim.DefaultConfig(),
	}
}

// Harmonic runs non-interacting particles in the harmonic well only.
func Harmonic() Scenario {
	return Scenario{
		Name:       "harmonic",
		Forces:     []string{"harmonic"},
		Integrator: "langevin",
		Platform:   compute.ReferenceName,
		Config:     sim.DefaultConfig(),
	}
}

var scenarios = map[string]func() Scenario{
	"droplet":  Droplet,
	"harmonic": Harmonic,
}

// Lookup returns a fresh copy of a named scenario.
func Lookup(name string) (Scenario, error) {
	fn, ok := scenarios[name]
	if !ok {
		return Scenario{}, fmt.Errorf("unknown scenario: %s (available: %v)", name, ListScenarios())
	}
	return fn(), nil
}

func ListScenarios() []string {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Options resolves the scenario's force, integrator and platform names.
func (r *Registry) Options(s Scenario) ([]sim.Option, error) {
	factories := make([]sim.ForceFactory, 0, len(s.Forces))
	for _, name := range s.Forces {
		fn, err := r.GetForce(name)
		if err != nil {
			return nil, err
		}
		factories = append(factories, fn)
	}

	integrator, err := r.GetIntegrator(s.Integrator)
	if err != nil {
		return nil, err
	}

	platform, err := r.GetPlatform(s.Platform)
	if err != nil {
		return nil, err
	}
	supported, err := r.Platforms(s)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(supported, s.Platform) {
		return nil, fmt.Errorf("%w: %s (scenario runs on %v)", engine.ErrKernelUnavailable, s.Platform, supported)
	}

	return []sim.Option{
		sim.WithForces(factories...),
		sim.WithIntegrator(integrator),
		sim.WithPlatform(platform),
	}, nil
}

// NewDriver creates an unbuilt driver for the scenario. Extra options are
// applied after the scenario's own.
func (r *Registry) NewDriver(s Scenario, opts ...sim.Option) (*sim.Driver, error) {
	base, err := r.Options(s)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	return sim.New(s.Config, append(base, opts...)...)
}

// Run is a scenario wired to a progress monitor and position exporter that
// are kept so the results can be collected once the driver finishes.
type Run struct {
	Scenario Scenario
	Driver   *sim.Driver
	Progress *metrics.Progress
	Exporter *storage.PositionExporter
}

// NewRun creates the driver for s with progress lines going to progress
// and the final positions to positions.
func (r *Registry) NewRun(s Scenario, progress, positions io.Writer, opts ...sim.Option) (*Run, error) {
	run := &Run{
		Scenario: s,
		Progress: metrics.NewProgress(progress, s.Config.ParticleCount, sim.Derive(s.Config).ThermalEnergy),
		Exporter: storage.NewPositionExporter(positions, s.Config.ParticleCount),
	}
	opts = append([]sim.Option{sim.WithMonitor(run.Progress), sim.WithExporter(run.Exporter)}, opts...)

	d, err := r.NewDriver(s, opts...)
	if err != nil {
		return nil, err
	}
	run.Driver = d
	return run, nil
}

// Record collects the run for persistence. Positions are empty until the
// driver has finished.
func (r *Run) Record() *storage.Record {
	samples := r.Progress.Samples()
	cfg := r.Scenario.Config
	return &storage.Record{
		Meta: storage.RunMetadata{
			Scenario:    r.Scenario.Name,
			Seed:        cfg.Seed,
			Particles:   cfg.ParticleCount,
			Temperature: cfg.Temperature,
			Friction:    cfg.Friction,
			StepSize:    cfg.StepSize,
			FrameSteps:  cfg.FrameSteps,
			FrameCount:  cfg.FrameCount,
			Integrator:  r.Scenario.Integrator,
			Platform:    r.Scenario.Platform,
			Forces:      append([]string(nil), r.Scenario.Forces...),
			Metrics:     metrics.Summarize(samples).Map(),
		},
		Frames:    samples,
		Positions: r.Exporter.Positions(),
	}
}

// SmokeConfig is a single massive particle at the origin.
func SmokeConfig() sim.Config {
	cfg := sim.DefaultConfig()
	cfg.ParticleCount = 1
	cfg.ParticleMass = 1
	cfg.ParticleCharge = 0
	cfg.InitialSpread = 0
	cfg.StepSize = 1
	cfg.FrameSteps = 1
	cfg.FrameCount = 1
	return cfg
}

// Smoke builds a one-particle Lennard-Jones system with sigma = epsilon = 1
// on the reference platform, checks that the context reports exactly one
// position and writes "OK" to w.
func Smoke(w io.Writer) error {
	unit := func(cfg sim.Config, _ sim.Derived) (engine.Force, error) {
		nb := forces.NewNonbonded()
		nb.AddParticle(cfg.ParticleCharge, 1, 1)
		return nb, nil
	}

	d, err := sim.New(SmokeConfig(),
		sim.WithForces(unit),
		sim.WithIntegrator(sim.Verlet),
		sim.WithPlatform(compute.NewReference()),
		sim.WithOutput(io.Discard, io.Discard),
	)
	if err != nil {
		return err
	}
	if err := d.Build(); err != nil {
		return err
	}
	if err := d.Start(); err != nil {
		return err
	}

	state, err := d.Context().GetState(engine.Positions)
	if err != nil {
		return err
	}
	positions, err := state.Positions()
	if err != nil {
		return err
	}
	if len(positions) != 1 {
		return fmt.Errorf("%w: smoke system reports %d positions, want 1", engine.ErrInvariant, len(positions))
	}

	_, err = fmt.Fprintln(w, "OK")
	return err
}
