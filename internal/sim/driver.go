package sim

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"

	"github.com/san-kum/mdsim/internal/compute"
	"github.com/san-kum/mdsim/internal/engine"
	"github.com/san-kum/mdsim/internal/initcond"
	"github.com/san-kum/mdsim/internal/metrics"
	"github.com/san-kum/mdsim/internal/storage"
)

// ErrPhase indicates an operation invoked in the wrong driver phase.
var ErrPhase = errors.New("sim: operation not allowed in current phase")

// Phase is the driver lifecycle state.
type Phase int

const (
	Unbuilt Phase = iota
	Built
	Running
	Finished
)

func (p Phase) String() string {
	switch p {
	case Unbuilt:
		return "unbuilt"
	case Built:
		return "built"
	case Running:
		return "running"
	case Finished:
		return "finished"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// ForceFactory creates one force extension for the configured system. It
// runs during Build, after all particles were added.
type ForceFactory func(cfg Config, d Derived) (engine.Force, error)

// IntegratorFactory creates the integrator at Start. The seed is drawn from
// the driver's random source.
type IntegratorFactory func(cfg Config, d Derived, seed uint64) engine.Integrator

// Monitor observes energy at frame boundaries.
type Monitor interface {
	Observe(frame int, src engine.StateReader) (metrics.Sample, error)
}

// Exporter reads the final state once.
type Exporter interface {
	Export(src engine.StateReader) error
}

// Observer is notified after each frame sample is taken.
type Observer interface {
	OnFrame(s metrics.Sample)
}

type Option func(*Driver)

func WithForces(factories ...ForceFactory) Option {
	return func(d *Driver) { d.factories = append(d.factories, factories...) }
}

func WithIntegrator(f IntegratorFactory) Option {
	return func(d *Driver) { d.newIntegrator = f }
}

func WithPlatform(p engine.Platform) Option {
	return func(d *Driver) { d.platform = p }
}

func WithMonitor(m Monitor) Option {
	return func(d *Driver) { d.monitor = m }
}

func WithExporter(e Exporter) Option {
	return func(d *Driver) { d.exporter = e }
}

func WithObserver(o Observer) Option {
	return func(d *Driver) { d.observers = append(d.observers, o) }
}

// WithOutput sets where the default monitor and exporter write. Ignored for
// a monitor or exporter supplied explicitly.
func WithOutput(progress, positions io.Writer) Option {
	return func(d *Driver) {
		d.progressOut = progress
		d.positionsOut = positions
	}
}

// Langevin is the default IntegratorFactory.
func Langevin(cfg Config, _ Derived, seed uint64) engine.Integrator {
	return engine.NewLangevin(cfg.Temperature, cfg.Friction, cfg.StepSize, seed)
}

// Verlet ignores the thermostat settings.
func Verlet(cfg Config, _ Derived, _ uint64) engine.Integrator {
	return engine.NewVerlet(cfg.StepSize)
}

// Driver owns the particle system, integrator and context of one run and
// walks them through Unbuilt, Built, Running and Finished. It is not safe
// for concurrent use.
type Driver struct {
	cfg     Config
	derived Derived
	phase   Phase
	frame   int
	err     error

	src       rand.Source
	generator *initcond.Generator

	factories     []ForceFactory
	newIntegrator IntegratorFactory
	platform      engine.Platform

	system     *engine.System
	forces     []engine.Force
	integrator engine.Integrator
	context    *engine.Context

	monitor      Monitor
	exporter     Exporter
	observers    []Observer
	progressOut  io.Writer
	positionsOut io.Writer
}

// New validates cfg and captures it. The random source is seeded from
// cfg.Seed and lives as long as the driver.
func New(cfg Config, opts ...Option) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	d := &Driver{
		cfg:           cfg,
		derived:       Derive(cfg),
		phase:         Unbuilt,
		src:           rand.NewPCG(cfg.Seed, cfg.Seed^0xda3e39cb94b95bdb),
		newIntegrator: Langevin,
		progressOut:   os.Stderr,
		positionsOut:  os.Stdout,
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.platform == nil {
		d.platform = compute.NewReference()
	}
	if d.monitor == nil {
		d.monitor = metrics.NewProgress(d.progressOut, cfg.ParticleCount, d.derived.ThermalEnergy)
	}
	if d.exporter == nil {
		d.exporter = storage.NewPositionExporter(d.positionsOut, cfg.ParticleCount)
	}
	d.generator = initcond.New(cfg.InitialSpread, d.src)

	return d, nil
}

func (d *Driver) Config() Config                { return d.cfg }
func (d *Driver) Derived() Derived              { return d.derived }
func (d *Driver) Phase() Phase                  { return d.phase }
func (d *Driver) Frame() int                    { return d.frame }
func (d *Driver) System() *engine.System        { return d.system }
func (d *Driver) Forces() []engine.Force        { return d.forces }
func (d *Driver) Context() *engine.Context      { return d.context }
func (d *Driver) Integrator() engine.Integrator { return d.integrator }
func (d *Driver) Platform() engine.Platform     { return d.platform }

// Build populates the particle system and registers every force extension.
func (d *Driver) Build() error {
	if err := d.expect(Unbuilt); err != nil {
		return err
	}

	system := engine.NewSystem()
	for i := 0; i < d.cfg.ParticleCount; i++ {
		system.AddParticle(d.cfg.ParticleMass)
	}

	forces := make([]engine.Force, 0, len(d.factories))
	for _, factory := range d.factories {
		f, err := factory(d.cfg, d.derived)
		if err != nil {
			return d.abort(fmt.Errorf("build: %w", err))
		}
		system.AddForce(f)
		forces = append(forces, f)
	}

	d.system = system
	d.forces = forces
	d.phase = Built
	return nil
}

// Start creates the integrator and context and installs initial positions.
func (d *Driver) Start() error {
	if err := d.expect(Built); err != nil {
		return err
	}

	integrator := d.newIntegrator(d.cfg, d.derived, d.src.Uint64())
	ctx, err := engine.NewContext(d.system, integrator, d.platform)
	if err != nil {
		return d.abort(fmt.Errorf("start: %w", err))
	}

	positions := d.generator.Positions(d.cfg.ParticleCount)
	if err := ctx.SetPositions(positions); err != nil {
		return d.abort(fmt.Errorf("start: %w", err))
	}

	d.integrator = integrator
	d.context = ctx
	d.phase = Running
	return nil
}

// Step runs one frame: progress is reported first, then the integrator
// advances FrameSteps steps. After the last frame the exporter runs and the
// driver is Finished.
func (d *Driver) Step() error {
	if err := d.expect(Running); err != nil {
		return err
	}

	sample, err := d.monitor.Observe(d.frame, d.context)
	if err != nil {
		return d.abort(fmt.Errorf("frame %d: %w", d.frame, err))
	}
	for _, o := range d.observers {
		o.OnFrame(sample)
	}

	if err := d.integrator.Step(d.cfg.FrameSteps); err != nil {
		return d.abort(fmt.Errorf("frame %d: %w", d.frame, err))
	}
	d.frame++

	if d.frame == d.cfg.FrameCount {
		if err := d.exporter.Export(d.context); err != nil {
			return d.abort(fmt.Errorf("export: %w", err))
		}
		d.phase = Finished
	}
	return nil
}

// Run drives the remaining phases to completion.
func (d *Driver) Run() error {
	if d.phase == Unbuilt {
		if err := d.Build(); err != nil {
			return err
		}
	}
	if d.phase == Built {
		if err := d.Start(); err != nil {
			return err
		}
	}
	for d.phase == Running {
		if err := d.Step(); err != nil {
			return err
		}
	}
	return d.expect(Finished)
}

// Err returns the failure that aborted the run, if any.
func (d *Driver) Err() error { return d.err }

func (d *Driver) expect(p Phase) error {
	if d.err != nil {
		return fmt.Errorf("run aborted: %w", d.err)
	}
	if d.phase != p {
		return fmt.Errorf("%w: want %s, driver is %s", ErrPhase, p, d.phase)
	}
	return nil
}

func (d *Driver) abort(err error) error {
	d.err = err
	return err
}
