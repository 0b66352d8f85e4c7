package sim_test

import (
	"bytes"
	"errors"
	"io"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/mdsim/internal/compute"
	"github.com/san-kum/mdsim/internal/engine"
	"github.com/san-kum/mdsim/internal/forces"
	"github.com/san-kum/mdsim/internal/metrics"
	"github.com/san-kum/mdsim/internal/sim"
)

type countingIntegrator struct {
	engine.Integrator
	calls []int
}

func (c *countingIntegrator) Step(n int) error {
	c.calls = append(c.calls, n)
	return c.Integrator.Step(n)
}

type recordingMonitor struct {
	progress *metrics.Progress
	frames   []int
}

func (m *recordingMonitor) Observe(frame int, src engine.StateReader) (metrics.Sample, error) {
	m.frames = append(m.frames, frame)
	return m.progress.Observe(frame, src)
}

type sampleSink struct{ samples []metrics.Sample }

func (s *sampleSink) OnFrame(sample metrics.Sample) { s.samples = append(s.samples, sample) }

func harmonicWell(_ sim.Config, d sim.Derived) (engine.Force, error) {
	return forces.NewHarmonic(d.SpringConstant), nil
}

func smallConfig() sim.Config {
	cfg := sim.DefaultConfig()
	cfg.ParticleCount = 5
	cfg.InitialSpread = 1.0
	cfg.StepSize = 0.01
	cfg.FrameSteps = 3
	cfg.FrameCount = 4
	cfg.Seed = 7
	return cfg
}

var _ = Describe("Driver", func() {
	var (
		cfg       sim.Config
		progress  *bytes.Buffer
		positions *bytes.Buffer
	)

	BeforeEach(func() {
		cfg = smallConfig()
		progress = &bytes.Buffer{}
		positions = &bytes.Buffer{}
	})

	newDriver := func(opts ...sim.Option) *sim.Driver {
		opts = append([]sim.Option{
			sim.WithForces(harmonicWell),
			sim.WithOutput(progress, positions),
		}, opts...)
		d, err := sim.New(cfg, opts...)
		Expect(err).NotTo(HaveOccurred())
		return d
	}

	Describe("New", func() {
		It("rejects an empty system", func() {
			cfg.ParticleCount = 0
			_, err := sim.New(cfg)
			Expect(err).To(MatchError(sim.ErrInvalidConfig))
		})

		It("rejects a non-positive step size", func() {
			cfg.StepSize = 0
			_, err := sim.New(cfg)
			Expect(err).To(MatchError(sim.ErrInvalidConfig))
		})

		It("derives the thermal energy from the temperature", func() {
			d := newDriver()
			Expect(d.Derived().ThermalEnergy).To(BeNumerically("~", engine.Boltzmann*cfg.Temperature, 1e-12))
			Expect(d.Derived().LJEpsilon).To(BeNumerically("~", 2*d.Derived().ThermalEnergy, 1e-12))
			Expect(d.Phase()).To(Equal(sim.Unbuilt))
		})
	})

	Describe("phases", func() {
		It("refuses to start before the system is built", func() {
			d := newDriver()
			Expect(d.Start()).To(MatchError(sim.ErrPhase))
			Expect(d.Step()).To(MatchError(sim.ErrPhase))
		})

		It("adds one particle per configured count and registers the forces", func() {
			d := newDriver()
			Expect(d.Build()).To(Succeed())
			Expect(d.Phase()).To(Equal(sim.Built))
			Expect(d.System().NumParticles()).To(Equal(cfg.ParticleCount))
			Expect(d.System().NumForces()).To(Equal(1))
			Expect(d.Build()).To(MatchError(sim.ErrPhase))
		})

		It("installs initial positions on start", func() {
			d := newDriver()
			Expect(d.Build()).To(Succeed())
			Expect(d.Start()).To(Succeed())
			Expect(d.Phase()).To(Equal(sim.Running))

			state, err := d.Context().GetState(engine.Positions)
			Expect(err).NotTo(HaveOccurred())
			got, err := state.Positions()
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(cfg.ParticleCount))
			Expect(state.StepCount()).To(Equal(0))
		})

		It("finishes after the last frame and rejects further steps", func() {
			d := newDriver()
			Expect(d.Run()).To(Succeed())
			Expect(d.Phase()).To(Equal(sim.Finished))
			Expect(d.Step()).To(MatchError(sim.ErrPhase))
			Expect(d.Run()).To(MatchError(sim.ErrPhase))
		})
	})

	Describe("frame loop", func() {
		It("runs FrameSteps steps per frame for FrameCount frames", func() {
			var counter *countingIntegrator
			d := newDriver(sim.WithIntegrator(func(c sim.Config, dv sim.Derived, seed uint64) engine.Integrator {
				counter = &countingIntegrator{Integrator: sim.Langevin(c, dv, seed)}
				return counter
			}))
			Expect(d.Run()).To(Succeed())

			Expect(counter.calls).To(HaveLen(cfg.FrameCount))
			for _, n := range counter.calls {
				Expect(n).To(Equal(cfg.FrameSteps))
			}
			Expect(d.Context().StepCount()).To(Equal(cfg.FrameSteps * cfg.FrameCount))
			Expect(d.Context().Time()).To(BeNumerically("~", float64(cfg.FrameSteps*cfg.FrameCount)*cfg.StepSize, 1e-9))
		})

		It("reports strictly increasing frame indices starting at zero", func() {
			monitor := &recordingMonitor{progress: metrics.NewProgress(io.Discard, cfg.ParticleCount, 1)}
			d := newDriver(sim.WithMonitor(monitor))
			Expect(d.Run()).To(Succeed())
			Expect(monitor.frames).To(Equal([]int{0, 1, 2, 3}))
		})

		It("writes one progress line per frame and one position line per particle", func() {
			d := newDriver()
			Expect(d.Run()).To(Succeed())

			Expect(strings.Count(progress.String(), "\n")).To(Equal(cfg.FrameCount))
			Expect(progress.String()).To(HavePrefix("0\t"))

			lines := strings.Split(strings.TrimSuffix(positions.String(), "\n"), "\n")
			Expect(lines).To(HaveLen(cfg.ParticleCount))
			for _, line := range lines {
				Expect(strings.Split(line, "\t")).To(HaveLen(3))
			}
		})

		It("notifies observers with every sample", func() {
			sink := &sampleSink{}
			d := newDriver(sim.WithObserver(sink))
			Expect(d.Run()).To(Succeed())
			Expect(sink.samples).To(HaveLen(cfg.FrameCount))
			Expect(sink.samples[0].Frame).To(Equal(0))
			Expect(sink.samples[0].Time).To(BeNumerically("==", 0))
		})

		It("is reproducible for a fixed seed", func() {
			Expect(newDriver().Run()).To(Succeed())
			first := positions.String()

			positions.Reset()
			Expect(newDriver().Run()).To(Succeed())
			Expect(positions.String()).To(Equal(first))

			positions.Reset()
			cfg.Seed = 8
			Expect(newDriver().Run()).To(Succeed())
			Expect(positions.String()).NotTo(Equal(first))
		})

		It("handles a single particle", func() {
			cfg.ParticleCount = 1
			cfg.FrameCount = 1
			d := newDriver()
			Expect(d.Run()).To(Succeed())
			Expect(strings.Count(positions.String(), "\n")).To(Equal(1))
		})
	})

	Describe("failures", func() {
		It("fails to start when a force has no kernel for the platform", func() {
			d := newDriver(sim.WithPlatform(compute.NewCPU()))
			Expect(d.Build()).To(Succeed())

			err := d.Start()
			Expect(err).To(MatchError(engine.ErrKernelUnavailable))
			Expect(d.Phase()).To(Equal(sim.Built))
			Expect(d.Err()).To(HaveOccurred())

			Expect(d.Start()).To(MatchError(engine.ErrKernelUnavailable))
		})

		It("surfaces force factory errors from build", func() {
			boom := errors.New("boom")
			d, err := sim.New(cfg, sim.WithOutput(progress, positions), sim.WithForces(
				func(sim.Config, sim.Derived) (engine.Force, error) { return nil, boom },
			))
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Build()).To(MatchError(boom))
			Expect(d.Phase()).To(Equal(sim.Unbuilt))
		})

		It("aborts on a non-finite position", func() {
			d, err := sim.New(cfg, sim.WithOutput(progress, positions), sim.WithForces(
				func(sim.Config, sim.Derived) (engine.Force, error) { return forces.NewHarmonic(1e308), nil },
			))
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Build()).To(Succeed())
			Expect(d.Start()).To(Succeed())

			var stepErr error
			for i := 0; i < cfg.FrameCount && stepErr == nil; i++ {
				stepErr = d.Step()
			}
			Expect(stepErr).To(MatchError(engine.ErrNonFinite))
			Expect(d.Phase()).To(Equal(sim.Running))
			Expect(d.Step()).To(HaveOccurred())
		})
	})
})

var _ = Describe("Phase", func() {
	It("names every phase", func() {
		Expect(sim.Unbuilt.String()).To(Equal("unbuilt"))
		Expect(sim.Finished.String()).To(Equal("finished"))
		Expect(sim.Phase(9).String()).To(Equal("phase(9)"))
	})
})
