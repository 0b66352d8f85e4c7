package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/mdsim/internal/config"
	"github.com/san-kum/mdsim/internal/experiment"
	"github.com/san-kum/mdsim/internal/metrics"
	"github.com/san-kum/mdsim/internal/sim"
	"github.com/san-kum/mdsim/internal/storage"
	"github.com/san-kum/mdsim/internal/viz"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
)

var (
	dataDir    string
	storeKind  string
	configFile string
	preset     string
	save       bool
	svgOut     string
	svgEnergy  bool
	themeName  string
	writeCfg   string

	seed        uint64
	temperature float64
	friction    float64
	dt          float64
	particles   int
	spread      float64
	frameSteps  int
	frames      int
	integrator  string
	platform    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "mdsim",
		Short:         "molecular dynamics with custom force extensions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".mdsim", "data directory")
	rootCmd.PersistentFlags().StringVar(&storeKind, "store", storage.KindFile, "run store (file, sqlite)")

	runCmd := &cobra.Command{
		Use:   "run [scenario]",
		Short: "run a scenario; positions go to stdout, progress to stderr",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addRunFlags(runCmd)
	runCmd.Flags().BoolVar(&save, "save", false, "persist the run in the data directory")
	runCmd.Flags().StringVar(&writeCfg, "write-config", "", "write the resolved configuration to a yaml file")

	liveCmd := &cobra.Command{
		Use:   "live [scenario]",
		Short: "run a scenario with live visualization",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addRunFlags(liveCmd)
	liveCmd.Flags().StringVar(&themeName, "theme", "cyberpunk", "color theme (cyberpunk, retro, ocean)")

	smokeCmd := &cobra.Command{
		Use:   "smoke",
		Short: "build a one-particle system and check the engine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return experiment.Smoke(os.Stdout)
		},
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [scenario]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot energy curves of a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a saved run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	renderCmd := &cobra.Command{
		Use:   "render [run_id]",
		Short: "render final positions or energy curves of a saved run as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  renderRun,
	}
	renderCmd.Flags().StringVarP(&svgOut, "out", "o", "", "output file (default stdout)")
	renderCmd.Flags().BoolVar(&svgEnergy, "energy", false, "render energy curves instead of positions")

	rootCmd.AddCommand(runCmd, liveCmd, smokeCmd, presetsCmd, listCmd, plotCmd, exportCmd, renderCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed")
	cmd.Flags().Float64Var(&temperature, "temperature", config.DefaultTemperature, "temperature (K)")
	cmd.Flags().Float64Var(&friction, "friction", config.DefaultFriction, "friction (1/ps)")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "step size (ps)")
	cmd.Flags().IntVar(&particles, "particles", config.DefaultParticles, "number of particles")
	cmd.Flags().Float64Var(&spread, "spread", config.DefaultSpread, "initial position spread (nm)")
	cmd.Flags().IntVar(&frameSteps, "frame-steps", config.DefaultFrameSteps, "integration steps per frame")
	cmd.Flags().IntVar(&frames, "frames", config.DefaultFrames, "number of frames")
	cmd.Flags().StringVar(&integrator, "integrator", "", "integrator (langevin, verlet)")
	cmd.Flags().StringVar(&platform, "platform", "", "compute platform (reference, cpu); see 'mdsim presets' for what each scenario supports")
}

// resolveConfig layers defaults, preset, config file, environment and
// explicitly set flags, in that order.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	name := config.DefaultScenario
	if len(args) > 0 {
		name = args[0]
	}

	cfg := config.DefaultConfig()
	cfg.Scenario = name
	if _, err := experiment.Lookup(name); err != nil {
		return nil, err
	}

	if preset != "" {
		p := config.GetPreset(name, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(name))
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.LoadOver(configFile, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		if len(args) > 0 {
			cfg.Scenario = name
		}
	}

	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("temperature") {
		cfg.Temperature = temperature
	}
	if flags.Changed("friction") {
		cfg.Friction = friction
	}
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("particles") {
		cfg.Particles = particles
	}
	if flags.Changed("spread") {
		cfg.Spread = spread
	}
	if flags.Changed("frame-steps") {
		cfg.FrameSteps = frameSteps
	}
	if flags.Changed("frames") {
		cfg.Frames = frames
	}
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("platform") {
		cfg.Platform = platform
	}

	return cfg, nil
}

func openStore(ctx context.Context) (storage.RunStore, error) {
	path := dataDir
	if storeKind == storage.KindSQLite {
		path = filepath.Join(dataDir, "runs.db")
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, err
		}
	}
	return storage.Open(ctx, storeKind, path)
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	s, err := cfg.ToScenario()
	if err != nil {
		return err
	}
	if writeCfg != "" {
		if err := config.Save(writeCfg, cfg); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	run, err := experiment.NewRegistry().NewRun(s, os.Stderr, os.Stdout)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "running %s simulation...\n", s.Name)
	start := time.Now()

	if err := run.Driver.Run(); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "completed in %v\n", time.Since(start))

	if !save {
		return nil
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	runID, err := st.Save(ctx, run.Record())
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "run id: %s\n", runID)
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	s, err := cfg.ToScenario()
	if err != nil {
		return err
	}

	latest := &viz.Latest{}
	d, err := experiment.NewRegistry().NewDriver(s,
		sim.WithObserver(latest),
		sim.WithOutput(io.Discard, io.Discard),
	)
	if err != nil {
		return err
	}
	return viz.Run(d, latest, s.Name, viz.GetTheme(themeName))
}

func listPresets(cmd *cobra.Command, args []string) error {
	scenarios := experiment.ListScenarios()
	if len(args) > 0 {
		scenarios = args
	}

	reg := experiment.NewRegistry()
	for _, name := range scenarios {
		s, err := experiment.Lookup(name)
		if err != nil {
			return err
		}
		platforms, err := reg.Platforms(s)
		if err != nil {
			return err
		}

		presets := config.ListPresets(name)
		if len(presets) == 0 {
			fmt.Printf("no presets for scenario: %s (platforms: %s)\n", name, strings.Join(platforms, ", "))
			continue
		}
		fmt.Printf("presets for %s (platforms: %s):\n", name, strings.Join(platforms, ", "))
		for _, p := range presets {
			fmt.Printf("  %s\n", p)
		}
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.List(ctx)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENARIO\tTIME\tN\tT\tDT\tFRAMES\tINTEG\tPLATFORM")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.1fK\t%.4fps\t%dx%d\t%s\t%s\n",
			run.ID,
			run.Scenario,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Particles,
			run.Temperature,
			run.StepSize,
			run.FrameCount,
			run.FrameSteps,
			run.Integrator,
			run.Platform,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := st.Load(ctx, args[0])
	if err != nil {
		return err
	}
	if len(rec.Frames) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", rec.Meta.ID)
	fmt.Printf("scenario: %s\n", rec.Meta.Scenario)
	fmt.Printf("frames: %d\n\n", len(rec.Frames))

	series := []struct {
		caption string
		data    []float64
	}{
		{"kinetic energy (KE/N/kT)", metrics.Kinetic(rec.Frames)},
		{"potential energy (PE/N/kT)", metrics.Potential(rec.Frames)},
	}
	for _, s := range series {
		graph := asciigraph.Plot(s.data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("%s  min %s  max %s", s.caption,
				metrics.Format(floats.Min(s.data)), metrics.Format(floats.Max(s.data)))),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := st.Load(ctx, args[0])
	if err != nil {
		return err
	}
	return storage.ExportJSON(os.Stdout, rec)
}

func renderRun(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := st.Load(ctx, args[0])
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if svgOut != "" {
		f, err := os.Create(svgOut)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	if svgEnergy {
		series := [][]float64{metrics.Kinetic(rec.Frames), metrics.Potential(rec.Frames)}
		return viz.WriteSeriesSVG(w, series, 800, 400, []string{"#ff00ff", "#00ffff"})
	}

	if len(rec.Positions) == 0 {
		return fmt.Errorf("run %s has no positions", rec.Meta.ID)
	}
	canvas := viz.NewCanvas(60, 30)
	viz.NewCamera().Plot(canvas, rec.Positions, viz.Extent(rec.Positions))
	return viz.WriteCanvasSVG(w, canvas, 6, "#00ff00")
}
