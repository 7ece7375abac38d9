package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/san-kum/grapple/internal/analysis"
	"github.com/san-kum/grapple/internal/automation"
	"github.com/san-kum/grapple/internal/config"
	"github.com/san-kum/grapple/internal/export"
	"github.com/san-kum/grapple/internal/logging"
	"github.com/san-kum/grapple/internal/scenario"
	"github.com/san-kum/grapple/internal/sim"
	"github.com/san-kum/grapple/internal/storage"
	"github.com/san-kum/grapple/internal/viz"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	dataDir    string
	configFile string
	logLevel   string

	preset     string
	dt         float64
	duration   float64
	seed       int64
	integrator string
	noSave     bool

	channels []string
	width    int
	height   int
	outFile  string
	svgOut   bool
	tol      float64
	at       float64

	benchRuns    int
	benchWorkers int

	sweepParam  string
	sweepFrom   float64
	sweepTo     float64
	sweepSteps  int
	sweepMetric string
)

// main registers the grapple commands. With no subcommand it opens the
// scenario picker.
func main() {
	rootCmd := &cobra.Command{
		Use:           "grapple",
		Short:         "attachment and manipulation engine sandbox",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPicker()
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".grapple", "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")

	runCmd := &cobra.Command{
		Use:   "run [scenario]",
		Short: "run a scenario headless and save its trace",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	addRunFlags(runCmd)
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "print metrics without saving the run")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the trace channels of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringSliceVar(&channels, "channel", nil, "channels to plot (default all)")
	plotCmd.Flags().IntVar(&width, "width", 80, "plot width")
	plotCmd.Flags().IntVar(&height, "height", 10, "plot height")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVarP(&outFile, "out", "o", "", "write to a file instead of stdout")
	exportCmd.Flags().BoolVar(&svgOut, "svg", false, "export the trace as an svg chart")
	exportCmd.Flags().StringSliceVar(&channels, "channel", nil, "channels for the svg chart (default all)")
	exportCmd.Flags().IntVar(&width, "width", 800, "svg width")
	exportCmd.Flags().IntVar(&height, "height", 300, "svg height")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "summarize every trace channel of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().Float64Var(&tol, "tol", 0.01, "settle band around the final value")

	compareCmd := &cobra.Command{
		Use:   "compare [run_id] [run_id]",
		Short: "measure how two runs drift apart",
		Args:  cobra.ExactArgs(2),
		RunE:  compareRuns,
	}

	snapshotCmd := &cobra.Command{
		Use:   "snapshot [scenario]",
		Short: "run a scenario to a time and draw the scene as svg",
		Args:  cobra.ExactArgs(1),
		RunE:  snapshotScenario,
	}
	addRunFlags(snapshotCmd)
	snapshotCmd.Flags().Float64Var(&at, "at", 1, "scene time to draw")
	snapshotCmd.Flags().StringVarP(&outFile, "out", "o", "snapshot.svg", "output file")

	metaCmd := &cobra.Command{
		Use:   "meta [run_id]",
		Short: "print run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  printMetadata,
	}

	scenariosCmd := &cobra.Command{
		Use:   "scenarios",
		Short: "list built-in scenarios",
		RunE:  listScenarios,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [scenario]",
		Short: "list presets for a scenario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for scenario: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range presets {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	benchCmd := &cobra.Command{
		Use:   "bench [scenario...]",
		Short: "time seeded ensembles of scenarios",
		RunE:  benchScenarios,
	}
	addRunFlags(benchCmd)
	benchCmd.Flags().IntVar(&benchRuns, "runs", 8, "ensemble members per scenario")
	benchCmd.Flags().IntVar(&benchWorkers, "workers", 0, "parallel members (default GOMAXPROCS)")

	batchCmd := &cobra.Command{
		Use:   "batch [plan.yaml]",
		Short: "run every job of a yaml plan and save the runs",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep [scenario]",
		Short: "sweep one config parameter and report a metric",
		Args:  cobra.ExactArgs(1),
		RunE:  runSweep,
	}
	addRunFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "param", "", "parameter path, e.g. breakable.impulse_threshold")
	sweepCmd.Flags().Float64Var(&sweepFrom, "from", 0, "first value")
	sweepCmd.Flags().Float64Var(&sweepTo, "to", 1, "last value")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 5, "number of values")
	sweepCmd.Flags().StringVar(&sweepMetric, "metric", "joints_broken", "metric to report")
	sweepCmd.Flags().IntVar(&benchWorkers, "workers", 0, "parallel runs (default unbounded)")
	_ = sweepCmd.MarkFlagRequired("param")

	liveCmd := &cobra.Command{
		Use:   "live [scenario]",
		Short: "watch a scenario in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addRunFlags(liveCmd)

	initCmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "write the default config as yaml",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Save(args[0], config.DefaultConfig()); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", args[0])
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportCmd, analyzeCmd, compareCmd, snapshotCmd, metaCmd, scenariosCmd, presetsCmd, benchCmd, batchCmd, sweepCmd, liveCmd, initCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&preset, "preset", "", "use a preset configuration")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration in seconds")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed")
	cmd.Flags().StringVar(&integrator, "integrator", "", "integrator for spring followers")
}

// resolveConfig layers the preset or config file, then any flags the user
// set explicitly.
func resolveConfig(cmd *cobra.Command, name string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	switch {
	case preset != "":
		cfg = config.GetPreset(name, preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(name))
		}
	case configFile != "":
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	cfg.Scenario = name
	flags := cmd.Flags()
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("time") {
		cfg.Duration = duration
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync()

	registry := scenario.NewRegistry()
	s, err := registry.Build(cfg, log)
	if err != nil {
		return err
	}

	fmt.Printf("running %s...\n", cfg.Scenario)
	start := time.Now()
	result, err := s.Run(cmd.Context(), sim.Config{Duration: cfg.Duration, SampleEvery: cfg.SampleEvery})
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("steps: %d\n", result.StepsTaken)
	fmt.Printf("digest: %016x\n", result.Digest)
	fmt.Println("\nmetrics:")
	for _, m := range s.Metrics() {
		fmt.Printf("  %-16s %.6f\n", m.Name(), result.Metrics[m.Name()])
	}

	if noSave {
		return nil
	}
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	meta := storage.NewMetadata(cfg, preset, result)
	if err := st.Save(meta, result); err != nil {
		return err
	}
	fmt.Printf("\nrun id: %s\n", meta.ID)
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENARIO\tPRESET\tTIME\tDURATION\tDT\tSEED\tSTEPS")
	for _, run := range runs {
		p := run.Preset
		if p == "" {
			p = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2fs\t%.4fs\t%d\t%d\n",
			run.ID,
			run.Scenario,
			p,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.Seed,
			run.Steps,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	result, err := st.LoadTrace(meta.ID)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scenario: %s\n", meta.Scenario)
	fmt.Printf("samples: %d\n\n", len(result.Times))

	selected := channels
	if len(selected) == 0 {
		selected = result.Channels
	}
	// One chart per channel; their ranges rarely share a scale.
	for _, ch := range selected {
		graph, err := viz.Plot(result, []string{ch}, viz.PlotOptions{Width: width, Height: height, Caption: ch})
		if err != nil {
			return err
		}
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	result, err := st.LoadTrace(meta.ID)
	if err != nil {
		return err
	}

	if svgOut {
		doc, err := export.TraceToSVG(result, channels, width, height)
		if err != nil {
			return err
		}
		if outFile == "" {
			_, err = fmt.Println(doc)
			return err
		}
		return writeFile(outFile, doc)
	}

	if outFile != "" {
		if err := storage.ExportJSONFile(outFile, *meta, result); err != nil {
			return err
		}
		fmt.Printf("exported %s to %s\n", meta.ID, outFile)
		return nil
	}
	return storage.ExportJSON(os.Stdout, *meta, result)
}

func writeFile(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	result, err := st.LoadTrace(meta.ID)
	if err != nil {
		return err
	}
	summaries, err := analysis.SummarizeAll(result, tol)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s (%s)\n\n", meta.ID, meta.Scenario)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CHANNEL\tMIN\tMAX\tMEAN\tFINAL\tSETTLED\tFREQ")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%.4f\t%.4f\t%.4f\t%.4f\t%.2fs\t%.2fHz\n",
			s.Channel, s.Min, s.Max, s.Mean, s.Final, s.SettleTime, s.Frequency)
	}
	return w.Flush()
}

func compareRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	var results [2]*sim.Result
	for i, id := range args {
		res, err := st.LoadTrace(id)
		if err != nil {
			return err
		}
		results[i] = res
	}
	a, b := results[0], results[1]

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CHANNEL\tMAX DIFF\tFINAL DIFF\tGROWTH/S")
	for _, ch := range a.Channels {
		div, err := analysis.Divergence(a, b, ch)
		if err != nil {
			return fmt.Errorf("%s: %w", ch, err)
		}
		peak := 0.0
		for _, d := range div {
			peak = max(peak, d)
		}
		fmt.Fprintf(w, "%s\t%.4g\t%.4g\t%.3f\n", ch, peak, div[len(div)-1], analysis.GrowthRate(a.Times, div))
	}
	return w.Flush()
}

func snapshotScenario(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}
	cfg.Duration = at
	log, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync()

	s, err := scenario.NewRegistry().Build(cfg, log)
	if err != nil {
		return err
	}
	if _, err := s.Run(cmd.Context(), sim.Config{Duration: at}); err != nil {
		return err
	}

	canvas := viz.NewCanvas(80, 40)
	cam := viz.NewCamera()
	cam.Target = viz.SceneCenter(s.World)
	viz.Render(canvas, s, cam)
	return writeFile(outFile, export.CanvasToSVG(canvas, 4))
}

func printMetadata(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func listScenarios(cmd *cobra.Command, args []string) error {
	registry := scenario.NewRegistry()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCENARIO\tPRESETS\tDESCRIPTION")
	for _, name := range registry.List() {
		sc, err := registry.Get(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", name, strings.Join(config.ListPresets(name), ","), sc.Description)
	}
	return w.Flush()
}

func benchScenarios(cmd *cobra.Command, args []string) error {
	registry := scenario.NewRegistry()
	names := args
	if len(names) == 0 {
		names = registry.List()
	}

	fmt.Printf("benchmarking %d scenarios, %d runs each\n\n", len(names), benchRuns)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCENARIO\tRUNS\tSTEPS\tTIME\tSTEPS/SEC\tDISTINCT")

	for _, name := range names {
		cfg, err := resolveConfig(cmd, name)
		if err != nil {
			return err
		}
		ens := sim.NewEnsemble(registry.Builder(cfg, zap.NewNop()), benchRuns, cfg.Seed)
		ens.SetWorkers(benchWorkers)

		start := time.Now()
		results, err := ens.Run(cmd.Context(), sim.Config{Duration: cfg.Duration, SampleEvery: cfg.SampleEvery})
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		elapsed := time.Since(start)

		steps := 0
		digests := make(map[uint64]struct{}, len(results))
		for _, r := range results {
			steps += r.StepsTaken
			digests[r.Digest] = struct{}{}
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%v\t%.0f\t%d\n",
			name, len(results), steps, elapsed.Round(time.Millisecond), float64(steps)/elapsed.Seconds(), len(digests))
	}
	return w.Flush()
}

func runBatch(cmd *cobra.Command, args []string) error {
	plan, err := automation.LoadPlan(args[0])
	if err != nil {
		return err
	}
	cfg := config.DefaultConfig()
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync()

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	r := &automation.Runner{Registry: scenario.NewRegistry(), Store: st, Log: log}
	metas, err := r.Run(cmd.Context(), plan)
	for _, m := range metas {
		fmt.Printf("%s\t%s\tseed=%d\tdigest=%016x\n", m.ID, m.Scenario, m.Seed, m.Digest)
	}
	return err
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}
	sw := automation.Sweep{
		Base:   cfg,
		Param:  sweepParam,
		Values: automation.Linspace(sweepFrom, sweepTo, sweepSteps),
		Metric: sweepMetric,
	}
	points, err := automation.RunSweep(cmd.Context(), scenario.NewRegistry(), sw, benchWorkers)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\tDIGEST\n", strings.ToUpper(sweepParam), strings.ToUpper(sweepMetric))
	for _, p := range points {
		fmt.Fprintf(w, "%.4g\t%.6f\t%016x\n", p.Value, p.Metric, p.Digest)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if best, ok := automation.Best(points); ok {
		fmt.Printf("\nlowest %s at %s=%.4g\n", sweepMetric, sweepParam, best.Value)
	}
	return nil
}

// The live view owns the terminal, so scenarios built for it log nothing.
func runLive(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return runPicker()
	}
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}
	m, err := liveModel(cfg)
	if err != nil {
		return err
	}
	return viz.Run(m)
}

func liveModel(cfg *config.Config) (viz.Model, error) {
	registry := scenario.NewRegistry()
	return viz.NewModel(cfg.Scenario, func() (*sim.Simulator, error) {
		return registry.Build(cfg, zap.NewNop())
	})
}

func runPicker() error {
	registry := scenario.NewRegistry()
	var entries []viz.Entry
	for _, name := range registry.List() {
		sc, err := registry.Get(name)
		if err != nil {
			return err
		}
		entries = append(entries, viz.Entry{
			Name:        name,
			Description: sc.Description,
			Presets:     config.ListPresets(name),
		})
	}

	return viz.RunPicker(viz.NewPicker(entries, func(name, p string) (viz.Model, error) {
		cfg := config.DefaultConfig()
		if p != "" {
			if cfg = config.GetPreset(name, p); cfg == nil {
				return viz.Model{}, fmt.Errorf("unknown preset: %s", p)
			}
		}
		cfg.Scenario = name
		return liveModel(cfg)
	}))
}
