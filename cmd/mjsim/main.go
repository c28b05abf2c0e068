package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/mjsim/internal/analysis"
	"github.com/san-kum/mjsim/internal/config"
	"github.com/san-kum/mjsim/internal/control"
	"github.com/san-kum/mjsim/internal/export"
	"github.com/san-kum/mjsim/internal/logger"
	"github.com/san-kum/mjsim/internal/metrics"
	"github.com/san-kum/mjsim/internal/mujoco"
	"github.com/san-kum/mjsim/internal/observability"
	"github.com/san-kum/mjsim/internal/sim"
	"github.com/san-kum/mjsim/internal/storage"
	"github.com/san-kum/mjsim/internal/tui"
)

var (
	dataDir    string
	configFile string
	preset     string
	logLevel   string
	logFile    string
	textfile   string

	steps        int
	recordEvery  int
	seed         int64
	runs         int
	perturbation float64
	limit        int
	noSave       bool

	columns    []string
	output     string
	svgPath    string
	phaseJoint string
	section    string
)

var (
	registry = prometheus.NewRegistry()
	handles  *observability.HandleCollector
	simStats *observability.SimCollector
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "mjsim",
		Short:         "MuJoCo scene runner with zero-copy joint views",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return teardown()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dataDir, "data", ".mjsim", "data directory")
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&preset, "preset", "", "built-in scene (see 'mjsim presets')")
	pf.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&logFile, "log-file", "", "also log json to this file")
	pf.StringVar(&textfile, "textfile", "", "write prometheus metrics to this file on exit")

	inspectCmd := &cobra.Command{
		Use:   "inspect [scene.xml]",
		Short: "compile a scene and print its joints",
		Args:  cobra.MaximumNArgs(1),
		RunE:  inspectScene,
	}

	runCmd := &cobra.Command{
		Use:   "run [scene.xml]",
		Short: "run simulation",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addSimFlags(runCmd)
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	ensembleCmd := &cobra.Command{
		Use:   "ensemble [scene.xml]",
		Short: "run perturbed copies of a scene concurrently",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runEnsemble,
	}
	addSimFlags(ensembleCmd)
	ensembleCmd.Flags().IntVar(&runs, "runs", 0, "number of runs (default from config)")
	ensembleCmd.Flags().Float64Var(&perturbation, "perturbation", 0, "velocity noise scale (default from config)")
	ensembleCmd.Flags().IntVar(&limit, "parallel", 0, "max runs in flight, 0 for unbounded")

	liveCmd := &cobra.Command{
		Use:   "live [scene.xml]",
		Short: "step a scene in an interactive joint table",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot recorded columns of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringSliceVar(&columns, "column", nil, "columns to plot (default: first six)")
	plotCmd.Flags().StringVar(&svgPath, "svg", "", "also write the selected columns to an svg file")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "power spectrum of recorded columns",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().StringSliceVar(&columns, "column", nil, "columns to analyze (default: first six)")

	phaseCmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "phase portrait of one joint coordinate",
		Args:  cobra.ExactArgs(1),
		RunE:  phasePlot,
	}
	phaseCmd.Flags().StringVar(&phaseJoint, "joint", "", "joint to plot, qpos against qvel (default: first recorded)")
	phaseCmd.Flags().StringVar(&section, "section", "", "plot a poincare section on upward zero crossings of this column")
	phaseCmd.Flags().StringVar(&svgPath, "svg", "", "also write the portrait to an svg file")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a run with its trajectory as json",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in scenes",
		RunE:  listPresets,
	}

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write a default config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); err == nil {
				return fmt.Errorf("%s already exists", args[0])
			}
			if err := config.Save(args[0], config.DefaultConfig()); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", args[0])
			return nil
		},
	}

	rootCmd.AddCommand(inspectCmd, runCmd, ensembleCmd, liveCmd, listCmd, plotCmd, analyzeCmd, phaseCmd, exportCmd, presetsCmd, initCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if errors.Is(err, mujoco.ErrEngineUnavailable) {
			fmt.Fprintln(os.Stderr, "rebuild with -tags mujoco and MuJoCo installed")
		}
		os.Exit(1)
	}
}

func addSimFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&steps, "steps", 0, "steps to run (default from config)")
	cmd.Flags().IntVar(&recordEvery, "record-every", 0, "record a row every n steps (default from config)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (default from config)")
}

// setup initializes logging and the handle metrics shared by every command.
func setup(cmd *cobra.Command) error {
	level := logLevel
	if level == "" {
		level = config.DefaultLogLevel
	}
	if err := logger.Init(level, logFile); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	var err error
	if handles, err = observability.NewHandleCollector(registry); err != nil {
		return err
	}
	if simStats, err = observability.NewSimCollector(registry); err != nil {
		return err
	}
	mujoco.SetObserver(handles)

	logger.Debug("starting",
		zap.String("command", cmd.Name()),
		zap.String("engine", mujoco.GetEngine().Name()))
	return nil
}

func teardown() error {
	defer logger.Sync()
	if textfile == "" {
		return nil
	}
	if err := observability.WriteTextfile(textfile, registry); err != nil {
		return err
	}
	logger.Info("wrote metrics", zap.String("path", textfile))
	return nil
}

// resolveConfig layers the config file, positional scene path and flags.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	switch {
	case len(args) > 0 && preset != "":
		return nil, config.ErrAmbiguousModel
	case len(args) > 0:
		cfg.Model.Path = args[0]
		cfg.Model.Preset = ""
	case preset != "":
		cfg.Model.Preset = preset
		cfg.Model.Path = ""
	}

	flags := cmd.Flags()
	if flags.Changed("steps") {
		cfg.Sim.Steps = steps
	}
	if flags.Changed("record-every") {
		cfg.Sim.RecordEvery = recordEvery
	}
	if flags.Changed("seed") {
		cfg.Sim.Seed = seed
	}
	if flags.Changed("runs") {
		cfg.Sim.EnsembleRuns = runs
	}
	if flags.Changed("perturbation") {
		cfg.Sim.Perturbation = perturbation
	}
	if logLevel == "" && cfg.Logging.Level != "" && cfg.Logging.Level != config.DefaultLogLevel {
		if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
			return nil, err
		}
	}
	if textfile == "" {
		textfile = cfg.Metrics.Textfile
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openScene compiles the configured scene and returns a Data with the
// configured initial state applied. Closing the returned func releases both.
func openScene(cfg *config.Config) (*mujoco.Data, func(), error) {
	var (
		model *mujoco.Model
		err   error
	)
	xml, path := cfg.Source()
	if xml != "" {
		var spec *mujoco.Spec
		if spec, err = mujoco.ParseXML(xml); err != nil {
			return nil, nil, err
		}
		model, err = spec.Compile()
	} else {
		model, err = mujoco.LoadFile(path)
	}
	if err != nil {
		return nil, nil, err
	}

	data, err := mujoco.NewData(model)
	if err != nil {
		model.Close()
		return nil, nil, err
	}

	closeAll := func() {
		if err := data.Close(); err != nil {
			logger.Warn("close data", zap.Error(err))
		}
		if err := model.Close(); err != nil {
			logger.Warn("close model", zap.Error(err))
		}
	}

	initial := sim.Initial{Qpos: cfg.Data.Qpos, Qvel: cfg.Data.Qvel, Ctrl: cfg.Data.Ctrl}
	if err := initial.Apply(data); err != nil {
		closeAll()
		return nil, nil, err
	}

	logger.Debug("scene ready",
		zap.String("source", cfg.SourceName()),
		zap.Int("nq", model.Nq()),
		zap.Int("nv", model.Nv()),
		zap.Int("joints", model.NumJoints()))
	return data, closeAll, nil
}

func simConfig(cfg *config.Config) sim.Config {
	return sim.Config{
		Steps:         cfg.Sim.Steps,
		RecordEvery:   cfg.Sim.RecordEvery,
		ValidateState: cfg.Sim.ValidateState,
	}
}

func modelName(cfg *config.Config) string {
	if cfg.Model.Preset != "" {
		return cfg.Model.Preset
	}
	base := cfg.Model.Path
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	return strings.TrimSuffix(base, ".xml")
}

func inspectScene(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	data, closeAll, err := openScene(cfg)
	if err != nil {
		return err
	}
	defer closeAll()

	model := data.Model()
	fmt.Printf("scene:    %s\n", cfg.SourceName())
	fmt.Printf("engine:   %s\n", model.Engine().Name())
	fmt.Printf("timestep: %gs\n", model.Timestep())
	fmt.Printf("nq=%d nv=%d nu=%d joints=%d bodies=%d\n\n",
		model.Nq(), model.Nv(), model.Nu(), model.NumJoints(), model.NumBodies())

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tJOINT\tTYPE\tQPOSADR\tDOFADR\tNQ\tNV\tQPOS")
	for id := 0; id < model.NumJoints(); id++ {
		desc, ok := model.Joint(id)
		if !ok {
			continue
		}
		name, ok := model.JointName(id)
		if !ok {
			name = "<undecodable>"
		}
		qpos := "-"
		if view, ok := data.Joint(id); ok {
			qpos = fmt.Sprintf("%.4g", view.Qpos)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			id, name, desc.Type, desc.QposAdr, desc.DofAdr,
			desc.Type.PositionCount(), desc.Type.VelocityCount(), qpos)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if model.Nu() > 0 {
		fmt.Println()
		for i := 0; i < model.Nu(); i++ {
			name, _ := model.ActuatorName(i)
			fmt.Printf("actuator %d: %s\n", i, name)
		}
	}
	return nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	data, closeAll, err := openScene(cfg)
	if err != nil {
		return err
	}
	defer closeAll()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	s := sim.New(data)
	for _, m := range metrics.Default(cfg.Metrics.StabilityThreshold) {
		s.AddMetric(m)
	}
	pids, err := controllers(cfg, data.Model())
	if err != nil {
		return err
	}
	for _, pid := range pids {
		s.AddObserver(pid)
	}
	s.AddObserver(simStats)

	logger.Info("running simulation",
		zap.String("scene", cfg.SourceName()),
		zap.Int("steps", cfg.Sim.Steps))

	start := time.Now()
	result, err := s.Run(ctx, simConfig(cfg))
	elapsed := time.Since(start)
	if err != nil && !errors.Is(err, context.Canceled) {
		simStats.ObserveRun(elapsed, "error")
		return err
	}
	simStats.ObserveRun(elapsed, outcome(result))

	fmt.Printf("steps: %d  t=%.4fs  wall=%s\n", result.StepsTaken, data.Time(), elapsed.Round(time.Millisecond))
	printMetrics(result.Metrics)
	for _, e := range result.Errors {
		fmt.Printf("warning: %v\n", e)
	}

	if noSave {
		return err
	}
	runID, saveErr := storage.New(dataDir).Save(runMetadata(cfg, data), result)
	if saveErr != nil {
		return saveErr
	}
	fmt.Printf("saved run: %s\n", runID)
	return err
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	if cfg.Sim.EnsembleRuns == 0 {
		return errors.New("ensemble needs at least one run")
	}
	data, closeAll, err := openScene(cfg)
	if err != nil {
		return err
	}
	defer closeAll()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	threshold := cfg.Metrics.StabilityThreshold
	ens := sim.NewEnsemble(data, cfg.Sim.EnsembleRuns, cfg.Sim.Seed, cfg.Sim.Perturbation).
		WithMetrics(func() []sim.Metric { return metrics.Default(threshold) }).
		WithObservers(simStats).
		WithLimit(limit)

	logger.Info("running ensemble",
		zap.String("scene", cfg.SourceName()),
		zap.Int("runs", cfg.Sim.EnsembleRuns),
		zap.Float64("perturbation", cfg.Sim.Perturbation))

	start := time.Now()
	results, err := ens.Run(ctx, simConfig(cfg))
	elapsed := time.Since(start)
	if err != nil {
		simStats.ObserveRun(elapsed, "error")
		return err
	}

	names := metricNames(results)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "RUN\tSEED\tSTEPS\t%s\n", strings.ToUpper(strings.Join(names, "\t")))
	for i, r := range results {
		simStats.ObserveRun(elapsed/time.Duration(len(results)), outcome(r))
		fmt.Fprintf(w, "%d\t%d\t%d", i, cfg.Sim.Seed+int64(i), r.StepsTaken)
		for _, n := range names {
			fmt.Fprintf(w, "\t%.4g", r.Metrics[n])
		}
		fmt.Fprintln(w)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%d runs in %s\n", len(results), elapsed.Round(time.Millisecond))
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	data, closeAll, err := openScene(cfg)
	if err != nil {
		return err
	}
	defer closeAll()

	pids, err := controllers(cfg, data.Model())
	if err != nil {
		return err
	}
	tunables := make([]tui.Tunable, len(pids))
	for i, pid := range pids {
		tunables[i] = pid
	}
	return tui.Run(cfg.SourceName(), data, tunables...)
}

// controllers builds one bound PID per control entry of cfg.
func controllers(cfg *config.Config, model *mujoco.Model) ([]*control.PID, error) {
	pids := make([]*control.PID, 0, len(cfg.Control))
	for _, pc := range cfg.Control {
		pid := control.NewPID(pc.Joint, pc.Actuator, pc.Kp, pc.Ki, pc.Kd, pc.Target)
		if err := pid.Bind(model); err != nil {
			return nil, err
		}
		pids = append(pids, pid)
	}
	return pids, nil
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
	fmt.Fprintln(w, "ID\tMODEL\tTIME\tSTEPS\tDT\tSEED\tERRORS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.4fs\t%d\t%d\n",
			run.ID,
			run.Model,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Steps,
			run.Timestep,
			run.Seed,
			len(run.Errors),
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	table, err := st.LoadStates(runID)
	if err != nil {
		return err
	}

	if len(table.States) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("model: %s\n", meta.Model)
	fmt.Printf("samples: %d\n\n", len(table.States))

	var lines []export.Series
	for _, name := range selectColumns(table) {
		series, ok := table.Column(name)
		if !ok {
			return fmt.Errorf("run %s has no column %q", runID, name)
		}
		graph := asciigraph.Plot(series,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(name+" vs time"),
		)
		fmt.Println(graph)
		fmt.Println()
		lines = append(lines, export.TimeSeries(name, table.Times, series))
	}

	if svgPath != "" {
		if err := export.WriteSVGFile(svgPath, 800, 400, lines...); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", svgPath)
	}
	return nil
}

func selectColumns(table *storage.Table) []string {
	if len(columns) > 0 {
		return columns
	}
	return table.Columns[:min(len(table.Columns), 6)]
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	table, err := storage.New(dataDir).LoadStates(runID)
	if err != nil {
		return err
	}
	dt := analysis.SampleInterval(table.Times)

	for _, name := range selectColumns(table) {
		series, ok := table.Column(name)
		if !ok {
			return fmt.Errorf("run %s has no column %q", runID, name)
		}
		spectrum, err := analysis.PowerSpectrum(series, dt)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}

		graph := asciigraph.Plot(spectrum.Magnitude,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("%s power spectrum, peak %.3f Hz", name, spectrum.Dominant())),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func phasePlot(cmd *cobra.Command, args []string) error {
	runID := args[0]

	table, err := storage.New(dataDir).LoadStates(runID)
	if err != nil {
		return err
	}
	if len(table.Columns) == 0 {
		return fmt.Errorf("no data to plot")
	}

	xName := table.Columns[0]
	if phaseJoint != "" {
		xName = phaseJoint + ".qpos"
	}
	yName := strings.Replace(xName, ".qpos", ".qvel", 1)
	x, okX := table.Column(xName)
	y, okY := table.Column(yName)
	if !okX || !okY {
		return fmt.Errorf("run %s has no %s/%s pair (joints with several coordinates are not supported)", runID, xName, yName)
	}

	portrait := analysis.NewPortrait(x, y)
	title := fmt.Sprintf("phase portrait: %s vs %s", yName, xName)
	if section != "" {
		cross, ok := table.Column(section)
		if !ok {
			return fmt.Errorf("run %s has no column %q", runID, section)
		}
		portrait = analysis.PoincareSection(cross, x, y, 0)
		title = fmt.Sprintf("poincare section on %s: %s vs %s", section, yName, xName)
		if len(portrait.Points) == 0 {
			fmt.Println("no crossings detected")
			return nil
		}
	}

	fmt.Println(title)
	fmt.Print(portrait.ASCII(70, 24))

	if svgPath != "" {
		line := export.Series{Name: title, Points: portrait.Points}
		if err := export.WriteSVGFile(svgPath, 600, 600, line); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", svgPath)
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	if output != "" {
		if err := st.ExportJSONFile(output, args[0]); err != nil {
			return err
		}
		fmt.Printf("exported to %s\n", output)
		return nil
	}
	return st.ExportJSON(os.Stdout, args[0])
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDESCRIPTION")
	for _, name := range config.ListPresets() {
		fmt.Fprintf(w, "%s\t%s\n", name, config.GetPreset(name).Description)
	}
	return w.Flush()
}

// runMetadata describes the scene; Store.Save fills in the result fields.
func runMetadata(cfg *config.Config, data *mujoco.Data) storage.RunMetadata {
	return storage.RunMetadata{
		Model:    modelName(cfg),
		Source:   cfg.SourceName(),
		Engine:   data.Model().Engine().Name(),
		Seed:     cfg.Sim.Seed,
		Timestep: data.Model().Timestep(),
	}
}

func outcome(r *sim.Result) string {
	if len(r.Errors) > 0 {
		return "diverged"
	}
	return "ok"
}

func metricNames(results []*sim.Result) []string {
	if len(results) == 0 {
		return nil
	}
	var names []string
	for name := range results[0].Metrics {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func printMetrics(m map[string]float64) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		fmt.Printf("  %-16s %.6g\n", name, m[name])
	}
}
