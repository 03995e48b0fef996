package main

import (
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/stepsim/internal/config"
	"github.com/san-kum/stepsim/internal/scene"
	"github.com/san-kum/stepsim/internal/server"
	"github.com/san-kum/stepsim/internal/stepper"
	"github.com/san-kum/stepsim/internal/storage"
	"github.com/san-kum/stepsim/internal/viz"
)

var (
	dataDir    string
	dt         float64
	timeScale  float64
	duration   float64
	fps        float64
	seed       int64
	workers    int
	pattern    string
	jitter     float64
	stallEvery int
	stallLen   float64
	numBodies  int
	gravity    float64
	configFile string
	preset     string
	addr       string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "stepsim",
		Short: "fixed-timestep stepping engine with interpolated rendering",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".stepsim", "data directory")

	runCmd := &cobra.Command{
		Use:   "run [scene]",
		Short: "run a scene headless against a scripted frame pattern",
		Args:  cobra.ExactArgs(1),
		RunE:  runScene,
	}
	addRunFlags(runCmd)
	runCmd.Flags().StringVar(&pattern, "pattern", "uniform", "frame pattern (uniform|jitter|stall)")
	runCmd.Flags().Float64Var(&jitter, "jitter", 0.5, "jitter fraction of nominal frame")
	runCmd.Flags().IntVar(&stallEvery, "stall-every", 120, "frames between stall spikes")
	runCmd.Flags().Float64Var(&stallLen, "stall-len", 0.5, "stall spike length (s)")
	runCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	runCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")

	liveCmd := &cobra.Command{
		Use:   "live [scene]",
		Short: "run a scene with live terminal visualization",
		Args:  cobra.ExactArgs(1),
		RunE:  runLive,
	}
	addRunFlags(liveCmd)

	serveCmd := &cobra.Command{
		Use:   "serve [scene]",
		Short: "step a scene and broadcast blended poses over websocket",
		Args:  cobra.ExactArgs(1),
		RunE:  runServe,
	}
	addRunFlags(serveCmd)
	serveCmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a run's tracked coordinates",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run frames to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run frames to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	benchCmd := &cobra.Command{
		Use:   "bench [scene]",
		Short: "benchmark frame patterns against step sizes",
		Args:  cobra.ExactArgs(1),
		RunE:  benchScene,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [scene]",
		Short: "list available presets for a scene",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for scene: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range presets {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	scenesCmd := &cobra.Command{
		Use:   "scenes",
		Short: "list registered scenes",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range scene.NewRegistry().List() {
				fmt.Println(name)
			}
		},
	}

	rootCmd.AddCommand(runCmd, liveCmd, serveCmd, listCmd, plotCmd,
		exportCSVCmd, exportJSONCmd, benchCmd, presetsCmd, scenesCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "fixed step size (s)")
	cmd.Flags().Float64Var(&timeScale, "time-scale", 1.0, "frame time multiplier (negative reverses)")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration (s)")
	cmd.Flags().Float64Var(&fps, "fps", config.DefaultFPS, "render frame rate")
	cmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
	cmd.Flags().IntVar(&workers, "workers", 1, "per-body fan-out goroutines")
	cmd.Flags().IntVar(&numBodies, "bodies", 0, "body count (0 = scene default)")
	cmd.Flags().Float64Var(&gravity, "gravity", 0, "gravity override (0 = scene default)")
}

// buildConfig resolves preset < config file < flags, the flag always
// winning when explicitly set.
func buildConfig(cmd *cobra.Command, sceneName string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	cfg.Scene = sceneName

	if preset != "" {
		p := config.GetPreset(sceneName, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(sceneName))
		}
		applyNonZero(cfg, p)
	}

	if configFile != "" {
		fileCfg, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		*cfg = *fileCfg
		cfg.Scene = sceneName
	}

	if cmd.Flags().Changed("dt") {
		cfg.Dt = dt
	}
	if cmd.Flags().Changed("time-scale") {
		cfg.TimeScale = timeScale
	}
	if cmd.Flags().Changed("time") {
		cfg.Duration = duration
	}
	if cmd.Flags().Changed("fps") {
		cfg.FPS = fps
	}
	if cmd.Flags().Changed("seed") || cfg.Seed == 0 {
		cfg.Seed = seed
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = workers
	}
	if cmd.Flags().Changed("pattern") {
		cfg.Frames.Pattern = pattern
	}
	if cmd.Flags().Changed("jitter") {
		cfg.Frames.Jitter = jitter
	}
	if cmd.Flags().Changed("stall-every") {
		cfg.Frames.StallEvery = stallEvery
	}
	if cmd.Flags().Changed("stall-len") {
		cfg.Frames.StallLen = stallLen
	}
	if cmd.Flags().Changed("bodies") && numBodies > 0 {
		cfg.Params.Bodies = numBodies
	}
	if cmd.Flags().Changed("gravity") && gravity != 0 {
		cfg.Params.Gravity = gravity
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyNonZero copies preset values over the defaults, skipping unset
// fields so preset authors only write what they mean.
func applyNonZero(dst, src *config.Config) {
	if src.Dt != 0 {
		dst.Dt = src.Dt
	}
	if src.TimeScale != 0 {
		dst.TimeScale = src.TimeScale
	}
	if src.Duration != 0 {
		dst.Duration = src.Duration
	}
	if src.FPS != 0 {
		dst.FPS = src.FPS
	}
	if src.Params.Bodies != 0 {
		dst.Params.Bodies = src.Params.Bodies
	}
	if src.Params.Gravity != 0 {
		dst.Params.Gravity = src.Params.Gravity
	}
	if src.Params.Restitution != 0 {
		dst.Params.Restitution = src.Params.Restitution
	}
	if src.Params.Mu != 0 {
		dst.Params.Mu = src.Params.Mu
	}
	if src.Params.SpawnEvery != 0 {
		dst.Params.SpawnEvery = src.Params.SpawnEvery
	}
	if src.Params.MaxBodies != 0 {
		dst.Params.MaxBodies = src.Params.MaxBodies
	}
	if src.Params.CullSpeed != 0 {
		dst.Params.CullSpeed = src.Params.CullSpeed
	}
}

// buildWorld constructs the scene and a stepper populated with its
// spawn, bound together through the stepper's world handle.
func buildWorld(cfg *config.Config) (*stepper.Stepper, scene.Scene, error) {
	sc, err := scene.NewRegistry().Get(cfg.Scene)
	if err != nil {
		return nil, nil, err
	}
	applySceneParams(sc, cfg)

	st, err := stepper.New(cfg.Dt, nil)
	if err != nil {
		return nil, nil, err
	}
	st.SetTimeScale(cfg.TimeScale)
	st.SetWorkers(cfg.Workers)

	rng := rand.New(rand.NewSource(cfg.Seed))
	for _, b := range sc.Spawn(rng) {
		st.AddBody(b)
	}
	st.SetForces(stepper.ForceFunc(scene.Bind(sc, st)))

	return st, sc, nil
}

func applySceneParams(sc scene.Scene, cfg *config.Config) {
	p := cfg.Params
	switch s := sc.(type) {
	case *scene.Bounce:
		if p.Bodies > 0 {
			s.Count = p.Bodies
		}
		if p.Gravity > 0 {
			s.Gravity = p.Gravity
		}
		if p.Restitution > 0 {
			s.Restitution = p.Restitution
		}
		if p.CullSpeed > 0 {
			s.CullSpeed = p.CullSpeed
		}
	case *scene.Orbit:
		if p.Bodies > 0 {
			s.Count = p.Bodies
		}
		if p.Mu > 0 {
			s.Mu = p.Mu
		}
	case *scene.Spin:
		if p.Bodies > 0 {
			s.Count = p.Bodies
		}
	case *scene.Fountain:
		if p.Gravity > 0 {
			s.Gravity = p.Gravity
		}
		if p.SpawnEvery > 0 {
			s.SpawnEvery = p.SpawnEvery
		}
		if p.MaxBodies > 0 {
			s.MaxBodies = p.MaxBodies
		}
	}
}

// frameTimes produces the scripted wall-clock deltas for a headless run.
func frameTimes(cfg *config.Config) []float64 {
	nominal := 1.0 / cfg.FPS
	n := int(cfg.Duration / nominal)
	rng := rand.New(rand.NewSource(cfg.Seed + 1))

	out := make([]float64, n)
	for i := range out {
		ft := nominal
		switch cfg.Frames.Pattern {
		case "jitter":
			ft = nominal * (1 + cfg.Frames.Jitter*(rng.Float64()*2-1))
		case "stall":
			if cfg.Frames.StallEvery > 0 && (i+1)%cfg.Frames.StallEvery == 0 {
				ft = cfg.Frames.StallLen
			}
		}
		out[i] = ft
	}
	return out
}

func runScene(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}

	st, _, err := buildWorld(cfg)
	if err != nil {
		return err
	}

	store := storage.New(dataDir)
	if err := store.Init(); err != nil {
		return err
	}

	fmt.Printf("running %s (%s frames at %.0f fps, dt=%.3fs)...\n",
		cfg.Scene, cfg.Frames.Pattern, cfg.FPS, cfg.Dt)
	start := time.Now()

	fts := frameTimes(cfg)
	frames := make([]storage.Frame, 0, len(fts))
	wall := 0.0
	for _, ft := range fts {
		st.Simulate(ft)
		wall += ft
		frames = append(frames, sampleFrame(st, wall))
	}

	elapsed := time.Since(start)

	meta := storage.RunMetadata{
		Scene:      cfg.Scene,
		Seed:       cfg.Seed,
		Dt:         cfg.Dt,
		TimeScale:  cfg.TimeScale,
		Duration:   cfg.Duration,
		FPS:        cfg.FPS,
		Pattern:    cfg.Frames.Pattern,
		StepsTaken: st.StepsTaken(),
		FinalBody:  len(st.Bodies()),
	}
	runID, err := store.Save(meta, frames)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("frames: %d\n", len(frames))
	fmt.Printf("fixed steps: %d\n", st.StepsTaken())
	fmt.Printf("simulated time: %.2fs\n", st.SimulatedTime())
	fmt.Printf("bodies remaining: %d\n", len(st.Bodies()))

	return nil
}

func sampleFrame(st *stepper.Stepper, wall float64) storage.Frame {
	f := storage.Frame{
		Time:      wall,
		SimTime:   st.SimulatedTime(),
		Alpha:     st.Alpha(),
		Steps:     st.StepsTaken(),
		BodyCount: len(st.Bodies()),
	}
	for i, b := range st.Bodies() {
		if i >= storage.TrackedBodies {
			break
		}
		pos := b.Rendered().Position
		f.Tracked[i] = [3]float64{pos.X(), pos.Y(), pos.Z()}
	}
	return f
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}

	factory := func() (*stepper.Stepper, scene.Scene) {
		st, sc, err := buildWorld(cfg)
		if err != nil {
			// The config validated before the first build; a scene
			// that constructed once cannot fail on reset.
			panic(err)
		}
		return st, sc
	}

	p := tea.NewProgram(viz.NewModel(factory))
	_, err = p.Run()
	return err
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}

	st, sc, err := buildWorld(cfg)
	if err != nil {
		return err
	}

	hub := server.NewHub(st, sc, cfg.FPS)

	stop := make(chan struct{})
	go hub.Run(stop)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		close(stop)
		os.Exit(0)
	}()

	http.HandleFunc("/ws", hub.HandleWS)
	log.Printf("streaming %s poses on %s/ws", cfg.Scene, addr)
	return http.ListenAndServe(addr, nil)
}

func listRuns(cmd *cobra.Command, args []string) error {
	store := storage.New(dataDir)
	runs, err := store.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENE\tTIME\tDT\tSCALE\tPATTERN\tSTEPS\tFRAMES")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.3fs\t%+.2f\t%s\t%d\t%d\n",
			run.ID,
			run.Scene,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Dt,
			run.TimeScale,
			run.Pattern,
			run.StepsTaken,
			run.Frames,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	store := storage.New(dataDir)
	meta, err := store.Load(args[0])
	if err != nil {
		return err
	}
	frames, err := store.LoadFrames(args[0])
	if err != nil {
		return err
	}
	if len(frames) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scene: %s\n", meta.Scene)
	fmt.Printf("frames: %d\n\n", len(frames))

	axes := []string{"x", "y", "z"}
	for axis := 0; axis < 3; axis++ {
		data := storage.Column(frames, 0, axis)
		graph := asciigraph.Plot(data,
			asciigraph.Height(8),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("body 0 %s (blended)", axes[axis])),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	graph := asciigraph.Plot(storage.FormatSteps(frames),
		asciigraph.Height(6),
		asciigraph.Width(80),
		asciigraph.Caption("cumulative fixed steps"),
	)
	fmt.Println(graph)

	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	store := storage.New(dataDir)
	frames, err := store.LoadFrames(args[0])
	if err != nil {
		return err
	}
	return storage.ExportCSV(os.Stdout, frames)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	store := storage.New(dataDir)
	meta, err := store.Load(args[0])
	if err != nil {
		return err
	}
	frames, err := store.LoadFrames(args[0])
	if err != nil {
		return err
	}
	return storage.ExportJSON(os.Stdout, *meta, frames)
}

func benchScene(cmd *cobra.Command, args []string) error {
	sceneName := args[0]
	patterns := []string{"uniform", "jitter", "stall"}
	dts := []float64{0.01, 0.02, 0.05}

	fmt.Printf("benchmarking %s\n\n", sceneName)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PATTERN\tDT\tFRAMES\tSTEPS\tTIME\tSTEPS/SEC")

	for _, pat := range patterns {
		for _, stepSize := range dts {
			cfg := config.DefaultConfig()
			cfg.Scene = sceneName
			cfg.Dt = stepSize
			cfg.Duration = 10
			cfg.Seed = 42
			cfg.Frames.Pattern = pat
			if err := cfg.Validate(); err != nil {
				return err
			}

			st, _, err := buildWorld(cfg)
			if err != nil {
				return err
			}

			fts := frameTimes(cfg)
			start := time.Now()
			for _, ft := range fts {
				st.Simulate(ft)
			}
			elapsed := time.Since(start)

			stepsPerSec := float64(st.StepsTaken()) / elapsed.Seconds()
			fmt.Fprintf(w, "%s\t%.3fs\t%d\t%d\t%v\t%.0f\n",
				pat, stepSize, len(fts), st.StepsTaken(), elapsed, stepsPerSec)
		}
	}

	return w.Flush()
}
