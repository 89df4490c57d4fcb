package main

import (
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/RegiByte/emergent-boids-sub002/config"
	"github.com/RegiByte/emergent-boids-sub002/engine"
	"github.com/RegiByte/emergent-boids-sub002/render"
	"github.com/RegiByte/emergent-boids-sub002/telemetry"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	sync := flag.Bool("sync", false, "Force synchronous ticking on the caller's goroutine")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Uint64("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	dbPath := flag.String("db", "", "SQLite database for events and window stats (empty = disabled)")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in seconds (0 = use config)")
	timeScale := flag.Float64("time-scale", 1, "Wall-clock speed multiplier (higher = faster runs)")

	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	windowSec := cfg.Telemetry.StatsWindow
	if *statsWindow > 0 {
		windowSec = *statsWindow
	}

	eng, err := engine.New(cfg, engine.Options{Seed: rngSeed})
	if err != nil {
		slog.Error("failed to build engine", "error", err)
		os.Exit(1)
	}
	runner := engine.NewRunner(eng, *maxTicks)
	if *sync {
		runner.ForceSynchronous()
	}
	if *timeScale > 0 && *timeScale != 1 {
		// Queued now, applied once the loop starts.
		runner.Enqueue(engine.SetTimeScaleCommand{Scale: *timeScale})
	}

	sink, err := newTelemetrySink(cfg, windowSec, *outputDir, *dbPath)
	if err != nil {
		slog.Error("failed to set up telemetry output", "error", err)
		os.Exit(1)
	}
	defer sink.Close()

	slog.Info("starting simulation",
		"seed", rngSeed,
		"headless", *headless,
		"max_ticks", *maxTicks,
		"species", len(cfg.Species),
		"world", []int{cfg.World.Width, cfg.World.Height},
	)

	if *headless {
		runHeadless(eng, runner, sink)
		return
	}
	runGraphical(cfg, eng, runner, sink)
}

func runHeadless(eng *engine.Engine, runner *engine.Runner, sink *telemetrySink) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	runner.Start()

	if runner.Synchronous() {
		for {
			select {
			case <-sig:
				runner.Stop()
				sink.consume(eng)
				return
			default:
			}
			runner.Advance()
			sink.consume(eng)
			select {
			case <-runner.Done():
				return
			default:
				time.Sleep(time.Millisecond)
			}
		}
	}

	for {
		select {
		case <-runner.Frames():
			sink.consume(eng)
		case <-runner.Done():
			sink.consume(eng)
			slog.Info("simulation finished", "frame", eng.Channel().Snapshot().Stats().Frame)
			return
		case <-sig:
			slog.Info("shutting down")
			runner.Stop()
			sink.consume(eng)
			return
		}
	}
}

func runGraphical(cfg *config.Config, eng *engine.Engine, runner *engine.Runner, sink *telemetrySink) {
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "Emergent Boids")
	defer rl.CloseWindow()
	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	view := render.NewView(cfg)
	runner.Start()
	defer runner.Stop()

	for !rl.WindowShouldClose() {
		runner.Advance() // no-op unless the runner is synchronous

		events := sink.consume(eng)
		snap := eng.Channel().Snapshot()
		view.Frame(snap, events, rl.GetFPS(), eng.Events().Dropped(), runner.Enqueue)

		select {
		case <-runner.Done():
			return
		default:
		}
	}
}

// telemetrySink fans the event stream out to the stats collector, the
// CSV output manager and the optional SQLite store. All sinks are
// no-op safe when disabled.
type telemetrySink struct {
	cfg       *config.Config
	collector *telemetry.Collector
	output    *telemetry.OutputManager
	store     *telemetry.Store

	buf     []telemetry.Event
	lastLog uint32
}

func newTelemetrySink(cfg *config.Config, windowSec float64, outputDir, dbPath string) (*telemetrySink, error) {
	s := &telemetrySink{
		cfg: cfg,
		collector: telemetry.NewCollector(windowSec, cfg.Derived.DT32, func(id int) bool {
			return id >= 0 && id < len(cfg.Species) && cfg.Species[id].IsPredator()
		}),
	}

	output, err := telemetry.NewOutputManager(outputDir)
	if err != nil {
		return nil, err
	}
	s.output = output
	if err := s.output.WriteConfig(cfg); err != nil {
		return nil, err
	}

	if dbPath != "" {
		store, err := telemetry.OpenStore(dbPath)
		if err != nil {
			s.output.Close()
			return nil, err
		}
		s.store = store
	}

	return s, nil
}

// consume drains the engine's event bus into every sink and flushes a
// stats window when one completes. Returns the drained events so the
// render layer can fold them into its feature layer.
func (s *telemetrySink) consume(eng *engine.Engine) []telemetry.Event {
	s.buf = eng.Events().Drain(s.buf[:0])
	for _, ev := range s.buf {
		s.collector.Record(ev)
	}
	if err := s.output.WriteEvents(s.buf); err != nil {
		slog.Warn("csv event write failed", "error", err)
	}
	if err := s.store.SaveEvents(s.buf); err != nil {
		slog.Warn("db event write failed", "error", err)
	}

	snap := eng.Channel().Snapshot()
	frame := snap.Stats().Frame

	if s.collector.ShouldFlush(frame) {
		preyCount, predCount, preyE, predE := sampleEnergies(snap, s.cfg)
		ws := s.collector.Flush(frame, preyCount, predCount, preyE, predE, eng.Events().Dropped())
		if err := s.output.WriteStats(ws); err != nil {
			slog.Warn("csv stats write failed", "error", err)
		}
		if err := s.store.SaveStats(ws); err != nil {
			slog.Warn("db stats write failed", "error", err)
		}
	}

	if interval := uint32(s.cfg.Telemetry.LogIntervalTicks); interval > 0 && frame-s.lastLog >= interval {
		s.lastLog = frame
		st := snap.Stats()
		slog.Info("tick",
			"frame", st.Frame,
			"sim_time", st.SimTime,
			"alive", st.Alive,
			"born", st.Born,
			"dead", st.Dead,
		)
	}

	return s.buf
}

// sampleEnergies reads per-role population counts and energy samples
// from one snapshot.
func sampleEnergies(snap engine.Snapshot, cfg *config.Config) (preyCount, predCount int, preyE, predE []float64) {
	for slot := 0; slot < cfg.Buffer.Capacity; slot++ {
		_, species, _, alive := snap.Flags(slot)
		if !alive || species >= len(cfg.Species) {
			continue
		}
		if cfg.Species[species].IsPredator() {
			predCount++
			predE = append(predE, float64(snap.Energy(slot)))
		} else {
			preyCount++
			preyE = append(preyE, float64(snap.Energy(slot)))
		}
	}
	return preyCount, predCount, preyE, predE
}

// Close flushes and closes all output sinks.
func (s *telemetrySink) Close() {
	if err := s.output.Close(); err != nil {
		slog.Warn("closing csv output", "error", err)
	}
	if err := s.store.Close(); err != nil {
		slog.Warn("closing db", "error", err)
	}
}
