package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/teacon/eldbook"
	"github.com/teacon/eldbook/record"
)

var (
	entityTypes = []string{"minecraft:zombie", "minecraft:skeleton", "minecraft:cow", "minecraft:item"}
	dimensions  = []string{"minecraft:overworld", "minecraft:the_nether"}
	reasons     = []eldbook.RemovalReason{
		eldbook.Killed,
		eldbook.Discarded,
		eldbook.UnloadedToChunk,
		eldbook.UnloadedWithPlayer,
		eldbook.ChangedDimension,
	}
)

// simEntity is a random walker standing in for a host entity.
type simEntity struct {
	id        uuid.UUID
	typ       string
	dimension string
	pos       record.Vec3
	cb        eldbook.Callback
}

func (e *simEntity) UUID() uuid.UUID       { return e.id }
func (e *simEntity) Type() string          { return e.typ }
func (e *simEntity) Dimension() string     { return e.dimension }
func (e *simEntity) Position() record.Vec3 { return e.pos }

type simulateConfig struct {
	dir         string
	entities    int
	tps         int
	duration    time.Duration
	wallclock   bool
	removeRate  float64
	seed        uint64
	metricsAddr string
	workers     int64
	log         logFlags
}

func runSimulate(ctx context.Context, args []string) error {
	var cfg simulateConfig
	fset := flag.NewFlagSet("simulate", flag.ContinueOnError)
	fset.StringVar(&cfg.dir, "dir", "", "log directory (default $ELDBOOK_DIR or eldbook)")
	fset.IntVar(&cfg.entities, "entities", 200, "number of simulated entities")
	fset.IntVar(&cfg.tps, "tps", 20, "host ticks per second")
	fset.DurationVar(&cfg.duration, "duration", 30*time.Second, "run time, 0 runs until interrupted")
	fset.BoolVar(&cfg.wallclock, "wallclock", false, "rotate on a wall-clock ticker instead of the tick counter")
	fset.Float64Var(&cfg.removeRate, "remove-rate", 0.002, "per-tick probability that an entity is removed")
	fset.Uint64Var(&cfg.seed, "seed", 42, "random seed")
	fset.StringVar(&cfg.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :2112")
	fset.Int64Var(&cfg.workers, "workers", 1, "concurrent archival workers")
	fset.StringVar(&cfg.log.level, "log-level", "info", "log level")
	fset.BoolVar(&cfg.log.json, "log-json", false, "log as JSON")
	fset.StringVar(&cfg.log.diagLog, "diag-log", "", "also write diagnostics to this size-rotated file")
	if err := fset.Parse(args); err != nil {
		return err
	}
	if cfg.tps <= 0 {
		return fmt.Errorf("tps must be positive, got %d", cfg.tps)
	}
	return simulate(ctx, cfg)
}

func simulate(ctx context.Context, cfg simulateConfig) error {
	logger, closer, err := cfg.log.newLogger()
	if err != nil {
		return err
	}
	defer closer.Close()

	env := eldbook.ConfigFromEnv()
	if cfg.dir != "" {
		env.Dir = cfg.dir
	}

	reg := prometheus.NewRegistry()
	book, err := eldbook.Open(env,
		eldbook.WithLogger(logger),
		eldbook.WithMetricsCollector(NewPrometheusCollector(reg)),
		eldbook.WithResourceConfig(eldbook.ResourceConfig{MaxBackgroundWorkers: cfg.workers}),
	)
	if err != nil {
		return err
	}
	if !book.Enabled() {
		logger.Info("book bypassed, simulating without logging", "env", eldbook.EnvBypass)
	}

	if cfg.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.duration)
		defer cancel()
	}

	if err := book.Start(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.metricsAddr != "" {
		g.Go(func() error { return serveMetrics(gctx, cfg.metricsAddr, reg) })
	}
	if cfg.wallclock {
		g.Go(func() error { return book.Run(gctx, time.Second) })
	}
	g.Go(func() error {
		return newWorld(book, cfg).run(gctx, !cfg.wallclock)
	})

	runErr := g.Wait()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	stopErr := book.Stop(stopCtx)

	st := book.Stats()
	logger.Info("simulation finished",
		"recorded", st.Recorded,
		"dropped", st.Dropped,
		"redirected", st.Redirected,
		"archived", st.Archived,
		"archive_failed", st.ArchiveFailed,
	)
	if runErr != nil {
		return runErr
	}
	return stopErr
}

// world owns the simulated entities. It runs on a single goroutine, like
// a host tick loop.
type world struct {
	book       *eldbook.Book
	rng        *rand.Rand
	tps        int
	removeRate float64
	entities   []*simEntity
}

func newWorld(book *eldbook.Book, cfg simulateConfig) *world {
	w := &world{
		book:       book,
		rng:        rand.New(rand.NewPCG(cfg.seed, cfg.seed^0x9e3779b97f4a7c15)),
		tps:        cfg.tps,
		removeRate: cfg.removeRate,
	}
	for range cfg.entities {
		w.spawn(w.rng.IntN(4) == 0)
	}
	return w
}

func (w *world) spawn(loaded bool) {
	e := &simEntity{
		id:        uuid.New(),
		typ:       entityTypes[w.rng.IntN(len(entityTypes))],
		dimension: dimensions[w.rng.IntN(len(dimensions))],
		pos: record.Vec3{
			X: w.rng.Float64()*512 - 256,
			Y: 40 + w.rng.Float64()*60,
			Z: w.rng.Float64()*512 - 256,
		},
	}
	e.cb = w.book.Track(e, eldbook.PassThrough{})
	w.book.EntityAdded(e, loaded)
	w.entities = append(w.entities, e)
}

// step advances every entity by one tick.
func (w *world) step() {
	for i := 0; i < len(w.entities); {
		e := w.entities[i]
		if w.rng.Float64() < w.removeRate {
			e.cb.OnRemove(reasons[w.rng.IntN(len(reasons))])
			w.entities[i] = w.entities[len(w.entities)-1]
			w.entities = w.entities[:len(w.entities)-1]
			w.spawn(w.rng.IntN(2) == 0)
			continue
		}
		e.pos.X += w.rng.NormFloat64() * 0.4
		e.pos.Y += w.rng.NormFloat64() * 0.05
		e.pos.Z += w.rng.NormFloat64() * 0.4
		e.cb.OnMove()
		i++
	}
}

func (w *world) run(ctx context.Context, tickRotation bool) error {
	ticker := time.NewTicker(time.Second / time.Duration(w.tps))
	defer ticker.Stop()

	var tick uint64
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.step()
			if tickRotation {
				// Rotation failures are logged by the book; the host keeps ticking.
				_ = w.book.Tick(tick)
			}
			tick++
		}
	}
}
