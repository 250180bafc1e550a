package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/teacon/eldbook"
	"github.com/teacon/eldbook/internal/archive"
	"github.com/teacon/eldbook/internal/fs"
	"github.com/teacon/eldbook/internal/partition"
	"github.com/teacon/eldbook/internal/resource"
	"github.com/teacon/eldbook/record"
)

type sweepConfig struct {
	dir     string
	workers int64
	ioLimit int64
	level   int
	kinds   bool
	log     logFlags
}

// sweepSummary counts the outcome of an offline sweep.
type sweepSummary struct {
	Archived int
	Failed   int
	RawBytes int64
	GzBytes  int64

	// Kinds counts records per kind when -count-kinds is set. Lines that
	// carry no known kind are counted in Malformed.
	Kinds     map[record.Kind]int
	Malformed int
}

// attrs returns the per-kind counts as log attributes.
func (s sweepSummary) attrs() []any {
	var out []any
	for k := record.Create; k <= record.Leave; k++ {
		if n := s.Kinds[k]; n > 0 {
			out = append(out, "kind."+k.String(), n)
		}
	}
	if s.Malformed > 0 {
		out = append(out, "malformed", s.Malformed)
	}
	return out
}

func runSweep(ctx context.Context, args []string) error {
	var cfg sweepConfig
	fset := flag.NewFlagSet("sweep", flag.ContinueOnError)
	fset.StringVar(&cfg.dir, "dir", "", "log directory (default $ELDBOOK_DIR or eldbook)")
	fset.Int64Var(&cfg.workers, "workers", 2, "concurrent archival workers")
	fset.Int64Var(&cfg.ioLimit, "io-limit", 0, "read throughput limit in bytes per second, 0 is unlimited")
	fset.IntVar(&cfg.level, "level", gzip.DefaultCompression, "gzip level")
	fset.BoolVar(&cfg.kinds, "count-kinds", false, "count records per event kind before archiving")
	fset.StringVar(&cfg.log.level, "log-level", "info", "log level")
	fset.BoolVar(&cfg.log.json, "log-json", false, "log as JSON")
	fset.StringVar(&cfg.log.diagLog, "diag-log", "", "also write diagnostics to this size-rotated file")
	if err := fset.Parse(args); err != nil {
		return err
	}
	if cfg.dir == "" {
		cfg.dir = eldbook.ConfigFromEnv().Dir
	}

	logger, closer, err := cfg.log.newLogger()
	if err != nil {
		return err
	}
	defer closer.Close()

	sum, err := sweep(ctx, cfg, time.Now(), time.Local, logger)
	if err != nil {
		return err
	}
	logger.Info("sweep finished", append([]any{
		"dir", cfg.dir,
		"archived", sum.Archived,
		"failed", sum.Failed,
		"raw_bytes", sum.RawBytes,
		"archive_bytes", sum.GzBytes,
	}, sum.attrs()...)...)
	if sum.Failed > 0 {
		return fmt.Errorf("%d partitions failed to archive", sum.Failed)
	}
	return nil
}

// sweep archives every raw partition older than the hour of now in loc. It must
// not run while a book is writing to dir.
func sweep(ctx context.Context, cfg sweepConfig, now time.Time, loc *time.Location, logger *eldbook.Logger) (sweepSummary, error) {
	rc := resource.NewController(resource.Config{
		MaxBackgroundWorkers: cfg.workers,
		IOLimitBytesPerSec:   cfg.ioLimit,
	})
	pool := archive.NewPool(rc)
	defer pool.Close()

	var (
		mu  sync.Mutex
		sum sweepSummary
	)
	arc := archive.New(fs.Default, cfg.dir, func(o *archive.Options) {
		o.Executor = pool
		o.Resources = rc
		o.Level = cfg.level
		o.Logger = logger.WithComponent("archive").Logger
		o.OnResult = func(res archive.Result) {
			logger.LogArchive(ctx, res.Key.Name(), res.RawBytes, res.ArchiveBytes, res.Duration, res.Err)
			mu.Lock()
			defer mu.Unlock()
			if res.Err != nil {
				sum.Failed++
				return
			}
			sum.Archived++
			sum.RawBytes += res.RawBytes
			sum.GzBytes += res.ArchiveBytes
		}
	})

	stale, err := arc.Recover(partition.KeyOf(now, loc))
	if err != nil {
		return sweepSummary{}, err
	}
	if cfg.kinds {
		sum.Kinds = make(map[record.Kind]int)
		for _, k := range stale {
			path := filepath.Join(cfg.dir, partition.LogFileName(k))
			if err := countKinds(path, &sum); err != nil {
				return sweepSummary{}, fmt.Errorf("count %s: %w", partition.LogFileName(k), err)
			}
		}
	}
	for _, k := range stale {
		arc.Submit(k)
	}
	if err := pool.Wait(ctx); err != nil {
		return sweepSummary{}, err
	}

	mu.Lock()
	defer mu.Unlock()
	return sum, nil
}

// countKinds adds the records of the raw partition at path to sum.
func countKinds(path string, sum *sweepSummary) error {
	f, err := fs.Default.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64<<10), 16<<20)
	for sc.Scan() {
		k, err := record.KindOf(sc.Bytes())
		if err != nil {
			sum.Malformed++
			continue
		}
		sum.Kinds[k]++
	}
	return sc.Err()
}
