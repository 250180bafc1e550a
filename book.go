package eldbook

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"

	"github.com/teacon/eldbook/internal/archive"
	"github.com/teacon/eldbook/internal/partition"
	"github.com/teacon/eldbook/internal/pool"
	"github.com/teacon/eldbook/internal/registry"
	"github.com/teacon/eldbook/internal/resource"
	"github.com/teacon/eldbook/internal/rotation"
	"github.com/teacon/eldbook/record"
)

const (
	stateNew int32 = iota
	stateStarted
	stateStopped
)

// Stats is a point-in-time view of a book.
type Stats struct {
	Recorded       int64
	Dropped        int64
	Redirected     int64
	OpenPartitions int
	Archived       int64
	ArchiveFailed  int64
}

// Book is the lifecycle log service. It is safe for concurrent use.
type Book struct {
	dir     string
	opts    options
	enabled bool

	reg     *registry.Registry
	arc     *archive.Archiver
	rot     *rotation.Scheduler
	workers *archive.Pool // nil with a foreign executor

	lifecycle sync.Mutex
	state     atomic.Int32

	recorded      atomic.Int64
	dropped       atomic.Int64
	redirected    atomic.Int64
	archived      atomic.Int64
	archiveFailed atomic.Int64
}

// New builds a book writing to dir. A bypassed book touches nothing on disk.
func New(dir string, optFns ...Option) (*Book, error) {
	o := applyOptions(optFns)
	b := &Book{dir: dir, opts: o, enabled: !o.bypass}
	if !b.enabled {
		return b, nil
	}
	if dir == "" {
		b.dir = DefaultDir
	}
	if o.gzipLevel < gzip.HuffmanOnly || o.gzipLevel > gzip.BestCompression {
		return nil, fmt.Errorf("eldbook: invalid gzip level %d", o.gzipLevel)
	}

	rc := resource.NewController(o.resources)
	exec := o.executor
	if exec == nil {
		b.workers = archive.NewPool(rc)
		exec = b.workers
	}

	b.arc = archive.New(o.fs, b.dir, func(ao *archive.Options) {
		ao.Executor = exec
		ao.Logger = o.logger.WithComponent("archive").Logger
		ao.Resources = rc
		ao.Retry = o.retry
		ao.Level = o.gzipLevel
		ao.OnResult = b.onArchive
	})
	b.reg = registry.New(registry.FileOpener(o.fs, b.dir, 0))
	b.rot = rotation.New(b.reg, b.arc, o.loc, o.clock, o.logger.WithComponent("rotation").Logger, o.tickInterval)
	return b, nil
}

// Open builds a book from process configuration. Options override cfg.
func Open(cfg Config, optFns ...Option) (*Book, error) {
	return New(cfg.Dir, append([]Option{WithBypass(cfg.Bypass)}, optFns...)...)
}

// Enabled reports whether the kill switch left the book active.
func (b *Book) Enabled() bool { return b.enabled }

// Dir returns the log directory.
func (b *Book) Dir() string { return b.dir }

// Start creates the log directory, archives partitions left raw by an
// earlier run and opens the current partition.
func (b *Book) Start(ctx context.Context) error {
	if !b.enabled {
		return nil
	}
	b.lifecycle.Lock()
	defer b.lifecycle.Unlock()

	switch b.state.Load() {
	case stateStarted:
		return nil
	case stateStopped:
		return ErrClosed
	}

	stale, err := b.start()
	b.opts.logger.LogStart(ctx, b.dir, len(stale), err)
	if err != nil {
		return err
	}
	b.state.Store(stateStarted)
	return nil
}

func (b *Book) start() ([]partition.Key, error) {
	if err := b.opts.fs.MkdirAll(b.dir, 0755); err != nil {
		return nil, fmt.Errorf("eldbook: create log dir: %w", err)
	}

	nowKey := partition.KeyOf(b.now(), b.opts.loc)
	stale, err := b.arc.Recover(nowKey)
	if err != nil {
		return nil, fmt.Errorf("eldbook: recover: %w", err)
	}
	// Recovered partitions are closed for good; late events go to the
	// current hour.
	b.reg.Seal(nowKey)
	for _, k := range stale {
		b.arc.Submit(k)
	}

	if _, err := b.reg.GetOrCreate(nowKey); err != nil {
		return stale, fmt.Errorf("eldbook: %w", err)
	}
	return stale, nil
}

// Tick advances the host tick counter. Every tick interval it sweeps: past
// hours are closed and archived and the current hour is flushed.
func (b *Book) Tick(tick uint64) error {
	if !b.enabled {
		return nil
	}
	if err := b.checkState(); err != nil {
		return err
	}
	rep, err := b.rot.OnTick(tick)
	if rep.Now.IsZero() {
		return err
	}
	b.reportRotation(context.Background(), rep, err)
	return err
}

// Sweep runs a rotation sweep now, independent of the tick counter.
func (b *Book) Sweep(ctx context.Context) error {
	if !b.enabled {
		return nil
	}
	if err := b.checkState(); err != nil {
		return err
	}
	rep, err := b.rot.Sweep(b.now())
	b.reportRotation(ctx, rep, err)
	return err
}

// Run sweeps every period until ctx is done or the book is stopped, for
// hosts without a tick loop. A non-positive period sweeps once a second.
func (b *Book) Run(ctx context.Context, period time.Duration) error {
	if !b.enabled {
		return nil
	}
	if err := b.checkState(); err != nil {
		return err
	}
	return b.rot.Run(ctx, period, func(rep rotation.Report, err error) {
		b.reportRotation(ctx, rep, err)
	})
}

func (b *Book) reportRotation(ctx context.Context, rep rotation.Report, err error) {
	b.opts.metricsCollector.RecordRotation(len(rep.Closed), rep.Flushed, err)
	b.opts.logger.LogRotation(ctx, rep.Now.Name(), len(rep.Closed), rep.Flushed, err)
}

// Stop closes every open partition and archives those of past hours. The
// current hour stays raw and is appended to by the next run. Stop waits for
// in-flight archival until ctx is done, then cancels it and returns without
// waiting further; unfinished partitions are picked up by the next Start.
func (b *Book) Stop(ctx context.Context) error {
	if !b.enabled {
		return nil
	}
	b.lifecycle.Lock()
	defer b.lifecycle.Unlock()

	switch b.state.Swap(stateStopped) {
	case stateStopped:
		return ErrClosed
	case stateNew:
		return b.closePool(ctx)
	}

	rep, err := b.rot.Shutdown(b.now())
	b.opts.metricsCollector.RecordRotation(len(rep.Closed), rep.Flushed, err)
	if werr := b.closePool(ctx); werr != nil {
		err = errors.Join(err, fmt.Errorf("eldbook: wait for archival: %w", werr))
	}
	b.opts.logger.LogStop(ctx, len(rep.Closed), err)
	return err
}

func (b *Book) closePool(ctx context.Context) error {
	if b.workers == nil {
		return nil
	}
	if err := b.workers.Wait(ctx); err != nil {
		// Abandoned tasks remove their temp files when they return; the raw
		// files are picked up by Recover.
		b.workers.Cancel()
		return err
	}
	b.workers.Close()
	return nil
}

func (b *Book) checkState() error {
	switch b.state.Load() {
	case stateNew:
		return ErrNotStarted
	case stateStopped:
		return ErrClosed
	}
	return nil
}

// Record appends ev to the partition of its hour. A zero ev.Time is
// replaced with the current time. Events of an hour that was already
// rotated land in the current partition.
func (b *Book) Record(ev record.Event) error {
	if !b.enabled {
		return ErrBypassed
	}
	err := b.record(ev)
	b.opts.metricsCollector.RecordEvent(ev.Kind.String(), err)
	if err != nil {
		b.dropped.Add(1)
	}
	return err
}

func (b *Book) record(ev record.Event) error {
	if err := b.checkState(); err != nil {
		return err
	}
	if ev.Time.IsZero() {
		ev.Time = b.now()
	}
	key := partition.KeyOf(ev.Time, b.opts.loc)

	// The writer copies the line, so the buffer goes straight back.
	line := pool.Get()
	*line = record.AppendFormat(*line, ev, b.opts.maxContextBytes)
	got, err := b.reg.Write(key, *line)
	pool.Put(line)
	if errors.Is(err, registry.ErrClosed) {
		return ErrClosed
	}
	if err != nil {
		return err
	}
	b.recorded.Add(1)
	if got != key {
		b.redirected.Add(1)
	}
	return nil
}

// RecordEvent is Record with the event fields spelled out.
func (b *Book) RecordEvent(t time.Time, kind record.Kind, id uuid.UUID, entityType, dimension string, pos record.Vec3, stack []string) error {
	return b.Record(record.Event{
		Time:       t,
		Kind:       kind,
		EntityID:   id,
		EntityType: entityType,
		Dimension:  dimension,
		Pos:        pos,
		Context:    stack,
	})
}

// Stats returns current counters.
func (b *Book) Stats() Stats {
	s := Stats{
		Recorded:      b.recorded.Load(),
		Dropped:       b.dropped.Load(),
		Redirected:    b.redirected.Load(),
		Archived:      b.archived.Load(),
		ArchiveFailed: b.archiveFailed.Load(),
	}
	if b.reg != nil {
		s.OpenPartitions = b.reg.Len()
	}
	return s
}

func (b *Book) onArchive(res archive.Result) {
	if res.Err != nil {
		b.archiveFailed.Add(1)
	} else {
		b.archived.Add(1)
	}
	b.opts.metricsCollector.RecordArchive(res.Duration, res.RawBytes, res.ArchiveBytes, res.Err)
	b.opts.logger.LogArchive(context.Background(), res.Key.Name(), res.RawBytes, res.ArchiveBytes, res.Duration, res.Err)
}

func (b *Book) now() time.Time {
	return b.opts.clock().In(b.opts.loc)
}
