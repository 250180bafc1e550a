// Package rotation closes partitions whose hour has passed and hands them to
// archival.
//
// A sweep seals the registry floor at the current hour before it scans, so
// producers racing with the sweep cannot recreate a key that is about to be
// closed. Every stale writer is removed, closed once and submitted; the
// current writer is only flushed.
package rotation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/teacon/eldbook/internal/partition"
	"github.com/teacon/eldbook/internal/registry"
)

// DefaultInterval is the number of host ticks between sweeps.
const DefaultInterval = 20

// DefaultPeriod is the wall-clock sweep period Run uses for a non-positive
// period. It matches DefaultInterval at 20 host ticks per second.
const DefaultPeriod = time.Second

// Submitter receives closed partitions for archival. Submit must not block
// on the archival itself.
type Submitter interface {
	Submit(key partition.Key)
}

// PartitionError reports a failed operation on one partition.
type PartitionError struct {
	Partition string
	Op        string
	Err       error
}

func (e *PartitionError) Error() string {
	return fmt.Sprintf("partition %s: %s: %v", e.Partition, e.Op, e.Err)
}

func (e *PartitionError) Unwrap() error { return e.Err }

// Report summarizes one sweep. A zero Report from OnTick means no sweep ran.
type Report struct {
	Now partition.Key
	// Closed lists the partitions that were closed, oldest first.
	Closed []partition.Key
	// Submitted lists the closed partitions handed to archival.
	Submitted []partition.Key
	Flushed   int
	Failed    int
}

// Scheduler runs rotation sweeps over a registry.
type Scheduler struct {
	reg      *registry.Registry
	sub      Submitter
	loc      *time.Location
	clock    func() time.Time
	log      *slog.Logger
	interval uint64

	mu sync.Mutex // serializes sweeps
}

// New creates a scheduler. A nil clock uses time.Now, a nil logger discards
// and an interval of 0 uses DefaultInterval.
func New(reg *registry.Registry, sub Submitter, loc *time.Location, clock func() time.Time, logger *slog.Logger, interval uint64) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if interval == 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		reg:      reg,
		sub:      sub,
		loc:      loc,
		clock:    clock,
		log:      logger,
		interval: interval,
	}
}

// Interval returns the number of ticks between sweeps.
func (s *Scheduler) Interval() uint64 { return s.interval }

// Due reports whether tick triggers a sweep.
func (s *Scheduler) Due(tick uint64) bool {
	return tick%s.interval == s.interval-1
}

// OnTick sweeps when tick is due and does nothing otherwise.
func (s *Scheduler) OnTick(tick uint64) (Report, error) {
	if !s.Due(tick) {
		return Report{}, nil
	}
	return s.Sweep(s.clock())
}

// Sweep closes and submits every partition older than the hour of now and
// flushes the rest. It attempts every partition and returns the joined
// failures afterwards. A partition whose close failed is dropped from the
// registry but not submitted, since its raw file may be incomplete.
func (s *Scheduler) Sweep(now time.Time) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nowKey := partition.KeyOf(now, s.loc)
	s.reg.Seal(nowKey)

	rep := Report{Now: nowKey}
	var errs []error
	for _, e := range sortedSnapshot(s.reg.Snapshot()) {
		if !e.Key.Before(nowKey) {
			if err := e.Writer.Flush(); err != nil {
				rep.Failed++
				errs = append(errs, &PartitionError{Partition: e.Key.Name(), Op: "flush", Err: err})
				continue
			}
			rep.Flushed++
			continue
		}

		if !s.reg.Remove(e.Key, e.Writer) {
			continue
		}
		if err := s.close(e, nowKey, &rep); err != nil {
			errs = append(errs, err)
		}
	}

	err := errors.Join(errs...)
	s.logReport("rotation sweep", rep, err)
	return rep, err
}

// Shutdown drains the registry and closes every partition. Only partitions
// older than the hour of now are submitted; the current one stays raw and is
// appended to by the next run.
func (s *Scheduler) Shutdown(now time.Time) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nowKey := partition.KeyOf(now, s.loc)
	rep := Report{Now: nowKey}
	var errs []error
	for _, e := range sortedSnapshot(s.reg.Drain()) {
		if err := s.close(e, nowKey, &rep); err != nil {
			errs = append(errs, err)
		}
	}

	err := errors.Join(errs...)
	s.logReport("rotation shutdown", rep, err)
	return rep, err
}

func (s *Scheduler) close(e registry.Entry, nowKey partition.Key, rep *Report) error {
	if err := e.Writer.Close(); err != nil {
		rep.Failed++
		return &PartitionError{Partition: e.Key.Name(), Op: "close", Err: err}
	}
	rep.Closed = append(rep.Closed, e.Key)
	s.log.Debug("partition closed",
		"partition", e.Key.Name(),
		"path", e.Writer.Path(),
		"bytes", e.Writer.Written(),
	)
	if e.Key.Before(nowKey) && s.sub != nil {
		s.sub.Submit(e.Key)
		rep.Submitted = append(rep.Submitted, e.Key)
	}
	return nil
}

func (s *Scheduler) logReport(msg string, rep Report, err error) {
	s.log.Debug(msg,
		"now", rep.Now.Name(),
		"closed", len(rep.Closed),
		"submitted", len(rep.Submitted),
		"flushed", rep.Flushed,
		"failed", rep.Failed,
		"error", err,
	)
}

// Run sweeps every period until ctx is done or the registry was drained by
// Shutdown. A non-positive period uses DefaultPeriod. onSweep, if set,
// observes every sweep.
func (s *Scheduler) Run(ctx context.Context, period time.Duration, onSweep func(Report, error)) error {
	if period <= 0 {
		period = DefaultPeriod
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if s.reg.Closed() {
				return nil
			}
			rep, err := s.Sweep(s.clock())
			if onSweep != nil {
				onSweep(rep, err)
			}
		}
	}
}

func sortedSnapshot(entries []registry.Entry) []registry.Entry {
	slices.SortFunc(entries, func(a, b registry.Entry) int {
		switch {
		case a.Key.Before(b.Key):
			return -1
		case b.Key.Before(a.Key):
			return 1
		default:
			return 0
		}
	})
	return entries
}
