package eldbook

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    events *prometheus.CounterVec
//	}
//
//	func (p *PrometheusCollector) RecordEvent(kind string, err error) {
//	    p.events.WithLabelValues(kind, result(err)).Inc()
//	}
type MetricsCollector interface {
	// RecordEvent is called after each event write attempt.
	// kind is the event kind (CREATE, ENTER, ...), err is nil if the record
	// was accepted.
	RecordEvent(kind string, err error)

	// RecordRotation is called after each rotation sweep.
	// closed is the number of partitions closed, flushed the number of
	// current partitions flushed.
	RecordRotation(closed, flushed int, err error)

	// RecordArchive is called once per archival task.
	RecordArchive(duration time.Duration, rawBytes, archiveBytes int64, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordEvent(string, error)                        {}
func (NoopMetricsCollector) RecordRotation(int, int, error)                   {}
func (NoopMetricsCollector) RecordArchive(time.Duration, int64, int64, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	EventCount         atomic.Int64
	EventErrors        atomic.Int64
	RotationCount      atomic.Int64
	RotationErrors     atomic.Int64
	PartitionsClosed   atomic.Int64
	ArchiveCount       atomic.Int64
	ArchiveErrors      atomic.Int64
	ArchiveTotalNanos  atomic.Int64
	ArchiveRawBytes    atomic.Int64
	ArchiveStoredBytes atomic.Int64
}

// RecordEvent implements MetricsCollector.
func (b *BasicMetricsCollector) RecordEvent(kind string, err error) {
	b.EventCount.Add(1)
	if err != nil {
		b.EventErrors.Add(1)
	}
}

// RecordRotation implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRotation(closed, flushed int, err error) {
	b.RotationCount.Add(1)
	b.PartitionsClosed.Add(int64(closed))
	if err != nil {
		b.RotationErrors.Add(1)
	}
}

// RecordArchive implements MetricsCollector.
func (b *BasicMetricsCollector) RecordArchive(duration time.Duration, rawBytes, archiveBytes int64, err error) {
	b.ArchiveCount.Add(1)
	b.ArchiveTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.ArchiveErrors.Add(1)
		return
	}
	b.ArchiveRawBytes.Add(rawBytes)
	b.ArchiveStoredBytes.Add(archiveBytes)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		EventCount:         b.EventCount.Load(),
		EventErrors:        b.EventErrors.Load(),
		RotationCount:      b.RotationCount.Load(),
		RotationErrors:     b.RotationErrors.Load(),
		PartitionsClosed:   b.PartitionsClosed.Load(),
		ArchiveCount:       b.ArchiveCount.Load(),
		ArchiveErrors:      b.ArchiveErrors.Load(),
		ArchiveAvgNanos:    b.getAvgArchiveNanos(),
		ArchiveRawBytes:    b.ArchiveRawBytes.Load(),
		ArchiveStoredBytes: b.ArchiveStoredBytes.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgArchiveNanos() int64 {
	count := b.ArchiveCount.Load()
	if count == 0 {
		return 0
	}
	return b.ArchiveTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	EventCount         int64
	EventErrors        int64
	RotationCount      int64
	RotationErrors     int64
	PartitionsClosed   int64
	ArchiveCount       int64
	ArchiveErrors      int64
	ArchiveAvgNanos    int64
	ArchiveRawBytes    int64
	ArchiveStoredBytes int64
}
