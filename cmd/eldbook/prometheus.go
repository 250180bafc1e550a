package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusCollector implements eldbook.MetricsCollector.
type PrometheusCollector struct {
	events          *prometheus.CounterVec
	rotations       *prometheus.CounterVec
	closed          prometheus.Counter
	archives        *prometheus.CounterVec
	archiveLatency  prometheus.Histogram
	archiveRawBytes prometheus.Counter
	archiveGzBytes  prometheus.Counter
}

// NewPrometheusCollector creates the collector and registers it with reg.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	c := &PrometheusCollector{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eldbook_events_total",
			Help: "Lifecycle events by kind and outcome",
		}, []string{"kind", "status"}),
		rotations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eldbook_rotations_total",
			Help: "Rotation sweeps by outcome",
		}, []string{"status"}),
		closed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eldbook_partitions_closed_total",
			Help: "Partitions closed by rotation",
		}),
		archives: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eldbook_archives_total",
			Help: "Archival tasks by outcome",
		}, []string{"status"}),
		archiveLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "eldbook_archive_duration_seconds",
			Help:    "Duration of archival tasks including retries",
			Buckets: prometheus.DefBuckets,
		}),
		archiveRawBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eldbook_archive_raw_bytes_total",
			Help: "Raw bytes compressed by archival",
		}),
		archiveGzBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eldbook_archive_stored_bytes_total",
			Help: "Compressed bytes written by archival",
		}),
	}
	reg.MustRegister(
		c.events,
		c.rotations,
		c.closed,
		c.archives,
		c.archiveLatency,
		c.archiveRawBytes,
		c.archiveGzBytes,
	)
	return c
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (c *PrometheusCollector) RecordEvent(kind string, err error) {
	c.events.WithLabelValues(kind, status(err)).Inc()
}

func (c *PrometheusCollector) RecordRotation(closed, flushed int, err error) {
	c.rotations.WithLabelValues(status(err)).Inc()
	c.closed.Add(float64(closed))
}

func (c *PrometheusCollector) RecordArchive(d time.Duration, rawBytes, archiveBytes int64, err error) {
	c.archives.WithLabelValues(status(err)).Inc()
	c.archiveLatency.Observe(d.Seconds())
	if err == nil {
		c.archiveRawBytes.Add(float64(rawBytes))
		c.archiveGzBytes.Add(float64(archiveBytes))
	}
}

// serveMetrics exposes g on addr until ctx is done.
func serveMetrics(ctx context.Context, addr string, g prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
