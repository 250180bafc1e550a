package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teacon/eldbook"
	"github.com/teacon/eldbook/record"
)

func TestPrometheusCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewPrometheusCollector(reg)

	c.RecordEvent("ENTER", nil)
	c.RecordEvent("ENTER", nil)
	c.RecordEvent("DROP", assert.AnError)
	c.RecordRotation(3, 1, nil)
	c.RecordArchive(time.Millisecond, 1000, 100, nil)
	c.RecordArchive(time.Millisecond, 500, 0, assert.AnError)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.events.WithLabelValues("ENTER", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.events.WithLabelValues("DROP", "error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.closed))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.archives.WithLabelValues("error")))
	assert.Equal(t, 1000.0, testutil.ToFloat64(c.archiveRawBytes))
	assert.Equal(t, 100.0, testutil.ToFloat64(c.archiveGzBytes))

	n, err := testutil.GatherAndCount(reg, "eldbook_archive_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestServeMetrics_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- serveMetrics(ctx, "127.0.0.1:0", prometheus.NewRegistry()) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("metrics server did not stop")
	}
}

func TestLogFlags_DiagLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diag.log")
	logger, closer, err := logFlags{level: "debug", json: true, diagLog: path}.newLogger()
	require.NoError(t, err)

	logger.Debug("hello", "k", "v")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)

	_, _, err = logFlags{level: "loud"}.newLogger()
	assert.Error(t, err)
}

func TestSweep_ArchivesStalePartitions(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"2024-03-01T18.log", "2024-03-01T19.log", "2024-03-01T20.log"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name+"\n"), 0644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2024-03-01T17.log.gz.tmp-1"), []byte("junk"), 0644))

	now := time.Date(2024, time.March, 1, 20, 30, 0, 0, time.UTC)
	sum, err := sweep(t.Context(), sweepConfig{dir: dir, workers: 2, level: gzip.BestSpeed}, now, time.UTC, eldbook.NoopLogger())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Archived)
	assert.Zero(t, sum.Failed)

	for _, name := range []string{"2024-03-01T18.log", "2024-03-01T19.log"} {
		f, err := os.Open(filepath.Join(dir, name+".gz"))
		require.NoError(t, err)
		zr, err := gzip.NewReader(f)
		require.NoError(t, err)
		data, err := io.ReadAll(zr)
		require.NoError(t, err)
		f.Close()
		assert.Equal(t, name+"\n", string(data))
	}
	_, err = os.Stat(filepath.Join(dir, "2024-03-01T20.log"))
	assert.NoError(t, err, "current hour is left raw")
	_, err = os.Stat(filepath.Join(dir, "2024-03-01T17.log.gz.tmp-1"))
	assert.True(t, os.IsNotExist(err))
}

func TestSweep_CountsKinds(t *testing.T) {
	dir := t.TempDir()
	var raw []byte
	for _, k := range []record.Kind{record.Create, record.Enter, record.Leave, record.Enter} {
		raw = append(raw, record.Format(record.Event{Kind: k, EntityType: "minecraft:cow"}, 0)...)
	}
	raw = append(raw, "not a record\n"...)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2024-03-01T19.log"), raw, 0644))

	now := time.Date(2024, time.March, 1, 20, 30, 0, 0, time.UTC)
	sum, err := sweep(t.Context(), sweepConfig{dir: dir, workers: 1, level: gzip.BestSpeed, kinds: true}, now, time.UTC, eldbook.NoopLogger())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Archived)
	assert.Equal(t, map[record.Kind]int{record.Create: 1, record.Enter: 2, record.Leave: 1}, sum.Kinds)
	assert.Equal(t, 1, sum.Malformed)
	assert.Equal(t, []any{"kind.CREATE", 1, "kind.ENTER", 2, "kind.LEAVE", 1, "malformed", 1}, sum.attrs())
}

func TestWorld_Step(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "eldbook")
	book, err := eldbook.New(dir, eldbook.WithLocation(time.UTC))
	require.NoError(t, err)
	require.NoError(t, book.Start(t.Context()))

	w := newWorld(book, simulateConfig{entities: 50, tps: 20, removeRate: 0.05, seed: 7})
	require.Len(t, w.entities, 50)
	for tick := range uint64(100) {
		w.step()
		require.NoError(t, book.Tick(tick))
	}
	assert.Len(t, w.entities, 50, "removed entities are replaced")
	require.NoError(t, book.Stop(t.Context()))

	st := book.Stats()
	assert.Greater(t, st.Recorded, int64(50))
	assert.Zero(t, st.Dropped)
}

func TestRunSimulate_Bypassed(t *testing.T) {
	t.Setenv(eldbook.EnvBypass, "true")
	dir := filepath.Join(t.TempDir(), "never")

	err := runSimulate(t.Context(), []string{"-dir", dir, "-duration", "50ms", "-entities", "5", "-log-level", "error"})
	require.NoError(t, err)

	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}
