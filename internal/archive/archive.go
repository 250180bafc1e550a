// Package archive compresses closed partitions in the background.
//
// Archiving a partition streams its raw .log file through gzip into a temp
// file in the same directory, renames the temp file over <name>.log.gz and
// finally deletes the raw file. A failure at any step before the delete
// leaves the raw file untouched and removes the temp file, so a partition is
// either fully archived or still raw; a partially written archive is never
// visible under its final name.
//
// Archival of one partition never affects another: each task retries on its
// own and reports exactly one [Result] to Options.OnResult, which owns
// reporting the outcome.
package archive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/teacon/eldbook/internal/fs"
	"github.com/teacon/eldbook/internal/partition"
	"github.com/teacon/eldbook/internal/resource"
)

// Result describes the outcome of one archival task.
type Result struct {
	Key          partition.Key
	Attempts     int
	RawBytes     int64
	ArchiveBytes int64
	Duration     time.Duration
	// Atomic is false when the archive was put in place by the
	// copy fallback.
	Atomic bool
	Err    error
}

// Options configures an Archiver.
type Options struct {
	Executor  Executor
	Logger    *slog.Logger
	Resources *resource.Controller
	Retry     RetryPolicy
	// Level is the gzip compression level.
	Level int
	// OnResult is called once per task, from the task's goroutine.
	OnResult func(Result)
}

// DefaultOptions archives inline with the default retry policy.
var DefaultOptions = Options{
	Executor: Inline{},
	Retry:    DefaultRetryPolicy,
	Level:    gzip.DefaultCompression,
}

// Archiver turns closed raw partitions into gzip archives.
type Archiver struct {
	fs   fs.FileSystem
	dir  string
	opts Options
	log  *slog.Logger
}

// New creates an Archiver for partitions stored in dir.
func New(fsys fs.FileSystem, dir string, optFns ...func(o *Options)) *Archiver {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if fsys == nil {
		fsys = fs.Default
	}
	if opts.Executor == nil {
		opts.Executor = Inline{}
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Archiver{fs: fsys, dir: dir, opts: opts, log: log}
}

// Dir returns the partition directory.
func (a *Archiver) Dir() string { return a.dir }

// Submit schedules archival of key on the executor and returns.
func (a *Archiver) Submit(key partition.Key) {
	a.opts.Executor.Go(func(ctx context.Context) {
		a.Archive(ctx, key)
	})
}

// Archive compresses the raw file of key, retrying transient failures.
func (a *Archiver) Archive(ctx context.Context, key partition.Key) Result {
	start := time.Now()
	res := Result{Key: key}
	policy := a.opts.Retry

	for attempt := 1; ; attempt++ {
		res.Attempts = attempt
		if err := ctx.Err(); err != nil {
			res.Err = err
			break
		}
		err := a.archiveOnce(ctx, key, &res)
		if err == nil {
			res.Err = nil
			break
		}
		res.Err = err
		if permanent(err) || attempt >= policy.attempts() {
			break
		}
		d := policy.backoff(attempt)
		a.log.Warn("archive attempt failed, retrying",
			"partition", key.Name(),
			"attempt", attempt,
			"backoff", d,
			"error", err,
		)
		if serr := sleep(ctx, d); serr != nil {
			res.Err = fmt.Errorf("%w (retry aborted: %w)", err, serr)
			break
		}
	}
	res.Duration = time.Since(start)

	a.log.Debug("archive finished",
		"partition", key.Name(),
		"attempts", res.Attempts,
		"raw_bytes", res.RawBytes,
		"archive_bytes", res.ArchiveBytes,
		"duration", res.Duration,
		"error", res.Err,
	)
	if a.opts.OnResult != nil {
		a.opts.OnResult(res)
	}
	return res
}

func (a *Archiver) archiveOnce(ctx context.Context, key partition.Key, res *Result) error {
	rawPath := filepath.Join(a.dir, partition.LogFileName(key))
	dstPath := filepath.Join(a.dir, partition.ArchiveFileName(key))

	in, err := a.fs.OpenFile(rawPath, os.O_RDONLY, 0)
	if err != nil {
		return fmt.Errorf("open raw partition: %w", err)
	}
	inOpen := true
	defer func() {
		if inOpen {
			_ = in.Close()
		}
	}()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat raw partition: %w", err)
	}

	tmp, err := a.fs.CreateTemp(a.dir, partition.TempPattern(key))
	if err != nil {
		return fmt.Errorf("create temp archive: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()          // Intentionally ignore: cleanup path
			_ = a.fs.Remove(tmpPath) // Intentionally ignore: best-effort cleanup
		}
	}()

	cw := &countingWriter{w: tmp}
	gz, err := gzip.NewWriterLevel(cw, a.opts.Level)
	if err != nil {
		return fmt.Errorf("gzip writer: %w", err)
	}
	gz.Name = partition.LogFileName(key)
	gz.ModTime = info.ModTime()

	n, err := io.Copy(gz, resource.NewRateLimitedReader(ctx, in, a.opts.Resources))
	if err != nil {
		return fmt.Errorf("compress: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("compress: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp archive: %w", err)
	}

	atomic, err := fs.Replace(a.fs, tmpPath, dstPath)
	if err != nil {
		return fmt.Errorf("replace archive: %w", err)
	}
	committed = true
	if !atomic {
		a.log.Warn("atomic rename unsupported, archive replaced by copy",
			"partition", key.Name(),
		)
	}
	// Best-effort: make the rename durable before the source disappears.
	_ = fs.SyncDir(a.fs, a.dir)

	res.RawBytes = n
	res.ArchiveBytes = cw.n
	res.Atomic = atomic

	inOpen = false
	_ = in.Close()
	if err := a.fs.Remove(rawPath); err != nil {
		return fmt.Errorf("remove raw partition: %w", err)
	}
	return nil
}

// Recover prepares dir after a restart. It deletes temp archives left by an
// interrupted compression and returns, oldest first, the raw partitions
// older than now that still await archival.
func (a *Archiver) Recover(now partition.Key) ([]partition.Key, error) {
	entries, err := a.fs.ReadDir(a.dir)
	if err != nil {
		return nil, fmt.Errorf("scan partition dir: %w", err)
	}

	var stale []partition.Key
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if partition.IsTempArchive(name) {
			if err := a.fs.Remove(filepath.Join(a.dir, name)); err != nil {
				a.log.Warn("failed to remove leftover temp archive", "file", name, "error", err)
			} else {
				a.log.Info("removed leftover temp archive", "file", name)
			}
			continue
		}
		if k, ok := partition.ParseLogFileName(name); ok && k.Before(now) {
			stale = append(stale, k)
		}
	}
	slices.SortFunc(stale, func(x, y partition.Key) int {
		switch {
		case x.Before(y):
			return -1
		case y.Before(x):
			return 1
		default:
			return 0
		}
	})
	return stale, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}
