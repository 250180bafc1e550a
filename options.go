package eldbook

import (
	"log/slog"
	"time"

	"github.com/teacon/eldbook/internal/archive"
	"github.com/teacon/eldbook/internal/fs"
	"github.com/teacon/eldbook/internal/resource"
	"github.com/teacon/eldbook/internal/rotation"
	"github.com/teacon/eldbook/record"
)

// DefaultMaxContextBytes bounds the escaped diagnostic context of one record.
const DefaultMaxContextBytes = 8 << 10

type (
	// FileSystem abstracts the file operations of a book.
	FileSystem = fs.FileSystem

	// File is an open file of a FileSystem.
	File = fs.File

	// Executor runs archival tasks.
	Executor = archive.Executor

	// RetryPolicy bounds how archival retries transient failures.
	RetryPolicy = archive.RetryPolicy

	// ResourceConfig limits background archival concurrency and IO.
	ResourceConfig = resource.Config
)

// DefaultRetryPolicy retries archival three times starting at 100ms.
var DefaultRetryPolicy = archive.DefaultRetryPolicy

// ErrorHandler receives events that could not be recorded from a hook.
type ErrorHandler func(ev record.Event, err error)

// ContextProvider returns the diagnostic context attached to hook events.
type ContextProvider func() []string

type options struct {
	fs               FileSystem
	logger           *Logger
	clock            func() time.Time
	loc              *time.Location
	executor         Executor
	metricsCollector MetricsCollector
	tickInterval     uint64
	maxContextBytes  int
	retry            RetryPolicy
	resources        ResourceConfig
	gzipLevel        int
	errorHandler     ErrorHandler
	contextProvider  ContextProvider
	bypass           bool
}

// Option configures a Book.
type Option func(*options)

// WithFileSystem replaces the local file system, mostly for tests.
func WithFileSystem(fsys FileSystem) Option {
	return func(o *options) {
		o.fs = fsys
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := eldbook.NewJSONLogger(slog.LevelInfo)
//	book, _ := eldbook.New("./eldbook", eldbook.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithClock sets the time source of hook events and rotation sweeps.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithLocation sets the zone that hour partitions are cut in.
// The default is the process-local zone at the time New is called.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		o.loc = loc
	}
}

// WithExecutor runs archival on e instead of the built-in worker pool.
// Stop cannot wait for tasks scheduled on a foreign executor.
func WithExecutor(e Executor) Option {
	return func(o *options) {
		o.executor = e
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &eldbook.BasicMetricsCollector{}
//	book, _ := eldbook.New(dir, eldbook.WithMetricsCollector(metrics))
//	// ... use book ...
//	stats := metrics.GetStats()
//	fmt.Printf("Events: %d, Archives: %d\n", stats.EventCount, stats.ArchiveCount)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithTickInterval sets how many host ticks pass between rotation sweeps.
// The default of 20 matches one second of a 20 Hz host loop.
func WithTickInterval(n uint64) Option {
	return func(o *options) {
		o.tickInterval = n
	}
}

// WithMaxContextBytes bounds the escaped diagnostic context per record.
// n <= 0 disables the bound.
func WithMaxContextBytes(n int) Option {
	return func(o *options) {
		o.maxContextBytes = n
	}
}

// WithRetryPolicy configures archival retries.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(o *options) {
		o.retry = p
	}
}

// WithResourceConfig limits background archival.
//
// Example:
//
//	eldbook.WithResourceConfig(eldbook.ResourceConfig{
//	    MaxBackgroundWorkers: 2,
//	    IOLimitBytesPerSec:   32 << 20,
//	})
func WithResourceConfig(cfg ResourceConfig) Option {
	return func(o *options) {
		o.resources = cfg
	}
}

// WithGzipLevel sets the archive compression level (-2 to 9).
func WithGzipLevel(level int) Option {
	return func(o *options) {
		o.gzipLevel = level
	}
}

// WithErrorHandler receives hook events that could not be recorded.
// The default logs them.
func WithErrorHandler(h ErrorHandler) Option {
	return func(o *options) {
		o.errorHandler = h
	}
}

// WithContextProvider replaces the default stack capture of hook events.
func WithContextProvider(p ContextProvider) Option {
	return func(o *options) {
		o.contextProvider = p
	}
}

// WithBypass disables the book. See ELDBOOK_BYPASS.
func WithBypass(bypass bool) Option {
	return func(o *options) {
		o.bypass = bypass
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		fs:               fs.Default,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		clock:            time.Now,
		loc:              time.Local,
		tickInterval:     rotation.DefaultInterval,
		maxContextBytes:  DefaultMaxContextBytes,
		retry:            archive.DefaultRetryPolicy,
		gzipLevel:        archive.DefaultOptions.Level,
		contextProvider:  CallerContext,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.fs == nil {
		o.fs = fs.Default
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.clock == nil {
		o.clock = time.Now
	}
	if o.loc == nil {
		o.loc = time.Local
	}
	if o.contextProvider == nil {
		o.contextProvider = func() []string { return nil }
	}
	return o
}
