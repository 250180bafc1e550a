// Package resource bounds the cost of background archival.
//
// A [Controller] provides two limits:
//
//   - Concurrency: a weighted semaphore caps how many partitions are
//     compressed at once.
//   - IO: a token bucket caps how fast raw partition files are read, so
//     compression does not compete with the logging hot path for disk.
//
// Rate-limited reads:
//
//	rc := resource.NewController(resource.Config{
//	    MaxBackgroundWorkers: 2,
//	    IOLimitBytesPerSec:   32 << 20, // 32MB/s
//	})
//
//	if err := rc.AcquireBackground(ctx); err != nil {
//	    return err
//	}
//	defer rc.ReleaseBackground()
//	r := resource.NewRateLimitedReader(ctx, file, rc)
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully; they become no-ops.
package resource
