package eldbook

import (
	"errors"

	"github.com/teacon/eldbook/internal/rotation"
)

var (
	// ErrClosed is returned when an operation is attempted on a stopped book.
	ErrClosed = errors.New("eldbook: book closed")

	// ErrNotStarted is returned when events arrive before Start.
	ErrNotStarted = errors.New("eldbook: book not started")

	// ErrBypassed is returned by Record when the kill switch disabled the
	// book. The event was not persisted.
	ErrBypassed = errors.New("eldbook: book bypassed")
)

// PartitionError reports a failed operation on a single partition.
//
// Rotation errors are joined from one PartitionError per failed partition;
// use errors.As to inspect them.
type PartitionError = rotation.PartitionError
