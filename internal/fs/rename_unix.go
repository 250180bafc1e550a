//go:build unix

package fs

import (
	"errors"

	"golang.org/x/sys/unix"
)

// IsAtomicRenameUnsupported reports whether err from Rename means the
// filesystem could not perform the rename in place.
func IsAtomicRenameUnsupported(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrAtomicRenameUnsupported) ||
		errors.Is(err, unix.EXDEV) ||
		errors.Is(err, unix.ENOTSUP)
}
