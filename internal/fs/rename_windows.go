//go:build windows

package fs

import (
	"errors"

	"golang.org/x/sys/windows"
)

// IsAtomicRenameUnsupported reports whether err from Rename means the
// filesystem could not perform the rename in place.
func IsAtomicRenameUnsupported(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrAtomicRenameUnsupported) ||
		errors.Is(err, windows.ERROR_NOT_SAME_DEVICE) ||
		errors.Is(err, windows.ERROR_NOT_SUPPORTED)
}
