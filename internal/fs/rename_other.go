//go:build !unix && !windows

package fs

import "errors"

// IsAtomicRenameUnsupported reports whether err from Rename means the
// filesystem could not perform the rename in place.
func IsAtomicRenameUnsupported(err error) bool {
	return err != nil && errors.Is(err, ErrAtomicRenameUnsupported)
}
