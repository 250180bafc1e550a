// Package fs provides filesystem abstractions for testability and fault injection.
//
// The package defines two key interfaces:
//
//   - [File]: an open file with read/write/sync capabilities
//   - [FileSystem]: filesystem operations (open, create temp, remove, rename, etc.)
//
// # Implementations
//
//   - [LocalFS]: production implementation using the standard os package
//   - [FaultyFS]: test utility for fault injection (simulate I/O errors)
//
// # Usage
//
// Production code uses fs.Default (which is [LocalFS]):
//
//	file, err := fs.Default.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
//
// Tests inject [FaultyFS] to simulate failures:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule(".tmp-", fs.Fault{FailOnSync: true, Times: 1})
//	// inject ffs into the component under test
//
// # Replacing files
//
// [Replace] renames a finished temp file over its final name. When the
// platform reports that the rename cannot be done in place (see
// [IsAtomicRenameUnsupported]) it copies the bytes instead. The target is
// then briefly visible while partially written.
//
// # Design Notes
//
// This package intentionally does NOT include context.Context parameters.
// Local filesystem operations are non-interruptible at the syscall level.
package fs
