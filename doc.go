// Package eldbook records simulation entity lifecycle events into
// hour-partitioned, append-only log files and compresses every finished
// hour in the background.
//
// # Quick Start
//
//	book, err := eldbook.Open(eldbook.ConfigFromEnv(),
//	    eldbook.WithLogger(eldbook.NewTextLogger(slog.LevelInfo)),
//	)
//	if err != nil {
//	    return err
//	}
//	if err := book.Start(ctx); err != nil {
//	    return err
//	}
//	defer book.Stop(ctx)
//
//	// host tick loop
//	for tick := uint64(0); ; tick++ {
//	    _ = book.Tick(tick)
//	}
//
// # Hooks
//
// Hosts attach the book to their entities with [Book.Track], which wraps the
// entity's existing callback, and report additions with [Book.EntityAdded]:
//
//	cb := book.Track(entity, existing)
//	book.EntityAdded(entity, fromDisk)
//
// Movement inside a 16x16x16 section is not logged. Crossing a section
// boundary logs a LEAVE at the old position and an ENTER at the new one.
//
// # Files
//
// Records for the hour 2024-03-01 19:00 go to <dir>/2024-03-01T19.log. Once
// the hour has passed and a rotation sweep ran, the file is replaced by
// <dir>/2024-03-01T19.log.gz. The archive is written to a temporary file and
// renamed into place, so readers see either the raw file or the complete
// archive. On filesystems without atomic rename the archive is copied instead
// and a failed copy is removed, leaving the raw file for the next attempt.
//
// # Kill Switch
//
// Setting ELDBOOK_BYPASS=true disables the book entirely. [Open] then creates
// no directory and [Book.Track] returns the host callback unchanged.
// [Book.Record] returns [ErrBypassed]; the remaining calls do nothing.
package eldbook
