package registry

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/teacon/eldbook/internal/fs"
	"github.com/teacon/eldbook/internal/partition"
)

// DefaultBufferSize is the number of bytes a Writer buffers before it
// writes through to its file.
const DefaultBufferSize = 64 << 10

// ErrWriterClosed is returned by Write after Close.
var ErrWriterClosed = errors.New("partition writer closed")

// Writer is the append-only sink of one raw partition file.
//
// Unlike bufio.Writer a failed write-through does not poison the handle:
// bytes the file did not accept stay buffered and are retried by the next
// flush, and only the record that triggered the failure is rejected.
type Writer struct {
	mu     sync.Mutex
	key    partition.Key
	f      fs.File
	buf    []byte
	size   int
	n      int64 // bytes accepted
	closed bool
}

// NewWriter wraps an open file. size <= 0 selects DefaultBufferSize.
func NewWriter(key partition.Key, f fs.File, size int) *Writer {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Writer{key: key, f: f, size: size, buf: make([]byte, 0, size)}
}

// Key returns the partition the writer belongs to.
func (w *Writer) Key() partition.Key { return w.key }

// Path returns the name of the underlying file.
func (w *Writer) Path() string { return w.f.Name() }

// Write appends one complete record.
func (w *Writer) Write(p []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWriterClosed
	}
	if len(w.buf)+len(p) > w.size && len(w.buf) > 0 {
		if err := w.flushLocked(); err != nil {
			return err
		}
	}
	w.buf = append(w.buf, p...)
	w.n += int64(len(p))
	return nil
}

// Flush writes buffered records through to the file.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWriterClosed
	}
	return w.flushLocked()
}

func (w *Writer) flushLocked() error {
	for len(w.buf) > 0 {
		n, err := w.f.Write(w.buf)
		if n > 0 {
			w.buf = w.buf[:copy(w.buf, w.buf[n:])]
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
	}
	return nil
}

// Close flushes, syncs and closes the file. Only the first call has any
// effect; the file is closed even if the flush fails.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	ferr := w.flushLocked()
	var serr error
	if ferr == nil {
		serr = w.f.Sync()
	}
	cerr := w.f.Close()
	w.buf = nil
	return errors.Join(ferr, serr, cerr)
}

// Closed reports whether Close was called.
func (w *Writer) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

// Written returns the number of record bytes accepted so far.
func (w *Writer) Written() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.n
}

// Buffered returns the number of bytes not yet written to the file.
func (w *Writer) Buffered() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.buf)
}

// FileOpener returns an Opener that appends to <dir>/<key>.log, creating
// the file if needed.
func FileOpener(fsys fs.FileSystem, dir string, bufSize int) Opener {
	if fsys == nil {
		fsys = fs.Default
	}
	return func(key partition.Key) (*Writer, error) {
		path := filepath.Join(dir, partition.LogFileName(key))
		f, err := fsys.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, err
		}
		return NewWriter(key, f, bufSize), nil
	}
}
