// Package registry maps partition keys to their open writers.
//
// A Registry is shared between many producers appending records and the
// single rotation scheduler that evicts aged-out partitions. Producers only
// take the read lock on the hot path; creating a writer and every structural
// change take the write lock, so at most one writer ever exists per key.
package registry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/teacon/eldbook/internal/partition"
)

// ErrClosed is returned once the registry has been drained.
var ErrClosed = errors.New("registry closed")

// maxWriteAttempts bounds how often Write re-resolves a writer that was
// rotated out between lookup and append.
const maxWriteAttempts = 3

// Opener creates the writer for a key that has none.
type Opener func(key partition.Key) (*Writer, error)

// Entry is a (key, writer) pair captured by Snapshot.
type Entry struct {
	Key    partition.Key
	Writer *Writer
}

// Registry is a concurrency-safe key -> writer map.
type Registry struct {
	mu      sync.RWMutex
	writers map[partition.Key]*Writer
	floor   partition.Key
	closed  bool
	open    Opener
}

// New creates an empty registry.
func New(open Opener) *Registry {
	return &Registry{
		writers: make(map[partition.Key]*Writer),
		open:    open,
	}
}

// GetOrCreate returns the writer for key, opening it if absent.
//
// Keys older than the sealed floor resolve to the floor partition, since
// their raw file may already have been closed and archived.
func (r *Registry) GetOrCreate(key partition.Key) (*Writer, error) {
	r.mu.RLock()
	if !r.closed {
		if key.Before(r.floor) {
			key = r.floor
		}
		if w := r.writers[key]; w != nil {
			r.mu.RUnlock()
			return w, nil
		}
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}
	if key.Before(r.floor) {
		key = r.floor
	}
	if w := r.writers[key]; w != nil {
		return w, nil
	}
	w, err := r.open(key)
	if err != nil {
		return nil, fmt.Errorf("open partition %s: %w", key, err)
	}
	r.writers[key] = w
	return w, nil
}

// Write appends p to the partition for key and returns the key of the
// partition that actually received it.
func (r *Registry) Write(key partition.Key, p []byte) (partition.Key, error) {
	for range maxWriteAttempts {
		w, err := r.GetOrCreate(key)
		if err != nil {
			return key, err
		}
		err = w.Write(p)
		if errors.Is(err, ErrWriterClosed) {
			// Rotated out after lookup; resolve again.
			continue
		}
		if err != nil {
			return w.Key(), fmt.Errorf("write partition %s: %w", w.Key(), err)
		}
		return w.Key(), nil
	}
	return key, fmt.Errorf("write partition %s: %w", key, ErrWriterClosed)
}

// Snapshot returns the entries present at the time of the call.
func (r *Registry) Snapshot() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]Entry, 0, len(r.writers))
	for k, w := range r.writers {
		entries = append(entries, Entry{Key: k, Writer: w})
	}
	return entries
}

// Remove deletes key only if it still maps to w.
func (r *Registry) Remove(key partition.Key, w *Writer) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.writers[key]; ok && cur == w {
		delete(r.writers, key)
		return true
	}
	return false
}

// Seal raises the floor to key. Later writes for older keys are redirected
// to the floor partition. The floor never moves backwards.
func (r *Registry) Seal(key partition.Key) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.floor.Before(key) {
		r.floor = key
	}
}

// Floor returns the current sealed floor.
func (r *Registry) Floor() partition.Key {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.floor
}

// Drain marks the registry closed, empties it and returns every entry it
// held. The caller owns closing the returned writers.
func (r *Registry) Drain() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	entries := make([]Entry, 0, len(r.writers))
	for k, w := range r.writers {
		entries = append(entries, Entry{Key: k, Writer: w})
	}
	clear(r.writers)
	return entries
}

// Closed reports whether Drain was called.
func (r *Registry) Closed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}

// Len returns the number of open partitions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.writers)
}
