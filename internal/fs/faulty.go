package fs

import (
	"errors"
	"os"
	"strings"
	"sync"
)

// ErrInjected is the default error returned by injected faults.
var ErrInjected = errors.New("injected fault error")

// Fault defines specific failure behavior.
type Fault struct {
	FailOnOpen   bool // OpenFile and CreateTemp
	FailOnSync   bool
	FailOnClose  bool
	FailOnRename bool // matches either path
	FailOnRemove bool

	// FailWrites makes writes fail once FailAfterBytes bytes were written to
	// a single file opened under this rule.
	FailWrites     bool
	FailAfterBytes int64

	// Times limits how often the rule fires. 0 means every time.
	Times int
	Err   error
}

type faultRule struct {
	Fault
	fired int
}

// FaultyFS is a FileSystem wrapper that can inject errors.
type FaultyFS struct {
	FS FileSystem

	mu          sync.Mutex
	rules       map[string]*faultRule // Substring pattern -> rule
	written     int64
	globalLimit int64
}

// NewFaultyFS creates a new FaultyFS wrapping the provided FS (or Default if nil).
func NewFaultyFS(fs FileSystem) *FaultyFS {
	if fs == nil {
		fs = Default
	}
	return &FaultyFS{
		FS:          fs,
		rules:       make(map[string]*faultRule),
		globalLimit: -1,
	}
}

// GetWritten returns the total bytes written through this FS.
func (f *FaultyFS) GetWritten() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.written
}

// SetLimit makes every write fail once the total across all files would
// exceed limit. -1 disables the limit.
func (f *FaultyFS) SetLimit(limit int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.globalLimit = limit
}

// AddRule adds a fault injection rule for names containing pattern.
func (f *FaultyFS) AddRule(pattern string, fault Fault) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules[pattern] = &faultRule{Fault: fault}
}

// ClearRules removes every rule.
func (f *FaultyFS) ClearRules() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = make(map[string]*faultRule)
}

// fire returns the injected error for the first matching rule that selects
// the operation and still has budget left.
func (f *FaultyFS) fire(sel func(Fault) bool, names ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for pattern, rule := range f.rules {
		if !sel(rule.Fault) || !matches(pattern, names) {
			continue
		}
		if rule.Times > 0 && rule.fired >= rule.Times {
			continue
		}
		rule.fired++
		if rule.Err != nil {
			return rule.Err
		}
		return ErrInjected
	}
	return nil
}

func matches(pattern string, names []string) bool {
	for _, n := range names {
		if strings.Contains(n, pattern) {
			return true
		}
	}
	return false
}

func (f *FaultyFS) wrap(file File) File {
	return &faultyFile{File: file, fs: f}
}

func (f *FaultyFS) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	if err := f.fire(func(r Fault) bool { return r.FailOnOpen }, name); err != nil {
		return nil, &os.PathError{Op: "open", Path: name, Err: err}
	}
	file, err := f.FS.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return f.wrap(file), nil
}

func (f *FaultyFS) CreateTemp(dir, pattern string) (File, error) {
	if err := f.fire(func(r Fault) bool { return r.FailOnOpen }, pattern); err != nil {
		return nil, &os.PathError{Op: "createtemp", Path: pattern, Err: err}
	}
	file, err := f.FS.CreateTemp(dir, pattern)
	if err != nil {
		return nil, err
	}
	return f.wrap(file), nil
}

func (f *FaultyFS) Remove(name string) error {
	if err := f.fire(func(r Fault) bool { return r.FailOnRemove }, name); err != nil {
		return &os.PathError{Op: "remove", Path: name, Err: err}
	}
	return f.FS.Remove(name)
}

func (f *FaultyFS) Rename(oldpath, newpath string) error {
	if err := f.fire(func(r Fault) bool { return r.FailOnRename }, oldpath, newpath); err != nil {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: err}
	}
	return f.FS.Rename(oldpath, newpath)
}

func (f *FaultyFS) Stat(name string) (os.FileInfo, error) {
	return f.FS.Stat(name)
}

func (f *FaultyFS) MkdirAll(path string, perm os.FileMode) error {
	if err := f.fire(func(r Fault) bool { return r.FailOnOpen }, path); err != nil {
		return &os.PathError{Op: "mkdir", Path: path, Err: err}
	}
	return f.FS.MkdirAll(path, perm)
}

func (f *FaultyFS) ReadDir(name string) ([]os.DirEntry, error) {
	return f.FS.ReadDir(name)
}

type faultyFile struct {
	File
	fs      *FaultyFS
	written int64
}

func (ff *faultyFile) Write(p []byte) (n int, err error) {
	// Per-file rules are checked before the global counter moves.
	ff.fs.mu.Lock()
	for pattern, rule := range ff.fs.rules {
		if !rule.FailWrites || !strings.Contains(ff.Name(), pattern) {
			continue
		}
		if rule.Times > 0 && rule.fired >= rule.Times {
			continue
		}
		if ff.written+int64(len(p)) > rule.FailAfterBytes {
			rule.fired++
			err = rule.Err
			if err == nil {
				err = ErrInjected
			}
			ff.fs.mu.Unlock()
			return 0, err
		}
	}
	globalExceeded := ff.fs.globalLimit >= 0 && ff.fs.written+int64(len(p)) > ff.fs.globalLimit
	if !globalExceeded {
		ff.fs.written += int64(len(p))
	}
	ff.fs.mu.Unlock()

	if globalExceeded {
		return 0, ErrInjected
	}

	n, err = ff.File.Write(p)
	if n > 0 {
		ff.written += int64(n)
	}
	return n, err
}

func (ff *faultyFile) Sync() error {
	if err := ff.fs.fire(func(r Fault) bool { return r.FailOnSync }, ff.Name()); err != nil {
		return err
	}
	return ff.File.Sync()
}

func (ff *faultyFile) Close() error {
	if err := ff.fs.fire(func(r Fault) bool { return r.FailOnClose }, ff.Name()); err != nil {
		_ = ff.File.Close()
		return err
	}
	return ff.File.Close()
}
