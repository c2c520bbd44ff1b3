// Package storage provides the host filesystem that telemetry logs are
// written to.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/multierr"

	"dcservo/core"
)

// DefaultLogFile is the telemetry file name used when none is configured
const DefaultLogFile = "log3.txt"

// ErrNotMounted is returned when a Dir is used before Mount or after Unmount
var ErrNotMounted = errors.New("storage not mounted")

// Dir is a core.Storage backed by a host directory. Create truncates any
// existing file of the same name.
type Dir struct {
	Path string

	mu      sync.Mutex
	mounted bool
	open    map[*file]struct{}
}

// NewDir creates a Dir rooted at path
func NewDir(path string) *Dir {
	return &Dir{Path: path}
}

// Mount creates the directory if needed and makes the Dir usable
func (d *Dir) Mount() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.mounted {
		return nil
	}
	if err := os.MkdirAll(d.Path, 0o755); err != nil {
		return fmt.Errorf("mount %s: %w", d.Path, err)
	}
	d.mounted = true
	d.open = make(map[*file]struct{})
	return nil
}

// Create opens name for writing, replacing any previous content
func (d *Dir) Create(name string) (core.LogSink, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.mounted {
		return nil, ErrNotMounted
	}
	if name == "" {
		name = DefaultLogFile
	}
	f, err := os.OpenFile(filepath.Join(d.Path, filepath.Base(name)), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", name, err)
	}
	sink := &file{File: f, dir: d}
	d.open[sink] = struct{}{}
	return sink, nil
}

// Unmount closes any files still open and makes the Dir unusable
func (d *Dir) Unmount() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.mounted {
		return ErrNotMounted
	}
	var err error
	for f := range d.open {
		err = multierr.Append(err, f.File.Close())
	}
	d.open = nil
	d.mounted = false
	return err
}

// Mounted reports whether the Dir is mounted
func (d *Dir) Mounted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mounted
}

func (d *Dir) release(f *file) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.open, f)
}

// file is an *os.File that leaves its Dir's open set when closed
type file struct {
	*os.File
	dir *Dir
}

func (f *file) Close() error {
	f.dir.release(f)
	return f.File.Close()
}
