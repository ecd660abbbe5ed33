// Package storage persists binned 1D measurements.
//
// A measurement is a set of bin edges, named columns of equal length and a
// metadata map. Writers are looked up by format name; "1d" is the plain-text
// format that [Read1D] parses back.
package storage

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/gofrs/flock"
)

var (
	// ErrUnknownFormat is returned by New for unregistered formats.
	ErrUnknownFormat = errors.New("storage: unknown format")
	// ErrShape is returned when columns, names and data disagree in length.
	ErrShape = errors.New("storage: inconsistent measurement shape")
	// ErrLocked is returned when another writer holds the output lock.
	ErrLocked = errors.New("storage: output is locked by another writer")
)

// Meta is the free-form metadata stored alongside a measurement. Values are
// float64, int, string or bool.
type Meta map[string]any

// Storage writes one measurement.
type Storage interface {
	Write(edges []float64, cols []string, data [][]float64, meta Meta) error
}

// Factory creates a writer for path.
type Factory func(path string) Storage

var (
	mu       sync.RWMutex
	registry = map[string]Factory{}
)

func init() {
	Register("1d", func(path string) Storage { return &Text{Path: path} })
	Register("json", func(path string) Storage { return &JSON{Path: path} })
	Register("sqlite", func(path string) Storage { return &SQLite{Path: path} })
	Register("png", func(path string) Storage { return &Plot{Path: path} })
}

// Register adds or replaces a format.
func Register(format string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	registry[format] = f
}

// Formats returns the registered format names, sorted.
func Formats() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// New returns the writer for format at path.
func New(format, path string) (Storage, error) {
	mu.RLock()
	f, ok := registry[format]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %v)", ErrUnknownFormat, format, Formats())
	}
	return f(path), nil
}

func checkShape(cols []string, data [][]float64) (rows int, err error) {
	if len(cols) == 0 || len(cols) != len(data) {
		return 0, fmt.Errorf("%w: %d names for %d columns", ErrShape, len(cols), len(data))
	}
	rows = len(data[0])
	for i, col := range data {
		if len(col) != rows {
			return 0, fmt.Errorf("%w: column %q has %d rows, want %d", ErrShape, cols[i], len(col), rows)
		}
	}
	return rows, nil
}

// withLock runs fn while holding the advisory lock next to path.
func withLock(path string, fn func() error) error {
	lock := flock.New(path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("storage: acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrLocked, path)
	}
	defer func() { _ = lock.Unlock() }()
	return fn()
}
