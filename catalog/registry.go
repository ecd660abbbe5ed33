package catalog

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Source produces one particle sample.
type Source interface {
	// Name returns the spec form of the source.
	Name() string
	Read() (*Particles, error)
}

// Factory builds a Source from component arguments.
type Factory func(args Args) (Source, error)

// Registry maps source names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

var errDuplicateSource = errors.New("catalog: duplicate source")

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory for name.
func (r *Registry) Register(name string, factory Factory) error {
	if name == "" {
		return errors.New("catalog: empty source name")
	}
	if factory == nil {
		return errors.New("catalog: nil factory")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("%w: %s", errDuplicateSource, name)
	}
	r.factories[name] = factory
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(name string, factory Factory) {
	if err := r.Register(name, factory); err != nil {
		panic(err.Error())
	}
}

// Lookup returns the factory for name, or nil.
func (r *Registry) Lookup(name string) Factory {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.factories[name]
}

// Names returns the registered source names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Build resolves a parsed component into a Source.
func (r *Registry) Build(c Component) (Source, error) {
	f := r.Lookup(c.Name)
	if f == nil {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownSource, c.Name, r.Names())
	}
	src, err := f(c.Args)
	if err != nil {
		return nil, fmt.Errorf("catalog: %s: %w", c.Name, err)
	}
	return src, nil
}

// Sources is the default registry holding the built-in sources.
var Sources = NewRegistry()

func init() {
	Sources.MustRegister("uniform", newUniform)
	Sources.MustRegister("plaintext", newPlaintext)
	Sources.MustRegister("sqlite", newSQLite)
}
