package identification

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/sfmap/internal/persistence"
)

// ErrMissingProperty is returned by the property factory when no property
// name was declared.
var ErrMissingProperty = errors.New("property strategy requires a property name")

// Options carries the declaration attributes and collaborators handed to a
// factory.
type Options struct {
	Persistence   persistence.Manager
	Property      string
	MatchingField string
}

// Factory builds a strategy variant.
type Factory func(Options) (Strategy, error)

// Registration binds a key to a factory.
// RequiresPersistence lets callers check the capability before construction.
type Registration struct {
	Key                 string
	RequiresPersistence bool
	New                 Factory
}

// Registry maps strategy keys to factories.
//
// Thread-safety: all methods are safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Registration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Registration)}
}

// DefaultRegistry returns a registry holding the three built-in variants under
// their kind names and their class-style aliases.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, reg := range []Registration{
		{Key: string(KindMappingTable), RequiresPersistence: true, New: newMappingTable},
		{Key: "MappingTableStrategy", RequiresPersistence: true, New: newMappingTable},
		{Key: string(KindProperty), RequiresPersistence: true, New: newProperty},
		{Key: "PropertyStrategy", RequiresPersistence: true, New: newProperty},
		{Key: string(KindFullRemote), New: newFullRemote},
		{Key: "FullRemoteStrategy", New: newFullRemote},
	} {
		// keys above are unique
		_ = r.Register(reg)
	}
	return r
}

// Register adds a registration. Keys must be unique and non-empty.
func (r *Registry) Register(reg Registration) error {
	if reg.Key == "" {
		return errors.New("register strategy: empty key")
	}
	if reg.New == nil {
		return fmt.Errorf("register strategy %q: nil factory", reg.Key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[reg.Key]; exists {
		return fmt.Errorf("register strategy %q: already registered", reg.Key)
	}
	r.entries[reg.Key] = reg
	return nil
}

// Lookup returns the registration for key.
func (r *Registry) Lookup(key string) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.entries[key]
	return reg, ok
}

// Keys returns all registered keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func newMappingTable(opts Options) (Strategy, error) {
	return &MappingTable{Persistence: opts.Persistence}, nil
}

func newProperty(opts Options) (Strategy, error) {
	if opts.Property == "" {
		return nil, ErrMissingProperty
	}
	return &Property{Persistence: opts.Persistence, Name: opts.Property}, nil
}

func newFullRemote(opts Options) (Strategy, error) {
	return &FullRemote{MatchingField: opts.MatchingField}, nil
}
