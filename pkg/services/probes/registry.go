package probes

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var ErrUnknownCheck = errors.New("unknown check")

// Factory creates a fresh probe instance
type Factory func() Probe

// Registry manages probe factories
type Registry interface {
	// Register adds a new probe factory under name
	Register(name string, factory Factory) error
	// Create instantiates the named probe
	Create(name string) (Probe, error)
	// List returns the registered names in alphabetical order
	List() []string
}

type registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty probe registry
func NewRegistry() Registry {
	return &registry{
		factories: make(map[string]Factory),
	}
}

func (r *registry) Register(name string, factory Factory) error {
	if name == "" {
		return fmt.Errorf("check name cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("factory cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("check %q is already registered", name)
	}

	r.factories[name] = factory
	return nil
}

func (r *registry) Create(name string) (Probe, error) {
	r.mu.RLock()
	factory, exists := r.factories[name]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCheck, name)
	}

	return factory(), nil
}

func (r *registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry registers every built-in check.
func DefaultRegistry() Registry {
	r := NewRegistry()
	for _, factory := range []Factory{
		NewAnarchyActions,
		NewAnarchyRuns,
		NewAnarchySubjects,
		NewBabylonUsers,
		NewBabylonPools,
		NewBabylonNamespaces,
		NewWorkshops,
		NewWorkshopProvisions,
		NewResourceClaims,
		NewResourceHandles,
		NewNamespaceCount,
		NewPodLimits,
		NewOCPVirt,
		NewAAP2Jobs,
	} {
		// names are unique constants, registration cannot fail
		_ = r.Register(factory().Name(), factory)
	}
	return r
}
