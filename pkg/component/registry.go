package component

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a component. A nil component with a nil error means the
// component is disabled by configuration.
type Factory func(deps Dependencies) (Component, error)

type registration struct {
	order   int
	factory Factory
}

var (
	registry = make(map[string]registration)
	mu       sync.RWMutex
)

// Register adds a factory. Components are built and started in ascending
// order, then by name.
func Register(name string, order int, factory Factory) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("component %s already registered", name))
	}

	registry[name] = registration{order: order, factory: factory}
}

func Get(name string) (Factory, bool) {
	mu.RLock()
	defer mu.RUnlock()

	r, exists := registry[name]
	return r.factory, exists
}

func List() []string {
	mu.RLock()
	defer mu.RUnlock()
	return sortedNames()
}

func sortedNames() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := registry[names[i]], registry[names[j]]
		if a.order != b.order {
			return a.order < b.order
		}
		return names[i] < names[j]
	})
	return names
}

func LoadAll(deps Dependencies) ([]Component, error) {
	mu.RLock()
	defer mu.RUnlock()

	components := make([]Component, 0, len(registry))
	for _, name := range sortedNames() {
		comp, err := registry[name].factory(deps)
		if err != nil {
			return nil, fmt.Errorf("failed to create component %s: %w", name, err)
		}
		if comp == nil {
			continue
		}
		components = append(components, comp)
	}

	return components, nil
}
