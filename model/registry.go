package model

import (
	"fmt"
	"sort"
	"sync"

	"golang.org/x/exp/maps"
)

// The registry maps model names to models compiled into the binary, so the
// CLI can list and run them. Registration happens from package init funcs
// before any run starts; lookups during a run are read-only.
var (
	registryMu sync.Mutex
	registry   = map[string]*Model{}
)

// Register adds a model to the process-wide registry. It panics on a
// duplicate or invalid model, since registration runs at init time and a bad
// table is a build defect.
func Register(m *Model) {
	if err := m.Validate(); err != nil {
		panic(fmt.Sprintf("model: register: %v", err))
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[m.Name]; dup {
		panic(fmt.Sprintf("model: register: duplicate model %q", m.Name))
	}
	registry[m.Name] = m
}

// Lookup returns the registered model with the given name.
func Lookup(name string) (*Model, bool) {
	registryMu.Lock()
	defer registryMu.Unlock()
	m, ok := registry[name]
	return m, ok
}

// Names returns the registered model names in sorted order.
func Names() []string {
	registryMu.Lock()
	defer registryMu.Unlock()
	names := maps.Keys(registry)
	sort.Strings(names)
	return names
}
