// Package options holds the per-run invariant context (DumpOptions) and
// the OptionsRegistry that binds each component's options struct to a
// single instance for the run. The registry is populated once by the CLI
// layer before the orchestrator starts and is read-only thereafter.
package options

import (
	"fmt"
	"sync"
	"time"
)

// DumpOptions is the per-run invariant context shared by every component.
type DumpOptions struct {
	Provider         string // "auto" or a known provider name
	ConnectionString string
	Query            string
	OutputPath       string
	ConnectTimeout   time.Duration
	QueryTimeout     time.Duration // 0 = none
	BatchSize        int
	RowLimit         int // 0 = no limit
	DryRun           bool
	Debug            bool
}

// Registry is a mapping from an options-type's declared prefix (a stable
// string key, spec.md §9's "escape hatch") to a single bound instance for
// the run. It is populated by the CLI layer and read concurrently,
// read-only, by every pipeline stage thereafter.
type Registry struct {
	mu     sync.RWMutex
	values map[string]interface{}
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{values: make(map[string]interface{})}
}

// Bind stores the options instance for a given component, keyed by its
// declared prefix (e.g. "postgres", "fake", "format").
func Bind(r *Registry, prefix string, value interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[prefix] = value
}

// Get retrieves the typed options instance bound to prefix. It returns
// false if nothing was bound, or if the bound value is not a T.
func Get[T any](r *Registry, prefix string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var zero T
	raw, ok := r.values[prefix]
	if !ok {
		return zero, false
	}
	typed, ok := raw.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// MustGet retrieves the typed options instance bound to prefix, falling
// back to the zero value of T when nothing was bound — used by providers
// whose options are all optional.
func MustGet[T any](r *Registry, prefix string) T {
	v, _ := Get[T](r, prefix)
	return v
}

// String renders the registry's bound prefixes for diagnostics.
func (r *Registry) String() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return fmt.Sprintf("options.Registry{%d bound}", len(r.values))
}
