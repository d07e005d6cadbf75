// Package descriptor generalizes the teacher's adapter.Registry
// (_examples/redbco-redb-open/pkg/anchor/adapter/registry.go) from a single
// DatabaseAdapter capability to any pluggable capability — StreamReader,
// DataWriter or DataTransformer — selected by provider name or connection
// predicate.
package descriptor

import (
	"context"
	"fmt"
	"sync"

	"github.com/redbco/qdump/internal/options"
	"github.com/redbco/qdump/pkg/logger"
)

// Descriptor is the passive metadata + factory record for one pluggable
// reader/writer/transformer kind (spec.md §3,
// "ProviderDescriptor<Capability>").
type Descriptor[C any] struct {
	// Name is the provider's canonical, case-insensitively-matched name.
	Name string

	// OptionsPrefix is the key this provider's options are bound under in
	// the OptionsRegistry.
	OptionsPrefix string

	// EnvVar is the environment variable the CLI layer may read a
	// connection string from when the --conn flag is empty (spec.md §6).
	EnvVar string

	// CanHandle reports whether this provider can open the given
	// connection string or output path. Nil means "never auto-selected,
	// must be named explicitly" (used by transformers, which are selected
	// by name, not connection).
	CanHandle func(target string) bool

	// New constructs the capability.
	New func(ctx context.Context, target string, opts *options.Registry, log *logger.Logger) (C, error)
}

// Set manages registration and lookup of Descriptor[C] values, mirroring
// the teacher's Registry/global-registry split.
type Set[C any] struct {
	mu    sync.RWMutex
	byKey map[string]Descriptor[C]
	order []string // registration order, for deterministic Detect/ListNames
}

// NewSet creates an empty descriptor Set.
func NewSet[C any]() *Set[C] {
	return &Set[C]{byKey: make(map[string]Descriptor[C])}
}

// Register adds or replaces a descriptor under its declared Name
// (case-insensitive).
func (s *Set[C]) Register(d Descriptor[C]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := lower(d.Name)
	if _, exists := s.byKey[key]; !exists {
		s.order = append(s.order, d.Name)
	}
	s.byKey[key] = d
}

// Get looks up a descriptor by exact, case-insensitive name.
func (s *Set[C]) Get(name string) (Descriptor[C], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.byKey[lower(name)]
	if !ok {
		return Descriptor[C]{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return d, nil
}

// Detect finds the first registered descriptor whose CanHandle reports
// true for target (used for "auto" provider/format selection). Iteration
// order is the registration order captured by ListNames, so detection is
// deterministic for a given set of Register calls.
func (s *Set[C]) Detect(target string) (Descriptor[C], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, name := range s.order {
		d := s.byKey[lower(name)]
		if d.CanHandle != nil && d.CanHandle(target) {
			return d, nil
		}
	}
	return Descriptor[C]{}, fmt.Errorf("%w: no provider recognizes %q", ErrNotFound, target)
}

// ListNames returns the registered descriptor names, in registration order.
func (s *Set[C]) ListNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// ErrNotFound is returned by Get/Detect when no descriptor matches.
var ErrNotFound = fmt.Errorf("descriptor not found")

func lower(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}
