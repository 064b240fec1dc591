package executor

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"mercator-hq/ganymede/pkg/forge"
)

// Extension is a caller-supplied action handler dispatched by name.
// Extensions receive the executor so they can issue follow-on effects
// through the same forge client and templating.
type Extension interface {
	Run(ctx context.Context, exec *Executor, res *forge.Resource, rt forge.ResourceType, dryRun bool) error
}

// ExtensionFunc adapts a function to the Extension interface.
type ExtensionFunc func(ctx context.Context, exec *Executor, res *forge.Resource, rt forge.ResourceType, dryRun bool) error

// Run implements Extension.
func (f ExtensionFunc) Run(ctx context.Context, exec *Executor, res *forge.Resource, rt forge.ResourceType, dryRun bool) error {
	return f(ctx, exec, res, rt, dryRun)
}

// Registry maps extension names to implementations. All registration
// happens before the engine starts; the executor only ever looks up by
// name and never resolves anything else.
type Registry struct {
	mu   sync.RWMutex
	exts map[string]Extension
}

// NewRegistry returns an empty extension registry.
func NewRegistry() *Registry {
	return &Registry{exts: make(map[string]Extension)}
}

// Register installs an extension under a name. Registering the same
// name twice is a programming error.
func (r *Registry) Register(name string, ext Extension) error {
	if name == "" {
		return fmt.Errorf("extension name must not be empty")
	}
	if ext == nil {
		return fmt.Errorf("extension %q must not be nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.exts[name]; exists {
		return fmt.Errorf("extension %q already registered", name)
	}
	r.exts[name] = ext
	return nil
}

// Lookup returns the extension registered under a name.
func (r *Registry) Lookup(name string) (Extension, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ext, ok := r.exts[name]
	return ext, ok
}

// Names returns the registered extension names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.exts))
	for name := range r.exts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
