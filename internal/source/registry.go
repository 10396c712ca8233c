package source

import (
	"fmt"
	"os"
	"sync"
)

// ── Registry ────────────────────────────────────────────────
// In-memory name → Descriptor mapping, the single source of truth for
// which sources exist. Process-lifetime state: created empty at
// startup, never persisted. The instance is passed around explicitly
// so tests can build isolated registries per case.

type Registry struct {
	mu     sync.RWMutex
	byName map[string]Descriptor
	order  []string
}

func NewRegistry() *Registry {
	return &Registry{byName: map[string]Descriptor{}}
}

// Register validates and stores a new descriptor, returning it with the
// config echoed back verbatim. A duplicate name or a failed
// precondition rejects the call without mutating the registry.
func (r *Registry) Register(name string, kind Kind, cfg Config) (Descriptor, error) {
	if name == "" {
		return Descriptor{}, &InvalidConfigError{Kind: kind, Reason: "name must not be empty"}
	}
	if r.has(name) {
		return Descriptor{}, &DuplicateNameError{Name: name}
	}
	if err := validateConfig(kind, cfg); err != nil {
		return Descriptor{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Re-check under the write lock: two concurrent registrations of
	// the same name race, and exactly one of them must lose.
	if _, exists := r.byName[name]; exists {
		return Descriptor{}, &DuplicateNameError{Name: name}
	}
	d := Descriptor{Name: name, Kind: kind, Config: copyConfig(cfg)}
	r.byName[name] = d
	r.order = append(r.order, name)
	return d, nil
}

// List returns all descriptors in insertion order. Callers must not
// rely on the order; it is stable only for presentation.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Resolve returns the descriptor stored under name.
func (r *Registry) Resolve(name string) (Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byName[name]
	if !ok {
		return Descriptor{}, &NotFoundError{Name: name}
	}
	return d, nil
}

// ResolveKind resolves name and additionally requires the stored kind
// to match what the caller expects. The mismatch check belongs to the
// callers (each connector knows its own kind), so it lives here as a
// shared helper rather than inside Resolve.
func (r *Registry) ResolveKind(name string, want Kind) (Descriptor, error) {
	d, err := r.Resolve(name)
	if err != nil {
		return Descriptor{}, err
	}
	if d.Kind != want {
		return Descriptor{}, &KindMismatchError{Name: name, Want: want, Got: d.Kind}
	}
	return d, nil
}

// Len reports the number of registered descriptors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}

func (r *Registry) has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byName[name]
	return ok
}

// validateConfig enforces the kind-specific preconditions: file-backed
// kinds must point at an existing file, api needs a base url. Checked
// synchronously at registration time, before the entry is stored.
func validateConfig(kind Kind, cfg Config) error {
	switch kind {
	case KindSQLite, KindCSV, KindJSON:
		path, _ := cfg["path"].(string)
		if path == "" {
			return &InvalidConfigError{Kind: kind, Reason: `missing required config field "path"`}
		}
		if _, err := os.Stat(path); err != nil {
			return &InvalidConfigError{Kind: kind, Reason: fmt.Sprintf("file does not exist: %s", path)}
		}
	case KindAPI:
		url, _ := cfg["url"].(string)
		if url == "" {
			return &InvalidConfigError{Kind: kind, Reason: `missing required config field "url"`}
		}
	default:
		return &InvalidConfigError{Kind: kind, Reason: fmt.Sprintf("unknown kind %q (valid: %v)", string(kind), Kinds())}
	}
	return nil
}

func copyConfig(cfg Config) Config {
	out := make(Config, len(cfg))
	for k, v := range cfg {
		out[k] = v
	}
	return out
}
