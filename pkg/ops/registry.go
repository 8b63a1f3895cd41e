package ops

import (
	"errors"
	"fmt"
	"sort"
)

// ErrDuplicateOperation is returned when registering a name that already exists.
var ErrDuplicateOperation = errors.New("ops: duplicate operation")

// ErrUnknownOperation is returned when looking up a name that was never registered.
var ErrUnknownOperation = errors.New("ops: unknown operation")

// Registry is a catalog of operations keyed by name. Populate it at startup
// with Register; afterwards it is read-only and safe to share across
// goroutines without locking.
type Registry struct {
	specs map[string]Spec
}

// NewRegistry creates an empty Registry ready for use.
func NewRegistry() *Registry {
	return &Registry{
		specs: make(map[string]Spec),
	}
}

// Register adds one or more specs to the registry. A spec whose name is
// already taken fails with ErrDuplicateOperation and leaves the registry
// exactly as it was before the call, including any specs earlier in the
// same call.
func (r *Registry) Register(specs ...Spec) error {
	batch := make(map[string]struct{}, len(specs))
	for _, s := range specs {
		if s.Name == "" {
			return fmt.Errorf("ops: register: name is required")
		}
		if s.Handler == nil {
			return fmt.Errorf("ops: register %q: handler is required", s.Name)
		}
		if _, exists := r.specs[s.Name]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateOperation, s.Name)
		}
		if _, dup := batch[s.Name]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateOperation, s.Name)
		}
		batch[s.Name] = struct{}{}
	}

	for _, s := range specs {
		r.specs[s.Name] = s
	}

	return nil
}

// Lookup returns the spec registered under name, or ErrUnknownOperation.
func (r *Registry) Lookup(name string) (Spec, error) {
	s, ok := r.specs[name]
	if !ok {
		return Spec{}, fmt.Errorf("%w: %s", ErrUnknownOperation, name)
	}

	return s, nil
}

// List returns all registered specs sorted by name. This ordering is the
// advertisement order seen by callers building a tool menu.
func (r *Registry) List() []Spec {
	out := make([]Spec, 0, len(r.specs))
	for _, s := range r.specs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out
}

// Len returns the number of registered operations.
func (r *Registry) Len() int {
	return len(r.specs)
}
