package workflow

import (
	"sort"

	"github.com/pkg/errors"
	"github/chapool/yield-vault/internal/vault"
)

// Registry holds one controller per workflow kind.
type Registry struct {
	controllers map[vault.Kind]*Controller
}

func NewRegistry(controllers ...*Controller) *Registry {
	r := &Registry{controllers: make(map[vault.Kind]*Controller, len(controllers))}
	for _, c := range controllers {
		r.controllers[c.Kind()] = c
	}
	return r
}

func (r *Registry) Get(kind vault.Kind) (*Controller, error) {
	c, ok := r.controllers[kind]
	if !ok {
		return nil, errors.Errorf("workflow %q is not configured", kind)
	}
	return c, nil
}

func (r *Registry) Kinds() []vault.Kind {
	kinds := make([]vault.Kind, 0, len(r.controllers))
	for kind := range r.controllers {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Stop stops every controller.
func (r *Registry) Stop() {
	for _, c := range r.controllers {
		c.Stop()
	}
}
