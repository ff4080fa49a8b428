package provider

import (
	"fmt"
	"sort"
)

// Registry maps provider names to configured OAuth providers. It performs
// no auth logic itself; handlers look providers up per request.
type Registry struct {
	providers map[string]OAuthProvider
}

// NewRegistry registers the given providers under their Name(). A later
// provider with a duplicate name replaces the earlier one.
func NewRegistry(list ...OAuthProvider) *Registry {
	providers := make(map[string]OAuthProvider, len(list))
	for _, p := range list {
		providers[p.Name()] = p
	}
	return &Registry{providers: providers}
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (OAuthProvider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown oauth provider: %s", name)
	}
	return p, nil
}

// Names lists the registered provider names in stable order, for error
// responses and sign-in pages.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
