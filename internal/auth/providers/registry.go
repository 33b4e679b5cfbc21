// Package providers maps authentication provider names to the numeric ids
// stored on users.
package providers

import (
	"fmt"
	"strings"
)

const (
	Local = "local"
	Fake  = "fake"
)

// Registry assigns ids from 1 in registration order.
type Registry struct {
	names []string
}

// NewRegistry builds a registry from the configured provider names.
func NewRegistry(names []string) (*Registry, error) {
	reg := &Registry{}
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		if _, ok := reg.IDOf(name); ok {
			return nil, fmt.Errorf("auth provider %q registered twice", name)
		}
		reg.names = append(reg.names, name)
	}
	if len(reg.names) == 0 {
		return nil, fmt.Errorf("at least one auth provider is required")
	}
	return reg, nil
}

// IDOf returns the id of the provider called name.
func (r *Registry) IDOf(name string) (int16, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, candidate := range r.names {
		if candidate == name {
			return int16(i + 1), true
		}
	}
	return 0, false
}

// NameOf returns the name of the provider with id.
func (r *Registry) NameOf(id int16) (string, bool) {
	if id < 1 || int(id) > len(r.names) {
		return "", false
	}
	return r.names[id-1], true
}

func (r *Registry) Has(name string) bool {
	_, ok := r.IDOf(name)
	return ok
}

func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}
