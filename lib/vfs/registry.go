package vfs

import (
	"errors"
	"sync"
)

var (
	ErrVFSExists   = errors.New("a different vfs is already registered under this name")
	ErrVFSNotFound = errors.New("vfs not registered")
	ErrInvalidVFS  = errors.New("vfs must be non-nil and have a name")
)

// Registry is an ordered set of named IVFS values. The first entry is the
// default returned by Find("").
type Registry struct {
	mu   sync.RWMutex
	list []IVFS
}

// DefaultRegistry is the process wide registry used by the CLI.
var DefaultRegistry = NewRegistry()

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds v. Registering the same instance again only moves it (to the
// front when makeDefault is set). The first registered VFS becomes the
// default regardless of makeDefault.
func (r *Registry) Register(v IVFS, makeDefault bool) error {
	if v == nil || v.Name() == "" {
		return ErrInvalidVFS
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.list {
		if existing.Name() != v.Name() {
			continue
		}
		if existing != v {
			return ErrVFSExists
		}
		r.list = append(r.list[:i], r.list[i+1:]...)
		break
	}

	if makeDefault || len(r.list) == 0 {
		r.list = append([]IVFS{v}, r.list...)
	} else {
		r.list = append(r.list, v)
	}
	return nil
}

// Find returns the VFS registered under name, the default for an empty name,
// or nil.
func (r *Registry) Find(name string) IVFS {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		if len(r.list) == 0 {
			return nil
		}
		return r.list[0]
	}
	for _, v := range r.list {
		if v.Name() == name {
			return v
		}
	}
	return nil
}

// Unregister removes v. If v was the default, the next entry takes over.
func (r *Registry) Unregister(v IVFS) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.list {
		if existing == v {
			r.list = append(r.list[:i], r.list[i+1:]...)
			return nil
		}
	}
	return ErrVFSNotFound
}

// Names lists the registered names, default first.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.list))
	for _, v := range r.list {
		names = append(names, v.Name())
	}
	return names
}
