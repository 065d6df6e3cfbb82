// Package registry maps logical resource names to the objects declared during one synthesis pass.
// A Registry is append-only and must not be shared between passes.
package registry

import (
	"github.com/greymatter-io/meshdemo/pkg/meshobjects"
)

// Handle is a stable reference to a declared object.
type Handle struct {
	Name string
	Kind meshobjects.Kind
	// Position in declaration order, starting at 0.
	Seq    int
	Object *meshobjects.Object
}

type Registry struct {
	handles map[string]Handle
	names   []string
}

func New() *Registry {
	return &Registry{handles: make(map[string]Handle)}
}

// Declare records obj under name.
func (r *Registry) Declare(name string, obj *meshobjects.Object) (Handle, error) {
	if _, ok := r.handles[name]; ok {
		return Handle{}, &meshobjects.DuplicateNameError{Name: name}
	}
	h := Handle{
		Name:   name,
		Kind:   obj.Kind,
		Seq:    len(r.names),
		Object: obj,
	}
	r.handles[name] = h
	r.names = append(r.names, name)
	return h, nil
}

func (r *Registry) Lookup(name string) (Handle, error) {
	h, ok := r.handles[name]
	if !ok {
		return Handle{}, &meshobjects.UnknownReferenceError{Name: name}
	}
	return h, nil
}

// Names lists every declared name in declaration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

func (r *Registry) Len() int {
	return len(r.names)
}
