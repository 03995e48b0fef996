package scene

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownScene is returned by Get for names that were never
// registered.
var ErrUnknownScene = errors.New("unknown scene")

// Registry maps scene names to constructors.
type Registry struct {
	scenes map[string]func() Scene
}

func NewRegistry() *Registry {
	r := &Registry{scenes: make(map[string]func() Scene)}

	r.scenes["bounce"] = func() Scene { return NewBounce() }
	r.scenes["orbit"] = func() Scene { return NewOrbit() }
	r.scenes["spin"] = func() Scene { return NewSpin() }
	r.scenes["fountain"] = func() Scene { return NewFountain() }

	return r
}

// Get constructs a fresh scene instance by name.
func (r *Registry) Get(name string) (Scene, error) {
	fn, ok := r.scenes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScene, name)
	}
	return fn(), nil
}

// List returns the registered scene names, sorted.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.scenes))
	for name := range r.scenes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
