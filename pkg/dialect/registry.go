package dialect

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// Registry holds the dialects known to a run, in priority order.
type Registry struct {
	profiles map[string]*Profile
	order    []string
}

// NewRegistry builds a registry from profiles; names must be unique.
func NewRegistry(profiles ...*Profile) (*Registry, error) {
	r := &Registry{profiles: map[string]*Profile{}}
	for _, p := range profiles {
		if err := r.Add(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Builtin returns a registry with the embedded dialects.
func Builtin() *Registry {
	files, err := fs.Glob(builtinFS, "builtin/*.yaml")
	if err != nil {
		panic(err)
	}
	r := &Registry{profiles: map[string]*Profile{}}
	for _, name := range files {
		f, err := builtinFS.Open(name)
		if err != nil {
			panic(err)
		}
		p, err := Load(f)
		f.Close()
		if err != nil {
			panic(fmt.Sprintf("builtin dialect %s: %v", path.Base(name), err))
		}
		if err := r.Add(p); err != nil {
			panic(err)
		}
	}
	return r
}

// Add registers p; a name can only be registered once.
func (r *Registry) Add(p *Profile) error {
	if _, ok := r.profiles[p.Name]; ok {
		return fmt.Errorf("dialect %s already registered", p.Name)
	}
	r.profiles[p.Name] = p
	r.order = append(r.order, p.Name)
	return nil
}

// Lookup finds a dialect by name.
func (r *Registry) Lookup(name string) (*Profile, bool) {
	p, ok := r.profiles[name]
	return p, ok
}

// Names lists dialect names in priority order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Profiles lists dialects in priority order.
func (r *Registry) Profiles() []*Profile {
	out := make([]*Profile, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.profiles[name])
	}
	return out
}

// Select resolves names to profiles, keeping the given order. No names selects
// every registered dialect.
func (r *Registry) Select(names []string) ([]*Profile, error) {
	if len(names) == 0 {
		return r.Profiles(), nil
	}
	out := make([]*Profile, 0, len(names))
	for _, name := range names {
		p, ok := r.profiles[name]
		if !ok {
			return nil, fmt.Errorf("unknown dialect %q", name)
		}
		out = append(out, p)
	}
	return out, nil
}
