package command

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/samber/lo"
)

// Registry maps top level tokens to definitions. Visible and hidden commands
// live in separate tables; aliases point at primary names. Keys are lower
// case.
type Registry struct {
	mu      sync.RWMutex
	visible map[string]*Definition
	hidden  map[string]*Definition
	aliases map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		visible: make(map[string]*Definition),
		hidden:  make(map[string]*Definition),
		aliases: make(map[string]string),
	}
}

// Register adds definitions. Primary names are unique across both tables;
// an alias registered twice points at the command registered last.
func (r *Registry) Register(defs ...*Definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range defs {
		if err := validateDefinition(d); err != nil {
			return err
		}
		if d.parent != nil {
			return fmt.Errorf("%w: %s is a subcommand", ErrInvalidDefinition, d.Path())
		}
		key := strings.ToLower(d.Name)
		if _, ok := r.lookupPrimary(key); ok {
			return fmt.Errorf("%w: %s", ErrDuplicate, d.Name)
		}
		if d.Hidden {
			r.hidden[key] = d
		} else {
			r.visible[key] = d
		}
		for _, a := range d.Aliases {
			r.aliases[strings.ToLower(a)] = key
		}
	}
	return nil
}

// MustRegister is Register for static tables; it panics on error.
func (r *Registry) MustRegister(defs ...*Definition) {
	if err := r.Register(defs...); err != nil {
		panic(err)
	}
}

// Resolve finds the definition for a top level token, by name or alias,
// ignoring case.
func (r *Registry) Resolve(token string) (*Definition, bool) {
	token = strings.ToLower(token)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if d, ok := r.lookupPrimary(token); ok {
		return d, true
	}
	if name, ok := r.aliases[token]; ok {
		return r.lookupPrimary(name)
	}
	return nil, false
}

func (r *Registry) lookupPrimary(name string) (*Definition, bool) {
	if d, ok := r.visible[name]; ok {
		return d, true
	}
	d, ok := r.hidden[name]
	return d, ok
}

// Commands lists visible commands sorted by name.
func (r *Registry) Commands() []*Definition {
	r.mu.RLock()
	defs := lo.Values(r.visible)
	r.mu.RUnlock()
	slices.SortFunc(defs, func(a, b *Definition) int { return strings.Compare(a.Name, b.Name) })
	return defs
}

// Names lists visible command names sorted.
func (r *Registry) Names() []string {
	return lo.Map(r.Commands(), func(d *Definition, _ int) string { return d.Name })
}

// Taken reports whether token resolves to a built-in command. Custom
// commands may not shadow built-ins.
func (r *Registry) Taken(token string) bool {
	_, ok := r.Resolve(token)
	return ok
}
