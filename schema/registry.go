package schema

import (
	"fmt"
	"sync"
)

// Registry manages association declarations for all object types. Types are
// registered once at definition time; lookups afterwards are read-only, so
// the registry can be shared by reference across every object instance.
type Registry struct {
	types map[string]*TypeReflections
	mu    sync.RWMutex
}

// NewRegistry creates a new reflection registry
func NewRegistry() *Registry {
	return &Registry{
		types: make(map[string]*TypeReflections),
	}
}

// Register declares the associations for an object type. Missing ClassName
// values are derived from the association name. Registering the same type
// twice is an error: declarations are immutable once made.
func (r *Registry) Register(model string, reflections ...*Reflection) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.types[model]; exists {
		return fmt.Errorf("type %s is already registered", model)
	}

	t := NewTypeReflections(model)
	for _, ref := range reflections {
		if ref.Name == "" {
			return fmt.Errorf("type %s: reflection with empty name", model)
		}
		if ref.Property == "" {
			return fmt.Errorf("type %s: reflection %s has no property", model, ref.Name)
		}
		if _, dup := t.Reflections[ref.Name]; dup {
			return fmt.Errorf("type %s: reflection %s declared twice", model, ref.Name)
		}
		if ref.ClassName == "" {
			ref.ClassName = Classify(ref.Name)
		}
		if ref.InverseOf != "" && ref.Macro != MacroHasAndBelongsToMany {
			return fmt.Errorf("type %s: reflection %s: inverse_of is only valid on has_and_belongs_to_many", model, ref.Name)
		}
		t.Reflections[ref.Name] = ref
	}

	r.types[model] = t
	return nil
}

// Lookup retrieves a reflection by type and association name
func (r *Registry) Lookup(model, association string) (*Reflection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.types[model]
	if !ok {
		return nil, false
	}
	return t.Get(association)
}

// Reflections returns a copy of all reflections declared for a type
func (r *Registry) Reflections(model string) map[string]*Reflection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.types[model]
	if !ok {
		return nil
	}
	result := make(map[string]*Reflection, len(t.Reflections))
	for k, v := range t.Reflections {
		result[k] = v
	}
	return result
}

// Inverse resolves the reciprocal reflection named by ref.InverseOf on the
// target type. Returns an error if the declaration names a reflection that
// does not exist: the caller must report this rather than silently dropping
// the reciprocal write.
func (r *Registry) Inverse(ref *Reflection) (*Reflection, error) {
	if ref.InverseOf == "" {
		return nil, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.types[ref.ClassName]
	if !ok {
		return nil, fmt.Errorf("inverse_of %s: target type %s is not registered", ref.InverseOf, ref.ClassName)
	}
	inv, ok := t.Get(ref.InverseOf)
	if !ok {
		return nil, fmt.Errorf("inverse_of %s: no such reflection on type %s", ref.InverseOf, ref.ClassName)
	}
	return inv, nil
}

// Exists checks if a type has been registered
func (r *Registry) Exists(model string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.types[model]
	return exists
}

// List returns the names of all registered types
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	return names
}

// Clear removes all registered types (useful for testing)
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.types = make(map[string]*TypeReflections)
}
