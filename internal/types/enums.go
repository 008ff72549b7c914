package types

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// EnumConstant is one named constant of a registered enum type.
type EnumConstant struct {
	Name  string
	Value any
}

// EnumRegistry maps Go named types to their enum constant sets. Go has no
// enum reflection, so expansion and name lookup work off explicit
// registration. Safe for concurrent use.
type EnumRegistry struct {
	mu     sync.RWMutex
	byType map[reflect.Type][]EnumConstant
}

func NewEnumRegistry() *EnumRegistry {
	return &EnumRegistry{byType: make(map[reflect.Type][]EnumConstant)}
}

// Register records the constant set for t, replacing any previous
// registration. Constants with an integer underlying kind are ordered by
// ascending value (iota order); all others by name.
func (r *EnumRegistry) Register(t reflect.Type, constants []EnumConstant) error {
	if len(constants) == 0 {
		return fmt.Errorf("enum %s: constant set must not be empty", t)
	}
	seen := make(map[string]struct{}, len(constants))
	for _, c := range constants {
		if reflect.TypeOf(c.Value) != t {
			return fmt.Errorf("enum %s: constant %s has type %T", t, c.Name, c.Value)
		}
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("enum %s: constant %s registered twice", t, c.Name)
		}
		seen[c.Name] = struct{}{}
	}

	ordered := make([]EnumConstant, len(constants))
	copy(ordered, constants)
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		sort.Slice(ordered, func(i, j int) bool {
			return reflect.ValueOf(ordered[i].Value).Int() < reflect.ValueOf(ordered[j].Value).Int()
		})
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		sort.Slice(ordered, func(i, j int) bool {
			return reflect.ValueOf(ordered[i].Value).Uint() < reflect.ValueOf(ordered[j].Value).Uint()
		})
	default:
		sort.Slice(ordered, func(i, j int) bool { return ordered[i].Name < ordered[j].Name })
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.byType[t] = ordered
	return nil
}

// Constants returns the ordered constant set registered for t.
func (r *EnumRegistry) Constants(t reflect.Type) ([]EnumConstant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cs, ok := r.byType[t]
	return cs, ok
}

// Registered reports whether t has a registered constant set.
func (r *EnumRegistry) Registered(t reflect.Type) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byType[t]
	return ok
}

// ByName resolves a constant of t by exact, case-sensitive name.
func (r *EnumRegistry) ByName(t reflect.Type, name string) (any, bool) {
	cs, ok := r.Constants(t)
	if !ok {
		return nil, false
	}
	for _, c := range cs {
		if c.Name == name {
			return c.Value, true
		}
	}
	return nil, false
}

// Names returns the constant names of t in registry order.
func (r *EnumRegistry) Names(t reflect.Type) []string {
	cs, _ := r.Constants(t)
	names := make([]string, len(cs))
	for i, c := range cs {
		names[i] = c.Name
	}
	return names
}
