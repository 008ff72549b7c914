package types

import "reflect"

// ProviderContext is handed to value and row providers: the site the
// declaration was found at, plus its co-located declarations.
type ProviderContext struct {
	Suite     reflect.Type
	Method    string       // empty outside method scope
	Target    reflect.Type // declared value type, nil for class level
	Name      string       // declared field/parameter name, empty if unknown
	CoLocated []Declaration
}

// ValueProvider produces the ordered candidate values for one occurrence.
// Returned values may be wrapped with NamedValue to carry a custom display
// name. Errors and panics propagate to the host runner unwrapped.
type ValueProvider interface {
	Values(ctx ProviderContext) ([]any, error)
}

// RowProvider produces pre-built named parameter sets, keyed by declared
// parameter name.
type RowProvider interface {
	Rows(ctx ProviderContext) ([]map[string]any, error)
}

// NamedValue wraps a candidate value with a custom display name.
type NamedValue struct {
	Name  string
	Value any
}

// ValuesView gives a skip validator read access to one combination row,
// keyed by declared name (or kind name for class-level occurrences).
type ValuesView interface {
	// Get returns the row's value for the given key.
	Get(key string) (any, bool)
	// Candidates returns the full candidate list behind the given key.
	Candidates(key string) ([]any, bool)
	// All returns every keyed value of the row.
	All() map[string]any
}

// SkipValidator decides whether one specific combination of values should
// be skipped. Skipped rows are pruned silently; pruning every row of a
// method is legal.
type SkipValidator interface {
	ShouldSkip(row ValuesView) bool
}

// GroupedValidator is a SkipValidator that declares independent parameter
// groups. When any registered validator declares groups, the engine builds
// each group's internal cross product separately (occurrences outside the
// group pinned to their first candidate) and unions the resulting rows.
type GroupedValidator interface {
	SkipValidator
	IndependentGroups() [][]string
}

// ByteString is an opaque immutable byte-sequence value type. Literals
// decode into it from a UTF-8 string or a !!binary form; display names
// render it as its decoded byte array.
type ByteString string

// Bytes returns the decoded byte content.
func (b ByteString) Bytes() []byte { return []byte(b) }

// FieldDecl is a field-origin declaration supplied through the
// registration rather than a struct tag.
type FieldDecl struct {
	Field string
	Decl  Declaration
}

// ParamDecl is a declaration bound to a named constructor or method
// parameter.
type ParamDecl struct {
	Param string
	Decl  Declaration
}

// MethodReg is the registered configuration of one test method.
type MethodReg struct {
	Name       string
	ParamNames []string
	Decls      []Declaration // method-level declarations
	Params     []ParamDecl   // method-parameter declarations
	Validators []SkipValidator
}

// ConstructorReg is the registered suite constructor and its declarations.
type ConstructorReg struct {
	Fn         any
	ParamNames []string
	Decls      []Declaration // constructor-level declarations
	Params     []ParamDecl   // constructor-parameter declarations
}

// Registration is the explicit configuration for one Run call: everything
// the source system expressed as annotations that Go reflection cannot
// carry. It is immutable once handed to the engine; ID makes it usable as
// a cache key component.
type Registration struct {
	ID          uint64
	SuiteDecls  []Declaration // class-origin declarations
	Fields      []FieldDecl
	Constructor *ConstructorReg
	Methods     map[string]*MethodReg
	Validators  []SkipValidator // suite-wide validators

	// LookupProvider resolves provider names referenced from struct tags.
	LookupProvider func(name string) (ValueProvider, bool)
	// ProviderNames lists the registered provider names, for error messages.
	ProviderNames func() []string
}

// MethodReg returns the registration for the named method, if any.
func (r *Registration) MethodReg(name string) *MethodReg {
	if r == nil || r.Methods == nil {
		return nil
	}
	return r.Methods[name]
}
