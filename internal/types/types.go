// Package types holds the data model shared by the parameterization engine.
package types

import (
	"fmt"
	"reflect"
)

// Origin is the syntactic location where a parameter declaration was found.
// The declared order is also the combination order: earlier origins vary
// slower in the cross product.
type Origin int

const (
	OriginClass Origin = iota
	OriginField
	OriginConstructor
	OriginConstructorParam
	OriginMethod
	OriginMethodParam
)

func (o Origin) String() string {
	switch o {
	case OriginClass:
		return "class"
	case OriginField:
		return "field"
	case OriginConstructor:
		return "constructor"
	case OriginConstructorParam:
		return "constructor parameter"
	case OriginMethod:
		return "method"
	case OriginMethodParam:
		return "method parameter"
	}
	return fmt.Sprintf("origin(%d)", int(o))
}

// Family distinguishes the two value-declaration families: single-value
// lists combined elementwise, and whole pre-built rows.
type Family int

const (
	FamilyValue Family = iota
	FamilyRows
)

// Kind identifies a declaration family. The two built-in kinds cover the
// inline and provider forms; custom kinds are defined by users and carry
// their own provider and optional skip validator. Kinds compare by identity.
type Kind struct {
	Name        string
	Family      Family
	Provider    ValueProvider
	RowProvider RowProvider
	Validator   SkipValidator
}

// The built-in declaration kinds. The placement rules for custom kinds
// (one per class, one per constructor, field duplication blocking method
// placement) do not apply to these: each built-in occurrence is bound to a
// distinct target and cannot shadow another.
var (
	KindValue = &Kind{Name: "value", Family: FamilyValue}
	KindRows  = &Kind{Name: "rows", Family: FamilyRows}
)

// Builtin reports whether k is one of the two built-in kinds.
func (k *Kind) Builtin() bool { return k == KindValue || k == KindRows }

// NamedRow is one whole-row literal with an optional custom display name.
type NamedRow struct {
	Name    string
	Literal string
}

// Declaration is one parameter-value declaration: the annotation analog.
// Exactly one value source must be set, except that a value-family
// declaration with no source implicitly expands bool and registered enum
// targets.
type Declaration struct {
	Kind *Kind

	// Value-family sources.
	Literals     []string
	ProviderName string // named registry reference, used from struct tags
	Provider     ValueProvider

	// Rows-family sources.
	RowLiterals []NamedRow
	RowProvider RowProvider
	Repeated    bool // built from the repeated row form; incompatible with a provider
}

// Occurrence is one located declaration instance, tagged with where it was
// found. Immutable after discovery.
type Occurrence struct {
	Decl   Declaration
	Origin Origin
	Suite  reflect.Type

	// Target is the declared value type. Nil when the origin has no
	// associated target: class level, and rows-family method/constructor
	// level, where the targets are the individual parameters.
	Target reflect.Type

	// Name is the declared field or parameter name. Empty when the
	// registration did not supply parameter names.
	Name string

	// FieldIndex locates a field-origin target within the suite struct,
	// including embedded ancestors.
	FieldIndex []int

	// ParamIndex is the position among the constructor or method value
	// parameters. -1 for non-parameter origins.
	ParamIndex int

	// DeclIndex is the position among the declarations sharing this exact
	// site (suite level, constructor level, method level). It keeps two
	// co-located declarations distinguishable even when kind and name match.
	DeclIndex int

	// Method is the owning method name for method-scoped origins.
	Method string

	// CoLocated carries the other declarations found at the same site,
	// for provider introspection.
	CoLocated []Declaration
}

// Key is the name a validator or ambient reader addresses this occurrence
// by: the declared name when present, else the kind name.
func (o *Occurrence) Key() string {
	if o.Name != "" {
		return o.Name
	}
	return o.Decl.Kind.Name
}

// Site renders the occurrence location for error messages.
func (o *Occurrence) Site() string {
	switch o.Origin {
	case OriginClass:
		return fmt.Sprintf("suite %s", o.Suite)
	case OriginField:
		return fmt.Sprintf("field %s.%s", o.Suite, o.Name)
	case OriginConstructor:
		return fmt.Sprintf("constructor of %s", o.Suite)
	case OriginConstructorParam:
		return fmt.Sprintf("constructor parameter %q of %s", o.Name, o.Suite)
	case OriginMethod:
		return fmt.Sprintf("method %s.%s", o.Suite, o.Method)
	case OriginMethodParam:
		return fmt.Sprintf("parameter %q of %s.%s", o.Name, o.Suite, o.Method)
	}
	return o.Suite.String()
}

// Candidate is one concrete value resolved for an occurrence. The backing
// List is never empty: an occurrence resolving to zero candidates is a
// configuration error, not an empty expansion.
type Candidate struct {
	Origin Origin
	Value  any
	Index  int    // position in the occurrence's full candidate list
	Name   string // declared name of the slot this candidate fills, if any
	Label  string // custom display name, empty if none
	List   []any  // the full candidate list, for validator introspection

	// TargetParam is the constructor/method argument slot this candidate
	// fills. -1 when the slot is implied by the occurrence (fields,
	// parameter origins) or when there is none (class level).
	TargetParam int

	Occ *Occurrence
}

// Param is one display parameter of a test case: the unit name synthesis
// works on.
type Param struct {
	Name  string // declared name, empty if unknown
	Text  string // custom display name, empty to render Value
	Value any
	Index int // 1-based candidate index, for positional disambiguation
}

// Row is one full assignment of candidate values: one test invocation.
type Row struct {
	Candidates []Candidate
	Params     []Param
}

// RowKey re-locates a Row at injection time. It is a sideband lookup key
// only: the key carries no values.
type RowKey struct {
	Suite       string
	MethodIndex int
	Combination int
}

// Case describes one expanded test invocation, as handed to the host
// runner: the final display name plus the lookup key for its row.
type Case struct {
	Method string
	Suite  reflect.Type
	Name   string
	Params []Param
	Key    RowKey
}

// MethodInfo is one discovered test method of a suite.
type MethodInfo struct {
	Name       string
	Index      int // position in the suite's deterministic method order
	Func       reflect.Method
	ParamTypes []reflect.Type // value parameters, excluding the testing.T
	ParamNames []string       // from the registration; nil when not supplied
}

// ConstructorInfo describes a registered suite constructor.
type ConstructorInfo struct {
	Fn         reflect.Value
	ParamTypes []reflect.Type
	ParamNames []string
	CanError   bool
}

// Discovery is the cached result of one discovery pass over a suite type.
type Discovery struct {
	Suite       reflect.Type
	Constructor *ConstructorInfo
	Methods     []MethodInfo

	// PerMethod holds the effective occurrence list for each test method,
	// after override filtering, in origin order: class, field,
	// constructor, constructor parameters, method, method parameters.
	PerMethod map[string][]Occurrence

	// Validators are the suite-wide and kind-declared skip validators, in
	// registration order.
	Validators map[string][]SkipValidator
}

// MethodByName returns the discovered method with the given name.
func (d *Discovery) MethodByName(name string) (MethodInfo, bool) {
	for _, m := range d.Methods {
		if m.Name == name {
			return m, true
		}
	}
	return MethodInfo{}, false
}
