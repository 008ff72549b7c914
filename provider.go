package paramgrid

import (
	"fmt"

	"github.com/paramgrid/paramgrid/internal/types"
	"github.com/paramgrid/paramgrid/internal/xsync"
)

// ProviderContext describes the declaration site a provider is resolving
// for: the suite, the method (if method-scoped), the target type, the
// declared name, and the declarations co-located at the same site.
type ProviderContext = types.ProviderContext

// ValueProvider produces the ordered candidate values for one declaration.
// Wrap a value in NamedValue to give it a custom display name. Errors and
// panics propagate to the test runner as-is.
type ValueProvider = types.ValueProvider

// RowProvider produces whole parameter sets, keyed by declared parameter
// name. Every row must cover exactly the declared names.
type RowProvider = types.RowProvider

// NamedValue pairs a candidate value with a custom display name.
type NamedValue = types.NamedValue

// ValuesView gives a skip validator read access to one candidate
// combination.
type ValuesView = types.ValuesView

// SkipValidator prunes candidate combinations before they become test
// cases. Pruning every combination of a method is legal.
type SkipValidator = types.SkipValidator

// GroupedValidator additionally declares independent parameter groups: the
// engine then expands each group's own cross product (everything outside
// the group held at its first candidate) and unions the results, instead of
// building the full product.
type GroupedValidator = types.GroupedValidator

// ValueFunc adapts a plain function to the ValueProvider interface.
type ValueFunc func(ProviderContext) ([]any, error)

func (f ValueFunc) Values(ctx ProviderContext) ([]any, error) { return f(ctx) }

// RowFunc adapts a plain function to the RowProvider interface.
type RowFunc func(ProviderContext) ([]map[string]any, error)

func (f RowFunc) Rows(ctx ProviderContext) ([]map[string]any, error) { return f(ctx) }

var namedProviders xsync.Map[string, types.ValueProvider]

// RegisterProvider registers a value provider under a name, for reference
// from `param:"provider=name"` struct tags and ValuesNamed declarations.
// Registering a name twice panics: named providers are package-level wiring
// and a silent overwrite would make test expansion order-dependent.
func RegisterProvider(name string, p ValueProvider) {
	if name == "" {
		panic("paramgrid: RegisterProvider called with an empty name")
	}
	if p == nil {
		panic(fmt.Sprintf("paramgrid: RegisterProvider(%q) called with a nil provider", name))
	}
	if _, dup := namedProviders.Load(name); dup {
		panic(fmt.Sprintf("paramgrid: provider %q registered twice", name))
	}
	namedProviders.Store(name, p)
}

func lookupProvider(name string) (types.ValueProvider, bool) {
	return namedProviders.Load(name)
}

func providerNames() []string {
	var names []string
	namedProviders.Range(func(name string, _ types.ValueProvider) bool {
		names = append(names, name)
		return true
	})
	return names
}

// Kind is a reusable custom declaration kind: a named bundle of a provider
// and an optional skip validator, declared with Use. Kinds compare by
// identity, and one kind may appear at most once per scope.
type Kind struct {
	k *types.Kind
}

// KindOption configures a kind at definition time.
type KindOption func(*types.Kind)

// WithValues gives the kind a value provider; Use occurrences then expand
// like ValuesFrom declarations.
func WithValues(p ValueProvider) KindOption {
	return func(k *types.Kind) {
		k.Provider = p
		k.Family = types.FamilyValue
	}
}

// WithRows gives the kind a row provider; Use occurrences then expand like
// RowsFrom declarations.
func WithRows(p RowProvider) KindOption {
	return func(k *types.Kind) {
		k.RowProvider = p
		k.Family = types.FamilyRows
	}
}

// WithValidator attaches a skip validator that applies to every method an
// occurrence of the kind reaches.
func WithValidator(v SkipValidator) KindOption {
	return func(k *types.Kind) {
		k.Validator = v
	}
}

// DefineKind defines a custom declaration kind. Exactly one of WithValues
// and WithRows must be given; misuse panics, since kinds are defined at
// package level.
func DefineKind(name string, opts ...KindOption) *Kind {
	k := &types.Kind{Name: name}
	for _, o := range opts {
		o(k)
	}
	if k.Provider != nil && k.RowProvider != nil {
		panic(fmt.Sprintf("paramgrid: kind %q has both a value and a row provider", name))
	}
	if k.Provider == nil && k.RowProvider == nil {
		panic(fmt.Sprintf("paramgrid: kind %q needs WithValues or WithRows", name))
	}
	return &Kind{k: k}
}
