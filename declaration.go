package paramgrid

import "github.com/paramgrid/paramgrid/internal/types"

// Declaration is one parameter-value declaration: the set of candidate
// values (or whole parameter rows) a target expands over. Build one with
// Values, ValuesFrom, ValuesNamed, Rows, NamedRows, RowsFrom, or Use, and
// attach it with Declare, Param, or Field.
type Declaration struct {
	d types.Declaration
}

// Values declares an explicit candidate list of YAML literals, decoded
// against the target's type. With no literals the declaration falls back to
// the implicit expansion: both booleans for a bool target, every registered
// constant for an enum target.
func Values(literals ...string) Declaration {
	return Declaration{d: types.Declaration{Kind: types.KindValue, Literals: literals}}
}

// ValuesFrom declares candidates produced by a provider at expansion time.
func ValuesFrom(p ValueProvider) Declaration {
	return Declaration{d: types.Declaration{Kind: types.KindValue, Provider: p}}
}

// ValuesNamed declares candidates produced by a provider previously
// registered under name with RegisterProvider. This is the programmatic
// form of the `param:"provider=name"` struct tag.
func ValuesNamed(name string) Declaration {
	return Declaration{d: types.Declaration{Kind: types.KindValue, ProviderName: name}}
}

// Rows declares whole parameter sets: each literal is a YAML mapping keyed
// by the declared parameter names, and each mapping becomes one combination
// row filling every parameter at once. Rows attach to a method or the
// constructor, never to a single parameter.
func Rows(literals ...string) Declaration {
	rows := make([]types.NamedRow, len(literals))
	for i, lit := range literals {
		rows[i] = types.NamedRow{Literal: lit}
	}
	return Declaration{d: types.Declaration{Kind: types.KindRows, RowLiterals: rows}}
}

// RowSpec is one row literal with an optional custom display name.
type RowSpec struct {
	name    string
	literal string
}

// Named builds a RowSpec whose display name replaces the literal text.
func Named(name, literal string) RowSpec {
	return RowSpec{name: name, literal: literal}
}

// Row builds an unnamed RowSpec; its literal text is its display name.
func Row(literal string) RowSpec {
	return RowSpec{literal: literal}
}

// NamedRows declares whole parameter sets from individually built rows.
// Unlike Rows it carries per-row display names; it may not be combined with
// a row provider.
func NamedRows(rows ...RowSpec) Declaration {
	nr := make([]types.NamedRow, len(rows))
	for i, r := range rows {
		nr[i] = types.NamedRow{Name: r.name, Literal: r.literal}
	}
	return Declaration{d: types.Declaration{Kind: types.KindRows, RowLiterals: nr, Repeated: true}}
}

// RowsFrom declares whole parameter sets produced by a row provider at
// expansion time.
func RowsFrom(p RowProvider) Declaration {
	return Declaration{d: types.Declaration{Kind: types.KindRows, RowProvider: p}}
}

// Use declares an occurrence of a custom kind. The kind's own provider
// supplies the values; its validator, if any, applies to every method the
// occurrence reaches.
func Use(k *Kind) Declaration {
	return Declaration{d: types.Declaration{Kind: k.k}}
}
