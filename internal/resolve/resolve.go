// Package resolve turns one discovered occurrence into its ordered list of
// candidate values: inline literals, provider invocations, or the implicit
// bool/enum expansion.
package resolve

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/paramgrid/paramgrid/internal/literal"
	"github.com/paramgrid/paramgrid/internal/types"
	"github.com/paramgrid/paramgrid/internal/xsync"
)

type cacheKey struct {
	suite  reflect.Type
	regID  uint64
	method string
	origin types.Origin
	name   string
	param  int
	kind   *types.Kind
	decl   int
}

// Resolver memoizes candidate resolution per (occurrence, method, suite).
// Providers therefore run once per scope, not once per combination row.
type Resolver struct {
	enums *types.EnumRegistry
	cache *xsync.Cache[cacheKey, []types.Candidate]
	rows  *xsync.Cache[cacheKey, []RowSet]
}

// RowSet is one resolved whole-row parameter set: the values in declared
// parameter order, plus its display label.
type RowSet struct {
	Label  string // custom name, or the literal text
	Values []any
}

func New(enums *types.EnumRegistry, capacity int) *Resolver {
	return &Resolver{
		enums: enums,
		cache: xsync.NewCache[cacheKey, []types.Candidate](capacity),
		rows:  xsync.NewCache[cacheKey, []RowSet](capacity),
	}
}

// key identifies one occurrence. Origin, name, and parameter position are
// not enough on their own: a site can carry several co-located declarations
// (two suite-level kinds, say), so the kind identity and the declaration's
// position at its site complete the key.
func key(occ *types.Occurrence, regID uint64) cacheKey {
	return cacheKey{
		suite:  occ.Suite,
		regID:  regID,
		method: occ.Method,
		origin: occ.Origin,
		name:   occ.Name,
		param:  occ.ParamIndex,
		kind:   occ.Decl.Kind,
		decl:   occ.DeclIndex,
	}
}

// Candidates resolves a value-family occurrence. The result is never
// empty: zero candidates would silently erase the test, so it is a
// configuration error instead.
func (r *Resolver) Candidates(occ *types.Occurrence, reg *types.Registration) ([]types.Candidate, error) {
	return r.cache.GetOrCompute(key(occ, reg.ID), func() ([]types.Candidate, error) {
		return r.resolve(occ, reg)
	})
}

func (r *Resolver) resolve(occ *types.Occurrence, reg *types.Registration) ([]types.Candidate, error) {
	values, labels, err := r.values(occ, reg)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, types.Configf(occ.Site(),
			"resolved to zero candidate values; an empty expansion would silently skip the test")
	}
	if err := r.checkAssignable(occ, values); err != nil {
		return nil, err
	}

	cands := make([]types.Candidate, len(values))
	for i, v := range values {
		cands[i] = types.Candidate{
			Origin:      occ.Origin,
			Value:       v,
			Index:       i,
			Name:        occ.Name,
			Label:       labels[i],
			List:        values,
			TargetParam: occ.ParamIndex,
			Occ:         occ,
		}
	}
	return cands, nil
}

func (r *Resolver) values(occ *types.Occurrence, reg *types.Registration) ([]any, []string, error) {
	d := occ.Decl
	provider, err := r.provider(occ, reg)
	if err != nil {
		return nil, nil, err
	}

	hasLiterals := len(d.Literals) > 0
	switch {
	case hasLiterals && provider != nil:
		return nil, nil, types.Configf(occ.Site(),
			"both inline literals and a value provider are set; declare exactly one source")
	case hasLiterals:
		return r.fromLiterals(occ)
	case provider != nil:
		return r.fromProvider(occ, provider)
	default:
		return r.implicit(occ)
	}
}

func (r *Resolver) provider(occ *types.Occurrence, reg *types.Registration) (types.ValueProvider, error) {
	d := occ.Decl
	set := 0
	p := d.Provider
	if p != nil {
		set++
	}
	if d.ProviderName != "" {
		set++
		named, ok := reg.LookupProvider(d.ProviderName)
		if !ok {
			return nil, types.Configf(occ.Site(),
				"no value provider registered under %q (registered: %v); call RegisterProvider first",
				d.ProviderName, registeredNames(reg))
		}
		p = named
	}
	if d.Kind.Provider != nil {
		set++
		p = d.Kind.Provider
	}
	if set > 1 {
		return nil, types.Configf(occ.Site(), "more than one value provider is set")
	}
	return p, nil
}

func registeredNames(reg *types.Registration) []string {
	if reg.ProviderNames == nil {
		return nil
	}
	names := reg.ProviderNames()
	sort.Strings(names)
	return names
}

func (r *Resolver) fromLiterals(occ *types.Occurrence) ([]any, []string, error) {
	values := make([]any, len(occ.Decl.Literals))
	for i, lit := range occ.Decl.Literals {
		v, err := literal.Decode(lit, occ.Target, r.enums)
		if err != nil {
			return nil, nil, types.ConfigWrap(occ.Site(), err, "literal %d of %d", i+1, len(occ.Decl.Literals))
		}
		values[i] = v
	}
	return values, make([]string, len(values)), nil
}

// fromProvider runs user code synchronously; its errors propagate as-is,
// not wrapped into configuration errors.
func (r *Resolver) fromProvider(occ *types.Occurrence, p types.ValueProvider) ([]any, []string, error) {
	raw, err := p.Values(providerContext(occ))
	if err != nil {
		return nil, nil, err
	}
	values := make([]any, len(raw))
	labels := make([]string, len(raw))
	for i, v := range raw {
		if nv, ok := v.(types.NamedValue); ok {
			values[i] = nv.Value
			labels[i] = nv.Name
			continue
		}
		values[i] = v
	}
	return values, labels, nil
}

func (r *Resolver) implicit(occ *types.Occurrence) ([]any, []string, error) {
	t := occ.Target
	if t == nil {
		return nil, nil, types.Configf(occ.Site(), "declaration has neither literals nor a provider")
	}
	if t.Kind() == reflect.Bool {
		f := reflect.ValueOf(false).Convert(t).Interface()
		tr := reflect.ValueOf(true).Convert(t).Interface()
		return []any{f, tr}, make([]string, 2), nil
	}
	if cs, ok := r.enums.Constants(t); ok {
		values := make([]any, len(cs))
		labels := make([]string, len(cs))
		for i, c := range cs {
			values[i] = c.Value
			labels[i] = c.Name
		}
		return values, labels, nil
	}
	return nil, nil, types.Configf(occ.Site(),
		"declaration has neither literals nor a provider, and %s is not a bool or registered enum, so no implicit value set exists", t)
}

func (r *Resolver) checkAssignable(occ *types.Occurrence, values []any) error {
	if occ.Target == nil {
		return nil
	}
	for i, v := range values {
		if v == nil {
			if !nilable(occ.Target) {
				return types.Configf(occ.Site(), "candidate %d is nil, but %s cannot hold nil", i+1, occ.Target)
			}
			continue
		}
		if !reflect.TypeOf(v).AssignableTo(occ.Target) {
			return types.Configf(occ.Site(), "candidate %d has type %T, which is not assignable to %s", i+1, v, occ.Target)
		}
	}
	return nil
}

func nilable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface, reflect.Chan, reflect.Func:
		return true
	}
	return false
}

// RowSets resolves a rows-family occurrence into whole parameter sets for
// the given declared names and types.
func (r *Resolver) RowSets(occ *types.Occurrence, reg *types.Registration,
	names []string, paramTypes []reflect.Type) ([]RowSet, error) {
	return r.rows.GetOrCompute(key(occ, reg.ID), func() ([]RowSet, error) {
		return r.resolveRows(occ, names, paramTypes)
	})
}

func (r *Resolver) resolveRows(occ *types.Occurrence, names []string, paramTypes []reflect.Type) ([]RowSet, error) {
	d := occ.Decl
	provider := d.RowProvider
	if provider == nil {
		provider = d.Kind.RowProvider
	}

	if d.Repeated && provider != nil {
		return nil, types.Configf(occ.Site(), "the repeated row form may not be combined with a row provider")
	}
	if len(d.RowLiterals) > 0 && provider != nil {
		return nil, types.Configf(occ.Site(), "both row literals and a row provider are set; declare exactly one source")
	}
	if len(d.RowLiterals) == 0 && provider == nil {
		return nil, types.Configf(occ.Site(), "declaration has neither row literals nor a row provider")
	}
	if names == nil {
		return nil, types.Configf(occ.Site(),
			"row declarations need the parameter names; add Params(...) — Go reflection does not retain them")
	}
	if len(paramTypes) == 0 {
		return nil, types.Configf(occ.Site(), "row declarations need at least one value parameter to fill")
	}

	if provider != nil {
		return r.rowsFromProvider(occ, provider, names, paramTypes)
	}

	sets := make([]RowSet, len(d.RowLiterals))
	for i, rl := range d.RowLiterals {
		values, err := literal.DecodeRow(rl.Literal, names, paramTypes, r.enums)
		if err != nil {
			return nil, types.ConfigWrap(occ.Site(), err, "row %d of %d", i+1, len(d.RowLiterals))
		}
		label := rl.Name
		if label == "" {
			label = rl.Literal
		}
		sets[i] = RowSet{Label: label, Values: values}
	}
	return sets, nil
}

func (r *Resolver) rowsFromProvider(occ *types.Occurrence, p types.RowProvider,
	names []string, paramTypes []reflect.Type) ([]RowSet, error) {
	raw, err := p.Rows(providerContext(occ))
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, types.Configf(occ.Site(), "row provider returned zero rows")
	}
	sets := make([]RowSet, len(raw))
	for i, m := range raw {
		values := make([]any, len(names))
		for j, name := range names {
			v, ok := m[name]
			if !ok {
				return nil, types.Configf(occ.Site(), "provider row %d is missing key %q (declared names: %v)", i+1, name, names)
			}
			if v != nil && !reflect.TypeOf(v).AssignableTo(paramTypes[j]) {
				return nil, types.Configf(occ.Site(), "provider row %d key %q has type %T, which is not assignable to %s",
					i+1, name, v, paramTypes[j])
			}
			values[j] = v
		}
		if len(m) != len(names) {
			return nil, types.Configf(occ.Site(), "provider row %d has keys beyond the declared names %v", i+1, names)
		}
		sets[i] = RowSet{Label: rowLabel(names, values), Values: values}
	}
	return sets, nil
}

func rowLabel(names []string, values []any) string {
	out := "{"
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s: %v", n, values[i])
	}
	return out + "}"
}

func providerContext(occ *types.Occurrence) types.ProviderContext {
	return types.ProviderContext{
		Suite:     occ.Suite,
		Method:    occ.Method,
		Target:    occ.Target,
		Name:      occ.Name,
		CoLocated: occ.CoLocated,
	}
}
