// Package discover walks a suite type and its registration, enumerating
// every parameter-declaring occurrence, validating placement rules, and
// applying scope-override filtering per test method.
package discover

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/paramgrid/paramgrid/internal/literal"
	"github.com/paramgrid/paramgrid/internal/types"
	"github.com/paramgrid/paramgrid/internal/xsync"
)

// Tag is the struct tag key carrying field-origin declarations.
const Tag = "param"

const tagProviderPrefix = "provider="

var testingTType = reflect.TypeOf((*testing.T)(nil))

type cacheKey struct {
	suite reflect.Type
	regID uint64
}

// Discoverer memoizes discovery passes. Discovery is expensive and stable
// for a (suite type, registration) pair; results are immutable.
type Discoverer struct {
	cache *xsync.Cache[cacheKey, *types.Discovery]
}

func New(capacity int) *Discoverer {
	return &Discoverer{cache: xsync.NewCache[cacheKey, *types.Discovery](capacity)}
}

// Discover returns the occurrence set for the suite, cached.
func (d *Discoverer) Discover(suite reflect.Type, reg *types.Registration) (*types.Discovery, error) {
	return d.cache.GetOrCompute(cacheKey{suite: suite, regID: reg.ID}, func() (*types.Discovery, error) {
		return discover(suite, reg)
	})
}

func discover(suite reflect.Type, reg *types.Registration) (*types.Discovery, error) {
	if suite.Kind() != reflect.Pointer || suite.Elem().Kind() != reflect.Struct {
		return nil, types.Configf(fmt.Sprintf("suite %s", suite), "a suite must be a pointer to a struct")
	}

	methods, err := testMethods(suite, reg)
	if err != nil {
		return nil, err
	}
	if len(methods) == 0 {
		return nil, types.Configf(fmt.Sprintf("suite %s", suite),
			"no test methods found; test methods look like func (s *S) TestXxx(t *testing.T, ...)")
	}

	ctor, err := constructorInfo(suite, reg)
	if err != nil {
		return nil, err
	}

	w := &walker{suite: suite, reg: reg, ctor: ctor}
	if err := w.collect(methods); err != nil {
		return nil, err
	}
	if err := w.validatePlacement(); err != nil {
		return nil, err
	}

	disc := &types.Discovery{
		Suite:       suite,
		Constructor: ctor,
		Methods:     methods,
		PerMethod:   make(map[string][]types.Occurrence, len(methods)),
		Validators:  make(map[string][]types.SkipValidator, len(methods)),
	}
	for _, m := range methods {
		occs := w.forMethod(m.Name)
		disc.PerMethod[m.Name] = occs
		disc.Validators[m.Name] = validatorsFor(reg, m.Name, occs)
	}
	return disc, nil
}

// testMethods enumerates TestXxx methods in reflect's deterministic order.
// A Test-prefixed method with the wrong shape is an error rather than a
// silent skip.
func testMethods(suite reflect.Type, reg *types.Registration) ([]types.MethodInfo, error) {
	var methods []types.MethodInfo
	for i := 0; i < suite.NumMethod(); i++ {
		m := suite.Method(i)
		if !strings.HasPrefix(m.Name, "Test") {
			continue
		}
		site := fmt.Sprintf("method %s.%s", suite, m.Name)
		if m.Type.NumIn() < 2 || m.Type.In(1) != testingTType {
			return nil, types.Configf(site, "a test method's first parameter must be *testing.T")
		}
		if m.Type.NumOut() != 0 {
			return nil, types.Configf(site, "a test method must not return values")
		}
		if m.Type.IsVariadic() {
			return nil, types.Configf(site, "a test method must not be variadic")
		}

		info := types.MethodInfo{
			Name:  m.Name,
			Index: len(methods),
			Func:  m,
		}
		for p := 2; p < m.Type.NumIn(); p++ {
			info.ParamTypes = append(info.ParamTypes, m.Type.In(p))
		}
		if mr := reg.MethodReg(m.Name); mr != nil && mr.ParamNames != nil {
			if len(mr.ParamNames) != len(info.ParamTypes) {
				return nil, types.Configf(site, "Params names %v do not match the %d value parameters",
					mr.ParamNames, len(info.ParamTypes))
			}
			info.ParamNames = mr.ParamNames
		}
		methods = append(methods, info)
	}

	for name := range reg.Methods {
		found := false
		for _, m := range methods {
			if m.Name == name {
				found = true
				break
			}
		}
		if !found {
			return nil, types.Configf(fmt.Sprintf("suite %s", suite),
				"registration names method %q, but the suite has no such test method", name)
		}
	}
	return methods, nil
}

func constructorInfo(suite reflect.Type, reg *types.Registration) (*types.ConstructorInfo, error) {
	if reg.Constructor == nil {
		return nil, nil
	}
	site := fmt.Sprintf("constructor of %s", suite)
	fn := reflect.ValueOf(reg.Constructor.Fn)
	if !fn.IsValid() || fn.Kind() != reflect.Func {
		return nil, types.Configf(site, "constructor must be a function, got %T", reg.Constructor.Fn)
	}
	ft := fn.Type()
	switch {
	case ft.NumOut() == 1 && ft.Out(0) == suite:
	case ft.NumOut() == 2 && ft.Out(0) == suite && ft.Out(1) == reflect.TypeOf((*error)(nil)).Elem():
	default:
		return nil, types.Configf(site, "constructor must return %s or (%s, error)", suite, suite)
	}
	info := &types.ConstructorInfo{
		Fn:         fn,
		ParamNames: reg.Constructor.ParamNames,
		CanError:   ft.NumOut() == 2,
	}
	for i := 0; i < ft.NumIn(); i++ {
		info.ParamTypes = append(info.ParamTypes, ft.In(i))
	}
	if info.ParamNames != nil && len(info.ParamNames) != ft.NumIn() {
		return nil, types.Configf(site, "Params names %v do not match the %d constructor parameters",
			info.ParamNames, ft.NumIn())
	}
	return info, nil
}

type walker struct {
	suite reflect.Type
	reg   *types.Registration
	ctor  *types.ConstructorInfo

	classOccs []types.Occurrence
	fieldOccs []types.Occurrence
	ctorOccs  []types.Occurrence // constructor and constructor-parameter origin
	methOccs  map[string][]types.Occurrence
}

func (w *walker) collect(methods []types.MethodInfo) error {
	for i, d := range w.reg.SuiteDecls {
		occ := types.Occurrence{
			Decl: d, Origin: types.OriginClass, Suite: w.suite, ParamIndex: -1,
			DeclIndex: i, CoLocated: w.reg.SuiteDecls,
		}
		if err := validateClassDecl(&occ); err != nil {
			return err
		}
		w.classOccs = append(w.classOccs, occ)
	}

	if err := w.collectFields(); err != nil {
		return err
	}
	if err := w.collectConstructor(); err != nil {
		return err
	}

	w.methOccs = make(map[string][]types.Occurrence)
	for _, m := range methods {
		occs, err := w.collectMethod(m)
		if err != nil {
			return err
		}
		w.methOccs[m.Name] = occs
	}
	return nil
}

func validateClassDecl(occ *types.Occurrence) error {
	d := occ.Decl
	if d.Kind.Family == types.FamilyRows {
		return types.Configf(occ.Site(), "row declarations belong on methods or the constructor, not the suite")
	}
	if len(d.Literals) > 0 || d.ProviderName != "" {
		return types.Configf(occ.Site(), "a suite-level declaration has no target type to decode literals into; use a provider")
	}
	if d.Provider == nil && d.Kind.Provider == nil {
		return types.Configf(occ.Site(), "a suite-level declaration requires a value provider")
	}
	return nil
}

func (w *walker) collectFields() error {
	declared := make(map[string][]int)
	if err := w.walkStruct(w.suite.Elem(), nil, declared); err != nil {
		return err
	}

	for _, fd := range w.reg.Fields {
		site := fmt.Sprintf("field %s.%s", w.suite, fd.Field)
		f, ok := w.suite.Elem().FieldByName(fd.Field)
		if !ok {
			return types.Configf(site, "the suite has no such field")
		}
		if f.PkgPath != "" {
			return types.Configf(site, "injected fields must be exported")
		}
		if _, dup := declared[fd.Field]; dup {
			return types.Configf(site, "field is declared both by its struct tag and a Field option")
		}
		if fd.Decl.Kind.Family == types.FamilyRows {
			return types.Configf(site, "row declarations belong on methods or the constructor, not fields")
		}
		w.fieldOccs = append(w.fieldOccs, types.Occurrence{
			Decl: fd.Decl, Origin: types.OriginField, Suite: w.suite,
			Target: f.Type, Name: fd.Field, FieldIndex: f.Index, ParamIndex: -1,
		})
	}
	return nil
}

// walkStruct visits t's fields and recurses into embedded structs: the
// ancestor chain of the suite.
func (w *walker) walkStruct(t reflect.Type, index []int, declared map[string][]int) error {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		path := append(append([]int(nil), index...), i)

		if f.Anonymous {
			et := f.Type
			if et.Kind() == reflect.Pointer {
				et = et.Elem()
			}
			if et.Kind() == reflect.Struct {
				if err := w.walkStruct(et, path, declared); err != nil {
					return err
				}
				continue
			}
		}

		tag, ok := f.Tag.Lookup(Tag)
		if !ok {
			continue
		}
		site := fmt.Sprintf("field %s.%s", w.suite, f.Name)
		if f.PkgPath != "" {
			return types.Configf(site, "fields tagged %q must be exported", Tag)
		}
		decl, err := parseTag(tag, site)
		if err != nil {
			return err
		}
		declared[f.Name] = path
		w.fieldOccs = append(w.fieldOccs, types.Occurrence{
			Decl: decl, Origin: types.OriginField, Suite: w.suite,
			Target: f.Type, Name: f.Name, FieldIndex: path, ParamIndex: -1,
		})
	}
	return nil
}

// parseTag reads the field tag grammar: empty for implicit bool/enum
// expansion, "provider=name" for a registered provider, or a YAML flow
// sequence of literals.
func parseTag(tag, site string) (types.Declaration, error) {
	d := types.Declaration{Kind: types.KindValue}
	switch {
	case tag == "":
		// implicit expansion, resolved against the field type
	case strings.HasPrefix(tag, tagProviderPrefix):
		d.ProviderName = strings.TrimPrefix(tag, tagProviderPrefix)
		if d.ProviderName == "" {
			return d, types.Configf(site, "tag %q names an empty provider", tag)
		}
	default:
		lits, err := literal.ParseStringList(tag)
		if err != nil {
			return d, types.ConfigWrap(site, err, "malformed %q tag", Tag)
		}
		d.Literals = lits
	}
	return d, nil
}

func (w *walker) collectConstructor() error {
	if w.reg.Constructor == nil {
		return nil
	}
	cr := w.reg.Constructor
	for i, d := range cr.Decls {
		w.ctorOccs = append(w.ctorOccs, types.Occurrence{
			Decl: d, Origin: types.OriginConstructor, Suite: w.suite,
			ParamIndex: -1, DeclIndex: i, CoLocated: cr.Decls,
		})
	}
	for _, pd := range cr.Params {
		idx, t, err := paramSlot(pd.Param, w.ctor.ParamNames, w.ctor.ParamTypes,
			fmt.Sprintf("constructor of %s", w.suite))
		if err != nil {
			return err
		}
		w.ctorOccs = append(w.ctorOccs, types.Occurrence{
			Decl: pd.Decl, Origin: types.OriginConstructorParam, Suite: w.suite,
			Target: t, Name: pd.Param, ParamIndex: idx,
		})
	}
	sortParamsLast(w.ctorOccs)
	return nil
}

func (w *walker) collectMethod(m types.MethodInfo) ([]types.Occurrence, error) {
	mr := w.reg.MethodReg(m.Name)
	if mr == nil {
		return nil, nil
	}
	var occs []types.Occurrence
	for i, d := range mr.Decls {
		occs = append(occs, types.Occurrence{
			Decl: d, Origin: types.OriginMethod, Suite: w.suite,
			Method: m.Name, ParamIndex: -1, DeclIndex: i, CoLocated: mr.Decls,
		})
	}
	for _, pd := range mr.Params {
		idx, t, err := paramSlot(pd.Param, m.ParamNames, m.ParamTypes,
			fmt.Sprintf("method %s.%s", w.suite, m.Name))
		if err != nil {
			return nil, err
		}
		if pd.Decl.Kind.Family == types.FamilyRows {
			return nil, types.Configf(fmt.Sprintf("parameter %q of %s.%s", pd.Param, w.suite, m.Name),
				"row declarations belong on the method itself, not a single parameter")
		}
		occs = append(occs, types.Occurrence{
			Decl: pd.Decl, Origin: types.OriginMethodParam, Suite: w.suite,
			Method: m.Name, Target: t, Name: pd.Param, ParamIndex: idx,
		})
	}
	sortParamsLast(occs)
	return occs, nil
}

func paramSlot(name string, names []string, paramTypes []reflect.Type, site string) (int, reflect.Type, error) {
	if names == nil {
		return 0, nil, types.Configf(site,
			"parameter %q is declared but no parameter names are registered; add Params(...) — Go reflection does not retain them", name)
	}
	for i, n := range names {
		if n == name {
			return i, paramTypes[i], nil
		}
	}
	return 0, nil, types.Configf(site, "no parameter named %q (declared names: %v)", name, names)
}

// sortParamsLast keeps declaration-level occurrences before parameter-level
// ones and orders parameter occurrences by signature position. The sort is
// stable by construction: indexes are unique.
func sortParamsLast(occs []types.Occurrence) {
	for i := 1; i < len(occs); i++ {
		for j := i; j > 0 && less(occs[j], occs[j-1]); j-- {
			occs[j], occs[j-1] = occs[j-1], occs[j]
		}
	}
}

func less(a, b types.Occurrence) bool {
	if a.Origin != b.Origin {
		return a.Origin < b.Origin
	}
	return a.ParamIndex < b.ParamIndex
}

// validatePlacement enforces the non-overlap rules for custom kinds: at
// most one class-level and one constructor-level occurrence; field
// duplication makes a kind specific and blocks method-level placement;
// class+field, class+constructor, and constructor+field placements of the
// same kind are mutually exclusive. Built-in kinds are exempt: each of
// their occurrences binds its own distinct target.
func (w *walker) validatePlacement() error {
	suite := fmt.Sprintf("suite %s", w.suite)

	classCount := make(map[*types.Kind]int)
	for _, o := range w.classOccs {
		if o.Decl.Kind.Builtin() {
			continue
		}
		classCount[o.Decl.Kind]++
		if classCount[o.Decl.Kind] > 1 {
			return types.Configf(suite, "kind %q appears more than once at suite level", o.Decl.Kind.Name)
		}
	}

	ctorCount := make(map[*types.Kind]int)
	for _, o := range w.ctorOccs {
		if o.Origin != types.OriginConstructor {
			continue
		}
		ctorCount[o.Decl.Kind]++
		if ctorCount[o.Decl.Kind] > 1 {
			return types.Configf(suite, "kind %q appears more than once on the constructor", o.Decl.Kind.Name)
		}
	}

	for name, occs := range w.methOccs {
		seen := make(map[*types.Kind]int)
		for _, o := range occs {
			if o.Origin != types.OriginMethod {
				continue
			}
			seen[o.Decl.Kind]++
			if seen[o.Decl.Kind] > 1 {
				return types.Configf(fmt.Sprintf("method %s.%s", w.suite, name),
					"kind %q appears more than once at method level", o.Decl.Kind.Name)
			}
		}
	}

	fieldCount := make(map[*types.Kind][]string)
	for _, o := range w.fieldOccs {
		if o.Decl.Kind.Builtin() {
			continue
		}
		fieldCount[o.Decl.Kind] = append(fieldCount[o.Decl.Kind], o.Name)
	}

	for kind, fields := range fieldCount {
		if classCount[kind] > 0 {
			return types.Configf(suite,
				"kind %q is declared both at suite level and on field %s; the placements are mutually exclusive",
				kind.Name, fields[0])
		}
		if ctorCount[kind] > 0 {
			return types.Configf(suite,
				"kind %q is declared both on the constructor and on field %s; the placements are mutually exclusive",
				kind.Name, fields[0])
		}
		if len(fields) > 1 && w.methodLevelKind(kind) != "" {
			return types.Configf(suite,
				"kind %q is declared on several fields (%v), which makes it specific; it may not also appear on method %s",
				kind.Name, fields, w.methodLevelKind(kind))
		}
	}

	for kind := range classCount {
		if ctorCount[kind] > 0 {
			return types.Configf(suite,
				"kind %q is declared both at suite level and on the constructor; the placements are mutually exclusive",
				kind.Name)
		}
	}
	return nil
}

func (w *walker) methodLevelKind(kind *types.Kind) string {
	for name, occs := range w.methOccs {
		for _, o := range occs {
			if o.Origin == types.OriginMethod && o.Decl.Kind == kind {
				return name
			}
		}
	}
	return ""
}

// forMethod assembles the effective occurrence list for one method in
// origin order, suppressing class- and field-origin occurrences of a kind
// that also appears directly on the method, its parameters, the
// constructor, or constructor parameters. A suppressed field occurrence
// leaves its field as the injection target of the overriding occurrence.
func (w *walker) forMethod(name string) []types.Occurrence {
	specific := make(map[*types.Kind]bool)
	fieldTarget := make(map[*types.Kind]*types.Occurrence)
	for _, o := range w.ctorOccs {
		specific[o.Decl.Kind] = true
	}
	for _, o := range w.methOccs[name] {
		specific[o.Decl.Kind] = true
	}

	var out []types.Occurrence
	for _, o := range w.classOccs {
		if !specific[o.Decl.Kind] {
			out = append(out, o)
		}
	}
	for i := range w.fieldOccs {
		o := w.fieldOccs[i]
		if o.Decl.Kind.Builtin() || !specific[o.Decl.Kind] {
			out = append(out, o)
		} else if fieldTarget[o.Decl.Kind] == nil {
			fieldTarget[o.Decl.Kind] = &w.fieldOccs[i]
		}
	}
	for _, o := range w.ctorOccs {
		out = append(out, redirect(o, fieldTarget))
	}
	for _, o := range w.methOccs[name] {
		out = append(out, redirect(o, fieldTarget))
	}
	return out
}

// redirect points an overriding method/constructor-level occurrence at the
// field it suppressed, so injection still fills the field.
func redirect(o types.Occurrence, fieldTarget map[*types.Kind]*types.Occurrence) types.Occurrence {
	if o.ParamIndex >= 0 || o.Decl.Kind.Builtin() {
		return o
	}
	if ft := fieldTarget[o.Decl.Kind]; ft != nil && o.FieldIndex == nil {
		o.FieldIndex = ft.FieldIndex
		o.Target = ft.Target
		if o.Name == "" {
			o.Name = ft.Name
		}
	}
	return o
}

func validatorsFor(reg *types.Registration, method string, occs []types.Occurrence) []types.SkipValidator {
	var vs []types.SkipValidator
	vs = append(vs, reg.Validators...)
	if mr := reg.MethodReg(method); mr != nil {
		vs = append(vs, mr.Validators...)
	}
	for _, o := range occs {
		if o.Decl.Kind.Validator != nil {
			vs = append(vs, o.Decl.Kind.Validator)
		}
	}
	return vs
}
