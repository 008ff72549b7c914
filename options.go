package paramgrid

import (
	"fmt"

	"github.com/paramgrid/paramgrid/internal/types"
)

// Option configures one Run call at suite scope.
type Option interface {
	applySuite(*builder)
}

// TargetOption configures a Method or Constructor option.
type TargetOption interface {
	applyTarget(*target)
}

type optionFunc func(*builder)

func (f optionFunc) applySuite(b *builder) { f(b) }

type targetFunc func(*target)

func (f targetFunc) applyTarget(t *target) { f(t) }

// DeclOption attaches a declaration; it works at suite scope and on a
// method or the constructor.
type DeclOption struct {
	d types.Declaration
}

func (o DeclOption) applySuite(b *builder) {
	b.reg.SuiteDecls = append(b.reg.SuiteDecls, o.d)
}

func (o DeclOption) applyTarget(t *target) {
	t.decls = append(t.decls, o.d)
}

// Declare attaches a declaration to the enclosing scope: the suite when
// passed to Run directly, the method or constructor when passed to Method
// or Constructor.
func Declare(d Declaration) DeclOption {
	return DeclOption{d: d.d}
}

// Param attaches a declaration to one named constructor or method
// parameter. The names come from the Params option; Go reflection does not
// retain them.
func Param(name string, d Declaration) TargetOption {
	return targetFunc(func(t *target) {
		t.params = append(t.params, types.ParamDecl{Param: name, Decl: d.d})
	})
}

// Params supplies the parameter names of a method (its value parameters,
// after the *testing.T) or the constructor, in signature order.
func Params(names ...string) TargetOption {
	return targetFunc(func(t *target) {
		t.names = names
	})
}

// Field attaches a declaration to a named exported suite field, as an
// alternative to the `param:"..."` struct tag. A field may not carry both.
func Field(name string, d Declaration) Option {
	return optionFunc(func(b *builder) {
		b.reg.Fields = append(b.reg.Fields, types.FieldDecl{Field: name, Decl: d.d})
	})
}

// ValidateOption registers a skip validator; it works at suite scope and on
// a method, but not on the constructor.
type ValidateOption struct {
	v SkipValidator
}

func (o ValidateOption) applySuite(b *builder) {
	b.reg.Validators = append(b.reg.Validators, o.v)
}

func (o ValidateOption) applyTarget(t *target) {
	if t.ctor {
		t.fail("a constructor cannot carry a skip validator; attach it to the suite or a method")
		return
	}
	t.validators = append(t.validators, o.v)
}

// Validate registers a skip validator. Validators see each candidate
// combination before it becomes a test case; returning true prunes it
// silently.
func Validate(v SkipValidator) ValidateOption {
	return ValidateOption{v: v}
}

// Method scopes target options to one test method by name.
func Method(name string, opts ...TargetOption) Option {
	return optionFunc(func(b *builder) {
		t := &target{site: fmt.Sprintf("method %q", name)}
		for _, o := range opts {
			o.applyTarget(t)
		}
		if t.err != nil {
			b.check(t.err)
			return
		}
		if b.reg.Methods == nil {
			b.reg.Methods = make(map[string]*types.MethodReg)
		}
		if _, dup := b.reg.Methods[name]; dup {
			b.check(types.Configf(t.site, "registered twice; merge the options into one Method call"))
			return
		}
		b.reg.Methods[name] = &types.MethodReg{
			Name:       name,
			ParamNames: t.names,
			Decls:      t.decls,
			Params:     t.params,
			Validators: t.validators,
		}
	})
}

// Constructor registers the suite constructor: a func returning the suite
// pointer, or the pointer and an error. Each test case calls it to build a
// fresh instance; its parameters participate in the combination like method
// parameters do.
func Constructor(fn any, opts ...TargetOption) Option {
	return optionFunc(func(b *builder) {
		t := &target{site: "constructor", ctor: true}
		for _, o := range opts {
			o.applyTarget(t)
		}
		if t.err != nil {
			b.check(t.err)
			return
		}
		if b.reg.Constructor != nil {
			b.check(types.Configf(t.site, "registered twice"))
			return
		}
		b.reg.Constructor = &types.ConstructorReg{
			Fn:         fn,
			ParamNames: t.names,
			Decls:      t.decls,
			Params:     t.params,
		}
	})
}

type target struct {
	site string
	ctor bool

	names      []string
	decls      []types.Declaration
	params     []types.ParamDecl
	validators []types.SkipValidator

	err error
}

func (t *target) fail(format string, args ...any) {
	if t.err == nil {
		t.err = types.Configf(t.site, format, args...)
	}
}

type builder struct {
	reg types.Registration
	err error
}

func (b *builder) check(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *builder) build(opts []Option) (*types.Registration, error) {
	for _, o := range opts {
		o.applySuite(b)
	}
	if b.err != nil {
		return nil, b.err
	}
	b.reg.ID = nextRegistrationID()
	b.reg.LookupProvider = lookupProvider
	b.reg.ProviderNames = providerNames
	return &b.reg, nil
}
