// Package inject maps one combination row back onto a test instance:
// constructor arguments, method arguments, and tagged fields.
package inject

import (
	"fmt"
	"reflect"

	"github.com/paramgrid/paramgrid/internal/types"
)

// Result carries the constructed suite instance and the method's value
// arguments for one row.
type Result struct {
	Instance   reflect.Value
	MethodArgs []reflect.Value
}

// Build constructs the suite instance for one row and assembles the method
// arguments. Without a constructor the prototype is shallow-copied, so
// presets on the value passed to Run survive. Every candidate in the row
// is consumed exactly once: by a constructor slot, a method slot, a field,
// or as an ambient class-level value.
func Build(disc *types.Discovery, m types.MethodInfo, row types.Row, prototype reflect.Value) (Result, error) {
	var ctorArgs []slot
	if disc.Constructor != nil {
		ctorArgs = make([]slot, len(disc.Constructor.ParamTypes))
	}
	methodArgs := make([]slot, len(m.ParamTypes))
	consumed := 0

	var fields []fieldSet
	for _, cand := range row.Candidates {
		switch {
		case cand.Occ != nil && cand.Occ.FieldIndex != nil:
			fields = append(fields, fieldSet{index: cand.Occ.FieldIndex, name: cand.Occ.Name, value: cand.Value})
			consumed++
		case cand.TargetParam >= 0:
			slots := methodArgs
			if cand.Origin == types.OriginConstructor || cand.Origin == types.OriginConstructorParam {
				slots = ctorArgs
			}
			if err := slots[cand.TargetParam].fill(cand); err != nil {
				return Result{}, err
			}
			consumed++
		case cand.Origin == types.OriginClass || cand.Origin == types.OriginMethod || cand.Origin == types.OriginConstructor:
			// Ambient: no injection target; exposed through the case view.
			consumed++
		}
	}
	if consumed != len(row.Candidates) {
		return Result{}, fmt.Errorf("internal: %d of %d resolved values consumed for %s.%s",
			consumed, len(row.Candidates), disc.Suite, m.Name)
	}

	instance, err := construct(disc, ctorArgs, prototype)
	if err != nil {
		return Result{}, err
	}
	for _, f := range fields {
		if err := setField(disc, instance, f); err != nil {
			return Result{}, err
		}
	}

	args, err := slotValues(methodArgs, m.ParamTypes, fmt.Sprintf("method %s.%s", disc.Suite, m.Name))
	if err != nil {
		return Result{}, err
	}
	return Result{Instance: instance, MethodArgs: args}, nil
}

type slot struct {
	filled bool
	cand   types.Candidate
}

func (s *slot) fill(cand types.Candidate) error {
	if s.filled {
		return fmt.Errorf("internal: two resolved values target %s", cand.Occ.Site())
	}
	s.filled = true
	s.cand = cand
	return nil
}

func slotValues(slots []slot, paramTypes []reflect.Type, site string) ([]reflect.Value, error) {
	args := make([]reflect.Value, len(slots))
	for i, s := range slots {
		if !s.filled {
			return nil, types.Configf(site, "value parameter %d has no value declaration", i+1)
		}
		v, err := argValue(s.cand.Value, paramTypes[i], site)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

func argValue(v any, t reflect.Type, site string) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(v)
	if !rv.Type().AssignableTo(t) {
		return reflect.Value{}, types.Configf(site, "value of type %T is not assignable to %s", v, t)
	}
	return rv, nil
}

func construct(disc *types.Discovery, ctorArgs []slot, prototype reflect.Value) (reflect.Value, error) {
	if disc.Constructor == nil {
		fresh := reflect.New(disc.Suite.Elem())
		fresh.Elem().Set(prototype.Elem())
		return fresh, nil
	}

	site := fmt.Sprintf("constructor of %s", disc.Suite)
	args, err := slotValues(ctorArgs, disc.Constructor.ParamTypes, site)
	if err != nil {
		return reflect.Value{}, err
	}
	out := disc.Constructor.Fn.Call(args)
	if disc.Constructor.CanError && !out[1].IsNil() {
		// User-code error: propagate as-is.
		return reflect.Value{}, out[1].Interface().(error)
	}
	if out[0].IsNil() {
		return reflect.Value{}, types.Configf(site, "constructor returned a nil suite")
	}
	return out[0], nil
}

type fieldSet struct {
	index []int
	name  string
	value any
}

func setField(disc *types.Discovery, instance reflect.Value, f fieldSet) error {
	site := fmt.Sprintf("field %s.%s", disc.Suite, f.name)
	target := instance.Elem().FieldByIndex(f.index)
	if !target.CanSet() {
		return types.Configf(site, "injected fields must be exported and addressable")
	}
	v, err := argValue(f.value, target.Type(), site)
	if err != nil {
		return err
	}
	target.Set(v)
	return nil
}
