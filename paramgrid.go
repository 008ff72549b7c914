// Package paramgrid expands parameterized tests: it discovers value
// declarations on a suite struct, its fields, its constructor, and its test
// methods, resolves each declaration to candidate values, and runs one
// subtest per combination with the values injected into fields and
// parameters.
//
// A suite is a pointer to a struct with methods of the form
//
//	func (s *S) TestXxx(t *testing.T, extra ...Type)
//
// Run expands every test method. Declarations attach through `param:"..."`
// struct tags or through options; see Values, Rows, Declare, Param, and
// Field.
package paramgrid

import (
	"errors"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/paramgrid/paramgrid/internal/combine"
	"github.com/paramgrid/paramgrid/internal/discover"
	"github.com/paramgrid/paramgrid/internal/inject"
	"github.com/paramgrid/paramgrid/internal/naming"
	"github.com/paramgrid/paramgrid/internal/resolve"
	"github.com/paramgrid/paramgrid/internal/types"
)

// cacheCapacity bounds each shared engine cache. Suites well beyond this
// count only lose memoization, never correctness.
const cacheCapacity = 128

var (
	defaultEnums = types.NewEnumRegistry()
	discoverer   = discover.New(cacheCapacity)
	resolver     = resolve.New(defaultEnums, cacheCapacity)
	combiner     = combine.New(resolver, cacheCapacity)

	registrationIDs atomic.Uint64
)

func nextRegistrationID() uint64 {
	return registrationIDs.Add(1)
}

// Run expands and executes every test method of the suite as subtests of t.
// The suite value is the prototype: without a registered constructor, each
// case starts from a shallow copy of it. Configuration errors fail t before
// any test body runs.
func Run(t *testing.T, suite any, opts ...Option) {
	t.Helper()

	reg, err := (&builder{}).build(opts)
	if err != nil {
		fatal(t, err)
		return
	}

	proto := reflect.ValueOf(suite)
	disc, err := discoverer.Discover(reflect.TypeOf(suite), reg)
	if err != nil {
		fatal(t, err)
		return
	}

	cases, err := plan(disc, reg)
	if err != nil {
		fatal(t, err)
		return
	}
	for _, c := range cases {
		runCase(t, disc, reg, proto, c)
	}
}

// plan resolves and combines every method up front, so configuration errors
// anywhere in the suite surface before the first test body runs. Each case
// carries a lookup key, not values: runCase re-obtains its row through the
// same cached combination call.
func plan(disc *types.Discovery, reg *types.Registration) ([]types.Case, error) {
	var cases []types.Case
	for _, m := range disc.Methods {
		rows, err := combiner.Rows(disc, reg, m.Name)
		if err != nil {
			return nil, err
		}
		names := naming.Names(m.Name, rows)
		for i, row := range rows {
			cases = append(cases, types.Case{
				Method: m.Name,
				Suite:  disc.Suite,
				Name:   names[i],
				Params: row.Params,
				Key: types.RowKey{
					Suite:       disc.Suite.String(),
					MethodIndex: m.Index,
					Combination: i,
				},
			})
		}
	}
	return cases, nil
}

func runCase(t *testing.T, disc *types.Discovery, reg *types.Registration, proto reflect.Value, c types.Case) {
	t.Run(c.Name, func(t *testing.T) {
		rows, err := combiner.Rows(disc, reg, c.Method)
		if err != nil {
			fatal(t, err)
			return
		}
		m, _ := disc.MethodByName(c.Method)
		row := rows[c.Key.Combination]
		res, err := inject.Build(disc, m, row, proto)
		if err != nil {
			fatal(t, err)
			return
		}

		currentCases.Store(t, publicCase(c, row))
		defer currentCases.Delete(t)

		args := make([]reflect.Value, 0, 2+len(res.MethodArgs))
		args = append(args, res.Instance, reflect.ValueOf(t))
		args = append(args, res.MethodArgs...)
		m.Func.Func.Call(args)
	})
}

// publicCase exposes the row's resolved candidates, not its display cells:
// a whole-row declaration renders as one display cell but still yields one
// named entry per parameter it fills, so Param lookup works uniformly.
func publicCase(c types.Case, row types.Row) Case {
	out := Case{
		Suite:  c.Suite.String(),
		Method: c.Method,
		Name:   c.Name,
		Params: make([]CaseParam, len(row.Candidates)),
	}
	for i, cand := range row.Candidates {
		name := cand.Name
		if name == "" && cand.Occ != nil {
			name = cand.Occ.Key()
		}
		text := cand.Label
		if text == "" {
			text = naming.Render(cand.Value)
		}
		out.Params[i] = CaseParam{Name: name, Text: text, Value: cand.Value}
	}
	return out
}

func fatal(t *testing.T, err error) {
	t.Helper()
	var ce *types.ConfigError
	if errors.As(err, &ce) {
		t.Fatalf("paramgrid: invalid configuration: %v", err)
		return
	}
	t.Fatalf("paramgrid: %v", err)
}
