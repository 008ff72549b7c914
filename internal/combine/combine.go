// Package combine computes the ordered combination rows for one test
// method: the cross product of independent candidate lists, whole-row
// pairing for pre-built parameter sets, and validator-driven pruning.
package combine

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/paramgrid/paramgrid/internal/resolve"
	"github.com/paramgrid/paramgrid/internal/types"
	"github.com/paramgrid/paramgrid/internal/xsync"
)

type cacheKey struct {
	suite  reflect.Type
	regID  uint64
	method string
}

// Combiner memoizes row computation per (method, suite). The same cached
// call serves both planning and injection-time row lookup, which keeps
// re-location pure and idempotent.
type Combiner struct {
	resolver *resolve.Resolver
	cache    *xsync.Cache[cacheKey, []types.Row]
}

func New(resolver *resolve.Resolver, capacity int) *Combiner {
	return &Combiner{
		resolver: resolver,
		cache:    xsync.NewCache[cacheKey, []types.Row](capacity),
	}
}

// Rows returns the ordered, validator-filtered combination rows for the
// method. Row order is deterministic for an unchanged suite. A method with
// no occurrences yields one empty row: a single unparameterized invocation.
func (c *Combiner) Rows(disc *types.Discovery, reg *types.Registration, method string) ([]types.Row, error) {
	k := cacheKey{suite: disc.Suite, regID: reg.ID, method: method}
	return c.cache.GetOrCompute(k, func() ([]types.Row, error) {
		return c.compute(disc, reg, method)
	})
}

// A unit is one independent choice in the cross product: a value-family
// occurrence contributing one candidate per option, or a rows-family
// occurrence contributing a whole parameter set per option.
type unit struct {
	key  string
	opts []option
}

type option struct {
	cands []types.Candidate
	cell  types.Param
}

func (c *Combiner) compute(disc *types.Discovery, reg *types.Registration, method string) ([]types.Row, error) {
	m, ok := disc.MethodByName(method)
	if !ok {
		return nil, types.Configf(fmt.Sprintf("suite %s", disc.Suite), "unknown test method %q", method)
	}

	units, err := c.buildUnits(disc, reg, m)
	if err != nil {
		return nil, err
	}
	if err := checkCoverage(disc, m, units); err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return []types.Row{{}}, nil
	}

	validators := disc.Validators[method]
	groups, err := independentGroups(validators, units, disc.Suite, method)
	if err != nil {
		return nil, err
	}

	var picks [][]int
	if len(groups) > 0 {
		picks = groupUnion(units, groups)
	} else {
		picks = crossProduct(units)
	}

	var rows []types.Row
	for _, pick := range picks {
		row := assemble(units, pick)
		if skipped(validators, row) {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (c *Combiner) buildUnits(disc *types.Discovery, reg *types.Registration, m types.MethodInfo) ([]unit, error) {
	occs := disc.PerMethod[m.Name]
	units := make([]unit, 0, len(occs))
	for i := range occs {
		occ := &occs[i]
		var u unit
		var err error
		if occ.Decl.Kind.Family == types.FamilyRows {
			u, err = c.rowsUnit(disc, reg, m, occ)
		} else {
			u, err = c.valueUnit(reg, occ)
		}
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, nil
}

func (c *Combiner) valueUnit(reg *types.Registration, occ *types.Occurrence) (unit, error) {
	cands, err := c.resolver.Candidates(occ, reg)
	if err != nil {
		return unit{}, err
	}
	u := unit{key: occ.Key(), opts: make([]option, len(cands))}
	for i, cand := range cands {
		u.opts[i] = option{
			cands: []types.Candidate{cand},
			cell: types.Param{
				Name:  occ.Key(),
				Text:  cand.Label,
				Value: cand.Value,
				Index: cand.Index + 1,
			},
		}
	}
	return u, nil
}

func (c *Combiner) rowsUnit(disc *types.Discovery, reg *types.Registration,
	m types.MethodInfo, occ *types.Occurrence) (unit, error) {
	var names []string
	var paramTypes []reflect.Type
	if occ.Origin == types.OriginConstructor {
		names = disc.Constructor.ParamNames
		paramTypes = disc.Constructor.ParamTypes
	} else {
		names = m.ParamNames
		paramTypes = m.ParamTypes
	}

	sets, err := c.resolver.RowSets(occ, reg, names, paramTypes)
	if err != nil {
		return unit{}, err
	}

	// Column lists give validators the full candidate list per parameter.
	columns := make([][]any, len(names))
	for p := range names {
		columns[p] = make([]any, len(sets))
		for j, set := range sets {
			columns[p][j] = set.Values[p]
		}
	}

	u := unit{key: occ.Decl.Kind.Name, opts: make([]option, len(sets))}
	for j, set := range sets {
		cands := make([]types.Candidate, len(names))
		for p := range names {
			cands[p] = types.Candidate{
				Origin:      occ.Origin,
				Value:       set.Values[p],
				Index:       j,
				Name:        names[p],
				List:        columns[p],
				TargetParam: p,
				Occ:         occ,
			}
		}
		u.opts[j] = option{
			cands: cands,
			cell:  types.Param{Text: set.Label, Value: set.Label, Index: j + 1},
		}
	}
	return u, nil
}

// checkCoverage verifies every constructor and method value parameter is
// filled by exactly one occurrence, before any test runs.
func checkCoverage(disc *types.Discovery, m types.MethodInfo, units []unit) error {
	methodSlots := make([]int, len(m.ParamTypes))
	var ctorSlots []int
	if disc.Constructor != nil {
		ctorSlots = make([]int, len(disc.Constructor.ParamTypes))
	}

	for _, u := range units {
		if len(u.opts) == 0 {
			continue
		}
		for _, cand := range u.opts[0].cands {
			if cand.TargetParam < 0 {
				continue
			}
			switch cand.Origin {
			case types.OriginMethod, types.OriginMethodParam:
				methodSlots[cand.TargetParam]++
			case types.OriginConstructor, types.OriginConstructorParam:
				ctorSlots[cand.TargetParam]++
			}
		}
	}

	for i, n := range methodSlots {
		if n == 0 {
			return types.Configf(fmt.Sprintf("method %s.%s", disc.Suite, m.Name),
				"value parameter %s has no value declaration", slotName(m.ParamNames, i))
		}
		if n > 1 {
			return types.Configf(fmt.Sprintf("method %s.%s", disc.Suite, m.Name),
				"value parameter %s has %d value declarations; declare exactly one", slotName(m.ParamNames, i), n)
		}
	}
	for i, n := range ctorSlots {
		if n == 0 {
			return types.Configf(fmt.Sprintf("constructor of %s", disc.Suite),
				"parameter %s has no value declaration", slotName(disc.Constructor.ParamNames, i))
		}
		if n > 1 {
			return types.Configf(fmt.Sprintf("constructor of %s", disc.Suite),
				"parameter %s has %d value declarations; declare exactly one", slotName(disc.Constructor.ParamNames, i), n)
		}
	}
	return nil
}

func slotName(names []string, i int) string {
	if names != nil {
		return fmt.Sprintf("%q", names[i])
	}
	return fmt.Sprintf("%d", i+1)
}

// crossProduct enumerates option picks lexicographically, first unit
// varying slowest.
func crossProduct(units []unit) [][]int {
	total := 1
	for _, u := range units {
		total *= len(u.opts)
	}
	picks := make([][]int, 0, total)
	pick := make([]int, len(units))
	for {
		picks = append(picks, append([]int(nil), pick...))
		i := len(units) - 1
		for ; i >= 0; i-- {
			pick[i]++
			if pick[i] < len(units[i].opts) {
				break
			}
			pick[i] = 0
		}
		if i < 0 {
			return picks
		}
	}
}

// independentGroups collects the groups declared by grouped validators and
// resolves their member names to unit positions.
func independentGroups(validators []types.SkipValidator, units []unit,
	suite reflect.Type, method string) ([][]int, error) {
	var groups [][]int
	for _, v := range validators {
		gv, ok := v.(types.GroupedValidator)
		if !ok {
			continue
		}
		for _, names := range gv.IndependentGroups() {
			group := make([]int, 0, len(names))
			for _, name := range names {
				idx := -1
				for i, u := range units {
					if u.key == name {
						idx = i
						break
					}
				}
				if idx < 0 {
					return nil, types.Configf(fmt.Sprintf("method %s.%s", suite, method),
						"validator group names unknown parameter %q", name)
				}
				group = append(group, idx)
			}
			groups = append(groups, group)
		}
	}
	return groups, nil
}

// groupUnion builds each group's internal cross product separately, with
// units outside the group pinned to their first candidate, then unions the
// groups' picks in order, dropping duplicates.
func groupUnion(units []unit, groups [][]int) [][]int {
	var out [][]int
	seen := make(map[string]bool)
	for _, group := range groups {
		member := make([]bool, len(units))
		for _, i := range group {
			member[i] = true
		}
		restricted := make([]unit, len(units))
		for i, u := range units {
			if member[i] {
				restricted[i] = u
			} else {
				restricted[i] = unit{key: u.key, opts: u.opts[:1]}
			}
		}
		for _, pick := range crossProduct(restricted) {
			k := pickKey(pick)
			if !seen[k] {
				seen[k] = true
				out = append(out, pick)
			}
		}
	}
	return out
}

func pickKey(pick []int) string {
	var b strings.Builder
	for _, p := range pick {
		fmt.Fprintf(&b, "%d,", p)
	}
	return b.String()
}

func assemble(units []unit, pick []int) types.Row {
	var row types.Row
	for i, u := range units {
		opt := u.opts[pick[i]]
		row.Candidates = append(row.Candidates, opt.cands...)
		row.Params = append(row.Params, opt.cell)
	}
	return row
}

func skipped(validators []types.SkipValidator, row types.Row) bool {
	if len(validators) == 0 {
		return false
	}
	view := newView(row)
	for _, v := range validators {
		if v.ShouldSkip(view) {
			return true
		}
	}
	return false
}

// view exposes one row to skip validators, keyed by declared name (or kind
// name for class-level occurrences; parameter name for row sets).
type view struct {
	values map[string]any
	lists  map[string][]any
}

func newView(row types.Row) *view {
	v := &view{
		values: make(map[string]any, len(row.Candidates)),
		lists:  make(map[string][]any, len(row.Candidates)),
	}
	for _, cand := range row.Candidates {
		key := candidateKey(cand)
		v.values[key] = cand.Value
		v.lists[key] = cand.List
	}
	return v
}

func candidateKey(cand types.Candidate) string {
	if cand.Name != "" {
		return cand.Name
	}
	if cand.Occ != nil {
		return cand.Occ.Key()
	}
	return ""
}

func (v *view) Get(key string) (any, bool) {
	val, ok := v.values[key]
	return val, ok
}

func (v *view) Candidates(key string) ([]any, bool) {
	list, ok := v.lists[key]
	return list, ok
}

func (v *view) All() map[string]any {
	out := make(map[string]any, len(v.values))
	for k, val := range v.values {
		out[k] = val
	}
	return out
}
