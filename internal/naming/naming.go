// Package naming synthesizes display names for combination rows: base
// rendering, width-budgeted shortening, and collision deduplication.
package naming

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"

	"github.com/paramgrid/paramgrid/internal/types"
)

// MaxNameWidth bounds a test name's display width, leaving headroom for
// filesystem-safe derived artifacts.
const MaxNameWidth = 200

const ellipsis = "..."

// Names builds the display name for every row of one method at once. The
// fast path leaves base names untouched; shortening and deduplication only
// run when a name overflows the budget or collides.
func Names(method string, rows []types.Row) []string {
	texts := make([][]string, len(rows))
	for i, row := range rows {
		texts[i] = make([]string, len(row.Params))
		for j, p := range row.Params {
			texts[i][j] = Text(p)
		}
	}

	names := build(method, texts)
	if overflows(names) {
		return shorten(method, rows, texts)
	}
	if !unique(names) {
		return dedupe(method, rows, texts, names)
	}
	return names
}

// Text renders one display parameter: its custom name when present, else
// its value, prefixed with the declared name when the bare rendering would
// be ambiguous.
func Text(p types.Param) string {
	if p.Text != "" {
		return p.Text
	}
	rendered := Render(p.Value)
	if p.Name != "" && ambiguous(p.Value, rendered) {
		return p.Name + "=" + rendered
	}
	return rendered
}

// Render converts a value to its display form: nil as null, sequences as
// bracketed comma-lists, byte strings as their decoded byte array.
func Render(v any) string {
	if v == nil {
		return "null"
	}
	if b, ok := v.(types.ByteString); ok {
		return Render(b.Bytes())
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = Render(rv.Index(i).Interface())
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return fmt.Sprintf("%v", v)
}

func ambiguous(v any, rendered string) bool {
	if v == nil || rendered == "null" {
		return true
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	for _, r := range rendered {
		if unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func build(method string, texts [][]string) []string {
	names := make([]string, len(texts))
	for i, cells := range texts {
		if len(cells) == 0 {
			names[i] = method
			continue
		}
		names[i] = method + "[" + strings.Join(cells, ",") + "]"
	}
	return names
}

func overflows(names []string) bool {
	for _, n := range names {
		if runewidth.StringWidth(n) > MaxNameWidth {
			return true
		}
	}
	return false
}

func unique(names []string) bool {
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, dup := seen[n]; dup {
			return false
		}
		seen[n] = struct{}{}
	}
	return true
}

// shorten replaces every parameter's text with <index>.<truncated text>,
// splitting the remaining width evenly. Index vectors are unique across
// rows, so shortened names need no further deduplication.
func shorten(method string, rows []types.Row, texts [][]string) []string {
	names := make([]string, len(rows))
	for i, row := range rows {
		n := len(row.Params)
		if n == 0 {
			names[i] = method
			continue
		}
		remaining := MaxNameWidth - runewidth.StringWidth(method) - 2 - (n - 1)
		budget := remaining / n
		cells := make([]string, n)
		for j, p := range row.Params {
			cells[j] = shortCell(p.Index, texts[i][j], budget)
		}
		names[i] = method + "[" + strings.Join(cells, ",") + "]"
	}
	return names
}

func shortCell(index int, text string, budget int) string {
	prefix := strconv.Itoa(index) + "."
	textBudget := budget - runewidth.StringWidth(prefix)
	if textBudget < runewidth.StringWidth(ellipsis)+1 {
		// Not even an ellipsis fits: the index alone must identify the value.
		return strconv.Itoa(index)
	}
	if runewidth.StringWidth(text) <= textBudget {
		return prefix + text
	}
	return prefix + runewidth.Truncate(text, textBudget, ellipsis)
}

// dedupe resolves colliding names: first a parenthesized type suffix on
// exactly the positions whose dynamic types differ across the colliding
// set, then, if collisions persist, an index prefix on every parameter of
// every row of the method.
func dedupe(method string, rows []types.Row, texts [][]string, names []string) []string {
	for _, group := range collisions(names) {
		for _, pos := range differingTypePositions(rows, group) {
			for _, i := range group {
				texts[i][pos] += " (" + typeName(rows[i].Params[pos].Value) + ")"
			}
		}
	}

	names = build(method, texts)
	if unique(names) {
		return names
	}

	for i, row := range rows {
		for j, p := range row.Params {
			texts[i][j] = strconv.Itoa(p.Index) + "." + texts[i][j]
		}
	}
	return build(method, texts)
}

func collisions(names []string) [][]int {
	byName := make(map[string][]int)
	order := make([]string, 0, len(names))
	for i, n := range names {
		if _, ok := byName[n]; !ok {
			order = append(order, n)
		}
		byName[n] = append(byName[n], i)
	}
	var groups [][]int
	for _, n := range order {
		if g := byName[n]; len(g) > 1 {
			groups = append(groups, g)
		}
	}
	return groups
}

func differingTypePositions(rows []types.Row, group []int) []int {
	if len(group) == 0 {
		return nil
	}
	n := len(rows[group[0]].Params)
	var out []int
	for pos := 0; pos < n; pos++ {
		seen := make(map[string]struct{})
		for _, i := range group {
			seen[typeName(rows[i].Params[pos].Value)] = struct{}{}
		}
		if len(seen) > 1 {
			out = append(out, pos)
		}
	}
	return out
}

func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	return reflect.TypeOf(v).String()
}
