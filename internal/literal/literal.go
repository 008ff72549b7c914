// Package literal decodes structured-text literals (a superset of YAML
// scalars, sequences, and mappings) into strongly-typed Go values.
package literal

import (
	"encoding/base64"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/paramgrid/paramgrid/internal/types"
)

var (
	byteSliceType  = reflect.TypeOf([]byte(nil))
	byteStringType = reflect.TypeOf(types.ByteString(""))
	durationType   = reflect.TypeOf(time.Duration(0))
	anyType        = reflect.TypeOf((*any)(nil)).Elem()
)

// Boolean textual aliases recognized by the scalar grammar (YAML 1.1 set).
// Enum decoding reinterprets these as candidate constant names when a
// literal parses as a boolean.
var (
	trueAliases  = []string{"true", "yes", "on", "y"}
	falseAliases = []string{"false", "no", "off", "n"}
)

// Decode converts one literal into a value of the target type. No match
// between the parsed literal kind and the target type is an error naming
// both.
func Decode(text string, target reflect.Type, enums *types.EnumRegistry) (any, error) {
	node, err := parse(text)
	if err != nil {
		return nil, err
	}
	return decodeNode(node, target, enums)
}

// DecodeRow converts one mapping literal into an ordered value list, one
// per declared parameter name. The mapping keys must exactly match the
// declared names.
func DecodeRow(text string, names []string, targets []reflect.Type, enums *types.EnumRegistry) ([]any, error) {
	node, err := parse(text)
	if err != nil {
		return nil, err
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("row literal %q must be a mapping keyed by parameter name", text)
	}

	byKey := make(map[string]*yaml.Node, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		byKey[node.Content[i].Value] = node.Content[i+1]
	}
	if err := matchKeys(byKey, names, text); err != nil {
		return nil, err
	}

	values := make([]any, len(names))
	for i, name := range names {
		v, err := decodeNode(byKey[name], targets[i], enums)
		if err != nil {
			return nil, fmt.Errorf("row literal %q, key %q: %w", text, name, err)
		}
		values[i] = v
	}
	return values, nil
}

func matchKeys(byKey map[string]*yaml.Node, names []string, text string) error {
	var missing, unknown []string
	nameSet := make(map[string]struct{}, len(names))
	for _, n := range names {
		nameSet[n] = struct{}{}
		if _, ok := byKey[n]; !ok {
			missing = append(missing, n)
		}
	}
	for k := range byKey {
		if _, ok := nameSet[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	if len(missing) == 0 && len(unknown) == 0 {
		return nil
	}
	return fmt.Errorf(
		"row literal %q keys do not match the declared parameter names %v (missing: %v, unknown: %v)",
		text, names, missing, unknown)
}

// ParseStringList parses a YAML flow sequence into its elements' raw
// scalar texts. Used for the struct-tag literal-list form.
func ParseStringList(text string) ([]string, error) {
	node, err := parse(text)
	if err != nil {
		return nil, err
	}
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("literal list %q must be a sequence, e.g. [a, b, c]", text)
	}
	out := make([]string, len(node.Content))
	for i, el := range node.Content {
		if el.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("literal list %q: element %d is not a scalar", text, i)
		}
		out[i] = el.Value
	}
	return out, nil
}

func parse(text string) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return nil, fmt.Errorf("malformed literal %q: %w", text, err)
	}
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		return doc.Content[0], nil
	}
	// Empty input parses to an empty document: treat as the null scalar.
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null"}, nil
}

func decodeNode(node *yaml.Node, target reflect.Type, enums *types.EnumRegistry) (any, error) {
	if target == nil {
		return nil, fmt.Errorf("no target type for literal %q", render(node))
	}

	switch {
	case target.Kind() == reflect.Pointer:
		return decodePointer(node, target, enums)
	case enums.Registered(target):
		return decodeEnum(node, target, enums)
	case target == durationType:
		return decodeDuration(node)
	case target == byteSliceType || target == byteStringType:
		return decodeBytes(node, target)
	case target == anyType:
		var v any
		if err := node.Decode(&v); err != nil {
			return nil, mismatch(node, target)
		}
		return v, nil
	}

	switch target.Kind() {
	case reflect.String:
		return decodeString(node, target)
	case reflect.Bool:
		return decodeBool(node, target)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return decodeInt(node, target)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return decodeUint(node, target)
	case reflect.Float32, reflect.Float64:
		return decodeFloat(node, target)
	case reflect.Slice, reflect.Array:
		return decodeSequence(node, target, enums)
	case reflect.Map:
		return decodeMapping(node, target, enums)
	}
	return nil, mismatch(node, target)
}

func decodePointer(node *yaml.Node, target reflect.Type, enums *types.EnumRegistry) (any, error) {
	if isNull(node) {
		return reflect.Zero(target).Interface(), nil
	}
	elem, err := decodeNode(node, target.Elem(), enums)
	if err != nil {
		return nil, err
	}
	p := reflect.New(target.Elem())
	p.Elem().Set(reflect.ValueOf(elem))
	return p.Interface(), nil
}

func decodeString(node *yaml.Node, target reflect.Type) (any, error) {
	if node.Kind != yaml.ScalarNode {
		return nil, mismatch(node, target)
	}
	if isNull(node) {
		return nil, fmt.Errorf(
			"literal %q decodes to null, which a plain %s cannot hold; declare the target as *%s",
			render(node), target, target)
	}
	return convert(reflect.ValueOf(node.Value), target), nil
}

func decodeBool(node *yaml.Node, target reflect.Type) (any, error) {
	b, ok := boolValue(node)
	if !ok {
		return nil, mismatch(node, target)
	}
	return convert(reflect.ValueOf(b), target), nil
}

// boolValue applies the scalar boolean grammar: the YAML resolver's own
// !!bool tag, plus the 1.1 alias table for plain scalars.
func boolValue(node *yaml.Node) (bool, bool) {
	if node.Kind != yaml.ScalarNode {
		return false, false
	}
	plain := node.Style == 0
	if node.Tag != "!!bool" && !(node.Tag == "!!str" && plain) {
		return false, false
	}
	lower := strings.ToLower(node.Value)
	for _, a := range trueAliases {
		if lower == a {
			return true, true
		}
	}
	for _, a := range falseAliases {
		if lower == a {
			return false, true
		}
	}
	return false, false
}

func decodeInt(node *yaml.Node, target reflect.Type) (any, error) {
	if node.Kind != yaml.ScalarNode || node.Tag != "!!int" {
		if node.Kind == yaml.ScalarNode && node.Tag == "!!float" {
			return nil, fmt.Errorf("cannot narrow float literal %q into %s", node.Value, target)
		}
		return nil, mismatch(node, target)
	}
	var i int64
	if err := node.Decode(&i); err != nil {
		return nil, fmt.Errorf("integer literal %q out of range for %s", node.Value, target)
	}
	if reflect.Zero(target).OverflowInt(i) {
		return nil, fmt.Errorf("integer literal %q out of range for %s", node.Value, target)
	}
	return convert(reflect.ValueOf(i), target), nil
}

func decodeUint(node *yaml.Node, target reflect.Type) (any, error) {
	if node.Kind != yaml.ScalarNode || node.Tag != "!!int" {
		if node.Kind == yaml.ScalarNode && node.Tag == "!!float" {
			// Arbitrary-precision integers overflow the resolver into a
			// float tag; re-parse the raw text exactly.
			return decodeBigUint(node, target)
		}
		return nil, mismatch(node, target)
	}
	var u uint64
	if err := node.Decode(&u); err != nil {
		return nil, fmt.Errorf("literal %q is not a non-negative integer in range of %s", node.Value, target)
	}
	if reflect.Zero(target).OverflowUint(u) {
		return nil, fmt.Errorf("integer literal %q out of range for %s", node.Value, target)
	}
	return convert(reflect.ValueOf(u), target), nil
}

func decodeBigUint(node *yaml.Node, target reflect.Type) (any, error) {
	i, ok := new(big.Int).SetString(strings.ReplaceAll(node.Value, "_", ""), 0)
	if !ok {
		return nil, mismatch(node, target)
	}
	if i.Sign() < 0 || !i.IsUint64() {
		return nil, fmt.Errorf("integer literal %q out of range for %s", node.Value, target)
	}
	u := i.Uint64()
	if reflect.Zero(target).OverflowUint(u) {
		return nil, fmt.Errorf("integer literal %q out of range for %s", node.Value, target)
	}
	return convert(reflect.ValueOf(u), target), nil
}

func decodeFloat(node *yaml.Node, target reflect.Type) (any, error) {
	if node.Kind != yaml.ScalarNode {
		return nil, mismatch(node, target)
	}
	var f float64
	switch node.Tag {
	case "!!float", "!!int":
		if err := node.Decode(&f); err != nil {
			return nil, mismatch(node, target)
		}
	case "!!str":
		// The native float grammar also spells NaN and the infinities.
		parsed, err := strconv.ParseFloat(node.Value, 64)
		if err != nil {
			return nil, mismatch(node, target)
		}
		f = parsed
	default:
		return nil, mismatch(node, target)
	}
	if target.Kind() == reflect.Float32 && !math.IsInf(f, 0) && math.IsInf(float64(float32(f)), 0) {
		return nil, fmt.Errorf("float literal %q out of range for %s", node.Value, target)
	}
	return convert(reflect.ValueOf(f), target), nil
}

func decodeEnum(node *yaml.Node, target reflect.Type, enums *types.EnumRegistry) (any, error) {
	if node.Kind != yaml.ScalarNode {
		return nil, mismatch(node, target)
	}

	// A literal the scalar grammar reads as a boolean gets its alias set
	// reinterpreted as candidate constant names. Exactly one constant may
	// match; several is an ambiguity, reported with every candidate.
	if b, isBool := boolValue(node); isBool {
		aliases := trueAliases
		if !b {
			aliases = falseAliases
		}
		var matches []string
		for _, c := range enums.Names(target) {
			lower := strings.ToLower(c)
			for _, a := range aliases {
				if lower == a {
					matches = append(matches, c)
					break
				}
			}
		}
		switch len(matches) {
		case 1:
			v, _ := enums.ByName(target, matches[0])
			return v, nil
		case 0:
			return nil, fmt.Errorf(
				"literal %q is a boolean and no constant of enum %s matches its aliases %v",
				node.Value, target, aliases)
		default:
			return nil, fmt.Errorf(
				"literal %q is a boolean whose aliases %v ambiguously match enum %s constants %v",
				node.Value, aliases, target, matches)
		}
	}

	if v, ok := enums.ByName(target, node.Value); ok {
		return v, nil
	}
	return nil, fmt.Errorf("enum %s has no constant named %q (constants: %v)",
		target, node.Value, enums.Names(target))
}

func decodeDuration(node *yaml.Node) (any, error) {
	if node.Kind != yaml.ScalarNode || isNull(node) {
		return nil, mismatch(node, durationType)
	}
	d, err := time.ParseDuration(node.Value)
	if err != nil {
		return nil, fmt.Errorf("literal %q is not a duration (need units, e.g. 1500ms): %w", node.Value, err)
	}
	return d, nil
}

func decodeBytes(node *yaml.Node, target reflect.Type) (any, error) {
	if node.Kind != yaml.ScalarNode || isNull(node) {
		if isNull(node) && target == byteSliceType {
			return []byte(nil), nil
		}
		return nil, mismatch(node, target)
	}
	var raw []byte
	if node.Tag == "!!binary" {
		// The resolver leaves the base64 payload as raw text; whitespace is
		// legal inside it.
		payload := strings.Join(strings.Fields(node.Value), "")
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("malformed binary literal %q: %w", node.Value, err)
		}
		raw = decoded
	} else {
		raw = []byte(node.Value) // UTF-8 bytes of the literal text
	}
	if target == byteStringType {
		return types.ByteString(raw), nil
	}
	return raw, nil
}

func decodeSequence(node *yaml.Node, target reflect.Type, enums *types.EnumRegistry) (any, error) {
	if isNull(node) && target.Kind() == reflect.Slice {
		return reflect.Zero(target).Interface(), nil
	}
	if node.Kind != yaml.SequenceNode {
		return nil, mismatch(node, target)
	}
	if target.Kind() == reflect.Array && target.Len() != len(node.Content) {
		return nil, fmt.Errorf("sequence literal has %d elements, %s wants %d",
			len(node.Content), target, target.Len())
	}

	out := reflect.New(target).Elem()
	if target.Kind() == reflect.Slice {
		out = reflect.MakeSlice(target, len(node.Content), len(node.Content))
	}
	for i, el := range node.Content {
		v, err := decodeNode(el, target.Elem(), enums)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out.Index(i).Set(valueOrZero(v, target.Elem()))
	}
	return out.Interface(), nil
}

func decodeMapping(node *yaml.Node, target reflect.Type, enums *types.EnumRegistry) (any, error) {
	if isNull(node) {
		return reflect.Zero(target).Interface(), nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, mismatch(node, target)
	}
	out := reflect.MakeMapWithSize(target, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, err := decodeNode(node.Content[i], target.Key(), enums)
		if err != nil {
			return nil, fmt.Errorf("map key %q: %w", node.Content[i].Value, err)
		}
		v, err := decodeNode(node.Content[i+1], target.Elem(), enums)
		if err != nil {
			return nil, fmt.Errorf("map value for key %q: %w", node.Content[i].Value, err)
		}
		out.SetMapIndex(valueOrZero(k, target.Key()), valueOrZero(v, target.Elem()))
	}
	return out.Interface(), nil
}

func isNull(node *yaml.Node) bool {
	return node.Kind == yaml.ScalarNode && node.Tag == "!!null"
}

func convert(v reflect.Value, target reflect.Type) any {
	return v.Convert(target).Interface()
}

func valueOrZero(v any, t reflect.Type) reflect.Value {
	if v == nil {
		return reflect.Zero(t)
	}
	return reflect.ValueOf(v)
}

func mismatch(node *yaml.Node, target reflect.Type) error {
	return fmt.Errorf("cannot decode literal %q into %s", render(node), target)
}

func render(node *yaml.Node) string {
	if node.Kind == yaml.ScalarNode {
		return node.Value
	}
	out, err := yaml.Marshal(node)
	if err != nil {
		return "<literal>"
	}
	return strings.TrimSpace(string(out))
}
