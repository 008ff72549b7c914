package literal

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paramgrid/paramgrid/internal/types"
)

type color int

const (
	red color = iota
	green
	blue
)

type toggle int

const (
	toggleOn toggle = iota
	toggleQuiet
)

type twoPositive int

const (
	tpOn twoPositive = iota
	tpYes
)

func testEnums(t *testing.T) *types.EnumRegistry {
	t.Helper()
	r := types.NewEnumRegistry()
	require.NoError(t, r.Register(reflect.TypeOf(color(0)), []types.EnumConstant{
		{Name: "RED", Value: red},
		{Name: "GREEN", Value: green},
		{Name: "BLUE", Value: blue},
	}))
	require.NoError(t, r.Register(reflect.TypeOf(toggle(0)), []types.EnumConstant{
		{Name: "ON", Value: toggleOn},
		{Name: "QUIET", Value: toggleQuiet},
	}))
	require.NoError(t, r.Register(reflect.TypeOf(twoPositive(0)), []types.EnumConstant{
		{Name: "ON", Value: tpOn},
		{Name: "YES", Value: tpYes},
	}))
	return r
}

func TestDecode_Scalars(t *testing.T) {
	enums := testEnums(t)

	tests := []struct {
		name     string
		literal  string
		target   any
		expected any
	}{
		{"string verbatim", "hello", "", "hello"},
		{"numeric text into string", "17", "", "17"},
		{"quoted null into string", `"null"`, "", "null"},
		{"bool true", "true", false, true},
		{"bool alias on", "on", false, true},
		{"bool alias NO", "NO", false, false},
		{"int", "42", int(0), int(42)},
		{"negative int", "-7", int(0), int(-7)},
		{"int into int64", "42", int64(0), int64(42)},
		{"int narrowed into int8", "127", int8(0), int8(127)},
		{"int widened into float64", "42", float64(0), float64(42)},
		{"int widened into float32", "42", float32(0), float32(42)},
		{"float", "1.5", float64(0), 1.5},
		{"negative float32", "-2.25", float32(0), float32(-2.25)},
		{"infinity", "Infinity", float64(0), math.Inf(1)},
		{"signed infinity", "-Infinity", float64(0), math.Inf(-1)},
		{"yaml infinity", ".inf", float64(0), math.Inf(1)},
		{"uint64", "18446744073709551615", uint64(0), uint64(math.MaxUint64)},
		{"uint64 from small literal", "7", uint64(0), uint64(7)},
		{"uint8", "255", uint8(0), uint8(255)},
		{"duration", "1500ms", time.Duration(0), 1500 * time.Millisecond},
		{"enum by name", "GREEN", color(0), green},
		{"enum via single boolean alias", "ON", toggle(0), toggleOn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.literal, reflect.TypeOf(tt.target), enums)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestDecode_NaN(t *testing.T) {
	enums := testEnums(t)

	for _, lit := range []string{"NaN", ".nan"} {
		got, err := Decode(lit, reflect.TypeOf(float64(0)), enums)
		require.NoError(t, err, lit)
		assert.True(t, math.IsNaN(got.(float64)), lit)
	}
}

func TestDecode_Errors(t *testing.T) {
	enums := testEnums(t)

	tests := []struct {
		name        string
		literal     string
		target      any
		errContains string
	}{
		{"null into plain string", "null", "", "declare the target as *string"},
		{"float into int", "1.5", int(0), "cannot narrow float literal"},
		{"int8 overflow", "128", int8(0), "out of range"},
		{"negative into uint64", "-1", uint64(0), "uint64"},
		{"uint64 overflow", "18446744073709551616", uint64(0), "out of range"},
		{"unknown enum constant", "PURPLE", color(0), `no constant named "PURPLE"`},
		{"text into bool", "maybe", false, "cannot decode"},
		{"unitless duration", "1500", time.Duration(0), "duration"},
		{"sequence into int", "[1, 2]", int(0), "cannot decode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.literal, reflect.TypeOf(tt.target), enums)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestDecode_EnumBooleanAliasAmbiguity(t *testing.T) {
	enums := testEnums(t)

	// toggle has one constant aliasing a positive boolean: fallback picks it.
	got, err := Decode("ON", reflect.TypeOf(toggle(0)), enums)
	require.NoError(t, err)
	assert.Equal(t, toggleOn, got)

	// twoPositive has two: the decoder must fail naming both candidates.
	_, err = Decode("ON", reflect.TypeOf(twoPositive(0)), enums)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ambiguous")
	assert.Contains(t, err.Error(), "ON")
	assert.Contains(t, err.Error(), "YES")

	// A negative alias with no matching constant reports a plain no-match.
	_, err = Decode("off", reflect.TypeOf(toggle(0)), enums)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no constant")
}

func TestDecode_QuotedBooleanAliasIsExactLookup(t *testing.T) {
	enums := testEnums(t)

	got, err := Decode(`"ON"`, reflect.TypeOf(toggle(0)), enums)
	require.NoError(t, err)
	assert.Equal(t, toggleOn, got)

	// Quoting suppresses the boolean grammar, so exact lookup is
	// case-sensitive and "on" matches nothing.
	_, err = Decode(`"on"`, reflect.TypeOf(toggle(0)), enums)
	require.Error(t, err)
}

func TestDecode_Bytes(t *testing.T) {
	enums := testEnums(t)

	got, err := Decode("abc", reflect.TypeOf([]byte(nil)), enums)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)

	got, err = Decode("héllo", reflect.TypeOf(types.ByteString("")), enums)
	require.NoError(t, err)
	assert.Equal(t, types.ByteString("héllo"), got)

	got, err = Decode("!!binary aGk=", reflect.TypeOf([]byte(nil)), enums)
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), got)

	got, err = Decode("!!binary aGVs\n  bG8=", reflect.TypeOf(types.ByteString("")), enums)
	require.NoError(t, err)
	assert.Equal(t, types.ByteString("hello"), got)

	_, err = Decode("!!binary not*base64", reflect.TypeOf([]byte(nil)), enums)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed binary literal")
}

func TestDecode_Pointers(t *testing.T) {
	enums := testEnums(t)

	got, err := Decode("null", reflect.TypeOf((*string)(nil)), enums)
	require.NoError(t, err)
	assert.Equal(t, (*string)(nil), got)

	got, err = Decode("hi", reflect.TypeOf((*string)(nil)), enums)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "hi", *got.(*string))

	got, err = Decode("42", reflect.TypeOf((*int)(nil)), enums)
	require.NoError(t, err)
	assert.Equal(t, 42, *got.(*int))
}

func TestDecode_Collections(t *testing.T) {
	enums := testEnums(t)

	got, err := Decode("[1, 2, 3]", reflect.TypeOf([]int(nil)), enums)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, got)

	got, err = Decode("[[a], [b, c]]", reflect.TypeOf([][]string(nil)), enums)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a"}, {"b", "c"}}, got)

	got, err = Decode("{a: 1, b: 2}", reflect.TypeOf(map[string]int(nil)), enums)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a": 1, "b": 2}, got)

	got, err = Decode("[RED, BLUE]", reflect.TypeOf([]color(nil)), enums)
	require.NoError(t, err)
	assert.Equal(t, []color{red, blue}, got)

	_, err = Decode("[1, 2]", reflect.TypeOf([3]int{}), enums)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wants 3")
}

func TestDecodeRow(t *testing.T) {
	enums := testEnums(t)
	names := []string{"age", "expectIsAdult"}
	targets := []reflect.Type{reflect.TypeOf(int(0)), reflect.TypeOf(false)}

	values, err := DecodeRow("{age: 17, expectIsAdult: false}", names, targets, enums)
	require.NoError(t, err)
	assert.Equal(t, []any{17, false}, values)

	// Key order in the literal does not matter.
	values, err = DecodeRow("{expectIsAdult: true, age: 22}", names, targets, enums)
	require.NoError(t, err)
	assert.Equal(t, []any{22, true}, values)

	_, err = DecodeRow("{age: 17}", names, targets, enums)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing: [expectIsAdult]")

	_, err = DecodeRow("{age: 17, expectIsAdult: false, extra: 1}", names, targets, enums)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown: [extra]")

	_, err = DecodeRow("just a scalar", names, targets, enums)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be a mapping")
}

func TestParseStringList(t *testing.T) {
	got, err := ParseStringList("[17, 22]")
	require.NoError(t, err)
	assert.Equal(t, []string{"17", "22"}, got)

	got, err = ParseStringList(`["a, b", c]`)
	require.NoError(t, err)
	assert.Equal(t, []string{"a, b", "c"}, got)

	_, err = ParseStringList("not a list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be a sequence")
}
