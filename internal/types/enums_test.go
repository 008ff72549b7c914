package types

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type weekday int

type flavor string

func TestEnumRegistry_IntKindOrdersByValue(t *testing.T) {
	r := NewEnumRegistry()
	err := r.Register(reflect.TypeOf(weekday(0)), []EnumConstant{
		{Name: "WEDNESDAY", Value: weekday(3)},
		{Name: "MONDAY", Value: weekday(1)},
		{Name: "TUESDAY", Value: weekday(2)},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"MONDAY", "TUESDAY", "WEDNESDAY"}, r.Names(reflect.TypeOf(weekday(0))))
}

func TestEnumRegistry_NonIntKindOrdersByName(t *testing.T) {
	r := NewEnumRegistry()
	err := r.Register(reflect.TypeOf(flavor("")), []EnumConstant{
		{Name: "VANILLA", Value: flavor("v")},
		{Name: "CHOCOLATE", Value: flavor("c")},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"CHOCOLATE", "VANILLA"}, r.Names(reflect.TypeOf(flavor(""))))
}

func TestEnumRegistry_ByName(t *testing.T) {
	r := NewEnumRegistry()
	require.NoError(t, r.Register(reflect.TypeOf(weekday(0)), []EnumConstant{
		{Name: "MONDAY", Value: weekday(1)},
	}))

	v, ok := r.ByName(reflect.TypeOf(weekday(0)), "MONDAY")
	require.True(t, ok)
	assert.Equal(t, weekday(1), v)

	// Lookup is exact and case-sensitive.
	_, ok = r.ByName(reflect.TypeOf(weekday(0)), "monday")
	assert.False(t, ok)

	_, ok = r.ByName(reflect.TypeOf(flavor("")), "MONDAY")
	assert.False(t, ok)
}

func TestEnumRegistry_RegisterErrors(t *testing.T) {
	tests := []struct {
		name      string
		constants []EnumConstant
		wantErr   string
	}{
		{
			name:      "empty set",
			constants: nil,
			wantErr:   "must not be empty",
		},
		{
			name: "wrong type",
			constants: []EnumConstant{
				{Name: "MONDAY", Value: 1},
			},
			wantErr: "has type int",
		},
		{
			name: "duplicate name",
			constants: []EnumConstant{
				{Name: "MONDAY", Value: weekday(1)},
				{Name: "MONDAY", Value: weekday(2)},
			},
			wantErr: "registered twice",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewEnumRegistry().Register(reflect.TypeOf(weekday(0)), tt.constants)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
