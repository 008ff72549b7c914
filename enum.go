package paramgrid

import (
	"fmt"
	"reflect"

	"github.com/paramgrid/paramgrid/internal/types"
)

// ByteString is an opaque immutable byte-sequence value type. Literals
// decode into it from a UTF-8 string or a YAML !!binary scalar, and display
// names render it as its decoded byte array.
type ByteString = types.ByteString

// RegisterEnum registers the constant set of a named Go type, keyed by
// constant name. Registered enums gain literal decoding by constant name,
// boolean-alias fallback, and the implicit expansion used when a
// declaration has no value source. Constants of integer kinds expand in
// ascending value order, others in name order.
//
// Go has no enum reflection, so registration is explicit and panics on
// misuse: it runs at package level, before any test.
func RegisterEnum[E comparable](constants map[string]E) {
	t := reflect.TypeOf(*new(E))
	cs := make([]types.EnumConstant, 0, len(constants))
	for name, v := range constants {
		cs = append(cs, types.EnumConstant{Name: name, Value: v})
	}
	if err := defaultEnums.Register(t, cs); err != nil {
		panic(fmt.Sprintf("paramgrid: %v", err))
	}
}
