package paramgrid

import (
	"testing"

	"github.com/paramgrid/paramgrid/internal/xsync"
)

// Case describes the expanded test case currently executing: its final
// display name and the resolved values that shaped it. Params holds one
// entry per resolved value — a whole-row declaration contributes one entry
// per parameter it fills, keyed by the declared parameter name.
type Case struct {
	Suite  string
	Method string
	Name   string
	Params []CaseParam
}

// CaseParam is one resolved parameter of a running case.
type CaseParam struct {
	Name  string // declared name, empty if unknown
	Text  string // display text
	Value any
}

// Param returns the case's value for the given declared name.
func (c Case) Param(name string) (any, bool) {
	for _, p := range c.Params {
		if p.Name == name {
			return p.Value, true
		}
	}
	return nil, false
}

var currentCases xsync.Map[*testing.T, Case]

// Current returns the case the given subtest is executing, for helpers that
// need the resolved parameters without threading them through. It only
// reports cases started by Run with the exact *testing.T it handed to the
// test method.
func Current(t *testing.T) (Case, bool) {
	return currentCases.Load(t)
}
