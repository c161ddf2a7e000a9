// Package transform holds the catalogue of tabular operations and the
// registry that maps operation names to them.
//
// Every operation declares its parameter contract up front. Callers validate
// a step's params with [Operation.CheckParams] before calling Apply, so Apply
// only ever sees params of the declared shape.
package transform

import (
	"fmt"

	"github.com/JonMunkholm/tabula/internal/dataset"
)

// ParamKind is the accepted shape of a parameter value.
type ParamKind int

const (
	// ParamString accepts only strings.
	ParamString ParamKind = iota
	// ParamScalar accepts strings, numbers, booleans and null.
	ParamScalar
)

func (k ParamKind) String() string {
	switch k {
	case ParamString:
		return "string"
	case ParamScalar:
		return "scalar"
	default:
		return "unknown"
	}
}

// ParamSpec declares one parameter of an operation. All declared params are
// required.
type ParamSpec struct {
	Name string
	Kind ParamKind
}

// Params are the decoded parameters of a single step.
type Params map[string]any

// String returns the named param as a string. The param must have been
// validated as ParamString.
func (p Params) String(name string) string {
	s, _ := p[name].(string)
	return s
}

// ApplyFunc runs an operation against a dataset.
// Implementations must not mutate the input dataset.
type ApplyFunc func(ds *dataset.Dataset, p Params) (*dataset.Dataset, error)

// Operation is a named, pure dataset transformation.
type Operation struct {
	Name        string
	Description string
	Params      []ParamSpec
	Apply       ApplyFunc
}

// CheckParams validates p against the operation's declared contract.
// Missing params are reported first, then type mismatches, then undeclared
// keys. Keys are checked in declaration order; undeclared keys in sorted order
// so the reported one is stable.
func (op Operation) CheckParams(p map[string]any) error {
	for _, spec := range op.Params {
		if _, ok := p[spec.Name]; !ok {
			return &ParamError{Transformer: op.Name, Param: spec.Name, Reason: "missing required param"}
		}
	}

	for _, spec := range op.Params {
		if !kindMatches(spec.Kind, p[spec.Name]) {
			return &ParamError{
				Transformer: op.Name,
				Param:       spec.Name,
				Reason:      fmt.Sprintf("expected %s, got %s", spec.Kind, describe(p[spec.Name])),
			}
		}
	}

	declared := make(map[string]bool, len(op.Params))
	for _, spec := range op.Params {
		declared[spec.Name] = true
	}
	for _, k := range sortedKeys(p) {
		if !declared[k] {
			return &ParamError{Transformer: op.Name, Param: k, Reason: "unexpected param"}
		}
	}

	return nil
}

func kindMatches(kind ParamKind, v any) bool {
	switch kind {
	case ParamString:
		_, ok := v.(string)
		return ok
	case ParamScalar:
		switch v.(type) {
		case nil, string, bool, float64, int64, int:
			return true
		}
	}
	return false
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, int64, int:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
