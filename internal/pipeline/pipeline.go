// Package pipeline validates step lists and executes them against a dataset.
//
// Parse turns a decoded value (from JSON, YAML or TOML) into a Pipeline.
// Executor runs a Pipeline step by step against a transform.Registry and
// stops at the first error.
package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Step is one operation invocation.
type Step struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params"`
}

// Pipeline is an ordered, non-empty list of steps.
type Pipeline []Step

// Names returns the step names in order.
func (p Pipeline) Names() []string {
	out := make([]string, len(p))
	for i, s := range p {
		out[i] = s.Name
	}
	return out
}

// Decode parses pipeline JSON into a generic value for Parse.
// Any syntax error, including empty input, wraps ErrInvalidPipelineSyntax.
func Decode(data []byte) (any, error) {
	if strings.TrimSpace(string(data)) == "" {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidPipelineSyntax)
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPipelineSyntax, err)
	}
	return raw, nil
}

// DecodeAndParse is Decode followed by Parse.
func DecodeAndParse(data []byte) (Pipeline, error) {
	raw, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse validates the shape of a decoded pipeline.
//
// An empty value (null, [], {}, "", false, 0) fails with ErrEmptyPipeline.
// Any other non-list fails with a SchemaError, as does any element that is
// not an object with a string "name" and an object "params". Parameter
// contents are not checked here.
func Parse(raw any) (Pipeline, error) {
	if isEmpty(raw) {
		return nil, ErrEmptyPipeline
	}

	items, ok := raw.([]any)
	if !ok {
		return nil, &SchemaError{Reason: fmt.Sprintf("expected a list of steps, got %s", kindOf(raw))}
	}

	p := make(Pipeline, 0, len(items))
	for i, item := range items {
		step, err := parseStep(i+1, item)
		if err != nil {
			return nil, err
		}
		p = append(p, step)
	}
	return p, nil
}

func parseStep(n int, item any) (Step, error) {
	obj, ok := asObject(item)
	if !ok {
		return Step{}, &SchemaError{Step: n, Reason: fmt.Sprintf("expected an object, got %s", kindOf(item))}
	}

	rawName, ok := obj["name"]
	if !ok {
		return Step{}, &SchemaError{Step: n, Field: "name", Reason: "field required"}
	}
	name, ok := rawName.(string)
	if !ok {
		return Step{}, &SchemaError{Step: n, Field: "name", Reason: fmt.Sprintf("expected string, got %s", kindOf(rawName))}
	}

	rawParams, ok := obj["params"]
	if !ok {
		return Step{}, &SchemaError{Step: n, Field: "params", Reason: "field required"}
	}
	params, ok := asObject(rawParams)
	if !ok {
		return Step{}, &SchemaError{Step: n, Field: "params", Reason: fmt.Sprintf("expected object, got %s", kindOf(rawParams))}
	}

	return Step{Name: name, Params: params}, nil
}

// asObject accepts the object forms produced by encoding/json, yaml.v3 and go-toml.
func asObject(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = val
		}
		return out, true
	default:
		return nil, false
	}
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	case string:
		return t == ""
	case bool:
		return !t
	case float64:
		return t == 0
	case int:
		return t == 0
	case int64:
		return t == 0
	default:
		return false
	}
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, int, int64:
		return "number"
	case []any:
		return "array"
	case map[string]any, map[any]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
