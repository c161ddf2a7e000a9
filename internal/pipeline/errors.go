package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyPipeline is returned for a pipeline with zero steps.
	ErrEmptyPipeline = errors.New("pipeline must not be empty")

	// ErrInvalidPipelineSchema classifies malformed steps.
	ErrInvalidPipelineSchema = errors.New("invalid pipeline schema")

	// ErrInvalidPipelineSyntax is returned when the pipeline text cannot be decoded.
	ErrInvalidPipelineSyntax = errors.New("invalid pipeline json")
)

// SchemaError reports a step that is not of the shape {name: string, params: object}.
type SchemaError struct {
	Step   int // 1-based; 0 for the pipeline value itself
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Step == 0 {
		return fmt.Sprintf("invalid pipeline schema: %s", e.Reason)
	}
	if e.Field == "" {
		return fmt.Sprintf("invalid pipeline schema: step %d: %s", e.Step, e.Reason)
	}
	return fmt.Sprintf("invalid pipeline schema: step %d field %q: %s", e.Step, e.Field, e.Reason)
}

// Is reports SchemaError as ErrInvalidPipelineSchema.
func (e *SchemaError) Is(target error) bool {
	return target == ErrInvalidPipelineSchema
}

// UnknownTransformerError is returned when a step names an operation that is
// not registered. Name is exactly the requested name.
type UnknownTransformerError struct {
	Step int
	Name string
}

func (e *UnknownTransformerError) Error() string {
	return fmt.Sprintf("unknown transformer: %s", e.Name)
}
