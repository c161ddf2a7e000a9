package transform

import (
	"errors"
	"fmt"
)

// ErrInvalidParam classifies every parameter contract violation: missing,
// mistyped or undeclared params.
var ErrInvalidParam = errors.New("invalid pipeline param")

// ColumnNotFoundError is returned when an operation names a column that is
// not in the dataset's schema. Column is the name exactly as requested.
type ColumnNotFoundError struct {
	Column string
}

func (e *ColumnNotFoundError) Error() string {
	return fmt.Sprintf("column '%s' not found", e.Column)
}

// ParamError describes a parameter contract violation for one step.
type ParamError struct {
	Step        int // 1-based; 0 when not known
	Transformer string
	Param       string
	Reason      string
}

func (e *ParamError) Error() string {
	if e.Step > 0 {
		return fmt.Sprintf("invalid pipeline param: step %d (%s) param %q: %s",
			e.Step, e.Transformer, e.Param, e.Reason)
	}
	return fmt.Sprintf("invalid pipeline param: %s param %q: %s",
		e.Transformer, e.Param, e.Reason)
}

// Is reports ParamError as ErrInvalidParam.
func (e *ParamError) Is(target error) bool {
	return target == ErrInvalidParam
}

// requireColumn returns ColumnNotFoundError unless the dataset has column.
func requireColumn(has func(string) bool, column string) error {
	if !has(column) {
		return &ColumnNotFoundError{Column: column}
	}
	return nil
}
