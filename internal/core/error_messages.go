package core

// error_messages.go maps run errors to user-facing messages with codes for
// support reference.
//
// Pipeline errors (PIPE001-PIPE099), 400:
//
//	PIPE001 - Pipeline must not be empty
//	PIPE002 - Invalid pipeline schema (names the step and field)
//	PIPE003 - Unknown transformer: <name>
//	PIPE004 - Invalid param '<param>' for <transformer> (step <n>): <reason>
//	PIPE005 - Invalid pipeline JSON
//
// Column errors (COL001-COL099), 400:
//
//	COL001 - Column '<name>' not found
//
// File errors (FILE001-FILE099):
//
//	FILE001 - File too large (413)
//	FILE002 - Invalid CSV (400)
//	FILE004 - No file provided (400)
//
// Run errors (RUN001-RUN099):
//
//	RUN001 - Run not found (404)
//	RUN002 - Too many runs in progress (503)
//	RUN004 - Request cancelled (499)
//	RUN005 - Request timed out (504)
//
// Rate limiting (RATE001), 429. Anything else maps to ERR000, 500.
//
// Typed errors are matched first with errors.Is / errors.As. Errors that only
// carry text are matched case-insensitively by substring; the first pattern
// wins.

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/JonMunkholm/tabula/internal/pipeline"
	"github.com/JonMunkholm/tabula/internal/transform"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
	Status  int    // HTTP status for the transport layer
}

// ErrNoFile is returned when a request carries no CSV file.
var ErrNoFile = errors.New("no file provided")

var (
	msgEmptyPipeline = UserMessage{
		Message: "Pipeline must not be empty",
		Action:  "Add at least one step to the pipeline",
		Code:    "PIPE001",
		Status:  http.StatusBadRequest,
	}
	msgInvalidParam = UserMessage{
		Message: "Invalid pipeline param",
		Action:  "Check the transformer's params at /available-transformers/",
		Code:    "PIPE004",
		Status:  http.StatusBadRequest,
	}
	msgInvalidSyntax = UserMessage{
		Message: "Invalid pipeline JSON",
		Action:  "Send the pipeline as a JSON array of {name, params} objects",
		Code:    "PIPE005",
		Status:  http.StatusBadRequest,
	}
	msgRunNotFound = UserMessage{
		Message: "Run not found",
		Action:  "The run may have already finished",
		Code:    "RUN001",
		Status:  http.StatusNotFound,
	}
	msgInvalidCSV = UserMessage{
		Message: "Invalid CSV",
		Action:  "Ensure the file is UTF-8, comma-separated, with a unique header row and consistent columns",
		Code:    "FILE002",
		Status:  http.StatusBadRequest,
	}
)

// errorPatterns cover errors that reach the boundary without a type,
// typically from the standard library or middleware.
var errorPatterns = []struct {
	pattern string
	msg     UserMessage
}{
	{"file too large", UserMessage{
		Message: "File exceeds the maximum size limit",
		Action:  "Split the file into smaller chunks",
		Code:    "FILE001",
		Status:  http.StatusRequestEntityTooLarge,
	}},
	{"request body too large", UserMessage{
		Message: "File exceeds the maximum size limit",
		Action:  "Split the file into smaller chunks",
		Code:    "FILE001",
		Status:  http.StatusRequestEntityTooLarge,
	}},
	{"no file provided", UserMessage{
		Message: "No file was provided",
		Action:  "Send the CSV in the multipart field \"file\"",
		Code:    "FILE004",
		Status:  http.StatusBadRequest,
	}},
	{"too many concurrent runs", UserMessage{
		Message: "System is busy processing other runs",
		Action:  "Please wait a moment and try again",
		Code:    "RUN002",
		Status:  http.StatusServiceUnavailable,
	}},
	{"context canceled", UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "RUN004",
		Status:  499,
	}},
	{"context deadline exceeded", UserMessage{
		Message: "Request timed out",
		Action:  "Try a smaller file or a shorter pipeline",
		Code:    "RUN005",
		Status:  http.StatusGatewayTimeout,
	}},
	{"rate limit", UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
		Status:  http.StatusTooManyRequests,
	}},
}

// defaultMessage is returned when nothing matches (ERR000). Support staff
// should check the logs for the technical error.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
	Status:  http.StatusInternalServerError,
}

// MapError converts an error to a user-facing message. A nil error maps to
// the zero UserMessage.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var (
		cnf *transform.ColumnNotFoundError
		ute *pipeline.UnknownTransformerError
		se  *pipeline.SchemaError
		pe  *transform.ParamError
	)
	switch {
	case errors.As(err, &cnf):
		return UserMessage{
			Message: fmt.Sprintf("Column '%s' not found", cnf.Column),
			Action:  "Check column names against the CSV header and earlier rename steps",
			Code:    "COL001",
			Status:  http.StatusBadRequest,
		}
	case errors.As(err, &ute):
		return UserMessage{
			Message: fmt.Sprintf("Unknown transformer: %s", ute.Name),
			Action:  "See /available-transformers/ for registered names",
			Code:    "PIPE003",
			Status:  http.StatusBadRequest,
		}
	case errors.Is(err, pipeline.ErrEmptyPipeline):
		return msgEmptyPipeline
	case errors.As(err, &se):
		return UserMessage{
			Message: schemaMessage(se),
			Action:  "Each step needs a string \"name\" and an object \"params\"",
			Code:    "PIPE002",
			Status:  http.StatusBadRequest,
		}
	case errors.As(err, &pe):
		msg := msgInvalidParam
		msg.Message = paramMessage(pe)
		return msg
	case errors.Is(err, transform.ErrInvalidParam):
		return msgInvalidParam
	case errors.Is(err, pipeline.ErrInvalidPipelineSyntax):
		return msgInvalidSyntax
	case errors.Is(err, ErrInvalidInputData):
		return msgInvalidCSV
	case errors.Is(err, ErrFileTooLarge):
		return errorPatterns[0].msg
	case errors.Is(err, ErrRunNotFound):
		return msgRunNotFound
	case errors.Is(err, ErrTooManyRuns):
		return patternMessage("too many concurrent runs")
	case errors.Is(err, context.Canceled):
		return patternMessage("context canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return patternMessage("context deadline exceeded")
	}

	return patternMessage(strings.ToLower(err.Error()))
}

func patternMessage(text string) UserMessage {
	for _, ep := range errorPatterns {
		if strings.Contains(text, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

func schemaMessage(se *pipeline.SchemaError) string {
	switch {
	case se.Step == 0:
		return "Invalid pipeline: " + se.Reason
	case se.Field == "":
		return fmt.Sprintf("Invalid pipeline step %d: %s", se.Step, se.Reason)
	default:
		return fmt.Sprintf("Invalid pipeline step %d: %s: %s", se.Step, se.Field, se.Reason)
	}
}

func paramMessage(pe *transform.ParamError) string {
	if pe.Step == 0 {
		return fmt.Sprintf("Invalid param '%s' for %s: %s", pe.Param, pe.Transformer, pe.Reason)
	}
	return fmt.Sprintf("Invalid param '%s' for %s (step %d): %s", pe.Param, pe.Transformer, pe.Step, pe.Reason)
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
