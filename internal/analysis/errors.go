package analysis

import (
	"errors"
	"fmt"

	language "github.com/hanpama/fieldgraph/internal/language"
)

// Error kinds. Every *Error unwraps to exactly one of these.
var (
	ErrNoOperation        = errors.New("no operation found")
	ErrMultipleOperations = errors.New("more than one operation found")
	ErrUnknownType        = errors.New("unknown type")
	ErrInvalidType        = errors.New("invalid type")
	ErrUnknownField       = errors.New("unknown field")
	ErrUnknownFragment    = errors.New("unknown fragment")
	ErrVariable           = errors.New("invalid variable value")
)

var errorCodes = map[error]string{
	ErrNoOperation:        "NO_OPERATION",
	ErrMultipleOperations: "MULTIPLE_OPERATIONS",
	ErrUnknownType:        "UNKNOWN_TYPE",
	ErrInvalidType:        "INVALID_TYPE",
	ErrUnknownField:       "UNKNOWN_FIELD",
	ErrUnknownFragment:    "UNKNOWN_FRAGMENT",
	ErrVariable:           "INVALID_VARIABLE",
}

// Error is a fatal analysis failure. No partial graph accompanies it.
type Error struct {
	Kind     error
	Message  string
	Position *language.Position
}

func newError(kind error, pos *language.Position, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Position: pos}
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// Code returns the machine-readable code of the error kind, e.g. UNKNOWN_FIELD.
func (e *Error) Code() string {
	if code, ok := errorCodes[e.Kind]; ok {
		return code
	}
	return "ANALYSIS_FAILED"
}

// GraphQLError converts e into a located GraphQL error with extensions.code set.
func (e *Error) GraphQLError() *language.Error {
	ge := &language.Error{
		Message:    e.Message,
		Extensions: map[string]any{"code": e.Code()},
	}
	if e.Position != nil && e.Position.Line > 0 {
		ge.Locations = []language.ErrorLocation{{Line: e.Position.Line, Column: e.Position.Column}}
	}
	return ge
}
