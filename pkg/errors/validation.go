package errors

import (
	"fmt"
	"strings"
)

// FieldError describes one offending field in a validated document.
// Path uses dotted/indexed notation rooted at the document, for example
// "children[0].edges[2].sources".
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (f FieldError) String() string {
	return f.Path + ": " + f.Message
}

// FieldErrors is the complete list of validation failures for one document.
// It is carried as the Cause of an ErrCodeValidation *Error so callers can
// recover the structured list with errors.As.
type FieldErrors []FieldError

// Error implements the error interface.
func (fe FieldErrors) Error() string {
	parts := make([]string, len(fe))
	for i, f := range fe {
		parts[i] = f.String()
	}
	return strings.Join(parts, "; ")
}

// Add appends a field error with a formatted message.
func (fe *FieldErrors) Add(path, format string, args ...any) {
	*fe = append(*fe, FieldError{Path: path, Message: fmt.Sprintf(format, args...)})
}

// Err returns nil when no field errors were collected, otherwise a
// VALIDATION_FAILED *Error wrapping the list.
func (fe FieldErrors) Err(what string) error {
	if len(fe) == 0 {
		return nil
	}
	noun := "fields"
	if len(fe) == 1 {
		noun = "field"
	}
	return Wrap(ErrCodeValidation, fe, "invalid %s: %d offending %s", what, len(fe), noun)
}

// ValidationFields extracts the field errors from a validation error.
// Returns nil when err carries none.
func ValidationFields(err error) FieldErrors {
	var e *Error
	for err != nil {
		if !As(err, &e) {
			return nil
		}
		if fe, ok := e.Cause.(FieldErrors); ok {
			return fe
		}
		err = e.Cause
	}
	return nil
}
