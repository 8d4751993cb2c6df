package errors

import "strings"

// FieldError attributes one validation failure to a request field path, e.g.
// "filter.val[1].op".
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports invalid user input: unknown columns, operators not
// permitted for a column's type, malformed operand values. Never fatal; the
// request is rejected before any query compilation begins.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, field := range e.Fields {
		msgs = append(msgs, field.Field+": "+field.Message)
	}
	return strings.Join(msgs, "; ")
}

// Add appends one field failure.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// HasErrors reports whether any failure was recorded.
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

func NewValidationError(fields ...FieldError) *ValidationError {
	return &ValidationError{Fields: fields}
}
