package errors

// InternalError wraps a query execution failure not attributable to user
// input. The generated SQL is attached only when debug mode is enabled and is
// never shown to end users by default.
type InternalError struct {
	msg string
	// SQL is the generated statement, present only in debug mode.
	SQL string
}

func (e *InternalError) Error() string {
	return e.msg
}

// DebugSQL returns the generated statement, or "" outside debug mode.
func (e *InternalError) DebugSQL() string {
	return e.SQL
}

func NewInternalError(text string) *InternalError {
	return &InternalError{msg: text}
}

// WithSQL attaches the generated statement for operators.
func (e *InternalError) WithSQL(sql string) *InternalError {
	e.SQL = sql
	return e
}
