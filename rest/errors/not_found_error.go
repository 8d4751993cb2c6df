package errors

// NotFoundError is returned both for entities that do not exist and for
// entities outside the caller's scope, so the response does not leak
// existence information.
type NotFoundError struct {
	msg string
}

func (e *NotFoundError) Error() string {
	return e.msg
}

func NewNotFoundError(text string) error {
	return &NotFoundError{text}
}
