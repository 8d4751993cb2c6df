package errors

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/iancoleman/strcase"
)

// TranslateValidatorError converts a go-playground validator error (internally
// a list of field errors) into a field-attributed ValidationError, using the
// translator for human readable messages.
func TranslateValidatorError(err error, trans ut.Translator) error {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	translated := NewValidationError()
	for _, fieldError := range validationErrors {
		translated.Add(fieldPath(fieldError.Namespace()), fieldError.Translate(trans))
	}
	return translated
}

// fieldPath converts a validator namespace ("DataRequest.Paging.Size") to the
// wire field path ("paging.size").
func fieldPath(namespace string) string {
	var path string
	first := true
	start := 0
	for i := 0; i <= len(namespace); i++ {
		if i < len(namespace) && namespace[i] != '.' {
			continue
		}
		segment := namespace[start:i]
		start = i + 1
		if first {
			// The first segment is the root struct name, dropped.
			first = false
			continue
		}
		name, index := splitIndex(segment)
		if path != "" {
			path += "."
		}
		path += strcase.ToLowerCamel(name) + index
	}
	return path
}

// splitIndex separates a trailing "[i]" subscript from a segment.
func splitIndex(segment string) (string, string) {
	for i, r := range segment {
		if r == '[' {
			return segment[:i], segment[i:]
		}
	}
	return segment, ""
}
