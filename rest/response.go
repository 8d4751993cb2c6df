package rest

import (
	goerrors "errors"
	"net/http"

	"github.com/facilimate/tquery/filter"
	"github.com/facilimate/tquery/rest/errors"
)

// errorBody is the error payload shape shared by all failure responses.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Description string              `json:"description"`
	Fields      []errors.FieldError `json:"fields,omitempty"`
	// SQL is populated only when debug mode is enabled.
	SQL string `json:"sql,omitempty"`
}

// writeError maps the error taxonomy onto HTTP statuses: validation problems
// are client errors with field attribution, bad filters indicate a defective
// client, everything internal stays opaque.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var validation *errors.ValidationError
	if goerrors.As(err, &validation) {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: errorDetail{
			Description: "invalid request",
			Fields:      validation.Fields,
		}})
		return
	}

	var badFilter *filter.BadFilterError
	if goerrors.As(err, &badFilter) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: errorDetail{
			Description: badFilter.Error(),
		}})
		return
	}

	var notFound *errors.NotFoundError
	if goerrors.As(err, &notFound) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: errorDetail{
			Description: notFound.Error(),
		}})
		return
	}

	var internal *errors.InternalError
	if goerrors.As(err, &internal) {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: errorDetail{
			Description: internal.Error(),
			SQL:         internal.DebugSQL(),
		}})
		return
	}

	s.logger.Error("unhandled error", "error", err)
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: errorDetail{
		Description: "internal error",
	}})
}
