package log

import (
	"net/http"
	"time"
)

type loggingHandler struct {
	next   http.Handler
	logger Logger
}

// NewLoggingHandler wraps a handler to log each request with its status and
// duration.
func NewLoggingHandler(next http.Handler, logger Logger) http.Handler {
	return &loggingHandler{next: next, logger: logger}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (h *loggingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	h.next.ServeHTTP(recorder, r)
	h.logger.Info("request served",
		"method", r.Method,
		"path", r.URL.Path,
		"status", recorder.status,
		"duration", time.Since(started))
}
