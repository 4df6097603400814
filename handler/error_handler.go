package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/accountkit/pkg/binder"
	"github.com/dmitrymomot/accountkit/pkg/logger"
	"github.com/dmitrymomot/accountkit/pkg/requestid"
)

// errorToDetail classifies err and sets status accordingly. Messages of
// unclassified errors are not exposed.
func errorToDetail(err error, status *int) *ErrorDetail {
	var httpErr HTTPError
	switch {
	case errors.As(err, &httpErr):
		*status = httpErr.Code
		return &ErrorDetail{Code: httpErr.Key, Message: httpErr.Error()}
	case errors.Is(err, binder.ErrUnsupportedMediaType):
		*status = http.StatusUnsupportedMediaType
		return &ErrorDetail{Code: "unsupported_media_type", Message: http.StatusText(http.StatusUnsupportedMediaType)}
	case errors.Is(err, binder.ErrInvalidJSON), errors.Is(err, binder.ErrInvalidForm):
		*status = http.StatusBadRequest
		return &ErrorDetail{Code: "invalid_request", Message: err.Error()}
	default:
		*status = http.StatusInternalServerError
		return &ErrorDetail{Code: "internal_error", Message: http.StatusText(http.StatusInternalServerError)}
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	_ = JSONError(err).Render(w, r)
}

// NewErrorHandler returns an ErrorHandler that logs the error with request
// details (warn for 4xx, error for 5xx) and writes the JSON error envelope.
func NewErrorHandler(log *slog.Logger) ErrorHandler[Context] {
	if log == nil {
		log = slog.Default()
	}
	return func(ctx Context, err error) {
		status := http.StatusInternalServerError
		errorToDetail(err, &status)

		level := slog.LevelError
		if status < http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		r := ctx.Request()
		log.LogAttrs(r.Context(), level, "request error",
			logger.RequestID(requestid.FromContext(r.Context())),
			logger.Error(err),
			slog.Int("status_code", status),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			logger.Component("error_handler"),
		)
		writeError(ctx.ResponseWriter(), r, err)
	}
}
