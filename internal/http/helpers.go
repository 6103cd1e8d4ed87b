package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"bizdash/internal/core"
	"bizdash/internal/log"
	"bizdash/internal/storage"
)

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

func sanitizeAll(fields ...*string) {
	for _, f := range fields {
		*f = sanitizeInput(*f)
	}
}

var validationErrors = []error{
	core.ErrInvalidAmount,
	core.ErrEmptyDescription,
	core.ErrEmptyName,
	core.ErrEmptyNumber,
	core.ErrInvalidType,
	core.ErrInvalidStatus,
	core.ErrInvalidPeriod,
	core.ErrMissingAccount,
	core.ErrCategoryMismatch,
	core.ErrInvalidDateRange,
	core.ErrDescriptionLength,
	core.ErrInvalidFrequency,
	core.ErrInvalidDate,
	core.ErrMissingDate,
}

func isValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// writeError renders err as a notification with a status matching its kind.
// Unexpected errors are logged; their text never reaches the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op, table string, err error) {
	switch {
	case isValidationError(err):
		UnprocessableEntityError(capitalize(err.Error())).Write(w)
	case errors.Is(err, storage.ErrNotFound):
		NotFoundError("The requested record does not exist.").Write(w)
	case errors.Is(err, context.DeadlineExceeded):
		log.FromContext(r.Context()).WarnContext(r.Context(), "Request timed out",
			log.FieldOperation, op, log.FieldTable, table, log.FieldError, err)
		ErrorResponse(http.StatusGatewayTimeout, "Timeout", "The data source did not answer in time.").Write(w)
	default:
		log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(), "Request failed", err,
			log.ComponentHTTP, op, log.NewFields().WithRecord(table, r.PathValue("id")))
		InternalServerError("The operation could not be completed.").Write(w)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
