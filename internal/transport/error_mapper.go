package transport

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"pairchat/internal/domain"
	"pairchat/internal/observability"
)

// DomainError maps the typed error taxonomy onto HTTP responses. The full
// error is logged server-side; clients get the code and a safe message.
func DomainError(w http.ResponseWriter, err error) {
	log := observability.GetLogger(context.Background())

	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		WriteError(w, http.StatusUnauthorized, "unauthenticated", "authentication required")
	case errors.Is(err, domain.ErrForbidden):
		WriteError(w, http.StatusForbidden, "forbidden", "access denied")
	case errors.Is(err, domain.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		WriteError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, domain.ErrInvalidState):
		WriteError(w, http.StatusConflict, "invalid_state", err.Error())
	case errors.Is(err, domain.ErrUnavailable):
		log.Warn("dependency unavailable", zap.Error(err))
		WriteError(w, http.StatusServiceUnavailable, "unavailable", "service temporarily unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn("request timed out", zap.Error(err))
		WriteError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		log.Error("internal_error", zap.Error(err))
		WriteError(w, http.StatusInternalServerError, "internal_error", "an unexpected error occurred")
	}
}
