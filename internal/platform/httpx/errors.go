package httpx

import (
	"log/slog"
	"net/http"

	"github.com/helmdesk/helmdesk/internal/shared"
)

// StatusFor maps an error classification to an HTTP status.
func StatusFor(err error) int {
	switch shared.KindOf(err) {
	case shared.KindValidation, shared.KindConflict:
		return http.StatusBadRequest
	case shared.KindAuthentication:
		return http.StatusUnauthorized
	case shared.KindAuthorization:
		return http.StatusForbidden
	case shared.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// RespondError writes the classified error. Internal errors are logged and
// replaced by a generic message.
func RespondError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError && logger != nil {
		logger.Error("request failed", slog.Any("error", err))
	}
	Error(w, status, shared.UserSafeMessage(err))
}
