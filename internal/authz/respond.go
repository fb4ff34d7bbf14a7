package authz

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/fleetboard/fleetboard/internal/platform/httpx"
)

// RespondError translates a Require failure into an HTTP response. Missing
// or stale identities answer 404 so the API does not reveal whether an
// account exists; denials answer 403 with a generic message while the
// detailed reason stays in the logs.
func RespondError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var invalidID *InvalidIdentifierError
	var notInDB *UserNotInDatabaseError
	var denied *AccessDeniedError

	switch {
	case errors.Is(err, ErrUserNotInSession):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "User not found")
	case errors.As(err, &notInDB):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "User not found")
	case errors.As(err, &denied):
		if logger != nil {
			logger.Info("access denied",
				slog.Uint64("user_id", denied.UserID),
				slog.String("reason", denied.Reason))
		}
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "Insufficient permissions")
	case errors.As(err, &invalidID):
		if logger != nil {
			logger.Warn("corrupted session identifier", slog.String("value", invalidID.Raw))
		}
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	default:
		if logger != nil {
			logger.Error("permission check failed", slog.Any("error", err))
		}
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
