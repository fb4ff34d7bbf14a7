package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fleetboard/fleetboard/internal/authz"
	"github.com/fleetboard/fleetboard/internal/platform/httpx"
	"github.com/fleetboard/fleetboard/internal/shared"
)

// Session keys used by the OAuth flow. The state token and the pending
// admin flag are one-shot values consumed on callback.
const (
	sessionKeyState        = "oauth:state"
	sessionKeyAdminPending = "oauth:admin"
)

// Handler wires HTTP endpoints for the Discord login flow.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	guard          *authz.Guard
	sessionManager *shared.SessionManager
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard *authz.Guard, sessions *shared.SessionManager) *Handler {
	return &Handler{
		logger:         logger,
		service:        service,
		guard:          guard,
		sessionManager: sessions,
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.login)
	r.Get("/callback", h.callback)
	r.Get("/logout", h.logout)
	r.Get("/user", h.currentUser)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	state := uuid.NewString()
	sess.Set(sessionKeyState, state)

	if code := r.URL.Query().Get("admin_code"); code != "" {
		switch err := h.service.VerifyAdminCode(r.Context(), code); {
		case errors.Is(err, shared.ErrInvalidAdminCode):
			h.logger.Warn("rejected admin code attempt", slog.String("remote", r.RemoteAddr))
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "Invalid admin code")
			return
		case err != nil:
			h.logger.Error("admin code check", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
		sess.Set(sessionKeyAdminPending, "1")
	}

	http.Redirect(w, r, h.service.LoginURL(state), http.StatusTemporaryRedirect)
}

// verifyState compares the callback state with the one issued at login. The
// stored value is consumed by the caller either way, so a state token never
// validates twice.
func verifyState(got, stored string) error {
	if got == "" || stored == "" || got != stored {
		return shared.ErrOAuthStateMismatch
	}
	return nil
}

func (h *Handler) callback(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during callback")
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	if err := verifyState(r.URL.Query().Get("state"), sess.Take(sessionKeyState)); err != nil {
		h.logger.Warn("oauth callback rejected", slog.String("remote", r.RemoteAddr), slog.Any("error", err))
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "OAuth state mismatch")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "missing authorization code")
		return
	}

	setAdmin := sess.Take(sessionKeyAdminPending) == "1"
	user, err := h.service.Callback(r.Context(), code, setAdmin)
	if err != nil {
		h.logger.Error("oauth callback", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	sess.SetUser(strconv.FormatUint(user.DiscordID, 10))
	h.logger.Info("user logged in", slog.Uint64("user", user.DiscordID))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		h.sessionManager.Destroy(sess)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// UserDTO is the API representation of the logged-in user.
type UserDTO struct {
	DiscordID string `json:"discord_id"`
	Name      string `json:"name"`
	IsAdmin   bool   `json:"is_admin"`
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	user, err := h.guard.Require(r.Context(), sess)
	if err != nil {
		authz.RespondError(w, h.logger, err)
		return
	}

	httpx.JSON(w, http.StatusOK, UserDTO{
		DiscordID: strconv.FormatUint(user.DiscordID, 10),
		Name:      user.Name,
		IsAdmin:   user.IsAdmin,
	})
}
