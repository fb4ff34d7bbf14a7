package users

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fleetboard/fleetboard/internal/authz"
	"github.com/fleetboard/fleetboard/internal/platform/httpx"
	"github.com/fleetboard/fleetboard/internal/shared"
)

// Handler wires HTTP endpoints for user management. Every route is
// admin-gated through the permission guard.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   *authz.Guard
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard *authz.Guard) *Handler {
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountRoutes registers user management routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/users", h.listUsers)
	r.Get("/admins", h.listAdmins)
	r.Put("/admins/{discordID}", h.grantAdmin)
	r.Delete("/admins/{discordID}", h.revokeAdmin)
}

// UserDTO is the API representation of a user. Discord snowflakes exceed
// what JSON numbers carry safely, so ids travel as strings.
type UserDTO struct {
	DiscordID string `json:"discord_id"`
	Name      string `json:"name"`
	IsAdmin   bool   `json:"is_admin"`
}

func toDTO(u User) UserDTO {
	return UserDTO{
		DiscordID: strconv.FormatUint(u.DiscordID, 10),
		Name:      u.Name,
		IsAdmin:   u.IsAdmin,
	}
}

type userListResponse struct {
	Users      []UserDTO `json:"users"`
	Total      int       `json:"total"`
	Page       int       `json:"page"`
	PerPage    int       `json:"per_page"`
	TotalPages int       `json:"total_pages"`
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if _, err := h.guard.Require(r.Context(), sess, authz.Admin()); err != nil {
		authz.RespondError(w, h.logger, err)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	users, pagination, err := h.service.List(r.Context(), page, perPage)
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	resp := userListResponse{
		Users:      make([]UserDTO, 0, len(users)),
		Total:      pagination.Total,
		Page:       pagination.Page,
		PerPage:    pagination.PerPage,
		TotalPages: pagination.TotalPages,
	}
	for _, u := range users {
		resp.Users = append(resp.Users, toDTO(u))
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) listAdmins(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if _, err := h.guard.Require(r.Context(), sess, authz.Admin()); err != nil {
		authz.RespondError(w, h.logger, err)
		return
	}

	admins, err := h.service.Admins(r.Context())
	if err != nil {
		h.logger.Error("list admins", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	dtos := make([]UserDTO, 0, len(admins))
	for _, u := range admins {
		dtos = append(dtos, toDTO(u))
	}
	httpx.JSON(w, http.StatusOK, dtos)
}

func (h *Handler) grantAdmin(w http.ResponseWriter, r *http.Request) {
	h.setAdmin(w, r, true)
}

func (h *Handler) revokeAdmin(w http.ResponseWriter, r *http.Request) {
	h.setAdmin(w, r, false)
}

func (h *Handler) setAdmin(w http.ResponseWriter, r *http.Request, isAdmin bool) {
	sess := shared.SessionFromContext(r.Context())
	actor, err := h.guard.Require(r.Context(), sess, authz.Admin())
	if err != nil {
		authz.RespondError(w, h.logger, err)
		return
	}

	discordID, err := strconv.ParseUint(chi.URLParam(r, "discordID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid user id")
		return
	}

	if err := h.service.SetAdmin(r.Context(), discordID, isAdmin); err != nil {
		switch {
		case errors.Is(err, shared.ErrNotFound):
			httpx.Problem(w, http.StatusNotFound, "Not Found", "User not found")
		case errors.Is(err, ErrLastAdmin):
			httpx.Problem(w, http.StatusConflict, "Conflict", "Cannot remove the last admin")
		default:
			h.logger.Error("set admin", slog.Any("error", err), slog.Uint64("target", discordID))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		}
		return
	}

	h.logger.Info("admin flag changed",
		slog.Uint64("actor", actor.DiscordID),
		slog.Uint64("target", discordID),
		slog.Bool("is_admin", isAdmin))
	w.WriteHeader(http.StatusNoContent)
}
