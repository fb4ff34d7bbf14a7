package pingformats

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/fleetboard/fleetboard/internal/authz"
	"github.com/fleetboard/fleetboard/internal/platform/httpx"
	"github.com/fleetboard/fleetboard/internal/shared"
)

// Handler wires HTTP endpoints for ping formats. Every route is admin-gated.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	guard     *authz.Guard
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard *authz.Guard) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		guard:     guard,
		validator: validator.New(),
	}
}

// MountRoutes registers ping format routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/guilds/{guildID}/ping-formats", h.list)
	r.Post("/guilds/{guildID}/ping-formats", h.create)
	r.Get("/guilds/{guildID}/ping-formats/{formatID}", h.get)
	r.Put("/guilds/{guildID}/ping-formats/{formatID}", h.update)
	r.Delete("/guilds/{guildID}/ping-formats/{formatID}", h.delete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if _, err := h.guard.Require(r.Context(), sess, authz.Admin()); err != nil {
		authz.RespondError(w, h.logger, err)
		return
	}

	guildID, ok := h.guildParam(w, r)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	formats, pagination, err := h.service.ListByGuild(r.Context(), guildID, page, perPage)
	if err != nil {
		h.logger.Error("list ping formats", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	resp := FormatListResponse{
		PingFormats: make([]FormatDTO, 0, len(formats)),
		Total:       pagination.Total,
		Page:        pagination.Page,
		PerPage:     pagination.PerPage,
		TotalPages:  pagination.TotalPages,
	}
	for _, f := range formats {
		resp.PingFormats = append(resp.PingFormats, toDTO(f))
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if _, err := h.guard.Require(r.Context(), sess, authz.Admin()); err != nil {
		authz.RespondError(w, h.logger, err)
		return
	}

	guildID, ok := h.guildParam(w, r)
	if !ok {
		return
	}
	id, ok := h.formatParam(w, r)
	if !ok {
		return
	}

	format, err := h.service.Get(r.Context(), guildID, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "Ping format not found")
			return
		}
		h.logger.Error("get ping format", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, toDTO(*format))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	actor, err := h.guard.Require(r.Context(), sess, authz.Admin())
	if err != nil {
		authz.RespondError(w, h.logger, err)
		return
	}

	guildID, ok := h.guildParam(w, r)
	if !ok {
		return
	}
	req, ok := h.decodeReq(w, r)
	if !ok {
		return
	}

	format, err := h.service.Create(r.Context(), guildID, req)
	if err != nil {
		h.respondWriteErr(w, err, "create ping format")
		return
	}

	h.logger.Info("ping format created",
		slog.Uint64("actor", actor.DiscordID),
		slog.Uint64("guild", guildID),
		slog.Int("format", int(format.ID)))
	httpx.JSON(w, http.StatusCreated, toDTO(*format))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	actor, err := h.guard.Require(r.Context(), sess, authz.Admin())
	if err != nil {
		authz.RespondError(w, h.logger, err)
		return
	}

	guildID, ok := h.guildParam(w, r)
	if !ok {
		return
	}
	id, ok := h.formatParam(w, r)
	if !ok {
		return
	}
	req, ok := h.decodeReq(w, r)
	if !ok {
		return
	}

	format, err := h.service.Update(r.Context(), guildID, id, req)
	if err != nil {
		h.respondWriteErr(w, err, "update ping format")
		return
	}

	h.logger.Info("ping format updated",
		slog.Uint64("actor", actor.DiscordID),
		slog.Uint64("guild", guildID),
		slog.Int("format", int(format.ID)))
	httpx.JSON(w, http.StatusOK, toDTO(*format))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	actor, err := h.guard.Require(r.Context(), sess, authz.Admin())
	if err != nil {
		authz.RespondError(w, h.logger, err)
		return
	}

	guildID, ok := h.guildParam(w, r)
	if !ok {
		return
	}
	id, ok := h.formatParam(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), guildID, id); err != nil {
		switch {
		case errors.Is(err, shared.ErrNotFound):
			httpx.Problem(w, http.StatusNotFound, "Not Found", "Ping format not found")
		case errors.Is(err, ErrFormatInUse):
			httpx.Problem(w, http.StatusConflict, "Conflict", "Ping format is still used by fleet categories")
		default:
			h.logger.Error("delete ping format", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		}
		return
	}

	h.logger.Info("ping format deleted",
		slog.Uint64("actor", actor.DiscordID),
		slog.Uint64("guild", guildID),
		slog.Int("format", int(id)))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decodeReq(w http.ResponseWriter, r *http.Request) (FormatReq, bool) {
	var req FormatReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return req, false
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return req, false
	}
	return req, true
}

func (h *Handler) respondWriteErr(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, shared.ErrDuplicate):
		httpx.Problem(w, http.StatusConflict, "Conflict", "A ping format with that name already exists in this guild")
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "Ping format not found")
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func (h *Handler) guildParam(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "guildID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid guild id")
		return 0, false
	}
	return id, true
}

func (h *Handler) formatParam(w http.ResponseWriter, r *http.Request) (int32, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "formatID"), 10, 32)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid ping format id")
		return 0, false
	}
	return int32(id), true
}
