package fleets

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/fleetboard/fleetboard/internal/authz"
	"github.com/fleetboard/fleetboard/internal/platform/httpx"
	"github.com/fleetboard/fleetboard/internal/shared"
)

// Handler wires HTTP endpoints for the timerboard. Creation requires create
// access to the target category; editing and deletion are open to the fleet
// commander, category managers, and admins.
type Handler struct {
	logger     *slog.Logger
	service    *Service
	guard      *authz.Guard
	enumerator *authz.Enumerator
	validator  *validator.Validate
	now        func() time.Time
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard *authz.Guard, enumerator *authz.Enumerator) *Handler {
	return &Handler{
		logger:     logger,
		service:    service,
		guard:      guard,
		enumerator: enumerator,
		validator:  validator.New(),
		now:        time.Now,
	}
}

// MountRoutes registers fleet routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/guilds/{guildID}/fleets", h.list)
	r.Post("/guilds/{guildID}/fleets", h.create)
	r.Get("/guilds/{guildID}/fleets/{fleetID}", h.get)
	r.Put("/guilds/{guildID}/fleets/{fleetID}", h.update)
	r.Delete("/guilds/{guildID}/fleets/{fleetID}", h.delete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	user, err := h.guard.Require(r.Context(), sess)
	if err != nil {
		authz.RespondError(w, h.logger, err)
		return
	}

	guildID, ok := h.guildParam(w, r)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	filter := ListFilter{GuildID: guildID, Admin: user.IsAdmin, Page: page, PerPage: perPage}
	if !user.IsAdmin {
		viewable, err := h.enumerator.ViewableCategoryIDs(r.Context(), user, guildID)
		if err != nil {
			h.logger.Error("viewable categories", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
		managed, err := h.enumerator.ManageableCategories(r.Context(), user, guildID)
		if err != nil {
			h.logger.Error("manageable categories", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
		filter.ViewableCategoryIDs = viewable
		for _, ref := range managed {
			filter.ManagedCategoryIDs = append(filter.ManagedCategoryIDs, ref.ID)
		}
	}

	fleets, pagination, err := h.service.ListByGuild(r.Context(), filter)
	if err != nil {
		h.logger.Error("list fleets", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	resp := FleetListResponse{
		Fleets:     make([]FleetDTO, 0, len(fleets)),
		Total:      pagination.Total,
		Page:       pagination.Page,
		PerPage:    pagination.PerPage,
		TotalPages: pagination.TotalPages,
	}
	for _, f := range fleets {
		resp.Fleets = append(resp.Fleets, toDTO(f))
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	guildID, ok := h.guildParam(w, r)
	if !ok {
		return
	}
	req, ok := h.decodeReq(w, r)
	if !ok {
		return
	}

	user, err := h.guard.Require(r.Context(), sess, authz.CategoryCreate(guildID, req.CategoryID))
	if err != nil {
		authz.RespondError(w, h.logger, err)
		return
	}

	fleet, err := h.service.Create(r.Context(), guildID, req)
	if err != nil {
		h.respondWriteErr(w, err, "create fleet")
		return
	}

	h.logger.Info("fleet created",
		slog.Uint64("actor", user.DiscordID),
		slog.Uint64("guild", guildID),
		slog.Int("fleet", int(fleet.ID)),
		slog.Int("category", int(fleet.CategoryID)))
	httpx.JSON(w, http.StatusCreated, toDTO(*fleet))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	user, err := h.guard.Require(r.Context(), sess)
	if err != nil {
		authz.RespondError(w, h.logger, err)
		return
	}

	guildID, ok := h.guildParam(w, r)
	if !ok {
		return
	}
	id, ok := h.fleetParam(w, r)
	if !ok {
		return
	}

	fleet, visible, err := h.visibleFleet(r, user, guildID, id)
	if err != nil {
		h.logger.Error("get fleet", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if !visible {
		// Missing and forbidden are indistinguishable on purpose.
		httpx.Problem(w, http.StatusNotFound, "Not Found", "Fleet not found")
		return
	}
	httpx.JSON(w, http.StatusOK, toDTO(*fleet))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "update fleet", func(guildID uint64, id int32, req FleetReq) (*Fleet, error) {
		return h.service.Update(r.Context(), guildID, id, req)
	})
}

func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, op string, apply func(uint64, int32, FleetReq) (*Fleet, error)) {
	sess := shared.SessionFromContext(r.Context())
	user, err := h.guard.Require(r.Context(), sess)
	if err != nil {
		authz.RespondError(w, h.logger, err)
		return
	}

	guildID, ok := h.guildParam(w, r)
	if !ok {
		return
	}
	id, ok := h.fleetParam(w, r)
	if !ok {
		return
	}

	fleet, visible, err := h.visibleFleet(r, user, guildID, id)
	if err != nil {
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if !visible {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "Fleet not found")
		return
	}

	allowed, err := h.canMutate(r, user, fleet)
	if err != nil {
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if !allowed {
		h.logger.Info("fleet mutation denied",
			slog.Uint64("actor", user.DiscordID),
			slog.Int("fleet", int(fleet.ID)))
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "Insufficient permissions")
		return
	}

	req, ok := h.decodeReq(w, r)
	if !ok {
		return
	}

	// Moving a fleet needs create access on the destination category.
	if req.CategoryID != fleet.CategoryID {
		canCreate, err := h.guard.Allowed(r.Context(), user, authz.CategoryCreate(guildID, req.CategoryID))
		if err != nil {
			h.logger.Error(op, slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
		if !canCreate {
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "Insufficient permissions")
			return
		}
	}

	updated, err := apply(guildID, id, req)
	if err != nil {
		h.respondWriteErr(w, err, op)
		return
	}

	h.logger.Info("fleet updated",
		slog.Uint64("actor", user.DiscordID),
		slog.Uint64("guild", guildID),
		slog.Int("fleet", int(updated.ID)))
	httpx.JSON(w, http.StatusOK, toDTO(*updated))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	user, err := h.guard.Require(r.Context(), sess)
	if err != nil {
		authz.RespondError(w, h.logger, err)
		return
	}

	guildID, ok := h.guildParam(w, r)
	if !ok {
		return
	}
	id, ok := h.fleetParam(w, r)
	if !ok {
		return
	}

	fleet, visible, err := h.visibleFleet(r, user, guildID, id)
	if err != nil {
		h.logger.Error("delete fleet", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if !visible {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "Fleet not found")
		return
	}

	allowed, err := h.canMutate(r, user, fleet)
	if err != nil {
		h.logger.Error("delete fleet", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if !allowed {
		h.logger.Info("fleet deletion denied",
			slog.Uint64("actor", user.DiscordID),
			slog.Int("fleet", int(fleet.ID)))
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "Insufficient permissions")
		return
	}

	if err := h.service.Delete(r.Context(), guildID, id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "Fleet not found")
			return
		}
		h.logger.Error("delete fleet", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	h.logger.Info("fleet deleted",
		slog.Uint64("actor", user.DiscordID),
		slog.Uint64("guild", guildID),
		slog.Int("fleet", int(id)))
	w.WriteHeader(http.StatusNoContent)
}

// visibleFleet loads a fleet and decides whether the caller may see it.
// A fleet in another guild, a category the caller cannot view, or a hidden
// fleet outside its reminder window all read as missing.
func (h *Handler) visibleFleet(r *http.Request, user *authz.User, guildID uint64, id int32) (*Fleet, bool, error) {
	fleet, err := h.service.Get(r.Context(), id)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if fleet.GuildID != guildID {
		return nil, false, nil
	}
	if user.IsAdmin {
		return fleet, true, nil
	}

	canView, err := h.guard.Allowed(r.Context(), user, authz.CategoryView(guildID, fleet.CategoryID))
	if err != nil {
		return nil, false, err
	}
	if !canView {
		return nil, false, nil
	}
	if fleet.VisibleAt(h.now()) {
		return fleet, true, nil
	}

	// Hidden and before the reminder window: only creators and managers see it.
	canCreate, err := h.guard.Allowed(r.Context(), user, authz.CategoryCreate(guildID, fleet.CategoryID))
	if err != nil {
		return nil, false, err
	}
	if canCreate {
		return fleet, true, nil
	}
	canManage, err := h.guard.Allowed(r.Context(), user, authz.CategoryManage(guildID, fleet.CategoryID))
	if err != nil {
		return nil, false, err
	}
	return fleet, canManage, nil
}

// canMutate reports whether the caller may edit or delete the fleet: admins,
// the fleet commander, and category managers.
func (h *Handler) canMutate(r *http.Request, user *authz.User, fleet *Fleet) (bool, error) {
	if user.IsAdmin || user.DiscordID == fleet.CommanderID {
		return true, nil
	}
	return h.guard.Allowed(r.Context(), user, authz.CategoryManage(fleet.GuildID, fleet.CategoryID))
}

func (h *Handler) decodeReq(w http.ResponseWriter, r *http.Request) (FleetReq, bool) {
	var req FleetReq
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
	var invalidCommander *InvalidCommanderIDError
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "Fleet not found")
	case errors.As(err, &invalidCommander):
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", invalidCommander.Error())
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

func (h *Handler) fleetParam(w http.ResponseWriter, r *http.Request) (int32, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "fleetID"), 10, 32)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid fleet id")
		return 0, false
	}
	return int32(id), true
}
