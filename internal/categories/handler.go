package categories

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

// Handler wires HTTP endpoints for fleet categories. CRUD is admin-gated;
// the manageable listings are open to any logged-in user and reflect that
// user's role grants.
type Handler struct {
	logger     *slog.Logger
	service    *Service
	guard      *authz.Guard
	enumerator *authz.Enumerator
	validator  *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard *authz.Guard, enumerator *authz.Enumerator) *Handler {
	return &Handler{
		logger:     logger,
		service:    service,
		guard:      guard,
		enumerator: enumerator,
		validator:  validator.New(),
	}
}

// MountRoutes registers category routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/guilds/{guildID}/categories", h.list)
	r.Post("/guilds/{guildID}/categories", h.create)
	r.Get("/guilds/{guildID}/categories/{categoryID}", h.get)
	r.Put("/guilds/{guildID}/categories/{categoryID}", h.update)
	r.Delete("/guilds/{guildID}/categories/{categoryID}", h.delete)
	r.Get("/user/guilds/{guildID}/categories/manageable", h.manageable)
	r.Get("/user/categories/manageable", h.manageableAllGuilds)
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
	cats, err := h.service.ListByGuild(r.Context(), guildID)
	if err != nil {
		h.logger.Error("list categories", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	dtos := make([]CategoryDTO, 0, len(cats))
	for _, cat := range cats {
		dtos = append(dtos, toDTO(cat))
	}
	httpx.JSON(w, http.StatusOK, dtos)
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
	id, ok := h.categoryParam(w, r)
	if !ok {
		return
	}

	cat, err := h.service.Get(r.Context(), id)
	if err != nil || cat.GuildID != guildID {
		h.respondGetErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDTO(*cat))
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

	cat, err := h.service.Create(r.Context(), guildID, req)
	if err != nil {
		h.respondWriteErr(w, err, "create category")
		return
	}

	h.logger.Info("category created",
		slog.Uint64("actor", actor.DiscordID),
		slog.Uint64("guild", guildID),
		slog.Int("category", int(cat.ID)))
	httpx.JSON(w, http.StatusCreated, toDTO(*cat))
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
	id, ok := h.categoryParam(w, r)
	if !ok {
		return
	}
	req, ok := h.decodeReq(w, r)
	if !ok {
		return
	}

	cat, err := h.service.Update(r.Context(), guildID, id, req)
	if err != nil {
		h.respondWriteErr(w, err, "update category")
		return
	}

	h.logger.Info("category updated",
		slog.Uint64("actor", actor.DiscordID),
		slog.Uint64("guild", guildID),
		slog.Int("category", int(cat.ID)))
	httpx.JSON(w, http.StatusOK, toDTO(*cat))
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
	id, ok := h.categoryParam(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), guildID, id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "Category not found")
			return
		}
		h.logger.Error("delete category", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	h.logger.Info("category deleted",
		slog.Uint64("actor", actor.DiscordID),
		slog.Uint64("guild", guildID),
		slog.Int("category", int(id)))
	w.WriteHeader(http.StatusNoContent)
}

// ManageableDTO is the slim listing entry used by fleet creation forms.
type ManageableDTO struct {
	ID      int32  `json:"id"`
	GuildID string `json:"guild_id"`
	Name    string `json:"name"`
}

func (h *Handler) manageable(w http.ResponseWriter, r *http.Request) {
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
	refs, err := h.enumerator.ManageableCategories(r.Context(), user, guildID)
	if err != nil {
		h.logger.Error("manageable categories", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, toManageableDTOs(refs))
}

func (h *Handler) manageableAllGuilds(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	user, err := h.guard.Require(r.Context(), sess)
	if err != nil {
		authz.RespondError(w, h.logger, err)
		return
	}

	refs, err := h.enumerator.ManageableCategoriesAllGuilds(r.Context(), user)
	if err != nil {
		h.logger.Error("manageable categories", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, toManageableDTOs(refs))
}

func toManageableDTOs(refs []authz.CategoryRef) []ManageableDTO {
	dtos := make([]ManageableDTO, 0, len(refs))
	for _, ref := range refs {
		dtos = append(dtos, ManageableDTO{
			ID:      ref.ID,
			GuildID: strconv.FormatUint(ref.GuildID, 10),
			Name:    ref.Name,
		})
	}
	return dtos
}

func (h *Handler) decodeReq(w http.ResponseWriter, r *http.Request) (CategoryReq, bool) {
	var req CategoryReq
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
	var invalidRole *InvalidRoleIDError
	switch {
	case errors.Is(err, shared.ErrDuplicate):
		httpx.Problem(w, http.StatusConflict, "Conflict", "A category with that name already exists in this guild")
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "Category or ping format not found")
	case errors.As(err, &invalidRole):
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", invalidRole.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func (h *Handler) respondGetErr(w http.ResponseWriter, err error) {
	if err == nil || errors.Is(err, shared.ErrNotFound) {
		// A category in another guild is indistinguishable from a missing one.
		httpx.Problem(w, http.StatusNotFound, "Not Found", "Category not found")
		return
	}
	h.logger.Error("get category", slog.Any("error", err))
	httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
}

func (h *Handler) guildParam(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "guildID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid guild id")
		return 0, false
	}
	return id, true
}

func (h *Handler) categoryParam(w http.ResponseWriter, r *http.Request) (int32, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "categoryID"), 10, 32)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid category id")
		return 0, false
	}
	return int32(id), true
}

func toDTO(cat Category) CategoryDTO {
	dto := CategoryDTO{
		ID:               cat.ID,
		GuildID:          strconv.FormatUint(cat.GuildID, 10),
		Name:             cat.Name,
		PingFormatID:     cat.PingFormatID,
		PingCooldownSecs: durationSeconds(cat.PingCooldown),
		PingReminderSecs: durationSeconds(cat.PingReminder),
		MaxPrePingSecs:   durationSeconds(cat.MaxPrePing),
		AccessRoles:      make([]AccessRoleDTO, 0, len(cat.AccessRoles)),
	}
	for _, ar := range cat.AccessRoles {
		dto.AccessRoles = append(dto.AccessRoles, AccessRoleDTO{
			RoleID:    strconv.FormatUint(ar.RoleID, 10),
			RoleName:  ar.RoleName,
			RoleColor: ar.RoleColor,
			Position:  ar.Position,
			CanView:   ar.CanView,
			CanCreate: ar.CanCreate,
			CanManage: ar.CanManage,
		})
	}
	return dto
}
