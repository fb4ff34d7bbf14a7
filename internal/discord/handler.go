package discord

import (
	"errors"
	"fmt"
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

// Handler wires HTTP endpoints for Discord read models.
type Handler struct {
	logger    *slog.Logger
	repo      *Repository
	guard     *authz.Guard
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, repo *Repository, guard *authz.Guard) *Handler {
	return &Handler{logger: logger, repo: repo, guard: guard, validator: validator.New()}
}

// MountRoutes registers Discord routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/guilds", h.listGuilds)
	r.Get("/guilds/{guildID}", h.getGuild)
	r.Put("/guilds/{guildID}/sync", h.syncGuild)
	r.Get("/guilds/{guildID}/roles", h.listRoles)
	r.Get("/guilds/{guildID}/channels", h.listChannels)
	r.Get("/user/guilds", h.listUserGuilds)
}

// GuildDTO is the API representation of a guild.
type GuildDTO struct {
	GuildID string `json:"guild_id"`
	Name    string `json:"name"`
}

// RoleDTO is the API representation of a guild role.
type RoleDTO struct {
	RoleID   string `json:"role_id"`
	Name     string `json:"name"`
	Color    string `json:"color"`
	Position int16  `json:"position"`
}

// SyncRoleReq is one role in a guild sync payload.
type SyncRoleReq struct {
	RoleID   string `json:"role_id" validate:"required"`
	Name     string `json:"name" validate:"required,max=100"`
	Color    string `json:"color"`
	Position int16  `json:"position"`
}

// SyncGuildReq replaces a guild's name and role set wholesale.
type SyncGuildReq struct {
	Name  string        `json:"name" validate:"required,max=100"`
	Roles []SyncRoleReq `json:"roles" validate:"dive"`
}

// ChannelDTO is the API representation of a guild channel.
type ChannelDTO struct {
	ChannelID string `json:"channel_id"`
	Name      string `json:"name"`
	Position  int16  `json:"position"`
}

func (h *Handler) listGuilds(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if _, err := h.guard.Require(r.Context(), sess, authz.Admin()); err != nil {
		authz.RespondError(w, h.logger, err)
		return
	}

	guilds, err := h.repo.ListGuilds(r.Context())
	if err != nil {
		h.logger.Error("list guilds", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, toGuildDTOs(guilds))
}

func (h *Handler) getGuild(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if _, err := h.guard.Require(r.Context(), sess, authz.Admin()); err != nil {
		authz.RespondError(w, h.logger, err)
		return
	}

	guildID, ok := parseSnowflakeParam(w, r, "guildID")
	if !ok {
		return
	}
	guild, err := h.repo.FindGuild(r.Context(), guildID)
	if err != nil {
		h.logger.Error("get guild", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if guild == nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "Guild not found")
		return
	}
	httpx.JSON(w, http.StatusOK, GuildDTO{GuildID: formatID(guild.ID), Name: guild.Name})
}

// syncGuild registers or refreshes a guild from a sync payload, replacing
// its name and role set wholesale. Grants referencing removed roles cascade
// away.
func (h *Handler) syncGuild(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if _, err := h.guard.Require(r.Context(), sess, authz.Admin()); err != nil {
		authz.RespondError(w, h.logger, err)
		return
	}

	guildID, ok := parseSnowflakeParam(w, r, "guildID")
	if !ok {
		return
	}

	var req SyncGuildReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	roles, err := rolesFromReq(guildID, req.Roles)
	if err != nil {
		var invalid *InvalidRoleIDError
		if errors.As(err, &invalid) {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", invalid.Error())
			return
		}
		h.logger.Error("sync guild", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	ctx := r.Context()
	if err := h.repo.UpsertGuild(ctx, guildID, req.Name); err != nil {
		h.logger.Error("upsert guild", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if err := h.repo.ReplaceGuildRoles(ctx, guildID, roles); err != nil {
		h.logger.Error("replace guild roles", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if err := h.repo.MarkGuildSynced(ctx, guildID, time.Now().UTC()); err != nil {
		h.logger.Error("mark guild synced", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	h.logger.Info("guild synced", slog.Uint64("guild", guildID), slog.Int("roles", len(roles)))
	w.WriteHeader(http.StatusNoContent)
}

// rolesFromReq parses the payload's role snowflakes and pins every role to
// the target guild.
func rolesFromReq(guildID uint64, reqs []SyncRoleReq) ([]Role, error) {
	roles := make([]Role, 0, len(reqs))
	for _, req := range reqs {
		id, err := strconv.ParseUint(req.RoleID, 10, 64)
		if err != nil {
			return nil, &InvalidRoleIDError{Raw: req.RoleID}
		}
		roles = append(roles, Role{
			ID:       id,
			GuildID:  guildID,
			Name:     req.Name,
			Color:    req.Color,
			Position: req.Position,
		})
	}
	return roles, nil
}

// InvalidRoleIDError reports a role id that is not a Discord snowflake.
type InvalidRoleIDError struct {
	Raw string
}

func (e *InvalidRoleIDError) Error() string {
	return fmt.Sprintf("invalid role id %q", e.Raw)
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if _, err := h.guard.Require(r.Context(), sess, authz.Admin()); err != nil {
		authz.RespondError(w, h.logger, err)
		return
	}

	guildID, ok := parseSnowflakeParam(w, r, "guildID")
	if !ok {
		return
	}
	roles, err := h.repo.RolesByGuild(r.Context(), guildID)
	if err != nil {
		h.logger.Error("list guild roles", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	dtos := make([]RoleDTO, 0, len(roles))
	for _, role := range roles {
		dtos = append(dtos, RoleDTO{
			RoleID:   formatID(role.ID),
			Name:     role.Name,
			Color:    role.Color,
			Position: role.Position,
		})
	}
	httpx.JSON(w, http.StatusOK, dtos)
}

func (h *Handler) listChannels(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if _, err := h.guard.Require(r.Context(), sess, authz.Admin()); err != nil {
		authz.RespondError(w, h.logger, err)
		return
	}

	guildID, ok := parseSnowflakeParam(w, r, "guildID")
	if !ok {
		return
	}
	channels, err := h.repo.ChannelsByGuild(r.Context(), guildID)
	if err != nil {
		h.logger.Error("list guild channels", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	dtos := make([]ChannelDTO, 0, len(channels))
	for _, ch := range channels {
		dtos = append(dtos, ChannelDTO{
			ChannelID: formatID(ch.ID),
			Name:      ch.Name,
			Position:  ch.Position,
		})
	}
	httpx.JSON(w, http.StatusOK, dtos)
}

// listUserGuilds returns the guilds visible to the calling user: every guild
// for admins, membership guilds otherwise.
func (h *Handler) listUserGuilds(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	user, err := h.guard.Require(r.Context(), sess)
	if err != nil {
		authz.RespondError(w, h.logger, err)
		return
	}

	var guilds []Guild
	if user.IsAdmin {
		guilds, err = h.repo.ListGuilds(r.Context())
	} else {
		guilds, err = h.repo.GuildsForUser(r.Context(), user.DiscordID)
	}
	if err != nil {
		h.logger.Error("list user guilds", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, toGuildDTOs(guilds))
}

func toGuildDTOs(guilds []Guild) []GuildDTO {
	dtos := make([]GuildDTO, 0, len(guilds))
	for _, g := range guilds {
		dtos = append(dtos, GuildDTO{GuildID: formatID(g.ID), Name: g.Name})
	}
	return dtos
}

func parseSnowflakeParam(w http.ResponseWriter, r *http.Request, name string) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, name), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid "+name)
		return 0, false
	}
	return id, true
}
