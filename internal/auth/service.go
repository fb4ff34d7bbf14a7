package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"

	"github.com/fleetboard/fleetboard/internal/discord"
	"github.com/fleetboard/fleetboard/internal/shared"
	"github.com/fleetboard/fleetboard/internal/users"
)

// roleSyncThreshold is how stale a user's role snapshot may get before a
// login triggers a refresh from Discord.
const roleSyncThreshold = 30 * time.Minute

// Endpoint is Discord's OAuth2 endpoint.
var Endpoint = oauth2.Endpoint{
	AuthURL:  "https://discord.com/oauth2/authorize",
	TokenURL: "https://discord.com/api/oauth2/token",
}

// Service drives the Discord OAuth2 login flow and keeps the local mirror of
// the user's guild and role memberships fresh.
type Service struct {
	logger        *slog.Logger
	oauth         *oauth2.Config
	api           DiscordAPI
	users         *users.Repository
	guilds        *discord.Repository
	adminCodeHash string
	now           func() time.Time
}

// NewService constructs the auth service. adminCodeHash is the bcrypt hash
// of the bootstrap admin code; empty disables the bootstrap flow.
func NewService(logger *slog.Logger, oauth *oauth2.Config, api DiscordAPI, userRepo *users.Repository, guildRepo *discord.Repository, adminCodeHash string) *Service {
	return &Service{
		logger:        logger,
		oauth:         oauth,
		api:           api,
		users:         userRepo,
		guilds:        guildRepo,
		adminCodeHash: adminCodeHash,
		now:           time.Now,
	}
}

// NewOAuthConfig builds the Discord OAuth2 config used by the login flow.
func NewOAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{"identify", "guilds", "guilds.members.read"},
		Endpoint:     Endpoint,
	}
}

// LoginURL returns the Discord consent URL carrying the CSRF state.
func (s *Service) LoginURL(state string) string {
	return s.oauth.AuthCodeURL(state)
}

// VerifyAdminCode checks the supplied bootstrap code against the configured
// hash, returning shared.ErrInvalidAdminCode when it does not pass. The code
// only works while no admin exists yet, so a leaked code is useless once
// setup completes.
func (s *Service) VerifyAdminCode(ctx context.Context, code string) error {
	if s.adminCodeHash == "" || code == "" {
		return shared.ErrInvalidAdminCode
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.adminCodeHash), []byte(code)); err != nil {
		return shared.ErrInvalidAdminCode
	}
	exists, err := s.users.AdminExists(ctx)
	if err != nil {
		return fmt.Errorf("check admin exists: %w", err)
	}
	if exists {
		return shared.ErrInvalidAdminCode
	}
	return nil
}

// Callback exchanges the authorization code, upserts the user, and refreshes
// their guild and role mirror when it has gone stale. setAdmin grants the
// global admin flag, used by the bootstrap flow.
func (s *Service) Callback(ctx context.Context, code string, setAdmin bool) (*users.User, error) {
	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}

	discordUser, err := s.api.CurrentUser(ctx, token)
	if err != nil {
		return nil, err
	}
	discordID, err := strconv.ParseUint(discordUser.ID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("discord user id %q: %w", discordUser.ID, err)
	}

	params := users.UpsertParams{DiscordID: discordID, Name: discordUser.DisplayName()}
	if setAdmin {
		isAdmin := true
		params.IsAdmin = &isAdmin
	}
	user, err := s.users.Upsert(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	if setAdmin {
		s.logger.Info("admin granted through bootstrap code", slog.Uint64("user", user.DiscordID))
	}

	if s.now().Sub(user.LastRoleSyncAt) > roleSyncThreshold {
		if err := s.syncMemberships(ctx, token, user.DiscordID); err != nil {
			// A failed sync degrades permissions, it does not block login.
			s.logger.Warn("membership sync failed", slog.Uint64("user", user.DiscordID), slog.Any("error", err))
		}
	}
	return user, nil
}

// syncMemberships replaces the user's guild and role rows with what Discord
// reports, restricted to guilds this board knows about.
func (s *Service) syncMemberships(ctx context.Context, token *oauth2.Token, userID uint64) error {
	userGuilds, err := s.api.CurrentUserGuilds(ctx, token)
	if err != nil {
		return err
	}
	known, err := s.guilds.ListGuilds(ctx)
	if err != nil {
		return fmt.Errorf("list known guilds: %w", err)
	}
	knownIDs := make(map[uint64]struct{}, len(known))
	for _, g := range known {
		knownIDs[g.ID] = struct{}{}
	}

	var (
		guildIDs []uint64
		roleIDs  []uint64
	)
	for _, pg := range userGuilds {
		guildID, err := strconv.ParseUint(pg.ID, 10, 64)
		if err != nil {
			s.logger.Warn("skipping malformed guild id", slog.String("raw", pg.ID))
			continue
		}
		if _, ok := knownIDs[guildID]; !ok {
			continue
		}
		guildIDs = append(guildIDs, guildID)

		member, err := s.api.GuildMember(ctx, token, pg.ID)
		if err != nil {
			s.logger.Warn("fetch guild member failed", slog.Uint64("guild", guildID), slog.Any("error", err))
			continue
		}
		for _, raw := range member.Roles {
			roleID, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				s.logger.Warn("skipping malformed role id", slog.String("raw", raw))
				continue
			}
			roleIDs = append(roleIDs, roleID)
		}
	}

	if err := s.guilds.ReplaceUserGuilds(ctx, userID, guildIDs); err != nil {
		return fmt.Errorf("replace user guilds: %w", err)
	}
	if err := s.users.TouchGuildSync(ctx, userID, s.now()); err != nil {
		return fmt.Errorf("touch guild sync: %w", err)
	}
	if err := s.guilds.ReplaceUserRoles(ctx, userID, roleIDs); err != nil {
		return fmt.Errorf("replace user roles: %w", err)
	}
	if err := s.users.TouchRoleSync(ctx, userID, s.now()); err != nil {
		return fmt.Errorf("touch role sync: %w", err)
	}
	return nil
}
