package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

const discordAPIBase = "https://discord.com/api"

// DiscordUser is the slice of the /users/@me payload we care about.
type DiscordUser struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
}

// DisplayName prefers the global display name over the login name.
func (u DiscordUser) DisplayName() string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

// PartialGuild is one entry of /users/@me/guilds.
type PartialGuild struct {
	ID string `json:"id"`
}

// GuildMember is the slice of /users/@me/guilds/{id}/member we care about.
type GuildMember struct {
	Roles []string `json:"roles"`
}

// DiscordAPI fetches user data from Discord on behalf of an OAuth token.
type DiscordAPI interface {
	CurrentUser(ctx context.Context, token *oauth2.Token) (*DiscordUser, error)
	CurrentUserGuilds(ctx context.Context, token *oauth2.Token) ([]PartialGuild, error)
	GuildMember(ctx context.Context, token *oauth2.Token, guildID string) (*GuildMember, error)
}

type discordAPI struct {
	base   string
	client *http.Client
}

// NewDiscordAPI returns the production Discord API client.
func NewDiscordAPI() DiscordAPI {
	return &discordAPI{
		base:   discordAPIBase,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (a *discordAPI) CurrentUser(ctx context.Context, token *oauth2.Token) (*DiscordUser, error) {
	var user DiscordUser
	if err := a.get(ctx, token, "/users/@me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (a *discordAPI) CurrentUserGuilds(ctx context.Context, token *oauth2.Token) ([]PartialGuild, error) {
	var guilds []PartialGuild
	if err := a.get(ctx, token, "/users/@me/guilds", &guilds); err != nil {
		return nil, err
	}
	return guilds, nil
}

func (a *discordAPI) GuildMember(ctx context.Context, token *oauth2.Token, guildID string) (*GuildMember, error) {
	var member GuildMember
	if err := a.get(ctx, token, "/users/@me/guilds/"+guildID+"/member", &member); err != nil {
		return nil, err
	}
	return &member, nil
}

func (a *discordAPI) get(ctx context.Context, token *oauth2.Token, path string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.base+path, nil)
	if err != nil {
		return fmt.Errorf("build discord request: %w", err)
	}
	token.SetAuthHeader(req)

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("discord request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("discord request %s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode discord response %s: %w", path, err)
	}
	return nil
}
