package authz

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Session exposes the opaque user identifier stored by the login flow. An
// empty string means the request is anonymous.
type Session interface {
	User() string
}

// Store provides the read-only lookups the engine needs. Implementations
// must return infrastructure failures as plain errors; the engine never
// wraps them into the auth error taxonomy.
type Store interface {
	// FindUser returns nil (not an error) when no user with the id exists.
	FindUser(ctx context.Context, discordID uint64) (*User, error)
	// RoleIDs returns the Discord role ids the user holds in the guild.
	// An empty result is valid.
	RoleIDs(ctx context.Context, userID, guildID uint64) ([]uint64, error)
	// AllRoleIDs returns the role ids the user holds across every guild.
	AllRoleIDs(ctx context.Context, userID uint64) ([]uint64, error)
	// CategoryGrants returns the grants on the category for the given roles.
	CategoryGrants(ctx context.Context, categoryID int32, roleIDs []uint64) ([]Grant, error)
	// GrantsForRoles returns every grant attached to any of the given roles.
	GrantsForRoles(ctx context.Context, roleIDs []uint64) ([]Grant, error)
	// CategoriesByGuild returns all categories in the guild.
	CategoriesByGuild(ctx context.Context, guildID uint64) ([]CategoryRef, error)
	// CategoriesByIDs returns the guild's categories restricted to ids.
	CategoriesByIDs(ctx context.Context, guildID uint64, ids []int32) ([]CategoryRef, error)
	// AllCategories returns every category across all guilds.
	AllCategories(ctx context.Context) ([]CategoryRef, error)
}

// DenialObserver receives a signal for every denied permission check. The
// metrics registry implements it.
type DenialObserver interface {
	ObserveDenial(permission string)
}

// Guard is the public entry point for permission checks.
type Guard struct {
	store    Store
	observer DenialObserver
}

// NewGuard constructs a Guard backed by the given store.
func NewGuard(store Store) *Guard {
	return &Guard{store: store}
}

// SetDenialObserver installs an observer notified on every denial.
func (g *Guard) SetDenialObserver(obs DenialObserver) {
	g.observer = obs
}

func (g *Guard) observeDenial(perm Permission) {
	if g.observer != nil {
		g.observer.ObserveDenial(perm.String())
	}
}

// Require resolves the authenticated user and verifies every permission in
// order. An empty permission list means login-required only. Admin users
// satisfy all permissions unconditionally; otherwise the first failing
// permission determines the denial. On success the full user record is
// returned so callers can read the admin flag without a second lookup.
func (g *Guard) Require(ctx context.Context, sess Session, permissions ...Permission) (*User, error) {
	user, err := g.resolveUser(ctx, sess)
	if err != nil {
		return nil, err
	}

	// Global override: the admin flag satisfies every permission, category
	// ones included, without any grant lookup.
	if user.IsAdmin {
		return user, nil
	}

	// Role sets are cached per guild for the duration of this call so a
	// permission list touching several categories in one guild does a
	// single membership query.
	roleCache := make(map[uint64][]uint64, 1)

	for _, perm := range permissions {
		if perm.kind == permAdmin {
			g.observeDenial(perm)
			return nil, &AccessDeniedError{
				UserID: user.DiscordID,
				Reason: "user attempted to access an admin-gated route without admin privileges",
			}
		}

		ok, err := g.categoryAllowed(ctx, user.DiscordID, perm, roleCache)
		if err != nil {
			return nil, err
		}
		if !ok {
			g.observeDenial(perm)
			return nil, &AccessDeniedError{
				UserID: user.DiscordID,
				Reason: fmt.Sprintf("user does not have %s access to category %d in guild %d",
					perm.verb(), perm.CategoryID, perm.GuildID),
			}
		}
	}

	return user, nil
}

// Allowed reports whether an already-resolved user holds a single permission.
// Used where a capability check is one branch of a wider rule, such as
// "owner or category manager".
func (g *Guard) Allowed(ctx context.Context, user *User, perm Permission) (bool, error) {
	if user.IsAdmin {
		return true, nil
	}
	if perm.kind == permAdmin {
		return false, nil
	}
	return g.categoryAllowed(ctx, user.DiscordID, perm, make(map[uint64][]uint64, 1))
}

func (g *Guard) categoryAllowed(ctx context.Context, userID uint64, perm Permission, roleCache map[uint64][]uint64) (bool, error) {
	roleIDs, ok := roleCache[perm.GuildID]
	if !ok {
		var err error
		roleIDs, err = g.store.RoleIDs(ctx, userID, perm.GuildID)
		if err != nil {
			return false, fmt.Errorf("authz: role membership for user %d in guild %d: %w", userID, perm.GuildID, err)
		}
		roleCache[perm.GuildID] = roleIDs
	}
	if len(roleIDs) == 0 {
		return false, nil
	}

	grants, err := g.store.CategoryGrants(ctx, perm.CategoryID, roleIDs)
	if err != nil {
		return false, fmt.Errorf("authz: grants for category %d: %w", perm.CategoryID, err)
	}
	return perm.satisfiedBy(EffectiveCapability(grants, roleSet(roleIDs))), nil
}

// resolveUser turns the session-stored identifier into a full user record.
func (g *Guard) resolveUser(ctx context.Context, sess Session) (*User, error) {
	if sess == nil {
		return nil, ErrUserNotInSession
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return nil, ErrUserNotInSession
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, &InvalidIdentifierError{Raw: raw}
	}
	user, err := g.store.FindUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("authz: find user %d: %w", id, err)
	}
	if user == nil {
		return nil, &UserNotInDatabaseError{UserID: id}
	}
	return user, nil
}
