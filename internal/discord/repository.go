package discord

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence for Discord read models.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FindGuild returns the guild or nil when unknown.
func (r *Repository) FindGuild(ctx context.Context, guildID uint64) (*Guild, error) {
	var g Guild
	var rawID string
	err := r.pool.QueryRow(ctx,
		`SELECT guild_id, name, needs_sync, COALESCE(last_sync_at, 'epoch'::timestamptz) FROM guilds WHERE guild_id = $1`,
		formatID(guildID)).Scan(&rawID, &g.Name, &g.NeedsSync, &g.LastSyncAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	g.ID, err = strconv.ParseUint(rawID, 10, 64)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// ListGuilds returns every known guild ordered by name.
func (r *Repository) ListGuilds(ctx context.Context) ([]Guild, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT guild_id, name, needs_sync, COALESCE(last_sync_at, 'epoch'::timestamptz) FROM guilds ORDER BY name, guild_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanGuilds(rows)
}

// GuildsForUser returns the guilds the user is a member of, ordered by name.
func (r *Repository) GuildsForUser(ctx context.Context, userID uint64) ([]Guild, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT g.guild_id, g.name, g.needs_sync, COALESCE(g.last_sync_at, 'epoch'::timestamptz)
		FROM guilds g
		JOIN user_guilds ug ON ug.guild_id = g.guild_id
		WHERE ug.user_id = $1
		ORDER BY g.name, g.guild_id`,
		formatID(userID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanGuilds(rows)
}

// UpsertGuild inserts or renames a guild.
func (r *Repository) UpsertGuild(ctx context.Context, guildID uint64, name string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO guilds (guild_id, name, needs_sync, last_sync_at)
		VALUES ($1, $2, TRUE, NOW())
		ON CONFLICT (guild_id) DO UPDATE SET name = EXCLUDED.name`,
		formatID(guildID), name)
	return err
}

// MarkGuildSynced clears the needs_sync flag and stamps the sync time.
func (r *Repository) MarkGuildSynced(ctx context.Context, guildID uint64, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE guilds SET needs_sync = FALSE, last_sync_at = $2 WHERE guild_id = $1`,
		formatID(guildID), at)
	return err
}

// RolesByGuild returns the guild's roles ordered by position.
func (r *Repository) RolesByGuild(ctx context.Context, guildID uint64) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT role_id, guild_id, name, color, position
		FROM guild_roles WHERE guild_id = $1
		ORDER BY position DESC, role_id`,
		formatID(guildID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var role Role
		var rawID, rawGuild string
		if err := rows.Scan(&rawID, &rawGuild, &role.Name, &role.Color, &role.Position); err != nil {
			return nil, err
		}
		if role.ID, err = strconv.ParseUint(rawID, 10, 64); err != nil {
			return nil, err
		}
		if role.GuildID, err = strconv.ParseUint(rawGuild, 10, 64); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// ChannelsByGuild returns the guild's channels ordered by position.
func (r *Repository) ChannelsByGuild(ctx context.Context, guildID uint64) ([]Channel, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT channel_id, guild_id, name, position
		FROM guild_channels WHERE guild_id = $1
		ORDER BY position, channel_id`,
		formatID(guildID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []Channel
	for rows.Next() {
		var ch Channel
		var rawID, rawGuild string
		if err := rows.Scan(&rawID, &rawGuild, &ch.Name, &ch.Position); err != nil {
			return nil, err
		}
		if ch.ID, err = strconv.ParseUint(rawID, 10, 64); err != nil {
			return nil, err
		}
		if ch.GuildID, err = strconv.ParseUint(rawGuild, 10, 64); err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

// ReplaceGuildRoles replaces the guild's role set wholesale, the way the
// sync feed delivers it. Grants referencing removed roles cascade away.
func (r *Repository) ReplaceGuildRoles(ctx context.Context, guildID uint64, roles []Role) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM guild_roles WHERE guild_id = $1`, formatID(guildID)); err != nil {
			return err
		}
		for _, role := range roles {
			if _, err := tx.Exec(ctx, `
				INSERT INTO guild_roles (role_id, guild_id, name, color, position)
				VALUES ($1, $2, $3, $4, $5)`,
				formatID(role.ID), formatID(guildID), role.Name, role.Color, role.Position); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplaceUserGuilds replaces the user's guild memberships wholesale.
func (r *Repository) ReplaceUserGuilds(ctx context.Context, userID uint64, guildIDs []uint64) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM user_guilds WHERE user_id = $1`, formatID(userID)); err != nil {
			return err
		}
		for _, guildID := range guildIDs {
			if _, err := tx.Exec(ctx, `
				INSERT INTO user_guilds (user_id, guild_id)
				VALUES ($1, $2) ON CONFLICT DO NOTHING`,
				formatID(userID), formatID(guildID)); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplaceUserRoles replaces the user's role memberships wholesale. The
// unique (user_id, role_id) pair plus the delete-then-insert keeps at most
// one membership row per pair.
func (r *Repository) ReplaceUserRoles(ctx context.Context, userID uint64, roleIDs []uint64) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM user_guild_roles WHERE user_id = $1`, formatID(userID)); err != nil {
			return err
		}
		for _, roleID := range roleIDs {
			if _, err := tx.Exec(ctx, `
				INSERT INTO user_guild_roles (user_id, role_id)
				VALUES ($1, $2) ON CONFLICT DO NOTHING`,
				formatID(userID), formatID(roleID)); err != nil {
				return err
			}
		}
		return nil
	})
}

func scanGuilds(rows pgx.Rows) ([]Guild, error) {
	var guilds []Guild
	for rows.Next() {
		var g Guild
		var rawID string
		if err := rows.Scan(&rawID, &g.Name, &g.NeedsSync, &g.LastSyncAt); err != nil {
			return nil, err
		}
		id, err := strconv.ParseUint(rawID, 10, 64)
		if err != nil {
			return nil, err
		}
		g.ID = id
		guilds = append(guilds, g)
	}
	return guilds, rows.Err()
}

func formatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}
