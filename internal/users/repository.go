package users

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetboard/fleetboard/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Sync timestamps are NULL until the first sync; coalescing to epoch keeps
// the scan simple and makes a never-synced user read as maximally stale.
const userColumns = `discord_id, name, is_admin,
	COALESCE(last_guild_sync_at, 'epoch'::timestamptz), COALESCE(last_role_sync_at, 'epoch'::timestamptz)`

// FindByDiscordID returns the user or nil when no row exists.
func (r *Repository) FindByDiscordID(ctx context.Context, discordID uint64) (*User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE discord_id = $1`,
		formatID(discordID))
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// Upsert inserts the user or refreshes name (and optionally the admin flag)
// for an existing row.
func (r *Repository) Upsert(ctx context.Context, params UpsertParams) (*User, error) {
	var row pgx.Row
	if params.IsAdmin != nil {
		row = r.pool.QueryRow(ctx, `
			INSERT INTO users (discord_id, name, is_admin)
			VALUES ($1, $2, $3)
			ON CONFLICT (discord_id) DO UPDATE SET name = EXCLUDED.name, is_admin = EXCLUDED.is_admin
			RETURNING `+userColumns,
			formatID(params.DiscordID), params.Name, *params.IsAdmin)
	} else {
		row = r.pool.QueryRow(ctx, `
			INSERT INTO users (discord_id, name, is_admin)
			VALUES ($1, $2, FALSE)
			ON CONFLICT (discord_id) DO UPDATE SET name = EXCLUDED.name
			RETURNING `+userColumns,
			formatID(params.DiscordID), params.Name)
	}
	return scanUser(row)
}

// SetAdmin grants or revokes the global admin flag.
func (r *Repository) SetAdmin(ctx context.Context, discordID uint64, isAdmin bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET is_admin = $2 WHERE discord_id = $1`,
		formatID(discordID), isAdmin)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// List returns a page of users ordered by name.
func (r *Repository) List(ctx context.Context, page, perPage int) ([]User, shared.Pagination, error) {
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, shared.Pagination{}, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY name, discord_id LIMIT $1 OFFSET $2`,
		perPage, (page-1)*perPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	defer rows.Close()

	users, err := scanUsers(rows)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return users, shared.NewPagination(page, perPage, total), nil
}

// ListAdmins returns every user holding the admin flag.
func (r *Repository) ListAdmins(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE is_admin ORDER BY name, discord_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

// AdminExists reports whether any admin account is present. Used by the
// login flow to decide whether the admin bootstrap code is still accepted.
func (r *Repository) AdminExists(ctx context.Context) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE is_admin)`).Scan(&exists)
	return exists, err
}

// TouchRoleSync records a completed role membership sync for the user.
func (r *Repository) TouchRoleSync(ctx context.Context, discordID uint64, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET last_role_sync_at = $2 WHERE discord_id = $1`,
		formatID(discordID), at)
	return err
}

// TouchGuildSync records a completed guild membership sync for the user.
func (r *Repository) TouchGuildSync(ctx context.Context, discordID uint64, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET last_guild_sync_at = $2 WHERE discord_id = $1`,
		formatID(discordID), at)
	return err
}

func scanUser(row pgx.Row) (*User, error) {
	var user User
	var rawID string
	if err := row.Scan(&rawID, &user.Name, &user.IsAdmin, &user.LastGuildSyncAt, &user.LastRoleSyncAt); err != nil {
		return nil, err
	}
	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil {
		return nil, err
	}
	user.DiscordID = id
	return &user, nil
}

func scanUsers(rows pgx.Rows) ([]User, error) {
	var users []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

func formatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}
