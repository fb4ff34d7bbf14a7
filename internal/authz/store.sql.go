package authz

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SQLStore implements Store against PostgreSQL. Discord snowflakes are
// stored as text; parsing happens at this boundary.
type SQLStore struct {
	pool *pgxpool.Pool
}

// NewSQLStore constructs a SQLStore.
func NewSQLStore(pool *pgxpool.Pool) *SQLStore {
	return &SQLStore{pool: pool}
}

func (s *SQLStore) FindUser(ctx context.Context, discordID uint64) (*User, error) {
	var user User
	var rawID string
	err := s.pool.QueryRow(ctx,
		`SELECT discord_id, name, is_admin FROM users WHERE discord_id = $1`,
		strconv.FormatUint(discordID, 10),
	).Scan(&rawID, &user.Name, &user.IsAdmin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	user.DiscordID, err = strconv.ParseUint(rawID, 10, 64)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *SQLStore) RoleIDs(ctx context.Context, userID, guildID uint64) ([]uint64, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT ugr.role_id
		FROM user_guild_roles ugr
		JOIN guild_roles gr ON gr.role_id = ugr.role_id
		WHERE ugr.user_id = $1 AND gr.guild_id = $2`,
		strconv.FormatUint(userID, 10), strconv.FormatUint(guildID, 10))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSnowflakes(rows)
}

func (s *SQLStore) AllRoleIDs(ctx context.Context, userID uint64) ([]uint64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT role_id FROM user_guild_roles WHERE user_id = $1`,
		strconv.FormatUint(userID, 10))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSnowflakes(rows)
}

func (s *SQLStore) CategoryGrants(ctx context.Context, categoryID int32, roleIDs []uint64) ([]Grant, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT fleet_category_id, role_id, can_view, can_create, can_manage
		FROM fleet_category_access_roles
		WHERE fleet_category_id = $1 AND role_id = ANY($2)`,
		categoryID, formatSnowflakes(roleIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanGrants(rows)
}

func (s *SQLStore) GrantsForRoles(ctx context.Context, roleIDs []uint64) ([]Grant, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT fleet_category_id, role_id, can_view, can_create, can_manage
		FROM fleet_category_access_roles
		WHERE role_id = ANY($1)`,
		formatSnowflakes(roleIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanGrants(rows)
}

func (s *SQLStore) CategoriesByGuild(ctx context.Context, guildID uint64) ([]CategoryRef, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, guild_id, name FROM fleet_categories WHERE guild_id = $1`,
		strconv.FormatUint(guildID, 10))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCategoryRefs(rows)
}

func (s *SQLStore) CategoriesByIDs(ctx context.Context, guildID uint64, ids []int32) ([]CategoryRef, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, guild_id, name FROM fleet_categories WHERE guild_id = $1 AND id = ANY($2)`,
		strconv.FormatUint(guildID, 10), ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCategoryRefs(rows)
}

func (s *SQLStore) AllCategories(ctx context.Context) ([]CategoryRef, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, guild_id, name FROM fleet_categories`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCategoryRefs(rows)
}

func scanSnowflakes(rows pgx.Rows) ([]uint64, error) {
	var ids []uint64
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanGrants(rows pgx.Rows) ([]Grant, error) {
	var grants []Grant
	for rows.Next() {
		var g Grant
		var rawRole string
		if err := rows.Scan(&g.CategoryID, &rawRole, &g.View, &g.Create, &g.Manage); err != nil {
			return nil, err
		}
		roleID, err := strconv.ParseUint(rawRole, 10, 64)
		if err != nil {
			return nil, err
		}
		g.RoleID = roleID
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

func scanCategoryRefs(rows pgx.Rows) ([]CategoryRef, error) {
	var cats []CategoryRef
	for rows.Next() {
		var c CategoryRef
		var rawGuild string
		if err := rows.Scan(&c.ID, &rawGuild, &c.Name); err != nil {
			return nil, err
		}
		guildID, err := strconv.ParseUint(rawGuild, 10, 64)
		if err != nil {
			return nil, err
		}
		c.GuildID = guildID
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func formatSnowflakes(ids []uint64) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = strconv.FormatUint(id, 10)
	}
	return out
}
