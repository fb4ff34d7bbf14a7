package categories

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetboard/fleetboard/internal/shared"
)

// Repository persists fleet categories and their access grants. Grants live
// in fleet_category_access_roles and are always written inside the same
// transaction as the category row.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const categoryColumns = `id, guild_id, ping_format_id, name, ping_cooldown_seconds, ping_reminder_seconds, max_pre_ping_seconds`

func (r *Repository) Create(ctx context.Context, params CategoryParams) (*Category, error) {
	var created *Category
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO fleet_categories (guild_id, ping_format_id, name, ping_cooldown_seconds, ping_reminder_seconds, max_pre_ping_seconds)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING `+categoryColumns,
			formatID(params.GuildID), params.PingFormatID, params.Name,
			durationSeconds(params.PingCooldown), durationSeconds(params.PingReminder), durationSeconds(params.MaxPrePing),
		)
		cat, err := scanCategory(row)
		if err != nil {
			return fmt.Errorf("insert category: %w", err)
		}
		if err := insertGrants(ctx, tx, cat.ID, params.AccessRoles); err != nil {
			return err
		}
		created = cat
		return nil
	})
	if err != nil {
		return nil, mapConstraint(err)
	}
	return r.GetByID(ctx, created.ID)
}

func (r *Repository) Update(ctx context.Context, id int32, params CategoryParams) (*Category, error) {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE fleet_categories
			SET ping_format_id = $2, name = $3, ping_cooldown_seconds = $4, ping_reminder_seconds = $5, max_pre_ping_seconds = $6
			WHERE id = $1 AND guild_id = $7`,
			id, params.PingFormatID, params.Name,
			durationSeconds(params.PingCooldown), durationSeconds(params.PingReminder), durationSeconds(params.MaxPrePing),
			formatID(params.GuildID),
		)
		if err != nil {
			return fmt.Errorf("update category: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM fleet_category_access_roles WHERE fleet_category_id = $1`, id); err != nil {
			return fmt.Errorf("clear grants: %w", err)
		}
		return insertGrants(ctx, tx, id, params.AccessRoles)
	})
	if err != nil {
		return nil, mapConstraint(err)
	}
	return r.GetByID(ctx, id)
}

func (r *Repository) Delete(ctx context.Context, guildID uint64, id int32) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM fleet_categories WHERE id = $1 AND guild_id = $2`, id, formatID(guildID))
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id int32) (*Category, error) {
	row := r.db.QueryRow(ctx, `SELECT `+categoryColumns+` FROM fleet_categories WHERE id = $1`, id)
	cat, err := scanCategory(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	if err := r.attachGrants(ctx, cat); err != nil {
		return nil, err
	}
	return cat, nil
}

func (r *Repository) ListByGuild(ctx context.Context, guildID uint64) ([]Category, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+categoryColumns+`
		FROM fleet_categories
		WHERE guild_id = $1
		ORDER BY name, id`, formatID(guildID))
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var cats []Category
	for rows.Next() {
		cat, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cats = append(cats, *cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	for i := range cats {
		if err := r.attachGrants(ctx, &cats[i]); err != nil {
			return nil, err
		}
	}
	return cats, nil
}

func (r *Repository) attachGrants(ctx context.Context, cat *Category) error {
	rows, err := r.db.Query(ctx, `
		SELECT ar.role_id, COALESCE(gr.name, ''), COALESCE(gr.color, ''), COALESCE(gr.position, 0),
		       ar.can_view, ar.can_create, ar.can_manage
		FROM fleet_category_access_roles ar
		LEFT JOIN guild_roles gr ON gr.role_id = ar.role_id
		WHERE ar.fleet_category_id = $1
		ORDER BY COALESCE(gr.position, 0) DESC, ar.role_id`, cat.ID)
	if err != nil {
		return fmt.Errorf("load grants: %w", err)
	}
	defer rows.Close()

	cat.AccessRoles = []AccessRole{}
	for rows.Next() {
		var (
			ar  AccessRole
			raw string
		)
		if err := rows.Scan(&raw, &ar.RoleName, &ar.RoleColor, &ar.Position, &ar.CanView, &ar.CanCreate, &ar.CanManage); err != nil {
			return fmt.Errorf("scan grant: %w", err)
		}
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("grant role id %q: %w", raw, err)
		}
		ar.RoleID = id
		cat.AccessRoles = append(cat.AccessRoles, ar)
	}
	return rows.Err()
}

func insertGrants(ctx context.Context, tx pgx.Tx, categoryID int32, grants []GrantParams) error {
	for _, g := range grants {
		_, err := tx.Exec(ctx, `
			INSERT INTO fleet_category_access_roles (fleet_category_id, role_id, can_view, can_create, can_manage)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (fleet_category_id, role_id)
			DO UPDATE SET can_view = EXCLUDED.can_view, can_create = EXCLUDED.can_create, can_manage = EXCLUDED.can_manage`,
			categoryID, formatID(g.RoleID), g.CanView, g.CanCreate, g.CanManage,
		)
		if err != nil {
			return fmt.Errorf("insert grant for role %d: %w", g.RoleID, err)
		}
	}
	return nil
}

// mapConstraint turns unique and foreign key violations into domain errors so
// handlers never leak raw Postgres messages.
func mapConstraint(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return shared.ErrDuplicate
		case "23503":
			return shared.ErrNotFound
		}
	}
	return err
}

func scanCategory(row pgx.Row) (*Category, error) {
	var (
		cat                         Category
		guildRaw                    string
		cooldown, reminder, prePing *int64
	)
	if err := row.Scan(&cat.ID, &guildRaw, &cat.PingFormatID, &cat.Name, &cooldown, &reminder, &prePing); err != nil {
		return nil, err
	}
	guildID, err := strconv.ParseUint(guildRaw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("category guild id %q: %w", guildRaw, err)
	}
	cat.GuildID = guildID
	cat.PingCooldown = secondsDuration(cooldown)
	cat.PingReminder = secondsDuration(reminder)
	cat.MaxPrePing = secondsDuration(prePing)
	return &cat, nil
}

func durationSeconds(d *time.Duration) *int64 {
	if d == nil {
		return nil
	}
	s := int64(d.Seconds())
	return &s
}

func secondsDuration(s *int64) *time.Duration {
	if s == nil {
		return nil
	}
	d := time.Duration(*s) * time.Second
	return &d
}

func formatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}
