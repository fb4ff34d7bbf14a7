package fleets

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetboard/fleetboard/internal/shared"
)

// Repository provides PostgreSQL backed persistence for fleets.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const fleetColumns = `
	f.id, f.category_id, c.name, c.guild_id, f.name, f.commander_id, COALESCE(u.name, ''),
	f.fleet_time, f.description, f.field_values, f.hidden, f.disable_reminder, f.created_at,
	c.ping_reminder_seconds`

const fleetJoins = `
	FROM fleets f
	JOIN fleet_categories c ON c.id = f.category_id
	LEFT JOIN users u ON u.discord_id = f.commander_id`

func (r *Repository) Create(ctx context.Context, params FleetParams) (*Fleet, error) {
	var id int32
	err := r.pool.QueryRow(ctx, `
		INSERT INTO fleets (category_id, name, commander_id, fleet_time, description, field_values, hidden, disable_reminder)
		SELECT c.id, $2, $3, $4, $5, $6, $7, $8
		FROM fleet_categories c
		WHERE c.id = $1 AND c.guild_id = $9
		RETURNING id`,
		params.CategoryID, params.Name, formatID(params.CommanderID), params.FleetTime,
		params.Description, params.FieldValues, params.Hidden, params.DisableReminder,
		formatID(params.GuildID),
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		// The target category does not exist in this guild.
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("insert fleet: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *Repository) Update(ctx context.Context, id int32, params FleetParams) (*Fleet, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE fleets
		SET category_id = $2, name = $3, commander_id = $4, fleet_time = $5,
		    description = $6, field_values = $7, hidden = $8, disable_reminder = $9
		WHERE id = $1
		  AND EXISTS (SELECT 1 FROM fleet_categories c WHERE c.id = $2 AND c.guild_id = $10)`,
		id, params.CategoryID, params.Name, formatID(params.CommanderID), params.FleetTime,
		params.Description, params.FieldValues, params.Hidden, params.DisableReminder,
		formatID(params.GuildID),
	)
	if err != nil {
		return nil, fmt.Errorf("update fleet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, shared.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *Repository) Delete(ctx context.Context, guildID uint64, id int32) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM fleets f
		USING fleet_categories c
		WHERE f.id = $1 AND c.id = f.category_id AND c.guild_id = $2`,
		id, formatID(guildID))
	if err != nil {
		return fmt.Errorf("delete fleet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id int32) (*Fleet, error) {
	row := r.pool.QueryRow(ctx, `SELECT`+fleetColumns+fleetJoins+` WHERE f.id = $1`, id)
	fleet, err := scanFleet(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get fleet: %w", err)
	}
	return fleet, nil
}

// ListByGuild returns one page of upcoming fleets. Fleets older than an hour
// drop off the board. Non-admin callers only see fleets in categories they can
// view, and hidden fleets stay invisible until the reminder window opens
// unless the caller can create or manage the category.
func (r *Repository) ListByGuild(ctx context.Context, filter ListFilter) ([]Fleet, shared.Pagination, error) {
	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 10
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}

	where := `WHERE c.guild_id = $1 AND f.fleet_time > now() - interval '1 hour'`
	args := []any{formatID(filter.GuildID)}
	if !filter.Admin {
		args = append(args, filter.ViewableCategoryIDs)
		where += fmt.Sprintf(` AND f.category_id = ANY($%d)`, len(args))
		args = append(args, filter.ManagedCategoryIDs)
		where += fmt.Sprintf(`
			AND (NOT f.hidden
				OR f.category_id = ANY($%d)
				OR (c.ping_reminder_seconds IS NOT NULL AND f.fleet_time - make_interval(secs => c.ping_reminder_seconds) <= now())
				OR (c.ping_reminder_seconds IS NULL AND f.fleet_time <= now()))`, len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+fleetJoins+` `+where, args...).Scan(&total); err != nil {
		return nil, shared.Pagination{}, fmt.Errorf("count fleets: %w", err)
	}

	args = append(args, perPage, (page-1)*perPage)
	query := `SELECT` + fleetColumns + fleetJoins + ` ` + where +
		fmt.Sprintf(` ORDER BY f.fleet_time, f.id LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, shared.Pagination{}, fmt.Errorf("list fleets: %w", err)
	}
	defer rows.Close()

	var fleets []Fleet
	for rows.Next() {
		fleet, err := scanFleet(rows)
		if err != nil {
			return nil, shared.Pagination{}, fmt.Errorf("scan fleet: %w", err)
		}
		fleets = append(fleets, *fleet)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Pagination{}, fmt.Errorf("list fleets: %w", err)
	}
	return fleets, shared.NewPagination(page, perPage, total), nil
}

// DeleteOlderThan removes fleets whose start time passed before the cutoff.
// The retention job calls this.
func (r *Repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM fleets WHERE fleet_time < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete stale fleets: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanFleet(row pgx.Row) (*Fleet, error) {
	var (
		fleet                  Fleet
		guildRaw, commanderRaw string
		reminderSecs           *int64
	)
	err := row.Scan(
		&fleet.ID, &fleet.CategoryID, &fleet.CategoryName, &guildRaw, &fleet.Name,
		&commanderRaw, &fleet.CommanderName, &fleet.FleetTime, &fleet.Description,
		&fleet.FieldValues, &fleet.Hidden, &fleet.DisableReminder, &fleet.CreatedAt,
		&reminderSecs,
	)
	if err != nil {
		return nil, err
	}
	guildID, err := strconv.ParseUint(guildRaw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("fleet guild id %q: %w", guildRaw, err)
	}
	fleet.GuildID = guildID
	commanderID, err := strconv.ParseUint(commanderRaw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("fleet commander id %q: %w", commanderRaw, err)
	}
	fleet.CommanderID = commanderID
	if reminderSecs != nil {
		d := time.Duration(*reminderSecs) * time.Second
		fleet.PingReminder = &d
	}
	return &fleet, nil
}

func formatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}
