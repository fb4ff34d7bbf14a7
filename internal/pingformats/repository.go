package pingformats

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetboard/fleetboard/internal/platform/db"
	"github.com/fleetboard/fleetboard/internal/shared"
)

// Repository persists ping formats and their fields. Fields are written in
// the same transaction as the format row.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, params FormatParams) (*PingFormat, error) {
	var id int32
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO ping_formats (guild_id, name) VALUES ($1, $2) RETURNING id`,
			formatID(params.GuildID), params.Name).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert ping format: %w", err)
		}
		return insertFields(ctx, tx, id, params.Fields)
	})
	if err != nil {
		return nil, mapConstraint(err)
	}
	return r.GetByID(ctx, params.GuildID, id)
}

func (r *Repository) Update(ctx context.Context, id int32, params FormatParams) (*PingFormat, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE ping_formats SET name = $2 WHERE id = $1 AND guild_id = $3`,
			id, params.Name, formatID(params.GuildID))
		if err != nil {
			return fmt.Errorf("update ping format: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM ping_format_fields WHERE ping_format_id = $1`, id); err != nil {
			return fmt.Errorf("clear fields: %w", err)
		}
		return insertFields(ctx, tx, id, params.Fields)
	})
	if err != nil {
		return nil, mapConstraint(err)
	}
	return r.GetByID(ctx, params.GuildID, id)
}

// Delete refuses to remove a format that fleet categories still reference.
// The usage check runs in the same transaction as the delete so a category
// cannot slip in between them.
func (r *Repository) Delete(ctx context.Context, guildID uint64, id int32) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var inUse int
		err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM fleet_categories WHERE ping_format_id = $1`, id).Scan(&inUse)
		if err != nil {
			return fmt.Errorf("check format usage: %w", err)
		}
		if inUse > 0 {
			return ErrFormatInUse
		}

		tag, err := tx.Exec(ctx,
			`DELETE FROM ping_formats WHERE id = $1 AND guild_id = $2`,
			id, formatID(guildID))
		if err != nil {
			return fmt.Errorf("delete ping format: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

func (r *Repository) GetByID(ctx context.Context, guildID uint64, id int32) (*PingFormat, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, guild_id, name FROM ping_formats WHERE id = $1 AND guild_id = $2`,
		id, formatID(guildID))
	format, err := scanFormat(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ping format: %w", err)
	}
	if err := r.attachDetails(ctx, format); err != nil {
		return nil, err
	}
	return format, nil
}

// ListByGuild returns a page of formats ordered by name, each with its
// fields and the names of the categories using it.
func (r *Repository) ListByGuild(ctx context.Context, guildID uint64, page, perPage int) ([]PingFormat, shared.Pagination, error) {
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}

	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM ping_formats WHERE guild_id = $1`,
		formatID(guildID)).Scan(&total); err != nil {
		return nil, shared.Pagination{}, fmt.Errorf("count ping formats: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, guild_id, name
		FROM ping_formats
		WHERE guild_id = $1
		ORDER BY name, id
		LIMIT $2 OFFSET $3`,
		formatID(guildID), perPage, (page-1)*perPage)
	if err != nil {
		return nil, shared.Pagination{}, fmt.Errorf("list ping formats: %w", err)
	}
	defer rows.Close()

	var formats []PingFormat
	for rows.Next() {
		format, err := scanFormat(rows)
		if err != nil {
			return nil, shared.Pagination{}, fmt.Errorf("scan ping format: %w", err)
		}
		formats = append(formats, *format)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Pagination{}, fmt.Errorf("list ping formats: %w", err)
	}
	for i := range formats {
		if err := r.attachDetails(ctx, &formats[i]); err != nil {
			return nil, shared.Pagination{}, err
		}
	}
	return formats, shared.NewPagination(page, perPage, total), nil
}

// FieldsByFormat returns the fields of one format ordered by priority. Fleet
// creation forms use this through the category details endpoint.
func (r *Repository) FieldsByFormat(ctx context.Context, formatID int32) ([]Field, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, ping_format_id, name, priority, field_type, default_field_values
		FROM ping_format_fields
		WHERE ping_format_id = $1
		ORDER BY priority, id`, formatID)
	if err != nil {
		return nil, fmt.Errorf("list format fields: %w", err)
	}
	defer rows.Close()

	fields := []Field{}
	for rows.Next() {
		var (
			f       Field
			rawType string
		)
		if err := rows.Scan(&f.ID, &f.PingFormatID, &f.Name, &f.Priority, &rawType, &f.DefaultValues); err != nil {
			return nil, fmt.Errorf("scan format field: %w", err)
		}
		f.Type = FieldType(rawType)
		fields = append(fields, f)
	}
	return fields, rows.Err()
}

func (r *Repository) attachDetails(ctx context.Context, format *PingFormat) error {
	fields, err := r.FieldsByFormat(ctx, format.ID)
	if err != nil {
		return err
	}
	format.Fields = fields

	rows, err := r.pool.Query(ctx,
		`SELECT name FROM fleet_categories WHERE ping_format_id = $1 ORDER BY name`, format.ID)
	if err != nil {
		return fmt.Errorf("list format categories: %w", err)
	}
	defer rows.Close()

	format.CategoryNames = []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("scan category name: %w", err)
		}
		format.CategoryNames = append(format.CategoryNames, name)
	}
	return rows.Err()
}

func insertFields(ctx context.Context, tx pgx.Tx, formatID int32, fields []FieldParams) error {
	for _, f := range fields {
		_, err := tx.Exec(ctx, `
			INSERT INTO ping_format_fields (ping_format_id, name, priority, field_type, default_field_values)
			VALUES ($1, $2, $3, $4, $5)`,
			formatID, f.Name, f.Priority, string(f.Type), f.DefaultValues)
		if err != nil {
			return fmt.Errorf("insert field %q: %w", f.Name, err)
		}
	}
	return nil
}

// ErrFormatInUse is returned when deleting a format that categories reference.
var ErrFormatInUse = errors.New("pingformats: format is referenced by fleet categories")

func mapConstraint(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return shared.ErrDuplicate
	}
	return err
}

func scanFormat(row pgx.Row) (*PingFormat, error) {
	var (
		format   PingFormat
		guildRaw string
	)
	if err := row.Scan(&format.ID, &guildRaw, &format.Name); err != nil {
		return nil, err
	}
	guildID, err := strconv.ParseUint(guildRaw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("ping format guild id %q: %w", guildRaw, err)
	}
	format.GuildID = guildID
	return &format, nil
}

func formatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}
