package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arklim/village-admin/internal/core/domain"
	"github.com/arklim/village-admin/internal/core/port"
	"github.com/arklim/village-admin/internal/repository"
)

const villageCodeColumns = "id, code, name, color_hex, is_visible, created_at, updated_at"

// VillageCodeRepository implements port.VillageCodeRepository using PostgreSQL.
type VillageCodeRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
	now     func() time.Time
}

// NewVillageCodeRepository wires a PostgreSQL-backed village code repository.
func NewVillageCodeRepository(pool *pgxpool.Pool) *VillageCodeRepository {
	return &VillageCodeRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// NewVillageCodeRepositoryWithExecutor builds a repository over any executor,
// typically a mock in tests.
func NewVillageCodeRepositoryWithExecutor(exec pgExecutor) *VillageCodeRepository {
	return &VillageCodeRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the internal clock for deterministic tests.
func (r *VillageCodeRepository) WithClock(clock func() time.Time) *VillageCodeRepository {
	if clock != nil {
		r.now = clock
	}
	return r
}

// Create inserts a new record and returns the stored row including the
// generated id and timestamps.
func (r *VillageCodeRepository) Create(ctx context.Context, input domain.NewVillageCodeInput) (*domain.VillageCode, error) {
	stmt, args, err := r.builder.Insert("village_codes").
		Columns("code", "name", "color_hex", "is_visible").
		Values(input.Code, input.Name, input.ColorHex, input.IsVisible).
		Suffix("RETURNING " + villageCodeColumns).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert village code sql: %w", err)
	}

	record, err := scanVillageCode(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrConflict
		}
		return nil, fmt.Errorf("insert village code: %w", err)
	}

	return record, nil
}

// GetByID retrieves a record by identifier.
func (r *VillageCodeRepository) GetByID(ctx context.Context, id int64) (*domain.VillageCode, error) {
	stmt, args, err := r.builder.
		Select("id", "code", "name", "color_hex", "is_visible", "created_at", "updated_at").
		From("village_codes").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select village code sql: %w", err)
	}

	record, err := scanVillageCode(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan village code: %w", err)
	}

	return record, nil
}

// List returns records ordered by creation time descending. Hidden records
// are filtered out unless the filter requests them.
func (r *VillageCodeRepository) List(ctx context.Context, filter port.VillageCodeFilter) ([]domain.VillageCode, error) {
	query := r.builder.
		Select("id", "code", "name", "color_hex", "is_visible", "created_at", "updated_at").
		From("village_codes").
		OrderBy("created_at DESC")

	if !filter.IncludeHidden {
		query = query.Where(squirrel.Eq{"is_visible": true})
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list village codes sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query village codes: %w", err)
	}
	defer rows.Close()

	records := make([]domain.VillageCode, 0)
	for rows.Next() {
		var record domain.VillageCode
		if err := rows.Scan(
			&record.ID,
			&record.Code,
			&record.Name,
			&record.ColorHex,
			&record.IsVisible,
			&record.CreatedAt,
			&record.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan village code: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate village codes: %w", err)
	}

	return records, nil
}

// Update applies the provided fields in a single statement and returns the
// updated row. The code column is immutable and never part of the update.
// updated_at is refreshed even when no other field is supplied.
func (r *VillageCodeRepository) Update(ctx context.Context, id int64, update domain.VillageCodeUpdate) (*domain.VillageCode, error) {
	query := r.builder.Update("village_codes").
		Set("updated_at", r.now())

	if update.Name != nil {
		query = query.Set("name", *update.Name)
	}
	if update.ColorHex != nil {
		query = query.Set("color_hex", *update.ColorHex)
	}
	if update.IsVisible != nil {
		query = query.Set("is_visible", *update.IsVisible)
	}

	stmt, args, err := query.
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING " + villageCodeColumns).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update village code sql: %w", err)
	}

	record, err := scanVillageCode(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("update village code: %w", err)
	}

	return record, nil
}

// Delete removes the record and returns the deleted row.
func (r *VillageCodeRepository) Delete(ctx context.Context, id int64) (*domain.VillageCode, error) {
	stmt, args, err := r.builder.Delete("village_codes").
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING " + villageCodeColumns).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build delete village code sql: %w", err)
	}

	record, err := scanVillageCode(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("delete village code: %w", err)
	}

	return record, nil
}

func scanVillageCode(row pgx.Row) (*domain.VillageCode, error) {
	var record domain.VillageCode
	if err := row.Scan(
		&record.ID,
		&record.Code,
		&record.Name,
		&record.ColorHex,
		&record.IsVisible,
		&record.CreatedAt,
		&record.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &record, nil
}

var _ port.VillageCodeRepository = (*VillageCodeRepository)(nil)
