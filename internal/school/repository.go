package school

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines methods for accessing school data.
type Repository interface {
	Create(ctx context.Context, s *School) error
	GetByID(ctx context.Context, id string) (*School, error)
	List(ctx context.Context, filter Filter) ([]*School, int, error)
	Update(ctx context.Context, s *School) error
	ActiveIDs(ctx context.Context) ([]string, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

// NewPgxRepository creates a new school repository.
func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

func (r *pgxRepository) Create(ctx context.Context, s *School) error {
	query, args, err := psql.Insert("public.schools").
		Columns("name", "timezone", "is_active").
		Values(s.Name, s.Timezone, s.IsActive).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create school query failed: %w", err)
	}

	return r.pool.QueryRow(ctx, query, args...).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*School, error) {
	query, args, err := psql.Select("id", "name", "timezone", "is_active", "created_at", "updated_at").
		From("public.schools").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get school query failed: %w", err)
	}

	var s School
	err = r.pool.QueryRow(ctx, query, args...).
		Scan(&s.ID, &s.Name, &s.Timezone, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get school failed: %w", err)
	}
	return &s, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*School, int, error) {
	queryBuilder := psql.Select("id", "name", "timezone", "is_active", "created_at", "updated_at", "count(*) OVER() AS total_count").
		From("public.schools")

	if filter.IsActive != nil {
		queryBuilder = queryBuilder.Where(squirrel.Eq{"is_active": *filter.IsActive})
	}

	orderDir := "ASC"
	if filter.SortOrder == "DESC" {
		orderDir = "DESC"
	}
	queryBuilder = queryBuilder.OrderBy("name "+orderDir, "id")

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize
	queryBuilder = queryBuilder.Limit(uint64(filter.PageSize)).Offset(uint64(offset))

	sql, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list schools query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list schools failed: %w", err)
	}
	defer rows.Close()

	var (
		schools []*School
		total   int
	)
	for rows.Next() {
		var s School
		if err := rows.Scan(&s.ID, &s.Name, &s.Timezone, &s.IsActive, &s.CreatedAt, &s.UpdatedAt, &total); err != nil {
			return nil, 0, fmt.Errorf("scan school failed: %w", err)
		}
		schools = append(schools, &s)
	}
	return schools, total, rows.Err()
}

func (r *pgxRepository) Update(ctx context.Context, s *School) error {
	query, args, err := psql.Update("public.schools").
		Set("name", s.Name).
		Set("timezone", s.Timezone).
		Set("is_active", s.IsActive).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": s.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update school query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("update school failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) ActiveIDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, "SELECT id FROM public.schools WHERE is_active ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list active schools failed: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}
