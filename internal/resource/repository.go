package resource

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Create(ctx context.Context, res *Resource) error
	GetByID(ctx context.Context, id string) (*Resource, error)
	List(ctx context.Context, filter Filter) ([]*Resource, int, error)
	ListBySchool(ctx context.Context, schoolID string) ([]*Resource, error)
	Update(ctx context.Context, res *Resource) error
	SetWindows(ctx context.Context, id string, windows []Window) error
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var resourceColumns = []string{"id", "school_id", "kind", "name", "categories", "is_active", "created_at", "updated_at"}

func scanResource(row pgx.Row, extra ...any) (*Resource, error) {
	var res Resource
	dest := []any{&res.ID, &res.SchoolID, &res.Kind, &res.Name, &res.Categories, &res.IsActive, &res.CreatedAt, &res.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *pgxRepository) Create(ctx context.Context, res *Resource) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin create resource tx failed: %w", err)
	}
	defer tx.Rollback(ctx)

	query, args, err := psql.Insert("public.resources").
		Columns("school_id", "kind", "name", "categories", "is_active").
		Values(res.SchoolID, res.Kind, res.Name, res.Categories, res.IsActive).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create resource query failed: %w", err)
	}
	if err := tx.QueryRow(ctx, query, args...).Scan(&res.ID, &res.CreatedAt, &res.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return ErrInvalidSchool
		}
		return fmt.Errorf("create resource failed: %w", err)
	}

	if err := replaceWindows(ctx, tx, res.ID, res.Windows); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Resource, error) {
	query, args, err := psql.Select(resourceColumns...).
		From("public.resources").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get resource query failed: %w", err)
	}

	res, err := scanResource(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get resource failed: %w", err)
	}

	if err := r.attachWindows(ctx, []*Resource{res}); err != nil {
		return nil, err
	}
	return res, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Resource, int, error) {
	query := psql.Select(append(resourceColumns, "count(*) OVER() AS total_count")...).
		From("public.resources").
		Where(squirrel.Eq{"school_id": filter.SchoolID})

	if filter.Kind != "" {
		query = query.Where(squirrel.Eq{"kind": filter.Kind})
	}
	if filter.Category != "" {
		query = query.Where(squirrel.Expr("? = ANY(categories)", filter.Category))
	}
	if filter.IsActive != nil {
		query = query.Where(squirrel.Eq{"is_active": *filter.IsActive})
	}

	orderDir := "ASC"
	if filter.SortOrder == "DESC" {
		orderDir = "DESC"
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize

	query = query.OrderBy("name "+orderDir, "id").
		Limit(uint64(filter.PageSize)).
		Offset(uint64(offset))

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list resources query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list resources failed: %w", err)
	}
	defer rows.Close()

	var (
		resources []*Resource
		total     int
	)
	for rows.Next() {
		res, err := scanResource(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan resource failed: %w", err)
		}
		resources = append(resources, res)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := r.attachWindows(ctx, resources); err != nil {
		return nil, 0, err
	}
	return resources, total, nil
}

func (r *pgxRepository) ListBySchool(ctx context.Context, schoolID string) ([]*Resource, error) {
	query, args, err := psql.Select(resourceColumns...).
		From("public.resources").
		Where(squirrel.Eq{"school_id": schoolID}).
		OrderBy("name", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list school resources query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list school resources failed: %w", err)
	}
	defer rows.Close()

	var resources []*Resource
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan resource failed: %w", err)
		}
		resources = append(resources, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachWindows(ctx, resources); err != nil {
		return nil, err
	}
	return resources, nil
}

func (r *pgxRepository) Update(ctx context.Context, res *Resource) error {
	query, args, err := psql.Update("public.resources").
		Set("name", res.Name).
		Set("categories", res.Categories).
		Set("is_active", res.IsActive).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": res.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update resource query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&res.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("update resource failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) SetWindows(ctx context.Context, id string, windows []Window) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin set windows tx failed: %w", err)
	}
	defer tx.Rollback(ctx)

	ct, err := tx.Exec(ctx, "UPDATE public.resources SET updated_at = now() WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("touch resource failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}

	if err := replaceWindows(ctx, tx, id, windows); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func replaceWindows(ctx context.Context, tx pgx.Tx, resourceID string, windows []Window) error {
	if _, err := tx.Exec(ctx, "DELETE FROM public.resource_windows WHERE resource_id = $1", resourceID); err != nil {
		return fmt.Errorf("clear windows failed: %w", err)
	}
	if len(windows) == 0 {
		return nil
	}

	ins := psql.Insert("public.resource_windows").Columns("resource_id", "weekday", "start_minute", "end_minute")
	for _, w := range windows {
		ins = ins.Values(resourceID, int(w.Weekday), w.Start, w.End)
	}
	query, args, err := ins.ToSql()
	if err != nil {
		return fmt.Errorf("build insert windows query failed: %w", err)
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert windows failed: %w", err)
	}
	return nil
}

// attachWindows loads the availability windows of the given resources in one query.
func (r *pgxRepository) attachWindows(ctx context.Context, resources []*Resource) error {
	if len(resources) == 0 {
		return nil
	}
	byID := make(map[string]*Resource, len(resources))
	ids := make([]string, len(resources))
	for i, res := range resources {
		byID[res.ID] = res
		ids[i] = res.ID
	}

	query, args, err := psql.Select("resource_id", "weekday", "start_minute", "end_minute").
		From("public.resource_windows").
		Where(squirrel.Eq{"resource_id": ids}).
		OrderBy("weekday", "start_minute").
		ToSql()
	if err != nil {
		return fmt.Errorf("build windows query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("list windows failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			resourceID string
			weekday    int
			w          Window
		)
		if err := rows.Scan(&resourceID, &weekday, &w.Start, &w.End); err != nil {
			return fmt.Errorf("scan window failed: %w", err)
		}
		w.Weekday = time.Weekday(weekday)
		if res, ok := byID[resourceID]; ok {
			res.Windows = append(res.Windows, w)
		}
	}
	return rows.Err()
}
