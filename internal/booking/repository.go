package booking

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

	"github.com/nekogravitycat/driving-school-backend/internal/schedule"
)

// Repository persists bookings and their history.
// The write side is the schedule.Store used by calendars.
type Repository interface {
	schedule.Store
	GetByID(ctx context.Context, id string) (*schedule.Booking, error)
	List(ctx context.Context, filter Filter) ([]*schedule.Booking, int, error)
	History(ctx context.Context, bookingID string) ([]schedule.HistoryEntry, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var bookingColumns = []string{
	"b.id", "b.school_id", "b.type", "b.status",
	"COALESCE(b.student_id::text, '')", "b.category",
	"b.start_time", "b.end_time", "b.cancel_reason",
	"b.created_by", "b.version", "b.created_at", "b.updated_at",
	"COALESCE((SELECT array_agg(br.resource_id::text ORDER BY br.position) FROM public.booking_resources br WHERE br.booking_id = b.id), '{}')",
}

func scanBooking(row pgx.Row, extra ...any) (*schedule.Booking, error) {
	var b schedule.Booking
	dest := []any{
		&b.ID, &b.SchoolID, &b.Type, &b.Status,
		&b.StudentID, &b.Category,
		&b.Interval.Start, &b.Interval.End, &b.CancelReason,
		&b.CreatedBy, &b.Version, &b.CreatedAt, &b.UpdatedAt,
		&b.ResourceIDs,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &b, nil
}

// translate maps constraint violations raised by the database onto domain errors.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgerrcode.ExclusionViolation:
		return schedule.ErrSlotTaken
	case pgerrcode.UniqueViolation:
		return schedule.ErrAlreadyIndexed
	case pgerrcode.ForeignKeyViolation:
		return schedule.ErrResourceNotFound
	}
	return err
}

func (r *pgxRepository) Insert(ctx context.Context, b *schedule.Booking, h schedule.HistoryEntry) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin insert booking tx failed: %w", err)
	}
	defer tx.Rollback(ctx)

	query, args, err := psql.Insert("public.bookings").
		Columns("id", "school_id", "type", "status", "student_id", "category",
			"start_time", "end_time", "cancel_reason", "created_by", "version", "created_at", "updated_at").
		Values(b.ID, b.SchoolID, b.Type, b.Status, nullable(b.StudentID), b.Category,
			b.Interval.Start, b.Interval.End, b.CancelReason, b.CreatedBy, b.Version, b.CreatedAt, b.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert booking query failed: %w", err)
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert booking failed: %w", translate(err))
	}

	ins := psql.Insert("public.booking_resources").
		Columns("booking_id", "resource_id", "school_id", "position", "period", "active")
	for i, id := range b.ResourceIDs {
		ins = ins.Values(b.ID, id, b.SchoolID, i, period(b.Interval), b.Occupies())
	}
	query, args, err = ins.ToSql()
	if err != nil {
		return fmt.Errorf("build insert booking resources query failed: %w", err)
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert booking resources failed: %w", translate(err))
	}

	if err := insertHistory(ctx, tx, h); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *pgxRepository) Update(ctx context.Context, b *schedule.Booking, prevVersion int, h schedule.HistoryEntry) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin update booking tx failed: %w", err)
	}
	defer tx.Rollback(ctx)

	query, args, err := psql.Update("public.bookings").
		Set("status", b.Status).
		Set("start_time", b.Interval.Start).
		Set("end_time", b.Interval.End).
		Set("cancel_reason", b.CancelReason).
		Set("version", b.Version).
		Set("updated_at", b.UpdatedAt).
		Where(squirrel.Eq{"id": b.ID, "version": prevVersion}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update booking query failed: %w", err)
	}
	ct, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update booking failed: %w", translate(err))
	}
	if ct.RowsAffected() == 0 {
		return schedule.ErrStaleBooking
	}

	query, args, err = psql.Update("public.booking_resources").
		Set("period", period(b.Interval)).
		Set("active", b.Occupies()).
		Where(squirrel.Eq{"booking_id": b.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update booking resources query failed: %w", err)
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update booking resources failed: %w", translate(err))
	}

	if err := insertHistory(ctx, tx, h); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func insertHistory(ctx context.Context, tx pgx.Tx, h schedule.HistoryEntry) error {
	var fromStart, fromEnd, toStart, toEnd *time.Time
	if h.From != nil {
		fromStart, fromEnd = &h.From.Start, &h.From.End
	}
	if h.To != nil {
		toStart, toEnd = &h.To.Start, &h.To.End
	}

	query, args, err := psql.Insert("public.booking_history").
		Columns("id", "booking_id", "school_id", "action", "from_start", "from_end", "to_start", "to_end", "reason", "actor", "at").
		Values(h.ID, h.BookingID, h.SchoolID, h.Action, fromStart, fromEnd, toStart, toEnd, h.Reason, h.Actor, h.At).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert history query failed: %w", err)
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert history failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) ListScheduled(ctx context.Context, schoolID string) ([]*schedule.Booking, error) {
	query, args, err := psql.Select(bookingColumns...).
		From("public.bookings b").
		Where(squirrel.Eq{"b.school_id": schoolID}).
		Where(squirrel.Eq{"b.status": schedule.StatusScheduled}).
		OrderBy("b.start_time ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list scheduled query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list scheduled bookings failed: %w", err)
	}
	defer rows.Close()

	var bookings []*schedule.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking failed: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func (r *pgxRepository) SettledUntil(ctx context.Context, schoolID string) (time.Time, error) {
	query, args, err := psql.Select("max(b.end_time)").
		From("public.bookings b").
		Where(squirrel.Eq{"b.school_id": schoolID}).
		Where(squirrel.Eq{"b.status": schedule.StatusCompleted}).
		ToSql()
	if err != nil {
		return time.Time{}, fmt.Errorf("build settled query failed: %w", err)
	}

	var settled *time.Time
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&settled); err != nil {
		return time.Time{}, fmt.Errorf("get settled mark failed: %w", err)
	}
	if settled == nil {
		return time.Time{}, nil
	}
	return *settled, nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*schedule.Booking, error) {
	query, args, err := psql.Select(bookingColumns...).
		From("public.bookings b").
		Where(squirrel.Eq{"b.id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get booking query failed: %w", err)
	}

	b, err := scanBooking(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, schedule.ErrBookingNotFound
		}
		return nil, fmt.Errorf("get booking failed: %w", err)
	}
	return b, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*schedule.Booking, int, error) {
	filter.normalize()

	query := psql.Select(append(bookingColumns, "count(*) OVER() AS total_count")...).
		From("public.bookings b").
		Where(squirrel.Eq{"b.school_id": filter.SchoolID})

	if filter.ResourceID != "" {
		query = query.Where(squirrel.Expr(
			"EXISTS (SELECT 1 FROM public.booking_resources br WHERE br.booking_id = b.id AND br.resource_id = ?)",
			filter.ResourceID,
		))
	}
	if filter.StudentID != "" {
		query = query.Where(squirrel.Eq{"b.student_id": filter.StudentID})
	}
	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"b.status": filter.Status})
	}
	if filter.Type != "" {
		query = query.Where(squirrel.Eq{"b.type": filter.Type})
	}
	// Half-open intersection with [From, To)
	if filter.From != nil {
		query = query.Where(squirrel.Gt{"b.end_time": *filter.From})
	}
	if filter.To != nil {
		query = query.Where(squirrel.Lt{"b.start_time": *filter.To})
	}

	offset := (filter.Page - 1) * filter.PageSize
	query = query.OrderBy("b.start_time "+filter.SortOrder, "b.id").
		Limit(uint64(filter.PageSize)).
		Offset(uint64(offset))

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list bookings query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings failed: %w", err)
	}
	defer rows.Close()

	var (
		bookings []*schedule.Booking
		total    int
	)
	for rows.Next() {
		b, err := scanBooking(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan booking failed: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, total, rows.Err()
}

func (r *pgxRepository) History(ctx context.Context, bookingID string) ([]schedule.HistoryEntry, error) {
	query, args, err := psql.Select(
		"id", "booking_id", "school_id", "action",
		"from_start", "from_end", "to_start", "to_end",
		"reason", "actor", "at",
	).
		From("public.booking_history").
		Where(squirrel.Eq{"booking_id": bookingID}).
		OrderBy("at ASC", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build history query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list history failed: %w", err)
	}
	defer rows.Close()

	var entries []schedule.HistoryEntry
	for rows.Next() {
		var (
			h                                  schedule.HistoryEntry
			fromStart, fromEnd, toStart, toEnd *time.Time
		)
		if err := rows.Scan(
			&h.ID, &h.BookingID, &h.SchoolID, &h.Action,
			&fromStart, &fromEnd, &toStart, &toEnd,
			&h.Reason, &h.Actor, &h.At,
		); err != nil {
			return nil, fmt.Errorf("scan history failed: %w", err)
		}
		if fromStart != nil && fromEnd != nil {
			h.From = &schedule.Interval{Start: *fromStart, End: *fromEnd}
		}
		if toStart != nil && toEnd != nil {
			h.To = &schedule.Interval{Start: *toStart, End: *toEnd}
		}
		entries = append(entries, h)
	}
	return entries, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func period(iv schedule.Interval) any {
	return squirrel.Expr("tstzrange(?, ?, '[)')", iv.Start, iv.End)
}
