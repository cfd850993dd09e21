package booking

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const bookingColumns = `id, service_id, scheduled_start, duration_minutes, status`

const listOverlappingSQL = `SELECT ` + bookingColumns + `
FROM bookings
WHERE service_id = $1
  AND status <> 'cancelled'
  AND scheduled_start < $3
  AND scheduled_start + make_interval(mins => duration_minutes) > $2
ORDER BY scheduled_start, id`

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore persists bookings in Postgres.
type PostgresStore struct {
	Pool *pgxpool.Pool
}

// NewPostgresStore returns a Store backed by the pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{Pool: pool}
}

// ListBookings returns active bookings overlapping [from, to), ordered by start then id.
func (s *PostgresStore) ListBookings(ctx context.Context, serviceID uuid.UUID, from, to time.Time) ([]Booking, error) {
	return listOverlapping(ctx, s.Pool, serviceID, from, to)
}

// GetBooking loads a booking by id.
func (s *PostgresStore) GetBooking(ctx context.Context, id uuid.UUID) (Booking, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	b, err := scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Booking{}, ErrNotFound
	}
	return b, err
}

// CreateBooking inserts b after re-validating the slot while holding a lock on the service
// row, so concurrent bookings of the same service are serialised.
func (s *PostgresStore) CreateBooking(ctx context.Context, b Booking) (Booking, error) {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Booking{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var locked uuid.UUID
	if err := tx.QueryRow(ctx, `SELECT id FROM services WHERE id = $1 FOR UPDATE`, b.ServiceID).Scan(&locked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Booking{}, fmt.Errorf("service %s: %w", b.ServiceID, ErrNotFound)
		}
		return Booking{}, err
	}

	existing, err := listOverlapping(ctx, tx, b.ServiceID, b.ScheduledStart, b.End())
	if err != nil {
		return Booking{}, err
	}
	check := CheckAvailability(slices.Values([]Slot{{Start: b.ScheduledStart, End: b.End()}}), existing)
	if len(check) == 1 && !check[0].IsAvailable {
		return Booking{}, fmt.Errorf("conflicts with booking %s: %w", check[0].ConflictingBookingID, ErrSlotTaken)
	}

	row := tx.QueryRow(ctx, `INSERT INTO bookings (id, service_id, scheduled_start, duration_minutes, status)
VALUES ($1, $2, $3, $4, $5)
RETURNING `+bookingColumns, b.ID, b.ServiceID, b.ScheduledStart, b.DurationMinutes, string(b.Status))
	created, err := scanBooking(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23P01" {
			return Booking{}, ErrSlotTaken
		}
		return Booking{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Booking{}, err
	}
	return created, nil
}

// UpdateStatus stores a new status. Bookings are never deleted; cancellation is a status.
func (s *PostgresStore) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (Booking, error) {
	row := s.Pool.QueryRow(ctx, `UPDATE bookings SET status = $2, updated_at = now()
WHERE id = $1
RETURNING `+bookingColumns, id, string(status))
	b, err := scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Booking{}, ErrNotFound
	}
	return b, err
}

func listOverlapping(ctx context.Context, q queryer, serviceID uuid.UUID, from, to time.Time) ([]Booking, error) {
	rows, err := q.Query(ctx, listOverlappingSQL, serviceID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBooking(row pgx.Row) (Booking, error) {
	var (
		b      Booking
		status string
	)
	if err := row.Scan(&b.ID, &b.ServiceID, &b.ScheduledStart, &b.DurationMinutes, &status); err != nil {
		return Booking{}, err
	}
	b.Status = Status(status)
	return b, nil
}
