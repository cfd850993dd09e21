package capacity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore reads service_capacity and bookings.
type PostgresStore struct {
	Pool *pgxpool.Pool
}

// GetCapacity implements Store.
func (s PostgresStore) GetCapacity(ctx context.Context, serviceID uuid.UUID, day time.Time) (Capacity, error) {
	c := Capacity{ServiceID: serviceID, Day: day}
	err := s.Pool.QueryRow(ctx,
		`SELECT total_slots FROM service_capacity WHERE service_id = $1 AND day = $2`,
		serviceID, day).Scan(&c.TotalSlots)
	if errors.Is(err, pgx.ErrNoRows) {
		return Capacity{}, ErrNotFound
	}
	return c, err
}

// ListCapacities implements Store.
func (s PostgresStore) ListCapacities(ctx context.Context, day time.Time) ([]Capacity, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT service_id, total_slots FROM service_capacity WHERE day = $1 ORDER BY service_id`, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Capacity
	for rows.Next() {
		c := Capacity{Day: day}
		if err := rows.Scan(&c.ServiceID, &c.TotalSlots); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CountActiveBookings counts bookings starting on day that are not cancelled.
func (s PostgresStore) CountActiveBookings(ctx context.Context, serviceID uuid.UUID, day time.Time) (int, error) {
	var n int
	err := s.Pool.QueryRow(ctx, `SELECT count(*) FROM bookings
WHERE service_id = $1
  AND status <> 'cancelled'
  AND scheduled_start >= $2
  AND scheduled_start < $3`, serviceID, day, day.Add(24*time.Hour)).Scan(&n)
	return n, err
}
