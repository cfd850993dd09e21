package booking_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/payhuk02/payhula-sub010/internal/booking"
)

type stubStore struct {
	bookings  map[uuid.UUID]booking.Booking
	listCalls int
	conflict  bool
}

func newStubStore(existing ...booking.Booking) *stubStore {
	s := &stubStore{bookings: map[uuid.UUID]booking.Booking{}}
	for _, b := range existing {
		s.bookings[b.ID] = b
	}
	return s
}

func (s *stubStore) ListBookings(_ context.Context, serviceID uuid.UUID, from, to time.Time) ([]booking.Booking, error) {
	s.listCalls++
	var out []booking.Booking
	for _, b := range s.bookings {
		if b.ServiceID == serviceID && b.ScheduledStart.Before(to) && b.End().After(from) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *stubStore) GetBooking(_ context.Context, id uuid.UUID) (booking.Booking, error) {
	b, ok := s.bookings[id]
	if !ok {
		return booking.Booking{}, booking.ErrNotFound
	}
	return b, nil
}

func (s *stubStore) CreateBooking(_ context.Context, b booking.Booking) (booking.Booking, error) {
	if s.conflict {
		return booking.Booking{}, fmt.Errorf("conflict: %w", booking.ErrSlotTaken)
	}
	s.bookings[b.ID] = b
	return b, nil
}

func (s *stubStore) UpdateStatus(_ context.Context, id uuid.UUID, status booking.Status) (booking.Booking, error) {
	b, ok := s.bookings[id]
	if !ok {
		return booking.Booking{}, booking.ErrNotFound
	}
	b.Status = status
	s.bookings[id] = b
	return b, nil
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestAvailabilityCachedUntilBookingChanges(t *testing.T) {
	serviceID := uuid.New()
	store := newStubStore(booking.Booking{ID: uuid.New(), ServiceID: serviceID, ScheduledStart: at(10, 0), DurationMinutes: 30, Status: booking.StatusConfirmed})
	svc := &booking.Service{Store: store, R: newRedis(t), TTL: time.Minute, Logger: zerolog.Nop()}
	ctx := context.Background()
	q := booking.Query{ServiceID: serviceID, From: at(9, 0), To: at(11, 0), DurationMinutes: 30}

	first, err := svc.Availability(ctx, q)
	require.NoError(t, err)
	require.Len(t, first, 4)
	require.False(t, first[2].IsAvailable)

	second, err := svc.Availability(ctx, q)
	require.NoError(t, err)
	require.Equal(t, 1, store.listCalls)
	require.Equal(t, len(first), len(second))
	require.False(t, second[2].IsAvailable)

	_, err = svc.Book(ctx, booking.NewBooking{ServiceID: serviceID, ScheduledStart: at(9, 0), DurationMinutes: 30})
	require.NoError(t, err)

	third, err := svc.Availability(ctx, q)
	require.NoError(t, err)
	require.Equal(t, 2, store.listCalls)
	require.False(t, third[0].IsAvailable)
}

func TestAvailabilityWithoutCache(t *testing.T) {
	svc := &booking.Service{Store: newStubStore(), StepMinutes: 60, Logger: zerolog.Nop()}
	slots, err := svc.Availability(context.Background(), booking.Query{ServiceID: uuid.New(), From: at(9, 0), To: at(12, 0), DurationMinutes: 60})
	require.NoError(t, err)
	require.Len(t, slots, 3)
	for _, s := range slots {
		require.True(t, s.IsAvailable)
	}
}

func TestAvailabilityInvalidWindow(t *testing.T) {
	store := newStubStore()
	svc := &booking.Service{Store: store, Logger: zerolog.Nop()}
	_, err := svc.Availability(context.Background(), booking.Query{ServiceID: uuid.New(), From: at(12, 0), To: at(9, 0), DurationMinutes: 60})
	require.ErrorIs(t, err, booking.ErrInvalidWindow)
	require.Zero(t, store.listCalls)
}

func TestBookRejectsConflictFromStore(t *testing.T) {
	store := newStubStore()
	store.conflict = true
	svc := &booking.Service{Store: store, Logger: zerolog.Nop()}
	_, err := svc.Book(context.Background(), booking.NewBooking{ServiceID: uuid.New(), ScheduledStart: at(9, 0), DurationMinutes: 30})
	require.ErrorIs(t, err, booking.ErrSlotTaken)

	_, err = svc.Book(context.Background(), booking.NewBooking{ServiceID: uuid.New(), ScheduledStart: at(9, 0)})
	require.ErrorIs(t, err, booking.ErrInvalidInput)
}

func TestTransition(t *testing.T) {
	id := uuid.New()
	store := newStubStore(booking.Booking{ID: id, ServiceID: uuid.New(), ScheduledStart: at(9, 0), DurationMinutes: 30, Status: booking.StatusPending})
	svc := &booking.Service{Store: store, R: newRedis(t), TTL: time.Minute, Logger: zerolog.Nop()}
	ctx := context.Background()

	updated, err := svc.Transition(ctx, id, booking.StatusConfirmed)
	require.NoError(t, err)
	require.Equal(t, booking.StatusConfirmed, updated.Status)

	_, err = svc.Transition(ctx, id, booking.StatusPending)
	require.ErrorIs(t, err, booking.ErrInvalidTransition)

	_, err = svc.Transition(ctx, id, booking.Status("archived"))
	require.ErrorIs(t, err, booking.ErrInvalidInput)

	_, err = svc.Transition(ctx, uuid.New(), booking.StatusCancelled)
	require.ErrorIs(t, err, booking.ErrNotFound)
}
