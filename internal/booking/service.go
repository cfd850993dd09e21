package booking

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/payhuk02/payhula-sub010/internal/cache"
	"github.com/payhuk02/payhula-sub010/internal/events"
	"github.com/payhuk02/payhula-sub010/internal/obs"
)

var (
	// ErrNotFound is returned when a booking or service does not exist.
	ErrNotFound = errors.New("booking: not found")
	// ErrSlotTaken is returned by the store when a conflicting active booking already exists.
	ErrSlotTaken = errors.New("booking: slot already taken")
	// ErrInvalidInput is returned for malformed booking requests.
	ErrInvalidInput = errors.New("booking: invalid input")
	// ErrWindowTooLarge is returned when an availability query spans too long a window or
	// would produce too many candidate slots.
	ErrWindowTooLarge = errors.New("booking: availability window too large")
)

// Store is the authoritative booking persistence. CreateBooking must re-check conflicts
// transactionally and fail with ErrSlotTaken.
type Store interface {
	ListBookings(ctx context.Context, serviceID uuid.UUID, from, to time.Time) ([]Booking, error)
	GetBooking(ctx context.Context, id uuid.UUID) (Booking, error)
	CreateBooking(ctx context.Context, b Booking) (Booking, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (Booking, error)
}

// Query describes an availability lookup for one service.
type Query struct {
	ServiceID       uuid.UUID
	From            time.Time
	To              time.Time
	StepMinutes     int
	DurationMinutes int
}

// NewBooking is the input of Book.
type NewBooking struct {
	ServiceID       uuid.UUID
	ScheduledStart  time.Time
	DurationMinutes int
}

// Service computes availability from stored bookings and records new ones.
type Service struct {
	Store       Store
	R           *redis.Client
	TTL         time.Duration
	StepMinutes int
	MaxWindow   time.Duration
	MaxSlots    int
	Events      *events.Bus
	Logger      zerolog.Logger
}

// Availability returns the candidate slots of the window annotated against current bookings.
func (s *Service) Availability(ctx context.Context, q Query) ([]AvailabilitySlot, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("booking service not configured")
	}
	step := q.StepMinutes
	if step <= 0 {
		step = s.StepMinutes
	}
	if step <= 0 {
		step = DefaultStepMinutes
	}
	if err := s.checkWindow(q, step); err != nil {
		return nil, err
	}
	candidates, err := Generate(q.From, q.To, step, q.DurationMinutes)
	if err != nil {
		return nil, err
	}

	c := s.cache()
	key := cacheKey(ctx, c, q, step)
	var cached []AvailabilitySlot
	if c.Get(ctx, key, &cached) {
		countAvailability("hit")
		return cached, nil
	}

	// Bookings that start before the window may still overlap its first candidates, and
	// the last candidate extends past the window end by its duration.
	horizon := q.To.Add(time.Duration(q.DurationMinutes) * time.Minute)
	bookings, err := s.Store.ListBookings(ctx, q.ServiceID, q.From, horizon)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	slots := CheckAvailability(candidates, bookings)
	if err := c.Set(ctx, key, slots); err != nil {
		s.Logger.Warn().Err(err).Msg("cache availability")
	}
	countAvailability("miss")
	return slots, nil
}

func (s *Service) checkWindow(q Query, step int) error {
	maxWindow := s.MaxWindow
	if maxWindow <= 0 {
		maxWindow = DefaultMaxWindow
	}
	maxSlots := s.MaxSlots
	if maxSlots <= 0 {
		maxSlots = DefaultMaxSlots
	}
	window := q.To.Sub(q.From)
	if window > maxWindow {
		return fmt.Errorf("%w: %s exceeds %s", ErrWindowTooLarge, window, maxWindow)
	}
	if window > 0 && int64(window/(time.Duration(step)*time.Minute)) >= int64(maxSlots) {
		return fmt.Errorf("%w: more than %d slots at step %dm", ErrWindowTooLarge, maxSlots, step)
	}
	return nil
}

// Book records a new pending booking. A conflict detected by the store wins over any
// availability previously shown to the customer.
func (s *Service) Book(ctx context.Context, in NewBooking) (Booking, error) {
	if s == nil || s.Store == nil {
		return Booking{}, errors.New("booking service not configured")
	}
	if in.ServiceID == uuid.Nil {
		return Booking{}, fmt.Errorf("service id is required: %w", ErrInvalidInput)
	}
	if in.DurationMinutes <= 0 {
		return Booking{}, fmt.Errorf("duration must be positive: %w", ErrInvalidInput)
	}
	if in.ScheduledStart.IsZero() {
		return Booking{}, fmt.Errorf("scheduled start is required: %w", ErrInvalidInput)
	}
	created, err := s.Store.CreateBooking(ctx, Booking{
		ID:              uuid.New(),
		ServiceID:       in.ServiceID,
		ScheduledStart:  in.ScheduledStart.UTC(),
		DurationMinutes: in.DurationMinutes,
		Status:          StatusPending,
	})
	if err != nil {
		if errors.Is(err, ErrSlotTaken) {
			if obs.BookingConflictsTotal != nil {
				obs.BookingConflictsTotal.Inc()
			}
			s.Logger.Info().Str("service_id", in.ServiceID.String()).Time("start", in.ScheduledStart).Msg("booking rejected: slot taken")
		}
		return Booking{}, err
	}
	s.bumpVersion(ctx, in.ServiceID)
	s.emit(ctx, events.TopicBookingCreated, created)
	return created, nil
}

// Transition moves a booking to a new status if the state machine allows it.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, to Status) (Booking, error) {
	if s == nil || s.Store == nil {
		return Booking{}, errors.New("booking service not configured")
	}
	if !to.Valid() {
		return Booking{}, fmt.Errorf("unknown status %q: %w", to, ErrInvalidInput)
	}
	current, err := s.Store.GetBooking(ctx, id)
	if err != nil {
		return Booking{}, err
	}
	if !AllowedTransition(current.Status, to) {
		return Booking{}, fmt.Errorf("%s -> %s: %w", current.Status, to, ErrInvalidTransition)
	}
	if current.Status == to {
		return current, nil
	}
	updated, err := s.Store.UpdateStatus(ctx, id, to)
	if err != nil {
		return Booking{}, err
	}
	s.bumpVersion(ctx, updated.ServiceID)
	s.emit(ctx, events.TopicBookingStatus, updated)
	return updated, nil
}

func (s *Service) emit(ctx context.Context, topic string, b Booking) {
	if s.Events == nil {
		return
	}
	if _, err := s.Events.Emit(ctx, topic, b.ID, b); err != nil {
		s.Logger.Warn().Err(err).Str("topic", topic).Str("booking_id", b.ID.String()).Msg("emit booking event")
	}
}

func countAvailability(cache string) {
	if obs.AvailabilityChecksTotal != nil {
		obs.AvailabilityChecksTotal.WithLabelValues(cache).Inc()
	}
}

func (s *Service) cache() cache.Versioned {
	return cache.Versioned{R: s.R, TTL: s.TTL, Prefix: "avail"}
}

func cacheKey(ctx context.Context, c cache.Versioned, q Query, step int) string {
	return c.Key(ctx, q.ServiceID.String(),
		strconv.FormatInt(q.From.UTC().Unix(), 10),
		strconv.FormatInt(q.To.UTC().Unix(), 10),
		strconv.Itoa(step),
		strconv.Itoa(q.DurationMinutes))
}

// bumpVersion invalidates every cached window of the service.
func (s *Service) bumpVersion(ctx context.Context, serviceID uuid.UUID) {
	if err := s.cache().Bump(ctx, serviceID.String()); err != nil {
		s.Logger.Warn().Err(err).Str("service_id", serviceID.String()).Msg("invalidate availability cache")
	}
}
