package capacity_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/payhuk02/payhula-sub010/internal/capacity"
	"github.com/payhuk02/payhula-sub010/internal/events"
	"github.com/payhuk02/payhula-sub010/internal/lock"
)

type stubStore struct {
	capacities []capacity.Capacity
	active     map[uuid.UUID]int
	countErr   error
}

func (s *stubStore) GetCapacity(_ context.Context, serviceID uuid.UUID, day time.Time) (capacity.Capacity, error) {
	for _, c := range s.capacities {
		if c.ServiceID == serviceID && c.Day.Equal(day) {
			return c, nil
		}
	}
	return capacity.Capacity{}, capacity.ErrNotFound
}

func (s *stubStore) ListCapacities(_ context.Context, day time.Time) ([]capacity.Capacity, error) {
	var out []capacity.Capacity
	for _, c := range s.capacities {
		if c.Day.Equal(day) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *stubStore) CountActiveBookings(_ context.Context, serviceID uuid.UUID, _ time.Time) (int, error) {
	if s.countErr != nil {
		return 0, s.countErr
	}
	return s.active[serviceID], nil
}

type eventStore struct {
	topics []string
	err    error
}

func (e *eventStore) InsertEvent(_ context.Context, topic string, aggregateID uuid.UUID, payload []byte) (events.Event, error) {
	if e.err != nil {
		return events.Event{}, e.err
	}
	e.topics = append(e.topics, topic)
	return events.Event{ID: uuid.New(), Topic: topic, AggregateID: aggregateID, Payload: payload, OccurredAt: time.Now()}, nil
}

var day = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) (*stubStore, uuid.UUID, uuid.UUID, uuid.UUID) {
	t.Helper()
	full, low, quiet := uuid.New(), uuid.New(), uuid.New()
	store := &stubStore{
		capacities: []capacity.Capacity{
			{ServiceID: full, Day: day, TotalSlots: 10},
			{ServiceID: low, Day: day, TotalSlots: 10},
			{ServiceID: quiet, Day: day, TotalSlots: 10},
		},
		active: map[uuid.UUID]int{full: 10, low: 9, quiet: 2},
	}
	return store, full, low, quiet
}

func newRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestReport(t *testing.T) {
	store, _, low, _ := newFixture(t)
	svc := &capacity.Service{Store: store, Threshold: 80}

	rep, err := svc.Report(context.Background(), low, day.Add(15*time.Hour))
	require.NoError(t, err)
	require.Equal(t, "2025-03-10", rep.Day)
	require.Equal(t, capacity.SignalLowCapacity, rep.Signal)
	require.Equal(t, 1, rep.Snapshot.AvailableSlots)

	_, err = svc.Report(context.Background(), uuid.New(), day)
	require.ErrorIs(t, err, capacity.ErrNotFound)
}

func TestSweepEmitsDeduplicatedAlerts(t *testing.T) {
	store, full, low, _ := newFixture(t)
	client, _ := newRedis(t)
	evStore := &eventStore{}
	m := &capacity.Monitor{
		Service: &capacity.Service{Store: store, Threshold: 80},
		Locker:  lock.Locker{R: client},
		R:       client,
		Events:  &events.Bus{Store: evStore},
	}

	res, err := m.Sweep(context.Background(), day)
	require.NoError(t, err)
	require.Equal(t, 3, res.Checked)
	require.Len(t, res.Alerts, 2)
	require.ElementsMatch(t, []string{events.TopicCapacityFull, events.TopicCapacityLow}, evStore.topics)

	signals := map[uuid.UUID]capacity.Signal{}
	for _, a := range res.Alerts {
		signals[a.Snapshot.ServiceID] = a.Signal
	}
	require.Equal(t, capacity.SignalFullyBooked, signals[full])
	require.Equal(t, capacity.SignalLowCapacity, signals[low])

	res, err = m.Sweep(context.Background(), day)
	require.NoError(t, err)
	require.Equal(t, 3, res.Checked)
	require.Empty(t, res.Alerts)
	require.Len(t, evStore.topics, 2)

	// a low service becoming full raises a new signal
	store.active[low] = 10
	res, err = m.Sweep(context.Background(), day)
	require.NoError(t, err)
	require.Len(t, res.Alerts, 1)
	require.Equal(t, capacity.SignalFullyBooked, res.Alerts[0].Signal)
}

func TestSweepRetriesAlertsThatFailedToPersist(t *testing.T) {
	store, full, low, _ := newFixture(t)
	client, mr := newRedis(t)
	evStore := &eventStore{err: errors.New("insert failed")}
	m := &capacity.Monitor{
		Service: &capacity.Service{Store: store, Threshold: 80},
		Locker:  lock.Locker{R: client},
		R:       client,
		Events:  &events.Bus{Store: evStore},
	}

	res, err := m.Sweep(context.Background(), day)
	require.Error(t, err)
	require.ErrorContains(t, err, "insert failed")
	require.Equal(t, 3, res.Checked)
	require.Empty(t, res.Alerts)
	require.False(t, mr.Exists("capacity:alert:"+full.String()+":2025-03-10:fully_booked"))
	require.False(t, mr.Exists("capacity:alert:"+low.String()+":2025-03-10:low_capacity"))

	evStore.err = nil
	res, err = m.Sweep(context.Background(), day)
	require.NoError(t, err)
	require.Len(t, res.Alerts, 2)
	require.ElementsMatch(t, []string{events.TopicCapacityFull, events.TopicCapacityLow}, evStore.topics)
	require.True(t, mr.Exists("capacity:alert:"+full.String()+":2025-03-10:fully_booked"))
}

func TestSweepSkipsWhenLocked(t *testing.T) {
	store, _, _, _ := newFixture(t)
	client, mr := newRedis(t)
	require.NoError(t, mr.Set("lock:capacity:sweep:2025-03-10", "other-worker"))

	m := &capacity.Monitor{Service: &capacity.Service{Store: store}, Locker: lock.Locker{R: client}, R: client}
	res, err := m.Sweep(context.Background(), day)
	require.NoError(t, err)
	require.True(t, res.Skipped)
	require.Zero(t, res.Checked)
}

func TestSweepJoinsStoreErrors(t *testing.T) {
	store, _, _, _ := newFixture(t)
	store.countErr = errors.New("db down")
	client, _ := newRedis(t)

	m := &capacity.Monitor{Service: &capacity.Service{Store: store}, Locker: lock.Locker{R: client}, R: client}
	res, err := m.Sweep(context.Background(), day)
	require.Error(t, err)
	require.Zero(t, res.Checked)
}

func TestReportHandler(t *testing.T) {
	store, full, _, _ := newFixture(t)
	h := &capacity.Handler{Svc: &capacity.Service{Store: store, Threshold: 80}, Now: func() time.Time { return day.Add(9 * time.Hour) }}
	r := chi.NewRouter()
	r.Get("/services/{serviceID}/capacity", h.Report)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/services/"+full.String()+"/capacity", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data capacity.Report `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, capacity.SignalFullyBooked, body.Data.Signal)
	require.Equal(t, 100.0, body.Data.Snapshot.UtilizationPercentage)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/services/"+full.String()+"/capacity?day=2025-03-11", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/services/"+full.String()+"/capacity?day=tomorrow", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/services/nope/capacity", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
