package capacity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// TypeSweep is the asynq task type that runs a capacity sweep.
const TypeSweep = "capacity:sweep"

const dayLayout = "2006-01-02"

type sweepPayload struct {
	Day string `json:"day,omitempty"`
}

// NewSweepTask builds a sweep task for day. A zero day sweeps whatever day it is when the task runs.
func NewSweepTask(day time.Time, opts ...asynq.Option) (*asynq.Task, error) {
	var p sweepPayload
	if !day.IsZero() {
		p.Day = Day(day).Format(dayLayout)
	}
	body, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeSweep, body, opts...), nil
}

// SweepHandler runs Monitor.Sweep for asynq. Now defaults to time.Now.
type SweepHandler struct {
	Monitor *Monitor
	Now     func() time.Time
}

// ProcessTask implements asynq.Handler.
func (h SweepHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	day, err := h.day(t.Payload())
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	res, err := h.Monitor.Sweep(ctx, day)
	if err != nil {
		return err
	}
	h.Monitor.Logger.Info().
		Str("day", day.Format(dayLayout)).
		Bool("skipped", res.Skipped).
		Int("checked", res.Checked).
		Int("alerts", len(res.Alerts)).
		Msg("capacity sweep finished")
	return nil
}

func (h SweepHandler) day(payload []byte) (time.Time, error) {
	var p sweepPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &p); err != nil {
			return time.Time{}, fmt.Errorf("decode sweep payload: %w", err)
		}
	}
	if p.Day == "" {
		now := time.Now
		if h.Now != nil {
			now = h.Now
		}
		return Day(now()), nil
	}
	day, err := time.Parse(dayLayout, p.Day)
	if err != nil {
		return time.Time{}, fmt.Errorf("sweep day %q: %w", p.Day, err)
	}
	return day, nil
}
