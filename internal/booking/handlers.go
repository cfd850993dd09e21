package booking

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/payhuk02/payhula-sub010/internal/common"
)

// Handler exposes availability and booking endpoints.
type Handler struct {
	Svc *Service
}

type availabilityParams struct {
	From            time.Time `json:"from" validate:"required"`
	To              time.Time `json:"to" validate:"required,gtfield=From"`
	StepMinutes     int       `json:"step" validate:"gte=0,lte=1440"`
	DurationMinutes int       `json:"duration" validate:"required,gt=0,lte=1440"`
}

type createRequest struct {
	ScheduledStart  time.Time `json:"scheduledStart" validate:"required"`
	DurationMinutes int       `json:"durationMinutes" validate:"required,gt=0,lte=1440"`
}

type statusRequest struct {
	Status Status `json:"status" validate:"required"`
}

// Availability lists candidate slots for a service with their availability.
func (h *Handler) Availability(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "booking service not configured", nil)
		return
	}
	serviceID, err := uuid.Parse(chi.URLParam(r, "serviceID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid service id", nil)
		return
	}
	params, err := parseAvailabilityParams(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	slots, err := h.Svc.Availability(r.Context(), Query{
		ServiceID:       serviceID,
		From:            params.From,
		To:              params.To,
		StepMinutes:     params.StepMinutes,
		DurationMinutes: params.DurationMinutes,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	if slots == nil {
		slots = []AvailabilitySlot{}
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": slots})
}

// Create books a slot for a service.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "booking service not configured", nil)
		return
	}
	serviceID, err := uuid.Parse(chi.URLParam(r, "serviceID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid service id", nil)
		return
	}
	var payload createRequest
	if err := common.DecodeJSON(r, &payload); err != nil {
		h.writeError(w, err)
		return
	}
	created, err := h.Svc.Book(r.Context(), NewBooking{
		ServiceID:       serviceID,
		ScheduledStart:  payload.ScheduledStart,
		DurationMinutes: payload.DurationMinutes,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": created})
}

// UpdateStatus transitions a booking to a new status.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "booking service not configured", nil)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "bookingID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid booking id", nil)
		return
	}
	var payload statusRequest
	if err := common.DecodeJSON(r, &payload); err != nil {
		h.writeError(w, err)
		return
	}
	updated, err := h.Svc.Transition(r.Context(), id, payload.Status)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": updated})
}

func parseAvailabilityParams(r *http.Request) (availabilityParams, error) {
	q := r.URL.Query()
	var (
		params availabilityParams
		err    error
	)
	if params.From, err = parseTime(q.Get("from")); err != nil {
		return params, common.NewAppError("BAD_REQUEST", "from must be RFC3339", http.StatusBadRequest, err)
	}
	if params.To, err = parseTime(q.Get("to")); err != nil {
		return params, common.NewAppError("BAD_REQUEST", "to must be RFC3339", http.StatusBadRequest, err)
	}
	if params.StepMinutes, err = parseInt(q.Get("step")); err != nil {
		return params, common.NewAppError("BAD_REQUEST", "step must be an integer", http.StatusBadRequest, err)
	}
	if params.DurationMinutes, err = parseInt(q.Get("duration")); err != nil {
		return params, common.NewAppError("BAD_REQUEST", "duration must be an integer", http.StatusBadRequest, err)
	}
	return params, common.ValidateStruct(params)
}

func parseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func parseInt(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if err == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unknown error", nil)
		return
	}
	if common.WriteAppError(w, err) {
		return
	}
	switch {
	case errors.Is(err, ErrWindowTooLarge):
		common.JSONError(w, http.StatusBadRequest, "WINDOW_TOO_LARGE", err.Error(), nil)
	case errors.Is(err, ErrInvalidWindow), errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, ErrSlotTaken):
		common.JSONError(w, http.StatusConflict, "SLOT_TAKEN", "the selected slot is no longer available, please choose another", nil)
	case errors.Is(err, ErrInvalidTransition):
		common.JSONError(w, http.StatusConflict, "INVALID_TRANSITION", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}
