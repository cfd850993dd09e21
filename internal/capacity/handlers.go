package capacity

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/payhuk02/payhula-sub010/internal/common"
)

// Handler exposes capacity reports.
type Handler struct {
	Svc *Service
	Now func() time.Time
}

// Report returns the capacity snapshot of a service for ?day=YYYY-MM-DD (default today, UTC).
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "capacity service not configured", nil)
		return
	}
	serviceID, err := uuid.Parse(chi.URLParam(r, "serviceID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid service id", nil)
		return
	}
	day := h.now()
	if raw := strings.TrimSpace(r.URL.Query().Get("day")); raw != "" {
		day, err = time.Parse(time.DateOnly, raw)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "day must be YYYY-MM-DD", nil)
			return
		}
	}
	rep, err := h.Svc.Report(r.Context(), serviceID, day)
	switch {
	case err == nil:
		common.JSON(w, http.StatusOK, map[string]any{"data": rep})
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "no capacity configured for this day", nil)
	case errors.Is(err, ErrInvalidCount):
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_CAPACITY", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}
