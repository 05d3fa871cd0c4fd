package scheduler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/studyping/studyping/internal/pkg/httputil"
)

// Handler exposes the manual batch trigger. The endpoint has no auth gate.
type Handler struct {
	scheduler *Scheduler
}

// NewHandler creates a scheduler handler.
func NewHandler(s *Scheduler) *Handler {
	return &Handler{scheduler: s}
}

// RegisterRoutes registers the trigger route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/trigger-reminders", h.Trigger)
}

// Trigger handles POST /trigger-reminders: runs exactly one batch, the same
// procedure the daily firing runs, and reports the counts.
func (h *Handler) Trigger(w http.ResponseWriter, r *http.Request) {
	result := h.scheduler.RunBatch(r.Context())
	httputil.OK(w, http.StatusOK, "Reminder batch completed", result)
}
