package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vadim/postline/internal/domain/schedule/entity"
	"github.com/vadim/postline/internal/httpx/response"
)

// SchedulePlanner defines the interface for schedule queue operations
type SchedulePlanner interface {
	Schedule(ctx context.Context, draftID string, channels []string, publishAt time.Time) (*entity.Entry, error)
	ListPending(ctx context.Context) ([]entity.Entry, error)
	Cancel(ctx context.Context, id string) error
	TimeFromOffset(key string) time.Time
}

// ScheduleHandler handles HTTP requests for the publish queue
type ScheduleHandler struct {
	planner SchedulePlanner
}

// NewScheduleHandler creates a new schedule handler
func NewScheduleHandler(planner SchedulePlanner) *ScheduleHandler {
	return &ScheduleHandler{planner: planner}
}

// RegisterRoutes registers schedule routes. The scheduling endpoint
// itself lives under /drafts and is registered by the draft handler.
func (h *ScheduleHandler) RegisterRoutes(r chi.Router) {
	r.Route("/schedule", func(r chi.Router) {
		r.Get("/", h.List())
		r.Delete("/{id}", h.Cancel())
	})
}

// ListScheduleResponse represents the response for listing the queue
type ListScheduleResponse struct {
	Entries []entity.Entry `json:"entries"`
	Total   int            `json:"total"`
}

// List handles GET /schedule
func (h *ScheduleHandler) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := h.planner.ListPending(r.Context())
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		response.OK(w, ListScheduleResponse{Entries: entries, Total: len(entries)})
	}
}

// Cancel handles DELETE /schedule/{id}
func (h *ScheduleHandler) Cancel() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		if err := h.planner.Cancel(r.Context(), id); err != nil {
			handleScheduleError(w, err)
			return
		}

		response.NoContent(w)
	}
}

func handleScheduleError(w http.ResponseWriter, err error) {
	switch err {
	case entity.ErrEntryNotFound:
		response.NotFound(w, err.Error())
	case entity.ErrEntryAlreadyResolved:
		response.Conflict(w, err.Error())
	case entity.ErrEmptyDraftID, entity.ErrNoChannels:
		response.BadRequest(w, err.Error())
	default:
		response.InternalError(w, "internal server error")
	}
}
