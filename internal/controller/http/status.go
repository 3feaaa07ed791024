package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vadim/postline/internal/domain/schedule/entity"
	"github.com/vadim/postline/internal/httpx/response"
)

// BreakerControl defines the interface for breaker inspection and the
// manual reset override
type BreakerControl interface {
	IsOpen() bool
	Status() string
	Reset()
}

// DraftCounter reports how many drafts are awaiting a decision
type DraftCounter interface {
	ActiveCount() int
}

// PendingLister reports the entries still waiting in the queue
type PendingLister interface {
	ListPending(ctx context.Context) ([]entity.Entry, error)
}

// ChannelLister reports the configured output channels
type ChannelLister interface {
	Names() []string
}

// StatusHandler handles HTTP requests for operational status
type StatusHandler struct {
	breaker  BreakerControl
	drafts   DraftCounter
	schedule PendingLister
	channels ChannelLister
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(breaker BreakerControl, drafts DraftCounter, schedule PendingLister, channels ChannelLister) *StatusHandler {
	return &StatusHandler{breaker: breaker, drafts: drafts, schedule: schedule, channels: channels}
}

// RegisterRoutes registers status routes
func (h *StatusHandler) RegisterRoutes(r chi.Router) {
	r.Get("/status", h.Status())
	r.Post("/breaker/reset", h.ResetBreaker())
}

// StatusResponse represents the operational status snapshot
type StatusResponse struct {
	BreakerOpen    bool     `json:"breaker_open"`
	BreakerStatus  string   `json:"breaker_status"`
	ActiveDrafts   int      `json:"active_drafts"`
	PendingEntries int      `json:"pending_entries"`
	Channels       []string `json:"channels"`
}

// Status handles GET /status
func (h *StatusHandler) Status() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pending, err := h.schedule.ListPending(r.Context())
		if err != nil {
			response.InternalError(w, "failed to read schedule queue")
			return
		}

		response.OK(w, StatusResponse{
			BreakerOpen:    h.breaker.IsOpen(),
			BreakerStatus:  h.breaker.Status(),
			ActiveDrafts:   h.drafts.ActiveCount(),
			PendingEntries: len(pending),
			Channels:       h.channels.Names(),
		})
	}
}

// ResetBreaker handles POST /breaker/reset
func (h *StatusHandler) ResetBreaker() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.breaker.Reset()
		response.OK(w, map[string]string{"breaker_status": h.breaker.Status()})
	}
}
