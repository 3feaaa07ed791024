package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vadim/postline/internal/domain/draft/entity"
	"github.com/vadim/postline/internal/domain/draft/service"
	"github.com/vadim/postline/internal/domain/publish/policy"
	"github.com/vadim/postline/internal/httpx/response"
	"github.com/vadim/postline/internal/storage"
)

// maxImageSize caps draft image uploads at 10 MiB
const maxImageSize = 10 << 20

// DraftService defines the interface for draft lifecycle operations
// Interface is defined by consumer (handler), not provider (service)
type DraftService interface {
	Create(ctx context.Context, in service.CreateInput) (*entity.Draft, error)
	Get(ctx context.Context, id string) (*entity.Draft, error)
	Update(ctx context.Context, id string, in service.UpdateInput) (*entity.Draft, error)
	ApplyEdit(ctx context.Context, id, text, feedback string) (*entity.Draft, error)
	Approve(ctx context.Context, id string) (*entity.Draft, error)
	Reject(ctx context.Context, id, reason string) (*entity.Draft, error)
	List() []entity.Draft
}

// PublishPolicy defines the interface for immediate publishing
type PublishPolicy interface {
	PublishNow(ctx context.Context, draftID string, channels []string) (policy.FanoutResult, error)
}

// ImageStore defines the interface for draft image uploads. Nil when no
// object storage is configured.
type ImageStore interface {
	Upload(ctx context.Context, in storage.UploadInput) (*storage.UploadOutput, error)
}

// DraftHandler handles HTTP requests for drafts
type DraftHandler struct {
	drafts  DraftService
	publish PublishPolicy
	planner SchedulePlanner
	images  ImageStore
}

// NewDraftHandler creates a new draft handler
func NewDraftHandler(drafts DraftService, publish PublishPolicy, planner SchedulePlanner, images ImageStore) *DraftHandler {
	return &DraftHandler{drafts: drafts, publish: publish, planner: planner, images: images}
}

// RegisterRoutes registers draft routes
func (h *DraftHandler) RegisterRoutes(r chi.Router) {
	r.Route("/drafts", func(r chi.Router) {
		r.Post("/", h.Create())
		r.Get("/", h.List())
		r.Get("/{id}", h.Get())
		r.Patch("/{id}", h.Update())
		r.Post("/{id}/edit", h.Edit())
		r.Post("/{id}/approve", h.Approve())
		r.Post("/{id}/reject", h.Reject())
		r.Post("/{id}/image", h.UploadImage())
		r.Post("/{id}/publish", h.PublishNow())
		r.Post("/{id}/schedule", h.Schedule())
	})
}

// CreateDraftRequest represents the request body for creating a draft
type CreateDraftRequest struct {
	Topic           string   `json:"topic"`
	Text            string   `json:"text"`
	Author          string   `json:"author,omitempty"`
	Channels        []string `json:"channels,omitempty"`
	ImagePath       string   `json:"image_path,omitempty"`
	CalendarEntryID string   `json:"calendar_entry_id,omitempty"`
}

// Create handles POST /drafts
func (h *DraftHandler) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateDraftRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "invalid JSON")
			return
		}

		d, err := h.drafts.Create(r.Context(), service.CreateInput{
			Topic:           req.Topic,
			Text:            req.Text,
			Author:          req.Author,
			Channels:        req.Channels,
			ImagePath:       req.ImagePath,
			CalendarEntryID: req.CalendarEntryID,
		})
		if err != nil {
			handleDraftError(w, err)
			return
		}

		response.Created(w, d)
	}
}

// ListDraftsResponse represents the response for listing drafts
type ListDraftsResponse struct {
	Drafts []entity.Draft `json:"drafts"`
	Total  int            `json:"total"`
}

// List handles GET /drafts
func (h *DraftHandler) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		drafts := h.drafts.List()
		response.OK(w, ListDraftsResponse{Drafts: drafts, Total: len(drafts)})
	}
}

// Get handles GET /drafts/{id}
func (h *DraftHandler) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		d, err := h.drafts.Get(r.Context(), id)
		if err != nil {
			handleDraftError(w, err)
			return
		}

		response.OK(w, d)
	}
}

// UpdateDraftRequest represents the request body for a partial update.
// Fields outside this whitelist are rejected, not silently dropped.
type UpdateDraftRequest struct {
	Topic           *string  `json:"topic,omitempty"`
	ImagePath       *string  `json:"image_path,omitempty"`
	Channels        []string `json:"channels,omitempty"`
	CalendarEntryID *string  `json:"calendar_entry_id,omitempty"`
}

// Update handles PATCH /drafts/{id}
func (h *DraftHandler) Update() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()

		var req UpdateDraftRequest
		if err := dec.Decode(&req); err != nil {
			response.BadRequest(w, "invalid JSON: "+err.Error())
			return
		}

		d, err := h.drafts.Update(r.Context(), id, service.UpdateInput{
			Topic:           req.Topic,
			ImagePath:       req.ImagePath,
			Channels:        req.Channels,
			CalendarEntryID: req.CalendarEntryID,
		})
		if err != nil {
			handleDraftError(w, err)
			return
		}

		response.OK(w, d)
	}
}

// EditRequest represents the request body for an edit iteration
type EditRequest struct {
	Text     string `json:"text"`
	Feedback string `json:"feedback,omitempty"`
}

// Edit handles POST /drafts/{id}/edit
func (h *DraftHandler) Edit() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var req EditRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "invalid JSON")
			return
		}
		if req.Text == "" {
			response.BadRequest(w, "text is required")
			return
		}

		d, err := h.drafts.ApplyEdit(r.Context(), id, req.Text, req.Feedback)
		if err != nil {
			handleDraftError(w, err)
			return
		}

		response.OK(w, d)
	}
}

// Approve handles POST /drafts/{id}/approve
func (h *DraftHandler) Approve() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		d, err := h.drafts.Approve(r.Context(), id)
		if err != nil {
			handleDraftError(w, err)
			return
		}

		response.OK(w, d)
	}
}

// RejectRequest represents the request body for rejecting a draft
type RejectRequest struct {
	Reason string `json:"reason,omitempty"`
}

// Reject handles POST /drafts/{id}/reject
func (h *DraftHandler) Reject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var req RejectRequest
		if r.Body != nil {
			// Body is optional; a bare reject carries no reason.
			_ = json.NewDecoder(r.Body).Decode(&req)
		}

		d, err := h.drafts.Reject(r.Context(), id, req.Reason)
		if err != nil {
			handleDraftError(w, err)
			return
		}

		response.OK(w, d)
	}
}

// UploadImage handles POST /drafts/{id}/image
func (h *DraftHandler) UploadImage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		if h.images == nil {
			response.Error(w, http.StatusNotImplemented, "image storage is not configured")
			return
		}

		if err := r.ParseMultipartForm(maxImageSize); err != nil {
			response.BadRequest(w, "invalid multipart form")
			return
		}

		file, header, err := r.FormFile("image")
		if err != nil {
			response.BadRequest(w, "image file is required")
			return
		}
		defer file.Close()

		out, err := h.images.Upload(r.Context(), storage.UploadInput{
			Reader:      file,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			Filename:    header.Filename,
		})
		if err != nil {
			if err == storage.ErrUnsupportedImageType {
				response.BadRequest(w, err.Error())
				return
			}
			response.InternalError(w, "failed to store image")
			return
		}

		d, err := h.drafts.Update(r.Context(), id, service.UpdateInput{
			ImagePath: &out.URL,
		})
		if err != nil {
			handleDraftError(w, err)
			return
		}

		response.OK(w, d)
	}
}

// PublishNowRequest represents the request body for immediate publishing
type PublishNowRequest struct {
	Channels []string `json:"channels,omitempty"`
}

// PublishNowResponse represents per-channel outcomes of a manual publish
type PublishNowResponse struct {
	Results []ChannelResult `json:"results"`
	AllOK   bool            `json:"all_ok"`
}

// ChannelResult represents the outcome of one channel delivery
type ChannelResult struct {
	Channel string `json:"channel"`
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// PublishNow handles POST /drafts/{id}/publish
func (h *DraftHandler) PublishNow() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var req PublishNowRequest
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&req)
		}

		res, err := h.publish.PublishNow(r.Context(), id, req.Channels)
		if err != nil {
			handleDraftError(w, err)
			return
		}

		out := PublishNowResponse{AllOK: res.AllOK()}
		for _, leg := range res.Legs {
			out.Results = append(out.Results, ChannelResult{
				Channel: leg.Channel,
				OK:      leg.OK,
				Message: leg.Message,
			})
		}

		response.OK(w, out)
	}
}

// ScheduleRequest represents the request body for scheduling a draft.
// Either publish_at (RFC3339) or offset (now, 1h, 3h, tomorrow,
// evening) selects the publish time; offset wins when both are present.
type ScheduleRequest struct {
	Channels  []string `json:"channels,omitempty"`
	PublishAt string   `json:"publish_at,omitempty"`
	Offset    string   `json:"offset,omitempty"`
}

// Schedule handles POST /drafts/{id}/schedule
func (h *DraftHandler) Schedule() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var req ScheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "invalid JSON")
			return
		}

		d, err := h.drafts.Get(r.Context(), id)
		if err != nil {
			handleDraftError(w, err)
			return
		}
		if d.Status != entity.DraftStatusApproved {
			response.Conflict(w, "draft is not approved for scheduling")
			return
		}

		channels := req.Channels
		if len(channels) == 0 {
			channels = d.Channels
		}

		var publishAt time.Time
		switch {
		case req.Offset != "":
			publishAt = h.planner.TimeFromOffset(req.Offset)
		case req.PublishAt != "":
			publishAt, err = time.Parse(time.RFC3339, req.PublishAt)
			if err != nil {
				response.BadRequest(w, "invalid publish_at format, use RFC3339")
				return
			}
		default:
			response.BadRequest(w, "publish_at or offset is required")
			return
		}

		e, err := h.planner.Schedule(r.Context(), d.ID, channels, publishAt)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		response.Created(w, e)
	}
}

func handleDraftError(w http.ResponseWriter, err error) {
	switch err {
	case entity.ErrDraftNotFound:
		response.NotFound(w, err.Error())
	case entity.ErrDraftNotPending, entity.ErrDraftTerminal,
		entity.ErrEditLimitReached, policy.ErrDraftNotApproved:
		response.Conflict(w, err.Error())
	case entity.ErrEmptyTopic, entity.ErrEmptyText:
		response.BadRequest(w, err.Error())
	default:
		response.InternalError(w, "internal server error")
	}
}
