package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/feedbackhub/feedbackhub/internal/models"
	"github.com/feedbackhub/feedbackhub/internal/services"
	"github.com/feedbackhub/feedbackhub/pkg/logger"
)

// StatusRequest is the body of a status change.
type StatusRequest struct {
	Status models.Status `json:"status"`
}

// CommentsResponse wraps a comment list.
type CommentsResponse struct {
	Comments []models.Comment `json:"comments"`
}

// CommentResponse wraps a single created comment.
type CommentResponse struct {
	Comment *models.Comment `json:"comment"`
}

// FeedbackHandler handles feedback board endpoints.
type FeedbackHandler struct {
	service services.FeedbackService
	log     *logger.Logger
}

// NewFeedbackHandler creates a new FeedbackHandler.
func NewFeedbackHandler(svc services.FeedbackService, log *logger.Logger) *FeedbackHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &FeedbackHandler{service: svc, log: log}
}

// List handles GET /api/feedback.
func (h *FeedbackHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to fetch feedback", err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// Create handles POST /api/feedback.
func (h *FeedbackHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.FeedbackCreate
	if !decodeJSON(w, r, &req) {
		return
	}

	fb, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.fail(w, r, "Failed to create feedback", err)
		return
	}
	writeJSON(w, http.StatusCreated, fb)
}

// Get handles GET /api/feedback/{id}.
func (h *FeedbackHandler) Get(w http.ResponseWriter, r *http.Request) {
	fb, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "Failed to fetch feedback", err)
		return
	}
	writeJSON(w, http.StatusOK, fb)
}

// Upvote handles PATCH /api/feedback/{id}.
func (h *FeedbackHandler) Upvote(w http.ResponseWriter, r *http.Request) {
	fb, err := h.service.Upvote(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "Failed to upvote feedback", err)
		return
	}
	writeJSON(w, http.StatusOK, fb)
}

// UpdateStatus handles PUT /api/feedback/{id}/status.
func (h *FeedbackHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	fb, err := h.service.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		h.fail(w, r, "Failed to update feedback", err)
		return
	}
	writeJSON(w, http.StatusOK, fb)
}

// Delete handles DELETE /api/feedback/{id}.
func (h *FeedbackHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, "Failed to delete feedback", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListComments handles GET /api/feedback/{id}/comments.
func (h *FeedbackHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.service.ListComments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "Failed to fetch comments", err)
		return
	}
	writeJSON(w, http.StatusOK, CommentsResponse{Comments: comments})
}

// AddComment handles POST /api/feedback/{id}/comments.
func (h *FeedbackHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	var req models.CommentCreate
	if !decodeJSON(w, r, &req) {
		return
	}

	c, err := h.service.AddComment(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.fail(w, r, "Failed to add comment", err)
		return
	}
	writeJSON(w, http.StatusCreated, CommentResponse{Comment: c})
}

// fail writes a mapped error. Unmapped errors are logged and reported with
// the route's generic message.
func (h *FeedbackHandler) fail(w http.ResponseWriter, r *http.Request, generic string, err error) {
	status, resp := mapErrorToResponse(err)
	if status == http.StatusInternalServerError {
		h.log.Error(generic, "error", err, "path", r.URL.Path)
		resp.Error = generic
	}
	writeJSON(w, status, resp)
}
