package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/feedbackhub/feedbackhub/internal/chatbot"
	"github.com/feedbackhub/feedbackhub/internal/models"
	"github.com/feedbackhub/feedbackhub/internal/services"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Code    string      `json:"code,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// mapErrorToResponse maps domain errors to HTTP status codes and bodies.
func mapErrorToResponse(err error) (int, ErrorResponse) {
	var verr *models.ValidationError

	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid input",
			Code:    "INVALID_INPUT",
			Details: verr.Fields,
		}
	case errors.Is(err, models.ErrInvalidComment):
		return http.StatusBadRequest, ErrorResponse{
			Error: "Content and author are required",
			Code:  "INVALID_COMMENT",
		}
	case errors.Is(err, services.ErrUnsafeAuthorImage):
		return http.StatusBadRequest, ErrorResponse{
			Error: services.ErrUnsafeAuthorImage.Error(),
			Code:  "INVALID_AUTHOR_IMAGE",
		}
	case errors.Is(err, models.ErrInvalidStatus):
		return http.StatusBadRequest, ErrorResponse{
			Error: "Status must be one of pending, in-progress, completed",
			Code:  "INVALID_STATUS",
		}
	case errors.Is(err, models.ErrFeedbackNotFound):
		return http.StatusNotFound, ErrorResponse{
			Error: "Feedback not found",
			Code:  "NOT_FOUND",
		}
	case errors.Is(err, models.ErrDuplicateTitle):
		return http.StatusConflict, ErrorResponse{
			Error: "You have already submitted feedback with this title",
			Code:  "DUPLICATE_TITLE",
		}
	case errors.Is(err, services.ErrEmptyMessage):
		return http.StatusBadRequest, ErrorResponse{
			Error: services.ErrEmptyMessage.Error(),
			Code:  "EMPTY_MESSAGE",
		}
	case errors.Is(err, chatbot.ErrNotConfigured):
		return http.StatusInternalServerError, ErrorResponse{
			Error: chatbot.ErrNotConfigured.Error(),
			Code:  "NOT_CONFIGURED",
		}
	default:
		return http.StatusInternalServerError, ErrorResponse{
			Error: "internal server error",
			Code:  "INTERNAL_ERROR",
		}
	}
}

// writeError maps err and writes it.
func writeError(w http.ResponseWriter, err error) {
	status, resp := mapErrorToResponse(err)
	writeJSON(w, status, resp)
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return false
	}
	return true
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
