package handlers

import (
	"errors"
	"net/http"

	"github.com/feedbackhub/feedbackhub/internal/chatbot"
	"github.com/feedbackhub/feedbackhub/internal/services"
)

// ChatRequest is the body of a chatbot call.
type ChatRequest struct {
	Message             string         `json:"message"`
	ConversationHistory []chatbot.Turn `json:"conversationHistory,omitempty"`
}

// ChatResponse is a successful chatbot reply.
type ChatResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

// ChatbotHandler handles the assistant endpoint.
type ChatbotHandler struct {
	service services.ChatbotService
}

// NewChatbotHandler creates a new ChatbotHandler.
func NewChatbotHandler(svc services.ChatbotService) *ChatbotHandler {
	return &ChatbotHandler{service: svc}
}

// Chat handles POST /api/chatbot.
func (h *ChatbotHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	text, err := h.service.Reply(r.Context(), req.Message, req.ConversationHistory)
	if err != nil {
		if errors.Is(err, services.ErrEmptyMessage) || errors.Is(err, chatbot.ErrNotConfigured) {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to generate response",
			Details: err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{Message: text, Success: true})
}
