package services

import (
	"context"
	"errors"
	"strings"

	"github.com/feedbackhub/feedbackhub/internal/chatbot"
	"github.com/feedbackhub/feedbackhub/internal/metrics"
	"github.com/feedbackhub/feedbackhub/pkg/logger"
)

// ErrEmptyMessage is returned when the chatbot receives no message.
var ErrEmptyMessage = errors.New("Message is required")

// Chatbot outcome labels.
const (
	outcomeSuccess       = "success"
	outcomeError         = "error"
	outcomeNotConfigured = "not_configured"
)

// ChatbotService defines the assistant operation exposed over HTTP.
type ChatbotService interface {
	Reply(ctx context.Context, message string, history []chatbot.Turn) (string, error)
}

// ChatbotServiceImpl implements ChatbotService on top of a model Responder.
type ChatbotServiceImpl struct {
	responder chatbot.Responder
	log       *logger.Logger
}

var _ ChatbotService = (*ChatbotServiceImpl)(nil)

// NewChatbotService creates a new ChatbotService. A nil responder behaves as
// an unconfigured model.
func NewChatbotService(responder chatbot.Responder, log *logger.Logger) *ChatbotServiceImpl {
	if log == nil {
		log = logger.Nop()
	}
	return &ChatbotServiceImpl{responder: responder, log: log}
}

// Reply validates the message and asks the model for an answer.
func (s *ChatbotServiceImpl) Reply(ctx context.Context, message string, history []chatbot.Turn) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", ErrEmptyMessage
	}

	if s.responder == nil {
		metrics.RecordChatbotRequest(outcomeNotConfigured)
		return "", chatbot.ErrNotConfigured
	}

	text, err := s.responder.Reply(ctx, message, history)
	if err != nil {
		if errors.Is(err, chatbot.ErrNotConfigured) {
			metrics.RecordChatbotRequest(outcomeNotConfigured)
		} else {
			metrics.RecordChatbotRequest(outcomeError)
		}
		s.log.Error("chatbot reply failed", "error", err)
		return "", err
	}

	metrics.RecordChatbotRequest(outcomeSuccess)
	return text, nil
}
