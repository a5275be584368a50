// Package chatbot answers product questions about the feedback board using a
// hosted generative model.
package chatbot

import (
	"context"
	"errors"
	"strings"
)

// ErrNotConfigured is returned when no model API key is available.
var ErrNotConfigured = errors.New("Gemini API key is not configured")

// Roles used in conversation history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message of a prior conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Responder produces an assistant reply for a user message.
type Responder interface {
	Reply(ctx context.Context, message string, history []Turn) (string, error)
}

// systemContext primes the model with what the board offers.
const systemContext = `You are a helpful assistant for FeedbackHub, a feedback management platform. 
Your role is to:
- Help users understand how to use the platform
- Answer questions about feedback submission, upvoting, and commenting
- Provide guidance on features like dark mode, filtering, and sorting
- Be friendly, concise, and helpful

Platform Features:
- Users can submit feedback with title, description, category
- Feedback can be upvoted by other users
- Each feedback has a status: Pending, In Progress, Completed, or Rejected
- Users can comment on feedback posts (requires login)
- Dark mode is available via the profile dropdown
- Visitors can browse but need to sign in with GitHub to submit or comment

Answer user questions naturally and helpfully.`

// BuildPrompt renders the single-shot prompt sent to the model. Any role other
// than "user" is rendered as the assistant.
func BuildPrompt(message string, history []Turn) string {
	var b strings.Builder
	b.WriteString(systemContext)
	b.WriteString("\n\n")

	if len(history) > 0 {
		b.WriteString("Previous conversation:\n")
		for i, turn := range history {
			if i > 0 {
				b.WriteString("\n")
			}
			if turn.Role == RoleUser {
				b.WriteString("User: ")
			} else {
				b.WriteString("Assistant: ")
			}
			b.WriteString(turn.Content)
		}
		b.WriteString("\n\n")
	}

	b.WriteString("User: ")
	b.WriteString(message)
	b.WriteString("\nAssistant:")
	return b.String()
}
