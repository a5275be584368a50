package chatbot

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPrompt(t *testing.T) {
	t.Run("without history", func(t *testing.T) {
		prompt := BuildPrompt("How do I upvote?", nil)

		assert.True(t, strings.HasPrefix(prompt, "You are a helpful assistant for FeedbackHub"))
		assert.NotContains(t, prompt, "Previous conversation:")
		assert.True(t, strings.HasSuffix(prompt, "Answer user questions naturally and helpfully.\n\nUser: How do I upvote?\nAssistant:"))
	})

	t.Run("with history", func(t *testing.T) {
		prompt := BuildPrompt("And comments?", []Turn{
			{Role: RoleUser, Content: "Hi"},
			{Role: RoleAssistant, Content: "Hello!"},
			{Role: "model", Content: "Anything else?"},
		})

		want := "Previous conversation:\nUser: Hi\nAssistant: Hello!\nAssistant: Anything else?\n\nUser: And comments?\nAssistant:"
		assert.True(t, strings.HasSuffix(prompt, want))
	})
}
