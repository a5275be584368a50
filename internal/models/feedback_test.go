package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCreate() FeedbackCreate {
	return FeedbackCreate{
		Title:       "Dark mode",
		Description: "Please add a dark theme to the board",
		Category:    "feature",
		Author:      "octocat",
	}
}

func TestFeedbackCreate_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*FeedbackCreate)
		field   string
		wantErr bool
	}{
		{"valid", func(c *FeedbackCreate) {}, "", false},
		{"short title", func(c *FeedbackCreate) { c.Title = "ab" }, "title", true},
		{"whitespace title", func(c *FeedbackCreate) { c.Title = "  ab  " }, "title", true},
		{"short description", func(c *FeedbackCreate) { c.Description = "too short" }, "description", true},
		{"missing category", func(c *FeedbackCreate) { c.Category = " " }, "category", true},
		{"missing author", func(c *FeedbackCreate) { c.Author = "" }, "author", true},
		{"unknown status", func(c *FeedbackCreate) { c.Status = "rejected" }, "status", true},
		{"explicit status", func(c *FeedbackCreate) { c.Status = StatusInProgress }, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCreate()
			tt.mutate(&c)

			err := c.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidFeedback))

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
		})
	}
}

func TestFeedbackCreate_Normalize(t *testing.T) {
	c := FeedbackCreate{Title: "  Dark mode ", Author: " octocat"}
	c.Normalize()

	assert.Equal(t, "Dark mode", c.Title)
	assert.Equal(t, "octocat", c.Author)
	assert.Equal(t, StatusPending, c.Status)
}

func TestCommentCreate_Validate(t *testing.T) {
	assert.NoError(t, (&CommentCreate{Author: "a", Content: "nice"}).Validate())
	assert.ErrorIs(t, (&CommentCreate{Author: "a"}).Validate(), ErrInvalidComment)
	assert.ErrorIs(t, (&CommentCreate{Content: "nice"}).Validate(), ErrInvalidComment)
}

func TestStatus_Valid(t *testing.T) {
	assert.True(t, StatusPending.Valid())
	assert.True(t, StatusInProgress.Valid())
	assert.True(t, StatusCompleted.Valid())
	assert.False(t, Status("rejected").Valid())
	assert.False(t, Status("").Valid())
}
