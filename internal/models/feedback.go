// Package models contains domain models and entities.
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Status is the lifecycle state of a feedback entry.
type Status string

// Feedback statuses.
const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Feedback represents a feature request or bug report on the board.
type Feedback struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Status      Status    `json:"status"`
	Upvotes     int64     `json:"upvotes"`
	Author      string    `json:"author"`
	Comments    []Comment `json:"comments"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Comment is a reply attached to a feedback entry.
type Comment struct {
	ID          string    `json:"id"`
	Author      string    `json:"author"`
	AuthorImage string    `json:"authorImage,omitempty"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"createdAt"`
}

// FeedbackCreate represents the data needed to create a feedback entry.
type FeedbackCreate struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Status      Status `json:"status,omitempty"`
	Author      string `json:"author"`
}

// CommentCreate represents the data needed to add a comment.
type CommentCreate struct {
	Author      string `json:"author"`
	AuthorImage string `json:"authorImage,omitempty"`
	Content     string `json:"content"`
}

// Validation and lookup errors
var (
	ErrInvalidFeedback  = errors.New("invalid feedback")
	ErrInvalidComment   = errors.New("content and author are required")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrFeedbackNotFound = errors.New("feedback not found")
	ErrDuplicateTitle   = errors.New("you have already submitted feedback with this title")
)

// Field length minimums.
const (
	MinTitleLength       = 3
	MinDescriptionLength = 10
)

// ValidationError lists the offending fields of a rejected input.
type ValidationError struct {
	Fields map[string]string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	return fmt.Sprintf("%s: %s", ErrInvalidFeedback, strings.Join(parts, "; "))
}

// Unwrap lets errors.Is match ErrInvalidFeedback.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidFeedback
}

// Normalize trims text fields and applies the default status.
func (c *FeedbackCreate) Normalize() {
	c.Title = strings.TrimSpace(c.Title)
	c.Description = strings.TrimSpace(c.Description)
	c.Category = strings.TrimSpace(c.Category)
	c.Author = strings.TrimSpace(c.Author)
	if c.Status == "" {
		c.Status = StatusPending
	}
}

// Validate validates the FeedbackCreate data.
func (c *FeedbackCreate) Validate() error {
	fields := make(map[string]string)

	if utf8.RuneCountInString(strings.TrimSpace(c.Title)) < MinTitleLength {
		fields["title"] = fmt.Sprintf("Title must be at least %d characters", MinTitleLength)
	}
	if utf8.RuneCountInString(strings.TrimSpace(c.Description)) < MinDescriptionLength {
		fields["description"] = fmt.Sprintf("Description must be at least %d characters", MinDescriptionLength)
	}
	if strings.TrimSpace(c.Category) == "" {
		fields["category"] = "Category is required"
	}
	if strings.TrimSpace(c.Author) == "" {
		fields["author"] = "Author is required"
	}
	if c.Status != "" && !c.Status.Valid() {
		fields["status"] = "Status must be one of pending, in-progress, completed"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Validate validates the CommentCreate data.
func (c *CommentCreate) Validate() error {
	if strings.TrimSpace(c.Content) == "" || strings.TrimSpace(c.Author) == "" {
		return ErrInvalidComment
	}
	return nil
}
