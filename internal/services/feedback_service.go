// Package services contains business logic.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/feedbackhub/feedbackhub/internal/metrics"
	"github.com/feedbackhub/feedbackhub/internal/models"
	"github.com/feedbackhub/feedbackhub/internal/repository"
	"github.com/feedbackhub/feedbackhub/internal/security"
	"github.com/feedbackhub/feedbackhub/pkg/logger"
)

// ErrUnsafeAuthorImage is returned when a comment avatar link is rejected.
var ErrUnsafeAuthorImage = errors.New("author image must be a public http(s) link")

// FeedbackService defines the board operations exposed over HTTP.
type FeedbackService interface {
	Create(ctx context.Context, create models.FeedbackCreate) (*models.Feedback, error)
	List(ctx context.Context) ([]*models.Feedback, error)
	Get(ctx context.Context, id string) (*models.Feedback, error)
	Upvote(ctx context.Context, id string) (*models.Feedback, error)
	UpdateStatus(ctx context.Context, id string, status models.Status) (*models.Feedback, error)
	Delete(ctx context.Context, id string) error
	AddComment(ctx context.Context, feedbackID string, create models.CommentCreate) (*models.Comment, error)
	ListComments(ctx context.Context, feedbackID string) ([]models.Comment, error)
}

// FeedbackServiceImpl implements FeedbackService.
type FeedbackServiceImpl struct {
	repo  repository.FeedbackRepository
	links *security.LinkValidator
	log   *logger.Logger
}

var _ FeedbackService = (*FeedbackServiceImpl)(nil)

// NewFeedbackService creates a new FeedbackService instance.
func NewFeedbackService(repo repository.FeedbackRepository, log *logger.Logger) *FeedbackServiceImpl {
	return NewFeedbackServiceWithValidator(repo, security.NewLinkValidator(security.DefaultPolicy()), log)
}

// NewFeedbackServiceWithValidator creates a FeedbackService with a custom link validator.
func NewFeedbackServiceWithValidator(repo repository.FeedbackRepository, links *security.LinkValidator, log *logger.Logger) *FeedbackServiceImpl {
	if log == nil {
		log = logger.Nop()
	}
	return &FeedbackServiceImpl{
		repo:  repo,
		links: links,
		log:   log,
	}
}

// Create validates and stores a new feedback entry.
func (s *FeedbackServiceImpl) Create(ctx context.Context, create models.FeedbackCreate) (*models.Feedback, error) {
	create.Normalize()
	if err := create.Validate(); err != nil {
		return nil, err
	}

	fb, err := s.repo.Create(ctx, &create)
	if err != nil {
		return nil, err
	}

	metrics.RecordFeedbackCreated()
	s.log.Info("feedback created", "id", fb.ID, "category", fb.Category)

	return fb, nil
}

// List returns all feedback, newest first.
func (s *FeedbackServiceImpl) List(ctx context.Context) ([]*models.Feedback, error) {
	return s.repo.List(ctx)
}

// Get retrieves a feedback entry by ID.
func (s *FeedbackServiceImpl) Get(ctx context.Context, id string) (*models.Feedback, error) {
	return s.repo.GetByID(ctx, id)
}

// Upvote adds one upvote to an entry.
func (s *FeedbackServiceImpl) Upvote(ctx context.Context, id string) (*models.Feedback, error) {
	return s.repo.Upvote(ctx, id)
}

// UpdateStatus moves an entry to a new status.
func (s *FeedbackServiceImpl) UpdateStatus(ctx context.Context, id string, status models.Status) (*models.Feedback, error) {
	if !status.Valid() {
		return nil, models.ErrInvalidStatus
	}

	fb, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}

	s.log.Info("feedback status changed", "id", id, "status", string(status))
	return fb, nil
}

// Delete removes an entry.
func (s *FeedbackServiceImpl) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.log.Info("feedback deleted", "id", id)
	return nil
}

// AddComment validates and attaches a comment.
func (s *FeedbackServiceImpl) AddComment(ctx context.Context, feedbackID string, create models.CommentCreate) (*models.Comment, error) {
	if err := create.Validate(); err != nil {
		return nil, err
	}

	create.AuthorImage = strings.TrimSpace(create.AuthorImage)
	if create.AuthorImage != "" && s.links != nil {
		if err := s.links.Check(create.AuthorImage); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnsafeAuthorImage, err)
		}
	}

	return s.repo.AddComment(ctx, feedbackID, &create)
}

// ListComments returns the comments of an entry.
func (s *FeedbackServiceImpl) ListComments(ctx context.Context, feedbackID string) ([]models.Comment, error) {
	return s.repo.ListComments(ctx, feedbackID)
}
