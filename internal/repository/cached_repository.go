package repository

import (
	"context"

	"github.com/feedbackhub/feedbackhub/internal/cache"
	"github.com/feedbackhub/feedbackhub/internal/metrics"
	"github.com/feedbackhub/feedbackhub/internal/models"
)

// CachedFeedbackRepository wraps a FeedbackRepository with a read-through
// cache for single-entry lookups. Mutations invalidate the cached entry.
type CachedFeedbackRepository struct {
	repo  FeedbackRepository
	cache cache.FeedbackCacher
}

var _ FeedbackRepository = (*CachedFeedbackRepository)(nil)

// NewCachedFeedbackRepository creates a new cached feedback repository.
func NewCachedFeedbackRepository(repo FeedbackRepository, feedbackCache cache.FeedbackCacher) *CachedFeedbackRepository {
	return &CachedFeedbackRepository{
		repo:  repo,
		cache: feedbackCache,
	}
}

// Create stores a new entry in the database and caches it.
func (c *CachedFeedbackRepository) Create(ctx context.Context, create *models.FeedbackCreate) (*models.Feedback, error) {
	fb, err := c.repo.Create(ctx, create)
	if err != nil {
		return nil, err
	}

	// Cache errors are not critical.
	_ = c.cache.Set(ctx, fb)

	return fb, nil
}

// List always reads from the database.
func (c *CachedFeedbackRepository) List(ctx context.Context) ([]*models.Feedback, error) {
	return c.repo.List(ctx)
}

// GetByID checks the cache first, then falls back to the database.
func (c *CachedFeedbackRepository) GetByID(ctx context.Context, id string) (*models.Feedback, error) {
	if fb, err := c.cache.Get(ctx, id); err == nil {
		metrics.RecordCacheHit()
		return fb, nil
	}
	metrics.RecordCacheMiss()

	fb, err := c.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	_ = c.cache.Set(ctx, fb)

	return fb, nil
}

// Upvote increments the counter and invalidates the cached entry.
func (c *CachedFeedbackRepository) Upvote(ctx context.Context, id string) (*models.Feedback, error) {
	fb, err := c.repo.Upvote(ctx, id)
	_ = c.cache.Delete(ctx, id)
	return fb, err
}

// UpdateStatus changes the status and invalidates the cached entry.
func (c *CachedFeedbackRepository) UpdateStatus(ctx context.Context, id string, status models.Status) (*models.Feedback, error) {
	fb, err := c.repo.UpdateStatus(ctx, id, status)
	_ = c.cache.Delete(ctx, id)
	return fb, err
}

// Delete removes the entry from the database and then invalidates the cache.
// A read racing the delete may cache the row; the invalidation must come last.
func (c *CachedFeedbackRepository) Delete(ctx context.Context, id string) error {
	err := c.repo.Delete(ctx, id)
	_ = c.cache.Delete(ctx, id)
	return err
}

// AddComment stores the comment and invalidates the parent entry.
func (c *CachedFeedbackRepository) AddComment(ctx context.Context, feedbackID string, create *models.CommentCreate) (*models.Comment, error) {
	comment, err := c.repo.AddComment(ctx, feedbackID, create)
	_ = c.cache.Delete(ctx, feedbackID)
	return comment, err
}

// ListComments reads comments from the database.
func (c *CachedFeedbackRepository) ListComments(ctx context.Context, feedbackID string) ([]models.Comment, error) {
	return c.repo.ListComments(ctx, feedbackID)
}

// HealthCheck checks both cache and database health.
func (c *CachedFeedbackRepository) HealthCheck(ctx context.Context) error {
	if err := c.cache.Ping(ctx); err != nil {
		return err
	}
	return c.repo.HealthCheck(ctx)
}
