// Package repository handles data persistence.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/feedbackhub/feedbackhub/internal/database"
	"github.com/feedbackhub/feedbackhub/internal/models"
)

// FeedbackRepository defines the interface for feedback persistence operations.
type FeedbackRepository interface {
	// Create stores a new feedback entry and returns the created entity.
	Create(ctx context.Context, create *models.FeedbackCreate) (*models.Feedback, error)

	// List returns every feedback entry, newest first.
	List(ctx context.Context) ([]*models.Feedback, error)

	// GetByID retrieves a feedback entry and its comments.
	GetByID(ctx context.Context, id string) (*models.Feedback, error)

	// Upvote atomically increments the upvote counter and returns the updated entry.
	Upvote(ctx context.Context, id string) (*models.Feedback, error)

	// UpdateStatus changes the lifecycle status of an entry.
	UpdateStatus(ctx context.Context, id string, status models.Status) (*models.Feedback, error)

	// Delete removes a feedback entry and its comments.
	Delete(ctx context.Context, id string) error

	// AddComment attaches a comment to a feedback entry.
	AddComment(ctx context.Context, feedbackID string, create *models.CommentCreate) (*models.Comment, error)

	// ListComments returns the comments of a feedback entry, oldest first.
	ListComments(ctx context.Context, feedbackID string) ([]models.Comment, error)

	// HealthCheck verifies the repository is healthy.
	HealthCheck(ctx context.Context) error
}

// pgUniqueViolation is the SQLSTATE for unique constraint violations.
const pgUniqueViolation = "23505"

const feedbackColumns = `id, title, description, category, status, upvotes, author, created_at, updated_at`

// PostgresFeedbackRepository implements FeedbackRepository using PostgreSQL.
type PostgresFeedbackRepository struct {
	pool *database.Pool
}

// NewPostgresFeedbackRepository creates a new PostgreSQL-backed feedback repository.
func NewPostgresFeedbackRepository(pool *database.Pool) *PostgresFeedbackRepository {
	return &PostgresFeedbackRepository{pool: pool}
}

// Create stores a new feedback entry.
func (r *PostgresFeedbackRepository) Create(ctx context.Context, create *models.FeedbackCreate) (*models.Feedback, error) {
	create.Normalize()
	if err := create.Validate(); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO feedback (id, title, description, category, status, author)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + feedbackColumns

	row := r.pool.QueryRow(ctx, query,
		uuid.New(),
		create.Title,
		create.Description,
		create.Category,
		string(create.Status),
		create.Author,
	)

	fb, err := scanFeedback(row)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, models.ErrDuplicateTitle
		}
		return nil, fmt.Errorf("failed to create feedback: %w", err)
	}

	fb.Comments = []models.Comment{}
	return fb, nil
}

// List returns every feedback entry with its comments, newest first.
func (r *PostgresFeedbackRepository) List(ctx context.Context) ([]*models.Feedback, error) {
	query := `SELECT ` + feedbackColumns + ` FROM feedback ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	defer rows.Close()

	var (
		items = make([]*models.Feedback, 0)
		ids   = make([]uuid.UUID, 0)
		byID  = make(map[string]*models.Feedback)
	)
	for rows.Next() {
		fb, err := scanFeedback(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		fb.Comments = []models.Comment{}
		items = append(items, fb)
		byID[fb.ID] = fb
		ids = append(ids, uuid.MustParse(fb.ID))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}

	if len(ids) == 0 {
		return items, nil
	}

	commentRows, err := r.pool.Query(ctx, `
		SELECT feedback_id, id, author, author_image, content, created_at
		FROM feedback_comments
		WHERE feedback_id = ANY($1)
		ORDER BY created_at ASC
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer commentRows.Close()

	for commentRows.Next() {
		var (
			feedbackID uuid.UUID
			id         uuid.UUID
			c          models.Comment
		)
		if err := commentRows.Scan(&feedbackID, &id, &c.Author, &c.AuthorImage, &c.Content, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		c.ID = id.String()
		if fb, ok := byID[feedbackID.String()]; ok {
			fb.Comments = append(fb.Comments, c)
		}
	}
	if err := commentRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	return items, nil
}

// GetByID retrieves a feedback entry by its ID.
func (r *PostgresFeedbackRepository) GetByID(ctx context.Context, id string) (*models.Feedback, error) {
	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + feedbackColumns + ` FROM feedback WHERE id = $1`

	fb, err := scanFeedback(r.pool.QueryRow(ctx, query, uid))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrFeedbackNotFound
		}
		return nil, fmt.Errorf("failed to get feedback: %w", err)
	}

	comments, err := r.listComments(ctx, uid)
	if err != nil {
		return nil, err
	}
	fb.Comments = comments

	return fb, nil
}

// Upvote increments the upvote counter in a single statement.
func (r *PostgresFeedbackRepository) Upvote(ctx context.Context, id string) (*models.Feedback, error) {
	return r.update(ctx, id, `
		UPDATE feedback SET upvotes = upvotes + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING `+feedbackColumns)
}

// UpdateStatus changes the status of a feedback entry.
func (r *PostgresFeedbackRepository) UpdateStatus(ctx context.Context, id string, status models.Status) (*models.Feedback, error) {
	if !status.Valid() {
		return nil, models.ErrInvalidStatus
	}
	return r.update(ctx, id, `
		UPDATE feedback SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+feedbackColumns, string(status))
}

// Delete removes a feedback entry by its ID.
func (r *PostgresFeedbackRepository) Delete(ctx context.Context, id string) error {
	uid, err := parseID(id)
	if err != nil {
		return err
	}

	result, err := r.pool.Exec(ctx, `DELETE FROM feedback WHERE id = $1`, uid)
	if err != nil {
		return fmt.Errorf("failed to delete feedback: %w", err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrFeedbackNotFound
	}

	return nil
}

// AddComment attaches a comment to an existing feedback entry.
func (r *PostgresFeedbackRepository) AddComment(ctx context.Context, feedbackID string, create *models.CommentCreate) (*models.Comment, error) {
	if err := create.Validate(); err != nil {
		return nil, err
	}

	uid, err := parseID(feedbackID)
	if err != nil {
		return nil, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Touch the parent first so a missing entry surfaces as not found.
	result, err := tx.Exec(ctx, `UPDATE feedback SET updated_at = NOW() WHERE id = $1`, uid)
	if err != nil {
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return nil, models.ErrFeedbackNotFound
	}

	var (
		id uuid.UUID
		c  models.Comment
	)
	err = tx.QueryRow(ctx, `
		INSERT INTO feedback_comments (id, feedback_id, author, author_image, content)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, author, author_image, content, created_at
	`, uuid.New(), uid, strings.TrimSpace(create.Author), create.AuthorImage, strings.TrimSpace(create.Content)).
		Scan(&id, &c.Author, &c.AuthorImage, &c.Content, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}
	c.ID = id.String()

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit comment: %w", err)
	}

	return &c, nil
}

// ListComments returns the comments of a feedback entry.
func (r *PostgresFeedbackRepository) ListComments(ctx context.Context, feedbackID string) ([]models.Comment, error) {
	uid, err := parseID(feedbackID)
	if err != nil {
		return nil, err
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM feedback WHERE id = $1)`, uid).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check existence: %w", err)
	}
	if !exists {
		return nil, models.ErrFeedbackNotFound
	}

	return r.listComments(ctx, uid)
}

// HealthCheck verifies the database connection is healthy.
func (r *PostgresFeedbackRepository) HealthCheck(ctx context.Context) error {
	return r.pool.HealthCheck(ctx)
}

func (r *PostgresFeedbackRepository) update(ctx context.Context, id, query string, args ...any) (*models.Feedback, error) {
	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	fb, err := scanFeedback(r.pool.QueryRow(ctx, query, append([]any{uid}, args...)...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrFeedbackNotFound
		}
		return nil, fmt.Errorf("failed to update feedback: %w", err)
	}

	comments, err := r.listComments(ctx, uid)
	if err != nil {
		return nil, err
	}
	fb.Comments = comments

	return fb, nil
}

func (r *PostgresFeedbackRepository) listComments(ctx context.Context, feedbackID uuid.UUID) ([]models.Comment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, author, author_image, content, created_at
		FROM feedback_comments
		WHERE feedback_id = $1
		ORDER BY created_at ASC
	`, feedbackID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	comments := make([]models.Comment, 0)
	for rows.Next() {
		var (
			id uuid.UUID
			c  models.Comment
		)
		if err := rows.Scan(&id, &c.Author, &c.AuthorImage, &c.Content, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		c.ID = id.String()
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	return comments, nil
}

func scanFeedback(row pgx.Row) (*models.Feedback, error) {
	var (
		fb     models.Feedback
		id     uuid.UUID
		status string
	)
	err := row.Scan(
		&id,
		&fb.Title,
		&fb.Description,
		&fb.Category,
		&status,
		&fb.Upvotes,
		&fb.Author,
		&fb.CreatedAt,
		&fb.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	fb.ID = id.String()
	fb.Status = models.Status(status)
	return &fb, nil
}

// parseID maps malformed identifiers to not found; no row can carry them.
func parseID(id string) (uuid.UUID, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, models.ErrFeedbackNotFound
	}
	return uid, nil
}

// isDuplicateKeyError checks if the error is a unique violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
