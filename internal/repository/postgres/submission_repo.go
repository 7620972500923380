package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"tallyocr/internal/domain"
	"tallyocr/internal/port"
)

type submissionRepo struct {
	db *sqlx.DB
}

// NewSubmissionRepo creates a new PostgreSQL-backed SubmissionRepository.
func NewSubmissionRepo(db *sqlx.DB) port.SubmissionRepository {
	return &submissionRepo{db: db}
}

func (r *submissionRepo) Create(ctx context.Context, attempt *domain.SubmissionAttempt) error {
	attempt.CreatedAt = time.Now().UTC()

	query := `INSERT INTO submission_attempts
		(id, session_id, payload, dry_run, status_code, response_body, succeeded, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, query,
		attempt.ID, attempt.SessionID, attempt.Payload, attempt.DryRun,
		attempt.StatusCode, attempt.ResponseBody, attempt.Succeeded, attempt.CreatedAt)
	if err != nil {
		return fmt.Errorf("submissionRepo.Create: %w", err)
	}
	return nil
}

func (r *submissionRepo) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]domain.SubmissionAttempt, error) {
	var attempts []domain.SubmissionAttempt
	err := r.db.SelectContext(ctx, &attempts,
		"SELECT * FROM submission_attempts WHERE session_id = $1 ORDER BY created_at DESC", sessionID)
	if err != nil {
		return nil, fmt.Errorf("submissionRepo.ListBySession: %w", err)
	}
	return attempts, nil
}
