package port

import (
	"context"

	"github.com/google/uuid"

	"tallyocr/internal/domain"
)

// PageRepository defines the contract for uploaded page persistence.
type PageRepository interface {
	Create(ctx context.Context, page *domain.Page) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Page, error)
	GetBySHA256(ctx context.Context, sha256 string) (*domain.Page, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]domain.Page, error)
	SetReviewed(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// SubmissionRepository defines the contract for the submission audit trail.
type SubmissionRepository interface {
	Create(ctx context.Context, attempt *domain.SubmissionAttempt) error
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]domain.SubmissionAttempt, error)
}
