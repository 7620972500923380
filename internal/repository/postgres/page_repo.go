package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"tallyocr/internal/domain"
	"tallyocr/internal/port"
)

type pageRepo struct {
	db *sqlx.DB
}

// NewPageRepo creates a new PostgreSQL-backed PageRepository.
func NewPageRepo(db *sqlx.DB) port.PageRepository {
	return &pageRepo{db: db}
}

func (r *pageRepo) Create(ctx context.Context, page *domain.Page) error {
	page.CreatedAt = time.Now().UTC()

	query := `INSERT INTO pages
		(id, session_id, original_name, content_type, file_size, sha256,
		 s3_bucket, s3_key, recognized_json, reviewed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.ExecContext(ctx, query,
		page.ID, page.SessionID, page.OriginalName, page.ContentType, page.FileSize,
		page.SHA256, page.S3Bucket, page.S3Key, page.RecognizedJSON, page.Reviewed,
		page.CreatedAt)
	if err != nil {
		return fmt.Errorf("pageRepo.Create: %w", err)
	}
	return nil
}

func (r *pageRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Page, error) {
	var page domain.Page
	err := r.db.GetContext(ctx, &page, "SELECT * FROM pages WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPageNotFound
		}
		return nil, fmt.Errorf("pageRepo.GetByID: %w", err)
	}
	return &page, nil
}

func (r *pageRepo) GetBySHA256(ctx context.Context, sha256 string) (*domain.Page, error) {
	var page domain.Page
	err := r.db.GetContext(ctx, &page,
		`SELECT * FROM pages
		 WHERE sha256 = $1 AND recognized_json IS NOT NULL
		 ORDER BY created_at DESC LIMIT 1`, sha256)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPageNotFound
		}
		return nil, fmt.Errorf("pageRepo.GetBySHA256: %w", err)
	}
	return &page, nil
}

func (r *pageRepo) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]domain.Page, error) {
	var pages []domain.Page
	err := r.db.SelectContext(ctx, &pages,
		"SELECT * FROM pages WHERE session_id = $1 ORDER BY created_at ASC", sessionID)
	if err != nil {
		return nil, fmt.Errorf("pageRepo.ListBySession: %w", err)
	}
	return pages, nil
}

func (r *pageRepo) SetReviewed(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE pages SET reviewed = TRUE WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("pageRepo.SetReviewed: %w", err)
	}
	return checkAffected(res, domain.ErrPageNotFound)
}

func (r *pageRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM pages WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("pageRepo.Delete: %w", err)
	}
	return checkAffected(res, domain.ErrPageNotFound)
}

func checkAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
