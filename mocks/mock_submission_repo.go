package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"tallyocr/internal/domain"
)

// MockSubmissionRepo is a mock implementation of port.SubmissionRepository.
type MockSubmissionRepo struct {
	mock.Mock
}

func (m *MockSubmissionRepo) Create(ctx context.Context, attempt *domain.SubmissionAttempt) error {
	args := m.Called(ctx, attempt)
	return args.Error(0)
}

func (m *MockSubmissionRepo) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]domain.SubmissionAttempt, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SubmissionAttempt), args.Error(1)
}
