package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"tallyocr/internal/domain"
)

// MockDataValueSubmitter is a mock implementation of port.DataValueSubmitter.
type MockDataValueSubmitter struct {
	mock.Mock
}

func (m *MockDataValueSubmitter) SubmitDataValues(ctx context.Context, payload *domain.SubmissionPayload, dryRun bool) (*domain.SubmissionResult, error) {
	args := m.Called(ctx, payload, dryRun)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SubmissionResult), args.Error(1)
}
