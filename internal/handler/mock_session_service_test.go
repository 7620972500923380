package handler_test

// MockSessionService lives with the handler tests rather than in the shared
// mocks package: it mocks a service interface, and the service's own tests
// import that package.

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"tallyocr/internal/domain"
	"tallyocr/internal/service"
)

// MockSessionService is a mock implementation of service.SessionService.
type MockSessionService struct {
	mock.Mock
}

func (m *MockSessionService) Create(ctx context.Context) (*domain.Session, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockSessionService) Get(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockSessionService) AddPage(ctx context.Context, input service.AddPageInput) (*domain.Page, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Page), args.Error(1)
}

func (m *MockSessionService) ListPages(ctx context.Context, sessionID uuid.UUID) ([]service.PageView, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]service.PageView), args.Error(1)
}

func (m *MockSessionService) GetPage(ctx context.Context, sessionID, pageID uuid.UUID) (*service.PageView, error) {
	args := m.Called(ctx, sessionID, pageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.PageView), args.Error(1)
}

func (m *MockSessionService) UpdateTable(ctx context.Context, input service.UpdateTableInput) (*domain.Table, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Table), args.Error(1)
}

func (m *MockSessionService) ReconcileTables(ctx context.Context, sessionID uuid.UUID) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func (m *MockSessionService) SelectOrgUnit(ctx context.Context, sessionID uuid.UUID, orgUnit domain.NameID) error {
	args := m.Called(ctx, sessionID, orgUnit)
	return args.Error(0)
}

func (m *MockSessionService) SelectFacility(ctx context.Context, sessionID uuid.UUID, facility domain.OrgUnitChild) error {
	args := m.Called(ctx, sessionID, facility)
	return args.Error(0)
}

func (m *MockSessionService) SelectDataSet(ctx context.Context, sessionID uuid.UUID, dataSetID string) error {
	args := m.Called(ctx, sessionID, dataSetID)
	return args.Error(0)
}

func (m *MockSessionService) SetPeriodStart(ctx context.Context, sessionID uuid.UUID, start time.Time) error {
	args := m.Called(ctx, sessionID, start)
	return args.Error(0)
}

func (m *MockSessionService) GenerateEntries(ctx context.Context, sessionID uuid.UUID) (*domain.SubmissionPayload, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SubmissionPayload), args.Error(1)
}

func (m *MockSessionService) Submit(ctx context.Context, sessionID uuid.UUID, dryRun bool) (*domain.SubmissionResult, error) {
	args := m.Called(ctx, sessionID, dryRun)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SubmissionResult), args.Error(1)
}

func (m *MockSessionService) Attempts(ctx context.Context, sessionID uuid.UUID) ([]domain.SubmissionAttempt, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SubmissionAttempt), args.Error(1)
}

func (m *MockSessionService) Clear(ctx context.Context, sessionID uuid.UUID) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}
