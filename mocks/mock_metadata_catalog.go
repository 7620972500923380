package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"tallyocr/internal/domain"
)

// MockMetadataCatalog is a mock implementation of port.MetadataCatalog.
type MockMetadataCatalog struct {
	mock.Mock
}

func (m *MockMetadataCatalog) SearchOrgUnitUIDs(ctx context.Context, name string) ([]domain.NameID, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.NameID), args.Error(1)
}

func (m *MockMetadataCatalog) OrgUnitChildren(ctx context.Context, orgUnitID string) ([]domain.OrgUnitChild, error) {
	args := m.Called(ctx, orgUnitID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.OrgUnitChild), args.Error(1)
}

func (m *MockMetadataCatalog) DataSets(ctx context.Context, ids []string) ([]domain.DataSetInfo, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DataSetInfo), args.Error(1)
}

func (m *MockMetadataCatalog) FormCatalog(ctx context.Context, dataSetID string) (*domain.FieldCatalog, error) {
	args := m.Called(ctx, dataSetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FieldCatalog), args.Error(1)
}
