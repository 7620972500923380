package port

import (
	"context"

	"tallyocr/internal/domain"
)

// MetadataCatalog defines the contract for reading the health information
// system's metadata: organisation units, datasets, and the field catalog a
// dataset's forms are built from.
type MetadataCatalog interface {
	SearchOrgUnitUIDs(ctx context.Context, name string) ([]domain.NameID, error)
	OrgUnitChildren(ctx context.Context, orgUnitID string) ([]domain.OrgUnitChild, error)
	DataSets(ctx context.Context, ids []string) ([]domain.DataSetInfo, error)
	FormCatalog(ctx context.Context, dataSetID string) (*domain.FieldCatalog, error)
}

// DataValueSubmitter defines the contract for pushing a completed data value
// set to the health information system.
type DataValueSubmitter interface {
	SubmitDataValues(ctx context.Context, payload *domain.SubmissionPayload, dryRun bool) (*domain.SubmissionResult, error)
}
