package service

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"

	"tallyocr/internal/domain"
	"tallyocr/internal/port"
)

// MetadataService defines the metadata lookup contract used by the selection
// flow. Results are memoized for the lifetime of the process; the underlying
// metadata changes on the order of months.
type MetadataService interface {
	SearchOrgUnits(ctx context.Context, query string) ([]domain.NameID, error)
	OrgUnitChildren(ctx context.Context, orgUnitID string) ([]domain.OrgUnitChild, error)
	DataSets(ctx context.Context, ids []string) ([]domain.DataSetInfo, error)
	FormCatalog(ctx context.Context, dataSetID string) (*domain.FieldCatalog, error)
}

type metadataService struct {
	catalog port.MetadataCatalog

	mu       sync.RWMutex
	searches map[string][]domain.NameID
	children map[string][]domain.OrgUnitChild
	dataSets map[string][]domain.DataSetInfo
	catalogs map[string]*domain.FieldCatalog
}

// NewMetadataService creates a caching MetadataService over a metadata catalog.
func NewMetadataService(catalog port.MetadataCatalog) MetadataService {
	return &metadataService{
		catalog:  catalog,
		searches: make(map[string][]domain.NameID),
		children: make(map[string][]domain.OrgUnitChild),
		dataSets: make(map[string][]domain.DataSetInfo),
		catalogs: make(map[string]*domain.FieldCatalog),
	}
}

func (s *metadataService) SearchOrgUnits(ctx context.Context, query string) ([]domain.NameID, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	s.mu.RLock()
	cached, ok := s.searches[query]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	units, err := s.catalog.SearchOrgUnitUIDs(ctx, query)
	if err != nil {
		log.Printf("metadataService.SearchOrgUnits: search %q failed: %v", query, err)
		return nil, err
	}
	sort.Slice(units, func(i, j int) bool { return units[i].Name < units[j].Name })

	s.mu.Lock()
	s.searches[query] = units
	s.mu.Unlock()
	return units, nil
}

func (s *metadataService) OrgUnitChildren(ctx context.Context, orgUnitID string) ([]domain.OrgUnitChild, error) {
	s.mu.RLock()
	cached, ok := s.children[orgUnitID]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	children, err := s.catalog.OrgUnitChildren(ctx, orgUnitID)
	if err != nil {
		log.Printf("metadataService.OrgUnitChildren: lookup for %s failed: %v", orgUnitID, err)
		return nil, err
	}
	sort.Slice(children, func(i, j int) bool { return children[i].Name < children[j].Name })

	s.mu.Lock()
	s.children[orgUnitID] = children
	s.mu.Unlock()
	return children, nil
}

func (s *metadataService) DataSets(ctx context.Context, ids []string) ([]domain.DataSetInfo, error) {
	key := strings.Join(ids, ",")
	s.mu.RLock()
	cached, ok := s.dataSets[key]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	sets, err := s.catalog.DataSets(ctx, ids)
	if err != nil {
		log.Printf("metadataService.DataSets: lookup failed: %v", err)
		return nil, err
	}
	sort.Slice(sets, func(i, j int) bool { return sets[i].Name < sets[j].Name })

	s.mu.Lock()
	s.dataSets[key] = sets
	s.mu.Unlock()
	return sets, nil
}

func (s *metadataService) FormCatalog(ctx context.Context, dataSetID string) (*domain.FieldCatalog, error) {
	s.mu.RLock()
	cached, ok := s.catalogs[dataSetID]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	catalog, err := s.catalog.FormCatalog(ctx, dataSetID)
	if err != nil {
		log.Printf("metadataService.FormCatalog: fetch for dataset %s failed: %v", dataSetID, err)
		return nil, err
	}

	s.mu.Lock()
	s.catalogs[dataSetID] = catalog
	s.mu.Unlock()
	return catalog, nil
}
