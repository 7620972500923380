package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/google/uuid"

	"tallyocr/internal/config"
	"tallyocr/internal/domain"
	"tallyocr/internal/extract"
	"tallyocr/internal/period"
	"tallyocr/internal/port"
	"tallyocr/internal/table"
)

// AddPageInput is the DTO for page upload requests.
type AddPageInput struct {
	SessionID uuid.UUID
	File      multipart.File
	Header    *multipart.FileHeader
}

// UpdateTableInput is the DTO for table edit requests. The full grid is
// replaced; partial edits are the client's concern.
type UpdateTableInput struct {
	SessionID uuid.UUID
	Index     int
	Headers   []string
	Rows      [][]string
}

// PageView is a page with a short-lived link to its archived image.
type PageView struct {
	domain.Page
	ImageURL string `json:"image_url"`
}

// SessionService drives a review session from upload through submission.
type SessionService interface {
	Create(ctx context.Context) (*domain.Session, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Session, error)
	AddPage(ctx context.Context, input AddPageInput) (*domain.Page, error)
	ListPages(ctx context.Context, sessionID uuid.UUID) ([]PageView, error)
	GetPage(ctx context.Context, sessionID, pageID uuid.UUID) (*PageView, error)
	UpdateTable(ctx context.Context, input UpdateTableInput) (*domain.Table, error)
	ReconcileTables(ctx context.Context, sessionID uuid.UUID) error
	SelectOrgUnit(ctx context.Context, sessionID uuid.UUID, orgUnit domain.NameID) error
	SelectFacility(ctx context.Context, sessionID uuid.UUID, facility domain.OrgUnitChild) error
	SelectDataSet(ctx context.Context, sessionID uuid.UUID, dataSetID string) error
	SetPeriodStart(ctx context.Context, sessionID uuid.UUID, start time.Time) error
	GenerateEntries(ctx context.Context, sessionID uuid.UUID) (*domain.SubmissionPayload, error)
	Submit(ctx context.Context, sessionID uuid.UUID, dryRun bool) (*domain.SubmissionResult, error)
	Attempts(ctx context.Context, sessionID uuid.UUID) ([]domain.SubmissionAttempt, error)
	Clear(ctx context.Context, sessionID uuid.UUID) error
}

type sessionService struct {
	store          *SessionStore
	pageRepo       port.PageRepository
	submissionRepo port.SubmissionRepository
	storage        port.ObjectStorage
	recognizer     port.Recognizer
	metadata       MetadataService
	submitter      port.DataValueSubmitter
	s3cfg          *config.S3Config
	uploadCfg      *config.UploadConfig
	cache          *recognitionCache
}

// NewSessionService creates a new SessionService implementation.
func NewSessionService(
	store *SessionStore,
	pageRepo port.PageRepository,
	submissionRepo port.SubmissionRepository,
	storage port.ObjectStorage,
	recognizer port.Recognizer,
	metadata MetadataService,
	submitter port.DataValueSubmitter,
	s3cfg *config.S3Config,
	uploadCfg *config.UploadConfig,
) SessionService {
	return &sessionService{
		store:          store,
		pageRepo:       pageRepo,
		submissionRepo: submissionRepo,
		storage:        storage,
		recognizer:     recognizer,
		metadata:       metadata,
		submitter:      submitter,
		s3cfg:          s3cfg,
		uploadCfg:      uploadCfg,
		cache:          newRecognitionCache(),
	}
}

func (s *sessionService) Create(ctx context.Context) (*domain.Session, error) {
	sess := s.store.Create()
	log.Printf("sessionService.Create: session %s created", sess.ID)
	return sess, nil
}

func (s *sessionService) Get(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	return s.store.Get(id)
}

func (s *sessionService) AddPage(ctx context.Context, input AddPageInput) (*domain.Page, error) {
	sess, err := s.store.Get(input.SessionID)
	if err != nil {
		return nil, err
	}

	maxBytes := s.uploadCfg.MaxFileSizeMB * 1024 * 1024
	if input.Header.Size > maxBytes {
		return nil, domain.ErrFileTooLarge
	}

	imageBytes, err := io.ReadAll(input.File)
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}

	// Content type comes from the bytes, not the client headers.
	sniffLen := len(imageBytes)
	if sniffLen > 512 {
		sniffLen = 512
	}
	contentType := http.DetectContentType(imageBytes[:sniffLen])
	if !domain.AllowedImageTypes[contentType] {
		return nil, domain.ErrUnsupportedFileType
	}

	digest := sha256.Sum256(imageBytes)
	sha := hex.EncodeToString(digest[:])

	doc, err := s.recognizeOnce(ctx, sha, imageBytes, contentType)
	if err != nil {
		return nil, err
	}

	pageID := uuid.New()
	s3Key := fmt.Sprintf("sessions/%s/pages/%s/%s", sess.ID, pageID, input.Header.Filename)
	log.Printf("sessionService.AddPage: uploading page %s (%s, %d bytes) to s3://%s/%s",
		input.Header.Filename, contentType, input.Header.Size, s.s3cfg.Bucket, s3Key)

	_, err = s.storage.Upload(ctx, port.UploadInput{
		Bucket:      s.s3cfg.Bucket,
		Key:         s3Key,
		Body:        bytes.NewReader(imageBytes),
		ContentType: contentType,
		Size:        int64(len(imageBytes)),
	})
	if err != nil {
		log.Printf("sessionService.AddPage: upload failed: %v", err)
		return nil, domain.ErrUploadFailed
	}

	recognizedJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshaling recognized document: %w", err)
	}

	page := &domain.Page{
		ID:             pageID,
		SessionID:      sess.ID,
		OriginalName:   input.Header.Filename,
		ContentType:    contentType,
		FileSize:       int64(len(imageBytes)),
		SHA256:         sha,
		S3Bucket:       s.s3cfg.Bucket,
		S3Key:          s3Key,
		RecognizedJSON: recognizedJSON,
	}
	if err := s.pageRepo.Create(ctx, page); err != nil {
		log.Printf("sessionService.AddPage: failed to persist page metadata: %v", err)
		return nil, fmt.Errorf("creating page metadata: %w", err)
	}

	// Normalization failures abort the whole page; a ragged table must be
	// re-photographed or fixed upstream, never padded.
	tables := make([]*domain.Table, 0, len(doc.Tables))
	for i := range doc.Tables {
		t, err := table.Normalize(&doc.Tables[i])
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}

	sess.Pages = append(sess.Pages, *page)
	sess.Tables = append(sess.Tables, tables...)
	prefillFromNonTableData(sess, doc.NonTableData)

	log.Printf("sessionService.AddPage: page %s added to session %s (%d tables)", pageID, sess.ID, len(tables))
	return page, nil
}

// pageURLExpirySecs bounds how long a presigned image link stays valid;
// long enough to review a sheet side by side, short enough not to leak.
const pageURLExpirySecs = 900

func (s *sessionService) pageView(ctx context.Context, page domain.Page) (PageView, error) {
	url, err := s.storage.GetPresignedURL(ctx, page.S3Bucket, page.S3Key, pageURLExpirySecs)
	if err != nil {
		return PageView{}, fmt.Errorf("presigning page %s: %w", page.ID, err)
	}
	return PageView{Page: page, ImageURL: url}, nil
}

func (s *sessionService) ListPages(ctx context.Context, sessionID uuid.UUID) ([]PageView, error) {
	if _, err := s.store.Get(sessionID); err != nil {
		return nil, err
	}
	pages, err := s.pageRepo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	views := make([]PageView, 0, len(pages))
	for _, page := range pages {
		view, err := s.pageView(ctx, page)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *sessionService) GetPage(ctx context.Context, sessionID, pageID uuid.UUID) (*PageView, error) {
	if _, err := s.store.Get(sessionID); err != nil {
		return nil, err
	}
	page, err := s.pageRepo.GetByID(ctx, pageID)
	if err != nil {
		return nil, err
	}
	if page.SessionID != sessionID {
		return nil, domain.ErrPageNotFound
	}
	view, err := s.pageView(ctx, *page)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// recognizeOnce returns the recognized document for the given image, reusing
// the in-process cache and then any earlier page with the same digest before
// paying for a model call.
func (s *sessionService) recognizeOnce(ctx context.Context, sha string, imageBytes []byte, contentType string) (*domain.RecognizedDocument, error) {
	if doc, ok := s.cache.get(sha); ok {
		log.Printf("sessionService.recognizeOnce: cache hit for digest %s", sha[:12])
		return doc, nil
	}

	if prior, err := s.pageRepo.GetBySHA256(ctx, sha); err == nil && len(prior.RecognizedJSON) > 0 {
		var doc domain.RecognizedDocument
		if err := json.Unmarshal(prior.RecognizedJSON, &doc); err == nil {
			log.Printf("sessionService.recognizeOnce: reusing recognition from page %s", prior.ID)
			s.cache.put(sha, &doc)
			return &doc, nil
		}
	} else if err != nil && !errors.Is(err, domain.ErrPageNotFound) {
		return nil, fmt.Errorf("looking up prior recognition: %w", err)
	}

	out, err := s.recognizer.Recognize(ctx, port.RecognizeInput{
		ImageBytes:  imageBytes,
		ContentType: contentType,
	})
	if err != nil {
		log.Printf("sessionService.recognizeOnce: recognition failed: %v", err)
		return nil, err
	}

	s.cache.put(sha, out.Document)
	return out.Document, nil
}

func (s *sessionService) UpdateTable(ctx context.Context, input UpdateTableInput) (*domain.Table, error) {
	sess, err := s.store.Get(input.SessionID)
	if err != nil {
		return nil, err
	}
	if input.Index < 0 || input.Index >= len(sess.Tables) {
		return nil, domain.ErrTableNotFound
	}
	current := sess.Tables[input.Index]

	for i, row := range input.Rows {
		if len(row) != len(input.Headers) {
			return nil, &domain.RowWidthError{Table: current.Name, Row: i, Want: len(input.Headers), Got: len(row)}
		}
	}

	edited := &domain.Table{Name: current.Name, Headers: input.Headers, Rows: input.Rows}
	table.EvaluateCells(edited)

	// Only swap the session copy when the edit actually changed something,
	// so generated payloads stay valid across no-op saves.
	if !current.Equal(edited) {
		sess.Tables[input.Index] = edited
		sess.Payload = nil
	}
	return sess.Tables[input.Index], nil
}

func (s *sessionService) ReconcileTables(ctx context.Context, sessionID uuid.UUID) error {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return err
	}
	if sess.Catalog == nil {
		return domain.ErrCatalogNotLoaded
	}
	for _, t := range sess.Tables {
		table.Reconcile(t, sess.Catalog)
	}
	sess.Payload = nil
	log.Printf("sessionService.ReconcileTables: reconciled %d tables in session %s", len(sess.Tables), sessionID)
	return nil
}

func (s *sessionService) SelectOrgUnit(ctx context.Context, sessionID uuid.UUID, orgUnit domain.NameID) error {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return err
	}
	sess.OrgUnit = &orgUnit
	// Downstream selections depend on the org unit, so they reset with it.
	sess.Facility = nil
	sess.DataSet = nil
	sess.Catalog = nil
	sess.Payload = nil
	return nil
}

func (s *sessionService) SelectFacility(ctx context.Context, sessionID uuid.UUID, facility domain.OrgUnitChild) error {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return err
	}
	if sess.OrgUnit == nil {
		return domain.ErrOrgUnitNotSelected
	}
	sess.Facility = &facility
	sess.DataSet = nil
	sess.Catalog = nil
	sess.Payload = nil
	return nil
}

func (s *sessionService) SelectDataSet(ctx context.Context, sessionID uuid.UUID, dataSetID string) error {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return err
	}
	if sess.Facility == nil {
		return domain.ErrFacilityNotSelected
	}

	sets, err := s.metadata.DataSets(ctx, sess.Facility.DataSetIDs)
	if err != nil {
		return err
	}
	var selected *domain.DataSetInfo
	for i := range sets {
		if sets[i].ID == dataSetID {
			selected = &sets[i]
			break
		}
	}
	if selected == nil {
		// The facility only reports on its own datasets.
		return domain.ErrNotFound
	}

	catalog, err := s.metadata.FormCatalog(ctx, dataSetID)
	if err != nil {
		return err
	}

	sess.DataSet = selected
	sess.Catalog = catalog
	sess.Payload = nil
	log.Printf("sessionService.SelectDataSet: session %s selected dataset %s (%s, %d data elements)",
		sessionID, selected.Name, selected.PeriodType, len(catalog.DataElements))
	return nil
}

func (s *sessionService) SetPeriodStart(ctx context.Context, sessionID uuid.UUID, start time.Time) error {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return err
	}
	sess.PeriodStart = &start
	sess.Payload = nil
	return nil
}

func (s *sessionService) GenerateEntries(ctx context.Context, sessionID uuid.UUID) (*domain.SubmissionPayload, error) {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Facility == nil {
		return nil, domain.ErrFacilityNotSelected
	}
	if sess.DataSet == nil {
		return nil, domain.ErrDataSetNotSelected
	}
	if sess.Catalog == nil {
		return nil, domain.ErrCatalogNotLoaded
	}
	if sess.PeriodStart == nil {
		return nil, domain.ErrPeriodNotSet
	}

	entries, err := extract.Tables(sess.Tables, sess.Catalog)
	if err != nil {
		return nil, err
	}

	periodID, err := period.ID(period.Type(sess.DataSet.PeriodType), *sess.PeriodStart)
	if err != nil {
		return nil, err
	}

	payload, err := domain.BuildPayload(sess.Facility.ID, sess.DataSet.ID, periodID, entries)
	if err != nil {
		return nil, err
	}

	sess.Payload = payload
	log.Printf("sessionService.GenerateEntries: session %s payload built (%s, %d values)",
		sessionID, periodID, len(entries))
	return payload, nil
}

func (s *sessionService) Submit(ctx context.Context, sessionID uuid.UUID, dryRun bool) (*domain.SubmissionResult, error) {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Payload == nil {
		return nil, domain.ErrPayloadNotGenerated
	}

	result, err := s.submitter.SubmitDataValues(ctx, sess.Payload, dryRun)

	var subErr *domain.SubmissionError
	switch {
	case err == nil:
		s.recordAttempt(ctx, sess, dryRun, result.StatusCode, result.Body, true)
	case errors.As(err, &subErr):
		s.recordAttempt(ctx, sess, dryRun, subErr.StatusCode, subErr.Body, false)
	}
	if err != nil {
		log.Printf("sessionService.Submit: session %s submission failed (dryRun=%t): %v", sessionID, dryRun, err)
		// Payload stays on the session so the reviewer can retry.
		return nil, err
	}

	if !dryRun {
		for i := range sess.Pages {
			if repoErr := s.pageRepo.SetReviewed(ctx, sess.Pages[i].ID); repoErr != nil {
				log.Printf("sessionService.Submit: failed to mark page %s reviewed: %v", sess.Pages[i].ID, repoErr)
			} else {
				sess.Pages[i].Reviewed = true
			}
		}
	}

	log.Printf("sessionService.Submit: session %s submitted (dryRun=%t, status %d)", sessionID, dryRun, result.StatusCode)
	return result, nil
}

func (s *sessionService) recordAttempt(ctx context.Context, sess *domain.Session, dryRun bool, status int, body string, succeeded bool) {
	payloadJSON, err := json.Marshal(sess.Payload)
	if err != nil {
		log.Printf("sessionService.recordAttempt: marshaling payload: %v", err)
		return
	}
	attempt := &domain.SubmissionAttempt{
		ID:           uuid.New(),
		SessionID:    sess.ID,
		Payload:      payloadJSON,
		DryRun:       dryRun,
		StatusCode:   status,
		ResponseBody: body,
		Succeeded:    succeeded,
	}
	if err := s.submissionRepo.Create(ctx, attempt); err != nil {
		// The audit trail is best effort; the submission outcome stands.
		log.Printf("sessionService.recordAttempt: failed to persist attempt: %v", err)
	}
}

func (s *sessionService) Attempts(ctx context.Context, sessionID uuid.UUID) ([]domain.SubmissionAttempt, error) {
	if _, err := s.store.Get(sessionID); err != nil {
		return nil, err
	}
	return s.submissionRepo.ListBySession(ctx, sessionID)
}

func (s *sessionService) Clear(ctx context.Context, sessionID uuid.UUID) error {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return err
	}
	// Clearing discards the session's uploads, archived images included.
	// Submission attempts remain as the audit record. Removal is best
	// effort: a straggling object must not block starting over.
	pages, err := s.pageRepo.ListBySession(ctx, sessionID)
	if err != nil {
		log.Printf("sessionService.Clear: listing pages for session %s: %v", sessionID, err)
		pages = nil
	}
	for _, page := range pages {
		if err := s.storage.Delete(ctx, page.S3Bucket, page.S3Key); err != nil {
			log.Printf("sessionService.Clear: deleting s3://%s/%s: %v", page.S3Bucket, page.S3Key, err)
		}
		if err := s.pageRepo.Delete(ctx, page.ID); err != nil {
			log.Printf("sessionService.Clear: deleting page %s: %v", page.ID, err)
		}
	}

	sess.Pages = nil
	sess.Tables = nil
	sess.OrgUnitQuery = ""
	sess.OrgUnit = nil
	sess.Facility = nil
	sess.DataSet = nil
	sess.PeriodStart = nil
	sess.Catalog = nil
	sess.Payload = nil
	log.Printf("sessionService.Clear: session %s cleared", sessionID)
	return nil
}
