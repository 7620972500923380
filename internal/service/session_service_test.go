package service

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tallyocr/internal/config"
	"tallyocr/internal/domain"
	"tallyocr/internal/port"
	"tallyocr/mocks"
)

type memFile struct {
	*bytes.Reader
}

func (memFile) Close() error { return nil }

func pngBytes(extra string) []byte {
	return append([]byte("\x89PNG\r\n\x1a\n"), []byte(extra)...)
}

func pageInput(sessionID uuid.UUID, name string, content []byte) AddPageInput {
	return AddPageInput{
		SessionID: sessionID,
		File:      memFile{bytes.NewReader(content)},
		Header:    &multipart.FileHeader{Filename: name, Size: int64(len(content))},
	}
}

type fixture struct {
	svc            SessionService
	store          *SessionStore
	pageRepo       *mocks.MockPageRepo
	submissionRepo *mocks.MockSubmissionRepo
	storage        *mocks.MockObjectStorage
	recognizer     *mocks.MockRecognizer
	catalog        *mocks.MockMetadataCatalog
	submitter      *mocks.MockDataValueSubmitter
}

func newFixture() *fixture {
	f := &fixture{
		store:          NewSessionStore(),
		pageRepo:       new(mocks.MockPageRepo),
		submissionRepo: new(mocks.MockSubmissionRepo),
		storage:        new(mocks.MockObjectStorage),
		recognizer:     new(mocks.MockRecognizer),
		catalog:        new(mocks.MockMetadataCatalog),
		submitter:      new(mocks.MockDataValueSubmitter),
	}
	f.svc = NewSessionService(
		f.store,
		f.pageRepo,
		f.submissionRepo,
		f.storage,
		f.recognizer,
		NewMetadataService(f.catalog),
		f.submitter,
		&config.S3Config{Bucket: "tallyocr-pages"},
		&config.UploadConfig{MaxFileSizeMB: 20},
	)
	return f
}

func recognizedConsultations() *domain.RecognizedDocument {
	c := func(s string) domain.Cell { return domain.Cell{Raw: s, Present: true} }
	return &domain.RecognizedDocument{
		Tables: []domain.RecognizedTable{
			{
				TableName: "consultations",
				Headers:   []string{"c0", "c1", "c2"},
				Data: [][]domain.Cell{
					{c(""), c("2-5m"), c("6-59m")},
					{c("No. of consultations"), c("3"), c("5")},
				},
			},
		},
		NonTableData: map[string]domain.Cell{
			"Health Structure": c("Aweil PHC"),
			"Start Date":       c("2024-06-16"),
		},
	}
}

func fieldCatalog() *domain.FieldCatalog {
	return &domain.FieldCatalog{
		DataElements: []domain.NameID{
			{Name: "No. of consultations", ID: "DE1"},
		},
		CategoryOptionCombos: []domain.NameID{
			{Name: "2-5m", ID: "COC1"},
			{Name: "6-59m", ID: "COC2"},
		},
	}
}

func TestAddPageRecognizesAndNormalizes(t *testing.T) {
	f := newFixture()
	sess, err := f.svc.Create(context.Background())
	require.NoError(t, err)

	f.pageRepo.On("GetBySHA256", mock.Anything, mock.Anything).Return(nil, domain.ErrPageNotFound)
	f.recognizer.On("Recognize", mock.Anything, mock.Anything).
		Return(&port.RecognizeOutput{Document: recognizedConsultations(), ModelUsed: "gpt-4o"}, nil).Once()
	f.storage.On("Upload", mock.Anything, mock.Anything).Return(&port.UploadOutput{}, nil)
	f.pageRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	page, err := f.svc.AddPage(context.Background(), pageInput(sess.ID, "sheet1.png", pngBytes("a")))
	require.NoError(t, err)
	assert.Equal(t, "image/png", page.ContentType)
	assert.NotEmpty(t, page.SHA256)
	assert.NotEmpty(t, page.RecognizedJSON)

	// Row 0 became the headers and the arithmetic pass ran.
	require.Len(t, sess.Tables, 1)
	assert.Equal(t, []string{"", "2-5m", "6-59m"}, sess.Tables[0].Headers)
	assert.Equal(t, [][]string{{"No. of consultations", "3", "5"}}, sess.Tables[0].Rows)

	// Non-table data prefilled the selection hints.
	assert.Equal(t, "Aweil PHC", sess.OrgUnitQuery)
	require.NotNil(t, sess.PeriodStart)
	assert.Equal(t, "2024-06-16", sess.PeriodStartString())
}

func TestAddPageMemoizesRecognitionByDigest(t *testing.T) {
	f := newFixture()
	sess, err := f.svc.Create(context.Background())
	require.NoError(t, err)

	f.pageRepo.On("GetBySHA256", mock.Anything, mock.Anything).Return(nil, domain.ErrPageNotFound)
	f.recognizer.On("Recognize", mock.Anything, mock.Anything).
		Return(&port.RecognizeOutput{Document: recognizedConsultations(), ModelUsed: "gpt-4o"}, nil).Once()
	f.storage.On("Upload", mock.Anything, mock.Anything).Return(&port.UploadOutput{}, nil)
	f.pageRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	same := pngBytes("same-photo")
	_, err = f.svc.AddPage(context.Background(), pageInput(sess.ID, "sheet1.png", same))
	require.NoError(t, err)
	_, err = f.svc.AddPage(context.Background(), pageInput(sess.ID, "sheet1-copy.png", same))
	require.NoError(t, err)

	f.recognizer.AssertNumberOfCalls(t, "Recognize", 1)
	assert.Len(t, sess.Pages, 2)
}

func TestAddPageRejectsOversizeAndWrongType(t *testing.T) {
	f := newFixture()
	sess, err := f.svc.Create(context.Background())
	require.NoError(t, err)

	big := pageInput(sess.ID, "big.png", pngBytes("x"))
	big.Header.Size = 21 * 1024 * 1024
	_, err = f.svc.AddPage(context.Background(), big)
	assert.ErrorIs(t, err, domain.ErrFileTooLarge)

	_, err = f.svc.AddPage(context.Background(), pageInput(sess.ID, "notes.txt", []byte("just text")))
	assert.ErrorIs(t, err, domain.ErrUnsupportedFileType)

	f.recognizer.AssertNotCalled(t, "Recognize")
}

func TestAddPageUnknownSession(t *testing.T) {
	f := newFixture()
	_, err := f.svc.AddPage(context.Background(), pageInput(uuid.New(), "sheet1.png", pngBytes("a")))
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func selectEverything(t *testing.T, f *fixture, sessionID uuid.UUID) {
	t.Helper()
	f.catalog.On("DataSets", mock.Anything, []string{"DS1"}).
		Return([]domain.DataSetInfo{{Name: "OPD", ID: "DS1", PeriodType: "Weekly"}}, nil)
	f.catalog.On("FormCatalog", mock.Anything, "DS1").Return(fieldCatalog(), nil)

	require.NoError(t, f.svc.SelectOrgUnit(context.Background(), sessionID, domain.NameID{Name: "Aweil", ID: "OU1"}))
	require.NoError(t, f.svc.SelectFacility(context.Background(), sessionID,
		domain.OrgUnitChild{Name: "Aweil PHC", ID: "OU1A", DataSetIDs: []string{"DS1"}}))
	require.NoError(t, f.svc.SelectDataSet(context.Background(), sessionID, "DS1"))
	require.NoError(t, f.svc.SetPeriodStart(context.Background(), sessionID,
		time.Date(2024, 6, 16, 0, 0, 0, 0, time.UTC)))
}

func TestSelectionCascadeResetsDownstream(t *testing.T) {
	f := newFixture()
	sess, err := f.svc.Create(context.Background())
	require.NoError(t, err)

	err = f.svc.SelectFacility(context.Background(), sess.ID, domain.OrgUnitChild{ID: "OU1A"})
	assert.ErrorIs(t, err, domain.ErrOrgUnitNotSelected)

	selectEverything(t, f, sess.ID)
	require.NotNil(t, sess.DataSet)
	require.NotNil(t, sess.Catalog)

	// Reselecting the org unit invalidates facility, dataset, and catalog.
	require.NoError(t, f.svc.SelectOrgUnit(context.Background(), sess.ID, domain.NameID{Name: "Other", ID: "OU2"}))
	assert.Nil(t, sess.Facility)
	assert.Nil(t, sess.DataSet)
	assert.Nil(t, sess.Catalog)
}

func TestSelectDataSetOutsideFacility(t *testing.T) {
	f := newFixture()
	sess, err := f.svc.Create(context.Background())
	require.NoError(t, err)

	f.catalog.On("DataSets", mock.Anything, []string{"DS1"}).
		Return([]domain.DataSetInfo{{Name: "OPD", ID: "DS1", PeriodType: "Weekly"}}, nil)

	require.NoError(t, f.svc.SelectOrgUnit(context.Background(), sess.ID, domain.NameID{ID: "OU1"}))
	require.NoError(t, f.svc.SelectFacility(context.Background(), sess.ID,
		domain.OrgUnitChild{ID: "OU1A", DataSetIDs: []string{"DS1"}}))

	err = f.svc.SelectDataSet(context.Background(), sess.ID, "DS9")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGenerateEntries(t *testing.T) {
	f := newFixture()
	sess, err := f.svc.Create(context.Background())
	require.NoError(t, err)

	selectEverything(t, f, sess.ID)
	sess.Tables = []*domain.Table{{
		Name:    "consultations",
		Headers: []string{"", "2-5m", "6-59m"},
		Rows:    [][]string{{"No. of consultations", "3", "5"}},
	}}

	payload, err := f.svc.GenerateEntries(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "OU1A", payload.OrgUnit)
	assert.Equal(t, "DS1", payload.DataSet)
	assert.Equal(t, "2024W25", payload.Period)
	assert.Equal(t, []domain.DataValue{
		{DataElement: "DE1", CategoryOptionCombo: "COC1", Value: "3"},
		{DataElement: "DE1", CategoryOptionCombo: "COC2", Value: "5"},
	}, payload.DataValues)
	assert.Same(t, payload, sess.Payload)
}

func TestGenerateEntriesPreconditions(t *testing.T) {
	f := newFixture()
	sess, err := f.svc.Create(context.Background())
	require.NoError(t, err)

	_, err = f.svc.GenerateEntries(context.Background(), sess.ID)
	assert.ErrorIs(t, err, domain.ErrFacilityNotSelected)

	selectEverything(t, f, sess.ID)
	sess.PeriodStart = nil
	_, err = f.svc.GenerateEntries(context.Background(), sess.ID)
	assert.ErrorIs(t, err, domain.ErrPeriodNotSet)
}

func TestUpdateTableReevaluatesAndInvalidatesPayload(t *testing.T) {
	f := newFixture()
	sess, err := f.svc.Create(context.Background())
	require.NoError(t, err)
	sess.Tables = []*domain.Table{{
		Name:    "consultations",
		Headers: []string{"", "2-5m"},
		Rows:    [][]string{{"No. of consultations", "3"}},
	}}
	sess.Payload = &domain.SubmissionPayload{}

	// A no-op save keeps the generated payload.
	_, err = f.svc.UpdateTable(context.Background(), UpdateTableInput{
		SessionID: sess.ID, Index: 0,
		Headers: []string{"", "2-5m"},
		Rows:    [][]string{{"No. of consultations", "3"}},
	})
	require.NoError(t, err)
	assert.NotNil(t, sess.Payload)

	updated, err := f.svc.UpdateTable(context.Background(), UpdateTableInput{
		SessionID: sess.ID, Index: 0,
		Headers: []string{"", "2-5m"},
		Rows:    [][]string{{"No. of consultations", "3+4"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "7", updated.Rows[0][1])
	assert.Nil(t, sess.Payload)

	_, err = f.svc.UpdateTable(context.Background(), UpdateTableInput{
		SessionID: sess.ID, Index: 0,
		Headers: []string{"", "2-5m"},
		Rows:    [][]string{{"No. of consultations"}},
	})
	var rw *domain.RowWidthError
	assert.ErrorAs(t, err, &rw)

	_, err = f.svc.UpdateTable(context.Background(), UpdateTableInput{SessionID: sess.ID, Index: 5})
	assert.ErrorIs(t, err, domain.ErrTableNotFound)
}

func TestReconcileTablesRequiresCatalog(t *testing.T) {
	f := newFixture()
	sess, err := f.svc.Create(context.Background())
	require.NoError(t, err)

	err = f.svc.ReconcileTables(context.Background(), sess.ID)
	assert.ErrorIs(t, err, domain.ErrCatalogNotLoaded)

	selectEverything(t, f, sess.ID)
	sess.Tables = []*domain.Table{{
		Name:    "consultations",
		Headers: []string{"", "2-5rn", "6-59m"},
		Rows:    [][]string{{"No. of consultatims", "3", "5"}},
	}}

	require.NoError(t, f.svc.ReconcileTables(context.Background(), sess.ID))
	assert.Equal(t, []string{"", "2-5m", "6-59m"}, sess.Tables[0].Headers)
	assert.Equal(t, "No. of consultations", sess.Tables[0].Rows[0][0])
}

func TestSubmitRecordsAuditAndMarksReviewed(t *testing.T) {
	f := newFixture()
	sess, err := f.svc.Create(context.Background())
	require.NoError(t, err)
	pageID := uuid.New()
	sess.Pages = []domain.Page{{ID: pageID, SessionID: sess.ID}}
	sess.Payload = &domain.SubmissionPayload{DataSet: "DS1", Period: "2024W25", OrgUnit: "OU1A"}

	f.submitter.On("SubmitDataValues", mock.Anything, sess.Payload, false).
		Return(&domain.SubmissionResult{StatusCode: 200, Body: `{"status":"SUCCESS"}`}, nil)
	f.submissionRepo.On("Create", mock.Anything, mock.MatchedBy(func(a *domain.SubmissionAttempt) bool {
		return a.Succeeded && a.StatusCode == 200 && !a.DryRun
	})).Return(nil)
	f.pageRepo.On("SetReviewed", mock.Anything, pageID).Return(nil)

	res, err := f.svc.Submit(context.Background(), sess.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 200, res.StatusCode)
	assert.True(t, sess.Pages[0].Reviewed)
	f.submissionRepo.AssertExpectations(t)
	f.pageRepo.AssertExpectations(t)
}

func TestSubmitFailureKeepsPayloadForRetry(t *testing.T) {
	f := newFixture()
	sess, err := f.svc.Create(context.Background())
	require.NoError(t, err)
	sess.Payload = &domain.SubmissionPayload{DataSet: "DS1"}

	f.submitter.On("SubmitDataValues", mock.Anything, sess.Payload, true).
		Return(nil, &domain.SubmissionError{StatusCode: 409, Body: "locked"})
	f.submissionRepo.On("Create", mock.Anything, mock.MatchedBy(func(a *domain.SubmissionAttempt) bool {
		return !a.Succeeded && a.StatusCode == 409 && a.DryRun
	})).Return(nil)

	_, err = f.svc.Submit(context.Background(), sess.ID, true)
	var se *domain.SubmissionError
	require.ErrorAs(t, err, &se)
	assert.NotNil(t, sess.Payload)
	f.submissionRepo.AssertExpectations(t)
}

func TestSubmitWithoutPayload(t *testing.T) {
	f := newFixture()
	sess, err := f.svc.Create(context.Background())
	require.NoError(t, err)

	_, err = f.svc.Submit(context.Background(), sess.ID, true)
	assert.ErrorIs(t, err, domain.ErrPayloadNotGenerated)
}

func TestClearResetsWorkingState(t *testing.T) {
	f := newFixture()
	sess, err := f.svc.Create(context.Background())
	require.NoError(t, err)

	selectEverything(t, f, sess.ID)
	sess.Tables = []*domain.Table{{Name: "t"}}
	sess.Payload = &domain.SubmissionPayload{}
	f.pageRepo.On("ListBySession", mock.Anything, sess.ID).Return([]domain.Page{}, nil)

	require.NoError(t, f.svc.Clear(context.Background(), sess.ID))
	assert.Empty(t, sess.Tables)
	assert.Nil(t, sess.OrgUnit)
	assert.Nil(t, sess.Payload)
	assert.Nil(t, sess.PeriodStart)

	// The session itself survives a clear.
	got, err := f.svc.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
}

func TestClearDeletesArchivedPages(t *testing.T) {
	f := newFixture()
	sess, err := f.svc.Create(context.Background())
	require.NoError(t, err)

	pageID := uuid.New()
	stored := []domain.Page{{
		ID:        pageID,
		SessionID: sess.ID,
		S3Bucket:  "tallyocr-pages",
		S3Key:     "sessions/x/pages/y/sheet.png",
	}}
	f.pageRepo.On("ListBySession", mock.Anything, sess.ID).Return(stored, nil)
	f.storage.On("Delete", mock.Anything, "tallyocr-pages", "sessions/x/pages/y/sheet.png").Return(nil)
	f.pageRepo.On("Delete", mock.Anything, pageID).Return(nil)

	require.NoError(t, f.svc.Clear(context.Background(), sess.ID))
	f.storage.AssertExpectations(t)
	f.pageRepo.AssertExpectations(t)
}

func TestClearSurvivesStorageFailure(t *testing.T) {
	f := newFixture()
	sess, err := f.svc.Create(context.Background())
	require.NoError(t, err)

	pageID := uuid.New()
	stored := []domain.Page{{ID: pageID, SessionID: sess.ID, S3Bucket: "b", S3Key: "k"}}
	f.pageRepo.On("ListBySession", mock.Anything, sess.ID).Return(stored, nil)
	f.storage.On("Delete", mock.Anything, "b", "k").Return(errors.New("access denied"))
	f.pageRepo.On("Delete", mock.Anything, pageID).Return(nil)

	// Removal is best effort; the working state still resets.
	require.NoError(t, f.svc.Clear(context.Background(), sess.ID))
	f.pageRepo.AssertCalled(t, "Delete", mock.Anything, pageID)
}

func TestListPagesPresignsEachImage(t *testing.T) {
	f := newFixture()
	sess, err := f.svc.Create(context.Background())
	require.NoError(t, err)

	stored := []domain.Page{
		{ID: uuid.New(), SessionID: sess.ID, S3Bucket: "tallyocr-pages", S3Key: "k1", OriginalName: "a.png"},
		{ID: uuid.New(), SessionID: sess.ID, S3Bucket: "tallyocr-pages", S3Key: "k2", OriginalName: "b.png"},
	}
	f.pageRepo.On("ListBySession", mock.Anything, sess.ID).Return(stored, nil)
	f.storage.On("GetPresignedURL", mock.Anything, "tallyocr-pages", "k1", mock.Anything).
		Return("https://signed/k1", nil)
	f.storage.On("GetPresignedURL", mock.Anything, "tallyocr-pages", "k2", mock.Anything).
		Return("https://signed/k2", nil)

	views, err := f.svc.ListPages(context.Background(), sess.ID)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "a.png", views[0].OriginalName)
	assert.Equal(t, "https://signed/k1", views[0].ImageURL)
	assert.Equal(t, "https://signed/k2", views[1].ImageURL)
}

func TestListPagesUnknownSession(t *testing.T) {
	f := newFixture()
	_, err := f.svc.ListPages(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	f.pageRepo.AssertNotCalled(t, "ListBySession")
}

func TestGetPagePresignsImage(t *testing.T) {
	f := newFixture()
	sess, err := f.svc.Create(context.Background())
	require.NoError(t, err)

	pageID := uuid.New()
	page := &domain.Page{ID: pageID, SessionID: sess.ID, S3Bucket: "tallyocr-pages", S3Key: "k"}
	f.pageRepo.On("GetByID", mock.Anything, pageID).Return(page, nil)
	f.storage.On("GetPresignedURL", mock.Anything, "tallyocr-pages", "k", mock.Anything).
		Return("https://signed/k", nil)

	view, err := f.svc.GetPage(context.Background(), sess.ID, pageID)
	require.NoError(t, err)
	assert.Equal(t, pageID, view.ID)
	assert.Equal(t, "https://signed/k", view.ImageURL)
}

func TestGetPageFromOtherSession(t *testing.T) {
	f := newFixture()
	sess, err := f.svc.Create(context.Background())
	require.NoError(t, err)

	pageID := uuid.New()
	page := &domain.Page{ID: pageID, SessionID: uuid.New(), S3Bucket: "b", S3Key: "k"}
	f.pageRepo.On("GetByID", mock.Anything, pageID).Return(page, nil)

	_, err = f.svc.GetPage(context.Background(), sess.ID, pageID)
	assert.ErrorIs(t, err, domain.ErrPageNotFound)
	f.storage.AssertNotCalled(t, "GetPresignedURL")
}
