package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("resource not found")
	ErrSessionNotFound     = errors.New("review session not found")
	ErrPageNotFound        = errors.New("page not found")
	ErrTableNotFound       = errors.New("table not found")
	ErrOrgUnitNotSelected  = errors.New("organisation unit not selected")
	ErrFacilityNotSelected = errors.New("facility not selected")
	ErrDataSetNotSelected  = errors.New("dataset not selected")
	ErrPeriodNotSet        = errors.New("period start date not set")
	ErrCatalogNotLoaded    = errors.New("form catalog not loaded")
	ErrPayloadNotGenerated = errors.New("submission payload not generated")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file exceeds maximum allowed size")
	ErrUploadFailed        = errors.New("file upload to storage failed")
)

// FieldResolutionError reports a recognized name that could not be matched to
// a canonical identifier. Carries enough context for manual correction.
type FieldResolutionError struct {
	Table  string
	Row    int
	Column int
	Kind   string // "dataElement" or "categoryOptionCombo"
	Text   string
}

func (e *FieldResolutionError) Error() string {
	return fmt.Sprintf("table %q row %d column %d: %s %q not found in form catalog",
		e.Table, e.Row, e.Column, e.Kind, e.Text)
}

// RowWidthError reports a recognized row whose cell count disagrees with the
// header count. Never padded or truncated silently.
type RowWidthError struct {
	Table string
	Row   int
	Want  int
	Got   int
}

func (e *RowWidthError) Error() string {
	return fmt.Sprintf("table %q row %d: expected %d cells, got %d", e.Table, e.Row, e.Want, e.Got)
}

// SubmissionError is a non-200 response from the data-value-set endpoint,
// surfaced verbatim to the reviewer.
type SubmissionError struct {
	StatusCode int
	Body       string
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission failed (status %d): %s", e.StatusCode, e.Body)
}
