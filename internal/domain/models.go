package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Cell is a single recognized table cell. The recognizer may emit strings,
// numbers, or nulls; all are carried as text so the review grid stays uniform.
type Cell struct {
	Raw     string
	Present bool
}

// UnmarshalJSON accepts a string, a number, or null.
func (c *Cell) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		c.Raw = ""
		c.Present = false
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		c.Raw = s
		c.Present = true
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		c.Raw = n.String()
		c.Present = true
		return nil
	}
	return fmt.Errorf("cell must be a string, number, or null, got %s", string(b))
}

// MarshalJSON emits the cell as a string, or null when absent.
func (c Cell) MarshalJSON() ([]byte, error) {
	if !c.Present {
		return []byte("null"), nil
	}
	return json.Marshal(c.Raw)
}

func (c Cell) String() string {
	return c.Raw
}

// RecognizedTable is one table as returned by the recognition service,
// prior to any normalization. Untrusted input.
type RecognizedTable struct {
	TableName string   `json:"table_name"`
	Headers   []string `json:"headers"`
	Data      [][]Cell `json:"data"`
}

// RecognizedDocument is the raw recognizer output for one uploaded page:
// an ordered sequence of tables plus free-form key-value pairs (health
// structure name, start/end date, ...). Immutable once produced.
type RecognizedDocument struct {
	Tables       []RecognizedTable `json:"tables"`
	NonTableData map[string]Cell   `json:"non_table_data"`
}

// Table is a normalized table under review: the first recognized data row has
// been promoted to the header sequence and cells hold evaluated text. Owned
// and mutated by the review session until submission.
type Table struct {
	Name    string     `json:"name"`
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	cp := &Table{
		Name:    t.Name,
		Headers: append([]string(nil), t.Headers...),
		Rows:    make([][]string, len(t.Rows)),
	}
	for i, row := range t.Rows {
		cp.Rows[i] = append([]string(nil), row...)
	}
	return cp
}

// Equal reports whether two tables hold identical headers and cells.
func (t *Table) Equal(other *Table) bool {
	if other == nil || t.Name != other.Name || len(t.Headers) != len(other.Headers) || len(t.Rows) != len(other.Rows) {
		return false
	}
	for i := range t.Headers {
		if t.Headers[i] != other.Headers[i] {
			return false
		}
	}
	for i := range t.Rows {
		if len(t.Rows[i]) != len(other.Rows[i]) {
			return false
		}
		for j := range t.Rows[i] {
			if t.Rows[i][j] != other.Rows[i][j] {
				return false
			}
		}
	}
	return true
}

// NameID is a (displayName, id) pair from the metadata catalog.
type NameID struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// OrgUnitChild is a child organisation unit together with the dataset ids
// reported against it.
type OrgUnitChild struct {
	Name       string   `json:"name"`
	ID         string   `json:"id"`
	DataSetIDs []string `json:"dataset_ids"`
}

// DataSetInfo describes a dataset eligible for submission at a facility.
// PeriodType drives reporting-period computation.
type DataSetInfo struct {
	Name       string `json:"name"`
	ID         string `json:"id"`
	PeriodType string `json:"period_type"`
}

// FieldCatalog is the set of valid data-element and category-option-combo
// identifiers for one (dataset, period, org unit) form instance. Read-only
// snapshot for the duration of a review session.
type FieldCatalog struct {
	DataElements         []NameID `json:"data_elements"`
	CategoryOptionCombos []NameID `json:"category_option_combos"`
}

// DataElementNames returns the display names in catalog order.
func (c *FieldCatalog) DataElementNames() []string {
	names := make([]string, len(c.DataElements))
	for i, de := range c.DataElements {
		names[i] = de.Name
	}
	return names
}

// CategoryOptionComboNames returns the display names in catalog order.
func (c *FieldCatalog) CategoryOptionComboNames() []string {
	names := make([]string, len(c.CategoryOptionCombos))
	for i, coc := range c.CategoryOptionCombos {
		names[i] = coc.Name
	}
	return names
}

// DataElementID resolves a display name to its identifier.
func (c *FieldCatalog) DataElementID(name string) (string, bool) {
	for _, de := range c.DataElements {
		if de.Name == name {
			return de.ID, true
		}
	}
	return "", false
}

// CategoryOptionComboID resolves a display name to its identifier.
func (c *FieldCatalog) CategoryOptionComboID(name string) (string, bool) {
	for _, coc := range c.CategoryOptionCombos {
		if coc.Name == name {
			return coc.ID, true
		}
	}
	return "", false
}

// DataValue is one resolved key-value entry: identifiers plus the cell text.
type DataValue struct {
	DataElement         string `json:"dataElement"`
	CategoryOptionCombo string `json:"categoryOptionCombo"`
	Value               string `json:"value"`
}

// SubmissionPayload is the wire format posted to the data-value-set endpoint.
type SubmissionPayload struct {
	DataSet    string      `json:"dataSet"`
	Period     string      `json:"period"`
	OrgUnit    string      `json:"orgUnit"`
	DataValues []DataValue `json:"dataValues"`
}

// SubmissionResult captures the endpoint's verbatim response.
type SubmissionResult struct {
	StatusCode int    `json:"status_code"`
	Body       string `json:"body"`
	DryRun     bool   `json:"dry_run"`
}

// Page stores metadata about one uploaded tally-sheet image.
type Page struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	SessionID      uuid.UUID       `db:"session_id" json:"session_id"`
	OriginalName   string          `db:"original_name" json:"original_name"`
	ContentType    string          `db:"content_type" json:"content_type"`
	FileSize       int64           `db:"file_size" json:"file_size"`
	SHA256         string          `db:"sha256" json:"sha256"`
	S3Bucket       string          `db:"s3_bucket" json:"s3_bucket"`
	S3Key          string          `db:"s3_key" json:"s3_key"`
	RecognizedJSON json.RawMessage `db:"recognized_json" json:"recognized_json"`
	Reviewed       bool            `db:"reviewed" json:"reviewed"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// SubmissionAttempt is the audit record of one submission POST.
type SubmissionAttempt struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	SessionID    uuid.UUID       `db:"session_id" json:"session_id"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	DryRun       bool            `db:"dry_run" json:"dry_run"`
	StatusCode   int             `db:"status_code" json:"status_code"`
	ResponseBody string          `db:"response_body" json:"response_body"`
	Succeeded    bool            `db:"succeeded" json:"succeeded"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

// Session is the mutable state of one review session. Single reviewer,
// single document at a time; no concurrent writers within a session.
type Session struct {
	ID           uuid.UUID          `json:"id"`
	Pages        []Page             `json:"pages"`
	Tables       []*Table           `json:"tables"`
	OrgUnitQuery string             `json:"org_unit_query"`
	OrgUnit      *NameID            `json:"org_unit"`
	Facility     *OrgUnitChild      `json:"facility"`
	DataSet      *DataSetInfo       `json:"dataset"`
	PeriodStart  *time.Time         `json:"period_start"`
	Catalog      *FieldCatalog      `json:"-"`
	Payload      *SubmissionPayload `json:"payload"`
	CreatedAt    time.Time          `json:"created_at"`
}

// PeriodStartString formats the selected period start date, or "" when unset.
func (s *Session) PeriodStartString() string {
	if s.PeriodStart == nil {
		return ""
	}
	return s.PeriodStart.Format("2006-01-02")
}

// AllowedImageTypes lists the content types accepted for tally-sheet uploads.
var AllowedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
}

// FormatNumber renders a numeric cell result the way reviewers expect:
// integers without a trailing ".0", everything else in shortest form.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
