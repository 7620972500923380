// Package table turns raw recognized tables into review-ready normalized
// tables and reconciles their labels against the canonical field catalog.
package table

import (
	"tallyocr/internal/arith"
	"tallyocr/internal/domain"
	"tallyocr/internal/match"
)

// Normalize converts a raw recognized table into a review table: it validates
// that every raw row has exactly as many cells as the recognizer's header
// sequence, promotes data row 0 to the column headers, re-indexes the
// remaining rows from 0, and runs the arithmetic pass over every data cell.
//
// Promotion consumes exactly one row and happens only here; a *domain.Table
// can never be normalized again, so double promotion is impossible.
func Normalize(rt *domain.RecognizedTable) (*domain.Table, error) {
	for i, row := range rt.Data {
		if len(row) != len(rt.Headers) {
			return nil, &domain.RowWidthError{Table: rt.TableName, Row: i, Want: len(rt.Headers), Got: len(row)}
		}
	}
	if len(rt.Data) == 0 {
		return nil, &domain.RowWidthError{Table: rt.TableName, Row: 0, Want: len(rt.Headers), Got: 0}
	}

	headers := make([]string, len(rt.Data[0]))
	for i, c := range rt.Data[0] {
		headers[i] = c.String()
	}

	rows := make([][]string, len(rt.Data)-1)
	for i, raw := range rt.Data[1:] {
		row := make([]string, len(raw))
		for j, c := range raw {
			row[j] = c.String()
		}
		rows[i] = row
	}

	t := &domain.Table{Name: rt.TableName, Headers: headers, Rows: rows}
	EvaluateCells(t)
	return t, nil
}

// EvaluateCells runs the restricted arithmetic evaluator over every data cell
// outside the label column, storing results back as strings. Cells that do
// not parse, and placeholders like a lone dash, are left untouched. Safe to
// re-run after every reviewer edit.
func EvaluateCells(t *domain.Table) {
	for _, row := range t.Rows {
		for j := 1; j < len(row); j++ {
			if arith.IsPlaceholder(row[j]) {
				continue
			}
			if v, ok := arith.Eval(row[j]); ok {
				row[j] = v
			}
		}
	}
}

// Reconcile overwrites the table's labels with their best canonical matches:
// each row's column-0 text with the closest data-element display name, and
// each header with the closest category-option-combo display name. Cells that
// were never recognized (empty text) are left blank rather than matched.
//
// Requires the form catalog, which exists only after dataset selection.
func Reconcile(t *domain.Table, catalog *domain.FieldCatalog) {
	dataElements := append([]string{""}, catalog.DataElementNames()...)
	categoryOptions := append([]string{""}, catalog.CategoryOptionComboNames()...)

	for _, row := range t.Rows {
		if len(row) == 0 {
			continue
		}
		if res, attempted := match.Best(row[0], dataElements); attempted {
			row[0] = res.Candidate
		}
	}
	for i, h := range t.Headers {
		if res, attempted := match.Best(h, categoryOptions); attempted {
			t.Headers[i] = res.Candidate
		}
	}
}
