// Package extract flattens reviewed tables into DHIS2 data values.
package extract

import (
	"strings"

	"tallyocr/internal/domain"
)

// Table walks a reviewed table in row-major order and emits one data value
// per populated cell: the row's column-0 label resolves to the data element,
// the cell's column header to the category option combo, and the cell text
// becomes the value verbatim. Empty and whitespace-only cells are skipped.
//
// Labels and headers must already be reconciled against the catalog; any text
// the catalog cannot resolve aborts the extraction with a
// *domain.FieldResolutionError so a partial batch is never produced.
func Table(t *domain.Table, catalog *domain.FieldCatalog) ([]domain.DataValue, error) {
	var out []domain.DataValue
	for i, row := range t.Rows {
		if len(row) == 0 {
			continue
		}
		label := row[0]
		for j := 1; j < len(row); j++ {
			if strings.TrimSpace(row[j]) == "" {
				continue
			}
			deID, ok := catalog.DataElementID(label)
			if !ok {
				return nil, &domain.FieldResolutionError{
					Table: t.Name, Row: i, Column: 0, Kind: "dataElement", Text: label,
				}
			}
			cocID, ok := catalog.CategoryOptionComboID(t.Headers[j])
			if !ok {
				return nil, &domain.FieldResolutionError{
					Table: t.Name, Row: i, Column: j, Kind: "categoryOptionCombo", Text: t.Headers[j],
				}
			}
			out = append(out, domain.DataValue{
				DataElement:         deID,
				CategoryOptionCombo: cocID,
				Value:               row[j],
			})
		}
	}
	return out, nil
}

// Tables extracts every table in order and concatenates the results.
func Tables(tables []*domain.Table, catalog *domain.FieldCatalog) ([]domain.DataValue, error) {
	var out []domain.DataValue
	for _, t := range tables {
		values, err := Table(t, catalog)
		if err != nil {
			return nil, err
		}
		out = append(out, values...)
	}
	return out, nil
}
