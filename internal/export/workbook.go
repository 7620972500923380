// Package export renders the reviewed tables of a session as an .xlsx
// workbook for offline archival.
package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"tallyocr/internal/domain"
)

// Workbook writes one sheet per table: the header row first, then the data
// rows exactly as reviewed. Sheet names are capped at Excel's 31-character
// limit and deduplicated by position.
func Workbook(tables []*domain.Table) (*bytes.Buffer, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("no tables to export")
	}

	wb := excelize.NewFile()
	defer func() { _ = wb.Close() }()

	for i, t := range tables {
		name := sheetName(t.Name, i)
		if i == 0 {
			if err := wb.SetSheetName("Sheet1", name); err != nil {
				return nil, fmt.Errorf("renaming sheet: %w", err)
			}
		} else {
			if _, err := wb.NewSheet(name); err != nil {
				return nil, fmt.Errorf("creating sheet %q: %w", name, err)
			}
		}

		if err := writeRow(wb, name, 1, t.Headers); err != nil {
			return nil, err
		}
		for r, row := range t.Rows {
			if err := writeRow(wb, name, r+2, row); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	if err := wb.Write(&buf); err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return &buf, nil
}

func writeRow(wb *excelize.File, sheet string, rowNum int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("computing cell name: %w", err)
	}
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	if err := wb.SetSheetRow(sheet, cell, &row); err != nil {
		return fmt.Errorf("writing row %d of %q: %w", rowNum, sheet, err)
	}
	return nil
}

func sheetName(name string, index int) string {
	if name == "" {
		name = fmt.Sprintf("Table %d", index+1)
	}
	// Excel forbids long names; the index suffix keeps duplicates apart.
	suffix := fmt.Sprintf(" (%d)", index+1)
	if len(name)+len(suffix) > 31 {
		name = name[:31-len(suffix)]
	}
	if index > 0 {
		return name + suffix
	}
	return name
}
