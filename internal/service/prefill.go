package service

import (
	"strings"
	"time"

	"tallyocr/internal/domain"
)

// Layouts seen on scanned sheets, most specific first.
var prefillDateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2-1-2006",
}

// prefillFromNonTableData pulls selection hints out of a page's key-value
// pairs: the health structure name seeds the org-unit search box and the
// first parseable start date seeds the period start. Existing values are
// never overwritten; the reviewer's input wins.
func prefillFromNonTableData(sess *domain.Session, kv map[string]domain.Cell) {
	for key, cell := range kv {
		if !cell.Present || cell.Raw == "" {
			continue
		}
		lower := strings.ToLower(key)
		switch {
		case sess.OrgUnitQuery == "" && (strings.Contains(lower, "health structure") ||
			strings.Contains(lower, "facility") || strings.Contains(lower, "org")):
			sess.OrgUnitQuery = strings.TrimSpace(cell.Raw)
		case sess.PeriodStart == nil && strings.Contains(lower, "date") && !strings.Contains(lower, "end"):
			if d, ok := parsePrefillDate(cell.Raw); ok {
				sess.PeriodStart = &d
			}
		}
	}
}

func parsePrefillDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range prefillDateLayouts {
		if d, err := time.Parse(layout, raw); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}
