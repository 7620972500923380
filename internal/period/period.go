// Package period converts a calendar date plus a reporting-period type into
// the canonical period identifier string used by the health-information
// system.
package period

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Type is a reporting-period type as reported by the metadata catalog on a
// dataset.
type Type string

const (
	Daily              Type = "Daily"
	Weekly             Type = "Weekly"
	WeeklyWednesday    Type = "WeeklyWednesday"
	WeeklyThursday     Type = "WeeklyThursday"
	WeeklySaturday     Type = "WeeklySaturday"
	WeeklySunday       Type = "WeeklySunday"
	BiWeekly           Type = "BiWeekly"
	Monthly            Type = "Monthly"
	BiMonthly          Type = "BiMonthly"
	Quarterly          Type = "Quarterly"
	SixMonthly         Type = "SixMonthly"
	SixMonthlyApril    Type = "SixMonthlyApril"
	SixMonthlyNovember Type = "SixMonthlyNovember"
	Yearly             Type = "Yearly"
	FinancialApril     Type = "FinancialApril"
	FinancialJuly      Type = "FinancialJuly"
	FinancialOct       Type = "FinancialOct"
	FinancialNov       Type = "FinancialNov"
)

// templates is the fixed period-type-to-pattern table. Placeholders are
// substituted with raw integers.
var templates = map[Type]string{
	Daily:              "{year}{month}{day}",
	Weekly:             "{year}W{week}",
	WeeklyWednesday:    "{year}WedW{week}",
	WeeklyThursday:     "{year}ThuW{week}",
	WeeklySaturday:     "{year}SatW{week}",
	WeeklySunday:       "{year}SunW{week}",
	BiWeekly:           "{year}Bi{week}",
	Monthly:            "{year}{month}",
	BiMonthly:          "{year}{month}B",
	Quarterly:          "{year}{quarter_number}",
	SixMonthly:         "{year}{semiyear_number}",
	SixMonthlyApril:    "{year}April{semiyear_number}",
	SixMonthlyNovember: "{year}Nov{semiyear_number}",
	Yearly:             "{year}",
	FinancialApril:     "{year}April",
	FinancialJuly:      "{year}July",
	FinancialOct:       "{year}Oct",
	FinancialNov:       "{year}Nov",
}

// Valid reports whether t is a known period type.
func (t Type) Valid() bool {
	_, ok := templates[t]
	return ok
}

// ordinalEpoch is the proleptic-Gregorian ordinal of 1970-01-01 (day 1 being
// 0001-01-01).
const ordinalEpoch = 719163

// ordinal returns the proleptic-Gregorian ordinal of the date, ignoring the
// time of day.
func ordinal(d time.Time) int {
	u := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC).Unix()
	days := u / 86400
	if u < 0 && u%86400 != 0 {
		days--
	}
	return int(days) + ordinalEpoch
}

// Week1StartOrdinal returns the ordinal of the Sunday on or before January 1,
// the start of epidemiological week 1 of the year.
func Week1StartOrdinal(year int) int {
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	// Monday=0..Sunday=6, so this lands on the preceding Sunday.
	weekday := (int(jan1.Weekday()) + 6) % 7
	return ordinal(jan1) - ((weekday + 1) % 7)
}

// WeekFromDate computes the epidemiological (year, week) for a date. Weeks 53
// never appear: a computed week 53 (long epi-years such as 2022, whose week 1
// starts 371 days before the next) rolls into (year+1, week 1), as does a
// week-52 date on or after next year's week-1 start. The rollover compares
// ordinals, not calendar years, so it holds across leap years.
func WeekFromDate(d time.Time) (year, week int) {
	ord := ordinal(d)
	year = d.Year()
	week = ((ord - Week1StartOrdinal(year)) / 7) + 1
	if week > 52 || (week == 52 && ord >= Week1StartOrdinal(year+1)) {
		year++
		week = 1
	}
	return year, week
}

// ID formats the canonical period identifier for a period type and start
// date. Deterministic: the same inputs always yield the same string. An
// unknown or unset period type is an error; callers must block submission
// until a dataset (and hence its period type) is selected.
func ID(t Type, start time.Time) (string, error) {
	tmpl, ok := templates[t]
	if !ok {
		return "", fmt.Errorf("unknown period type %q", string(t))
	}
	year, week := WeekFromDate(start)
	month := int(start.Month())
	r := strings.NewReplacer(
		"{year}", strconv.Itoa(year),
		"{month}", strconv.Itoa(month),
		"{day}", strconv.Itoa(start.Day()),
		"{week}", strconv.Itoa(week),
		"{quarter_number}", strconv.Itoa(((month-1)/3)+1),
		"{semiyear_number}", strconv.Itoa(((month-1)/6)+1),
	)
	return r.Replace(tmpl), nil
}
