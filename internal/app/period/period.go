// Package period resolves the current reporting month in an account's
// timezone. Every month-scoped query in the application derives its bounds
// from one Resolve call so calls and spend always agree on the window.
package period

import (
	"fmt"
	"time"
)

// Period is one reporting month in a specific timezone.
type Period struct {
	// MonthKey is the YYYY-MM label of the month.
	MonthKey string
	// FirstOfMonth and TodayDate are inclusive YYYY-MM-DD bounds for
	// external report queries.
	FirstOfMonth string
	TodayDate    string
	// MonthStart is midnight on the first of the month in the account's
	// timezone; MonthEnd is midnight on the first of the next month.
	// Together they form the half-open interval [MonthStart, MonthEnd).
	MonthStart time.Time
	MonthEnd   time.Time
}

// Resolve computes the reporting month containing now in the given IANA
// timezone. time.Date normalises month 13, so the December rollover needs no
// special case.
func Resolve(timezone string, now time.Time) (Period, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return Period{}, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}

	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
	end := time.Date(local.Year(), local.Month()+1, 1, 0, 0, 0, 0, loc)

	return Period{
		MonthKey:     start.Format("2006-01"),
		FirstOfMonth: start.Format("2006-01-02"),
		TodayDate:    local.Format("2006-01-02"),
		MonthStart:   start,
		MonthEnd:     end,
	}, nil
}

// Contains reports whether t falls inside the period's month.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.MonthStart) && t.Before(p.MonthEnd)
}
