package service

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/crewdesk/console/internal/domain"
)

// dateLayout is the calendar-day format accepted from the tour form.
const dateLayout = "2006-01-02"

// NormalizeDates validates the date rows of a tour form and returns them in
// chronological order. Dates are interpreted in loc (UTC when nil).
//
//   - Rows with neither a date nor a location are dropped.
//   - A row with a location but no date is rejected.
//   - A date that is not YYYY-MM-DD is rejected.
//   - At least one dated row must remain.
//
// Sorting is stable, so rows on the same day keep their input order.
func NormalizeDates(entries []domain.DateEntry, loc *time.Location) ([]domain.ValidatedDate, error) {
	if loc == nil {
		loc = time.UTC
	}

	out := make([]domain.ValidatedDate, 0, len(entries))
	for i, e := range entries {
		date := strings.TrimSpace(e.Date)
		location := strings.TrimSpace(e.Location)

		if date == "" {
			if location != "" {
				return nil, fmt.Errorf("%w: missing date on an entry (row %d)", domain.ErrValidation, i+1)
			}
			continue
		}

		d, err := time.ParseInLocation(dateLayout, date, loc)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid date %q on row %d", domain.ErrValidation, date, i+1)
		}
		out = append(out, domain.ValidatedDate{Date: d, Location: location})
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no valid dates", domain.ErrValidation)
	}

	slices.SortStableFunc(out, func(a, b domain.ValidatedDate) int {
		return a.Date.Compare(b.Date)
	})
	return out, nil
}

// dayStart returns midnight at the start of d's calendar day.
func dayStart(d time.Time) time.Time {
	y, m, dd := d.Date()
	return time.Date(y, m, dd, 0, 0, 0, 0, d.Location())
}

// dayEnd returns the last second of d's calendar day.
func dayEnd(d time.Time) time.Time {
	y, m, dd := d.Date()
	return time.Date(y, m, dd, 23, 59, 59, 0, d.Location())
}
