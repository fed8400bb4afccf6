/*
daterange.go - Date-range selectors

PURPOSE:
  Resolves the caller-facing range selectors into inclusive [start, end]
  date ranges, and filters deal lists by sale date. Archived-month keys
  (YYYY-MM) are NOT handled here: those bypass date filtering entirely -
  the bucket's full contents are used as-is by the caller.

SELECTORS:
  this-month    first day of current month -> today
  last-month    first -> last day of previous calendar month
  last-quarter  previous 3-month block aligned to calendar quarters
  ytd           Jan 1 of current year -> today
  last-year     Jan 1 -> Dec 31 of previous year
  custom        caller-supplied start/end
*/
package metrics

import (
	"fmt"
	"time"

	"github.com/warp/dealdesk/ledger"
)

type Selector string

const (
	SelectThisMonth   Selector = "this-month"
	SelectLastMonth   Selector = "last-month"
	SelectLastQuarter Selector = "last-quarter"
	SelectYTD         Selector = "ytd"
	SelectLastYear    Selector = "last-year"
	SelectCustom      Selector = "custom"
)

// Range is an inclusive date window.
type Range struct {
	Start ledger.Date
	End   ledger.Date
}

// ResolveRange computes the window for a selector against the given clock
// reading. customStart/customEnd are only consulted for SelectCustom.
func ResolveRange(sel Selector, now time.Time, customStart, customEnd ledger.Date) (Range, error) {
	today := ledger.DateOf(now)
	year, month := now.Year(), now.Month()

	switch sel {
	case SelectThisMonth:
		return Range{Start: ledger.NewDate(year, month, 1), End: today}, nil

	case SelectLastMonth:
		start := ledger.NewDate(year, month, 1).AddMonths(-1)
		return Range{Start: start, End: start.AddMonths(1).AddDays(-1)}, nil

	case SelectLastQuarter:
		// Align to calendar quarters, then step back one block.
		qStartMonth := time.Month(((int(month)-1)/3)*3 + 1)
		start := ledger.NewDate(year, qStartMonth, 1).AddMonths(-3)
		return Range{Start: start, End: start.AddMonths(3).AddDays(-1)}, nil

	case SelectYTD:
		return Range{Start: ledger.NewDate(year, time.January, 1), End: today}, nil

	case SelectLastYear:
		return Range{
			Start: ledger.NewDate(year-1, time.January, 1),
			End:   ledger.NewDate(year-1, time.December, 31),
		}, nil

	case SelectCustom:
		if customStart.IsZero() || customEnd.IsZero() {
			return Range{}, fmt.Errorf("custom range requires start and end dates")
		}
		if customEnd.Before(customStart) {
			return Range{}, fmt.Errorf("custom range end %s is before start %s", customEnd, customStart)
		}
		return Range{Start: customStart, End: customEnd}, nil

	default:
		return Range{}, fmt.Errorf("unknown range selector %q", sel)
	}
}

// Contains reports whether a date falls inside the range.
func (r Range) Contains(d ledger.Date) bool {
	return d.In(r.Start, r.End)
}

// FilterByRange returns the deals whose sale date falls inside the range.
// Order is preserved. Never nil.
func FilterByRange(deals []ledger.Deal, r Range) []ledger.Deal {
	filtered := []ledger.Deal{}
	for _, d := range deals {
		if r.Contains(d.SaleDate) {
			filtered = append(filtered, d)
		}
	}
	return filtered
}
