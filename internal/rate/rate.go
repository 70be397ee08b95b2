package rate

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

const CountryArgentina = "Argentina"

// Rate is one day of the informal exchange rate.
type Rate struct {
	Date     time.Time
	Country  string
	BidPrice decimal.Decimal
	AskPrice decimal.Decimal
}

// Series is a chronologically ordered run of rates, one per date once
// normalized.
type Series []Rate

// Normalize deduplicates by date, keeping the last occurrence, and sorts
// the result ascending. Dates are truncated to calendar days.
func (s Series) Normalize() Series {
	idx := make(map[time.Time]int, len(s))
	out := make(Series, 0, len(s))
	for _, r := range s {
		r.Date = Day(r.Date)
		if i, ok := idx[r.Date]; ok {
			out[i] = r
			continue
		}
		idx[r.Date] = len(out)
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// MaxDate returns the latest date in the series, or the zero time when the
// series is empty.
func (s Series) MaxDate() time.Time {
	var last time.Time
	for _, r := range s {
		if r.Date.After(last) {
			last = r.Date
		}
	}
	return last
}

// NeedsUpdate reports whether fetched carries a date newer than anything in
// existing. Equal max dates never trigger an update.
func NeedsUpdate(existing, fetched Series) bool {
	return fetched.MaxDate().After(existing.MaxDate())
}

// Day truncates t to a UTC calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
