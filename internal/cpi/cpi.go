// Package cpi merges the rebased consumer price index with its pre-2017
// history and derives the monthly inflation column.
package cpi

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ahmethakanbesel/macro-sync/internal/apperror"
)

// Cutoff is the first month covered by the rebased index. Older rows come
// from the historical series, newer ones from the rebased source.
var Cutoff = time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)

var one = decimal.NewFromInt(1)

type Record struct {
	Date      time.Time
	CPI       decimal.Decimal
	Inflation decimal.NullDecimal
}

type Series []Record

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

// Merge returns the stored series extended with the rebased source, or nil
// when stored is already current. Rows of stored dated on or after Cutoff
// are discarded; the first source row only seeds the inflation of the
// second and is dropped.
func Merge(stored, source Series) (Series, error) {
	if !source.MaxDate().After(stored.MaxDate()) {
		return nil, nil
	}

	old := truncate(stored, Cutoff)

	fresh, err := withInflation(source)
	if err != nil {
		return nil, err
	}
	fresh = fresh[1:]

	if err := checkBoundary(old, fresh); err != nil {
		return nil, err
	}

	out := make(Series, 0, len(old)+len(fresh))
	out = append(out, old...)
	out = append(out, fresh...)
	return out, nil
}

func truncate(s Series, cutoff time.Time) Series {
	out := make(Series, 0, len(s))
	for _, r := range s {
		if r.Date.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out
}

// withInflation returns a copy of s whose Inflation is the period change of
// CPI. The first row has no previous value and is left null.
func withInflation(s Series) (Series, error) {
	out := make(Series, len(s))
	copy(out, s)
	for i := range out {
		out[i].Inflation = decimal.NullDecimal{}
		if i == 0 {
			continue
		}
		prev := out[i-1].CPI
		if prev.IsZero() {
			return nil, apperror.New(apperror.Invariant,
				fmt.Sprintf("zero CPI on %s cannot seed inflation", out[i-1].Date.Format("2006-01-02")))
		}
		out[i].Inflation = decimal.NewNullDecimal(out[i].CPI.Div(prev).Sub(one))
	}
	return out, nil
}

// checkBoundary enforces max(old) < Cutoff <= min(fresh) with each segment
// strictly increasing, so the concatenation needs no re-sort.
func checkBoundary(old, fresh Series) error {
	if len(fresh) == 0 {
		return apperror.New(apperror.Invariant, "source CPI has no rows after the seed row")
	}
	if err := checkIncreasing("stored", old); err != nil {
		return err
	}
	if err := checkIncreasing("source", fresh); err != nil {
		return err
	}
	if first := fresh[0].Date; first.Before(Cutoff) {
		return apperror.New(apperror.Invariant,
			fmt.Sprintf("source CPI starts %s, before cutoff %s", first.Format("2006-01-02"), Cutoff.Format("2006-01-02")))
	}
	return nil
}

func checkIncreasing(segment string, s Series) error {
	for i := 1; i < len(s); i++ {
		if !s[i].Date.After(s[i-1].Date) {
			return apperror.New(apperror.Invariant,
				fmt.Sprintf("%s CPI dates not increasing at %s", segment, s[i].Date.Format("2006-01-02")))
		}
	}
	return nil
}
