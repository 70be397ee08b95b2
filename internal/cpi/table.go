package cpi

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ahmethakanbesel/macro-sync/internal/apperror"
	"github.com/ahmethakanbesel/macro-sync/internal/dataset"
)

const (
	// SourceColumn holds the headline index in the rebased source dataset.
	SourceColumn    = "Nivel general"
	CPIColumn       = "CPI"
	InflationColumn = "inflation"
)

// Format keeps the date and headline index of the source dataset and
// drops every other column.
func Format(t *dataset.Table) (Series, error) {
	return decode(t, SourceColumn, "")
}

// FromTable decodes the stored merged dataset. A dataset without rows
// decodes to an empty series whatever its columns.
func FromTable(t *dataset.Table) (Series, error) {
	if len(t.Rows) == 0 {
		return Series{}, nil
	}
	return decode(t, CPIColumn, InflationColumn)
}

// ToTable encodes s as Date, CPI, inflation. Null inflation is written as
// an empty cell.
func (s Series) ToTable() *dataset.Table {
	t := &dataset.Table{Columns: []string{dataset.DateColumn, CPIColumn, InflationColumn}}
	for _, r := range s {
		infl := ""
		if r.Inflation.Valid {
			infl = r.Inflation.Decimal.String()
		}
		t.Rows = append(t.Rows, []string{dataset.FormatDate(r.Date), r.CPI.String(), infl})
	}
	return t
}

func decode(t *dataset.Table, cpiCol, inflCol string) (Series, error) {
	dateIdx, err := t.ColumnIndex(dataset.DateColumn)
	if err != nil {
		return nil, err
	}
	cpiIdx, err := t.ColumnIndex(cpiCol)
	if err != nil {
		return nil, err
	}
	inflIdx := -1
	if inflCol != "" {
		inflIdx, _ = t.ColumnIndex(inflCol)
	}

	s := make(Series, 0, len(t.Rows))
	for i, row := range t.Rows {
		var r Record
		if r.Date, err = dataset.ParseDate(row[dateIdx]); err != nil {
			return nil, apperror.Wrap(apperror.Parse, err, fmt.Sprintf("row %d %s", i, dataset.DateColumn))
		}
		if r.CPI, err = decimal.NewFromString(row[cpiIdx]); err != nil {
			return nil, apperror.Wrap(apperror.Parse, err, fmt.Sprintf("row %d %s", i, cpiCol))
		}
		if inflIdx >= 0 && row[inflIdx] != "" {
			v, err := decimal.NewFromString(row[inflIdx])
			if err != nil {
				return nil, apperror.Wrap(apperror.Parse, err, fmt.Sprintf("row %d %s", i, inflCol))
			}
			r.Inflation = decimal.NewNullDecimal(v)
		}
		s = append(s, r)
	}

	sort.SliceStable(s, func(i, j int) bool { return s[i].Date.Before(s[j].Date) })
	return s, nil
}
