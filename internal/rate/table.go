package rate

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ahmethakanbesel/macro-sync/internal/apperror"
	"github.com/ahmethakanbesel/macro-sync/internal/dataset"
)

var columns = []string{dataset.DateColumn, "country", "bid_price", "ask_price"}

// ToTable encodes the series in the column layout of the stored dataset.
func (s Series) ToTable() *dataset.Table {
	t := &dataset.Table{Columns: append([]string(nil), columns...)}
	for _, r := range s {
		t.Rows = append(t.Rows, []string{
			dataset.FormatDate(r.Date),
			r.Country,
			r.BidPrice.String(),
			r.AskPrice.String(),
		})
	}
	return t
}

// FromTable decodes a downloaded dataset. Only the date column is required;
// price columns are read when present.
func FromTable(t *dataset.Table) (Series, error) {
	dateIdx, err := t.ColumnIndex(dataset.DateColumn)
	if err != nil {
		return nil, err
	}
	countryIdx, _ := t.ColumnIndex("country")
	bidIdx, _ := t.ColumnIndex("bid_price")
	askIdx, _ := t.ColumnIndex("ask_price")

	s := make(Series, 0, len(t.Rows))
	for i, row := range t.Rows {
		d, err := dataset.ParseDate(row[dateIdx])
		if err != nil {
			return nil, apperror.Wrap(apperror.Parse, err, fmt.Sprintf("row %d", i))
		}
		r := Rate{Date: d, Country: CountryArgentina}
		if countryIdx >= 0 && row[countryIdx] != "" {
			r.Country = row[countryIdx]
		}
		if r.BidPrice, err = optionalDecimal(row, bidIdx); err != nil {
			return nil, apperror.Wrap(apperror.Parse, err, fmt.Sprintf("row %d bid_price", i))
		}
		if r.AskPrice, err = optionalDecimal(row, askIdx); err != nil {
			return nil, apperror.Wrap(apperror.Parse, err, fmt.Sprintf("row %d ask_price", i))
		}
		s = append(s, r)
	}
	return s.Normalize(), nil
}

func optionalDecimal(row []string, idx int) (decimal.Decimal, error) {
	if idx < 0 || row[idx] == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(row[idx])
}
