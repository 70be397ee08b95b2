package ambito

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ahmethakanbesel/macro-sync/internal/apperror"
)

const cellDateLayout = "2/1/2006"

// ParseLocaleDecimal parses a number written in the es-AR locale, where
// '.' groups thousands and ',' separates decimals: "1.234,56" is 1234.56.
func ParseLocaleDecimal(s string) (decimal.Decimal, error) {
	v := strings.TrimSpace(s)
	if v == "" {
		return decimal.Zero, apperror.New(apperror.Parse, "empty number")
	}
	if strings.Count(v, ",") > 1 {
		return decimal.Zero, apperror.New(apperror.Parse, fmt.Sprintf("more than one decimal comma in %q", s))
	}
	v = strings.ReplaceAll(v, ".", "")
	v = strings.Replace(v, ",", ".", 1)

	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, apperror.Wrap(apperror.Parse, err, fmt.Sprintf("number %q", s))
	}
	return d, nil
}

// parseCellDate reads a DD/MM/YYYY cell. Slashes may still be escaped as
// they appear in the page source.
func parseCellDate(s string) (time.Time, error) {
	v := strings.ReplaceAll(strings.TrimSpace(s), `\/`, "/")
	t, err := time.Parse(cellDateLayout, v)
	if err != nil {
		return time.Time{}, apperror.Wrap(apperror.Parse, err, fmt.Sprintf("date %q", s))
	}
	return t, nil
}
