package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/ahmethakanbesel/macro-sync/internal/apperror"
)

// ReadCSV decodes a header-first CSV document into a Table.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, apperror.New(apperror.Parse, "empty csv document")
	}
	if err != nil {
		return nil, apperror.Wrap(apperror.Parse, err, "read csv header")
	}
	// Excel-style exports sometimes carry a BOM on the first cell.
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	t := &Table{Columns: header}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperror.Wrap(apperror.Parse, err, "read csv row")
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// WriteCSV encodes t with a header line and no index column.
func WriteCSV(t *Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Columns); err != nil {
		return nil, err
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
