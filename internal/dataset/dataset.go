package dataset

import (
	"context"
	"fmt"
	"time"

	"github.com/ahmethakanbesel/macro-sync/internal/apperror"
)

const (
	DateColumn = "Date"
	dateFormat = "2006-01-02"
)

// ConflictPolicy controls how an upload reconciles with stored rows.
// The zero value never deletes rows missing from the upload and never
// lets stored values override uploaded ones.
type ConflictPolicy struct {
	DeleteMissing bool
	PreferStored  bool
}

// KeepMissingOverwrite is the policy used for every upload.
var KeepMissingOverwrite = ConflictPolicy{}

// Store is a remote dataset host addressed by numeric dataset id.
type Store interface {
	Download(ctx context.Context, id int) (*Table, error)
	Upload(ctx context.Context, id int, t *Table, p ConflictPolicy) error
}

// Table is the tabular shape exchanged with a Store.
type Table struct {
	Columns []string
	Rows    [][]string
}

// ColumnIndex returns the position of name, or -1 and a PARSE error.
func (t *Table) ColumnIndex(name string) (int, error) {
	for i, c := range t.Columns {
		if c == name {
			return i, nil
		}
	}
	return -1, apperror.New(apperror.Parse, fmt.Sprintf("column %q not found", name))
}

// ParseDate reads a stored date. A trailing time-of-day component is
// ignored.
func ParseDate(s string) (time.Time, error) {
	if len(s) > len(dateFormat) {
		s = s[:len(dateFormat)]
	}
	return time.Parse(dateFormat, s)
}

func FormatDate(t time.Time) string {
	return t.Format(dateFormat)
}
