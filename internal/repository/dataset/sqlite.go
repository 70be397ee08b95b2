package dataset

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ahmethakanbesel/macro-sync/internal/apperror"
	domain "github.com/ahmethakanbesel/macro-sync/internal/dataset"
)

const batchSize = 500

// Repository is a dataset.Store kept in SQLite. Rows are keyed by their
// Date cell and stored as JSON objects so any column layout fits.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Download returns the stored rows of dataset id ordered by date. A dataset
// that was never uploaded reads as an empty table with only the Date column.
func (r *Repository) Download(ctx context.Context, id int) (*domain.Table, error) {
	var colsJSON string
	err := r.db.QueryRowContext(ctx, `SELECT columns FROM datasets WHERE id = ?`, id).Scan(&colsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		slog.Debug("dataset not stored yet", "dataset", id)
		return &domain.Table{Columns: []string{domain.DateColumn}}, nil
	}
	if err != nil {
		return nil, apperror.Wrap(apperror.RemoteStore, err, fmt.Sprintf("get dataset %d", id))
	}

	t := &domain.Table{}
	if err := json.Unmarshal([]byte(colsJSON), &t.Columns); err != nil {
		return nil, apperror.Wrap(apperror.RemoteStore, err, fmt.Sprintf("decode dataset %d columns", id))
	}

	const query = `SELECT data FROM dataset_rows WHERE dataset_id = ? ORDER BY date ASC`
	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, apperror.Wrap(apperror.RemoteStore, err, fmt.Sprintf("list dataset %d rows", id))
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, apperror.Wrap(apperror.RemoteStore, err, "scan row")
		}
		cells := map[string]string{}
		if err := json.Unmarshal([]byte(data), &cells); err != nil {
			return nil, apperror.Wrap(apperror.RemoteStore, err, fmt.Sprintf("decode dataset %d row", id))
		}
		row := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			row[i] = cells[c]
		}
		t.Rows = append(t.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Wrap(apperror.RemoteStore, err, fmt.Sprintf("list dataset %d rows", id))
	}

	return t, nil
}

// Upload writes t into dataset id. Uploaded rows replace stored rows with
// the same date unless p.PreferStored; stored rows absent from the upload
// are only removed when p.DeleteMissing.
func (r *Repository) Upload(ctx context.Context, id int, t *domain.Table, p domain.ConflictPolicy) error {
	dateIdx, err := t.ColumnIndex(domain.DateColumn)
	if err != nil {
		return apperror.Wrap(apperror.RemoteStore, err, fmt.Sprintf("upload dataset %d", id))
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return apperror.Wrap(apperror.RemoteStore, err, "begin upload")
	}
	defer func() { _ = tx.Rollback() }()

	if err := upsertColumns(ctx, tx, id, t.Columns); err != nil {
		return err
	}

	dates := make(map[string]bool, len(t.Rows))
	var written int64
	for i := 0; i < len(t.Rows); i += batchSize {
		batch := t.Rows[i:min(i+batchSize, len(t.Rows))]

		placeholders := make([]string, len(batch))
		args := make([]any, 0, len(batch)*3)
		for j, row := range batch {
			if len(row) != len(t.Columns) {
				return apperror.New(apperror.RemoteStore,
					fmt.Sprintf("row %d has %d cells, expected %d", i+j, len(row), len(t.Columns)))
			}
			cells := make(map[string]string, len(row))
			for k, c := range t.Columns {
				cells[c] = row[k]
			}
			data, err := json.Marshal(cells)
			if err != nil {
				return apperror.Wrap(apperror.RemoteStore, err, "encode row")
			}
			dates[row[dateIdx]] = true
			placeholders[j] = "(?, ?, ?)"
			args = append(args, id, row[dateIdx], string(data))
		}

		conflict := "DO UPDATE SET data = excluded.data, updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')"
		if p.PreferStored {
			conflict = "DO NOTHING"
		}
		query := fmt.Sprintf( //nolint:gosec // placeholders are not user input
			"INSERT INTO dataset_rows (dataset_id, date, data) VALUES %s ON CONFLICT (dataset_id, date) %s",
			strings.Join(placeholders, ", "), conflict,
		)

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return apperror.Wrap(apperror.RemoteStore, err, fmt.Sprintf("save dataset %d rows", id))
		}
		n, _ := res.RowsAffected()
		written += n
	}

	var deleted int64
	if p.DeleteMissing {
		if deleted, err = deleteMissing(ctx, tx, id, dates); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return apperror.Wrap(apperror.RemoteStore, err, "commit upload")
	}

	slog.Info("saved dataset rows", "dataset", id, "written", written, "deleted", deleted)
	return nil
}

// upsertColumns merges cols into the stored column list, keeping the
// stored order and appending new names.
func upsertColumns(ctx context.Context, tx *sql.Tx, id int, cols []string) error {
	var stored []string
	var colsJSON string
	err := tx.QueryRowContext(ctx, `SELECT columns FROM datasets WHERE id = ?`, id).Scan(&colsJSON)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return apperror.Wrap(apperror.RemoteStore, err, fmt.Sprintf("get dataset %d", id))
	default:
		if err := json.Unmarshal([]byte(colsJSON), &stored); err != nil {
			return apperror.Wrap(apperror.RemoteStore, err, fmt.Sprintf("decode dataset %d columns", id))
		}
	}

	seen := make(map[string]bool, len(stored))
	for _, c := range stored {
		seen[c] = true
	}
	for _, c := range cols {
		if !seen[c] {
			stored = append(stored, c)
			seen[c] = true
		}
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return apperror.Wrap(apperror.RemoteStore, err, "encode columns")
	}

	const query = `INSERT INTO datasets (id, columns) VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET columns = excluded.columns,
		updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')`
	if _, err := tx.ExecContext(ctx, query, id, string(data)); err != nil {
		return apperror.Wrap(apperror.RemoteStore, err, fmt.Sprintf("save dataset %d", id))
	}
	return nil
}

func deleteMissing(ctx context.Context, tx *sql.Tx, id int, keep map[string]bool) (int64, error) {
	rows, err := tx.QueryContext(ctx, `SELECT date FROM dataset_rows WHERE dataset_id = ?`, id)
	if err != nil {
		return 0, apperror.Wrap(apperror.RemoteStore, err, fmt.Sprintf("list dataset %d dates", id))
	}
	var stale []any
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			_ = rows.Close()
			return 0, apperror.Wrap(apperror.RemoteStore, err, "scan date")
		}
		if !keep[d] {
			stale = append(stale, d)
		}
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return 0, apperror.Wrap(apperror.RemoteStore, err, fmt.Sprintf("list dataset %d dates", id))
	}

	var total int64
	for i := 0; i < len(stale); i += batchSize {
		batch := stale[i:min(i+batchSize, len(stale))]
		query := fmt.Sprintf( //nolint:gosec // placeholders are not user input
			"DELETE FROM dataset_rows WHERE dataset_id = ? AND date IN (%s)",
			strings.TrimSuffix(strings.Repeat("?, ", len(batch)), ", "),
		)
		res, err := tx.ExecContext(ctx, query, append([]any{id}, batch...)...)
		if err != nil {
			return total, apperror.Wrap(apperror.RemoteStore, err, fmt.Sprintf("delete dataset %d rows", id))
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}
