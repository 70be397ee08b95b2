package dataset

import (
	"context"
	"reflect"
	"testing"

	"github.com/ahmethakanbesel/macro-sync/internal/apperror"
	domain "github.com/ahmethakanbesel/macro-sync/internal/dataset"
	"github.com/ahmethakanbesel/macro-sync/internal/platform/sqlite"
)

func setupTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func rateTable(rows ...[]string) *domain.Table {
	return &domain.Table{
		Columns: []string{"Date", "country", "bid_price", "ask_price"},
		Rows:    rows,
	}
}

func TestUpload_And_Download(t *testing.T) {
	repo := NewRepository(setupTestDB(t).DB)
	ctx := context.Background()

	in := rateTable(
		[]string{"2020-01-02", "Argentina", "71", "76"},
		[]string{"2020-01-01", "Argentina", "70", "75"},
	)
	if err := repo.Upload(ctx, 29762, in, domain.KeepMissingOverwrite); err != nil {
		t.Fatalf("upload: %v", err)
	}

	got, err := repo.Download(ctx, 29762)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if !reflect.DeepEqual(got.Columns, in.Columns) {
		t.Errorf("expected columns %v, got %v", in.Columns, got.Columns)
	}
	if len(got.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got.Rows))
	}
	if got.Rows[0][0] != "2020-01-01" {
		t.Errorf("expected rows ordered by date, got %v first", got.Rows[0])
	}
}

func TestDownload_NotStoredYet(t *testing.T) {
	repo := NewRepository(setupTestDB(t).DB)

	got, err := repo.Download(context.Background(), 404)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if !reflect.DeepEqual(got.Columns, []string{"Date"}) {
		t.Errorf("expected only the Date column, got %v", got.Columns)
	}
	if len(got.Rows) != 0 {
		t.Errorf("expected no rows, got %v", got.Rows)
	}
}

func TestUpload_KeepsMissingAndOverwrites(t *testing.T) {
	repo := NewRepository(setupTestDB(t).DB)
	ctx := context.Background()

	first := rateTable(
		[]string{"2020-01-01", "Argentina", "70", "75"},
		[]string{"2020-01-02", "Argentina", "71", "76"},
	)
	if err := repo.Upload(ctx, 1, first, domain.KeepMissingOverwrite); err != nil {
		t.Fatal(err)
	}

	second := rateTable(
		[]string{"2020-01-02", "Argentina", "71.5", "76.5"},
		[]string{"2020-01-03", "Argentina", "72", "77"},
	)
	if err := repo.Upload(ctx, 1, second, domain.KeepMissingOverwrite); err != nil {
		t.Fatal(err)
	}

	got, err := repo.Download(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Rows) != 3 {
		t.Fatalf("expected 3 rows (missing row kept), got %d", len(got.Rows))
	}
	if got.Rows[1][2] != "71.5" {
		t.Errorf("expected uploaded value to win, got %s", got.Rows[1][2])
	}
}

func TestUpload_PreferStored(t *testing.T) {
	repo := NewRepository(setupTestDB(t).DB)
	ctx := context.Background()

	if err := repo.Upload(ctx, 1, rateTable([]string{"2020-01-01", "Argentina", "70", "75"}), domain.KeepMissingOverwrite); err != nil {
		t.Fatal(err)
	}
	policy := domain.ConflictPolicy{PreferStored: true}
	if err := repo.Upload(ctx, 1, rateTable([]string{"2020-01-01", "Argentina", "99", "99"}), policy); err != nil {
		t.Fatal(err)
	}

	got, err := repo.Download(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got.Rows[0][2] != "70" {
		t.Errorf("expected stored value to win, got %s", got.Rows[0][2])
	}
}

func TestUpload_DeleteMissing(t *testing.T) {
	repo := NewRepository(setupTestDB(t).DB)
	ctx := context.Background()

	first := rateTable(
		[]string{"2020-01-01", "Argentina", "70", "75"},
		[]string{"2020-01-02", "Argentina", "71", "76"},
	)
	if err := repo.Upload(ctx, 1, first, domain.KeepMissingOverwrite); err != nil {
		t.Fatal(err)
	}
	policy := domain.ConflictPolicy{DeleteMissing: true}
	if err := repo.Upload(ctx, 1, rateTable([]string{"2020-01-02", "Argentina", "71", "76"}), policy); err != nil {
		t.Fatal(err)
	}

	got, err := repo.Download(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Rows) != 1 || got.Rows[0][0] != "2020-01-02" {
		t.Errorf("expected only 2020-01-02 to remain, got %v", got.Rows)
	}
}

func TestUpload_MergesColumns(t *testing.T) {
	repo := NewRepository(setupTestDB(t).DB)
	ctx := context.Background()

	old := &domain.Table{Columns: []string{"Date", "CPI"}, Rows: [][]string{{"2016-12-01", "100"}}}
	if err := repo.Upload(ctx, 1, old, domain.KeepMissingOverwrite); err != nil {
		t.Fatal(err)
	}
	merged := &domain.Table{Columns: []string{"Date", "CPI", "inflation"}, Rows: [][]string{{"2017-01-01", "101.59", "0.0159"}}}
	if err := repo.Upload(ctx, 1, merged, domain.KeepMissingOverwrite); err != nil {
		t.Fatal(err)
	}

	got, err := repo.Download(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got.Columns, []string{"Date", "CPI", "inflation"}) {
		t.Errorf("unexpected columns %v", got.Columns)
	}
	if got.Rows[0][2] != "" || got.Rows[1][2] != "0.0159" {
		t.Errorf("unexpected inflation cells %v", got.Rows)
	}
}

func TestUpload_Errors(t *testing.T) {
	repo := NewRepository(setupTestDB(t).DB)
	ctx := context.Background()

	noDate := &domain.Table{Columns: []string{"CPI"}, Rows: [][]string{{"100"}}}
	if err := repo.Upload(ctx, 1, noDate, domain.KeepMissingOverwrite); !apperror.Is(err, apperror.RemoteStore) {
		t.Errorf("expected REMOTE_STORE error for missing Date, got %v", err)
	}

	ragged := &domain.Table{Columns: []string{"Date", "CPI"}, Rows: [][]string{{"2020-01-01"}}}
	if err := repo.Upload(ctx, 1, ragged, domain.KeepMissingOverwrite); !apperror.Is(err, apperror.RemoteStore) {
		t.Errorf("expected REMOTE_STORE error for ragged row, got %v", err)
	}

	got, err := repo.Download(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Rows) != 0 || len(got.Columns) != 1 {
		t.Errorf("failed uploads must not create the dataset, got %+v", got)
	}
}
