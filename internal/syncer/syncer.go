package syncer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/ahmethakanbesel/macro-sync/internal/cpi"
	"github.com/ahmethakanbesel/macro-sync/internal/dataset"
	"github.com/ahmethakanbesel/macro-sync/internal/rate"
	"github.com/ahmethakanbesel/macro-sync/internal/scraper"
)

const (
	InformalER = "informal_er"
	CPI        = "cpi"
)

type Status string

const (
	StatusUpdated  Status = "updated"
	StatusUpToDate Status = "up_to_date"
	StatusFailed   Status = "failed"
)

// Result is the outcome of one dataset pipeline.
type Result struct {
	Dataset  string
	Status   Status
	Rows     int
	Err      error
	Duration time.Duration
}

// Datasets holds the remote dataset ids the pipelines read and write.
type Datasets struct {
	InformalER int
	SourceCPI  int
	CPI        int
}

type Syncer struct {
	scraper scraper.RateScraper
	store   dataset.Store
	ids     Datasets
	out     io.Writer
}

func New(sc scraper.RateScraper, store dataset.Store, ids Datasets, opts ...Option) *Syncer {
	s := &Syncer{
		scraper: sc,
		store:   store,
		ids:     ids,
		out:     os.Stdout,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

type Option func(*Syncer)

// WithOutput sets where the per-dataset status lines are printed.
func WithOutput(w io.Writer) Option {
	return func(s *Syncer) { s.out = w }
}

// Run executes the exchange rate pipeline and then the CPI pipeline. A
// failure in one never prevents the other from running.
func (s *Syncer) Run(ctx context.Context) []Result {
	results := []Result{
		s.timed(ctx, InformalER, s.SyncRates),
		s.timed(ctx, CPI, s.SyncCPI),
	}
	for _, r := range results {
		s.report(r)
	}
	return results
}

// Failed reports whether any pipeline failed.
func Failed(results []Result) bool {
	for _, r := range results {
		if r.Status == StatusFailed {
			return true
		}
	}
	return false
}

// SyncRates scrapes the informal rate and uploads the whole series when it
// has a date newer than the stored dataset.
func (s *Syncer) SyncRates(ctx context.Context) Result {
	res := Result{Dataset: InformalER}

	fetched, err := s.scraper.FetchRateSeries(ctx)
	if err != nil {
		return res.fail(fmt.Errorf("scrape %s: %w", s.scraper.Source(), err))
	}

	tbl, err := s.store.Download(ctx, s.ids.InformalER)
	if err != nil {
		return res.fail(fmt.Errorf("download dataset %d: %w", s.ids.InformalER, err))
	}
	stored, err := rate.FromTable(tbl)
	if err != nil {
		return res.fail(fmt.Errorf("decode dataset %d: %w", s.ids.InformalER, err))
	}

	if !rate.NeedsUpdate(stored, fetched) {
		slog.Info("rates up to date", "stored_max", stored.MaxDate().Format("2006-01-02"),
			"fetched_max", fetched.MaxDate().Format("2006-01-02"))
		res.Status = StatusUpToDate
		return res
	}

	if err := s.store.Upload(ctx, s.ids.InformalER, fetched.ToTable(), dataset.KeepMissingOverwrite); err != nil {
		return res.fail(fmt.Errorf("upload dataset %d: %w", s.ids.InformalER, err))
	}

	res.Status = StatusUpdated
	res.Rows = len(fetched)
	return res
}

// SyncCPI merges the rebased source CPI into the stored CPI dataset.
func (s *Syncer) SyncCPI(ctx context.Context) Result {
	res := Result{Dataset: CPI}

	srcTbl, err := s.store.Download(ctx, s.ids.SourceCPI)
	if err != nil {
		return res.fail(fmt.Errorf("download dataset %d: %w", s.ids.SourceCPI, err))
	}
	source, err := cpi.Format(srcTbl)
	if err != nil {
		return res.fail(fmt.Errorf("format dataset %d: %w", s.ids.SourceCPI, err))
	}

	storedTbl, err := s.store.Download(ctx, s.ids.CPI)
	if err != nil {
		return res.fail(fmt.Errorf("download dataset %d: %w", s.ids.CPI, err))
	}
	stored, err := cpi.FromTable(storedTbl)
	if err != nil {
		return res.fail(fmt.Errorf("decode dataset %d: %w", s.ids.CPI, err))
	}

	merged, err := cpi.Merge(stored, source)
	if err != nil {
		return res.fail(fmt.Errorf("merge cpi: %w", err))
	}
	if merged == nil {
		slog.Info("cpi up to date", "stored_max", stored.MaxDate().Format("2006-01-02"),
			"source_max", source.MaxDate().Format("2006-01-02"))
		res.Status = StatusUpToDate
		return res
	}

	if err := s.store.Upload(ctx, s.ids.CPI, merged.ToTable(), dataset.KeepMissingOverwrite); err != nil {
		return res.fail(fmt.Errorf("upload dataset %d: %w", s.ids.CPI, err))
	}

	res.Status = StatusUpdated
	res.Rows = len(merged)
	return res
}

func (s *Syncer) timed(ctx context.Context, name string, fn func(context.Context) Result) Result {
	start := time.Now()
	r := fn(ctx)
	r.Duration = time.Since(start)

	if r.Err != nil {
		slog.Error("dataset sync failed", "dataset", name, "error", r.Err, "duration", r.Duration)
	} else {
		slog.Info("dataset sync finished", "dataset", name, "status", r.Status, "rows", r.Rows, "duration", r.Duration)
	}
	return r
}

func (s *Syncer) report(r Result) {
	switch r.Status {
	case StatusUpdated:
		fmt.Fprintf(s.out, "The %s data has been updated\n", r.Dataset)
	case StatusUpToDate:
		fmt.Fprintf(s.out, "There's no need to update the %s data\n", r.Dataset)
	default:
		fmt.Fprintf(s.out, "The %s update failed: %v\n", r.Dataset, r.Err)
	}
}

func (r Result) fail(err error) Result {
	r.Status = StatusFailed
	r.Err = err
	return r
}
