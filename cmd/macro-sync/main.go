package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/ahmethakanbesel/macro-sync/internal/config"
	"github.com/ahmethakanbesel/macro-sync/internal/dataset"
	"github.com/ahmethakanbesel/macro-sync/internal/dataset/alphacast"
	"github.com/ahmethakanbesel/macro-sync/internal/platform/sqlite"
	datasetrepo "github.com/ahmethakanbesel/macro-sync/internal/repository/dataset"
	"github.com/ahmethakanbesel/macro-sync/internal/scraper/ambito"
	"github.com/ahmethakanbesel/macro-sync/internal/syncer"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Configuration errors abort before any network activity.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		return 1
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger.With("run_id", uuid.NewString()))

	// Cancelled on SIGINT/SIGTERM so an in-flight request stops promptly.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(cfg)
	if err != nil {
		slog.Error("failed to open dataset store", "backend", cfg.StoreBackend, "error", err)
		return 1
	}
	defer closeStore()

	sc := ambito.New(
		ambito.WithEndpoint(cfg.AmbitoEndpoint),
		ambito.WithTimeout(cfg.ScrapeTimeout),
	)

	s := syncer.New(sc, store, syncer.Datasets{
		InformalER: cfg.InformalERDataset,
		SourceCPI:  cfg.SourceCPIDataset,
		CPI:        cfg.CPIDataset,
	})

	slog.Info("sync started", "backend", cfg.StoreBackend)
	if results := s.Run(ctx); syncer.Failed(results) {
		return 1
	}
	return 0
}

func openStore(cfg config.Config) (dataset.Store, func(), error) {
	if cfg.StoreBackend == config.BackendSQLite {
		db, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		return datasetrepo.NewRepository(db.DB), func() { _ = db.Close() }, nil
	}

	c := alphacast.New(cfg.AlphacastKey,
		alphacast.WithBaseURL(cfg.AlphacastBaseURL),
		alphacast.WithTimeout(cfg.StoreTimeout),
	)
	return c, func() {}, nil
}
