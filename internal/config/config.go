package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/ahmethakanbesel/macro-sync/internal/apperror"
)

const (
	BackendAlphacast = "alphacast"
	BackendSQLite    = "sqlite"
)

type Config struct {
	AlphacastKey     string
	AlphacastBaseURL string
	StoreBackend     string
	DBPath           string
	AmbitoEndpoint   string
	ScrapeTimeout    time.Duration
	StoreTimeout     time.Duration
	LogLevel         slog.Level

	InformalERDataset int
	SourceCPIDataset  int
	CPIDataset        int
}

// Load reads an optional .env file and then the process environment.
// The returned config has already been validated.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, apperror.Wrap(apperror.Config, err, "load .env")
	}
	return FromEnv()
}

// FromEnv builds the config from the environment only.
func FromEnv() (Config, error) {
	cfg := Config{
		AlphacastKey:     os.Getenv("ALPHACAST_KEY"),
		AlphacastBaseURL: getEnv("ALPHACAST_BASE_URL", "https://api.alphacast.io"),
		StoreBackend:     strings.ToLower(getEnv("STORE_BACKEND", BackendAlphacast)),
		DBPath:           getEnv("DB_PATH", "macro-sync.db"),
		AmbitoEndpoint:   getEnv("AMBITO_ENDPOINT", "https://mercados.ambito.com//dolar/informal/historico-general"),
	}

	var err error
	if cfg.ScrapeTimeout, err = getEnvDuration("SCRAPE_TIMEOUT", 30*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.StoreTimeout, err = getEnvDuration("STORE_TIMEOUT", 60*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.InformalERDataset, err = getEnvInt("INFORMAL_ER_DATASET", 29762); err != nil {
		return Config{}, err
	}
	if cfg.SourceCPIDataset, err = getEnvInt("SOURCE_CPI_DATASET", 5515); err != nil {
		return Config{}, err
	}
	if cfg.CPIDataset, err = getEnvInt("CPI_DATASET", 29891); err != nil {
		return Config{}, err
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return Config{}, apperror.Wrap(apperror.Config, err, "LOG_LEVEL")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that required settings are present.
func (c Config) Validate() error {
	switch c.StoreBackend {
	case BackendAlphacast:
		if c.AlphacastKey == "" {
			return apperror.New(apperror.Config, "ALPHACAST_KEY is required")
		}
	case BackendSQLite:
		if c.DBPath == "" {
			return apperror.New(apperror.Config, "DB_PATH is required for the sqlite backend")
		}
	default:
		return apperror.New(apperror.Config, fmt.Sprintf("unknown STORE_BACKEND %q", c.StoreBackend))
	}

	if c.ScrapeTimeout <= 0 {
		return apperror.New(apperror.Config, "SCRAPE_TIMEOUT must be positive")
	}
	if c.StoreTimeout <= 0 {
		return apperror.New(apperror.Config, "STORE_TIMEOUT must be positive")
	}
	for name, id := range map[string]int{
		"INFORMAL_ER_DATASET": c.InformalERDataset,
		"SOURCE_CPI_DATASET":  c.SourceCPIDataset,
		"CPI_DATASET":         c.CPIDataset,
	} {
		if id <= 0 {
			return apperror.New(apperror.Config, name+" must be a positive dataset id")
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperror.Wrap(apperror.Config, err, key)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, apperror.Wrap(apperror.Config, err, key)
	}
	return d, nil
}
