package scraper

import (
	"context"

	"github.com/ahmethakanbesel/macro-sync/internal/rate"
)

// RateScraper fetches the full history of an exchange rate from an
// upstream page.
type RateScraper interface {
	Source() string
	FetchRateSeries(ctx context.Context) (rate.Series, error)
}
