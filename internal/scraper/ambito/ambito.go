package ambito

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ahmethakanbesel/macro-sync/internal/apperror"
	"github.com/ahmethakanbesel/macro-sync/internal/rate"
)

const (
	defaultEndpoint  = "https://mercados.ambito.com//dolar/informal/historico-general"
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64)"
	defaultTimeout   = 30 * time.Second
	pathDateFormat   = "02-01-2006"

	headerDate = "Fecha"
	headerBid  = "Compra"
	headerAsk  = "Venta"
)

// Epoch is the earliest date the history endpoint accepts.
var Epoch = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)

type Scraper struct {
	client    *http.Client
	endpoint  string
	userAgent string
	timeout   time.Duration
	now       func() time.Time
}

func New(opts ...Option) *Scraper {
	s := &Scraper{
		client:    http.DefaultClient,
		endpoint:  defaultEndpoint,
		userAgent: defaultUserAgent,
		timeout:   defaultTimeout,
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

type Option func(*Scraper)

func WithClient(c *http.Client) Option {
	return func(s *Scraper) { s.client = c }
}

func WithEndpoint(ep string) Option {
	return func(s *Scraper) { s.endpoint = ep }
}

func WithUserAgent(ua string) Option {
	return func(s *Scraper) { s.userAgent = ua }
}

func WithTimeout(d time.Duration) Option {
	return func(s *Scraper) { s.timeout = d }
}

func WithClock(now func() time.Time) Option {
	return func(s *Scraper) { s.now = now }
}

func (s *Scraper) Source() string { return "ambito" }

// FetchRateSeries returns the whole informal rate history up to today.
func (s *Scraper) FetchRateSeries(ctx context.Context) (rate.Series, error) {
	return s.Scrape(ctx, Epoch, s.now())
}

func (s *Scraper) Scrape(ctx context.Context, from, to time.Time) (rate.Series, error) {
	if from.IsZero() {
		return nil, apperror.New(apperror.Network, "start date cannot be empty")
	}
	if to.IsZero() {
		to = s.now()
	}
	if from.After(to) {
		return nil, apperror.New(apperror.Network, "start date cannot be after end date")
	}

	body, err := s.fetch(ctx, from, to)
	if err != nil {
		return nil, err
	}

	series, err := ParseSeries(body)
	if err != nil {
		return nil, err
	}

	slog.Info("retrieved ambito data",
		"from", from.Format("2006-01-02"), "to", to.Format("2006-01-02"),
		"count", len(series))

	return series, nil
}

func (s *Scraper) fetch(ctx context.Context, from, to time.Time) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	reqURL := fmt.Sprintf("%s/%s/%s", s.endpoint, from.Format(pathDateFormat), to.Format(pathDateFormat))

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return "", apperror.Wrap(apperror.Network, err, "build ambito request")
	}
	req.Header.Set("User-Agent", s.userAgent)

	res, err := s.client.Do(req) //nolint:gosec // URL built from internal config
	if err != nil {
		return "", apperror.Wrap(apperror.Network, err, "ambito request failed")
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return "", apperror.New(apperror.Network, fmt.Sprintf("ambito returned HTTP %d", res.StatusCode))
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", apperror.Wrap(apperror.Network, err, "read ambito response")
	}
	return string(body), nil
}

// ParseSeries turns the history payload into a normalized rate series.
// The first row must hold the Fecha/Compra/Venta labels.
func ParseSeries(body string) (rate.Series, error) {
	grid, err := ParseGrid(body)
	if err != nil {
		return nil, err
	}
	if len(grid) == 0 {
		return nil, apperror.New(apperror.Parse, "payload has no header row").WithSnippet(body)
	}

	header := grid[0]
	dateIdx, bidIdx, askIdx := indexOf(header, headerDate), indexOf(header, headerBid), indexOf(header, headerAsk)
	if dateIdx < 0 || bidIdx < 0 || askIdx < 0 {
		return nil, apperror.New(apperror.Parse,
			fmt.Sprintf("unexpected header %q, want %s/%s/%s", header, headerDate, headerBid, headerAsk)).WithSnippet(body)
	}

	series := make(rate.Series, 0, len(grid)-1)
	for i, row := range grid[1:] {
		if len(row) != len(header) {
			return nil, apperror.New(apperror.Parse,
				fmt.Sprintf("row %d has %d cells, header has %d", i+1, len(row), len(header))).WithSnippet(fmt.Sprint(row))
		}

		date, err := parseCellDate(row[dateIdx])
		if err != nil {
			return nil, err
		}
		bid, err := ParseLocaleDecimal(row[bidIdx])
		if err != nil {
			return nil, err
		}
		ask, err := ParseLocaleDecimal(row[askIdx])
		if err != nil {
			return nil, err
		}

		series = append(series, rate.Rate{
			Date:     date,
			Country:  rate.CountryArgentina,
			BidPrice: bid,
			AskPrice: ask,
		})
	}

	return series.Normalize(), nil
}

func indexOf(cells []string, label string) int {
	for i, c := range cells {
		if c == label {
			return i
		}
	}
	return -1
}
