// Package alphacast implements dataset.Store on top of the Alphacast
// datasets API.
package alphacast

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ahmethakanbesel/macro-sync/internal/apperror"
	"github.com/ahmethakanbesel/macro-sync/internal/dataset"
)

const (
	defaultBaseURL = "https://api.alphacast.io"
	defaultTimeout = 60 * time.Second
)

type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	timeout time.Duration
}

// New builds a client. The timeout is applied to a copy of the configured
// http.Client, so a shared client passed through WithClient is never modified.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		client:  http.DefaultClient,
		timeout: defaultTimeout,
	}
	for _, o := range opts {
		o(c)
	}
	hc := *c.client
	hc.Timeout = c.timeout
	c.client = &hc
	return c
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func WithClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// Download fetches the full content of a dataset as CSV.
func (c *Client) Download(ctx context.Context, id int) (*dataset.Table, error) {
	q := url.Values{}
	q.Set("$format", "csv")

	req, err := c.newRequest(ctx, http.MethodGet, id, q, nil)
	if err != nil {
		return nil, err
	}

	body, err := c.do(req, id)
	if err != nil {
		return nil, err
	}

	t, err := dataset.ReadCSV(bytes.NewReader(body))
	if err != nil {
		return nil, apperror.Wrap(apperror.RemoteStore, err, fmt.Sprintf("decode dataset %d", id))
	}

	slog.Info("downloaded alphacast dataset", "dataset", id, "rows", len(t.Rows))
	return t, nil
}

// Upload sends t as a CSV file. The index is never uploaded.
func (c *Client) Upload(ctx context.Context, id int, t *dataset.Table, p dataset.ConflictPolicy) error {
	data, err := dataset.WriteCSV(t)
	if err != nil {
		return apperror.Wrap(apperror.RemoteStore, err, fmt.Sprintf("encode dataset %d", id))
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("data", "data.csv")
	if err != nil {
		return apperror.Wrap(apperror.RemoteStore, err, "build upload form")
	}
	if _, err := fw.Write(data); err != nil {
		return apperror.Wrap(apperror.RemoteStore, err, "build upload form")
	}
	if err := mw.Close(); err != nil {
		return apperror.Wrap(apperror.RemoteStore, err, "build upload form")
	}

	q := url.Values{}
	q.Set("deleteMissingFromDB", strconv.FormatBool(p.DeleteMissing))
	q.Set("onConflictUpdateDB", strconv.FormatBool(p.PreferStored))
	q.Set("uploadIndex", "false")

	req, err := c.newRequest(ctx, http.MethodPut, id, q, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	if _, err := c.do(req, id); err != nil {
		return err
	}

	slog.Info("uploaded alphacast dataset", "dataset", id, "rows", len(t.Rows))
	return nil
}

func (c *Client) newRequest(ctx context.Context, method string, id int, q url.Values, body io.Reader) (*http.Request, error) {
	u := fmt.Sprintf("%s/datasets/%d/data?%s", c.baseURL, id, q.Encode())
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, apperror.Wrap(apperror.RemoteStore, err, fmt.Sprintf("build request for dataset %d", id))
	}
	req.SetBasicAuth(c.apiKey, "")
	return req, nil
}

func (c *Client) do(req *http.Request, id int) ([]byte, error) {
	res, err := c.client.Do(req) //nolint:gosec // URL built from internal config
	if err != nil {
		return nil, apperror.Wrap(apperror.RemoteStore, err, fmt.Sprintf("%s dataset %d", req.Method, id))
	}
	defer func() { _ = res.Body.Close() }()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, apperror.Wrap(apperror.RemoteStore, err, fmt.Sprintf("read dataset %d response", id))
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, apperror.New(apperror.RemoteStore,
			fmt.Sprintf("alphacast returned HTTP %d for dataset %d", res.StatusCode, id)).WithSnippet(string(body))
	}
	return body, nil
}
