package alphacast

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ahmethakanbesel/macro-sync/internal/apperror"
	"github.com/ahmethakanbesel/macro-sync/internal/dataset"
)

func TestDownload(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/datasets/29762/data" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("$format") != "csv" {
			t.Errorf("expected $format=csv, got %q", r.URL.RawQuery)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "secret" || pass != "" {
			t.Errorf("expected basic auth with api key, got %q/%q", user, pass)
		}
		_, _ = io.WriteString(w, "Date,country,bid_price,ask_price\n2020-01-01,Argentina,70,75\n")
	}))
	defer ts.Close()

	c := New("secret", WithBaseURL(ts.URL), WithClient(ts.Client()))

	tbl, err := c.Download(context.Background(), 29762)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tbl.Rows) != 1 || tbl.Rows[0][1] != "Argentina" {
		t.Errorf("unexpected table %+v", tbl)
	}
}

func TestDownload_ErrorResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"message":"invalid api key"}`)
	}))
	defer ts.Close()

	c := New("bad", WithBaseURL(ts.URL), WithClient(ts.Client()))

	_, err := c.Download(context.Background(), 1)
	if !apperror.Is(err, apperror.RemoteStore) {
		t.Fatalf("expected REMOTE_STORE error, got %v", err)
	}
}

func TestDownload_BadCSV(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "")
	}))
	defer ts.Close()

	c := New("secret", WithBaseURL(ts.URL), WithClient(ts.Client()))

	_, err := c.Download(context.Background(), 1)
	if !apperror.Is(err, apperror.RemoteStore) {
		t.Fatalf("expected REMOTE_STORE error, got %v", err)
	}
}

func TestUpload(t *testing.T) {
	var gotCSV string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		q := r.URL.Query()
		if q.Get("deleteMissingFromDB") != "false" || q.Get("onConflictUpdateDB") != "false" || q.Get("uploadIndex") != "false" {
			t.Errorf("unexpected conflict flags %q", r.URL.RawQuery)
		}
		f, _, err := r.FormFile("data")
		if err != nil {
			t.Errorf("expected multipart field data: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		b, _ := io.ReadAll(f)
		gotCSV = string(b)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer ts.Close()

	c := New("secret", WithBaseURL(ts.URL), WithClient(ts.Client()))
	tbl := &dataset.Table{
		Columns: []string{"Date", "CPI", "inflation"},
		Rows:    [][]string{{"2021-01-01", "102", "0.02"}},
	}

	if err := c.Upload(context.Background(), 29891, tbl, dataset.KeepMissingOverwrite); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Date,CPI,inflation\n2021-01-01,102,0.02\n"
	if gotCSV != want {
		t.Errorf("expected %q, got %q", want, gotCSV)
	}
}

func TestUpload_ErrorResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	c := New("secret", WithBaseURL(ts.URL), WithClient(ts.Client()))

	err := c.Upload(context.Background(), 1, &dataset.Table{Columns: []string{"Date"}}, dataset.KeepMissingOverwrite)
	if !apperror.Is(err, apperror.RemoteStore) {
		t.Fatalf("expected REMOTE_STORE error, got %v", err)
	}
}

func TestNew_TimeoutDoesNotTouchSharedClient(t *testing.T) {
	shared := &http.Client{Timeout: 5 * time.Second}

	for _, opts := range [][]Option{
		{WithClient(shared), WithTimeout(time.Second)},
		{WithTimeout(time.Second), WithClient(shared)},
	} {
		c := New("secret", opts...)
		if c.client == shared {
			t.Error("expected a copy of the shared client")
		}
		if c.client.Timeout != time.Second {
			t.Errorf("expected 1s timeout, got %s", c.client.Timeout)
		}
	}
	if shared.Timeout != 5*time.Second {
		t.Errorf("shared client timeout changed to %s", shared.Timeout)
	}
	if http.DefaultClient.Timeout != 0 {
		t.Errorf("default client timeout changed to %s", http.DefaultClient.Timeout)
	}
}
