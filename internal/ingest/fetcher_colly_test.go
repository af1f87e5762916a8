package ingest

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func fetchTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, `<html><body><h1 class="listing-title">Up</h1></body></html>`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func quickFetcher() *CollyFetcher {
	return NewCollyFetcher(FetchConfig{
		TimeoutSeconds: 5,
		MaxRetries:     1,
		DelaySeconds:   0.01,
	})
}

func TestFetchCancelledContext(t *testing.T) {
	srv := fetchTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Must return the context error, not panic.
	doc, err := quickFetcher().Fetch(ctx, srv.URL)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if doc != nil {
		t.Errorf("got a document from a cancelled fetch: %+v", doc)
	}
}

func TestFetchAllowsExplicitPort(t *testing.T) {
	// httptest URLs always carry an explicit port; the allowed-domain check
	// must not reject them.
	srv := fetchTestServer(t)

	doc, err := quickFetcher().Fetch(context.Background(), srv.URL+"/listing/AST-1")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	defer doc.Body.Close()

	if doc.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", doc.StatusCode)
	}
	body, err := io.ReadAll(doc.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), "listing-title") {
		t.Errorf("body %q lost the page content", body)
	}
}
