// Package remote loads the catalog document over HTTP.
package remote

import (
	"context"
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/xenking/supernova-store/internal/domain/catalog"
	"github.com/xenking/supernova-store/internal/storage/codec"
)

// maxDocumentSize bounds the catalog document read from the network.
const maxDocumentSize = 8 << 20

var _ catalog.Source = (*CatalogSource)(nil)

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return "unexpected status " + http.StatusText(e.StatusCode) + " from " + e.URL
}

// CatalogSource fetches a static catalog document.
type CatalogSource struct {
	URL    string
	Client *http.Client
}

// NewCatalogSource returns a CatalogSource with an instrumented client.
func NewCatalogSource(url string) *CatalogSource {
	return &CatalogSource{
		URL:    url,
		Client: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
}

func (s *CatalogSource) String() string { return s.URL }

// Load implements catalog.Source.
func (s *CatalogSource) Load(ctx context.Context) ([]catalog.Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, http.NoBody)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "get %s", s.URL)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: s.URL, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	return codec.DecodeItems(data)
}
