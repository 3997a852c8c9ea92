// Package file implements local-device storage: a catalog document read
// from disk and the cart slot file.
package file

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"

	"github.com/xenking/supernova-store/internal/domain/catalog"
	"github.com/xenking/supernova-store/internal/storage/codec"
)

var _ catalog.Source = (*CatalogSource)(nil)

// CatalogSource reads a catalog document from a file. Files ending in .gz
// are decompressed.
type CatalogSource struct {
	Path string
}

// NewCatalogSource returns a CatalogSource for path.
func NewCatalogSource(path string) *CatalogSource {
	return &CatalogSource{Path: path}
}

func (s *CatalogSource) String() string { return "file:" + s.Path }

// Load implements catalog.Source.
func (s *CatalogSource) Load(ctx context.Context) ([]catalog.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", s.Path)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(s.Path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrapf(err, "create gzip reader for %s", s.Path)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", s.Path)
	}
	return codec.DecodeItems(data)
}
