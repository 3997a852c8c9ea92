package file

import (
	"context"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"

	"github.com/xenking/supernova-store/internal/domain/cart"
	"github.com/xenking/supernova-store/internal/storage/codec"
)

var _ cart.Store = (*CartStore)(nil)

// CartStore keeps the serialized cart in a single file. Writes replace the
// file atomically, so a crash mid-save leaves the previous cart intact.
type CartStore struct {
	Path string
}

// NewCartStore returns a CartStore writing to path.
func NewCartStore(path string) *CartStore {
	return &CartStore{Path: path}
}

// Load returns the saved lines, nil when no cart was saved, or a
// *codec.CorruptError when the file cannot be decoded.
func (s *CartStore) Load(ctx context.Context) ([]cart.Line, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "read cart %s", s.Path)
	}
	return codec.DecodeLines(data)
}

// Save writes lines to the slot.
func (s *CartStore) Save(ctx context.Context, lines []cart.Line) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrapf(err, "create cart dir %s", dir)
	}

	tmp, err := os.CreateTemp(dir, ".cart-*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(codec.EncodeLines(lines)); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "write cart")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close cart")
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return errors.Wrapf(err, "replace cart %s", s.Path)
	}
	return nil
}
