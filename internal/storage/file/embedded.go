package file

import (
	"context"

	"github.com/xenking/supernova-store/internal/domain/catalog"
	"github.com/xenking/supernova-store/internal/storage/codec"
)

var _ catalog.Source = (*DocumentSource)(nil)

// DocumentSource decodes a catalog document already held in memory, such as
// one embedded into the binary.
type DocumentSource struct {
	Name string
	Data []byte
}

func (s *DocumentSource) String() string { return "embedded:" + s.Name }

// Load implements catalog.Source.
func (s *DocumentSource) Load(ctx context.Context) ([]catalog.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return codec.DecodeItems(s.Data)
}
