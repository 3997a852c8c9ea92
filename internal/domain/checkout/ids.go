package checkout

import (
	"encoding/hex"
	"strings"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// NumberPrefix starts every display receipt number.
const NumberPrefix = "FAC-"

const maxNumberAttempts = 16

// ErrNumberSpaceExhausted is returned when no unused display number could
// be generated.
var ErrNumberSpaceExhausted = errors.New("no unused receipt number available")

// IDGenerator issues receipt identities.
type IDGenerator interface {
	// Next returns a unique receipt id and its short display number.
	Next() (uuid.UUID, string, error)
}

// ReceiptIDs generates UUIDv7 receipt ids. UUIDv7 carries a millisecond
// timestamp and 74 random bits, so ids are time ordered and collisions are
// negligible. The display number is the last 32 random bits in hex; a bloom
// filter of issued numbers forces regeneration of anything possibly seen
// before, so a false positive only costs an extra draw.
type ReceiptIDs struct {
	mu      sync.Mutex
	issued  *bloom.BloomFilter
	newUUID func() (uuid.UUID, error)
}

// NewReceiptIDs returns a generator sized for about expected receipts.
func NewReceiptIDs(expected uint) *ReceiptIDs {
	if expected == 0 {
		expected = 10_000
	}
	return &ReceiptIDs{
		issued:  bloom.NewWithEstimates(expected, 0.0001),
		newUUID: uuid.NewV7,
	}
}

// Next implements IDGenerator.
func (g *ReceiptIDs) Next() (uuid.UUID, string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for range maxNumberAttempts {
		id, err := g.newUUID()
		if err != nil {
			return uuid.Nil, "", errors.Wrap(err, "generate receipt id")
		}
		number := NumberPrefix + strings.ToUpper(hex.EncodeToString(id[12:16]))
		if g.issued.TestString(number) {
			continue
		}
		g.issued.AddString(number)
		return id, number, nil
	}
	return uuid.Nil, "", ErrNumberSpaceExhausted
}
