package notes

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// IDGenerator produces ids for new notes. Ids are never checked against
// the sheet for collisions.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator issues random (version 4) UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string { return uuid.NewString() }

// LegacyGenerator issues ids in the shape earlier clients wrote, so a
// sheet keeps a uniform id column. Every block is "1" followed by four hex
// digits, and the third group is "4" plus the first three characters of a
// block:
//
//	1xxxx1xxxx-1xxxx-41xx-1xxxx-1xxxx1xxxx1xxxx
type LegacyGenerator struct {
	Rand io.Reader // crypto/rand when nil
}

func (g LegacyGenerator) NewID() string {
	r := g.Rand
	if r == nil {
		r = rand.Reader
	}
	hexDigits := func(n int) string {
		b := make([]byte, (n+1)/2)
		if _, err := io.ReadFull(r, b); err != nil {
			panic(fmt.Sprintf("notes: read random bytes: %v", err))
		}
		return hex.EncodeToString(b)[:n]
	}
	block := func() string { return "1" + hexDigits(4) }
	return block() + block() +
		"-" + block() +
		"-4" + "1" + hexDigits(2) +
		"-" + block() +
		"-" + block() + block() + block()
}

// ID scheme names accepted by NewIDGenerator.
const (
	IDSchemeUUID   = "uuid"
	IDSchemeLegacy = "legacy"
)

// NewIDGenerator returns the generator for scheme. An empty scheme means
// IDSchemeUUID.
func NewIDGenerator(scheme string) (IDGenerator, error) {
	switch scheme {
	case "", IDSchemeUUID:
		return UUIDGenerator{}, nil
	case IDSchemeLegacy:
		return LegacyGenerator{}, nil
	default:
		return nil, fmt.Errorf("unknown id scheme %q", scheme)
	}
}
