// Package uniqueid produces collision-resistant identifiers for alerts.
//
// IDs are derived from a cryptographically random 128-bit UUID, masked down to
// a configurable bit width and rendered as a decimal string. Generation is not
// coordinated between callers and no collision check is made against storage,
// so callers must size the width for an acceptably low collision probability.
package uniqueid

import (
	"math/big"

	"github.com/google/uuid"
)

const (
	// DefaultBits is the ID width used in production.
	DefaultBits = 32

	maxBits = 128
)

// Generator produces unique identifiers. It is an interface so tests can
// substitute a deterministic implementation.
type Generator interface {
	// NewID returns a new identifier as a decimal string.
	NewID() string
}

type generator struct {
	bits uint
}

// New returns a Generator producing IDs of the given bit width. The width is
// clamped to [0, 128].
func New(bits int) Generator {
	if bits > maxBits {
		bits = maxBits
	}
	if bits < 0 {
		bits = 0
	}
	return &generator{bits: uint(bits)}
}

// NewID implements Generator.
func (g *generator) NewID() string {
	u := uuid.New()
	id := new(big.Int).SetBytes(u[:])
	mask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), g.bits), big.NewInt(1))
	return id.And(id, mask).String()
}
