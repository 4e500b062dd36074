package uniqueid

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.yoptima.org/infra/go/testutils/unittest"
)

func TestNewID_FitsRequestedWidth(t *testing.T) {
	unittest.SmallTest(t)

	limit := new(big.Int).Lsh(big.NewInt(1), 32)
	g := New(32)
	for i := 0; i < 100; i++ {
		id, ok := new(big.Int).SetString(g.NewID(), 10)
		require.True(t, ok)
		assert.True(t, id.Cmp(limit) < 0, "id %s does not fit in 32 bits", id)
		assert.True(t, id.Sign() >= 0)
	}
}

func TestNewID_WidthClamped(t *testing.T) {
	unittest.SmallTest(t)

	// Zero or negative width always produces zero.
	assert.Equal(t, "0", New(0).NewID())
	assert.Equal(t, "0", New(-5).NewID())

	// Widths beyond 128 are clamped to 128 and still produce valid IDs.
	id, ok := new(big.Int).SetString(New(1000).NewID(), 10)
	require.True(t, ok)
	limit := new(big.Int).Lsh(big.NewInt(1), 128)
	assert.True(t, id.Cmp(limit) < 0)
}

func TestNewID_SuccessiveIDsDiffer(t *testing.T) {
	unittest.SmallTest(t)

	g := New(128)
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := g.NewID()
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}
