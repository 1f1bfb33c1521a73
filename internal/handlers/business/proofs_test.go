package business

import (
	"context"
	"testing"

	"roundsettle/internal/store"
	"roundsettle/internal/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupProof(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	round := finalizedRound(t, st)

	t.Run("every beneficiary verifies", func(t *testing.T) {
		for _, w := range []string{alice.Hex(), bob.Hex()} {
			view, err := LookupProof(ctx, st, round.ID, w)
			require.NoError(t, err)
			assert.True(t, view.Verified, w)
			assert.Equal(t, round.MerkleRoot, view.Root)
		}
	})

	t.Run("lowercase wallet is normalized", func(t *testing.T) {
		view, err := LookupProof(ctx, st, round.ID, "0x00000000000000000000000000000000000000a1")
		require.NoError(t, err)
		assert.Equal(t, "350", view.Amount)
	})

	t.Run("unknown beneficiary", func(t *testing.T) {
		_, err := LookupProof(ctx, st, round.ID, carol.Hex())
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("bad address", func(t *testing.T) {
		_, err := LookupProof(ctx, st, round.ID, "0x12")
		var pre *PreconditionError
		assert.ErrorAs(t, err, &pre)
	})
}
