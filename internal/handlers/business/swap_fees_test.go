package business

import (
	"context"
	"testing"

	"roundsettle/internal/models"
	"roundsettle/internal/store/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwapFeeSettle(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	require.NoError(t, st.RegisterWallet(ctx, carol.Hex(), 7))
	s := NewSwapFeeSettler(st, testFees, quietLogger())

	t.Run("split with referrer", func(t *testing.T) {
		res, err := s.Settle(ctx, SwapFee{
			SwapID:   "swap-1",
			Trader:   "0x00000000000000000000000000000000000000A1",
			Referrer: carol.Hex(),
			Fee:      decimal.NewFromInt(1000),
		})
		require.NoError(t, err)
		assert.False(t, res.Replayed)
		assert.Equal(t, "500", res.Split.Treasury.String())
		assert.Equal(t, "400", res.Split.ReferralPool.String())
		assert.Equal(t, "100", res.Split.Staking.String())
		require.Len(t, res.Entries, 1)
		assert.Equal(t, carol.Hex(), res.Entries[0].ReferrerWallet)
		assert.Equal(t, "400", res.Entries[0].Amount.String())
		require.NotNil(t, res.Entries[0].ReferrerUserID)
		assert.Equal(t, uint64(7), *res.Entries[0].ReferrerUserID)
	})

	t.Run("repeat returns the stored split", func(t *testing.T) {
		res, err := s.Settle(ctx, SwapFee{SwapID: "swap-1", Trader: alice.Hex(), Fee: decimal.NewFromInt(5)})
		require.NoError(t, err)
		assert.True(t, res.Replayed)
		assert.Equal(t, "1000", res.Split.TotalAmount.String())
		assert.Len(t, res.Entries, 1)
	})

	t.Run("no referrer leaves the pool unallocated", func(t *testing.T) {
		res, err := s.Settle(ctx, SwapFee{SwapID: "swap-2", Trader: bob.Hex(), Fee: decimal.NewFromInt(7)})
		require.NoError(t, err)
		assert.Empty(t, res.Entries)
		sum := res.Split.Treasury.Add(res.Split.ReferralPool).Add(res.Split.Staking)
		assert.True(t, sum.Equal(decimal.NewFromInt(7)))

		split, err := st.GetFeeSplit(ctx, models.FeeSourceSwap, "swap-2")
		require.NoError(t, err)
		assert.Equal(t, res.Split.Treasury.String(), split.Treasury.String())
	})

	t.Run("invalid input", func(t *testing.T) {
		cases := []SwapFee{
			{SwapID: "", Trader: alice.Hex(), Fee: decimal.NewFromInt(1)},
			{SwapID: "x1", Trader: alice.Hex(), Fee: decimal.NewFromInt(-1)},
			{SwapID: "x2", Trader: alice.Hex(), Fee: decimal.RequireFromString("1.5")},
			{SwapID: "x3", Trader: "not-an-address", Fee: decimal.NewFromInt(1)},
			{SwapID: "x4", Trader: alice.Hex(), Referrer: alice.Hex(), Fee: decimal.NewFromInt(1)},
		}
		for _, c := range cases {
			_, err := s.Settle(ctx, c)
			var pre *PreconditionError
			assert.ErrorAs(t, err, &pre, c.SwapID)
		}
	})
}
