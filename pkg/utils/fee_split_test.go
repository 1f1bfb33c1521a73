package utils

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testFees = FeeConfig{TreasuryBps: 250, ReferralBps: 200, StakingBps: 50}

func strs(vs []*big.Int) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.String()
	}
	return out
}

func ints(vs ...int64) []*big.Int {
	out := make([]*big.Int, len(vs))
	for i, v := range vs {
		out[i] = big.NewInt(v)
	}
	return out
}

func TestFeeFromRaised(t *testing.T) {
	fee, err := FeeFromRaised(big.NewInt(1100), testFees)
	require.NoError(t, err)
	assert.Equal(t, int64(55), fee.Int64())

	fee, err = FeeFromRaised(big.NewInt(39), testFees)
	require.NoError(t, err)
	assert.Equal(t, int64(1), fee.Int64(), "fee is floored")

	_, err = FeeFromRaised(big.NewInt(-1), testFees)
	assert.ErrorIs(t, err, ErrNegativeAmount)

	_, err = FeeFromRaised(big.NewInt(1), FeeConfig{TreasuryBps: 9000, ReferralBps: 1001})
	assert.ErrorIs(t, err, ErrBpsOverflow)
}

func TestSplitFee(t *testing.T) {
	tests := []struct {
		name                        string
		total                       int64
		cfg                         FeeConfig
		treasury, referral, staking int64
	}{
		{"remainder goes to treasury", 55, testFees, 28, 22, 5},
		{"exact split", 1000, testFees, 500, 400, 100},
		{"zero total", 0, testFees, 0, 0, 0},
		{"zero rate sends everything to treasury", 77, FeeConfig{}, 77, 0, 0},
		{"single unit", 1, testFees, 1, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shares, err := SplitFee(big.NewInt(tt.total), tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.treasury, shares.Treasury.Int64())
			assert.Equal(t, tt.referral, shares.ReferralPool.Int64())
			assert.Equal(t, tt.staking, shares.Staking.Int64())
			assert.Equal(t, tt.total, shares.Total().Int64())
		})
	}

	t.Run("shares always sum to total", func(t *testing.T) {
		cfg := FeeConfig{TreasuryBps: 333, ReferralBps: 333, StakingBps: 333}
		for total := int64(0); total < 500; total += 7 {
			shares, err := SplitFee(big.NewInt(total), cfg)
			require.NoError(t, err)
			assert.Equal(t, total, shares.Total().Int64())
		}
	})

	t.Run("rejects bad input", func(t *testing.T) {
		_, err := SplitFee(big.NewInt(-5), testFees)
		assert.ErrorIs(t, err, ErrNegativeAmount)
		_, err = SplitFee(big.NewInt(5), FeeConfig{StakingBps: 10001})
		assert.ErrorIs(t, err, ErrBpsOverflow)
	})
}

func TestDistributeReferralRewards(t *testing.T) {
	t.Run("pro rata by referred volume", func(t *testing.T) {
		rewards, err := DistributeReferralRewards([]ReferredContribution{
			{Referrer: "0xbb", Amount: big.NewInt(100)},
			{Referrer: "0xaa", Amount: big.NewInt(200)},
			{Referrer: "", Amount: big.NewInt(5000)},
			{Referrer: "0xbb", Amount: big.NewInt(100)},
		}, big.NewInt(22))
		require.NoError(t, err)
		require.Len(t, rewards, 2)

		assert.Equal(t, "0xaa", rewards[0].Referrer)
		assert.Equal(t, int64(200), rewards[0].Referred.Int64())
		assert.Equal(t, int64(11), rewards[0].Amount.Int64())
		assert.Equal(t, "0xbb", rewards[1].Referrer)
		assert.Equal(t, int64(11), rewards[1].Amount.Int64())
	})

	t.Run("rewards sum to the pool", func(t *testing.T) {
		rewards, err := DistributeReferralRewards([]ReferredContribution{
			{Referrer: "a", Amount: big.NewInt(1)},
			{Referrer: "b", Amount: big.NewInt(1)},
			{Referrer: "c", Amount: big.NewInt(1)},
		}, big.NewInt(10))
		require.NoError(t, err)
		sum := new(big.Int)
		for _, r := range rewards {
			sum.Add(sum, r.Amount)
		}
		assert.Equal(t, int64(10), sum.Int64())
		assert.Equal(t, int64(4), rewards[0].Amount.Int64(), "ties go to the first referrer")
	})

	t.Run("no referred volume leaves the pool unallocated", func(t *testing.T) {
		rewards, err := DistributeReferralRewards([]ReferredContribution{
			{Amount: big.NewInt(10)},
		}, big.NewInt(22))
		require.NoError(t, err)
		assert.Empty(t, rewards)
	})

	t.Run("negative amounts are rejected", func(t *testing.T) {
		_, err := DistributeReferralRewards([]ReferredContribution{{Referrer: "a", Amount: big.NewInt(-1)}}, big.NewInt(1))
		assert.ErrorIs(t, err, ErrNegativeAmount)
		_, err = DistributeReferralRewards(nil, big.NewInt(-1))
		assert.ErrorIs(t, err, ErrNegativeAmount)
	})
}

func TestApportion(t *testing.T) {
	got := Apportion(big.NewInt(10), ints(1, 1, 1))
	assert.Equal(t, []string{"4", "3", "3"}, strs(got))

	got = Apportion(big.NewInt(100), ints(1, 2, 7))
	assert.Equal(t, []string{"10", "20", "70"}, strs(got))

	got = Apportion(big.NewInt(7), ints(0, 0))
	assert.Equal(t, []string{"0", "0"}, strs(got), "zero weights allocate nothing")

	got = Apportion(big.NewInt(5), ints(10, 29, 1))
	assert.Equal(t, []string{"1", "4", "0"}, strs(got), "largest remainder wins the leftover unit")
}
