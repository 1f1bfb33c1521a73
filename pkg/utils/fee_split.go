package utils

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
)

// BasisPointsDenominator is 100% expressed in basis points.
const BasisPointsDenominator = 10000

var (
	ErrNegativeAmount = errors.New("amount must not be negative")
	ErrBpsOverflow    = errors.New("basis points exceed 10000")
)

// FeeConfig holds the per-destination fee rates in basis points of the raised amount.
type FeeConfig struct {
	TreasuryBps uint32 `json:"treasury_bps"`
	ReferralBps uint32 `json:"referral_bps"`
	StakingBps  uint32 `json:"staking_bps"`
}

// TotalBps is the overall fee rate.
func (c FeeConfig) TotalBps() uint32 {
	return c.TreasuryBps + c.ReferralBps + c.StakingBps
}

// Validate rejects configs whose combined rate exceeds 100%.
func (c FeeConfig) Validate() error {
	if uint64(c.TreasuryBps)+uint64(c.ReferralBps)+uint64(c.StakingBps) > BasisPointsDenominator {
		return fmt.Errorf("%w: %d", ErrBpsOverflow, c.TotalBps())
	}
	return nil
}

// FeeShares is the result of splitting a fee total.
type FeeShares struct {
	Treasury     *big.Int
	ReferralPool *big.Int
	Staking      *big.Int
}

// Total returns treasury + referral pool + staking.
func (s FeeShares) Total() *big.Int {
	t := new(big.Int).Add(s.Treasury, s.ReferralPool)
	return t.Add(t, s.Staking)
}

// FeeFromRaised returns floor(raised * totalBps / 10000).
func FeeFromRaised(raised *big.Int, cfg FeeConfig) (*big.Int, error) {
	if raised.Sign() < 0 {
		return nil, ErrNegativeAmount
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	fee := new(big.Int).Mul(raised, big.NewInt(int64(cfg.TotalBps())))
	return fee.Quo(fee, big.NewInt(BasisPointsDenominator)), nil
}

// SplitFee divides total among the destinations in proportion to their basis points.
// Each share is floored; the remainder goes to treasury so the shares always sum to total.
// A config with zero total rate sends everything to treasury.
func SplitFee(total *big.Int, cfg FeeConfig) (FeeShares, error) {
	if total.Sign() < 0 {
		return FeeShares{}, ErrNegativeAmount
	}
	if err := cfg.Validate(); err != nil {
		return FeeShares{}, err
	}

	shares := FeeShares{
		Treasury:     new(big.Int),
		ReferralPool: new(big.Int),
		Staking:      new(big.Int),
	}
	totalBps := cfg.TotalBps()
	if totalBps == 0 {
		shares.Treasury.Set(total)
		return shares, nil
	}

	denom := big.NewInt(int64(totalBps))
	part := func(bps uint32) *big.Int {
		v := new(big.Int).Mul(total, big.NewInt(int64(bps)))
		return v.Quo(v, denom)
	}
	shares.Treasury = part(cfg.TreasuryBps)
	shares.ReferralPool = part(cfg.ReferralBps)
	shares.Staking = part(cfg.StakingBps)

	remainder := new(big.Int).Sub(total, shares.Total())
	shares.Treasury.Add(shares.Treasury, remainder)
	return shares, nil
}

// ReferredContribution is a contribution attributed to a referrer. An empty Referrer means none.
type ReferredContribution struct {
	Referrer string
	Amount   *big.Int
}

// ReferralReward is one referrer's share of a referral pool.
type ReferralReward struct {
	Referrer string
	Referred *big.Int
	Amount   *big.Int
}

// DistributeReferralRewards splits pool across referrers in proportion to the volume they referred.
// Contributions without a referrer are ignored. Results are ordered by referrer and sum to pool
// exactly whenever any referred volume exists; otherwise the result is empty.
func DistributeReferralRewards(contributions []ReferredContribution, pool *big.Int) ([]ReferralReward, error) {
	if pool.Sign() < 0 {
		return nil, ErrNegativeAmount
	}

	byReferrer := make(map[string]*big.Int)
	for _, c := range contributions {
		if c.Referrer == "" || c.Amount == nil || c.Amount.Sign() == 0 {
			continue
		}
		if c.Amount.Sign() < 0 {
			return nil, ErrNegativeAmount
		}
		sum, ok := byReferrer[c.Referrer]
		if !ok {
			sum = new(big.Int)
			byReferrer[c.Referrer] = sum
		}
		sum.Add(sum, c.Amount)
	}
	if len(byReferrer) == 0 {
		return nil, nil
	}

	referrers := make([]string, 0, len(byReferrer))
	for r := range byReferrer {
		referrers = append(referrers, r)
	}
	sort.Strings(referrers)

	weights := make([]*big.Int, len(referrers))
	for i, r := range referrers {
		weights[i] = byReferrer[r]
	}
	amounts := Apportion(pool, weights)

	rewards := make([]ReferralReward, len(referrers))
	for i, r := range referrers {
		rewards[i] = ReferralReward{
			Referrer: r,
			Referred: new(big.Int).Set(weights[i]),
			Amount:   amounts[i],
		}
	}
	return rewards, nil
}

// Apportion splits total across weights proportionally using largest-remainder rounding.
// The result sums to total exactly when the weights sum is positive. Ties on the remainder
// go to the lower index, so callers control tie-breaking through ordering.
func Apportion(total *big.Int, weights []*big.Int) []*big.Int {
	out := make([]*big.Int, len(weights))
	sum := new(big.Int)
	for i, w := range weights {
		out[i] = new(big.Int)
		sum.Add(sum, w)
	}
	if sum.Sign() == 0 {
		return out
	}

	rems := make([]*big.Int, len(weights))
	allotted := new(big.Int)
	for i, w := range weights {
		num := new(big.Int).Mul(total, w)
		q, r := new(big.Int).QuoRem(num, sum, new(big.Int))
		out[i] = q
		rems[i] = r
		allotted.Add(allotted, q)
	}

	leftover := new(big.Int).Sub(total, allotted).Int64()
	if leftover <= 0 {
		return out
	}
	order := make([]int, len(weights))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return rems[order[a]].Cmp(rems[order[b]]) > 0
	})
	one := big.NewInt(1)
	for k := int64(0); k < leftover && int(k) < len(order); k++ {
		out[order[k]].Add(out[order[k]], one)
	}
	return out
}
