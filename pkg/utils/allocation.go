package utils

import (
	"errors"
	"math/big"
	"sort"
)

var (
	ErrInvalidPrice       = errors.New("price must be positive")
	ErrInvalidTokenSupply = errors.New("tokens for sale must be positive")
	ErrNothingRaised      = errors.New("no contributed amount to allocate against")
)

// Contributed is an amount credited to a beneficiary.
type Contributed struct {
	Beneficiary string
	Amount      *big.Int
}

// TokenAllocation is a beneficiary's computed entitlement.
type TokenAllocation struct {
	Beneficiary string
	Contributed *big.Int
	Tokens      *big.Int
}

// AggregateContributions sums amounts per beneficiary and returns them sorted by beneficiary.
func AggregateContributions(items []Contributed) []Contributed {
	sums := make(map[string]*big.Int, len(items))
	for _, it := range items {
		s, ok := sums[it.Beneficiary]
		if !ok {
			s = new(big.Int)
			sums[it.Beneficiary] = s
		}
		s.Add(s, it.Amount)
	}
	out := make([]Contributed, 0, len(sums))
	for b, s := range sums {
		out = append(out, Contributed{Beneficiary: b, Amount: s})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Beneficiary < out[j].Beneficiary })
	return out
}

// FixedPriceAllocations allocates floor(sum/price) tokens across beneficiaries by contribution.
// price is exact, so fractional rates floor once on the total. Input must already be
// aggregated and sorted.
func FixedPriceAllocations(agg []Contributed, price *big.Rat) ([]TokenAllocation, *big.Int, error) {
	if price == nil || price.Sign() <= 0 {
		return nil, nil, ErrInvalidPrice
	}
	sum, err := sumContributed(agg)
	if err != nil {
		return nil, nil, err
	}
	// sum / (num/denom) = sum*denom / num
	total := new(big.Int).Mul(sum, price.Denom())
	total.Quo(total, price.Num())
	return apportionTokens(agg, total), total, nil
}

// DynamicPriceAllocations allocates all tokensForSale across beneficiaries by contribution,
// which is amount / raised * tokensForSale with largest-remainder rounding.
func DynamicPriceAllocations(agg []Contributed, tokensForSale *big.Int) ([]TokenAllocation, *big.Int, error) {
	if tokensForSale == nil || tokensForSale.Sign() <= 0 {
		return nil, nil, ErrInvalidTokenSupply
	}
	if _, err := sumContributed(agg); err != nil {
		return nil, nil, err
	}
	total := new(big.Int).Set(tokensForSale)
	return apportionTokens(agg, total), total, nil
}

func sumContributed(agg []Contributed) (*big.Int, error) {
	sum := new(big.Int)
	for _, c := range agg {
		if c.Amount.Sign() < 0 {
			return nil, ErrNegativeAmount
		}
		sum.Add(sum, c.Amount)
	}
	if sum.Sign() == 0 {
		return nil, ErrNothingRaised
	}
	return sum, nil
}

func apportionTokens(agg []Contributed, total *big.Int) []TokenAllocation {
	weights := make([]*big.Int, len(agg))
	for i, c := range agg {
		weights[i] = c.Amount
	}
	tokens := Apportion(total, weights)
	out := make([]TokenAllocation, len(agg))
	for i, c := range agg {
		out[i] = TokenAllocation{
			Beneficiary: c.Beneficiary,
			Contributed: new(big.Int).Set(c.Amount),
			Tokens:      tokens[i],
		}
	}
	return out
}
