package business

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"

	"roundsettle/internal/models"
	"roundsettle/pkg/utils"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// allocationPlan is everything derived from a round's contributions for the success path.
type allocationPlan struct {
	Tree        *utils.AllocationTree
	Allocations []utils.TokenAllocation
	Total       *big.Int
	UserIDs     map[string]*uint64
}

func ledgerSum(contributions []*models.Contribution) *big.Int {
	sum := new(big.Int)
	for _, c := range contributions {
		sum.Add(sum, c.Amount.BigInt())
	}
	return sum
}

// buildAllocationPlan computes per-beneficiary allocations and the Merkle tree. It is
// deterministic for a given contribution set and salt.
func buildAllocationPlan(round *models.Round, contributions []*models.Contribution, salt common.Hash) (*allocationPlan, error) {
	if err := round.Params.Validate(round.Kind); err != nil {
		return nil, preconditionf("round %d params: %v", round.ID, err)
	}
	if round.VestingVault == "" {
		return nil, preconditionf("round %d has no vesting vault", round.ID)
	}
	if len(contributions) == 0 {
		return nil, preconditionf("round %d has no confirmed contributions", round.ID)
	}

	items := make([]utils.Contributed, 0, len(contributions))
	userIDs := make(map[string]*uint64)
	for _, c := range contributions {
		items = append(items, utils.Contributed{Beneficiary: c.Wallet, Amount: c.Amount.BigInt()})
		if c.UserID != nil && userIDs[c.Wallet] == nil {
			userIDs[c.Wallet] = c.UserID
		}
	}
	agg := utils.AggregateContributions(items)

	var (
		allocs []utils.TokenAllocation
		total  *big.Int
		err    error
	)
	switch {
	case round.Params.Presale != nil:
		allocs, total, err = utils.FixedPriceAllocations(agg, round.Params.Presale.Price.Rat())
	case round.Params.Fairlaunch != nil:
		allocs, total, err = utils.DynamicPriceAllocations(agg, round.Params.Fairlaunch.TokensForSale.BigInt())
	}
	if err != nil {
		return nil, preconditionf("round %d allocations: %v", round.ID, err)
	}

	entries := make([]utils.AllocationEntry, len(allocs))
	for i, a := range allocs {
		entries[i] = utils.AllocationEntry{Beneficiary: addressOf(a.Beneficiary), Amount: a.Tokens}
	}
	tree, err := utils.BuildAllocationTree(utils.AllocationContext{
		Vault:   addressOf(round.VestingVault),
		ChainID: new(big.Int).SetUint64(round.ChainID),
		Salt:    salt,
	}, entries)
	if err != nil {
		return nil, preconditionf("round %d merkle tree: %v", round.ID, err)
	}

	return &allocationPlan{Tree: tree, Allocations: allocs, Total: total, UserIDs: userIDs}, nil
}

func (p *allocationPlan) proofRecords(salt common.Hash) ([]*models.MerkleProof, error) {
	root := p.Tree.Root.Hex()
	out := make([]*models.MerkleProof, 0, len(p.Tree.Leaves))
	for _, leaf := range p.Tree.Leaves {
		path := make([]string, len(leaf.Proof))
		for i, h := range leaf.Proof {
			path[i] = h.Hex()
		}
		raw, err := json.Marshal(path)
		if err != nil {
			return nil, err
		}
		out = append(out, &models.MerkleProof{
			Beneficiary: leaf.Beneficiary.Hex(),
			Amount:      decimal.NewFromBigInt(leaf.Amount, 0),
			Leaf:        leaf.Hash.Hex(),
			Proof:       datatypes.JSON(raw),
			Root:        root,
			Salt:        salt.Hex(),
		})
	}
	return out, nil
}

func (p *allocationPlan) allocationRows() []*models.Allocation {
	out := make([]*models.Allocation, 0, len(p.Allocations))
	for _, a := range p.Allocations {
		out = append(out, &models.Allocation{
			Beneficiary: a.Beneficiary,
			UserID:      p.UserIDs[a.Beneficiary],
			Contributed: decimal.NewFromBigInt(a.Contributed, 0),
			Tokens:      decimal.NewFromBigInt(a.Tokens, 0),
			ClaimStatus: models.ClaimStatusPending,
		})
	}
	return out
}

// feePlan builds the fee split row and referral entries for one source event.
// referred carries the contributions that may earn referral rewards.
func feePlan(sourceType models.FeeSourceType, sourceID string, feeTotal *big.Int, cfg utils.FeeConfig, referred []*models.Contribution) (*models.FeeSplit, []*models.ReferralLedgerEntry, error) {
	shares, err := utils.SplitFee(feeTotal, cfg)
	if err != nil {
		return nil, nil, err
	}

	refs := make([]utils.ReferredContribution, 0, len(referred))
	referrerUsers := make(map[string]*uint64)
	for _, c := range referred {
		if c.ReferrerWallet == "" {
			continue
		}
		refs = append(refs, utils.ReferredContribution{Referrer: c.ReferrerWallet, Amount: c.Amount.BigInt()})
		if c.ReferrerUserID != nil {
			referrerUsers[c.ReferrerWallet] = c.ReferrerUserID
		}
	}
	rewards, err := utils.DistributeReferralRewards(refs, shares.ReferralPool)
	if err != nil {
		return nil, nil, err
	}

	split := &models.FeeSplit{
		SourceType:   sourceType,
		SourceID:     sourceID,
		TotalAmount:  decimal.NewFromBigInt(feeTotal, 0),
		Treasury:     decimal.NewFromBigInt(shares.Treasury, 0),
		ReferralPool: decimal.NewFromBigInt(shares.ReferralPool, 0),
		Staking:      decimal.NewFromBigInt(shares.Staking, 0),
	}
	entries := make([]*models.ReferralLedgerEntry, 0, len(rewards))
	for _, r := range rewards {
		if r.Amount.Sign() == 0 {
			continue
		}
		entries = append(entries, &models.ReferralLedgerEntry{
			ReferrerWallet: r.Referrer,
			ReferrerUserID: referrerUsers[r.Referrer],
			SourceType:     sourceType,
			SourceID:       sourceID,
			Amount:         decimal.NewFromBigInt(r.Amount, 0),
			Status:         models.ClaimStatusPending,
		})
	}
	return split, entries, nil
}

func roundSourceID(roundID uint64) string {
	return strconv.FormatUint(roundID, 10)
}

func refundRows(contributions []*models.Contribution) []*models.RefundRecord {
	out := make([]*models.RefundRecord, 0, len(contributions))
	for _, c := range contributions {
		out = append(out, &models.RefundRecord{
			ContributionID: c.ID,
			Wallet:         c.Wallet,
			UserID:         c.UserID,
			Amount:         c.Amount,
			Status:         models.ClaimStatusPending,
		})
	}
	return out
}

func postFinalizeMessage(roundID uint64) (*models.OutboxMessage, error) {
	payload, err := json.Marshal(models.PostFinalizeSetupPayload{RoundID: roundID})
	if err != nil {
		return nil, fmt.Errorf("encode outbox payload: %w", err)
	}
	return &models.OutboxMessage{
		MessageID: uuid.NewString(),
		Topic:     models.TopicPostFinalizeSetup,
		Payload:   datatypes.JSON(payload),
		Status:    models.OutboxStatusPending,
	}, nil
}
