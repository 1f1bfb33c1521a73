package business

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"roundsettle/internal/models"
	"roundsettle/internal/store"
	"roundsettle/pkg/utils"

	"github.com/ethereum/go-ethereum/common"
)

// ProofView is what a beneficiary needs to claim from the vesting vault.
type ProofView struct {
	RoundID     uint64   `json:"round_id"`
	Beneficiary string   `json:"beneficiary"`
	Amount      string   `json:"amount"`
	Leaf        string   `json:"leaf"`
	Proof       []string `json:"proof"`
	Root        string   `json:"root"`
	Salt        string   `json:"salt"`
	Vault       string   `json:"vault"`
	ChainID     uint64   `json:"chain_id"`
	// Verified is true when the stored leaf recomputes from its inputs and folds to the
	// round's committed root.
	Verified bool `json:"verified"`
}

// LookupProof loads a beneficiary's proof and checks it against the committed root.
func LookupProof(ctx context.Context, ledger store.Ledger, roundID uint64, wallet string) (*ProofView, error) {
	beneficiary, err := ParseAddress(wallet)
	if err != nil {
		return nil, preconditionf("wallet: %v", err)
	}
	round, err := ledger.GetRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if round.Result != models.RoundResultSuccess {
		return nil, preconditionf("round %d has no allocations (result %s)", roundID, round.Result)
	}
	p, err := ledger.GetMerkleProof(ctx, roundID, beneficiary)
	if err != nil {
		return nil, err
	}

	var path []string
	if err := json.Unmarshal(p.Proof, &path); err != nil {
		return nil, fmt.Errorf("decode proof for %s: %w", beneficiary, err)
	}
	view := &ProofView{
		RoundID:     roundID,
		Beneficiary: p.Beneficiary,
		Amount:      p.Amount.String(),
		Leaf:        p.Leaf,
		Proof:       path,
		Root:        p.Root,
		Salt:        p.Salt,
		Vault:       round.VestingVault,
		ChainID:     round.ChainID,
	}
	view.Verified = verifyProof(round, p, path) == nil
	return view, nil
}

func verifyProof(round *models.Round, p *models.MerkleProof, path []string) error {
	if p.Root != round.MerkleRoot {
		return errors.New("proof root differs from the committed root")
	}
	leaf := utils.AllocationLeafHash(utils.AllocationContext{
		Vault:   addressOf(round.VestingVault),
		ChainID: new(big.Int).SetUint64(round.ChainID),
		Salt:    common.HexToHash(p.Salt),
	}, addressOf(p.Beneficiary), p.Amount.BigInt())
	if leaf.Hex() != p.Leaf {
		return errors.New("leaf does not match its inputs")
	}
	hashes := make([]common.Hash, len(path))
	for i, h := range path {
		hashes[i] = common.HexToHash(h)
	}
	if !utils.VerifyAllocationProof(common.HexToHash(round.MerkleRoot), leaf, hashes) {
		return errors.New("proof does not fold to the root")
	}
	return nil
}
