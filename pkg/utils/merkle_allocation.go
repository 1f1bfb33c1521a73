package utils

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrNoBeneficiaries      = errors.New("allocation tree needs at least one beneficiary")
	ErrDuplicateBeneficiary = errors.New("duplicate beneficiary in allocation list")
	ErrAmountOutOfRange     = errors.New("allocation amount must fit in uint256 and be non-negative")
)

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// AllocationContext binds leaves to one round's vault on one chain.
type AllocationContext struct {
	Vault   common.Address
	ChainID *big.Int
	Salt    common.Hash
}

// AllocationEntry is one (beneficiary, allocation) pair.
type AllocationEntry struct {
	Beneficiary common.Address
	Amount      *big.Int
}

// AllocationLeaf is an entry with its leaf hash and proof.
type AllocationLeaf struct {
	Beneficiary common.Address
	Amount      *big.Int
	Hash        common.Hash
	Proof       []common.Hash
}

// AllocationTree is a sorted-pair keccak Merkle tree over allocation leaves.
type AllocationTree struct {
	Root   common.Hash
	Leaves []AllocationLeaf
	index  map[common.Address]int
}

// NewSalt returns 32 random bytes for a round.
func NewSalt() (common.Hash, error) {
	var salt common.Hash
	if _, err := io.ReadFull(rand.Reader, salt[:]); err != nil {
		return common.Hash{}, fmt.Errorf("failed to read salt: %w", err)
	}
	return salt, nil
}

// AllocationLeafHash = keccak256(abi.encodePacked(vault, chainId, salt, beneficiary, amount)).
func AllocationLeafHash(ctx AllocationContext, beneficiary common.Address, amount *big.Int) common.Hash {
	buf := make([]byte, 0, 20+32+32+20+32)
	buf = append(buf, ctx.Vault.Bytes()...)
	buf = append(buf, common.LeftPadBytes(ctx.ChainID.Bytes(), 32)...)
	buf = append(buf, ctx.Salt.Bytes()...)
	buf = append(buf, beneficiary.Bytes()...)
	buf = append(buf, common.LeftPadBytes(amount.Bytes(), 32)...)
	return crypto.Keccak256Hash(buf)
}

// BuildAllocationTree sorts entries by beneficiary and builds the tree. The root depends only
// on the set of entries, never on their input order.
func BuildAllocationTree(ctx AllocationContext, entries []AllocationEntry) (*AllocationTree, error) {
	if len(entries) == 0 {
		return nil, ErrNoBeneficiaries
	}
	if ctx.ChainID == nil || ctx.ChainID.Sign() < 0 {
		return nil, errors.New("allocation context needs a chain id")
	}

	sorted := make([]AllocationEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i].Beneficiary.Bytes(), sorted[j].Beneficiary.Bytes()) < 0
	})

	tree := &AllocationTree{
		Leaves: make([]AllocationLeaf, len(sorted)),
		index:  make(map[common.Address]int, len(sorted)),
	}
	level := make([]common.Hash, len(sorted))
	for i, e := range sorted {
		if e.Amount == nil || e.Amount.Sign() < 0 || e.Amount.Cmp(maxUint256) > 0 {
			return nil, fmt.Errorf("%w: %s", ErrAmountOutOfRange, e.Beneficiary.Hex())
		}
		if _, dup := tree.index[e.Beneficiary]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateBeneficiary, e.Beneficiary.Hex())
		}
		h := AllocationLeafHash(ctx, e.Beneficiary, e.Amount)
		tree.index[e.Beneficiary] = i
		tree.Leaves[i] = AllocationLeaf{
			Beneficiary: e.Beneficiary,
			Amount:      new(big.Int).Set(e.Amount),
			Hash:        h,
		}
		level[i] = h
	}

	levels := [][]common.Hash{level}
	for len(levels[len(levels)-1]) > 1 {
		cur := levels[len(levels)-1]
		next := make([]common.Hash, 0, (len(cur)+1)/2)
		for i := 0; i < len(cur); i += 2 {
			if i+1 >= len(cur) {
				// odd node is promoted unchanged
				next = append(next, cur[i])
				break
			}
			next = append(next, hashPair(cur[i], cur[i+1]))
		}
		levels = append(levels, next)
	}
	tree.Root = levels[len(levels)-1][0]

	for i := range tree.Leaves {
		idx := i
		var proof []common.Hash
		for l := 0; l < len(levels)-1; l++ {
			sibling := idx ^ 1
			if sibling < len(levels[l]) {
				proof = append(proof, levels[l][sibling])
			}
			idx /= 2
		}
		tree.Leaves[i].Proof = proof
	}
	return tree, nil
}

// Leaf returns the leaf for a beneficiary.
func (t *AllocationTree) Leaf(beneficiary common.Address) (AllocationLeaf, bool) {
	i, ok := t.index[beneficiary]
	if !ok {
		return AllocationLeaf{}, false
	}
	return t.Leaves[i], true
}

// TotalAllocation sums every leaf amount.
func (t *AllocationTree) TotalAllocation() *big.Int {
	total := new(big.Int)
	for _, l := range t.Leaves {
		total.Add(total, l.Amount)
	}
	return total
}

// VerifyAllocationProof folds proof into leaf with sorted-pair hashing and compares to root.
func VerifyAllocationProof(root, leaf common.Hash, proof []common.Hash) bool {
	h := leaf
	for _, p := range proof {
		h = hashPair(h, p)
	}
	return h == root
}

func hashPair(a, b common.Hash) common.Hash {
	if bytes.Compare(b.Bytes(), a.Bytes()) < 0 {
		a, b = b, a
	}
	return crypto.Keccak256Hash(a.Bytes(), b.Bytes())
}
