package utils

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testCtx = AllocationContext{
		Vault:   common.HexToAddress("0x00000000000000000000000000000000000000Fa"),
		ChainID: big.NewInt(31337),
		Salt:    common.HexToHash("0x01"),
	}
	addrA = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	addrB = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	addrC = common.HexToAddress("0x00000000000000000000000000000000000000c3")
)

func TestAllocationLeafHash(t *testing.T) {
	packed := append([]byte{}, testCtx.Vault.Bytes()...)
	packed = append(packed, common.LeftPadBytes(big.NewInt(31337).Bytes(), 32)...)
	packed = append(packed, testCtx.Salt.Bytes()...)
	packed = append(packed, addrA.Bytes()...)
	packed = append(packed, common.LeftPadBytes(big.NewInt(350).Bytes(), 32)...)

	assert.Equal(t, crypto.Keccak256Hash(packed), AllocationLeafHash(testCtx, addrA, big.NewInt(350)))

	other := testCtx
	other.ChainID = big.NewInt(1)
	assert.NotEqual(t, AllocationLeafHash(testCtx, addrA, big.NewInt(350)), AllocationLeafHash(other, addrA, big.NewInt(350)),
		"leaves are bound to the chain")
}

func TestBuildAllocationTree(t *testing.T) {
	entries := []AllocationEntry{
		{Beneficiary: addrC, Amount: big.NewInt(30)},
		{Beneficiary: addrA, Amount: big.NewInt(350)},
		{Beneficiary: addrB, Amount: big.NewInt(200)},
	}

	tree, err := BuildAllocationTree(testCtx, entries)
	require.NoError(t, err)

	t.Run("every proof verifies", func(t *testing.T) {
		for _, leaf := range tree.Leaves {
			assert.True(t, VerifyAllocationProof(tree.Root, leaf.Hash, leaf.Proof), leaf.Beneficiary.Hex())
		}
		assert.Equal(t, int64(580), tree.TotalAllocation().Int64())
	})

	t.Run("leaves are sorted by beneficiary", func(t *testing.T) {
		assert.Equal(t, addrA, tree.Leaves[0].Beneficiary)
		assert.Equal(t, addrB, tree.Leaves[1].Beneficiary)
		assert.Equal(t, addrC, tree.Leaves[2].Beneficiary)
	})

	t.Run("root does not depend on input order", func(t *testing.T) {
		reversed := []AllocationEntry{entries[2], entries[1], entries[0]}
		again, err := BuildAllocationTree(testCtx, reversed)
		require.NoError(t, err)
		assert.Equal(t, tree.Root, again.Root)
	})

	t.Run("tampered amount fails verification", func(t *testing.T) {
		leaf, ok := tree.Leaf(addrB)
		require.True(t, ok)
		forged := AllocationLeafHash(testCtx, addrB, big.NewInt(201))
		assert.False(t, VerifyAllocationProof(tree.Root, forged, leaf.Proof))
	})

	t.Run("unknown beneficiary", func(t *testing.T) {
		_, ok := tree.Leaf(common.HexToAddress("0x01"))
		assert.False(t, ok)
	})
}

func TestBuildAllocationTreeShapes(t *testing.T) {
	t.Run("single leaf is the root", func(t *testing.T) {
		tree, err := BuildAllocationTree(testCtx, []AllocationEntry{{Beneficiary: addrA, Amount: big.NewInt(1)}})
		require.NoError(t, err)
		assert.Equal(t, tree.Leaves[0].Hash, tree.Root)
		assert.Empty(t, tree.Leaves[0].Proof)
	})

	t.Run("two leaves hash as a sorted pair", func(t *testing.T) {
		tree, err := BuildAllocationTree(testCtx, []AllocationEntry{
			{Beneficiary: addrA, Amount: big.NewInt(1)},
			{Beneficiary: addrB, Amount: big.NewInt(2)},
		})
		require.NoError(t, err)
		assert.Equal(t, hashPair(tree.Leaves[0].Hash, tree.Leaves[1].Hash), tree.Root)
		assert.Equal(t, hashPair(tree.Leaves[1].Hash, tree.Leaves[0].Hash), tree.Root)
	})

	t.Run("odd count promotes the last node", func(t *testing.T) {
		var entries []AllocationEntry
		for i := 1; i <= 5; i++ {
			entries = append(entries, AllocationEntry{Beneficiary: common.BigToAddress(big.NewInt(int64(i))), Amount: big.NewInt(int64(i * 10))})
		}
		tree, err := BuildAllocationTree(testCtx, entries)
		require.NoError(t, err)
		for _, leaf := range tree.Leaves {
			assert.True(t, VerifyAllocationProof(tree.Root, leaf.Hash, leaf.Proof))
		}
		assert.Len(t, tree.Leaves[4].Proof, 1, "promoted leaf only needs the top sibling")
	})

	t.Run("rejects bad input", func(t *testing.T) {
		_, err := BuildAllocationTree(testCtx, nil)
		assert.ErrorIs(t, err, ErrNoBeneficiaries)

		_, err = BuildAllocationTree(testCtx, []AllocationEntry{
			{Beneficiary: addrA, Amount: big.NewInt(1)},
			{Beneficiary: addrA, Amount: big.NewInt(2)},
		})
		assert.ErrorIs(t, err, ErrDuplicateBeneficiary)

		_, err = BuildAllocationTree(testCtx, []AllocationEntry{{Beneficiary: addrA, Amount: big.NewInt(-1)}})
		assert.ErrorIs(t, err, ErrAmountOutOfRange)

		tooBig := new(big.Int).Lsh(big.NewInt(1), 256)
		_, err = BuildAllocationTree(testCtx, []AllocationEntry{{Beneficiary: addrA, Amount: tooBig}})
		assert.ErrorIs(t, err, ErrAmountOutOfRange)
	})
}

func TestNewSalt(t *testing.T) {
	a, err := NewSalt()
	require.NoError(t, err)
	b, err := NewSalt()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, common.Hash{}, a)
}
