package business

import (
	"context"
	"math/big"
	"time"

	"roundsettle/pkg/evm"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ChainReader is the read side of one chain. *evm.Client satisfies it.
type ChainReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
	BlockTime(ctx context.Context, number uint64) (time.Time, error)
	FilterContributions(ctx context.Context, contract common.Address, from, to uint64) ([]evm.ContributionEvent, error)
	RoundState(ctx context.Context, contract common.Address) (*evm.RoundState, error)
	WaitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// FinalizeSigner signs and broadcasts finalize calls. *evm.Transactor satisfies it.
type FinalizeSigner interface {
	Address() common.Address
	SignFinalizeSuccess(ctx context.Context, contract common.Address, root common.Hash, totalAllocation *big.Int) (*types.Transaction, error)
	SignFinalizeFailed(ctx context.Context, contract common.Address, reason string) (*types.Transaction, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// Chains resolves the reader and signer for a chain id.
type Chains interface {
	Reader(ctx context.Context, chainID uint64) (ChainReader, error)
	Signer(ctx context.Context, chainID uint64) (FinalizeSigner, error)
}

// RegistryChains adapts an evm.Registry to Chains.
type RegistryChains struct {
	Registry *evm.Registry
}

func (r RegistryChains) Reader(ctx context.Context, chainID uint64) (ChainReader, error) {
	c, err := r.Registry.Client(ctx, chainID)
	if err != nil {
		return nil, &TransientChainError{Op: "dial", Err: err}
	}
	return c, nil
}

func (r RegistryChains) Signer(ctx context.Context, chainID uint64) (FinalizeSigner, error) {
	return r.Registry.Transactor(ctx, chainID)
}
