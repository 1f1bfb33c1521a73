package evm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Transactor signs finalize calls with the administrative key. Signing and sending are
// separate so the hash can be recorded before the transaction leaves the process.
type Transactor struct {
	client *Client
	key    *ecdsa.PrivateKey
	from   common.Address
}

// NewTransactor binds a signing key to a chain client.
func NewTransactor(client *Client, key *ecdsa.PrivateKey) *Transactor {
	return &Transactor{
		client: client,
		key:    key,
		from:   crypto.PubkeyToAddress(key.PublicKey),
	}
}

// Address is the signer address.
func (t *Transactor) Address() common.Address {
	return t.from
}

func (t *Transactor) signOnly(ctx context.Context, contract common.Address, method string, args ...interface{}) (*types.Transaction, error) {
	chainID, err := t.client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read chain id: %w", err)
	}
	opts, err := bind.NewKeyedTransactorWithChainID(t.key, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to build transactor: %w", err)
	}
	opts.Context = ctx
	opts.NoSend = true

	backend := t.client.Backend()
	bound := bind.NewBoundContract(contract, roundABI, backend, backend, backend)
	tx, err := bound.Transact(opts, method, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return tx, nil
}

// SignFinalizeSuccess builds and signs finalizeSuccess(root, totalAllocation) without sending it.
func (t *Transactor) SignFinalizeSuccess(ctx context.Context, contract common.Address, root common.Hash, totalAllocation *big.Int) (*types.Transaction, error) {
	return t.signOnly(ctx, contract, "finalizeSuccess", [32]byte(root), totalAllocation)
}

// SignFinalizeFailed builds and signs finalizeFailed(reason) without sending it.
func (t *Transactor) SignFinalizeFailed(ctx context.Context, contract common.Address, reason string) (*types.Transaction, error) {
	return t.signOnly(ctx, contract, "finalizeFailed", reason)
}

// SendTransaction broadcasts a signed transaction. A node that already has it is not an error.
func (t *Transactor) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	err := t.client.Backend().SendTransaction(ctx, tx)
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "already known") {
		return nil
	}
	return err
}
