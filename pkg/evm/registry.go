package evm

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// ErrNoSigner is returned when the registry was built without a signing key.
var ErrNoSigner = errors.New("no finalize signer configured")

// EndpointLookup resolves the RPC endpoint for a chain id.
type EndpointLookup func(ctx context.Context, chainID uint64) (string, error)

// Registry dials one Client per chain on first use.
type Registry struct {
	lookup EndpointLookup
	key    *ecdsa.PrivateKey
	logger logrus.FieldLogger

	mu      sync.Mutex
	clients map[uint64]*Client
}

// NewRegistry creates a registry. key may be nil for read-only processes.
func NewRegistry(lookup EndpointLookup, key *ecdsa.PrivateKey, logger logrus.FieldLogger) *Registry {
	return &Registry{
		lookup:  lookup,
		key:     key,
		logger:  logger,
		clients: make(map[uint64]*Client),
	}
}

// Client returns the reader for chainID.
func (r *Registry) Client(ctx context.Context, chainID uint64) (*Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.clients[chainID]; ok {
		return c, nil
	}
	endpoint, err := r.lookup(ctx, chainID)
	if err != nil {
		return nil, fmt.Errorf("no rpc endpoint for chain %d: %w", chainID, err)
	}
	c, err := Dial(ctx, endpoint, r.logger.WithField("chain_id", chainID))
	if err != nil {
		return nil, err
	}
	got, err := c.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain %d: %w", chainID, err)
	}
	if got.Uint64() != chainID {
		return nil, fmt.Errorf("endpoint for chain %d reports chain %s", chainID, got)
	}
	r.clients[chainID] = c
	return c, nil
}

// Transactor returns the signer bound to chainID.
func (r *Registry) Transactor(ctx context.Context, chainID uint64) (*Transactor, error) {
	if r.key == nil {
		return nil, ErrNoSigner
	}
	c, err := r.Client(ctx, chainID)
	if err != nil {
		return nil, err
	}
	return NewTransactor(c, r.key), nil
}
