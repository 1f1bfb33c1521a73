package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"roundsettle/pkg/utils"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
)

// Backend is the JSON-RPC surface the engine needs. *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	BlockNumber(ctx context.Context) (uint64, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

// Client is a read-only chain reader over one RPC endpoint.
type Client struct {
	backend Backend
	logger  logrus.FieldLogger
	retry   utils.RetryConfig

	chainOnce sync.Once
	chainID   *big.Int
	chainErr  error
}

// Dial connects to an RPC endpoint.
func Dial(ctx context.Context, endpoint string, logger logrus.FieldLogger) (*Client, error) {
	ec, err := ethclient.DialContext(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", endpoint, err)
	}
	return NewClient(ec, logger), nil
}

// NewClient wraps an existing backend.
func NewClient(backend Backend, logger logrus.FieldLogger) *Client {
	return &Client{
		backend: backend,
		logger:  logger,
		retry:   utils.DefaultRetryConfig(),
	}
}

// Backend exposes the underlying RPC client.
func (c *Client) Backend() Backend {
	return c.backend
}

// ChainID is fetched once and cached.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	c.chainOnce.Do(func() {
		c.chainID, c.chainErr = c.backend.ChainID(ctx)
	})
	return c.chainID, c.chainErr
}

// BlockNumber returns the current head.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	var head uint64
	err := utils.WithBackoff(ctx, c.retry, c.logger, "eth_blockNumber", func() error {
		var err error
		head, err = c.backend.BlockNumber(ctx)
		return err
	})
	return head, err
}

// HeaderByNumber fetches a block header.
func (c *Client) HeaderByNumber(ctx context.Context, number uint64) (*types.Header, error) {
	var header *types.Header
	err := utils.WithBackoff(ctx, c.retry, c.logger, "eth_getBlockByNumber", func() error {
		var err error
		header, err = c.backend.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
		return err
	})
	return header, err
}

// BlockTime returns the timestamp of a block.
func (c *Client) BlockTime(ctx context.Context, number uint64) (time.Time, error) {
	header, err := c.HeaderByNumber(ctx, number)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(int64(header.Time), 0).UTC(), nil
}

// TransactionByHash fetches a transaction and whether it is still pending.
func (c *Client) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	return c.backend.TransactionByHash(ctx, hash)
}

// TransactionReceipt returns ethereum.NotFound while the transaction is unmined.
func (c *Client) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	return c.backend.TransactionReceipt(ctx, hash)
}

// FilterContributions fetches and decodes Contributed logs in [from, to]. Callers bound the range.
func (c *Client) FilterContributions(ctx context.Context, contract common.Address, from, to uint64) ([]ContributionEvent, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{contract},
		Topics:    [][]common.Hash{{ContributedTopic}},
	}
	logs, err := c.backend.FilterLogs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("eth_getLogs %d-%d: %w", from, to, err)
	}

	events := make([]ContributionEvent, 0, len(logs))
	for _, lg := range logs {
		if lg.Removed {
			continue
		}
		ev, err := DecodeContributed(lg)
		if err != nil {
			c.logger.WithError(err).WithField("tx_hash", lg.TxHash.Hex()).Warn("skipping undecodable log")
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// RoundState reads status, totalRaised and softCap from the round contract.
func (c *Client) RoundState(ctx context.Context, contract common.Address) (*RoundState, error) {
	bound := bind.NewBoundContract(contract, roundABI, c.backend, c.backend, c.backend)
	opts := &bind.CallOpts{Context: ctx}

	var state RoundState
	err := utils.WithBackoff(ctx, c.retry, c.logger, "round_state", func() error {
		var out []interface{}
		if err := bound.Call(opts, &out, "status"); err != nil {
			return fmt.Errorf("status(): %w", err)
		}
		state.Status = OnChainStatus(*abi.ConvertType(out[0], new(uint8)).(*uint8))

		out = nil
		if err := bound.Call(opts, &out, "totalRaised"); err != nil {
			return fmt.Errorf("totalRaised(): %w", err)
		}
		state.TotalRaised = *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)

		out = nil
		if err := bound.Call(opts, &out, "softCap"); err != nil {
			return fmt.Errorf("softCap(): %w", err)
		}
		state.SoftCap = *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// WaitReceipt polls until the transaction is mined or ctx ends.
func (c *Client) WaitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		receipt, err := c.backend.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			c.logger.WithError(err).WithField("tx_hash", hash.Hex()).Debug("receipt lookup failed")
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}
