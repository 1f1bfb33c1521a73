package evm

import (
	"context"
	"errors"
	"io"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testContract = common.HexToAddress("0x00000000000000000000000000000000000000C0")
	testWallet   = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	testReferrer = common.HexToAddress("0x00000000000000000000000000000000000000c3")
)

// fakeBackend answers the calls Client makes; everything else panics through the nil embed.
type fakeBackend struct {
	Backend
	logs    []types.Log
	logsErr error
	query   ethereum.FilterQuery
	values  map[string]interface{}
}

func (f *fakeBackend) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	f.query = q
	return f.logs, f.logsErr
}

func (f *fakeBackend) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	method, err := roundABI.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	return method.Outputs.Pack(f.values[method.Name])
}

func (f *fakeBackend) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return []byte{0x60}, nil
}

func contributedLog(t *testing.T, wallet common.Address, amount int64, referrer common.Address, index uint) types.Log {
	t.Helper()
	data, err := roundABI.Events["Contributed"].Inputs.NonIndexed().Pack(big.NewInt(amount), referrer)
	require.NoError(t, err)
	return types.Log{
		Address:     testContract,
		Topics:      []common.Hash{ContributedTopic, common.BytesToHash(wallet.Bytes())},
		Data:        data,
		BlockNumber: 120,
		TxHash:      common.HexToHash("0xabc"),
		Index:       index,
	}
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestDecodeContributed(t *testing.T) {
	t.Run("decodes indexed and data fields", func(t *testing.T) {
		ev, err := DecodeContributed(contributedLog(t, testWallet, 700, testReferrer, 3))
		require.NoError(t, err)
		assert.Equal(t, testContract, ev.Contract)
		assert.Equal(t, testWallet, ev.Wallet)
		assert.Equal(t, "700", ev.Amount.String())
		assert.Equal(t, testReferrer, ev.Referrer)
		assert.True(t, ev.HasReferrer())
		assert.Equal(t, uint64(120), ev.BlockNumber)
		assert.Equal(t, uint(3), ev.LogIndex)
	})

	t.Run("zero referrer", func(t *testing.T) {
		ev, err := DecodeContributed(contributedLog(t, testWallet, 1, common.Address{}, 0))
		require.NoError(t, err)
		assert.False(t, ev.HasReferrer())
	})

	t.Run("other events are rejected", func(t *testing.T) {
		lg := contributedLog(t, testWallet, 1, common.Address{}, 0)
		lg.Topics[0] = common.HexToHash("0x01")
		_, err := DecodeContributed(lg)
		assert.Error(t, err)

		lg.Topics = lg.Topics[:0]
		_, err = DecodeContributed(lg)
		assert.Error(t, err)
	})
}

func TestFilterContributions(t *testing.T) {
	removed := contributedLog(t, testWallet, 5, common.Address{}, 1)
	removed.Removed = true
	garbage := contributedLog(t, testWallet, 5, common.Address{}, 2)
	garbage.Data = []byte{0x01}

	backend := &fakeBackend{logs: []types.Log{
		contributedLog(t, testWallet, 700, testReferrer, 0),
		removed,
		garbage,
	}}
	c := NewClient(backend, quietLogger())

	events, err := c.FilterContributions(context.Background(), testContract, 100, 199)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "700", events[0].Amount.String())

	assert.Equal(t, uint64(100), backend.query.FromBlock.Uint64())
	assert.Equal(t, uint64(199), backend.query.ToBlock.Uint64())
	assert.Equal(t, []common.Address{testContract}, backend.query.Addresses)

	backend.logsErr = errors.New("query returned more than 10000 results")
	_, err = c.FilterContributions(context.Background(), testContract, 100, 199)
	assert.ErrorContains(t, err, "eth_getLogs 100-199")
}

func TestRoundState(t *testing.T) {
	backend := &fakeBackend{values: map[string]interface{}{
		"status":      uint8(OnChainEnded),
		"totalRaised": big.NewInt(1100),
		"softCap":     big.NewInt(1000),
	}}
	c := NewClient(backend, quietLogger())

	state, err := c.RoundState(context.Background(), testContract)
	require.NoError(t, err)
	assert.Equal(t, OnChainEnded, state.Status)
	assert.Equal(t, "1100", state.TotalRaised.String())
	assert.Equal(t, "1000", state.SoftCap.String())
	assert.False(t, state.Status.Finalized())
	assert.Equal(t, "ENDED", state.Status.String())
}

func TestOnChainStatus(t *testing.T) {
	assert.True(t, OnChainFinalizedSuccess.Finalized())
	assert.True(t, OnChainFinalizedFailed.Finalized())
	assert.False(t, OnChainCancelled.Finalized())
	assert.Equal(t, "UNKNOWN(9)", OnChainStatus(9).String())
}
