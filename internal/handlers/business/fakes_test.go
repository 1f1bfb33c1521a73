package business

import (
	"context"
	"errors"
	"io"
	"math/big"
	"sync"
	"testing"
	"time"

	"roundsettle/internal/models"
	"roundsettle/internal/store/memory"
	"roundsettle/pkg/evm"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

const (
	testChainID  = 31337
	testContract = "0x00000000000000000000000000000000000000C0"
	testVault    = "0x00000000000000000000000000000000000000Fa"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob   = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	carol = common.HexToAddress("0x00000000000000000000000000000000000000c3")
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// fakeChain implements ChainReader, FinalizeSigner and Chains.
type fakeChain struct {
	mu sync.Mutex

	head      uint64
	events    []evm.ContributionEvent
	failChunk func(from, to uint64) bool
	scans     [][2]uint64

	state    evm.RoundState
	stateErr error

	nonce       uint64
	signed      int
	sent        map[common.Hash]bool
	sendErr     error
	revert      bool
	lastRoot    common.Hash
	lastTotal   *big.Int
	lastReason  string
	readerCalls int
}

func newFakeChain() *fakeChain {
	return &fakeChain{sent: make(map[common.Hash]bool)}
}

func (f *fakeChain) addEvent(wallet common.Address, amount int64, referrer common.Address, block uint64, txByte byte) common.Hash {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx := common.BytesToHash([]byte{txByte, byte(block), byte(len(f.events))})
	f.events = append(f.events, evm.ContributionEvent{
		Contract:    common.HexToAddress(testContract),
		Wallet:      wallet,
		Amount:      big.NewInt(amount),
		Referrer:    referrer,
		TxHash:      tx,
		BlockNumber: block,
	})
	return tx
}

func (f *fakeChain) setState(status evm.OnChainStatus, raised, softCap int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = evm.RoundState{Status: status, TotalRaised: big.NewInt(raised), SoftCap: big.NewInt(softCap)}
}

func (f *fakeChain) Reader(context.Context, uint64) (ChainReader, error) {
	f.mu.Lock()
	f.readerCalls++
	f.mu.Unlock()
	return f, nil
}

func (f *fakeChain) Signer(context.Context, uint64) (FinalizeSigner, error) { return f, nil }

func (f *fakeChain) BlockNumber(context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.head, nil
}

func (f *fakeChain) BlockTime(_ context.Context, n uint64) (time.Time, error) {
	return time.Unix(int64(1_700_000_000+n*12), 0).UTC(), nil
}

func (f *fakeChain) FilterContributions(_ context.Context, _ common.Address, from, to uint64) ([]evm.ContributionEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scans = append(f.scans, [2]uint64{from, to})
	if f.failChunk != nil && f.failChunk(from, to) {
		return nil, errors.New("query returned more than 10000 results")
	}
	var out []evm.ContributionEvent
	for _, ev := range f.events {
		if ev.BlockNumber >= from && ev.BlockNumber <= to {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeChain) RoundState(context.Context, common.Address) (*evm.RoundState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stateErr != nil {
		return nil, f.stateErr
	}
	st := f.state
	return &st, nil
}

func (f *fakeChain) WaitReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.sent[hash] {
		return nil, errors.New("not found")
	}
	status := types.ReceiptStatusSuccessful
	if f.revert {
		status = types.ReceiptStatusFailed
	}
	return &types.Receipt{Status: status, TxHash: hash, BlockNumber: big.NewInt(int64(f.head))}, nil
}

func (f *fakeChain) Address() common.Address {
	return common.HexToAddress("0x000000000000000000000000000000000000dEaD")
}

func (f *fakeChain) nextTx(data []byte) *types.Transaction {
	f.nonce++
	f.signed++
	to := common.HexToAddress(testContract)
	return types.NewTx(&types.LegacyTx{Nonce: f.nonce, To: &to, Gas: 100000, GasPrice: big.NewInt(1), Data: data})
}

func (f *fakeChain) SignFinalizeSuccess(_ context.Context, _ common.Address, root common.Hash, total *big.Int) (*types.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastRoot, f.lastTotal = root, new(big.Int).Set(total)
	return f.nextTx(root.Bytes()), nil
}

func (f *fakeChain) SignFinalizeFailed(_ context.Context, _ common.Address, reason string) (*types.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastReason = reason
	return f.nextTx([]byte(reason)), nil
}

func (f *fakeChain) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent[tx.Hash()] = true
	return nil
}

// markMined records hash as included, as if a broadcast that reported an error still landed.
func (f *fakeChain) markMined(hash string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent[common.HexToHash(hash)] = true
}

func (f *fakeChain) setSendErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendErr = err
}

func (f *fakeChain) signedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signed
}

func presaleRound(price, softCap int64) *models.Round {
	return &models.Round{
		Kind:            models.RoundKindPresale,
		ChainID:         testChainID,
		ContractAddress: testContract,
		VestingVault:    common.HexToAddress(testVault).Hex(),
		SoftCap:         decimal.NewFromInt(softCap),
		StartAt:         time.Now().Add(-48 * time.Hour),
		EndAt:           time.Now().Add(-time.Hour),
		Status:          models.RoundStatusEnded,
		Result:          models.RoundResultNone,
		DeployBlock:     100,
		Params: models.RoundParams{Presale: &models.PresaleParams{
			Price:               decimal.NewFromInt(price),
			HardCap:             decimal.NewFromInt(5000),
			TokensForSale:       decimal.NewFromInt(10000),
			LiquidityBps:        6000,
			LockDays:            180,
			VestingCliffDays:    30,
			VestingDurationDays: 90,
		}},
	}
}

func seedRound(t *testing.T, st *memory.Store, r *models.Round) *models.Round {
	t.Helper()
	require.NoError(t, st.CreateRound(context.Background(), r))
	return r
}

func seedContribution(t *testing.T, st *memory.Store, roundID uint64, wallet common.Address, amount int64, referrer string, n int) {
	t.Helper()
	err := st.InsertContribution(context.Background(), &models.Contribution{
		RoundID:        roundID,
		Wallet:         wallet.Hex(),
		Amount:         decimal.NewFromInt(amount),
		ReferrerWallet: referrer,
		TxHash:         common.BytesToHash([]byte{byte(roundID), byte(n), 0x77}).Hex(),
		BlockNumber:    uint64(100 + n),
		LogIndex:       uint(n),
		ConfirmedAt:    time.Now(),
		Status:         models.ContributionStatusConfirmed,
	})
	require.NoError(t, err)
}
