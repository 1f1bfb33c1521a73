// Package storetest holds behaviour checks shared by every store.Ledger implementation.
package storetest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"roundsettle/internal/models"
	"roundsettle/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var seq atomic.Uint64

// addr returns a fresh checksummed-looking address; tests share one ledger so every
// unique column gets a new value.
func addr() string {
	return fmt.Sprintf("0x%040x", seq.Add(1))
}

func hash() string {
	return fmt.Sprintf("0x%064x", seq.Add(1))
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

// NewRound creates a presale round in the given status.
func NewRound(t *testing.T, l store.Ledger, status models.RoundStatus) *models.Round {
	t.Helper()
	r := &models.Round{
		Kind:            models.RoundKindPresale,
		ChainID:         31337,
		ContractAddress: addr(),
		VestingVault:    addr(),
		SoftCap:         dec(1000),
		StartAt:         time.Now().Add(-48 * time.Hour).UTC(),
		EndAt:           time.Now().Add(-time.Hour).UTC(),
		Status:          status,
		DeployBlock:     100,
		Params: models.RoundParams{Presale: &models.PresaleParams{
			Price:         dec(2),
			HardCap:       dec(5000),
			TokensForSale: dec(10000),
			LiquidityBps:  6000,
			LockDays:      180,
		}},
	}
	require.NoError(t, l.CreateRound(context.Background(), r))
	require.NotZero(t, r.ID)
	return r
}

func newContribution(roundID uint64, wallet string, amount int64, block uint64, logIndex uint) *models.Contribution {
	return &models.Contribution{
		RoundID:     roundID,
		Wallet:      wallet,
		Amount:      dec(amount),
		TxHash:      hash(),
		BlockNumber: block,
		LogIndex:    logIndex,
		ConfirmedAt: time.Now().UTC(),
		Status:      models.ContributionStatusConfirmed,
	}
}

// Run exercises l. The ledger may already hold rows from other tests.
func Run(t *testing.T, l store.Ledger) {
	t.Run("rounds", func(t *testing.T) { testRounds(t, l) })
	t.Run("contributions", func(t *testing.T) { testContributions(t, l) })
	t.Run("finalize requests", func(t *testing.T) { testFinalizeRequests(t, l) })
	t.Run("commit success", func(t *testing.T) { testCommitSuccess(t, l) })
	t.Run("commit failed", func(t *testing.T) { testCommitFailed(t, l) })
	t.Run("fee splits", func(t *testing.T) { testFeeSplits(t, l) })
	t.Run("post-finalize setup", func(t *testing.T) { testSetup(t, l) })
	t.Run("chain configs", func(t *testing.T) { testChainConfigs(t, l) })
	t.Run("system logs", func(t *testing.T) { testSystemLogs(t, l) })
}

func testRounds(t *testing.T, l store.Ledger) {
	ctx := context.Background()
	r := NewRound(t, l, models.RoundStatusUpcoming)

	got, err := l.GetRound(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ContractAddress, got.ContractAddress)
	assert.Equal(t, models.RoundResultNone, got.Result)
	require.NotNil(t, got.Params.Presale)
	assert.Equal(t, "2", got.Params.Presale.Price.String())
	assert.Equal(t, "1000", got.SoftCap.String())

	_, err = l.GetRound(ctx, r.ID+1_000_000)
	assert.ErrorIs(t, err, store.ErrNotFound)

	dup := *r
	dup.ID = 0
	assert.ErrorIs(t, l.CreateRound(ctx, &dup), store.ErrDuplicateKey)

	bad := *r
	bad.ID = 0
	bad.ContractAddress = addr()
	bad.Params = models.RoundParams{Presale: &models.PresaleParams{Price: dec(2), TokensForSale: dec(10000)}}
	assert.ErrorIs(t, l.CreateRound(ctx, &bad), store.ErrInvalidInput, "a round without a liquidity share cannot settle")

	ok, err := l.TransitionRoundStatus(ctx, r.ID, models.RoundStatusActive, models.RoundStatusEnded)
	require.NoError(t, err)
	assert.False(t, ok, "transition from the wrong status is refused")
	ok, err = l.TransitionRoundStatus(ctx, r.ID, models.RoundStatusUpcoming, models.RoundStatusActive)
	require.NoError(t, err)
	assert.True(t, ok)

	active, err := l.ListRoundsByStatus(ctx, models.RoundStatusActive)
	require.NoError(t, err)
	assert.True(t, containsRound(active, r.ID))
	upcoming, err := l.ListRoundsByStatus(ctx, models.RoundStatusUpcoming)
	require.NoError(t, err)
	assert.False(t, containsRound(upcoming, r.ID))

	require.NoError(t, l.AdvanceCheckpoint(ctx, r.ID, 500))
	require.NoError(t, l.AdvanceCheckpoint(ctx, r.ID, 300))
	got, err = l.GetRound(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), got.LastIndexedBlock, "checkpoint never moves backwards")
}

func containsRound(rounds []*models.Round, id uint64) bool {
	for _, r := range rounds {
		if r.ID == id {
			return true
		}
	}
	return false
}

func testContributions(t *testing.T, l store.Ledger) {
	ctx := context.Background()
	r := NewRound(t, l, models.RoundStatusActive)
	wallet := addr()

	late := newContribution(r.ID, wallet, 10, 200, 0)
	early := newContribution(r.ID, wallet, 20, 150, 4)
	sameBlock := newContribution(r.ID, addr(), 30, 150, 1)
	for _, c := range []*models.Contribution{late, early, sameBlock} {
		require.NoError(t, l.InsertContribution(ctx, c))
	}

	dup := newContribution(r.ID, wallet, 99, 300, 0)
	dup.TxHash = late.TxHash
	assert.ErrorIs(t, l.InsertContribution(ctx, dup), store.ErrDuplicateKey)

	exists, err := l.ContributionExists(ctx, late.TxHash)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = l.ContributionExists(ctx, hash())
	require.NoError(t, err)
	assert.False(t, exists)

	rows, err := l.ListConfirmedContributions(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, sameBlock.TxHash, rows[0].TxHash)
	assert.Equal(t, early.TxHash, rows[1].TxHash)
	assert.Equal(t, late.TxHash, rows[2].TxHash)

	uid, err := l.ResolveWallet(ctx, wallet)
	require.NoError(t, err)
	assert.Nil(t, uid)
	require.NoError(t, l.RegisterWallet(ctx, wallet, 42))
	uid, err = l.ResolveWallet(ctx, wallet)
	require.NoError(t, err)
	require.NotNil(t, uid)
	assert.Equal(t, uint64(42), *uid)
	assert.ErrorIs(t, l.RegisterWallet(ctx, wallet, 43), store.ErrDuplicateKey)
}

func testFinalizeRequests(t *testing.T, l store.Ledger) {
	ctx := context.Background()
	r := NewRound(t, l, models.RoundStatusEnded)
	key := uuid.NewString()

	req := &models.FinalizeRequest{IdempotencyKey: key, RoundID: r.ID, Status: models.FinalizeRequestPending, Result: models.RoundResultNone}
	require.NoError(t, l.CreateFinalizeRequest(ctx, req))
	assert.ErrorIs(t, l.CreateFinalizeRequest(ctx, &models.FinalizeRequest{
		IdempotencyKey: key, RoundID: r.ID, Status: models.FinalizeRequestPending, Result: models.RoundResultNone,
	}), store.ErrDuplicateKey)

	_, err := l.GetFinalizeRequest(ctx, uuid.NewString())
	assert.ErrorIs(t, err, store.ErrNotFound)

	got, err := l.GetFinalizeRequest(ctx, key)
	require.NoError(t, err)
	got.Status = models.FinalizeRequestBroadcast
	got.TxHash = hash()
	require.NoError(t, l.UpdateFinalizeRequest(ctx, got))

	again, err := l.GetFinalizeRequest(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, models.FinalizeRequestBroadcast, again.Status)
	assert.Equal(t, got.TxHash, again.TxHash)

	stale, err := l.ListStaleFinalizeRequests(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, containsRequest(stale, key))
	fresh, err := l.ListStaleFinalizeRequests(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.False(t, containsRequest(fresh, key))

	beneficiary := addr()
	path, _ := json.Marshal([]string{hash()})
	proof := func(amount int64) *models.MerkleProof {
		return &models.MerkleProof{Beneficiary: beneficiary, Amount: dec(amount), Leaf: hash(), Proof: path, Root: hash(), Salt: hash()}
	}
	require.NoError(t, l.ReplaceMerkleProofs(ctx, r.ID, []*models.MerkleProof{proof(1)}))
	require.NoError(t, l.ReplaceMerkleProofs(ctx, r.ID, []*models.MerkleProof{proof(2)}))
	p, err := l.GetMerkleProof(ctx, r.ID, beneficiary)
	require.NoError(t, err)
	assert.Equal(t, "2", p.Amount.String(), "replace swaps the whole set")
	_, err = l.GetMerkleProof(ctx, r.ID, addr())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func containsRequest(reqs []*models.FinalizeRequest, key string) bool {
	for _, r := range reqs {
		if r.IdempotencyKey == key {
			return true
		}
	}
	return false
}

func testCommitSuccess(t *testing.T, l store.Ledger) {
	ctx := context.Background()
	r := NewRound(t, l, models.RoundStatusEnded)
	key := uuid.NewString()
	require.NoError(t, l.CreateFinalizeRequest(ctx, &models.FinalizeRequest{
		IdempotencyKey: key, RoundID: r.ID, Status: models.FinalizeRequestBroadcast, Result: models.RoundResultNone,
	}))

	a, b := addr(), addr()
	if a > b {
		a, b = b, a
	}
	referrer := addr()
	sourceID := fmt.Sprintf("%d", r.ID)
	payload, _ := json.Marshal(models.PostFinalizeSetupPayload{RoundID: r.ID})
	txHash := hash()
	finalizedAt := time.Now().UTC().Truncate(time.Second)
	root := hash()
	path, _ := json.Marshal([]string{hash()})
	proofRow := func(beneficiary, root string, amount int64) *models.MerkleProof {
		return &models.MerkleProof{Beneficiary: beneficiary, Amount: dec(amount), Leaf: hash(), Proof: path, Root: root, Salt: hash()}
	}
	// Rows left behind by a plan that never committed.
	outsider := addr()
	require.NoError(t, l.ReplaceMerkleProofs(ctx, r.ID, []*models.MerkleProof{
		proofRow(a, hash(), 999), proofRow(outsider, hash(), 1),
	}))

	commit := store.SuccessCommit{
		RoundID:         r.ID,
		RequestKey:      key,
		MerkleRoot:      root,
		TxHash:          txHash,
		TotalRaised:     dec(1100),
		TotalAllocation: dec(550),
		FinalizedAt:     finalizedAt,
		Proofs:          []*models.MerkleProof{proofRow(a, root, 350), proofRow(b, root, 200)},
		Allocations: []*models.Allocation{
			{Beneficiary: a, Contributed: dec(700), Tokens: dec(350), ClaimStatus: models.ClaimStatusPending},
			{Beneficiary: b, Contributed: dec(400), Tokens: dec(200), ClaimStatus: models.ClaimStatusPending},
		},
		FeeSplit: &models.FeeSplit{
			SourceType: models.FeeSourceRound, SourceID: sourceID,
			TotalAmount: dec(55), Treasury: dec(28), ReferralPool: dec(22), Staking: dec(5),
		},
		ReferralEntries: []*models.ReferralLedgerEntry{{
			ReferrerWallet: referrer, SourceType: models.FeeSourceRound, SourceID: sourceID,
			Amount: dec(22), Status: models.ClaimStatusPending,
		}},
		Outbox: &models.OutboxMessage{
			MessageID: uuid.NewString(), Topic: models.TopicPostFinalizeSetup, Payload: payload, Status: models.OutboxStatusPending,
		},
	}
	require.NoError(t, l.CommitFinalizeSuccess(ctx, commit))

	got, err := l.GetRound(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoundStatusFinalized, got.Status)
	assert.Equal(t, models.RoundResultSuccess, got.Result)
	assert.Equal(t, commit.MerkleRoot, got.MerkleRoot)
	assert.Equal(t, txHash, got.FinalizeTxHash)
	require.NotNil(t, got.TotalAllocation)
	assert.Equal(t, "550", got.TotalAllocation.String())
	require.NotNil(t, got.FinalizedAt)
	assert.WithinDuration(t, finalizedAt, *got.FinalizedAt, time.Second)

	allocs, err := l.ListAllocations(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, allocs, 2)
	assert.Equal(t, a, allocs[0].Beneficiary)
	assert.Equal(t, "350", allocs[0].Tokens.String())

	split, err := l.GetFeeSplit(ctx, models.FeeSourceRound, sourceID)
	require.NoError(t, err)
	assert.Equal(t, "28", split.Treasury.String())
	entries, err := l.ListReferralEntries(ctx, models.FeeSourceRound, sourceID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, referrer, entries[0].ReferrerWallet)

	req, err := l.GetFinalizeRequest(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, models.FinalizeRequestCompleted, req.Status)
	assert.Equal(t, models.RoundResultSuccess, req.Result)

	for _, w := range []string{a, b} {
		p, err := l.GetMerkleProof(ctx, r.ID, w)
		require.NoError(t, err)
		assert.Equal(t, root, p.Root, "proof rows carry the committed root")
	}
	p, err := l.GetMerkleProof(ctx, r.ID, a)
	require.NoError(t, err)
	assert.Equal(t, "350", p.Amount.String())
	_, err = l.GetMerkleProof(ctx, r.ID, outsider)
	assert.ErrorIs(t, err, store.ErrNotFound, "uncommitted proof rows are dropped")

	t.Run("second commit is a conflict", func(t *testing.T) {
		err := l.CommitFinalizeSuccess(ctx, store.SuccessCommit{RoundID: r.ID, TxHash: hash(), FinalizedAt: time.Now()})
		assert.ErrorIs(t, err, store.ErrConflict)
	})

	t.Run("outbox relays once", func(t *testing.T) {
		pending, err := l.ListPendingOutbox(ctx, 0)
		require.NoError(t, err)
		var msg *models.OutboxMessage
		for _, m := range pending {
			if m.MessageID == commit.Outbox.MessageID {
				msg = m
			}
		}
		require.NotNil(t, msg, "outbox row written with the commit")
		assert.JSONEq(t, string(payload), string(msg.Payload))

		require.NoError(t, l.MarkOutboxFailed(ctx, msg.ID, "broker down"))
		pending, err = l.ListPendingOutbox(ctx, 0)
		require.NoError(t, err)
		assert.True(t, containsOutbox(pending, msg.MessageID), "failed publish stays pending")

		require.NoError(t, l.MarkOutboxPublished(ctx, msg.ID, time.Now()))
		pending, err = l.ListPendingOutbox(ctx, 0)
		require.NoError(t, err)
		assert.False(t, containsOutbox(pending, msg.MessageID))
	})

	t.Run("settled once", func(t *testing.T) {
		pending, err := l.ListRoundsPendingSetup(ctx)
		require.NoError(t, err)
		assert.True(t, containsRound(pending, r.ID))

		ok, err := l.MarkRoundSettled(ctx, r.ID, time.Now())
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = l.MarkRoundSettled(ctx, r.ID, time.Now())
		require.NoError(t, err)
		assert.False(t, ok)

		pending, err = l.ListRoundsPendingSetup(ctx)
		require.NoError(t, err)
		assert.False(t, containsRound(pending, r.ID))
	})
}

func containsOutbox(msgs []*models.OutboxMessage, id string) bool {
	for _, m := range msgs {
		if m.MessageID == id {
			return true
		}
	}
	return false
}

func testCommitFailed(t *testing.T, l store.Ledger) {
	ctx := context.Background()
	r := NewRound(t, l, models.RoundStatusEnded)

	c1 := newContribution(r.ID, addr(), 300, 120, 0)
	c2 := newContribution(r.ID, addr(), 200, 121, 0)
	require.NoError(t, l.InsertContribution(ctx, c1))
	require.NoError(t, l.InsertContribution(ctx, c2))

	err := l.CommitFinalizeFailed(ctx, store.FailureCommit{
		RoundID:     r.ID,
		Reason:      "soft cap not reached",
		TxHash:      hash(),
		TotalRaised: dec(500),
		FinalizedAt: time.Now().UTC(),
		Refunds: []*models.RefundRecord{
			{ContributionID: c1.ID, Wallet: c1.Wallet, Amount: c1.Amount, Status: models.ClaimStatusPending},
			{ContributionID: c2.ID, Wallet: c2.Wallet, Amount: c2.Amount, Status: models.ClaimStatusPending},
		},
	})
	require.NoError(t, err)

	got, err := l.GetRound(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoundResultFailed, got.Result)
	assert.Equal(t, "soft cap not reached", got.FailReason)

	refunds, err := l.ListRefunds(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, refunds, 2)
	assert.Equal(t, c1.ID, refunds[0].ContributionID)
	assert.Equal(t, "300", refunds[0].Amount.String())

	ok, err := l.MarkRoundSettled(ctx, r.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, ok, "failed rounds never settle")

	err = l.CommitFinalizeFailed(ctx, store.FailureCommit{RoundID: r.ID, TxHash: hash(), FinalizedAt: time.Now()})
	assert.ErrorIs(t, err, store.ErrConflict)
}

func testFeeSplits(t *testing.T, l store.Ledger) {
	ctx := context.Background()
	swapID := uuid.NewString()
	split := func() *models.FeeSplit {
		return &models.FeeSplit{
			SourceType: models.FeeSourceSwap, SourceID: swapID,
			TotalAmount: dec(1000), Treasury: dec(500), ReferralPool: dec(400), Staking: dec(100),
		}
	}
	referrer := addr()
	require.NoError(t, l.RecordFeeSplit(ctx, split(), []*models.ReferralLedgerEntry{{
		ReferrerWallet: referrer, SourceType: models.FeeSourceSwap, SourceID: swapID,
		Amount: dec(400), Status: models.ClaimStatusPending,
	}}))
	assert.ErrorIs(t, l.RecordFeeSplit(ctx, split(), nil), store.ErrDuplicateKey)

	got, err := l.GetFeeSplit(ctx, models.FeeSourceSwap, swapID)
	require.NoError(t, err)
	assert.Equal(t, "1000", got.TotalAmount.String())
	entries, err := l.ListReferralEntries(ctx, models.FeeSourceSwap, swapID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "400", entries[0].Amount.String())

	_, err = l.GetFeeSplit(ctx, models.FeeSourceRound, swapID)
	assert.ErrorIs(t, err, store.ErrNotFound, "source type is part of the key")
}

func testSetup(t *testing.T, l store.Ledger) {
	ctx := context.Background()
	r := NewRound(t, l, models.RoundStatusFinalized)

	_, err := l.GetProgress(ctx, r.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	p, err := l.GetOrCreateProgress(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SetupStatusPending, p.VestingStatus)
	again, err := l.GetOrCreateProgress(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, again.ID, "one progress row per round")

	t.Run("passes accumulate", func(t *testing.T) {
		at := time.Now().UTC()
		failLock := store.SetupPass{
			Vesting:   &store.SetupAttempt{},
			Lock:      &store.SetupAttempt{Err: "lock contract unavailable"},
			LastError: "liquidity_lock: lock contract unavailable",
			At:        at,
		}
		got, err := l.RecordSetupPass(ctx, r.ID, failLock)
		require.NoError(t, err)
		assert.Equal(t, models.SetupStatusCompleted, got.VestingStatus)
		assert.Equal(t, models.SetupStatusPending, got.LockStatus)
		assert.Equal(t, 1, got.LockRetries)
		assert.Equal(t, 1, got.RetryCount)
		assert.False(t, got.Completed)

		// 已完成的子任务不会被再次计数
		got, err = l.RecordSetupPass(ctx, r.ID, failLock)
		require.NoError(t, err)
		assert.Equal(t, 0, got.VestingRetries)
		assert.Equal(t, 2, got.LockRetries)
		assert.Equal(t, 2, got.RetryCount)
		assert.Equal(t, "lock contract unavailable", got.LockLastError)
		assert.Contains(t, got.LastError, "lock contract unavailable")

		got, err = l.RecordSetupPass(ctx, r.ID, store.SetupPass{Lock: &store.SetupAttempt{}, At: at})
		require.NoError(t, err)
		assert.Equal(t, models.SetupStatusCompleted, got.LockStatus)
		assert.True(t, got.Completed)
		require.NotNil(t, got.CompletedAt)
		assert.Equal(t, 2, got.RetryCount, "a clean pass keeps the history")
	})

	t.Run("concurrent passes keep every retry", func(t *testing.T) {
		other := NewRound(t, l, models.RoundStatusFinalized)
		_, err := l.GetOrCreateProgress(ctx, other.ID)
		require.NoError(t, err)

		const passes = 8
		var wg sync.WaitGroup
		errs := make(chan error, passes)
		for i := 0; i < passes; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := l.RecordSetupPass(ctx, other.ID, store.SetupPass{
					Lock:      &store.SetupAttempt{Err: fmt.Sprintf("attempt %d", i)},
					LastError: fmt.Sprintf("liquidity_lock: attempt %d", i),
					At:        time.Now().UTC(),
				})
				errs <- err
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		got, err := l.GetProgress(ctx, other.ID)
		require.NoError(t, err)
		assert.Equal(t, passes, got.RetryCount)
		assert.Equal(t, passes, got.LockRetries)
		assert.False(t, got.Completed)
	})

	t.Run("missing row", func(t *testing.T) {
		_, err := l.RecordSetupPass(ctx, r.ID+1_000_000, store.SetupPass{Lock: &store.SetupAttempt{}, At: time.Now()})
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	now := time.Now().UTC()
	vesting := func() *models.VestingSchedule {
		return &models.VestingSchedule{RoundID: r.ID, VaultAddress: addr(), MerkleRoot: hash(), TotalAllocation: dec(550), TGEAt: now}
	}
	require.NoError(t, l.CreateVestingSchedule(ctx, vesting()))
	assert.ErrorIs(t, l.CreateVestingSchedule(ctx, vesting()), store.ErrDuplicateKey)
	v, err := l.GetVestingSchedule(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "550", v.TotalAllocation.String())

	lock := func() *models.LiquidityLock {
		return &models.LiquidityLock{RoundID: r.ID, LiquidityAmount: dec(660), LiquidityBps: 6000, LockedAt: now, UnlockAt: now.AddDate(0, 0, 180)}
	}
	require.NoError(t, l.CreateLiquidityLock(ctx, lock()))
	assert.ErrorIs(t, l.CreateLiquidityLock(ctx, lock()), store.ErrDuplicateKey)
	_, err = l.GetLiquidityLock(ctx, r.ID+1_000_000)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testChainConfigs(t *testing.T, l store.Ledger) {
	ctx := context.Background()
	chainID := seq.Add(1) + 1_000_000

	c := &models.ChainConfig{ChainID: chainID, Name: "devnet", RpcEndpoint: "http://localhost:8545", Confirmations: 2, IsActive: true}
	require.NoError(t, l.SaveChainConfig(ctx, c))
	require.NotZero(t, c.ID)

	clash := &models.ChainConfig{ChainID: chainID, Name: "other", RpcEndpoint: "http://localhost:9545", Confirmations: 1, IsActive: true}
	assert.ErrorIs(t, l.SaveChainConfig(ctx, clash), store.ErrDuplicateKey)
	assert.ErrorIs(t, l.SaveChainConfig(ctx, &models.ChainConfig{Name: "no chain"}), store.ErrInvalidInput)

	c.RpcEndpoint = "https://rpc.example.org"
	c.IsActive = false
	require.NoError(t, l.SaveChainConfig(ctx, c))

	got, err := l.GetChainConfigByChainID(ctx, chainID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, "https://rpc.example.org", got.RpcEndpoint)
	assert.False(t, got.IsActive)

	byID, err := l.GetChainConfig(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, chainID, byID.ChainID)

	_, err = l.GetChainConfigByChainID(ctx, chainID+1_000_000)
	assert.ErrorIs(t, err, store.ErrNotFound)

	all, err := l.ListChainConfigs(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, all)
}

func testSystemLogs(t *testing.T, l store.Ledger) {
	ctx := context.Background()
	roundID := seq.Add(1) + 1_000_000

	for _, level := range []string{"INFO", "ERROR", "INFO"} {
		require.NoError(t, l.AppendSystemLog(ctx, &models.SystemLog{RoundID: roundID, Level: level, Message: level + " entry", Module: "finalize"}))
	}

	logs, total, err := l.ListSystemLogs(ctx, store.SystemLogFilter{RoundID: roundID})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, logs, 3)
	assert.Greater(t, logs[0].ID, logs[1].ID, "newest first")

	logs, total, err = l.ListSystemLogs(ctx, store.SystemLogFilter{RoundID: roundID, Level: "ERROR"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, logs, 1)
	assert.Equal(t, "ERROR entry", logs[0].Message)

	logs, total, err = l.ListSystemLogs(ctx, store.SystemLogFilter{RoundID: roundID, Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, logs, 1)

	_, total, err = l.ListSystemLogs(ctx, store.SystemLogFilter{RoundID: roundID, Module: "indexer"})
	require.NoError(t, err)
	assert.Zero(t, total)
}
