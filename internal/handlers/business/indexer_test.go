package business

import (
	"context"
	"testing"
	"time"

	"roundsettle/internal/models"
	"roundsettle/internal/store/memory"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIndexer(st *memory.Store, chain *fakeChain, chunk uint64) *ContributionIndexer {
	return NewContributionIndexer(st, chain, IndexerConfig{ChunkSize: chunk, Confirmations: 2, Workers: 2}, quietLogger(), nil)
}

func activeRound(t *testing.T, st *memory.Store) *models.Round {
	r := presaleRound(2, 1000)
	r.Status = models.RoundStatusActive
	return seedRound(t, st, r)
}

func TestIndexRoundIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	chain := newFakeChain()
	chain.head = 1000
	round := activeRound(t, st)

	require.NoError(t, st.RegisterWallet(ctx, alice.Hex(), 42))
	chain.addEvent(alice, 700, carol, 150, 1)
	chain.addEvent(bob, 400, common.Address{}, 420, 2)
	chain.addEvent(bob, 10, common.Address{}, 999, 3) // above head - confirmations

	x := newIndexer(st, chain, 100)

	t.Run("first run inserts every confirmed event", func(t *testing.T) {
		res, err := x.IndexRound(ctx, round.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, uint64(100), res.FromBlock)
		assert.Equal(t, uint64(998), res.ToBlock)
		assert.Equal(t, 2, res.Found)
		assert.Equal(t, 2, res.Inserted)
		assert.Equal(t, 0, res.Duplicates)
		assert.Empty(t, res.Errors)
		assert.Equal(t, uint64(998), res.Checkpoint)
	})

	t.Run("overlapping rerun only counts duplicates", func(t *testing.T) {
		since := uint64(100)
		res, err := x.IndexRound(ctx, round.ID, &since)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Found)
		assert.Equal(t, 0, res.Inserted)
		assert.Equal(t, 2, res.Duplicates)

		rows, err := st.ListConfirmedContributions(ctx, round.ID)
		require.NoError(t, err)
		require.Len(t, rows, 2)
	})

	t.Run("identity and referrer are resolved", func(t *testing.T) {
		rows, err := st.ListConfirmedContributions(ctx, round.ID)
		require.NoError(t, err)
		require.NotNil(t, rows[0].UserID)
		assert.Equal(t, uint64(42), *rows[0].UserID)
		assert.Equal(t, carol.Hex(), rows[0].ReferrerWallet)
		assert.Nil(t, rows[1].UserID, "unknown wallets are stored without identity")
		assert.Equal(t, "700", rows[0].Amount.String())
	})

	t.Run("checkpoint is never lowered by an override", func(t *testing.T) {
		got, err := st.GetRound(ctx, round.ID)
		require.NoError(t, err)
		assert.Equal(t, uint64(998), got.LastIndexedBlock)
	})
}

func TestIndexRoundSkipsFailedChunk(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	chain := newFakeChain()
	chain.head = 502
	round := activeRound(t, st)

	chain.addEvent(alice, 100, common.Address{}, 150, 1)
	chain.addEvent(bob, 200, common.Address{}, 250, 2)
	chain.addEvent(carol, 300, common.Address{}, 450, 3)
	chain.failChunk = func(from, _ uint64) bool { return from == 200 }

	x := newIndexer(st, chain, 100)
	res, err := x.IndexRound(ctx, round.ID, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, res.ChunksFailed)
	assert.Equal(t, 2, res.Inserted, "chunks after the failed one are still scanned")
	assert.Len(t, res.Errors, 1)
	assert.Equal(t, uint64(199), res.Checkpoint, "checkpoint stops before the failed chunk")

	chain.failChunk = nil
	res, err = x.IndexRound(ctx, round.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(200), res.FromBlock)
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, 1, res.Duplicates)
	assert.Equal(t, uint64(500), res.Checkpoint)
}

func TestIndexRoundOverridePastCheckpointLeavesGap(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	chain := newFakeChain()
	chain.head = 1002
	round := activeRound(t, st)
	chain.addEvent(alice, 100, common.Address{}, 150, 1)
	chain.addEvent(bob, 200, common.Address{}, 700, 2)

	x := newIndexer(st, chain, 100)
	since := uint64(500)
	res, err := x.IndexRound(ctx, round.ID, &since)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, uint64(0), res.Checkpoint, "blocks 100-499 were never scanned")

	got, err := st.GetRound(ctx, round.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), got.LastIndexedBlock)

	res, err = x.IndexRound(ctx, round.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), res.FromBlock)
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, 1, res.Duplicates)
	assert.Equal(t, uint64(1000), res.Checkpoint)

	rows, err := st.ListConfirmedContributions(ctx, round.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestIndexRoundRejectsUpcoming(t *testing.T) {
	st := memory.New()
	r := presaleRound(2, 1000)
	r.Status = models.RoundStatusUpcoming
	seedRound(t, st, r)

	_, err := newIndexer(st, newFakeChain(), 100).IndexRound(context.Background(), r.ID, nil)
	var pre *PreconditionError
	require.ErrorAs(t, err, &pre)
}

func TestIndexAll(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	chain := newFakeChain()
	chain.head = 300

	r1 := activeRound(t, st)
	r2 := presaleRound(2, 1000)
	r2.ContractAddress = "0x00000000000000000000000000000000000000C1"
	seedRound(t, st, r2)
	r3 := presaleRound(2, 1000)
	r3.ContractAddress = "0x00000000000000000000000000000000000000C2"
	r3.Status = models.RoundStatusUpcoming
	seedRound(t, st, r3)

	chain.addEvent(alice, 5, common.Address{}, 120, 1)

	results, err := newIndexer(st, chain, 1000).IndexAll(ctx)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, r1.ID, results[0].RoundID)
	assert.Equal(t, r2.ID, results[1].RoundID)
}

func TestRoundStatusSweeper(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	now := time.Now()

	due := presaleRound(2, 1000)
	due.Status = models.RoundStatusUpcoming
	due.StartAt = now.Add(-time.Hour)
	due.EndAt = now.Add(time.Hour)
	seedRound(t, st, due)

	over := presaleRound(2, 1000)
	over.ContractAddress = "0x00000000000000000000000000000000000000C1"
	over.Status = models.RoundStatusUpcoming
	over.StartAt = now.Add(-2 * time.Hour)
	over.EndAt = now.Add(-time.Hour)
	seedRound(t, st, over)

	later := presaleRound(2, 1000)
	later.ContractAddress = "0x00000000000000000000000000000000000000C2"
	later.Status = models.RoundStatusUpcoming
	later.StartAt = now.Add(time.Hour)
	later.EndAt = now.Add(2 * time.Hour)
	seedRound(t, st, later)

	s := NewRoundStatusSweeper(st, quietLogger())
	s.Now = func() time.Time { return now }
	activated, ended, err := s.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, activated)
	assert.Equal(t, 1, ended)

	get := func(id uint64) models.RoundStatus {
		r, err := st.GetRound(ctx, id)
		require.NoError(t, err)
		return r.Status
	}
	assert.Equal(t, models.RoundStatusActive, get(due.ID))
	assert.Equal(t, models.RoundStatusEnded, get(over.ID))
	assert.Equal(t, models.RoundStatusUpcoming, get(later.ID))
}
