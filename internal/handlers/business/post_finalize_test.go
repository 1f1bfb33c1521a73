package business

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"roundsettle/internal/models"
	"roundsettle/internal/store/memory"
	"roundsettle/pkg/evm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyStep fails a fixed number of times before delegating.
type flakyStep struct {
	SetupStep
	failures int
	calls    int
}

func (f *flakyStep) Run(ctx context.Context, round *models.Round) error {
	f.calls++
	if f.failures > 0 {
		f.failures--
		return errors.New("lock contract unavailable")
	}
	return f.SetupStep.Run(ctx, round)
}

// downStep always fails; it is safe for concurrent use.
type downStep struct{}

func (downStep) Name() string { return TaskLock }

func (downStep) Run(context.Context, *models.Round) error {
	return errors.New("lock contract unavailable")
}

func finalizedRound(t *testing.T, st *memory.Store) *models.Round {
	t.Helper()
	chain := newFakeChain()
	round := seedRound(t, st, presaleRound(2, 1000))
	seedContribution(t, st, round.ID, alice, 700, "", 1)
	seedContribution(t, st, round.ID, bob, 400, "", 2)
	chain.setState(evm.OnChainEnded, 1100, 1000)
	_, err := newFinalizer(st, chain).Finalize(context.Background(), FinalizeInput{RoundID: round.ID, IdempotencyKey: "setup"})
	require.NoError(t, err)
	r, err := st.GetRound(context.Background(), round.ID)
	require.NoError(t, err)
	return r
}

func TestPostFinalizeRetriesUntilSettled(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	round := finalizedRound(t, st)

	vesting := NewVestingSetup(st)
	lock := &flakyStep{SetupStep: NewLockSetup(st), failures: 2}
	o := NewPostFinalizeOrchestrator(st, vesting, lock, quietLogger(), nil)

	t.Run("failing sub-task is recorded and retried", func(t *testing.T) {
		for i := 1; i <= 2; i++ {
			summary, err := o.RunOnce(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, summary.Failed)

			p, err := st.GetProgress(ctx, round.ID)
			require.NoError(t, err)
			assert.Equal(t, i, p.RetryCount)
			assert.Equal(t, i, p.LockRetries)
			assert.Equal(t, 0, p.VestingRetries)
			assert.Equal(t, models.SetupStatusCompleted, p.VestingStatus)
			assert.Equal(t, models.SetupStatusPending, p.LockStatus)
			assert.Contains(t, p.LastError, "lock contract unavailable")
			assert.False(t, p.Completed)
		}

		r, err := st.GetRound(ctx, round.ID)
		require.NoError(t, err)
		assert.Nil(t, r.SettledAt)
	})

	t.Run("third pass completes and passes the gate", func(t *testing.T) {
		summary, err := o.RunOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Settled)

		p, err := st.GetProgress(ctx, round.ID)
		require.NoError(t, err)
		assert.True(t, p.Completed)
		assert.Equal(t, models.SetupStatusCompleted, p.LockStatus)

		r, err := st.GetRound(ctx, round.ID)
		require.NoError(t, err)
		require.NotNil(t, r.SettledAt)

		v, err := st.GetVestingSchedule(ctx, round.ID)
		require.NoError(t, err)
		assert.Equal(t, r.MerkleRoot, v.MerkleRoot)
		assert.Equal(t, int64(30*86400), v.CliffSeconds)

		l, err := st.GetLiquidityLock(ctx, round.ID)
		require.NoError(t, err)
		assert.Equal(t, "660", l.LiquidityAmount.String())
		assert.Equal(t, 180*24*time.Hour, l.UnlockAt.Sub(l.LockedAt))
	})

	t.Run("settled rounds drop out of the pending set", func(t *testing.T) {
		summary, err := o.RunOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, summary.Checked)
		assert.Equal(t, 3, lock.calls)
	})
}

func TestPostFinalizeConcurrentPassesKeepEveryRetry(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	round := finalizedRound(t, st)
	o := NewPostFinalizeOrchestrator(st, NewVestingSetup(st), downStep{}, quietLogger(), nil)

	_, err := o.RunRound(ctx, round.ID)
	var retryable *SetupRetryableError
	require.ErrorAs(t, err, &retryable)

	const workers = 4
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := o.RunRound(ctx, round.ID)
			assert.ErrorAs(t, err, new(*SetupRetryableError))
		}()
	}
	wg.Wait()

	p, err := st.GetProgress(ctx, round.ID)
	require.NoError(t, err)
	assert.Equal(t, workers+1, p.RetryCount)
	assert.Equal(t, workers+1, p.LockRetries)
	assert.Equal(t, models.SetupStatusCompleted, p.VestingStatus)
	assert.Zero(t, p.VestingRetries)
	assert.False(t, p.Completed)
}

func TestPostFinalizeRejectsFailedRound(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	chain := newFakeChain()
	round := seedRound(t, st, presaleRound(2, 1000))
	seedContribution(t, st, round.ID, alice, 10, "", 1)
	chain.setState(evm.OnChainEnded, 10, 1000)
	_, err := newFinalizer(st, chain).Finalize(ctx, FinalizeInput{RoundID: round.ID, IdempotencyKey: "f"})
	require.NoError(t, err)

	o := NewPostFinalizeOrchestrator(st, NewVestingSetup(st), NewLockSetup(st), quietLogger(), nil)
	_, err = o.RunRound(ctx, round.ID)
	var pre *PreconditionError
	require.ErrorAs(t, err, &pre)

	_, err = st.GetProgress(ctx, round.ID)
	assert.Error(t, err, "no progress row for a failed round")
}

func TestSetupStepsAreIdempotent(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	round := finalizedRound(t, st)

	v := NewVestingSetup(st)
	require.NoError(t, v.Run(ctx, round))
	first, err := st.GetVestingSchedule(ctx, round.ID)
	require.NoError(t, err)
	require.NoError(t, v.Run(ctx, round))
	second, err := st.GetVestingSchedule(ctx, round.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	l := NewLockSetup(st)
	require.NoError(t, l.Run(ctx, round))
	require.NoError(t, l.Run(ctx, round))
}
