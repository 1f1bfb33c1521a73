package memory

import (
	"context"
	"testing"
	"time"

	"roundsettle/internal/models"
	"roundsettle/internal/store"
	"roundsettle/internal/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger(t *testing.T) {
	storetest.Run(t, New())
}

func TestReturnedRowsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	r := storetest.NewRound(t, s, models.RoundStatusActive)

	got, err := s.GetRound(ctx, r.ID)
	require.NoError(t, err)
	got.Status = models.RoundStatusCancelled
	got.LastIndexedBlock = 99

	again, err := s.GetRound(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoundStatusActive, again.Status)
	assert.Zero(t, again.LastIndexedBlock)
}

func TestStrictUpdates(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.TransitionRoundStatus(ctx, 404, models.RoundStatusActive, models.RoundStatusEnded)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.AdvanceCheckpoint(ctx, 404, 1), store.ErrNotFound)
	assert.ErrorIs(t, s.UpdateFinalizeRequest(ctx, &models.FinalizeRequest{IdempotencyKey: "missing"}), store.ErrNotFound)
	_, err = s.RecordSetupPass(ctx, 404, store.SetupPass{Lock: &store.SetupAttempt{}})
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.MarkOutboxPublished(ctx, 404, time.Now()), store.ErrNotFound)
	assert.ErrorIs(t, s.SaveChainConfig(ctx, &models.ChainConfig{ID: 404, ChainID: 1}), store.ErrNotFound)
	assert.ErrorIs(t, s.InsertContribution(ctx, &models.Contribution{RoundID: 1}), store.ErrInvalidInput)
	assert.ErrorIs(t, s.CreateFinalizeRequest(ctx, &models.FinalizeRequest{}), store.ErrInvalidInput)
}

func TestOutboxAttempts(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.mu.Lock()
	s.insertOutboxLocked(&models.OutboxMessage{MessageID: "m1", Topic: models.TopicPostFinalizeSetup}, time.Now())
	s.mu.Unlock()

	pending, err := s.ListPendingOutbox(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	id := pending[0].ID

	require.NoError(t, s.MarkOutboxFailed(ctx, id, "connection refused"))
	require.NoError(t, s.MarkOutboxPublished(ctx, id, time.Now()))

	msgs := s.OutboxMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, 2, msgs[0].Attempts)
	assert.Equal(t, models.OutboxStatusPublished, msgs[0].Status)
	assert.Equal(t, "connection refused", msgs[0].LastError)
}
