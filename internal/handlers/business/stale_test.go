package business

import (
	"context"
	"testing"
	"time"

	"roundsettle/internal/models"
	"roundsettle/internal/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaleFinalizeSweep(t *testing.T) {
	ctx := context.Background()
	st := memory.New()

	for i, status := range []models.FinalizeRequestStatus{
		models.FinalizeRequestBroadcast,
		models.FinalizeRequestCompleted,
		models.FinalizeRequestPending,
	} {
		require.NoError(t, st.CreateFinalizeRequest(ctx, &models.FinalizeRequest{
			IdempotencyKey: string(rune('a' + i)),
			RoundID:        uint64(i + 1),
			Status:         status,
			TxHash:         "0xabc",
		}))
	}

	s := NewStaleFinalizeSweep(st, time.Minute, quietLogger(), nil)

	stale, err := s.Sweep(ctx)
	require.NoError(t, err)
	assert.Empty(t, stale, "fresh broadcasts are not stale")

	s.Now = func() time.Time { return time.Now().Add(time.Hour) }
	stale, err = s.Sweep(ctx)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "a", stale[0].IdempotencyKey)
}
