package business

import (
	"context"
	"errors"
	"sync"
	"testing"

	"roundsettle/internal/models"
	"roundsettle/internal/store/memory"
	"roundsettle/pkg/evm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	mu   sync.Mutex
	fail error
	got  []string
}

func (p *fakePublisher) Publish(_ context.Context, queue, messageID string, _ []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.got = append(p.got, queue+"/"+messageID)
	return nil
}

func TestOutboxRelay(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	chain := newFakeChain()
	round := seedRound(t, st, presaleRound(2, 1000))
	seedContribution(t, st, round.ID, alice, 1100, "", 1)
	chain.setState(evm.OnChainEnded, 1100, 1000)
	_, err := newFinalizer(st, chain).Finalize(ctx, FinalizeInput{RoundID: round.ID, IdempotencyKey: "k"})
	require.NoError(t, err)

	pub := &fakePublisher{fail: errors.New("channel closed")}
	relay := NewOutboxRelay(st, pub, 10, quietLogger(), nil)

	t.Run("broker failure keeps the row pending", func(t *testing.T) {
		published, failed, err := relay.Relay(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, published)
		assert.Equal(t, 1, failed)

		msgs := st.OutboxMessages()
		require.Len(t, msgs, 1)
		assert.Equal(t, models.OutboxStatusPending, msgs[0].Status)
		assert.Equal(t, 1, msgs[0].Attempts)
		assert.Equal(t, "channel closed", msgs[0].LastError)
	})

	t.Run("next pass publishes", func(t *testing.T) {
		pub.fail = nil
		published, failed, err := relay.Relay(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, published)
		assert.Equal(t, 0, failed)

		msgs := st.OutboxMessages()
		assert.Equal(t, models.OutboxStatusPublished, msgs[0].Status)
		require.NotNil(t, msgs[0].PublishedAt)
		assert.Equal(t, []string{models.TopicPostFinalizeSetup + "/" + msgs[0].MessageID}, pub.got)
	})

	t.Run("published rows are not sent again", func(t *testing.T) {
		published, _, err := relay.Relay(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, published)
		assert.Len(t, pub.got, 1)
	})
}
