package events_test

import (
	"context"
	"testing"
	"time"

	"github.com/boddenberg/finance-tracker-go/internal/domain"
	"github.com/boddenberg/finance-tracker-go/internal/infra/events"
	"github.com/boddenberg/finance-tracker-go/internal/port"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var _ port.ChangeFeed = (*events.Broker)(nil)

func receive(t *testing.T, ch <-chan domain.ChangeEvent) (domain.ChangeEvent, bool) {
	t.Helper()
	select {
	case ev, ok := <-ch:
		return ev, ok
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return domain.ChangeEvent{}, false
	}
}

func TestBroker_DeliversOnlyToSameUser(t *testing.T) {
	b := events.NewBroker(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mine, err := b.SubscribeChanges(ctx, "u-1")
	require.NoError(t, err)
	theirs, err := b.SubscribeChanges(ctx, "u-2")
	require.NoError(t, err)

	ev := domain.NewChangeEvent(domain.CollectionSalaries, domain.ChangeInsert, "u-1", "s-1")
	require.NoError(t, b.PublishChange(ctx, ev))

	got, ok := receive(t, mine)
	require.True(t, ok)
	assert.Equal(t, domain.CollectionSalaries, got.Collection)
	assert.Equal(t, "s-1", got.RecordID)

	select {
	case <-theirs:
		t.Fatal("u-2 must not receive u-1 events")
	default:
	}
}

func TestBroker_CancelClosesChannel(t *testing.T) {
	b := events.NewBroker(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := b.SubscribeChanges(ctx, "u-1")
	require.NoError(t, err)
	cancel()

	_, ok := receive(t, ch)
	assert.False(t, ok)

	// publishing after the subscriber left is a no-op
	require.NoError(t, b.PublishChange(context.Background(),
		domain.NewChangeEvent(domain.CollectionExpenses, domain.ChangeDelete, "u-1", "e-1")))
}

func TestBroker_FullBufferDoesNotBlock(t *testing.T) {
	b := events.NewBroker(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := b.SubscribeChanges(ctx, "u-1")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			_ = b.PublishChange(ctx, domain.NewChangeEvent(domain.CollectionSavings, domain.ChangeUpdate, "u-1", "g-1"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestBroker_Close(t *testing.T) {
	b := events.NewBroker(zap.NewNop())
	ch, err := b.SubscribeChanges(context.Background(), "u-1")
	require.NoError(t, err)

	require.NoError(t, b.Close())

	_, ok := receive(t, ch)
	assert.False(t, ok)

	late, err := b.SubscribeChanges(context.Background(), "u-1")
	require.NoError(t, err)
	_, ok = receive(t, late)
	assert.False(t, ok)
}
