// Package events is an in-process change feed. It stands in for the AMQP
// feed when no broker is configured and fans events out to every
// subscriber of the same user.
package events

import (
	"context"
	"sync"

	"github.com/boddenberg/finance-tracker-go/internal/domain"

	"go.uber.org/zap"
)

// subscriberBuffer bounds each subscriber. A full buffer drops the event:
// consumers re-fetch everything on receipt, so one queued event is enough.
const subscriberBuffer = 8

// Broker implements port.ChangeFeed in memory.
type Broker struct {
	mu     sync.RWMutex
	subs   map[string]map[chan domain.ChangeEvent]struct{}
	logger *zap.Logger
	closed bool
}

// NewBroker creates an empty broker.
func NewBroker(logger *zap.Logger) *Broker {
	return &Broker{
		subs:   make(map[string]map[chan domain.ChangeEvent]struct{}),
		logger: logger,
	}
}

// PublishChange delivers ev to the user's subscribers without blocking.
func (b *Broker) PublishChange(_ context.Context, ev domain.ChangeEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subs[ev.UserID] {
		select {
		case ch <- ev:
		default:
			b.logger.Debug("subscriber busy, event coalesced",
				zap.String("user_id", ev.UserID),
				zap.String("collection", string(ev.Collection)),
			)
		}
	}
	return nil
}

// SubscribeChanges registers a subscriber until ctx is done.
func (b *Broker) SubscribeChanges(ctx context.Context, userID string) (<-chan domain.ChangeEvent, error) {
	ch := make(chan domain.ChangeEvent, subscriberBuffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, nil
	}
	if b.subs[userID] == nil {
		b.subs[userID] = make(map[chan domain.ChangeEvent]struct{})
	}
	b.subs[userID][ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.remove(userID, ch)
	}()
	return ch, nil
}

// Close ends every subscription.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for userID, set := range b.subs {
		for ch := range set {
			close(ch)
		}
		delete(b.subs, userID)
	}
	b.closed = true
	return nil
}

func (b *Broker) remove(userID string, ch chan domain.ChangeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	set, ok := b.subs[userID]
	if !ok {
		return
	}
	if _, ok := set[ch]; !ok {
		return
	}
	delete(set, ch)
	close(ch)
	if len(set) == 0 {
		delete(b.subs, userID)
	}
}
