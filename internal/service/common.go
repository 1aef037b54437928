package service

import (
	"context"
	"errors"
	"time"

	"github.com/boddenberg/finance-tracker-go/internal/domain"
	"github.com/boddenberg/finance-tracker-go/internal/infra/observability"
	"github.com/boddenberg/finance-tracker-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("service/tracker")

// recentLimit is how many expenses the recent-transactions list shows.
const recentLimit = 5

// Clock supplies "now" in the user's time zone. Ranges and default dates
// are resolved in Location.
type Clock struct {
	Now      func() time.Time
	Location *time.Location
}

// SystemClock uses the wall clock in loc (UTC when nil).
func SystemClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return Clock{Now: time.Now, Location: loc}
}

func (c Clock) now() time.Time {
	n := time.Now
	if c.Now != nil {
		n = c.Now
	}
	if c.Location != nil {
		return n().In(c.Location)
	}
	return n()
}

func (c Clock) today() time.Time {
	n := c.now()
	y, m, d := n.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, n.Location())
}

// notifier publishes change events after successful writes and accounts
// for persistence failures.
type notifier struct {
	feed    port.ChangePublisher
	metrics *observability.Metrics
	logger  *zap.Logger
}

// changed announces a write. Publish failures are logged only; the write
// already succeeded and readers can still refresh manually.
func (n notifier) changed(ctx context.Context, c domain.Collection, t domain.ChangeType, userID, id string) {
	if n.feed == nil {
		return
	}
	ev := domain.NewChangeEvent(c, t, userID, id)
	if err := n.feed.PublishChange(ctx, ev); err != nil {
		n.logger.Warn("failed to publish change",
			zap.String("user_id", userID),
			zap.String("collection", string(c)),
			zap.String("type", string(t)),
			zap.Error(err),
		)
	}
}

// failed counts and logs persistence errors, then returns err unchanged.
func (n notifier) failed(c domain.Collection, op, userID string, err error) error {
	var pe *domain.ErrPersistence
	var co *domain.ErrCircuitOpen
	if errors.As(err, &pe) || errors.As(err, &co) {
		n.metrics.IncrPersistenceError(string(c))
		n.logger.Error("store call failed",
			zap.String("collection", string(c)),
			zap.String("op", op),
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
	return err
}

func requireUser(userID string) error {
	if userID == "" {
		return &domain.ErrUnauthorized{Message: "missing user id"}
	}
	return nil
}
