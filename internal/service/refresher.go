package service

import (
	"context"
	"sync"

	"github.com/boddenberg/finance-tracker-go/internal/domain"
	"github.com/boddenberg/finance-tracker-go/internal/infra/observability"
	"github.com/boddenberg/finance-tracker-go/internal/port"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Refresher is the explicit recompute entry point. It recomputes a user's
// dashboard on request or whenever the change feed reports a write, keeps
// the latest result and pushes it to watchers. Every recompute is a full
// re-fetch.
type Refresher struct {
	reports *ReportService
	feed    port.ChangeSubscriber
	views   port.Cache[*domain.Dashboard]
	metrics *observability.Metrics
	logger  *zap.Logger

	mu       sync.Mutex
	watchers map[string]map[*watcher]struct{}
}

// watcher holds at most one undelivered dashboard; a newer one replaces it.
type watcher struct {
	period domain.Period
	mu     sync.Mutex
	ch     chan *domain.Dashboard
	closed bool
}

func (w *watcher) offer(d *domain.Dashboard) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	select {
	case <-w.ch:
	default:
	}
	w.ch <- d
}

func (w *watcher) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.closed {
		w.closed = true
		close(w.ch)
	}
}

// NewRefresher creates a refresher. feed may be nil, in which case only
// manual refreshes reach watchers.
func NewRefresher(
	reports *ReportService,
	feed port.ChangeSubscriber,
	views port.Cache[*domain.Dashboard],
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Refresher {
	return &Refresher{
		reports:  reports,
		feed:     feed,
		views:    views,
		metrics:  metrics,
		logger:   logger,
		watchers: make(map[string]map[*watcher]struct{}),
	}
}

func viewKey(userID string, period domain.Period) string {
	return userID + ":" + string(period)
}

// Refresh recomputes the dashboard, stores it as the latest view and pushes
// it to the user's watchers of the same period.
func (r *Refresher) Refresh(ctx context.Context, userID string, period domain.Period) (*domain.Dashboard, error) {
	d, err := r.recompute(ctx, userID, period, observability.TriggerManual)
	if err != nil {
		return nil, err
	}
	r.broadcast(userID, d)
	return d, nil
}

// Latest returns the last computed dashboard if it has not expired.
func (r *Refresher) Latest(userID string, period domain.Period) (*domain.Dashboard, bool) {
	return r.views.Get(viewKey(userID, period))
}

// Watch streams dashboards for a user until ctx is done. The first value is
// computed immediately; later ones follow manual refreshes and, when a feed
// is configured, every change event for the user.
func (r *Refresher) Watch(ctx context.Context, userID string, period domain.Period) (<-chan *domain.Dashboard, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	var events <-chan domain.ChangeEvent
	if r.feed != nil {
		ch, err := r.feed.SubscribeChanges(ctx, userID)
		if err != nil {
			// manual refresh still works
			r.logger.Warn("change feed unavailable",
				zap.String("user_id", userID),
				zap.Error(err),
			)
		} else {
			events = ch
		}
	}

	first, err := r.recompute(ctx, userID, period, observability.TriggerManual)
	if err != nil {
		return nil, err
	}

	w := &watcher{period: period, ch: make(chan *domain.Dashboard, 1)}
	w.offer(first)
	r.add(userID, w)

	go func() {
		defer func() {
			r.remove(userID, w)
			w.close()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					// feed ended; keep serving manual refreshes
					events = nil
					continue
				}
				r.logger.Debug("change received",
					zap.String("user_id", userID),
					zap.String("collection", string(ev.Collection)),
					zap.String("type", string(ev.Type)),
				)
				d, err := r.recompute(ctx, userID, period, observability.TriggerEvent)
				if err != nil {
					continue
				}
				w.offer(d)
			}
		}
	}()
	return w.ch, nil
}

func (r *Refresher) recompute(ctx context.Context, userID string, period domain.Period, trigger string) (*domain.Dashboard, error) {
	ctx, span := tracer.Start(ctx, "Refresher.Recompute")
	defer span.End()
	span.SetAttributes(attribute.String("trigger", trigger))

	d, err := r.reports.Dashboard(ctx, userID, period)
	if err != nil {
		r.logger.Warn("recompute failed",
			zap.String("user_id", userID),
			zap.String("trigger", trigger),
			zap.Error(err),
		)
		return nil, err
	}
	r.metrics.IncrRecompute(trigger)
	r.views.Set(viewKey(userID, period), d)
	return d, nil
}

func (r *Refresher) broadcast(userID string, d *domain.Dashboard) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for w := range r.watchers[userID] {
		if w.period == d.Period {
			w.offer(d)
		}
	}
}

func (r *Refresher) add(userID string, w *watcher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.watchers[userID] == nil {
		r.watchers[userID] = make(map[*watcher]struct{})
	}
	r.watchers[userID][w] = struct{}{}
}

func (r *Refresher) remove(userID string, w *watcher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.watchers[userID], w)
	if len(r.watchers[userID]) == 0 {
		delete(r.watchers, userID)
	}
}
