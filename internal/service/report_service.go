package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/boddenberg/finance-tracker-go/internal/domain"
	"github.com/boddenberg/finance-tracker-go/internal/infra/observability"
	"github.com/boddenberg/finance-tracker-go/internal/infra/resilience"
	"github.com/boddenberg/finance-tracker-go/internal/port"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Dashboard parts, reported in Dashboard.Degraded when their fetch fails.
const (
	PartSalary   = "salary"
	PartExpenses = "expenses"
	PartSavings  = "savings"
	PartSeries   = "series"
	PartRecent   = "recent"
)

// ReportService computes the aggregated views. Every call re-reads the
// store; nothing is cached here.
type ReportService struct {
	store    port.Store
	bulkhead *resilience.Bulkhead
	clock    Clock
	notifier
}

// NewReportService creates the report service. The bulkhead bounds how many
// store reads one dashboard issues at once.
func NewReportService(
	store port.Store,
	bulkhead *resilience.Bulkhead,
	clock Clock,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *ReportService {
	return &ReportService{
		store:    store,
		bulkhead: bulkhead,
		clock:    clock,
		notifier: notifier{metrics: metrics, logger: logger},
	}
}

// Dashboard fans out the salary, month totals, period series, recent
// expenses and goals reads, then reconciles them. A failed read leaves its
// part zero or empty and is listed in Degraded; the other parts still
// render. Only cancellation of ctx fails the call.
func (r *ReportService) Dashboard(ctx context.Context, userID string, period domain.Period) (*domain.Dashboard, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "ReportService.Dashboard")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.String("period", string(period)),
	)

	start := time.Now()
	defer func() {
		r.metrics.RecordRequestDuration("dashboard", time.Since(start))
	}()

	now := r.clock.now()
	month := domain.ResolveRange(domain.Monthly, now)
	rng := domain.ResolveRange(period, now)

	d := &domain.Dashboard{
		UserID:     userID,
		Period:     period,
		Month:      month,
		Range:      rng,
		Series:     []domain.PeriodBucket{},
		Recent:     []domain.MonetaryRecord{},
		Goals:      []domain.GoalProgress{},
		ComputedAt: now,
	}

	var (
		mu                                  sync.Mutex
		salary, totalExpenses, totalSavings = decimal.Zero, decimal.Zero, decimal.Zero
	)
	degrade := func(part string, c domain.Collection, err error) {
		r.failed(c, "query", userID, err)
		r.logger.Warn("dashboard part unavailable",
			zap.String("user_id", userID),
			zap.String("part", part),
			zap.Error(err),
		)
		mu.Lock()
		d.Degraded = append(d.Degraded, part)
		mu.Unlock()
	}

	g, gCtx := errgroup.WithContext(ctx)
	run := func(part string, c domain.Collection, fn func(context.Context) error) {
		g.Go(func() error {
			if err := r.bulkhead.Acquire(gCtx); err != nil {
				degrade(part, c, err)
				return nil
			}
			defer r.bulkhead.Release()
			if err := fn(gCtx); err != nil {
				degrade(part, c, err)
			}
			return nil
		})
	}

	run(PartSalary, domain.CollectionSalaries, func(ctx context.Context) error {
		recs, err := r.store.QuerySalaries(ctx, domain.Query{UserID: userID, Limit: 1})
		if err != nil {
			return err
		}
		amount, ok := domain.CurrentSalary(recs)
		mu.Lock()
		salary, d.HasSalary = amount, ok
		mu.Unlock()
		return nil
	})

	run(PartExpenses, domain.CollectionExpenses, func(ctx context.Context) error {
		recs, err := r.store.QueryExpenses(ctx, domain.Query{UserID: userID, From: &month.Start, To: &month.End})
		if err != nil {
			return err
		}
		total := domain.SumInRange(recs, month)
		mu.Lock()
		totalExpenses = total
		mu.Unlock()
		return nil
	})

	run(PartSavings, domain.CollectionSavings, func(ctx context.Context) error {
		goals, err := r.store.QueryGoals(ctx, domain.Query{UserID: userID, OrderBy: domain.OrderByCreatedAt})
		if err != nil {
			return err
		}
		total := domain.SumInRange(domain.Contributions(goals), month)
		progress := progressList(goals, r.logger)
		mu.Lock()
		totalSavings, d.Goals = total, progress
		mu.Unlock()
		return nil
	})

	run(PartSeries, domain.CollectionExpenses, func(ctx context.Context) error {
		recs, err := r.store.QueryExpenses(ctx, domain.Query{
			UserID: userID, From: &rng.Start, To: &rng.End,
			OrderBy: domain.OrderByDate, Ascending: true,
		})
		if err != nil {
			return err
		}
		series := domain.BucketSeries(recs, period)
		mu.Lock()
		d.Series = series
		mu.Unlock()
		return nil
	})

	run(PartRecent, domain.CollectionExpenses, func(ctx context.Context) error {
		recs, err := r.store.QueryExpenses(ctx, domain.Query{UserID: userID, OrderBy: domain.OrderByCreatedAt, Limit: recentLimit})
		if err != nil {
			return err
		}
		mu.Lock()
		d.Recent = recs
		mu.Unlock()
		return nil
	})

	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Strings(d.Degraded)
	d.Snapshot = domain.Reconcile(salary, totalExpenses, totalSavings)
	d.Formatted = domain.FormatSnapshot(d.Snapshot)
	d.Allocation = d.Snapshot.Allocation()
	span.SetAttributes(attribute.Int("degraded.parts", len(d.Degraded)))
	return d, nil
}

// Range totals the caller's expenses over the period containing at.
func (r *ReportService) Range(ctx context.Context, userID string, period domain.Period, at time.Time) (*domain.RangeSummary, error) {
	ctx, span := tracer.Start(ctx, "ReportService.Range")
	defer span.End()

	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if at.IsZero() {
		at = r.clock.now()
	} else if r.clock.Location != nil {
		at = at.In(r.clock.Location)
	}
	rng := domain.ResolveRange(period, at)

	recs, err := r.store.QueryExpenses(ctx, domain.Query{UserID: userID, From: &rng.Start, To: &rng.End})
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", r.failed(domain.CollectionExpenses, "query", userID, err))
	}

	total := domain.SumInRange(recs, rng)
	return &domain.RangeSummary{
		Period:    period,
		Range:     rng,
		Count:     len(recs),
		Total:     total,
		Formatted: domain.FormatUSD(total),
	}, nil
}

// Series buckets the caller's expenses in the current period for charting.
func (r *ReportService) Series(ctx context.Context, userID string, period domain.Period) (*domain.SeriesReport, error) {
	ctx, span := tracer.Start(ctx, "ReportService.Series")
	defer span.End()

	if err := requireUser(userID); err != nil {
		return nil, err
	}
	rng := domain.ResolveRange(period, r.clock.now())

	recs, err := r.store.QueryExpenses(ctx, domain.Query{
		UserID: userID, From: &rng.Start, To: &rng.End,
		OrderBy: domain.OrderByDate, Ascending: true,
	})
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", r.failed(domain.CollectionExpenses, "query", userID, err))
	}

	buckets := domain.BucketSeries(recs, period)
	return &domain.SeriesReport{
		Period:  period,
		Range:   rng,
		Buckets: buckets,
		Total:   domain.SeriesTotal(buckets),
	}, nil
}
