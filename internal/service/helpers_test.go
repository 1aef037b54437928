package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/finance-tracker-go/internal/domain"
	"github.com/boddenberg/finance-tracker-go/internal/infra/cache"
	"github.com/boddenberg/finance-tracker-go/internal/infra/events"
	"github.com/boddenberg/finance-tracker-go/internal/infra/memstore"
	"github.com/boddenberg/finance-tracker-go/internal/infra/observability"
	"github.com/boddenberg/finance-tracker-go/internal/infra/resilience"
	"github.com/boddenberg/finance-tracker-go/internal/port"
	"github.com/boddenberg/finance-tracker-go/internal/service"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// fixedNow is mid-March 2024; every test runs "today" at this instant.
var fixedNow = time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(m time.Month, d int) time.Time {
	return time.Date(2024, m, d, 0, 0, 0, 0, time.UTC)
}

type fixture struct {
	store    port.Store
	mem      *memstore.Store
	feed     *events.Broker
	metrics  *observability.Metrics
	clock    service.Clock
	expenses *service.ExpenseService
	salaries *service.SalaryService
	goals    *service.GoalService
	reports  *service.ReportService
	inputs   *service.DeltaInputs
}

type option func(*fixture)

// withStore wraps the memory store, e.g. to inject failures.
func withStore(wrap func(port.Store) port.Store) option {
	return func(f *fixture) { f.store = wrap(f.store) }
}

func newFixture(t *testing.T, opts ...option) *fixture {
	t.Helper()

	tick := fixedNow
	mem := memstore.New().WithClock(func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	})
	f := &fixture{
		store:   mem,
		mem:     mem,
		feed:    events.NewBroker(zap.NewNop()),
		metrics: observability.NewMetrics(),
		clock:   service.Clock{Now: func() time.Time { return fixedNow }, Location: time.UTC},
	}
	for _, o := range opts {
		o(f)
	}

	logger := zap.NewNop()
	f.expenses = service.NewExpenseService(f.store, f.store, f.feed, f.clock, f.metrics, logger)
	f.salaries = service.NewSalaryService(f.store, f.feed, f.metrics, logger)
	f.goals = service.NewGoalService(f.store, f.feed, f.metrics, logger)
	f.reports = service.NewReportService(f.store, resilience.NewBulkhead(4), f.clock, f.metrics, logger)

	pending := cache.New[string](time.Minute)
	t.Cleanup(pending.Close)
	f.inputs = service.NewDeltaInputs(pending, f.goals, f.metrics)

	t.Cleanup(func() { _ = f.feed.Close() })
	return f
}

func (f *fixture) addExpense(t *testing.T, userID, desc, amount string, on time.Time) *domain.MonetaryRecord {
	t.Helper()
	rec, err := f.expenses.Create(context.Background(), userID, service.NewExpense{
		Description: desc,
		Amount:      dec(amount),
		Date:        on,
	})
	if err != nil {
		t.Fatalf("create expense: %v", err)
	}
	return rec
}

var errDown = errors.New("connection reset by peer")

// failingStore fails every read of the configured collections.
type failingStore struct {
	port.Store
	fail map[domain.Collection]bool
}

func failing(cs ...domain.Collection) func(port.Store) port.Store {
	return func(s port.Store) port.Store {
		f := &failingStore{Store: s, fail: make(map[domain.Collection]bool)}
		for _, c := range cs {
			f.fail[c] = true
		}
		return f
	}
}

func (f *failingStore) err(c domain.Collection) error {
	return &domain.ErrPersistence{Collection: string(c), Op: "query", Err: errDown}
}

func (f *failingStore) QueryExpenses(ctx context.Context, q domain.Query) ([]domain.MonetaryRecord, error) {
	if f.fail[domain.CollectionExpenses] {
		return nil, f.err(domain.CollectionExpenses)
	}
	return f.Store.QueryExpenses(ctx, q)
}

func (f *failingStore) QueryGoals(ctx context.Context, q domain.Query) ([]domain.SavingsGoal, error) {
	if f.fail[domain.CollectionSavings] {
		return nil, f.err(domain.CollectionSavings)
	}
	return f.Store.QueryGoals(ctx, q)
}

func (f *failingStore) QuerySalaries(ctx context.Context, q domain.Query) ([]domain.SalaryRecord, error) {
	if f.fail[domain.CollectionSalaries] {
		return nil, f.err(domain.CollectionSalaries)
	}
	return f.Store.QuerySalaries(ctx, q)
}

// racingStore lets another writer deposit bump into the goal right before
// the first compare-and-set, forcing one conflict.
type racingStore struct {
	port.Store
	bump  decimal.Decimal
	raced bool
}

func racing(bump string) func(port.Store) port.Store {
	return func(s port.Store) port.Store {
		return &racingStore{Store: s, bump: dec(bump)}
	}
}

func (r *racingStore) CompareAndSetAmount(ctx context.Context, id string, expected, next decimal.Decimal) error {
	if !r.raced {
		r.raced = true
		if err := r.Store.CompareAndSetAmount(ctx, id, expected, expected.Add(r.bump)); err != nil {
			return err
		}
	}
	return r.Store.CompareAndSetAmount(ctx, id, expected, next)
}
