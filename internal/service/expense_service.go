package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/boddenberg/finance-tracker-go/internal/domain"
	"github.com/boddenberg/finance-tracker-go/internal/infra/observability"
	"github.com/boddenberg/finance-tracker-go/internal/port"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// NewExpense is the input for ExpenseService.Create. A zero Date means today.
type NewExpense struct {
	Description string
	Amount      decimal.Decimal
	Category    domain.Category
	Date        time.Time
}

// ExpenseService manages the expenses collection.
type ExpenseService struct {
	expenses port.ExpenseStore
	salaries port.SalaryStore
	clock    Clock
	notifier
}

// NewExpenseService creates the expense service with all dependencies injected.
func NewExpenseService(
	expenses port.ExpenseStore,
	salaries port.SalaryStore,
	feed port.ChangePublisher,
	clock Clock,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *ExpenseService {
	return &ExpenseService{
		expenses: expenses,
		salaries: salaries,
		clock:    clock,
		notifier: notifier{feed: feed, metrics: metrics, logger: logger},
	}
}

// Create validates and stores an expense, then announces the insert.
func (s *ExpenseService) Create(ctx context.Context, userID string, in NewExpense) (*domain.MonetaryRecord, error) {
	ctx, span := tracer.Start(ctx, "ExpenseService.Create")
	defer span.End()

	if err := requireUser(userID); err != nil {
		return nil, err
	}

	rec := domain.MonetaryRecord{
		UserID:      userID,
		Description: strings.TrimSpace(in.Description),
		Amount:      in.Amount,
		Category:    in.Category,
		OccurredAt:  in.Date,
	}
	if rec.OccurredAt.IsZero() {
		rec.OccurredAt = s.clock.today()
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	id, err := s.expenses.InsertExpense(ctx, &rec)
	if err != nil {
		return nil, fmt.Errorf("insert expense: %w", s.failed(domain.CollectionExpenses, "insert", userID, err))
	}
	rec.ID = id
	span.SetAttributes(attribute.String("expense.id", id))

	s.changed(ctx, domain.CollectionExpenses, domain.ChangeInsert, userID, id)
	return &rec, nil
}

// Delete removes one of the caller's expenses.
func (s *ExpenseService) Delete(ctx context.Context, userID, id string) error {
	ctx, span := tracer.Start(ctx, "ExpenseService.Delete")
	defer span.End()

	if err := requireUser(userID); err != nil {
		return err
	}

	rec, err := s.expenses.GetExpense(ctx, id)
	if err != nil {
		return fmt.Errorf("get expense: %w", s.failed(domain.CollectionExpenses, "get", userID, err))
	}
	if rec.UserID != userID {
		return &domain.ErrNotFound{Resource: "expense", ID: id}
	}

	if err := s.expenses.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", s.failed(domain.CollectionExpenses, "delete", userID, err))
	}

	s.changed(ctx, domain.CollectionExpenses, domain.ChangeDelete, userID, id)
	return nil
}

// Ledger lists every expense by date, newest first, with the all-time total
// and what is left of the current salary.
func (s *ExpenseService) Ledger(ctx context.Context, userID string) (*domain.ExpenseLedger, error) {
	ctx, span := tracer.Start(ctx, "ExpenseService.Ledger")
	defer span.End()

	if err := requireUser(userID); err != nil {
		return nil, err
	}

	recs, err := s.expenses.QueryExpenses(ctx, domain.Query{UserID: userID, OrderBy: domain.OrderByDate})
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", s.failed(domain.CollectionExpenses, "query", userID, err))
	}

	ledger := &domain.ExpenseLedger{Expenses: recs, Total: domain.Total(recs)}

	salaries, err := s.salaries.QuerySalaries(ctx, domain.Query{UserID: userID, Limit: 1})
	if err != nil {
		// the list is still useful without the remaining figure
		s.logger.Warn("ledger without salary",
			zap.String("user_id", userID),
			zap.Error(s.failed(domain.CollectionSalaries, "query", userID, err)),
		)
		return ledger, nil
	}
	if salary, ok := domain.CurrentSalary(salaries); ok {
		remaining := salary.Sub(ledger.Total)
		ledger.Remaining = &remaining
	}
	return ledger, nil
}

// Recent returns the latest expenses by creation time.
func (s *ExpenseService) Recent(ctx context.Context, userID string) ([]domain.MonetaryRecord, error) {
	ctx, span := tracer.Start(ctx, "ExpenseService.Recent")
	defer span.End()

	if err := requireUser(userID); err != nil {
		return nil, err
	}

	recs, err := s.expenses.QueryExpenses(ctx, domain.Query{UserID: userID, OrderBy: domain.OrderByCreatedAt, Limit: recentLimit})
	if err != nil {
		return nil, fmt.Errorf("query recent expenses: %w", s.failed(domain.CollectionExpenses, "query", userID, err))
	}
	return recs, nil
}
