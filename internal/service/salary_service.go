package service

import (
	"context"
	"fmt"

	"github.com/boddenberg/finance-tracker-go/internal/domain"
	"github.com/boddenberg/finance-tracker-go/internal/infra/observability"
	"github.com/boddenberg/finance-tracker-go/internal/port"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SalaryService manages the salaries collection. The newest record is the
// current salary; older ones are history.
type SalaryService struct {
	salaries port.SalaryStore
	notifier
}

// NewSalaryService creates the salary service.
func NewSalaryService(salaries port.SalaryStore, feed port.ChangePublisher, metrics *observability.Metrics, logger *zap.Logger) *SalaryService {
	return &SalaryService{
		salaries: salaries,
		notifier: notifier{feed: feed, metrics: metrics, logger: logger},
	}
}

// Create records a new monthly salary, which becomes the current one.
func (s *SalaryService) Create(ctx context.Context, userID string, amount decimal.Decimal) (*domain.SalaryRecord, error) {
	ctx, span := tracer.Start(ctx, "SalaryService.Create")
	defer span.End()

	if err := requireUser(userID); err != nil {
		return nil, err
	}

	rec := domain.SalaryRecord{UserID: userID, MonthlyAmount: amount}
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	id, err := s.salaries.InsertSalary(ctx, &rec)
	if err != nil {
		return nil, fmt.Errorf("insert salary: %w", s.failed(domain.CollectionSalaries, "insert", userID, err))
	}
	rec.ID = id

	s.changed(ctx, domain.CollectionSalaries, domain.ChangeInsert, userID, id)
	return &rec, nil
}

// Update changes the amount of one of the caller's salary records.
func (s *SalaryService) Update(ctx context.Context, userID, id string, amount decimal.Decimal) (*domain.SalaryRecord, error) {
	ctx, span := tracer.Start(ctx, "SalaryService.Update")
	defer span.End()

	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, &domain.ErrValidation{Field: "monthly_amount", Message: "must be greater than 0"}
	}

	rec, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if err := s.salaries.UpdateSalary(ctx, id, domain.Fields{domain.FieldMonthlySalary: amount}); err != nil {
		return nil, fmt.Errorf("update salary: %w", s.failed(domain.CollectionSalaries, "update", userID, err))
	}
	rec.MonthlyAmount = amount

	s.changed(ctx, domain.CollectionSalaries, domain.ChangeUpdate, userID, id)
	return rec, nil
}

// Delete removes one of the caller's salary records.
func (s *SalaryService) Delete(ctx context.Context, userID, id string) error {
	ctx, span := tracer.Start(ctx, "SalaryService.Delete")
	defer span.End()

	if err := requireUser(userID); err != nil {
		return err
	}
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}

	if err := s.salaries.DeleteSalary(ctx, id); err != nil {
		return fmt.Errorf("delete salary: %w", s.failed(domain.CollectionSalaries, "delete", userID, err))
	}

	s.changed(ctx, domain.CollectionSalaries, domain.ChangeDelete, userID, id)
	return nil
}

// Overview lists salary records newest first with total and average.
func (s *SalaryService) Overview(ctx context.Context, userID string) (*domain.SalaryOverview, error) {
	ctx, span := tracer.Start(ctx, "SalaryService.Overview")
	defer span.End()

	if err := requireUser(userID); err != nil {
		return nil, err
	}

	recs, err := s.salaries.QuerySalaries(ctx, domain.Query{UserID: userID, OrderBy: domain.OrderByCreatedAt})
	if err != nil {
		return nil, fmt.Errorf("query salaries: %w", s.failed(domain.CollectionSalaries, "query", userID, err))
	}

	out := &domain.SalaryOverview{Salaries: recs, Stats: domain.ComputeSalaryStats(recs)}
	if len(recs) > 0 {
		current := recs[0]
		out.Current = &current
	}
	return out, nil
}

// Current returns the newest salary record, or nil when there is none.
func (s *SalaryService) Current(ctx context.Context, userID string) (*domain.SalaryRecord, error) {
	ctx, span := tracer.Start(ctx, "SalaryService.Current")
	defer span.End()

	if err := requireUser(userID); err != nil {
		return nil, err
	}

	recs, err := s.salaries.QuerySalaries(ctx, domain.Query{UserID: userID, OrderBy: domain.OrderByCreatedAt, Limit: 1})
	if err != nil {
		return nil, fmt.Errorf("query salaries: %w", s.failed(domain.CollectionSalaries, "query", userID, err))
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return &recs[0], nil
}

func (s *SalaryService) owned(ctx context.Context, userID, id string) (*domain.SalaryRecord, error) {
	rec, err := s.salaries.GetSalary(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get salary: %w", s.failed(domain.CollectionSalaries, "get", userID, err))
	}
	if rec.UserID != userID {
		return nil, &domain.ErrNotFound{Resource: "salary", ID: id}
	}
	return rec, nil
}
