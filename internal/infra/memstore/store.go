// Package memstore is an in-process implementation of port.Store used for
// local runs and tests. Data is lost on restart.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/boddenberg/finance-tracker-go/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store keeps every collection in maps guarded by one mutex.
type Store struct {
	mu       sync.RWMutex
	expenses map[string]domain.MonetaryRecord
	goals    map[string]domain.SavingsGoal
	salaries map[string]domain.SalaryRecord
	now      func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		expenses: make(map[string]domain.MonetaryRecord),
		goals:    make(map[string]domain.SavingsGoal),
		salaries: make(map[string]domain.SalaryRecord),
		now:      time.Now,
	}
}

// WithClock overrides the creation timestamp source.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// ============================================================
// Expenses
// ============================================================

func (s *Store) QueryExpenses(_ context.Context, q domain.Query) ([]domain.MonetaryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.MonetaryRecord, 0)
	for _, e := range s.expenses {
		if e.UserID == q.UserID && inRange(e.OccurredAt, q) {
			out = append(out, e)
		}
	}
	sortRecords(out, q, func(e domain.MonetaryRecord) (time.Time, time.Time) { return e.OccurredAt, e.CreatedAt })
	return limit(out, q.Limit), nil
}

func (s *Store) GetExpense(_ context.Context, id string) (*domain.MonetaryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.expenses[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "expense", ID: id}
	}
	return &e, nil
}

func (s *Store) InsertExpense(_ context.Context, e *domain.MonetaryRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := *e
	rec.ID = uuid.NewString()
	rec.CreatedAt = s.now()
	if rec.OccurredAt.IsZero() {
		rec.OccurredAt = rec.CreatedAt
	}
	s.expenses[rec.ID] = rec
	return rec.ID, nil
}

func (s *Store) UpdateExpense(_ context.Context, id string, fields domain.Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.expenses[id]
	if !ok {
		return &domain.ErrNotFound{Resource: "expense", ID: id}
	}
	for k, v := range fields {
		var err error
		switch k {
		case domain.FieldDescription:
			e.Description, err = asString(k, v)
		case domain.FieldAmount:
			e.Amount, err = asDecimal(k, v)
		case domain.FieldCategory:
			var c string
			c, err = asString(k, v)
			e.Category = domain.Category(c)
		case domain.FieldDate:
			e.OccurredAt, err = asTime(k, v)
		default:
			err = unknownField(k)
		}
		if err != nil {
			return err
		}
	}
	s.expenses[id] = e
	return nil
}

func (s *Store) DeleteExpense(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.expenses[id]; !ok {
		return &domain.ErrNotFound{Resource: "expense", ID: id}
	}
	delete(s.expenses, id)
	return nil
}

// ============================================================
// Savings goals
// ============================================================

func (s *Store) QueryGoals(_ context.Context, q domain.Query) ([]domain.SavingsGoal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.SavingsGoal, 0)
	for _, g := range s.goals {
		if g.UserID == q.UserID && inRange(g.CreatedAt, q) {
			out = append(out, g)
		}
	}
	sortRecords(out, q, func(g domain.SavingsGoal) (time.Time, time.Time) { return g.CreatedAt, g.CreatedAt })
	return limit(out, q.Limit), nil
}

func (s *Store) GetGoal(_ context.Context, id string) (*domain.SavingsGoal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.goals[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "goal", ID: id}
	}
	return &g, nil
}

func (s *Store) InsertGoal(_ context.Context, g *domain.SavingsGoal) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := *g
	rec.ID = uuid.NewString()
	rec.CreatedAt = s.now()
	s.goals[rec.ID] = rec
	return rec.ID, nil
}

func (s *Store) UpdateGoal(_ context.Context, id string, fields domain.Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.goals[id]
	if !ok {
		return &domain.ErrNotFound{Resource: "goal", ID: id}
	}
	for k, v := range fields {
		var err error
		switch k {
		case domain.FieldGoalName:
			g.Name, err = asString(k, v)
		case domain.FieldGoalAmount:
			g.TargetAmount, err = asDecimal(k, v)
		case domain.FieldCurrentAmount:
			g.CurrentAmount, err = asDecimal(k, v)
		default:
			err = unknownField(k)
		}
		if err != nil {
			return err
		}
	}
	s.goals[id] = g
	return nil
}

func (s *Store) DeleteGoal(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.goals[id]; !ok {
		return &domain.ErrNotFound{Resource: "goal", ID: id}
	}
	delete(s.goals, id)
	return nil
}

func (s *Store) CompareAndSetAmount(_ context.Context, id string, expected, next decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.goals[id]
	if !ok {
		return &domain.ErrNotFound{Resource: "goal", ID: id}
	}
	if !g.CurrentAmount.Equal(expected) {
		return &domain.ErrConflict{Message: fmt.Sprintf("goal %s changed concurrently", id)}
	}
	g.CurrentAmount = next
	s.goals[id] = g
	return nil
}

// ============================================================
// Salaries
// ============================================================

func (s *Store) QuerySalaries(_ context.Context, q domain.Query) ([]domain.SalaryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.SalaryRecord, 0)
	for _, r := range s.salaries {
		if r.UserID == q.UserID && inRange(r.CreatedAt, q) {
			out = append(out, r)
		}
	}
	sortRecords(out, q, func(r domain.SalaryRecord) (time.Time, time.Time) { return r.CreatedAt, r.CreatedAt })
	return limit(out, q.Limit), nil
}

func (s *Store) GetSalary(_ context.Context, id string) (*domain.SalaryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.salaries[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "salary", ID: id}
	}
	return &r, nil
}

func (s *Store) InsertSalary(_ context.Context, r *domain.SalaryRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := *r
	rec.ID = uuid.NewString()
	rec.CreatedAt = s.now()
	s.salaries[rec.ID] = rec
	return rec.ID, nil
}

func (s *Store) UpdateSalary(_ context.Context, id string, fields domain.Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.salaries[id]
	if !ok {
		return &domain.ErrNotFound{Resource: "salary", ID: id}
	}
	for k, v := range fields {
		var err error
		switch k {
		case domain.FieldMonthlySalary:
			r.MonthlyAmount, err = asDecimal(k, v)
		default:
			err = unknownField(k)
		}
		if err != nil {
			return err
		}
	}
	s.salaries[id] = r
	return nil
}

func (s *Store) DeleteSalary(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.salaries[id]; !ok {
		return &domain.ErrNotFound{Resource: "salary", ID: id}
	}
	delete(s.salaries, id)
	return nil
}

// ============================================================
// Helpers
// ============================================================

func inRange(t time.Time, q domain.Query) bool {
	if q.From != nil && t.Before(*q.From) {
		return false
	}
	if q.To != nil && t.After(*q.To) {
		return false
	}
	return true
}

// sortRecords orders by the date or created_at key, then by created_at and
// id so results are stable across map iteration.
func sortRecords[T any](items []T, q domain.Query, keys func(T) (date, created time.Time)) {
	less := func(a, b time.Time) bool {
		if q.Ascending {
			return a.Before(b)
		}
		return a.After(b)
	}
	sort.SliceStable(items, func(i, j int) bool {
		di, ci := keys(items[i])
		dj, cj := keys(items[j])
		if q.OrderBy == domain.OrderByDate && !di.Equal(dj) {
			return less(di, dj)
		}
		if !ci.Equal(cj) {
			return less(ci, cj)
		}
		return idOf(items[i]) < idOf(items[j])
	})
}

func idOf(v any) string {
	switch r := v.(type) {
	case domain.MonetaryRecord:
		return r.ID
	case domain.SavingsGoal:
		return r.ID
	case domain.SalaryRecord:
		return r.ID
	}
	return ""
}

func limit[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}

func asString(field string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", &domain.ErrValidation{Field: field, Message: "must be a string"}
	}
	return s, nil
}

func asDecimal(field string, v any) (decimal.Decimal, error) {
	switch d := v.(type) {
	case decimal.Decimal:
		return d, nil
	case string:
		return domain.ParseAmount(field, d)
	}
	return decimal.Zero, &domain.ErrValidation{Field: field, Message: "must be a decimal"}
}

func asTime(field string, v any) (time.Time, error) {
	t, ok := v.(time.Time)
	if !ok {
		return time.Time{}, &domain.ErrValidation{Field: field, Message: "must be a timestamp"}
	}
	return t, nil
}

func unknownField(field string) error {
	return &domain.ErrValidation{Field: field, Message: "unknown field"}
}
