package memstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/boddenberg/finance-tracker-go/internal/domain"
	"github.com/boddenberg/finance-tracker-go/internal/infra/memstore"
	"github.com/boddenberg/finance-tracker-go/internal/port"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ port.Store = (*memstore.Store)(nil)

func steppingClock(start time.Time) func() time.Time {
	t := start
	return func() time.Time {
		t = t.Add(time.Minute)
		return t
	}
}

func TestExpenses_QueryFiltersOrdersAndLimits(t *testing.T) {
	ctx := context.Background()
	s := memstore.New().WithClock(steppingClock(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))

	for i, day := range []int{10, 2, 25} {
		_, err := s.InsertExpense(ctx, &domain.MonetaryRecord{
			UserID:      "u-1",
			Description: []string{"a", "b", "c"}[i],
			Amount:      decimal.NewFromInt(int64(i + 1)),
			OccurredAt:  time.Date(2024, 3, day, 12, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
	}
	_, err := s.InsertExpense(ctx, &domain.MonetaryRecord{UserID: "u-2", Description: "other", Amount: decimal.NewFromInt(9)})
	require.NoError(t, err)

	from := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	got, err := s.QueryExpenses(ctx, domain.Query{UserID: "u-1", From: &from, OrderBy: domain.OrderByDate, Ascending: true})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Description)
	assert.Equal(t, "c", got[1].Description)

	recent, err := s.QueryExpenses(ctx, domain.Query{UserID: "u-1", Limit: 2})
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "c", recent[0].Description)
	assert.Equal(t, "b", recent[1].Description)
}

func TestExpenses_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	id, err := s.InsertExpense(ctx, &domain.MonetaryRecord{UserID: "u-1", Description: "Bus", Amount: decimal.NewFromInt(3)})
	require.NoError(t, err)

	require.NoError(t, s.UpdateExpense(ctx, id, domain.Fields{domain.FieldAmount: decimal.NewFromInt(4)}))
	got, err := s.GetExpense(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "4", got.Amount.String())
	assert.False(t, got.OccurredAt.IsZero())

	var v *domain.ErrValidation
	require.ErrorAs(t, s.UpdateExpense(ctx, id, domain.Fields{"nope": 1}), &v)

	require.NoError(t, s.DeleteExpense(ctx, id))
	var nf *domain.ErrNotFound
	require.ErrorAs(t, s.DeleteExpense(ctx, id), &nf)
}

func TestGoals_CompareAndSetAmount(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	id, err := s.InsertGoal(ctx, &domain.SavingsGoal{UserID: "u-1", Name: "Car", TargetAmount: decimal.NewFromInt(1000)})
	require.NoError(t, err)

	require.NoError(t, s.CompareAndSetAmount(ctx, id, decimal.Zero, decimal.NewFromInt(100)))

	var conflict *domain.ErrConflict
	require.ErrorAs(t, s.CompareAndSetAmount(ctx, id, decimal.Zero, decimal.NewFromInt(200)), &conflict)

	g, err := s.GetGoal(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "100", g.CurrentAmount.String())
}

func TestSalaries_NewestFirst(t *testing.T) {
	ctx := context.Background()
	s := memstore.New().WithClock(steppingClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))

	_, err := s.InsertSalary(ctx, &domain.SalaryRecord{UserID: "u-1", MonthlyAmount: decimal.NewFromInt(3000)})
	require.NoError(t, err)
	second, err := s.InsertSalary(ctx, &domain.SalaryRecord{UserID: "u-1", MonthlyAmount: decimal.NewFromInt(3500)})
	require.NoError(t, err)

	got, err := s.QuerySalaries(ctx, domain.Query{UserID: "u-1"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, second, got[0].ID)

	require.NoError(t, s.UpdateSalary(ctx, second, domain.Fields{domain.FieldMonthlySalary: "4000"}))
	r, err := s.GetSalary(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, "4000", r.MonthlyAmount.String())
}
