package service_test

import (
	"context"
	"testing"

	"github.com/boddenberg/finance-tracker-go/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSalaryService_OverviewNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.salaries.Create(ctx, "u-1", dec("3000"))
	require.NoError(t, err)
	latest, err := f.salaries.Create(ctx, "u-1", dec("4000"))
	require.NoError(t, err)

	ov, err := f.salaries.Overview(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, ov.Salaries, 2)
	require.NotNil(t, ov.Current)
	assert.Equal(t, latest.ID, ov.Current.ID)
	assert.Equal(t, "7000", ov.Stats.Total.String())
	assert.Equal(t, "3500", ov.Stats.Average.String())

	cur, err := f.salaries.Current(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "4000", cur.MonthlyAmount.String())
}

func TestSalaryService_CurrentNone(t *testing.T) {
	f := newFixture(t)

	cur, err := f.salaries.Current(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Nil(t, cur)

	ov, err := f.salaries.Overview(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Nil(t, ov.Current)
	assert.Equal(t, 0, ov.Stats.Count)
}

func TestSalaryService_UpdateAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, err := f.salaries.Create(ctx, "u-1", dec("3000"))
	require.NoError(t, err)

	var v *domain.ErrValidation
	_, err = f.salaries.Update(ctx, "u-1", rec.ID, dec("-1"))
	require.ErrorAs(t, err, &v)

	var nf *domain.ErrNotFound
	_, err = f.salaries.Update(ctx, "u-2", rec.ID, dec("3100"))
	require.ErrorAs(t, err, &nf)

	updated, err := f.salaries.Update(ctx, "u-1", rec.ID, dec("3100"))
	require.NoError(t, err)
	assert.Equal(t, "3100", updated.MonthlyAmount.String())

	require.NoError(t, f.salaries.Delete(ctx, "u-1", rec.ID))
	cur, err := f.salaries.Current(ctx, "u-1")
	require.NoError(t, err)
	assert.Nil(t, cur)
}

func TestSalaryService_CreateRejectsNonPositive(t *testing.T) {
	f := newFixture(t)

	var v *domain.ErrValidation
	_, err := f.salaries.Create(context.Background(), "u-1", dec("0"))
	require.ErrorAs(t, err, &v)
	assert.Equal(t, "monthly_amount", v.Field)
}
