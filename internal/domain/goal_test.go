package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/finance-tracker-go/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func goal(target, current string) domain.SavingsGoal {
	return domain.SavingsGoal{ID: "g-1", UserID: "u-1", Name: "Car", TargetAmount: dec(target), CurrentAmount: dec(current)}
}

func TestNewSavingsGoal(t *testing.T) {
	g, err := domain.NewSavingsGoal("u-1", "New Car Fund", dec("1000"))
	require.NoError(t, err)
	assert.True(t, g.CurrentAmount.IsZero())

	_, err = domain.NewSavingsGoal("u-1", "", dec("1000"))
	var v *domain.ErrValidation
	require.ErrorAs(t, err, &v)
	assert.Equal(t, "name", v.Field)

	for _, target := range []string{"0", "-5"} {
		_, err = domain.NewSavingsGoal("u-1", "x", dec(target))
		require.ErrorAs(t, err, &v)
		assert.Equal(t, "target_amount", v.Field)
	}
}

func TestApplyDelta_DepositAndWithdraw(t *testing.T) {
	g, err := domain.ApplyDelta(goal("1000", "250"), dec("100"))
	require.NoError(t, err)
	assert.Equal(t, "350", g.CurrentAmount.String())

	g, err = domain.ApplyDelta(g, dec("-350"))
	require.NoError(t, err)
	assert.True(t, g.CurrentAmount.IsZero())
}

func TestApplyDelta_RejectsNegativeBalance(t *testing.T) {
	orig := goal("1000", "250")

	got, err := domain.ApplyDelta(orig, dec("-300"))

	var v *domain.ErrValidation
	require.True(t, errors.As(err, &v))
	assert.Equal(t, "250", got.CurrentAmount.String())
	assert.Equal(t, "250", orig.CurrentAmount.String())

	pct, err := domain.ProgressPercent(got)
	require.NoError(t, err)
	assert.Equal(t, int64(25), pct)
}

func TestApplyDelta_RejectsBalanceBeyondStorageLimit(t *testing.T) {
	orig := goal("1000", "999999999999")

	got, err := domain.ApplyDelta(orig, dec("1"))

	var v *domain.ErrValidation
	require.True(t, errors.As(err, &v))
	assert.Equal(t, "999999999999", got.CurrentAmount.String())
}

func TestApplyDelta_AllowsOverFunding(t *testing.T) {
	g, err := domain.ApplyDelta(goal("100", "90"), dec("50"))
	require.NoError(t, err)
	assert.Equal(t, "140", g.CurrentAmount.String())

	pct, err := domain.ProgressPercent(g)
	require.NoError(t, err)
	assert.Equal(t, int64(100), pct)
}

func TestProgressPercent_MonotonicAndClamped(t *testing.T) {
	target := dec("300")
	prev := int64(-1)
	for cur := int64(0); cur <= 600; cur += 7 {
		pct, err := domain.ProgressPercent(domain.SavingsGoal{TargetAmount: target, CurrentAmount: decimal.NewFromInt(cur)})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, pct, prev)
		assert.LessOrEqual(t, pct, int64(100))
		assert.GreaterOrEqual(t, pct, int64(0))
		prev = pct
	}
	assert.Equal(t, int64(100), prev)
}

func TestProgressPercent_InvalidTarget(t *testing.T) {
	_, err := domain.ProgressPercent(goal("0", "10"))

	var ig *domain.ErrInvalidGoal
	require.ErrorAs(t, err, &ig)
	assert.Equal(t, "g-1", ig.GoalID)
}

func TestGoalProgress(t *testing.T) {
	gp, err := domain.NewGoalProgress(goal("1000", "333.33"))
	require.NoError(t, err)
	assert.Equal(t, int64(33), gp.ProgressPercent)
	assert.Equal(t, "666.67", gp.Remaining.String())

	gp, err = domain.NewGoalProgress(goal("10", "15"))
	require.NoError(t, err)
	assert.True(t, gp.Remaining.IsZero())
}

func TestContributions(t *testing.T) {
	created := time.Date(2024, time.May, 3, 10, 0, 0, 0, time.UTC)
	g := goal("1000", "120")
	g.CreatedAt = created

	recs := domain.Contributions([]domain.SavingsGoal{g})

	require.Len(t, recs, 1)
	assert.Equal(t, created, recs[0].OccurredAt)
	assert.Equal(t, "120", recs[0].Amount.String())
}
