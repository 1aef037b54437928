package domain_test

import (
	"testing"

	"github.com/boddenberg/finance-tracker-go/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcile_Basic(t *testing.T) {
	s := domain.Reconcile(dec("5000"), dec("2000"), dec("500"))

	assert.Equal(t, "2500", s.Remaining.String())
	assert.Equal(t, int64(10), s.SavingsRatePercent)
}

func TestReconcile_ZeroSalaryHasZeroRate(t *testing.T) {
	s := domain.Reconcile(dec("0"), dec("100"), dec("0"))

	assert.Equal(t, int64(0), s.SavingsRatePercent)
	assert.Equal(t, "-100", s.Remaining.String())
}

func TestReconcile_RateRoundsHalfUp(t *testing.T) {
	// 125/1000 = 12.5%
	assert.Equal(t, int64(13), domain.Reconcile(dec("1000"), dec("0"), dec("125")).SavingsRatePercent)
	// 124/1000 = 12.4%
	assert.Equal(t, int64(12), domain.Reconcile(dec("1000"), dec("0"), dec("124")).SavingsRatePercent)
}

func TestReconcile_NegativeRemainingStaysUnclamped(t *testing.T) {
	s := domain.Reconcile(dec("1000"), dec("900"), dec("300"))

	assert.Equal(t, "-200", s.Remaining.String())
	assert.Equal(t, int64(30), s.SavingsRatePercent)
}

func TestAllocation_ExcludesNonPositiveSlices(t *testing.T) {
	s := domain.Reconcile(dec("1000"), dec("900"), dec("300"))

	slices := s.Allocation()

	require.Len(t, slices, 2)
	assert.Equal(t, domain.SliceExpenses, slices[0].Name)
	assert.Equal(t, domain.SliceSavings, slices[1].Name)
}

func TestAllocation_AllThreeSlices(t *testing.T) {
	slices := domain.Reconcile(dec("5000"), dec("2000"), dec("500")).Allocation()

	require.Len(t, slices, 3)
	assert.Equal(t, domain.SliceRemaining, slices[2].Name)
	assert.Equal(t, "2500", slices[2].Value.String())
}

func TestAllocation_EmptyWhenNothingToShow(t *testing.T) {
	assert.Empty(t, domain.Reconcile(dec("0"), dec("0"), dec("0")).Allocation())
}
