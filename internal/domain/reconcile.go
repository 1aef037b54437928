package domain

import "github.com/shopspring/decimal"

// ============================================================
// Reconciliation
// ============================================================

// ReconciliationSnapshot combines salary, expenses and savings for one period.
// Remaining may be negative.
type ReconciliationSnapshot struct {
	Salary                    decimal.Decimal `json:"salary"`
	TotalExpenses             decimal.Decimal `json:"total_expenses"`
	TotalSavingsContributions decimal.Decimal `json:"total_savings_contributions"`
	Remaining                 decimal.Decimal `json:"remaining"`
	SavingsRatePercent        int64           `json:"savings_rate_percent"`
}

// AllocationSlice is one segment of the expenses/savings/remaining chart.
type AllocationSlice struct {
	Name  string          `json:"name"`
	Value decimal.Decimal `json:"value"`
}

const (
	SliceExpenses  = "Expenses"
	SliceSavings   = "Savings"
	SliceRemaining = "Remaining"
)

var hundred = decimal.NewFromInt(100)

// Reconcile computes the remaining balance and savings rate.
// A non-positive salary yields a zero savings rate.
func Reconcile(salary, totalExpenses, totalSavings decimal.Decimal) ReconciliationSnapshot {
	rate := int64(0)
	if salary.IsPositive() {
		rate = totalSavings.Div(salary).Mul(hundred).Round(0).IntPart()
	}
	return ReconciliationSnapshot{
		Salary:                    salary,
		TotalExpenses:             totalExpenses,
		TotalSavingsContributions: totalSavings,
		Remaining:                 salary.Sub(totalExpenses).Sub(totalSavings),
		SavingsRatePercent:        rate,
	}
}

// Allocation returns the chart input for a snapshot. Remaining is clamped at
// zero and any slice that is not strictly positive is left out.
func (s ReconciliationSnapshot) Allocation() []AllocationSlice {
	candidates := []AllocationSlice{
		{Name: SliceExpenses, Value: s.TotalExpenses},
		{Name: SliceSavings, Value: s.TotalSavingsContributions},
		{Name: SliceRemaining, Value: decimal.Max(s.Remaining, decimal.Zero)},
	}
	out := make([]AllocationSlice, 0, len(candidates))
	for _, c := range candidates {
		if c.Value.IsPositive() {
			out = append(out, c)
		}
	}
	return out
}
