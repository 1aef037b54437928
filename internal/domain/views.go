package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Presentation views
// ============================================================

// Dashboard is the full recomputed view for one user. Parts whose fetch
// failed are zero or empty and named in Degraded.
type Dashboard struct {
	UserID     string                 `json:"user_id"`
	Period     Period                 `json:"period"`
	Month      DateRange              `json:"month"`
	Range      DateRange              `json:"range"`
	Snapshot   ReconciliationSnapshot `json:"snapshot"`
	Formatted  FormattedSnapshot      `json:"formatted"`
	Allocation []AllocationSlice      `json:"allocation"`
	Series     []PeriodBucket         `json:"series"`
	Recent     []MonetaryRecord       `json:"recent"`
	Goals      []GoalProgress         `json:"goals"`
	HasSalary  bool                   `json:"has_salary"`
	Degraded   []string               `json:"degraded,omitempty"`
	ComputedAt time.Time              `json:"computed_at"`
}

// FormattedSnapshot carries display strings for the snapshot figures.
type FormattedSnapshot struct {
	Salary        string `json:"salary"`
	TotalExpenses string `json:"total_expenses"`
	TotalSavings  string `json:"total_savings"`
	Remaining     string `json:"remaining"`
}

// FormatSnapshot renders every amount of s in the display currency.
func FormatSnapshot(s ReconciliationSnapshot) FormattedSnapshot {
	return FormattedSnapshot{
		Salary:        FormatUSD(s.Salary),
		TotalExpenses: FormatUSD(s.TotalExpenses),
		TotalSavings:  FormatUSD(s.TotalSavingsContributions),
		Remaining:     FormatUSD(s.Remaining),
	}
}

// ExpenseLedger is the expense list with its all-time total. Remaining is
// set only when the user has a salary.
type ExpenseLedger struct {
	Expenses  []MonetaryRecord `json:"expenses"`
	Total     decimal.Decimal  `json:"total"`
	Remaining *decimal.Decimal `json:"remaining,omitempty"`
}

// SalaryOverview lists salary records newest first with their statistics.
type SalaryOverview struct {
	Salaries []SalaryRecord `json:"salaries"`
	Current  *SalaryRecord  `json:"current,omitempty"`
	Stats    SalaryStats    `json:"stats"`
}

// RefreshStats summarizes recompute activity since process start.
type RefreshStats struct {
	Recomputes        int64 `json:"recomputes"`
	ManualRecomputes  int64 `json:"manual_recomputes"`
	EventRecomputes   int64 `json:"event_recomputes"`
	PersistenceErrors int64 `json:"persistence_errors"`
	DeltaConflicts    int64 `json:"delta_conflicts"`
}

// RangeSummary is the expense total for one resolved period.
type RangeSummary struct {
	Period    Period          `json:"period"`
	Range     DateRange       `json:"range"`
	Count     int             `json:"count"`
	Total     decimal.Decimal `json:"total"`
	Formatted string          `json:"formatted"`
}

// SeriesReport is the chart-ready expense series for one resolved period.
type SeriesReport struct {
	Period  Period          `json:"period"`
	Range   DateRange       `json:"range"`
	Buckets []PeriodBucket  `json:"buckets"`
	Total   decimal.Decimal `json:"total"`
}
