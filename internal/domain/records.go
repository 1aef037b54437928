package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Collections
// ============================================================

// Collection names the user-scoped record sets held by the persistence layer.
type Collection string

const (
	CollectionExpenses Collection = "expenses"
	CollectionSavings  Collection = "savings"
	CollectionSalaries Collection = "salaries"
)

// ============================================================
// Expenses
// ============================================================

// Category is an expense classification. The empty Category means none was given.
type Category string

const (
	CategoryFood          Category = "food"
	CategoryTransport     Category = "transport"
	CategoryHousing       Category = "housing"
	CategoryUtilities     Category = "utilities"
	CategoryEntertainment Category = "entertainment"
	CategoryHealth        Category = "health"
	CategoryShopping      Category = "shopping"
	CategoryTuition       Category = "tuition"
	CategoryOther         Category = "other"
)

var categoryLabels = map[Category]string{
	CategoryFood:          "Food & Dining",
	CategoryTransport:     "Transportation",
	CategoryHousing:       "Housing",
	CategoryUtilities:     "Utilities",
	CategoryEntertainment: "Entertainment",
	CategoryHealth:        "Health & Fitness",
	CategoryShopping:      "Shopping",
	CategoryTuition:       "Tuition",
	CategoryOther:         "Other",
}

// Valid reports whether c is empty or one of the known categories.
func (c Category) Valid() bool {
	if c == "" {
		return true
	}
	_, ok := categoryLabels[c]
	return ok
}

// Label returns the display name; unknown or empty categories show as "Other".
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return categoryLabels[CategoryOther]
}

// MonetaryRecord is one dated amount owned by a user: an expense, or a
// contribution derived from another collection for aggregation.
type MonetaryRecord struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    Category        `json:"category,omitempty"`
	OccurredAt  time.Time       `json:"occurred_at"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Validate checks the invariants required before an expense is written.
func (r *MonetaryRecord) Validate() error {
	if r.UserID == "" {
		return &ErrValidation{Field: "user_id", Message: "required"}
	}
	if r.Description == "" {
		return &ErrValidation{Field: "description", Message: "required"}
	}
	if !r.Amount.IsPositive() {
		return &ErrValidation{Field: "amount", Message: "must be greater than 0"}
	}
	if !r.Category.Valid() {
		return &ErrValidation{Field: "category", Message: "unknown category " + string(r.Category)}
	}
	return nil
}

// ============================================================
// Salaries
// ============================================================

// SalaryRecord is one monthly salary entry. The most recently created record
// is the user's current salary.
type SalaryRecord struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	MonthlyAmount decimal.Decimal `json:"monthly_amount"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Validate checks the invariants required before a salary is written.
func (s *SalaryRecord) Validate() error {
	if s.UserID == "" {
		return &ErrValidation{Field: "user_id", Message: "required"}
	}
	if !s.MonthlyAmount.IsPositive() {
		return &ErrValidation{Field: "monthly_amount", Message: "must be greater than 0"}
	}
	return nil
}

// CurrentSalary picks the record with the latest CreatedAt. It returns zero
// and false when there are no records.
func CurrentSalary(records []SalaryRecord) (decimal.Decimal, bool) {
	if len(records) == 0 {
		return decimal.Zero, false
	}
	latest := records[0]
	for _, r := range records[1:] {
		if r.CreatedAt.After(latest.CreatedAt) {
			latest = r
		}
	}
	return latest.MonthlyAmount, true
}

// SalaryStats summarizes every salary record a user holds.
type SalaryStats struct {
	Count   int             `json:"count"`
	Total   decimal.Decimal `json:"total"`
	Average decimal.Decimal `json:"average"`
}

// ComputeSalaryStats sums and averages monthly amounts.
func ComputeSalaryStats(records []SalaryRecord) SalaryStats {
	stats := SalaryStats{Count: len(records), Total: decimal.Zero, Average: decimal.Zero}
	for _, r := range records {
		stats.Total = stats.Total.Add(r.MonthlyAmount)
	}
	if stats.Count > 0 {
		stats.Average = stats.Total.Div(decimal.NewFromInt(int64(stats.Count)))
	}
	return stats
}

// ============================================================
// Queries and partial updates
// ============================================================

// Sort columns understood by every store. An empty OrderBy means created_at.
const (
	OrderByDate      = "date"
	OrderByCreatedAt = "created_at"
)

// Query is the read filter accepted by every collection store. From and To
// are inclusive.
type Query struct {
	UserID    string
	From      *time.Time
	To        *time.Time
	OrderBy   string
	Ascending bool
	Limit     int
}

// Fields is a partial update keyed by column name.
type Fields map[string]any

// Column names accepted in Fields.
const (
	FieldDescription   = "description"
	FieldAmount        = "amount"
	FieldCategory      = "category"
	FieldDate          = "date"
	FieldGoalName      = "goal_name"
	FieldGoalAmount    = "goal_amount"
	FieldCurrentAmount = "current_amount"
	FieldMonthlySalary = "monthly_salary"
)
