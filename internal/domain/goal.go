package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Savings goals
// ============================================================

// SavingsGoal is a named savings target. CurrentAmount changes only through
// ApplyDelta and may exceed TargetAmount.
type SavingsGoal struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	Name          string          `json:"name"`
	TargetAmount  decimal.Decimal `json:"target_amount"`
	CurrentAmount decimal.Decimal `json:"current_amount"`
	CreatedAt     time.Time       `json:"created_at"`
}

// NewSavingsGoal validates the input and returns a goal starting at zero.
func NewSavingsGoal(userID, name string, target decimal.Decimal) (SavingsGoal, error) {
	if userID == "" {
		return SavingsGoal{}, &ErrValidation{Field: "user_id", Message: "required"}
	}
	if name == "" {
		return SavingsGoal{}, &ErrValidation{Field: "name", Message: "required"}
	}
	if !target.IsPositive() {
		return SavingsGoal{}, &ErrValidation{Field: "target_amount", Message: "must be greater than 0"}
	}
	return SavingsGoal{
		UserID:        userID,
		Name:          name,
		TargetAmount:  target,
		CurrentAmount: decimal.Zero,
	}, nil
}

// ApplyDelta returns a copy of g with delta added to CurrentAmount. Positive
// deltas are deposits, negative ones withdrawals. A result below zero is
// rejected and g is not modified.
func ApplyDelta(g SavingsGoal, delta decimal.Decimal) (SavingsGoal, error) {
	next := g.CurrentAmount.Add(delta)
	if next.IsNegative() {
		return g, &ErrValidation{Field: "current_amount", Message: "current amount cannot be negative"}
	}
	if next.GreaterThanOrEqual(MaxAmount) {
		return g, &ErrValidation{Field: "current_amount", Message: fmt.Sprintf("current amount must stay below %s", MaxAmount.String())}
	}
	g.CurrentAmount = next
	return g, nil
}

// ProgressPercent is round(current/target*100) clamped to [0, 100].
func ProgressPercent(g SavingsGoal) (int64, error) {
	if !g.TargetAmount.IsPositive() {
		return 0, &ErrInvalidGoal{GoalID: g.ID, Target: g.TargetAmount.String()}
	}
	pct := g.CurrentAmount.Div(g.TargetAmount).Mul(hundred).Round(0).IntPart()
	switch {
	case pct < 0:
		return 0, nil
	case pct > 100:
		return 100, nil
	}
	return pct, nil
}

// Contribution exposes the goal's saved amount as a record dated at creation,
// which is how savings enter period totals.
func (g SavingsGoal) Contribution() MonetaryRecord {
	return MonetaryRecord{
		ID:          g.ID,
		UserID:      g.UserID,
		Description: g.Name,
		Amount:      g.CurrentAmount,
		OccurredAt:  g.CreatedAt,
		CreatedAt:   g.CreatedAt,
	}
}

// Contributions maps goals to their contribution records.
func Contributions(goals []SavingsGoal) []MonetaryRecord {
	out := make([]MonetaryRecord, 0, len(goals))
	for _, g := range goals {
		out = append(out, g.Contribution())
	}
	return out
}

// GoalProgress is a goal together with its display metrics.
type GoalProgress struct {
	SavingsGoal
	ProgressPercent int64           `json:"progress_percent"`
	Remaining       decimal.Decimal `json:"remaining"`
}

// NewGoalProgress derives the display metrics of a goal.
func NewGoalProgress(g SavingsGoal) (GoalProgress, error) {
	pct, err := ProgressPercent(g)
	if err != nil {
		return GoalProgress{}, err
	}
	return GoalProgress{
		SavingsGoal:     g,
		ProgressPercent: pct,
		Remaining:       decimal.Max(g.TargetAmount.Sub(g.CurrentAmount), decimal.Zero),
	}, nil
}
