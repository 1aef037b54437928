package service

import (
	"context"
	"strings"

	"github.com/boddenberg/finance-tracker-go/internal/domain"
	"github.com/boddenberg/finance-tracker-go/internal/infra/observability"
	"github.com/boddenberg/finance-tracker-go/internal/port"
)

// Pending input actions, used as the metric label.
const (
	pendingSet   = "set"
	pendingApply = "apply"
	pendingClear = "clear"
)

// DeltaInputs holds the text a user typed for each goal before applying it.
// Entries expire after the cache TTL.
type DeltaInputs struct {
	inputs  port.Cache[string]
	goals   *GoalService
	metrics *observability.Metrics
}

// NewDeltaInputs creates the pending input map on top of a cache.
func NewDeltaInputs(inputs port.Cache[string], goals *GoalService, metrics *observability.Metrics) *DeltaInputs {
	return &DeltaInputs{inputs: inputs, goals: goals, metrics: metrics}
}

func pendingKey(userID, goalID string) string {
	return userID + ":" + goalID
}

// Set stores the raw text for a goal, replacing any previous value.
// Blank text clears the entry.
func (d *DeltaInputs) Set(userID, goalID, text string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		d.Clear(userID, goalID)
		return nil
	}
	d.inputs.Set(pendingKey(userID, goalID), text)
	d.metrics.IncrPendingInput(pendingSet)
	return nil
}

// Get returns the pending text for a goal.
func (d *DeltaInputs) Get(userID, goalID string) (string, bool) {
	return d.inputs.Get(pendingKey(userID, goalID))
}

// Clear drops the pending text for a goal.
func (d *DeltaInputs) Clear(userID, goalID string) {
	d.inputs.Delete(pendingKey(userID, goalID))
	d.metrics.IncrPendingInput(pendingClear)
}

// Apply parses the pending text as a signed amount and applies it to the
// goal. The entry is cleared only when the delta was written.
func (d *DeltaInputs) Apply(ctx context.Context, userID, goalID string) (*domain.GoalProgress, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	text, ok := d.Get(userID, goalID)
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "pending input", ID: goalID}
	}

	delta, err := domain.ParseAmount("delta", text)
	if err != nil {
		return nil, err
	}

	gp, err := d.goals.ApplyDelta(ctx, userID, goalID, delta)
	if err != nil {
		return nil, err
	}

	d.inputs.Delete(pendingKey(userID, goalID))
	d.metrics.IncrPendingInput(pendingApply)
	return gp, nil
}
