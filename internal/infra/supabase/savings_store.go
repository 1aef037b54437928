package supabase

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/boddenberg/finance-tracker-go/internal/domain"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Savings goals: CRUD via PostgREST
// ============================================================

type savingsRow struct {
	ID            string          `json:"id,omitempty"`
	UserID        string          `json:"user_id"`
	GoalName      string          `json:"goal_name"`
	GoalAmount    decimal.Decimal `json:"goal_amount"`
	CurrentAmount decimal.Decimal `json:"current_amount"`
	CreatedAt     *time.Time      `json:"created_at,omitempty"`
}

func toGoal(r savingsRow) domain.SavingsGoal {
	g := domain.SavingsGoal{
		ID:            r.ID,
		UserID:        r.UserID,
		Name:          r.GoalName,
		TargetAmount:  r.GoalAmount,
		CurrentAmount: r.CurrentAmount,
	}
	if r.CreatedAt != nil {
		g.CreatedAt = *r.CreatedAt
	}
	return g
}

func (c *Client) QueryGoals(ctx context.Context, q domain.Query) ([]domain.SavingsGoal, error) {
	ctx, span := tracer.Start(ctx, "Supabase.QueryGoals")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", q.UserID))

	var rows []savingsRow
	if err := c.selectRows(ctx, domain.CollectionSavings, c.filterPath(domain.CollectionSavings, q, domain.OrderByCreatedAt, false), &rows); err != nil {
		return nil, err
	}

	out := make([]domain.SavingsGoal, 0, len(rows))
	for _, r := range rows {
		out = append(out, toGoal(r))
	}
	return out, nil
}

func (c *Client) GetGoal(ctx context.Context, id string) (*domain.SavingsGoal, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetGoal")
	defer span.End()

	var rows []savingsRow
	path := fmt.Sprintf("savings?select=*&%s&limit=1", idFilter(id))
	if err := c.selectRows(ctx, domain.CollectionSavings, path, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "goal", ID: id}
	}
	g := toGoal(rows[0])
	return &g, nil
}

func (c *Client) InsertGoal(ctx context.Context, g *domain.SavingsGoal) (string, error) {
	ctx, span := tracer.Start(ctx, "Supabase.InsertGoal")
	defer span.End()

	row := savingsRow{
		UserID:        g.UserID,
		GoalName:      g.Name,
		GoalAmount:    g.TargetAmount,
		CurrentAmount: g.CurrentAmount,
	}
	return c.insert(ctx, domain.CollectionSavings, row)
}

func (c *Client) UpdateGoal(ctx context.Context, id string, fields domain.Fields) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateGoal")
	defer span.End()

	data, err := c.columns(fields)
	if err != nil {
		return err
	}
	n, err := c.patch(ctx, domain.CollectionSavings, idFilter(id), data)
	if err != nil {
		return err
	}
	if n == 0 {
		return &domain.ErrNotFound{Resource: "goal", ID: id}
	}
	return nil
}

func (c *Client) DeleteGoal(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteGoal")
	defer span.End()

	found, err := c.remove(ctx, domain.CollectionSavings, id)
	if err != nil {
		return err
	}
	if !found {
		return &domain.ErrNotFound{Resource: "goal", ID: id}
	}
	return nil
}

// CompareAndSetAmount PATCHes with a filter on the expected amount, so
// PostgREST applies it only if no one else wrote in between.
func (c *Client) CompareAndSetAmount(ctx context.Context, id string, expected, next decimal.Decimal) error {
	ctx, span := tracer.Start(ctx, "Supabase.CompareAndSetAmount")
	defer span.End()
	span.SetAttributes(attribute.String("goal.id", id))

	filter := idFilter(id) + "&current_amount=eq." + url.QueryEscape(expected.String())
	n, err := c.patch(ctx, domain.CollectionSavings, filter, map[string]any{
		domain.FieldCurrentAmount: next.String(),
	})
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	// nothing matched: either the goal is gone or the amount moved
	if _, err := c.GetGoal(ctx, id); err != nil {
		return err
	}
	return &domain.ErrConflict{Message: fmt.Sprintf("goal %s changed concurrently", id)}
}
