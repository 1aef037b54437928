package supabase

import (
	"context"
	"fmt"
	"time"

	"github.com/boddenberg/finance-tracker-go/internal/domain"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Expenses: CRUD via PostgREST
// ============================================================

type expenseRow struct {
	ID          string          `json:"id,omitempty"`
	UserID      string          `json:"user_id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    *string         `json:"category"`
	Date        string          `json:"date"`
	CreatedAt   *time.Time      `json:"created_at,omitempty"`
}

func (c *Client) toExpense(r expenseRow) domain.MonetaryRecord {
	rec := domain.MonetaryRecord{
		ID:          r.ID,
		UserID:      r.UserID,
		Description: r.Description,
		Amount:      r.Amount,
		OccurredAt:  c.parseDate(r.Date),
	}
	if r.Category != nil {
		rec.Category = domain.Category(*r.Category)
	}
	if r.CreatedAt != nil {
		rec.CreatedAt = *r.CreatedAt
	}
	if rec.OccurredAt.IsZero() {
		rec.OccurredAt = rec.CreatedAt
	}
	return rec
}

func (c *Client) QueryExpenses(ctx context.Context, q domain.Query) ([]domain.MonetaryRecord, error) {
	ctx, span := tracer.Start(ctx, "Supabase.QueryExpenses")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", q.UserID))

	var rows []expenseRow
	if err := c.selectRows(ctx, domain.CollectionExpenses, c.filterPath(domain.CollectionExpenses, q, domain.FieldDate, true), &rows); err != nil {
		return nil, err
	}

	out := make([]domain.MonetaryRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, c.toExpense(r))
	}
	return out, nil
}

func (c *Client) GetExpense(ctx context.Context, id string) (*domain.MonetaryRecord, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetExpense")
	defer span.End()

	var rows []expenseRow
	path := fmt.Sprintf("expenses?select=*&%s&limit=1", idFilter(id))
	if err := c.selectRows(ctx, domain.CollectionExpenses, path, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "expense", ID: id}
	}
	rec := c.toExpense(rows[0])
	return &rec, nil
}

func (c *Client) InsertExpense(ctx context.Context, e *domain.MonetaryRecord) (string, error) {
	ctx, span := tracer.Start(ctx, "Supabase.InsertExpense")
	defer span.End()

	row := expenseRow{
		UserID:      e.UserID,
		Description: e.Description,
		Amount:      e.Amount,
		Category:    nullable(string(e.Category)),
		Date:        e.OccurredAt.In(c.loc).Format(dateLayout),
	}
	return c.insert(ctx, domain.CollectionExpenses, row)
}

func (c *Client) UpdateExpense(ctx context.Context, id string, fields domain.Fields) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateExpense")
	defer span.End()

	data, err := c.columns(fields)
	if err != nil {
		return err
	}
	n, err := c.patch(ctx, domain.CollectionExpenses, idFilter(id), data)
	if err != nil {
		return err
	}
	if n == 0 {
		return &domain.ErrNotFound{Resource: "expense", ID: id}
	}
	return nil
}

func (c *Client) DeleteExpense(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteExpense")
	defer span.End()

	found, err := c.remove(ctx, domain.CollectionExpenses, id)
	if err != nil {
		return err
	}
	if !found {
		return &domain.ErrNotFound{Resource: "expense", ID: id}
	}
	return nil
}
