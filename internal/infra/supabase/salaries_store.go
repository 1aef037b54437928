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
// Salaries: CRUD via PostgREST
// ============================================================

type salaryRow struct {
	ID            string          `json:"id,omitempty"`
	UserID        string          `json:"user_id"`
	MonthlySalary decimal.Decimal `json:"monthly_salary"`
	CreatedAt     *time.Time      `json:"created_at,omitempty"`
}

func toSalary(r salaryRow) domain.SalaryRecord {
	s := domain.SalaryRecord{ID: r.ID, UserID: r.UserID, MonthlyAmount: r.MonthlySalary}
	if r.CreatedAt != nil {
		s.CreatedAt = *r.CreatedAt
	}
	return s
}

func (c *Client) QuerySalaries(ctx context.Context, q domain.Query) ([]domain.SalaryRecord, error) {
	ctx, span := tracer.Start(ctx, "Supabase.QuerySalaries")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", q.UserID))

	var rows []salaryRow
	if err := c.selectRows(ctx, domain.CollectionSalaries, c.filterPath(domain.CollectionSalaries, q, domain.OrderByCreatedAt, false), &rows); err != nil {
		return nil, err
	}

	out := make([]domain.SalaryRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, toSalary(r))
	}
	return out, nil
}

func (c *Client) GetSalary(ctx context.Context, id string) (*domain.SalaryRecord, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetSalary")
	defer span.End()

	var rows []salaryRow
	path := fmt.Sprintf("salaries?select=*&%s&limit=1", idFilter(id))
	if err := c.selectRows(ctx, domain.CollectionSalaries, path, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "salary", ID: id}
	}
	s := toSalary(rows[0])
	return &s, nil
}

func (c *Client) InsertSalary(ctx context.Context, s *domain.SalaryRecord) (string, error) {
	ctx, span := tracer.Start(ctx, "Supabase.InsertSalary")
	defer span.End()

	return c.insert(ctx, domain.CollectionSalaries, salaryRow{UserID: s.UserID, MonthlySalary: s.MonthlyAmount})
}

func (c *Client) UpdateSalary(ctx context.Context, id string, fields domain.Fields) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateSalary")
	defer span.End()

	data, err := c.columns(fields)
	if err != nil {
		return err
	}
	n, err := c.patch(ctx, domain.CollectionSalaries, idFilter(id), data)
	if err != nil {
		return err
	}
	if n == 0 {
		return &domain.ErrNotFound{Resource: "salary", ID: id}
	}
	return nil
}

func (c *Client) DeleteSalary(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteSalary")
	defer span.End()

	found, err := c.remove(ctx, domain.CollectionSalaries, id)
	if err != nil {
		return err
	}
	if !found {
		return &domain.ErrNotFound{Resource: "salary", ID: id}
	}
	return nil
}
