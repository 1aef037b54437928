package sqlstore

import (
	"context"
	"fmt"

	"github.com/boddenberg/finance-tracker-go/internal/domain"

	"github.com/google/uuid"
)

const salaryColumns = "SELECT id, user_id, monthly_salary, created_at FROM salaries"

var salaryFields = map[string]bool{
	domain.FieldMonthlySalary: true,
}

func scanSalary(row rowScanner) (domain.SalaryRecord, error) {
	var (
		r       domain.SalaryRecord
		created timeValue
	)
	if err := row.Scan(&r.ID, &r.UserID, &r.MonthlyAmount, &created); err != nil {
		return r, err
	}
	r.CreatedAt = created.Time
	return r, nil
}

func (s *Store) QuerySalaries(ctx context.Context, q domain.Query) ([]domain.SalaryRecord, error) {
	ctx, span := tracer.Start(ctx, "SQLStore.QuerySalaries")
	defer span.End()

	query, args := s.selectSQL(salaryColumns, q, domain.OrderByCreatedAt, false)
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, &domain.ErrPersistence{Collection: string(domain.CollectionSalaries), Op: "query", Err: err}
	}
	defer rows.Close()

	out := make([]domain.SalaryRecord, 0)
	for rows.Next() {
		r, err := scanSalary(rows)
		if err != nil {
			return nil, &domain.ErrPersistence{Collection: string(domain.CollectionSalaries), Op: "scan", Err: err}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.ErrPersistence{Collection: string(domain.CollectionSalaries), Op: "query", Err: err}
	}
	return out, nil
}

func (s *Store) GetSalary(ctx context.Context, id string) (*domain.SalaryRecord, error) {
	ctx, span := tracer.Start(ctx, "SQLStore.GetSalary")
	defer span.End()

	r, err := scanSalary(s.db.QueryRowContext(ctx, s.rebind(salaryColumns+" WHERE id = ?"), id))
	if err != nil {
		return nil, notFoundOr(err, "salary", id, domain.CollectionSalaries, "get")
	}
	return &r, nil
}

func (s *Store) InsertSalary(ctx context.Context, r *domain.SalaryRecord) (string, error) {
	ctx, span := tracer.Start(ctx, "SQLStore.InsertSalary")
	defer span.End()

	id := uuid.NewString()
	_, err := s.exec(ctx, domain.CollectionSalaries, "insert",
		"INSERT INTO salaries (id, user_id, monthly_salary, created_at) VALUES (?, ?, ?, ?)",
		id, r.UserID, amountArg(r.MonthlyAmount), s.timeArg(s.now()),
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) UpdateSalary(ctx context.Context, id string, fields domain.Fields) error {
	ctx, span := tracer.Start(ctx, "SQLStore.UpdateSalary")
	defer span.End()

	set, args, err := s.setClause(fields, salaryFields)
	if err != nil {
		return err
	}
	n, err := s.exec(ctx, domain.CollectionSalaries, "update",
		fmt.Sprintf("UPDATE salaries SET %s WHERE id = ?", set), append(args, id)...)
	if err != nil {
		return err
	}
	if n == 0 {
		return &domain.ErrNotFound{Resource: "salary", ID: id}
	}
	return nil
}

func (s *Store) DeleteSalary(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "SQLStore.DeleteSalary")
	defer span.End()

	n, err := s.exec(ctx, domain.CollectionSalaries, "delete", "DELETE FROM salaries WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n == 0 {
		return &domain.ErrNotFound{Resource: "salary", ID: id}
	}
	return nil
}
