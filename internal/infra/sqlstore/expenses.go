package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/boddenberg/finance-tracker-go/internal/domain"

	"github.com/google/uuid"
)

const expenseColumns = "SELECT id, user_id, description, amount, category, date, created_at FROM expenses"

var expenseFields = map[string]bool{
	domain.FieldDescription: true,
	domain.FieldAmount:      true,
	domain.FieldCategory:    true,
	domain.FieldDate:        true,
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (domain.MonetaryRecord, error) {
	var (
		rec               domain.MonetaryRecord
		category          sql.NullString
		occurred, created timeValue
	)
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.Description, &rec.Amount, &category, &occurred, &created); err != nil {
		return rec, err
	}
	rec.Category = domain.Category(category.String)
	rec.OccurredAt = occurred.Time
	rec.CreatedAt = created.Time
	return rec, nil
}

func (s *Store) QueryExpenses(ctx context.Context, q domain.Query) ([]domain.MonetaryRecord, error) {
	ctx, span := tracer.Start(ctx, "SQLStore.QueryExpenses")
	defer span.End()

	query, args := s.selectSQL(expenseColumns, q, domain.FieldDate, true)
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, &domain.ErrPersistence{Collection: string(domain.CollectionExpenses), Op: "query", Err: err}
	}
	defer rows.Close()

	out := make([]domain.MonetaryRecord, 0)
	for rows.Next() {
		rec, err := scanExpense(rows)
		if err != nil {
			return nil, &domain.ErrPersistence{Collection: string(domain.CollectionExpenses), Op: "scan", Err: err}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.ErrPersistence{Collection: string(domain.CollectionExpenses), Op: "query", Err: err}
	}
	return out, nil
}

func (s *Store) GetExpense(ctx context.Context, id string) (*domain.MonetaryRecord, error) {
	ctx, span := tracer.Start(ctx, "SQLStore.GetExpense")
	defer span.End()

	row := s.db.QueryRowContext(ctx, s.rebind(expenseColumns+" WHERE id = ?"), id)
	rec, err := scanExpense(row)
	if err != nil {
		return nil, notFoundOr(err, "expense", id, domain.CollectionExpenses, "get")
	}
	return &rec, nil
}

func (s *Store) InsertExpense(ctx context.Context, e *domain.MonetaryRecord) (string, error) {
	ctx, span := tracer.Start(ctx, "SQLStore.InsertExpense")
	defer span.End()

	id := uuid.NewString()
	created := s.now()
	occurred := e.OccurredAt
	if occurred.IsZero() {
		occurred = created
	}

	_, err := s.exec(ctx, domain.CollectionExpenses, "insert",
		"INSERT INTO expenses (id, user_id, description, amount, category, date, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		id, e.UserID, e.Description, amountArg(e.Amount), nullString(string(e.Category)), s.timeArg(occurred), s.timeArg(created),
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) UpdateExpense(ctx context.Context, id string, fields domain.Fields) error {
	ctx, span := tracer.Start(ctx, "SQLStore.UpdateExpense")
	defer span.End()

	set, args, err := s.setClause(fields, expenseFields)
	if err != nil {
		return err
	}
	n, err := s.exec(ctx, domain.CollectionExpenses, "update",
		fmt.Sprintf("UPDATE expenses SET %s WHERE id = ?", set), append(args, id)...)
	if err != nil {
		return err
	}
	if n == 0 {
		return &domain.ErrNotFound{Resource: "expense", ID: id}
	}
	return nil
}

func (s *Store) DeleteExpense(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "SQLStore.DeleteExpense")
	defer span.End()

	n, err := s.exec(ctx, domain.CollectionExpenses, "delete", "DELETE FROM expenses WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n == 0 {
		return &domain.ErrNotFound{Resource: "expense", ID: id}
	}
	return nil
}
