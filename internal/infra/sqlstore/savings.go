package sqlstore

import (
	"context"
	"fmt"

	"github.com/boddenberg/finance-tracker-go/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const goalColumns = "SELECT id, user_id, goal_name, goal_amount, current_amount, created_at FROM savings"

var goalFields = map[string]bool{
	domain.FieldGoalName:      true,
	domain.FieldGoalAmount:    true,
	domain.FieldCurrentAmount: true,
}

func scanGoal(row rowScanner) (domain.SavingsGoal, error) {
	var (
		g       domain.SavingsGoal
		created timeValue
	)
	if err := row.Scan(&g.ID, &g.UserID, &g.Name, &g.TargetAmount, &g.CurrentAmount, &created); err != nil {
		return g, err
	}
	g.CreatedAt = created.Time
	return g, nil
}

func (s *Store) QueryGoals(ctx context.Context, q domain.Query) ([]domain.SavingsGoal, error) {
	ctx, span := tracer.Start(ctx, "SQLStore.QueryGoals")
	defer span.End()

	query, args := s.selectSQL(goalColumns, q, domain.OrderByCreatedAt, false)
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, &domain.ErrPersistence{Collection: string(domain.CollectionSavings), Op: "query", Err: err}
	}
	defer rows.Close()

	out := make([]domain.SavingsGoal, 0)
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, &domain.ErrPersistence{Collection: string(domain.CollectionSavings), Op: "scan", Err: err}
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.ErrPersistence{Collection: string(domain.CollectionSavings), Op: "query", Err: err}
	}
	return out, nil
}

func (s *Store) GetGoal(ctx context.Context, id string) (*domain.SavingsGoal, error) {
	ctx, span := tracer.Start(ctx, "SQLStore.GetGoal")
	defer span.End()

	g, err := scanGoal(s.db.QueryRowContext(ctx, s.rebind(goalColumns+" WHERE id = ?"), id))
	if err != nil {
		return nil, notFoundOr(err, "goal", id, domain.CollectionSavings, "get")
	}
	return &g, nil
}

func (s *Store) InsertGoal(ctx context.Context, g *domain.SavingsGoal) (string, error) {
	ctx, span := tracer.Start(ctx, "SQLStore.InsertGoal")
	defer span.End()

	id := uuid.NewString()
	_, err := s.exec(ctx, domain.CollectionSavings, "insert",
		"INSERT INTO savings (id, user_id, goal_name, goal_amount, current_amount, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		id, g.UserID, g.Name, amountArg(g.TargetAmount), amountArg(g.CurrentAmount), s.timeArg(s.now()),
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) UpdateGoal(ctx context.Context, id string, fields domain.Fields) error {
	ctx, span := tracer.Start(ctx, "SQLStore.UpdateGoal")
	defer span.End()

	set, args, err := s.setClause(fields, goalFields)
	if err != nil {
		return err
	}
	n, err := s.exec(ctx, domain.CollectionSavings, "update",
		fmt.Sprintf("UPDATE savings SET %s WHERE id = ?", set), append(args, id)...)
	if err != nil {
		return err
	}
	if n == 0 {
		return &domain.ErrNotFound{Resource: "goal", ID: id}
	}
	return nil
}

func (s *Store) DeleteGoal(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "SQLStore.DeleteGoal")
	defer span.End()

	n, err := s.exec(ctx, domain.CollectionSavings, "delete", "DELETE FROM savings WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n == 0 {
		return &domain.ErrNotFound{Resource: "goal", ID: id}
	}
	return nil
}

// CompareAndSetAmount updates only when current_amount still holds expected.
func (s *Store) CompareAndSetAmount(ctx context.Context, id string, expected, next decimal.Decimal) error {
	ctx, span := tracer.Start(ctx, "SQLStore.CompareAndSetAmount")
	defer span.End()

	n, err := s.exec(ctx, domain.CollectionSavings, "update",
		"UPDATE savings SET current_amount = ? WHERE id = ? AND current_amount = ?",
		amountArg(next), id, amountArg(expected),
	)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if _, err := s.GetGoal(ctx, id); err != nil {
		return err
	}
	return &domain.ErrConflict{Message: fmt.Sprintf("goal %s changed concurrently", id)}
}
