package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/boddenberg/finance-tracker-go/internal/domain"
	"github.com/boddenberg/finance-tracker-go/internal/infra/observability"
	"github.com/boddenberg/finance-tracker-go/internal/port"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// maxDeltaAttempts bounds the compare-and-set loop in ApplyDelta.
const maxDeltaAttempts = 3

// GoalService manages savings goals and applies deltas to them.
type GoalService struct {
	goals port.SavingsStore
	notifier
}

// NewGoalService creates the goal service.
func NewGoalService(goals port.SavingsStore, feed port.ChangePublisher, metrics *observability.Metrics, logger *zap.Logger) *GoalService {
	return &GoalService{
		goals:    goals,
		notifier: notifier{feed: feed, metrics: metrics, logger: logger},
	}
}

// Create stores a new goal starting at zero.
func (s *GoalService) Create(ctx context.Context, userID, name string, target decimal.Decimal) (*domain.GoalProgress, error) {
	ctx, span := tracer.Start(ctx, "GoalService.Create")
	defer span.End()

	if err := requireUser(userID); err != nil {
		return nil, err
	}

	g, err := domain.NewSavingsGoal(userID, strings.TrimSpace(name), target)
	if err != nil {
		return nil, err
	}

	id, err := s.goals.InsertGoal(ctx, &g)
	if err != nil {
		return nil, fmt.Errorf("insert goal: %w", s.failed(domain.CollectionSavings, "insert", userID, err))
	}
	g.ID = id

	s.changed(ctx, domain.CollectionSavings, domain.ChangeInsert, userID, id)
	gp, err := domain.NewGoalProgress(g)
	if err != nil {
		return nil, err
	}
	return &gp, nil
}

// Delete removes one of the caller's goals.
func (s *GoalService) Delete(ctx context.Context, userID, id string) error {
	ctx, span := tracer.Start(ctx, "GoalService.Delete")
	defer span.End()

	if err := requireUser(userID); err != nil {
		return err
	}
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}

	if err := s.goals.DeleteGoal(ctx, id); err != nil {
		return fmt.Errorf("delete goal: %w", s.failed(domain.CollectionSavings, "delete", userID, err))
	}

	s.changed(ctx, domain.CollectionSavings, domain.ChangeDelete, userID, id)
	return nil
}

// List returns the caller's goals newest first with their progress.
func (s *GoalService) List(ctx context.Context, userID string) ([]domain.GoalProgress, error) {
	ctx, span := tracer.Start(ctx, "GoalService.List")
	defer span.End()

	if err := requireUser(userID); err != nil {
		return nil, err
	}

	goals, err := s.goals.QueryGoals(ctx, domain.Query{UserID: userID, OrderBy: domain.OrderByCreatedAt})
	if err != nil {
		return nil, fmt.Errorf("query goals: %w", s.failed(domain.CollectionSavings, "query", userID, err))
	}
	return progressList(goals, s.logger), nil
}

// ApplyDelta adds a signed amount to a goal. The read-modify-write is
// guarded by a compare-and-set on the stored amount and retried when
// another writer got there first. A delta that would make the balance
// negative is rejected and nothing is written. A zero delta writes nothing
// and returns the goal as stored.
func (s *GoalService) ApplyDelta(ctx context.Context, userID, id string, delta decimal.Decimal) (*domain.GoalProgress, error) {
	ctx, span := tracer.Start(ctx, "GoalService.ApplyDelta")
	defer span.End()
	span.SetAttributes(attribute.String("goal.id", id))

	if err := requireUser(userID); err != nil {
		return nil, err
	}
	var lastErr error
	for attempt := 1; attempt <= maxDeltaAttempts; attempt++ {
		current, err := s.owned(ctx, userID, id)
		if err != nil {
			return nil, err
		}
		if delta.IsZero() {
			gp, err := domain.NewGoalProgress(*current)
			if err != nil {
				return nil, err
			}
			return &gp, nil
		}

		next, err := domain.ApplyDelta(*current, delta)
		if err != nil {
			return nil, err
		}

		err = s.goals.CompareAndSetAmount(ctx, id, current.CurrentAmount, next.CurrentAmount)
		if err == nil {
			s.changed(ctx, domain.CollectionSavings, domain.ChangeUpdate, userID, id)
			gp, err := domain.NewGoalProgress(next)
			if err != nil {
				return nil, err
			}
			return &gp, nil
		}

		var conflict *domain.ErrConflict
		if !errors.As(err, &conflict) {
			return nil, fmt.Errorf("update goal amount: %w", s.failed(domain.CollectionSavings, "update", userID, err))
		}
		s.metrics.IncrDeltaConflict()
		s.logger.Info("goal changed concurrently, retrying delta",
			zap.String("goal_id", id),
			zap.Int("attempt", attempt),
		)
		lastErr = err
	}
	return nil, lastErr
}

func (s *GoalService) owned(ctx context.Context, userID, id string) (*domain.SavingsGoal, error) {
	g, err := s.goals.GetGoal(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get goal: %w", s.failed(domain.CollectionSavings, "get", userID, err))
	}
	if g.UserID != userID {
		return nil, &domain.ErrNotFound{Resource: "goal", ID: id}
	}
	return g, nil
}

// progressList derives progress for each goal. Goals with a non-positive
// target are reported at zero percent instead of failing the whole list.
func progressList(goals []domain.SavingsGoal, logger *zap.Logger) []domain.GoalProgress {
	out := make([]domain.GoalProgress, 0, len(goals))
	for _, g := range goals {
		gp, err := domain.NewGoalProgress(g)
		if err != nil {
			logger.Warn("invalid goal", zap.String("goal_id", g.ID), zap.Error(err))
			gp = domain.GoalProgress{SavingsGoal: g, Remaining: decimal.Zero}
		}
		out = append(out, gp)
	}
	return out
}
