// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/boddenberg/finance-tracker-go/internal/domain"

	"github.com/shopspring/decimal"
)

// Query filters apply to the date column for expenses and to created_at
// for goals and salaries. Get methods return *domain.ErrNotFound for
// unknown ids.

// ExpenseStore persists the user-scoped "expenses" collection.
type ExpenseStore interface {
	QueryExpenses(ctx context.Context, q domain.Query) ([]domain.MonetaryRecord, error)
	GetExpense(ctx context.Context, id string) (*domain.MonetaryRecord, error)
	InsertExpense(ctx context.Context, e *domain.MonetaryRecord) (string, error)
	UpdateExpense(ctx context.Context, id string, fields domain.Fields) error
	DeleteExpense(ctx context.Context, id string) error
}

// SavingsStore persists the user-scoped "savings" collection (goals).
type SavingsStore interface {
	QueryGoals(ctx context.Context, q domain.Query) ([]domain.SavingsGoal, error)
	GetGoal(ctx context.Context, id string) (*domain.SavingsGoal, error)
	InsertGoal(ctx context.Context, g *domain.SavingsGoal) (string, error)
	UpdateGoal(ctx context.Context, id string, fields domain.Fields) error
	DeleteGoal(ctx context.Context, id string) error

	// CompareAndSetAmount writes next only if the stored current amount still
	// equals expected. It returns *domain.ErrConflict otherwise.
	CompareAndSetAmount(ctx context.Context, id string, expected, next decimal.Decimal) error
}

// SalaryStore persists the user-scoped "salaries" collection.
type SalaryStore interface {
	QuerySalaries(ctx context.Context, q domain.Query) ([]domain.SalaryRecord, error)
	GetSalary(ctx context.Context, id string) (*domain.SalaryRecord, error)
	InsertSalary(ctx context.Context, s *domain.SalaryRecord) (string, error)
	UpdateSalary(ctx context.Context, id string, fields domain.Fields) error
	DeleteSalary(ctx context.Context, id string) error
}

// Store bundles every collection. Implemented by the Supabase adapter,
// the SQL store and the in-memory store.
type Store interface {
	ExpenseStore
	SavingsStore
	SalaryStore

	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error
}

// ChangePublisher announces writes to a collection.
type ChangePublisher interface {
	PublishChange(ctx context.Context, ev domain.ChangeEvent) error
}

// ChangeSubscriber streams change events for one user until ctx is done.
// The channel is closed when the subscription ends.
type ChangeSubscriber interface {
	SubscribeChanges(ctx context.Context, userID string) (<-chan domain.ChangeEvent, error)
}

// ChangeFeed is a publisher and subscriber over the same transport.
type ChangeFeed interface {
	ChangePublisher
	ChangeSubscriber
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
