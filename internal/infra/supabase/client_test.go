package supabase_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/boddenberg/finance-tracker-go/internal/domain"
	"github.com/boddenberg/finance-tracker-go/internal/infra/resilience"
	"github.com/boddenberg/finance-tracker-go/internal/infra/supabase"
	"github.com/boddenberg/finance-tracker-go/internal/port"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var _ port.Store = (*supabase.Client)(nil)

func newClient(t *testing.T, h http.HandlerFunc) *supabase.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := resilience.Config{MaxRetries: 2, InitialBackoff: time.Millisecond}
	return supabase.NewClient(srv.Client(), srv.URL, "anon-key", "service-key",
		resilience.NewCircuitBreaker("supabase-test-"+t.Name()), cfg, time.UTC, zap.NewNop())
}

func TestQueryExpenses_BuildsFilterAndDecodes(t *testing.T) {
	var gotQuery map[string][]string
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/expenses", r.URL.Path)
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))
		gotQuery = r.URL.Query()
		_, _ = io.WriteString(w, `[
			{"id":"e-1","user_id":"u-1","description":"Rent","amount":1200.5,"category":"housing","date":"2024-03-01","created_at":"2024-03-01T09:00:00Z"},
			{"id":"e-2","user_id":"u-1","description":"Misc","amount":"3","category":null,"date":"2024-03-02","created_at":"2024-03-02T09:00:00Z"}
		]`)
	})

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC)
	recs, err := c.QueryExpenses(context.Background(), domain.Query{
		UserID: "u-1", From: &from, To: &to, OrderBy: domain.OrderByDate, Ascending: true, Limit: 10,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"eq.u-1"}, gotQuery["user_id"])
	assert.ElementsMatch(t, []string{"gte.2024-03-01", "lte.2024-03-31"}, gotQuery["date"])
	assert.Equal(t, []string{"date.asc,created_at.asc"}, gotQuery["order"])
	assert.Equal(t, []string{"10"}, gotQuery["limit"])

	require.Len(t, recs, 2)
	assert.Equal(t, "1200.5", recs[0].Amount.String())
	assert.Equal(t, domain.CategoryHousing, recs[0].Category)
	assert.Equal(t, from, recs[0].OccurredAt)
	assert.Equal(t, domain.Category(""), recs[1].Category)
}

func TestInsertExpense_ReturnsID(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "2024-03-05", body["date"])
		assert.Nil(t, body["category"])

		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `[{"id":"e-9"}]`)
	})

	id, err := c.InsertExpense(context.Background(), &domain.MonetaryRecord{
		UserID:      "u-1",
		Description: "Coffee",
		Amount:      decimal.NewFromInt(4),
		OccurredAt:  time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "e-9", id)
}

func TestQuery_RetriesServerErrors(t *testing.T) {
	var calls int32
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.QuerySalaries(context.Background(), domain.Query{UserID: "u-1"})

	var pe *domain.ErrPersistence
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "salaries", pe.Collection)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestWrite_NotRetried(t *testing.T) {
	var calls int32
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.InsertSalary(context.Background(), &domain.SalaryRecord{UserID: "u-1", MonthlyAmount: decimal.NewFromInt(3000)})

	var pe *domain.ErrPersistence
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "insert", pe.Op)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCompareAndSetAmount_Conflict(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPatch:
			assert.Equal(t, "eq.100", r.URL.Query().Get("current_amount"))
			_, _ = io.WriteString(w, `[]`)
		case http.MethodGet:
			_, _ = io.WriteString(w, `[{"id":"g-1","user_id":"u-1","goal_name":"Car","goal_amount":1000,"current_amount":150}]`)
		}
	})

	err := c.CompareAndSetAmount(context.Background(), "g-1", decimal.NewFromInt(100), decimal.NewFromInt(200))

	var conflict *domain.ErrConflict
	require.ErrorAs(t, err, &conflict)
}

func TestCompareAndSetAmount_Applied(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "200", body["current_amount"])
		_, _ = io.WriteString(w, `[{"id":"g-1"}]`)
	})

	require.NoError(t, c.CompareAndSetAmount(context.Background(), "g-1", decimal.NewFromInt(100), decimal.NewFromInt(200)))
}

func TestDelete_NotFound(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	})

	var nf *domain.ErrNotFound
	require.ErrorAs(t, c.DeleteGoal(context.Background(), "g-404"), &nf)
}

func TestIDFilter_EscapesReservedCharacters(t *testing.T) {
	const id = "g-1&user_id=eq.u-2"
	var seen []map[string][]string
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.URL.Query())
		_, _ = io.WriteString(w, `[]`)
	})
	ctx := context.Background()

	var nf *domain.ErrNotFound
	_, err := c.GetGoal(ctx, id)
	require.ErrorAs(t, err, &nf)
	require.ErrorAs(t, c.DeleteExpense(ctx, id), &nf)
	require.ErrorAs(t, c.UpdateSalary(ctx, id, domain.Fields{domain.FieldMonthlySalary: decimal.NewFromInt(10)}), &nf)

	require.Len(t, seen, 3)
	for _, q := range seen {
		assert.Equal(t, []string{"eq." + id}, q["id"])
		assert.NotContains(t, q, "user_id")
	}
}
