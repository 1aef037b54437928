package handler

import (
	"net/http"

	"github.com/boddenberg/finance-tracker-go/internal/domain"
	"github.com/boddenberg/finance-tracker-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Expenses
// ============================================================

type createExpenseRequest struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Date        string `json:"date"`
}

type recentResponse struct {
	Expenses []domain.MonetaryRecord `json:"expenses"`
}

func listExpensesHandler(svc Services, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/expenses")
		defer span.End()

		ledger, err := svc.Expenses.Ledger(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, ledger)
	}
}

func createExpenseHandler(svc Services, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/expenses")
		defer span.End()

		var req createExpenseRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		amount, err := domain.ParseAmount("amount", req.Amount)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		date, err := parseDate("date", req.Date, svc.Location)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		rec, err := svc.Expenses.Create(ctx, UserIDFromContext(ctx), service.NewExpense{
			Description: req.Description,
			Amount:      amount,
			Category:    domain.Category(req.Category),
			Date:        date,
		})
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("expense.id", rec.ID))
		writeJSON(w, http.StatusCreated, rec)
	}
}

func recentExpensesHandler(svc Services, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/expenses/recent")
		defer span.End()

		recent, err := svc.Expenses.Recent(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, recentResponse{Expenses: recent})
	}
}

func deleteExpenseHandler(svc Services, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/expenses/{id}")
		defer span.End()

		id := chi.URLParam(r, "id")
		span.SetAttributes(attribute.String("expense.id", id))
		if err := svc.Expenses.Delete(ctx, UserIDFromContext(ctx), id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
