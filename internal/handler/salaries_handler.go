package handler

import (
	"net/http"

	"github.com/boddenberg/finance-tracker-go/internal/domain"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Salaries
// ============================================================

type salaryRequest struct {
	Amount string `json:"amount"`
}

type currentSalaryResponse struct {
	Salary *domain.SalaryRecord `json:"salary"`
}

func listSalariesHandler(svc Services, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/salaries")
		defer span.End()

		overview, err := svc.Salaries.Overview(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, overview)
	}
}

func createSalaryHandler(svc Services, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/salaries")
		defer span.End()

		var req salaryRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		amount, err := domain.ParseAmount("amount", req.Amount)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		rec, err := svc.Salaries.Create(ctx, UserIDFromContext(ctx), amount)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, rec)
	}
}

func currentSalaryHandler(svc Services, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/salaries/current")
		defer span.End()

		rec, err := svc.Salaries.Current(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, currentSalaryResponse{Salary: rec})
	}
}

func updateSalaryHandler(svc Services, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/salaries/{id}")
		defer span.End()

		var req salaryRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		amount, err := domain.ParseAmount("amount", req.Amount)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		rec, err := svc.Salaries.Update(ctx, UserIDFromContext(ctx), chi.URLParam(r, "id"), amount)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func deleteSalaryHandler(svc Services, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/salaries/{id}")
		defer span.End()

		if err := svc.Salaries.Delete(ctx, UserIDFromContext(ctx), chi.URLParam(r, "id")); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
