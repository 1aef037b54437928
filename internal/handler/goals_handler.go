package handler

import (
	"net/http"

	"github.com/boddenberg/finance-tracker-go/internal/domain"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Savings goals
// ============================================================

type createGoalRequest struct {
	Name         string `json:"name"`
	TargetAmount string `json:"target_amount"`
}

type deltaRequest struct {
	Amount string `json:"amount"`
}

type pendingRequest struct {
	Input string `json:"input"`
}

type pendingResponse struct {
	GoalID string `json:"goal_id"`
	Input  string `json:"input"`
}

type goalsResponse struct {
	Goals []domain.GoalProgress `json:"goals"`
}

func listGoalsHandler(svc Services, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/goals")
		defer span.End()

		goals, err := svc.Goals.List(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, goalsResponse{Goals: goals})
	}
}

func createGoalHandler(svc Services, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/goals")
		defer span.End()

		var req createGoalRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		target, err := domain.ParseAmount("target_amount", req.TargetAmount)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		goal, err := svc.Goals.Create(ctx, UserIDFromContext(ctx), req.Name, target)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("goal.id", goal.ID))
		writeJSON(w, http.StatusCreated, goal)
	}
}

func deleteGoalHandler(svc Services, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/goals/{id}")
		defer span.End()

		userID, goalID := UserIDFromContext(ctx), chi.URLParam(r, "id")
		if err := svc.Goals.Delete(ctx, userID, goalID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		svc.Pending.Clear(userID, goalID)
		w.WriteHeader(http.StatusNoContent)
	}
}

func applyDeltaHandler(svc Services, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/goals/{id}/delta")
		defer span.End()

		goalID := chi.URLParam(r, "id")
		span.SetAttributes(attribute.String("goal.id", goalID))

		var req deltaRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		delta, err := domain.ParseAmount("amount", req.Amount)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		goal, err := svc.Goals.ApplyDelta(ctx, UserIDFromContext(ctx), goalID, delta)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, goal)
	}
}

func setPendingHandler(svc Services, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, goalID := UserIDFromContext(r.Context()), chi.URLParam(r, "id")

		var req pendingRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if err := svc.Pending.Set(userID, goalID, req.Input); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		text, _ := svc.Pending.Get(userID, goalID)
		writeJSON(w, http.StatusOK, pendingResponse{GoalID: goalID, Input: text})
	}
}

func getPendingHandler(svc Services, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, goalID := UserIDFromContext(r.Context()), chi.URLParam(r, "id")

		text, ok := svc.Pending.Get(userID, goalID)
		if !ok {
			handleServiceError(w, &domain.ErrNotFound{Resource: "pending input", ID: goalID}, logger)
			return
		}
		writeJSON(w, http.StatusOK, pendingResponse{GoalID: goalID, Input: text})
	}
}

func clearPendingHandler(svc Services, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc.Pending.Clear(UserIDFromContext(r.Context()), chi.URLParam(r, "id"))
		w.WriteHeader(http.StatusNoContent)
	}
}

func applyPendingHandler(svc Services, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/goals/{id}/pending/apply")
		defer span.End()

		goalID := chi.URLParam(r, "id")
		span.SetAttributes(attribute.String("goal.id", goalID))

		goal, err := svc.Pending.Apply(ctx, UserIDFromContext(ctx), goalID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, goal)
	}
}
