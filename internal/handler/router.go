package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/boddenberg/finance-tracker-go/internal/domain"
	"github.com/boddenberg/finance-tracker-go/internal/infra/observability"
	"github.com/boddenberg/finance-tracker-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services bundles what the routes call into.
type Services struct {
	Expenses  *service.ExpenseService
	Salaries  *service.SalaryService
	Goals     *service.GoalService
	Pending   *service.DeltaInputs
	Reports   *service.ReportService
	Refresher *service.Refresher
	Store     Pinger
	Backend   string // store name in readiness reports

	Location      *time.Location // interprets date-only request values
	DefaultPeriod domain.Period  // applies when a report request names none
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc Services, auth *Authenticator, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	if svc.Location == nil {
		svc.Location = time.Local
	}
	if svc.DefaultPeriod == "" {
		svc.DefaultPeriod = domain.Monthly
	}

	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger, metrics))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler())
	r.Get("/readyz", readyzHandler(svc.Store, svc.Backend, logger))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Use(auth.Middleware)

		// Expenses
		r.Get("/expenses", listExpensesHandler(svc, logger))
		r.Post("/expenses", createExpenseHandler(svc, logger))
		r.Get("/expenses/recent", recentExpensesHandler(svc, logger))
		r.Delete("/expenses/{id}", deleteExpenseHandler(svc, logger))

		// Salaries
		r.Get("/salaries", listSalariesHandler(svc, logger))
		r.Post("/salaries", createSalaryHandler(svc, logger))
		r.Get("/salaries/current", currentSalaryHandler(svc, logger))
		r.Put("/salaries/{id}", updateSalaryHandler(svc, logger))
		r.Delete("/salaries/{id}", deleteSalaryHandler(svc, logger))

		// Savings goals
		r.Get("/goals", listGoalsHandler(svc, logger))
		r.Post("/goals", createGoalHandler(svc, logger))
		r.Delete("/goals/{id}", deleteGoalHandler(svc, logger))
		r.Post("/goals/{id}/delta", applyDeltaHandler(svc, logger))
		r.Put("/goals/{id}/pending", setPendingHandler(svc, logger))
		r.Get("/goals/{id}/pending", getPendingHandler(svc, logger))
		r.Delete("/goals/{id}/pending", clearPendingHandler(svc, logger))
		r.Post("/goals/{id}/pending/apply", applyPendingHandler(svc, logger))

		// Reports
		r.Get("/reports/dashboard", dashboardHandler(svc, logger))
		r.Get("/reports/range", rangeHandler(svc, logger))
		r.Get("/reports/series", seriesHandler(svc, logger))
		r.Post("/reports/refresh", refreshHandler(svc, logger))
		r.Get("/reports/stream", streamHandler(svc, logger))

		r.Get("/metrics/refresh", refreshMetricsHandler(metrics))
	})

	return r
}

func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func readyzHandler(store Pinger, backend string, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := domain.HealthStatus{Status: "ready", Backend: backend, Services: []domain.ServiceHealth{}}
		if store == nil {
			writeJSON(w, http.StatusOK, status)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		start := time.Now()
		err := store.Ping(ctx)
		check := domain.ServiceHealth{
			Name:        "store",
			Status:      "up",
			LatencyMs:   time.Since(start).Milliseconds(),
			LastChecked: time.Now().UTC().Format(time.RFC3339),
		}
		if err != nil {
			logger.Warn("readiness check failed", zap.Error(err))
			check.Status = "down"
			check.Error = err.Error()
			status.Status = "unavailable"
		}
		status.Services = append(status.Services, check)

		code := http.StatusOK
		if err != nil {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, status)
	}
}

func refreshMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetRefreshSnapshot())
	}
}
