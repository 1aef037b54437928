package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/finance-tracker-go/internal/config"
	"github.com/boddenberg/finance-tracker-go/internal/domain"
	"github.com/boddenberg/finance-tracker-go/internal/handler"
	"github.com/boddenberg/finance-tracker-go/internal/infra/cache"
	"github.com/boddenberg/finance-tracker-go/internal/infra/events"
	"github.com/boddenberg/finance-tracker-go/internal/infra/memstore"
	"github.com/boddenberg/finance-tracker-go/internal/infra/messaging"
	"github.com/boddenberg/finance-tracker-go/internal/infra/observability"
	"github.com/boddenberg/finance-tracker-go/internal/infra/resilience"
	"github.com/boddenberg/finance-tracker-go/internal/infra/sqlstore"
	"github.com/boddenberg/finance-tracker-go/internal/infra/supabase"
	"github.com/boddenberg/finance-tracker-go/internal/port"
	"github.com/boddenberg/finance-tracker-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	loc, _ := cfg.Location()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("store_backend", cfg.StoreBackend),
		zap.Bool("amqp_feed", cfg.AMQPURL != ""),
		zap.String("timezone", loc.String()),
		zap.String("default_period", cfg.DefaultPeriod),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Bool("dev_auth", cfg.DevAuth),
	)

	// --- Tracing ---
	shutdownTracer, err := observability.InitTracer(cfg.OTLPEndpoint, "finance-tracker")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdownTracer(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}

	// --- Store ---
	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	store, closeStore, err := openStore(startCtx, cfg, resilienceCfg, loc, logger)
	cancelStart()
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer closeStore.Close()

	// --- Change feed ---
	feed, closeFeed := openFeed(cfg, logger)
	defer closeFeed.Close()

	// --- Cache ---
	pendingInputs := cache.New[string](cfg.PendingInputTTL)
	defer pendingInputs.Close()
	views := cache.New[*domain.Dashboard](cfg.ViewTTL)
	defer views.Close()

	// --- Services ---
	clock := service.SystemClock(loc)
	goals := service.NewGoalService(store, feed, metrics, logger)
	reports := service.NewReportService(store, resilience.NewBulkhead(cfg.MaxConcurrency), clock, metrics, logger)

	svc := handler.Services{
		Expenses:      service.NewExpenseService(store, store, feed, clock, metrics, logger),
		Salaries:      service.NewSalaryService(store, feed, metrics, logger),
		Goals:         goals,
		Pending:       service.NewDeltaInputs(pendingInputs, goals, metrics),
		Reports:       reports,
		Refresher:     service.NewRefresher(reports, feed, views, metrics, logger),
		Store:         store,
		Backend:       cfg.StoreBackend,
		Location:      loc,
		DefaultPeriod: domain.ParsePeriod(cfg.DefaultPeriod),
	}

	// --- Router ---
	auth := handler.NewAuthenticator(cfg.SupabaseJWTSecret, cfg.DevAuth, logger)
	router := handler.NewRouter(svc, auth, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openStore builds the persistence adapter named by STORE_BACKEND.
func openStore(ctx context.Context, cfg *config.Config, rc resilience.Config, loc *time.Location, logger *zap.Logger) (port.Store, io.Closer, error) {
	switch cfg.StoreBackend {
	case config.BackendSupabase:
		logger.Info("using Supabase as data backend", zap.String("supabase_url", cfg.SupabaseURL))
		client := supabase.NewClient(
			&http.Client{Timeout: cfg.HTTPTimeout},
			cfg.SupabaseURL,
			cfg.SupabaseAnonKey,
			cfg.SupabaseServiceKey,
			resilience.NewCircuitBreaker("supabase"),
			rc,
			loc,
			logger,
		)
		return client, nopCloser{}, nil

	case config.BackendSQLite:
		s, err := sqlstore.Open(ctx, sqlstore.SQLite, cfg.SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil

	case config.BackendPostgres:
		s, err := sqlstore.Open(ctx, sqlstore.Postgres, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil

	default:
		logger.Warn("using in-memory store; data is lost on restart")
		return memstore.New(), nopCloser{}, nil
	}
}

// openFeed connects the AMQP change feed, falling back to the in-process
// broker when AMQP is not configured or unreachable.
func openFeed(cfg *config.Config, logger *zap.Logger) (port.ChangeFeed, io.Closer) {
	if cfg.AMQPURL != "" {
		feed, err := messaging.Dial(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err == nil {
			return feed, feed
		}
		logger.Error("amqp change feed unavailable, using in-process broker", zap.Error(err))
	}
	broker := events.NewBroker(logger)
	return broker, broker
}
