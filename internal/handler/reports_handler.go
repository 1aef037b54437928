package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/boddenberg/finance-tracker-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Reports
// ============================================================

// streamKeepAlive spaces comment lines on an idle event stream.
const streamKeepAlive = 25 * time.Second

func periodParam(r *http.Request, fallback domain.Period) domain.Period {
	if v := r.URL.Query().Get("period"); v != "" {
		return domain.ParsePeriod(v)
	}
	return fallback
}

func dashboardHandler(svc Services, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/reports/dashboard")
		defer span.End()

		period := periodParam(r, svc.DefaultPeriod)
		span.SetAttributes(attribute.String("report.period", string(period)))

		d, err := svc.Reports.Dashboard(ctx, UserIDFromContext(ctx), period)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

func rangeHandler(svc Services, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/reports/range")
		defer span.End()

		at, err := parseDate("at", r.URL.Query().Get("at"), svc.Location)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		summary, err := svc.Reports.Range(ctx, UserIDFromContext(ctx), periodParam(r, svc.DefaultPeriod), at)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

func seriesHandler(svc Services, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/reports/series")
		defer span.End()

		report, err := svc.Reports.Series(ctx, UserIDFromContext(ctx), periodParam(r, svc.DefaultPeriod))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

func refreshHandler(svc Services, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/reports/refresh")
		defer span.End()

		d, err := svc.Refresher.Refresh(ctx, UserIDFromContext(ctx), periodParam(r, svc.DefaultPeriod))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

// streamHandler pushes a dashboard as a server-sent event each time the
// user's data changes or a refresh is requested.
func streamHandler(svc Services, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := UserIDFromContext(ctx)
		period := periodParam(r, svc.DefaultPeriod)

		updates, err := svc.Refresher.Watch(ctx, userID, period)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		rc := http.NewResponseController(w)
		// the stream outlives the server write timeout
		_ = rc.SetWriteDeadline(time.Time{})

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		if err := rc.Flush(); err != nil {
			logger.Warn("event stream not supported", zap.Error(err))
			return
		}

		logger.Info("dashboard stream opened", zap.String("user_id", userID), zap.String("period", string(period)))
		defer logger.Info("dashboard stream closed", zap.String("user_id", userID))

		keepAlive := time.NewTicker(streamKeepAlive)
		defer keepAlive.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-keepAlive.C:
				if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
					return
				}
				if err := rc.Flush(); err != nil {
					return
				}
			case d, ok := <-updates:
				if !ok {
					return
				}
				if err := writeEvent(w, "dashboard", d); err != nil {
					logger.Debug("stream write failed", zap.Error(err))
					return
				}
				if err := rc.Flush(); err != nil {
					return
				}
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, event string, data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, body)
	return err
}
