// Package supabase implements port.Store against Supabase PostgREST. The
// expenses, savings and salaries tables are read and written over HTTP with
// the service role key.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/boddenberg/finance-tracker-go/internal/domain"
	"github.com/boddenberg/finance-tracker-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("supabase")

// Client wraps HTTP calls to Supabase PostgREST API.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	serviceRoleKey string
	cb             *gobreaker.CircuitBreaker
	cfg            resilience.Config
	loc            *time.Location
	logger         *zap.Logger
}

// NewClient creates a Supabase client. Date-only columns are read and
// written in loc.
func NewClient(httpClient *http.Client, baseURL, apiKey, serviceRoleKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, loc *time.Location, logger *zap.Logger) *Client {
	if loc == nil {
		loc = time.UTC
	}
	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         apiKey,
		serviceRoleKey: serviceRoleKey,
		cb:             cb,
		cfg:            cfg,
		loc:            loc,
		logger:         logger,
	}
}

// statusError is a non-2xx PostgREST response.
type statusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("supabase %s %s returned %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// doRequest executes an authenticated request to Supabase PostgREST.
// 4xx responses are permanent; network errors and 5xx may be retried.
func (c *Client) doRequest(ctx context.Context, method, path string, payload any, prefer string) ([]byte, error) {
	url := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, path)

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, resilience.Permanent(fmt.Errorf("encode %s payload: %w", path, err))
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		c.logger.Error("supabase: failed to create request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, resilience.Permanent(err)
	}

	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.serviceRoleKey))
	req.Header.Set("Content-Type", "application/json")
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("supabase: request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("supabase: failed to read response body",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("supabase: non-2xx response",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(raw)),
		)
		serr := &statusError{Method: method, Path: path, Status: resp.StatusCode, Body: string(raw)}
		if resp.StatusCode < 500 {
			return nil, resilience.Permanent(serr)
		}
		return nil, serr
	}

	c.logger.Debug("supabase: request OK",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)
	return raw, nil
}

// call runs fn through the breaker and wraps failures in
// *domain.ErrPersistence. Only reads pass retry=true; writes are attempted
// once. Not-found, conflict and open-circuit errors pass through unchanged.
func (c *Client) call(ctx context.Context, collection domain.Collection, op string, retry bool, fn func() error) error {
	err := resilience.Execute(ctx, c.cb, c.cfg, retry, fn)
	if err == nil {
		return nil
	}

	var (
		nf   *domain.ErrNotFound
		conf *domain.ErrConflict
		open *domain.ErrCircuitOpen
	)
	if errors.As(err, &nf) || errors.As(err, &conf) || errors.As(err, &open) {
		return err
	}
	return &domain.ErrPersistence{Collection: string(collection), Op: op, Err: err}
}

// Ping checks PostgREST answers for the expenses table.
func (c *Client) Ping(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Supabase.Ping")
	defer span.End()

	return c.call(ctx, domain.CollectionExpenses, "ping", false, func() error {
		_, err := c.doRequest(ctx, http.MethodGet, "expenses?select=id&limit=1", nil, "")
		return err
	})
}

// insert POSTs one row and returns the generated id.
func (c *Client) insert(ctx context.Context, collection domain.Collection, row any) (string, error) {
	var id string
	err := c.call(ctx, collection, "insert", false, func() error {
		body, err := c.doRequest(ctx, http.MethodPost, string(collection), row, "return=representation")
		if err != nil {
			return err
		}
		var created []struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(body, &created); err != nil {
			return resilience.Permanent(fmt.Errorf("decode %s insert: %w", collection, err))
		}
		if len(created) == 0 || created[0].ID == "" {
			return resilience.Permanent(fmt.Errorf("insert into %s returned no row", collection))
		}
		id = created[0].ID
		return nil
	})
	return id, err
}

// patch updates rows matching filter and reports how many matched.
func (c *Client) patch(ctx context.Context, collection domain.Collection, filter string, data map[string]any) (int, error) {
	matched := 0
	err := c.call(ctx, collection, "update", false, func() error {
		path := fmt.Sprintf("%s?%s", collection, filter)
		body, err := c.doRequest(ctx, http.MethodPatch, path, data, "return=representation")
		if err != nil {
			return err
		}
		var rows []json.RawMessage
		if err := json.Unmarshal(body, &rows); err != nil {
			return resilience.Permanent(fmt.Errorf("decode %s update: %w", collection, err))
		}
		matched = len(rows)
		return nil
	})
	return matched, err
}

// remove deletes the row with id and reports whether it existed.
func (c *Client) remove(ctx context.Context, collection domain.Collection, id string) (bool, error) {
	found := false
	err := c.call(ctx, collection, "delete", false, func() error {
		path := fmt.Sprintf("%s?%s", collection, idFilter(id))
		body, err := c.doRequest(ctx, http.MethodDelete, path, nil, "return=representation")
		if err != nil {
			return err
		}
		var rows []json.RawMessage
		if err := json.Unmarshal(body, &rows); err != nil {
			return resilience.Permanent(fmt.Errorf("decode %s delete: %w", collection, err))
		}
		found = len(rows) > 0
		return nil
	})
	return found, err
}

// selectRows GETs path and decodes the JSON array into out.
func (c *Client) selectRows(ctx context.Context, collection domain.Collection, path string, out any) error {
	return c.call(ctx, collection, "query", true, func() error {
		body, err := c.doRequest(ctx, http.MethodGet, path, nil, "")
		if err != nil {
			return err
		}
		if err := json.Unmarshal(body, out); err != nil {
			return resilience.Permanent(fmt.Errorf("decode %s: %w", collection, err))
		}
		return nil
	})
}
