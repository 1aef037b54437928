// Package sqlstore implements port.Store on database/sql. SQLite (modernc,
// pure Go) serves single-node deployments; Postgres is reached through the
// pgx stdlib driver. Both share one set of queries written with "?"
// placeholders, rebound per dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/boddenberg/finance-tracker-go/internal/domain"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

var tracer = otel.Tracer("sqlstore")

// Dialect selects the SQL flavor.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

func (d Dialect) driverName() string {
	if d == Postgres {
		return "pgx"
	}
	return "sqlite"
}

// sqliteTimeLayout is fixed width so text ordering matches time ordering.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// Store is a SQL-backed port.Store.
type Store struct {
	db      *sql.DB
	dialect Dialect
	logger  *zap.Logger
	now     func() time.Time
}

// Open connects, migrates and returns a ready store. For SQLite dsn is a
// file path whose directory is created if missing.
func Open(ctx context.Context, d Dialect, dsn string, logger *zap.Logger) (*Store, error) {
	if d == SQLite {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open(d.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", d, err)
	}
	if d == SQLite {
		// one writer at a time; avoids SQLITE_BUSY under concurrent requests
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(d, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	logger.Info("sql store ready", zap.String("dialect", string(d)))
	return &Store{db: db, dialect: d, logger: logger, now: time.Now}, nil
}

// WithClock overrides the creation timestamp source.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Close releases the connection pool.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &domain.ErrPersistence{Collection: "database", Op: "ping", Err: err}
	}
	return nil
}

// rebind rewrites "?" placeholders to "$n" for Postgres.
func (s *Store) rebind(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// timeArg encodes a timestamp for the dialect.
func (s *Store) timeArg(t time.Time) any {
	if s.dialect == Postgres {
		return t.UTC()
	}
	return t.UTC().Format(sqliteTimeLayout)
}

// amountArg encodes a decimal in canonical form so equality filters match.
func amountArg(d decimal.Decimal) any {
	return d.String()
}

func (s *Store) exec(ctx context.Context, c domain.Collection, op, query string, args ...any) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(query), args...)
	if err != nil {
		return 0, &domain.ErrPersistence{Collection: string(c), Op: op, Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, &domain.ErrPersistence{Collection: string(c), Op: op, Err: err}
	}
	return n, nil
}

// selectSQL renders the shared filter, order and limit clauses.
func (s *Store) selectSQL(base string, q domain.Query, rangeCol string, byDate bool) (string, []any) {
	var (
		b    strings.Builder
		args = []any{q.UserID}
	)
	b.WriteString(base)
	b.WriteString(" WHERE user_id = ?")
	if q.From != nil {
		b.WriteString(" AND " + rangeCol + " >= ?")
		args = append(args, s.timeArg(*q.From))
	}
	if q.To != nil {
		b.WriteString(" AND " + rangeCol + " <= ?")
		args = append(args, s.timeArg(*q.To))
	}

	dir := "DESC"
	if q.Ascending {
		dir = "ASC"
	}
	if byDate && q.OrderBy == domain.OrderByDate {
		b.WriteString(fmt.Sprintf(" ORDER BY date %s, created_at %s, id", dir, dir))
	} else {
		b.WriteString(fmt.Sprintf(" ORDER BY created_at %s, id", dir))
	}
	if q.Limit > 0 {
		b.WriteString(" LIMIT " + strconv.Itoa(q.Limit))
	}
	return b.String(), args
}

// setClause builds "a = ?, b = ?" for the allowed columns of a table.
func (s *Store) setClause(fields domain.Fields, allowed map[string]bool) (string, []any, error) {
	if len(fields) == 0 {
		return "", nil, &domain.ErrValidation{Field: "fields", Message: "nothing to update"}
	}
	cols := make([]string, 0, len(fields))
	for k := range fields {
		if !allowed[k] {
			return "", nil, &domain.ErrValidation{Field: k, Message: "unknown field"}
		}
		cols = append(cols, k)
	}
	sort.Strings(cols)

	parts := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols))
	for _, k := range cols {
		v, err := s.columnArg(k, fields[k])
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, k+" = ?")
		args = append(args, v)
	}
	return strings.Join(parts, ", "), args, nil
}

func (s *Store) columnArg(field string, v any) (any, error) {
	switch val := v.(type) {
	case decimal.Decimal:
		return amountArg(val), nil
	case time.Time:
		return s.timeArg(val), nil
	case domain.Category:
		return nullString(string(val)), nil
	case string:
		if field == domain.FieldCategory {
			return nullString(val), nil
		}
		return val, nil
	}
	return nil, &domain.ErrValidation{Field: field, Message: fmt.Sprintf("unsupported value type %T", v)}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func notFoundOr(err error, resource, id string, c domain.Collection, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.ErrNotFound{Resource: resource, ID: id}
	}
	return &domain.ErrPersistence{Collection: string(c), Op: op, Err: err}
}

// timeValue scans TIMESTAMPTZ values and SQLite text timestamps alike.
type timeValue struct {
	time.Time
}

func (t *timeValue) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	}
	return fmt.Errorf("cannot scan %T into timestamp", src)
}

func (t *timeValue) parse(s string) error {
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	t.Time = parsed
	return nil
}
