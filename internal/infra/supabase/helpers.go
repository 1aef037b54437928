package supabase

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/boddenberg/finance-tracker-go/internal/domain"

	"github.com/shopspring/decimal"
)

// ============================================================
// PostgREST query building and column conversion
// ============================================================

const dateLayout = "2006-01-02"

// filterPath renders a domain.Query as a PostgREST select path. rangeCol is
// the column From/To apply to; asDate formats the bounds as calendar dates.
func (c *Client) filterPath(table domain.Collection, q domain.Query, rangeCol string, asDate bool) string {
	v := url.Values{}
	v.Set("select", "*")
	v.Set("user_id", "eq."+q.UserID)

	bound := func(t time.Time) string {
		if asDate {
			return t.In(c.loc).Format(dateLayout)
		}
		return t.UTC().Format(time.RFC3339Nano)
	}
	if q.From != nil {
		v.Add(rangeCol, "gte."+bound(*q.From))
	}
	if q.To != nil {
		v.Add(rangeCol, "lte."+bound(*q.To))
	}

	order := domain.OrderByCreatedAt
	if q.OrderBy == domain.OrderByDate && table == domain.CollectionExpenses {
		order = domain.OrderByDate
	}
	dir := "desc"
	if q.Ascending {
		dir = "asc"
	}
	if order == domain.OrderByDate {
		v.Set("order", fmt.Sprintf("date.%s,created_at.%s", dir, dir))
	} else {
		v.Set("order", "created_at."+dir)
	}

	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return string(table) + "?" + v.Encode()
}

// idFilter is the PostgREST equality filter on the primary key.
func idFilter(id string) string {
	return "id=eq." + url.QueryEscape(id)
}

// parseDate accepts full timestamps or date-only values in loc.
func (c *Client) parseDate(s string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, err := time.ParseInLocation(dateLayout, s, c.loc); err == nil {
		return t
	}
	return time.Time{}
}

// columns converts Fields values into their JSON column form.
func (c *Client) columns(fields domain.Fields) (map[string]any, error) {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		switch val := v.(type) {
		case decimal.Decimal:
			out[k] = val.String()
		case time.Time:
			if k == domain.FieldDate {
				out[k] = val.In(c.loc).Format(dateLayout)
			} else {
				out[k] = val.UTC().Format(time.RFC3339Nano)
			}
		case domain.Category:
			out[k] = nullable(string(val))
		case string:
			if k == domain.FieldCategory {
				out[k] = nullable(val)
			} else {
				out[k] = val
			}
		default:
			return nil, &domain.ErrValidation{Field: k, Message: fmt.Sprintf("unsupported value type %T", v)}
		}
	}
	return out, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
