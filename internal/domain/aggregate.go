package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ============================================================
// Aggregation
// ============================================================

// PeriodBucket is one labeled chart point.
type PeriodBucket struct {
	Label string          `json:"label"`
	Total decimal.Decimal `json:"total"`
}

const (
	entryDateLayout = "1/2/2006"
	monthLayout     = "Jan 2006"
	yearLayout      = "2006"
)

// SumInRange totals the amounts of records whose OccurredAt lies in
// [start, end], both bounds inclusive. No records yields zero.
func SumInRange(records []MonetaryRecord, r DateRange) decimal.Decimal {
	total := decimal.Zero
	for _, rec := range records {
		if r.Contains(rec.OccurredAt) {
			total = total.Add(rec.Amount)
		}
	}
	return total
}

// Total sums every record regardless of date.
func Total(records []MonetaryRecord) decimal.Decimal {
	total := decimal.Zero
	for _, rec := range records {
		total = total.Add(rec.Amount)
	}
	return total
}

// BucketSeries turns records into chart points.
//
// Daily and weekly views keep one bucket per record in input order, labeled
// "<description> (<date>)", for transaction-level inspection. Monthly views
// group by "Jan 2006" and yearly views by "2006", summing records that share
// a label; buckets appear in the order their label was first seen.
func BucketSeries(records []MonetaryRecord, p Period) []PeriodBucket {
	switch p {
	case Daily, Weekly:
		out := make([]PeriodBucket, 0, len(records))
		for _, rec := range records {
			out = append(out, PeriodBucket{Label: entryLabel(rec), Total: rec.Amount})
		}
		return out
	case Yearly:
		return groupBy(records, yearLayout)
	default:
		return groupBy(records, monthLayout)
	}
}

func groupBy(records []MonetaryRecord, layout string) []PeriodBucket {
	out := make([]PeriodBucket, 0)
	index := make(map[string]int)
	for _, rec := range records {
		label := rec.OccurredAt.Format(layout)
		if i, ok := index[label]; ok {
			out[i].Total = out[i].Total.Add(rec.Amount)
			continue
		}
		index[label] = len(out)
		out = append(out, PeriodBucket{Label: label, Total: rec.Amount})
	}
	return out
}

func entryLabel(rec MonetaryRecord) string {
	name := rec.Description
	if name == "" {
		name = rec.Category.Label()
	}
	return fmt.Sprintf("%s (%s)", name, rec.OccurredAt.Format(entryDateLayout))
}

// SeriesTotal sums every bucket of a series.
func SeriesTotal(series []PeriodBucket) decimal.Decimal {
	total := decimal.Zero
	for _, b := range series {
		total = total.Add(b.Total)
	}
	return total
}
