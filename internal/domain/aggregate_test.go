package domain_test

import (
	"testing"
	"time"

	"github.com/boddenberg/finance-tracker-go/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func expense(desc, amount string, at time.Time) domain.MonetaryRecord {
	return domain.MonetaryRecord{Description: desc, Amount: dec(amount), OccurredAt: at, CreatedAt: at}
}

func TestSumInRange_Empty(t *testing.T) {
	r := domain.ResolveRange(domain.Monthly, date(2024, time.May, 1, 0, 0))

	assert.True(t, domain.SumInRange(nil, r).IsZero())
	assert.True(t, domain.SumInRange([]domain.MonetaryRecord{}, r).IsZero())
}

func TestSumInRange_InclusiveBounds(t *testing.T) {
	r := domain.ResolveRange(domain.Monthly, date(2024, time.May, 10, 0, 0))
	records := []domain.MonetaryRecord{
		expense("first instant", "10.10", r.Start),
		expense("last instant", "20.20", r.End),
		expense("middle", "5", date(2024, time.May, 15, 12, 0)),
		expense("before", "1000", r.Start.Add(-time.Millisecond)),
		expense("after", "1000", r.End.Add(time.Millisecond)),
	}

	assert.Equal(t, "35.3", domain.SumInRange(records, r).String())
}

func TestSumInRange_NoFloatDrift(t *testing.T) {
	r := domain.ResolveRange(domain.Yearly, date(2024, time.May, 10, 0, 0))
	records := make([]domain.MonetaryRecord, 0, 10)
	for i := 0; i < 10; i++ {
		records = append(records, expense("coffee", "0.1", date(2024, time.May, 10, 8, i)))
	}

	assert.True(t, dec("1").Equal(domain.SumInRange(records, r)))
}

func TestBucketSeries_DailyKeepsOneBucketPerRecord(t *testing.T) {
	records := []domain.MonetaryRecord{
		expense("Lunch", "12.5", date(2024, time.May, 15, 12, 0)),
		expense("Lunch", "7.5", date(2024, time.May, 15, 19, 0)),
		{Amount: dec("3"), Category: domain.CategoryTransport, OccurredAt: date(2024, time.May, 15, 20, 0)},
	}

	series := domain.BucketSeries(records, domain.Daily)

	require.Len(t, series, 3)
	assert.Equal(t, "Lunch (5/15/2024)", series[0].Label)
	assert.Equal(t, "Lunch (5/15/2024)", series[1].Label)
	assert.Equal(t, "Transportation (5/15/2024)", series[2].Label)
	assert.Equal(t, "7.5", series[1].Total.String())
}

func TestBucketSeries_WeeklyIsNotGrouped(t *testing.T) {
	records := []domain.MonetaryRecord{
		expense("Bus", "2", date(2024, time.April, 1, 8, 0)),
		expense("Bus", "2", date(2024, time.April, 1, 8, 0)),
	}

	assert.Len(t, domain.BucketSeries(records, domain.Weekly), 2)
}

func TestBucketSeries_MonthlyGroupsInFirstSeenOrder(t *testing.T) {
	records := []domain.MonetaryRecord{
		expense("a", "10", date(2024, time.March, 2, 0, 0)),
		expense("b", "5", date(2024, time.January, 9, 0, 0)),
		expense("c", "2.5", date(2024, time.March, 30, 0, 0)),
		expense("d", "1", date(2023, time.March, 30, 0, 0)),
	}

	series := domain.BucketSeries(records, domain.Monthly)

	require.Len(t, series, 3)
	assert.Equal(t, "Mar 2024", series[0].Label)
	assert.Equal(t, "12.5", series[0].Total.String())
	assert.Equal(t, "Jan 2024", series[1].Label)
	assert.Equal(t, "Mar 2023", series[2].Label)
}

func TestBucketSeries_Yearly(t *testing.T) {
	records := []domain.MonetaryRecord{
		expense("a", "1", date(2023, time.December, 31, 23, 0)),
		expense("b", "2", date(2024, time.January, 1, 0, 0)),
		expense("c", "3", date(2023, time.February, 1, 0, 0)),
	}

	series := domain.BucketSeries(records, domain.Yearly)

	require.Len(t, series, 2)
	assert.Equal(t, "2023", series[0].Label)
	assert.Equal(t, "4", series[0].Total.String())
	assert.Equal(t, "2024", series[1].Label)
}

func TestBucketSeries_GroupingPreservesTotal(t *testing.T) {
	ref := date(2024, time.August, 20, 0, 0)
	r := domain.ResolveRange(domain.Yearly, ref)
	records := []domain.MonetaryRecord{
		expense("a", "19.99", date(2024, time.January, 3, 0, 0)),
		expense("b", "0.01", date(2024, time.January, 4, 0, 0)),
		expense("c", "250", date(2024, time.June, 1, 0, 0)),
		expense("d", "1234.56", date(2024, time.December, 31, 23, 59)),
	}

	for _, p := range []domain.Period{domain.Monthly, domain.Yearly} {
		series := domain.BucketSeries(records, p)
		assert.True(t, domain.SumInRange(records, r).Equal(domain.SeriesTotal(series)), "period %s", p)
	}
}

func TestBucketSeries_EmptyInput(t *testing.T) {
	assert.Empty(t, domain.BucketSeries(nil, domain.Monthly))
	assert.Empty(t, domain.BucketSeries(nil, domain.Daily))
}
