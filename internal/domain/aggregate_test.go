package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func point(ts time.Time, dataType DataType, value string, source DataSource) PassiveDataPoint {
	return PassiveDataPoint{
		ID:           ts.Format(time.RFC3339Nano),
		UserID:       "user-1",
		Timestamp:    ts,
		DataType:     dataType,
		Value:        json.RawMessage(value),
		Source:       source,
		QualityScore: 1.0,
	}
}

func TestAggregateSumsCumulativeTypes(t *testing.T) {
	day := time.Date(2025, time.June, 3, 0, 0, 0, 0, time.UTC)
	points := []PassiveDataPoint{
		point(day.Add(8*time.Hour), DataTypeStepCount, "1000", SourceHealthKit),
		point(day.Add(12*time.Hour), DataTypeStepCount, "1500", SourceHealthKit),
		point(day.Add(20*time.Hour), DataTypeStepCount, "2000", SourceFitbit),
	}

	buckets := Aggregate(points, DataTypeStepCount, AggregateDaily, time.UTC)

	require.Len(t, buckets, 1)
	require.Equal(t, 4500.0, buckets[0].Value)
	require.Equal(t, 3, buckets[0].Count)
	require.Equal(t, day, buckets[0].WindowStart)
	require.Equal(t, day.AddDate(0, 0, 1), buckets[0].WindowEnd)
	require.Equal(t, map[DataSource]int{SourceHealthKit: 2, SourceFitbit: 1}, buckets[0].SourceBreakdown)
}

func TestAggregateAveragesNonCumulativeTypes(t *testing.T) {
	day := time.Date(2025, time.June, 3, 0, 0, 0, 0, time.UTC)
	points := []PassiveDataPoint{
		point(day.Add(1*time.Hour), DataTypeHeartRate, "60", SourceWearable),
		point(day.Add(2*time.Hour), DataTypeHeartRate, "70", SourceWearable),
		point(day.Add(3*time.Hour), DataTypeHeartRate, "80", SourceWearable),
	}

	buckets := Aggregate(points, DataTypeHeartRate, AggregateDaily, time.UTC)

	require.Len(t, buckets, 1)
	require.Equal(t, 70.0, buckets[0].Value)
	require.Equal(t, 3, buckets[0].Count)
}

func TestAggregateHourlyTruncation(t *testing.T) {
	base := time.Date(2025, time.June, 3, 14, 25, 30, 0, time.UTC)
	points := []PassiveDataPoint{
		point(base, DataTypeHeartRate, "60", SourceWearable),
		point(base.Add(10*time.Minute), DataTypeHeartRate, "80", SourceWearable),
		point(base.Add(50*time.Minute), DataTypeHeartRate, "100", SourceWearable),
	}

	buckets := Aggregate(points, DataTypeHeartRate, AggregateHourly, time.UTC)

	require.Len(t, buckets, 2)
	require.Equal(t, time.Date(2025, time.June, 3, 14, 0, 0, 0, time.UTC), buckets[0].WindowStart)
	require.Equal(t, 70.0, buckets[0].Value)
	require.Equal(t, time.Date(2025, time.June, 3, 15, 0, 0, 0, time.UTC), buckets[1].WindowStart)
	require.Equal(t, 100.0, buckets[1].Value)
}

func TestAggregateWeeklyStartsOnMonday(t *testing.T) {
	// 2025-06-05 is a Thursday; its ISO week starts Monday 2025-06-02.
	thursday := time.Date(2025, time.June, 5, 9, 0, 0, 0, time.UTC)
	buckets := Aggregate([]PassiveDataPoint{
		point(thursday, DataTypeStepCount, "500", SourceSmartphone),
	}, DataTypeStepCount, AggregateWeekly, time.UTC)

	require.Len(t, buckets, 1)
	require.Equal(t, time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC), buckets[0].WindowStart)
	require.Equal(t, time.Date(2025, time.June, 9, 0, 0, 0, 0, time.UTC), buckets[0].WindowEnd)
}

func TestAggregateMondayMapsToItsOwnWeek(t *testing.T) {
	monday := time.Date(2025, time.June, 2, 0, 30, 0, 0, time.UTC)
	buckets := Aggregate([]PassiveDataPoint{
		point(monday, DataTypeStepCount, "500", SourceSmartphone),
	}, DataTypeStepCount, AggregateWeekly, time.UTC)

	require.Equal(t, time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC), buckets[0].WindowStart)
}

func TestAggregateMonthlyFirstOfMonth(t *testing.T) {
	points := []PassiveDataPoint{
		point(time.Date(2025, time.December, 20, 8, 0, 0, 0, time.UTC), DataTypeWeight, "80", SourceHealthKit),
		point(time.Date(2026, time.January, 5, 8, 0, 0, 0, time.UTC), DataTypeWeight, "79", SourceHealthKit),
	}

	buckets := Aggregate(points, DataTypeWeight, AggregateMonthly, time.UTC)

	require.Len(t, buckets, 2)
	require.Equal(t, time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC), buckets[0].WindowStart)
	require.Equal(t, time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), buckets[0].WindowEnd)
	require.Equal(t, time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), buckets[1].WindowStart)
}

func TestAggregateSortedAscendingAndIdempotent(t *testing.T) {
	base := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	// Deliberately out of order.
	points := []PassiveDataPoint{
		point(base.AddDate(0, 0, 5), DataTypeStepCount, "300", SourceSmartphone),
		point(base, DataTypeStepCount, "100", SourceSmartphone),
		point(base.AddDate(0, 0, 2), DataTypeStepCount, "200", SourceSmartphone),
	}

	first := Aggregate(points, DataTypeStepCount, AggregateDaily, time.UTC)
	second := Aggregate(points, DataTypeStepCount, AggregateDaily, time.UTC)

	require.Equal(t, first, second)
	require.Len(t, first, 3)
	for i := 1; i < len(first); i++ {
		require.True(t, first[i-1].WindowStart.Before(first[i].WindowStart))
	}
}

func TestAggregateEmptyInput(t *testing.T) {
	buckets := Aggregate(nil, DataTypeStepCount, AggregateDaily, time.UTC)
	require.Empty(t, buckets)
}

func TestNumericValueExtraction(t *testing.T) {
	p := point(time.Now(), DataTypeSleepQuality, `{"value": 7.5, "stage": "rem"}`, SourceHealthKit)
	require.Equal(t, 7.5, p.NumericValue())

	p.Value = json.RawMessage(`42`)
	require.Equal(t, 42.0, p.NumericValue())

	p.Value = json.RawMessage(`{"systolic": 120, "diastolic": 80}`)
	require.Zero(t, p.NumericValue())

	p.Value = json.RawMessage(`"not a number"`)
	require.Zero(t, p.NumericValue())
}

func TestAggregationPeriodDefaults(t *testing.T) {
	require.Equal(t, 24*time.Hour, AggregateHourly.DefaultLookback())
	require.Equal(t, 30*24*time.Hour, AggregateDaily.DefaultLookback())
	require.Equal(t, 90*24*time.Hour, AggregateWeekly.DefaultLookback())
	require.Equal(t, 365*24*time.Hour, AggregateMonthly.DefaultLookback())
}
