package domain

import (
	"sort"
	"time"
)

// AggregationPeriod selects the bucket width for passive data aggregation.
type AggregationPeriod string

const (
	AggregateHourly  AggregationPeriod = "hourly"
	AggregateDaily   AggregationPeriod = "daily"
	AggregateWeekly  AggregationPeriod = "weekly"
	AggregateMonthly AggregationPeriod = "monthly"
)

// Valid reports whether the period is supported.
func (p AggregationPeriod) Valid() bool {
	switch p {
	case AggregateHourly, AggregateDaily, AggregateWeekly, AggregateMonthly:
		return true
	}
	return false
}

// DefaultLookback returns the window length used when the caller omits a
// start time.
func (p AggregationPeriod) DefaultLookback() time.Duration {
	switch p {
	case AggregateHourly:
		return 24 * time.Hour
	case AggregateDaily:
		return 30 * 24 * time.Hour
	case AggregateWeekly:
		return 90 * 24 * time.Hour
	default: // monthly
		return 365 * 24 * time.Hour
	}
}

// AggregationBucket is one reduced time window of passive data points.
// Derived, never persisted.
type AggregationBucket struct {
	DataType        DataType
	Period          AggregationPeriod
	WindowStart     time.Time
	WindowEnd       time.Time
	Value           float64
	Count           int
	SourceBreakdown map[DataSource]int
}

// Aggregate buckets points into period windows and reduces each bucket:
// cumulative types (counts) sum, everything else averages. Buckets with no
// contributing points are omitted, and the result is ordered ascending by
// window start. Calendar boundaries are computed in loc.
func Aggregate(points []PassiveDataPoint, dataType DataType, period AggregationPeriod, loc *time.Location) []AggregationBucket {
	buckets := make(map[time.Time]*AggregationBucket)
	sums := make(map[time.Time]float64)

	for _, p := range points {
		start := bucketStart(p.Timestamp, period, loc)
		b, ok := buckets[start]
		if !ok {
			b = &AggregationBucket{
				DataType:        dataType,
				Period:          period,
				WindowStart:     start,
				WindowEnd:       bucketEnd(start, period),
				SourceBreakdown: make(map[DataSource]int),
			}
			buckets[start] = b
		}
		sums[start] += p.NumericValue()
		b.Count++
		b.SourceBreakdown[p.Source]++
	}

	result := make([]AggregationBucket, 0, len(buckets))
	for start, b := range buckets {
		if dataType.Cumulative() {
			b.Value = sums[start]
		} else {
			b.Value = sums[start] / float64(b.Count)
		}
		result = append(result, *b)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].WindowStart.Before(result[j].WindowStart)
	})
	return result
}

// bucketStart truncates a timestamp to its window start: the hour, the
// calendar day, the Monday on or before it, or the first of the month.
func bucketStart(t time.Time, period AggregationPeriod, loc *time.Location) time.Time {
	t = t.In(loc)
	switch period {
	case AggregateHourly:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, loc)
	case AggregateDaily:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	case AggregateWeekly:
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
		// ISO weeks start on Monday; Go's Sunday is 0.
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	default: // monthly
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
	}
}

func bucketEnd(start time.Time, period AggregationPeriod) time.Time {
	switch period {
	case AggregateHourly:
		return start.Add(time.Hour)
	case AggregateDaily:
		return start.AddDate(0, 0, 1)
	case AggregateWeekly:
		return start.AddDate(0, 0, 7)
	default: // monthly
		return start.AddDate(0, 1, 0)
	}
}
