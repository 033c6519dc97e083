package domain

import (
	"context"
	"encoding/json"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// stubPointRepo keeps passive data points in memory for service tests.
type stubPointRepo struct {
	points []PassiveDataPoint
}

func (r *stubPointRepo) Insert(_ context.Context, point PassiveDataPoint) error {
	r.points = append(r.points, point)
	return nil
}

func (r *stubPointRepo) InsertBatch(_ context.Context, points []PassiveDataPoint) error {
	r.points = append(r.points, points...)
	return nil
}

func (r *stubPointRepo) Get(_ context.Context, userID, pointID string) (*PassiveDataPoint, error) {
	for i := range r.points {
		if r.points[i].UserID == userID && r.points[i].ID == pointID {
			p := r.points[i]
			return &p, nil
		}
	}
	return nil, nil
}

func (r *stubPointRepo) FindInWindow(_ context.Context, userID string, dataType DataType, source DataSource, start, end time.Time) ([]PassiveDataPoint, error) {
	var out []PassiveDataPoint
	for _, p := range r.points {
		if p.UserID == userID && p.DataType == dataType && p.Source == source &&
			!p.Timestamp.Before(start) && !p.Timestamp.After(end) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *stubPointRepo) List(_ context.Context, userID string, filter PointFilter) ([]PassiveDataPoint, error) {
	var out []PassiveDataPoint
	for _, p := range r.points {
		if p.UserID != userID {
			continue
		}
		if filter.DataType != "" && p.DataType != filter.DataType {
			continue
		}
		if filter.Source != "" && p.Source != filter.Source {
			continue
		}
		if !filter.Start.IsZero() && p.Timestamp.Before(filter.Start) {
			continue
		}
		if !filter.End.IsZero() && p.Timestamp.After(filter.End) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *stubPointRepo) Update(_ context.Context, point PassiveDataPoint) error {
	for i := range r.points {
		if r.points[i].ID == point.ID {
			r.points[i] = point
			return nil
		}
	}
	return ErrPointNotFound
}

func (r *stubPointRepo) MarkProcessed(_ context.Context, pointIDs []string) (int64, error) {
	ids := make(map[string]struct{}, len(pointIDs))
	for _, id := range pointIDs {
		ids[id] = struct{}{}
	}
	var count int64
	for i := range r.points {
		if _, ok := ids[r.points[i].ID]; ok && !r.points[i].Processed {
			r.points[i].Processed = true
			count++
		}
	}
	return count, nil
}

func (r *stubPointRepo) ListUnprocessed(_ context.Context, limit int) ([]PassiveDataPoint, error) {
	var out []PassiveDataPoint
	for _, p := range r.points {
		if !p.Processed {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func newPassiveServiceAt(repo *stubPointRepo, now time.Time) *PassiveDataService {
	svc := NewPassiveDataService(repo, time.UTC)
	svc.now = func() time.Time { return now }
	return svc
}

func heartRateInput(value string, ts time.Time) PointInput {
	return PointInput{
		DataType:  DataTypeHeartRate,
		Value:     json.RawMessage(value),
		Source:    SourceWearable,
		Timestamp: ts,
	}
}

func TestIngestAppliesDefaults(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, time.June, 10, 8, 0, 0, 0, time.UTC)
	svc := newPassiveServiceAt(&stubPointRepo{}, now)

	created, err := svc.Ingest(ctx, "user-1", PointInput{
		DataType: DataTypeHeartRate,
		Value:    json.RawMessage(`72`),
		Source:   SourceWearable,
	})
	require.NoError(t, err)
	require.Equal(t, 1.0, created.QualityScore)
	require.False(t, created.Processed)
	require.Equal(t, now, created.Timestamp)
	require.NotEmpty(t, created.ID)
}

func TestIngestRejectsDuplicateInWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, time.June, 10, 8, 0, 0, 0, time.UTC)
	svc := newPassiveServiceAt(&stubPointRepo{}, now)

	_, err := svc.Ingest(ctx, "user-1", heartRateInput(`72`, now.Add(-time.Minute)))
	require.NoError(t, err)

	_, err = svc.Ingest(ctx, "user-1", heartRateInput(`72`, now))
	require.ErrorIs(t, err, ErrDuplicatePoint)
}

func TestIngestAllowsDistinctValueInWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, time.June, 10, 8, 0, 0, 0, time.UTC)
	repo := &stubPointRepo{}
	svc := newPassiveServiceAt(repo, now)

	_, err := svc.Ingest(ctx, "user-1", heartRateInput(`72`, now.Add(-time.Minute)))
	require.NoError(t, err)

	_, err = svc.Ingest(ctx, "user-1", heartRateInput(`85`, now))
	require.NoError(t, err)
	require.Len(t, repo.points, 2)
}

func TestIngestAllowsSameValueOutsideWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, time.June, 10, 8, 0, 0, 0, time.UTC)
	svc := newPassiveServiceAt(&stubPointRepo{}, now)

	_, err := svc.Ingest(ctx, "user-1", heartRateInput(`72`, now.Add(-10*time.Minute)))
	require.NoError(t, err)

	_, err = svc.Ingest(ctx, "user-1", heartRateInput(`72`, now))
	require.NoError(t, err)
}

func TestIngestValidationFailures(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, time.June, 10, 8, 0, 0, 0, time.UTC)
	svc := newPassiveServiceAt(&stubPointRepo{}, now)

	cases := []struct {
		name  string
		input PointInput
		field string
	}{
		{
			name:  "unknown type",
			input: PointInput{DataType: "mood_swings", Value: json.RawMessage(`1`), Source: SourceWearable},
			field: "data_type",
		},
		{
			name:  "unknown source",
			input: PointInput{DataType: DataTypeHeartRate, Value: json.RawMessage(`72`), Source: "carrier_pigeon"},
			field: "source",
		},
		{
			name:  "heart rate out of range",
			input: heartRateInput(`300`, now),
			field: "value",
		},
		{
			name:  "future timestamp",
			input: heartRateInput(`72`, now.Add(time.Hour)),
			field: "timestamp",
		},
		{
			name:  "too old",
			input: heartRateInput(`72`, now.AddDate(-1, 0, -1)),
			field: "timestamp",
		},
		{
			name: "quality score out of range",
			input: PointInput{
				DataType: DataTypeHeartRate, Value: json.RawMessage(`72`),
				Source: SourceWearable, QualityScore: f(1.5),
			},
			field: "quality_score",
		},
		{
			name:  "sleep duration over 24h",
			input: PointInput{DataType: DataTypeSleepDuration, Value: json.RawMessage(`26`), Source: SourceHealthKit},
			field: "value",
		},
		{
			name:  "step count not an integer",
			input: PointInput{DataType: DataTypeStepCount, Value: json.RawMessage(`10.5`), Source: SourceSmartphone},
			field: "value",
		},
		{
			name:  "blood pressure missing diastolic",
			input: PointInput{DataType: DataTypeBloodPressure, Value: json.RawMessage(`{"systolic":120}`), Source: SourceHealthKit},
			field: "value",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Ingest(ctx, "user-1", tc.input)
			verr, ok := IsValidationError(err)
			require.True(t, ok, "expected validation error, got %v", err)
			require.Equal(t, tc.field, verr.Fields[0].Field)
		})
	}
}

func TestBulkIngestPartialSuccess(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, time.June, 10, 8, 0, 0, 0, time.UTC)
	repo := &stubPointRepo{
		points: []PassiveDataPoint{
			point(now.Add(-time.Minute), DataTypeHeartRate, `72`, SourceWearable),
		},
	}
	svc := newPassiveServiceAt(repo, now)

	result, err := svc.BulkIngest(ctx, "user-1", []PointInput{
		heartRateInput(`80`, now),         // ok
		heartRateInput(`999`, now),        // validation failure
		heartRateInput(`72`, now),         // duplicate of the persisted point
		{DataType: DataTypeStepCount, Value: json.RawMessage(`1200`), Source: SourceSmartphone, Timestamp: now}, // ok
	})
	require.NoError(t, err)

	require.Equal(t, 2, result.SuccessCount)
	require.Equal(t, 2, result.ErrorCount)
	require.Equal(t, 4, result.TotalCount)
	require.Len(t, result.Created, 2)

	require.Equal(t, 1, result.Errors[0].Index)
	require.Contains(t, result.Errors[0].Reason, "heart rate")
	require.Equal(t, 2, result.Errors[1].Index)
	require.Contains(t, result.Errors[1].Reason, "duplicate")

	// The successful subset was persisted.
	require.Len(t, repo.points, 3)
}

func TestBulkIngestEmptyBatch(t *testing.T) {
	ctx := context.Background()
	svc := newPassiveServiceAt(&stubPointRepo{}, time.Now())

	result, err := svc.BulkIngest(ctx, "user-1", nil)
	require.NoError(t, err)
	require.Zero(t, result.TotalCount)
	require.Empty(t, result.Created)
}

func TestUpdatePointPartialMerge(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, time.June, 10, 8, 0, 0, 0, time.UTC)
	repo := &stubPointRepo{}
	svc := newPassiveServiceAt(repo, now)

	created, err := svc.Ingest(ctx, "user-1", heartRateInput(`72`, now))
	require.NoError(t, err)

	quality := 0.4
	processed := true
	updated, err := svc.UpdatePoint(ctx, "user-1", created.ID, PointUpdate{
		QualityScore: &quality,
		Processed:    &processed,
	})
	require.NoError(t, err)
	require.Equal(t, 0.4, updated.QualityScore)
	require.True(t, updated.Processed)
	require.JSONEq(t, `72`, string(updated.Value))
}

func TestUpdatePointNotFound(t *testing.T) {
	ctx := context.Background()
	svc := newPassiveServiceAt(&stubPointRepo{}, time.Now())

	_, err := svc.UpdatePoint(ctx, "user-1", "missing", PointUpdate{})
	require.ErrorIs(t, err, ErrPointNotFound)
}

func TestMarkProcessedCounts(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, time.June, 10, 8, 0, 0, 0, time.UTC)
	repo := &stubPointRepo{}
	svc := newPassiveServiceAt(repo, now)

	a, err := svc.Ingest(ctx, "user-1", heartRateInput(`60`, now.Add(-time.Hour)))
	require.NoError(t, err)
	b, err := svc.Ingest(ctx, "user-1", heartRateInput(`90`, now))
	require.NoError(t, err)

	count, err := svc.MarkProcessed(ctx, []string{a.ID, b.ID, "missing"})
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	unprocessed, err := svc.Unprocessed(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, unprocessed)
}

func TestAggregateThroughServiceDefaultsWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC)
	repo := &stubPointRepo{
		points: []PassiveDataPoint{
			point(now.Add(-2*time.Hour), DataTypeStepCount, `1000`, SourceSmartphone),
			point(now.Add(-1*time.Hour), DataTypeStepCount, `1500`, SourceSmartphone),
			// Outside the 30-day daily default window.
			point(now.AddDate(0, 0, -40), DataTypeStepCount, `9999`, SourceSmartphone),
		},
	}
	svc := newPassiveServiceAt(repo, now)

	buckets, err := svc.Aggregate(ctx, "user-1", DataTypeStepCount, AggregateDaily, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	require.Equal(t, 2500.0, buckets[0].Value)
}

func TestAggregateThroughServiceValidatesArguments(t *testing.T) {
	ctx := context.Background()
	svc := newPassiveServiceAt(&stubPointRepo{}, time.Now())

	_, err := svc.Aggregate(ctx, "user-1", "nonsense", "fortnightly", time.Time{}, time.Time{})
	verr, ok := IsValidationError(err)
	require.True(t, ok)
	require.Len(t, verr.Fields, 2)
}

func TestDailyHealthMetrics(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, time.June, 10, 21, 0, 0, 0, time.UTC)
	day := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)
	repo := &stubPointRepo{
		points: []PassiveDataPoint{
			point(day.Add(7*time.Hour), DataTypeSleepDuration, `7.5`, SourceHealthKit),
			point(day.Add(9*time.Hour), DataTypeHeartRate, `60`, SourceWearable),
			point(day.Add(15*time.Hour), DataTypeHeartRate, `80`, SourceWearable),
			point(day.Add(20*time.Hour), DataTypeStepCount, `8000`, SourceSmartphone),
			// Previous day must not leak in.
			point(day.Add(-2*time.Hour), DataTypeScreenTime, `6`, SourceScreenTimeAPI),
		},
	}
	svc := newPassiveServiceAt(repo, now)

	metrics, err := svc.DailyHealthMetrics(ctx, "user-1", now)
	require.NoError(t, err)
	require.Equal(t, "2025-06-10", metrics.Date)
	require.Equal(t, 7.5, *metrics.SleepDuration)
	require.Equal(t, 70.0, *metrics.HeartRateAvg)
	require.Equal(t, 8000, *metrics.StepCount)
	require.Nil(t, metrics.ScreenTime)
	require.Nil(t, metrics.ExerciseDuration)
}
