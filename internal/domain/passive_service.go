package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PassiveDataRepository captures the persistence operations the ingestion
// and aggregation engine needs from the record store.
type PassiveDataRepository interface {
	Insert(ctx context.Context, point PassiveDataPoint) error
	InsertBatch(ctx context.Context, points []PassiveDataPoint) error
	Get(ctx context.Context, userID, pointID string) (*PassiveDataPoint, error)
	// FindInWindow returns points for the same user, type, and source whose
	// timestamps fall in [start, end].
	FindInWindow(ctx context.Context, userID string, dataType DataType, source DataSource, start, end time.Time) ([]PassiveDataPoint, error)
	// List returns points matching the filter ordered by timestamp
	// descending.
	List(ctx context.Context, userID string, filter PointFilter) ([]PassiveDataPoint, error)
	Update(ctx context.Context, point PassiveDataPoint) error
	MarkProcessed(ctx context.Context, pointIDs []string) (int64, error)
	// ListUnprocessed returns unprocessed points across users ordered by
	// timestamp ascending.
	ListUnprocessed(ctx context.Context, limit int) ([]PassiveDataPoint, error)
}

// aggregationFetchLimit bounds how many points one aggregation call reads.
const aggregationFetchLimit = 10000

// PassiveDataService orchestrates ingestion, deduplication, aggregation, and
// the processing pipeline for passive data points.
type PassiveDataService struct {
	repo PassiveDataRepository
	loc  *time.Location
	now  func() time.Time
}

// NewPassiveDataService constructs a PassiveDataService.
func NewPassiveDataService(repo PassiveDataRepository, loc *time.Location) *PassiveDataService {
	if loc == nil {
		loc = time.UTC
	}
	return &PassiveDataService{repo: repo, loc: loc, now: time.Now}
}

// Ingest validates a single point, rejects in-window duplicates, and
// persists it. Validation failures and duplicates are distinct outcomes:
// ValidationError is caller-correctable, ErrDuplicatePoint means dropping
// the point was correct.
func (s *PassiveDataService) Ingest(ctx context.Context, userID string, input PointInput) (*PassiveDataPoint, error) {
	now := s.now()
	if err := input.Validate(now); err != nil {
		return nil, err
	}

	dup, err := s.isDuplicate(ctx, userID, input)
	if err != nil {
		return nil, err
	}
	if dup {
		return nil, ErrDuplicatePoint
	}

	point := s.buildPoint(userID, input, now)
	if err := s.repo.Insert(ctx, point); err != nil {
		return nil, err
	}
	return &point, nil
}

// ItemError attributes a bulk failure to its input index.
type ItemError struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// BulkIngestResult reports the partial outcome of a bulk ingest.
type BulkIngestResult struct {
	Created      []PassiveDataPoint
	Errors       []ItemError
	SuccessCount int
	ErrorCount   int
	TotalCount   int
}

// BulkIngest processes each item independently: one bad item never aborts
// the batch. Items are handled sequentially so error attribution stays
// deterministic.
func (s *PassiveDataService) BulkIngest(ctx context.Context, userID string, inputs []PointInput) (BulkIngestResult, error) {
	result := BulkIngestResult{TotalCount: len(inputs)}

	for i, input := range inputs {
		now := s.now()
		if err := input.Validate(now); err != nil {
			result.Errors = append(result.Errors, ItemError{Index: i, Reason: err.Error()})
			continue
		}

		dup, err := s.isDuplicate(ctx, userID, input)
		if err != nil {
			return result, fmt.Errorf("duplicate check for item %d: %w", i, err)
		}
		if dup {
			result.Errors = append(result.Errors, ItemError{Index: i, Reason: ErrDuplicatePoint.Error()})
			continue
		}

		result.Created = append(result.Created, s.buildPoint(userID, input, now))
	}

	if len(result.Created) > 0 {
		if err := s.repo.InsertBatch(ctx, result.Created); err != nil {
			return BulkIngestResult{TotalCount: len(inputs)}, err
		}
	}

	result.SuccessCount = len(result.Created)
	result.ErrorCount = len(result.Errors)
	return result, nil
}

func (s *PassiveDataService) buildPoint(userID string, input PointInput, now time.Time) PassiveDataPoint {
	timestamp := input.Timestamp
	if timestamp.IsZero() {
		timestamp = now
	}
	quality := 1.0
	if input.QualityScore != nil {
		quality = *input.QualityScore
	}
	metadata := input.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	return PassiveDataPoint{
		ID:           uuid.NewString(),
		UserID:       userID,
		Timestamp:    timestamp,
		DataType:     input.DataType,
		Value:        input.Value,
		Source:       input.Source,
		Metadata:     metadata,
		QualityScore: quality,
		Processed:    false,
		CreatedAt:    now,
	}
}

// isDuplicate checks the persisted points inside the dedupe window. It is
// read-only; rejection happens in the caller.
func (s *PassiveDataService) isDuplicate(ctx context.Context, userID string, input PointInput) (bool, error) {
	timestamp := input.Timestamp
	if timestamp.IsZero() {
		timestamp = s.now()
	}

	existing, err := s.repo.FindInWindow(ctx, userID, input.DataType, input.Source,
		timestamp.Add(-DedupeWindow), timestamp.Add(DedupeWindow))
	if err != nil {
		return false, err
	}
	return IsDuplicate(input, existing), nil
}

// GetPoint fetches a single point by ID.
func (s *PassiveDataService) GetPoint(ctx context.Context, userID, pointID string) (*PassiveDataPoint, error) {
	point, err := s.repo.Get(ctx, userID, pointID)
	if err != nil {
		return nil, err
	}
	if point == nil {
		return nil, ErrPointNotFound
	}
	return point, nil
}

// UpdatePoint merges supplied fields onto an existing point.
func (s *PassiveDataService) UpdatePoint(ctx context.Context, userID, pointID string, update PointUpdate) (*PassiveDataPoint, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}

	point, err := s.repo.Get(ctx, userID, pointID)
	if err != nil {
		return nil, err
	}
	if point == nil {
		return nil, ErrPointNotFound
	}

	update.apply(point)
	if err := s.repo.Update(ctx, *point); err != nil {
		return nil, err
	}
	return point, nil
}

// ListPoints fetches points matching the filter.
func (s *PassiveDataService) ListPoints(ctx context.Context, userID string, filter PointFilter) ([]PassiveDataPoint, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	return s.repo.List(ctx, userID, filter)
}

// Aggregate buckets one data type's points over the window. Omitted start
// and end times fall back to the period's default lookback ending now.
func (s *PassiveDataService) Aggregate(ctx context.Context, userID string, dataType DataType, period AggregationPeriod, start, end time.Time) ([]AggregationBucket, error) {
	verr := &ValidationError{}
	if !dataType.Valid() {
		verr.add("data_type", "invalid data type: "+string(dataType))
	}
	if !period.Valid() {
		verr.add("period", "must be one of hourly, daily, weekly, monthly")
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	if end.IsZero() {
		end = s.now()
	}
	if start.IsZero() {
		start = end.Add(-period.DefaultLookback())
	}

	points, err := s.repo.List(ctx, userID, PointFilter{
		DataType: dataType,
		Start:    start,
		End:      end,
		Limit:    aggregationFetchLimit,
	})
	if err != nil {
		return nil, err
	}
	return Aggregate(points, dataType, period, s.loc), nil
}

// HealthMetrics summarizes one calendar day's health-related points.
type HealthMetrics struct {
	Date             string
	SleepDuration    *float64
	SleepQuality     *float64
	StepCount        *int
	ExerciseDuration *float64
	HeartRateAvg     *float64
	ScreenTime       *float64
}

// DailyHealthMetrics extracts the day's summary metrics. A zero date means
// today.
func (s *PassiveDataService) DailyHealthMetrics(ctx context.Context, userID string, date time.Time) (HealthMetrics, error) {
	if date.IsZero() {
		date = s.now()
	}
	dayStart := civilDate(date, s.loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	points, err := s.repo.List(ctx, userID, PointFilter{Start: dayStart, End: dayEnd, Limit: 1000})
	if err != nil {
		return HealthMetrics{}, err
	}

	metrics := HealthMetrics{Date: dayStart.Format("2006-01-02")}
	var heartRates []float64

	for _, p := range points {
		v := p.NumericValue()
		switch p.DataType {
		case DataTypeSleepDuration:
			metrics.SleepDuration = &v
		case DataTypeSleepQuality:
			metrics.SleepQuality = &v
		case DataTypeStepCount:
			steps := int(v)
			metrics.StepCount = &steps
		case DataTypeExerciseDuration:
			metrics.ExerciseDuration = &v
		case DataTypeHeartRate:
			heartRates = append(heartRates, v)
		case DataTypeScreenTime:
			metrics.ScreenTime = &v
		}
	}

	if len(heartRates) > 0 {
		avg := mean(heartRates)
		metrics.HeartRateAvg = &avg
	}
	return metrics, nil
}

// MarkProcessed flags the given points as consumed by the downstream
// pipeline and returns how many rows changed.
func (s *PassiveDataService) MarkProcessed(ctx context.Context, pointIDs []string) (int64, error) {
	if len(pointIDs) == 0 {
		return 0, nil
	}
	return s.repo.MarkProcessed(ctx, pointIDs)
}

// Unprocessed lists points awaiting downstream processing, oldest first.
func (s *PassiveDataService) Unprocessed(ctx context.Context, limit int) ([]PassiveDataPoint, error) {
	if limit <= 0 {
		limit = 1000
	}
	return s.repo.ListUnprocessed(ctx, limit)
}
