package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"example.com/moodtrack/internal/auth"
	"example.com/moodtrack/internal/domain"
	"example.com/moodtrack/internal/observability"
)

func (h *Handler) pointCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.ingestPoint(w, r)
	case http.MethodGet:
		h.listPoints(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) pointByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/passive-data/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing data point id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getPoint(w, r, id)
	case http.MethodPut, http.MethodPatch:
		h.updatePoint(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) ingestPoint(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireScope(w, r, auth.ScopePassiveWrite)
	if !ok {
		return
	}

	var req PointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	point, err := h.passive.Ingest(r.Context(), claims.Subject, req.toInput())
	if err != nil {
		switch {
		case err == domain.ErrDuplicatePoint:
			observability.RecordPointOutcome(observability.OutcomeDuplicate)
		default:
			if _, invalid := domain.IsValidationError(err); invalid {
				observability.RecordPointOutcome(observability.OutcomeInvalid)
			}
		}
		writeDomainError(w, err)
		return
	}

	observability.RecordPointOutcome(observability.OutcomeCreated)
	writeJSON(w, http.StatusCreated, toPointView(*point))
}

func (h *Handler) bulkIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := requireScope(w, r, auth.ScopePassiveWrite)
	if !ok {
		return
	}

	var req BulkPointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	inputs := make([]domain.PointInput, 0, len(req.Points))
	for _, p := range req.Points {
		inputs = append(inputs, p.toInput())
	}

	result, err := h.passive.BulkIngest(r.Context(), claims.Subject, inputs)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	created := make([]PointView, 0, len(result.Created))
	for _, p := range result.Created {
		created = append(created, toPointView(p))
	}
	itemErrors := make([]ItemErrorView, 0, len(result.Errors))
	for _, e := range result.Errors {
		itemErrors = append(itemErrors, ItemErrorView{Index: e.Index, Reason: e.Reason})
	}

	writeJSON(w, http.StatusOK, BulkPointResponse{
		Created:      created,
		Errors:       itemErrors,
		SuccessCount: result.SuccessCount,
		ErrorCount:   result.ErrorCount,
		TotalCount:   result.TotalCount,
	})
}

func (h *Handler) getPoint(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := requireScope(w, r, auth.ScopePassiveRead, auth.ScopePassiveWrite)
	if !ok {
		return
	}

	point, err := h.passive.GetPoint(r.Context(), claims.Subject, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPointView(*point))
}

func (h *Handler) updatePoint(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := requireScope(w, r, auth.ScopePassiveWrite)
	if !ok {
		return
	}

	var req PointUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	point, err := h.passive.UpdatePoint(r.Context(), claims.Subject, id, domain.PointUpdate{
		Value:        req.Value,
		Metadata:     req.Metadata,
		QualityScore: req.QualityScore,
		Processed:    req.Processed,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPointView(*point))
}

func (h *Handler) listPoints(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireScope(w, r, auth.ScopePassiveRead, auth.ScopePassiveWrite)
	if !ok {
		return
	}

	filter := domain.PointFilter{
		DataType: domain.DataType(r.URL.Query().Get("data_type")),
		Source:   domain.DataSource(r.URL.Query().Get("source")),
	}

	var parseErr error
	filter.Start, parseErr = parseTimeParam(r, "start")
	if parseErr != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid start timestamp")
		return
	}
	filter.End, parseErr = parseTimeParam(r, "end")
	if parseErr != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid end timestamp")
		return
	}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			if parsed > 1000 {
				parsed = 1000
			}
			filter.Limit = parsed
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			filter.Offset = parsed
		}
	}

	points, err := h.passive.ListPoints(r.Context(), claims.Subject, filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	items := make([]PointView, 0, len(points))
	for _, p := range points {
		items = append(items, toPointView(p))
	}
	writeJSON(w, http.StatusOK, ListPointsResponse{Items: items})
}

func (h *Handler) aggregate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := requireScope(w, r, auth.ScopePassiveRead, auth.ScopePassiveWrite)
	if !ok {
		return
	}

	dataType := domain.DataType(r.URL.Query().Get("data_type"))
	period := domain.AggregationPeriod(r.URL.Query().Get("period"))
	if period == "" {
		period = domain.AggregateDaily
	}

	start, err := parseTimeParam(r, "start")
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid start timestamp")
		return
	}
	end, err := parseTimeParam(r, "end")
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid end timestamp")
		return
	}

	buckets, err := h.passive.Aggregate(r.Context(), claims.Subject, dataType, period, start, end)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	items := make([]BucketView, 0, len(buckets))
	for _, b := range buckets {
		items = append(items, toBucketView(b))
	}
	writeJSON(w, http.StatusOK, AggregateResponse{
		DataType: string(dataType),
		Period:   string(period),
		Buckets:  items,
	})
}

func (h *Handler) healthMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := requireScope(w, r, auth.ScopePassiveRead, auth.ScopePassiveWrite)
	if !ok {
		return
	}

	raw := r.URL.Query().Get("date")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "date is required")
		return
	}
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		// Full timestamps are also accepted.
		date, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", "invalid date")
			return
		}
	}

	metrics, err := h.passive.DailyHealthMetrics(r.Context(), claims.Subject, date)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, HealthMetricsResponse{
		Date:             metrics.Date,
		SleepDuration:    metrics.SleepDuration,
		SleepQuality:     metrics.SleepQuality,
		StepCount:        metrics.StepCount,
		ExerciseDuration: metrics.ExerciseDuration,
		HeartRateAvg:     metrics.HeartRateAvg,
		ScreenTime:       metrics.ScreenTime,
	})
}

func (h *Handler) unprocessed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	if _, ok := requireScope(w, r, auth.ScopePassiveRead, auth.ScopePassiveWrite); !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	points, err := h.passive.Unprocessed(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	items := make([]PointView, 0, len(points))
	for _, p := range points {
		items = append(items, toPointView(p))
	}
	writeJSON(w, http.StatusOK, ListPointsResponse{Items: items})
}

func (h *Handler) markProcessed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	if _, ok := requireScope(w, r, auth.ScopePassiveWrite); !ok {
		return
	}

	var req MarkProcessedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if len(req.PointIDs) == 0 {
		writeError(w, http.StatusBadRequest, "validation_failed", "point_ids is required")
		return
	}

	count, err := h.passive.MarkProcessed(r.Context(), req.PointIDs)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, MarkProcessedResponse{ProcessedCount: count})
}

func parseTimeParam(r *http.Request, key string) (time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}

// PointRequest is the payload for POST /v1/passive-data.
type PointRequest struct {
	DataType     string          `json:"data_type"`
	Value        json.RawMessage `json:"value"`
	Source       string          `json:"source"`
	Timestamp    time.Time       `json:"timestamp,omitzero"`
	Metadata     map[string]any  `json:"metadata,omitempty"`
	QualityScore *float64        `json:"quality_score,omitempty"`
}

func (p PointRequest) toInput() domain.PointInput {
	return domain.PointInput{
		DataType:     domain.DataType(p.DataType),
		Value:        p.Value,
		Source:       domain.DataSource(p.Source),
		Timestamp:    p.Timestamp,
		Metadata:     p.Metadata,
		QualityScore: p.QualityScore,
	}
}

// BulkPointRequest is the payload for POST /v1/passive-data/bulk.
type BulkPointRequest struct {
	Points []PointRequest `json:"points"`
}

// PointUpdateRequest is the payload for PUT /v1/passive-data/{id}.
type PointUpdateRequest struct {
	Value        json.RawMessage `json:"value,omitempty"`
	Metadata     map[string]any  `json:"metadata,omitempty"`
	QualityScore *float64        `json:"quality_score,omitempty"`
	Processed    *bool           `json:"processed,omitempty"`
}

// PointView exposes full details about a data point.
type PointView struct {
	PointID      string          `json:"point_id"`
	UserID       string          `json:"user_id"`
	Timestamp    time.Time       `json:"timestamp"`
	DataType     string          `json:"data_type"`
	Value        json.RawMessage `json:"value"`
	Source       string          `json:"source"`
	Metadata     map[string]any  `json:"metadata"`
	QualityScore float64         `json:"quality_score"`
	Processed    bool            `json:"processed"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ItemErrorView attributes a bulk failure to its input index.
type ItemErrorView struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// BulkPointResponse reports the partial outcome of a bulk ingest.
type BulkPointResponse struct {
	Created      []PointView     `json:"created"`
	Errors       []ItemErrorView `json:"errors"`
	SuccessCount int             `json:"success_count"`
	ErrorCount   int             `json:"error_count"`
	TotalCount   int             `json:"total_count"`
}

// ListPointsResponse packages point listings.
type ListPointsResponse struct {
	Items []PointView `json:"items"`
}

// BucketView is one aggregation window.
type BucketView struct {
	WindowStart     time.Time      `json:"window_start"`
	WindowEnd       time.Time      `json:"window_end"`
	Value           float64        `json:"value"`
	Count           int            `json:"count"`
	SourceBreakdown map[string]int `json:"source_breakdown"`
}

// AggregateResponse packages aggregation buckets.
type AggregateResponse struct {
	DataType string       `json:"data_type"`
	Period   string       `json:"period"`
	Buckets  []BucketView `json:"buckets"`
}

// HealthMetricsResponse summarizes one day's health points.
type HealthMetricsResponse struct {
	Date             string   `json:"date"`
	SleepDuration    *float64 `json:"sleep_duration,omitempty"`
	SleepQuality     *float64 `json:"sleep_quality,omitempty"`
	StepCount        *int     `json:"step_count,omitempty"`
	ExerciseDuration *float64 `json:"exercise_duration,omitempty"`
	HeartRateAvg     *float64 `json:"heart_rate_avg,omitempty"`
	ScreenTime       *float64 `json:"screen_time,omitempty"`
}

// MarkProcessedRequest names points consumed by the downstream pipeline.
type MarkProcessedRequest struct {
	PointIDs []string `json:"point_ids"`
}

// MarkProcessedResponse reports how many points changed state.
type MarkProcessedResponse struct {
	ProcessedCount int64 `json:"processed_count"`
}

func toPointView(p domain.PassiveDataPoint) PointView {
	metadata := p.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	return PointView{
		PointID:      p.ID,
		UserID:       p.UserID,
		Timestamp:    p.Timestamp,
		DataType:     string(p.DataType),
		Value:        p.Value,
		Source:       string(p.Source),
		Metadata:     metadata,
		QualityScore: p.QualityScore,
		Processed:    p.Processed,
		CreatedAt:    p.CreatedAt,
	}
}

func toBucketView(b domain.AggregationBucket) BucketView {
	breakdown := make(map[string]int, len(b.SourceBreakdown))
	for source, count := range b.SourceBreakdown {
		breakdown[string(source)] = count
	}
	return BucketView{
		WindowStart:     b.WindowStart,
		WindowEnd:       b.WindowEnd,
		Value:           b.Value,
		Count:           b.Count,
		SourceBreakdown: breakdown,
	}
}
