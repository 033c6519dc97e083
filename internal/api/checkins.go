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
	"example.com/moodtrack/internal/persistence"
)

func (h *Handler) checkinCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createCheckin(w, r)
	case http.MethodGet:
		h.listCheckins(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) checkinByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/checkins/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing check-in id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getCheckin(w, r, id)
	case http.MethodPut, http.MethodPatch:
		h.updateCheckin(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) createCheckin(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireScope(w, r, auth.ScopeCheckinsWrite)
	if !ok {
		return
	}

	var req CheckinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	checkin, err := h.checkins.CreateCheckin(r.Context(), claims.Subject, domain.CheckinInput{
		MoodRating:        req.MoodRating,
		MoodCategory:      domain.MoodCategory(req.MoodCategory),
		Keywords:          req.Keywords,
		Notes:             req.Notes,
		Location:          req.Location,
		Weather:           req.Weather,
		EnergyLevel:       req.EnergyLevel,
		StressLevel:       req.StressLevel,
		SleepQuality:      req.SleepQuality,
		SocialInteraction: req.SocialInteraction,
	})
	if err != nil {
		if err == domain.ErrCheckinExists {
			observability.RecordCheckinConflict()
		}
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toCheckinView(*checkin))
}

func (h *Handler) updateCheckin(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := requireScope(w, r, auth.ScopeCheckinsWrite)
	if !ok {
		return
	}

	var req CheckinUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	var category *domain.MoodCategory
	if req.MoodCategory != nil {
		c := domain.MoodCategory(*req.MoodCategory)
		category = &c
	}

	checkin, err := h.checkins.UpdateCheckin(r.Context(), claims.Subject, id, domain.CheckinUpdate{
		MoodRating:        req.MoodRating,
		MoodCategory:      category,
		Keywords:          req.Keywords,
		Notes:             req.Notes,
		Location:          req.Location,
		Weather:           req.Weather,
		EnergyLevel:       req.EnergyLevel,
		StressLevel:       req.StressLevel,
		SleepQuality:      req.SleepQuality,
		SocialInteraction: req.SocialInteraction,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toCheckinView(*checkin))
}

func (h *Handler) getCheckin(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := requireScope(w, r, auth.ScopeCheckinsRead, auth.ScopeCheckinsWrite)
	if !ok {
		return
	}

	checkin, err := h.checkins.GetCheckin(r.Context(), claims.Subject, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toCheckinView(*checkin))
}

func (h *Handler) todaysCheckin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := requireScope(w, r, auth.ScopeCheckinsRead, auth.ScopeCheckinsWrite)
	if !ok {
		return
	}

	checkin, err := h.checkins.TodaysCheckin(r.Context(), claims.Subject)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toCheckinView(*checkin))
}

func (h *Handler) listCheckins(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireScope(w, r, auth.ScopeCheckinsRead, auth.ScopeCheckinsWrite)
	if !ok {
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			if parsed > 100 {
				parsed = 100
			}
			limit = parsed
		}
	}

	cursor, err := persistence.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	checkins, next, err := h.checkins.ListCheckins(r.Context(), claims.Subject, cursor, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	items := make([]CheckinView, 0, len(checkins))
	for _, c := range checkins {
		items = append(items, toCheckinView(c))
	}

	writeJSON(w, http.StatusOK, ListCheckinsResponse{
		Items:      items,
		NextCursor: persistence.EncodeCursor(next),
	})
}

func (h *Handler) streak(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := requireScope(w, r, auth.ScopeCheckinsRead, auth.ScopeCheckinsWrite)
	if !ok {
		return
	}

	result, err := h.checkins.Streak(r.Context(), claims.Subject)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := StreakResponse{
		CurrentStreak:        result.CurrentStreak,
		LongestStreak:        result.LongestStreak,
		TotalCheckins:        result.TotalCheckins,
		DaysSinceLastCheckin: result.DaysSinceLastCheckin,
	}
	if result.StreakStartDate != nil {
		formatted := result.StreakStartDate.Format("2006-01-02")
		resp.StreakStartDate = &formatted
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) moodAnalytics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := requireScope(w, r, auth.ScopeCheckinsRead, auth.ScopeCheckinsWrite)
	if !ok {
		return
	}

	analytics, err := h.checkins.MoodAnalytics(r.Context(), claims.Subject, analyticsPeriod(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAnalyticsView(analytics))
}

func (h *Handler) moodTrends(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := requireScope(w, r, auth.ScopeCheckinsRead, auth.ScopeCheckinsWrite)
	if !ok {
		return
	}

	trends, err := h.checkins.MoodTrends(r.Context(), claims.Subject, analyticsPeriod(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	items := make([]TrendPointView, 0, len(trends))
	for _, p := range trends {
		items = append(items, toTrendPointView(p))
	}
	writeJSON(w, http.StatusOK, TrendsResponse{Items: items})
}

func analyticsPeriod(r *http.Request) domain.AnalyticsPeriod {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = string(domain.PeriodWeekly)
	}
	return domain.AnalyticsPeriod(period)
}

// CheckinRequest is the payload for POST /v1/checkins.
type CheckinRequest struct {
	MoodRating        float64  `json:"mood_rating"`
	MoodCategory      string   `json:"mood_category,omitempty"`
	Keywords          []string `json:"keywords,omitempty"`
	Notes             string   `json:"notes,omitempty"`
	Location          string   `json:"location,omitempty"`
	Weather           string   `json:"weather,omitempty"`
	EnergyLevel       *float64 `json:"energy_level,omitempty"`
	StressLevel       *float64 `json:"stress_level,omitempty"`
	SleepQuality      *float64 `json:"sleep_quality,omitempty"`
	SocialInteraction *float64 `json:"social_interaction,omitempty"`
}

// CheckinUpdateRequest is the payload for PUT /v1/checkins/{id}. Absent
// fields are left unchanged.
type CheckinUpdateRequest struct {
	MoodRating        *float64 `json:"mood_rating"`
	MoodCategory      *string  `json:"mood_category"`
	Keywords          []string `json:"keywords"`
	Notes             *string  `json:"notes"`
	Location          *string  `json:"location"`
	Weather           *string  `json:"weather"`
	EnergyLevel       *float64 `json:"energy_level"`
	StressLevel       *float64 `json:"stress_level"`
	SleepQuality      *float64 `json:"sleep_quality"`
	SocialInteraction *float64 `json:"social_interaction"`
}

// CheckinView exposes full details about a check-in.
type CheckinView struct {
	CheckinID         string    `json:"checkin_id"`
	UserID            string    `json:"user_id"`
	Timestamp         time.Time `json:"timestamp"`
	MoodRating        float64   `json:"mood_rating"`
	MoodCategory      string    `json:"mood_category,omitempty"`
	Keywords          []string  `json:"keywords"`
	Notes             string    `json:"notes,omitempty"`
	Location          string    `json:"location,omitempty"`
	Weather           string    `json:"weather,omitempty"`
	EnergyLevel       *float64  `json:"energy_level,omitempty"`
	StressLevel       *float64  `json:"stress_level,omitempty"`
	SleepQuality      *float64  `json:"sleep_quality,omitempty"`
	SocialInteraction *float64  `json:"social_interaction,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ListCheckinsResponse packages list results.
type ListCheckinsResponse struct {
	Items      []CheckinView `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// StreakResponse reports consecutive-day streak stats.
type StreakResponse struct {
	CurrentStreak        int     `json:"current_streak"`
	LongestStreak        int     `json:"longest_streak"`
	TotalCheckins        int     `json:"total_checkins"`
	StreakStartDate      *string `json:"streak_start_date,omitempty"`
	DaysSinceLastCheckin int     `json:"days_since_last_checkin"`
}

// TrendPointView is one charting sample.
type TrendPointView struct {
	Date         string   `json:"date"`
	MoodRating   float64  `json:"mood_rating"`
	EnergyLevel  *float64 `json:"energy_level,omitempty"`
	StressLevel  *float64 `json:"stress_level,omitempty"`
	SleepQuality *float64 `json:"sleep_quality,omitempty"`
}

// TrendsResponse packages trend samples.
type TrendsResponse struct {
	Items []TrendPointView `json:"items"`
}

// MoodRangeView holds the observed rating extremes.
type MoodRangeView struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// AnalyticsResponse is the derived mood summary for a period.
type AnalyticsResponse struct {
	Period              string            `json:"period"`
	AverageMood         float64           `json:"average_mood"`
	MoodRange           MoodRangeView     `json:"mood_range"`
	MostCommonCategory  string            `json:"most_common_category,omitempty"`
	TrendDirection      string            `json:"trend_direction"`
	TrendData           []TrendPointView  `json:"trend_data"`
	KeywordFrequency    map[string]int    `json:"keyword_frequency"`
	CorrelationInsights map[string]string `json:"correlation_insights"`
}

func toCheckinView(c domain.CheckIn) CheckinView {
	keywords := c.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	return CheckinView{
		CheckinID:         c.ID,
		UserID:            c.UserID,
		Timestamp:         c.Timestamp,
		MoodRating:        c.MoodRating,
		MoodCategory:      string(c.MoodCategory),
		Keywords:          keywords,
		Notes:             c.Notes,
		Location:          c.Location,
		Weather:           c.Weather,
		EnergyLevel:       c.EnergyLevel,
		StressLevel:       c.StressLevel,
		SleepQuality:      c.SleepQuality,
		SocialInteraction: c.SocialInteraction,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
}

func toTrendPointView(p domain.MoodTrendPoint) TrendPointView {
	return TrendPointView{
		Date:         p.Date,
		MoodRating:   p.MoodRating,
		EnergyLevel:  p.EnergyLevel,
		StressLevel:  p.StressLevel,
		SleepQuality: p.SleepQuality,
	}
}

func toAnalyticsView(a domain.MoodAnalytics) AnalyticsResponse {
	trend := make([]TrendPointView, 0, len(a.TrendData))
	for _, p := range a.TrendData {
		trend = append(trend, toTrendPointView(p))
	}
	return AnalyticsResponse{
		Period:              string(a.Period),
		AverageMood:         a.AverageMood,
		MoodRange:           MoodRangeView{Min: a.MoodRange.Min, Max: a.MoodRange.Max},
		MostCommonCategory:  string(a.MostCommonCategory),
		TrendDirection:      a.TrendDirection,
		TrendData:           trend,
		KeywordFrequency:    a.KeywordFrequency,
		CorrelationInsights: a.CorrelationInsights,
	}
}
