package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Cursor models the pagination token for listings.
type Cursor struct {
	Timestamp time.Time
	ID        string
}

// CheckinRepository captures the persistence operations the check-in engine
// needs from the record store.
type CheckinRepository interface {
	Create(ctx context.Context, checkin CheckIn) error
	Get(ctx context.Context, userID, checkinID string) (*CheckIn, error)
	// FindByDay returns the check-in whose timestamp falls in [dayStart,
	// dayEnd), or nil when the user has none that day.
	FindByDay(ctx context.Context, userID string, dayStart, dayEnd time.Time) (*CheckIn, error)
	ListByUser(ctx context.Context, userID string, cursor *Cursor, limit int) ([]CheckIn, *Cursor, error)
	// ListAllDesc returns the user's full history ordered by timestamp
	// descending.
	ListAllDesc(ctx context.Context, userID string) ([]CheckIn, error)
	// ListRangeAsc returns check-ins in [start, end] ordered ascending.
	ListRangeAsc(ctx context.Context, userID string, start, end time.Time) ([]CheckIn, error)
	Update(ctx context.Context, checkin CheckIn) error
}

// CheckinService orchestrates check-in creation, updates, streaks, and mood
// analytics. All calendar arithmetic uses the configured reference location.
type CheckinService struct {
	repo CheckinRepository
	loc  *time.Location
	now  func() time.Time
}

// NewCheckinService constructs a CheckinService.
func NewCheckinService(repo CheckinRepository, loc *time.Location) *CheckinService {
	if loc == nil {
		loc = time.UTC
	}
	return &CheckinService{repo: repo, loc: loc, now: time.Now}
}

// CreateCheckin validates the payload and enforces the one-per-calendar-day
// invariant before inserting. A same-day check-in yields ErrCheckinExists,
// which is a conflict, not a validation failure. Concurrent creates that
// both pass the pre-check race against the store's unique constraint; the
// repository surfaces the loser as the same conflict.
func (s *CheckinService) CreateCheckin(ctx context.Context, userID string, input CheckinInput) (*CheckIn, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	now := s.now().In(s.loc)
	dayStart := civilDate(now, s.loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	existing, err := s.repo.FindByDay(ctx, userID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrCheckinExists
	}

	checkin := CheckIn{
		ID:                uuid.NewString(),
		UserID:            userID,
		Timestamp:         now,
		MoodRating:        input.MoodRating,
		MoodCategory:      input.MoodCategory,
		Keywords:          normalizeKeywords(input.Keywords),
		Notes:             input.Notes,
		Location:          input.Location,
		Weather:           input.Weather,
		EnergyLevel:       input.EnergyLevel,
		StressLevel:       input.StressLevel,
		SleepQuality:      input.SleepQuality,
		SocialInteraction: input.SocialInteraction,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.repo.Create(ctx, checkin); err != nil {
		return nil, err
	}
	return &checkin, nil
}

// UpdateCheckin merges supplied fields onto an existing check-in. Identity is
// unchanged, so the one-per-day invariant is not re-checked.
func (s *CheckinService) UpdateCheckin(ctx context.Context, userID, checkinID string, update CheckinUpdate) (*CheckIn, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}

	checkin, err := s.repo.Get(ctx, userID, checkinID)
	if err != nil {
		return nil, err
	}
	if checkin == nil {
		return nil, ErrCheckinNotFound
	}

	update.apply(checkin)
	checkin.UpdatedAt = s.now().In(s.loc)

	if err := s.repo.Update(ctx, *checkin); err != nil {
		return nil, err
	}
	return checkin, nil
}

// GetCheckin fetches a single check-in by ID.
func (s *CheckinService) GetCheckin(ctx context.Context, userID, checkinID string) (*CheckIn, error) {
	checkin, err := s.repo.Get(ctx, userID, checkinID)
	if err != nil {
		return nil, err
	}
	if checkin == nil {
		return nil, ErrCheckinNotFound
	}
	return checkin, nil
}

// TodaysCheckin returns the user's check-in for the current calendar day.
func (s *CheckinService) TodaysCheckin(ctx context.Context, userID string) (*CheckIn, error) {
	now := s.now().In(s.loc)
	dayStart := civilDate(now, s.loc)
	checkin, err := s.repo.FindByDay(ctx, userID, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	if checkin == nil {
		return nil, ErrCheckinNotFound
	}
	return checkin, nil
}

// ListCheckins fetches check-ins with cursor pagination.
func (s *CheckinService) ListCheckins(ctx context.Context, userID string, cursor *Cursor, limit int) ([]CheckIn, *Cursor, error) {
	return s.repo.ListByUser(ctx, userID, cursor, limit)
}

// Streak computes the user's current and longest consecutive-day streaks.
// An empty history is a normal state and yields a zeroed result.
func (s *CheckinService) Streak(ctx context.Context, userID string) (StreakResult, error) {
	checkins, err := s.repo.ListAllDesc(ctx, userID)
	if err != nil {
		return StreakResult{}, err
	}
	return ComputeStreak(checkins, s.now(), s.loc), nil
}

// MoodAnalytics analyzes the user's check-ins over the period's lookback
// window ending now.
func (s *CheckinService) MoodAnalytics(ctx context.Context, userID string, period AnalyticsPeriod) (MoodAnalytics, error) {
	if !period.Valid() {
		verr := &ValidationError{}
		verr.add("period", "must be one of daily, weekly, monthly")
		return MoodAnalytics{}, verr
	}

	end := s.now()
	start := end.Add(-period.Lookback())

	checkins, err := s.repo.ListRangeAsc(ctx, userID, start, end)
	if err != nil {
		return MoodAnalytics{}, err
	}
	return AnalyzeMood(checkins, period, s.loc), nil
}

// MoodTrends returns the charting samples for the period's window.
func (s *CheckinService) MoodTrends(ctx context.Context, userID string, period AnalyticsPeriod) ([]MoodTrendPoint, error) {
	analytics, err := s.MoodAnalytics(ctx, userID, period)
	if err != nil {
		return nil, err
	}
	return analytics.TrendData, nil
}
