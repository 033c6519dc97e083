package domain

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// stubCheckinRepo keeps check-ins in memory for service tests.
type stubCheckinRepo struct {
	checkins []CheckIn
}

func (r *stubCheckinRepo) Create(_ context.Context, checkin CheckIn) error {
	r.checkins = append(r.checkins, checkin)
	return nil
}

func (r *stubCheckinRepo) Get(_ context.Context, userID, checkinID string) (*CheckIn, error) {
	for i := range r.checkins {
		if r.checkins[i].UserID == userID && r.checkins[i].ID == checkinID {
			c := r.checkins[i]
			return &c, nil
		}
	}
	return nil, nil
}

func (r *stubCheckinRepo) FindByDay(_ context.Context, userID string, dayStart, dayEnd time.Time) (*CheckIn, error) {
	for i := range r.checkins {
		c := r.checkins[i]
		if c.UserID == userID && !c.Timestamp.Before(dayStart) && c.Timestamp.Before(dayEnd) {
			return &c, nil
		}
	}
	return nil, nil
}

func (r *stubCheckinRepo) ListByUser(_ context.Context, userID string, _ *Cursor, limit int) ([]CheckIn, *Cursor, error) {
	out := r.forUserDesc(userID)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil, nil
}

func (r *stubCheckinRepo) ListAllDesc(_ context.Context, userID string) ([]CheckIn, error) {
	return r.forUserDesc(userID), nil
}

func (r *stubCheckinRepo) ListRangeAsc(_ context.Context, userID string, start, end time.Time) ([]CheckIn, error) {
	var out []CheckIn
	for _, c := range r.checkins {
		if c.UserID == userID && !c.Timestamp.Before(start) && !c.Timestamp.After(end) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (r *stubCheckinRepo) Update(_ context.Context, checkin CheckIn) error {
	for i := range r.checkins {
		if r.checkins[i].ID == checkin.ID {
			r.checkins[i] = checkin
			return nil
		}
	}
	return ErrCheckinNotFound
}

func (r *stubCheckinRepo) forUserDesc(userID string) []CheckIn {
	var out []CheckIn
	for _, c := range r.checkins {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out
}

func newCheckinServiceAt(repo *stubCheckinRepo, now time.Time) *CheckinService {
	svc := NewCheckinService(repo, time.UTC)
	svc.now = func() time.Time { return now }
	return svc
}

func TestCreateCheckinSecondSameDayConflicts(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, time.June, 10, 8, 0, 0, 0, time.UTC)
	svc := newCheckinServiceAt(&stubCheckinRepo{}, now)

	first, err := svc.CreateCheckin(ctx, "user-1", CheckinInput{MoodRating: 7, MoodCategory: MoodCalm})
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	_, err = svc.CreateCheckin(ctx, "user-1", CheckinInput{MoodRating: 4})
	require.ErrorIs(t, err, ErrCheckinExists)

	// Distinct conflict, not a validation failure.
	_, isValidation := IsValidationError(err)
	require.False(t, isValidation)
}

func TestCreateCheckinOtherUserUnaffected(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, time.June, 10, 8, 0, 0, 0, time.UTC)
	svc := newCheckinServiceAt(&stubCheckinRepo{}, now)

	_, err := svc.CreateCheckin(ctx, "user-1", CheckinInput{MoodRating: 7})
	require.NoError(t, err)

	_, err = svc.CreateCheckin(ctx, "user-2", CheckinInput{MoodRating: 7})
	require.NoError(t, err)
}

func TestCreateCheckinValidation(t *testing.T) {
	ctx := context.Background()
	svc := newCheckinServiceAt(&stubCheckinRepo{}, time.Now())

	_, err := svc.CreateCheckin(ctx, "user-1", CheckinInput{MoodRating: 12})
	verr, ok := IsValidationError(err)
	require.True(t, ok)
	require.Equal(t, "mood_rating", verr.Fields[0].Field)

	bad := 0.5
	_, err = svc.CreateCheckin(ctx, "user-1", CheckinInput{MoodRating: 5, EnergyLevel: &bad, MoodCategory: "ecstatic"})
	verr, ok = IsValidationError(err)
	require.True(t, ok)
	require.Len(t, verr.Fields, 2)
}

func TestCreateCheckinNormalizesKeywords(t *testing.T) {
	ctx := context.Background()
	svc := newCheckinServiceAt(&stubCheckinRepo{}, time.Now())

	created, err := svc.CreateCheckin(ctx, "user-1", CheckinInput{
		MoodRating: 6,
		Keywords:   []string{" work ", "work", "", "sleep"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"work", "sleep"}, created.Keywords)
}

func TestUpdateCheckinPartialMerge(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, time.June, 10, 8, 0, 0, 0, time.UTC)
	repo := &stubCheckinRepo{}
	svc := newCheckinServiceAt(repo, now)

	energy := 6.0
	created, err := svc.CreateCheckin(ctx, "user-1", CheckinInput{
		MoodRating:  7,
		Notes:       "long day",
		EnergyLevel: &energy,
	})
	require.NoError(t, err)

	newRating := 8.5
	updated, err := svc.UpdateCheckin(ctx, "user-1", created.ID, CheckinUpdate{MoodRating: &newRating})
	require.NoError(t, err)
	require.Equal(t, 8.5, updated.MoodRating)
	require.Equal(t, "long day", updated.Notes)
	require.Equal(t, 6.0, *updated.EnergyLevel)
}

func TestUpdateCheckinNotFound(t *testing.T) {
	ctx := context.Background()
	svc := newCheckinServiceAt(&stubCheckinRepo{}, time.Now())

	rating := 5.0
	_, err := svc.UpdateCheckin(ctx, "user-1", "missing", CheckinUpdate{MoodRating: &rating})
	require.ErrorIs(t, err, ErrCheckinNotFound)
}

func TestTodaysCheckin(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, time.June, 10, 8, 0, 0, 0, time.UTC)
	svc := newCheckinServiceAt(&stubCheckinRepo{}, now)

	_, err := svc.TodaysCheckin(ctx, "user-1")
	require.ErrorIs(t, err, ErrCheckinNotFound)

	created, err := svc.CreateCheckin(ctx, "user-1", CheckinInput{MoodRating: 7})
	require.NoError(t, err)

	got, err := svc.TodaysCheckin(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)
}

func TestStreakThroughService(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, time.June, 10, 18, 0, 0, 0, time.UTC)
	repo := &stubCheckinRepo{}
	for d := 0; d < 3; d++ {
		repo.checkins = append(repo.checkins, CheckIn{
			ID:         now.AddDate(0, 0, -d).Format("2006-01-02"),
			UserID:     "user-1",
			Timestamp:  now.AddDate(0, 0, -d),
			MoodRating: 6,
		})
	}
	svc := newCheckinServiceAt(repo, now)

	result, err := svc.Streak(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, 3, result.CurrentStreak)
	require.Equal(t, 3, result.LongestStreak)
}

func TestMoodAnalyticsInvalidPeriod(t *testing.T) {
	ctx := context.Background()
	svc := newCheckinServiceAt(&stubCheckinRepo{}, time.Now())

	_, err := svc.MoodAnalytics(ctx, "user-1", "yearly")
	_, ok := IsValidationError(err)
	require.True(t, ok)
}

func TestMoodAnalyticsWindowsByPeriod(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC)
	repo := &stubCheckinRepo{}
	// One check-in 10 days back: outside daily (7d), inside weekly (28d).
	repo.checkins = append(repo.checkins, CheckIn{
		ID: "old", UserID: "user-1", Timestamp: now.AddDate(0, 0, -10), MoodRating: 9,
	})
	svc := newCheckinServiceAt(repo, now)

	daily, err := svc.MoodAnalytics(ctx, "user-1", PeriodDaily)
	require.NoError(t, err)
	require.Zero(t, daily.AverageMood)

	weekly, err := svc.MoodAnalytics(ctx, "user-1", PeriodWeekly)
	require.NoError(t, err)
	require.Equal(t, 9.0, weekly.AverageMood)
}
