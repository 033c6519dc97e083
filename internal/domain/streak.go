package domain

import "time"

// StreakResult summarizes a user's consecutive-day check-in runs. It is
// derived, never persisted.
type StreakResult struct {
	CurrentStreak        int
	LongestStreak        int
	TotalCheckins        int
	StreakStartDate      *time.Time
	DaysSinceLastCheckin int
}

// ComputeStreak calculates streaks from the user's full check-in history.
// checkins must be ordered by timestamp descending; today anchors the walk
// and all calendar arithmetic happens in loc.
//
// The current streak is zero whenever there is no check-in today: a missed
// day immediately breaks the run regardless of yesterday's continuity.
func ComputeStreak(checkins []CheckIn, today time.Time, loc *time.Location) StreakResult {
	if len(checkins) == 0 {
		return StreakResult{}
	}

	todayDate := civilDate(today, loc)

	// Walk backward from today while a check-in lands exactly on the
	// expected date. The start date ends on the oldest day of the run.
	currentStreak := 0
	var streakStart *time.Time
	expected := todayDate
	for _, c := range checkins {
		d := civilDate(c.Timestamp, loc)
		if !d.Equal(expected) {
			break
		}
		currentStreak++
		start := d
		streakStart = &start
		expected = expected.AddDate(0, 0, -1)
	}

	// Longest run: scan ascending, reset whenever the gap to the previous
	// date is not exactly one day.
	longest := 0
	run := 0
	var prev time.Time
	for i := len(checkins) - 1; i >= 0; i-- {
		d := civilDate(checkins[i].Timestamp, loc)
		if run == 0 || d.Equal(prev.AddDate(0, 0, 1)) {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
		prev = d
	}

	lastDate := civilDate(checkins[0].Timestamp, loc)
	daysSinceLast := civilDaysBetween(lastDate, todayDate)

	return StreakResult{
		CurrentStreak:        currentStreak,
		LongestStreak:        longest,
		TotalCheckins:        len(checkins),
		StreakStartDate:      streakStart,
		DaysSinceLastCheckin: daysSinceLast,
	}
}

// civilDaysBetween counts calendar days from one civil date to another.
// Measured in UTC, where every day is exactly 24 hours, so a DST
// transition in the reference location never shortens the count.
func civilDaysBetween(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Hours() / 24)
}

// civilDate truncates t to midnight of its calendar day in loc.
func civilDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// SameCalendarDay reports whether two instants fall on the same calendar
// day in loc. Used for the one-check-in-per-day invariant.
func SameCalendarDay(a, b time.Time, loc *time.Location) bool {
	return civilDate(a, loc).Equal(civilDate(b, loc))
}
