// Package domain holds the check-in and passive-data engine: validation,
// deduplication, streaks, mood analytics, and time-bucketed aggregation.
package domain

import (
	"strings"
	"time"
)

// MoodCategory is the closed set of categorical mood descriptions.
type MoodCategory string

const (
	MoodHappy       MoodCategory = "happy"
	MoodContent     MoodCategory = "content"
	MoodCalm        MoodCategory = "calm"
	MoodExcited     MoodCategory = "excited"
	MoodOptimistic  MoodCategory = "optimistic"
	MoodSad         MoodCategory = "sad"
	MoodAnxious     MoodCategory = "anxious"
	MoodStressed    MoodCategory = "stressed"
	MoodAngry       MoodCategory = "angry"
	MoodFrustrated  MoodCategory = "frustrated"
	MoodTired       MoodCategory = "tired"
	MoodEnergetic   MoodCategory = "energetic"
	MoodFocused     MoodCategory = "focused"
	MoodConfused    MoodCategory = "confused"
	MoodLonely      MoodCategory = "lonely"
	MoodGrateful    MoodCategory = "grateful"
	MoodHopeful     MoodCategory = "hopeful"
	MoodOverwhelmed MoodCategory = "overwhelmed"
	MoodPeaceful    MoodCategory = "peaceful"
	MoodNeutral     MoodCategory = "neutral"
)

var moodCategories = map[MoodCategory]struct{}{
	MoodHappy: {}, MoodContent: {}, MoodCalm: {}, MoodExcited: {}, MoodOptimistic: {},
	MoodSad: {}, MoodAnxious: {}, MoodStressed: {}, MoodAngry: {}, MoodFrustrated: {},
	MoodTired: {}, MoodEnergetic: {}, MoodFocused: {}, MoodConfused: {}, MoodLonely: {},
	MoodGrateful: {}, MoodHopeful: {}, MoodOverwhelmed: {}, MoodPeaceful: {}, MoodNeutral: {},
}

// Valid reports whether the category is one of the supported values.
func (c MoodCategory) Valid() bool {
	_, ok := moodCategories[c]
	return ok
}

// MoodCategories lists the supported categories in a stable order.
func MoodCategories() []MoodCategory {
	return []MoodCategory{
		MoodHappy, MoodContent, MoodCalm, MoodExcited, MoodOptimistic,
		MoodSad, MoodAnxious, MoodStressed, MoodAngry, MoodFrustrated,
		MoodTired, MoodEnergetic, MoodFocused, MoodConfused, MoodLonely,
		MoodGrateful, MoodHopeful, MoodOverwhelmed, MoodPeaceful, MoodNeutral,
	}
}

const (
	maxKeywords      = 20
	maxKeywordLength = 50
	maxNotesLength   = 2000
)

// CheckIn is a user-authored daily mood record. Exactly one exists per
// (user, calendar day).
type CheckIn struct {
	ID                string
	UserID            string
	Timestamp         time.Time
	MoodRating        float64 // 1-10 scale
	MoodCategory      MoodCategory
	Keywords          []string
	Notes             string
	Location          string
	Weather           string
	EnergyLevel       *float64 // 1-10 scale
	StressLevel       *float64 // 1-10 scale
	SleepQuality      *float64 // previous night, 1-10 scale
	SocialInteraction *float64 // 1-10 scale
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// CheckinInput captures the payload for creating a check-in.
type CheckinInput struct {
	MoodRating        float64
	MoodCategory      MoodCategory
	Keywords          []string
	Notes             string
	Location          string
	Weather           string
	EnergyLevel       *float64
	StressLevel       *float64
	SleepQuality      *float64
	SocialInteraction *float64
}

// Validate checks ranges and lengths, returning a field-level error list.
func (in *CheckinInput) Validate() error {
	verr := &ValidationError{}

	if in.MoodRating < 1.0 || in.MoodRating > 10.0 {
		verr.add("mood_rating", "must be between 1.0 and 10.0")
	}
	if in.MoodCategory != "" && !in.MoodCategory.Valid() {
		verr.add("mood_category", "unknown mood category")
	}
	validateOptionalRating(verr, "energy_level", in.EnergyLevel)
	validateOptionalRating(verr, "stress_level", in.StressLevel)
	validateOptionalRating(verr, "sleep_quality", in.SleepQuality)
	validateOptionalRating(verr, "social_interaction", in.SocialInteraction)

	if len(in.Keywords) > maxKeywords {
		verr.add("keywords", "maximum 20 keywords allowed")
	}
	for _, kw := range in.Keywords {
		if len(kw) > maxKeywordLength {
			verr.add("keywords", "keyword "+kw+" is too long (max 50 characters)")
		}
	}
	if len(in.Notes) > maxNotesLength {
		verr.add("notes", "must be 2000 characters or less")
	}

	return verr.orNil()
}

func validateOptionalRating(verr *ValidationError, field string, value *float64) {
	if value != nil && (*value < 1.0 || *value > 10.0) {
		verr.add(field, "must be between 1.0 and 10.0")
	}
}

// normalizeKeywords trims, drops empties and duplicates, and caps the list.
// First occurrence wins so keyword order stays stable for analytics.
func normalizeKeywords(keywords []string) []string {
	seen := make(map[string]struct{}, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
		if len(out) == maxKeywords {
			break
		}
	}
	return out
}

// CheckinUpdate carries a partial update; nil fields are left untouched.
type CheckinUpdate struct {
	MoodRating        *float64
	MoodCategory      *MoodCategory
	Keywords          []string
	Notes             *string
	Location          *string
	Weather           *string
	EnergyLevel       *float64
	StressLevel       *float64
	SleepQuality      *float64
	SocialInteraction *float64
}

// Validate checks any supplied field against the same rules as create.
func (u *CheckinUpdate) Validate() error {
	verr := &ValidationError{}

	if u.MoodRating != nil && (*u.MoodRating < 1.0 || *u.MoodRating > 10.0) {
		verr.add("mood_rating", "must be between 1.0 and 10.0")
	}
	if u.MoodCategory != nil && *u.MoodCategory != "" && !u.MoodCategory.Valid() {
		verr.add("mood_category", "unknown mood category")
	}
	validateOptionalRating(verr, "energy_level", u.EnergyLevel)
	validateOptionalRating(verr, "stress_level", u.StressLevel)
	validateOptionalRating(verr, "sleep_quality", u.SleepQuality)
	validateOptionalRating(verr, "social_interaction", u.SocialInteraction)

	if len(u.Keywords) > maxKeywords {
		verr.add("keywords", "maximum 20 keywords allowed")
	}
	for _, kw := range u.Keywords {
		if len(kw) > maxKeywordLength {
			verr.add("keywords", "keyword "+kw+" is too long (max 50 characters)")
		}
	}
	if u.Notes != nil && len(*u.Notes) > maxNotesLength {
		verr.add("notes", "must be 2000 characters or less")
	}

	return verr.orNil()
}

// apply merges supplied fields onto the check-in. Identity fields are never
// touched, so the one-per-day invariant holds without a re-check.
func (u *CheckinUpdate) apply(c *CheckIn) {
	if u.MoodRating != nil {
		c.MoodRating = *u.MoodRating
	}
	if u.MoodCategory != nil {
		c.MoodCategory = *u.MoodCategory
	}
	if u.Keywords != nil {
		c.Keywords = normalizeKeywords(u.Keywords)
	}
	if u.Notes != nil {
		c.Notes = *u.Notes
	}
	if u.Location != nil {
		c.Location = *u.Location
	}
	if u.Weather != nil {
		c.Weather = *u.Weather
	}
	if u.EnergyLevel != nil {
		c.EnergyLevel = u.EnergyLevel
	}
	if u.StressLevel != nil {
		c.StressLevel = u.StressLevel
	}
	if u.SleepQuality != nil {
		c.SleepQuality = u.SleepQuality
	}
	if u.SocialInteraction != nil {
		c.SocialInteraction = u.SocialInteraction
	}
}
