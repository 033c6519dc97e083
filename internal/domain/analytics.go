package domain

import (
	"math"
	"time"
)

// AnalyticsPeriod selects the lookback window for mood analytics.
type AnalyticsPeriod string

const (
	PeriodDaily   AnalyticsPeriod = "daily"
	PeriodWeekly  AnalyticsPeriod = "weekly"
	PeriodMonthly AnalyticsPeriod = "monthly"
)

// Valid reports whether the period is supported.
func (p AnalyticsPeriod) Valid() bool {
	switch p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly:
		return true
	}
	return false
}

// Lookback returns the window length the period maps to.
func (p AnalyticsPeriod) Lookback() time.Duration {
	switch p {
	case PeriodDaily:
		return 7 * 24 * time.Hour
	case PeriodWeekly:
		return 4 * 7 * 24 * time.Hour
	default: // monthly
		return 90 * 24 * time.Hour
	}
}

// Trend directions.
const (
	TrendImproving = "improving"
	TrendDeclining = "declining"
	TrendStable    = "stable"
)

// MoodTrendPoint is one charting sample in the analytics window.
type MoodTrendPoint struct {
	Date         string
	MoodRating   float64
	EnergyLevel  *float64
	StressLevel  *float64
	SleepQuality *float64
}

// MoodRange holds the min and max mood ratings seen in the window.
type MoodRange struct {
	Min float64
	Max float64
}

// MoodAnalytics is the derived summary over a period's check-ins.
type MoodAnalytics struct {
	Period              AnalyticsPeriod
	AverageMood         float64
	MoodRange           MoodRange
	MostCommonCategory  MoodCategory // empty when no categorized check-ins
	TrendDirection      string
	TrendData           []MoodTrendPoint
	KeywordFrequency    map[string]int
	CorrelationInsights map[string]string
}

// trendThreshold is the half-mean difference beyond which the trend counts
// as improving or declining.
const trendThreshold = 0.5

// correlationThreshold gates insight generation. A correlation above it (or
// below its negation) is treated as a signal; this is a product rule, not a
// significance test.
const correlationThreshold = 0.3

// minCheckinsForCorrelation is the smallest sample that produces insights.
const minCheckinsForCorrelation = 5

// missingRatingDefault substitutes for absent optional ratings in the
// correlation input, rather than excluding the data point.
const missingRatingDefault = 5.0

// AnalyzeMood computes summary statistics, trend direction, keyword
// frequency, and correlation insights over the window's check-ins. checkins
// must be ordered by timestamp ascending. An empty window yields a zeroed
// result, never an error.
func AnalyzeMood(checkins []CheckIn, period AnalyticsPeriod, loc *time.Location) MoodAnalytics {
	if len(checkins) == 0 {
		return MoodAnalytics{
			Period:              period,
			TrendDirection:      TrendStable,
			TrendData:           []MoodTrendPoint{},
			KeywordFrequency:    map[string]int{},
			CorrelationInsights: map[string]string{},
		}
	}

	ratings := make([]float64, len(checkins))
	sum := 0.0
	minRating := checkins[0].MoodRating
	maxRating := checkins[0].MoodRating
	for i, c := range checkins {
		ratings[i] = c.MoodRating
		sum += c.MoodRating
		if c.MoodRating < minRating {
			minRating = c.MoodRating
		}
		if c.MoodRating > maxRating {
			maxRating = c.MoodRating
		}
	}

	return MoodAnalytics{
		Period:              period,
		AverageMood:         sum / float64(len(ratings)),
		MoodRange:           MoodRange{Min: minRating, Max: maxRating},
		MostCommonCategory:  mostCommonCategory(checkins),
		TrendDirection:      trendDirection(ratings),
		TrendData:           trendData(checkins, loc),
		KeywordFrequency:    keywordFrequency(checkins),
		CorrelationInsights: correlationInsights(checkins),
	}
}

// mostCommonCategory returns the modal non-empty category. Ties break toward
// the category encountered first in window order, so the result is
// deterministic for a fixed data set.
func mostCommonCategory(checkins []CheckIn) MoodCategory {
	counts := make(map[MoodCategory]int)
	order := make([]MoodCategory, 0)
	for _, c := range checkins {
		if c.MoodCategory == "" {
			continue
		}
		if _, seen := counts[c.MoodCategory]; !seen {
			order = append(order, c.MoodCategory)
		}
		counts[c.MoodCategory]++
	}

	var best MoodCategory
	bestCount := 0
	for _, cat := range order {
		if counts[cat] > bestCount {
			best = cat
			bestCount = counts[cat]
		}
	}
	return best
}

// trendDirection splits the rating sequence at its midpoint and compares
// half means. Fewer than two points is always stable.
func trendDirection(ratings []float64) string {
	if len(ratings) < 2 {
		return TrendStable
	}

	mid := len(ratings) / 2
	firstAvg := mean(ratings[:mid])
	secondAvg := mean(ratings[mid:])

	switch {
	case secondAvg > firstAvg+trendThreshold:
		return TrendImproving
	case secondAvg < firstAvg-trendThreshold:
		return TrendDeclining
	default:
		return TrendStable
	}
}

func trendData(checkins []CheckIn, loc *time.Location) []MoodTrendPoint {
	points := make([]MoodTrendPoint, 0, len(checkins))
	for _, c := range checkins {
		points = append(points, MoodTrendPoint{
			Date:         c.Timestamp.In(loc).Format("2006-01-02"),
			MoodRating:   c.MoodRating,
			EnergyLevel:  c.EnergyLevel,
			StressLevel:  c.StressLevel,
			SleepQuality: c.SleepQuality,
		})
	}
	return points
}

func keywordFrequency(checkins []CheckIn) map[string]int {
	freq := make(map[string]int)
	for _, c := range checkins {
		for _, kw := range c.Keywords {
			freq[kw]++
		}
	}
	return freq
}

// correlationInsights derives plain-language insights from Pearson
// correlations between mood and energy, stress, and sleep quality. Stress
// only produces an insight on negative correlation; that asymmetry is a
// retained product rule.
func correlationInsights(checkins []CheckIn) map[string]string {
	insights := map[string]string{}
	if len(checkins) < minCheckinsForCorrelation {
		return insights
	}

	mood := make([]float64, len(checkins))
	energy := make([]float64, len(checkins))
	stress := make([]float64, len(checkins))
	sleep := make([]float64, len(checkins))
	for i, c := range checkins {
		mood[i] = c.MoodRating
		energy[i] = ratingOrDefault(c.EnergyLevel)
		stress[i] = ratingOrDefault(c.StressLevel)
		sleep[i] = ratingOrDefault(c.SleepQuality)
	}

	moodEnergy := pearson(mood, energy)
	moodStress := pearson(mood, stress)
	moodSleep := pearson(mood, sleep)

	if moodEnergy > correlationThreshold {
		insights["energy"] = "Your mood tends to be higher when your energy levels are good"
	} else if moodEnergy < -correlationThreshold {
		insights["energy"] = "Your mood tends to be lower when your energy levels are low"
	}

	if moodStress < -correlationThreshold {
		insights["stress"] = "Higher stress levels appear to negatively impact your mood"
	}

	if moodSleep > correlationThreshold {
		insights["sleep"] = "Good sleep quality seems to positively influence your mood"
	}

	return insights
}

func ratingOrDefault(v *float64) float64 {
	if v == nil {
		return missingRatingDefault
	}
	return *v
}

// pearson computes the Pearson correlation coefficient. Zero variance in
// either series degrades to 0.0 instead of dividing by zero.
func pearson(x, y []float64) float64 {
	n := len(x)
	if n == 0 {
		return 0.0
	}

	meanX := mean(x)
	meanY := mean(y)

	var numerator, sumSqX, sumSqY float64
	for i := 0; i < n; i++ {
		dx := x[i] - meanX
		dy := y[i] - meanY
		numerator += dx * dy
		sumSqX += dx * dx
		sumSqY += dy * dy
	}

	denominator := math.Sqrt(sumSqX * sumSqY)
	if denominator == 0 {
		return 0.0
	}
	return numerator / denominator
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
