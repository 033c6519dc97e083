// Package events defines the cross-service event payloads moodtrack
// produces and consumes.
package events

import (
	"encoding/json"
	"time"
)

// PassiveDataReceived is the inbound message carrying a passive data point
// captured on a device or collector. The consumer validates, deduplicates,
// and persists it.
type PassiveDataReceived struct {
	UserID       string          `json:"user_id"`
	DataType     string          `json:"data_type"`
	Value        json.RawMessage `json:"value"`
	Source       string          `json:"source"`
	Timestamp    time.Time       `json:"timestamp"`
	Metadata     map[string]any  `json:"metadata,omitempty"`
	QualityScore *float64        `json:"quality_score,omitempty"`
}

// CheckinCreated is emitted when a daily mood check-in is accepted.
type CheckinCreated struct {
	CheckinID    string    `json:"checkin_id"`
	UserID       string    `json:"user_id"`
	Timestamp    time.Time `json:"timestamp"`
	MoodRating   float64   `json:"mood_rating"`
	MoodCategory string    `json:"mood_category"`
}

// PassiveDataIngested is emitted when a passive data point clears
// validation and deduplication and reaches storage.
type PassiveDataIngested struct {
	PointID   string    `json:"point_id"`
	UserID    string    `json:"user_id"`
	DataType  string    `json:"data_type"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}
