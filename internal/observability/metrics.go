package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	checkinPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "moodtrack",
		Subsystem: "persistence",
		Name:      "last_checkin_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent check-in persisted to Postgres.",
	})
	pointIngestGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "moodtrack",
		Subsystem: "persistence",
		Name:      "last_point_ingested_timestamp_seconds",
		Help:      "Unix timestamp of the most recent passive data point ingested.",
	})
	pointIngestCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "moodtrack",
		Subsystem: "ingest",
		Name:      "points_total",
		Help:      "Passive data ingestion attempts by outcome.",
	}, []string{"outcome"})
	checkinConflictCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "moodtrack",
		Subsystem: "checkins",
		Name:      "conflicts_total",
		Help:      "Check-in creations rejected because one already existed for the day.",
	})
)

func init() {
	prometheus.MustRegister(checkinPersistGauge, pointIngestGauge, pointIngestCounter, checkinConflictCounter)
}

// Ingestion outcomes recorded by RecordPointOutcome.
const (
	OutcomeCreated   = "created"
	OutcomeDuplicate = "duplicate"
	OutcomeInvalid   = "invalid"
	OutcomeError     = "error"
)

// RecordCheckinPersisted updates the check-in persistence watermark gauge.
func RecordCheckinPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	checkinPersistGauge.Set(float64(ts.Unix()))
}

// RecordPointIngested updates the passive data watermark gauge.
func RecordPointIngested(ts time.Time) {
	if ts.IsZero() {
		return
	}
	pointIngestGauge.Set(float64(ts.Unix()))
}

// RecordPointOutcome counts one ingestion attempt by outcome.
func RecordPointOutcome(outcome string) {
	pointIngestCounter.WithLabelValues(outcome).Inc()
}

// RecordCheckinConflict counts a same-day duplicate check-in rejection.
func RecordCheckinConflict() {
	checkinConflictCounter.Inc()
}
