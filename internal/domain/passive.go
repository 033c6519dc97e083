package domain

import (
	"encoding/json"
	"time"
)

// DataType is the closed set of passive measurement types.
type DataType string

const (
	// Sleep data
	DataTypeSleepDuration   DataType = "sleep_duration"
	DataTypeSleepQuality    DataType = "sleep_quality"
	DataTypeSleepEfficiency DataType = "sleep_efficiency"

	// Activity data
	DataTypeStepCount        DataType = "step_count"
	DataTypeExerciseDuration DataType = "exercise_duration"
	DataTypeActiveMinutes    DataType = "active_minutes"
	DataTypeCaloriesBurned   DataType = "calories_burned"

	// Health metrics
	DataTypeHeartRate            DataType = "heart_rate"
	DataTypeHeartRateVariability DataType = "heart_rate_variability"
	DataTypeBloodPressure        DataType = "blood_pressure"
	DataTypeWeight               DataType = "weight"

	// Screen time and usage
	DataTypeScreenTime        DataType = "screen_time"
	DataTypeAppUsage          DataType = "app_usage"
	DataTypeNotificationCount DataType = "notification_count"

	// Environmental
	DataTypeLocationSummary DataType = "location_summary"
	DataTypeWeatherExposure DataType = "weather_exposure"
	DataTypeAmbientLight    DataType = "ambient_light"
	DataTypeNoiseLevel      DataType = "noise_level"

	// Social and communication
	DataTypeSocialInteraction DataType = "social_interaction"
	DataTypeCallDuration      DataType = "call_duration"
	DataTypeMessageCount      DataType = "message_count"
)

var dataTypes = map[DataType]struct{}{
	DataTypeSleepDuration: {}, DataTypeSleepQuality: {}, DataTypeSleepEfficiency: {},
	DataTypeStepCount: {}, DataTypeExerciseDuration: {}, DataTypeActiveMinutes: {}, DataTypeCaloriesBurned: {},
	DataTypeHeartRate: {}, DataTypeHeartRateVariability: {}, DataTypeBloodPressure: {}, DataTypeWeight: {},
	DataTypeScreenTime: {}, DataTypeAppUsage: {}, DataTypeNotificationCount: {},
	DataTypeLocationSummary: {}, DataTypeWeatherExposure: {}, DataTypeAmbientLight: {}, DataTypeNoiseLevel: {},
	DataTypeSocialInteraction: {}, DataTypeCallDuration: {}, DataTypeMessageCount: {},
}

// Valid reports whether the data type is supported.
func (t DataType) Valid() bool {
	_, ok := dataTypes[t]
	return ok
}

// Cumulative reports whether bucket aggregation should sum values for this
// type instead of averaging them. Counts accumulate; rates and levels do not.
func (t DataType) Cumulative() bool {
	switch t {
	case DataTypeStepCount, DataTypeNotificationCount, DataTypeMessageCount:
		return true
	}
	return false
}

// DataSource is the closed set of originating platforms and device classes.
type DataSource string

const (
	// Health platforms
	SourceHealthKit     DataSource = "HealthKit"
	SourceGoogleFit     DataSource = "GoogleFit"
	SourceFitbit        DataSource = "Fitbit"
	SourceSamsungHealth DataSource = "Samsung Health"

	// Device sensors
	SourceDeviceSensors DataSource = "device_sensors"
	SourceSmartphone    DataSource = "smartphone"
	SourceWearable      DataSource = "wearable"

	// Apps and services
	SourceScreenTimeAPI    DataSource = "screen_time_api"
	SourceLocationServices DataSource = "location_services"
	SourceWeatherAPI       DataSource = "weather_api"
	SourceCalendar         DataSource = "calendar"

	// Internal app tracking
	SourceInternalTracking DataSource = "internal_tracking"
	SourceUserBehavior     DataSource = "user_behavior"
)

var dataSources = map[DataSource]struct{}{
	SourceHealthKit: {}, SourceGoogleFit: {}, SourceFitbit: {}, SourceSamsungHealth: {},
	SourceDeviceSensors: {}, SourceSmartphone: {}, SourceWearable: {},
	SourceScreenTimeAPI: {}, SourceLocationServices: {}, SourceWeatherAPI: {}, SourceCalendar: {},
	SourceInternalTracking: {}, SourceUserBehavior: {},
}

// Valid reports whether the source is supported.
func (s DataSource) Valid() bool {
	_, ok := dataSources[s]
	return ok
}

// PassiveDataPoint is a measurement ingested from a device or platform
// without direct user authorship.
type PassiveDataPoint struct {
	ID           string
	UserID       string
	Timestamp    time.Time
	DataType     DataType
	Value        json.RawMessage // numeric or structured
	Source       DataSource
	Metadata     map[string]any
	QualityScore float64 // 0-1 reliability score
	Processed    bool
	CreatedAt    time.Time
}

// NumericValue extracts the numeric representation of the value: a bare
// number, or the "value" field of an object, otherwise 0.
func (p *PassiveDataPoint) NumericValue() float64 {
	return numericValue(p.Value)
}

func numericValue(raw json.RawMessage) float64 {
	var asNumber float64
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return asNumber
	}
	var asObject map[string]json.RawMessage
	if err := json.Unmarshal(raw, &asObject); err == nil {
		if inner, ok := asObject["value"]; ok {
			if err := json.Unmarshal(inner, &asNumber); err == nil {
				return asNumber
			}
		}
	}
	return 0.0
}

const maxPointAge = 365 * 24 * time.Hour

// PointInput captures the payload for ingesting a passive data point.
type PointInput struct {
	DataType     DataType
	Value        json.RawMessage
	Source       DataSource
	Timestamp    time.Time // zero means "now"
	Metadata     map[string]any
	QualityScore *float64 // nil defaults to 1.0
}

// Validate checks the input against type-specific value ranges. now anchors
// the timestamp bounds check.
func (in *PointInput) Validate(now time.Time) error {
	verr := &ValidationError{}

	if !in.DataType.Valid() {
		verr.add("data_type", "invalid data type: "+string(in.DataType))
	}
	if !in.Source.Valid() {
		verr.add("source", "invalid source: "+string(in.Source))
	}
	if in.QualityScore != nil && (*in.QualityScore < 0.0 || *in.QualityScore > 1.0) {
		verr.add("quality_score", "must be between 0.0 and 1.0")
	}
	if !in.Timestamp.IsZero() {
		if in.Timestamp.After(now) {
			verr.add("timestamp", "cannot be in the future")
		}
		if in.Timestamp.Before(now.Add(-maxPointAge)) {
			verr.add("timestamp", "cannot be more than 1 year in the past")
		}
	}
	if len(in.Value) == 0 {
		verr.add("value", "is required")
	} else {
		validateValue(verr, in.DataType, in.Value)
	}

	return verr.orNil()
}

// validateValue enforces per-type bounds on the measurement value.
func validateValue(verr *ValidationError, dataType DataType, raw json.RawMessage) {
	switch dataType {
	case DataTypeSleepDuration:
		if v, ok := asNumber(raw); !ok || v < 0 || v > 24 {
			verr.add("value", "sleep duration must be between 0 and 24 hours")
		}
	case DataTypeSleepQuality:
		if v, ok := asNumber(raw); !ok || v < 1 || v > 10 {
			verr.add("value", "sleep quality must be between 1 and 10")
		}
	case DataTypeStepCount:
		v, ok := asNumber(raw)
		if !ok || v < 0 || v != float64(int64(v)) {
			verr.add("value", "step count must be a non-negative integer")
		}
	case DataTypeExerciseDuration:
		if v, ok := asNumber(raw); !ok || v < 0 {
			verr.add("value", "exercise duration must be non-negative")
		}
	case DataTypeHeartRate:
		if v, ok := asNumber(raw); !ok || v < 30 || v > 250 {
			verr.add("value", "heart rate must be between 30 and 250 bpm")
		}
	case DataTypeBloodPressure:
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			verr.add("value", "blood pressure must include systolic and diastolic values")
			return
		}
		if _, ok := obj["systolic"]; !ok {
			verr.add("value", "blood pressure must include systolic and diastolic values")
			return
		}
		if _, ok := obj["diastolic"]; !ok {
			verr.add("value", "blood pressure must include systolic and diastolic values")
		}
	case DataTypeScreenTime:
		if v, ok := asNumber(raw); !ok || v < 0 || v > 24 {
			verr.add("value", "screen time must be between 0 and 24 hours")
		}
	}
}

func asNumber(raw json.RawMessage) (float64, bool) {
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}
	return v, true
}

// PointUpdate carries a partial update for a passive data point.
type PointUpdate struct {
	Value        json.RawMessage
	Metadata     map[string]any
	QualityScore *float64
	Processed    *bool
}

// Validate checks the supplied fields.
func (u *PointUpdate) Validate() error {
	verr := &ValidationError{}
	if u.QualityScore != nil && (*u.QualityScore < 0.0 || *u.QualityScore > 1.0) {
		verr.add("quality_score", "must be between 0.0 and 1.0")
	}
	return verr.orNil()
}

func (u *PointUpdate) apply(p *PassiveDataPoint) {
	if u.Value != nil {
		p.Value = u.Value
	}
	if u.Metadata != nil {
		p.Metadata = u.Metadata
	}
	if u.QualityScore != nil {
		p.QualityScore = *u.QualityScore
	}
	if u.Processed != nil {
		p.Processed = *u.Processed
	}
}

// PointFilter narrows passive data point listings.
type PointFilter struct {
	DataType DataType   // optional
	Source   DataSource // optional
	Start    time.Time  // optional
	End      time.Time  // optional
	Limit    int
	Offset   int
}
