package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// DedupeWindow is the symmetric window within which two equivalent points
// from the same user, type, and source count as one measurement.
const DedupeWindow = 5 * time.Minute

// ContentHash fingerprints a measurement over {data_type, value, source}.
// The value is decoded and re-encoded so formatting differences (whitespace,
// key order) do not defeat matching.
func ContentHash(dataType DataType, value json.RawMessage, source DataSource) string {
	var decoded any
	if err := json.Unmarshal(value, &decoded); err != nil {
		decoded = string(value)
	}

	// encoding/json emits map keys in sorted order, which makes this a
	// canonical serialization.
	canonical, err := json.Marshal(map[string]any{
		"data_type": string(dataType),
		"value":     decoded,
		"source":    string(source),
	})
	if err != nil {
		canonical = []byte(string(dataType) + "|" + string(value) + "|" + string(source))
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

// IsDuplicate reports whether the candidate input duplicates any of the
// existing points. Callers supply points for the same user, type, and source
// whose timestamps fall inside the dedupe window; points with a different
// value hash in the same window are not duplicates.
func IsDuplicate(in PointInput, existing []PassiveDataPoint) bool {
	if len(existing) == 0 {
		return false
	}
	candidate := ContentHash(in.DataType, in.Value, in.Source)
	for _, p := range existing {
		if ContentHash(p.DataType, p.Value, p.Source) == candidate {
			return true
		}
	}
	return false
}
