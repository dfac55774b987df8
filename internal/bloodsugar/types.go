// Package bloodsugar holds glucose samples, display settings and unit handling.
package bloodsugar

import (
	"strings"
	"time"
)

// Sample is a single glucose reading. Value is always in mg/dL.
type Sample struct {
	Timestamp time.Time
	Value     float64
	Direction string // Raw trend direction (e.g., "Flat", "SingleUp"); not interpreted by aggregation
	Trend     int    // Numeric trend code from the source
}

// NewSample creates a sample from a Unix millisecond timestamp and a mg/dL value.
func NewSample(timestampMs int64, mgdl float64) Sample {
	return Sample{
		Timestamp: time.UnixMilli(timestampMs),
		Value:     mgdl,
	}
}

// TargetRange is the clinician-configured on-target band in mg/dL.
type TargetRange struct {
	Low  float64
	High float64
}

// DefaultTargetRange is used when the source does not report thresholds.
var DefaultTargetRange = TargetRange{Low: 70, High: 180}

// Settings is the display configuration read once per session from the source.
type Settings struct {
	Title       string
	URL         string
	DisplayUnit Unit
	TargetRange TargetRange // mg/dL
	TargetUnit  Unit        // unit the source expressed the thresholds in
}

// mmolCeiling is the largest value we believe could be a mmol/L threshold.
// Physiologic glucose rarely exceeds 30 mmol/L, so anything at or above it is mg/dL.
const mmolCeiling = 30

// InferThresholdUnit guesses the unit of a pair of target thresholds.
//
// Nightscout does not reliably say which unit bgTargetBottom/bgTargetTop are in.
// This is an approximation: a mmol/L profile with a top threshold of 30 or more
// would be misread as mg/dL.
func InferThresholdUnit(low, high float64) Unit {
	if high >= mmolCeiling || low >= mmolCeiling {
		return UnitMgdl
	}
	return UnitMmol
}

// NewTargetRange builds a canonical range from raw source thresholds.
// It returns the unit the thresholds were inferred to be in. A missing (<= 0)
// threshold takes the bound from DefaultTargetRange; a range that ends up
// empty falls back to DefaultTargetRange entirely.
func NewTargetRange(low, high float64) (TargetRange, Unit) {
	if low <= 0 && high <= 0 {
		return DefaultTargetRange, UnitMgdl
	}
	unit := InferThresholdUnit(low, high)
	r := DefaultTargetRange
	if low > 0 {
		r.Low = ToCanonical(low, unit)
	}
	if high > 0 {
		r.High = ToCanonical(high, unit)
	}
	if r.Low >= r.High {
		return DefaultTargetRange, unit
	}
	return r, unit
}

// TrendArrows maps Nightscout/Dexcom direction names to text arrows.
var TrendArrows = map[string]string{
	"doubleup":      "^^",
	"singleup":      "^",
	"fortyfiveup":   "/",
	"flat":          "-",
	"fortyfivedown": "\\",
	"singledown":    "v",
	"doubledown":    "vv",
}

// MapTrendArrow converts a direction string to a display arrow.
func MapTrendArrow(direction string) string {
	if arrow, ok := TrendArrows[strings.ToLower(direction)]; ok {
		return arrow
	}
	return "?"
}

// StaleThreshold is how old the latest reading can be before it's considered stale.
const StaleThreshold = 10 * time.Minute

// IsStale reports whether a reading taken at ts is older than StaleThreshold at now.
func IsStale(ts, now time.Time) bool {
	return now.Sub(ts) >= StaleThreshold
}

// Latest returns the most recent sample, or false if there are none.
func Latest(samples []Sample) (Sample, bool) {
	if len(samples) == 0 {
		return Sample{}, false
	}
	latest := samples[0]
	for _, s := range samples[1:] {
		if s.Timestamp.After(latest.Timestamp) {
			latest = s
		}
	}
	return latest, true
}
