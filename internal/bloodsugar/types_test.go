package bloodsugar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMapTrendArrow(t *testing.T) {
	tests := []struct {
		trend    string
		expected string
	}{
		{"Flat", "-"},
		{"SingleUp", "^"},
		{"SingleDown", "v"},
		{"DoubleUp", "^^"},
		{"DoubleDown", "vv"},
		{"FortyFiveUp", "/"},
		{"FortyFiveDown", "\\"},
		{"NOT COMPUTABLE", "?"},
		{"", "?"},
	}

	for _, tt := range tests {
		result := MapTrendArrow(tt.trend)
		if result != tt.expected {
			t.Errorf("MapTrendArrow(%q) = %q, want %q", tt.trend, result, tt.expected)
		}
	}
}

func TestIsStale(t *testing.T) {
	now := time.Date(2024, 1, 22, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		ts       time.Time
		expected bool
	}{
		{"fresh reading (1 minute ago)", now.Add(-1 * time.Minute), false},
		{"fresh reading (9 minutes ago)", now.Add(-9 * time.Minute), false},
		{"stale reading (10 minutes ago)", now.Add(-10 * time.Minute), true},
		{"stale reading (15 minutes ago)", now.Add(-15 * time.Minute), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsStale(tt.ts, now))
		})
	}
}

func TestInferThresholdUnit(t *testing.T) {
	tests := []struct {
		name      string
		low, high float64
		expected  Unit
	}{
		{"typical mg/dL", 80, 180, UnitMgdl},
		{"typical mmol/L", 3.9, 10, UnitMmol},
		{"boundary is mg/dL", 4, 30, UnitMgdl},
		{"just below boundary is mmol/L", 4, 29.9, UnitMmol},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, InferThresholdUnit(tt.low, tt.high))
		})
	}
}

func TestNewTargetRange(t *testing.T) {
	r, unit := NewTargetRange(80, 180)
	assert.Equal(t, UnitMgdl, unit)
	assert.Equal(t, TargetRange{Low: 80, High: 180}, r)

	r, unit = NewTargetRange(4, 10)
	assert.Equal(t, UnitMmol, unit)
	assert.InDelta(t, 72.072, r.Low, 0.001)
	assert.InDelta(t, 180.18, r.High, 0.001)

	r, unit = NewTargetRange(0, 0)
	assert.Equal(t, UnitMgdl, unit)
	assert.Equal(t, DefaultTargetRange, r)
}

func TestNewTargetRangeMissingBound(t *testing.T) {
	tests := []struct {
		name      string
		low, high float64
		unit      Unit
		expected  TargetRange
	}{
		{"missing bottom mgdl", 0, 160, UnitMgdl, TargetRange{Low: 70, High: 160}},
		{"missing top mgdl", 80, 0, UnitMgdl, TargetRange{Low: 80, High: 180}},
		{"missing bottom mmol", 0, 9, UnitMmol, TargetRange{Low: 70, High: 9 * MmolToMgdl}},
		{"bottom above default top", 200, 0, UnitMgdl, DefaultTargetRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, unit := NewTargetRange(tt.low, tt.high)
			assert.Equal(t, tt.unit, unit)
			assert.InDelta(t, tt.expected.Low, r.Low, 1e-9)
			assert.InDelta(t, tt.expected.High, r.High, 1e-9)
		})
	}
}

func TestLatest(t *testing.T) {
	_, ok := Latest(nil)
	assert.False(t, ok)

	samples := []Sample{
		NewSample(1705887600000, 100),
		NewSample(1705888200000, 120),
		NewSample(1705887900000, 110),
	}
	latest, ok := Latest(samples)
	assert.True(t, ok)
	assert.Equal(t, 120.0, latest.Value)
}
