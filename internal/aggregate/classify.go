package aggregate

import (
	"errors"

	"github.com/jwulff/glucoscape/internal/bloodsugar"
)

// ErrEmptyBucket is returned when percentages are requested for zero samples.
var ErrEmptyBucket = errors.New("no samples to classify")

// RangeClass is the classification of a single sample.
type RangeClass string

const (
	ClassLow      RangeClass = "low"
	ClassOnTarget RangeClass = "onTarget"
	ClassHigh     RangeClass = "high"
)

// ClassifySample places one mg/dL value against the target range.
// Values equal to either bound are on target.
func ClassifySample(mgdl float64, target bloodsugar.TargetRange) RangeClass {
	switch {
	case mgdl < target.Low:
		return ClassLow
	case mgdl > target.High:
		return ClassHigh
	default:
		return ClassOnTarget
	}
}

// RangeCounts holds per-class sample counts for a bucket.
// Low + OnTarget + High + Missing always equals Total.
type RangeCounts struct {
	Low      int
	OnTarget int
	High     int
	Missing  int
	Total    int
}

// RangePercentages holds per-class shares of a bucket in the range 0-100.
// Values are not rounded; rounding belongs to the renderer.
type RangePercentages struct {
	Low      float64 `json:"low"`
	OnTarget float64 `json:"on_target"`
	High     float64 `json:"high"`
	Missing  float64 `json:"missing"`
}

// Sum returns the total of all four shares.
func (p RangePercentages) Sum() float64 {
	return p.Low + p.OnTarget + p.High + p.Missing
}

// Dominant returns the class with the largest share. Ties favour on target.
func (p RangePercentages) Dominant() RangeClass {
	switch {
	case p.OnTarget >= p.Low && p.OnTarget >= p.High:
		return ClassOnTarget
	case p.Low >= p.High:
		return ClassLow
	default:
		return ClassHigh
	}
}

// missingCount estimates readings the sensor should have produced but didn't.
//
// Always zero. An estimate needs the expected sampling interval and the time
// span the bucket covers (a day, one hour of one day, or one hour across many
// days), and neither is known here. Enabling it means threading both through
// Count's inputs.
func missingCount([]bloodsugar.Sample) int {
	return 0
}

// Count classifies every sample in the bucket.
// OnTarget is derived so the four classes always add up to Total.
func Count(samples []bloodsugar.Sample, target bloodsugar.TargetRange) RangeCounts {
	c := RangeCounts{Missing: missingCount(samples)}
	c.Total = len(samples) + c.Missing
	for _, s := range samples {
		switch ClassifySample(s.Value, target) {
		case ClassLow:
			c.Low++
		case ClassHigh:
			c.High++
		}
	}
	c.OnTarget = c.Total - c.Low - c.High - c.Missing
	return c
}

// Percentages converts counts into shares of Total.
// An empty bucket yields ErrEmptyBucket and all-zero shares, never NaN.
func (c RangeCounts) Percentages() (RangePercentages, error) {
	if c.Total == 0 {
		return RangePercentages{}, ErrEmptyBucket
	}
	pct := func(n int) float64 {
		return 100 * float64(n) / float64(c.Total)
	}
	return RangePercentages{
		Low:      pct(c.Low),
		OnTarget: pct(c.OnTarget),
		High:     pct(c.High),
		Missing:  pct(c.Missing),
	}, nil
}

// Classify computes the time-in-range breakdown of a bucket.
func Classify(samples []bloodsugar.Sample, target bloodsugar.TargetRange) (RangePercentages, error) {
	return Count(samples, target).Percentages()
}
