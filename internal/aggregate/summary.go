package aggregate

import (
	"time"

	"github.com/jwulff/glucoscape/internal/bloodsugar"
)

// Options configures Summarize.
type Options struct {
	Target          bloodsugar.TargetRange
	IntervalSeconds int
	Location        *time.Location // nil means time.Local
}

// Slot is the aggregate of one bucket. HasData is false when the bucket had
// no samples, in which case Percentages is zero and must not be displayed as data.
type Slot struct {
	Index       int              `json:"index"`
	Samples     int              `json:"samples"`
	HasData     bool             `json:"has_data"`
	Percentages RangePercentages `json:"percentages"`
}

// DayRow is one calendar day: its overall slot and one slot per interval.
type DayRow struct {
	Key    DayKey    `json:"-"`
	Label  string    `json:"label"`
	Latest time.Time `json:"latest"` // newest sample of the day
	Slot
	Slots []Slot `json:"slots"`
}

// Summary is everything a heatmap renderer needs.
type Summary struct {
	IntervalSeconds int      `json:"interval_seconds"`
	Total           Slot     `json:"total"`
	Intervals       []Slot   `json:"intervals"` // 0..N-1, including slots without data
	Days            []DayRow `json:"days"`      // first-occurrence order
	Rejected        int      `json:"rejected"`  // malformed samples skipped

	// Latest is the newest well-formed sample; zero when there is none.
	Latest bloodsugar.Sample `json:"-"`
}

// Summarize sanitizes samples and aggregates them by day and by interval.
func Summarize(samples []bloodsugar.Sample, opts Options) (Summary, error) {
	if err := ValidateInterval(opts.IntervalSeconds); err != nil {
		return Summary{}, err
	}

	valid, rejected := Sanitize(samples)
	summary := Summary{
		IntervalSeconds: opts.IntervalSeconds,
		Total:           slotOf(0, valid, opts.Target),
		Intervals:       intervalSlots(valid, opts),
		Rejected:        len(rejected),
	}
	summary.Latest, _ = bloodsugar.Latest(valid)

	byDay := GroupByDay(valid, opts.Location)
	for key, daySamples := range byDay.All() {
		summary.Days = append(summary.Days, DayRow{
			Key:    key,
			Label:  key.String(),
			Latest: latest(daySamples),
			Slot:   slotOf(len(summary.Days), daySamples, opts.Target),
			Slots:  intervalSlots(daySamples, opts),
		})
	}

	return summary, nil
}

// intervalSlots returns exactly SlotCount slots, filling gaps with empty ones.
func intervalSlots(samples []bloodsugar.Sample, opts Options) []Slot {
	byInterval := GroupByInterval(samples, opts.IntervalSeconds, opts.Location)
	slots := make([]Slot, SlotCount(opts.IntervalSeconds))
	for i := range slots {
		bucket, _ := byInterval.Get(i)
		slots[i] = slotOf(i, bucket, opts.Target)
	}
	return slots
}

func slotOf(index int, samples []bloodsugar.Sample, target bloodsugar.TargetRange) Slot {
	slot := Slot{Index: index, Samples: len(samples)}
	pct, err := Classify(samples, target)
	if err != nil {
		// Only ErrEmptyBucket is possible; leave the slot marked as no data.
		return slot
	}
	slot.HasData = true
	slot.Percentages = pct
	return slot
}

func latest(samples []bloodsugar.Sample) time.Time {
	s, _ := bloodsugar.Latest(samples)
	return s.Timestamp
}
