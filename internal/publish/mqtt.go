// Package publish sends the time-in-range summary to an MQTT broker.
package publish

import (
	"encoding/json"
	"math"
	"time"

	"github.com/jwulff/glucoscape/internal/aggregate"
)

// DefaultTopic is the MQTT topic for heatmap summaries.
const DefaultTopic = "glucose/heatmap/summary"

// Publisher publishes summaries to MQTT.
type Publisher interface {
	// Publish sends a retained summary to the broker.
	Publish(summary Summary) error

	// Close disconnects from the broker.
	Close() error
}

// Summary is the overall time in range of one heatmap window.
type Summary struct {
	Timestamp   time.Time
	Days        int
	Samples     int
	Percentages aggregate.RangePercentages
}

// FromAggregate picks the overall figures out of an aggregate summary.
func FromAggregate(s aggregate.Summary, now time.Time) Summary {
	return Summary{
		Timestamp:   now,
		Days:        len(s.Days),
		Samples:     s.Total.Samples,
		Percentages: s.Total.Percentages,
	}
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Summary SummaryPayload `json:"summary"`
}

// SummaryPayload contains the summary details. Shares are rounded to one decimal.
type SummaryPayload struct {
	Timestamp string  `json:"timestamp"`
	Days      int     `json:"days"`
	Samples   int     `json:"samples"`
	Low       float64 `json:"low"`
	OnTarget  float64 `json:"on_target"`
	High      float64 `json:"high"`
	Missing   float64 `json:"missing"`
}

// FormatPayload creates the JSON payload for a summary.
func FormatPayload(s Summary) ([]byte, error) {
	payload := Payload{
		Summary: SummaryPayload{
			Timestamp: s.Timestamp.UTC().Format(time.RFC3339),
			Days:      s.Days,
			Samples:   s.Samples,
			Low:       round1(s.Percentages.Low),
			OnTarget:  round1(s.Percentages.OnTarget),
			High:      round1(s.Percentages.High),
			Missing:   round1(s.Percentages.Missing),
		},
	}
	return json.Marshal(payload)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
