package web

import (
	"encoding/json"
	"time"

	"github.com/jwulff/glucoscape/internal/aggregate"
	"github.com/jwulff/glucoscape/internal/pipeline"
)

// HeatmapJSON is the JSON representation of one heatmap.
type HeatmapJSON struct {
	Title       string            `json:"title"`
	URL         string            `json:"url"`
	Unit        string            `json:"unit"`
	Target      TargetJSON        `json:"target"`
	From        string            `json:"from"`
	To          string            `json:"to"`
	GeneratedAt string            `json:"generated_at"`
	Summary     aggregate.Summary `json:"summary"`
}

// TargetJSON is the target range in mg/dL.
type TargetJSON struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

func formatJSON(result *pipeline.Result) ([]byte, error) {
	settings := result.Settings
	return json.Marshal(HeatmapJSON{
		Title:       settings.Title,
		URL:         settings.URL,
		Unit:        string(settings.DisplayUnit),
		Target:      TargetJSON{Low: settings.TargetRange.Low, High: settings.TargetRange.High},
		From:        result.Window.From.UTC().Format(time.RFC3339),
		To:          result.Window.To.UTC().Format(time.RFC3339),
		GeneratedAt: result.GeneratedAt.UTC().Format(time.RFC3339),
		Summary:     result.Summary,
	})
}
