// Package heatmap turns an aggregate.Summary into display cells and renders them.
package heatmap

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jwulff/glucoscape/internal/aggregate"
	"github.com/jwulff/glucoscape/internal/bloodsugar"
	"github.com/jwulff/glucoscape/internal/domain"
)

// Header describes the data source and the target range in the display unit.
type Header struct {
	Title  string
	URL    string
	Target string // e.g. "70–180 mg/dl"
	Latest string // newest reading, e.g. "120 mg/dl ^"; empty without data
}

// Stop is one band of a cell's vertical gradient, from and to in percent.
type Stop struct {
	Color domain.RGB
	From  float64
	To    float64
}

// Cell is a single rendered square of the heatmap.
type Cell struct {
	Label         string
	HasData       bool
	Samples       int
	Percentages   aggregate.RangePercentages
	Stops         []Stop
	Tooltip       string
	OnTargetLabel string
}

// Row is one day: a summary cell followed by one cell per interval.
type Row struct {
	Label   string
	Latest  time.Time
	Summary Cell
	Cells   []Cell
}

// Heatmap is the assembled view model.
type Heatmap struct {
	Header          Header
	Palette         Palette
	IntervalSeconds int
	Total           Cell
	Intervals       []Cell
	Rows            []Row
	Rejected        int
}

// Build assembles the heatmap for a summary.
func Build(settings bloodsugar.Settings, summary aggregate.Summary, palette Palette) Heatmap {
	hm := Heatmap{
		Header:          buildHeader(settings, summary.Latest),
		Palette:         palette,
		IntervalSeconds: summary.IntervalSeconds,
		Total:           buildCell("", summary.Total, palette),
		Rejected:        summary.Rejected,
	}

	for _, slot := range summary.Intervals {
		hm.Intervals = append(hm.Intervals, buildCell(IntervalLabel(slot.Index, summary.IntervalSeconds), slot, palette))
	}

	for _, day := range summary.Days {
		row := Row{
			Label:   day.Label,
			Latest:  day.Latest,
			Summary: buildCell(day.Label, day.Slot, palette),
		}
		for _, slot := range day.Slots {
			row.Cells = append(row.Cells, buildCell(IntervalLabel(slot.Index, summary.IntervalSeconds), slot, palette))
		}
		hm.Rows = append(hm.Rows, row)
	}

	return hm
}

func buildHeader(settings bloodsugar.Settings, latest bloodsugar.Sample) Header {
	low, high := settings.TargetRange.Low, settings.TargetRange.High
	var target string
	if settings.DisplayUnit == bloodsugar.UnitMmol {
		target = fmt.Sprintf("%s–%s", formatValue(bloodsugar.MgdlToMmol(low)), formatValue(bloodsugar.MgdlToMmol(high)))
	} else {
		target = fmt.Sprintf("%.0f–%.0f", low, high)
	}
	header := Header{
		Title:  settings.Title,
		URL:    settings.URL,
		Target: target + " " + settings.DisplayUnit.Label(),
	}
	if !latest.Timestamp.IsZero() {
		header.Latest = FormatReading(latest, settings.DisplayUnit)
	}
	return header
}

// FormatReading formats a sample in unit, followed by its trend arrow if the
// source reported a direction.
func FormatReading(s bloodsugar.Sample, unit bloodsugar.Unit) string {
	var value string
	if unit == bloodsugar.UnitMmol {
		value = fmt.Sprintf("%.1f", bloodsugar.MgdlToMmol(s.Value))
	} else {
		value = fmt.Sprintf("%.0f", s.Value)
	}
	reading := value + " " + unit.Label()
	if s.Direction != "" {
		reading += " " + bloodsugar.MapTrendArrow(s.Direction)
	}
	return reading
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func buildCell(label string, slot aggregate.Slot, palette Palette) Cell {
	cell := Cell{
		Label:   label,
		HasData: slot.HasData,
		Samples: slot.Samples,
	}
	if !slot.HasData {
		cell.Stops = []Stop{{Color: palette.Missing, From: 0, To: 100}}
		return cell
	}

	pct := slot.Percentages
	cell.Percentages = pct
	cell.Stops = Stops(pct, palette)
	cell.Tooltip = Tooltip(pct)
	cell.OnTargetLabel = fmt.Sprintf("%.0f%%", pct.OnTarget)
	return cell
}

// Stops stacks the classes bottom to top: low, on target, high, then missing
// up to 100%. Each stop starts where the previous one ended.
func Stops(pct aggregate.RangePercentages, palette Palette) []Stop {
	lowEnd := pct.Low
	onTargetEnd := lowEnd + pct.OnTarget
	highEnd := onTargetEnd + pct.High
	return []Stop{
		{Color: palette.Low, From: 0, To: lowEnd},
		{Color: palette.OnTarget, From: lowEnd, To: onTargetEnd},
		{Color: palette.High, From: onTargetEnd, To: highEnd},
		{Color: palette.Missing, From: highEnd, To: 100},
	}
}

// Tooltip formats the rounded class shares, e.g. "Low 5% / on target 80% / high 15%".
func Tooltip(pct aggregate.RangePercentages) string {
	return fmt.Sprintf("Low %.0f%% / on target %.0f%% / high %.0f%%",
		math.Round(pct.Low), math.Round(pct.OnTarget), math.Round(pct.High))
}

// Gradient returns the CSS background for the cell.
func (c Cell) Gradient() string {
	parts := make([]string, 0, len(c.Stops))
	for _, s := range c.Stops {
		parts = append(parts, fmt.Sprintf("%s %s%%, %s %s%%", s.Color.Hex(), formatPercent(s.From), s.Color.Hex(), formatPercent(s.To)))
	}
	return "linear-gradient(to top, " + strings.Join(parts, ", ") + ")"
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// Bands returns the stops as proportional pixel bands.
func (c Cell) Bands() []domain.Band {
	bands := make([]domain.Band, 0, len(c.Stops))
	for _, s := range c.Stops {
		bands = append(bands, domain.Band{Color: s.Color, Share: s.To - s.From})
	}
	return bands
}

// IntervalLabel names an interval slot by its start time. Whole hours are
// shown as the hour number, anything else as H:MM.
func IntervalLabel(index, intervalSeconds int) string {
	start := index * intervalSeconds
	if intervalSeconds%3600 == 0 {
		return strconv.Itoa(start / 3600)
	}
	return fmt.Sprintf("%d:%02d", start/3600, start%3600/60)
}
