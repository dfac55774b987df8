package heatmap

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/jwulff/glucoscape/internal/aggregate"
)

const (
	labelWidth   = 10
	terminalCell = "██"
	emptyCell    = "··"
	// Interval labels are printed above every third cell.
	labelEvery = 3
)

// classColor returns the terminal color for a class, matching the palette roles.
func classColor(class aggregate.RangeClass) *color.Color {
	switch class {
	case aggregate.ClassLow:
		return color.New(color.FgRed)
	case aggregate.ClassHigh:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgGreen)
	}
}

// RenderTerminal writes the heatmap as colored text. Each cell shows the
// dominant class; rows end with the on-target share.
func RenderTerminal(w io.Writer, hm Heatmap) error {
	var output strings.Builder

	title := hm.Header.Title
	if title == "" {
		title = hm.Header.URL
	}
	output.WriteString(color.New(color.Bold).Sprint(title))
	output.WriteString(color.New(color.FgHiBlack).Sprintf("  target %s\n\n", hm.Header.Target))

	// Interval labels
	output.WriteString(strings.Repeat(" ", labelWidth+1))
	for i := 0; i < len(hm.Intervals); i += labelEvery {
		output.WriteString(fmt.Sprintf("%-*s", labelEvery*len([]rune(terminalCell)), hm.Intervals[i].Label))
	}
	output.WriteString("\n")

	output.WriteString(terminalRow("all days", hm.Intervals, hm.Total))
	output.WriteString("\n")
	for _, row := range hm.Rows {
		output.WriteString(terminalRow(row.Label, row.Cells, row.Summary))
	}

	if hm.Rejected > 0 {
		output.WriteString(color.New(color.FgHiBlack).Sprintf("\n%d malformed readings skipped\n", hm.Rejected))
	}

	_, err := io.WriteString(w, output.String())
	return err
}

func terminalRow(label string, cells []Cell, summary Cell) string {
	var line strings.Builder
	line.WriteString(fmt.Sprintf("%-*s ", labelWidth, label))
	for _, cell := range cells {
		line.WriteString(terminalCellString(cell))
	}
	if summary.HasData {
		line.WriteString(" " + classColor(summary.Percentages.Dominant()).Sprintf("%4s", summary.OnTargetLabel))
	}
	line.WriteString("\n")
	return line.String()
}

func terminalCellString(cell Cell) string {
	if !cell.HasData {
		return color.New(color.FgHiBlack).Sprint(emptyCell)
	}
	return classColor(cell.Percentages.Dominant()).Sprint(terminalCell)
}
