package heatmap

import (
	"slices"

	"github.com/jwulff/glucoscape/internal/domain"
)

// Pixel layout of the 64x64 frame. The all-days row is on top, then days
// newest first, each RowHeight pixels tall with RowGap pixels between rows.
const (
	RowHeight       = 3
	RowGap          = 1
	ColumnGap       = 1
	MinSummaryWidth = 4
)

// FrameDays returns how many day rows fit below the all-days row.
func FrameDays(size int) int {
	return (size - (RowHeight + RowGap) + RowGap) / (RowHeight + RowGap)
}

// RenderFrame draws the heatmap into a square pixel frame. Each cell is a
// stacked proportional fill in palette colors. Only the most recent days that
// fit are drawn. When there are more slots than pixel columns, columns sample
// the slots evenly.
func RenderFrame(hm Heatmap, size int) *domain.Frame {
	frame := domain.NewFrame(size, size)
	black := domain.NewRGB(0, 0, 0)

	slots := len(hm.Intervals)
	slotWidth := 1
	columns := size - MinSummaryWidth - ColumnGap
	if slots > 0 && slots <= columns {
		slotWidth = columns / slots
		columns = slots
	}
	summaryWidth := size - columns*slotWidth - ColumnGap

	drawRow := func(y int, summary Cell, cells []Cell) {
		frame.FillStacked(0, y, summaryWidth, RowHeight, summary.Bands(), hm.Palette.Missing)
		if len(cells) == 0 {
			return
		}
		for col := 0; col < columns; col++ {
			cell := cells[col*len(cells)/columns]
			x := summaryWidth + ColumnGap + col*slotWidth
			frame.FillStacked(x, y, slotWidth, RowHeight, cell.Bands(), black)
		}
	}

	drawRow(0, hm.Total, hm.Intervals)

	for i, row := range RecentRows(hm.Rows, FrameDays(size)) {
		drawRow((i+1)*(RowHeight+RowGap), row.Summary, row.Cells)
	}

	return frame
}

// RecentRows returns up to n rows, newest first.
func RecentRows(rows []Row, n int) []Row {
	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, func(a, b Row) int {
		return b.Latest.Compare(a.Latest)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
