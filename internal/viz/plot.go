package viz

import (
	"github.com/guptarohit/asciigraph"
)

// Plot renders one series as a terminal graph.
func Plot(series []float64, caption string, height, width int) string {
	if len(series) == 0 {
		return "(no data)"
	}
	if height <= 0 {
		height = 12
	}
	if width <= 0 {
		width = 72
	}
	return asciigraph.Plot(series,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption))
}

// PlotSeries renders several series on one graph with a shared scale.
func PlotSeries(series [][]float64, caption string, height, width int) string {
	if len(series) == 0 {
		return "(no data)"
	}
	if height <= 0 {
		height = 12
	}
	if width <= 0 {
		width = 72
	}
	return asciigraph.PlotMany(series,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption))
}
