package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/term"
)

// Series is a named sequence of values sampled at run indices.
type Series struct {
	Name    string
	Indices []int
	Values  []float64
}

// Presenter renders one titled panel of series.
type Presenter interface {
	Present(title string, series []Series) error
}

// PlotOptions sizes a terminal plot. Zero values pick defaults.
type PlotOptions struct {
	Width  int
	Height int
	// Color forces ANSI colors even when the writer is not a terminal.
	Color bool
}

// TerminalPresenter draws braille line plots on a fixed 0-100% scale.
type TerminalPresenter struct {
	W    io.Writer
	Opts PlotOptions
}

// Present implements Presenter.
func (p TerminalPresenter) Present(title string, series []Series) error {
	return PlotSeries(p.W, title, series, p.Opts)
}

type lineStyle struct {
	name   string
	period int
	on     int
}

func (ls lineStyle) draws(x int) bool {
	if ls.period <= 1 {
		return true
	}
	if x < 0 {
		x = -x
	}
	return x%ls.period < ls.on
}

const (
	defaultPlotHeight   = 10
	minPlotWidth        = 10
	axisLabelTop        = "100%"
	axisLabelMid        = "50%"
	axisLabelBottom     = "0%"
	axisSeparator       = " │ "
	colorReset          = "\x1b[0m"
	terminalWidthBackup = 80
	dotsX               = 2
	dotsY               = 4
)

var lineStyles = []lineStyle{
	{name: "solid", period: 1, on: 1},
	{name: "dashed", period: 6, on: 3},
	{name: "dotted", period: 4, on: 1},
	{name: "dashdot", period: 8, on: 3},
}

var colorPalette = []string{
	"\x1b[36m", // cyan
	"\x1b[35m", // magenta
	"\x1b[33m", // yellow
	"\x1b[32m", // green
	"\x1b[34m", // blue
}

// brailleBits[x][y] is the dot bit for column x and row y of a braille cell.
var brailleBits = [dotsX][dotsY]uint8{
	{0x01, 0x02, 0x04, 0x40},
	{0x08, 0x10, 0x20, 0x80},
}

// canvas is a grid of braille cells addressed in dot coordinates.
type canvas [][]uint8

func newCanvas(width, height int) canvas {
	c := make(canvas, height)
	for y := range c {
		c[y] = make([]uint8, width)
	}
	return c
}

func (c canvas) set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	row, col := y/dotsY, x/dotsX
	if row >= len(c) || col >= len(c[row]) {
		return
	}
	c[row][col] |= brailleBits[x%dotsX][y%dotsY]
}

// line draws a Bresenham segment, skipping dots the style leaves blank.
func (c canvas) line(x0, y0, x1, y1 int, style lineStyle) {
	dx, dy := absInt(x1-x0), -absInt(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		if style.draws(x0) {
			c.set(x0, y0)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

// PlotSeries renders a multi-line braille plot of values in [0, 1].
func PlotSeries(w io.Writer, title string, series []Series, opts PlotOptions) error {
	series = nonEmptySeries(series)
	if len(series) == 0 {
		return nil
	}
	height := opts.Height
	if height <= 0 {
		height = defaultPlotHeight
	}
	width := opts.Width
	if width <= 0 {
		width = PlotWidthFor(terminalWidth())
	}
	width = max(width, minPlotWidth)

	layers := make([]canvas, len(series))
	dotRows := height * dotsY
	for si, s := range series {
		layers[si] = newCanvas(width, height)
		style := lineStyles[si%len(lineStyles)]
		prevX, prevY := -1, -1
		for x, v := range resample(s.Values, width) {
			px, py := x*dotsX, valueToDotRow(v, dotRows)
			if prevX < 0 {
				if style.draws(px) {
					layers[si].set(px, py)
				}
			} else {
				layers[si].line(prevX, prevY, px, py, style)
			}
			prevX, prevY = px, py
		}
	}

	useColor := shouldUseColor(w, opts.Color)
	labels := axisLabels(height)
	labelWidth := utf8.RuneCountInString(axisLabelTop)

	var out strings.Builder
	if title != "" {
		out.WriteString(title + "\n")
	}
	for y := 0; y < height; y++ {
		fmt.Fprintf(&out, "%*s%s", labelWidth, labels[y], axisSeparator)
		for x := 0; x < width; x++ {
			mask, owner := mergeCell(layers, x, y)
			ch := rune(0x2800 + int(mask))
			if useColor && owner >= 0 {
				out.WriteString(colorPalette[owner%len(colorPalette)])
				out.WriteRune(ch)
				out.WriteString(colorReset)
				continue
			}
			out.WriteRune(ch)
		}
		out.WriteByte('\n')
	}
	out.WriteString(indexFooter(series, labelWidth) + "\n")
	out.WriteString(legend(series, useColor) + "\n\n")
	_, err := io.WriteString(w, out.String())
	return err
}

func nonEmptySeries(series []Series) []Series {
	out := make([]Series, 0, len(series))
	for _, s := range series {
		if len(s.Values) > 0 {
			out = append(out, s)
		}
	}
	return out
}

// PlotWidthFor computes a plot width that fits within the total available width.
func PlotWidthFor(totalWidth int) int {
	if totalWidth <= 0 {
		return minPlotWidth
	}
	axisWidth := utf8.RuneCountInString(axisLabelTop) + utf8.RuneCountInString(axisSeparator)
	return max(totalWidth-axisWidth, minPlotWidth)
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

func shouldUseColor(w io.Writer, force bool) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if force {
		return true
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

func axisLabels(height int) []string {
	labels := make([]string, height)
	labels[0] = axisLabelTop
	if height > 2 {
		labels[height/2] = axisLabelMid
	}
	if height > 1 {
		labels[height-1] = axisLabelBottom
	}
	return labels
}

// mergeCell ORs the layers together; the first layer with a dot owns the color.
func mergeCell(layers []canvas, x, y int) (uint8, int) {
	var mask uint8
	owner := -1
	for i, layer := range layers {
		bits := layer[y][x]
		if bits == 0 {
			continue
		}
		if owner < 0 {
			owner = i
		}
		mask |= bits
	}
	return mask, owner
}

// resample stretches or compresses values to width samples. Compression
// averages buckets; stretching interpolates linearly.
func resample(values []float64, width int) []float64 {
	n := len(values)
	out := make([]float64, width)
	switch {
	case n == width:
		copy(out, values)
	case n > width:
		for i := range out {
			start := i * n / width
			end := max((i+1)*n/width, start+1)
			var sum float64
			for _, v := range values[start:end] {
				sum += v
			}
			out[i] = sum / float64(end-start)
		}
	case n == 1 || width == 1:
		for i := range out {
			out[i] = values[0]
		}
	default:
		step := float64(n-1) / float64(width-1)
		for i := range out {
			pos := float64(i) * step
			lo := int(pos)
			if lo >= n-1 {
				out[i] = values[n-1]
				continue
			}
			frac := pos - float64(lo)
			out[i] = values[lo]*(1-frac) + values[lo+1]*frac
		}
	}
	return out
}

func valueToDotRow(v float64, rows int) int {
	if rows <= 1 {
		return 0
	}
	v = math.Max(0, math.Min(1, v))
	return int(math.Round((1 - v) * float64(rows-1)))
}

func indexFooter(series []Series, pad int) string {
	first, last := -1, -1
	for _, s := range series {
		if len(s.Indices) == 0 {
			continue
		}
		if first < 0 || s.Indices[0] < first {
			first = s.Indices[0]
		}
		if s.Indices[len(s.Indices)-1] > last {
			last = s.Indices[len(s.Indices)-1]
		}
	}
	if first < 0 {
		return ""
	}
	return fmt.Sprintf("%*s%sruns %d..%d", pad, "", axisSeparator, first+1, last+1)
}

func legend(series []Series, useColor bool) string {
	parts := make([]string, 0, len(series))
	marker := rune(0x2800 + int(brailleBits[0][0]))
	for i, s := range series {
		label := fmt.Sprintf("%c %s (%s, last %.0f%%)", marker, s.Name,
			lineStyles[i%len(lineStyles)].name, s.Values[len(s.Values)-1]*100)
		if useColor {
			label = colorPalette[i%len(colorPalette)] + label + colorReset
		}
		parts = append(parts, label)
	}
	return "Legend: " + strings.Join(parts, "  ")
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
