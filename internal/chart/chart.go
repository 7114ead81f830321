// Package chart renders rolling curves as an interactive HTML page.
package chart

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/verte-zerg/spirecurve/internal/stats"
)

const (
	chartHeight = "420px"
	lineWidth   = 2
	pageTitle   = "spirecurve"
)

// ErrEmpty is returned by Render when no panel was added.
var ErrEmpty = errors.New("no curves to render")

// Page collects one line chart per presented panel.
type Page struct {
	Title  string
	charts []components.Charter
}

// NewPage returns an empty page.
func NewPage(title string) *Page {
	if title == "" {
		title = pageTitle
	}
	return &Page{Title: title}
}

// Present implements stats.Presenter.
func (p *Page) Present(title string, series []stats.Series) error {
	labels := xLabels(series)
	if len(labels) == 0 {
		return nil
	}
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Run"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Ratio", Type: "value", Min: 0, Max: 1}),
	)
	line.SetXAxis(labels)
	for _, s := range series {
		if len(s.Values) == 0 {
			continue
		}
		line.AddSeries(s.Name, lineData(s, labels),
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
			charts.WithLineStyleOpts(opts.LineStyle{Width: lineWidth}),
		)
	}
	p.charts = append(p.charts, line)
	return nil
}

// Len reports the number of panels added so far.
func (p *Page) Len() int {
	return len(p.charts)
}

// Render writes the full HTML document.
func (p *Page) Render(w io.Writer) error {
	if len(p.charts) == 0 {
		return ErrEmpty
	}
	page := components.NewPage()
	page.PageTitle = p.Title
	page.SetLayout(components.PageFlexLayout)
	page.AddCharts(p.charts...)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("rendering page: %w", err)
	}
	return nil
}

// xLabels returns the 1-based run numbers covered by any series, in order.
func xLabels(series []stats.Series) []string {
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
		return nil
	}
	labels := make([]string, 0, last-first+1)
	for i := first; i <= last; i++ {
		labels = append(labels, strconv.Itoa(i+1))
	}
	return labels
}

// lineData aligns a series onto the shared axis, leaving gaps as "-".
func lineData(s stats.Series, labels []string) []opts.LineData {
	data := make([]opts.LineData, len(labels))
	for i := range data {
		data[i] = opts.LineData{Value: "-"}
	}
	if len(labels) == 0 {
		return data
	}
	first, err := strconv.Atoi(labels[0])
	if err != nil {
		return data
	}
	for i, idx := range s.Indices {
		if i >= len(s.Values) {
			break
		}
		pos := idx + 1 - first
		if pos < 0 || pos >= len(data) {
			continue
		}
		data[pos] = opts.LineData{Value: s.Values[i]}
	}
	return data
}
