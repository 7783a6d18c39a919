// Package charts renders report plots to PNG with go-charts.
package charts

import (
	"fmt"
	"math"

	"github.com/aristath/etfbacktest/pkg/formulas"
	"github.com/rs/zerolog"
	"github.com/vicanso/go-charts/v2"
)

const (
	defaultWidth  = 1000
	defaultHeight = 600

	// frontierBuckets is the number of volatility buckets of the frontier envelope.
	frontierBuckets = 60

	// maxAxisLabels caps the labels drawn on long date axes.
	maxAxisLabels = 10
)

// Renderer produces PNG charts for backtest and frontier reports.
type Renderer struct {
	width  int
	height int
	log    zerolog.Logger
}

// NewRenderer creates a renderer with the default canvas size.
func NewRenderer(log zerolog.Logger) *Renderer {
	return &Renderer{
		width:  defaultWidth,
		height: defaultHeight,
		log:    log.With().Str("service", "charts").Logger(),
	}
}

// Lines draws one line per series over a shared label axis.
func (r *Renderer) Lines(title string, labels []string, names []string, values [][]float64) ([]byte, error) {
	if len(values) == 0 || len(values[0]) == 0 {
		return nil, fmt.Errorf("no data for chart %q", title)
	}
	if len(names) != len(values) {
		return nil, fmt.Errorf("chart %q: %d names for %d series", title, len(names), len(values))
	}

	p, err := charts.LineRender(
		values,
		charts.TitleTextOptionFunc(title),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        labels,
			SplitNumber: min(maxAxisLabels, len(labels)),
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{DivideCount: 5}),
		charts.LegendOptionFunc(charts.LegendOption{
			Data: names,
			Top:  charts.PositionTop,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(r.width),
		charts.HeightOptionFunc(r.height),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render chart %q: %w", title, err)
	}
	return encode(p, title)
}

// Histogram draws the bin counts of each histogram as bars. Bins are matched by
// index; the axis is labeled with the bin centers of the first histogram.
func (r *Renderer) Histogram(title string, names []string, hists []formulas.Histogram) ([]byte, error) {
	if len(hists) == 0 || len(hists[0].Counts) == 0 {
		return nil, fmt.Errorf("no data for chart %q", title)
	}

	first := hists[0]
	labels := make([]string, len(first.Counts))
	for i := range first.Counts {
		center := (first.Edges[i] + first.Edges[i+1]) / 2
		labels[i] = fmt.Sprintf("%.1f%%", center*100)
	}

	values := make([][]float64, len(hists))
	for i, h := range hists {
		values[i] = make([]float64, len(first.Counts))
		copy(values[i], h.Counts)
	}

	p, err := charts.BarRender(
		values,
		charts.TitleTextOptionFunc(title),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        labels,
			SplitNumber: min(maxAxisLabels, len(labels)),
		}),
		charts.LegendOptionFunc(charts.LegendOption{
			Data: names,
			Top:  charts.PositionTop,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(r.width),
		charts.HeightOptionFunc(r.height),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render chart %q: %w", title, err)
	}
	return encode(p, title)
}

// Pie draws an allocation pie with percentage legend labels.
func (r *Renderer) Pie(title string, labels []string, values []float64) ([]byte, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("no data for chart %q", title)
	}

	total := 0.0
	for _, v := range values {
		total += v
	}
	legend := make([]string, len(labels))
	for i, l := range labels {
		legend[i] = fmt.Sprintf("%s (%.1f%%)", l, values[i]/total*100)
	}

	p, err := charts.PieRender(
		values,
		charts.TitleTextOptionFunc(title),
		charts.LegendOptionFunc(charts.LegendOption{
			Data: legend,
			Top:  charts.PositionTop,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(800),
		charts.HeightOptionFunc(r.height),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render chart %q: %w", title, err)
	}
	return encode(p, title)
}

// Frontier draws the sample cloud as its upper and lower return envelopes over
// volatility buckets.
func (r *Renderer) Frontier(title string, volatilities, returns []float64) ([]byte, error) {
	labels, upper, lower := envelope(volatilities, returns, frontierBuckets)
	if len(labels) == 0 {
		return nil, fmt.Errorf("no data for chart %q", title)
	}

	pct := func(xs []float64) []float64 {
		out := make([]float64, len(xs))
		for i, x := range xs {
			out[i] = x * 100
		}
		return out
	}

	p, err := charts.LineRender(
		[][]float64{pct(upper), pct(lower)},
		charts.TitleTextOptionFunc(title, "annual return % by annual volatility %"),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        labels,
			SplitNumber: min(maxAxisLabels, len(labels)),
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{DivideCount: 5}),
		charts.LegendOptionFunc(charts.LegendOption{
			Data: []string{"Best return", "Worst return"},
			Top:  charts.PositionTop,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(r.width),
		charts.HeightOptionFunc(r.height),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render chart %q: %w", title, err)
	}
	return encode(p, title)
}

// Bars draws one bar series per name over the given categories.
func (r *Renderer) Bars(title string, categories []string, names []string, values [][]float64) ([]byte, error) {
	if len(values) == 0 || len(categories) == 0 {
		return nil, fmt.Errorf("no data for chart %q", title)
	}

	p, err := charts.BarRender(
		values,
		charts.TitleTextOptionFunc(title),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: categories}),
		charts.LegendOptionFunc(charts.LegendOption{
			Data: names,
			Top:  charts.PositionTop,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(r.width),
		charts.HeightOptionFunc(r.height),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render chart %q: %w", title, err)
	}
	return encode(p, title)
}

func encode(p *charts.Painter, title string) ([]byte, error) {
	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to encode chart %q: %w", title, err)
	}
	return buf, nil
}

// envelope buckets points by volatility and returns, per non-empty bucket, the
// bucket label and the highest and lowest return in it.
func envelope(volatilities, returns []float64, buckets int) (labels []string, upper, lower []float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, v := range volatilities {
		if math.IsNaN(v) || math.IsNaN(returns[i]) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if math.IsInf(lo, 1) {
		return nil, nil, nil
	}

	width := (hi - lo) / float64(buckets)
	if width == 0 {
		return []string{fmt.Sprintf("%.1f", lo*100)}, []float64{maxOf(returns)}, []float64{minOf(returns)}
	}

	top := make([]float64, buckets)
	bottom := make([]float64, buckets)
	seen := make([]bool, buckets)
	for i, v := range volatilities {
		ret := returns[i]
		if math.IsNaN(v) || math.IsNaN(ret) {
			continue
		}
		b := min(int((v-lo)/width), buckets-1)
		if !seen[b] {
			top[b], bottom[b], seen[b] = ret, ret, true
			continue
		}
		top[b] = math.Max(top[b], ret)
		bottom[b] = math.Min(bottom[b], ret)
	}

	for b := 0; b < buckets; b++ {
		if !seen[b] {
			continue
		}
		center := lo + (float64(b)+0.5)*width
		labels = append(labels, fmt.Sprintf("%.1f", center*100))
		upper = append(upper, top[b])
		lower = append(lower, bottom[b])
	}
	return labels, upper, lower
}

func maxOf(xs []float64) float64 {
	m := math.Inf(-1)
	for _, x := range xs {
		m = math.Max(m, x)
	}
	return m
}

func minOf(xs []float64) float64 {
	m := math.Inf(1)
	for _, x := range xs {
		m = math.Min(m, x)
	}
	return m
}
