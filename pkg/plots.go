package kinfilt

import (
	"fmt"
	"io"
	"math"
	"slices"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// HistogramBin is one bar of the count histogram.
type HistogramBin struct {
	Low   float64
	High  float64
	Count int
}

// Histogram bins vals into nbins equal-width bins over [min, max]. The
// caller picks nbins; 0 falls back to the square-root rule.
func Histogram(vals []float64, nbins int) []HistogramBin {
	if len(vals) == 0 {
		return nil
	}
	if nbins <= 0 {
		nbins = int(math.Ceil(math.Sqrt(float64(len(vals)))))
	}
	lo := slices.Min(vals)
	hi := slices.Max(vals)
	if lo == hi {
		return []HistogramBin{{Low: lo, High: hi, Count: len(vals)}}
	}
	width := (hi - lo) / float64(nbins)
	bins := make([]HistogramBin, nbins)
	for i := range bins {
		bins[i].Low = lo + float64(i)*width
		bins[i].High = lo + float64(i+1)*width
	}
	for _, v := range vals {
		i := int((v - lo) / width)
		if i >= nbins {
			i = nbins - 1
		}
		bins[i].Count++
	}
	return bins
}

func boxplotChart(vals []float64, s CountStats) *charts.BoxPlot {
	box := charts.NewBoxPlot()
	box.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Pairwise inconsistent-locus counts",
			Subtitle: fmt.Sprintf("median %.1f, IQR %.1f", s.Median, s.IQR),
		}),
	)
	five := []float64{slices.Min(vals), s.Q1, s.Median, s.Q3, slices.Max(vals)}
	box.SetXAxis([]string{"counts"}).
		AddSeries("counts", []opts.BoxPlotData{{Value: five}})
	return box
}

func histogramChart(vals []float64, s CountStats) *charts.Bar {
	bins := Histogram(vals, 0)
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Count distribution",
			Subtitle: fmt.Sprintf("lower fence (Q1 - %.2g*IQR) at %.1f", s.Range, s.Cutoff),
		}),
		charts.WithYAxisOpts(opts.YAxis{Name: "pairs"}),
	)
	labels := make([]string, 0, len(bins))
	data := make([]opts.BarData, 0, len(bins))
	cutoffLabel := ""
	for _, b := range bins {
		label := fmt.Sprintf("%.0f", b.Low)
		labels = append(labels, label)
		data = append(data, opts.BarData{Value: b.Count})
		if b.Low <= s.Cutoff && s.Cutoff < b.High {
			cutoffLabel = label
		}
	}
	bar.SetXAxis(labels).AddSeries("pairs", data)
	if cutoffLabel != "" {
		bar.SetSeriesOptions(charts.WithMarkLineNameXAxisItemOpts(
			opts.MarkLineNameXAxisItem{Name: "cutoff", XAxis: cutoffLabel},
		))
	}
	return bar
}

// RenderDiagnostics writes the two diagnostic views of a filter run, a
// boxplot of the pairwise counts and a histogram with the outlier cutoff,
// as a single HTML page. It consumes only plain result data; the filter
// itself never renders anything.
func RenderDiagnostics(w io.Writer, t *CountTable, s CountStats) error {
	vals := t.Values()
	if len(vals) == 0 {
		return fmt.Errorf("RenderDiagnostics: empty count table")
	}
	page := components.NewPage()
	page.AddCharts(boxplotChart(vals, s), histogramChart(vals, s))
	return page.Render(w)
}
