package kinfilt

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"os"

	"github.com/jgbaldwinbrown/csvh"
	"github.com/jgbaldwinbrown/iterh"
	"github.com/kshedden/gonpy"
)

// WriteReport writes the flagged pairs as a tab-separated table.
func WriteReport(w io.Writer, outliers []Outlier) error {
	if _, e := fmt.Fprintf(w, "count\tind1\tind2\tz\tp\n"); e != nil {
		return e
	}
	for _, o := range outliers {
		if _, e := fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\n", o.Count, o.Ind1, o.Ind2, o.Z, o.P); e != nil {
			return e
		}
	}
	return nil
}

func WriteReportPath(path string, outliers []Outlier) (err error) {
	w, e := csvh.CreateMaybeGz(path)
	if e != nil {
		return e
	}
	defer func() { csvh.DeferE(&err, w.Close()) }()
	return WriteReport(w, outliers)
}

func parseReportLine(line []string) (Outlier, error) {
	var o Outlier
	if len(line) != 5 {
		return o, fmt.Errorf("parseReportLine: %v fields, want 5", len(line))
	}
	_, e := csvh.Scan(line, &o.Count, &o.Ind1, &o.Ind2, &o.Z, &o.P)
	return o, e
}

// ParseReport reads back a table written by WriteReport.
func ParseReport(r io.Reader) iter.Seq2[Outlier, error] {
	return func(y func(Outlier, error) bool) {
		hl := func(e error, l []string) error {
			return fmt.Errorf("ParseReport: line %v; %w", l, e)
		}
		cr := csvh.CsvIn(r)

		if _, e := cr.Read(); e != nil {
			y(Outlier{}, fmt.Errorf("ParseReport: header: %w", e))
			return
		}

		for l, e := cr.Read(); e != io.EOF; l, e = cr.Read() {
			if e != nil {
				if !y(Outlier{}, hl(e, l)) {
					return
				}
			}
			o, e := parseReportLine(l)
			if e != nil {
				if !y(o, hl(e, l)) {
					return
				}
			}
			if !y(o, nil) {
				return
			}
		}
	}
}

func ParseReportPath(path string) iter.Seq2[Outlier, error] {
	return func(y func(Outlier, error) bool) {
		r, e := csvh.OpenMaybeGz(path)
		if e != nil {
			y(Outlier{}, e)
			return
		}
		defer r.Close()
		for o, e := range ParseReport(r) {
			if !y(o, e) {
				return
			}
		}
	}
}

// CollectReportPath slurps a report file into a slice.
func CollectReportPath(path string) ([]Outlier, error) {
	var e error
	outliers := iterh.Collect(iterh.BreakOnError(ParseReportPath(path), &e))
	return outliers, e
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// WriteCountsNpy stores the full pairwise table as a square float64 .npy
// matrix, NaN in the diagonal and upper triangle.
func WriteCountsNpy(path string, t *CountTable) (err error) {
	f, e := os.Create(path)
	if e != nil {
		return e
	}
	defer func() { csvh.DeferE(&err, f.Close()) }()
	bufw := bufio.NewWriter(f)
	npw, e := gonpy.NewWriter(nopCloser{bufw})
	if e != nil {
		return e
	}
	n := len(t.Inds)
	npw.Shape = []int{n, n}
	flat := make([]float64, 0, n*n)
	for _, row := range t.Counts {
		flat = append(flat, row...)
	}
	if e := npw.WriteFloat64(flat); e != nil {
		return e
	}
	return bufw.Flush()
}

// ReadCountsNpy loads a square matrix written by WriteCountsNpy.
func ReadCountsNpy(path string) ([][]float64, error) {
	r, e := gonpy.NewFileReader(path)
	if e != nil {
		return nil, e
	}
	if len(r.Shape) != 2 || r.Shape[0] != r.Shape[1] {
		return nil, fmt.Errorf("ReadCountsNpy: %v: not a square matrix", path)
	}
	flat, e := r.GetFloat64()
	if e != nil {
		return nil, e
	}
	n := r.Shape[0]
	out := make([][]float64, n)
	if r.ColumnMajor {
		// Fortran-order data lands transposed in the flat slice.
		for i := 0; i < n; i++ {
			out[i] = make([]float64, n)
			for j := 0; j < n; j++ {
				out[i][j] = flat[j*n+i]
			}
		}
		return out, nil
	}
	for i := 0; i < n; i++ {
		out[i] = flat[i*n : (i+1)*n]
	}
	return out, nil
}
