package kinfilt

import (
	"math"
	"slices"
	"strings"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Outlier is one flagged pair: its inconsistent-locus count and the
// count's position in the sample distribution.
type Outlier struct {
	Count float64
	Ind1  string
	Ind2  string
	Z     float64
	P     float64
}

// CountStats summarizes the distribution of pairwise counts. Cutoff is the
// boxplot lower fence Q1 - Range*IQR.
type CountStats struct {
	Mean   float64
	SD     float64
	Median float64
	Q1     float64
	Q3     float64
	IQR    float64
	Range  float64
	Cutoff float64
}

func countStats(vals []float64, rng float64) (CountStats, error) {
	var s CountStats
	var e error
	s.Range = rng
	if s.Mean, e = stats.Mean(vals); e != nil {
		return s, e
	}
	if s.SD, e = stats.StandardDeviation(vals); e != nil {
		return s, e
	}
	if s.Median, e = stats.Median(vals); e != nil {
		return s, e
	}
	q, e := stats.Quartile(vals)
	if e != nil {
		return s, e
	}
	s.Q1, s.Q3 = q.Q1, q.Q3
	if s.IQR, e = stats.InterQuartileRange(vals); e != nil {
		return s, e
	}
	s.Cutoff = s.Q1 - rng*s.IQR
	return s, nil
}

// zscore is -(mean - v)/sd, the signed distance of v below the mean. With
// a zero-variance sample this is -Inf for v below the mean and NaN at the
// mean; it never faults.
func zscore(v, mean, sd float64) float64 {
	return -(mean - v) / sd
}

// ClassifyOutliers flags pairs whose count is both below the sample median
// and below the boxplot lower fence. Both checks are intentional: only the
// lower tail can hold parent-offspring pairs. Each flagged pair carries a
// z-score and the normal CDF of that z under N(mean, sd). Results are one
// per unordered pair, sorted by descending count then by IDs.
func ClassifyOutliers(t *CountTable, rng float64) ([]Outlier, CountStats, error) {
	vals := t.Values()
	s, e := countStats(vals, rng)
	if e != nil {
		return nil, s, e
	}

	norm := distuv.Normal{Mu: s.Mean, Sigma: s.SD}
	var out []Outlier
	seen := make(map[[2]string]struct{})
	for i := 1; i < len(t.Inds); i++ {
		for j := 0; j < i; j++ {
			c := t.Counts[i][j]
			if !(c < s.Median && c < s.Cutoff) {
				continue
			}
			key := [2]string{t.Inds[i], t.Inds[j]}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			z := zscore(c, s.Mean, s.SD)
			p := math.NaN()
			if s.SD > 0 {
				p = norm.CDF(z)
			}
			out = append(out, Outlier{Count: c, Ind1: t.Inds[i], Ind2: t.Inds[j], Z: z, P: p})
		}
	}

	slices.SortFunc(out, func(a, b Outlier) int {
		if a.Count != b.Count {
			if a.Count > b.Count {
				return -1
			}
			return 1
		}
		if c := strings.Compare(a.Ind1, b.Ind1); c != 0 {
			return c
		}
		return strings.Compare(a.Ind2, b.Ind2)
	})
	return out, s, nil
}
