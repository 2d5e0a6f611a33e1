package kinfilt

import (
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// CountTable holds the per-pair counts of pedigree-inconsistent loci.
// Counts[i][j] is defined for i > j only; the diagonal and upper triangle
// are NaN.
type CountTable struct {
	Inds   []string
	Counts [][]float64
}

func (t *CountTable) Count(i, j int) float64 {
	return t.Counts[i][j]
}

// Values flattens the defined lower triangle in row order.
func (t *CountTable) Values() []float64 {
	n := len(t.Inds)
	out := make([]float64, 0, n*(n-1)/2)
	for i := 1; i < n; i++ {
		out = append(out, t.Counts[i][:i]...)
	}
	return out
}

// pairCount counts loci where one row is homozygous reference and the
// other homozygous alternate. With dosages in {0,1,2} and 3 for missing,
// a*10+b hits 2 or 20 only for the (0,2) and (2,0) patterns, so missing
// calls never count.
func pairCount(a, b []uint8) float64 {
	var n float64
	for k, ga := range a {
		vect := ga*10 + b[k]
		if vect == 2 || vect == 20 {
			n++
		}
	}
	return n
}

// PairCounts computes the pairwise inconsistent-locus counts for every
// unordered pair of individuals in m. Rows of the lower triangle are
// independent, so they are chunked across goroutines; each cell is written
// exactly once and the result does not depend on scheduling.
func PairCounts(m *GenotypeMatrix) *CountTable {
	n := m.NInd()
	t := &CountTable{
		Inds:   append([]string{}, m.Inds...),
		Counts: make([][]float64, n),
	}
	for i := 0; i < n; i++ {
		t.Counts[i] = make([]float64, n)
		for j := range t.Counts[i] {
			t.Counts[i][j] = math.NaN()
		}
	}

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := 1; i < n; i++ {
		g.Go(func() error {
			for j := 0; j < i; j++ {
				t.Counts[i][j] = pairCount(m.Geno[i], m.Geno[j])
			}
			return nil
		})
	}
	_ = g.Wait()
	return t
}
