package kinfilt

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func mustMatrix(t *testing.T, inds []string, geno [][]uint8) *GenotypeMatrix {
	t.Helper()
	loci := make([]Locus, len(geno[0]))
	for j := range loci {
		loci[j] = Locus{ID: "L" + string(rune('a'+j%26)), RepAvg: math.NaN(), ReadDepth: math.NaN()}
	}
	m, e := NewGenotypeMatrix(inds, loci, geno)
	require.NoError(t, e)
	return m
}

func TestPairCountsIdenticalRows(t *testing.T) {
	m := mustMatrix(t, []string{"a", "b"}, [][]uint8{
		{0, 1, 2, 0, 2, 1},
		{0, 1, 2, 0, 2, 1},
	})
	pc := PairCounts(m)
	require.Equal(t, 0.0, pc.Count(1, 0))
}

func TestPairCountsExactK(t *testing.T) {
	// Three loci with opposing homozygotes, in both directions, and
	// every other pattern mixed in.
	m := mustMatrix(t, []string{"a", "b"}, [][]uint8{
		{0, 2, 0, 1, 1, 2, 2, 3, 0},
		{2, 0, 2, 0, 2, 1, 2, 2, 3},
	})
	pc := PairCounts(m)
	require.Equal(t, 3.0, pc.Count(1, 0))
}

func TestPairCountsMissingSkipped(t *testing.T) {
	m := mustMatrix(t, []string{"a", "b"}, [][]uint8{
		{0, 3, 0, 3},
		{2, 2, 3, 3},
	})
	pc := PairCounts(m)
	require.Equal(t, 1.0, pc.Count(1, 0))
}

func TestPairCountsTriangle(t *testing.T) {
	m := mustMatrix(t, []string{"a", "b", "c"}, [][]uint8{
		{0, 0, 0},
		{2, 2, 2},
		{1, 1, 1},
	})
	pc := PairCounts(m)
	for i := 0; i < 3; i++ {
		for j := i; j < 3; j++ {
			require.True(t, math.IsNaN(pc.Count(i, j)), "cell %v,%v should be undefined", i, j)
		}
	}
	require.Equal(t, 3.0, pc.Count(1, 0))
	require.Equal(t, 0.0, pc.Count(2, 0))
	require.Equal(t, 0.0, pc.Count(2, 1))
	require.Len(t, pc.Values(), 3)
}

func TestPairCountsBoundedBySharedLoci(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	n, nloc := 12, 80
	inds := make([]string, n)
	geno := make([][]uint8, n)
	for i := range geno {
		inds[i] = string(rune('a' + i))
		geno[i] = make([]uint8, nloc)
		for j := range geno[i] {
			geno[i][j] = uint8(rnd.Intn(4))
		}
	}
	m := mustMatrix(t, inds, geno)
	pc := PairCounts(m)
	for i := 1; i < n; i++ {
		for j := 0; j < i; j++ {
			shared := 0
			for k := 0; k < nloc; k++ {
				if geno[i][k] != Missing && geno[j][k] != Missing {
					shared++
				}
			}
			require.LessOrEqual(t, pc.Count(i, j), float64(shared))
		}
	}
}
