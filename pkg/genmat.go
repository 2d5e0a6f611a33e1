package kinfilt

import (
	"fmt"
	"math"
)

// Genotype coding: reference allele dosage per locus. 3 marks a missing
// call, matching the EIGENSTRAT-style coding EMIBD9 reads.
const (
	HomAlt  uint8 = 0
	Het     uint8 = 1
	HomRef  uint8 = 2
	Missing uint8 = 3
)

// Locus metadata. Map, A1 and A2 are the genetic-map distance and allele
// columns of a .bim record; A1/A2 are empty when unknown. RepAvg and
// ReadDepth come from the calling pipeline and may be absent; NaN marks an
// absent value.
type Locus struct {
	ID        string
	Chrom     string
	Pos       int
	Map       float64
	A1        string
	A2        string
	RepAvg    float64
	ReadDepth float64
}

// GenotypeMatrix holds individual-major dosage calls for a set of loci.
// Individuals are identified by unique strings. Analysis code treats the
// matrix as immutable; reductions return new matrices.
type GenotypeMatrix struct {
	Inds []string
	Loci []Locus
	Geno [][]uint8
	// Pedigree records parallel to Inds, kept so a filtered matrix writes
	// back the .fam columns it was read with. Nil when the matrix did not
	// come from a PLINK trio.
	Fam []FamRecord
}

func NewGenotypeMatrix(inds []string, loci []Locus, geno [][]uint8) (*GenotypeMatrix, error) {
	if len(geno) != len(inds) {
		return nil, fmt.Errorf("NewGenotypeMatrix: %v genotype rows for %v individuals", len(geno), len(inds))
	}
	seen := make(map[string]struct{}, len(inds))
	for _, id := range inds {
		if _, ok := seen[id]; ok {
			return nil, fmt.Errorf("NewGenotypeMatrix: duplicate individual %v", id)
		}
		seen[id] = struct{}{}
	}
	for i, row := range geno {
		if len(row) != len(loci) {
			return nil, fmt.Errorf("NewGenotypeMatrix: individual %v has %v calls for %v loci", inds[i], len(row), len(loci))
		}
		for j, g := range row {
			if g > Missing {
				return nil, fmt.Errorf("NewGenotypeMatrix: individual %v locus %v: bad dosage %v", inds[i], j, g)
			}
		}
	}
	return &GenotypeMatrix{Inds: inds, Loci: loci, Geno: geno}, nil
}

func (m *GenotypeMatrix) NInd() int {
	return len(m.Inds)
}

func (m *GenotypeMatrix) NLoc() int {
	return len(m.Loci)
}

func (m *GenotypeMatrix) Clone() *GenotypeMatrix {
	out := &GenotypeMatrix{
		Inds: append([]string{}, m.Inds...),
		Loci: append([]Locus{}, m.Loci...),
		Geno: make([][]uint8, 0, len(m.Geno)),
	}
	for _, row := range m.Geno {
		out.Geno = append(out.Geno, append([]uint8{}, row...))
	}
	if m.Fam != nil {
		out.Fam = append([]FamRecord{}, m.Fam...)
	}
	return out
}

// MissingCounts returns the per-individual count of missing calls, in
// individual order.
func (m *GenotypeMatrix) MissingCounts() []int {
	out := make([]int, len(m.Inds))
	for i, row := range m.Geno {
		for _, g := range row {
			if g == Missing {
				out[i]++
			}
		}
	}
	return out
}

// DropIndividuals returns a copy of m without the named individuals.
// Unknown IDs are ignored.
func (m *GenotypeMatrix) DropIndividuals(ids ...string) *GenotypeMatrix {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	out := &GenotypeMatrix{Loci: append([]Locus{}, m.Loci...)}
	hasFam := len(m.Fam) == len(m.Inds)
	for i, id := range m.Inds {
		if _, ok := drop[id]; ok {
			continue
		}
		out.Inds = append(out.Inds, id)
		out.Geno = append(out.Geno, append([]uint8{}, m.Geno[i]...))
		if hasFam {
			out.Fam = append(out.Fam, m.Fam[i])
		}
	}
	return out
}

// KeepLoci returns a copy of m containing only loci for which keep returns
// true.
func (m *GenotypeMatrix) KeepLoci(keep func(Locus) bool) *GenotypeMatrix {
	var idx []int
	out := &GenotypeMatrix{Inds: append([]string{}, m.Inds...)}
	if m.Fam != nil {
		out.Fam = append([]FamRecord{}, m.Fam...)
	}
	for j, loc := range m.Loci {
		if keep(loc) {
			idx = append(idx, j)
			out.Loci = append(out.Loci, loc)
		}
	}
	for _, row := range m.Geno {
		nrow := make([]uint8, 0, len(idx))
		for _, j := range idx {
			nrow = append(nrow, row[j])
		}
		out.Geno = append(out.Geno, nrow)
	}
	return out
}

// DropMonomorphicLoci removes loci with at most one allele segregating
// among the non-missing calls, including all-missing loci. It returns the
// reduced matrix and the number of loci dropped.
func (m *GenotypeMatrix) DropMonomorphicLoci() (*GenotypeMatrix, int) {
	poly := make([]bool, len(m.Loci))
	for j := range m.Loci {
		var refSeen, altSeen bool
		for i := range m.Geno {
			switch m.Geno[i][j] {
			case Het:
				refSeen, altSeen = true, true
			case HomRef:
				refSeen = true
			case HomAlt:
				altSeen = true
			}
		}
		poly[j] = refSeen && altSeen
	}
	j := 0
	out := m.KeepLoci(func(Locus) bool {
		ok := poly[j]
		j++
		return ok
	})
	return out, m.NLoc() - out.NLoc()
}

// HasRepAvg reports whether any locus carries a reproducibility score.
func (m *GenotypeMatrix) HasRepAvg() bool {
	for _, loc := range m.Loci {
		if !math.IsNaN(loc.RepAvg) {
			return true
		}
	}
	return false
}

// HasReadDepth reports whether any locus carries a read depth.
func (m *GenotypeMatrix) HasReadDepth() bool {
	for _, loc := range m.Loci {
		if !math.IsNaN(loc.ReadDepth) {
			return true
		}
	}
	return false
}
