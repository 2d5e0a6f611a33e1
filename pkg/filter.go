package kinfilt

import (
	"fmt"
	"log"
	"math"

	"golang.org/x/exp/rand"
)

// FilterConfig controls FilterParentOffspring. The zero value is not
// usable; start from DefaultFilterConfig.
type FilterConfig struct {
	// Loci with RepAvg below MinRepAvg are excluded from counting.
	MinRepAvg float64
	// Loci with ReadDepth below MinReadDepth are excluded from counting.
	MinReadDepth float64
	// IQR multiplier for the boxplot lower fence.
	Range float64
	// How to pick the removed individual from each flagged pair.
	Method Method
	// Drop loci left monomorphic by the removals.
	RemoveMonomorphic bool
	// Seed for MethodRandom.
	Seed uint64
	// Warnings sink; log.Default() when nil.
	Log *log.Logger
}

func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		MinRepAvg:    1,
		MinReadDepth: 12,
		Range:        1.5,
		Method:       MethodBest,
	}
}

// FilterReport records what one filter invocation computed and removed.
type FilterReport struct {
	Counts             *CountTable
	Stats              CountStats
	Outliers           []Outlier
	Removed            []string
	LociCounted        int
	MonomorphicDropped int
}

// FilterParentOffspring detects putative parent-offspring pairs by their
// anomalously low opposing-homozygote counts and removes one individual
// from each pair. Counting runs on a copy reduced by the reproducibility
// and read-depth prefilters; the call-rate tiebreak always uses the
// original matrix. When a prefilter's metadata is absent that step is
// skipped with a warning. When no pair is flagged the input matrix is
// returned as is.
func FilterParentOffspring(m *GenotypeMatrix, cfg FilterConfig) (*GenotypeMatrix, *FilterReport, error) {
	logger := cfg.Log
	if logger == nil {
		logger = log.Default()
	}
	if m.NInd() < 2 {
		return nil, nil, fmt.Errorf("FilterParentOffspring: need at least 2 individuals, have %v", m.NInd())
	}

	counted := m
	if m.HasRepAvg() {
		counted = counted.KeepLoci(func(l Locus) bool {
			return !math.IsNaN(l.RepAvg) && l.RepAvg >= cfg.MinRepAvg
		})
	} else {
		logger.Printf("FilterParentOffspring: no RepAvg metadata, skipping reproducibility prefilter")
	}
	if m.HasReadDepth() {
		counted = counted.KeepLoci(func(l Locus) bool {
			return !math.IsNaN(l.ReadDepth) && l.ReadDepth >= cfg.MinReadDepth
		})
	} else {
		logger.Printf("FilterParentOffspring: no ReadDepth metadata, skipping read depth prefilter")
	}

	t := PairCounts(counted)
	outliers, s, e := ClassifyOutliers(t, cfg.Range)
	if e != nil {
		return nil, nil, fmt.Errorf("FilterParentOffspring: %w", e)
	}
	rep := &FilterReport{
		Counts:      t,
		Stats:       s,
		Outliers:    outliers,
		LociCounted: counted.NLoc(),
	}
	if len(outliers) == 0 {
		return m, rep, nil
	}

	missCounts := m.MissingCounts()
	missing := make(map[string]int, m.NInd())
	for i, id := range m.Inds {
		missing[id] = missCounts[i]
	}
	rnd := rand.New(rand.NewSource(cfg.Seed))
	rep.Removed, e = SelectRemovals(outliers, missing, cfg.Method, rnd)
	if e != nil {
		return nil, nil, fmt.Errorf("FilterParentOffspring: %w", e)
	}

	out := m.DropIndividuals(rep.Removed...)
	if cfg.RemoveMonomorphic {
		out, rep.MonomorphicDropped = out.DropMonomorphicLoci()
	}
	return out, rep, nil
}
