package kinfilt

import (
	"fmt"

	"golang.org/x/exp/rand"
)

// Method selects how each flagged pair is resolved to one removal.
type Method string

const (
	// MethodBest keeps the individual with the better call rate and drops
	// the other.
	MethodBest Method = "best"
	// MethodRandom drops one of the two uniformly at random.
	MethodRandom Method = "random"
)

func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodBest, MethodRandom:
		return Method(s), nil
	}
	return "", fmt.Errorf("ParseMethod: unknown method %v", s)
}

// SelectRemovals nominates one individual from each flagged pair for
// removal. missing holds per-individual missing-call counts from the
// original, unfiltered matrix. With MethodBest the individual with more
// missing calls is dropped; on a tie the second-listed individual of the
// pair is dropped, so the result is deterministic for a stable input
// order. With MethodRandom the choice is uniform over the pair, driven by
// rnd. The result is deduplicated by ID, input order preserved.
func SelectRemovals(outliers []Outlier, missing map[string]int, method Method, rnd *rand.Rand) ([]string, error) {
	var out []string
	chosen := make(map[string]struct{})
	add := func(id string) {
		if _, ok := chosen[id]; !ok {
			chosen[id] = struct{}{}
			out = append(out, id)
		}
	}
	for _, o := range outliers {
		switch method {
		case MethodRandom:
			if rnd.Intn(2) == 0 {
				add(o.Ind1)
			} else {
				add(o.Ind2)
			}
		case MethodBest:
			if missing[o.Ind1] > missing[o.Ind2] {
				add(o.Ind1)
			} else {
				add(o.Ind2)
			}
		default:
			return nil, fmt.Errorf("SelectRemovals: unknown method %v", method)
		}
	}
	return out, nil
}
