package kinfilt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// IBDPair is one row of the EMIBD9 pairwise table: the estimated
// relatedness r and the nine condensed Jacquard coefficients.
type IBDPair struct {
	Ind1  string
	Ind2  string
	R     float64
	Delta [9]float64
}

// RelatednessResult holds the parsed EMIBD9 report. Inbreeding is derived
// from the self pairs, F = 2r - 1, and is keyed by full individual ID.
type RelatednessResult struct {
	Pairs      []IBDPair
	Inbreeding map[string]float64
}

var ErrNoIBDSection = errors.New("IBD section marker not found")
var ErrNoGenoSection = errors.New("Indiv genotypes section marker not found")

// parseIBDRow reads one table row: two truncated IDs, r, then the nine
// deltas. Non-row lines inside the section (column headers, blanks)
// return false.
func parseIBDRow(fields []string) (IBDPair, bool) {
	var p IBDPair
	if len(fields) != 12 {
		return p, false
	}
	r, e := strconv.ParseFloat(fields[2], 64)
	if e != nil {
		return p, false
	}
	p.Ind1, p.Ind2, p.R = fields[0], fields[1], r
	for i := 0; i < 9; i++ {
		d, e := strconv.ParseFloat(fields[3+i], 64)
		if e != nil {
			return p, false
		}
		p.Delta[i] = d
	}
	return p, true
}

func restoreID(back map[string]string, short string) string {
	if full, ok := back[short]; ok {
		return full
	}
	return short
}

// ParseIBDOutput extracts the relatedness and inbreeding tables from an
// EMIBD9 report. The pairwise table sits between the "IBD" and
// "Indiv genotypes" section markers; a report missing either marker is a
// parse failure, with no partial recovery. back maps EMIBD9's truncated
// IDs to the original identifiers.
func ParseIBDOutput(r io.Reader, back map[string]string) (*RelatednessResult, error) {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 1024*1024), bufio.MaxScanTokenSize)

	inIBD := false
	sawGeno := false
	res := &RelatednessResult{Inbreeding: make(map[string]float64)}
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if !inIBD {
			if strings.HasPrefix(line, "IBD") {
				inIBD = true
			}
			continue
		}
		if strings.HasPrefix(line, "Indiv genotypes") {
			sawGeno = true
			break
		}
		p, ok := parseIBDRow(strings.Fields(line))
		if !ok {
			continue
		}
		p.Ind1 = restoreID(back, p.Ind1)
		p.Ind2 = restoreID(back, p.Ind2)
		if p.Ind1 == p.Ind2 {
			res.Inbreeding[p.Ind1] = 2*p.R - 1
			continue
		}
		res.Pairs = append(res.Pairs, p)
	}
	if e := s.Err(); e != nil {
		return nil, fmt.Errorf("ParseIBDOutput: %w", e)
	}
	if !inIBD {
		return nil, fmt.Errorf("ParseIBDOutput: %w", ErrNoIBDSection)
	}
	if !sawGeno {
		return nil, fmt.Errorf("ParseIBDOutput: %w", ErrNoGenoSection)
	}
	return res, nil
}

// WriteRelatedness prints the pairwise table as TSV.
func WriteRelatedness(w io.Writer, res *RelatednessResult) error {
	if _, e := fmt.Fprintf(w, "ind1\tind2\tr\td1\td2\td3\td4\td5\td6\td7\td8\td9\n"); e != nil {
		return e
	}
	for _, p := range res.Pairs {
		if _, e := fmt.Fprintf(w, "%v\t%v\t%v", p.Ind1, p.Ind2, p.R); e != nil {
			return e
		}
		for _, d := range p.Delta {
			if _, e := fmt.Fprintf(w, "\t%v", d); e != nil {
				return e
			}
		}
		if _, e := fmt.Fprintf(w, "\n"); e != nil {
			return e
		}
	}
	return nil
}
