package kinfilt

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// PLINK binary trio I/O (.bed/.bim/.fam). The 2-bit SNP-major codes are
// recoded to reference-allele dosage with 3 for missing:
//
//	PLINK 0b00 hom minor -> 0
//	PLINK 0b01 missing   -> 3
//	PLINK 0b10 het       -> 1
//	PLINK 0b11 hom major -> 2

var bedMagic = [2]byte{0x6c, 0x1b}

// FamRecord is one .fam line. Sex and phenotype stay strings; the filter
// only passes them through.
type FamRecord struct {
	FID    string
	IID    string
	Father string
	Mother string
	Sex    string
	Pheno  string
}

// ReadFam parses the pedigree records of a .fam file.
func ReadFam(r io.Reader) ([]FamRecord, error) {
	var recs []FamRecord
	s := bufio.NewScanner(r)
	for i := 0; s.Scan(); i++ {
		fields := strings.Fields(s.Text())
		if len(fields) != 6 {
			return nil, fmt.Errorf("ReadFam: line %v: %v fields, want 6", i+1, len(fields))
		}
		recs = append(recs, FamRecord{
			FID:    fields[0],
			IID:    fields[1],
			Father: fields[2],
			Mother: fields[3],
			Sex:    fields[4],
			Pheno:  fields[5],
		})
	}
	return recs, s.Err()
}

// ReadBim parses .bim locus records, keeping the genetic-map distance and
// both allele columns. RepAvg and ReadDepth are not part of the PLINK
// format and are left absent.
func ReadBim(r io.Reader) ([]Locus, error) {
	var loci []Locus
	s := bufio.NewScanner(r)
	for i := 0; s.Scan(); i++ {
		fields := strings.Fields(s.Text())
		if len(fields) != 6 {
			return nil, fmt.Errorf("ReadBim: line %v: %v fields, want 6", i+1, len(fields))
		}
		mapDist, e := strconv.ParseFloat(fields[2], 64)
		if e != nil {
			return nil, fmt.Errorf("ReadBim: line %v: %w", i+1, e)
		}
		pos, e := strconv.Atoi(fields[3])
		if e != nil {
			return nil, fmt.Errorf("ReadBim: line %v: %w", i+1, e)
		}
		loci = append(loci, Locus{
			ID:        fields[1],
			Chrom:     fields[0],
			Pos:       pos,
			Map:       mapDist,
			A1:        fields[4],
			A2:        fields[5],
			RepAvg:    math.NaN(),
			ReadDepth: math.NaN(),
		})
	}
	return loci, s.Err()
}

func bedBytesPerMarker(nInd int) int {
	return (nInd + 3) / 4
}

// ReadBed unpacks a SNP-major .bed stream into individual-major dosage
// rows.
func ReadBed(r io.Reader, nInd, nLoc int) ([][]uint8, error) {
	var header [3]byte
	if _, e := io.ReadFull(r, header[:]); e != nil {
		return nil, fmt.Errorf("ReadBed: header: %w", e)
	}
	if header[0] != bedMagic[0] || header[1] != bedMagic[1] {
		return nil, fmt.Errorf("ReadBed: bad magic %#x %#x", header[0], header[1])
	}
	if header[2] != 1 {
		return nil, fmt.Errorf("ReadBed: individual-major data, recode to SNP-major")
	}

	geno := make([][]uint8, nInd)
	for i := range geno {
		geno[i] = make([]uint8, nLoc)
	}
	buf := make([]byte, bedBytesPerMarker(nInd))
	for v := 0; v < nLoc; v++ {
		if _, e := io.ReadFull(r, buf); e != nil {
			return nil, fmt.Errorf("ReadBed: marker %v: %w", v, e)
		}
		var b byte
		for i := 0; i < nInd; i++ {
			if i%4 == 0 {
				b = buf[i/4]
			}
			switch b & 0x3 {
			case 0:
				geno[i][v] = HomAlt
			case 1:
				geno[i][v] = Missing
			case 2:
				geno[i][v] = Het
			case 3:
				geno[i][v] = HomRef
			}
			b >>= 2
		}
	}
	return geno, nil
}

// ReadPlink assembles a GenotypeMatrix from prefix.bed, prefix.bim and
// prefix.fam.
func ReadPlink(prefix string) (*GenotypeMatrix, error) {
	famf, e := os.Open(prefix + ".fam")
	if e != nil {
		return nil, e
	}
	defer famf.Close()
	fam, e := ReadFam(famf)
	if e != nil {
		return nil, e
	}
	inds := make([]string, len(fam))
	for i, rec := range fam {
		inds[i] = rec.IID
	}

	bimf, e := os.Open(prefix + ".bim")
	if e != nil {
		return nil, e
	}
	defer bimf.Close()
	loci, e := ReadBim(bimf)
	if e != nil {
		return nil, e
	}

	bedf, e := os.Open(prefix + ".bed")
	if e != nil {
		return nil, e
	}
	defer bedf.Close()
	geno, e := ReadBed(bufio.NewReader(bedf), len(inds), len(loci))
	if e != nil {
		return nil, e
	}
	m, e := NewGenotypeMatrix(inds, loci, geno)
	if e != nil {
		return nil, e
	}
	m.Fam = fam
	return m, nil
}

// WriteBed packs m back into SNP-major .bed bytes.
func WriteBed(w io.Writer, m *GenotypeMatrix) error {
	bw := bufio.NewWriter(w)
	if _, e := bw.Write([]byte{bedMagic[0], bedMagic[1], 1}); e != nil {
		return e
	}
	buf := make([]byte, bedBytesPerMarker(m.NInd()))
	for v := 0; v < m.NLoc(); v++ {
		for i := range buf {
			buf[i] = 0
		}
		for i := 0; i < m.NInd(); i++ {
			var code byte
			switch m.Geno[i][v] {
			case HomAlt:
				code = 0
			case Missing:
				code = 1
			case Het:
				code = 2
			case HomRef:
				code = 3
			}
			buf[i/4] |= code << ((i % 4) * 2)
		}
		if _, e := bw.Write(buf); e != nil {
			return e
		}
	}
	return bw.Flush()
}

// WriteFam writes m's pedigree records. Without records it falls back to
// minimal lines with unknown parents, sex and phenotype.
func WriteFam(w io.Writer, m *GenotypeMatrix) error {
	hasFam := len(m.Fam) == len(m.Inds)
	for i, id := range m.Inds {
		if hasFam {
			rec := m.Fam[i]
			if _, e := fmt.Fprintf(w, "%v %v %v %v %v %v\n",
				rec.FID, rec.IID, rec.Father, rec.Mother, rec.Sex, rec.Pheno); e != nil {
				return e
			}
			continue
		}
		if _, e := fmt.Fprintf(w, "0 %v 0 0 0 -9\n", id); e != nil {
			return e
		}
	}
	return nil
}

// WriteBim writes the locus records of m in .bim layout. Unknown alleles
// are written as 0, PLINK's missing-allele code.
func WriteBim(w io.Writer, m *GenotypeMatrix) error {
	for _, loc := range m.Loci {
		a1, a2 := loc.A1, loc.A2
		if a1 == "" {
			a1 = "0"
		}
		if a2 == "" {
			a2 = "0"
		}
		if _, e := fmt.Fprintf(w, "%v %v %v %v %v %v\n",
			loc.Chrom, loc.ID, loc.Map, loc.Pos, a1, a2); e != nil {
			return e
		}
	}
	return nil
}

// WritePlink writes the prefix.bed, prefix.bim and prefix.fam trio for m.
func WritePlink(prefix string, m *GenotypeMatrix) (err error) {
	write := func(ext string, f func(io.Writer, *GenotypeMatrix) error) error {
		w, e := os.Create(prefix + ext)
		if e != nil {
			return e
		}
		if e := f(w, m); e != nil {
			w.Close()
			return e
		}
		return w.Close()
	}
	if e := write(".bed", WriteBed); e != nil {
		return e
	}
	if e := write(".bim", WriteBim); e != nil {
		return e
	}
	return write(".fam", WriteFam)
}
