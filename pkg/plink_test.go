package kinfilt

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBedRoundTrip(t *testing.T) {
	// Five individuals exercises the padded final byte.
	m := mustMatrix(t, []string{"a", "b", "c", "d", "e"}, [][]uint8{
		{0, 1, 2, 3, 0, 1, 2},
		{2, 2, 2, 2, 2, 2, 2},
		{3, 3, 3, 3, 3, 3, 3},
		{1, 0, 1, 0, 1, 0, 1},
		{0, 0, 0, 2, 2, 2, 1},
	})
	var buf bytes.Buffer
	require.NoError(t, WriteBed(&buf, m))
	got, e := ReadBed(&buf, m.NInd(), m.NLoc())
	require.NoError(t, e)
	require.Equal(t, m.Geno, got)
}

func TestReadBedRejectsBadHeader(t *testing.T) {
	_, e := ReadBed(bytes.NewReader([]byte{0, 0, 1, 0}), 1, 1)
	require.Error(t, e)

	// Individual-major flag.
	_, e = ReadBed(bytes.NewReader([]byte{0x6c, 0x1b, 0, 0}), 1, 1)
	require.Error(t, e)
}

func TestFamRoundTrip(t *testing.T) {
	m := mustMatrix(t, []string{"kid", "dad"}, [][]uint8{{0}, {1}})
	m.Fam = []FamRecord{
		{FID: "fam1", IID: "kid", Father: "dad", Mother: "mum", Sex: "1", Pheno: "2"},
		{FID: "fam1", IID: "dad", Father: "0", Mother: "0", Sex: "1", Pheno: "-9"},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteFam(&buf, m))
	recs, e := ReadFam(&buf)
	require.NoError(t, e)
	require.Equal(t, m.Fam, recs)
}

func TestWriteFamWithoutRecords(t *testing.T) {
	m := mustMatrix(t, []string{"ind1", "ind2"}, [][]uint8{{0}, {1}})
	var buf bytes.Buffer
	require.NoError(t, WriteFam(&buf, m))
	recs, e := ReadFam(&buf)
	require.NoError(t, e)
	require.Len(t, recs, 2)
	require.Equal(t, FamRecord{FID: "0", IID: "ind1", Father: "0", Mother: "0", Sex: "0", Pheno: "-9"}, recs[0])
	require.Equal(t, "ind2", recs[1].IID)
}

func TestReadFamRejectsShortLines(t *testing.T) {
	_, e := ReadFam(strings.NewReader("fam1 ind1 0 0\n"))
	require.Error(t, e)
}

func TestReadBim(t *testing.T) {
	in := "1 rs123 0.02 752566 G A\n2 rs456 0 10019 C T\n"
	loci, e := ReadBim(strings.NewReader(in))
	require.NoError(t, e)
	require.Len(t, loci, 2)
	require.Equal(t, "rs123", loci[0].ID)
	require.Equal(t, "1", loci[0].Chrom)
	require.Equal(t, 752566, loci[0].Pos)
	require.Equal(t, 0.02, loci[0].Map)
	require.Equal(t, "G", loci[0].A1)
	require.Equal(t, "A", loci[0].A2)
	require.Equal(t, "rs456", loci[1].ID)
	require.Equal(t, "T", loci[1].A2)

	_, e = ReadBim(strings.NewReader("1 rs1 0 notanumber G A\n"))
	require.Error(t, e)
	_, e = ReadBim(strings.NewReader("1 rs1 notanumber 100 G A\n"))
	require.Error(t, e)
}

func TestBimRoundTripKeepsColumns(t *testing.T) {
	in := "1 rs123 0.02 752566 G A\n2 rs456 0 10019 C T\n"
	loci, e := ReadBim(strings.NewReader(in))
	require.NoError(t, e)
	m := &GenotypeMatrix{Loci: loci}
	var buf bytes.Buffer
	require.NoError(t, WriteBim(&buf, m))
	require.Equal(t, in, buf.String())
}

func TestWriteBimUnknownAlleles(t *testing.T) {
	m := &GenotypeMatrix{Loci: []Locus{{ID: "L1", Chrom: "1", Pos: 500}}}
	var buf bytes.Buffer
	require.NoError(t, WriteBim(&buf, m))
	require.Equal(t, "1 L1 0 500 0 0\n", buf.String())
}

func TestPlinkTrioRoundTrip(t *testing.T) {
	m := mustMatrix(t, []string{"a", "b", "c"}, [][]uint8{
		{0, 1, 2, 3},
		{2, 0, 1, 1},
		{1, 1, 0, 2},
	})
	alleles := []string{"A", "C", "G", "T"}
	for j := range m.Loci {
		m.Loci[j].Chrom = "1"
		m.Loci[j].Pos = 100 + j
		m.Loci[j].Map = 0.5 * float64(j)
		m.Loci[j].A1 = alleles[j]
		m.Loci[j].A2 = alleles[(j+1)%len(alleles)]
	}
	m.Fam = []FamRecord{
		{FID: "f1", IID: "a", Father: "b", Mother: "c", Sex: "2", Pheno: "1"},
		{FID: "f1", IID: "b", Father: "0", Mother: "0", Sex: "1", Pheno: "-9"},
		{FID: "f2", IID: "c", Father: "0", Mother: "0", Sex: "2", Pheno: "-9"},
	}
	prefix := filepath.Join(t.TempDir(), "trio")
	require.NoError(t, WritePlink(prefix, m))
	got, e := ReadPlink(prefix)
	require.NoError(t, e)
	require.Equal(t, m.Inds, got.Inds)
	require.Equal(t, m.Geno, got.Geno)
	require.Equal(t, m.Fam, got.Fam)
	require.Equal(t, m.NLoc(), got.NLoc())
	for j, loc := range m.Loci {
		require.Equal(t, loc.ID, got.Loci[j].ID)
		require.Equal(t, loc.Chrom, got.Loci[j].Chrom)
		require.Equal(t, loc.Pos, got.Loci[j].Pos)
		require.Equal(t, loc.Map, got.Loci[j].Map)
		require.Equal(t, loc.A1, got.Loci[j].A1)
		require.Equal(t, loc.A2, got.Loci[j].A2)
	}
}

func TestDropIndividualsKeepsFam(t *testing.T) {
	m := mustMatrix(t, []string{"a", "b", "c"}, [][]uint8{{0}, {1}, {2}})
	m.Fam = []FamRecord{
		{FID: "f1", IID: "a", Father: "0", Mother: "0", Sex: "1", Pheno: "-9"},
		{FID: "f1", IID: "b", Father: "0", Mother: "0", Sex: "2", Pheno: "-9"},
		{FID: "f2", IID: "c", Father: "0", Mother: "0", Sex: "1", Pheno: "-9"},
	}
	got := m.DropIndividuals("b")
	require.Equal(t, []string{"a", "c"}, got.Inds)
	require.Len(t, got.Fam, 2)
	require.Equal(t, "a", got.Fam[0].IID)
	require.Equal(t, "c", got.Fam[1].IID)
}
