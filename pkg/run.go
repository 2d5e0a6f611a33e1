package kinfilt

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"
)

type FilterFlags struct {
	Prefix  string
	Outpre  string
	Range   float64
	MinDP   float64
	MinRep  float64
	Method  string
	Seed    uint64
	Mono    bool
	NoPlots bool
}

// RunFilterRelates reads a PLINK trio, drops one individual from each
// putative parent-offspring pair, and writes the reduced trio plus the
// report, the raw count matrix and the diagnostic charts.
func RunFilterRelates() {
	var f FilterFlags
	flag.StringVar(&f.Prefix, "p", "", "input PLINK prefix (.bed/.bim/.fam)")
	flag.StringVar(&f.Outpre, "o", "kinfilt_out", "output prefix")
	flag.Float64Var(&f.Range, "range", 1.5, "IQR multiplier for the lower fence")
	flag.Float64Var(&f.MinDP, "depth", 12, "minimum locus read depth for counting")
	flag.Float64Var(&f.MinRep, "rep", 1, "minimum locus reproducibility for counting")
	flag.StringVar(&f.Method, "method", "best", "removal choice per pair: best or random")
	flag.Uint64Var(&f.Seed, "seed", 0, "random seed for -method random")
	flag.BoolVar(&f.Mono, "mono", false, "drop loci left monomorphic by removals")
	flag.BoolVar(&f.NoPlots, "noplots", false, "skip diagnostic charts")
	flag.Parse()
	if f.Prefix == "" {
		log.Fatal("missing -p")
	}
	method, e := ParseMethod(f.Method)
	if e != nil {
		log.Fatal(e)
	}

	m, e := ReadPlink(f.Prefix)
	if e != nil {
		log.Fatal(e)
	}

	cfg := DefaultFilterConfig()
	cfg.Range = f.Range
	cfg.MinReadDepth = f.MinDP
	cfg.MinRepAvg = f.MinRep
	cfg.Method = method
	cfg.Seed = f.Seed
	cfg.RemoveMonomorphic = f.Mono

	out, rep, e := FilterParentOffspring(m, cfg)
	if e != nil {
		log.Fatal(e)
	}

	if e := WriteReportPath(f.Outpre+".report.tsv", rep.Outliers); e != nil {
		log.Fatal(e)
	}
	if e := WriteCountsNpy(f.Outpre+".counts.npy", rep.Counts); e != nil {
		log.Fatal(e)
	}
	if !f.NoPlots {
		w, e := os.Create(f.Outpre + ".html")
		if e != nil {
			log.Fatal(e)
		}
		if e := RenderDiagnostics(w, rep.Counts, rep.Stats); e != nil {
			log.Fatal(e)
		}
		if e := w.Close(); e != nil {
			log.Fatal(e)
		}
	}

	if len(rep.Outliers) == 0 {
		fmt.Println("no putative parent-offspring pairs found; matrix unchanged")
		return
	}
	if e := WritePlink(f.Outpre, out); e != nil {
		log.Fatal(e)
	}
	fmt.Printf("flagged %v pairs; removed %v individuals: %v\n",
		len(rep.Outliers), len(rep.Removed), rep.Removed)
	if rep.MonomorphicDropped > 0 {
		fmt.Printf("dropped %v monomorphic loci\n", rep.MonomorphicDropped)
	}
}

type EMIBD9Flags struct {
	Config  string
	Prefix  string
	WorkDir string
	Timeout time.Duration
}

// RunEMIBD9 formats a PLINK trio for EMIBD9, runs it and prints the
// relatedness table.
func RunEMIBD9() {
	var f EMIBD9Flags
	flag.StringVar(&f.Config, "c", "", "EMIBD9 TOML config path")
	flag.StringVar(&f.Prefix, "p", "", "input PLINK prefix (.bed/.bim/.fam)")
	flag.StringVar(&f.WorkDir, "w", ".", "working directory for EMIBD9 files")
	flag.DurationVar(&f.Timeout, "t", 0, "kill EMIBD9 after this long (0 = no limit)")
	flag.Parse()
	if f.Prefix == "" {
		log.Fatal("missing -p")
	}

	cfg := DefaultEMIBD9Config()
	if f.Config != "" {
		var e error
		cfg, e = LoadEMIBD9Config(f.Config)
		if e != nil {
			log.Fatal(e)
		}
	}

	m, e := ReadPlink(f.Prefix)
	if e != nil {
		log.Fatal(e)
	}

	ctx := context.Background()
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	res, e := NewEMIBD9(cfg).Run(ctx, m, f.WorkDir)
	if e != nil {
		log.Fatal(e)
	}
	if e := WriteRelatedness(os.Stdout, res); e != nil {
		log.Fatal(e)
	}
}
