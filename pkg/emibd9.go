package kinfilt

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/BurntSushi/toml"
)

// EMIBD9Config configures the external EMIBD9 relatedness estimator. It
// is loadable from a TOML file.
type EMIBD9Config struct {
	// Directory holding the EMIBD9 executable.
	InstallPath string `toml:"install_path"`
	// Basename for the files exchanged with EMIBD9.
	OutName string `toml:"out_name"`
	// Ask EMIBD9 to estimate inbreeding.
	Inbreed bool `toml:"inbreed"`
	// Seed passed through to EMIBD9.
	ISeed int `toml:"iseed"`
	// Process count; >1 runs under the MPI launcher.
	NumProcs int `toml:"num_procs"`
	// Subprocess timeout handling is the caller's: pass a context with a
	// deadline to Run.
}

func DefaultEMIBD9Config() EMIBD9Config {
	return EMIBD9Config{OutName: "emibd9", ISeed: 42, NumProcs: 1}
}

func LoadEMIBD9Config(path string) (EMIBD9Config, error) {
	cfg := DefaultEMIBD9Config()
	if _, e := toml.DecodeFile(path, &cfg); e != nil {
		return cfg, fmt.Errorf("LoadEMIBD9Config: %w", e)
	}
	return cfg, nil
}

// Platform resolves the OS-specific pieces of an EMIBD9 invocation.
// Callers may inject their own instead of branching on the OS inline.
type Platform struct {
	Exe    string
	MPIRun []string
}

func DefaultPlatform() Platform {
	if runtime.GOOS == "windows" {
		return Platform{Exe: "EMIBD9.exe", MPIRun: []string{"mpiexec"}}
	}
	return Platform{Exe: "EMIBD9", MPIRun: []string{"mpiexec"}}
}

// EMIBD9 wraps one configured invocation of the external estimator.
type EMIBD9 struct {
	Cfg  EMIBD9Config
	Plat Platform
}

func NewEMIBD9(cfg EMIBD9Config) *EMIBD9 {
	return &EMIBD9{Cfg: cfg, Plat: DefaultPlatform()}
}

const maxIDLen = 20

// TruncateIDs shortens IDs to the 20 characters EMIBD9 accepts, keeping
// them unique by numbering collisions. The returned map restores full IDs
// from truncated ones.
func TruncateIDs(ids []string) ([]string, map[string]string) {
	out := make([]string, 0, len(ids))
	back := make(map[string]string, len(ids))
	taken := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		short := id
		if len(short) > maxIDLen {
			short = short[:maxIDLen]
		}
		for n := 2; ; n++ {
			if _, ok := taken[short]; !ok {
				break
			}
			suffix := "_" + strconv.Itoa(n)
			base := id
			if len(base)+len(suffix) > maxIDLen {
				base = base[:maxIDLen-len(suffix)]
			}
			short = base + suffix
		}
		taken[short] = struct{}{}
		back[short] = id
		out = append(out, short)
	}
	return out, back
}

// WriteDatFile writes the EMIBD9 genotype file: one line per individual
// with the truncated ID and the concatenated dosage string, 3 coding
// missing calls.
func WriteDatFile(w io.Writer, m *GenotypeMatrix) error {
	short, _ := TruncateIDs(m.Inds)
	buf := make([]byte, 0, m.NLoc())
	for i, id := range short {
		buf = buf[:0]
		for _, g := range m.Geno[i] {
			buf = append(buf, '0'+g)
		}
		if _, e := fmt.Fprintf(w, "%v %s\n", id, buf); e != nil {
			return e
		}
	}
	return nil
}

// WriteParFile writes the line-delimited parameter block EMIBD9 reads,
// one value per line followed by a comment naming it.
func (em *EMIBD9) WriteParFile(w io.Writer, datName string, nInd, nLoc int) error {
	inbreed := 0
	if em.Cfg.Inbreed {
		inbreed = 1
	}
	_, e := fmt.Fprintf(w, ""+
		"%v ! GtypeFile\n"+
		"%v ! OutFileName\n"+
		"%v ! NumIndiv\n"+
		"%v ! NumLoci\n"+
		"0 ! DataForm\n"+
		"%v ! Inbreed\n"+
		"%v ! ISeed\n"+
		"1 ! RndDelta0\n"+
		"2 ! EM_Method\n",
		datName, em.Cfg.OutName+".ibd9", nInd, nLoc, inbreed, em.Cfg.ISeed)
	return e
}

func (em *EMIBD9) exePath() string {
	return filepath.Join(em.Cfg.InstallPath, em.Plat.Exe)
}

// CheckInstall verifies the executable exists where the config points.
func (em *EMIBD9) CheckInstall() error {
	if _, e := os.Stat(em.exePath()); e != nil {
		return fmt.Errorf("EMIBD9: executable %v not found in %v: %w",
			em.Plat.Exe, em.Cfg.InstallPath, e)
	}
	return nil
}

func (em *EMIBD9) writeInputs(workDir string, m *GenotypeMatrix) (parName string, err error) {
	datName := em.Cfg.OutName + ".dat"
	parName = em.Cfg.OutName + ".par"

	datf, e := os.Create(filepath.Join(workDir, datName))
	if e != nil {
		return "", e
	}
	if e := WriteDatFile(datf, m); e != nil {
		datf.Close()
		return "", e
	}
	if e := datf.Close(); e != nil {
		return "", e
	}

	parf, e := os.Create(filepath.Join(workDir, parName))
	if e != nil {
		return "", e
	}
	if e := em.WriteParFile(parf, datName, m.NInd(), m.NLoc()); e != nil {
		parf.Close()
		return "", e
	}
	return parName, parf.Close()
}

// Run writes the inputs for m into workDir, invokes EMIBD9 synchronously
// and parses its report. The subprocess inherits ctx, so a caller-supplied
// deadline kills it.
func (em *EMIBD9) Run(ctx context.Context, m *GenotypeMatrix, workDir string) (*RelatednessResult, error) {
	if e := em.CheckInstall(); e != nil {
		return nil, e
	}
	parName, e := em.writeInputs(workDir, m)
	if e != nil {
		return nil, fmt.Errorf("EMIBD9: writing inputs: %w", e)
	}

	argv := []string{em.exePath(), parName}
	if em.Cfg.NumProcs > 1 {
		argv = append(append([]string{}, em.Plat.MPIRun...),
			"-np", strconv.Itoa(em.Cfg.NumProcs), em.exePath(), parName)
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = workDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if e := cmd.Run(); e != nil {
		return nil, fmt.Errorf("EMIBD9: %v: %w; stderr: %v", argv, e, stderr.String())
	}

	outf, e := os.Open(filepath.Join(workDir, em.Cfg.OutName+".ibd9"))
	if e != nil {
		return nil, fmt.Errorf("EMIBD9: opening report: %w", e)
	}
	defer outf.Close()
	_, back := TruncateIDs(m.Inds)
	return ParseIBDOutput(outf, back)
}
