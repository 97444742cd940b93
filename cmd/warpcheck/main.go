// Copyright ©2025 The Warptile Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command warpcheck runs the warp-level pipeline against naive references
// and reports per-check results as JSON.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/LynnColeArt/warptile"
)

type CheckResult struct {
	Name    string
	Status  string // "PASS" or "FAIL"
	Detail  string
	Elapsed time.Duration
}

// Report is the JSON document warpcheck emits.
type Report struct {
	HasAVX2       bool
	HasAVX512     bool
	EpilogueWidth int
	Checks        []CheckResult
}

func main() {
	var (
		m        = flag.Int("m", 64, "Problem rows")
		n        = flag.Int("n", 64, "Problem columns")
		k        = flag.Int("k", 64, "Problem depth, must be a multiple of the instruction depth")
		warpM    = flag.Int("warp-m", 32, "Warp tile rows")
		warpN    = flag.Int("warp-n", 32, "Warp tile columns")
		instM    = flag.Int("inst-m", 16, "Instruction rows")
		instN    = flag.Int("inst-n", 8, "Instruction columns")
		instK    = flag.Int("inst-k", 16, "Instruction depth")
		elem     = flag.String("elem", "f16", "Instruction operand type: f32, f16, bf16")
		vertical = flag.Bool("vertical", false, "Serpentine over rows within each column")
		seed     = flag.Int64("seed", 1, "Random seed")
		output   = flag.String("output", "", "Write results JSON to file instead of stdout")
	)
	flag.Parse()

	elemType, err := parseElem(*elem)
	if err != nil {
		log.Fatalf("Invalid -elem: %v", err)
	}
	if *m%*warpM != 0 || *n%*warpN != 0 {
		log.Fatalf("Problem %dx%d must be divisible by warp tile %dx%d", *m, *n, *warpM, *warpN)
	}
	if *k%*instK != 0 {
		log.Fatalf("Problem depth %d must be divisible by instruction depth %d", *k, *instK)
	}

	rng := rand.New(rand.NewSource(*seed))
	problem := warptile.GemmShape{M: *m, N: *n, K: *k}
	cfg := warptile.MmaConfig{
		WarpShape:           warptile.GemmShape{M: *warpM, N: *warpN, K: *instK},
		InstructionShape:    warptile.GemmShape{M: *instM, N: *instN, K: *instK},
		ElementA:            warptile.ElementF32,
		ElementB:            warptile.ElementF32,
		ElementC:            warptile.ElementF32,
		InstructionElementA: elemType,
		InstructionElementB: elemType,
		VerticalVisit:       *vertical,
	}

	report := Report{
		HasAVX2:       warptile.HasAVX2(),
		HasAVX512:     warptile.HasAVX512(),
		EpilogueWidth: warptile.EpilogueWidth(),
		Checks: []CheckResult{
			runCheck("iterator-coverage", func() error { return checkIteratorCoverage(problem, *warpM, *instK) }),
			runCheck("dense-mma", func() error { return checkDenseMma(problem, cfg, rng) }),
			runCheck("sparse-mma", func() error { return checkSparseMma(cfg, rng) }),
		},
	}

	out := os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			log.Fatalf("Failed to create output file: %v", err)
		}
		defer f.Close()
		out = f
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		log.Fatalf("Failed to write results: %v", err)
	}

	for _, r := range report.Checks {
		if r.Status == "FAIL" {
			os.Exit(1)
		}
	}
}

func parseElem(s string) (warptile.ElementType, error) {
	switch s {
	case "f32":
		return warptile.ElementF32, nil
	case "f16":
		return warptile.ElementF16, nil
	case "bf16":
		return warptile.ElementBF16, nil
	}
	return 0, fmt.Errorf("unknown element type %q", s)
}

func runCheck(name string, fn func() error) CheckResult {
	start := time.Now()
	r := CheckResult{Name: name, Status: "PASS"}
	if err := fn(); err != nil {
		r.Status = "FAIL"
		r.Detail = err.Error()
	}
	r.Elapsed = time.Since(start)
	return r
}

// checkIteratorCoverage walks a row-major iterator through every thread of a
// warp and verifies that each in-bounds element of the tensor is visited
// exactly once per pass and that no access lands out of bounds. The depth
// extent is deliberately left non-divisible by the tile to exercise the
// residue tile.
func checkIteratorCoverage(problem warptile.GemmShape, tileRows, tileCols int) error {
	rows, cols := tileRows, problem.K-3
	if cols < tileCols {
		cols = tileCols + 1
	}

	tm, err := warptile.NewThreadMap(
		warptile.PitchLinearShape{Contiguous: tileCols, Strided: tileRows},
		warptile.WarpSize, 1)
	if err != nil {
		return err
	}
	cfg := warptile.MatrixIteratorConfig{
		Shape:       warptile.MatrixShape{Row: tileRows, Column: tileCols},
		ElementBits: 32,
		AdvanceRank: 1,
		ThreadMap:   tm,
		AccessWidth: 1,
	}

	extent := warptile.MatrixCoord{Row: rows, Column: cols}
	tiles := (cols + tileCols - 1) / tileCols
	visits := make([]int, rows*cols)
	accesses := tm.Iterations.Count()

	for tid := 0; tid < warptile.WarpSize; tid++ {
		it, err := warptile.NewRowMajorIterator(cfg, int64(cols), extent, tid, warptile.MatrixCoord{})
		if err != nil {
			return err
		}
		for t := 0; t < tiles; t++ {
			for a := 0; a < accesses; a++ {
				if it.Valid() {
					off, ok := it.Get()
					if !ok {
						return fmt.Errorf("thread %d tile %d: valid access reported no address", tid, t)
					}
					idx := int(off / 4)
					if idx < 0 || idx >= len(visits) {
						return fmt.Errorf("thread %d tile %d: offset %d outside tensor", tid, t, off)
					}
					visits[idx]++
				}
				it.Next()
			}
			it.AddTileOffset(warptile.MatrixCoord{Column: 1})
		}
	}

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if got := visits[r*cols+c]; got != 1 {
				return fmt.Errorf("element (%d,%d) visited %d times", r, c, got)
			}
		}
	}
	return nil
}

// checkDenseMma runs the dense warp pipeline over the whole problem and
// compares against the quantized naive reference.
func checkDenseMma(problem warptile.GemmShape, cfg warptile.MmaConfig, rng *rand.Rand) error {
	op, err := warptile.NewMmaTensorOp(cfg)
	if err != nil {
		return err
	}

	a := randomSlice(rng, problem.M*problem.K)
	b := randomSlice(rng, problem.K*problem.N)
	c := randomSlice(rng, problem.M*problem.N)
	d := make([]float32, problem.M*problem.N)

	fragA := op.NewFragmentA()
	fragB := op.NewFragmentB()
	xfA := op.NewFragmentA()
	xfB := op.NewFragmentB()
	acc := op.NewFragmentC()

	warpShape := cfg.WarpShape
	for wm := 0; wm < problem.M; wm += warpShape.M {
		for wn := 0; wn < problem.N; wn += warpShape.N {
			op.PackC(acc, c[wm*problem.N+wn:], problem.N)
			for kk := 0; kk < problem.K; kk += warpShape.K {
				op.PackA(fragA, a[wm*problem.K+kk:], problem.K)
				op.PackB(fragB, b[kk*problem.N+wn:], problem.N)
				op.Transform(xfA, xfB, fragA, fragB)
				op.Multiply(acc, xfA, xfB, acc)
			}
			op.UnpackC(d[wm*problem.N+wn:], problem.N, acc)
		}
	}

	want := make([]float32, problem.M*problem.N)
	warptile.ReferenceGemmQuantized(problem, want, a, b, c,
		cfg.InstructionElementA, cfg.InstructionElementB)

	result := warptile.VerifyFloat32Array(want, d, warptile.DefaultTolerance())
	if !result.Pass() {
		return fmt.Errorf("%s", result.String())
	}
	return nil
}

// checkSparseMma compresses a dense A tile to 2:4 form, runs the sparse
// engine, and compares against the dense engine applied to the re-expanded
// operand.
func checkSparseMma(cfg warptile.MmaConfig, rng *rand.Rand) error {
	scfg := warptile.SparseMmaConfig{MmaConfig: cfg, MaxID2: 1}
	sop, err := warptile.NewSparseMmaTensorOp(scfg)
	if err != nil {
		return err
	}
	dop, err := warptile.NewMmaTensorOp(cfg)
	if err != nil {
		return err
	}

	ws := cfg.WarpShape
	dense := randomSlice(rng, ws.M*ws.K)
	bTile := randomSlice(rng, ws.K*ws.N)
	cTile := randomSlice(rng, ws.M*ws.N)

	storedA := sop.NewFragmentA()
	meta := sop.NewFragmentE()
	sop.Compress(storedA, meta, dense, ws.K)

	expanded := make([]float32, ws.M*ws.K)
	sop.Expand(expanded, ws.K, storedA, meta)

	fragB := sop.NewFragmentB()
	sop.PackB(fragB, bTile, ws.N)
	fragC := sop.NewFragmentC()
	dop.PackC(fragC, cTile, ws.N)

	sparseD := sop.NewFragmentC()
	sop.Multiply(sparseD, storedA, fragB, fragC, meta)

	denseA := dop.NewFragmentA()
	dop.PackA(denseA, expanded, ws.K)
	denseD := dop.NewFragmentC()
	dop.Multiply(denseD, denseA, fragB, fragC)

	result := warptile.VerifyFloat32Array(denseD, sparseD, warptile.StrictTolerance())
	if !result.Pass() {
		return fmt.Errorf("%s", result.String())
	}
	return nil
}

func randomSlice(rng *rand.Rand, n int) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = rng.Float32()*2 - 1
	}
	return s
}
