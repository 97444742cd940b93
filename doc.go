// Copyright ©2025 The Warptile Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package warptile provides the warp-level building blocks of a tensor-core
// GEMM pipeline: predicated tile access iterators that stage operand tiles
// out of larger matrices, and warp-level matrix multiply-accumulate engines
// (dense and 2:4 structured-sparse) that issue the per-sub-tile instruction
// sequence against register fragments.
//
// The design follows the tensor-core kernel model: a host-side Params object
// precomputes every pointer increment a tile iterator will ever need, the
// first (possibly partial) "residue" tile pays the full bounds-checking cost
// once, and every subsequent tile advances with a single precomputed
// increment and a predicate mask that is consulted but never recomputed.
// All configuration mismatches (shape divisibility, vector widths, predicate
// budget) are rejected when a component is constructed; nothing on the
// per-access path allocates, branches on errors, or recomputes state.
//
// Example: iterate the tiles of a pitch-linear tensor.
//
//	tm, _ := warptile.NewThreadMap(warptile.PitchLinearShape{Contiguous: 64, Strided: 16}, 32, 4)
//	cfg := warptile.IteratorConfig{
//		Shape:       warptile.PitchLinearShape{Contiguous: 64, Strided: 16},
//		ElementBits: 32,
//		AdvanceRank: 1,
//		ThreadMap:   tm,
//		AccessWidth: 4,
//	}
//	params := warptile.NewIteratorParams(cfg, warptile.NewPitchLinear(ld))
//	it, _ := warptile.NewTileAccessIterator(cfg, params, extent, threadID, origin)
//	for k := 0; k < tiles; k++ {
//		for a := 0; a < tm.Iterations.Count(); a++ {
//			if it.Valid() {
//				off, _ := it.Get()
//				// load AccessWidth elements at byte offset off
//			}
//			it.Next()
//		}
//		it.AddTileOffset(warptile.PitchLinearCoord{Strided: 1})
//	}
package warptile
