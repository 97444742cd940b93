package warptile

import (
	"golang.org/x/sys/cpu"
)

// CPUFeatures tracks available CPU instruction set extensions
type CPUFeatures struct {
	HasAVX     bool
	HasAVX2    bool
	HasAVX512F bool
	HasFMA     bool
	HasSSE4    bool
}

// Global CPU feature detection
var cpuFeatures CPUFeatures

func init() {
	detectCPUFeatures()
}

// detectCPUFeatures populates the global cpuFeatures struct
func detectCPUFeatures() {
	cpuFeatures = CPUFeatures{
		HasSSE4:    cpu.X86.HasSSE41 || cpu.X86.HasSSE42,
		HasAVX:     cpu.X86.HasAVX,
		HasAVX2:    cpu.X86.HasAVX2,
		HasAVX512F: cpu.X86.HasAVX512F,
		HasFMA:     cpu.X86.HasFMA,
	}
}

// HasAVX2 returns true if the CPU supports AVX2 with FMA, the baseline the
// unrolled epilogue paths assume the compiler can vectorize for.
func HasAVX2() bool {
	return cpuFeatures.HasAVX2 && cpuFeatures.HasFMA
}

// HasAVX512 returns true if the CPU supports AVX-512 foundation operations
func HasAVX512() bool {
	return cpuFeatures.HasAVX512F
}

// EpilogueWidth returns the elementwise unroll width the epilogue uses for
// cheap activations on this CPU.
func EpilogueWidth() int {
	if HasAVX512() {
		return 16
	}
	if HasAVX2() {
		return 8
	}
	return 4
}
