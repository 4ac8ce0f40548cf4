// Package simd picks the SIMD block width the state-space kernel lays its
// amplitude buffer out in. It mirrors go-highway's dispatch.go in spirit —
// runtime CPU-feature detection via golang.org/x/sys/cpu selects a lane
// count — but is scoped down to the one thing the kernel layout needs: how
// many basis states share a block.
package simd

import "golang.org/x/sys/cpu"

// LaneWidth returns the number of basis states packed into one block of the
// internal layout (W in the amplitude-layout contract): 8 for an AVX2-class
// machine, 4 otherwise (SSE2/NEON-class). HWY_NO_SIMD, mirroring
// go-highway's override of the same name, forces the narrower width for
// testing and debugging.
func LaneWidth() int {
	if noSimdEnv() {
		return 4
	}
	if cpu.X86.HasAVX2 {
		return 8
	}
	if cpu.ARM64.HasASIMD {
		return 4
	}
	return 4
}
