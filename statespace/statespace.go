// Package statespace owns the amplitude buffer of a state-vector quantum
// simulation and the primitive operations over it: allocation,
// initialization, arithmetic, inner product, sampling, and measurement
// collapse.
//
// The buffer is laid out in SIMD-friendly blocks rather than as a plain
// array of interleaved real/imaginary pairs: grounded on
// original_source/lib/statespace_avx.h, amplitudes are grouped into blocks
// of W basis states (W is the lane width from internal/simd), each block
// holding W real parts followed by W imaginary parts. This lets a caller
// applying a gate load W real parts and W imaginary parts with two
// contiguous loads instead of W interleaved pairs. Use
// InternalToNormalOrder/NormalToInternalOrder to convert to and from the
// human-facing [re0, im0, re1, im1, ...] layout.
package statespace

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/ajroetker/vqsim/gate"
	"github.com/ajroetker/vqsim/internal/par"
	"github.com/ajroetker/vqsim/internal/simd"
)

// Float is the precision a Space can be instantiated at.
type Float interface {
	~float32 | ~float64
}

// NotFound is the sentinel FindMeasuredBits returns when r exceeds the
// partition's cumulative probability.
const NotFound uint64 = math.MaxUint64

// State is a handle to an allocated amplitude buffer. A nil Data means the
// allocation failed (IsNull reports true).
type State[F Float] struct {
	Data []F
}

// Size returns the raw number of floats backing the state, used by every
// operation's shape check.
func (s *State[F]) Size() int {
	if s == nil {
		return 0
	}
	return len(s.Data)
}

// Space is the state-space kernel for a fixed qubit count and precision. It
// is constructed once per simulation and reused for every state it creates.
type Space[F Float] struct {
	numQubits int
	w         int // lane width: basis states per block
	numBasis  uint64
	rawSize   int
	exec      par.Executor
}

// New constructs a kernel for numQubits qubits. numThreads == 1 selects the
// Sequential executor, matching the convention that a worker count of 1
// means "don't bother with a pool"; any other value selects a
// thread-parallel Pool executor (a value <= 0 sizes it to GOMAXPROCS).
func New[F Float](numQubits, numThreads int) *Space[F] {
	w := simd.LaneWidth()
	numBasis := uint64(1) << uint(numQubits)
	rawSize := int(2 * numBasis)
	if minSize := 2 * w; rawSize < minSize {
		rawSize = minSize
	}

	var exec par.Executor
	if numThreads == 1 {
		exec = par.Sequential{}
	} else {
		exec = par.NewPool(numThreads)
	}

	return &Space[F]{
		numQubits: numQubits,
		w:         w,
		numBasis:  numBasis,
		rawSize:   rawSize,
		exec:      exec,
	}
}

// NumQubits returns the qubit count the kernel was constructed for.
func (sp *Space[F]) NumQubits() int { return sp.numQubits }

// LaneWidth returns W, the number of basis states per block.
func (sp *Space[F]) LaneWidth() int { return sp.w }

// RawSize returns the raw float-buffer length every State must have.
func (sp *Space[F]) RawSize() int { return sp.rawSize }

// numBlocks is the number of 2W-float blocks in the buffer.
func (sp *Space[F]) numBlocks() int { return sp.rawSize / (2 * sp.w) }

// CreateState allocates a new state buffer, zero-valued. Use IsNull to check
// for allocation failure. Go's allocator aborts the process rather than
// returning an error on true out-of-memory conditions, matching §7's
// "aborts the process on allocation failure". New does not validate the
// qubit count and always sizes the buffer to at least 2W floats, so
// CreateState as written never returns a null handle; IsNull reports true
// only for a nil State or one with nil Data.
func (sp *Space[F]) CreateState() *State[F] {
	if sp.rawSize <= 0 {
		return &State[F]{}
	}
	return &State[F]{Data: make([]F, sp.rawSize)}
}

// IsNull reports whether s failed to allocate.
func (sp *Space[F]) IsNull(s *State[F]) bool {
	return s == nil || s.Data == nil
}

func (sp *Space[F]) checkShape(s *State[F]) bool {
	return s.Size() == sp.rawSize
}

// addr returns the (real, imag) float offsets for basis index i.
func (sp *Space[F]) addr(i uint64) (re, im int) {
	block := i / uint64(sp.w)
	off := i % uint64(sp.w)
	base := int(block) * 2 * sp.w
	return base + int(off), base + sp.w + int(off)
}

// SetAllZeros writes zero to every slot of s.
func (sp *Space[F]) SetAllZeros(s *State[F]) bool {
	if !sp.checkShape(s) {
		return false
	}
	sp.exec.Run(sp.numBlocks(), func(_, _, i int) {
		base := i * 2 * sp.w
		block := s.Data[base : base+2*sp.w]
		for j := range block {
			block[j] = 0
		}
	})
	return true
}

// SetStateZero sets s to |0...0>: SetAllZeros, then writes 1 into the real
// part of basis state 0.
func (sp *Space[F]) SetStateZero(s *State[F]) bool {
	if !sp.SetAllZeros(s) {
		return false
	}
	reIdx, _ := sp.addr(0)
	s.Data[reIdx] = 1
	return true
}

// SetStateUniform sets every amplitude to 1/sqrt(2^N) real, zero imaginary.
func (sp *Space[F]) SetStateUniform(s *State[F]) bool {
	if !sp.checkShape(s) {
		return false
	}
	if !sp.SetAllZeros(s) {
		return false
	}
	v := F(1.0 / math.Sqrt(float64(sp.numBasis)))
	for i := uint64(0); i < sp.numBasis; i++ {
		reIdx, _ := sp.addr(i)
		s.Data[reIdx] = v
	}
	return true
}

// GetAmpl returns the (re, im) amplitude at basis index i.
func (sp *Space[F]) GetAmpl(s *State[F], i uint64) (re, im float64, ok bool) {
	if !sp.checkShape(s) {
		return math.NaN(), math.NaN(), false
	}
	reIdx, imIdx := sp.addr(i)
	return float64(s.Data[reIdx]), float64(s.Data[imIdx]), true
}

// SetAmpl writes the amplitude at basis index i.
func (sp *Space[F]) SetAmpl(s *State[F], i uint64, re, im float64) bool {
	if !sp.checkShape(s) {
		return false
	}
	reIdx, imIdx := sp.addr(i)
	s.Data[reIdx] = F(re)
	s.Data[imIdx] = F(im)
	return true
}

// AddState computes dest += src elementwise.
func (sp *Space[F]) AddState(src, dest *State[F]) bool {
	if !sp.checkShape(src) || !sp.checkShape(dest) {
		return false
	}
	sp.exec.Run(sp.numBlocks(), func(_, _, i int) {
		base := i * 2 * sp.w
		for j := 0; j < 2*sp.w; j++ {
			dest.Data[base+j] += src.Data[base+j]
		}
	})
	return true
}

// Multiply scales every amplitude in s by the real scalar a.
func (sp *Space[F]) Multiply(a float64, s *State[F]) bool {
	if !sp.checkShape(s) {
		return false
	}
	fa := F(a)
	sp.exec.Run(sp.numBlocks(), func(_, _, i int) {
		base := i * 2 * sp.w
		for j := 0; j < 2*sp.w; j++ {
			s.Data[base+j] *= fa
		}
	})
	return true
}

// InnerProduct returns sum_i conj(s1_i) * s2_i, accumulated at double
// precision regardless of storage precision.
func (sp *Space[F]) InnerProduct(s1, s2 *State[F]) (complex128, bool) {
	if !sp.checkShape(s1) || !sp.checkShape(s2) {
		return complex(math.NaN(), math.NaN()), false
	}

	reParts := sp.exec.RunReduceP(sp.numBlocks(), func(_, _, i int) float64 {
		re, _ := sp.blockInner(s1, s2, i)
		return re
	}, func(a, b float64) float64 { return a + b }, 0)

	imParts := sp.exec.RunReduceP(sp.numBlocks(), func(_, _, i int) float64 {
		_, im := sp.blockInner(s1, s2, i)
		return im
	}, func(a, b float64) float64 { return a + b }, 0)

	var re, im float64
	for _, v := range reParts {
		re += v
	}
	for _, v := range imParts {
		im += v
	}
	return complex(re, im), true
}

// blockInner computes the (re, im) contribution of block i to
// conj(s1)*s2: for each lane, (re1*re2 + im1*im2) + i*(re1*im2 - im1*re2).
func (sp *Space[F]) blockInner(s1, s2 *State[F], i int) (re, im float64) {
	base := i * 2 * sp.w
	for j := 0; j < sp.w; j++ {
		re1 := float64(s1.Data[base+j])
		im1 := float64(s1.Data[base+sp.w+j])
		re2 := float64(s2.Data[base+j])
		im2 := float64(s2.Data[base+sp.w+j])
		re += re1*re2 + im1*im2
		im += re1*im2 - im1*re2
	}
	return re, im
}

// RealInnerProduct returns the real part of InnerProduct(s1, s2).
func (sp *Space[F]) RealInnerProduct(s1, s2 *State[F]) (float64, bool) {
	if !sp.checkShape(s1) || !sp.checkShape(s2) {
		return math.NaN(), false
	}
	parts := sp.exec.RunReduceP(sp.numBlocks(), func(_, _, i int) float64 {
		re, _ := sp.blockInner(s1, s2, i)
		return re
	}, func(a, b float64) float64 { return a + b }, 0)
	var total float64
	for _, v := range parts {
		total += v
	}
	return total, true
}

// blockNorm is the per-block |alpha|^2 sum used by PartialNorms and, through
// totalNorm, by the total-norm pass of Sample.
func (sp *Space[F]) blockNorm(s *State[F], i int) float64 {
	base := i * 2 * sp.w
	var acc float64
	for j := 0; j < sp.w; j++ {
		re := float64(s.Data[base+j])
		im := float64(s.Data[base+sp.w+j])
		acc += re*re + im*im
	}
	return acc
}

// PartialNorms returns one partial sum(|alpha|^2) per executor partition, in
// partition order.
func (sp *Space[F]) PartialNorms(s *State[F]) []float64 {
	if !sp.checkShape(s) {
		return nil
	}
	return sp.exec.RunReduceP(sp.numBlocks(), func(_, _, i int) float64 {
		return sp.blockNorm(s, i)
	}, func(a, b float64) float64 { return a + b }, 0)
}

func (sp *Space[F]) totalNorm(s *State[F]) float64 {
	var total float64
	for _, v := range sp.PartialNorms(s) {
		total += v
	}
	return total
}

// Sample draws K basis-state indices with probability proportional to
// |alpha|^2. It computes the total norm Z (used as-is, not renormalized),
// draws K uniforms in [0, Z) with a seeded PRNG, sorts them ascending, then
// sweeps the state once in natural order maintaining a cumulative sum,
// emitting the current basis index whenever a sorted threshold is crossed.
func (sp *Space[F]) Sample(s *State[F], k int, seed uint64) []uint64 {
	if !sp.checkShape(s) || k <= 0 {
		return nil
	}

	z := sp.totalNorm(s)

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	draws := make([]float64, k)
	for i := range draws {
		draws[i] = rng.Float64() * z
	}
	sort.Float64s(draws)

	out := make([]uint64, 0, k)
	var csum float64
	m := 0
	for i := uint64(0); i < sp.numBasis && m < k; i++ {
		reIdx, imIdx := sp.addr(i)
		re := float64(s.Data[reIdx])
		im := float64(s.Data[imIdx])
		csum += re*re + im*im
		for m < k && draws[m] < csum {
			out = append(out, i)
			m++
		}
	}
	// Any draws that land exactly at or beyond the accumulated total (fp
	// rounding at the boundary) are attributed to the last basis state.
	for m < k {
		out = append(out, sp.numBasis-1)
		m++
	}
	return out
}

// CollapseState zeroes every amplitude whose natural index does not satisfy
// (i & mr.Mask) == mr.Bits, then renormalizes the survivors.
func (sp *Space[F]) CollapseState(mr gate.MeasurementResult, s *State[F]) error {
	if !sp.checkShape(s) {
		return fmt.Errorf("statespace: CollapseState: shape mismatch: got %d floats, want %d", s.Size(), sp.rawSize)
	}

	norm := sp.exec.RunReduce(sp.numBlocks(), func(_, _, i int) float64 {
		base := i * 2 * sp.w
		var acc float64
		for j := 0; j < sp.w; j++ {
			idx := uint64(i)*uint64(sp.w) + uint64(j)
			if idx&mr.Mask != mr.Bits {
				continue
			}
			re := float64(s.Data[base+j])
			im := float64(s.Data[base+sp.w+j])
			acc += re*re + im*im
		}
		return acc
	}, func(a, b float64) float64 { return a + b }, 0)

	if norm == 0 {
		return fmt.Errorf("statespace: CollapseState: zero probability for requested outcome (mask=%#x bits=%#x)", mr.Mask, mr.Bits)
	}

	scale := F(1 / math.Sqrt(norm))
	sp.exec.Run(sp.numBlocks(), func(_, _, i int) {
		base := i * 2 * sp.w
		for j := 0; j < sp.w; j++ {
			idx := uint64(i)*uint64(sp.w) + uint64(j)
			if idx&mr.Mask != mr.Bits {
				s.Data[base+j] = 0
				s.Data[base+sp.w+j] = 0
				continue
			}
			s.Data[base+j] *= scale
			s.Data[base+sp.w+j] *= scale
		}
	})

	return nil
}

// FindMeasuredBits scans partition m's index range, accumulating |alpha|^2;
// when the running sum first exceeds r it returns the current basis index
// masked by mask. Used together with PartialNorms to draw a measurement
// outcome in parallel: the caller picks a partition by its cumulative
// partial norm, then calls FindMeasuredBits within that partition.
func (sp *Space[F]) FindMeasuredBits(m int, r float64, mask uint64, s *State[F]) uint64 {
	if !sp.checkShape(s) {
		return NotFound
	}

	k0 := sp.exec.GetIndex0(sp.numBlocks(), m)
	k1 := sp.exec.GetIndex1(sp.numBlocks(), m)

	var csum float64
	for blk := k0; blk < k1; blk++ {
		base := blk * 2 * sp.w
		for j := 0; j < sp.w; j++ {
			re := float64(s.Data[base+j])
			im := float64(s.Data[base+sp.w+j])
			csum += re*re + im*im
			if r < csum {
				idx := uint64(blk)*uint64(sp.w) + uint64(j)
				return idx & mask
			}
		}
	}
	return NotFound
}

// InternalToNormalOrder permutes s in place from the SIMD-blocked layout
// into the human-facing [re0, im0, re1, im1, ...] interleaving, natural
// index order. Padding slots (for N with 2^N < W) are zeroed.
func (sp *Space[F]) InternalToNormalOrder(s *State[F]) bool {
	return sp.convertOrder(s, true)
}

// NormalToInternalOrder is the inverse of InternalToNormalOrder.
func (sp *Space[F]) NormalToInternalOrder(s *State[F]) bool {
	return sp.convertOrder(s, false)
}

func (sp *Space[F]) convertOrder(s *State[F], toNormal bool) bool {
	if !sp.checkShape(s) {
		return false
	}

	w := sp.w
	numBlocks := sp.numBlocks()

	sp.exec.Run(numBlocks, func(_, _, blk int) {
		base := blk * 2 * w
		block := s.Data[base : base+2*w]

		live := w
		if remaining := int(sp.numBasis) - blk*w; remaining < w {
			live = remaining
		}
		if live < 0 {
			live = 0
		}

		re := make([]F, w)
		im := make([]F, w)

		if toNormal {
			copy(re, block[:w])
			copy(im, block[w:2*w])

			for j := range block {
				block[j] = 0
			}
			for k := 0; k < live; k++ {
				block[2*k] = re[k]
				block[2*k+1] = im[k]
			}
		} else {
			for k := 0; k < live; k++ {
				re[k] = block[2*k]
				im[k] = block[2*k+1]
			}

			for j := range block {
				block[j] = 0
			}
			copy(block[:w], re)
			copy(block[w:2*w], im)
		}
	})

	return true
}
