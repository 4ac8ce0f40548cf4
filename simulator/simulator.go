// Package simulator applies 1- and 2-qubit gate matrices to a state held by
// the statespace package. The vectorized matrix-multiplication kernels are
// out of scope for this module (§1 of the core's specification treats them
// as an external collaborator, specified only by their contract); what
// follows is a correct scalar realization of that contract — same
// observable result independent of executor choice — not a throughput-
// oriented one.
package simulator

import (
	"fmt"

	"github.com/ajroetker/vqsim/gate"
	"github.com/ajroetker/vqsim/statespace"
)

// Simulator applies gate matrices to a state of a fixed qubit count.
type Simulator[F statespace.Float] struct {
	space *statespace.Space[F]
}

// New builds a Simulator bound to the given kernel. The kernel determines
// qubit count and precision. Apply1, Apply2 and ExpectationValue loop over
// the state on the calling goroutine; they do not use the kernel's executor.
func New[F statespace.Float](space *statespace.Space[F]) *Simulator[F] {
	return &Simulator[F]{space: space}
}

// Apply1 applies a 2x2 complex matrix to qubit q, touching only pairs of
// amplitudes that differ in bit q.
func (sim *Simulator[F]) Apply1(q int, matrix []gate.Complex, s *statespace.State[F]) error {
	if len(matrix) != 4 {
		return fmt.Errorf("simulator: Apply1: matrix must be 2x2 (4 entries), got %d", len(matrix))
	}

	bit := uint64(1) << uint(q)
	numBasis := uint64(1) << uint(sim.space.NumQubits())

	m00 := complex(matrix[0].Re, matrix[0].Im)
	m01 := complex(matrix[1].Re, matrix[1].Im)
	m10 := complex(matrix[2].Re, matrix[2].Im)
	m11 := complex(matrix[3].Re, matrix[3].Im)

	// Enumerate the basis states with bit q == 0; each pairs with the state
	// having bit q == 1.
	for i0 := uint64(0); i0 < numBasis; i0++ {
		if i0&bit != 0 {
			continue
		}
		i1 := i0 | bit

		re0, im0, _ := sim.space.GetAmpl(s, i0)
		re1, im1, _ := sim.space.GetAmpl(s, i1)

		a0 := complex(re0, im0)
		a1 := complex(re1, im1)

		n0 := m00*a0 + m01*a1
		n1 := m10*a0 + m11*a1

		sim.space.SetAmpl(s, i0, real(n0), imag(n0))
		sim.space.SetAmpl(s, i1, real(n1), imag(n1))
	}

	return nil
}

// Apply2 applies a 4x4 complex matrix to qubits (q0, q1); q0 is the
// lower-order index inside the matrix.
func (sim *Simulator[F]) Apply2(q0, q1 int, matrix []gate.Complex, s *statespace.State[F]) error {
	if len(matrix) != 16 {
		return fmt.Errorf("simulator: Apply2: matrix must be 4x4 (16 entries), got %d", len(matrix))
	}
	if q0 == q1 {
		return fmt.Errorf("simulator: Apply2: q0 and q1 must differ, both %d", q0)
	}

	b0 := uint64(1) << uint(q0)
	b1 := uint64(1) << uint(q1)
	numBasis := uint64(1) << uint(sim.space.NumQubits())

	for base := uint64(0); base < numBasis; base++ {
		if base&b0 != 0 || base&b1 != 0 {
			continue
		}

		idx := [4]uint64{base, base | b0, base | b1, base | b0 | b1}
		var amp [4]complex128
		for k, i := range idx {
			re, im, _ := sim.space.GetAmpl(s, i)
			amp[k] = complex(re, im)
		}

		var out [4]complex128
		for row := 0; row < 4; row++ {
			var acc complex128
			for col := 0; col < 4; col++ {
				m := matrix[row*4+col]
				acc += complex(m.Re, m.Im) * amp[col]
			}
			out[row] = acc
		}

		for k, i := range idx {
			sim.space.SetAmpl(s, i, real(out[k]), imag(out[k]))
		}
	}

	return nil
}

// ExpectationValue computes <s|U|s> for the same matrix shapes Apply1/Apply2
// accept, without mutating s.
func (sim *Simulator[F]) ExpectationValue(numQubits int, qubits []int, matrix []gate.Complex, s *statespace.State[F]) (complex128, error) {
	switch numQubits {
	case 1:
		return sim.expectation1(qubits[0], matrix, s)
	case 2:
		return sim.expectation2(qubits[0], qubits[1], matrix, s)
	default:
		return 0, fmt.Errorf("simulator: ExpectationValue: unsupported num_qubits %d", numQubits)
	}
}

func (sim *Simulator[F]) expectation1(q int, matrix []gate.Complex, s *statespace.State[F]) (complex128, error) {
	if len(matrix) != 4 {
		return 0, fmt.Errorf("simulator: ExpectationValue: matrix must be 2x2 (4 entries), got %d", len(matrix))
	}
	bit := uint64(1) << uint(q)
	numBasis := uint64(1) << uint(sim.space.NumQubits())

	var total complex128
	for base := uint64(0); base < numBasis; base++ {
		if base&bit != 0 {
			continue
		}
		i0, i1 := base, base|bit
		re0, im0, _ := sim.space.GetAmpl(s, i0)
		re1, im1, _ := sim.space.GetAmpl(s, i1)
		a0 := complex(re0, im0)
		a1 := complex(re1, im1)

		m00 := complex(matrix[0].Re, matrix[0].Im)
		m01 := complex(matrix[1].Re, matrix[1].Im)
		m10 := complex(matrix[2].Re, matrix[2].Im)
		m11 := complex(matrix[3].Re, matrix[3].Im)

		n0 := m00*a0 + m01*a1
		n1 := m10*a0 + m11*a1

		total += complexConj(a0)*n0 + complexConj(a1)*n1
	}
	return total, nil
}

func (sim *Simulator[F]) expectation2(q0, q1 int, matrix []gate.Complex, s *statespace.State[F]) (complex128, error) {
	if len(matrix) != 16 {
		return 0, fmt.Errorf("simulator: ExpectationValue: matrix must be 4x4 (16 entries), got %d", len(matrix))
	}
	b0 := uint64(1) << uint(q0)
	b1 := uint64(1) << uint(q1)
	numBasis := uint64(1) << uint(sim.space.NumQubits())

	var total complex128
	for base := uint64(0); base < numBasis; base++ {
		if base&b0 != 0 || base&b1 != 0 {
			continue
		}
		idx := [4]uint64{base, base | b0, base | b1, base | b0 | b1}
		var amp [4]complex128
		for k, i := range idx {
			re, im, _ := sim.space.GetAmpl(s, i)
			amp[k] = complex(re, im)
		}
		for row := 0; row < 4; row++ {
			var acc complex128
			for col := 0; col < 4; col++ {
				m := matrix[row*4+col]
				acc += complex(m.Re, m.Im) * amp[col]
			}
			total += complexConj(amp[row]) * acc
		}
	}
	return total, nil
}

func complexConj(c complex128) complex128 {
	return complex(real(c), -imag(c))
}
