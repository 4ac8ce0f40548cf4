package runner

import (
	"math"
	"testing"

	"github.com/ajroetker/vqsim/gate"
	"github.com/ajroetker/vqsim/statespace"
)

const invSqrt2 = 0.7071067811865476

var hadamard = []gate.Complex{
	{Re: invSqrt2}, {Re: invSqrt2},
	{Re: invSqrt2}, {Re: -invSqrt2},
}

// cnot is controlled by Qubits[0] and targets Qubits[1]; Qubits[0] is the
// low-order bit of the matrix index, so the gate swaps indices 1 and 3.
var cnot = []gate.Complex{
	{Re: 1}, {}, {}, {},
	{}, {}, {}, {Re: 1},
	{}, {}, {Re: 1}, {},
	{}, {Re: 1}, {}, {},
}

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// S6: Bell circuit [H@0 on q0, CX@1 on (q0,q1)], maxtime=1, N=2, initial
// |00>: final amplitudes at {0,3} are 1/sqrt(2), at {1,2} are 0.
func TestRunFinalBellState(t *testing.T) {
	gates := []gate.Gate{
		{Kind: gate.GateGeneric, Time: 0, NumQubits: 1, Qubits: []int{0}, Matrix: hadamard},
		{Kind: gate.GateGeneric, Time: 1, NumQubits: 2, Qubits: []int{0, 1}, Matrix: cnot},
	}

	space, state, err := RunFinal[float64](2, gates, []uint{1}, Parameter{NumThreads: 1})
	if err != nil {
		t.Fatalf("RunFinal: %v", err)
	}

	for i := uint64(0); i < 4; i++ {
		re, im, _ := space.GetAmpl(state, i)
		switch i {
		case 0, 3:
			if !almostEqual(re, invSqrt2, 1e-5) || !almostEqual(im, 0, 1e-5) {
				t.Errorf("amp(%d) = (%v,%v), want (%v,0)", i, re, im, invSqrt2)
			}
		case 1, 2:
			if !almostEqual(re, 0, 1e-5) || !almostEqual(im, 0, 1e-5) {
				t.Errorf("amp(%d) = (%v,%v), want (0,0)", i, re, im)
			}
		}
	}
}

func TestRunInvokesMeasurementCallbackAtWindowBoundary(t *testing.T) {
	gates := []gate.Gate{
		{Kind: gate.GateGeneric, Time: 0, NumQubits: 1, Qubits: []int{0}, Matrix: hadamard},
		{Kind: gate.GateGeneric, Time: 1, NumQubits: 2, Qubits: []int{0, 1}, Matrix: cnot},
		{Kind: gate.GateMeasurement, Time: 2, NumQubits: 1, Qubits: []int{0}},
	}

	var windows []int
	var sawBellBeforeMeasurement bool

	_, _, err := Run[float64](2, gates, nil, Parameter{NumThreads: 1}, func(w int, sp *statespace.Space[float64], s *statespace.State[float64]) {
		windows = append(windows, w)
		re0, _, _ := sp.GetAmpl(s, 0)
		re3, _, _ := sp.GetAmpl(s, 3)
		if almostEqual(re0, invSqrt2, 1e-5) && almostEqual(re3, invSqrt2, 1e-5) {
			sawBellBeforeMeasurement = true
		}
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Two boundaries: one after the fused Bell-state group (its time, 1,
	// differs from the trailing measurement group's time, 2), and one for
	// the measurement group itself, which is always the last group.
	if got, want := windows, []int{0, 1}; len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("windows = %v, want %v", got, want)
	}
	if !sawBellBeforeMeasurement {
		t.Error("measurement callback did not observe the fused Bell state")
	}
}

func TestRunFinalEmptyCircuitLeavesZeroState(t *testing.T) {
	space, state, err := RunFinal[float64](2, nil, nil, Parameter{})
	if err != nil {
		t.Fatalf("RunFinal: %v", err)
	}
	re, im, _ := space.GetAmpl(state, 0)
	if !almostEqual(re, 1, 1e-12) || !almostEqual(im, 0, 1e-12) {
		t.Errorf("amp(0) = (%v,%v), want (1,0) for an untouched |0...0> state", re, im)
	}
}

func TestRunFinalUnorderedGatesPropagatesError(t *testing.T) {
	gates := []gate.Gate{
		{Kind: gate.GateGeneric, Time: 2, NumQubits: 1, Qubits: []int{0}, Matrix: hadamard},
		{Kind: gate.GateGeneric, Time: 1, NumQubits: 1, Qubits: []int{0}, Matrix: hadamard},
	}

	_, _, err := RunFinal[float64](1, gates, nil, Parameter{})
	if err == nil {
		t.Error("RunFinal: expected an error for out-of-order gate times")
	}
}

func TestRunFinalDeterministicUnderSequentialExecutor(t *testing.T) {
	gates := []gate.Gate{
		{Kind: gate.GateGeneric, Time: 0, NumQubits: 1, Qubits: []int{0}, Matrix: hadamard},
		{Kind: gate.GateGeneric, Time: 1, NumQubits: 2, Qubits: []int{0, 1}, Matrix: cnot},
	}

	_, s1, err := RunFinal[float64](2, gates, []uint{1}, Parameter{NumThreads: 1})
	if err != nil {
		t.Fatalf("RunFinal (run 1): %v", err)
	}
	_, s2, err := RunFinal[float64](2, gates, []uint{1}, Parameter{NumThreads: 1})
	if err != nil {
		t.Fatalf("RunFinal (run 2): %v", err)
	}

	for i, v := range s1.Data {
		if v != s2.Data[i] {
			t.Fatalf("sequential runs diverged at %d: %v != %v", i, v, s2.Data[i])
		}
	}
}
