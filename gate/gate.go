// Package gate defines the circuit data model shared by the fuser, the
// simulator, and the runner: gates, fused gate groups, and measurement
// results.
package gate

import "fmt"

// Kind tags what a Gate represents. The fuser treats GateMeasurement
// specially; every other kind is an ordinary unitary gate distinguished only
// by its Matrix and NumQubits.
type Kind int

const (
	// GateGeneric is any unitary gate carrying a Matrix.
	GateGeneric Kind = iota
	// GateMeasurement marks a measurement point; it carries no Matrix.
	GateMeasurement
)

func (k Kind) String() string {
	switch k {
	case GateGeneric:
		return "generic"
	case GateMeasurement:
		return "measurement"
	default:
		return "unknown"
	}
}

// Complex is a precision-agnostic complex amplitude, kept separate from
// complex64/complex128 so that callers assembling matrices don't have to
// commit to a storage precision ahead of time.
type Complex struct {
	Re, Im float64
}

// Gate is one time-ordered operation in a circuit. Qubits must be listed in
// the order the Matrix expects them (for a two-qubit gate, Qubits[0] is the
// lower-order index inside the 4x4 matrix). Matrix is row-major and has side
// 2^NumQubits; it is nil for GateMeasurement.
type Gate struct {
	Kind      Kind
	Time      uint
	NumQubits int
	Qubits    []int
	Matrix    []Complex
	Unfusible bool
}

func (g *Gate) String() string {
	return fmt.Sprintf("Gate{kind=%s time=%d qubits=%v unfusible=%t}", g.Kind, g.Time, g.Qubits, g.Unfusible)
}

// FusedGroup is an ordered run of gates that act on the same one or two
// qubits and can be multiplied together before being applied to the state.
// Gates is a non-owning view into the caller's gate slice: it holds indices,
// not copies, so the slice passed to the fuser must outlive the group.
type FusedGroup struct {
	Kind      Kind
	Time      uint
	NumQubits int
	Qubits    []int
	Anchor    int   // index into the caller's gate slice
	Gates     []int // indices into the caller's gate slice, in application order
}

// MeasurementResult is the outcome of measuring a subset of qubits: Mask
// selects which qubits were measured, and Bits gives the observed value on
// those qubits. Bits outside Mask must be zero.
type MeasurementResult struct {
	Mask uint64
	Bits uint64
}
