// Package runner drives a full simulation end to end: it builds the
// state-space kernel, fuses the circuit, applies each fused group through
// the simulator, and dispatches a caller-supplied measurement callback at
// time-window boundaries. Grounded on
// original_source/lib/run_qsim.h's QSimRunner::Run, including its two entry
// points (a callback-driven variant and a final-state-only variant) and its
// verbosity-gated timing messages.
package runner

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ajroetker/vqsim/fuser"
	"github.com/ajroetker/vqsim/gate"
	"github.com/ajroetker/vqsim/simulator"
	"github.com/ajroetker/vqsim/statespace"
)

// Parameter configures a run. NumThreads selects the parallel executor
// (1 means sequential); Verbosity gates timing diagnostics: 0 is silent, 1
// reports total elapsed time, 2 additionally reports per-group time.
type Parameter struct {
	NumThreads uint
	Verbosity  uint
}

// MeasureFunc is invoked at each time-window boundary with the window
// index, the kernel, and the state handle. It may read or mutate the state
// through the kernel's API; a mutation must leave the state normalized if
// further gates are to be applied.
type MeasureFunc[F statespace.Float] func(windowIndex int, space *statespace.Space[F], state *statespace.State[F])

// Run fuses gates against splitTimes, applies every fused group in order to
// a freshly allocated numQubits-qubit |0...0> state, and invokes onMeasure
// at the end of every time window. onMeasure may be nil.
func Run[F statespace.Float](numQubits int, gates []gate.Gate, splitTimes []uint, param Parameter, onMeasure MeasureFunc[F]) (*statespace.Space[F], *statespace.State[F], error) {
	space, state, groups, err := prepare[F](numQubits, gates, splitTimes, param)
	if err != nil {
		return nil, nil, err
	}

	sim := simulator.New(space)
	windowIndex := 0
	start := time.Now()

	for i, group := range groups {
		gstart := time.Now()

		if err := applyGroup(sim, gates, group, state); err != nil {
			return nil, nil, err
		}

		if param.Verbosity > 1 {
			log.Printf("runner: group %d (anchor gate %d) done in %s", i, group.Anchor, time.Since(gstart))
		}

		if isWindowBoundary(groups, i) {
			if onMeasure != nil {
				onMeasure(windowIndex, space, state)
			}
			windowIndex++
		}
	}

	if param.Verbosity > 0 {
		log.Printf("runner: simulation done in %s", time.Since(start))
	}

	return space, state, nil
}

// RunFinal is Run without a measurement callback: it applies every fused
// group and returns only the final state, skipping the window-boundary
// bookkeeping Run performs for callback dispatch.
func RunFinal[F statespace.Float](numQubits int, gates []gate.Gate, splitTimes []uint, param Parameter) (*statespace.Space[F], *statespace.State[F], error) {
	space, state, groups, err := prepare[F](numQubits, gates, splitTimes, param)
	if err != nil {
		return nil, nil, err
	}

	sim := simulator.New(space)
	start := time.Now()

	for i, group := range groups {
		gstart := time.Now()
		if err := applyGroup(sim, gates, group, state); err != nil {
			return nil, nil, err
		}
		if param.Verbosity > 1 {
			log.Printf("runner: group %d (anchor gate %d) done in %s", i, group.Anchor, time.Since(gstart))
		}
	}

	if param.Verbosity > 0 {
		log.Printf("runner: simulation done in %s", time.Since(start))
	}

	return space, state, nil
}

// prepare allocates the kernel and state and fuses the circuit, the
// common preamble of both entry points.
func prepare[F statespace.Float](numQubits int, gates []gate.Gate, splitTimes []uint, param Parameter) (*statespace.Space[F], *statespace.State[F], []gate.FusedGroup, error) {
	space := statespace.New[F](numQubits, numThreads(param))

	state := space.CreateState()
	if space.IsNull(state) {
		fmt.Fprintf(os.Stderr, "runner: state allocation failed for %d qubits\n", numQubits)
		return nil, nil, nil, fmt.Errorf("runner: OutOfMemory: failed to allocate state for %d qubits", numQubits)
	}
	space.SetStateZero(state)

	groups, err := fuser.Fuse(numQubits, gates, splitTimes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "runner: fuser: %v\n", err)
		return nil, nil, nil, err
	}

	return space, state, groups, nil
}

func numThreads(param Parameter) int {
	if param.NumThreads == 0 {
		return 1
	}
	return int(param.NumThreads)
}

// applyGroup dispatches a single fused group to the simulator. A
// measurement group is a no-op here; it is observed only through
// onMeasure, which may call CollapseState itself. An ordinary group
// applies each of its member gates to the state in order: the fuser's
// grouping only records which gates share a qubit lattice window (so a
// SIMD-vectorized applier can fuse them into one pass over the state), it
// does not itself compute a combined matrix, so a correct scalar applier
// simply walks Gates and applies each one by its own qubit count.
func applyGroup[F statespace.Float](sim *simulator.Simulator[F], gates []gate.Gate, group gate.FusedGroup, state *statespace.State[F]) error {
	if group.Kind == gate.GateMeasurement {
		return nil
	}

	for _, idx := range group.Gates {
		g := &gates[idx]
		switch g.NumQubits {
		case 1:
			if err := sim.Apply1(g.Qubits[0], g.Matrix, state); err != nil {
				return err
			}
		case 2:
			if err := sim.Apply2(g.Qubits[0], g.Qubits[1], g.Matrix, state); err != nil {
				return err
			}
		default:
			return fmt.Errorf("runner: gate %d touches %d qubits, want 1 or 2", idx, g.NumQubits)
		}
	}
	return nil
}

// isWindowBoundary reports whether groups[i] is the last group of its time
// window: either the final group overall, or the next group's time differs
// from this one's.
func isWindowBoundary(groups []gate.FusedGroup, i int) bool {
	if i == len(groups)-1 {
		return true
	}
	return groups[i+1].Time != groups[i].Time
}
