// Package fuser turns a flat, time-ordered gate list into a sequence of
// fused gate groups, each acting on one or two qubits. It is a direct port
// of original_source/lib/fuser_basic.h's BasicGateFuser::FuseGates: the same
// lattice/driver-sequence construction, the same greedy single-qubit
// pickup rule, and the same silent-stop behavior on out-of-order input.
package fuser

import (
	"fmt"

	"github.com/ajroetker/vqsim/gate"
)

// ErrUnordered is returned when a gate's time precedes its predecessor's.
// Fuse also returns (nil, ErrUnordered) in this case, matching the silent
// empty-output signal the original implementation uses, promoted here to a
// typed error per Design Note "Silent fuser stop on unordered input".
var ErrUnordered = fmt.Errorf("fuser: gate times are not ordered")

// FuseUpTo is a convenience wrapper for the common case of a single split
// point (the usual "run up to maxtime" entry point), grounded on
// run_qsim.h's single-unsigned-maxtime Run overload.
func FuseUpTo(numQubits int, gates []gate.Gate, maxTime uint) ([]gate.FusedGroup, error) {
	return Fuse(numQubits, gates, []uint{maxTime})
}

// Fuse produces fused gate groups for gates, honoring the window boundaries
// in splitTimes merged with the times of all measurement gates. Empty input
// yields an empty, non-nil output. A gate whose time is less than its
// predecessor's yields (nil, ErrUnordered).
func Fuse(numQubits int, gates []gate.Gate, splitTimes []uint) ([]gate.FusedGroup, error) {
	if len(gates) == 0 {
		return []gate.FusedGroup{}, nil
	}

	times, err := mergeWithMeasurementTimes(gates, splitTimes)
	if err != nil {
		return nil, err
	}

	groups := make([]gate.FusedGroup, 0, len(gates))

	pos := 0
	for _, splitAt := range times {
		var werr error
		groups, pos, werr = fuseWindow(numQubits, gates, pos, splitAt, groups)
		if werr != nil {
			return nil, werr
		}
		if pos >= len(gates) {
			break
		}
	}

	return groups, nil
}

// mergeWithMeasurementTimes builds T*: the authoritative, strictly
// increasing window boundary list formed from every measurement gate's time
// merged with the caller-supplied split times, per fuser_basic.h's
// MergeWithMeasurementTimes. It also validates ordering across the whole
// gate list up front, since the per-window scan below assumes windows are
// processed over an already-ordered sequence.
func mergeWithMeasurementTimes(gates []gate.Gate, splitTimes []uint) ([]uint, error) {
	var prev uint
	for i, g := range gates {
		if i > 0 && g.Time < prev {
			return nil, ErrUnordered
		}
		prev = g.Time
	}

	times := make([]uint, 0, len(gates)+len(splitTimes))
	si := 0

	for _, g := range gates {
		if si < len(splitTimes) && g.Time > splitTimes[si] {
			for si < len(splitTimes) && splitTimes[si] <= g.Time {
				t := splitTimes[si]
				si++
				if len(times) == 0 || times[len(times)-1] < t {
					times = append(times, t)
				}
				for si < len(splitTimes) && splitTimes[si] <= t {
					si++
				}
			}
		}

		if g.Kind == gate.GateMeasurement && (len(times) == 0 || times[len(times)-1] < g.Time) {
			times = append(times, g.Time)
		}
	}

	last := gates[len(gates)-1].Time
	if len(times) == 0 || times[len(times)-1] < last {
		times = append(times, last)
	}

	return times, nil
}

// fuseWindow fuses the gates in (previous window end, splitAt] starting at
// pos, appending fused groups to out, and returns the advanced cursor.
func fuseWindow(numQubits int, gates []gate.Gate, pos int, splitAt uint, out []gate.FusedGroup) ([]gate.FusedGroup, int, error) {
	type driver struct {
		idx int
	}

	var driverSeq []driver
	lattice := make([][]int, numQubits) // per qubit: indices into gates, in order
	measurementGatesAt := map[uint][]int{}

	start := pos
	var prevTime uint
	if start < len(gates) {
		prevTime = gates[start].Time
	}

	for ; pos < len(gates); pos++ {
		g := &gates[pos]
		if g.Time > splitAt {
			break
		}
		if pos > start && g.Time < prevTime {
			return nil, pos, ErrUnordered
		}
		prevTime = g.Time

		switch {
		case g.Kind == gate.GateMeasurement:
			if len(measurementGatesAt[g.Time]) == 0 {
				driverSeq = append(driverSeq, driver{idx: pos})
			}
			measurementGatesAt[g.Time] = append(measurementGatesAt[g.Time], pos)
		case g.NumQubits == 1:
			q := g.Qubits[0]
			lattice[q] = append(lattice[q], pos)
			if g.Unfusible {
				driverSeq = append(driverSeq, driver{idx: pos})
			}
		case g.NumQubits == 2:
			q0, q1 := g.Qubits[0], g.Qubits[1]
			lattice[q0] = append(lattice[q0], pos)
			lattice[q1] = append(lattice[q1], pos)
			driverSeq = append(driverSeq, driver{idx: pos})
		}
	}

	last := make([]int, numQubits) // per-qubit cursor into lattice[q]
	var pendingMeasurementTime uint
	havePendingMeasurement := false

	for _, d := range driverSeq {
		pgate := &gates[d.idx]

		switch {
		case pgate.Kind == gate.GateMeasurement:
			pendingMeasurementTime = pgate.Time
			havePendingMeasurement = true

		case pgate.NumQubits == 1:
			q0 := pgate.Qubits[0]

			group := gate.FusedGroup{
				Kind:      pgate.Kind,
				Time:      pgate.Time,
				NumQubits: 1,
				Qubits:    []int{q0},
				Anchor:    d.idx,
			}

			last[q0] = advance(last[q0], lattice[q0], gates, &group.Gates)
			group.Gates = append(group.Gates, lattice[q0][last[q0]])
			last[q0] = advance(last[q0]+1, lattice[q0], gates, &group.Gates)

			out = append(out, group)

		case pgate.NumQubits == 2:
			q0, q1 := pgate.Qubits[0], pgate.Qubits[1]

			if done(last[q0], pgate.Time, lattice[q0], gates) {
				continue
			}

			group := gate.FusedGroup{
				Kind:      pgate.Kind,
				Time:      pgate.Time,
				NumQubits: 2,
				Qubits:    []int{q0, q1},
				Anchor:    d.idx,
			}

			for {
				// Peek past single-qubit fusibles without committing: only
				// keep the pickup if it actually leads to another shared
				// two-qubit gate. Otherwise those trailing single-qubit
				// gates are left for the orphan sweep below, matching the
				// Bell-plus-trailing-rotation scenario where a lone H after
				// the CNOT forms its own group rather than riding along.
				peek0 := peekFusible(last[q0], lattice[q0], gates)
				peek1 := peekFusible(last[q1], lattice[q1], gates)
				if !nextGateMatches(peek0, lattice[q0], peek1, lattice[q1]) {
					break
				}

				last[q0] = advance(last[q0], lattice[q0], gates, &group.Gates)
				last[q1] = advance(last[q1], lattice[q1], gates, &group.Gates)
				// lattice[q0][last[q0]] == lattice[q1][last[q1]] here.

				group.Gates = append(group.Gates, lattice[q0][last[q0]])

				last[q0]++
				last[q1]++
			}

			out = append(out, group)
		}
	}

	for q := 0; q < numQubits; q++ {
		if last[q] == len(lattice[q]) {
			continue
		}

		idx := lattice[q][last[q]]
		group := gate.FusedGroup{
			Kind:      gates[idx].Kind,
			Time:      gates[idx].Time,
			NumQubits: 1,
			Qubits:    []int{q},
			Anchor:    idx,
			Gates:     []int{idx},
		}
		last[q] = advance(last[q]+1, lattice[q], gates, &group.Gates)
		out = append(out, group)
	}

	if havePendingMeasurement {
		ids := measurementGatesAt[pendingMeasurementTime]
		group := gate.FusedGroup{
			Kind:   gate.GateMeasurement,
			Time:   pendingMeasurementTime,
			Anchor: ids[0],
			Gates:  append([]int(nil), ids...),
		}
		for _, idx := range ids {
			g := &gates[idx]
			group.NumQubits += g.NumQubits
			group.Qubits = append(group.Qubits, g.Qubits...)
		}
		out = append(out, group)
	}

	return out, pos, nil
}

// advance greedily appends single-qubit, non-unfusible gates from wl
// (indices into gates) starting at k, and returns the first index that
// stops the sweep (a two-qubit gate, an unfusible gate, or the end of wl).
func advance(k int, wl []int, gates []gate.Gate, into *[]int) int {
	for k < len(wl) && gates[wl[k]].NumQubits == 1 && !gates[wl[k]].Unfusible {
		*into = append(*into, wl[k])
		k++
	}
	return k
}

// peekFusible reports how far advance would move the cursor from k without
// mutating anything, for use in a lookahead check before committing a pickup.
func peekFusible(k int, wl []int, gates []gate.Gate) int {
	for k < len(wl) && gates[wl[k]].NumQubits == 1 && !gates[wl[k]].Unfusible {
		k++
	}
	return k
}

// done reports whether qubit q0's lattice cursor has already consumed past
// the driver's time, meaning a prior two-qubit group already absorbed this
// driver gate.
func done(k int, t uint, wl []int, gates []gate.Gate) bool {
	return k >= len(wl) || gates[wl[k]].Time > t
}

// nextGateMatches reports whether both cursors point at the same shared
// two-qubit gate, meaning the joint sweep should continue.
func nextGateMatches(k1 int, wl1 []int, k2 int, wl2 []int) bool {
	return k1 < len(wl1) && k2 < len(wl2) && wl1[k1] == wl2[k2]
}
