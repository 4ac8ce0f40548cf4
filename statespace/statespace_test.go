package statespace

import (
	"math"
	"testing"

	"github.com/ajroetker/vqsim/gate"
)

func newSpace(t *testing.T, n, threads int) *Space[float32] {
	t.Helper()
	return New[float32](n, threads)
}

func TestSetStateZero(t *testing.T) {
	sp := newSpace(t, 1, 1)
	s := sp.CreateState()
	if sp.IsNull(s) {
		t.Fatal("CreateState returned null")
	}
	if !sp.SetStateZero(s) {
		t.Fatal("SetStateZero failed")
	}

	re, im, ok := sp.GetAmpl(s, 0)
	if !ok || re != 1 || im != 0 {
		t.Errorf("GetAmpl(0) = (%v,%v,%v), want (1,0,true)", re, im, ok)
	}
	re, im, ok = sp.GetAmpl(s, 1)
	if !ok || re != 0 || im != 0 {
		t.Errorf("GetAmpl(1) = (%v,%v,%v), want (0,0,true)", re, im, ok)
	}
}

func TestSetStateUniform(t *testing.T) {
	sp := newSpace(t, 2, 1)
	s := sp.CreateState()
	sp.SetStateUniform(s)

	want := 1.0 / 4.0
	var total float64
	for i := uint64(0); i < 4; i++ {
		re, im, _ := sp.GetAmpl(s, i)
		p := re*re + im*im
		if math.Abs(p-want) > 1e-6 {
			t.Errorf("|amp(%d)|^2 = %v, want %v", i, p, want)
		}
		total += p
	}
	if math.Abs(total-1) > 1e-6 {
		t.Errorf("total probability = %v, want 1", total)
	}
}

func TestOrderConversionRoundTrip(t *testing.T) {
	for _, n := range []int{1, 2, 3, 4, 5} {
		sp := newSpace(t, n, 1)
		s := sp.CreateState()
		sp.SetStateUniform(s)

		before := make([]float32, len(s.Data))
		copy(before, s.Data)

		if !sp.InternalToNormalOrder(s) {
			t.Fatalf("N=%d: InternalToNormalOrder failed", n)
		}
		if !sp.NormalToInternalOrder(s) {
			t.Fatalf("N=%d: NormalToInternalOrder failed", n)
		}

		for i, v := range s.Data {
			if v != before[i] {
				t.Errorf("N=%d: round trip mismatch at %d: got %v, want %v", n, i, v, before[i])
			}
		}
	}
}

func TestInternalToNormalOrderLayout(t *testing.T) {
	sp := newSpace(t, 2, 1)
	s := sp.CreateState()
	sp.SetStateUniform(s)
	sp.InternalToNormalOrder(s)

	v := 1.0 / 2.0
	for k := 0; k < 4; k++ {
		if got := s.Data[2*k]; float64(got) != v {
			t.Errorf("normal-order re[%d] = %v, want %v", k, got, v)
		}
		if got := s.Data[2*k+1]; got != 0 {
			t.Errorf("normal-order im[%d] = %v, want 0", k, got)
		}
	}
}

func TestInnerProductSelfEqualsNorm(t *testing.T) {
	sp := newSpace(t, 3, 1)
	s := sp.CreateState()
	sp.SetStateUniform(s)

	ip, ok := sp.InnerProduct(s, s)
	if !ok {
		t.Fatal("InnerProduct failed")
	}
	if math.Abs(real(ip)-1) > 1e-6 || math.Abs(imag(ip)) > 1e-6 {
		t.Errorf("InnerProduct(s,s) = %v, want 1+0i", ip)
	}
}

func TestInnerProductConjugateSymmetry(t *testing.T) {
	sp := newSpace(t, 2, 1)
	s1 := sp.CreateState()
	s2 := sp.CreateState()
	sp.SetStateUniform(s1)
	sp.SetStateZero(s2)
	sp.SetAmpl(s2, 1, 0.6, 0.8)

	ip12, _ := sp.InnerProduct(s1, s2)
	ip21, _ := sp.InnerProduct(s2, s1)

	if math.Abs(real(ip12)-real(ip21)) > 1e-6 || math.Abs(imag(ip12)+imag(ip21)) > 1e-6 {
		t.Errorf("InnerProduct(s1,s2)=%v, InnerProduct(s2,s1)=%v, want conjugates", ip12, ip21)
	}
}

func TestAddAndMultiplyInvariants(t *testing.T) {
	sp := newSpace(t, 3, 1)
	s := sp.CreateState()
	sp.SetStateUniform(s)

	zero := sp.CreateState()
	sp.SetAllZeros(zero)

	snapshot := make([]float32, len(s.Data))
	copy(snapshot, s.Data)

	sp.AddState(zero, s)
	for i, v := range s.Data {
		if v != snapshot[i] {
			t.Fatalf("AddState with zero state changed data at %d: %v != %v", i, v, snapshot[i])
		}
	}

	sp.Multiply(1, s)
	for i, v := range s.Data {
		if v != snapshot[i] {
			t.Fatalf("Multiply(1, s) changed data at %d: %v != %v", i, v, snapshot[i])
		}
	}

	sp.Multiply(0, s)
	for i := uint64(0); i < sp.numBasis; i++ {
		re, im, _ := sp.GetAmpl(s, i)
		if re != 0 || im != 0 {
			t.Fatalf("Multiply(0, s): amp(%d) = (%v,%v), want (0,0)", i, re, im)
		}
	}
}

func TestCollapseState(t *testing.T) {
	sp := newSpace(t, 3, 1)
	s := sp.CreateState()
	sp.SetStateUniform(s)

	mr := gate.MeasurementResult{Mask: 0b001, Bits: 0b001}
	if err := sp.CollapseState(mr, s); err != nil {
		t.Fatalf("CollapseState: %v", err)
	}

	var total float64
	for i := uint64(0); i < 8; i++ {
		re, im, _ := sp.GetAmpl(s, i)
		p := re*re + im*im
		if i&mr.Mask != mr.Bits {
			if p != 0 {
				t.Errorf("amp(%d) should be zeroed, got power %v", i, p)
			}
			continue
		}
		total += p
	}
	if math.Abs(total-1) > 1e-6 {
		t.Errorf("surviving probability = %v, want 1", total)
	}
}

func TestCollapseStateZeroBranch(t *testing.T) {
	sp := newSpace(t, 2, 1)
	s := sp.CreateState()
	sp.SetStateZero(s) // only amplitude 0 is nonzero

	mr := gate.MeasurementResult{Mask: 0b01, Bits: 0b01} // excludes index 0
	if err := sp.CollapseState(mr, s); err == nil {
		t.Fatal("CollapseState: expected error for zero-probability outcome")
	}
}

func TestPartialNormsSumToTotal(t *testing.T) {
	sp := New[float32](4, 3)
	s := sp.CreateState()
	sp.SetStateUniform(s)

	parts := sp.PartialNorms(s)
	var total float64
	for _, p := range parts {
		total += p
	}
	if math.Abs(total-1) > 1e-5 {
		t.Errorf("sum of partial norms = %v, want 1", total)
	}
}

func TestSampleDistribution(t *testing.T) {
	sp := newSpace(t, 2, 1)
	s := sp.CreateState()
	sp.SetStateZero(s)
	sp.SetAmpl(s, 0, 0, 0)
	sp.SetAmpl(s, 3, 1, 0)

	samples := sp.Sample(s, 100, 42)
	if len(samples) != 100 {
		t.Fatalf("len(samples) = %d, want 100", len(samples))
	}
	for _, idx := range samples {
		if idx != 3 {
			t.Errorf("sample = %d, want 3 (only nonzero amplitude)", idx)
		}
	}
}

func TestFindMeasuredBitsWithPartialNorms(t *testing.T) {
	sp := New[float32](3, 2)
	s := sp.CreateState()
	sp.SetStateUniform(s)

	parts := sp.PartialNorms(s)
	for m, p := range parts {
		r := p / 2 // land squarely inside partition m (r is partition-relative)
		bits := sp.FindMeasuredBits(m, r, ^uint64(0), s)
		if bits == NotFound {
			t.Errorf("partition %d: FindMeasuredBits returned NotFound", m)
		}
	}
}

func TestShapeMismatch(t *testing.T) {
	sp := newSpace(t, 2, 1)
	bad := &State[float32]{Data: make([]float32, 3)}

	if sp.SetAllZeros(bad) {
		t.Error("SetAllZeros on mismatched state should fail")
	}
	if _, _, ok := sp.GetAmpl(bad, 0); ok {
		t.Error("GetAmpl on mismatched state should fail")
	}
	if _, ok := sp.RealInnerProduct(bad, bad); ok {
		t.Error("RealInnerProduct on mismatched state should fail")
	}
}
