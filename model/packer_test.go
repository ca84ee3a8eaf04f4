package model

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"

	"github.com/jdehning/covid19-npis-sampling/priors"
)

func TestPackerLayout(t *testing.T) {

	pk := newPacker()
	pk.add("a", priors.IdentityTransform)
	pk.add("b", priors.SoftPlusTransform, 3)
	pk.add("c", priors.SigmoidTransform, 2, 2)

	if pk.size() != 1+3+4 {
		t.Fatalf("size %d, expected 8", pk.size())
	}
	if off := pk.get("c").offset; off != 4 {
		t.Errorf("offset of c is %d, expected 4", off)
	}

	x := make([]float64, pk.size())
	for i := range x {
		x[i] = float64(i)
	}
	raw := pk.raw(x, "b")
	if len(raw) != 3 || raw[0] != 1 || raw[2] != 3 {
		t.Errorf("raw(b) = %v", raw)
	}
}

// setConstrained followed by constrain is the identity on the support.
func TestPackerRoundTrip(t *testing.T) {

	pk := newPacker()
	pk.add("pos", priors.SoftPlusTransform, 4)
	pk.add("unit", priors.SigmoidTransform, 3)
	pk.add("free", priors.IdentityTransform, 2)

	x := make([]float64, pk.size())
	pk.setConstrained(x, "pos", []float64{0.1, 1, 4, 25})
	pk.setConstrained(x, "unit", []float64{0.05, 0.5, 0.95})
	pk.setConstrained(x, "free", []float64{-3, 7})

	out := make([]float64, 4)
	pk.constrain(x, "pos", out)
	if !floats.EqualApprox(out, []float64{0.1, 1, 4, 25}, 1e-10) {
		t.Errorf("pos round trip: %v", out)
	}

	out = make([]float64, 3)
	pk.constrain(x, "unit", out)
	if !floats.EqualApprox(out, []float64{0.05, 0.5, 0.95}, 1e-10) {
		t.Errorf("unit round trip: %v", out)
	}
}

// The accumulated log-Jacobian matches the elementwise transform
// Jacobians.
func TestPackerJacobian(t *testing.T) {

	pk := newPacker()
	pk.add("pos", priors.SoftPlusTransform, 3)

	tf := priors.NewTransform(priors.SoftPlusTransform)
	x := []float64{-1, 0.5, 2}

	var want float64
	for _, u := range x {
		want += tf.LogJacobian(u)
	}

	out := make([]float64, 3)
	if got := pk.constrain(x, "pos", out); math.Abs(got-want) > 1e-12 {
		t.Errorf("log-Jacobian %v, expected %v", got, want)
	}
}

func TestPackerMisuse(t *testing.T) {

	pk := newPacker()
	pk.add("a", priors.IdentityTransform)

	for _, f := range []func(){
		func() { pk.add("a", priors.IdentityTransform) },
		func() { pk.get("missing") },
		func() { pk.constrain([]float64{0}, "a", make([]float64, 2)) },
	} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("expected a panic on misuse")
				}
			}()
			f()
		}()
	}
}
