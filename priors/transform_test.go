package priors

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

// Every transform satisfies Inverse(Value(u)) = u and has a
// log-Jacobian matching the numerical derivative of Value.
func TestTransformJacobians(t *testing.T) {

	codes := []TransformType{IdentityTransform, ExpTransform, SoftPlusTransform, SigmoidTransform}
	us := []float64{-3, -0.5, 0, 0.7, 2.5}

	for _, code := range codes {
		tr := NewTransform(code)
		for _, u := range us {

			x := tr.Value(u)
			if !scalarClose(tr.Inverse(x), u, 1e-8) {
				t.Errorf("%s: inverse round trip failed at %v", tr.Name, u)
			}

			nd := fd.Derivative(tr.Value, u, nil)
			if !scalarClose(tr.LogJacobian(u), math.Log(math.Abs(nd)), 1e-6) {
				t.Errorf("%s: log-Jacobian mismatch at %v: %v != %v",
					tr.Name, u, tr.LogJacobian(u), math.Log(math.Abs(nd)))
			}
		}
	}
}

func TestSoftPlusStability(t *testing.T) {

	tr := NewTransform(SoftPlusTransform)

	// Large arguments pass through without overflow.
	if v := tr.Value(500); math.IsInf(v, 0) || !scalarClose(v, 500, 1e-10) {
		t.Errorf("softplus unstable for large arguments: %v", v)
	}

	// The output is strictly positive everywhere.
	for _, u := range []float64{-40, -10, 0, 10, 40} {
		if tr.Value(u) <= 0 {
			t.Errorf("softplus not positive at %v", u)
		}
	}
}

// The correlation Cholesky map produces a valid factor: unit first
// element, unit row norms, and L L' a correlation matrix with unit
// diagonal and entries in [-1, 1].
func TestCorrelationCholesky(t *testing.T) {

	n := 4
	y := []float64{0.3, -0.8, 0.1, 1.2, -0.4, 0.05}
	l := make([]float64, n*n)

	logJ := CorrelationCholesky(l, y, n)
	if math.IsNaN(logJ) || math.IsInf(logJ, 0) {
		t.Fatalf("non-finite Jacobian: %v", logJ)
	}

	for i := 0; i < n; i++ {
		var rn float64
		for j := 0; j <= i; j++ {
			rn += l[i*n+j] * l[i*n+j]
		}
		if !scalarClose(rn, 1, 1e-10) {
			t.Errorf("row %d has squared norm %v, expected 1", i, rn)
		}
		for j := i + 1; j < n; j++ {
			if l[i*n+j] != 0 {
				t.Errorf("upper triangle not zero at (%d,%d)", i, j)
			}
		}
	}

	lm := mat.NewDense(n, n, l)
	var c mat.Dense
	c.Mul(lm, lm.T())
	for i := 0; i < n; i++ {
		if !scalarClose(c.At(i, i), 1, 1e-10) {
			t.Errorf("diagonal of L L' is %v at %d", c.At(i, i), i)
		}
		for j := 0; j < n; j++ {
			if v := c.At(i, j); v < -1-1e-10 || v > 1+1e-10 {
				t.Errorf("correlation out of range at (%d,%d): %v", i, j, v)
			}
		}
	}
}

// Stronger LKJ concentration favors factors closer to the identity.
func TestLKJCholeskyLogp(t *testing.T) {

	n := 3
	l := make([]float64, n*n)

	// Near-identity factor.
	CorrelationCholesky(l, []float64{0.01, 0.01, 0.01}, n)
	lpID4 := LKJCholeskyLogp(l, n, 4)
	lpID1 := LKJCholeskyLogp(l, n, 1)

	// Strongly correlated factor.
	CorrelationCholesky(l, []float64{2, 2, 2}, n)
	lpC4 := LKJCholeskyLogp(l, n, 4)

	if lpID4-lpC4 <= 0 {
		t.Errorf("LKJ(4) should favor near-identity factors")
	}

	// eta=1 is uniform over correlation matrices, so the density
	// of the factor itself still decreases with correlation, but
	// less steeply than for eta=4.
	CorrelationCholesky(l, []float64{2, 2, 2}, n)
	lpC1 := LKJCholeskyLogp(l, n, 1)
	if (lpID4 - lpC4) <= (lpID1 - lpC1) {
		t.Errorf("LKJ concentration does not sharpen the density")
	}
}
