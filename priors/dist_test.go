package priors

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

func scalarClose(x, y, eps float64) bool {
	if math.Abs(x-y) > eps {
		return false
	}
	return true
}

// Log-densities agree with the gonum reference implementations.
func TestLogpAgainstDistuv(t *testing.T) {

	xs := []float64{0.1, 0.5, 1, 2.5, 7}

	for _, x := range xs {

		ref := distuv.Normal{Mu: 1, Sigma: 2}
		if !scalarClose(New(NormalDist).Logp(1, 2, x), ref.LogProb(x), 1e-10) {
			t.Errorf("Normal logp mismatch at %v", x)
		}

		refLN := distuv.LogNormal{Mu: 0.5, Sigma: 1.5}
		if !scalarClose(New(LogNormalDist).Logp(0.5, 1.5, x), refLN.LogProb(x), 1e-10) {
			t.Errorf("LogNormal logp mismatch at %v", x)
		}

		refG := distuv.Gamma{Alpha: 2.5, Beta: 1.5}
		if !scalarClose(New(GammaDist).Logp(2.5, 1.5, x), refG.LogProb(x), 1e-10) {
			t.Errorf("Gamma logp mismatch at %v", x)
		}

		refT := distuv.StudentsT{Mu: 0.5, Sigma: 2, Nu: 4}
		if !scalarClose(New(StudentTDist).Logp(0.5, 2, x), refT.LogProb(x), 1e-10) {
			t.Errorf("StudentT logp mismatch at %v", x)
		}
	}
}

// The half distributions double the density of the positive part and
// vanish on the negative half-line.
func TestHalfDists(t *testing.T) {

	refN := distuv.Normal{Mu: 0, Sigma: 0.3}
	if !scalarClose(New(HalfNormalDist).Logp(0, 0.3, 0.2), math.Ln2+refN.LogProb(0.2), 1e-10) {
		t.Errorf("HalfNormal logp mismatch")
	}

	if !math.IsInf(New(HalfNormalDist).Logp(0, 0.3, -0.1), -1) {
		t.Errorf("HalfNormal should vanish for negative values")
	}
	if !math.IsInf(New(HalfCauchyDist).Logp(0, 50, -0.1), -1) {
		t.Errorf("HalfCauchy should vanish for negative values")
	}

	// HalfCauchy integrates to 1 on a fine grid.
	var total float64
	h := 0.01
	for x := h / 2; x < 5000; x += h {
		total += h * math.Exp(New(HalfCauchyDist).Logp(0, 5, x))
	}
	if !scalarClose(total, 1, 1e-2) {
		t.Errorf("HalfCauchy mass is %v, expected 1", total)
	}
}

// The von Mises density integrates to 1 over the circle, and is
// centered at its location.
func TestVonMises(t *testing.T) {

	var total float64
	h := 1e-4
	for x := -math.Pi; x < math.Pi; x += h {
		total += h * math.Exp(New(VonMisesDist).Logp(0.5, 2, x))
	}
	if !scalarClose(total, 1, 1e-3) {
		t.Errorf("VonMises mass is %v, expected 1", total)
	}

	mode := New(VonMisesDist).Logp(0.5, 2, 0.5)
	off := New(VonMisesDist).Logp(0.5, 2, 1.5)
	if mode <= off {
		t.Errorf("VonMises is not maximized at its location")
	}
}

// The discrete Gamma kernel is a probability vector with mean close
// to the requested mean.
func TestGammaKernel(t *testing.T) {

	k := make([]float64, 12)
	GammaKernel(k, 4, 1)

	if !scalarClose(floats.Sum(k), 1, 1e-10) {
		t.Errorf("kernel does not sum to 1")
	}

	var mean float64
	for i, v := range k {
		if v < 0 {
			t.Errorf("negative kernel weight at lag %d", i+1)
		}
		mean += float64(i+1) * v
	}
	if math.Abs(mean-4) > 0.5 {
		t.Errorf("kernel mean is %v, expected close to 4", mean)
	}
}
