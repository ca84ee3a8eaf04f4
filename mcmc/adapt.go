package mcmc

import (
	"math"

	"golang.org/x/exp/rand"
)

// DualAveraging adapts the leapfrog step size during warmup toward a
// target acceptance probability, following the Nesterov dual
// averaging scheme used by NUTS.
type DualAveraging struct {

	// Target mean acceptance probability.
	Target float64

	mu     float64
	logEps float64
	hBar   float64
	logBar float64
	iter   int
}

// Standard dual-averaging constants.
const (
	daGamma = 0.05
	daT0    = 10
	daKappa = 0.75
)

// NewDualAveraging returns an adapter starting from the given step
// size.
func NewDualAveraging(eps0, target float64) *DualAveraging {
	return &DualAveraging{
		Target: target,
		mu:     math.Log(10 * eps0),
		logEps: math.Log(eps0),
		logBar: math.Log(eps0),
	}
}

// Update incorporates the acceptance statistic of one warmup
// transition and returns the step size for the next one.
func (da *DualAveraging) Update(accept float64) float64 {

	da.iter++
	m := float64(da.iter)

	da.hBar += (da.Target - accept - da.hBar) / (m + daT0)
	da.logEps = da.mu - math.Sqrt(m)/daGamma*da.hBar

	w := math.Pow(m, -daKappa)
	da.logBar = w*da.logEps + (1-w)*da.logBar

	return math.Exp(da.logEps)
}

// Final returns the averaged step size to use after warmup.
func (da *DualAveraging) Final() float64 {
	return math.Exp(da.logBar)
}

// FindReasonableEps locates an initial step size by doubling or
// halving until a single leapfrog step crosses 50% acceptance, per
// the NUTS initialization heuristic.
func FindReasonableEps(m GradModel, x []float64, rng *rand.Rand) float64 {

	n := len(x)
	eps := 1.0

	r := make([]float64, n)
	for i := range r {
		r[i] = rng.NormFloat64()
	}

	lp0 := m.Observe(x)
	h0 := lp0 - 0.5*sqnorm(r)

	step := func(eps float64) float64 {
		xp := cloneVec(x)
		rp := cloneVec(r)
		grad := make([]float64, n)
		lp := leapfrog(m, xp, rp, grad, eps)
		return lp - 0.5*sqnorm(rp)
	}

	h := step(eps)
	for math.IsNaN(h) || math.IsInf(h, 0) {
		eps /= 2
		h = step(eps)
		if eps < 1e-10 {
			return eps
		}
	}

	dir := -1.0
	if h-h0 > math.Log(0.5) {
		dir = 1.0
	}

	for i := 0; i < 50; i++ {
		h = step(eps)
		if math.IsNaN(h) {
			h = math.Inf(-1)
		}
		if dir > 0 && h-h0 <= math.Log(0.5) {
			break
		}
		if dir < 0 && h-h0 >= math.Log(0.5) {
			break
		}
		eps *= math.Pow(2, dir)
	}

	return eps
}
