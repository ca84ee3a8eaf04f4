package mcmc

import (
	"math"
	"testing"

	"golang.org/x/exp/rand"
)

// gaussian is a diagonal Gaussian test target with analytic
// gradient.
type gaussian struct {
	mu    []float64
	sigma []float64
}

func (g *gaussian) Observe(x []float64) float64 {
	var lp float64
	for i := range x {
		z := (x[i] - g.mu[i]) / g.sigma[i]
		lp -= 0.5*z*z + math.Log(g.sigma[i])
	}
	return lp
}

func (g *gaussian) Gradient(x, grad []float64) {
	for i := range x {
		grad[i] = -(x[i] - g.mu[i]) / (g.sigma[i] * g.sigma[i])
	}
}

// NUTS recovers the mean and scale of a Gaussian target.
func TestNUTSGaussian(t *testing.T) {

	g := &gaussian{mu: []float64{1, -2}, sigma: []float64{1, 0.5}}

	res := NewSampler(g).
		Chains(2).
		Warmup(300).
		Draws(1500).
		Seed(3).
		Run([]float64{0, 0})

	for d := 0; d < 2; d++ {
		var mean, m2 float64
		var n float64
		for _, cr := range res.Chains {
			for _, x := range cr.Draws {
				mean += x[d]
				n++
			}
		}
		mean /= n
		for _, cr := range res.Chains {
			for _, x := range cr.Draws {
				m2 += (x[d] - mean) * (x[d] - mean)
			}
		}
		sd := math.Sqrt(m2 / n)

		if math.Abs(mean-g.mu[d]) > 0.15 {
			t.Errorf("dimension %d: mean %v, expected %v", d, mean, g.mu[d])
		}
		if math.Abs(sd-g.sigma[d]) > 0.15 {
			t.Errorf("dimension %d: sd %v, expected %v", d, sd, g.sigma[d])
		}
	}
}

// HMC leaves a Gaussian target roughly invariant as well.
func TestHMCGaussian(t *testing.T) {

	g := &gaussian{mu: []float64{0.5}, sigma: []float64{1}}
	h := &HMC{Eps: 0.2, L: 10}
	rng := rand.New(rand.NewSource(7))

	x := []float64{0}
	var mean float64
	n := 4000
	for i := 0; i < n; i++ {
		h.Step(g, x, rng)
		mean += x[0]
	}
	mean /= float64(n)

	if math.Abs(mean-0.5) > 0.15 {
		t.Errorf("HMC mean %v, expected 0.5", mean)
	}
}

// The energy of a Hamiltonian trajectory is approximately conserved
// for small step sizes.
func TestLeapfrogEnergy(t *testing.T) {

	g := &gaussian{mu: []float64{0, 0}, sigma: []float64{1, 2}}

	x := []float64{0.3, -0.4}
	r := []float64{0.7, 0.2}
	grad := make([]float64, 2)

	h0 := g.Observe(x) - 0.5*sqnorm(r)
	var lp float64
	for i := 0; i < 100; i++ {
		lp = leapfrog(g, x, r, grad, 0.01)
	}
	h1 := lp - 0.5*sqnorm(r)

	if math.Abs(h1-h0) > 1e-3 {
		t.Errorf("energy drift %v over 100 leapfrog steps", math.Abs(h1-h0))
	}
}

// Dual averaging drives the acceptance statistic toward its target.
func TestDualAveraging(t *testing.T) {

	da := NewDualAveraging(1.0, 0.75)

	// A crude response model: larger steps mean lower acceptance.
	eps := 1.0
	for i := 0; i < 500; i++ {
		accept := math.Exp(-eps)
		eps = da.Update(accept)
	}

	final := da.Final()
	if math.Abs(math.Exp(-final)-0.75) > 0.05 {
		t.Errorf("adapted step size %v gives acceptance %v, expected 0.75",
			final, math.Exp(-final))
	}
}

// The step-size search returns a finite positive value.
func TestFindReasonableEps(t *testing.T) {

	g := &gaussian{mu: []float64{0}, sigma: []float64{0.1}}
	rng := rand.New(rand.NewSource(1))

	eps := FindReasonableEps(g, []float64{0}, rng)
	if !(eps > 0) || math.IsInf(eps, 0) {
		t.Errorf("unreasonable step size %v", eps)
	}
}
