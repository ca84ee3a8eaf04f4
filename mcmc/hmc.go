// Package mcmc provides gradient-based Markov chain Monte Carlo
// samplers (Hamiltonian Monte Carlo and NUTS) for models implementing
// infergo's model interface together with an explicit gradient.
// Chains are vectorized across goroutines; the model must be pure per
// call.
package mcmc

import (
	"math"

	"bitbucket.org/dtolpin/infergo/model"
	"golang.org/x/exp/rand"
)

// GradModel is a probabilistic model exposing the gradient of its
// log-density.  Observe returns the log joint density at the packed
// parameter vector; Gradient writes the gradient at x into grad.
type GradModel interface {
	model.Model
	Gradient(x, grad []float64)
}

// StepStats describes one transition of a sampler.
type StepStats struct {

	// Log density at the accepted position.
	LogProb float64

	// Step size used for the transition.
	StepSize float64

	// Tree depth (NUTS) or trajectory length (HMC).
	Depth int

	// The transition ended in a divergence.  Divergences are
	// diagnostics, not errors; the position simply stays within
	// the valid part of the trajectory.
	Divergent bool

	// Mean Metropolis acceptance statistic of the trajectory.
	AcceptProb float64
}

// HMC is a Hamiltonian Monte Carlo transition kernel with a fixed
// number of leapfrog steps.
type HMC struct {

	// Step size of the leapfrog integrator.
	Eps float64

	// Number of leapfrog steps per transition.
	L int
}

// Step advances x by one HMC transition using the given source of
// randomness, and reports the transition statistics.
func (h *HMC) Step(m GradModel, x []float64, rng *rand.Rand) StepStats {

	n := len(x)
	r := make([]float64, n)
	for i := range r {
		r[i] = rng.NormFloat64()
	}

	lp0 := m.Observe(x)
	h0 := lp0 - 0.5*sqnorm(r)

	xp := make([]float64, n)
	copy(xp, x)
	grad := make([]float64, n)

	lp := lp0
	for l := 0; l < h.L; l++ {
		lp = leapfrog(m, xp, r, grad, h.Eps)
	}

	h1 := lp - 0.5*sqnorm(r)
	accept := math.Exp(math.Min(0, h1-h0))
	divergent := math.IsNaN(h1) || h0-h1 > maxEnergyError

	if !divergent && rng.Float64() < accept {
		copy(x, xp)
		lp0 = lp
	}
	if math.IsNaN(accept) {
		accept = 0
	}

	return StepStats{
		LogProb:    lp0,
		StepSize:   h.Eps,
		Depth:      h.L,
		Divergent:  divergent,
		AcceptProb: accept,
	}
}

// leapfrog advances position x and momentum r by one step of size eps
// and returns the log density at the new position.  grad is scratch
// space of the same length.
func leapfrog(m GradModel, x, r, grad []float64, eps float64) float64 {

	m.Gradient(x, grad)
	for i := range r {
		r[i] += 0.5 * eps * grad[i]
	}
	for i := range x {
		x[i] += eps * r[i]
	}
	lp := m.Observe(x)
	m.Gradient(x, grad)
	for i := range r {
		r[i] += 0.5 * eps * grad[i]
	}

	return lp
}

func sqnorm(r []float64) float64 {
	var s float64
	for _, v := range r {
		s += v * v
	}
	return s
}
