package mcmc

import (
	"math"

	"golang.org/x/exp/rand"
)

// Transitions with an energy error beyond this threshold are counted
// as divergent.
const maxEnergyError = 1000

// NUTS is the No-U-Turn transition kernel: the leapfrog trajectory is
// doubled until it starts to retrace, and the next position is drawn
// from the valid part of the trajectory by slice sampling.
type NUTS struct {

	// Step size of the leapfrog integrator.
	Eps float64

	// Maximum number of doublings per transition.  Zero means the
	// default of 10.
	MaxDepth int
}

// nutsTree is the state carried through the recursive doubling.
type nutsTree struct {
	xMinus, rMinus []float64
	xPlus, rPlus   []float64

	// Proposed position sampled uniformly from the valid leaves.
	xProp  []float64
	lpProp float64

	// Number of valid leaves, u-turn flag, divergence flag.
	n         int
	stop      bool
	divergent bool

	// Acceptance statistic accumulators.
	alpha  float64
	nAlpha int
}

// Step advances x by one NUTS transition.
func (nu *NUTS) Step(m GradModel, x []float64, rng *rand.Rand) StepStats {

	maxDepth := nu.MaxDepth
	if maxDepth == 0 {
		maxDepth = 10
	}

	n := len(x)
	r0 := make([]float64, n)
	for i := range r0 {
		r0[i] = rng.NormFloat64()
	}

	lp0 := m.Observe(x)
	h0 := lp0 - 0.5*sqnorm(r0)

	// Slice variable, kept in log space.
	logu := h0 + math.Log(rng.Float64())

	tr := &nutsTree{
		xMinus: cloneVec(x), rMinus: cloneVec(r0),
		xPlus: cloneVec(x), rPlus: cloneVec(r0),
		xProp: cloneVec(x), lpProp: lp0,
		n: 1,
	}

	var divergent bool
	depth := 0

	for depth < maxDepth && !tr.stop {

		var sub *nutsTree
		if rng.Float64() < 0.5 {
			sub = nu.buildTree(m, tr.xMinus, tr.rMinus, logu, -1, depth, h0, rng)
			tr.xMinus, tr.rMinus = sub.xMinus, sub.rMinus
		} else {
			sub = nu.buildTree(m, tr.xPlus, tr.rPlus, logu, +1, depth, h0, rng)
			tr.xPlus, tr.rPlus = sub.xPlus, sub.rPlus
		}

		if sub.divergent {
			divergent = true
		}

		if !sub.stop && sub.n > 0 && rng.Float64() < float64(sub.n)/float64(tr.n) {
			copy(tr.xProp, sub.xProp)
			tr.lpProp = sub.lpProp
		}

		tr.n += sub.n
		tr.alpha += sub.alpha
		tr.nAlpha += sub.nAlpha
		tr.stop = sub.stop || uTurn(tr.xMinus, tr.xPlus, tr.rMinus, tr.rPlus)
		depth++
	}

	copy(x, tr.xProp)

	accept := 0.0
	if tr.nAlpha > 0 {
		accept = tr.alpha / float64(tr.nAlpha)
	}

	return StepStats{
		LogProb:    tr.lpProp,
		StepSize:   nu.Eps,
		Depth:      depth,
		Divergent:  divergent,
		AcceptProb: accept,
	}
}

// buildTree doubles the trajectory in direction v starting from
// (x, r), to depth j.
func (nu *NUTS) buildTree(m GradModel, x, r []float64, logu float64, v int, j int, h0 float64, rng *rand.Rand) *nutsTree {

	if j == 0 {
		// Base case: a single leapfrog step.
		xp := cloneVec(x)
		rp := cloneVec(r)
		grad := make([]float64, len(x))
		lp := leapfrog(m, xp, rp, grad, float64(v)*nu.Eps)

		h := lp - 0.5*sqnorm(rp)
		tr := &nutsTree{
			xMinus: xp, rMinus: rp,
			xPlus: cloneVec(xp), rPlus: cloneVec(rp),
			xProp: cloneVec(xp), lpProp: lp,
			nAlpha: 1,
		}

		if logu <= h {
			tr.n = 1
		}
		if math.IsNaN(h) || h0-h > maxEnergyError {
			tr.stop = true
			tr.divergent = true
		}

		a := math.Exp(math.Min(0, h-h0))
		if math.IsNaN(a) {
			a = 0
		}
		tr.alpha = a

		return tr
	}

	// Recursion: build left and right subtrees.
	tr := nu.buildTree(m, x, r, logu, v, j-1, h0, rng)
	if tr.stop {
		return tr
	}

	var sub *nutsTree
	if v < 0 {
		sub = nu.buildTree(m, tr.xMinus, tr.rMinus, logu, v, j-1, h0, rng)
		tr.xMinus, tr.rMinus = sub.xMinus, sub.rMinus
	} else {
		sub = nu.buildTree(m, tr.xPlus, tr.rPlus, logu, v, j-1, h0, rng)
		tr.xPlus, tr.rPlus = sub.xPlus, sub.rPlus
	}

	if sub.n > 0 && rng.Float64() < float64(sub.n)/float64(tr.n+sub.n) {
		copy(tr.xProp, sub.xProp)
		tr.lpProp = sub.lpProp
	}

	tr.n += sub.n
	tr.alpha += sub.alpha
	tr.nAlpha += sub.nAlpha
	tr.divergent = tr.divergent || sub.divergent
	tr.stop = sub.stop || uTurn(tr.xMinus, tr.xPlus, tr.rMinus, tr.rPlus)

	return tr
}

// uTurn reports whether the trajectory endpoints have started to
// approach each other.
func uTurn(xMinus, xPlus, rMinus, rPlus []float64) bool {

	var dMinus, dPlus float64
	for i := range xPlus {
		d := xPlus[i] - xMinus[i]
		dMinus += d * rMinus[i]
		dPlus += d * rPlus[i]
	}

	return dMinus < 0 || dPlus < 0
}

func cloneVec(x []float64) []float64 {
	y := make([]float64, len(x))
	copy(y, x)
	return y
}
