package model

import (
	"math"

	"github.com/jdehning/covid19-npis-sampling/priors"
)

// Clipping range of the infection trajectory.  Keeping the values
// strictly positive and finite protects the gradient computation from
// exploding trajectories.
const (
	clipLo = 1e-7
	clipHi = 1e9
)

// constructH0 builds the seeding segment h_0_t
// (lenGenKernel x country x age_group): plausible infection counts
// for the days before the observed window, so the renewal convolution
// has history at t=0.  The segment grows exponentially at the rate
// implied by R_t at the start of the window and the generation
// interval mean, ending at the inferred seed count E_0.
func (ev *eval) constructH0(Rt, gMu []float64) []float64 {

	d := ev.m.dm
	normal := priors.New(priors.NormalDist)

	e0Log := ev.m.pk.raw(ev.x, "E_0_log")
	for _, v := range e0Log {
		ev.lp += normal.Logp(math.Log(10), 3, v)
	}

	S := lenGenKernel
	h0 := make([]float64, S*d.C*d.A)
	for c := 0; c < d.C; c++ {
		for a := 0; a < d.A; a++ {
			k := d.ca(c, a)
			e0 := math.Exp(e0Log[k])
			// Growth rate of the exponential seeding phase.
			r := math.Log(Rt[d.tca(0, c, a)]) / gMu[c]
			for s := 0; s < S; s++ {
				h0[(s*d.C+c)*d.A+a] = e0 * math.Exp(r*float64(s-S))
			}
		}
	}

	ev.record("h_0_t", []int{S, d.C, d.A}, h0)

	return h0
}

// infectionModel runs the renewal process: new infections at each day
// are the generation-interval-weighted sum of past infections, mixed
// across age groups by the contact matrix, scaled by R_t and the
// remaining susceptible fraction of the population.  Values are
// clipped to [clipLo, clipHi].  The returned tensor new_E_t has shape
// (time x country x age_group).
func (ev *eval) infectionModel(h0, Rt, Cm, genKernel []float64) []float64 {

	d := ev.m.dm
	S := lenGenKernel
	N := ev.m.mp.popN

	newE := make([]float64, d.T*d.C*d.A)

	// Cumulative infections per (country, age group), seeded with
	// the pre-window segment so early susceptible depletion is not
	// understated.
	cum := make([]float64, d.C*d.A)
	for s := 0; s < S; s++ {
		for k := 0; k < d.C*d.A; k++ {
			cum[k] += h0[s*d.C*d.A+k]
		}
	}

	pressure := make([]float64, d.A)
	mixed := make([]float64, d.A)

	for t := 0; t < d.T; t++ {
		for c := 0; c < d.C; c++ {

			// Infectious pressure per age group from the
			// convolution with the generation interval.
			for a := 0; a < d.A; a++ {
				var p float64
				for i := 0; i < S; i++ {
					tau := i + 1
					tp := t - tau
					var e float64
					if tp >= 0 {
						e = newE[d.tca(tp, c, a)]
					} else {
						e = h0[((S+tp)*d.C+c)*d.A+a]
					}
					p += genKernel[c*lenGenKernel+i] * e
				}
				pressure[a] = p
			}

			// Redistribute across age groups via the contact
			// matrix.
			for a := 0; a < d.A; a++ {
				var s float64
				for b := 0; b < d.A; b++ {
					s += Cm[d.caa(c, a, b)] * pressure[b]
				}
				mixed[a] = s
			}

			for a := 0; a < d.A; a++ {
				k := d.ca(c, a)
				sus := 1 - cum[k]/N[k]
				if sus < 0 {
					sus = 0
				}
				e := Rt[d.tca(t, c, a)] * sus * mixed[a]
				newE[d.tca(t, c, a)] = clip(e)
				cum[k] += newE[d.tca(t, c, a)]
			}
		}
	}

	ev.record("new_E_t", []int{d.T, d.C, d.A}, newE)

	return newE
}

func clip(x float64) float64 {
	switch {
	case math.IsNaN(x), x < clipLo:
		return clipLo
	case x > clipHi:
		return clipHi
	}
	return x
}

// pastE reads the infection trajectory at day t, falling back to the
// seeding segment for negative days and to zero before the seed
// window.  Used by the observation-model convolutions.
func (ev *eval) pastE(newE, h0 []float64, t, c, a int) float64 {

	d := ev.m.dm
	S := lenGenKernel

	switch {
	case t >= 0:
		return newE[d.tca(t, c, a)]
	case t >= -S:
		return h0[((S+t)*d.C+c)*d.A+a]
	}
	return 0
}

// delayKernel builds a per-country Gamma delay kernel of the given
// window length from hierarchical mean and dispersion parameters,
// adding the priors for both.
func (ev *eval) delayKernel(meanName, thetaName string, window int, meanPrior, meanPriorSigma, thetaPrior, thetaPriorSigma float64) []float64 {

	d := ev.m.dm
	normal := priors.New(priors.NormalDist)
	logNormal := priors.New(priors.LogNormalDist)

	mean := ev.constrain(meanName)
	for _, v := range mean {
		ev.lp += logNormal.Logp(math.Log(meanPrior), meanPriorSigma, v)
	}

	theta := ev.constrain(thetaName)
	ev.lp += normal.Logp(thetaPrior, thetaPriorSigma, theta[0])

	kernel := make([]float64, d.C*window)
	for c := 0; c < d.C; c++ {
		priors.GammaKernel(kernel[c*window:(c+1)*window], mean[c], theta[0])
	}

	return kernel
}
