package model

import (
	"math"

	"github.com/jdehning/covid19-npis-sampling/priors"
)

// constructR0 builds the initial reproduction number R_0
// (country x age_group) from a hierarchical log-normal prior: a
// global log mean, a per-country scatter scale with a half-normal
// prior, and standardized per-cell deviations.
func (ev *eval) constructR0() []float64 {

	d := ev.m.dm
	normal := priors.New(priors.NormalDist)
	halfNormal := priors.New(priors.HalfNormalDist)

	logMean := ev.constrain("R_0_log_mean")
	ev.lp += normal.Logp(math.Log(2.0), 0.5, logMean[0])

	sigma := ev.constrain("R_0_sigma")
	for _, s := range sigma {
		ev.lp += halfNormal.Logp(0, 0.3, s)
	}

	delta := ev.constrain("R_0_delta")
	ev.lp += priors.NormalLogps(0, 1, delta...)

	R0 := make([]float64, d.C*d.A)
	for c := 0; c < d.C; c++ {
		for a := 0; a < d.A; a++ {
			k := d.ca(c, a)
			R0[k] = math.Exp(logMean[0] + sigma[c]*delta[k])
		}
	}

	ev.record("R_0", []int{d.C, d.A}, R0)

	return R0
}

// constructRt evolves R_0 into the time-dependent reproduction number
// R_t (time x country x age_group) by applying the intervention
// change points.  Each intervention carries a hierarchical effect
// size, a per-country shift of the change-point day around the
// announced date, and a transition length; the transition is a smooth
// sigmoid (a step in the limit of a short transition length).  The
// effect is shared across age groups.
func (ev *eval) constructRt(R0 []float64) []float64 {

	d := ev.m.dm
	nI := ev.m.nI
	normal := priors.New(priors.NormalDist)
	halfNormal := priors.New(priors.HalfNormalDist)
	logNormal := priors.New(priors.LogNormalDist)

	alphaMean := ev.constrain("alpha_mean")
	for _, a := range alphaMean {
		ev.lp += normal.Logp(-1, 1, a)
	}

	alphaSigma := ev.constrain("alpha_sigma")
	for _, s := range alphaSigma {
		ev.lp += halfNormal.Logp(0, 0.2, s)
	}

	alphaDelta := ev.constrain("alpha_delta")
	ev.lp += priors.NormalLogps(0, 1, alphaDelta...)

	cpDelta := ev.constrain("cp_delta")
	for _, v := range cpDelta {
		ev.lp += normal.Logp(0, 3.5, v)
	}

	cpLength := ev.constrain("cp_length")
	for _, l := range cpLength {
		ev.lp += logNormal.Logp(math.Log(4), 0.5, l)
	}

	// Cumulative intervention suppression per time and country.
	supp := make([]float64, d.T*d.C)
	for i := 0; i < nI; i++ {
		iv := ev.m.mp.interventions[i]
		for c := 0; c < d.C; c++ {
			alpha := alphaMean[i] + alphaSigma[i]*alphaDelta[i*d.C+c]
			day := iv.Day[c] + cpDelta[i*d.C+c]
			// Slope 4/l makes l the width of the central part
			// of the transition.
			rate := 4 / cpLength[i]
			for t := 0; t < d.T; t++ {
				gamma := sigmoidScalar(rate * (float64(t) - day))
				supp[t*d.C+c] += alpha * gamma
			}
		}
	}

	Rt := make([]float64, d.T*d.C*d.A)
	for t := 0; t < d.T; t++ {
		for c := 0; c < d.C; c++ {
			f := math.Exp(-supp[t*d.C+c])
			for a := 0; a < d.A; a++ {
				Rt[d.tca(t, c, a)] = R0[d.ca(c, a)] * f
			}
		}
	}

	ev.record("R_t", []int{d.T, d.C, d.A}, Rt)

	return Rt
}

func sigmoidScalar(u float64) float64 {
	return 1 / (1 + math.Exp(-u))
}
