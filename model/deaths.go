package model

import (
	"math"

	"github.com/jdehning/covid19-npis-sampling/priors"
)

// calcDelayedDeaths maps the infection trajectory to expected death
// counts: an age- and country-specific infection fatality ratio with
// a log-normal prior centered on the configured per-age baseline, and
// a per-country Gamma reporting delay with a mean of about two weeks.
// Returns deaths_delayed (time x country x age_group).
func (ev *eval) calcDelayedDeaths(newE, h0 []float64) []float64 {

	d := ev.m.dm
	normal := priors.New(priors.NormalDist)

	ifrLog := ev.m.pk.raw(ev.x, "IFR_log")
	phi := make([]float64, d.C*d.A)
	for c := 0; c < d.C; c++ {
		for a := 0; a < d.A; a++ {
			k := d.ca(c, a)
			ev.lp += normal.Logp(math.Log(ev.m.mp.ifr[a]), 0.3, ifrLog[k])
			phi[k] = math.Exp(ifrLog[k])
		}
	}
	ev.record("IFR", []int{d.C, d.A}, phi)

	kernel := ev.delayKernel("m_death", "theta_death", lenDeathKernel, 14, 0.2, 2, 0.5)

	deaths := make([]float64, d.T*d.C*d.A)
	for t := 0; t < d.T; t++ {
		for c := 0; c < d.C; c++ {
			for a := 0; a < d.A; a++ {
				var delayed float64
				for i := 0; i < lenDeathKernel; i++ {
					delayed += kernel[c*lenDeathKernel+i] * ev.pastE(newE, h0, t-i-1, c, a)
				}
				deaths[d.tca(t, c, a)] = phi[d.ca(c, a)] * delayed
			}
		}
	}

	ev.record("deaths_delayed", []int{d.T, d.C, d.A}, deaths)

	return deaths
}
