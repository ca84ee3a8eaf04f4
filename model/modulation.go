package model

import (
	"math"
	"time"

	"github.com/jdehning/covid19-npis-sampling/priors"
)

// weeklyModulation builds the weekday reporting profile
// (time x country): fewer reports on weekends.  The weekend factor
// f_w follows a hierarchical log-normal prior and the phase offset a
// von Mises prior per country.  For the abs-sine type the profile is
//
//	1 - f_w (1 - |sin(pi t / 7 + offset/2)|)
//
// with t aligned so that Sunday sits at zero; for the step type the
// factor applies on Saturdays and Sundays only.
func (ev *eval) weeklyModulation() []float64 {

	d := ev.m.dm
	normal := priors.New(priors.NormalDist)
	vonMises := priors.New(priors.VonMisesDist)

	logMean := ev.m.pk.raw(ev.x, "weekend_factor_log_mean")
	ev.lp += normal.Logp(math.Log(0.3), 0.5, logMean[0])

	delta := ev.m.pk.raw(ev.x, "weekend_factor_delta")
	ev.lp += priors.NormalLogps(0, 1, delta...)

	offset := ev.m.pk.raw(ev.x, "offset_modulation")
	for _, v := range offset {
		ev.lp += vonMises.Logp(0, 1, v)
	}

	fw := make([]float64, d.C)
	for c := 0; c < d.C; c++ {
		fw[c] = math.Exp(logMean[0] + 0.5*delta[c])
	}
	ev.record("weekend_factor", []int{d.C}, fw)
	ev.record("offset_modulation", []int{d.C}, offset)

	// Sunday at zero.
	phase := float64(int(ev.m.mp.begin.Weekday()))

	mod := make([]float64, d.T*d.C)
	for t := 0; t < d.T; t++ {
		for c := 0; c < d.C; c++ {
			var f float64
			switch ev.m.mp.modulation {
			case AbsSineModulation:
				s := math.Sin(math.Pi*(float64(t)+phase)/7 + offset[c]/2)
				f = 1 - fw[c]*(1-math.Abs(s))
			case StepModulation:
				wd := ev.m.mp.begin.AddDate(0, 0, t).Weekday()
				f = 1
				if wd == time.Saturday || wd == time.Sunday {
					f = 1 - fw[c]
				}
			default:
				f = 1
			}
			if f < 0 {
				f = -f
			}
			mod[t*d.C+c] = f
		}
	}

	return mod
}

// applyModulation multiplies a (time x country x age_group) channel
// by the weekday profile in place and records the result.
func (ev *eval) applyModulation(cases, mod []float64, name string) {

	d := ev.m.dm
	for t := 0; t < d.T; t++ {
		for c := 0; c < d.C; c++ {
			f := mod[t*d.C+c]
			for a := 0; a < d.A; a++ {
				cases[d.tca(t, c, a)] *= f
			}
		}
	}

	ev.record(name, []int{d.T, d.C, d.A}, cases)
}
