package model

import (
	"math"

	"github.com/jdehning/covid19-npis-sampling/priors"
)

// The observation channels entering the likelihood.
const (
	chanPositive = iota
	chanTotal
	chanDeaths
	numChannels
)

// studentTLikelihood scores the three observation channels against
// the configured dataset with a Student-t density (4 degrees of
// freedom).  The per-channel, per-country scale sigma has a
// HalfCauchy(50) prior and reaches the likelihood through a soft-plus
// transform, so it is always positive; the t scale is
// sigma*sqrt(expected)+1, which preserves Poisson-like variance
// growth while the heavy tails absorb outlier reporting days.
// NaN entries of the data are excluded from the sum; nothing else is.
func (ev *eval) studentTLikelihood(positive, total, deaths []float64) {

	halfCauchy := priors.New(priors.HalfCauchyDist)

	sigma := ev.constrain("sigma_like")
	for _, s := range sigma {
		ev.lp += halfCauchy.Logp(0, 50, s)
	}
	ev.record("sigma_like", []int{numChannels, ev.m.dm.C}, sigma)

	ev.scoreChannel(positive, ev.m.mp.positiveTests, sigma, chanPositive)
	ev.scoreChannel(total, ev.m.mp.totalTests, sigma, chanTotal)
	ev.scoreChannel(deaths, ev.m.mp.deaths, sigma, chanDeaths)
}

// scoreChannel adds the masked Student-t log-density of one
// observation channel.
func (ev *eval) scoreChannel(expected []float64, data []Dtype, sigma []float64, channel int) {

	d := ev.m.dm
	studentT := priors.New(priors.StudentTDist)

	for t := 0; t < d.T; t++ {
		for c := 0; c < d.C; c++ {
			s := sigma[channel*d.C+c]
			for a := 0; a < d.A; a++ {
				k := d.tca(t, c, a)
				y := data[k]
				if math.IsNaN(y) {
					continue
				}
				mu := expected[k]
				scale := s*math.Sqrt(mu) + 1
				ev.lp += studentT.Logp(mu, scale, y)
			}
		}
	}
}
