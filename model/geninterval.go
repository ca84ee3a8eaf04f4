package model

import (
	"math"

	"github.com/jdehning/covid19-npis-sampling/priors"
)

// constructGenerationInterval builds the per-country discrete
// generation-interval kernel (country x lenGenKernel) from a
// hierarchical mean and a shared dispersion.  The kernel is the Gamma
// density over lags 1..lenGenKernel, normalized to sum to 1.  The
// per-country means are returned alongside the kernels since the
// seeding segment needs them.
func (ev *eval) constructGenerationInterval() ([]float64, []float64) {

	d := ev.m.dm
	normal := priors.New(priors.NormalDist)

	gMuMean := ev.constrain("g_mu_mean")
	ev.lp += normal.Logp(4, 1, gMuMean[0])

	gMuDelta := ev.m.pk.raw(ev.x, "g_mu_delta")
	ev.lp += priors.NormalLogps(0, 1, gMuDelta...)

	gTheta := ev.constrain("g_theta")
	ev.lp += normal.Logp(1, 0.2, gTheta[0])

	gMu := make([]float64, d.C)
	kernel := make([]float64, d.C*lenGenKernel)
	for c := 0; c < d.C; c++ {
		// Multiplicative country deviations keep the mean
		// positive.
		gMu[c] = gMuMean[0] * math.Exp(0.1*gMuDelta[c])
		priors.GammaKernel(kernel[c*lenGenKernel:(c+1)*lenGenKernel], gMu[c], gTheta[0])
	}

	ev.record("g_mu", []int{d.C}, gMu)
	ev.record("gen_kernel", []int{d.C, lenGenKernel}, kernel)

	return kernel, gMu
}
