package model

import (
	"github.com/jdehning/covid19-npis-sampling/priors"
)

// generateTesting maps the infection trajectory to expected total and
// positive test counts.  Infections pass through a per-country Gamma
// reporting delay; a per-country detection fraction phi_plus gives
// the positive tests, and the positive share rho among all tests
// gives the totals.  Returns (total_tests, positive_tests), both
// (time x country x age_group).
func (ev *eval) generateTesting(newE, h0 []float64) ([]float64, []float64) {

	d := ev.m.dm
	normal := priors.New(priors.NormalDist)

	// Detection fraction and positive share are sampled on the
	// logit scale with normal priors; the sigmoid transform is
	// deterministic, so no Jacobian enters here.
	phiRaw := ev.m.pk.raw(ev.x, "phi_plus")
	for _, v := range phiRaw {
		ev.lp += normal.Logp(-1, 1, v)
	}
	rhoRaw := ev.m.pk.raw(ev.x, "rho_tests")
	for _, v := range rhoRaw {
		ev.lp += normal.Logp(-2, 1, v)
	}

	phi := make([]float64, d.C)
	rho := make([]float64, d.C)
	for c := 0; c < d.C; c++ {
		phi[c] = sigmoidScalar(phiRaw[c])
		rho[c] = sigmoidScalar(rhoRaw[c])
	}
	ev.record("phi_plus", []int{d.C}, phi)
	ev.record("rho_tests", []int{d.C}, rho)

	kernel := ev.delayKernel("m_test", "theta_test", lenTestKernel, 4, 0.3, 1, 0.2)

	positive := make([]float64, d.T*d.C*d.A)
	total := make([]float64, d.T*d.C*d.A)

	for t := 0; t < d.T; t++ {
		for c := 0; c < d.C; c++ {
			for a := 0; a < d.A; a++ {
				var delayed float64
				for i := 0; i < lenTestKernel; i++ {
					delayed += kernel[c*lenTestKernel+i] * ev.pastE(newE, h0, t-i-1, c, a)
				}
				k := d.tca(t, c, a)
				positive[k] = phi[c] * delayed
				total[k] = positive[k] / rho[c]
			}
		}
	}

	ev.record("total_tests", []int{d.T, d.C, d.A}, total)
	ev.record("positive_tests", []int{d.T, d.C, d.A}, positive)

	return total, positive
}
