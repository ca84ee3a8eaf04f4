package model

import (
	"github.com/jdehning/covid19-npis-sampling/priors"
)

// Concentration of the LKJ prior on the contact structure.
const contactLKJEta = 4

// constructContact builds the contact matrix C
// (country x age_group x age_group).  Each country has a correlation
// Cholesky factor with an LKJ prior; C = L L' is then normalized to
// unit row sums so that each row distributes one unit of infectious
// pressure across the age groups.
func (ev *eval) constructContact() []float64 {

	d := ev.m.dm
	A := d.A

	raw := ev.m.pk.raw(ev.x, "C_raw")
	nLower := A * (A - 1) / 2

	l := make([]float64, A*A)
	Cm := make([]float64, d.C*A*A)

	for c := 0; c < d.C; c++ {
		y := raw[c*nLower : (c+1)*nLower]
		ev.lp += priors.CorrelationCholesky(l, y, A)
		ev.lp += priors.LKJCholeskyLogp(l, A, contactLKJEta)

		// C = L L', lower triangle only is stored in l.
		for i := 0; i < A; i++ {
			for j := 0; j < A; j++ {
				var s float64
				for k := 0; k <= i && k <= j; k++ {
					s += l[i*A+k] * l[j*A+k]
				}
				Cm[d.caa(c, i, j)] = s
			}
		}

		// Normalize each row to sum 1.  The rows of a
		// correlation matrix have positive diagonal, so the sums
		// are bounded away from zero.
		for i := 0; i < A; i++ {
			var rs float64
			for j := 0; j < A; j++ {
				rs += absScalar(Cm[d.caa(c, i, j)])
			}
			for j := 0; j < A; j++ {
				Cm[d.caa(c, i, j)] /= rs
			}
		}
	}

	ev.record("C", []int{d.C, A, A}, Cm)

	return Cm
}

func absScalar(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
