package trace

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Rhat computes the split-R-hat potential scale reduction for one
// element of a variable: each chain is split in half and the
// between- and within-half variances are compared.  Values close to
// 1 indicate convergence.
func (tr *Trace) Rhat(name string, index int) float64 {

	v := tr.Var(name)

	var halves [][]float64
	for c := 0; c < tr.Chains; c++ {
		e := v.Element(c, index)
		h := len(e) / 2
		if h < 2 {
			return math.NaN()
		}
		halves = append(halves, e[:h], e[h:h*2])
	}

	return splitRhat(halves)
}

func splitRhat(chains [][]float64) float64 {

	m := float64(len(chains))
	n := float64(len(chains[0]))

	means := make([]float64, len(chains))
	var w float64
	for i, c := range chains {
		mean, variance := stat.MeanVariance(c, nil)
		means[i] = mean
		w += variance
	}
	w /= m

	b := n * stat.Variance(means, nil)

	vhat := (n-1)/n*w + b/n
	if w == 0 {
		return math.NaN()
	}

	return math.Sqrt(vhat / w)
}

// ESS estimates the bulk effective sample size for one element of a
// variable, combining the chains and truncating the autocorrelation
// sum at the first negative pair (Geyer's initial positive sequence).
func (tr *Trace) ESS(name string, index int) float64 {

	v := tr.Var(name)

	var chains [][]float64
	for c := 0; c < tr.Chains; c++ {
		chains = append(chains, v.Element(c, index))
	}

	return essBulk(chains)
}

func essBulk(chains [][]float64) float64 {

	m := len(chains)
	n := len(chains[0])
	if n < 4 {
		return math.NaN()
	}

	// Mean autocorrelation across chains, each computed around its
	// own mean.
	rho := make([]float64, n/2)
	for _, c := range chains {
		mean, variance := stat.MeanVariance(c, nil)
		if variance == 0 {
			return math.NaN()
		}
		for t := 1; t < n/2; t++ {
			var s float64
			for i := 0; i+t < n; i++ {
				s += (c[i] - mean) * (c[i+t] - mean)
			}
			rho[t] += s / (float64(n) * variance) / float64(m)
		}
	}

	// Sum consecutive pairs while they stay positive.
	var tau float64 = 1
	for t := 1; t+1 < len(rho); t += 2 {
		pair := rho[t] + rho[t+1]
		if pair < 0 {
			break
		}
		tau += 2 * pair
	}

	return float64(m*n) / tau
}

// Divergences returns the total number of divergent transitions over
// all chains.
func (tr *Trace) Divergences() int {
	var n int
	for _, stats := range tr.Stats {
		for _, st := range stats {
			if st.Divergent {
				n++
			}
		}
	}
	return n
}
