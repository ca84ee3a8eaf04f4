package priors

import (
	"math"
)

// CorrelationCholesky maps n(n-1)/2 unconstrained coordinates to the
// strictly lower triangle of an n x n correlation Cholesky factor,
// using canonical partial correlations through tanh.  The factor L is
// written in row-major order into l (length n*n), and the log
// determinant of the Jacobian of the map is returned.  L satisfies
// L[0][0]=1 and unit row norms, so that L L' is a correlation matrix.
func CorrelationCholesky(l []float64, y []float64, n int) float64 {

	if len(l) != n*n {
		panic("priors: output buffer has wrong size")
	}
	if len(y) != n*(n-1)/2 {
		panic("priors: unconstrained vector has wrong size")
	}

	for i := range l {
		l[i] = 0
	}

	var logJ float64
	pos := 0
	l[0] = 1

	for i := 1; i < n; i++ {
		// acc is the squared norm remaining for row i.
		acc := 1.0
		for j := 0; j < i; j++ {
			z := math.Tanh(y[pos])
			pos++
			l[i*n+j] = z * math.Sqrt(acc)
			logJ += math.Log1p(-z*z) + 0.5*math.Log(acc)
			acc -= l[i*n+j] * l[i*n+j]
		}
		l[i*n+i] = math.Sqrt(acc)
	}

	return logJ
}

// LKJCholeskyLogp returns the LKJ log-density (up to a constant not
// depending on l) of an n x n correlation Cholesky factor with
// concentration eta.  l is row-major as produced by
// CorrelationCholesky.
func LKJCholeskyLogp(l []float64, n int, eta float64) float64 {

	var lp float64
	for i := 1; i < n; i++ {
		c := float64(n-i-1) + 2*eta - 2
		lp += c * math.Log(l[i*n+i])
	}

	return lp
}
