// Package priors provides the elemental log-densities and parameter
// transforms used by the renewal model.  Distributions not covered by
// infergo's dist package are implemented here; all log-densities are
// smooth in their arguments so that the model remains differentiable.
package priors

import (
	"fmt"
	"math"

	"bitbucket.org/dtolpin/infergo/dist"
)

// Dist is an elemental distribution with fixed support, exposing the
// log-density of a single observation given its parameters.
type Dist struct {
	Name string

	TypeCode DistType

	// Logp returns the log-density at x for location/scale style
	// parameters a and b.  The meaning of a and b depends on the
	// distribution.
	Logp func(a, b, x float64) float64
}

// DistType is used to identify a distribution.
type DistType uint8

// NormalDist, etc. identify the supported distributions.
const (
	NormalDist DistType = iota
	HalfNormalDist
	HalfCauchyDist
	LogNormalDist
	GammaDist
	StudentTDist
	VonMisesDist
)

// New returns the distribution object for the given type code.
func New(code DistType) *Dist {

	switch code {
	case NormalDist:
		return &normal
	case HalfNormalDist:
		return &halfNormal
	case HalfCauchyDist:
		return &halfCauchy
	case LogNormalDist:
		return &logNormal
	case GammaDist:
		return &gammaDist
	case StudentTDist:
		return &studentT4
	case VonMisesDist:
		return &vonMises
	default:
		msg := fmt.Sprintf("priors: unknown distribution: %v\n", code)
		panic(msg)
	}
}

var normal = Dist{
	Name:     "Normal",
	TypeCode: NormalDist,
	Logp:     normalLogp,
}

var halfNormal = Dist{
	Name:     "HalfNormal",
	TypeCode: HalfNormalDist,
	Logp:     halfNormalLogp,
}

var halfCauchy = Dist{
	Name:     "HalfCauchy",
	TypeCode: HalfCauchyDist,
	Logp:     halfCauchyLogp,
}

var logNormal = Dist{
	Name:     "LogNormal",
	TypeCode: LogNormalDist,
	Logp:     logNormalLogp,
}

var gammaDist = Dist{
	Name:     "Gamma",
	TypeCode: GammaDist,
	Logp:     gammaLogp,
}

var studentT4 = Dist{
	Name:     "StudentT4",
	TypeCode: StudentTDist,
	Logp:     studentT4Logp,
}

var vonMises = Dist{
	Name:     "VonMises",
	TypeCode: VonMisesDist,
	Logp:     vonMisesLogp,
}

// normalLogp delegates to infergo's elemental Normal; a is the mean
// and b the standard deviation.
func normalLogp(a, b, x float64) float64 {
	return dist.Normal.Logp(a, b, x)
}

// NormalLogps returns the joint log-density of iid Normal(a, b)
// observations.
func NormalLogps(a, b float64, x ...float64) float64 {
	return dist.Normal.Logps(a, b, x...)
}

// halfNormalLogp is the log-density of |Z|*b for standard normal Z;
// a is ignored and x must be nonnegative.
func halfNormalLogp(a, b, x float64) float64 {
	if x < 0 {
		return math.Inf(-1)
	}
	return math.Ln2 + dist.Normal.Logp(0, b, x)
}

// halfCauchyLogp is the log-density of a Cauchy with location 0 and
// scale b, folded onto the nonnegative half-line; a is ignored.
func halfCauchyLogp(a, b, x float64) float64 {
	if x < 0 {
		return math.Inf(-1)
	}
	z := x / b
	return math.Log(2/math.Pi) - math.Log(b) - math.Log1p(z*z)
}

// logNormalLogp is the log-density of exp(Normal(a, b)) at x > 0.
func logNormalLogp(a, b, x float64) float64 {
	if x <= 0 {
		return math.Inf(-1)
	}
	lx := math.Log(x)
	return dist.Normal.Logp(a, b, lx) - lx
}

// gammaLogp is the Gamma log-density with shape a and rate b.
func gammaLogp(a, b, x float64) float64 {
	if x <= 0 {
		return math.Inf(-1)
	}
	g, _ := math.Lgamma(a)
	return a*math.Log(b) + (a-1)*math.Log(x) - b*x - g
}

// studentT4Logp is the log-density of a Student-t with 4 degrees of
// freedom, location a, and scale b.  The degrees of freedom are fixed
// since the likelihood of the model always uses nu=4.
func studentT4Logp(a, b, x float64) float64 {
	const nu = 4
	z := (x - a) / b
	return studentTConst4 - math.Log(b) - 0.5*(nu+1)*math.Log1p(z*z/nu)
}

// log of Gamma((nu+1)/2) / (Gamma(nu/2) sqrt(nu pi)) for nu=4.
var studentTConst4 = func() float64 {
	g1, _ := math.Lgamma(2.5)
	g2, _ := math.Lgamma(2.0)
	return g1 - g2 - 0.5*math.Log(4*math.Pi)
}()

// vonMisesLogp is the log-density of a von Mises distribution with
// location a and concentration b, for x in (-pi, pi).
func vonMisesLogp(a, b, x float64) float64 {
	return b*math.Cos(x-a) - math.Log(2*math.Pi) - logBesselI0(b)
}

// logBesselI0 evaluates log I_0(x) for x >= 0 using the standard
// Abramowitz-Stegun polynomial approximations.
func logBesselI0(x float64) float64 {

	if x < 3.75 {
		t := x / 3.75
		t *= t
		p := 1.0 + t*(3.5156229+t*(3.0899424+t*(1.2067492+
			t*(0.2659732+t*(0.0360768+t*0.0045813)))))
		return math.Log(p)
	}

	t := 3.75 / x
	p := 0.39894228 + t*(0.01328592+t*(0.00225319+t*(-0.00157565+
		t*(0.00916281+t*(-0.02057706+t*(0.02635537+
			t*(-0.01647633+t*0.00392377)))))))
	return x - 0.5*math.Log(x) + math.Log(p)
}

// GammaKernel fills k with the Gamma density with mean mu and
// dispersion theta (shape mu/theta, scale theta) evaluated at lags
// 1..len(k), normalized to sum to 1.  This is the discrete kernel
// used for generation intervals and reporting delays.
func GammaKernel(k []float64, mu, theta float64) {

	shape := mu / theta
	rate := 1 / theta

	var sum float64
	for i := range k {
		tau := float64(i + 1)
		k[i] = math.Exp(gammaLogp(shape, rate, tau))
		sum += k[i]
	}

	for i := range k {
		k[i] /= sum
	}
}
