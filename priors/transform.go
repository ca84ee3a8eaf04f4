package priors

import (
	"fmt"
	"math"
)

// Transform is a smooth bijection from an unconstrained sampling
// coordinate to the constrained support of a parameter.  LogJacobian
// returns the log of the absolute derivative of Value at u, which is
// added to the log-density when the prior is evaluated on the
// constrained value.
type Transform struct {
	Name string

	TypeCode TransformType

	// Value maps the unconstrained coordinate to the support.
	Value func(u float64) float64

	// Inverse maps a support point back to the unconstrained
	// coordinate.
	Inverse func(x float64) float64

	// LogJacobian is log |dValue/du| at u.
	LogJacobian func(u float64) float64
}

// TransformType is used to specify a parameter transform.
type TransformType uint8

// IdentityTransform, etc. indicate the different transforms.
const (
	IdentityTransform TransformType = iota
	ExpTransform
	SoftPlusTransform
	SigmoidTransform
)

// NewTransform returns the transform object for the given type code.
func NewTransform(code TransformType) *Transform {

	switch code {
	case IdentityTransform:
		return &identity
	case ExpTransform:
		return &expTransform
	case SoftPlusTransform:
		return &softPlus
	case SigmoidTransform:
		return &sigmoid
	default:
		msg := fmt.Sprintf("priors: unknown transform: %v\n", code)
		panic(msg)
	}
}

var identity = Transform{
	Name:        "Identity",
	TypeCode:    IdentityTransform,
	Value:       func(u float64) float64 { return u },
	Inverse:     func(x float64) float64 { return x },
	LogJacobian: func(u float64) float64 { return 0 },
}

var expTransform = Transform{
	Name:        "Exp",
	TypeCode:    ExpTransform,
	Value:       math.Exp,
	Inverse:     math.Log,
	LogJacobian: func(u float64) float64 { return u },
}

var softPlus = Transform{
	Name:        "SoftPlus",
	TypeCode:    SoftPlusTransform,
	Value:       softPlusValue,
	Inverse:     softPlusInverse,
	LogJacobian: softPlusLogJacobian,
}

var sigmoid = Transform{
	Name:        "Sigmoid",
	TypeCode:    SigmoidTransform,
	Value:       sigmoidValue,
	Inverse:     sigmoidInverse,
	LogJacobian: sigmoidLogJacobian,
}

// softPlusValue is log(1+exp(u)), evaluated stably for large |u|.
func softPlusValue(u float64) float64 {
	if u > 30 {
		return u
	}
	return math.Log1p(math.Exp(u))
}

func softPlusInverse(x float64) float64 {
	if x > 30 {
		return x
	}
	return math.Log(math.Expm1(x))
}

// d/du log(1+exp(u)) = sigmoid(u), so the log-Jacobian is
// u - softplus(u).
func softPlusLogJacobian(u float64) float64 {
	return u - softPlusValue(u)
}

func sigmoidValue(u float64) float64 {
	return 1 / (1 + math.Exp(-u))
}

func sigmoidInverse(x float64) float64 {
	return math.Log(x / (1 - x))
}

// d/du sigmoid(u) = sigmoid(u) (1-sigmoid(u)).
func sigmoidLogJacobian(u float64) float64 {
	s := sigmoidValue(u)
	return math.Log(s) + math.Log1p(-s)
}
