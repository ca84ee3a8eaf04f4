// Package model implements the age- and country-structured renewal
// model: a hierarchical Bayesian infection process with intervention
// change points, composed with testing, death, and weekly-modulation
// observation models and a heavy-tailed Student-t likelihood.
//
// The model is expressed as a log joint density over a packed vector
// of unconstrained parameters, following infergo's model interface:
// Observe returns the log prior plus transform Jacobians plus the
// log-likelihood of the configured dataset.  The computation is a
// static graph evaluated once per sampler call; there is no state
// shared between calls.
package model

import (
	"log"
	"math"

	"gonum.org/v1/gonum/diff/fd"

	"github.com/jdehning/covid19-npis-sampling/priors"
)

// Kernel window lengths in days.
const (
	lenGenKernel   = 12
	lenTestKernel  = 14
	lenDeathKernel = 28
)

// A Recorder receives the named deterministic tensors of the model
// graph during an evaluation.  The trace package provides an
// implementation; a nil Recorder skips all recording.
type Recorder interface {
	Record(name string, shape []int, value []float64)
}

// Model is the generative renewal model for a fixed ModelParams.  It
// implements infergo's model interface (Observe) plus an explicit
// Gradient, so it can be handed directly to the samplers in the mcmc
// package.
type Model struct {
	mp *ModelParams
	dm dims
	pk *packer

	// Number of interventions.
	nI int

	logger *log.Logger
}

// NewModel builds the model for the given configuration.  The
// configuration must be complete (Done must have been called).
func NewModel(mp *ModelParams) *Model {

	if !mp.done {
		panic("model: ModelParams must be completed with Done before use\n")
	}

	m := &Model{
		mp: mp,
		dm: dims{T: mp.NumDays(), C: mp.NumCountries(), A: mp.NumAgeGroups()},
		nI: len(mp.interventions),
	}
	m.register()

	return m
}

// Log sets a logger receiving progress messages during evaluation.
func (m *Model) Log(logger *log.Logger) *Model {
	m.logger = logger
	return m
}

// register lays out the named parameter blocks of the packed
// sampling vector.  The order here is fixed and determines the
// meaning of every coordinate.
func (m *Model) register() {

	C, A, I := m.dm.C, m.dm.A, m.nI
	pk := newPacker()

	// Reproduction number R_0, hierarchical over countries and
	// age groups on the log scale.
	pk.add("R_0_log_mean", priors.IdentityTransform)
	pk.add("R_0_sigma", priors.SoftPlusTransform, C)
	pk.add("R_0_delta", priors.IdentityTransform, C, A)

	// Intervention effects and change points.
	pk.add("alpha_mean", priors.IdentityTransform, I)
	pk.add("alpha_sigma", priors.SoftPlusTransform, I)
	pk.add("alpha_delta", priors.IdentityTransform, I, C)
	pk.add("cp_delta", priors.IdentityTransform, I, C)
	pk.add("cp_length", priors.SoftPlusTransform, I)

	// Contact matrix Cholesky factors, one per country.
	pk.add("C_raw", priors.IdentityTransform, C, A*(A-1)/2)

	// Generation interval mean and dispersion.
	pk.add("g_mu_mean", priors.SoftPlusTransform)
	pk.add("g_mu_delta", priors.IdentityTransform, C)
	pk.add("g_theta", priors.SoftPlusTransform)

	// Seed infections on the log scale.
	pk.add("E_0_log", priors.IdentityTransform, C, A)

	// Testing submodel: detection fraction, positive share,
	// reporting delay.
	pk.add("phi_plus", priors.SigmoidTransform, C)
	pk.add("rho_tests", priors.SigmoidTransform, C)
	pk.add("m_test", priors.SoftPlusTransform, C)
	pk.add("theta_test", priors.SoftPlusTransform)

	// Death submodel: IFR and reporting delay.
	pk.add("IFR_log", priors.IdentityTransform, C, A)
	pk.add("m_death", priors.SoftPlusTransform, C)
	pk.add("theta_death", priors.SoftPlusTransform)

	// Weekly modulation, only present when enabled.
	if m.mp.modulation != NoModulation {
		pk.add("weekend_factor_log_mean", priors.IdentityTransform)
		pk.add("weekend_factor_delta", priors.IdentityTransform, C)
		pk.add("offset_modulation", priors.IdentityTransform, C)
	}

	// Per-channel, per-country likelihood scales.
	pk.add("sigma_like", priors.SoftPlusTransform, numChannels, C)

	m.pk = pk
}

// NTheta returns the dimension of the packed parameter vector.
func (m *Model) NTheta() int {
	return m.pk.size()
}

// Observe returns the log joint density (prior, transform Jacobians,
// and likelihood) at the packed unconstrained parameter vector x.
func (m *Model) Observe(x []float64) float64 {
	return m.Eval(x, nil)
}

// Gradient computes the gradient of Observe at x into grad using
// central finite differences.  The evaluations are independent and
// run concurrently.
func (m *Model) Gradient(x, grad []float64) {
	fd.Gradient(grad, m.Observe, x, &fd.Settings{Concurrent: true})
}

// Eval evaluates the model graph at x, recording the named
// deterministic tensors into rec when it is non-nil, and returns the
// log joint density.
func (m *Model) Eval(x []float64, rec Recorder) float64 {

	if len(x) != m.pk.size() {
		panic("model: parameter vector has wrong length\n")
	}

	ev := &eval{m: m, x: x, rec: rec}

	R0 := ev.constructR0()
	Rt := ev.constructRt(R0)
	Cm := ev.constructContact()
	genKernel, gMu := ev.constructGenerationInterval()
	h0 := ev.constructH0(Rt, gMu)
	newE := ev.infectionModel(h0, Rt, Cm, genKernel)

	totalTests, positiveTests := ev.generateTesting(newE, h0)
	deathsDelayed := ev.calcDelayedDeaths(newE, h0)

	if m.mp.modulation != NoModulation {
		mod := ev.weeklyModulation()
		ev.applyModulation(positiveTests, mod, "positive_tests_modulated")
		ev.applyModulation(totalTests, mod, "total_tests_modulated")
		ev.applyModulation(deathsDelayed, mod, "deaths_modulated")
	}

	ev.studentTLikelihood(positiveTests, totalTests, deathsDelayed)

	if m.logger != nil && (math.IsNaN(ev.lp) || math.IsInf(ev.lp, 0)) {
		m.logger.Printf("model: non-finite log density: %v\n", ev.lp)
	}

	return ev.lp
}

// InitialPoint returns an unconstrained starting vector whose
// constrained values sit at the centers of the priors.  The point is
// deterministic; samplers add their own jitter per chain.
func (m *Model) InitialPoint() []float64 {

	x := make([]float64, m.pk.size())
	C, A := m.dm.C, m.dm.A

	x[m.pk.get("R_0_log_mean").offset] = math.Log(2)
	m.setAll(x, "R_0_sigma", 0.2)
	m.setAll(x, "alpha_sigma", 0.1)
	m.setAll(x, "cp_length", 4)
	m.setAll(x, "g_mu_mean", 4)
	m.setAll(x, "g_theta", 1)
	m.setAll(x, "phi_plus", 0.3)
	m.setAll(x, "rho_tests", 0.1)
	m.setAll(x, "m_test", 4)
	m.setAll(x, "theta_test", 1)
	m.setAll(x, "m_death", 14)
	m.setAll(x, "theta_death", 2)
	m.setAll(x, "sigma_like", 1)

	ifr := m.pk.raw(x, "IFR_log")
	for c := 0; c < C; c++ {
		for a := 0; a < A; a++ {
			ifr[m.dm.ca(c, a)] = math.Log(m.mp.ifr[a])
		}
	}

	e0 := m.pk.raw(x, "E_0_log")
	for i := range e0 {
		e0[i] = math.Log(10)
	}

	return x
}

// setAll fills a block with the unconstrained preimage of a single
// support-space value.
func (m *Model) setAll(x []float64, name string, v float64) {
	b := m.pk.get(name)
	vals := make([]float64, b.size)
	for i := range vals {
		vals[i] = v
	}
	m.pk.setConstrained(x, name, vals)
}

// eval carries the state of one model evaluation: the parameter
// vector, the accumulating log density, and the optional recorder.
type eval struct {
	m   *Model
	x   []float64
	lp  float64
	rec Recorder
}

// constrain unpacks a named block onto its support, accumulating the
// transform Jacobian into the log density.
func (ev *eval) constrain(name string) []float64 {
	b := ev.m.pk.get(name)
	out := make([]float64, b.size)
	ev.lp += ev.m.pk.constrain(ev.x, name, out)
	return out
}

// record hands a named deterministic tensor to the recorder, copying
// the value so later mutation cannot corrupt the trace.
func (ev *eval) record(name string, shape []int, value []float64) {
	if ev.rec == nil {
		return
	}
	v := make([]float64, len(value))
	copy(v, value)
	ev.rec.Record(name, shape, v)
}
