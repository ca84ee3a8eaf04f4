package model

import (
	"math"
	"testing"
	"time"

	"gonum.org/v1/gonum/floats"
)

// capture is a Recorder keeping the last recorded value and shape per
// name.
type capture struct {
	shapes map[string][]int
	values map[string][]float64
}

func newCapture() *capture {
	return &capture{
		shapes: make(map[string][]int),
		values: make(map[string][]float64),
	}
}

func (c *capture) Record(name string, shape []int, value []float64) {
	c.shapes[name] = shape
	c.values[name] = value
}

// testParams builds a small two-country, two-age-group configuration
// with one intervention and a few missing observations.
func testParams(mod ModulationType) *ModelParams {

	T, C, A := 30, 2, 2
	n := T * C * A

	pos := make([]Dtype, n)
	tot := make([]Dtype, n)
	dth := make([]Dtype, n)
	for i := range pos {
		pos[i] = 25
		tot[i] = 230
		dth[i] = 0.5
	}
	// A few missing entries in each channel.
	pos[3] = math.NaN()
	tot[10] = math.NaN()
	dth[0] = math.NaN()
	dth[77] = math.NaN()

	pop := []Dtype{8e6, 3e6, 5e6, 2e6}
	ifr := []Dtype{0.001, 0.05}

	begin := time.Date(2020, 3, 2, 0, 0, 0, 0, time.UTC)

	return NewModelParams([]string{"Germany", "Portugal"}, []string{"0-59", "60+"}, begin, T).
		PositiveTests(pos).
		TotalTests(tot).
		Deaths(dth).
		Population(pop).
		BaselineIFR(ifr).
		Intervention("lockdown", []float64{12, 15}).
		Modulation(mod).
		Done()
}

// Every recorded tensor keeps its documented shape and axis order.
func TestRecordedShapes(t *testing.T) {

	m := NewModel(testParams(NoModulation))
	rec := newCapture()
	m.Eval(m.InitialPoint(), rec)

	T, C, A := 30, 2, 2
	want := map[string][]int{
		"R_0":            {C, A},
		"R_t":            {T, C, A},
		"C":              {C, A, A},
		"g_mu":           {C},
		"gen_kernel":     {C, lenGenKernel},
		"h_0_t":          {lenGenKernel, C, A},
		"new_E_t":        {T, C, A},
		"total_tests":    {T, C, A},
		"positive_tests": {T, C, A},
		"IFR":            {C, A},
		"deaths_delayed": {T, C, A},
		"sigma_like":     {numChannels, C},
	}

	for name, shape := range want {
		got, ok := rec.shapes[name]
		if !ok {
			t.Errorf("variable %s was not recorded", name)
			continue
		}
		if len(got) != len(shape) {
			t.Errorf("%s: shape %v, expected %v", name, got, shape)
			continue
		}
		size := 1
		for i := range shape {
			if got[i] != shape[i] {
				t.Errorf("%s: shape %v, expected %v", name, got, shape)
			}
			size *= shape[i]
		}
		if len(rec.values[name]) != size {
			t.Errorf("%s: %d values, expected %d", name, len(rec.values[name]), size)
		}
	}
}

// The contact matrix rows are normalized and the generation-interval
// kernels are probability vectors.
func TestContactAndKernelNormalization(t *testing.T) {

	m := NewModel(testParams(NoModulation))
	rec := newCapture()
	m.Eval(m.InitialPoint(), rec)

	C, A := 2, 2
	cm := rec.values["C"]
	for c := 0; c < C; c++ {
		for i := 0; i < A; i++ {
			var rs float64
			for j := 0; j < A; j++ {
				rs += math.Abs(cm[(c*A+i)*A+j])
			}
			if math.Abs(rs-1) > 1e-10 {
				t.Errorf("contact row (%d,%d) sums to %v", c, i, rs)
			}
		}
	}

	k := rec.values["gen_kernel"]
	for c := 0; c < C; c++ {
		if s := floats.Sum(k[c*lenGenKernel : (c+1)*lenGenKernel]); math.Abs(s-1) > 1e-10 {
			t.Errorf("generation kernel of country %d sums to %v", c, s)
		}
	}
}

// new_E_t stays within the clipping range for arbitrary parameter
// vectors.
func TestInfectionClipping(t *testing.T) {

	m := NewModel(testParams(NoModulation))

	x := m.InitialPoint()
	// Push the reproduction number to an absurd value.
	x[m.pk.get("R_0_log_mean").offset] = 8

	rec := newCapture()
	m.Eval(x, rec)

	for i, v := range rec.values["new_E_t"] {
		if v < clipLo || v > clipHi {
			t.Errorf("new_E_t[%d] = %v outside [%v, %v]", i, v, clipLo, clipHi)
		}
	}
}

// The Student-t scale parameters are positive for any unconstrained
// coordinates.
func TestLikelihoodScalePositive(t *testing.T) {

	m := NewModel(testParams(NoModulation))

	x := m.InitialPoint()
	raw := m.pk.raw(x, "sigma_like")
	for i := range raw {
		raw[i] = -20 + float64(7*i)
	}

	rec := newCapture()
	m.Eval(x, rec)

	for i, s := range rec.values["sigma_like"] {
		if !(s > 0) {
			t.Errorf("sigma_like[%d] = %v, expected positive", i, s)
		}
	}
}

// NaN-masked entries do not contribute to the log density: changing a
// masked value has no effect, changing an observed one does.
func TestLikelihoodMask(t *testing.T) {

	mp1 := testParams(NoModulation)
	m1 := NewModel(mp1)
	x := m1.InitialPoint()
	lp1 := m1.Observe(x)

	if math.IsNaN(lp1) || math.IsInf(lp1, 0) {
		t.Fatalf("log density is not finite: %v", lp1)
	}

	// Same configuration with one more masked entry.
	mp2 := testParams(NoModulation)
	mp2.positiveTests[20] = math.NaN()
	m2 := NewModel(mp2)
	lp2 := m2.Observe(x)

	if lp1 == lp2 {
		t.Errorf("masking an observed entry did not change the log density")
	}

	// A completely masked channel contributes nothing but leaves the
	// density finite.
	mp3 := testParams(NoModulation)
	for i := range mp3.deaths {
		mp3.deaths[i] = math.NaN()
	}
	m3 := NewModel(mp3)
	if lp3 := m3.Observe(x); math.IsNaN(lp3) || math.IsInf(lp3, 0) {
		t.Errorf("log density with a masked channel is not finite: %v", lp3)
	}
}

// The intervention suppresses R_t after its change point.
func TestInterventionEffect(t *testing.T) {

	m := NewModel(testParams(NoModulation))

	x := m.InitialPoint()
	// A strong positive effect with little country scatter.
	am := m.pk.raw(x, "alpha_mean")
	am[0] = 1.5
	m.setAll(x, "alpha_sigma", 0.01)
	m.setAll(x, "cp_length", 2)

	rec := newCapture()
	m.Eval(x, rec)

	T, C, A := 30, 2, 2
	Rt := rec.values["R_t"]
	for c := 0; c < C; c++ {
		before := Rt[(2*C+c)*A]    // day 2
		after := Rt[((T-1)*C+c)*A] // last day, well past both change points
		if after >= before {
			t.Errorf("country %d: R_t did not decrease over the change point: %v -> %v",
				c, before, after)
		}
		if ratio := after / before; math.Abs(ratio-math.Exp(-1.5)) > 0.1 {
			t.Errorf("country %d: suppression ratio %v, expected about %v",
				c, ratio, math.Exp(-1.5))
		}
	}
}

// Expected totals dominate positives, and deaths scale with the IFR.
func TestObservationChannels(t *testing.T) {

	m := NewModel(testParams(NoModulation))
	rec := newCapture()
	m.Eval(m.InitialPoint(), rec)

	tot := rec.values["total_tests"]
	pos := rec.values["positive_tests"]
	for i := range tot {
		if tot[i] < pos[i] {
			t.Errorf("total tests %v below positive tests %v at %d", tot[i], pos[i], i)
		}
		if pos[i] <= 0 {
			t.Errorf("nonpositive expected positives at %d", i)
		}
	}

	for i, v := range rec.values["deaths_delayed"] {
		if v < 0 {
			t.Errorf("negative expected deaths at %d", i)
		}
	}
}

// The weekly modulation produces weekend dips in the modulated
// channels and leaves the unmodulated model untouched.
func TestWeeklyModulation(t *testing.T) {

	m := NewModel(testParams(AbsSineModulation))

	x := m.InitialPoint()
	// A pronounced weekend effect with no phase offset.
	m.pk.raw(x, "weekend_factor_log_mean")[0] = math.Log(0.5)

	rec := newCapture()
	m.Eval(x, rec)

	if _, ok := rec.values["positive_tests_modulated"]; !ok {
		t.Fatalf("modulated channel was not recorded")
	}

	raw := rec.values["positive_tests"]
	mod := rec.values["positive_tests_modulated"]

	var differ bool
	for i := range raw {
		if mod[i] > raw[i]+1e-12 {
			t.Errorf("modulation increased counts at %d: %v > %v", i, mod[i], raw[i])
		}
		if mod[i] != raw[i] {
			differ = true
		}
	}
	if !differ {
		t.Errorf("modulation had no effect")
	}
}

// The gradient is finite at the starting point.
func TestGradientFinite(t *testing.T) {

	m := NewModel(testParams(NoModulation))

	x := m.InitialPoint()
	grad := make([]float64, m.NTheta())
	m.Gradient(x, grad)

	for i, g := range grad {
		if math.IsNaN(g) || math.IsInf(g, 0) {
			t.Errorf("gradient component %d is %v", i, g)
		}
	}
}
