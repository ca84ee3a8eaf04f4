// Package trace collects posterior draws into a named-variable trace
// structure, computes convergence diagnostics, and renders summary
// tables.
package trace

import (
	"fmt"
	"sort"

	"github.com/jdehning/covid19-npis-sampling/mcmc"
	"github.com/jdehning/covid19-npis-sampling/model"
)

// Variable is one named tensor of the trace, stored per chain with
// draws along the leading axis.
type Variable struct {
	Name  string
	Shape []int

	size int

	// data[chain] holds draws*size values, draw-major.
	data [][]float64
}

// Size returns the number of elements of one draw of the variable.
func (v *Variable) Size() int {
	return v.size
}

// Get returns the flattened tensor of the given chain and draw.  The
// returned slice aliases the trace storage.
func (v *Variable) Get(chain, draw int) []float64 {
	return v.data[chain][draw*v.size : (draw+1)*v.size]
}

// Element returns one element of the variable across all draws of
// one chain.
func (v *Variable) Element(chain, index int) []float64 {
	n := len(v.data[chain]) / v.size
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = v.data[chain][i*v.size+index]
	}
	return out
}

// Trace is a posterior trace: named variables with draw x chain x
// shape storage, plus the per-transition sampler statistics.
type Trace struct {
	Chains int
	Draws  int

	// Stats[chain][draw] are the sampler statistics.
	Stats [][]mcmc.StepStats

	names []string
	vars  map[string]*Variable
}

// Names returns the variable names in recording order.
func (tr *Trace) Names() []string {
	return tr.names
}

// Var returns the named variable, or panics if it was never
// recorded.
func (tr *Trace) Var(name string) *Variable {
	v, ok := tr.vars[name]
	if !ok {
		msg := fmt.Sprintf("trace: unknown variable %s\n", name)
		panic(msg)
	}
	return v
}

// Has reports whether the trace contains the named variable.
func (tr *Trace) Has(name string) bool {
	_, ok := tr.vars[name]
	return ok
}

// recorder implements model.Recorder for one (chain, draw) replay.
type recorder struct {
	tr    *Trace
	chain int
}

func (r *recorder) Record(name string, shape []int, value []float64) {

	v, ok := r.tr.vars[name]
	if !ok {
		size := 1
		for _, s := range shape {
			size *= s
		}
		v = &Variable{
			Name:  name,
			Shape: shape,
			size:  size,
			data:  make([][]float64, r.tr.Chains),
		}
		r.tr.vars[name] = v
		r.tr.names = append(r.tr.names, name)
	}

	if len(value) != v.size {
		msg := fmt.Sprintf("trace: variable %s recorded with %d values, expected %d\n",
			name, len(value), v.size)
		panic(msg)
	}

	v.data[r.chain] = append(v.data[r.chain], value...)
}

// FromResult replays the model graph over the retained draws of all
// chains, recording every named deterministic tensor into a trace.
func FromResult(m *model.Model, res *mcmc.Result) *Trace {

	tr := &Trace{
		Chains: len(res.Chains),
		vars:   make(map[string]*Variable),
	}
	if tr.Chains > 0 {
		tr.Draws = len(res.Chains[0].Draws)
	}

	for c, cr := range res.Chains {
		rec := &recorder{tr: tr, chain: c}
		for _, x := range cr.Draws {
			m.Eval(x, rec)
		}
		tr.Stats = append(tr.Stats, cr.Stats)
	}

	return tr
}

// Mean returns the posterior mean tensor of the named variable,
// pooling all chains.
func (tr *Trace) Mean(name string) []float64 {

	v := tr.Var(name)
	out := make([]float64, v.size)

	var n float64
	for c := 0; c < tr.Chains; c++ {
		draws := len(v.data[c]) / v.size
		for i := 0; i < draws; i++ {
			d := v.Get(c, i)
			for k := range out {
				out[k] += d[k]
			}
		}
		n += float64(draws)
	}

	for k := range out {
		out[k] /= n
	}

	return out
}

// Quantile returns the elementwise posterior quantile tensor of the
// named variable, pooling all chains.
func (tr *Trace) Quantile(name string, p float64) []float64 {

	v := tr.Var(name)
	out := make([]float64, v.size)

	var pool []float64
	for k := 0; k < v.size; k++ {
		pool = pool[:0]
		for c := 0; c < tr.Chains; c++ {
			pool = append(pool, v.Element(c, k)...)
		}
		sort.Float64s(pool)
		j := int(p * float64(len(pool)-1))
		out[k] = pool[j]
	}

	return out
}
