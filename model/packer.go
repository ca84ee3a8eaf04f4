package model

import (
	"fmt"

	"github.com/jdehning/covid19-npis-sampling/priors"
)

// A block is one named parameter group inside the packed sampling
// vector: a shaped tensor of unconstrained coordinates together with
// the transform onto its support.
type block struct {
	name      string
	shape     []int
	size      int
	offset    int
	transform *priors.Transform
}

// packer lays the model's named parameter blocks into a single flat
// vector for the sampler, and applies the support transforms when the
// model is evaluated.  Block order is fixed at construction, so the
// same name always maps to the same coordinates.
type packer struct {
	blocks []block
	index  map[string]int
	n      int
}

func newPacker() *packer {
	return &packer{index: make(map[string]int)}
}

// add registers a named block with the given transform and shape.  A
// zero-length shape denotes a scalar.
func (pk *packer) add(name string, tc priors.TransformType, shape ...int) {

	if _, ok := pk.index[name]; ok {
		msg := fmt.Sprintf("packer: duplicate parameter block %s\n", name)
		panic(msg)
	}

	size := 1
	for _, s := range shape {
		size *= s
	}

	pk.index[name] = len(pk.blocks)
	pk.blocks = append(pk.blocks, block{
		name:      name,
		shape:     shape,
		size:      size,
		offset:    pk.n,
		transform: priors.NewTransform(tc),
	})
	pk.n += size
}

// size returns the total number of packed coordinates.
func (pk *packer) size() int {
	return pk.n
}

// get returns the block with the given name.
func (pk *packer) get(name string) *block {
	i, ok := pk.index[name]
	if !ok {
		msg := fmt.Sprintf("packer: unknown parameter block %s\n", name)
		panic(msg)
	}
	return &pk.blocks[i]
}

// raw returns the unconstrained coordinates of the named block as a
// subslice of x.
func (pk *packer) raw(x []float64, name string) []float64 {
	b := pk.get(name)
	return x[b.offset : b.offset+b.size]
}

// constrain applies the block transform elementwise, writing the
// constrained values into out (which must have the block's size), and
// returns the accumulated log-Jacobian of the transform.
func (pk *packer) constrain(x []float64, name string, out []float64) float64 {

	b := pk.get(name)
	if len(out) != b.size {
		msg := fmt.Sprintf("packer: output for %s has %d entries, expected %d\n",
			name, len(out), b.size)
		panic(msg)
	}

	var logJ float64
	u := x[b.offset : b.offset+b.size]
	for i, v := range u {
		out[i] = b.transform.Value(v)
		logJ += b.transform.LogJacobian(v)
	}

	return logJ
}

// setConstrained writes support-space values for the named block into
// x through the inverse transform.  Used to build starting points.
func (pk *packer) setConstrained(x []float64, name string, vals []float64) {

	b := pk.get(name)
	if len(vals) != b.size {
		msg := fmt.Sprintf("packer: values for %s have %d entries, expected %d\n",
			name, len(vals), b.size)
		panic(msg)
	}

	for i, v := range vals {
		x[b.offset+i] = b.transform.Inverse(v)
	}
}
