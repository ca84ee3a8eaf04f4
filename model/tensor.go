package model

// dims carries the sizes of the semantic tensor axes.  Tensors are
// flat row-major slices; the axis order is always
// (time, country, age_group) and must not be permuted before indexing.
type dims struct {
	T int // days in the observed window
	C int // countries
	A int // age groups
}

// tca indexes a (time, country, age_group) tensor.
func (d dims) tca(t, c, a int) int {
	return (t*d.C+c)*d.A + a
}

// ca indexes a (country, age_group) tensor.
func (d dims) ca(c, a int) int {
	return c*d.A + a
}

// caa indexes a (country, age_group, age_group) tensor.
func (d dims) caa(c, i, j int) int {
	return (c*d.A+i)*d.A + j
}
