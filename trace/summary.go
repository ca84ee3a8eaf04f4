package trace

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// SummaryTable renders a posterior summary as a fixed-width text
// table.
type SummaryTable struct {

	// Title
	Title string

	// Column names
	ColNames []string

	// Formatters for the column values
	ColFmt []Fmter

	// Cols[j] is the j^th column.  Its concrete type should be an
	// array, e.g. of numbers or strings.
	Cols []interface{}

	// Values at the top of the summary
	Top []string

	// Messages displayed below the table
	Msg []string

	// Total width of the table
	tw int
}

// Fmter formats the elements of an array of values.
type Fmter func(interface{}, string) []string

// StringFmt formats string columns right-aligned to the column
// header.
func StringFmt(v interface{}, name string) []string {
	x := v.([]string)
	w := len(name)
	for _, s := range x {
		if len(s) > w {
			w = len(s)
		}
	}
	var out []string
	f := fmt.Sprintf("%%%ds", w+2)
	for _, s := range x {
		out = append(out, fmt.Sprintf(f, s))
	}
	return out
}

// NumFmt formats float columns with three decimal places.
func NumFmt(v interface{}, name string) []string {
	x := v.([]float64)
	var out []string
	for _, u := range x {
		out = append(out, fmt.Sprintf("%12.3f", u))
	}
	return out
}

// Summary builds the posterior summary table for the named variables,
// one row per tensor element: mean, sd, the central 94% interval, and
// the split-R-hat and effective sample size diagnostics.
func (tr *Trace) Summary(names ...string) *SummaryTable {

	if len(names) == 0 {
		names = tr.names
	}

	var labels []string
	var mean, sd, lo, hi, rhat, ess []float64

	for _, name := range names {
		v := tr.Var(name)
		qlo := tr.Quantile(name, 0.03)
		qhi := tr.Quantile(name, 0.97)
		mn := tr.Mean(name)

		for k := 0; k < v.size; k++ {
			labels = append(labels, elementLabel(name, v.Shape, k))

			var pool []float64
			for c := 0; c < tr.Chains; c++ {
				pool = append(pool, v.Element(c, k)...)
			}
			_, variance := stat.MeanVariance(pool, nil)

			mean = append(mean, mn[k])
			sd = append(sd, math.Sqrt(variance))
			lo = append(lo, qlo[k])
			hi = append(hi, qhi[k])
			rhat = append(rhat, tr.Rhat(name, k))
			ess = append(ess, tr.ESS(name, k))
		}
	}

	top := []string{
		fmt.Sprintf("Chains: %d", tr.Chains),
		fmt.Sprintf("Draws/chain: %d", tr.Draws),
		fmt.Sprintf("Divergences: %d", tr.Divergences()),
		"",
	}

	return &SummaryTable{
		Title:    "Posterior summary",
		Top:      top,
		ColNames: []string{"Variable", "Mean", "SD", "HDI 3%", "HDI 97%", "R-hat", "ESS"},
		ColFmt:   []Fmter{StringFmt, NumFmt, NumFmt, NumFmt, NumFmt, NumFmt, NumFmt},
		Cols: []interface{}{
			labels, mean, sd, lo, hi, rhat, ess,
		},
	}
}

// elementLabel renders "name[i,j]" style labels for tensor elements.
func elementLabel(name string, shape []int, k int) string {

	if len(shape) == 0 {
		return name
	}

	idx := make([]int, len(shape))
	for d := len(shape) - 1; d >= 0; d-- {
		idx[d] = k % shape[d]
		k /= shape[d]
	}

	var b strings.Builder
	b.WriteString(name)
	b.WriteString("[")
	for d, i := range idx {
		if d > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, "%d", i)
	}
	b.WriteString("]")

	return b.String()
}

// Draw a line constructed of the given character filling the width of
// the table.
func (s *SummaryTable) line(c string) string {
	return strings.Repeat(c, s.tw) + "\n"
}

// cleanTop ensures that all fields in the top part of the table have
// the same width.
func (s *SummaryTable) cleanTop() {

	w := len(s.Top[0])
	for _, x := range s.Top {
		if len(x) > w {
			w = len(x)
		}
	}

	for i, x := range s.Top {
		if len(x) < w {
			s.Top[i] = x + strings.Repeat(" ", w-len(x))
		}
	}
}

// Construct the upper part of the table, which contains summary
// values for the run.
func (s *SummaryTable) top(gap int) string {

	w := []int{0, 0}

	for j, x := range s.Top {
		if len(x) > w[j%2] {
			w[j%2] = len(x)
		}
	}

	var b bytes.Buffer

	for j, x := range s.Top {
		c := fmt.Sprintf("%%-%ds", w[j%2])
		b.Write([]byte(fmt.Sprintf(c, x)))
		if j%2 == 1 {
			b.Write([]byte("\n"))
		} else {
			b.Write([]byte(strings.Repeat(" ", gap)))
		}
	}

	if len(s.Top)%2 == 1 {
		b.Write([]byte("\n"))
	}

	return b.String()
}

// String returns the table as a string.
func (s *SummaryTable) String() string {

	s.cleanTop()

	var tab [][]string
	var wx []int
	for j, c := range s.Cols {
		u := s.ColFmt[j](c, s.ColNames[j])
		tab = append(tab, u)
		if len(u[0]) > len(s.ColNames[j]) {
			wx = append(wx, len(u[0]))
		} else {
			wx = append(wx, len(s.ColNames[j]))
		}
	}

	gap := 10

	// Get the total width of the table
	s.tw = 0
	for _, w := range wx {
		s.tw += w
	}
	if s.tw < len(s.Title) {
		s.tw = len(s.Title)
	}
	if s.tw < gap+2*len(s.Top[0]) {
		s.tw = gap + 2*len(s.Top[0])
	}

	var buf bytes.Buffer

	// Center the title
	k := len(s.Title)
	kr := (s.tw - k) / 2
	if kr < 0 {
		kr = 0
	}
	buf.Write([]byte(strings.Repeat(" ", kr)))
	buf.Write([]byte(s.Title))
	buf.Write([]byte("\n"))

	buf.Write([]byte(s.line("=")))
	buf.Write([]byte(s.top(gap)))
	buf.Write([]byte(s.line("-")))

	for j, c := range s.ColNames {
		f := fmt.Sprintf("%%%ds", wx[j])
		buf.Write([]byte(fmt.Sprintf(f, c)))
	}
	buf.Write([]byte("\n"))
	buf.Write([]byte(s.line("-")))

	for i := 0; i < len(tab[0]); i++ {
		for j := 0; j < len(tab); j++ {
			f := fmt.Sprintf("%%%ds", wx[j])
			buf.Write([]byte(fmt.Sprintf(f, tab[j][i])))
		}
		buf.Write([]byte("\n"))
	}
	buf.Write([]byte(s.line("-")))

	if len(s.Msg) > 0 {
		for _, msg := range s.Msg {
			buf.Write([]byte(msg + "\n"))
		}
	}

	return buf.String()
}
