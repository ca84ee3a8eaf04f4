package trace

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Save writes the trace to a directory: one draws.csv in long format
// (variable, chain, draw, element, value), one stats.csv with the
// sampler statistics, and summary.csv with the per-element summary.
func (tr *Trace) Save(dir string) error {

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("trace: creating %s: %w", dir, err)
	}

	if err := tr.saveDraws(filepath.Join(dir, "draws.csv")); err != nil {
		return err
	}
	if err := tr.saveStats(filepath.Join(dir, "stats.csv")); err != nil {
		return err
	}
	return tr.saveSummary(filepath.Join(dir, "summary.csv"))
}

func (tr *Trace) saveDraws(path string) error {

	fid, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("trace: %w", err)
	}
	defer fid.Close()

	w := csv.NewWriter(fid)
	defer w.Flush()

	if err := w.Write([]string{"variable", "chain", "draw", "element", "value"}); err != nil {
		return fmt.Errorf("trace: %w", err)
	}

	for _, name := range tr.names {
		v := tr.vars[name]
		for c := 0; c < tr.Chains; c++ {
			draws := len(v.data[c]) / v.size
			for i := 0; i < draws; i++ {
				d := v.Get(c, i)
				for k, u := range d {
					rec := []string{
						name,
						strconv.Itoa(c),
						strconv.Itoa(i),
						elementLabel("", v.Shape, k),
						strconv.FormatFloat(u, 'g', -1, 64),
					}
					if err := w.Write(rec); err != nil {
						return fmt.Errorf("trace: %w", err)
					}
				}
			}
		}
	}

	return nil
}

func (tr *Trace) saveStats(path string) error {

	fid, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("trace: %w", err)
	}
	defer fid.Close()

	w := csv.NewWriter(fid)
	defer w.Flush()

	if err := w.Write([]string{"chain", "draw", "lp", "step_size", "depth", "divergent", "accept"}); err != nil {
		return fmt.Errorf("trace: %w", err)
	}

	for c, stats := range tr.Stats {
		for i, st := range stats {
			rec := []string{
				strconv.Itoa(c),
				strconv.Itoa(i),
				strconv.FormatFloat(st.LogProb, 'g', -1, 64),
				strconv.FormatFloat(st.StepSize, 'g', -1, 64),
				strconv.Itoa(st.Depth),
				strconv.FormatBool(st.Divergent),
				strconv.FormatFloat(st.AcceptProb, 'g', -1, 64),
			}
			if err := w.Write(rec); err != nil {
				return fmt.Errorf("trace: %w", err)
			}
		}
	}

	return nil
}

func (tr *Trace) saveSummary(path string) error {

	fid, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("trace: %w", err)
	}
	defer fid.Close()

	w := csv.NewWriter(fid)
	defer w.Flush()

	if err := w.Write([]string{"variable", "mean", "hdi_3", "hdi_97", "rhat", "ess"}); err != nil {
		return fmt.Errorf("trace: %w", err)
	}

	for _, name := range tr.names {
		v := tr.vars[name]
		mn := tr.Mean(name)
		lo := tr.Quantile(name, 0.03)
		hi := tr.Quantile(name, 0.97)
		for k := 0; k < v.size; k++ {
			rec := []string{
				elementLabel(name, v.Shape, k),
				strconv.FormatFloat(mn[k], 'g', -1, 64),
				strconv.FormatFloat(lo[k], 'g', -1, 64),
				strconv.FormatFloat(hi[k], 'g', -1, 64),
				strconv.FormatFloat(tr.Rhat(name, k), 'g', -1, 64),
				strconv.FormatFloat(tr.ESS(name, k), 'g', -1, 64),
			}
			if err := w.Write(rec); err != nil {
				return fmt.Errorf("trace: %w", err)
			}
		}
	}

	return nil
}
