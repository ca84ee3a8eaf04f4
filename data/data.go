// Package data reads per-country CSV directories into the tensors the
// model consumes.  A dataset directory holds one subdirectory per
// country:
//
//	dataset/
//	    Germany/
//	        new_cases.csv      date,<age group>,...   positive tests
//	        tests.csv          date,<age group>,...   total tests
//	        deaths.csv         date,<age group>,...
//	        population.csv     age_group,population
//	        interventions.csv  intervention,date
//	    Portugal/
//	        ...
//
// Dates are ISO (2006-01-02).  Empty cells and the literal "nan" mark
// missing observations and become NaN in the assembled tensors.  The
// countries are aligned on the union of their date ranges; days a
// country does not cover are NaN as well.
package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jdehning/covid19-npis-sampling/model"
)

const dateFormat = "2006-01-02"

// Country holds the raw series of one country directory before
// alignment.
type Country struct {
	Name      string
	AgeGroups []string

	// Dates[i] is the date of row i in each of the three series.
	Dates []time.Time

	// Series rows follow Dates, columns follow AgeGroups.
	NewCases [][]float64
	Tests    [][]float64
	Deaths   [][]float64

	// Population per age group.
	Population []float64

	// Change-point date per intervention name.
	Interventions map[string]time.Time
}

// Dataset is a collection of countries loaded from one directory.
type Dataset struct {
	Countries []*Country
}

// Load reads every subdirectory of root as a country, in sorted order.
func Load(root string) (*Dataset, error) {

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("data: reading %s: %w", root, err)
	}

	ds := &Dataset{}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		c, err := LoadCountry(filepath.Join(root, e.Name()))
		if err != nil {
			return nil, err
		}
		ds.Countries = append(ds.Countries, c)
	}

	if len(ds.Countries) == 0 {
		return nil, fmt.Errorf("data: no country directories under %s", root)
	}

	sort.Slice(ds.Countries, func(i, j int) bool {
		return ds.Countries[i].Name < ds.Countries[j].Name
	})

	return ds, nil
}

// LoadCountry reads one country directory.  The directory name is the
// country name.
func LoadCountry(dir string) (*Country, error) {

	c := &Country{Name: filepath.Base(dir)}

	var err error
	c.Dates, c.AgeGroups, c.NewCases, err = readSeries(filepath.Join(dir, "new_cases.csv"))
	if err != nil {
		return nil, err
	}

	dates, ages, tests, err := readSeries(filepath.Join(dir, "tests.csv"))
	if err != nil {
		return nil, err
	}
	if err := c.checkAligned("tests.csv", dates, ages); err != nil {
		return nil, err
	}
	c.Tests = tests

	dates, ages, deaths, err := readSeries(filepath.Join(dir, "deaths.csv"))
	if err != nil {
		return nil, err
	}
	if err := c.checkAligned("deaths.csv", dates, ages); err != nil {
		return nil, err
	}
	c.Deaths = deaths

	c.Population, err = readPopulation(filepath.Join(dir, "population.csv"), c.AgeGroups)
	if err != nil {
		return nil, err
	}

	c.Interventions, err = readInterventions(filepath.Join(dir, "interventions.csv"))
	if err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Country) checkAligned(name string, dates []time.Time, ages []string) error {

	if len(dates) != len(c.Dates) || !dates[0].Equal(c.Dates[0]) {
		return fmt.Errorf("data: %s/%s covers a different date range than new_cases.csv",
			c.Name, name)
	}
	if len(ages) != len(c.AgeGroups) {
		return fmt.Errorf("data: %s/%s has %d age groups, new_cases.csv has %d",
			c.Name, name, len(ages), len(c.AgeGroups))
	}
	for i, a := range ages {
		if a != c.AgeGroups[i] {
			return fmt.Errorf("data: %s/%s age group %q does not match new_cases.csv (%q)",
				c.Name, name, a, c.AgeGroups[i])
		}
	}
	return nil
}

// readSeries parses a date-indexed, age-group-columned CSV.  Rows must
// be consecutive days.
func readSeries(path string) ([]time.Time, []string, [][]float64, error) {

	fid, err := os.Open(path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("data: %w", err)
	}
	defer fid.Close()

	rd := csv.NewReader(fid)

	header, err := rd.Read()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("data: %s: %w", path, err)
	}
	if len(header) < 2 || header[0] != "date" {
		return nil, nil, nil, fmt.Errorf("data: %s: first column must be date", path)
	}
	ages := header[1:]

	var dates []time.Time
	var rows [][]float64

	for {
		row, err := rd.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, nil, nil, fmt.Errorf("data: %s: %w", path, err)
		}

		day, err := time.Parse(dateFormat, row[0])
		if err != nil {
			return nil, nil, nil, fmt.Errorf("data: %s: bad date %q: %w", path, row[0], err)
		}
		if len(dates) > 0 {
			if want := dates[len(dates)-1].AddDate(0, 0, 1); !day.Equal(want) {
				return nil, nil, nil, fmt.Errorf("data: %s: dates are not consecutive at %s",
					path, row[0])
			}
		}
		dates = append(dates, day)

		vals := make([]float64, len(ages))
		for j := range ages {
			vals[j], err = parseCell(row[j+1])
			if err != nil {
				return nil, nil, nil, fmt.Errorf("data: %s row %s: %w", path, row[0], err)
			}
		}
		rows = append(rows, vals)
	}

	if len(dates) == 0 {
		return nil, nil, nil, fmt.Errorf("data: %s has no data rows", path)
	}

	return dates, ages, rows, nil
}

func parseCell(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

func readPopulation(path string, ages []string) ([]float64, error) {

	fid, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("data: %w", err)
	}
	defer fid.Close()

	rd := csv.NewReader(fid)
	if _, err := rd.Read(); err != nil {
		return nil, fmt.Errorf("data: %s: %w", path, err)
	}

	byAge := make(map[string]float64)
	for {
		row, err := rd.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("data: %s: %w", path, err)
		}
		v, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("data: %s: bad population %q: %w", path, row[1], err)
		}
		byAge[row[0]] = v
	}

	pop := make([]float64, len(ages))
	for i, a := range ages {
		v, ok := byAge[a]
		if !ok {
			return nil, fmt.Errorf("data: %s: no population for age group %q", path, a)
		}
		pop[i] = v
	}

	return pop, nil
}

func readInterventions(path string) (map[string]time.Time, error) {

	fid, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("data: %w", err)
	}
	defer fid.Close()

	rd := csv.NewReader(fid)
	if _, err := rd.Read(); err != nil {
		return nil, fmt.Errorf("data: %s: %w", path, err)
	}

	iv := make(map[string]time.Time)
	for {
		row, err := rd.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("data: %s: %w", path, err)
		}
		day, err := time.Parse(dateFormat, row[1])
		if err != nil {
			return nil, fmt.Errorf("data: %s: bad date %q: %w", path, row[1], err)
		}
		iv[row[0]] = day
	}

	return iv, nil
}

// Params assembles the aligned observation tensors and returns a
// ModelParams builder populated with the data, the populations, and
// the interventions.  The caller sets priors and options and completes
// it with Done.
func (ds *Dataset) Params() (*model.ModelParams, error) {

	ages := ds.Countries[0].AgeGroups
	for _, c := range ds.Countries[1:] {
		if len(c.AgeGroups) != len(ages) {
			return nil, fmt.Errorf("data: country %s has %d age groups, %s has %d",
				c.Name, len(c.AgeGroups), ds.Countries[0].Name, len(ages))
		}
		for i, a := range c.AgeGroups {
			if a != ages[i] {
				return nil, fmt.Errorf("data: country %s age group %q does not match %s (%q)",
					c.Name, a, ds.Countries[0].Name, ages[i])
			}
		}
	}

	// Union of the date ranges.
	begin := ds.Countries[0].Dates[0]
	end := begin
	for _, c := range ds.Countries {
		if d := c.Dates[0]; d.Before(begin) {
			begin = d
		}
		if d := c.Dates[len(c.Dates)-1]; d.After(end) {
			end = d
		}
	}
	T := dayIndex(begin, end) + 1

	names := make([]string, len(ds.Countries))
	for i, c := range ds.Countries {
		names[i] = c.Name
	}

	C, A := len(ds.Countries), len(ages)
	pos := nanTensor(T * C * A)
	tot := nanTensor(T * C * A)
	dth := nanTensor(T * C * A)
	pop := make([]float64, C*A)

	for ci, c := range ds.Countries {
		off := dayIndex(begin, c.Dates[0])
		for t := range c.Dates {
			for a := 0; a < A; a++ {
				k := ((off+t)*C+ci)*A + a
				pos[k] = c.NewCases[t][a]
				tot[k] = c.Tests[t][a]
				dth[k] = c.Deaths[t][a]
			}
		}
		copy(pop[ci*A:], c.Population)
	}

	mp := model.NewModelParams(names, ages, begin, T).
		PositiveTests(pos).
		TotalTests(tot).
		Deaths(dth).
		Population(pop)

	// Every country must carry every intervention.
	var ivNames []string
	for name := range ds.Countries[0].Interventions {
		ivNames = append(ivNames, name)
	}
	sort.Strings(ivNames)

	for _, name := range ivNames {
		day := make([]float64, C)
		for ci, c := range ds.Countries {
			d, ok := c.Interventions[name]
			if !ok {
				return nil, fmt.Errorf("data: country %s has no intervention %q", c.Name, name)
			}
			day[ci] = float64(dayIndex(begin, d))
		}
		mp.Intervention(name, day)
	}

	return mp, nil
}

func dayIndex(begin, day time.Time) int {
	return int(day.Sub(begin).Hours() / 24)
}

func nanTensor(n int) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = math.NaN()
	}
	return x
}
