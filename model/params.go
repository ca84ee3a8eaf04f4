package model

import (
	"fmt"
	"math"
	"time"
)

// Dtype is the element type of all data and parameter tensors.
type Dtype = float64

// ModulationType selects the form of the weekly reporting modulation.
type ModulationType uint8

// NoModulation disables the weekly modulation, AbsSineModulation uses
// a smooth |sin| weekday profile, and StepModulation suppresses
// weekend days only.
const (
	NoModulation ModulationType = iota
	AbsSineModulation
	StepModulation
)

// Intervention describes one non-pharmaceutical intervention with a
// known change-point date per country.  The model infers the
// intervention's effect on the reproduction number and a residual
// shift of the change point around the announced date.
type Intervention struct {

	// Name of the intervention, used for trace variable names.
	Name string

	// Day gives the change-point day per country, as an offset in
	// days from the beginning of the observed window.  May be
	// negative if the intervention predates the data.
	Day []float64
}

// ModelParams holds the per-run configuration of the model: the
// observed data tensors, the population structure, and the
// intervention descriptors.  It is immutable once Done has been
// called; the model reads it but never writes to it.
//
// All time x country x age_group tensors are flat row-major
// []float64 with NaN marking missing observations.
type ModelParams struct {
	countries []string
	ageGroups []string
	begin     time.Time
	nDays     int

	positiveTests []Dtype
	totalTests    []Dtype
	deaths        []Dtype

	// Population per country and age group.
	popN []Dtype

	// Baseline infection fatality ratio per age group, the center
	// of the hierarchical IFR prior.
	ifr []Dtype

	interventions []Intervention

	modulation ModulationType

	done bool
}

// NewModelParams begins the definition of a model configuration for
// the given countries, age groups, and observation window.
func NewModelParams(countries, ageGroups []string, begin time.Time, ndays int) *ModelParams {

	if len(countries) == 0 || len(ageGroups) == 0 {
		panic("ModelParams: need at least one country and one age group\n")
	}
	if ndays <= 0 {
		panic("ModelParams: the observation window must not be empty\n")
	}

	return &ModelParams{
		countries: countries,
		ageGroups: ageGroups,
		begin:     begin,
		nDays:     ndays,
	}
}

func (mp *ModelParams) checkMutable() {
	if mp.done {
		panic("ModelParams: cannot be modified after calling Done\n")
	}
}

func (mp *ModelParams) checkShape(name string, data []Dtype) {
	want := mp.nDays * len(mp.countries) * len(mp.ageGroups)
	if len(data) != want {
		msg := fmt.Sprintf("ModelParams: %s has %d entries, expected %d (time x country x age_group)\n",
			name, len(data), want)
		panic(msg)
	}
}

// PositiveTests sets the observed positive test counts
// (time x country x age_group, NaN for missing).
func (mp *ModelParams) PositiveTests(data []Dtype) *ModelParams {
	mp.checkMutable()
	mp.checkShape("positive tests", data)
	mp.positiveTests = data
	return mp
}

// TotalTests sets the observed total test counts
// (time x country x age_group, NaN for missing).
func (mp *ModelParams) TotalTests(data []Dtype) *ModelParams {
	mp.checkMutable()
	mp.checkShape("total tests", data)
	mp.totalTests = data
	return mp
}

// Deaths sets the observed death counts
// (time x country x age_group, NaN for missing).
func (mp *ModelParams) Deaths(data []Dtype) *ModelParams {
	mp.checkMutable()
	mp.checkShape("deaths", data)
	mp.deaths = data
	return mp
}

// Population sets the population size per country and age group.
func (mp *ModelParams) Population(n []Dtype) *ModelParams {
	mp.checkMutable()
	if len(n) != len(mp.countries)*len(mp.ageGroups) {
		msg := fmt.Sprintf("ModelParams: population has %d entries, expected %d\n",
			len(n), len(mp.countries)*len(mp.ageGroups))
		panic(msg)
	}
	mp.popN = n
	return mp
}

// BaselineIFR sets the prior center of the infection fatality ratio
// per age group.
func (mp *ModelParams) BaselineIFR(ifr []Dtype) *ModelParams {
	mp.checkMutable()
	if len(ifr) != len(mp.ageGroups) {
		msg := fmt.Sprintf("ModelParams: baseline IFR has %d entries, expected %d\n",
			len(ifr), len(mp.ageGroups))
		panic(msg)
	}
	mp.ifr = ifr
	return mp
}

// Intervention adds an intervention with the given change-point day
// per country.
func (mp *ModelParams) Intervention(name string, day []float64) *ModelParams {
	mp.checkMutable()
	if len(day) != len(mp.countries) {
		msg := fmt.Sprintf("ModelParams: intervention %s has %d change points, expected one per country (%d)\n",
			name, len(day), len(mp.countries))
		panic(msg)
	}
	d := make([]float64, len(day))
	copy(d, day)
	mp.interventions = append(mp.interventions, Intervention{Name: name, Day: d})
	return mp
}

// Modulation enables the weekly reporting modulation of the given
// type.  The default is NoModulation.
func (mp *ModelParams) Modulation(mt ModulationType) *ModelParams {
	mp.checkMutable()
	mp.modulation = mt
	return mp
}

// Done completes the configuration.  All observed tensors must have
// been provided; missing entries within them are allowed as NaN.
func (mp *ModelParams) Done() *ModelParams {

	mp.checkMutable()

	if mp.positiveTests == nil || mp.totalTests == nil || mp.deaths == nil {
		panic("ModelParams: positive tests, total tests, and deaths are all required\n")
	}
	if mp.popN == nil {
		panic("ModelParams: the population tensor is required\n")
	}

	for i, v := range mp.popN {
		if math.IsNaN(v) || v <= 0 {
			msg := fmt.Sprintf("ModelParams: population entry %d is not positive\n", i)
			panic(msg)
		}
	}

	if mp.ifr == nil {
		// A flat default centered on 1% mortality.
		mp.ifr = make([]Dtype, len(mp.ageGroups))
		for i := range mp.ifr {
			mp.ifr[i] = 0.01
		}
	}

	mp.done = true
	return mp
}

// NumCountries returns the number of countries.
func (mp *ModelParams) NumCountries() int { return len(mp.countries) }

// NumAgeGroups returns the number of age groups.
func (mp *ModelParams) NumAgeGroups() int { return len(mp.ageGroups) }

// NumDays returns the length of the observed window in days.
func (mp *ModelParams) NumDays() int { return mp.nDays }

// Countries returns the country labels.
func (mp *ModelParams) Countries() []string { return mp.countries }

// AgeGroups returns the age group labels.
func (mp *ModelParams) AgeGroups() []string { return mp.ageGroups }

// Begin returns the first day of the observed window.
func (mp *ModelParams) Begin() time.Time { return mp.begin }

// Interventions returns the intervention descriptors.
func (mp *ModelParams) Interventions() []Intervention { return mp.interventions }

// PositiveTestsData returns the observed positive test tensor.
func (mp *ModelParams) PositiveTestsData() []Dtype { return mp.positiveTests }

// TotalTestsData returns the observed total test tensor.
func (mp *ModelParams) TotalTestsData() []Dtype { return mp.totalTests }

// DeathsData returns the observed death tensor.
func (mp *ModelParams) DeathsData() []Dtype { return mp.deaths }

// PopulationData returns the population per country and age group.
func (mp *ModelParams) PopulationData() []Dtype { return mp.popN }
