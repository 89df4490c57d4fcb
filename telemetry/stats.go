package telemetry

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats summarizes one stats window. Field tags drive the CSV
// export in OutputManager.
type WindowStats struct {
	Frame   uint32  `csv:"frame"`
	SimTime float64 `csv:"sim_time"`

	PreyCount int `csv:"prey_count"`
	PredCount int `csv:"pred_count"`

	PreyBirths int `csv:"prey_births"`
	PredBirths int `csv:"pred_births"`
	PreyDeaths int `csv:"prey_deaths"`
	PredDeaths int `csv:"pred_deaths"`

	DeathsOldAge     int `csv:"deaths_old_age"`
	DeathsStarvation int `csv:"deaths_starvation"`
	DeathsPredation  int `csv:"deaths_predation"`

	Catches  int `csv:"catches"`
	Feedings int `csv:"feedings"`

	PreyEnergyMean float64 `csv:"prey_energy_mean"`
	PreyEnergyStd  float64 `csv:"prey_energy_std"`
	PreyEnergyP50  float64 `csv:"prey_energy_p50"`
	PredEnergyMean float64 `csv:"pred_energy_mean"`
	PredEnergyStd  float64 `csv:"pred_energy_std"`
	PredEnergyP50  float64 `csv:"pred_energy_p50"`

	EventsDropped uint64 `csv:"events_dropped"`
}

// EnergySummary computes mean, standard deviation and median of a
// sample. Empty samples yield zeros.
func EnergySummary(values []float64) (mean, std, p50 float64) {
	if len(values) == 0 {
		return 0, 0, 0
	}
	mean = stat.Mean(values, nil)
	if len(values) > 1 {
		std = stat.StdDev(values, nil)
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	p50 = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	return mean, std, p50
}
