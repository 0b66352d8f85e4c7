package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary condenses a run's energy series.
type Summary struct {
	Frames        int     `json:"frames"`
	KineticMean   float64 `json:"kinetic_mean"`
	KineticStd    float64 `json:"kinetic_std"`
	PotentialMean float64 `json:"potential_mean"`
	PotentialStd  float64 `json:"potential_std"`
	PotentialMin  float64 `json:"potential_min"`
	PotentialMax  float64 `json:"potential_max"`
	// Drift is the relative change of total energy between the first and
	// last frame.
	Drift float64 `json:"drift"`
}

// Summarize computes the summary of samples. An empty series yields the
// zero Summary.
func Summarize(samples []Sample) Summary {
	if len(samples) == 0 {
		return Summary{}
	}

	ke := Kinetic(samples)
	pe := Potential(samples)

	s := Summary{Frames: len(samples)}
	s.KineticMean, s.KineticStd = stat.MeanStdDev(ke, nil)
	s.PotentialMean, s.PotentialStd = stat.MeanStdDev(pe, nil)
	s.PotentialMin = floats.Min(pe)
	s.PotentialMax = floats.Max(pe)
	if len(samples) < 2 {
		s.KineticStd = 0
		s.PotentialStd = 0
	}

	first := ke[0] + pe[0]
	last := ke[len(ke)-1] + pe[len(pe)-1]
	if first != 0 {
		s.Drift = math.Abs(last-first) / math.Abs(first)
	}

	return s
}

// Map flattens the summary for run metadata.
func (s Summary) Map() map[string]float64 {
	return map[string]float64{
		"frames":         float64(s.Frames),
		"kinetic_mean":   s.KineticMean,
		"kinetic_std":    s.KineticStd,
		"potential_mean": s.PotentialMean,
		"potential_std":  s.PotentialStd,
		"potential_min":  s.PotentialMin,
		"potential_max":  s.PotentialMax,
		"drift":          s.Drift,
	}
}

func Kinetic(samples []Sample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.Kinetic
	}
	return out
}

func Potential(samples []Sample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.Potential
	}
	return out
}
