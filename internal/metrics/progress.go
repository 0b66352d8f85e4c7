package metrics

import (
	"fmt"
	"io"
	"strconv"

	"github.com/san-kum/mdsim/internal/engine"
)

// Sample is one frame's energies normalized per particle and per kT.
type Sample struct {
	Frame     int     `json:"frame"`
	Time      float64 `json:"time"`
	Kinetic   float64 `json:"kinetic"`
	Potential float64 `json:"potential"`
}

// Progress reports normalized kinetic and potential energy at frame
// boundaries. It only reads state.
type Progress struct {
	out       io.Writer
	particles int
	thermal   float64
	samples   []Sample
}

// NewProgress writes one tab-separated line per frame to out.
func NewProgress(out io.Writer, particleCount int, thermalEnergy float64) *Progress {
	return &Progress{
		out:       out,
		particles: particleCount,
		thermal:   thermalEnergy,
		samples:   make([]Sample, 0),
	}
}

// Observe queries the energy state once and emits
// "frame<TAB>KE/N/kT<TAB>PE/N/kT".
func (p *Progress) Observe(frame int, src engine.StateReader) (Sample, error) {
	if p.particles < 1 || p.thermal <= 0 {
		return Sample{}, fmt.Errorf("progress: cannot normalize by %d particles and kT=%g", p.particles, p.thermal)
	}

	state, err := src.GetState(engine.Energy)
	if err != nil {
		return Sample{}, err
	}
	ke, err := state.KineticEnergy()
	if err != nil {
		return Sample{}, err
	}
	pe, err := state.PotentialEnergy()
	if err != nil {
		return Sample{}, err
	}

	n := float64(p.particles)
	s := Sample{
		Frame:     frame,
		Time:      state.Time(),
		Kinetic:   ke / n / p.thermal,
		Potential: pe / n / p.thermal,
	}
	p.samples = append(p.samples, s)

	if _, err := fmt.Fprintf(p.out, "%d\t%s\t%s\n", frame, Format(s.Kinetic), Format(s.Potential)); err != nil {
		return s, err
	}
	return s, nil
}

// Samples returns the frames observed so far.
func (p *Progress) Samples() []Sample {
	out := make([]Sample, len(p.samples))
	copy(out, p.samples)
	return out
}

func (p *Progress) Reset() {
	p.samples = p.samples[:0]
}

// Format renders a value with six significant digits.
func Format(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}
