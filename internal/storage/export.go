package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/san-kum/mdsim/internal/engine"
	"github.com/san-kum/mdsim/internal/metrics"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrAlreadyExported is returned when a PositionExporter is asked to export twice.
var ErrAlreadyExported = errors.New("storage: positions already exported")

// PositionExporter dumps final positions, one "x<TAB>y<TAB>z" line per
// particle in installation order.
type PositionExporter struct {
	out       io.Writer
	particles int
	positions []r3.Vec
	done      bool
}

func NewPositionExporter(out io.Writer, particleCount int) *PositionExporter {
	return &PositionExporter{out: out, particles: particleCount}
}

// Export queries the position state once and writes it. A snapshot whose
// length differs from the particle count is an invariant violation.
func (e *PositionExporter) Export(src engine.StateReader) error {
	if e.done {
		return ErrAlreadyExported
	}
	e.done = true

	state, err := src.GetState(engine.Positions)
	if err != nil {
		return err
	}
	positions, err := state.Positions()
	if err != nil {
		return err
	}
	if len(positions) != e.particles {
		return fmt.Errorf("%w: state has %d positions, expected %d", engine.ErrInvariant, len(positions), e.particles)
	}

	e.positions = positions
	return WritePositions(e.out, positions)
}

// Positions returns what was exported, or nil before Export.
func (e *PositionExporter) Positions() []r3.Vec {
	return e.positions
}

// WritePositions writes tab-separated coordinate triples.
func WritePositions(w io.Writer, positions []r3.Vec) error {
	for _, p := range positions {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", metrics.Format(p.X), metrics.Format(p.Y), metrics.Format(p.Z)); err != nil {
			return err
		}
	}
	return nil
}

// ExportJSON writes a full run record as indented JSON.
func ExportJSON(w io.Writer, rec *Record) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(rec)
}
