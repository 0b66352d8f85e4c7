package compute

import (
	"github.com/san-kum/mdsim/internal/engine"
	"gonum.org/v1/gonum/spatial/r3"
)

// Reference is the single-threaded platform whose buffers are r3.Vec slices.
type Reference struct{}

func NewReference() *Reference { return &Reference{} }

func (r *Reference) Name() string { return ReferenceName }

func (r *Reference) NewData(n int) engine.PlatformData {
	return &vecData{
		positions: make([]r3.Vec, n),
		forces:    make([]r3.Vec, n),
	}
}

type vecData struct {
	positions []r3.Vec
	forces    []r3.Vec
}

func (d *vecData) Len() int                    { return len(d.positions) }
func (d *vecData) Position(i int) r3.Vec       { return d.positions[i] }
func (d *vecData) SetPosition(i int, p r3.Vec) { d.positions[i] = p }
func (d *vecData) Force(i int) r3.Vec          { return d.forces[i] }

func (d *vecData) ZeroForces() {
	for i := range d.forces {
		d.forces[i] = r3.Vec{}
	}
}

func (d *vecData) Vec3Buffers() (positions, forces []r3.Vec) {
	return d.positions, d.forces
}
