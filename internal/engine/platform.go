package engine

import "gonum.org/v1/gonum/spatial/r3"

// Platform is a compute backend. It allocates the buffers a context reads
// and writes during integration.
type Platform interface {
	Name() string
	NewData(numParticles int) PlatformData
}

// PlatformData is the per-context storage allocated by a Platform. The
// element accessors are layout independent and are what integrators use.
type PlatformData interface {
	Len() int
	Position(i int) r3.Vec
	SetPosition(i int, p r3.Vec)
	Force(i int) r3.Vec
	ZeroForces()
}

// Vec3Layout is implemented by platform data that stores positions and
// forces as contiguous r3.Vec slices.
type Vec3Layout interface {
	Vec3Buffers() (positions, forces []r3.Vec)
}

// FlatLayout is implemented by platform data that stores positions and
// forces as packed x, y, z float64 triples.
type FlatLayout interface {
	FlatBuffers() (positions, forces []float64)
}
