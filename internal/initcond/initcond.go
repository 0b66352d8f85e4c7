// Package initcond samples starting particle positions.
package initcond

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat/distuv"
)

// Generator draws positions from an isotropic normal distribution centred
// on the origin. It never reseeds: successive calls continue the stream of
// the source it was given.
type Generator struct {
	coord distuv.Normal
}

// New returns a generator with per-axis standard deviation spread. The
// source stays owned by the caller.
func New(spread float64, src rand.Source) *Generator {
	return &Generator{
		coord: distuv.Normal{Mu: 0, Sigma: spread, Src: src},
	}
}

func (g *Generator) Spread() float64 { return g.coord.Sigma }

// Positions returns n vectors. Axes are drawn x, y, z per particle, in
// particle order.
func (g *Generator) Positions(n int) []r3.Vec {
	positions := make([]r3.Vec, n)
	for i := range positions {
		x := g.coord.Rand()
		y := g.coord.Rand()
		z := g.coord.Rand()
		positions[i] = r3.Vec{X: x, Y: y, Z: z}
	}
	return positions
}
