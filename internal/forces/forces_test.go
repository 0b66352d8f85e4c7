package forces

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/san-kum/mdsim/internal/compute"
	"github.com/san-kum/mdsim/internal/engine"
	"gonum.org/v1/gonum/spatial/r3"
)

func newTestContext(t *testing.T, n int, platform engine.Platform, forces ...engine.Force) *engine.Context {
	t.Helper()
	s := engine.NewSystem()
	for i := 0; i < n; i++ {
		s.AddParticle(1)
	}
	for _, f := range forces {
		s.AddForce(f)
	}
	c, err := engine.NewContext(s, engine.NewVerlet(0.001), platform)
	if err != nil {
		t.Fatalf("NewContext() error = %v", err)
	}
	return c
}

func evaluate(t *testing.T, c *engine.Context, positions []r3.Vec, groups int) (float64, []r3.Vec) {
	t.Helper()
	if err := c.SetPositions(positions); err != nil {
		t.Fatal(err)
	}
	state, err := c.GetGroupState(engine.Forces|engine.Energy, groups)
	if err != nil {
		t.Fatal(err)
	}
	pe, _ := state.PotentialEnergy()
	f, _ := state.Forces()
	return pe, f
}

// checkGradient compares forces to a central difference of the energy.
func checkGradient(t *testing.T, c *engine.Context, positions []r3.Vec, tol float64) {
	t.Helper()
	const h = 1e-6
	_, forces := evaluate(t, c, positions, engine.AllGroups)

	for i := range positions {
		for axis := 0; axis < 3; axis++ {
			shifted := make([]r3.Vec, len(positions))
			copy(shifted, positions)

			shifted[i] = addAxis(positions[i], axis, h)
			ePlus, _ := evaluate(t, c, shifted, engine.AllGroups)
			shifted[i] = addAxis(positions[i], axis, -h)
			eMinus, _ := evaluate(t, c, shifted, engine.AllGroups)

			numeric := -(ePlus - eMinus) / (2 * h)
			analytic := component(forces[i], axis)
			if math.Abs(numeric-analytic) > tol*math.Max(1, math.Abs(analytic)) {
				t.Errorf("particle %d axis %d: force %v, -dE/dx %v", i, axis, analytic, numeric)
			}
		}
	}
}

func addAxis(v r3.Vec, axis int, d float64) r3.Vec {
	switch axis {
	case 0:
		v.X += d
	case 1:
		v.Y += d
	default:
		v.Z += d
	}
	return v
}

func component(v r3.Vec, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	}
	return v.Z
}

func TestHarmonicSingleParticle(t *testing.T) {
	const k = 2.5
	x := r3.Vec{X: 1, Y: -2, Z: 0.5}
	c := newTestContext(t, 1, compute.NewReference(), NewHarmonic(k))

	pe, forces := evaluate(t, c, []r3.Vec{x}, engine.AllGroups)

	if want := 0.5 * k * r3.Dot(x, x); math.Abs(pe-want) > 1e-12 {
		t.Errorf("energy = %v, want %v", pe, want)
	}
	if want := r3.Scale(-k, x); forces[0] != want {
		t.Errorf("force = %v, want %v", forces[0], want)
	}
}

func TestHarmonicForceIsNegativeGradient(t *testing.T) {
	c := newTestContext(t, 3, compute.NewReference(), NewHarmonic(0.7))
	positions := []r3.Vec{{X: 1, Y: 2, Z: 3}, {X: -0.4, Y: 0.1}, {Z: -5}}
	checkGradient(t, c, positions, 1e-5)
}

func TestHarmonicAtOrigin(t *testing.T) {
	c := newTestContext(t, 4, compute.NewReference(), NewHarmonic(100))
	pe, forces := evaluate(t, c, make([]r3.Vec, 4), engine.AllGroups)

	if pe != 0 {
		t.Errorf("energy = %v, want 0", pe)
	}
	for i, f := range forces {
		if f != (r3.Vec{}) {
			t.Errorf("force %d = %v, want zero", i, f)
		}
	}
}

func TestHarmonicSpringConstantParameter(t *testing.T) {
	c := newTestContext(t, 1, compute.NewReference(), NewHarmonic(1))
	x := []r3.Vec{{X: 2}}

	if k, err := c.Parameter(SpringConstantParameter); err != nil || k != 1 {
		t.Fatalf("Parameter() = %v, %v; want 1, nil", k, err)
	}
	before, _ := evaluate(t, c, x, engine.AllGroups)

	if err := c.SetParameter(SpringConstantParameter, 3); err != nil {
		t.Fatal(err)
	}
	after, forces := evaluate(t, c, x, engine.AllGroups)

	if before != 2 || after != 6 {
		t.Errorf("energy before/after = %v/%v, want 2/6", before, after)
	}
	if forces[0].X != -6 {
		t.Errorf("force = %v, want -6", forces[0].X)
	}
}

func TestHarmonicOnlyOnReference(t *testing.T) {
	s := engine.NewSystem()
	s.AddParticle(1)
	s.AddForce(NewHarmonic(1))

	_, err := engine.NewContext(s, engine.NewVerlet(0.1), compute.NewCPU())
	if !errors.Is(err, engine.ErrKernelUnavailable) {
		t.Errorf("error = %v, want ErrKernelUnavailable", err)
	}
}

func ljParticles(n int, charge float64) *Nonbonded {
	nb := NewNonbonded()
	for i := 0; i < n; i++ {
		nb.AddParticle(charge, 1, 1)
	}
	return nb
}

func TestLennardJonesMinimum(t *testing.T) {
	c := newTestContext(t, 2, compute.NewReference(), ljParticles(2, 0))
	rmin := math.Pow(2, 1.0/6)

	pe, forces := evaluate(t, c, []r3.Vec{{}, {X: rmin}}, engine.AllGroups)

	if math.Abs(pe+1) > 1e-12 {
		t.Errorf("energy at minimum = %v, want -epsilon", pe)
	}
	for i, f := range forces {
		if r3.Norm(f) > 1e-9 {
			t.Errorf("force %d at minimum = %v, want zero", i, f)
		}
	}

	// repulsive inside the minimum
	_, forces = evaluate(t, c, []r3.Vec{{}, {X: 1}}, engine.AllGroups)
	if forces[0].X >= 0 || forces[1].X <= 0 {
		t.Errorf("forces at r=sigma = %v, want repulsion", forces)
	}
}

func TestCoulombPair(t *testing.T) {
	nb := NewNonbonded()
	nb.AddParticle(1, 0, 0)
	nb.AddParticle(-1, 0, 0)
	c := newTestContext(t, 2, compute.NewReference(), nb)

	pe, forces := evaluate(t, c, []r3.Vec{{}, {Y: 2}}, engine.AllGroups)

	if want := -CoulombConstant / 2; math.Abs(pe-want) > 1e-9 {
		t.Errorf("energy = %v, want %v", pe, want)
	}
	if want := CoulombConstant / 4; math.Abs(forces[0].Y-want) > 1e-9 {
		t.Errorf("attraction on 0 = %v, want %v", forces[0].Y, want)
	}
}

func scatter(n int, seed uint64) []r3.Vec {
	rng := rand.New(rand.NewPCG(seed, 0))
	side := int(math.Ceil(math.Cbrt(float64(n))))
	positions := make([]r3.Vec, 0, n)
	for i := 0; len(positions) < n; i++ {
		x, y, z := i%side, (i/side)%side, i/(side*side)
		positions = append(positions, r3.Vec{
			X: 1.3*float64(x) + 0.2*rng.Float64(),
			Y: 1.3*float64(y) + 0.2*rng.Float64(),
			Z: 1.3*float64(z) + 0.2*rng.Float64(),
		})
	}
	return positions
}

func TestNonbondedForceIsNegativeGradient(t *testing.T) {
	nb := NewNonbonded()
	nb.AddParticle(0.5, 1, 1)
	nb.AddParticle(-0.2, 0.8, 2)
	nb.AddParticle(0, 1.2, 0.5)
	c := newTestContext(t, 3, compute.NewReference(), nb)

	checkGradient(t, c, scatter(3, 4), 1e-4)
}

func TestNonbondedNetForceVanishes(t *testing.T) {
	c := newTestContext(t, 20, compute.NewReference(), ljParticles(20, 0.1))
	_, forces := evaluate(t, c, scatter(20, 9), engine.AllGroups)

	var sum r3.Vec
	for _, f := range forces {
		sum = r3.Add(sum, f)
	}
	if r3.Norm(sum) > 1e-9 {
		t.Errorf("net force = %v, want zero", sum)
	}
}

func TestNonbondedPlatformsAgree(t *testing.T) {
	const n = 150
	positions := scatter(n, 11)

	ref := newTestContext(t, n, compute.NewReference(), ljParticles(n, 0.05))
	cpu := newTestContext(t, n, compute.NewCPUWorkers(4), ljParticles(n, 0.05))

	eRef, fRef := evaluate(t, ref, positions, engine.AllGroups)
	eCPU, fCPU := evaluate(t, cpu, positions, engine.AllGroups)

	if math.Abs(eRef-eCPU) > 1e-9*math.Abs(eRef) {
		t.Errorf("energy reference %v, cpu %v", eRef, eCPU)
	}
	for i := range fRef {
		if r3.Norm(r3.Sub(fRef[i], fCPU[i])) > 1e-9*math.Max(1, r3.Norm(fRef[i])) {
			t.Errorf("force %d reference %v, cpu %v", i, fRef[i], fCPU[i])
		}
	}
}

func TestNonbondedParticleCountMismatch(t *testing.T) {
	s := engine.NewSystem()
	s.AddParticle(1)
	s.AddParticle(1)
	s.AddForce(ljParticles(1, 0))

	_, err := engine.NewContext(s, engine.NewVerlet(0.1), compute.NewReference())
	if !errors.Is(err, engine.ErrDimensionMismatch) {
		t.Errorf("error = %v, want ErrDimensionMismatch", err)
	}
}

func TestForcesAreAdditive(t *testing.T) {
	harmonic := NewHarmonic(0.3)
	nb := ljParticles(5, 0)
	nb.SetForceGroup(1)
	c := newTestContext(t, 5, compute.NewReference(), harmonic, nb)
	positions := scatter(5, 2)

	eAll, fAll := evaluate(t, c, positions, engine.AllGroups)
	eH, fH := evaluate(t, c, positions, 1<<0)
	eN, fN := evaluate(t, c, positions, 1<<1)

	if math.Abs(eAll-(eH+eN)) > 1e-9 {
		t.Errorf("energy %v, sum of terms %v", eAll, eH+eN)
	}
	for i := range fAll {
		if r3.Norm(r3.Sub(fAll[i], r3.Add(fH[i], fN[i]))) > 1e-9 {
			t.Errorf("force %d = %v, sum of terms %v", i, fAll[i], r3.Add(fH[i], fN[i]))
		}
	}
}
