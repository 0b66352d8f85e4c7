package initcond

import (
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/stat"
)

func TestPositionsCount(t *testing.T) {
	g := New(10.0, rand.NewPCG(1, 2))

	for _, n := range []int{0, 1, 7, 100} {
		if got := len(g.Positions(n)); got != n {
			t.Errorf("Positions(%d) returned %d vectors", n, got)
		}
	}
}

func TestPositionsStatistics(t *testing.T) {
	const (
		n      = 20000
		spread = 2.5
	)
	g := New(spread, rand.NewPCG(42, 7))
	positions := g.Positions(n)

	axes := [3][]float64{make([]float64, n), make([]float64, n), make([]float64, n)}
	for i, p := range positions {
		axes[0][i] = p.X
		axes[1][i] = p.Y
		axes[2][i] = p.Z
	}

	// standard error of the mean is spread/sqrt(n) ~ 0.018
	for axis, values := range axes {
		mean, std := stat.MeanStdDev(values, nil)
		if math.Abs(mean) > 0.1 {
			t.Errorf("axis %d: mean %.4f, want ~0", axis, mean)
		}
		if math.Abs(std-spread)/spread > 0.03 {
			t.Errorf("axis %d: stddev %.4f, want ~%.4f", axis, std, spread)
		}
	}
}

func TestSameSeedReproduces(t *testing.T) {
	a := New(1.0, rand.NewPCG(5, 5)).Positions(10)
	b := New(1.0, rand.NewPCG(5, 5)).Positions(10)

	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("position %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestNoReseedBetweenCalls(t *testing.T) {
	g := New(1.0, rand.NewPCG(9, 9))
	first := g.Positions(3)
	second := g.Positions(3)

	if first[0] == second[0] {
		t.Error("second call repeated the first sample; source was reseeded")
	}

	whole := New(1.0, rand.NewPCG(9, 9)).Positions(6)
	for i := 0; i < 3; i++ {
		if whole[3+i] != second[i] {
			t.Errorf("position %d: split draw %v, continuous draw %v", i, second[i], whole[3+i])
		}
	}
}

func TestZeroSpread(t *testing.T) {
	g := New(0, rand.NewPCG(1, 1))
	for _, p := range g.Positions(5) {
		if p.X != 0 || p.Y != 0 || p.Z != 0 {
			t.Errorf("expected origin, got %v", p)
		}
	}
}
