package compute

import (
	"runtime"
	"sync"

	"github.com/san-kum/mdsim/internal/engine"
	"gonum.org/v1/gonum/spatial/r3"
)

// CPU is a platform with packed coordinate buffers and a worker count for
// pairwise kernels.
type CPU struct {
	workers int
}

func NewCPU() *CPU {
	return &CPU{
		workers: runtime.NumCPU(),
	}
}

// NewCPUWorkers fixes the worker count, which makes reductions reproducible
// across machines.
func NewCPUWorkers(workers int) *CPU {
	if workers < 1 {
		workers = 1
	}
	return &CPU{workers: workers}
}

func (c *CPU) Name() string { return CPUName }
func (c *CPU) Workers() int { return c.workers }

func (c *CPU) NewData(n int) engine.PlatformData {
	return &flatData{
		positions: make([]float64, 3*n),
		forces:    make([]float64, 3*n),
		workers:   c.workers,
	}
}

type flatData struct {
	positions []float64
	forces    []float64
	workers   int
}

func (d *flatData) Len() int { return len(d.positions) / 3 }

func (d *flatData) Position(i int) r3.Vec {
	return r3.Vec{X: d.positions[3*i], Y: d.positions[3*i+1], Z: d.positions[3*i+2]}
}

func (d *flatData) SetPosition(i int, p r3.Vec) {
	d.positions[3*i] = p.X
	d.positions[3*i+1] = p.Y
	d.positions[3*i+2] = p.Z
}

func (d *flatData) Force(i int) r3.Vec {
	return r3.Vec{X: d.forces[3*i], Y: d.forces[3*i+1], Z: d.forces[3*i+2]}
}

func (d *flatData) ZeroForces() {
	for i := range d.forces {
		d.forces[i] = 0
	}
}

func (d *flatData) FlatBuffers() (positions, forces []float64) {
	return d.positions, d.forces
}

func (d *flatData) Workers() int { return d.workers }

// ParallelFor splits [0, n) into at most workers contiguous chunks and runs
// fn on each. Ranges shorter than minChunk run inline.
func ParallelFor(n, workers, minChunk int, fn func(chunk, start, end int)) {
	if workers <= 1 || n <= minChunk {
		fn(0, 0, n)
		return
	}

	if minChunk > 0 && n/minChunk < workers {
		workers = n / minChunk
	}
	if workers < 1 {
		workers = 1
	}

	chunkSize := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(chunk, s, e int) {
			defer wg.Done()
			fn(chunk, s, e)
		}(w, start, end)
	}

	wg.Wait()
}

// Chunks reports how many chunks ParallelFor will use for the same inputs.
func Chunks(n, workers, minChunk int) int {
	if workers <= 1 || n <= minChunk {
		return 1
	}
	if minChunk > 0 && n/minChunk < workers {
		workers = n / minChunk
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}
