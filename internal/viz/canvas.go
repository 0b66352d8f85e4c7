package viz

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// Braille cells hold a 2x4 dot matrix:
// 1 4
// 2 5
// 3 6
// 7 8
var pixelMap = [4][2]rune{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const brailleBlank = 0x2800

// Canvas is a Braille pixel canvas. Its resolution in dots is
// (Width*2) x (Height*4).
type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// Set lights the dot at (x, y). Out of range dots are ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= pixelMap[y%4][x%2]
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = brailleBlank
		}
	}
}

// Count reports how many dots are lit.
func (c *Canvas) Count() int {
	n := 0
	for _, row := range c.Grid {
		for _, cell := range row {
			for bits := cell - brailleBlank; bits != 0; bits &= bits - 1 {
				n++
			}
		}
	}
	return n
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

// Camera is an orthographic view of the particle cloud.
type Camera struct {
	RotX, RotY, RotZ float64
	Zoom             float64
}

func NewCamera() *Camera {
	return &Camera{Zoom: 1.0}
}

func (c *Camera) RotateX(a float64) { c.RotX += a }
func (c *Camera) RotateY(a float64) { c.RotY += a }
func (c *Camera) RotateZ(a float64) { c.RotZ += a }
func (c *Camera) ZoomIn()           { c.Zoom = math.Min(10, c.Zoom*1.2) }
func (c *Camera) ZoomOut()          { c.Zoom = math.Max(0.1, c.Zoom/1.2) }

// Rotate applies the camera rotation about x, then y, then z.
func (c *Camera) Rotate(p r3.Vec) r3.Vec {
	cx, sx := math.Cos(c.RotX), math.Sin(c.RotX)
	p.Y, p.Z = p.Y*cx-p.Z*sx, p.Y*sx+p.Z*cx
	cy, sy := math.Cos(c.RotY), math.Sin(c.RotY)
	p.X, p.Z = p.X*cy+p.Z*sy, -p.X*sy+p.Z*cy
	cz, sz := math.Cos(c.RotZ), math.Sin(c.RotZ)
	p.X, p.Y = p.X*cz-p.Y*sz, p.X*sz+p.Y*cz
	return p
}

// Plot draws every position onto the canvas. extent is the half-width of
// the world region that fills the shorter canvas side at zoom 1.
func (c *Camera) Plot(canvas *Canvas, positions []r3.Vec, extent float64) {
	sw, sh := canvas.Width*2, canvas.Height*4
	if extent <= 0 {
		extent = 1
	}
	minDim := float64(sw)
	if float64(sh) < minDim {
		minDim = float64(sh)
	}
	scale := c.Zoom * minDim / (2 * extent)

	for _, p := range positions {
		rot := c.Rotate(p)
		x := int(math.Round(rot.X*scale)) + sw/2
		y := int(math.Round(-rot.Y*scale)) + sh/2
		canvas.Set(x, y)
	}
}

// Extent returns the largest distance of any position from their centroid.
func Extent(positions []r3.Vec) float64 {
	if len(positions) == 0 {
		return 0
	}
	var center r3.Vec
	for _, p := range positions {
		center = r3.Add(center, p)
	}
	center = r3.Scale(1/float64(len(positions)), center)

	extent := 0.0
	for _, p := range positions {
		extent = math.Max(extent, r3.Norm(r3.Sub(p, center)))
	}
	return extent
}
