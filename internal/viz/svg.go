package viz

import (
	"bufio"
	"fmt"
	"io"

	"gonum.org/v1/gonum/floats"
)

// WriteCanvasSVG renders every lit Braille dot of canvas as a circle.
// scale is the size of one dot cell in SVG units.
func WriteCanvasSVG(w io.Writer, canvas *Canvas, scale float64, fill string) error {
	bw := bufio.NewWriter(w)
	width := float64(canvas.Width) * scale * 2
	height := float64(canvas.Height) * scale * 4

	fmt.Fprintf(bw, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<g fill="%s">
`, width, height, width, height, fill)

	radius := scale * 0.4
	for row := 0; row < canvas.Height; row++ {
		for col := 0; col < canvas.Width; col++ {
			bits := canvas.Grid[row][col] - brailleBlank
			if bits <= 0 {
				continue
			}
			baseX := float64(col) * scale * 2
			baseY := float64(row) * scale * 4
			for dy := 0; dy < 4; dy++ {
				for dx := 0; dx < 2; dx++ {
					if bits&pixelMap[dy][dx] == 0 {
						continue
					}
					cx := baseX + float64(dx)*scale + scale/2
					cy := baseY + float64(dy)*scale + scale/2
					fmt.Fprintf(bw, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n", cx, cy, radius)
				}
			}
		}
	}

	fmt.Fprint(bw, "</g>\n</svg>\n")
	return bw.Flush()
}

// WriteSeriesSVG draws each series as a polyline against its sample index.
// All series share one vertical range. colors is cycled per series.
func WriteSeriesSVG(w io.Writer, series [][]float64, width, height int, colors []string) error {
	n := 0
	lo, hi := 0.0, 0.0
	first := true
	for _, s := range series {
		if len(s) == 0 {
			continue
		}
		if len(s) > n {
			n = len(s)
		}
		if first {
			lo, hi = floats.Min(s), floats.Max(s)
			first = false
			continue
		}
		lo = min(lo, floats.Min(s))
		hi = max(hi, floats.Max(s))
	}
	if n < 2 {
		return fmt.Errorf("svg: need at least two samples, got %d", n)
	}
	if len(colors) == 0 {
		colors = []string{"#00ffff"}
	}

	span := hi - lo
	if span == 0 {
		span = 1
	}
	lo -= span * 0.1
	span *= 1.2

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)

	for i, s := range series {
		if len(s) < 2 {
			continue
		}
		fmt.Fprintf(bw, `<path fill="none" stroke="%s" stroke-width="1.5" d="`, colors[i%len(colors)])
		for j, v := range s {
			x := float64(j) / float64(n-1) * float64(width)
			y := float64(height) - (v-lo)/span*float64(height)
			if j == 0 {
				fmt.Fprintf(bw, "M%.1f,%.1f", x, y)
			} else {
				fmt.Fprintf(bw, " L%.1f,%.1f", x, y)
			}
		}
		fmt.Fprint(bw, "\"/>\n")
	}

	fmt.Fprint(bw, "</svg>\n")
	return bw.Flush()
}
