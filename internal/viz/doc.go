// Package viz provides a terminal live view of a running simulation.
//
// The view steps a sim.Driver one frame at a time using the Bubble Tea
// framework and shows:
//
//   - a Braille canvas with the particle cloud projected through a
//     rotatable camera
//   - normalized kinetic and potential energy per frame
//   - an asciigraph plot of the energy history
//
// Canvases and energy series of saved runs can also be written as SVG with
// WriteCanvasSVG and WriteSeriesSVG.
//
// # Key Bindings
//
//	Space - Pause/Resume stepping
//	X/Y/Z - Rotate the camera (shift reverses)
//	+/-   - Zoom
//	T     - Cycle color themes
//	?     - Show help overlay
//	Q     - Quit
package viz
