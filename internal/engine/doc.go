// Package engine provides the particle-system runtime that force extensions
// plug into.
//
// The package defines the small set of collaborators a simulation needs:
//
//   - [System]: ordered particle masses plus registered [Force] descriptors
//   - [Force] / [ForceImpl]: descriptor and per-context implementation of a force term
//   - [Context]: a system bound to an [Integrator] and a [Platform]
//   - [State]: immutable snapshot read back from a context
//   - [Verlet], [Langevin]: fixed-step integrators
//
// # Example
//
//	sys := engine.NewSystem()
//	sys.AddParticle(1.0)
//	sys.AddForce(forces.NewHarmonic(1.0))
//	ctx, err := engine.NewContext(sys, engine.NewVerlet(0.002), compute.NewReference())
//	state, err := ctx.GetState(engine.Positions | engine.Energy)
//
// # Thread Safety
//
// Context instances are NOT thread-safe. A force implementation is only ever
// invoked from the goroutine that drives the context's integrator.
package engine
