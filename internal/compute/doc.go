// Package compute provides the platforms that own per-context particle
// buffers.
//
// Two platforms are available:
//
//   - reference: positions and forces stored as []r3.Vec
//   - cpu: positions and forces packed as flat x, y, z float64 triples,
//     with pairwise kernels fanned out across workers
//
// A force declares which platforms it has kernels for; building a context
// on any other platform fails.
//
//	platform, err := compute.Lookup("reference")
//	ctx, err := engine.NewContext(sys, integ, platform)
package compute
