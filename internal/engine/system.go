package engine

// System is the ordered collection of particles and registered forces.
// Particle order is installation order for every buffer derived from it.
type System struct {
	masses []float64
	forces []Force
}

func NewSystem() *System {
	return &System{
		masses: make([]float64, 0),
		forces: make([]Force, 0),
	}
}

// AddParticle appends a particle and returns its index. A zero mass marks
// the particle as fixed in space.
func (s *System) AddParticle(mass float64) int {
	s.masses = append(s.masses, mass)
	return len(s.masses) - 1
}

func (s *System) NumParticles() int          { return len(s.masses) }
func (s *System) ParticleMass(i int) float64 { return s.masses[i] }
func (s *System) NumForces() int             { return len(s.forces) }
func (s *System) Force(i int) Force          { return s.forces[i] }

// AddForce registers a force descriptor and returns its index. The system
// keeps the descriptor; implementations are created per context.
func (s *System) AddForce(f Force) int {
	s.forces = append(s.forces, f)
	return len(s.forces) - 1
}
