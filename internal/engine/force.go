package engine

// AllGroups selects every force group.
const AllGroups = -1

// Force is the lightweight descriptor registered with a System. It outlives
// any implementation created from it and may be shared by several contexts.
type Force interface {
	Name() string
	// ForceGroup returns the group index in [0, 31] used by group masks.
	ForceGroup() int
	// CreateImpl binds a fresh implementation. Called once per context.
	CreateImpl() ForceImpl
}

// ForceImpl is the per-context half of a force term.
//
// CalcForcesAndEnergy reads the current positions and adds this term's
// contribution to the force buffer; other forces share the same buffer
// within one evaluation, so implementations must accumulate and never
// overwrite. The returned energy is this term's potential energy alone.
// Buffers obtained from the context are borrowed for the duration of the
// call and must not be retained.
type ForceImpl interface {
	Initialize(c *Context) error
	CalcForcesAndEnergy(c *Context, includeForces, includeEnergy bool, groups int) (float64, error)
	UpdateContextState(c *Context) error
	DefaultParameters() map[string]float64
	KernelNames() []string
	// Owner returns the descriptor this implementation was created from.
	Owner() Force
}

// ForceBase carries the force group shared by all descriptors.
type ForceBase struct {
	group int
}

func (b *ForceBase) ForceGroup() int { return b.group }

// SetForceGroup assigns the force to a group. Values outside [0, 31] are
// clamped.
func (b *ForceBase) SetForceGroup(group int) {
	if group < 0 {
		group = 0
	}
	if group > 31 {
		group = 31
	}
	b.group = group
}

func inGroups(f Force, groups int) bool {
	return groups&(1<<uint(f.ForceGroup())) != 0
}

func declaresKernel(impl ForceImpl, platform string) bool {
	for _, name := range impl.KernelNames() {
		if name == platform {
			return true
		}
	}
	return false
}
