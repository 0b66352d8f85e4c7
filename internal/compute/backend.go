package compute

import (
	"fmt"
	"sort"

	"github.com/san-kum/mdsim/internal/engine"
)

const (
	ReferenceName = "reference"
	CPUName       = "cpu"
)

var platforms = map[string]func() engine.Platform{
	ReferenceName: func() engine.Platform { return NewReference() },
	CPUName:       func() engine.Platform { return NewCPU() },
}

// Lookup returns a fresh platform by name.
func Lookup(name string) (engine.Platform, error) {
	fn, ok := platforms[name]
	if !ok {
		return nil, fmt.Errorf("unknown platform: %s (available: %v)", name, Names())
	}
	return fn(), nil
}

func Names() []string {
	names := make([]string, 0, len(platforms))
	for name := range platforms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
