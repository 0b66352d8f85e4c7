package config

import "sort"

var Presets = map[string]map[string]*Config{
	"droplet": {
		"default": {
			Scenario: "droplet", Integrator: "langevin", Platform: "reference",
			Temperature: 300, Friction: 50, Dt: 0.1,
			Particles: 100, Spread: 10, Mass: 1000, FrameSteps: 10000, Frames: 100,
		},
		"small": {
			Scenario: "droplet", Integrator: "langevin", Platform: "reference",
			Temperature: 300, Friction: 50, Dt: 0.1,
			Particles: 20, Spread: 3, Mass: 1000, FrameSteps: 1000, Frames: 50,
		},
		"hot": {
			Scenario: "droplet", Integrator: "langevin", Platform: "reference",
			Temperature: 600, Friction: 50, Dt: 0.05,
			Particles: 100, Spread: 10, Mass: 1000, FrameSteps: 10000, Frames: 100,
		},
		"charged": {
			Scenario: "droplet", Integrator: "langevin", Platform: "reference",
			Temperature: 300, Friction: 50, Dt: 0.05,
			Particles: 50, Spread: 5, Mass: 1000, Charge: 0.2, FrameSteps: 2000, Frames: 100,
		},
	},
	"harmonic": {
		"default": {
			Scenario: "harmonic", Integrator: "langevin", Platform: "reference",
			Temperature: 300, Friction: 50, Dt: 0.1,
			Particles: 100, Spread: 10, Mass: 1000, FrameSteps: 1000, Frames: 100,
		},
		"underdamped": {
			Scenario: "harmonic", Integrator: "langevin", Platform: "reference",
			Temperature: 300, Friction: 0.5, Dt: 0.1,
			Particles: 50, Spread: 2, Mass: 1000, FrameSteps: 500, Frames: 200,
		},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(scenario, preset string) *Config {
	scenarioPresets, ok := Presets[scenario]
	if !ok {
		return nil
	}
	cfg, ok := scenarioPresets[preset]
	if !ok {
		return nil
	}
	return cfg.clone()
}

func ListPresets(scenario string) []string {
	scenarioPresets, ok := Presets[scenario]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(scenarioPresets))
	for name := range scenarioPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
