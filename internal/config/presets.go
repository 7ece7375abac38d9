package config

import "sort"

func preset(scenario string, edit func(*Config)) *Config {
	c := DefaultConfig()
	c.Scenario = scenario
	if edit != nil {
		edit(c)
	}
	return c
}

var Presets = map[string]map[string]*Config{
	"deposit": {
		"default": preset("deposit", nil),
		"stiff": preset("deposit", func(c *Config) {
			c.Slot.Stiffness, c.Slot.Damping = 2000, 90
		}),
		"short_grace": preset("deposit", func(c *Config) {
			c.Slot.GracePeriod = 0.1
		}),
	},
	"spring_deposit": {
		"default": preset("spring_deposit", nil),
		"loose": preset("spring_deposit", func(c *Config) {
			c.Slot.Spring.Strength, c.Slot.Spring.DampRatio = 4, 0.3
		}),
		"fragile": preset("spring_deposit", func(c *Config) {
			c.Slot.Spring.BreakDistance = 0.2
			c.Slot.GracePeriod = 0.25
		}),
	},
	"grab": {
		"default": preset("grab", nil),
		"weak": preset("grab", func(c *Config) {
			c.Grab.MaxTorque = 5
		}),
		"zero_g": preset("grab", func(c *Config) {
			c.Gravity = [3]float64{}
		}),
	},
	"muscle": {
		"default": preset("muscle", nil),
		"stiff": preset("muscle", func(c *Config) {
			c.Muscle.Strength = 60
		}),
		"bouncy": preset("muscle", func(c *Config) {
			c.Muscle.DampRatio = 0.2
		}),
	},
	"breakable": {
		"default": preset("breakable", nil),
		"strong": preset("breakable", func(c *Config) {
			c.Breakable.ImpulseThreshold = 50
		}),
		"brittle": preset("breakable", func(c *Config) {
			c.Breakable.ImpulseThreshold = 0.05
			c.Breakable.GracePeriod = 0
		}),
	},
	"attach": {
		"default": preset("attach", nil),
		"lazy": preset("attach", func(c *Config) {
			c.Attach.Strength, c.Attach.DampRatio = 2, 1
		}),
	},
	"interp": {
		"default": preset("interp", nil),
		"slow": preset("interp", func(c *Config) {
			c.Duration = 20
		}),
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(scenario, name string) *Config {
	scenarioPresets, ok := Presets[scenario]
	if !ok {
		return nil
	}
	cfg, ok := scenarioPresets[name]
	if !ok {
		return nil
	}
	c := *cfg
	return &c
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
