// Package config loads the generator's machine configuration: the
// spec §6 table of compile-time options (kinematics, extruder
// routing, dual Z, pressure advance, pin polarity) turned into a
// JSON-loadable runtime struct, following the load-then-apply-
// defaults pattern of standalone/config/config.go.
package config

import (
	"encoding/json"
	"fmt"

	"stepcore/kinematics"
)

// PinConfig describes one physical pin's wiring: which logical signal
// it carries and whether its active level is inverted.
type PinConfig struct {
	Name   string `json:"name"`
	Invert bool   `json:"invert"`
	PullUp bool   `json:"pull_up"`
}

// AxisConfig is the per-axis pin and limit wiring for one of X/Y/Z/E0..Em.
type AxisConfig struct {
	Step    PinConfig `json:"step"`
	Dir     PinConfig `json:"dir"`
	Enable  PinConfig `json:"enable"`
	Endstop PinConfig `json:"endstop"`
}

// MachineConfig is the complete set of options spec §6 enumerates as
// compile-time flags in the original, reified here as data so one
// generator binary can serve more than one machine shape.
type MachineConfig struct {
	Kinematics      kinematics.Kind                `json:"kinematics"`
	ExtruderRouting kinematics.ExtruderRouting      `json:"extruder_routing"`
	ZDualStepperDrivers bool                       `json:"z_dual_stepper_drivers"`
	ZLateEnable     bool                           `json:"z_late_enable"`
	Advance         bool                           `json:"advance"`
	AbortOnEndstopHit bool                         `json:"abort_on_endstop_hit"`

	MaxStepFrequency uint32 `json:"max_step_frequency"`

	// XCarriageHomeDir is the configured homing direction (-1 or +1)
	// for carriage 0 and carriage 1, read only when ExtruderRouting is
	// DualXCarriage or DualDuplication.
	XCarriageHomeDir [2]int8 `json:"x_carriage_home_dir"`

	Axes map[string]AxisConfig `json:"axes"`
}

// Default returns a single-X-carriage Cartesian configuration with no
// pins inverted, matching the generator's conservative defaults.
func Default() *MachineConfig {
	return &MachineConfig{
		Kinematics:       kinematics.Cartesian,
		ExtruderRouting:  kinematics.SingleCarriage,
		MaxStepFrequency: 40000,
		Axes: map[string]AxisConfig{
			"x": {Step: PinConfig{Name: "step_x"}, Dir: PinConfig{Name: "dir_x"}, Enable: PinConfig{Name: "enable_x"}, Endstop: PinConfig{Name: "min_x"}},
			"y": {Step: PinConfig{Name: "step_y"}, Dir: PinConfig{Name: "dir_y"}, Enable: PinConfig{Name: "enable_y"}, Endstop: PinConfig{Name: "min_y"}},
			"z": {Step: PinConfig{Name: "step_z"}, Dir: PinConfig{Name: "dir_z"}, Enable: PinConfig{Name: "enable_z"}, Endstop: PinConfig{Name: "min_z"}},
			"e": {Step: PinConfig{Name: "step_e"}, Dir: PinConfig{Name: "dir_e"}, Enable: PinConfig{Name: "enable_e"}},
		},
	}
}

// Load parses a JSON configuration document and fills in defaults for
// anything the document omits, mirroring config.LoadConfig's
// parse-then-applyDefaults shape.
func Load(data []byte) (*MachineConfig, error) {
	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *MachineConfig) {
	if cfg.MaxStepFrequency == 0 {
		cfg.MaxStepFrequency = 40000
	}
	if cfg.Axes == nil {
		cfg.Axes = Default().Axes
	}
	dualX := cfg.ExtruderRouting == kinematics.DualXCarriage || cfg.ExtruderRouting == kinematics.DualDuplication
	if dualX && cfg.XCarriageHomeDir == ([2]int8{}) {
		cfg.XCarriageHomeDir = [2]int8{-1, 1}
	}
}

// Validate checks the configuration is internally consistent enough
// to build a generator from: the axes a chosen Kind/Routing needs are
// actually present.
func (c *MachineConfig) Validate() error {
	required := []string{"x", "y", "z", "e"}
	for _, name := range required {
		if _, ok := c.Axes[name]; !ok {
			return fmt.Errorf("config: axis %q not configured", name)
		}
	}
	if c.MaxStepFrequency == 0 {
		return fmt.Errorf("config: max_step_frequency must be nonzero")
	}
	return nil
}
