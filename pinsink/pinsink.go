// Package pinsink is the hardware abstraction boundary between the
// generator core and physical pins, grounded on the teacher's
// GPIODriver (core/gpio_hal.go) and StepperBackend (core/stepper_hal.go)
// interfaces. Polarity inversion is baked in at construction time
// (pull-up configuration is left to the concrete GPIO backend) so
// core/stepper code never branches on
// "invert_x_step" the way stepper.cpp's macros do - it just calls
// Set(true) for "active" and the sink decides what that means
// electrically.
package pinsink

// StepSink drives one axis's STEP pin. Pulse is called once per
// Bresenham inner-loop iteration that decided to step; it must return
// quickly since it runs inside the timer callback.
type StepSink interface {
	Pulse()
}

// DirSink drives one axis's DIR pin. Set(true) means "positive
// direction" in the generator's own coordinate convention - the sink
// is responsible for translating that to whatever electrical level
// the wiring requires.
type DirSink interface {
	Set(positive bool)
}

// EnableSink drives one axis's stepper driver ENABLE pin.
type EnableSink interface {
	SetEnabled(enabled bool)
}

// EndstopSink samples one endstop/limit switch. Triggered reports the
// sink's own notion of "triggered" - inversion is resolved inside the
// sink, same as StepSink/DirSink.
type EndstopSink interface {
	Triggered() bool
}

// GPIO is the minimal pin-level interface a concrete backend must
// provide; pinsink wraps it to produce the Step/Dir/Enable/Endstop
// sinks with inversion already applied.
type GPIO interface {
	Set(high bool)
	Get() bool
}

// invertingStep drives its pin to the active level and straight back
// to the inactive level in one Pulse call; no delay is inserted
// between the two writes, so the pulse width is whatever the backend's
// two consecutive Set calls take.
type invertingStep struct {
	pin    GPIO
	invert bool
}

// NewStepSink wraps a raw pin as a STEP output, baking in polarity.
func NewStepSink(pin GPIO, invert bool) StepSink {
	return &invertingStep{pin: pin, invert: invert}
}

func (s *invertingStep) Pulse() {
	high := !s.invert
	s.pin.Set(high)
	s.pin.Set(!high)
}

type invertingDir struct {
	pin    GPIO
	invert bool
}

// NewDirSink wraps a raw pin as a DIR output, baking in polarity.
func NewDirSink(pin GPIO, invert bool) DirSink {
	return &invertingDir{pin: pin, invert: invert}
}

func (d *invertingDir) Set(positive bool) {
	level := positive
	if d.invert {
		level = !level
	}
	d.pin.Set(level)
}

type invertingEnable struct {
	pin    GPIO
	invert bool
}

// NewEnableSink wraps a raw pin as an ENABLE output, baking in polarity.
func NewEnableSink(pin GPIO, invert bool) EnableSink {
	return &invertingEnable{pin: pin, invert: invert}
}

func (e *invertingEnable) SetEnabled(enabled bool) {
	level := enabled
	if e.invert {
		level = !level
	}
	e.pin.Set(level)
}

type invertingEndstop struct {
	pin    GPIO
	invert bool
}

// NewEndstopSink wraps a raw pin as an endstop input, baking in
// polarity; pull-up configuration is the concrete GPIO backend's
// concern at construction time, not this wrapper's.
func NewEndstopSink(pin GPIO, invert bool) EndstopSink {
	return &invertingEndstop{pin: pin, invert: invert}
}

func (e *invertingEndstop) Triggered() bool {
	level := e.pin.Get()
	if e.invert {
		return !level
	}
	return level
}
