// Package kinematics supplies the direction-bit remapping, extruder
// routing and endstop-gating strategies spec §6 lists as compile-time
// options in Marlin (COREXY, DUAL_X_CARRIAGE, Z_DUAL_STEPPER_DRIVERS)
// and that this generator instead selects at construction time,
// grounded on standalone/kinematics/kinematics.go's Kinematics
// interface and cartesian.go's Cartesian implementation.
package kinematics

// Kind selects how the X/Y motor direction and step counts in a Block
// map onto the physical A/B belt motors.
type Kind uint8

const (
	// Cartesian is the 1:1 mapping: motor X drives axis X, motor Y
	// drives axis Y.
	Cartesian Kind = iota

	// CoreXY relates the two belt motors A and B to the logical X/Y
	// axes by X = (A+B)/2, Y = (A-B)/2, following stepper.cpp's
	// COREXY branch of stepper_int_handler's direction-bit decode.
	CoreXY
)

// AxisMotors holds the four step/direction channels a Block's
// direction byte addresses, in the generator's fixed bit order.
type AxisMotors struct {
	X, Y, Z, E bool // true = step requested this loop
}

// Remap translates a block's logical axis step flags into the motor
// step flags that must actually be pulsed, and back again for
// direction-bit decode. Cartesian returns its argument unchanged;
// CoreXY applies the A/B belt transform.
type Remap struct {
	Kind Kind
}

// MotorSteps converts a logical per-axis step decision (from the
// Bresenham counters) into the physical motor step flags to pulse.
func (r Remap) MotorSteps(logical AxisMotors) AxisMotors {
	if r.Kind != CoreXY {
		return logical
	}
	// A fires whenever X or Y fires in the same rotational sense,
	// B whenever they differ - the COREXY belt coupling.
	return AxisMotors{
		X: logical.X || logical.Y, // motor A
		Y: logical.X || logical.Y, // motor B (direction resolved separately)
		Z: logical.Z,
		E: logical.E,
	}
}

// DirectionBits holds the direction per logical axis, true meaning
// "negative direction" exactly as a set bit in Block.DirectionBits
// (stepper.cpp's out_bits) does before any inversion is applied.
type DirectionBits struct {
	X, Y, Z, E bool
}

// MotorDirection remaps a logical XY direction pair into the A/B motor
// direction pair COREXY machines actually need energized, mirroring
// the out_bits XOR combination in stepper_int_handler.
func (r Remap) MotorDirection(logical DirectionBits) DirectionBits {
	if r.Kind != CoreXY {
		return logical
	}
	return DirectionBits{
		X: logical.X != logical.Y, // motor A direction
		Y: logical.X == logical.Y, // motor B direction
		Z: logical.Z,
		E: logical.E,
	}
}

// ExtruderRouting selects how the X stepper's STEP/DIR signals are
// routed when more than one extruder carriage shares (or doesn't
// share) the X axis, per spec §6's DUAL_X_CARRIAGE option.
type ExtruderRouting uint8

const (
	// SingleCarriage routes X STEP/DIR to the one and only X motor.
	SingleCarriage ExtruderRouting = iota

	// DualXCarriage routes X STEP/DIR to whichever carriage's motor
	// corresponds to the currently active extruder, leaving the
	// other carriage's motor untouched (independent dual carriages).
	DualXCarriage

	// DualDuplication pulses both carriages' X motors together from
	// a single logical X step stream (mirrored duplication mode).
	DualDuplication
)

// Route reports which physical X motors (indexed 0 and 1) should
// receive the logical X step/dir pulse this loop.
func (r ExtruderRouting) Route(activeExtruder int) (carriage0, carriage1 bool) {
	switch r {
	case DualXCarriage:
		if activeExtruder == 0 {
			return true, false
		}
		return false, true
	case DualDuplication:
		return true, true
	default:
		return true, false
	}
}

// Carriage reports which physical carriage index (0 or 1) activeExtruder
// is assigned to: extruder 0 maps to carriage 0 and every other
// extruder to carriage 1. The routing mode itself is not consulted.
func (r ExtruderRouting) Carriage(activeExtruder int) int {
	if activeExtruder == 0 {
		return 0
	}
	return 1
}

// XHomeGate reports whether the X endstop pin in the direction
// towardMin should be sampled this tick. Outside dual-X-carriage
// routing every configured pin is always sampled; under
// DUAL_X_CARRIAGE only the active carriage's own configured homing
// direction has a physical switch wired to it, so the other polarity
// must never be read - "endstops on X are consulted only in the
// homing direction configured for the active carriage".
func (r ExtruderRouting) XHomeGate(activeExtruder int, towardMin bool, homeDir [2]int8) bool {
	switch r {
	case DualXCarriage, DualDuplication:
		dir := homeDir[r.Carriage(activeExtruder)]
		if towardMin {
			return dir < 0
		}
		return dir > 0
	default:
		return true
	}
}

// ZDualStepperDrivers mirrors the single logical Z step/dir stream
// onto a second physical Z motor when the machine has twin Z lead
// screws (spec §6's Z_DUAL_STEPPER_DRIVERS).
type ZDualStepperDrivers bool

// Route reports whether the secondary Z motor should be pulsed
// alongside the primary one.
func (z ZDualStepperDrivers) Route() (primary, secondary bool) {
	return true, bool(z)
}
