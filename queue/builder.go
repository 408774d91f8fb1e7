package queue

import (
	"errors"
	"math"

	"stepcore/sched"
)

// Position is a millimeter-space machine position, mirroring
// standalone.Position.
type Position struct {
	X, Y, Z, E float64
}

// Move is a single requested linear segment in millimeter space,
// mirroring standalone.Move's fields that calculateTrapezoid reads.
type Move struct {
	Start, End     Position
	Velocity       float64 // requested cruise speed, mm/s
	Accel          float64 // mm/s^2
	ActiveExtruder int
}

// AxisLimits caps a single axis's speed and acceleration and gives its
// steps-per-millimeter scale, mirroring standalone.AxisConfig's
// motion-relevant fields.
type AxisLimits struct {
	StepsPerMM  float64
	MaxVelocity float64
	MaxAccel    float64
}

// Builder turns a millimeter-space Move into a Block by computing a
// single, un-blended trapezoid - the direct generalization of
// planner.go's calculateTrapezoid, deliberately stopping short of a
// real look-ahead planner that would blend consecutive moves'
// junction velocities.
type Builder struct {
	Axes map[string]AxisLimits
}

// ErrZeroLengthMove is returned for a move with no distance in any axis.
var ErrZeroLengthMove = errors.New("queue: move has zero length")

// Build computes a Block's step counts and trapezoid profile for move.
func (b *Builder) Build(move Move) (Block, error) {
	dx := move.End.X - move.Start.X
	dy := move.End.Y - move.Start.Y
	dz := move.End.Z - move.Start.Z
	de := move.End.E - move.Start.E

	distance := math.Sqrt(dx*dx + dy*dy + dz*dz)
	if distance == 0 {
		distance = math.Abs(de)
	}
	if distance == 0 {
		return Block{}, ErrZeroLengthMove
	}

	stepsX := b.axisSteps("x", dx)
	stepsY := b.axisSteps("y", dy)
	stepsZ := b.axisSteps("z", dz)
	stepsE := b.axisSteps("e", de)

	stepEventCount := maxU32(stepsX, stepsY, stepsZ, stepsE)
	if stepEventCount == 0 {
		return Block{}, ErrZeroLengthMove
	}

	var dirBits uint8
	if dx < 0 {
		dirBits |= DirBitX
	}
	if dy < 0 {
		dirBits |= DirBitY
	}
	if dz < 0 {
		dirBits |= DirBitZ
	}
	if de < 0 {
		dirBits |= DirBitE
	}

	cruiseVel := b.clampVelocity(move.Velocity, dx, dy, dz, distance)

	// ratio converts an mm/s (or mm/s^2) quantity along the move's
	// direction into steps/s (or steps/s^2) of the dominant axis,
	// exactly the scale Marlin's block_t rates are expressed in.
	ratio := float64(stepEventCount) / distance

	accelDist := (cruiseVel * cruiseVel) / (2.0 * move.Accel)

	var accelerateUntil, decelerateAfter uint32
	var nominalRate float64
	if 2.0*accelDist >= distance {
		// Triangle profile: never reaches cruiseVel.
		accelDist = distance / 2.0
		nominalRate = math.Sqrt(move.Accel*accelDist) * ratio
		accelSteps := uint32(accelDist * ratio)
		accelerateUntil = accelSteps
		decelerateAfter = accelSteps
	} else {
		nominalRate = cruiseVel * ratio
		accelSteps := uint32(accelDist * ratio)
		accelerateUntil = accelSteps
		decelerateAfter = stepEventCount - accelSteps
	}

	accelerationStepsPerSec2 := move.Accel * ratio
	accelerationRate := uint32(accelerationStepsPerSec2 * (1 << 24) / float64(sched.TicksPerSecond))

	return Block{
		StepEventCount:   stepEventCount,
		StepsX:           stepsX,
		StepsY:           stepsY,
		StepsZ:           stepsZ,
		StepsE:           stepsE,
		DirectionBits:    dirBits,
		ActiveExtruder:   move.ActiveExtruder,
		InitialRate:      0,
		NominalRate:      uint32(nominalRate),
		FinalRate:        0,
		AccelerationRate: accelerationRate,
		AccelerateUntil:  accelerateUntil,
		DecelerateAfter:  decelerateAfter,
	}, nil
}

// clampVelocity reduces the requested cruise speed so that no single
// axis exceeds its own configured maximum, scaling all axes together
// to preserve the move's direction - calculateTrapezoid's per-axis
// velocity-limiting loop, generalized to a helper.
func (b *Builder) clampVelocity(requested, dx, dy, dz, distance float64) float64 {
	maxVel := requested
	clampAxis := func(name string, delta float64) {
		d := math.Abs(delta)
		if d == 0 {
			return
		}
		axis, ok := b.Axes[name]
		if !ok || axis.MaxVelocity == 0 {
			return
		}
		axisVel := maxVel * d / distance
		if axisVel > axis.MaxVelocity {
			maxVel = axis.MaxVelocity * distance / d
		}
	}
	clampAxis("x", dx)
	clampAxis("y", dy)
	clampAxis("z", dz)
	return maxVel
}

func (b *Builder) axisSteps(name string, deltaMM float64) uint32 {
	axis, ok := b.Axes[name]
	if !ok {
		return 0
	}
	steps := math.Abs(deltaMM) * axis.StepsPerMM
	return uint32(math.Round(steps))
}

func maxU32(vals ...uint32) uint32 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
