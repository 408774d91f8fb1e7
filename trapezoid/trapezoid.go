// Package trapezoid reconstructs the trapezoidal velocity profile of
// spec §4.3 from a block's accel/cruise/decel parameters, advancing
// one step-rate sample per interrupt. It is the direct generalization
// of stepper.cpp's trapezoid_generator_reset plus the phase-select
// block at the tail of stepper_int_handler.
package trapezoid

import (
	"stepcore/diag"
	"stepcore/speedtable"
)

// Phase names the three segments of the trapezoid.
type Phase uint8

const (
	Accelerate Phase = iota
	Cruise
	Decelerate
)

// Profile is the immutable-while-busy per-block shape of the
// trapezoid, taken straight from the block (spec §3).
type Profile struct {
	InitialRate      uint32 // steps/s
	NominalRate      uint32 // steps/s
	FinalRate        uint32 // steps/s
	AccelerationRate uint32 // scaled: rate_delta = (AccelerationRate*elapsed)>>24
	AccelerateUntil  uint32 // step-event index
	DecelerateAfter  uint32 // step-event index
}

// State is the mutable per-block trapezoid tracker (spec §3's
// acc_step_rate/acceleration_time/deceleration_time/step_loops*).
type State struct {
	profile Profile
	table   *speedtable.Table

	AccStepRate      uint32
	AccelerationTime uint32 // elapsed ticks within the accelerate phase
	DecelerationTime uint32 // elapsed ticks within the decelerate phase

	NominalPeriod     uint16 // OCR1A_nominal
	NominalStepLoops  uint8  // step_loops_nominal
	CurrentStepLoops  uint8
	InitialPeriodUs   uint16 // first period to arm the timer with after Reset
}

// NewState builds a State bound to a shared speed lookup table. The
// table is shared across blocks/axes since it depends only on the
// configured MaxStepFrequency, not on any one block.
func NewState(table *speedtable.Table) *State {
	return &State{table: table}
}

// Reset seeds the trapezoid for a newly acquired block, exactly
// mirroring trapezoid_generator_reset: cache the nominal-phase period
// and step_loops, then compute the first acceleration-phase period so
// the caller can arm its timer with it.
func (s *State) Reset(p Profile, diagSink *diag.Sink) {
	s.profile = p
	s.DecelerationTime = 0

	s.NominalPeriod, s.NominalStepLoops = s.table.CalcTimer(p.NominalRate, diagSink)
	s.AccStepRate = p.InitialRate
	s.InitialPeriodUs, s.CurrentStepLoops = s.table.CalcTimer(s.AccStepRate, diagSink)
	s.AccelerationTime = uint32(s.InitialPeriodUs)
}

// PhaseAt reports which phase a given step_events_completed value
// falls in for this block's profile.
func (s *State) PhaseAt(stepEventsCompleted uint32) Phase {
	switch {
	case stepEventsCompleted <= s.profile.AccelerateUntil:
		return Accelerate
	case stepEventsCompleted > s.profile.DecelerateAfter:
		return Decelerate
	default:
		return Cruise
	}
}

// Advance recomputes the timer period for the phase stepEventsCompleted
// falls into, after a Bresenham inner-loop pass has just run. It
// returns the next period (in sched ticks) the caller should re-arm
// its timer with, and updates CurrentStepLoops as the cruise phase
// requires (spec §4.3's "restore step_loops = step_loops_nominal").
func (s *State) Advance(stepEventsCompleted uint32, diagSink *diag.Sink) (periodTicks uint16) {
	switch s.PhaseAt(stepEventsCompleted) {
	case Accelerate:
		// Recomputed fresh from the cumulative elapsed time each tick,
		// not incremented from the previous acc_step_rate - matching
		// trapezoid_generator_reset's acceleration ramp exactly.
		delta := mulHigh24x24(s.profile.AccelerationRate, s.AccelerationTime)
		rate := s.profile.InitialRate + delta
		if rate > s.profile.NominalRate {
			rate = s.profile.NominalRate
		}
		s.AccStepRate = rate

		period, loops := s.table.CalcTimer(rate, diagSink)
		s.CurrentStepLoops = loops
		s.AccelerationTime += uint32(period)
		return period

	case Decelerate:
		// Decelerates from the frozen acc_step_rate value left behind
		// at the end of the acceleration phase (or cruise, which never
		// touches it).
		delta := mulHigh24x24(s.profile.AccelerationRate, s.DecelerationTime)
		var rate uint32
		if delta > s.AccStepRate {
			rate = s.profile.FinalRate
		} else {
			rate = s.AccStepRate - delta
		}
		if rate < s.profile.FinalRate {
			rate = s.profile.FinalRate
		}

		period, loops := s.table.CalcTimer(rate, diagSink)
		s.CurrentStepLoops = loops
		s.DecelerationTime += uint32(period)
		return period

	default: // Cruise
		s.CurrentStepLoops = s.NominalStepLoops
		return s.NominalPeriod
	}
}

// mulHigh24x24 returns (a*b)>>24 using 64-bit intermediate math,
// matching the original's MultiU24X24toH16 macro - named here since Go
// has no macro facility to inline it at the call site.
func mulHigh24x24(a, b uint32) uint32 {
	return uint32((uint64(a) * uint64(b)) >> 24)
}
