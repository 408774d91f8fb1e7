package stepper

import (
	"stepcore/sched"
)

// advanceTimerPeriod is the compensator's own wakeup period: ~10kHz,
// matching TIMER0_COMPA_vect's old_OCR0A+=52 cadence (250000/26 ≈
// 9615Hz) independent of the main Bresenham timer.
const advanceTimerPeriod = 104 // microseconds, ~9615Hz

// AdvanceState is the pressure-advance extruder compensator of spec
// §4.5: a small per-extruder signed backlog of pending E steps, drained
// by its own timer so a burst of advance compensation never perturbs
// the main axis timing.
type AdvanceState struct {
	clock *sched.Queue
	timer sched.Timer
	e     []AxisPins

	pending []int32 // e_steps[extruder]

	advance      int32 // current advance value, <<8 fixed point
	oldAdvance   int32
	finalAdvance int32
	advanceRate  int32
}

func newAdvanceState(clock *sched.Queue, e []AxisPins) *AdvanceState {
	a := &AdvanceState{
		clock:   clock,
		e:       e,
		pending: make([]int32, len(e)),
	}
	a.timer.Handler = a.drain
	clock.Attach(&a.timer, advanceTimerPeriod)
	return a
}

// beginBlock seeds the advance accumulator from a newly loaded block's
// initial/final advance and per-step rate, folding the jump from the
// previous block's resting advance into the pending backlog exactly
// as trapezoid_generator_reset's ADVANCE branch does.
func (a *AdvanceState) beginBlock(extruder int, initialAdvance, finalAdvance, rate uint32) {
	a.advance = int32(initialAdvance)
	a.finalAdvance = int32(finalAdvance)
	a.advanceRate = int32(rate)
	a.foldAdvance(extruder)
}

// onAccelerate folds loops worth of +advance_rate into the backlog,
// called once per main-loop tick while the block is accelerating.
func (a *AdvanceState) onAccelerate(extruder int, loops uint8) {
	for i := uint8(0); i < loops; i++ {
		a.advance += a.advanceRate
	}
	a.foldAdvance(extruder)
}

// onDecelerate folds loops worth of -advance_rate into the backlog,
// clamped at final_advance - note the original only clamps on the
// decelerate side, never during acceleration; that asymmetry is
// preserved here deliberately.
func (a *AdvanceState) onDecelerate(extruder int, loops uint8) {
	for i := uint8(0); i < loops; i++ {
		a.advance -= a.advanceRate
	}
	if a.advance < a.finalAdvance {
		a.advance = a.finalAdvance
	}
	a.foldAdvance(extruder)
}

func (a *AdvanceState) foldAdvance(extruder int) {
	if extruder < 0 || extruder >= len(a.pending) {
		return
	}
	a.pending[extruder] += (a.advance >> 8) - a.oldAdvance
	a.oldAdvance = a.advance >> 8
}

// addPendingStep records one Bresenham E event's worth of backlog,
// called from the main tick's stepLoop instead of pulsing the E motor
// directly - the whole point of pressure advance is decoupling E
// stepping from the main axis timing.
func (a *AdvanceState) addPendingStep(extruder int, negativeDir bool) {
	if extruder < 0 || extruder >= len(a.pending) {
		return
	}
	if negativeDir {
		a.pending[extruder]--
	} else {
		a.pending[extruder]++
	}
}

// drain is the compensator's own timer callback: pulse each extruder
// at most one step toward zero backlog per firing, mirroring
// TIMER0_COMPA_vect's per-extruder if/else-if ladder.
func (a *AdvanceState) drain(tm *sched.Timer) sched.Disposition {
	for i, pending := range a.pending {
		if pending == 0 || i >= len(a.e) {
			continue
		}
		if pending < 0 {
			a.e[i].Dir.Set(false)
			a.pending[i]++
		} else {
			a.e[i].Dir.Set(true)
			a.pending[i]--
		}
		a.e[i].Step.Pulse()
	}
	tm.WakeTime = a.clock.Now() + advanceTimerPeriod
	return sched.Reschedule
}
