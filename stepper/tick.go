package stepper

import (
	"stepcore/diag"
	"stepcore/kinematics"
	"stepcore/queue"
	"stepcore/sched"
	"stepcore/trapezoid"
)

const waitForBlockDelay = 1000 // microseconds, matching the original's 1ms retry

// tick is the generator's single timer callback - the Go analogue of
// stepper_int_handler. It always returns Reschedule while running;
// the caller stops the generator via QuickStop rather than letting
// the timer go idle.
func (g *Generator) tick(tm *sched.Timer) sched.Disposition {
	if !g.running {
		return sched.Done
	}

	if g.current == nil {
		blk, ok := g.source.PeekCurrent()
		if !ok {
			tm.WakeTime = g.clock.Now() + waitForBlockDelay
			return sched.Reschedule
		}
		g.loadBlock(blk)
		if g.pendingLateEnable {
			g.pendingLateEnable = false
			tm.WakeTime = g.clock.Now() + waitForBlockDelay
			return sched.Reschedule
		}
	}

	g.sampleEndstops()
	g.stepLoop()

	phase := g.trapezoid.PhaseAt(g.stepEventsCompleted)

	// The phase-based timer is always recomputed first, exactly as
	// stepper_int_handler does before checking whether the block just
	// finished - a block that completes on its last decelerate tick
	// still re-arms with that tick's decelerate period. calc_timer
	// overwrites step_loops as a side effect of that recompute, and the
	// advance backlog folds in that freshly recomputed value, not the
	// one this tick's Bresenham loop just ran with.
	period := uint32(g.trapezoid.Advance(g.stepEventsCompleted, g.diag))

	if g.advance != nil {
		loops := g.trapezoid.CurrentStepLoops
		switch phase {
		case trapezoid.Accelerate:
			g.advance.onAccelerate(g.current.ActiveExtruder, loops)
		case trapezoid.Decelerate:
			g.advance.onDecelerate(g.current.ActiveExtruder, loops)
		}
	}

	if g.stepEventsCompleted >= g.current.StepEventCount {
		g.diag.Record(diag.Event{Kind: diag.EvtBlockDone, Value: g.stepEventsCompleted, Clock: g.clock.Now()})
		g.source.DiscardCurrent()
		g.current = nil
	}

	tm.WakeTime = g.clock.Now() + period
	return sched.Reschedule
}

// loadBlock acquires a new block, resets the trapezoid and Bresenham
// counters, and resolves direction pins once for the whole block -
// direction_bits never change within a block, so deciding them here
// instead of every tick is behavior-preserving and saves work on the
// hot path.
func (g *Generator) loadBlock(blk *queue.Block) {
	g.current = blk
	g.diag.Record(diag.Event{Kind: diag.EvtBlockLoad, Value: blk.StepEventCount, Clock: g.clock.Now()})

	g.trapezoid.Reset(profileOf(blk), g.diag)

	half := int32(blk.StepEventCount >> 1)
	g.counterX, g.counterY, g.counterZ, g.counterE = -half, -half, -half, -half
	g.stepEventsCompleted = 0

	g.resolveDirections(blk)

	if g.advance != nil {
		g.advance.beginBlock(blk.ActiveExtruder, blk.InitialAdvance, blk.FinalAdvance, blk.AdvanceRate)
	}

	if g.cfg.ZLateEnable && blk.StepsZ > 0 {
		g.pins.Z.Enable.SetEnabled(true)
		if g.pins.Z2 != nil {
			g.pins.Z2.Enable.SetEnabled(true)
		}
		g.pendingLateEnable = true
	}
}

func profileOf(blk *queue.Block) trapezoid.Profile {
	return trapezoid.Profile{
		InitialRate:      blk.InitialRate,
		NominalRate:      blk.NominalRate,
		FinalRate:        blk.FinalRate,
		AccelerationRate: blk.AccelerationRate,
		AccelerateUntil:  blk.AccelerateUntil,
		DecelerateAfter:  blk.DecelerateAfter,
	}
}

// resolveDirections decodes direction_bits into count_direction and
// drives every DIR pin, applying COREXY's belt remap and dual-X-
// carriage routing.
func (g *Generator) resolveDirections(blk *queue.Block) {
	logical := kinematics.DirectionBits{
		X: blk.DirectionBits&queue.DirBitX != 0,
		Y: blk.DirectionBits&queue.DirBitY != 0,
		Z: blk.DirectionBits&queue.DirBitZ != 0,
		E: blk.DirectionBits&queue.DirBitE != 0,
	}
	g.dir = logical
	motor := g.remap.MotorDirection(logical)

	c0, c1 := g.cfg.ExtruderRouting.Route(blk.ActiveExtruder)
	if c0 {
		g.pins.X.Dir.Set(!motor.X)
	}
	if c1 && g.pins.X2 != nil {
		g.pins.X2.Dir.Set(!motor.X)
	}
	g.pins.Y.Dir.Set(!motor.Y)
	g.pins.Z.Dir.Set(!motor.Z)
	if g.pins.Z2 != nil {
		_, secondary := g.cfg.ZDualStepperDrivers.Route()
		if secondary {
			g.pins.Z2.Dir.Set(!motor.Z)
		}
	}

	if logical.X {
		g.countDirection[0] = -1
	} else {
		g.countDirection[0] = 1
	}
	if logical.Y {
		g.countDirection[1] = -1
	} else {
		g.countDirection[1] = 1
	}
	if logical.Z {
		g.countDirection[2] = -1
	} else {
		g.countDirection[2] = 1
	}
	if g.advance == nil {
		if e := len(g.pins.E); e > 0 && blk.ActiveExtruder < e {
			g.pins.E[blk.ActiveExtruder].Dir.Set(!logical.E)
		}
		if logical.E {
			g.countDirection[3] = -1
		} else {
			g.countDirection[3] = 1
		}
	}
}

// sampleEndstops performs the two-sample debounce described in spec
// §4.4, run once per tick regardless of step_loops, exactly as
// stepper_int_handler samples each pin once per interrupt.
func (g *Generator) sampleEndstops() {
	blk := g.current
	if !g.checkEndstops {
		return
	}

	if blk.StepsX > 0 {
		var sink interface{ Triggered() bool }
		var old *bool
		if g.dir.X {
			sink, old = g.pins.X.EndstopMin, &g.oldXMin
		} else {
			sink, old = g.pins.X.EndstopMax, &g.oldXMax
		}
		if sink != nil && g.cfg.ExtruderRouting.XHomeGate(blk.ActiveExtruder, g.dir.X, g.cfg.XCarriageHomeDir) {
			now := sink.Triggered()
			if now && *old {
				g.endstopTrigSteps[0] = g.countPosition[0]
				g.endstopXHit = true
				g.diag.Record(diag.Event{Kind: diag.EvtEndstopLatch, Axis: 0, Clock: g.clock.Now()})
				g.stepEventsCompleted = blk.StepEventCount
			}
			*old = now
		}
	}

	if blk.StepsY > 0 {
		var sink interface{ Triggered() bool }
		var old *bool
		if g.dir.Y {
			sink, old = g.pins.Y.EndstopMin, &g.oldYMin
		} else {
			sink, old = g.pins.Y.EndstopMax, &g.oldYMax
		}
		if sink != nil {
			now := sink.Triggered()
			if now && *old {
				g.endstopTrigSteps[1] = g.countPosition[1]
				g.endstopYHit = true
				g.diag.Record(diag.Event{Kind: diag.EvtEndstopLatch, Axis: 1, Clock: g.clock.Now()})
				g.stepEventsCompleted = blk.StepEventCount
			}
			*old = now
		}
	}

	if blk.StepsZ > 0 {
		var sink interface{ Triggered() bool }
		var old *bool
		if g.dir.Z {
			sink, old = g.pins.Z.EndstopMin, &g.oldZMin
		} else {
			sink, old = g.pins.Z.EndstopMax, &g.oldZMax
		}
		if sink != nil {
			now := sink.Triggered()
			if now && *old {
				g.endstopTrigSteps[2] = g.countPosition[2]
				g.endstopZHit = true
				g.diag.Record(diag.Event{Kind: diag.EvtEndstopLatch, Axis: 2, Clock: g.clock.Now()})
				g.stepEventsCompleted = blk.StepEventCount
			}
			*old = now
		}
	}
}

// stepLoop runs CurrentStepLoops Bresenham passes, matching the
// "take multiple steps per interrupt" loop for high step rates.
func (g *Generator) stepLoop() {
	blk := g.current
	loops := g.trapezoid.CurrentStepLoops
	if loops == 0 {
		loops = 1
	}

	c0, c1 := g.cfg.ExtruderRouting.Route(blk.ActiveExtruder)

	for i := uint8(0); i < loops; i++ {
		if g.advance != nil {
			g.counterE += int32(blk.StepsE)
			if g.counterE > 0 {
				g.counterE -= int32(blk.StepEventCount)
				g.advance.addPendingStep(blk.ActiveExtruder, g.dir.E)
			}
		}

		g.counterX += int32(blk.StepsX)
		if g.counterX > 0 {
			if c0 {
				g.pins.X.Step.Pulse()
			}
			if c1 && g.pins.X2 != nil {
				g.pins.X2.Step.Pulse()
			}
			g.counterX -= int32(blk.StepEventCount)
			g.countPosition[0] += int32(g.countDirection[0])
		}

		g.counterY += int32(blk.StepsY)
		if g.counterY > 0 {
			g.pins.Y.Step.Pulse()
			g.counterY -= int32(blk.StepEventCount)
			g.countPosition[1] += int32(g.countDirection[1])
		}

		g.counterZ += int32(blk.StepsZ)
		if g.counterZ > 0 {
			g.pins.Z.Step.Pulse()
			if g.pins.Z2 != nil {
				if _, secondary := g.cfg.ZDualStepperDrivers.Route(); secondary {
					g.pins.Z2.Step.Pulse()
				}
			}
			g.counterZ -= int32(blk.StepEventCount)
			g.countPosition[2] += int32(g.countDirection[2])
		}

		if g.advance == nil {
			g.counterE += int32(blk.StepsE)
			if g.counterE > 0 {
				if e := len(g.pins.E); e > 0 && blk.ActiveExtruder < e {
					g.pins.E[blk.ActiveExtruder].Step.Pulse()
				}
				g.counterE -= int32(blk.StepEventCount)
				g.countPosition[3] += int32(g.countDirection[3])
			}
		}

		g.stepEventsCompleted++
		if g.stepEventsCompleted >= blk.StepEventCount {
			break
		}
	}
}
