// Package stepper implements the Bresenham multi-axis pulse generator
// of spec §4.4: a single re-entrant-free timer callback that traces a
// queued Block's straight line in step space while riding its
// trapezoid profile, grounded on stepper_int_handler in
// original_source/marlin/stepper.cpp and restructured around the
// teacher's core/stepper.go Timer-driven design.
package stepper

import (
	"stepcore/diag"
	"stepcore/kinematics"
	"stepcore/pinsink"
	"stepcore/queue"
	"stepcore/sched"
	"stepcore/speedtable"
	"stepcore/trapezoid"
)

// AxisPins bundles one physical motor's step/dir/enable outputs and
// its optional min/max endstop inputs. A nil EndstopMin/EndstopMax
// means that limit isn't wired on this axis.
type AxisPins struct {
	Step       pinsink.StepSink
	Dir        pinsink.DirSink
	Enable     pinsink.EnableSink
	EndstopMin pinsink.EndstopSink
	EndstopMax pinsink.EndstopSink
}

// Pins is the complete set of physical channels the generator drives,
// sized for the richest configuration spec §6 allows (dual X
// carriage, dual Z, multiple extruders) with every optional channel
// nilable.
type Pins struct {
	X  AxisPins
	X2 *AxisPins // second X carriage, nil unless DualXCarriage/DualDuplication
	Y  AxisPins
	Z  AxisPins
	Z2 *AxisPins // mirrored Z motor, nil unless ZDualStepperDrivers
	E  []AxisPins // indexed by extruder number
}

// Config collects the per-machine options spec §6 lists as compile-time
// flags in the original, selected here at construction time instead.
type Config struct {
	Kinematics          kinematics.Kind
	ExtruderRouting      kinematics.ExtruderRouting
	ZDualStepperDrivers kinematics.ZDualStepperDrivers
	ZLateEnable         bool
	AbortOnEndstopHit   bool
	MaxStepFrequency    uint32

	// XCarriageHomeDir holds the configured homing direction (-1 or
	// +1) for carriage 0 and carriage 1 under DUAL_X_CARRIAGE routing;
	// unused otherwise.
	XCarriageHomeDir [2]int8
}

// Generator is the stepper pulse generator: one timer-driven state
// machine tracing at most one Block at a time, pulled from a
// queue.BlockSource.
type Generator struct {
	cfg    Config
	source queue.BlockSource
	clock  *sched.Queue
	timer  sched.Timer
	diag   *diag.Sink

	speedTable *speedtable.Table
	trapezoid  *trapezoid.State
	remap      kinematics.Remap

	pins Pins

	current *queue.Block
	running bool

	pendingLateEnable bool

	counterX, counterY, counterZ, counterE int32
	stepEventsCompleted                    uint32

	// countPosition/countDirection index by axis: 0=X 1=Y 2=Z 3=E.
	countPosition  [4]int32
	countDirection [4]int8

	dir kinematics.DirectionBits

	checkEndstops bool
	oldXMin, oldXMax bool
	oldYMin, oldYMax bool
	oldZMin, oldZMax bool

	endstopXHit, endstopYHit, endstopZHit bool
	endstopTrigSteps                      [3]int32

	advance *AdvanceState
}

// New builds a Generator. clock is the shared tick source the caller
// also drives with its own hardware timer ISR (or, on a host, a
// software clock); diagSink may be nil to disable diagnostics.
func New(cfg Config, source queue.BlockSource, clock *sched.Queue, pins Pins, diagSink *diag.Sink) *Generator {
	if diagSink == nil {
		diagSink = diag.NewSink()
	}
	table := speedtable.New(cfg.MaxStepFrequency)
	g := &Generator{
		cfg:           cfg,
		source:        source,
		clock:         clock,
		diag:          diagSink,
		speedTable:    table,
		trapezoid:     trapezoid.NewState(table),
		remap:         kinematics.Remap{Kind: cfg.Kinematics},
		pins:          pins,
		checkEndstops: true,
		countDirection: [4]int8{1, 1, 1, 1},
	}
	g.timer.Handler = g.tick
	return g
}

// EnableAdvance installs a pressure-advance compensator, draining e
// into its own ~10kHz timer independent of the main Bresenham loop
// (spec §4.5).
func (g *Generator) EnableAdvance(clock *sched.Queue) {
	g.advance = newAdvanceState(clock, g.pins.E)
}

// Init arms the generator's timer the way st_init brings the board up:
// every driver enable pin is driven inactive, endstop checking is
// switched on, and a first 2ms wakeup is scheduled. STEP pins are not
// written here and endstop pull-ups are not configured here; each pin
// keeps whatever level its backend starts at.
func (g *Generator) Init() {
	for i := range g.pins.E {
		g.pins.E[i].Enable.SetEnabled(false)
	}
	g.pins.X.Enable.SetEnabled(false)
	if g.pins.X2 != nil {
		g.pins.X2.Enable.SetEnabled(false)
	}
	g.pins.Y.Enable.SetEnabled(false)
	g.pins.Z.Enable.SetEnabled(false)
	if g.pins.Z2 != nil {
		g.pins.Z2.Enable.SetEnabled(false)
	}
	g.checkEndstops = true
	g.running = true
	g.clock.Attach(&g.timer, sched.FromMicros(2000))
}

// WakeUp re-enables the timer interrupt (st_wake_up), used after a
// pause to resume dispatch without reinitializing state.
func (g *Generator) WakeUp() {
	g.running = true
	g.clock.AttachAt(&g.timer, g.clock.Now())
}

// Synchronize blocks (from the caller's perspective; here it reports
// readiness instead of spinning, since a Go caller can simply poll or
// select) until the queue is fully drained - the non-blocking
// counterpart to st_synchronize's busy loop.
func (g *Generator) Synchronize() bool {
	return g.source.Queued() == 0 && g.current == nil
}

// SetPosition overwrites the generator's internal step counters,
// guarded the way st_set_position masks the interrupt around the
// four-word write.
func (g *Generator) SetPosition(x, y, z, e int32) {
	release := g.clock.Guard()
	defer release()
	g.countPosition = [4]int32{x, y, z, e}
}

// SetExtruderPosition overwrites only the E counter (st_set_e_position).
func (g *Generator) SetExtruderPosition(e int32) {
	release := g.clock.Guard()
	defer release()
	g.countPosition[3] = e
}

// GetPosition reads one axis's step counter (st_get_position). axis is
// 0=X 1=Y 2=Z 3=E.
func (g *Generator) GetPosition(axis int) int32 {
	release := g.clock.Guard()
	defer release()
	return g.countPosition[axis]
}

// FinishAndDisableSteppers disables every enable pin, the second half
// of finishAndDisableSteppers. It does not wait for the queue to drain
// and does not check Synchronize(); pins are disabled even while a
// block is still being traced.
func (g *Generator) FinishAndDisableSteppers() {
	g.pins.X.Enable.SetEnabled(false)
	if g.pins.X2 != nil {
		g.pins.X2.Enable.SetEnabled(false)
	}
	g.pins.Y.Enable.SetEnabled(false)
	g.pins.Z.Enable.SetEnabled(false)
	if g.pins.Z2 != nil {
		g.pins.Z2.Enable.SetEnabled(false)
	}
	for i := range g.pins.E {
		g.pins.E[i].Enable.SetEnabled(false)
	}
}

// QuickStop discards every queued block immediately, disabling
// dispatch for the duration exactly as quickStop disables the
// interrupt around the drain loop.
func (g *Generator) QuickStop() {
	g.running = false
	for g.source.Queued() > 0 {
		g.source.DiscardCurrent()
	}
	g.current = nil
	g.diag.Record(diag.Event{Kind: diag.EvtQuickStop, Clock: g.clock.Now()})
	g.running = true
}

// EnableEndstops toggles whether endstop sampling can terminate a
// block early (enable_endstops).
func (g *Generator) EnableEndstops(check bool) {
	g.checkEndstops = check
}

// EndstopHit reports one axis's latched hit state and the step count
// at which it was latched, in the fixed order X,Y,Z.
type EndstopHit struct {
	X, Y, Z         bool
	XSteps, YSteps, ZSteps int32
}

// CheckHitEndstops returns which endstops have latched since the last
// call and clears the latch, mirroring checkHitEndstops plus
// endstops_hit_on_purpose. If AbortOnEndstopHit is configured, a hit
// also triggers QuickStop before returning, matching the original's
// abort_on_endstop_hit branch.
func (g *Generator) CheckHitEndstops() (hit EndstopHit, any bool) {
	any = g.endstopXHit || g.endstopYHit || g.endstopZHit
	hit = EndstopHit{
		X: g.endstopXHit, Y: g.endstopYHit, Z: g.endstopZHit,
		XSteps: g.endstopTrigSteps[0], YSteps: g.endstopTrigSteps[1], ZSteps: g.endstopTrigSteps[2],
	}
	g.endstopXHit, g.endstopYHit, g.endstopZHit = false, false, false
	if any && g.cfg.AbortOnEndstopHit {
		g.QuickStop()
	}
	return hit, any
}
