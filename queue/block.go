// Package queue holds the block data model the stepper generator
// traces (spec §3) and the ring-buffer/builder machinery that feeds
// it, generalized from the teacher's planner.go move queue. This is
// deliberately NOT a look-ahead planner: Builder computes one move's
// trapezoid in isolation, the way calculateTrapezoid does, rather than
// blending junction velocities across the whole queue.
package queue

// Block is one fully-resolved segment of motion: a straight line in
// step space with pre-computed Bresenham step counts and a trapezoid
// profile, exactly the fields stepper.cpp's block_t carries.
type Block struct {
	// StepEventCount is the longest per-axis step count; every axis's
	// Bresenham counter accumulates against it.
	StepEventCount uint32

	// StepsX/Y/Z/E are the per-axis step counts over this block
	// (always <= StepEventCount).
	StepsX, StepsY, StepsZ, StepsE uint32

	// DirectionBits packs axis travel direction, bit N set meaning
	// "negative direction" for axis N, matching out_bits.
	DirectionBits uint8

	// ActiveExtruder selects which extruder's carriage/E-motor this
	// block's E steps belong to.
	ActiveExtruder int

	// Trapezoid timing, in steps/s and step-event counts.
	InitialRate      uint32
	NominalRate      uint32
	FinalRate        uint32
	AccelerationRate uint32
	AccelerateUntil  uint32
	DecelerateAfter  uint32

	// Pressure-advance seed values (spec §4.5), zero when Advance is
	// disabled for this machine.
	InitialAdvance uint32
	FinalAdvance   uint32
	AdvanceRate    uint32
}

// Direction bit positions within Block.DirectionBits.
const (
	DirBitX uint8 = 1 << iota
	DirBitY
	DirBitZ
	DirBitE
)

// BlockSource is the interface the generator pulls blocks from. It
// names exactly the three operations stepper_int_handler needs:
// peek the block in flight, discard it once finished, and learn
// whether anything is left to synchronize against.
type BlockSource interface {
	// PeekCurrent returns the block the generator should currently be
	// tracing, or ok=false if the queue is empty (the 1ms "wait and
	// retry" path in stepper_int_handler).
	PeekCurrent() (blk *Block, ok bool)

	// DiscardCurrent retires the block PeekCurrent last returned and
	// advances to the next one.
	DiscardCurrent()

	// Queued reports how many blocks (including the one in flight)
	// remain, used by Synchronize's blocks_queued() poll.
	Queued() int
}
