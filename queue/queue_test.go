package queue

import "testing"

func TestRingQueuePushPeekDiscard(t *testing.T) {
	q := NewRingQueue(2)
	if !q.Push(Block{StepEventCount: 1}) {
		t.Fatalf("push into empty queue should succeed")
	}
	if !q.Push(Block{StepEventCount: 2}) {
		t.Fatalf("push into queue with room should succeed")
	}
	if q.Push(Block{StepEventCount: 3}) {
		t.Fatalf("push into full queue should fail")
	}

	blk, ok := q.PeekCurrent()
	if !ok || blk.StepEventCount != 1 {
		t.Fatalf("expected first block in FIFO order, got %+v ok=%v", blk, ok)
	}

	q.DiscardCurrent()
	if q.Queued() != 1 {
		t.Fatalf("Queued() = %d, want 1 after one discard", q.Queued())
	}

	blk, ok = q.PeekCurrent()
	if !ok || blk.StepEventCount != 2 {
		t.Fatalf("expected second block after discard, got %+v ok=%v", blk, ok)
	}

	// Queue has room again after the discard.
	if !q.Push(Block{StepEventCount: 3}) {
		t.Fatalf("push should succeed once a slot frees up")
	}
}

func TestPeekCurrentEmptyQueue(t *testing.T) {
	q := NewRingQueue(4)
	if _, ok := q.PeekCurrent(); ok {
		t.Fatalf("PeekCurrent on empty queue should report ok=false")
	}
}

func builderFor(stepsPerMM float64) *Builder {
	return &Builder{Axes: map[string]AxisLimits{
		"x": {StepsPerMM: stepsPerMM, MaxVelocity: 300, MaxAccel: 3000},
		"y": {StepsPerMM: stepsPerMM, MaxVelocity: 300, MaxAccel: 3000},
		"z": {StepsPerMM: 400, MaxVelocity: 10, MaxAccel: 100},
		"e": {StepsPerMM: 96, MaxVelocity: 50, MaxAccel: 5000},
	}}
}

func TestBuildPureXMoveHasNoYZESteps(t *testing.T) {
	b := builderFor(80)
	blk, err := b.Build(Move{
		Start:    Position{},
		End:      Position{X: 10},
		Velocity: 50,
		Accel:    500,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if blk.StepsY != 0 || blk.StepsZ != 0 || blk.StepsE != 0 {
		t.Fatalf("pure X move should have zero Y/Z/E steps, got %+v", blk)
	}
	if blk.StepsX != 800 {
		t.Fatalf("StepsX = %d, want 800 (10mm * 80 steps/mm)", blk.StepsX)
	}
	if blk.StepEventCount != blk.StepsX {
		t.Fatalf("step_event_count should equal the dominant axis's step count")
	}
	if blk.DirectionBits&DirBitX != 0 {
		t.Fatalf("positive X move should not set the X direction bit")
	}
}

func TestBuildNegativeDirectionSetsBit(t *testing.T) {
	b := builderFor(80)
	blk, err := b.Build(Move{Start: Position{X: 10}, End: Position{X: 0}, Velocity: 50, Accel: 500})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if blk.DirectionBits&DirBitX == 0 {
		t.Fatalf("negative X move should set the X direction bit")
	}
}

func TestBuildZeroLengthMoveErrors(t *testing.T) {
	b := builderFor(80)
	_, err := b.Build(Move{Start: Position{X: 5}, End: Position{X: 5}, Velocity: 50, Accel: 500})
	if err == nil {
		t.Fatalf("expected an error for a zero-length move")
	}
}

func TestBuildTrapezoidHasAccelerateBeforeDecelerate(t *testing.T) {
	b := builderFor(80)
	blk, err := b.Build(Move{Start: Position{}, End: Position{X: 100}, Velocity: 50, Accel: 500})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if blk.AccelerateUntil >= blk.DecelerateAfter {
		t.Fatalf("expected a cruise band: accelerate_until=%d should be < decelerate_after=%d", blk.AccelerateUntil, blk.DecelerateAfter)
	}
	if blk.NominalRate == 0 {
		t.Fatalf("expected a nonzero nominal_rate for a long move")
	}
}

func TestBuildShortMoveProducesTriangleProfile(t *testing.T) {
	b := builderFor(80)
	// A very short move can't reach cruise speed before needing to
	// decelerate again.
	blk, err := b.Build(Move{Start: Position{}, End: Position{X: 0.5}, Velocity: 200, Accel: 500})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if blk.AccelerateUntil != blk.DecelerateAfter {
		t.Fatalf("expected a triangle profile (no cruise band): accelerate_until=%d decelerate_after=%d", blk.AccelerateUntil, blk.DecelerateAfter)
	}
}

func TestBuildClampsVelocityToAxisMaximum(t *testing.T) {
	b := builderFor(80)
	// Z axis caps at 10mm/s in builderFor; request far more.
	blk, err := b.Build(Move{Start: Position{}, End: Position{Z: 10}, Velocity: 1000, Accel: 100})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	// clampVelocity scales the cruise speed down to Z's 10mm/s cap, so
	// the nominal rate is 10mm/s * 400 steps/mm.
	if blk.StepEventCount == 0 {
		t.Fatalf("expected nonzero step_event_count")
	}
	if blk.NominalRate != 4000 {
		t.Fatalf("NominalRate = %d, want 4000 (Z clamped to 10mm/s * 400 steps/mm)", blk.NominalRate)
	}
}
