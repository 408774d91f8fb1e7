package pinsink

import "testing"

func TestStepSinkPulseCountsOneTransitionRegardlessOfInversion(t *testing.T) {
	for _, invert := range []bool{false, true} {
		pin := NewSoftPin()
		s := NewStepSink(pin, invert)
		s.Pulse()
		if pin.PulseCount() != 1 {
			t.Fatalf("invert=%v: pulse count = %d, want 1", invert, pin.PulseCount())
		}
		if pin.Level() != invert {
			t.Fatalf("invert=%v: pin should rest at its inactive level %v, got %v", invert, invert, pin.Level())
		}
	}
}

func TestDirSinkAppliesInversion(t *testing.T) {
	pin := NewSoftPin()
	d := NewDirSink(pin, true)
	d.Set(true)
	if pin.Get() {
		t.Fatalf("inverted dir sink set(true) should drive the pin low")
	}
	d.Set(false)
	if !pin.Get() {
		t.Fatalf("inverted dir sink set(false) should drive the pin high")
	}
}

func TestEnableSinkAppliesInversion(t *testing.T) {
	pin := NewSoftPin()
	e := NewEnableSink(pin, false)
	e.SetEnabled(true)
	if !pin.Get() {
		t.Fatalf("non-inverted enable sink should drive the pin high when enabled")
	}
}

func TestEndstopSinkTriggeredRespectsInversion(t *testing.T) {
	pin := NewSoftPin()
	e := NewEndstopSink(pin, true)
	pin.SetLevel(false) // electrically low means triggered, since inverted
	if !e.Triggered() {
		t.Fatalf("inverted endstop: low level should report triggered")
	}
	pin.SetLevel(true)
	if e.Triggered() {
		t.Fatalf("inverted endstop: high level should report not triggered")
	}
}
