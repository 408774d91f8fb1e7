// Package speedtable implements spec §4.2's division-free step-rate to
// timer-period lookup: CalcTimer never divides on the hot path. It
// reformulates Marlin's speed_lookuptable.h - not present in
// original_source, which only carries stepper.cpp - as two precomputed
// interpolation tables built once at construction time (where a
// division is perfectly affordable), following the same two-segment,
// multiply-and-shift interpolation structure calc_timer uses.
package speedtable

import "stepcore/diag"

// MinPeriodTicks is the floor calc_timer clamps to; going lower would
// violate the ISR's own re-entry budget (spec §4.2 step 4).
const MinPeriodTicks uint16 = 100

// fastThreshold is the reduced-rate boundary (8*256) above which the
// fast (high-byte-indexed) table is used instead of the slow one.
const fastThreshold = 2048

// fastRows covers the full high-byte range so CalcTimer never needs a
// bounds check regardless of the configured MaxStepFrequency.
const fastRows = 256

// slowOctaves covers reduced rates 0..fastThreshold-1 in buckets of 8.
const slowOctaves = fastThreshold / 8

type fastRow struct {
	base uint16 // timer period at the bucket's lower bound
	gain uint16 // base - (period at the next bucket), i.e. the per-256 slope
}

type slowRow struct {
	base uint16
	gain uint16 // base - (period at the next octave), i.e. the per-8 slope
}

// Table is a ready-to-query speed lookup, scoped to one configured
// MaxStepFrequency (spec §6's MAX_STEP_FREQUENCY).
type Table struct {
	maxStepFrequency uint32
	fast             [fastRows]fastRow
	slow             [slowOctaves]slowRow
}

// New builds the interpolation tables for a given frequency ceiling.
// This does real division, but only ever at setup time - never from
// CalcTimer.
func New(maxStepFrequency uint32) *Table {
	t := &Table{maxStepFrequency: maxStepFrequency}

	for b := 0; b < fastRows; b++ {
		base := periodAt(uint32(b) * 256)
		next := periodAt(uint32(b+1) * 256)
		t.fast[b] = fastRow{base: base, gain: saturatingSub(base, next)}
	}

	for o := 0; o < slowOctaves; o++ {
		base := periodAt(uint32(o) * 8)
		next := periodAt(uint32(o+1) * 8)
		t.slow[o] = slowRow{base: base, gain: saturatingSub(base, next)}
	}

	return t
}

// periodAt computes the true (undivided-on-hotpath) timer period for a
// step rate, used only to seed the tables.
func periodAt(stepRate uint32) uint16 {
	if stepRate == 0 {
		return 0xFFFF
	}
	period := sched1e6 / stepRate
	if period > 0xFFFF {
		return 0xFFFF
	}
	return uint16(period)
}

const sched1e6 = 1000000

func saturatingSub(a, b uint16) uint16 {
	if b > a {
		return 0
	}
	return a - b
}

// CalcTimer maps a commanded step rate (steps/s) to a timer period (in
// scheduler ticks, §sched.TicksPerSecond == 1MHz so ticks == µs) and
// the number of Bresenham inner-loop iterations to run per interrupt,
// exactly mirroring calc_timer's four steps.
func (t *Table) CalcTimer(stepRate uint32, diagSink *diag.Sink) (periodTicks uint16, stepLoops uint8) {
	if stepRate > t.maxStepFrequency {
		stepRate = t.maxStepFrequency
	}

	switch {
	case stepRate > 20000:
		stepRate = (stepRate >> 2) & 0x3fff
		stepLoops = 4
	case stepRate > 10000:
		stepRate = (stepRate >> 1) & 0x7fff
		stepLoops = 2
	default:
		stepLoops = 1
	}

	var period uint16
	if stepRate >= fastThreshold {
		row := t.fast[uint8(stepRate>>8)]
		frac := uint16(stepRate & 0xff)
		period = row.base - mulHigh16x8(frac, row.gain)
	} else {
		row := t.slow[(stepRate>>3)%slowOctaves]
		frac := uint16(stepRate & 0x7)
		period = row.base - uint16((uint32(row.gain)*uint32(frac))>>3)
	}

	if period < MinPeriodTicks {
		if diagSink != nil {
			diagSink.Record(diag.Event{Kind: diag.EvtStepTooHigh, Value: stepRate})
			diagSink.Printf("Steptoohigh: " + itoa(int(stepRate)))
		}
		period = MinPeriodTicks
	}

	return period, stepLoops
}

// mulHigh16x8 returns the top 16 bits of a 16x8 multiply, i.e.
// (frac * gain) >> 8, matching the original's MultiU16X8toH16 macro -
// named here since Go has no macro facility to inline it at the call
// site the way the C source does.
func mulHigh16x8(frac, gain uint16) uint16 {
	return uint16((uint32(frac) * uint32(gain)) >> 8)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [12]byte
	pos := len(buf)
	for n > 0 {
		pos--
		buf[pos] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}
