// Package sched implements the single timer abstraction the stepper
// generator is driven from: attach a callback after a delay, let the
// callback re-attach itself with a new delay, repeat. It is the Go
// analogue of a hardware Ticker/output-compare interrupt, generalized
// enough to run on a host clock for tests and tooling.
package sched

// TicksPerSecond is the resolution of the scheduler clock. Periods and
// delays throughout this module are expressed in ticks at this rate;
// FromMicros/ToMicros convert to/from wall-clock microseconds.
const TicksPerSecond = 1000000 // 1 tick == 1 microsecond

// Disposition is returned by a Timer's Handler to tell the dispatcher
// whether the timer should be dropped or kept armed.
type Disposition uint8

const (
	// Done drops the timer; it will not fire again unless re-attached.
	Done Disposition = iota
	// Reschedule keeps the timer in the queue at its (possibly
	// updated) WakeTime.
	Reschedule
)

// Timer is a single scheduled callback, sorted into a Queue by
// WakeTime. A Handler may mutate WakeTime and return Reschedule to
// re-arm itself for a new delay; Dispatch re-inserts it at the new
// WakeTime - this is the "detach and reattach from inside the callback" pattern
// spec §4.1 requires.
type Timer struct {
	WakeTime uint32
	Handler  func(*Timer) Disposition

	next *Timer
}

// FromMicros converts a microsecond delay to ticks.
func FromMicros(us uint32) uint32 { return us * (TicksPerSecond / 1000000) }

// ToMicros converts a tick duration to microseconds.
func ToMicros(ticks uint32) uint32 { return ticks / (TicksPerSecond / 1000000) }

// Queue is a sorted pending-timer list plus the wall clock it is
// dispatched against. The zero value is ready to use. Queue is not
// safe for concurrent use from more than one goroutine; the stepper
// generator serializes all timer access through a single dispatch
// loop exactly as a real MCU serializes through a single interrupt
// line, and foreground code that needs to touch shared state goes
// through Queue.Guard.
type Queue struct {
	head *Timer
	now  uint32

	interruptsHeld bool
}

// Now returns the queue's current time in ticks.
func (q *Queue) Now() uint32 { return q.now }

// Advance moves the queue clock forward by delta ticks. A host-driven
// clock calls this once per simulated tick; a hardware-backed queue
// would instead have Now driven by a free-running counter and would
// never call Advance directly.
func (q *Queue) Advance(delta uint32) { q.now += delta }

// SetNow pins the queue clock to an absolute value (used by tests and
// by host-driven loops such as cmd/stepbench that jump straight to the
// next WakeTime).
func (q *Queue) SetNow(t uint32) { q.now = t }

// Attach arms t to fire delayUs microseconds from now, inserting it
// into the sorted pending list. Attach is idempotent: calling it on a
// Timer already in the queue first removes the stale entry, so a
// handler may freely call Attach on itself (or on a sibling timer)
// without double-scheduling.
func (q *Queue) Attach(t *Timer, delayUs uint32) {
	q.Detach(t)
	t.WakeTime = q.now + FromMicros(delayUs)
	q.insert(t)
}

// AttachAt arms t for an absolute WakeTime instead of a relative
// delay, for callers that already hold an absolute time (as
// stepper.Generator.WakeUp does when it arms its timer for "now").
func (q *Queue) AttachAt(t *Timer, wakeTime uint32) {
	q.Detach(t)
	t.WakeTime = wakeTime
	q.insert(t)
}

// Detach removes t from the pending list if present. Safe to call on
// a timer that isn't queued.
func (q *Queue) Detach(t *Timer) {
	if q.head == t {
		q.head = t.next
		t.next = nil
		return
	}
	for cur := q.head; cur != nil; cur = cur.next {
		if cur.next == t {
			cur.next = t.next
			t.next = nil
			return
		}
	}
}

func (q *Queue) insert(t *Timer) {
	if q.head == nil || t.WakeTime < q.head.WakeTime {
		t.next = q.head
		q.head = t
		return
	}
	cur := q.head
	for cur.next != nil && cur.next.WakeTime <= t.WakeTime {
		cur = cur.next
	}
	t.next = cur.next
	cur.next = t
}

// Dispatch runs every timer whose WakeTime has passed, in WakeTime
// order, re-inserting any that return Reschedule. It mirrors the
// teacher's TimerDispatch: a handler is free to Attach/Detach any
// timer (including itself) while running, since the timer is
// unlinked from the queue before its Handler is invoked.
func (q *Queue) Dispatch() {
	for q.head != nil && q.head.WakeTime <= q.now {
		t := q.head
		q.head = t.next
		t.next = nil

		switch t.Handler(t) {
		case Reschedule:
			q.insert(t)
		case Done:
		}
	}
}

// NextWake reports the WakeTime of the earliest pending timer and
// whether any timer is pending at all.
func (q *Queue) NextWake() (uint32, bool) {
	if q.head == nil {
		return 0, false
	}
	return q.head.WakeTime, true
}

// Guard begins a critical section: code that must observe or mutate
// state shared with a timer Handler calls Guard, does its work, then
// calls the returned release function. On real hardware this masks
// the timer interrupt; here it is a no-op hook callers can use to
// make the boundary explicit and that a hosted build can wire to a
// mutex if timers ever move to their own goroutine.
func (q *Queue) Guard() (release func()) {
	q.interruptsHeld = true
	return func() { q.interruptsHeld = false }
}
