package sched

import "testing"

func TestAttachFiresAfterDelay(t *testing.T) {
	var q Queue
	fired := false
	tm := &Timer{Handler: func(*Timer) Disposition {
		fired = true
		return Done
	}}

	q.Attach(tm, 100)
	q.Advance(99)
	q.Dispatch()
	if fired {
		t.Fatalf("timer fired early")
	}

	q.Advance(1)
	q.Dispatch()
	if !fired {
		t.Fatalf("timer did not fire at its WakeTime")
	}
}

func TestRescheduleFromInsideHandler(t *testing.T) {
	var q Queue
	count := 0
	var tm Timer
	tm.Handler = func(timer *Timer) Disposition {
		count++
		if count >= 3 {
			return Done
		}
		timer.WakeTime += FromMicros(10)
		return Reschedule
	}

	q.Attach(&tm, 10)
	for i := 0; i < 5; i++ {
		q.Advance(10)
		q.Dispatch()
	}

	if count != 3 {
		t.Fatalf("expected handler to fire 3 times, got %d", count)
	}
}

func TestAttachIsIdempotent(t *testing.T) {
	var q Queue
	var tm Timer
	calls := 0
	tm.Handler = func(*Timer) Disposition { calls++; return Done }

	q.Attach(&tm, 1000)
	q.Attach(&tm, 10) // re-arm sooner; must not leave a stale duplicate entry

	q.Advance(10)
	q.Dispatch()

	if calls != 1 {
		t.Fatalf("expected exactly one fire after re-arm, got %d", calls)
	}
}

func TestDispatchOrdersByWakeTime(t *testing.T) {
	var q Queue
	var order []int

	mk := func(id int) *Timer {
		tm := &Timer{}
		tm.Handler = func(*Timer) Disposition {
			order = append(order, id)
			return Done
		}
		return tm
	}

	a, b, c := mk(1), mk(2), mk(3)
	q.Attach(c, 300)
	q.Attach(a, 100)
	q.Attach(b, 200)

	q.Advance(300)
	q.Dispatch()

	want := []int{1, 2, 3}
	if len(order) != 3 {
		t.Fatalf("expected 3 fires, got %v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("dispatch order = %v, want %v", order, want)
		}
	}
}

func TestNextWake(t *testing.T) {
	var q Queue
	if _, ok := q.NextWake(); ok {
		t.Fatalf("empty queue should report no pending timer")
	}

	var tm Timer
	tm.Handler = func(*Timer) Disposition { return Done }
	q.Attach(&tm, 50)

	wake, ok := q.NextWake()
	if !ok || wake != 50 {
		t.Fatalf("NextWake = %d,%v want 50,true", wake, ok)
	}
}
