package trapezoid

import (
	"testing"

	"stepcore/speedtable"
)

func TestResetSeedsFromInitialRate(t *testing.T) {
	tbl := speedtable.New(40000)
	s := NewState(tbl)
	s.Reset(Profile{
		InitialRate:      1000,
		NominalRate:      5000,
		FinalRate:        500,
		AccelerationRate: 1 << 20,
		AccelerateUntil:  50,
		DecelerateAfter:  150,
	}, nil)

	want, _ := tbl.CalcTimer(1000, nil)
	if s.InitialPeriodUs != want {
		t.Fatalf("initial period = %d, want %d", s.InitialPeriodUs, want)
	}
	if s.AccStepRate != 1000 {
		t.Fatalf("acc_step_rate = %d, want 1000", s.AccStepRate)
	}
}

func TestPhaseAtBoundaries(t *testing.T) {
	tbl := speedtable.New(40000)
	s := NewState(tbl)
	s.Reset(Profile{
		InitialRate:      1000,
		NominalRate:      5000,
		FinalRate:        500,
		AccelerationRate: 1 << 20,
		AccelerateUntil:  50,
		DecelerateAfter:  150,
	}, nil)

	cases := []struct {
		at   uint32
		want Phase
	}{
		{0, Accelerate},
		{50, Accelerate},
		{51, Cruise},
		{150, Cruise},
		{151, Decelerate},
		{1000, Decelerate},
	}
	for _, c := range cases {
		if got := s.PhaseAt(c.at); got != c.want {
			t.Fatalf("PhaseAt(%d) = %v, want %v", c.at, got, c.want)
		}
	}
}

func TestAdvanceRampsTowardNominalThenClamps(t *testing.T) {
	tbl := speedtable.New(40000)
	s := NewState(tbl)
	s.Reset(Profile{
		InitialRate:      1000,
		NominalRate:      5000,
		FinalRate:        500,
		AccelerationRate: 1 << 24, // +1 step/s per elapsed tick
		AccelerateUntil:  1000000, // never leaves accelerate phase in this test
		DecelerateAfter:  1000000,
	}, nil)

	var lastRate uint32
	for i := 0; i < 10000; i++ {
		s.Advance(uint32(i), nil)
		if s.AccStepRate < lastRate {
			t.Fatalf("acc_step_rate decreased during accelerate phase: %d -> %d", lastRate, s.AccStepRate)
		}
		lastRate = s.AccStepRate
		if s.AccStepRate > s.profile.NominalRate {
			t.Fatalf("acc_step_rate %d exceeded nominal_rate %d", s.AccStepRate, s.profile.NominalRate)
		}
	}
	if lastRate != s.profile.NominalRate {
		t.Fatalf("acc_step_rate should have clamped to nominal_rate %d, got %d", s.profile.NominalRate, lastRate)
	}
}

func TestAdvanceDeceleratesTowardFinalRate(t *testing.T) {
	tbl := speedtable.New(40000)
	s := NewState(tbl)
	s.Reset(Profile{
		InitialRate:      5000,
		NominalRate:      5000,
		FinalRate:        500,
		AccelerationRate: 1 << 24,
		AccelerateUntil:  0,
		DecelerateAfter:  0,
	}, nil)
	s.AccStepRate = 5000

	// acc_step_rate stays frozen while decelerating; the decelerating
	// rate is observed through the period Advance returns.
	finalPeriod, _ := tbl.CalcTimer(s.profile.FinalRate, nil)
	var period uint16
	for i := uint32(1); i <= 200; i++ {
		period = s.Advance(i, nil)
		if period > finalPeriod {
			t.Fatalf("period %d exceeds the final_rate %d period %d: rate undershot final_rate", period, s.profile.FinalRate, finalPeriod)
		}
	}
	if period != finalPeriod {
		t.Fatalf("expected deceleration to settle at final_rate %d (period %d), got period %d", s.profile.FinalRate, finalPeriod, period)
	}
}

func TestCruiseUsesNominalPeriodAndRestoresStepLoops(t *testing.T) {
	tbl := speedtable.New(40000)
	s := NewState(tbl)
	s.Reset(Profile{
		InitialRate:      1000,
		NominalRate:      30000, // step_loops_nominal = 4
		FinalRate:        1000,
		AccelerationRate: 1 << 24,
		AccelerateUntil:  10,
		DecelerateAfter:  200,
	}, nil)

	period := s.Advance(100, nil) // within the cruise band
	if period != s.NominalPeriod {
		t.Fatalf("cruise period = %d, want nominal period %d", period, s.NominalPeriod)
	}
	if s.CurrentStepLoops != s.NominalStepLoops {
		t.Fatalf("cruise step_loops = %d, want nominal step_loops %d", s.CurrentStepLoops, s.NominalStepLoops)
	}
	if s.NominalStepLoops != 4 {
		t.Fatalf("expected step_loops_nominal=4 for nominal_rate=30000, got %d", s.NominalStepLoops)
	}
}
