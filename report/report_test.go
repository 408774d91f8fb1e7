package report

import (
	"strings"
	"testing"

	"stepcore/stepper"
)

func TestEndstopLineOmitsUntriggeredAxes(t *testing.T) {
	hit := stepper.EndstopHit{X: true, XSteps: 800}
	line := EndstopLine(hit, true, AxisScale{StepsPerMM: 80}, AxisScale{StepsPerMM: 80}, AxisScale{StepsPerMM: 400})
	if !strings.HasPrefix(line, "echo:endstops hit: X:10.00") {
		t.Fatalf("unexpected line: %q", line)
	}
	if strings.Contains(line, "Y:") || strings.Contains(line, "Z:") {
		t.Fatalf("line should omit untriggered axes: %q", line)
	}
}

func TestEndstopLineEmptyWhenNothingHit(t *testing.T) {
	if got := EndstopLine(stepper.EndstopHit{}, false, AxisScale{}, AxisScale{}, AxisScale{}); got != "" {
		t.Fatalf("expected empty line, got %q", got)
	}
}

func TestStepTooHighLineFormat(t *testing.T) {
	if got := StepTooHighLine(123456); got != "Steptoohigh: 123456" {
		t.Fatalf("unexpected line: %q", got)
	}
}

func TestFrameRoundTrips(t *testing.T) {
	line := "echo:endstops hit: X:10.00"
	framed := Frame(line)
	decoded, err := Unframe(framed)
	if err != nil {
		t.Fatalf("Unframe: %v", err)
	}
	if decoded != line {
		t.Fatalf("round trip mismatch: got %q, want %q", decoded, line)
	}
}

func TestUnframeDetectsCorruption(t *testing.T) {
	framed := Frame("Steptoohigh: 42")
	framed[0] ^= 0xFF
	if _, err := Unframe(framed); err == nil {
		t.Fatalf("expected corruption to be detected")
	}
}
