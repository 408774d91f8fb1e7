// Package report formats the generator's two serial-facing lines -
// the endstop-hit notice and the step-rate overrun diagnostic of spec
// §7 - reusing the teacher's protocol.VLQ/CRC16 framing primitives for
// anyone transporting reports over a framed link rather than a plain
// line-oriented console.
package report

import (
	"fmt"
	"strconv"

	"stepcore/protocol"
	"stepcore/stepper"
)

// AxisScale converts one axis's raw step count to millimeters.
type AxisScale struct {
	StepsPerMM float64
}

// EndstopLine renders the "echo:endstops hit: ..." notice, including
// only the axes that actually latched, matching the original's
// practice of omitting untriggered axes rather than printing zeros.
func EndstopLine(hit stepper.EndstopHit, any bool, x, y, z AxisScale) string {
	if !any {
		return ""
	}
	line := "echo:endstops hit:"
	if hit.X {
		line += " X:" + formatMM(hit.XSteps, x.StepsPerMM)
	}
	if hit.Y {
		line += " Y:" + formatMM(hit.YSteps, y.StepsPerMM)
	}
	if hit.Z {
		line += " Z:" + formatMM(hit.ZSteps, z.StepsPerMM)
	}
	return line
}

// StepTooHighLine renders the "Steptoohigh: <rate>" diagnostic for a
// step rate calc_timer had to clamp.
func StepTooHighLine(rate uint32) string {
	return fmt.Sprintf("Steptoohigh: %d", rate)
}

func formatMM(steps int32, stepsPerMM float64) string {
	if stepsPerMM == 0 {
		stepsPerMM = 1
	}
	mm := float64(steps) / stepsPerMM
	return strconv.FormatFloat(mm, 'f', 2, 64)
}

// Frame wraps a line in a CRC16-checked VLQ-length-prefixed envelope
// for transports that want framing instead of bare newline-terminated
// text - a thin reuse of protocol's primitives rather than a new codec.
func Frame(line string) []byte {
	out := protocol.NewScratchOutput()
	protocol.EncodeVLQString(out, line)
	payload := out.Result()
	crc := protocol.CRC16(payload)
	framed := make([]byte, 0, len(payload)+2)
	framed = append(framed, payload...)
	framed = append(framed, byte(crc>>8), byte(crc))
	return framed
}

// Unframe validates and strips a Frame-produced envelope, returning the
// decoded line.
func Unframe(framed []byte) (string, error) {
	if len(framed) < 2 {
		return "", protocol.ErrBufferTooSmall
	}
	payload := framed[:len(framed)-2]
	gotCRC := uint16(framed[len(framed)-2])<<8 | uint16(framed[len(framed)-1])
	if protocol.CRC16(payload) != gotCRC {
		return "", protocol.ErrInvalidVLQ
	}
	return protocol.DecodeVLQString(&payload)
}
