//go:build tinygo

// Analog endstop backend for ADC-based sensors (hall effect probes,
// smart filament sensors), grounded on the teacher's AnalogEndstop
// (core/endstop_analog.go) threshold/hysteresis decode but reading
// the ADC through a tinygo.org/x/drivers chip driver instead of the
// teacher's hand-rolled AnalogIn.
package pinsink

import (
	"tinygo.org/x/drivers/ads1x15"
)

// ADCReader is the minimal surface an ads1x15 channel exposes that an
// AnalogEndstop needs.
type ADCReader interface {
	Read() (int16, error)
}

// AnalogEndstop triggers when a polled ADC reading crosses a threshold,
// with hysteresis to damp oscillation around the boundary - the same
// two constants the teacher's analogEndstopEvent/analogEndstopOversampleEvent
// pair apply, collapsed into one Triggered() call since this port has
// no separate foreground-homing sequence driving re-arm/oversample state.
type AnalogEndstop struct {
	reader       ADCReader
	threshold    int16
	hysteresis   int16
	triggerAbove bool
	latched      bool
}

// NewAnalogEndstop wraps an ads1x15 channel as an EndstopSink. When
// triggerAbove is true the endstop fires as the reading rises through
// threshold; otherwise it fires as the reading falls through it.
func NewAnalogEndstop(reader ADCReader, threshold, hysteresis int16, triggerAbove bool) *AnalogEndstop {
	return &AnalogEndstop{
		reader:       reader,
		threshold:    threshold,
		hysteresis:   hysteresis,
		triggerAbove: triggerAbove,
	}
}

// Triggered samples the ADC and applies the threshold/hysteresis
// decode. A read error does not panic; it leaves the previous decoded
// state unchanged and reports that state again.
func (a *AnalogEndstop) Triggered() bool {
	value, err := a.reader.Read()
	if err != nil {
		return a.latched
	}

	var now bool
	if a.triggerAbove {
		bound := a.threshold
		if a.latched {
			bound -= a.hysteresis
		}
		now = value > bound
	} else {
		bound := a.threshold
		if a.latched {
			bound += a.hysteresis
		}
		now = value < bound
	}
	a.latched = now
	return now
}

// NewADS1115Endstop builds an AnalogEndstop over an ads1x15 device
// already configured for the channel/gain it should poll, the chip
// the teacher's I2C bus wiring (targets/rp2040/i2c.go) already targets
// for analog peripherals.
func NewADS1115Endstop(dev *ads1x15.Device, threshold, hysteresis int16, triggerAbove bool) *AnalogEndstop {
	return NewAnalogEndstop(ads1x15Reader{dev: dev}, threshold, hysteresis, triggerAbove)
}

type ads1x15Reader struct {
	dev *ads1x15.Device
}

func (r ads1x15Reader) Read() (int16, error) {
	return r.dev.Read()
}
