package pinsink

// SoftPin is an in-memory GPIO backend used by host tests and
// cmd/stepbench, analogous to a bench wired up with nothing but wires
// between simulated pins - no timing, no electrons, just state and a
// pulse counter for assertions.
type SoftPin struct {
	level  bool
	pulses int
}

// NewSoftPin returns a SoftPin initialized low.
func NewSoftPin() *SoftPin { return &SoftPin{} }

func (p *SoftPin) Set(high bool) {
	if high && !p.level {
		p.pulses++
	}
	p.level = high
}

func (p *SoftPin) Get() bool { return p.level }

// Level reports the pin's current electrical level, for test assertions.
func (p *SoftPin) Level() bool { return p.level }

// PulseCount reports how many low-to-high transitions have occurred.
func (p *SoftPin) PulseCount() int { return p.pulses }

// SetLevel forces the pin state directly, used by tests to simulate an
// endstop being triggered externally.
func (p *SoftPin) SetLevel(high bool) { p.level = high }
