package cw

// SlopeMode selects which edges of a tone get rise/fall shaping
// applied, per spec §3.
type SlopeMode int

const (
	// SlopeNone applies no shaping; the tone jumps to full amplitude.
	SlopeNone SlopeMode = iota
	// SlopeRisingOnly shapes only the attack edge.
	SlopeRisingOnly
	// SlopeFallingOnly shapes only the release edge.
	SlopeFallingOnly
	// SlopeStandard shapes both edges.
	SlopeStandard
)

// Tone is one queued audio element (spec §3).
type Tone struct {
	// LengthUS is the tone's duration in microseconds. Zero means
	// "drop on enqueue" (see ToneQueue.Enqueue).
	LengthUS int64
	// FrequencyHz is the tone's frequency in [0, MaxFrequencyHz].
	// Zero means silence.
	FrequencyHz int
	// SlopeMode selects rise/fall shaping for this tone.
	SlopeMode SlopeMode
	// IsForever marks a tone that dequeue re-returns, without
	// removing it, for as long as it remains the sole queue occupant.
	IsForever bool
	// IsFirst marks the first tone belonging to one character, used
	// by ToneQueue.HandleBackspace to find a character boundary.
	IsFirst bool
}

// silent reports whether the tone carries no audible signal.
func (t Tone) silent() bool { return t.FrequencyHz == 0 }
