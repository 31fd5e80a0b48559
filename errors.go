package cw

// Err is an errno-style error kind returned by fallible operations
// throughout the package, following spec §7. Compare with errors.Is,
// e.g. errors.Is(err, ErrAgain).
type Err string

func (e Err) Error() string { return string(e) }

// Error kinds surfaced by the core. Names are chosen for semantics,
// not implementation, per spec §7.
const (
	// ErrInvalid reports an argument out of its documented range
	// (frequency, volume, speed, capacity, level, and so on).
	ErrInvalid Err = "cw: invalid argument"
	// ErrAgain reports that the tone queue is full; retry after drain.
	ErrAgain Err = "cw: tone queue full, retry after drain"
	// ErrBusy reports that an operation is blocked by a competing
	// input source. Kept for API parity with unixcw; the core itself
	// never raises it today, but a Key implementation routing two
	// input devices through one Generator may.
	ErrBusy Err = "cw: blocked by a competing input source"
	// ErrDeadlock reports that the caller blocked the signalling path
	// a wait_for_* operation relies on to wake up.
	ErrDeadlock Err = "cw: caller blocked the wake-up signalling path"
	// ErrNotSupported reports that the requested sound sink is not
	// built in or not available at runtime.
	ErrNotSupported Err = "cw: sink not supported"
	// ErrIO reports that the underlying sink reported a write error.
	ErrIO Err = "cw: sink write error"
	// ErrNoMemory reports an allocation failure during construction or
	// a capacity change.
	ErrNoMemory Err = "cw: allocation failure"
)

// SinkFailureThreshold is the number of consecutive AudioSink write
// failures the synthesis loop tolerates before entering degraded mode
// (spec §7: "up to N consecutive failures... then enters a degraded
// state"). The synthesis loop keeps dequeuing so producers are never
// blocked, but drops samples until a Stop/Start cycle recovers it.
const SinkFailureThreshold = 3
