package cw

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"gonum.org/v1/gonum/stat"
)

// ReceiverState is the Receiver's FSM state (spec §4.E).
type ReceiverState int

const (
	RxIdle ReceiverState = iota
	RxInMark
	RxAfterMark
	RxEndCharBuffered
	RxEndWordBuffered
)

// Receiver speed bounds for adaptive tracking (spec §4.E).
const (
	ReceiverSpeedMin = SpeedMinWPM
	ReceiverSpeedMax = SpeedMaxWPM
)

// Tolerance bounds, mirroring unixcw's cw_get_tolerance_limits().
const (
	ToleranceMinPct = 0
	ToleranceMaxPct = 90
)

// adaptiveWindow is the number of recent samples per symbol class kept
// for the moving-average speed tracker (spec §9 open question: fixed
// at 4).
const adaptiveWindow = 4

// ReceiverStatistics is a snapshot of the Receiver's accumulated
// per-event statistics (spec §3 "[EXPANDED] Receiver statistics
// snapshot").
type ReceiverStatistics struct {
	Dots     int
	Dashes   int
	SpeedWPM float64
}

// Receiver is a speed-adaptive classifier from (mark-length,
// space-length) timestamp pairs to dots/dashes and thence to
// characters (spec §4.E). It holds no internal goroutine: mark_begin,
// mark_end and poll_* are driven by the caller's own thread(s); the
// internal mutex only protects against mark_* and poll_* being called
// from different goroutines without racing (spec §5).
type Receiver struct {
	mu sync.Mutex

	speedWPM     float64
	toleranceP   float64 // percent, [0,90]
	noiseSpikeUS int64
	adaptiveMode bool

	state       ReceiverState
	markStartUS int64
	markEndUS   int64
	repBuffer   []byte // '.'/'-'

	pendingWordSpace bool

	dotHistory  []float64
	dashHistory []float64
	statDots    int
	statDashes  int

	metrics *receiverMetrics
}

type receiverMetrics struct {
	decoded  prometheus.Counter
	noiseRej prometheus.Counter
	speed    prometheus.Gauge
}

// NewReceiver creates a Receiver at the library default speed with
// adaptive tracking enabled and zero tolerance slack.
func NewReceiver() *Receiver {
	return &Receiver{
		speedWPM:     DefaultSpeedWPM,
		toleranceP:   0,
		adaptiveMode: true,
		state:        RxIdle,
	}
}

// AttachMetrics registers this Receiver's prometheus collectors
// against reg, labeled with id (typically the owning Generator's ID,
// or a caller-chosen correlation string). Pass nil to leave metrics
// disabled (the default).
func (r *Receiver) AttachMetrics(reg prometheus.Registerer, id string) {
	if reg == nil {
		return
	}
	labels := prometheus.Labels{"receiver": id}
	m := &receiverMetrics{
		decoded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cw", Subsystem: "receiver", Name: "decoded_characters_total",
			Help: "Number of characters successfully polled from the receiver.", ConstLabels: labels,
		}),
		noiseRej: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cw", Subsystem: "receiver", Name: "noise_spikes_rejected_total",
			Help: "Number of marks rejected as noise spikes.", ConstLabels: labels,
		}),
		speed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cw", Subsystem: "receiver", Name: "speed_wpm",
			Help: "Current adaptive speed estimate in words per minute.", ConstLabels: labels,
		}),
	}
	reg.MustRegister(m.decoded, m.noiseRej, m.speed)
	r.mu.Lock()
	r.metrics = m
	r.mu.Unlock()
}

func (r *Receiver) SetSpeed(wpm float64) error {
	if wpm < ReceiverSpeedMin || wpm > ReceiverSpeedMax {
		return ErrInvalid
	}
	r.mu.Lock()
	r.speedWPM = wpm
	r.mu.Unlock()
	return nil
}

func (r *Receiver) SetTolerance(pct float64) error {
	if pct < ToleranceMinPct || pct > ToleranceMaxPct {
		return ErrInvalid
	}
	r.mu.Lock()
	r.toleranceP = pct
	r.mu.Unlock()
	return nil
}

func (r *Receiver) SetNoiseSpike(us int64) error {
	if us < 0 {
		return ErrInvalid
	}
	r.mu.Lock()
	r.noiseSpikeUS = us
	r.mu.Unlock()
	return nil
}

func (r *Receiver) SetAdaptiveMode(enabled bool) {
	r.mu.Lock()
	r.adaptiveMode = enabled
	r.mu.Unlock()
}

// SpeedWPM returns the receiver's current (possibly adapted) speed.
func (r *Receiver) SpeedWPM() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.speedWPM
}

// unit returns the current dot-length in microseconds. Caller must
// hold r.mu.
func (r *Receiver) unitUS() float64 {
	return 1_200_000.0 / r.speedWPM
}

// MarkBegin records the start of a mark at timestamp ts (monotonic
// microseconds). Valid from IDLE, AFTER_MARK or END_CHAR_BUFFERED
// (spec §4.E). From AFTER_MARK this is simply the next element of the
// character already being accumulated — the buffer is left alone.
// From END_CHAR_BUFFERED/END_WORD_BUFFERED a poll has already reported
// the previous character, so this mark begins a new one with a clean
// buffer.
func (r *Receiver) MarkBegin(tsUS int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case RxIdle, RxAfterMark, RxEndCharBuffered, RxEndWordBuffered:
		if r.state == RxEndCharBuffered || r.state == RxEndWordBuffered {
			r.repBuffer = r.repBuffer[:0]
			r.pendingWordSpace = false
		}
		r.markStartUS = tsUS
		r.state = RxInMark
		return nil
	default:
		return ErrInvalid
	}
}

// MarkEnd records the end of a mark at timestamp ts, classifying its
// duration as a dot or dash. A mark shorter than the configured
// noise-spike threshold is rejected and no symbol is appended: the
// state reverts to AFTER_MARK if symbols of the current character are
// buffered (the previous mark's end time still stands), and to IDLE
// otherwise, per spec §4.E.
func (r *Receiver) MarkEnd(tsUS int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != RxInMark {
		return ErrInvalid
	}
	duration := tsUS - r.markStartUS
	if duration < r.noiseSpikeUS {
		r.state = RxIdle
		if len(r.repBuffer) > 0 {
			r.state = RxAfterMark
		}
		if r.metrics != nil {
			r.metrics.noiseRej.Inc()
		}
		return nil
	}

	sym := r.classifyMark(float64(duration))
	r.appendSymbol(sym)
	if r.adaptiveMode {
		r.trackMark(sym, float64(duration))
	}
	r.markEndUS = tsUS
	r.state = RxAfterMark
	return nil
}

// AddMark injects an already-classified symbol directly, bypassing
// duration classification (spec §4.E: "used when the source is a
// keyer/paddle already producing symbols").
func (r *Receiver) AddMark(tsUS int64, sym byte) error {
	if sym != '.' && sym != '-' {
		return ErrInvalid
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appendSymbol(sym)
	r.markEndUS = tsUS
	r.state = RxAfterMark
	return nil
}

func (r *Receiver) classifyMark(durationUS float64) byte {
	unit := r.unitUS()
	t := r.toleranceP / 100
	dotLow, dotHigh := unit*(1-t), unit*(1+t)
	dashLow, dashHigh := 3*unit*(1-t), 3*unit*(1+t)

	inDot := durationUS >= dotLow && durationUS <= dotHigh
	inDash := durationUS >= dashLow && durationUS <= dashHigh
	switch {
	case inDot && !inDash:
		return '.'
	case inDash && !inDot:
		return '-'
	default:
		// Outside both ranges (or in an overlap at extreme
		// tolerances): classify by nearest, per spec §4.E
		// "Classification failure policies".
		if abs(durationUS-unit) <= abs(durationUS-3*unit) {
			return '.'
		}
		return '-'
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// appendSymbol appends sym to the representation buffer, flushing to
// IDLE with an error condition on overflow. Caller must hold r.mu.
func (r *Receiver) appendSymbol(sym byte) {
	if len(r.repBuffer) >= MaxRepresentationLength {
		r.repBuffer = r.repBuffer[:0]
		r.state = RxIdle
		return
	}
	r.repBuffer = append(r.repBuffer, sym)
}

// trackMark folds one classified mark duration into the adaptive
// speed estimate. Caller must hold r.mu.
func (r *Receiver) trackMark(sym byte, durationUS float64) {
	switch sym {
	case '.':
		r.dotHistory = pushWindow(r.dotHistory, durationUS, adaptiveWindow)
		r.statDots++
	case '-':
		r.dashHistory = pushWindow(r.dashHistory, durationUS/3, adaptiveWindow)
		r.statDashes++
	}
	if len(r.dotHistory) == 0 && len(r.dashHistory) == 0 {
		return
	}
	combined := make([]float64, 0, len(r.dotHistory)+len(r.dashHistory))
	combined = append(combined, r.dotHistory...)
	combined = append(combined, r.dashHistory...)
	meanDot := stat.Mean(combined, nil)
	if meanDot <= 0 {
		return
	}
	newSpeed := 1_200_000.0 / meanDot
	if newSpeed < ReceiverSpeedMin {
		newSpeed = ReceiverSpeedMin
	}
	if newSpeed > ReceiverSpeedMax {
		newSpeed = ReceiverSpeedMax
	}
	r.speedWPM = newSpeed
	if r.metrics != nil {
		r.metrics.speed.Set(newSpeed)
	}
}

func pushWindow(win []float64, v float64, max int) []float64 {
	win = append(win, v)
	if len(win) > max {
		win = win[len(win)-max:]
	}
	return win
}

// PollRepresentation reports the buffered representation if the space
// since the last mark_end exceeds the inter-character threshold
// (spec §4.E). isEndOfWord additionally reports whether the space
// exceeds the word threshold; isError reports a representation with
// no table entry.
func (r *Receiver) PollRepresentation(nowUS int64) (representation string, isEndOfWord, isError, ready bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != RxAfterMark && r.state != RxEndCharBuffered && r.state != RxEndWordBuffered {
		return "", false, false, false
	}

	unit := r.unitUS()
	spaceUS := float64(nowUS - r.markEndUS)
	charThreshold := 2 * unit
	wordThreshold := 5 * unit

	if spaceUS < charThreshold {
		return "", false, false, false
	}

	rep := string(r.repBuffer)
	isEndOfWord = spaceUS >= wordThreshold
	if isEndOfWord {
		r.state = RxEndWordBuffered
		r.pendingWordSpace = true
	} else {
		r.state = RxEndCharBuffered
	}

	if rep == "" {
		return "", isEndOfWord, false, false
	}
	_, ok := RepresentationToChar(rep)
	isError = !ok
	return rep, isEndOfWord, isError, true
}

// PollCharacter is PollRepresentation followed by a table lookup.
func (r *Receiver) PollCharacter(nowUS int64) (c rune, isEndOfWord, isError, ready bool) {
	rep, eow, errFlag, ok := r.PollRepresentation(nowUS)
	if !ok {
		return 0, eow, errFlag, false
	}
	if errFlag {
		return 0, eow, true, true
	}
	r.mu.Lock()
	r.repBuffer = r.repBuffer[:0]
	if r.metrics != nil {
		r.metrics.decoded.Inc()
	}
	r.mu.Unlock()
	ch, _ := RepresentationToChar(rep)
	return ch, eow, false, true
}

// PollIsPendingInterWordSpace reports whether a pending end-of-word
// space has been reported by Poll* but not yet consumed.
func (r *Receiver) PollIsPendingInterWordSpace() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pendingWordSpace
}

// ResetState returns the Receiver to IDLE with an empty representation
// buffer, without touching speed-tracking statistics.
func (r *Receiver) ResetState() {
	r.mu.Lock()
	r.state = RxIdle
	r.repBuffer = r.repBuffer[:0]
	r.pendingWordSpace = false
	r.mu.Unlock()
}

// ResetStatistics clears the adaptive speed-tracking history.
func (r *Receiver) ResetStatistics() {
	r.mu.Lock()
	r.dotHistory = nil
	r.dashHistory = nil
	r.statDots = 0
	r.statDashes = 0
	r.mu.Unlock()
}

// Statistics returns a snapshot of accumulated classification counts
// and the current adaptive speed estimate.
func (r *Receiver) Statistics() ReceiverStatistics {
	r.mu.Lock()
	defer r.mu.Unlock()
	return ReceiverStatistics{Dots: r.statDots, Dashes: r.statDashes, SpeedWPM: r.speedWPM}
}
