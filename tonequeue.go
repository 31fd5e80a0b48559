package cw

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// CapacityMax is the largest capacity a ToneQueue may be configured
// with (spec §3).
const CapacityMax = 10_0000

// DefaultCapacity is the default ToneQueue capacity (spec §3).
const DefaultCapacity = 3000

// MaxFrequencyHz and MinFrequencyHz bound Tone.FrequencyHz (spec §3).
const (
	MinFrequencyHz = 0
	MaxFrequencyHz = 4000
)

type queueState int

const (
	queueIdle queueState = iota
	queueBusy
)

// DequeueResult reports which of the three outcomes spec §4.B
// distinguishes a dequeue can have.
type DequeueResult int

const (
	// Idle reports the queue was already empty and remains so; the
	// consumer should sleep.
	Idle DequeueResult = iota
	// Dequeued reports a tone is returned in the accompanying Tone.
	Dequeued
	// EmptyNewly reports the queue had BUSY state but no tones
	// remain; state transitions to IDLE. The consumer should emit one
	// buffer of silence to drain the previous tone's fall slope.
	EmptyNewly
)

// lowWaterCallback is invoked after a length crossing from above the
// low-water mark to at-or-below it (spec §4.B).
type lowWaterCallback func(arg any)

// ToneQueue is a bounded ring of Tone records with a distinguished
// forever-tone mode, a low-water-mark callback, and producer/consumer
// wake-up via a condition variable (spec §4.B). The design replaces
// unixcw's SIGALRM-based wake-up with a sync.Cond paired with the
// queue's own mutex, per spec §9 "Signals for wake-up".
type ToneQueue struct {
	mu   sync.Mutex
	cond *sync.Cond

	buf           []Tone
	head, tail    int
	length        int
	capacity      int
	highWaterMark int
	state         queueState

	lowWaterMark int
	lowWaterFunc lowWaterCallback
	lowWaterArg  any

	// carryIsFirst holds an IsFirst flag dropped by a zero-length
	// enqueue so it can be attached to the next real tone (spec §9
	// open question: "carry forward").
	carryIsFirst bool

	metrics *queueMetrics
}

type queueMetrics struct {
	depth     prometheus.Gauge
	lowWaters prometheus.Counter
	dropped   prometheus.Counter
}

// NewToneQueue creates a ToneQueue with the given capacity (a
// non-positive value selects DefaultCapacity, a value above
// CapacityMax is clamped to CapacityMax) and high-water mark (clamped
// into [0, capacity]).
func NewToneQueue(capacity, highWaterMark int) *ToneQueue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if capacity > CapacityMax {
		capacity = CapacityMax
	}
	if highWaterMark < 0 {
		highWaterMark = 0
	}
	if highWaterMark > capacity {
		highWaterMark = capacity
	}
	q := &ToneQueue{
		buf:           make([]Tone, capacity),
		capacity:      capacity,
		highWaterMark: highWaterMark,
		state:         queueIdle,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// attachMetrics registers prometheus collectors for this queue under
// reg. A nil reg leaves metrics disabled, per spec §5's "no global
// mutable state" — metrics are opt-in, never forced.
func (q *ToneQueue) attachMetrics(reg prometheus.Registerer, labels prometheus.Labels) {
	if reg == nil {
		return
	}
	m := &queueMetrics{
		depth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "cw",
			Subsystem:   "tonequeue",
			Name:        "depth",
			Help:        "Current number of tones queued.",
			ConstLabels: labels,
		}),
		lowWaters: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "cw",
			Subsystem:   "tonequeue",
			Name:        "low_water_total",
			Help:        "Number of low-water-mark crossings.",
			ConstLabels: labels,
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "cw",
			Subsystem:   "tonequeue",
			Name:        "dropped_total",
			Help:        "Number of zero-length tones dropped on enqueue.",
			ConstLabels: labels,
		}),
	}
	reg.MustRegister(m.depth, m.lowWaters, m.dropped)
	q.mu.Lock()
	q.metrics = m
	q.mu.Unlock()
}

// Enqueue appends tone to the queue (spec §4.B).
//
// Returns ErrInvalid if FrequencyHz is out of range or LengthUS is
// negative. If LengthUS is zero, returns success without enqueueing
// (the tone's IsFirst flag, if set, is carried forward onto the next
// tone actually enqueued). Returns ErrAgain if the queue is full.
func (q *ToneQueue) Enqueue(tone Tone) error {
	if tone.FrequencyHz < MinFrequencyHz || tone.FrequencyHz > MaxFrequencyHz {
		return ErrInvalid
	}
	if tone.LengthUS < 0 {
		return ErrInvalid
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if tone.LengthUS == 0 {
		if tone.IsFirst {
			q.carryIsFirst = true
		}
		if q.metrics != nil {
			q.metrics.dropped.Inc()
		}
		return nil
	}
	if q.length == q.capacity {
		return ErrAgain
	}

	if q.carryIsFirst {
		tone.IsFirst = true
		q.carryIsFirst = false
	}

	q.buf[q.tail] = tone
	q.tail = (q.tail + 1) % q.capacity
	q.length++

	wasIdle := q.state == queueIdle
	if wasIdle {
		q.state = queueBusy
	}
	q.updateDepthMetric()
	q.cond.Broadcast()
	return nil
}

// Dequeue returns the head tone, per spec §4.B's three-way contract.
//
// If the head tone IsForever and is the sole remaining tone, it is
// returned but not removed. Otherwise a real dequeue removes it and,
// if the pre-removal length was strictly above the low-water mark and
// the post-removal length is at or below it, lowWaterPending reports
// true so the caller can invoke the registered callback after
// releasing any lock it holds (spec §4.D.1 step 5).
func (q *ToneQueue) Dequeue() (tone Tone, result DequeueResult, lowWaterPending bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.length == 0 {
		if q.state == queueBusy {
			q.state = queueIdle
			q.updateDepthMetric()
			q.cond.Broadcast()
			return Tone{}, EmptyNewly, false
		}
		return Tone{}, Idle, false
	}

	head := q.buf[q.head]
	if head.IsForever && q.length == 1 {
		return head, Dequeued, false
	}

	before := q.length
	q.head = (q.head + 1) % q.capacity
	q.length--
	if q.length == 0 {
		// Last tone just dequeued: EMPTY_NEWLY rule applies on the
		// *next* call, per spec §4.B; state remains BUSY until then.
	}
	q.updateDepthMetric()
	q.cond.Broadcast()

	if before > q.lowWaterMark && q.length <= q.lowWaterMark {
		lowWaterPending = true
		if q.metrics != nil {
			q.metrics.lowWaters.Inc()
		}
	}
	return head, Dequeued, lowWaterPending
}

// InvokeLowWaterCallback calls the registered low-water callback, if
// any. The caller (the Generator's synthesis loop) must call this
// only after releasing the queue's own lock, per spec §5 ordering.
func (q *ToneQueue) InvokeLowWaterCallback() {
	q.mu.Lock()
	fn, arg := q.lowWaterFunc, q.lowWaterArg
	q.mu.Unlock()
	if fn != nil {
		fn(arg)
	}
}

// Flush empties the queue without invoking the low-water callback and
// clears any pending low-water state (spec §9 open question: "this
// spec chooses: cleared").
func (q *ToneQueue) Flush() {
	q.mu.Lock()
	q.length = 0
	q.head = q.tail
	q.state = queueIdle
	q.carryIsFirst = false
	q.updateDepthMetric()
	q.cond.Broadcast()
	q.mu.Unlock()
}

// WaitForLevel blocks until the queue length is at or below level.
func (q *ToneQueue) WaitForLevel(level int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.length > level {
		q.cond.Wait()
	}
	return nil
}

// WaitForTone blocks until the current head changes (a dequeue
// happened) or the queue becomes idle.
func (q *ToneQueue) WaitForTone() {
	q.mu.Lock()
	defer q.mu.Unlock()
	head, length, state := q.head, q.length, q.state
	for q.head == head && q.length == length && q.state == state {
		q.cond.Wait()
	}
}

// IsFull reports whether the queue is at capacity.
func (q *ToneQueue) IsFull() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.length == q.capacity
}

// Length returns the current number of queued tones.
func (q *ToneQueue) Length() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.length
}

// Capacity returns the queue's fixed capacity.
func (q *ToneQueue) Capacity() int {
	return q.capacity
}

// HighWaterMark returns the queue's configured high-water mark.
func (q *ToneQueue) HighWaterMark() int {
	return q.highWaterMark
}

// RegisterLowWaterCallback registers fn to be invoked (with arg) at
// most once per crossing of level from above. A nil fn disables the
// callback. level must be in [0, capacity).
func (q *ToneQueue) RegisterLowWaterCallback(fn lowWaterCallback, arg any, level int) error {
	if level < 0 || level >= q.capacity {
		return ErrInvalid
	}
	q.mu.Lock()
	q.lowWaterFunc = fn
	q.lowWaterArg = arg
	q.lowWaterMark = level
	q.mu.Unlock()
	return nil
}

// HandleBackspace scans backward from tail for the most recent tone
// with IsFirst set and truncates the queue to just before it. If no
// such tone exists, the queue is unchanged. The operation is atomic
// with respect to a concurrent consumer (spec §4.B).
func (q *ToneQueue) HandleBackspace() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.length == 0 {
		return
	}

	// Walk backward from the element just before tail.
	idx := (q.tail - 1 + q.capacity) % q.capacity
	removed := 0
	for removed < q.length {
		if q.buf[idx].IsFirst {
			q.tail = idx
			q.length -= removed + 1
			q.updateDepthMetric()
			q.cond.Broadcast()
			return
		}
		idx = (idx - 1 + q.capacity) % q.capacity
		removed++
	}
	// No IsFirst tone found: queue unchanged.
}

func (q *ToneQueue) updateDepthMetric() {
	if q.metrics != nil {
		q.metrics.depth.Set(float64(q.length))
	}
}
