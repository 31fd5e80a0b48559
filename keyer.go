package cw

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// KeyValue is the keyed/unkeyed state of either input device (spec §3).
type KeyValue int

const (
	KeyOpen KeyValue = iota
	KeyClosed
)

// IambicState is the iambic keyer's nine-state automaton (spec §4.F).
type IambicState int

const (
	IambicIdle IambicState = iota
	IambicInDotA
	IambicInDashA
	IambicAfterDotA
	IambicAfterDashA
	IambicInDotB
	IambicInDashB
	IambicAfterDotB
	IambicAfterDashB
)

// KeyingCallback is invoked on every TK value transition with a
// monotonic timestamp in microseconds, the new state, and an opaque
// argument (spec §6 "Keying callback").
type KeyingCallback func(tsUS int64, value KeyValue, arg any)

// StraightKeyState models a straight key: notify_event updates its
// value and starts or cancels an audible forever-tone on the
// associated Generator (spec §4.F "Straight key").
type StraightKeyState struct {
	mu    sync.Mutex
	value KeyValue
	gen   *Generator
}

// Value returns the straight key's current state.
func (s *StraightKeyState) Value() KeyValue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// IsBusy reports whether the key is currently closed.
func (s *StraightKeyState) IsBusy() bool { return s.Value() == KeyClosed }

// NotifyEvent updates the straight key's value and, if a Generator is
// registered, starts a forever tone on CLOSED or flushes the queue on
// OPEN.
func (s *StraightKeyState) NotifyEvent(value KeyValue) error {
	s.mu.Lock()
	s.value = value
	gen := s.gen
	s.mu.Unlock()

	if gen == nil {
		return nil
	}
	if value == KeyClosed {
		return gen.Queue().Enqueue(Tone{
			LengthUS:    1, // placeholder length; FrequencyHz/IsForever drive audibility
			FrequencyHz: gen.FrequencyHz(),
			SlopeMode:   SlopeStandard,
			IsForever:   true,
			IsFirst:     true,
		})
	}
	gen.Queue().Flush()
	return nil
}

// IambicKeyer is the two-paddle automaton of spec §4.F, driven by
// paddle notifications and by element-complete ticks delivered through
// elementComplete. The Generator's synthesis loop does not deliver
// these ticks; a bound Generator only receives the keyer's tones.
type IambicKeyer struct {
	mu sync.Mutex

	state IambicState

	dotPaddle, dashPaddle bool
	dotLatch, dashLatch   bool
	curtisBLatch          bool
	curtisModeB           bool

	gen *Generator
	rx  *Receiver

	elementDone chan struct{} // broadcast via close+replace on each step
	idleReached chan struct{}

	metrics *keyerMetrics
}

type keyerMetrics struct {
	elements prometheus.Counter
}

// AttachMetrics registers this keyer's prometheus collectors against
// reg, labeled with id. Pass nil to leave metrics disabled (the
// default).
func (k *IambicKeyer) AttachMetrics(reg prometheus.Registerer, id string) {
	if reg == nil {
		return
	}
	m := &keyerMetrics{
		elements: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cw", Subsystem: "keyer", Name: "elements_total",
			Help:        "Number of dot/dash elements keyed by the iambic keyer.",
			ConstLabels: prometheus.Labels{"keyer": id},
		}),
	}
	reg.MustRegister(m.elements)
	k.mu.Lock()
	k.metrics = m
	k.mu.Unlock()
}

// NewIambicKeyer creates an idle iambic keyer with Curtis mode B
// enabled (unixcw's historical default).
func NewIambicKeyer() *IambicKeyer {
	k := &IambicKeyer{
		state:       IambicIdle,
		curtisModeB: true,
		elementDone: make(chan struct{}),
		idleReached: make(chan struct{}),
	}
	return k
}

// SetCurtisMode selects Curtis mode B (true) or mode A (false).
func (k *IambicKeyer) SetCurtisMode(b bool) {
	k.mu.Lock()
	k.curtisModeB = b
	k.mu.Unlock()
}

// State returns the keyer's current FSM state.
func (k *IambicKeyer) State() IambicState {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.state
}

// bindGenerator and bindReceiver attach the weak back-references the
// keyer needs to emit audible elements and to forward decoded marks.
func (k *IambicKeyer) bindGenerator(g *Generator) {
	k.mu.Lock()
	k.gen = g
	k.mu.Unlock()
}

func (k *IambicKeyer) bindReceiver(r *Receiver) {
	k.mu.Lock()
	k.rx = r
	k.mu.Unlock()
}

// NotifyPaddle updates both paddle states at once.
func (k *IambicKeyer) NotifyPaddle(dot, dash bool) {
	k.mu.Lock()
	k.setPaddle(dot, dash)
	k.mu.Unlock()
}

// NotifyDotPaddle updates the dot paddle only.
func (k *IambicKeyer) NotifyDotPaddle(dot bool) {
	k.mu.Lock()
	k.setPaddle(dot, k.dashPaddle)
	k.mu.Unlock()
}

// NotifyDashPaddle updates the dash paddle only.
func (k *IambicKeyer) NotifyDashPaddle(dash bool) {
	k.mu.Lock()
	k.setPaddle(k.dotPaddle, dash)
	k.mu.Unlock()
}

// setPaddle applies a new paddle reading, latching the opposite
// element if the FSM is busy (spec §4.F). Caller must hold k.mu.
func (k *IambicKeyer) setPaddle(dot, dash bool) {
	prevDot, prevDash := k.dotPaddle, k.dashPaddle
	k.dotPaddle, k.dashPaddle = dot, dash
	busy := k.state != IambicIdle

	if busy {
		bothNewlyTrue := dot && dash && !(prevDot && prevDash)
		if bothNewlyTrue && k.curtisModeB {
			k.curtisBLatch = true
		} else {
			if dash && !prevDash {
				k.dashLatch = true
			}
			if dot && !prevDot {
				k.dotLatch = true
			}
		}
	}

	if k.state == IambicIdle {
		k.step()
	}
}

// elementComplete advances the FSM by one tick, marking the end of the
// current element or gap. The Generator's synthesis loop does not call
// it; only code inside this package (such as the tests) drives the
// keyer past its first element.
func (k *IambicKeyer) elementComplete() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.step()
}

// step advances the FSM by one transition, per spec §4.F's summarized
// table. Caller must hold k.mu.
func (k *IambicKeyer) step() {
	switch k.state {
	case IambicIdle:
		switch {
		case k.dotPaddle:
			k.enterElement(IambicInDotA, '.')
		case k.dashPaddle:
			k.enterElement(IambicInDashA, '-')
		}
	case IambicInDotA:
		k.state = IambicAfterDotA
		k.emitInterElementGap()
	case IambicInDashA:
		k.state = IambicAfterDashA
		k.emitInterElementGap()
	case IambicAfterDotA:
		switch {
		case k.dashPaddle || k.dashLatch:
			k.dashLatch = false
			k.enterElement(IambicInDashB, '-')
		case k.dotPaddle:
			k.enterElement(IambicInDotA, '.')
		default:
			k.goIdle()
		}
	case IambicAfterDashA:
		switch {
		case k.dotPaddle || k.dotLatch:
			k.dotLatch = false
			k.enterElement(IambicInDotB, '.')
		case k.dashPaddle:
			k.enterElement(IambicInDashA, '-')
		default:
			k.goIdle()
		}
	case IambicInDotB:
		k.state = IambicAfterDotB
		k.emitInterElementGap()
	case IambicInDashB:
		k.state = IambicAfterDashB
		k.emitInterElementGap()
	case IambicAfterDotB:
		switch {
		case k.curtisBLatch:
			k.curtisBLatch = false
			k.enterElement(IambicInDashB, '-')
		case k.dashPaddle || k.dashLatch:
			k.dashLatch = false
			k.enterElement(IambicInDashB, '-')
		case k.dotPaddle:
			k.enterElement(IambicInDotA, '.')
		default:
			k.goIdle()
		}
	case IambicAfterDashB:
		switch {
		case k.curtisBLatch:
			k.curtisBLatch = false
			k.enterElement(IambicInDotB, '.')
		case k.dotPaddle || k.dotLatch:
			k.dotLatch = false
			k.enterElement(IambicInDotB, '.')
		case k.dashPaddle:
			k.enterElement(IambicInDashA, '-')
		default:
			k.goIdle()
		}
	}
	k.broadcastStep()
}

func (k *IambicKeyer) goIdle() {
	k.state = IambicIdle
	k.curtisBLatch = false
	k.dotLatch = false
	k.dashLatch = false
	if k.idleReached != nil {
		close(k.idleReached)
	}
	k.idleReached = make(chan struct{})
}

// enterElement moves to state and, if a Generator is bound, enqueues
// the matching audible element on it; if a Receiver is bound, it also
// forwards the symbol via AddMark.
func (k *IambicKeyer) enterElement(state IambicState, sym byte) {
	k.state = state
	if k.metrics != nil {
		k.metrics.elements.Inc()
	}
	if k.gen != nil {
		t := k.gen.Timings()
		length := t.DotUS
		if sym == '-' {
			length = t.DashUS
		}
		_ = k.gen.Queue().Enqueue(Tone{
			LengthUS:    length,
			FrequencyHz: k.gen.FrequencyHz(),
			SlopeMode:   SlopeStandard,
		})
	}
	if k.rx != nil {
		_ = k.rx.AddMark(nowUS(), sym)
	}
}

func (k *IambicKeyer) emitInterElementGap() {
	if k.gen != nil {
		t := k.gen.Timings()
		_ = k.gen.Queue().Enqueue(Tone{LengthUS: t.InterElementUS})
	}
}

// broadcastStep wakes any goroutine blocked in WaitForElement.
// Caller must hold k.mu.
func (k *IambicKeyer) broadcastStep() {
	close(k.elementDone)
	k.elementDone = make(chan struct{})
}

// WaitForElement blocks until the FSM advances one step.
func (k *IambicKeyer) WaitForElement() {
	k.mu.Lock()
	ch := k.elementDone
	k.mu.Unlock()
	<-ch
}

// WaitForKeyer blocks until the FSM reaches IDLE.
func (k *IambicKeyer) WaitForKeyer() {
	k.mu.Lock()
	if k.state == IambicIdle {
		k.mu.Unlock()
		return
	}
	ch := k.idleReached
	k.mu.Unlock()
	<-ch
}

// nowUS returns a monotonic microsecond timestamp for internally
// generated receiver events (paddle-driven symbols bypass external
// timing entirely, per spec §4.E AddMark).
func nowUS() int64 {
	return time.Now().UnixMicro()
}

// Key is the composite input-device model of spec §3: a straight-key
// value plus an iambic-keyer FSM, with weak associations to a
// Generator (required for iambic operation) and an optional Receiver.
// Destroying a Key does not destroy its associated Generator/Receiver;
// conversely a Key MUST be destroyed before the Generator it points to
// (spec §9 "Back-reference ownership").
type Key struct {
	straight StraightKeyState
	iambic   *IambicKeyer

	mu       sync.Mutex
	callback KeyingCallback
	cbArg    any
	tkValue  KeyValue
	tkSet    bool
}

// NewKey creates an empty Key with a fresh iambic-keyer sub-object.
func NewKey() *Key {
	return &Key{iambic: NewIambicKeyer()}
}

// Straight returns the Key's straight-key sub-object.
func (k *Key) Straight() *StraightKeyState { return &k.straight }

// Iambic returns the Key's iambic-keyer sub-object.
func (k *Key) Iambic() *IambicKeyer { return k.iambic }

// SetGenerator registers gen as the Generator this Key drives. Both
// the straight-key path and the iambic-keyer path use it.
func (k *Key) SetGenerator(gen *Generator) {
	k.straight.mu.Lock()
	k.straight.gen = gen
	k.straight.mu.Unlock()
	k.iambic.bindGenerator(gen)
	if gen != nil {
		gen.bindKey(k)
	}
}

// SetReceiver registers rx to receive forwarded mark/space events.
func (k *Key) SetReceiver(rx *Receiver) {
	k.iambic.bindReceiver(rx)
}

// SetKeyingCallback registers fn to be invoked on every TK transition.
func (k *Key) SetKeyingCallback(fn KeyingCallback, arg any) {
	k.mu.Lock()
	k.callback = fn
	k.cbArg = arg
	k.mu.Unlock()
}

// notifyTK is called by the Generator's synthesis loop whenever it
// dequeues a tone: value is CLOSED iff the tone's frequency is
// nonzero (spec §4.F "TK (tone-queue key)").
func (k *Key) notifyTK(closed bool) {
	value := KeyOpen
	if closed {
		value = KeyClosed
	}

	k.mu.Lock()
	if k.tkSet && k.tkValue == value {
		k.mu.Unlock()
		return
	}
	k.tkValue = value
	k.tkSet = true
	cb, arg := k.callback, k.cbArg
	k.mu.Unlock()

	if cb != nil {
		cb(nowUS(), value, arg)
	}
}
