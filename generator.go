package cw

import (
	"log"
	"math"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// Parameter limits (spec §3).
const (
	SpeedMinWPM = 4
	SpeedMaxWPM = 60

	VolumeMinPct = 0
	VolumeMaxPct = 100

	GapMinUnits = 0
	GapMaxUnits = 60

	WeightingMin = 20
	WeightingMax = 80
)

// Library defaults, mirroring unixcw's CW_*_INITIAL constants.
const (
	DefaultSpeedWPM    = 20
	DefaultFrequencyHz = 800
	DefaultVolumePct   = 70
	DefaultGapUnits    = 0
	DefaultWeighting   = 50
	DefaultSlopeUS     = 5000
)

// Timings is a derived, microsecond-denominated set of element
// durations for one set of Generator parameters (spec §3).
type Timings struct {
	UnitUS           int64
	DotUS            int64
	DashUS           int64
	InterElementUS   int64
	InterCharacterUS int64
	InterWordUS      int64
}

// Parameters is a point-in-time snapshot of a Generator's tunables
// (spec §4.D "[EXPANDED] Generator.Parameters()").
type Parameters struct {
	SpeedWPM    int
	FrequencyHz int
	VolumePct   int
	GapUnits    int
	Weighting   int
	SlopeShape  SlopeShape
	SlopeUS     int
}

type generatorMetrics struct {
	framesWritten prometheus.Counter
	ioErrors      prometheus.Counter
	degraded      prometheus.Gauge
}

// Generator owns exactly one ToneQueue, one SlopeTable and one
// AudioSink, and runs the real-time synthesis goroutine (spec §4.D).
type Generator struct {
	id string

	tq   *ToneQueue
	sink AudioSink

	sampleRate int // fixed at Start, as reported by the sink
	slopeTable atomic.Pointer[SlopeTable]

	speedWPM    atomic.Uint32
	frequencyHz atomic.Uint32
	volumePct   atomic.Uint32
	gapUnits    atomic.Uint32
	weighting   atomic.Uint32
	slopeShape  atomic.Uint32
	slopeUS     atomic.Uint32

	running  atomic.Bool
	degraded atomic.Bool
	stopCh   chan struct{}
	wg       sync.WaitGroup

	keyMu sync.Mutex
	key   *Key // weak reference, notified of TK transitions

	metrics *generatorMetrics
}

// NewGenerator creates a Generator over sink with parameters
// initialized to library defaults (spec §3 "Lifecycle").
func NewGenerator(sink AudioSink) *Generator {
	g := &Generator{
		id:     uuid.NewString(),
		tq:     NewToneQueue(DefaultCapacity, DefaultCapacity/2),
		sink:   sink,
		stopCh: make(chan struct{}),
	}
	g.speedWPM.Store(DefaultSpeedWPM)
	g.frequencyHz.Store(DefaultFrequencyHz)
	g.volumePct.Store(DefaultVolumePct)
	g.gapUnits.Store(DefaultGapUnits)
	g.weighting.Store(DefaultWeighting)
	g.slopeShape.Store(uint32(SlopeRaisedCosine))
	g.slopeUS.Store(DefaultSlopeUS)
	return g
}

// AttachMetrics registers this Generator's and its ToneQueue's
// prometheus collectors against reg. Pass nil to leave metrics
// disabled (the default).
func (g *Generator) AttachMetrics(reg prometheus.Registerer) {
	if reg == nil {
		return
	}
	labels := prometheus.Labels{"generator": g.id}
	g.tq.attachMetrics(reg, labels)
	m := &generatorMetrics{
		framesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cw", Subsystem: "generator", Name: "frames_written_total",
			Help: "Number of PCM frames written to the sink.", ConstLabels: labels,
		}),
		ioErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cw", Subsystem: "generator", Name: "sink_io_errors_total",
			Help: "Number of sink write errors.", ConstLabels: labels,
		}),
		degraded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cw", Subsystem: "generator", Name: "degraded",
			Help: "1 if the synthesis loop has entered degraded (drop-samples) mode.", ConstLabels: labels,
		}),
	}
	reg.MustRegister(m.framesWritten, m.ioErrors, m.degraded)
	g.metrics = m
}

// Queue returns the Generator's ToneQueue.
func (g *Generator) Queue() *ToneQueue { return g.tq }

// ID returns this Generator's log/metrics correlation identifier.
func (g *Generator) ID() string { return g.id }

// bindKey registers key as the Generator's weak back-reference so the
// synthesis loop can notify its TK model (spec §4.F "TK"). Called by
// Key.SetGenerator.
func (g *Generator) bindKey(k *Key) {
	g.keyMu.Lock()
	g.key = k
	g.keyMu.Unlock()
}

// Start spawns the synthesis goroutine and opens the sink device.
// Idempotent on an already-running generator (spec §4.D).
func (g *Generator) Start(device string) error {
	if g.running.Load() {
		return nil
	}
	if err := g.sink.Open(device); err != nil {
		return ErrNotSupported
	}
	g.sampleRate = g.sink.SampleRate()
	g.rebuildSlopeTable()

	g.stopCh = make(chan struct{})
	g.running.Store(true)
	g.wg.Add(1)
	go g.synthesize()
	return nil
}

// Stop signals the synthesis goroutine to exit, waits for it to join,
// and closes the sink. The tone queue's state is left intact so the
// Generator can be reconfigured and Started again (spec §4.D).
func (g *Generator) Stop() error {
	if !g.running.Load() {
		return nil
	}
	close(g.stopCh)
	g.tq.mu.Lock()
	g.tq.cond.Broadcast()
	g.tq.mu.Unlock()
	g.wg.Wait()
	g.running.Store(false)
	return g.sink.Close()
}

// --- parameter getters/setters -------------------------------------------------

func (g *Generator) SetSpeed(wpm int) error {
	if wpm < SpeedMinWPM || wpm > SpeedMaxWPM {
		return ErrInvalid
	}
	g.speedWPM.Store(uint32(wpm))
	return nil
}
func (g *Generator) SpeedWPM() int { return int(g.speedWPM.Load()) }

func (g *Generator) SetFrequency(hz int) error {
	if hz < MinFrequencyHz || hz > MaxFrequencyHz {
		return ErrInvalid
	}
	g.frequencyHz.Store(uint32(hz))
	return nil
}
func (g *Generator) FrequencyHz() int { return int(g.frequencyHz.Load()) }

func (g *Generator) SetVolume(pct int) error {
	if pct < VolumeMinPct || pct > VolumeMaxPct {
		return ErrInvalid
	}
	g.volumePct.Store(uint32(pct))
	return nil
}
func (g *Generator) VolumePct() int { return int(g.volumePct.Load()) }

func (g *Generator) SetGap(units int) error {
	if units < GapMinUnits || units > GapMaxUnits {
		return ErrInvalid
	}
	g.gapUnits.Store(uint32(units))
	return nil
}
func (g *Generator) GapUnits() int { return int(g.gapUnits.Load()) }

func (g *Generator) SetWeighting(w int) error {
	if w < WeightingMin || w > WeightingMax {
		return ErrInvalid
	}
	g.weighting.Store(uint32(w))
	return nil
}
func (g *Generator) Weighting() int { return int(g.weighting.Load()) }

func (g *Generator) SetSlope(shape SlopeShape, slopeUS int) error {
	if slopeUS < 0 {
		return ErrInvalid
	}
	g.slopeShape.Store(uint32(shape))
	g.slopeUS.Store(uint32(slopeUS))
	if g.sampleRate > 0 {
		g.rebuildSlopeTable()
	}
	return nil
}

func (g *Generator) rebuildSlopeTable() {
	shape := SlopeShape(g.slopeShape.Load())
	st := NewSlopeTable(shape, int(g.slopeUS.Load()), g.sampleRate)
	g.slopeTable.Store(st)
}

// Parameters returns a snapshot of the Generator's current tunables.
func (g *Generator) Parameters() Parameters {
	return Parameters{
		SpeedWPM:    g.SpeedWPM(),
		FrequencyHz: g.FrequencyHz(),
		VolumePct:   g.VolumePct(),
		GapUnits:    g.GapUnits(),
		Weighting:   g.Weighting(),
		SlopeShape:  SlopeShape(g.slopeShape.Load()),
		SlopeUS:     int(g.slopeUS.Load()),
	}
}

// Timings derives the element durations for the current parameters
// (spec §3). unit = 1,200,000 / wpm; dot = unit * weighting/50;
// dash = 3*dot; inter_element = unit;
// inter_character = 3*unit + gap*unit; inter_word = 7*unit + gap*unit.
func (g *Generator) Timings() Timings {
	return timingsFor(g.SpeedWPM(), g.Weighting(), g.GapUnits())
}

func timingsFor(wpm, weighting, gap int) Timings {
	unit := int64(1_200_000) / int64(wpm)
	dot := unit * int64(weighting) / 50
	dash := 3 * dot
	return Timings{
		UnitUS:           unit,
		DotUS:            dot,
		DashUS:           dash,
		InterElementUS:   unit,
		InterCharacterUS: 3*unit + int64(gap)*unit,
		InterWordUS:      7*unit + int64(gap)*unit,
	}
}

// --- queue forwarding -----------------------------------------------------

func (g *Generator) RegisterLowWaterCallback(fn lowWaterCallback, arg any, level int) error {
	return g.tq.RegisterLowWaterCallback(fn, arg, level)
}
func (g *Generator) WaitForQueueLevel(level int) error { return g.tq.WaitForLevel(level) }
func (g *Generator) WaitForTone()                      { g.tq.WaitForTone() }
func (g *Generator) IsQueueFull() bool                 { return g.tq.IsFull() }
func (g *Generator) QueueLength() int                  { return g.tq.Length() }
func (g *Generator) FlushQueue()                       { g.tq.Flush() }

// --- enqueueing -------------------------------------------------------------

// EnqueueCharacter enqueues one character's tones followed by an
// inter-character gap (spec §4.D.2).
func (g *Generator) EnqueueCharacter(c rune) error {
	return g.enqueueChar(c, true)
}

// EnqueueCharacterPartial enqueues one character's tones without the
// trailing inter-character gap, used to glue characters into a
// continuous string (spec §4.D.2).
func (g *Generator) EnqueueCharacterPartial(c rune) error {
	return g.enqueueChar(c, false)
}

func (g *Generator) enqueueChar(c rune, withGap bool) error {
	rep, ok := CharToRepresentation(c)
	if !ok {
		return ErrInvalid
	}
	t := g.Timings()
	freq := g.FrequencyHz()
	shape := SlopeShape(g.slopeShape.Load())
	slopeMode := markSlopeMode(shape)

	for i, sym := range rep {
		length := t.DotUS
		if sym == '-' {
			length = t.DashUS
		}
		if err := g.tq.Enqueue(Tone{
			LengthUS:    length,
			FrequencyHz: freq,
			SlopeMode:   slopeMode,
			IsFirst:     i == 0,
		}); err != nil {
			return err
		}
		last := i == len(rep)-1
		if !last {
			if err := g.tq.Enqueue(Tone{LengthUS: t.InterElementUS}); err != nil {
				return err
			}
		} else if withGap {
			if err := g.tq.Enqueue(Tone{LengthUS: t.InterCharacterUS}); err != nil {
				return err
			}
		}
	}
	return nil
}

// EnqueueString enqueues each character of s in turn, each followed by
// its own trailing gap: an inter-word gap (7·unit + extra_gap) at a
// word boundary, an inter-character gap otherwise. A space rune marks
// a word boundary but emits no tone of its own — the preceding
// character's trailing gap already is the word gap; a leading or
// repeated space has no preceding character and so contributes
// nothing. By Morse convention one "word" duration includes the gap
// that follows it (the PARIS calibration word is defined as exactly
// 50 dot units including its trailing word gap, spec §8 S1), so the
// string's own trailing gap is an inter-word gap too. Returns
// ErrInvalid on the first unsupported character; tones already
// enqueued remain queued (spec §4.D.2).
func (g *Generator) EnqueueString(s string) error {
	t := g.Timings()
	runes := []rune(s)
	for i, c := range runes {
		if c == ' ' {
			continue
		}
		if err := g.enqueueChar(c, false); err != nil {
			return err
		}
		atWordBoundary := i == len(runes)-1 || runes[i+1] == ' '
		gap := t.InterCharacterUS
		if atWordBoundary {
			gap = t.InterWordUS
		}
		if err := g.tq.Enqueue(Tone{LengthUS: gap}); err != nil {
			return err
		}
	}
	return nil
}

func markSlopeMode(shape SlopeShape) SlopeMode {
	if shape == SlopeRectangular {
		return SlopeNone
	}
	return SlopeStandard
}

// --- synthesis loop ---------------------------------------------------------

func (g *Generator) synthesize() {
	defer g.wg.Done()

	// A fresh Start leaves degraded mode.
	g.degraded.Store(false)
	if g.metrics != nil {
		g.metrics.degraded.Set(0)
	}

	var phase float64 // radians; carried across tones for continuity
	var partial []int16
	const frameBatch = 256
	consecutiveFailures := 0

	flushBatch := func() {
		if len(partial) == 0 {
			return
		}
		if g.degraded.Load() {
			partial = partial[:0] // degraded: samples are dropped, not written
			return
		}
		n, err := g.sink.WriteFrames(partial)
		if g.metrics != nil {
			g.metrics.framesWritten.Add(float64(n))
		}
		if err != nil {
			consecutiveFailures++
			if g.metrics != nil {
				g.metrics.ioErrors.Inc()
			}
			if consecutiveFailures >= SinkFailureThreshold {
				g.degraded.Store(true)
				if g.metrics != nil {
					g.metrics.degraded.Set(1)
				}
				log.Printf("[cw generator %s] sink degraded after %d consecutive failures", g.id, consecutiveFailures)
			}
		} else {
			consecutiveFailures = 0
		}
		partial = partial[:0]
	}

	writeSample := func(s int16) {
		partial = append(partial, s)
		if len(partial) >= frameBatch {
			flushBatch()
		}
	}

	writeSilenceUS := func(us int64) {
		n := int(us * int64(g.sampleRate) / 1_000_000)
		for i := 0; i < n; i++ {
			writeSample(0)
		}
	}

	renderTone := func(tone Tone) {
		if tone.silent() {
			writeSilenceUS(tone.LengthUS)
			return
		}

		st := g.slopeTable.Load()
		total := int(tone.LengthUS * int64(g.sampleRate) / 1_000_000)
		riseLen, fallLen := 0, 0
		if tone.SlopeMode == SlopeRisingOnly || tone.SlopeMode == SlopeStandard {
			riseLen = st.N()
		}
		if tone.SlopeMode == SlopeFallingOnly || tone.SlopeMode == SlopeStandard {
			fallLen = st.N()
		}
		if riseLen+fallLen > total {
			riseLen, fallLen = total/2, total/2
		}
		steadyLen := total - riseLen - fallLen

		volume := float64(g.VolumePct()) / 100.0
		angularStep := 2 * math.Pi * float64(tone.FrequencyHz) / float64(g.sampleRate)

		emit := func(amp float64) {
			phase += angularStep
			if phase > 2*math.Pi {
				phase -= 2 * math.Pi
			}
			s := amp * 32767.0 * math.Sin(phase)
			writeSample(int16(s))
		}

		for i := 0; i < riseLen; i++ {
			emit(volume * st.At(i))
		}
		for i := 0; i < steadyLen; i++ {
			emit(volume)
		}
		for i := 0; i < fallLen; i++ {
			emit(volume * st.At(fallLen-1-i))
		}
	}

	notifyKey := func(closed bool) {
		g.keyMu.Lock()
		k := g.key
		g.keyMu.Unlock()
		if k != nil {
			k.notifyTK(closed)
		}
	}

	for {
		select {
		case <-g.stopCh:
			flushBatch()
			return
		default:
		}

		tone, result, lowWaterPending := g.tq.Dequeue()
		switch result {
		case Idle:
			g.tq.mu.Lock()
			for g.tq.state == queueIdle {
				select {
				case <-g.stopCh:
					g.tq.mu.Unlock()
					flushBatch()
					return
				default:
				}
				g.tq.cond.Wait()
			}
			g.tq.mu.Unlock()
		case EmptyNewly:
			writeSilenceUS(int64(1000)) // one short buffer of trailing silence
			notifyKey(false)
		case Dequeued:
			notifyKey(tone.FrequencyHz != 0)
			renderTone(tone)
			if lowWaterPending {
				g.tq.InvokeLowWaterCallback()
			}
		}
	}
}
