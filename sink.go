package cw

// AudioSink is the external collaborator a Generator renders PCM
// samples into (spec §4.D.3). Sound-system back-ends (null/console
// /OSS/ALSA/PulseAudio) are out of scope for this package; only the
// interface is specified here. A sink must accept blocking writes —
// the synthesis thread relies on WriteFrames for back-pressure.
type AudioSink interface {
	// Open prepares the device named by device for writing and
	// returns ErrNotSupported if the sink cannot honor the request.
	Open(device string) error
	// Close releases the device.
	Close() error
	// WriteFrames writes samples (interleaved, Channels() per frame)
	// and returns the number of frames actually written along with
	// ErrIO on a short or failed write.
	WriteFrames(samples []int16) (written int, err error)
	// SampleRate reports the sink's native sample rate in Hz.
	SampleRate() int
	// FrameSize reports the sink's native frame size in samples
	// (Channels() for interleaved PCM).
	FrameSize() int
	// Channels reports the number of interleaved channels; the core
	// only ever produces 1 (spec §3: "channels=1").
	Channels() int
}

// NullSink discards every frame written to it. It reports a fixed
// sample rate and frame size and never fails, which makes it useful
// as a default sink and in tests that only care about timing, not
// about audible output.
type NullSink struct {
	sampleRate int
	frameSize  int
}

// NewNullSink creates a NullSink reporting the given sample rate. A
// frameSize of 0 defaults to 1 (one sample per frame, mono).
func NewNullSink(sampleRate, frameSize int) *NullSink {
	if frameSize <= 0 {
		frameSize = 1
	}
	return &NullSink{sampleRate: sampleRate, frameSize: frameSize}
}

func (s *NullSink) Open(device string) error { return nil }
func (s *NullSink) Close() error             { return nil }

func (s *NullSink) WriteFrames(samples []int16) (int, error) {
	return len(samples), nil
}

func (s *NullSink) SampleRate() int { return s.sampleRate }
func (s *NullSink) FrameSize() int  { return s.frameSize }
func (s *NullSink) Channels() int   { return 1 }
