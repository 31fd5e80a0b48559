package cw

import (
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WavSink is a reference AudioSink that renders PCM frames to a
// mono, 16-bit .wav file. Real sound-card back-ends are out of scope
// for this package (spec §1); WavSink exists so the synthesis loop
// has something to exercise in tests and example code without a
// sound card, the same role github.com/go-audio/wav plays for PCM
// capture/export elsewhere in the retrieval pack (tphakala/birdnet-go).
type WavSink struct {
	sampleRate int
	file       *os.File
	enc        *wav.Encoder
	buf        *audio.IntBuffer
}

// NewWavSink creates a WavSink that will render at sampleRate Hz,
// mono, 16-bit signed PCM.
func NewWavSink(sampleRate int) *WavSink {
	return &WavSink{sampleRate: sampleRate}
}

func (s *WavSink) Open(device string) error {
	f, err := os.Create(device)
	if err != nil {
		return ErrNotSupported
	}
	s.file = f
	s.enc = wav.NewEncoder(f, s.sampleRate, 16, 1, 1)
	s.buf = &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: s.sampleRate},
		SourceBitDepth: 16,
	}
	return nil
}

func (s *WavSink) Close() error {
	if s.enc == nil {
		return nil
	}
	if err := s.enc.Close(); err != nil {
		_ = s.file.Close()
		return ErrIO
	}
	return s.file.Close()
}

func (s *WavSink) WriteFrames(samples []int16) (int, error) {
	if s.enc == nil {
		return 0, ErrNotSupported
	}
	ints := make([]int, len(samples))
	for i, v := range samples {
		ints[i] = int(v)
	}
	s.buf.Data = ints
	if err := s.enc.Write(s.buf); err != nil {
		return 0, ErrIO
	}
	return len(samples), nil
}

func (s *WavSink) SampleRate() int { return s.sampleRate }
func (s *WavSink) FrameSize() int  { return 1 }
func (s *WavSink) Channels() int   { return 1 }
