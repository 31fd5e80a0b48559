// Package cw generates and receives International Morse Code.
//
// A client drives the package through three collaborating types: a
// Generator that enqueues tones and renders PCM samples for an
// AudioSink, a Receiver that classifies externally timestamped
// mark/space events back into characters, and a Key that models a
// straight key or an iambic paddle keyer and bridges input events to
// the Generator and Receiver.
//
// The package does not decode Morse code from raw audio: a Receiver
// is fed pre-classified mark/space timings by the caller. It does not
// provide a sound back-end of its own beyond NullSink and WavSink; a
// real-time sound card driver is the embedding application's concern.
package cw
