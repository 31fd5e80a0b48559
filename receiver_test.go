package cw

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// feedMark advances the receiver through one mark of the given
// duration followed by a space of the given duration, returning the
// timestamp at which the following mark would begin.
func feedMark(t *testing.T, r *Receiver, start, markUS, spaceUS int64) int64 {
	t.Helper()
	require.NoError(t, r.MarkBegin(start))
	end := start + markUS
	require.NoError(t, r.MarkEnd(end))
	return end + spaceUS
}

// TestReceiverDecodesSOS is spec §8 S5: feeding the literal
// (mark, space) timestamp pairs for "SOS" at 20 wpm must decode to
// 'S', 'O', 'S' with the final gap reported as end-of-word.
func TestReceiverDecodesSOS(t *testing.T) {
	r := NewReceiver()
	require.NoError(t, r.SetSpeed(20))
	require.NoError(t, r.SetTolerance(1))

	ts := int64(0)

	// S: (60k,60k)(60k,60k)(60k,180k)
	ts = feedMark(t, r, ts, 60_000, 60_000)
	ts = feedMark(t, r, ts, 60_000, 60_000)
	markEnd := ts + 60_000
	require.NoError(t, r.MarkBegin(ts))
	require.NoError(t, r.MarkEnd(markEnd))
	pollAt := markEnd + 180_000

	c, eow, isErr, ready := r.PollCharacter(pollAt)
	require.True(t, ready)
	assert.False(t, isErr)
	assert.False(t, eow)
	assert.Equal(t, 'S', c)
	ts = pollAt

	// O: (180k,60k)(180k,60k)(180k,180k)
	ts = feedMark(t, r, ts, 180_000, 60_000)
	ts = feedMark(t, r, ts, 180_000, 60_000)
	markEnd = ts + 180_000
	require.NoError(t, r.MarkBegin(ts))
	require.NoError(t, r.MarkEnd(markEnd))
	pollAt = markEnd + 180_000

	c, eow, isErr, ready = r.PollCharacter(pollAt)
	require.True(t, ready)
	assert.False(t, isErr)
	assert.False(t, eow)
	assert.Equal(t, 'O', c)
	ts = pollAt

	// S: (60k,60k)(60k,60k)(60k,>=420k)
	ts = feedMark(t, r, ts, 60_000, 60_000)
	ts = feedMark(t, r, ts, 60_000, 60_000)
	markEnd = ts + 60_000
	require.NoError(t, r.MarkBegin(ts))
	require.NoError(t, r.MarkEnd(markEnd))
	pollAt = markEnd + 420_000

	c, eow, isErr, ready = r.PollCharacter(pollAt)
	require.True(t, ready)
	assert.False(t, isErr)
	assert.True(t, eow, "the trailing >=5-unit gap must be reported as end of word")
	assert.Equal(t, 'S', c)
	assert.True(t, r.PollIsPendingInterWordSpace())
}

func TestReceiverMultiSymbolCharacterBufferSurvivesInterElementGap(t *testing.T) {
	// Regression: mark_begin from AFTER_MARK must not wipe out symbols
	// already accumulated for the character in progress.
	r := NewReceiver()
	require.NoError(t, r.SetSpeed(20))

	ts := int64(0)
	ts = feedMark(t, r, ts, 60_000, 60_000) // dot
	ts = feedMark(t, r, ts, 60_000, 60_000) // dot
	markEnd := ts + 60_000
	require.NoError(t, r.MarkBegin(ts))
	require.NoError(t, r.MarkEnd(markEnd)) // dot: "..." so far

	rep, _, _, ready := r.PollRepresentation(markEnd + 180_000)
	require.True(t, ready)
	assert.Equal(t, "...", rep)
}

func TestReceiverNoiseSpikeRejected(t *testing.T) {
	r := NewReceiver()
	require.NoError(t, r.SetSpeed(20))
	require.NoError(t, r.SetNoiseSpike(10_000))

	require.NoError(t, r.MarkBegin(0))
	require.NoError(t, r.MarkEnd(2_000)) // shorter than the noise floor

	_, _, _, ready := r.PollRepresentation(300_000)
	assert.False(t, ready, "a rejected noise spike must not produce a pollable representation")
}

func TestReceiverAddMarkBypassesClassification(t *testing.T) {
	r := NewReceiver()
	require.NoError(t, r.AddMark(0, '.'))
	require.NoError(t, r.AddMark(100, '-'))

	rep, _, _, ready := r.PollRepresentation(10_000_000)
	require.True(t, ready)
	assert.Equal(t, ".-", rep)
}

func TestReceiverSetSpeedRejectsOutOfRange(t *testing.T) {
	r := NewReceiver()
	assert.ErrorIs(t, r.SetSpeed(ReceiverSpeedMin-1), ErrInvalid)
	assert.ErrorIs(t, r.SetSpeed(ReceiverSpeedMax+1), ErrInvalid)
}

func TestReceiverSetToleranceRejectsOutOfRange(t *testing.T) {
	r := NewReceiver()
	assert.ErrorIs(t, r.SetTolerance(-1), ErrInvalid)
	assert.ErrorIs(t, r.SetTolerance(91), ErrInvalid)
}

func TestReceiverAdaptiveSpeedTracksFasterSending(t *testing.T) {
	r := NewReceiver()
	require.NoError(t, r.SetSpeed(20))
	r.SetAdaptiveMode(true)

	// Feed several dots at 40 wpm timing (unit = 30000us) with a
	// generous tolerance so the pre-adaptation classifier still
	// recognizes them as dots against the initial 20 wpm expectation.
	require.NoError(t, r.SetTolerance(90))
	ts := int64(0)
	for i := 0; i < 4; i++ {
		ts = feedMark(t, r, ts, 30_000, 30_000)
	}

	stats := r.Statistics()
	assert.Equal(t, 4, stats.Dots)
	assert.Greater(t, stats.SpeedWPM, 20.0, "speed estimate should adapt upward toward the faster sending rate")
}

func TestReceiverResetStateClearsBufferNotStatistics(t *testing.T) {
	r := NewReceiver()
	require.NoError(t, r.MarkBegin(0))
	require.NoError(t, r.MarkEnd(60_000)) // one classified dot at the default 20 wpm
	require.NoError(t, r.AddMark(0, '.'))
	r.ResetState()

	_, _, _, ready := r.PollRepresentation(1_000_000)
	assert.False(t, ready)
	assert.Equal(t, 1, r.Statistics().Dots, "ResetState must leave the classification statistics alone")
}
