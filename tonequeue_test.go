package cw

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToneQueueEnqueueDequeueFIFO(t *testing.T) {
	q := NewToneQueue(4, 2)

	require.NoError(t, q.Enqueue(Tone{LengthUS: 100, FrequencyHz: 600}))
	require.NoError(t, q.Enqueue(Tone{LengthUS: 200, FrequencyHz: 700}))

	tone, result, _ := q.Dequeue()
	assert.Equal(t, Dequeued, result)
	assert.Equal(t, int64(100), tone.LengthUS)

	tone, result, _ = q.Dequeue()
	assert.Equal(t, Dequeued, result)
	assert.Equal(t, int64(200), tone.LengthUS)

	_, result, _ = q.Dequeue()
	assert.Equal(t, EmptyNewly, result, "first dequeue past the last tone reports EMPTY_NEWLY")

	_, result, _ = q.Dequeue()
	assert.Equal(t, Idle, result, "subsequent dequeues on an already-idle queue report IDLE")
}

func TestToneQueueFillReturnsErrAgain(t *testing.T) {
	q := NewToneQueue(2, 1)
	require.NoError(t, q.Enqueue(Tone{LengthUS: 10, FrequencyHz: 600}))
	require.NoError(t, q.Enqueue(Tone{LengthUS: 10, FrequencyHz: 600}))

	err := q.Enqueue(Tone{LengthUS: 10, FrequencyHz: 600})
	assert.ErrorIs(t, err, ErrAgain)
	assert.True(t, q.IsFull())
}

func TestToneQueueLowWaterCallback(t *testing.T) {
	q := NewToneQueue(5, 5)
	fired := 0
	require.NoError(t, q.RegisterLowWaterCallback(func(arg any) {
		fired++
	}, nil, 1))

	for i := 0; i < 3; i++ {
		require.NoError(t, q.Enqueue(Tone{LengthUS: 10, FrequencyHz: 600}))
	}

	// Drain to length 2, then 1: the low-water mark (1) is crossed only
	// on the dequeue that takes length from 2 down to 1.
	_, _, low := q.Dequeue()
	assert.False(t, low)
	_, _, low = q.Dequeue()
	assert.True(t, low, "crossing from above the low-water mark to at-or-below it must be reported")
	if low {
		q.InvokeLowWaterCallback()
	}
	assert.Equal(t, 1, fired)
}

func TestToneQueueForeverToneNotRemovedUntilCancelled(t *testing.T) {
	q := NewToneQueue(4, 2)
	require.NoError(t, q.Enqueue(Tone{LengthUS: 1, FrequencyHz: 600, IsForever: true}))

	tone, result, _ := q.Dequeue()
	assert.Equal(t, Dequeued, result)
	assert.True(t, tone.IsForever)
	assert.Equal(t, 1, q.Length(), "a sole forever tone is returned but not removed")

	tone, result, _ = q.Dequeue()
	assert.Equal(t, Dequeued, result)
	assert.Equal(t, 1, q.Length(), "repeated dequeues keep re-returning the forever tone")
}

func TestToneQueueZeroLengthDroppedCarriesIsFirstForward(t *testing.T) {
	q := NewToneQueue(4, 2)
	require.NoError(t, q.Enqueue(Tone{LengthUS: 0, FrequencyHz: 0, IsFirst: true}))
	assert.Equal(t, 0, q.Length(), "a zero-length tone is dropped, not enqueued")

	require.NoError(t, q.Enqueue(Tone{LengthUS: 50, FrequencyHz: 600}))
	tone, result, _ := q.Dequeue()
	assert.Equal(t, Dequeued, result)
	assert.True(t, tone.IsFirst, "the dropped tone's IsFirst flag carries forward onto the next real tone")
}

func TestToneQueueFlushClearsPendingLowWater(t *testing.T) {
	q := NewToneQueue(4, 2)
	require.NoError(t, q.RegisterLowWaterCallback(func(arg any) {}, nil, 1))
	require.NoError(t, q.Enqueue(Tone{LengthUS: 10, FrequencyHz: 600}))
	require.NoError(t, q.Enqueue(Tone{LengthUS: 10, FrequencyHz: 600}))

	q.Flush()
	assert.Equal(t, 0, q.Length())
	assert.False(t, q.IsFull())

	// After the flush, a tone that never lifts the length above the
	// low-water mark (1) must not report a crossing.
	require.NoError(t, q.Enqueue(Tone{LengthUS: 10, FrequencyHz: 600}))
	_, _, low := q.Dequeue()
	assert.False(t, low, "a flush must leave no low-water report pending")
}

func TestToneQueueHandleBackspace(t *testing.T) {
	q := NewToneQueue(8, 4)
	// one character: 3 tones, first one flagged
	require.NoError(t, q.Enqueue(Tone{LengthUS: 10, FrequencyHz: 600, IsFirst: true}))
	require.NoError(t, q.Enqueue(Tone{LengthUS: 5, FrequencyHz: 0}))
	require.NoError(t, q.Enqueue(Tone{LengthUS: 10, FrequencyHz: 600}))
	// second character: 1 tone, flagged first
	require.NoError(t, q.Enqueue(Tone{LengthUS: 30, FrequencyHz: 600, IsFirst: true}))

	assert.Equal(t, 4, q.Length())
	q.HandleBackspace()
	assert.Equal(t, 3, q.Length(), "backspace removes only the most recently started character")

	q.HandleBackspace()
	assert.Equal(t, 0, q.Length(), "a second backspace removes the remaining character")

	q.HandleBackspace()
	assert.Equal(t, 0, q.Length(), "backspace on an empty queue is a no-op")
}

func TestToneQueueRejectsInvalidFrequency(t *testing.T) {
	q := NewToneQueue(4, 2)
	err := q.Enqueue(Tone{LengthUS: 10, FrequencyHz: MaxFrequencyHz + 1})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestToneQueueCapacityClamped(t *testing.T) {
	q := NewToneQueue(CapacityMax+1000, 0)
	assert.Equal(t, CapacityMax, q.Capacity())

	q2 := NewToneQueue(0, 0)
	assert.Equal(t, DefaultCapacity, q2.Capacity())
}
