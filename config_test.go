package cw

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigAppliesCleanlyToGenerator(t *testing.T) {
	g := NewGenerator(NewNullSink(8000, 1))
	require.NoError(t, DefaultConfig().ApplyTo(g))
	assert.Equal(t, DefaultSpeedWPM, g.SpeedWPM())
	assert.Equal(t, DefaultFrequencyHz, g.FrequencyHz())
}

func TestLoadDefaultsFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cw.yaml")
	const doc = `
speed_wpm: 25
frequency_hz: 600
volume_pct: 80
gap_units: 0
weighting: 50
slope_shape: linear
slope_us: 3000
tone_queue_capacity: 500
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	d, err := LoadDefaults(path)
	require.NoError(t, err)
	assert.Equal(t, 25, d.SpeedWPM)
	assert.Equal(t, 600, d.FrequencyHz)
	assert.Equal(t, SlopeLinear, ParseSlopeShape(d.SlopeShape))
}

func TestLoadDefaultsRejectsTooOldMinimumVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cw.yaml")
	require.NoError(t, os.WriteFile(path, []byte("minimum_config_version: \"999.0.0\"\n"), 0o644))

	_, err := LoadDefaults(path)
	assert.ErrorIs(t, err, ErrNotSupported)
}

func TestParseSlopeShapeDefaultsToRaisedCosine(t *testing.T) {
	assert.Equal(t, SlopeRaisedCosine, ParseSlopeShape(""))
	assert.Equal(t, SlopeRaisedCosine, ParseSlopeShape("bogus"))
	assert.Equal(t, SlopeRectangular, ParseSlopeShape("rectangular"))
}
