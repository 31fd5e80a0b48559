package cw

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Limits mirrors the library's hard-coded parameter bounds in a
// loadable form, for callers that want to report them (e.g. a CLI
// front-end's "--help") without importing the numeric constants
// directly. It carries no behavior of its own; the constants in
// generator.go, tonequeue.go and receiver.go remain authoritative.
type Limits struct {
	SpeedMinWPM  int `yaml:"speed_min_wpm"`
	SpeedMaxWPM  int `yaml:"speed_max_wpm"`
	FreqMinHz    int `yaml:"frequency_min_hz"`
	FreqMaxHz    int `yaml:"frequency_max_hz"`
	VolumeMinPct int `yaml:"volume_min_pct"`
	VolumeMaxPct int `yaml:"volume_max_pct"`
	GapMinUnits  int `yaml:"gap_min_units"`
	GapMaxUnits  int `yaml:"gap_max_units"`
	WeightingMin int `yaml:"weighting_min"`
	WeightingMax int `yaml:"weighting_max"`
	ToleranceMin int `yaml:"tolerance_min_pct"`
	ToleranceMax int `yaml:"tolerance_max_pct"`
}

// DefaultLimits returns the library's built-in bounds.
func DefaultLimits() Limits {
	return Limits{
		SpeedMinWPM:  SpeedMinWPM,
		SpeedMaxWPM:  SpeedMaxWPM,
		FreqMinHz:    MinFrequencyHz,
		FreqMaxHz:    MaxFrequencyHz,
		VolumeMinPct: VolumeMinPct,
		VolumeMaxPct: VolumeMaxPct,
		GapMinUnits:  GapMinUnits,
		GapMaxUnits:  GapMaxUnits,
		WeightingMin: WeightingMin,
		WeightingMax: WeightingMax,
		ToleranceMin: ToleranceMinPct,
		ToleranceMax: ToleranceMaxPct,
	}
}

// Defaults is a YAML-loadable set of initial Generator/Receiver
// parameters, mirroring the teacher's config.go yaml-tag pattern. A
// front-end (out of scope for this package) would typically load one
// of these from disk and apply it to a fresh Generator/Receiver pair;
// the library itself never reads a config file on its own.
type Defaults struct {
	SpeedWPM             int    `yaml:"speed_wpm"`
	FrequencyHz          int    `yaml:"frequency_hz"`
	VolumePct            int    `yaml:"volume_pct"`
	GapUnits             int    `yaml:"gap_units"`
	Weighting            int    `yaml:"weighting"`
	SlopeShape           string `yaml:"slope_shape"`
	SlopeUS              int    `yaml:"slope_us"`
	ToneQueueCapacity    int    `yaml:"tone_queue_capacity"`
	MinimumConfigVersion string `yaml:"minimum_config_version"`
}

// DefaultConfig returns the library's built-in defaults.
func DefaultConfig() Defaults {
	return Defaults{
		SpeedWPM:             DefaultSpeedWPM,
		FrequencyHz:          DefaultFrequencyHz,
		VolumePct:            DefaultVolumePct,
		GapUnits:             DefaultGapUnits,
		Weighting:            DefaultWeighting,
		SlopeShape:           "raised_cosine",
		SlopeUS:              DefaultSlopeUS,
		ToneQueueCapacity:    DefaultCapacity,
		MinimumConfigVersion: "",
	}
}

// LoadDefaults reads a YAML Defaults document from path and validates
// it against Version via MinimumConfigVersion.
func LoadDefaults(path string) (Defaults, error) {
	d := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return d, ErrIO
	}
	if err := yaml.Unmarshal(data, &d); err != nil {
		return d, ErrInvalid
	}
	if err := CheckMinimumVersion(d.MinimumConfigVersion); err != nil {
		return d, err
	}
	return d, nil
}

// ParseSlopeShape maps a Defaults.SlopeShape string onto a SlopeShape
// value, defaulting to SlopeRaisedCosine for an empty or unrecognized
// string.
func ParseSlopeShape(s string) SlopeShape {
	switch s {
	case "linear":
		return SlopeLinear
	case "sine":
		return SlopeSine
	case "rectangular":
		return SlopeRectangular
	default:
		return SlopeRaisedCosine
	}
}

// ApplyTo pushes these defaults onto a fresh Generator. It is meant to
// be called once, right after NewGenerator, before Start.
// ToneQueueCapacity is not applied: the Generator keeps the tone queue
// it was created with.
func (d Defaults) ApplyTo(g *Generator) error {
	if err := g.SetSpeed(d.SpeedWPM); err != nil {
		return err
	}
	if err := g.SetFrequency(d.FrequencyHz); err != nil {
		return err
	}
	if err := g.SetVolume(d.VolumePct); err != nil {
		return err
	}
	if err := g.SetGap(d.GapUnits); err != nil {
		return err
	}
	if err := g.SetWeighting(d.Weighting); err != nil {
		return err
	}
	return g.SetSlope(ParseSlopeShape(d.SlopeShape), d.SlopeUS)
}
