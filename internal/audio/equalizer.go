// Package audio implements the signal chain of the playback engine: gain,
// a ten-band parametric equalizer and a spectrum analyzer, connected into a
// graph that pumps decoded samples to the platform output.
package audio

import (
	"math"
	"sync"

	"github.com/cadenzaplayer/cadenza/internal/domain"
)

// Equalizer gain limits in dB. Band gains outside this range are clamped.
const (
	EQGainMin = -12.0
	EQGainMax = 12.0
)

// bandFrequencies are the center frequencies of the ten filter stages in Hz.
var bandFrequencies = [domain.EQBandCount]float64{
	32, 64, 125, 250, 500, 1000, 2000, 4000, 8000, 16000,
}

// presets maps preset names to their band gains in dB.
// "custom" is intentionally absent: its gains come from user edits, not a table.
var presets = map[string][domain.EQBandCount]float64{
	"flat":      {0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
	"rock":      {5, 4, 3, 1, -1, -1, 1, 3, 4, 5},
	"pop":       {-1, 0, 2, 4, 5, 5, 3, 1, -1, -2},
	"jazz":      {3, 2, 1, 2, -1, -1, 0, 1, 2, 3},
	"classical": {4, 3, 2, 0, 0, 0, 0, 2, 3, 4},
	"bass":      {7, 6, 5, 3, 1, 0, 0, 0, 0, 0},
}

// PresetCustom is the preset name reported after any manual band edit.
const PresetCustom = "custom"

// PresetNames returns the names of all built-in presets.
func PresetNames() []string {
	return []string{"flat", "rock", "pop", "jazz", "classical", "bass"}
}

// PresetGains returns the band gains of a built-in preset.
func PresetGains(name string) ([domain.EQBandCount]float64, bool) {
	gains, ok := presets[name]
	return gains, ok
}

// biquad is a single second-order peaking filter stage (direct form I).
// Filter state is kept per channel so interleaved stereo stays independent.
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64

	// state holds x1, x2, y1, y2 per channel
	state [][4]float64

	active bool
}

// configure computes peaking-EQ coefficients for the given center frequency,
// gain and sample rate, following the standard audio cookbook formulas.
func (f *biquad) configure(freq, gainDB float64, sampleRate, channels int) {
	f.state = make([][4]float64, channels)

	if gainDB == 0 || freq >= float64(sampleRate)/2 {
		f.active = false
		return
	}

	const q = 1.41

	a := math.Pow(10, gainDB/40)
	w0 := 2 * math.Pi * freq / float64(sampleRate)
	alpha := math.Sin(w0) / (2 * q)
	cosw0 := math.Cos(w0)

	a0 := 1 + alpha/a
	f.b0 = (1 + alpha*a) / a0
	f.b1 = (-2 * cosw0) / a0
	f.b2 = (1 - alpha*a) / a0
	f.a1 = (-2 * cosw0) / a0
	f.a2 = (1 - alpha/a) / a0
	f.active = true
}

// process filters one sample of the given channel.
func (f *biquad) process(x float64, ch int) float64 {
	s := &f.state[ch]
	y := f.b0*x + f.b1*s[0] + f.b2*s[1] - f.a1*s[2] - f.a2*s[3]
	s[1], s[0] = s[0], x
	s[3], s[2] = s[2], y
	return y
}

// Equalizer is a ten-band peaking equalizer. Band gains are expressed in dB
// and clamped to [EQGainMin, EQGainMax].
//
// Thread-safety: safe for concurrent use; Process holds the lock for the
// duration of a block, so edits apply on block boundaries.
type Equalizer struct {
	mu sync.Mutex

	sampleRate int
	channels   int
	preset     string
	gains      [domain.EQBandCount]float64
	filters    [domain.EQBandCount]biquad
}

// NewEqualizer creates an equalizer with the flat preset at 44100 Hz mono.
func NewEqualizer() *Equalizer {
	eq := &Equalizer{
		sampleRate: 44100,
		channels:   1,
		preset:     "flat",
	}
	eq.reconfigure()
	return eq
}

// Configure sets the stream format and resets filter state.
// Called by the graph when a new source is loaded.
func (eq *Equalizer) Configure(sampleRate, channels int) {
	eq.mu.Lock()
	defer eq.mu.Unlock()

	if channels < 1 {
		channels = 1
	}
	eq.sampleRate = sampleRate
	eq.channels = channels
	eq.reconfigure()
}

// ApplyPreset replaces all band gains with a built-in preset.
// Returns domain.ErrUnknownPreset for names that have no gain table, including
// "custom": custom gains are restored through SetCustom.
func (eq *Equalizer) ApplyPreset(name string) error {
	gains, ok := presets[name]
	if !ok {
		return domain.ErrUnknownPreset
	}

	eq.mu.Lock()
	defer eq.mu.Unlock()

	eq.preset = name
	eq.gains = gains
	eq.reconfigure()
	return nil
}

// SetCustom replaces all band gains at once and marks the preset as custom.
func (eq *Equalizer) SetCustom(gains [domain.EQBandCount]float64) {
	eq.mu.Lock()
	defer eq.mu.Unlock()

	eq.preset = PresetCustom
	for i, g := range gains {
		eq.gains[i] = clampGain(g)
	}
	eq.reconfigure()
}

// SetBandGain adjusts a single band. Any manual edit switches the preset to
// custom, keeping the other bands' gains.
func (eq *Equalizer) SetBandGain(band int, gainDB float64) error {
	if band < 0 || band >= domain.EQBandCount {
		return domain.ErrInvalidBand
	}

	eq.mu.Lock()
	defer eq.mu.Unlock()

	eq.preset = PresetCustom
	eq.gains[band] = clampGain(gainDB)
	eq.filters[band].configure(bandFrequencies[band], eq.gains[band], eq.sampleRate, eq.channels)
	return nil
}

// Preset returns the active preset name.
func (eq *Equalizer) Preset() string {
	eq.mu.Lock()
	defer eq.mu.Unlock()
	return eq.preset
}

// Gains returns the current band gains in dB.
func (eq *Equalizer) Gains() [domain.EQBandCount]float64 {
	eq.mu.Lock()
	defer eq.mu.Unlock()
	return eq.gains
}

// Process filters a block of samples in place. Inactive (0 dB) bands are
// skipped, so the flat preset is a no-op.
func (eq *Equalizer) Process(samples []float32) {
	eq.mu.Lock()
	defer eq.mu.Unlock()

	for i := range eq.filters {
		f := &eq.filters[i]
		if !f.active {
			continue
		}
		for j, s := range samples {
			samples[j] = float32(f.process(float64(s), j%eq.channels))
		}
	}
}

func (eq *Equalizer) reconfigure() {
	for i := range eq.filters {
		eq.filters[i].configure(bandFrequencies[i], eq.gains[i], eq.sampleRate, eq.channels)
	}
}

func clampGain(g float64) float64 {
	if g < EQGainMin {
		return EQGainMin
	}
	if g > EQGainMax {
		return EQGainMax
	}
	return g
}
